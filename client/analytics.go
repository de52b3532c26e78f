// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// AnalyticsState is the state of the analytics modal.
type AnalyticsState struct {
	Game      *Game
	Result    *Analytics
	IsLoading bool
	Error     string
}

// Open reports whether the modal is showing.
func (s AnalyticsState) Open() bool {
	return s.Game != nil
}

// AnalyticsFetcher requests predictions on demand. Like SportStore, only the
// most recent Analyze call may write its result.
type AnalyticsFetcher struct {
	api   AnalyticsAPI
	state *Observable[AnalyticsState]
	seq   atomic.Uint64
	wg    sync.WaitGroup

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewAnalyticsFetcher returns a closed fetcher.
func NewAnalyticsFetcher(api AnalyticsAPI) *AnalyticsFetcher {
	return &AnalyticsFetcher{api: api, state: NewObservable(AnalyticsState{})}
}

// State returns a snapshot.
func (f *AnalyticsFetcher) State() AnalyticsState {
	return f.state.Get()
}

// Subscribe registers fn for every state change.
func (f *AnalyticsFetcher) Subscribe(fn func(AnalyticsState)) func() {
	return f.state.Subscribe(fn)
}

// Analyze opens the modal for game and fetches its prediction.
func (f *AnalyticsFetcher) Analyze(game Game) {
	ctx, cancel, seq := f.next()
	g := game
	f.state.Set(AnalyticsState{Game: &g, IsLoading: true})

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer cancel()
		res, err := f.api.Analytics(ctx, game.Sport, game.ID)
		f.state.UpdateIf(func(st AnalyticsState) (AnalyticsState, bool) {
			if f.seq.Load() != seq {
				return st, false
			}
			if err != nil {
				log.Printf("[ANALYTICS] Failed to analyze %s: %v", game.ID, err)
				return AnalyticsState{Game: &g, Error: UserMessage(err, "Failed to load analytics")}, true
			}
			return AnalyticsState{Game: &g, Result: &res}, true
		})
	}()
}

// Reset closes the modal and abandons any pending request.
func (f *AnalyticsFetcher) Reset() {
	f.next()
	f.state.UpdateIf(func(st AnalyticsState) (AnalyticsState, bool) {
		return AnalyticsState{}, st.Open()
	})
}

// Wait blocks until every issued request has returned.
func (f *AnalyticsFetcher) Wait() {
	f.wg.Wait()
}

func (f *AnalyticsFetcher) next() (context.Context, context.CancelFunc, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	return ctx, cancel, f.seq.Add(1)
}
