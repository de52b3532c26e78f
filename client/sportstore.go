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
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// SportState is the state of one sport's game list.
type SportState struct {
	Games     []Game
	IsLoading bool
	Error     string
}

// GamesCount returns the number of games held.
func (s SportState) GamesCount() int {
	return len(s.Games)
}

// SportStoreOption configures a SportStore.
type SportStoreOption func(*SportStore)

// WithFetchTimeout bounds every fetch. Zero leaves the transport's timeout.
func WithFetchTimeout(d time.Duration) SportStoreOption {
	return func(s *SportStore) { s.timeout = d }
}

// WithStoreDebug enables debug logging.
func WithStoreDebug(debug bool) SportStoreOption {
	return func(s *SportStore) {
		if debug {
			tag := fmt.Sprintf("[DEBUG STORE %s] ", s.sport)
			s.debugf = func(f string, a ...any) {
				log.Printf(tag+f, a...)
			}
		}
	}
}

// SportStore holds the games of one sport. Overlapping loads resolve in
// call order: only the most recently issued LoadGames may write its result.
type SportStore struct {
	sport   Sport
	api     GamesAPI
	timeout time.Duration
	debugf  func(string, ...any)

	state *Observable[SportState]
	seq   atomic.Uint64
	wg    sync.WaitGroup

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// NewSportStore returns an empty store for sport.
func NewSportStore(sport Sport, api GamesAPI, opts ...SportStoreOption) *SportStore {
	s := &SportStore{
		sport:  sport,
		api:    api,
		debugf: func(string, ...any) {},
		state:  NewObservable(SportState{Games: []Game{}}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sport returns the store's sport.
func (s *SportStore) Sport() Sport {
	return s.sport
}

// State returns a snapshot of the store.
func (s *SportStore) State() SportState {
	return s.state.Get()
}

// Subscribe registers fn for every state change.
func (s *SportStore) Subscribe(fn func(SportState)) func() {
	return s.state.Subscribe(fn)
}

// LoadGames marks the store loading and fetches the games of date in the
// background. Failures end up in State().Error.
func (s *SportStore) LoadGames(date Date) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	seq := s.seq.Add(1)
	if s.cancel != nil {
		s.cancel()
	}
	var ctx context.Context
	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), s.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	s.debugf("load #%d for %s", seq, date)
	s.state.Update(func(st SportState) SportState {
		st.IsLoading = true
		st.Error = ""
		return st
	})

	go func() {
		defer s.wg.Done()
		defer cancel()
		games, err := s.api.Games(ctx, s.sport, date)
		s.finish(seq, date, games, err)
	}()
}

func (s *SportStore) finish(seq uint64, date Date, games []Game, err error) {
	applied := s.state.UpdateIf(func(st SportState) (SportState, bool) {
		if s.seq.Load() != seq {
			return st, false
		}
		if err != nil {
			return SportState{
				Games: []Game{},
				Error: UserMessage(err, fmt.Sprintf("An error occurred loading %s games", s.sport)),
			}, true
		}
		if games == nil {
			games = []Game{}
		}
		return SportState{Games: games}, true
	})
	switch {
	case !applied:
		s.debugf("discarding stale load #%d for %s", seq, date)
	case err != nil && !errors.Is(err, context.Canceled):
		log.Printf("[STORE %s] Failed to load games for %s: %v", s.sport, date, err)
	default:
		s.debugf("load #%d for %s: %d games", seq, date, len(games))
	}
}

// ClearError drops the error without touching the games.
func (s *SportStore) ClearError() {
	s.state.UpdateIf(func(st SportState) (SportState, bool) {
		if st.Error == "" {
			return st, false
		}
		st.Error = ""
		return st, true
	})
}

// Wait blocks until every issued fetch has returned.
func (s *SportStore) Wait() {
	s.wg.Wait()
}

// Close cancels the in-flight fetch, ends the loading state and drops all
// subscribers. Later LoadGames calls are ignored.
func (s *SportStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.seq.Add(1)
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.state.Reset()
	// The cancelled fetch will be discarded as stale.
	s.state.UpdateIf(func(st SportState) (SportState, bool) {
		if !st.IsLoading {
			return st, false
		}
		st.IsLoading = false
		return st, true
	})
}
