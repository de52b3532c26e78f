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
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"
)

var (
	d1 = Date{Year: 2026, Month: 10, Day: 19}
	d2 = Date{Year: 2026, Month: 10, Day: 20}

	gameA = Game{ID: "a", Sport: SportNBA, HomeTeam: "Lakers", AwayTeam: "Celtics", Date: "2026-10-19", Time: "2026-10-19 19:30", HomeOdds: "-120", AwayOdds: "+150"}
	gameB = Game{ID: "b", Sport: SportNBA, HomeTeam: "Knicks", AwayTeam: "Heat", Date: "2026-10-20", Time: "2026-10-20 20:00"}
)

func TestLoadGamesSuccess(t *testing.T) {
	api := newFakeGames()
	api.books[d1] = []Game{gameA}
	s := NewSportStore(SportNBA, api)

	s.LoadGames(d1)
	s.Wait()

	st := s.State()
	if st.IsLoading || st.Error != "" {
		t.Fatalf("State = %+v, want settled without error", st)
	}
	if !reflect.DeepEqual(st.Games, []Game{gameA}) {
		t.Errorf("Games = %+v, want [gameA]", st.Games)
	}
}

func TestLoadGamesIsSynchronouslyLoading(t *testing.T) {
	api := newFakeGames()
	gate := api.gate(d1)
	s := NewSportStore(SportNBA, api)
	s.state.Set(SportState{Games: []Game{}, Error: "old"})

	s.LoadGames(d1)
	st := s.State()
	if !st.IsLoading || st.Error != "" {
		t.Errorf("State right after LoadGames = %+v, want loading with no error", st)
	}
	gate <- gamesResult{games: []Game{gameA}}
	s.Wait()
	if s.State().IsLoading {
		t.Error("Still loading after resolution")
	}
}

func TestLoadGamesFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"Backend detail", &TransportError{Op: "GET /nba/games", Status: 500, Message: "database down"}, "database down"},
		{"No detail", &TransportError{Op: "GET /nba/games", Status: http.StatusBadGateway}, "An error occurred loading NBA games"},
		{"Network", &TransportError{Op: "GET /nba/games", Err: errors.New("connection refused")}, "An error occurred loading NBA games"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeGames()
			api.books[d1] = []Game{gameA}
			s := NewSportStore(SportNBA, api)
			s.LoadGames(d1)
			s.Wait()

			api.err = tt.err
			s.LoadGames(d1)
			s.Wait()

			st := s.State()
			if st.IsLoading {
				t.Error("IsLoading = true after failure")
			}
			if st.Error != tt.want {
				t.Errorf("Error = %q, want %q", st.Error, tt.want)
			}
			if st.Games == nil || len(st.Games) != 0 {
				t.Errorf("Games = %#v, want empty non-nil slice", st.Games)
			}
		})
	}
}

func TestLoadGamesIdempotent(t *testing.T) {
	api := newFakeGames()
	api.books[d1] = []Game{gameA, gameB}
	s := NewSportStore(SportNBA, api)

	s.LoadGames(d1)
	s.Wait()
	first := s.State().Games
	s.LoadGames(d1)
	s.Wait()

	if !reflect.DeepEqual(first, s.State().Games) {
		t.Errorf("Second load = %+v, want %+v", s.State().Games, first)
	}
}

func TestLoadGamesLastCallWins(t *testing.T) {
	api := newFakeGames()
	slow := api.gate(d1)
	fast := api.gate(d2)
	s := NewSportStore(SportNBA, api)

	s.LoadGames(d1)
	s.LoadGames(d2)

	// D2 lands first, then the stale D1 response arrives.
	fast <- gamesResult{games: []Game{gameB}}
	waitFor(t, "D2 result", func() bool { return !s.State().IsLoading })
	slow <- gamesResult{games: []Game{gameA}}
	s.Wait()

	st := s.State()
	if !reflect.DeepEqual(st.Games, []Game{gameB}) {
		t.Errorf("Games = %+v, want D2's games", st.Games)
	}
	if st.IsLoading || st.Error != "" {
		t.Errorf("State = %+v, want settled", st)
	}
}

func TestLoadGamesStaleFailureIgnored(t *testing.T) {
	api := newFakeGames()
	slow := api.gate(d1)
	fast := api.gate(d2)
	s := NewSportStore(SportNBA, api)

	s.LoadGames(d1)
	s.LoadGames(d2)
	slow <- gamesResult{err: errors.New("boom")}
	fast <- gamesResult{games: []Game{gameB}}
	s.Wait()

	if st := s.State(); st.Error != "" || len(st.Games) != 1 {
		t.Errorf("State = %+v, want D2's games without error", st)
	}
}

func TestSportStoresAreIsolated(t *testing.T) {
	api := newFakeGames()
	api.books[d1] = []Game{gameA}
	nba := NewSportStore(SportNBA, api)
	nhl := NewSportStore(SportNHL, api)

	nba.LoadGames(d1)
	nba.Wait()

	if nhl.State().GamesCount() != 0 {
		t.Errorf("NHL store has %d games, want 0", nhl.State().GamesCount())
	}
	if nba.Sport() != SportNBA || nhl.Sport() != SportNHL {
		t.Error("Stores report the wrong sport")
	}
}

func TestClearError(t *testing.T) {
	api := newFakeGames()
	api.err = errors.New("boom")
	s := NewSportStore(SportMLB, api)
	s.LoadGames(d1)
	s.Wait()

	var mu sync.Mutex
	notified := 0
	s.Subscribe(func(SportState) {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	s.ClearError()
	s.ClearError()
	if st := s.State(); st.Error != "" || st.IsLoading || st.Games == nil {
		t.Errorf("State = %+v, want cleared error only", st)
	}
	mu.Lock()
	defer mu.Unlock()
	if notified != 1 {
		t.Errorf("Notified %d times, want 1", notified)
	}
}

func TestSportStoreClose(t *testing.T) {
	api := newFakeGames()
	gate := api.gate(d1)
	s := NewSportStore(SportNFL, api)

	s.LoadGames(d1)
	s.Close()
	if s.State().IsLoading {
		t.Error("Still loading right after Close")
	}
	gate <- gamesResult{games: []Game{gameA}}
	s.Wait()

	if st := s.State(); st.GamesCount() != 0 || st.IsLoading {
		t.Errorf("State after Close = %+v, want no games and not loading", st)
	}
	s.LoadGames(d2)
	if n := len(api.Calls()); n != 1 {
		t.Errorf("Got %d calls, want 1 (LoadGames after Close must be ignored)", n)
	}
}

func TestSubscribersSeeStatesInOrder(t *testing.T) {
	api := newFakeGames()
	first := api.gate(d1)
	second := api.gate(d2)
	s := NewSportStore(SportNBA, api)

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var last SportState
	var once sync.Once
	s.Subscribe(func(st SportState) {
		if !st.IsLoading && st.GamesCount() == 1 {
			// Hold the delivery of D1's result while D2 starts.
			once.Do(func() {
				close(entered)
				<-release
			})
		}
		mu.Lock()
		last = st
		mu.Unlock()
	})

	s.LoadGames(d1)
	first <- gamesResult{games: []Game{gameA}}
	<-entered
	s.LoadGames(d2)
	if !s.State().IsLoading {
		t.Fatal("LoadGames(d2) did not mark the store loading")
	}
	close(release)

	waitFor(t, "loading notification for d2", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last.IsLoading
	})
	second <- gamesResult{games: []Game{gameB}}
	s.Wait()

	waitFor(t, "D2 result notification", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return !last.IsLoading && last.GamesCount() == 1
	})
	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(last, s.State()) || !reflect.DeepEqual(last.Games, []Game{gameB}) {
		t.Errorf("Last notified state %+v, State() %+v, want D2's games in both", last, s.State())
	}
}
