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
	"sync"
	"time"
)

// Phase is the lifecycle position of a sport view.
type Phase int

const (
	PhaseGated Phase = iota
	PhaseIdle
	PhaseLoading
	PhaseLoaded
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseGated:
		return "gated"
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseErrored:
		return "errored"
	}
	return "unknown"
}

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithClock sets the source of "now".
func WithClock(clock func() time.Time) NavigatorOption {
	return func(n *Navigator) { n.clock = clock }
}

// WithLocation sets the viewer's location.
func WithLocation(loc *time.Location) NavigatorOption {
	return func(n *Navigator) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// WithStartDate selects d instead of today.
func WithStartDate(d Date) NavigatorOption {
	return func(n *Navigator) { n.start = d }
}

// Navigator owns the selected date of one sport view and drives its store.
// Loads are only issued while the session is authorized.
type Navigator struct {
	store   *SportStore
	session SessionSource
	clock   func() time.Time
	loc     *time.Location
	start   Date

	selected *Observable[Date]

	mu        sync.Mutex
	started   bool
	requested bool
	lastToken string
	unsub     func()
}

// NewNavigator returns a navigator on today's date. Call Start to activate it.
func NewNavigator(store *SportStore, session SessionSource, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		store:   store,
		session: session,
		clock:   time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.start.IsZero() {
		n.start = n.today()
	}
	n.selected = NewObservable(n.start)
	return n
}

func (n *Navigator) today() Date {
	return Today(n.clock(), n.loc)
}

// Sport returns the sport of the underlying store.
func (n *Navigator) Sport() Sport {
	return n.store.Sport()
}

// Store returns the underlying store.
func (n *Navigator) Store() *SportStore {
	return n.store
}

// Location returns the viewer's location.
func (n *Navigator) Location() *time.Location {
	return n.loc
}

// SelectedDate returns the date on display.
func (n *Navigator) SelectedDate() Date {
	return n.selected.Get()
}

// IsCurrentDate reports whether the selected date is today in the viewer's location.
func (n *Navigator) IsCurrentDate() bool {
	return n.SelectedDate().Equal(n.today())
}

// CanGoBack reports whether "previous day" is enabled. Navigation before
// today is disabled; future dates stay reachable.
func (n *Navigator) CanGoBack() bool {
	return !n.IsCurrentDate()
}

// PreviousDay moves one calendar day back and reloads.
func (n *Navigator) PreviousDay() {
	n.shift(-1)
}

// NextDay moves one calendar day forward and reloads.
func (n *Navigator) NextDay() {
	n.shift(1)
}

func (n *Navigator) shift(days int) {
	n.selected.Update(func(d Date) Date { return d.AddDays(days) })
	n.load()
}

// Today jumps back to today and reloads.
func (n *Navigator) Today() {
	n.selected.Set(n.today())
	n.load()
}

// Refresh reloads the selected date.
func (n *Navigator) Refresh() {
	n.load()
}

func (n *Navigator) load() {
	st := n.session.State()
	if !st.Authorized() {
		return
	}
	n.mu.Lock()
	n.requested = true
	n.lastToken = st.Token
	n.mu.Unlock()
	n.store.LoadGames(n.SelectedDate())
}

// Start activates the view: it follows the session and loads the selected
// date when authorized.
func (n *Navigator) Start() {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return
	}
	n.started = true
	n.unsub = n.session.Subscribe(n.onSession)
	n.mu.Unlock()
	n.load()
}

func (n *Navigator) onSession(st SessionState) {
	n.mu.Lock()
	changed := st.Token != n.lastToken
	if !st.Authorized() {
		n.lastToken = ""
	}
	n.mu.Unlock()
	if st.Authorized() && changed {
		n.load()
	}
}

// Stop deactivates the view and closes the store.
func (n *Navigator) Stop() {
	n.mu.Lock()
	unsub := n.unsub
	n.unsub = nil
	n.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	n.selected.Reset()
	n.store.Close()
}

// Phase returns the view's position in its lifecycle.
func (n *Navigator) Phase() Phase {
	if !n.session.State().Authorized() {
		return PhaseGated
	}
	st := n.store.State()
	switch {
	case st.IsLoading:
		return PhaseLoading
	case st.Error != "":
		return PhaseErrored
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.requested {
		return PhaseIdle
	}
	return PhaseLoaded
}

// Subscribe calls fn after any change that can alter the view.
func (n *Navigator) Subscribe(fn func()) func() {
	u1 := n.selected.Subscribe(func(Date) { fn() })
	u2 := n.store.Subscribe(func(SportState) { fn() })
	u3 := n.session.Subscribe(func(SessionState) { fn() })
	return func() {
		u1()
		u2()
		u3()
	}
}
