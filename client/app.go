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
	"time"
)

// Config configures an App.
type Config struct {
	APIURL  string
	Timeout time.Duration
	Prefs   PrefStore
	// Validator checks persisted and freshly issued tokens. Nil means
	// ExpiryValidator.
	Validator TokenValidator
	Location  *time.Location
	Clock     func() time.Time
	// Live enables the websocket odds feed.
	Live        bool
	PrefersDark func() bool
	Debug       bool
}

// App is the application context. It owns the long-lived collaborators and
// the single active sport view.
type App struct {
	API       *APIClient
	Session   *Session
	Guard     *Guard
	Notifier  *Notifier
	Settings  *SettingsStore
	Theme     *ThemeStore
	Analytics *AnalyticsFetcher
	// Live is nil unless Config.Live is set.
	Live *LiveFeed

	cfg Config

	mu     sync.Mutex
	active *Navigator
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApp wires the collaborators. Call Start before opening any view.
func NewApp(cfg Config) (*App, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("no API URL configured")
	}
	if cfg.Prefs == nil {
		cfg.Prefs = NewMemoryStore()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	a := &App{cfg: cfg}
	a.Notifier = NewNotifier(ToastTTL)
	a.API = NewAPIClient(APIOptions{
		BaseURL: cfg.APIURL,
		Timeout: cfg.Timeout,
		Prefs:   cfg.Prefs,
		Debug:   cfg.Debug,
	})
	a.Session = NewSession(a.API, cfg.Prefs, cfg.Validator, WithNotifier(a.Notifier), WithSessionDebug(cfg.Debug))
	a.API.OnUnauthorized(a.Session.ExpireToken)
	a.Guard = NewGuard(a.Session, a.Notifier)
	a.Settings = NewSettingsStore(a.API, a.Notifier)
	a.Theme = NewThemeStore(cfg.Prefs, cfg.PrefersDark)
	a.Analytics = NewAnalyticsFetcher(a.API)

	if cfg.Live {
		wsURL, err := WebSocketURL(cfg.APIURL)
		if err != nil {
			return nil, fmt.Errorf("live feed: %w", err)
		}
		a.Live = NewLiveFeed(wsURL, cfg.Prefs, cfg.Debug)
		a.Live.OnUnauthorized(a.Session.ExpireToken)
		a.Live.OnOddsUpdated(a.onOddsUpdated)
	}
	return a, nil
}

// Start restores the session and starts the live feed.
func (a *App) Start(ctx context.Context) {
	a.Session.InitializeAuth(ctx)
	if a.Live == nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Live.Run(ctx)
	}()
}

// Open checks route against the guard. Sport routes must be opened with
// OpenSport; settings are loaded on entry.
func (a *App) Open(ctx context.Context, r Route) error {
	if !a.Guard.CanActivate(r) {
		return ErrNotAuthenticated
	}
	if r == RouteSettings {
		return a.Settings.Load(ctx)
	}
	return nil
}

// OpenSport activates the view of sport, replacing the active one. A denied
// guard returns ErrNotAuthenticated and issues no load.
func (a *App) OpenSport(sport Sport, opts ...NavigatorOption) (*Navigator, error) {
	if !sport.Valid() {
		return nil, fmt.Errorf("unknown sport %q", sport)
	}
	if !a.Guard.CanActivate(SportRoute(sport)) {
		return nil, ErrNotAuthenticated
	}
	store := NewSportStore(sport, a.API, WithFetchTimeout(a.cfg.Timeout), WithStoreDebug(a.cfg.Debug))
	opts = append([]NavigatorOption{WithClock(a.cfg.Clock), WithLocation(a.cfg.Location)}, opts...)
	nav := NewNavigator(store, a.Session, opts...)

	a.mu.Lock()
	prev := a.active
	a.active = nav
	a.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}
	log.Printf("[APP] Opened %s", sport)
	nav.Start()
	return nav, nil
}

// Active returns the active sport view, or nil.
func (a *App) Active() *Navigator {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// CloseSport tears down the active sport view.
func (a *App) CloseSport() {
	a.mu.Lock()
	nav := a.active
	a.active = nil
	a.mu.Unlock()
	if nav != nil {
		nav.Stop()
	}
}

func (a *App) onOddsUpdated(sport Sport, date Date) {
	nav := a.Active()
	if nav == nil || nav.Sport() != sport || !nav.SelectedDate().Equal(date) {
		return
	}
	log.Printf("[APP] Odds changed for %s on %s, refreshing", sport, date)
	nav.Refresh()
}

// Close stops the live feed and the active view.
func (a *App) Close() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.wg.Wait()
	a.CloseSport()
}
