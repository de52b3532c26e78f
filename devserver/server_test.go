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

package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/gorilla/websocket"
	"github.com/jbarkie/betbot/client"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Monday, October 19 2026, 3 PM in New York.
var testNow = time.Date(2026, time.October, 19, 19, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Backend, *httptest.Server, *testClock) {
	t.Helper()
	dataDir, err := os.MkdirTemp("", "devserver_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	clock := &testClock{now: testNow}
	b, handler, err := NewServerHandler(Options{
		DataDir:    dataDir,
		Storage:    storage.New(dataDir, nil),
		Clock:      clock.Now,
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("NewServerHandler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		b.Close()
		os.RemoveAll(dataDir)
	})
	return b, srv, clock
}

func newAPI(srv *httptest.Server) (*client.APIClient, *client.MemoryStore) {
	prefs := client.NewMemoryStore()
	return client.NewAPIClient(client.APIOptions{BaseURL: srv.URL, Prefs: prefs}), prefs
}

var alice = client.RegisterRequest{
	Username:  "alice",
	FirstName: "Alice",
	LastName:  "Doe",
	Email:     "alice@example.com",
	Password:  "correcthorse",
}

func register(t *testing.T, api *client.APIClient, prefs *client.MemoryStore) {
	t.Helper()
	resp, err := api.Register(context.Background(), alice)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.TokenType != "bearer" {
		t.Errorf("TokenType = %q", resp.TokenType)
	}
	prefs.Set(client.TokenKey, resp.AccessToken)
}

func TestRegisterLoginMe(t *testing.T) {
	_, srv, _ := newTestServer(t)
	api, prefs := newAPI(srv)
	ctx := context.Background()

	register(t, api, prefs)

	_, err := api.Register(ctx, alice)
	var ae *client.AuthError
	if !errors.As(err, &ae) || ae.Status != http.StatusForbidden || ae.Message != "User already exists" {
		t.Errorf("Duplicate Register = %v", err)
	}

	_, err = api.Login(ctx, client.LoginRequest{Username: "alice", Password: "wrongpassword"})
	if !errors.As(err, &ae) || ae.Status != http.StatusUnauthorized || ae.Message != "Invalid username or password" {
		t.Errorf("Login(bad) = %v", err)
	}
	_, err = api.Login(ctx, client.LoginRequest{Username: "nobody", Password: "whatever1"})
	if !errors.As(err, &ae) || ae.Status != http.StatusUnauthorized {
		t.Errorf("Login(unknown) = %v", err)
	}

	tok, err := api.Login(ctx, client.LoginRequest{Username: "Alice", Password: "correcthorse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	prefs.Set(client.TokenKey, tok.AccessToken)
	if sub := client.TokenSubject(tok.AccessToken); sub != "alice" {
		t.Errorf("Token subject = %q", sub)
	}

	me, err := api.Me(ctx)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Username != "alice" || me.Email != "alice@example.com" || me.FirstName != "Alice" {
		t.Errorf("Me = %+v", me)
	}
}

func TestGamesRequireToken(t *testing.T) {
	_, srv, clock := newTestServer(t)
	api, prefs := newAPI(srv)
	ctx := context.Background()

	_, err := api.Games(ctx, client.SportNBA, client.Date{})
	if !client.IsUnauthorized(err) {
		t.Errorf("Games without token = %v, want 401", err)
	}

	register(t, api, prefs)
	var rejected []string
	api.OnUnauthorized(func(tok string) { rejected = append(rejected, tok) })

	if _, err := api.Games(ctx, client.SportNBA, client.Date{}); err != nil {
		t.Fatalf("Games: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := api.Games(ctx, client.SportNBA, client.Date{}); !client.IsUnauthorized(err) {
		t.Errorf("Games with expired token = %v, want 401", err)
	}
	if len(rejected) != 1 {
		t.Errorf("Unauthorized hook ran %d times, want 1", len(rejected))
	}
}

func TestGames(t *testing.T) {
	_, srv, _ := newTestServer(t)
	api, prefs := newAPI(srv)
	register(t, api, prefs)
	ctx := context.Background()

	d := client.Date{Year: 2026, Month: time.October, Day: 19}
	today, err := api.Games(ctx, client.SportMLB, client.Date{})
	if err != nil {
		t.Fatalf("Games(today): %v", err)
	}
	explicit, err := api.Games(ctx, client.SportMLB, d)
	if err != nil {
		t.Fatalf("Games(%s): %v", d, err)
	}
	if len(today) != len(explicit) {
		t.Fatalf("Missing date returned %d games, explicit date %d", len(today), len(explicit))
	}
	for i := range today {
		if today[i] != explicit[i] {
			t.Errorf("Game %d differs: %+v vs %+v", i, today[i], explicit[i])
		}
		if today[i].Sport != client.SportMLB || !strings.HasPrefix(today[i].Time, "2026-10-19 ") {
			t.Errorf("Game %d = %+v", i, today[i])
		}
	}

	// Monday has exactly one football game; Tuesday has none.
	if g, _ := api.Games(ctx, client.SportNFL, d); len(g) != 1 {
		t.Errorf("NFL Monday games = %d, want 1", len(g))
	}
	if g, err := api.Games(ctx, client.SportNFL, d.AddDays(1)); err != nil || len(g) != 0 {
		t.Errorf("NFL Tuesday games = %v, %v", g, err)
	}
}

func TestGamesBadRequests(t *testing.T) {
	b, srv, _ := newTestServer(t)
	tok, _ := b.Tokens.Issue("ghost")
	u, _ := b.Users.Create(User{Username: "bob", Email: "bob@example.com"}, "password1")
	bobTok, _ := b.Tokens.Issue(u.Username)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
		detail string
	}{
		{"Bad Date", "/nba/games?date=10/19/2026", bobTok, http.StatusBadRequest, "Invalid date format. Please use YYYY-MM-DD format."},
		{"Unknown Sport", "/mls/games", bobTok, http.StatusNotFound, "Not Found"},
		{"Unknown User", "/nba/games", tok, http.StatusUnauthorized, "Could not validate credentials"},
		{"Garbage Token", "/nba/games", "abc.def.ghi", http.StatusUnauthorized, "Could not validate credentials"},
		{"Missing Analytics ID", "/analytics/nba/game", bobTok, http.StatusBadRequest, "Missing game id"},
		{"Unknown Game", "/analytics/nba/game?id=nope", bobTok, http.StatusNotFound, "Game not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, srv.URL+tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("Do: %v", err)
			}
			defer resp.Body.Close()
			var body struct {
				Detail string `json:"detail"`
			}
			json.NewDecoder(resp.Body).Decode(&body)
			if resp.StatusCode != tt.status || body.Detail != tt.detail {
				t.Errorf("%s = %d %q, want %d %q", tt.path, resp.StatusCode, body.Detail, tt.status, tt.detail)
			}
			if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
				t.Error("Security headers missing")
			}
		})
	}
}

func TestAnalytics(t *testing.T) {
	_, srv, _ := newTestServer(t)
	api, prefs := newAPI(srv)
	register(t, api, prefs)
	ctx := context.Background()

	games, err := api.Games(ctx, client.SportNFL, client.Date{Year: 2026, Month: time.October, Day: 18})
	if err != nil || len(games) == 0 {
		t.Fatalf("Games = %v, %v", games, err)
	}
	for _, g := range games {
		a, err := api.Analytics(ctx, client.SportNFL, g.ID)
		if err != nil {
			t.Fatalf("Analytics(%s): %v", g.ID, err)
		}
		if a.ID != g.ID || (a.PredictedWinner != g.HomeTeam && a.PredictedWinner != g.AwayTeam) {
			t.Errorf("Analytics = %+v for %+v", a, g)
		}
		if fav := g.Favorite(); fav != "" && a.PredictedWinner != fav {
			t.Errorf("Predicted %q, favorite is %q", a.PredictedWinner, fav)
		}
	}
	if _, err := api.Analytics(ctx, client.SportNBA, games[0].ID); err == nil {
		t.Error("Analytics found a football game under basketball")
	}
}

func TestSettings(t *testing.T) {
	b, srv, _ := newTestServer(t)
	api, prefs := newAPI(srv)
	register(t, api, prefs)
	ctx := context.Background()

	s, err := api.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s.Username != "alice" || s.Email != "alice@example.com" || s.EmailNotificationsEnabled {
		t.Errorf("Settings = %+v", s)
	}

	if err := api.UpdateSettings(ctx, client.Settings{Email: "a@example.org", Password: "newpassword", EmailNotificationsEnabled: true}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if _, err := b.Users.Authenticate("alice", "newpassword"); err != nil {
		t.Errorf("New password rejected: %v", err)
	}
	s, _ = api.Settings(ctx)
	if s.Email != "a@example.org" || !s.EmailNotificationsEnabled {
		t.Errorf("Settings after update = %+v", s)
	}

	b.Users.Create(User{Username: "bob"}, "password1")
	err = api.UpdateSettings(ctx, client.Settings{Username: "bob"})
	var te *client.TransportError
	if !errors.As(err, &te) || te.Status != http.StatusBadRequest || te.Message != "Username already taken" {
		t.Errorf("UpdateSettings(taken) = %v", err)
	}
	err = api.UpdateSettings(ctx, client.Settings{Password: "short"})
	if !errors.As(err, &te) || te.Status != http.StatusBadRequest {
		t.Errorf("UpdateSettings(short password) = %v", err)
	}
}

func TestJWKSVerifiesIssuedTokens(t *testing.T) {
	b, srv, clock := newTestServer(t)
	// The client validator checks expiry against the wall clock.
	clock.Advance(time.Since(testNow))
	tok, err := b.Tokens.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	v := client.NewJWKSValidator(srv.URL + "/.well-known/jwks.json")
	if err := v.Validate(context.Background(), tok); err != nil {
		t.Errorf("Validate: %v", err)
	}

	other, _ := NewTokenIssuer(time.Hour, nil)
	foreign, _ := other.Issue("alice")
	if err := v.Validate(context.Background(), foreign); err == nil {
		t.Error("Validate accepted a token from another issuer")
	}
	if _, err := b.Tokens.Verify(foreign); err == nil {
		t.Error("Verify accepted a token from another issuer")
	}
}

func wsURL(srv *httptest.Server) string {
	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	return u.String()
}

func TestWebSocketRequiresToken(t *testing.T) {
	_, srv, _ := newTestServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err == nil {
		t.Fatal("Dial succeeded without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Handshake response = %v, want 401", resp)
	}
}

func TestOddsUpdateBroadcast(t *testing.T) {
	b, srv, _ := newTestServer(t)
	api, prefs := newAPI(srv)
	register(t, api, prefs)
	tok, _ := prefs.Get(client.TokenKey)

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+tok)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), hdr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for b.Hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	d := client.Date{Year: 2026, Month: time.October, Day: 18}
	games := b.Odds.Games(client.SportNFL, d)
	body, _ := json.Marshal(OddsUpdate{Sport: "nfl", ID: games[0].ID, HomeOdds: "-200", AwayOdds: "+170"})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/admin/odds", strings.NewReader(string(body)))
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /admin/odds: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /admin/odds = %d", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg client.LiveMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if msg.Type != client.MsgTypeOddsUpdated || msg.Sport != client.SportNFL || msg.Date != "2026-10-18" {
		t.Errorf("Message = %+v", msg)
	}
	if g, _ := b.Odds.Game(client.SportNFL, games[0].ID); g.HomeOdds != "-200" || g.AwayOdds != "+170" {
		t.Errorf("Game after update = %+v", g)
	}
}

func TestLiveFeedAgainstServer(t *testing.T) {
	b, srv, _ := newTestServer(t)
	api, prefs := newAPI(srv)
	register(t, api, prefs)

	feed := client.NewLiveFeed(wsURL(srv), prefs, false)
	got := make(chan client.Date, 1)
	feed.OnOddsUpdated(func(s client.Sport, d client.Date) {
		if s == client.SportNFL {
			got <- d
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for b.Hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Feed never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	d := client.Date{Year: 2026, Month: time.October, Day: 18}
	g := b.Odds.Games(client.SportNFL, d)[0]
	if err := b.Odds.UpdateOdds(client.SportNFL, g.ID, "", ""); err != nil {
		t.Fatalf("UpdateOdds: %v", err)
	}
	select {
	case gd := <-got:
		if gd != d {
			t.Errorf("Update for %s, want %s", gd, d)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("No update delivered")
	}
}
