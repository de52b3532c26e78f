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

// Package devserver is a development backend for the odds client. It serves
// the same HTTP contract as the production odds API from a generated odds
// book, with real accounts and signed tokens.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/jbarkie/betbot/client"
)

// Options represent server options.
type Options struct {
	Addr     string
	DataDir  string
	Storage  *storage.Storage
	Listener net.Listener
	Debug    bool

	// TokenTTL is the lifetime of issued access tokens. Default 30 minutes.
	TokenTTL time.Duration
	// Clock is used for token times and "today". Default time.Now.
	Clock func() time.Time
	// Location decides what "today" is when a request has no date.
	// Default America/New_York.
	Location *time.Location
	// BcryptCost overrides bcrypt.DefaultCost; tests lower it.
	BcryptCost int
	// DriftInterval moves a line on today's slates this often. 0 disables.
	DriftInterval time.Duration
}

// Backend bundles the services behind the handler.
type Backend struct {
	Users  *UserStore
	Odds   *OddsBook
	Tokens *TokenIssuer
	Hub    *Hub

	opts   Options
	cancel context.CancelFunc
	done   chan struct{}
}

// Close stops the hub and the drift loop.
func (b *Backend) Close() {
	b.cancel()
	<-b.done
}

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
	backend    *Backend
}

// Backend returns the services of the running server.
func (s *Server) Backend() *Backend {
	return s.backend
}

// Shutdown gracefully shuts down the HTTP server and the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	s.backend.Close()
	return errors.Join(errs...)
}

// StartServer starts the web server and registers the API handlers.
func StartServer(opts Options) (*Server, error) {
	backend, handler, err := NewServerHandler(opts)
	if err != nil {
		return nil, err
	}
	httpServer := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if opts.Listener != nil {
			log.Printf("[DEVSERVER] Starting HTTP server on provided listener %s...", opts.Listener.Addr())
			err = httpServer.Serve(opts.Listener)
		} else {
			log.Printf("[DEVSERVER] Server starting on %s...", opts.Addr)
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			log.Printf("[DEVSERVER] Server error: %v", err)
		}
	}()

	return &Server{httpServer: httpServer, backend: backend}, nil
}

// NewServerHandler creates the services and the HTTP handler. The caller
// owns the returned Backend and must Close it.
func NewServerHandler(opts Options) (*Backend, http.Handler, error) {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.Storage == nil {
		if err := os.MkdirAll(opts.DataDir, 0700); err != nil {
			return nil, nil, err
		}
		opts.Storage = storage.New(opts.DataDir, nil)
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 30 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		loc, err := time.LoadLocation(client.BackendZone)
		if err != nil {
			return nil, nil, err
		}
		opts.Location = loc
	}

	debugf := func(string, ...any) {}
	if opts.Debug {
		debugf = func(f string, a ...any) {
			log.Printf("[DEBUG DEVSERVER] "+f, a...)
		}
	}

	tokens, err := NewTokenIssuer(opts.TokenTTL, opts.Clock)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Backend{
		Users:  NewUserStore(opts.DataDir, opts.Storage, opts.BcryptCost),
		Odds:   NewOddsBook(),
		Tokens: tokens,
		Hub:    NewHub(debugf),
		opts:   opts,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	b.Odds.OnUpdate(b.Hub.OddsUpdated)

	go func() {
		defer close(b.done)
		if opts.DriftInterval > 0 {
			go b.drift(ctx, opts.DriftInterval)
		}
		b.Hub.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/jwks.json", tokens.ServeJWKS)
	mux.HandleFunc("POST /login", b.handleLogin)
	mux.HandleFunc("POST /register", b.handleRegister)
	mux.HandleFunc("GET /users/me", requireUser(b.handleMe))
	mux.HandleFunc("GET /{sport}/games", requireUser(b.handleGames))
	mux.HandleFunc("GET /analytics/{sport}/game", requireUser(b.handleAnalytics))
	mux.HandleFunc("GET /settings", requireUser(b.handleGetSettings))
	mux.HandleFunc("POST /settings", requireUser(b.handleUpdateSettings))
	mux.HandleFunc("POST /admin/odds", requireUser(b.handleUpdateOdds))
	mux.HandleFunc("GET /ws", requireUser(b.Hub.ServeWS))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	handler := http.Handler(mux)
	handler = bearerAuthMiddleware(tokens, b.Users, opts.Debug, handler)
	handler = loggingMiddleware(handler)
	handler = securityMiddleware(handler)
	handler = cacheControlMiddleware(handler)

	return b, handler, nil
}

func (b *Backend) today() client.Date {
	return client.Today(b.opts.Clock(), b.opts.Location)
}

func (b *Backend) drift(ctx context.Context, every time.Duration) {
	r := rand.New(rand.NewPCG(uint64(b.opts.Clock().UnixNano()), 0))
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sport := client.Sports[r.IntN(len(client.Sports))]
			if g, ok := b.Odds.Drift(sport, b.today(), r); ok {
				log.Printf("[DEVSERVER] %s line moved: %s %s/%s", sport, g.Matchup(), g.AwayOdds, g.HomeOdds)
			}
		}
	}
}

func (b *Backend) issue(w http.ResponseWriter, username string) {
	tok, err := b.Tokens.Issue(username)
	if err != nil {
		log.Printf("[DEVSERVER] Failed to sign token: %v", err)
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, client.TokenResponse{AccessToken: tok, TokenType: "bearer"})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "Bad Request")
		return
	}
	u, err := b.Users.Authenticate(r.PostForm.Get("username"), r.PostForm.Get("password"))
	if errors.Is(err, ErrBadCredentials) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		log.Printf("[DEVSERVER] Login lookup failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	b.issue(w, u.Username)
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req client.RegisterRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Bad Request")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" || req.Email == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username, email and password are required")
		return
	}
	u, err := b.Users.Create(User{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}, req.Password)
	if errors.Is(err, ErrUserExists) {
		writeDetail(w, http.StatusForbidden, "User already exists")
		return
	}
	if err != nil {
		log.Printf("[DEVSERVER] Register failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	log.Printf("[DEVSERVER] Registered %s", u.Username)
	b.issue(w, u.Username)
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := b.Users.Get(getUserID(r))
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, u.Profile())
}

func sportParam(w http.ResponseWriter, r *http.Request) (client.Sport, bool) {
	s := client.Sport(strings.ToUpper(r.PathValue("sport")))
	if !s.Valid() {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return "", false
	}
	return s, true
}

func (b *Backend) handleGames(w http.ResponseWriter, r *http.Request) {
	sport, ok := sportParam(w, r)
	if !ok {
		return
	}
	date := b.today()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := client.ParseDate(v)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid date format. Please use YYYY-MM-DD format.")
			return
		}
		date = d
	}
	writeJSON(w, client.GamesResponse{List: b.Odds.Games(sport, date)})
}

func (b *Backend) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	sport, ok := sportParam(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeDetail(w, http.StatusBadRequest, "Missing game id")
		return
	}
	g, err := b.Odds.Game(sport, id)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Game not found")
		return
	}
	writeJSON(w, Predict(g))
}

// settingsResponse mirrors the odds API settings payload.
type settingsResponse struct {
	Success                   bool   `json:"success"`
	Message                   string `json:"message,omitempty"`
	Username                  string `json:"username"`
	Email                     string `json:"email"`
	EmailNotificationsEnabled bool   `json:"email_notifications_enabled"`
	// AccessToken is set when the username changed; the old token names
	// the old account.
	AccessToken string `json:"access_token,omitempty"`
}

func (b *Backend) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	u, err := b.Users.Get(getUserID(r))
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, settingsResponse{
		Success:                   true,
		Username:                  u.Username,
		Email:                     u.Email,
		EmailNotificationsEnabled: u.EmailNotificationsEnabled,
	})
}

func (b *Backend) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Bad Request")
		return
	}
	if req.Password != nil && *req.Password != "" && len(*req.Password) < client.MinPasswordLength {
		writeDetail(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}
	old := getUserID(r)
	u, err := b.Users.Update(old, req)
	if errors.Is(err, ErrUserExists) {
		writeDetail(w, http.StatusBadRequest, "Username already taken")
		return
	}
	if err != nil {
		log.Printf("[DEVSERVER] Settings update failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	resp := settingsResponse{
		Success:                   true,
		Message:                   "Settings updated successfully",
		Username:                  u.Username,
		Email:                     u.Email,
		EmailNotificationsEnabled: u.EmailNotificationsEnabled,
	}
	if u.Username != old {
		if resp.AccessToken, err = b.Tokens.Issue(u.Username); err != nil {
			log.Printf("[DEVSERVER] Failed to sign token: %v", err)
		}
	}
	writeJSON(w, resp)
}

// OddsUpdate is the body of POST /admin/odds.
type OddsUpdate struct {
	Sport    client.Sport `json:"sport"`
	ID       string       `json:"id"`
	HomeOdds string       `json:"homeOdds"`
	AwayOdds string       `json:"awayOdds"`
}

func (b *Backend) handleUpdateOdds(w http.ResponseWriter, r *http.Request) {
	var req OddsUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Bad Request")
		return
	}
	sport, err := client.ParseSport(string(req.Sport))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	err = b.Odds.UpdateOdds(sport, req.ID, req.HomeOdds, req.AwayOdds)
	if errors.Is(err, ErrGameNotFound) {
		writeDetail(w, http.StatusNotFound, "Game not found")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	g, _ := b.Odds.Game(sport, req.ID)
	writeJSON(w, g)
}

// cacheControlMiddleware marks every API response private.
func cacheControlMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "private, no-cache, no-transform")
		next.ServeHTTP(w, r)
	})
}

// securityMiddleware adds HTTP security headers to responses.
func securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs the method and URL path of every incoming HTTP request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			log.Printf("[DEVSERVER] %s %s (request %s)", r.Method, r.URL.Path, id)
		} else {
			log.Printf("[DEVSERVER] %s %s", r.Method, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}
