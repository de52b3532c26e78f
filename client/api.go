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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LoginRequest carries the login form.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest carries the registration form. ConfirmPassword is checked
// locally and never sent.
type RegisterRequest struct {
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

// TokenResponse is returned by /login and /register.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User is the profile returned by /users/me.
type User struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// GamesAPI is what a sport store needs from the backend.
type GamesAPI interface {
	Games(ctx context.Context, sport Sport, date Date) ([]Game, error)
}

// AuthAPI is what the session needs from the backend.
type AuthAPI interface {
	Login(ctx context.Context, req LoginRequest) (TokenResponse, error)
	Register(ctx context.Context, req RegisterRequest) (TokenResponse, error)
}

// AnalyticsAPI fetches a prediction for one game.
type AnalyticsAPI interface {
	Analytics(ctx context.Context, sport Sport, gameID string) (Analytics, error)
}

// SettingsAPI reads and writes account settings.
type SettingsAPI interface {
	Settings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, req Settings) error
}

// APIOptions configures an APIClient.
type APIOptions struct {
	BaseURL string
	Timeout time.Duration
	// Prefs supplies the bearer token. It is read on every request.
	Prefs      PrefStore
	HTTPClient *http.Client
	Debug      bool
}

// APIClient talks to the odds backend. Requests that carry a bearer token
// and come back 401 trigger the unauthorized hook.
type APIClient struct {
	baseURL string
	http    *http.Client
	prefs   PrefStore
	debugf  func(string, ...any)

	mu             sync.RWMutex
	onUnauthorized func(token string)
}

// NewAPIClient returns a client for opts.BaseURL.
func NewAPIClient(opts APIOptions) *APIClient {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	debugf := func(string, ...any) {}
	if opts.Debug {
		debugf = func(f string, a ...any) {
			log.Printf("[DEBUG API] "+f, a...)
		}
	}
	return &APIClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		prefs:   opts.Prefs,
		debugf:  debugf,
	}
}

// BaseURL returns the backend prefix.
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// OnUnauthorized sets the hook run after an authenticated request got 401.
// The hook receives the token that was rejected.
func (c *APIClient) OnUnauthorized(fn func(token string)) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// Games returns the games of sport scheduled on date.
func (c *APIClient) Games(ctx context.Context, sport Sport, date Date) ([]Game, error) {
	q := url.Values{}
	if !date.IsZero() {
		q.Set("date", date.String())
	}
	var resp GamesResponse
	if err := c.do(ctx, http.MethodGet, "/"+sport.PathSegment()+"/games", q, nil, "", true, &resp); err != nil {
		return nil, err
	}
	if resp.List == nil {
		resp.List = []Game{}
	}
	return resp.List, nil
}

// Login exchanges credentials for a token. The form is URL-encoded.
func (c *APIClient) Login(ctx context.Context, req LoginRequest) (TokenResponse, error) {
	form := url.Values{}
	form.Set("username", req.Username)
	form.Set("password", req.Password)
	var resp TokenResponse
	err := c.do(ctx, http.MethodPost, "/login", nil, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", false, &resp)
	if err != nil {
		return TokenResponse{}, authError(err, "Login failed")
	}
	if resp.AccessToken == "" {
		return TokenResponse{}, &AuthError{Message: "Login failed: no token in response"}
	}
	return resp, nil
}

// Register creates an account and returns its first token.
func (c *APIClient) Register(ctx context.Context, req RegisterRequest) (TokenResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return TokenResponse{}, err
	}
	var resp TokenResponse
	if err := c.do(ctx, http.MethodPost, "/register", nil, bytes.NewReader(body), "application/json", false, &resp); err != nil {
		return TokenResponse{}, authError(err, "Registration failed")
	}
	if resp.AccessToken == "" {
		return TokenResponse{}, &AuthError{Message: "Registration failed: no token in response"}
	}
	return resp, nil
}

// Analytics returns the prediction for gameID.
func (c *APIClient) Analytics(ctx context.Context, sport Sport, gameID string) (Analytics, error) {
	q := url.Values{}
	q.Set("id", gameID)
	path := "/analytics/" + sport.PathSegment() + "/game"
	var resp Analytics
	if err := c.do(ctx, http.MethodGet, path, q, nil, "", true, &resp); err != nil {
		return Analytics{}, err
	}
	if resp.WinProbability < 0 || resp.WinProbability > 1 {
		return Analytics{}, &TransportError{Op: "GET " + path, Message: fmt.Sprintf("win probability %v out of range", resp.WinProbability)}
	}
	return resp, nil
}

// Settings returns the account settings.
func (c *APIClient) Settings(ctx context.Context) (Settings, error) {
	var resp Settings
	if err := c.do(ctx, http.MethodGet, "/settings", nil, nil, "", true, &resp); err != nil {
		return Settings{}, err
	}
	return resp, nil
}

// UpdateSettings stores req.
func (c *APIClient) UpdateSettings(ctx context.Context, req Settings) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/settings", nil, bytes.NewReader(body), "application/json", true, nil)
}

// Me returns the profile of the token's user.
func (c *APIClient) Me(ctx context.Context) (User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, "", true, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Token returns the bearer token currently persisted.
func (c *APIClient) Token() string {
	if c.prefs == nil {
		return ""
	}
	tok, err := c.prefs.Get(TokenKey)
	if err != nil {
		log.Printf("[API] Failed to read token: %v", err)
		return ""
	}
	return tok
}

func (c *APIClient) do(ctx context.Context, method, path string, q url.Values, body io.Reader, contentType string, authenticated bool, out any) error {
	op := method + " " + path
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	var sentToken string
	if authenticated {
		if tok := c.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
			sentToken = tok
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.debugf("%s -> %d (%v, request %s)", op, resp.StatusCode, time.Since(start), req.Header.Get("X-Request-ID"))

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode == http.StatusUnauthorized && sentToken != "" {
			log.Printf("[API] %s rejected the session token", op)
			c.mu.RLock()
			hook := c.onUnauthorized
			c.mu.RUnlock()
			if hook != nil {
				hook(sentToken)
			}
		}
		return &TransportError{Op: op, Status: resp.StatusCode, Message: errorDetail(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

// errorDetail extracts {"detail": "..."} bodies, falling back to the raw text.
func errorDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && len(body.Detail) > 0 {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil {
			return s
		}
		return string(body.Detail)
	}
	return strings.TrimSpace(string(data))
}

// authError converts a failed /login or /register call to an AuthError.
func authError(err error, fallback string) error {
	var te *TransportError
	if !errors.As(err, &te) || te.Status == 0 {
		return err
	}
	msg := te.Message
	if msg == "" {
		msg = fallback
	}
	return &AuthError{Status: te.Status, Message: msg}
}
