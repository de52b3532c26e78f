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
)

// SessionState is the authentication state shared by every view.
type SessionState struct {
	IsAuthenticated      bool
	Token                string
	Error                string
	ShouldShowLoginModal bool
}

// HasError reports whether the last login or registration failed.
func (s SessionState) HasError() bool {
	return s.Error != ""
}

// Authorized reports whether s may see guarded data.
func (s SessionState) Authorized() bool {
	return s.IsAuthenticated && s.Token != ""
}

// SessionSource is the read side of a Session.
type SessionSource interface {
	State() SessionState
	Subscribe(fn func(SessionState)) func()
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithNotifier routes session notices to n.
func WithNotifier(n *Notifier) SessionOption {
	return func(s *Session) { s.notifier = n }
}

// WithSessionDebug enables debug logging.
func WithSessionDebug(debug bool) SessionOption {
	return func(s *Session) {
		if debug {
			s.debugf = func(f string, a ...any) {
				log.Printf("[DEBUG SESSION] "+f, a...)
			}
		}
	}
}

// Session is the single authority on authentication. It is the only writer
// of the persisted token.
type Session struct {
	api       AuthAPI
	prefs     PrefStore
	validator TokenValidator
	notifier  *Notifier
	debugf    func(string, ...any)

	state    *Observable[SessionState]
	initOnce sync.Once
	// mu serializes token writes with the state transitions that follow them.
	mu sync.Mutex
}

// NewSession returns an unauthenticated Session. Call InitializeAuth before
// any guarded view is opened.
func NewSession(api AuthAPI, prefs PrefStore, validator TokenValidator, opts ...SessionOption) *Session {
	if validator == nil {
		validator = ExpiryValidator{}
	}
	s := &Session{
		api:       api,
		prefs:     prefs,
		validator: validator,
		debugf:    func(string, ...any) {},
		state:     NewObservable(SessionState{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a snapshot of the session.
func (s *Session) State() SessionState {
	return s.state.Get()
}

// Subscribe registers fn for every session change.
func (s *Session) Subscribe(fn func(SessionState)) func() {
	return s.state.Subscribe(fn)
}

// InitializeAuth restores a persisted token. Only the first call has an effect.
func (s *Session) InitializeAuth(ctx context.Context) {
	s.initOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		tok, err := s.prefs.Get(TokenKey)
		if err != nil {
			log.Printf("[SESSION] Failed to read persisted token: %v", err)
		}
		if tok != "" {
			verr := s.validator.Validate(ctx, tok)
			if verr == nil {
				log.Printf("[SESSION] Restored session for %q", TokenSubject(tok))
				s.state.Set(SessionState{IsAuthenticated: true, Token: tok})
				return
			}
			log.Printf("[SESSION] Discarding persisted token: %v", verr)
		}
		s.removeToken()
		s.state.Set(SessionState{ShouldShowLoginModal: true})
	})
}

// Login exchanges credentials for a token. Validation failures return a
// *ValidationError without touching the state or the network.
func (s *Session) Login(ctx context.Context, req LoginRequest) error {
	if err := ValidateLogin(req); err != nil {
		return err
	}
	resp, err := s.api.Login(ctx, req)
	return s.finishAuth(ctx, "Login", resp, err)
}

// Register creates an account and signs it in. Validation failures return a
// *ValidationError without touching the state or the network.
func (s *Session) Register(ctx context.Context, req RegisterRequest) error {
	if err := ValidateRegistration(req); err != nil {
		return err
	}
	resp, err := s.api.Register(ctx, req)
	return s.finishAuth(ctx, "Registration", resp, err)
}

func (s *Session) finishAuth(ctx context.Context, op string, resp TokenResponse, err error) error {
	if err == nil {
		err = s.validator.Validate(ctx, resp.AccessToken)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		err = s.prefs.Set(TokenKey, resp.AccessToken)
	}
	if err != nil {
		msg := UserMessage(err, op+" failed")
		log.Printf("[SESSION] %s failed: %v", op, err)
		s.removeToken()
		s.state.Set(SessionState{Error: msg, ShouldShowLoginModal: true})
		return err
	}
	log.Printf("[SESSION] %s succeeded for %q", op, TokenSubject(resp.AccessToken))
	s.state.Set(SessionState{IsAuthenticated: true, Token: resp.AccessToken})
	return nil
}

// Logout discards the token and resets the state to its defaults.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutLocked()
}

func (s *Session) logoutLocked() {
	s.removeToken()
	s.state.Set(SessionState{})
	s.debugf("logged out")
}

// ExpireSession runs the session-expiry flow: logout, reopen the login
// modal and raise the session-expired notice.
func (s *Session) ExpireSession() {
	s.expire("")
}

// ExpireToken runs the session-expiry flow if token is still the current
// session's token. Rejections of an older token are ignored.
func (s *Session) ExpireToken(token string) {
	s.expire(token)
}

func (s *Session) expire(token string) {
	s.mu.Lock()
	cur := s.state.Get()
	if token != "" && cur.Token != "" && cur.Token != token {
		s.mu.Unlock()
		s.debugf("ignoring 401 for a superseded token")
		return
	}
	wasAuthenticated := cur.IsAuthenticated
	s.removeToken()
	s.state.Set(SessionState{ShouldShowLoginModal: true})
	s.mu.Unlock()

	if wasAuthenticated {
		log.Printf("[SESSION] Session expired")
		if s.notifier != nil {
			s.notifier.Error(SessionExpiredMessage)
		}
	}
}

// ShowLoginModal raises the login modal flag.
func (s *Session) ShowLoginModal() {
	s.setModal(true)
}

// HideLoginModal lowers the login modal flag.
func (s *Session) HideLoginModal() {
	s.setModal(false)
}

func (s *Session) setModal(show bool) {
	s.state.UpdateIf(func(st SessionState) (SessionState, bool) {
		if st.ShouldShowLoginModal == show {
			return st, false
		}
		st.ShouldShowLoginModal = show
		return st, true
	})
}

// ClearError drops the last login or registration error.
func (s *Session) ClearError() {
	s.state.UpdateIf(func(st SessionState) (SessionState, bool) {
		if st.Error == "" {
			return st, false
		}
		st.Error = ""
		return st, true
	})
}

// Username returns the subject of the current token.
func (s *Session) Username() string {
	return TokenSubject(s.state.Get().Token)
}

func (s *Session) removeToken() {
	if err := s.prefs.Delete(TokenKey); err != nil {
		log.Printf("[SESSION] Failed to remove persisted token: %v", err)
	}
}
