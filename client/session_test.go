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
	"reflect"
	"testing"
	"time"
)

func TestInitializeAuth(t *testing.T) {
	valid := makeToken(t, "alice", time.Now().Add(time.Hour))
	expired := makeToken(t, "alice", time.Now().Add(-time.Hour))

	tests := []struct {
		name      string
		persisted string
		want      SessionState
		wantToken string
	}{
		{"Valid token", valid, SessionState{IsAuthenticated: true, Token: valid}, valid},
		{"Expired token", expired, SessionState{ShouldShowLoginModal: true}, ""},
		{"Garbage token", "not-a-jwt", SessionState{ShouldShowLoginModal: true}, ""},
		{"No token", "", SessionState{ShouldShowLoginModal: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := NewMemoryStore()
			if tt.persisted != "" {
				prefs.Set(TokenKey, tt.persisted)
			}
			s := NewSession(&fakeAuth{}, prefs, nil)
			s.InitializeAuth(context.Background())

			if got := s.State(); got != tt.want {
				t.Errorf("State = %+v, want %+v", got, tt.want)
			}
			if got, _ := prefs.Get(TokenKey); got != tt.wantToken {
				t.Errorf("Persisted token = %q, want %q", got, tt.wantToken)
			}
		})
	}
}

func TestInitializeAuthRunsOnce(t *testing.T) {
	prefs := NewMemoryStore()
	s := NewSession(&fakeAuth{}, prefs, nil)
	s.InitializeAuth(context.Background())

	prefs.Set(TokenKey, makeToken(t, "late", time.Now().Add(time.Hour)))
	s.InitializeAuth(context.Background())
	if s.State().IsAuthenticated {
		t.Error("Second InitializeAuth changed the session")
	}
}

func TestLoginSuccess(t *testing.T) {
	tok := makeToken(t, "u", time.Now().Add(time.Hour))
	prefs := NewMemoryStore()
	s := NewSession(&fakeAuth{token: tok}, prefs, nil)
	s.InitializeAuth(context.Background())
	s.state.Update(func(st SessionState) SessionState {
		st.Error = "stale"
		return st
	})

	if err := s.Login(context.Background(), LoginRequest{Username: "u", Password: "p"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	want := SessionState{IsAuthenticated: true, Token: tok}
	if got := s.State(); got != want {
		t.Errorf("State = %+v, want %+v", got, want)
	}
	if got, _ := prefs.Get(TokenKey); got != tok {
		t.Errorf("Persisted token = %q", got)
	}
	if s.Username() != "u" {
		t.Errorf("Username = %q, want u", s.Username())
	}
}

func TestLoginFailure(t *testing.T) {
	prefs := NewMemoryStore()
	prefs.Set(TokenKey, "old")
	api := &fakeAuth{err: &AuthError{Status: 401, Message: "Invalid username or password"}}
	s := NewSession(api, prefs, nil)

	err := s.Login(context.Background(), LoginRequest{Username: "u", Password: "wrong"})
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("Login error = %v, want *AuthError", err)
	}
	want := SessionState{Error: "Invalid username or password", ShouldShowLoginModal: true}
	if got := s.State(); got != want {
		t.Errorf("State = %+v, want %+v", got, want)
	}
	if got, _ := prefs.Get(TokenKey); got != "" {
		t.Errorf("Persisted token = %q, want none", got)
	}
}

func TestLoginRejectsExpiredIssuedToken(t *testing.T) {
	api := &fakeAuth{token: makeToken(t, "u", time.Now().Add(-time.Minute))}
	s := NewSession(api, NewMemoryStore(), nil)

	if err := s.Login(context.Background(), LoginRequest{Username: "u", Password: "p"}); err == nil {
		t.Fatal("Login accepted an expired token")
	}
	if st := s.State(); st.IsAuthenticated || !st.ShouldShowLoginModal || st.Error == "" {
		t.Errorf("State = %+v, want failed login", st)
	}
}

func TestLoginValidation(t *testing.T) {
	api := &fakeAuth{token: "x"}
	s := NewSession(api, NewMemoryStore(), nil)

	for _, req := range []LoginRequest{{}, {Username: "u"}, {Password: "p"}, {Username: "  ", Password: "p"}} {
		err := s.Login(context.Background(), req)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("Login(%+v) = %v, want *ValidationError", req, err)
		}
	}
	if logins, _ := api.counts(); logins != 0 {
		t.Errorf("Backend called %d times, want 0", logins)
	}
	if s.State() != (SessionState{}) {
		t.Errorf("State changed by validation failure: %+v", s.State())
	}
}

func TestRegister(t *testing.T) {
	tok := makeToken(t, "newbie", time.Now().Add(time.Hour))
	good := RegisterRequest{
		Username:        "newbie",
		FirstName:       "New",
		LastName:        "Bie",
		Email:           "newbie@example.com",
		Password:        "longenough",
		ConfirmPassword: "longenough",
	}

	tests := []struct {
		name      string
		mutate    func(*RegisterRequest)
		wantField string
	}{
		{"Valid", func(*RegisterRequest) {}, ""},
		{"Missing username", func(r *RegisterRequest) { r.Username = "" }, "username"},
		{"Missing last name", func(r *RegisterRequest) { r.LastName = "" }, "last_name"},
		{"Bad email", func(r *RegisterRequest) { r.Email = "newbie" }, "email"},
		{"Short password", func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "seven77", "seven77" }, "password"},
		{"Eight characters", func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "eight888", "eight888" }, ""},
		{"Mismatch", func(r *RegisterRequest) { r.ConfirmPassword = "different" }, "confirm_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAuth{token: tok}
			s := NewSession(api, NewMemoryStore(), nil)
			req := good
			tt.mutate(&req)

			err := s.Register(context.Background(), req)
			_, calls := api.counts()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Register: %v", err)
				}
				if !s.State().IsAuthenticated || calls != 1 {
					t.Errorf("State = %+v after %d calls, want authenticated after 1", s.State(), calls)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.wantField {
				t.Fatalf("Register error = %v, want validation error on %s", err, tt.wantField)
			}
			if calls != 0 {
				t.Errorf("Backend called %d times, want 0", calls)
			}
		})
	}
}

func TestRegisterConflict(t *testing.T) {
	api := &fakeAuth{err: &AuthError{Status: 403, Message: "User already exists"}}
	s := NewSession(api, NewMemoryStore(), nil)
	req := RegisterRequest{Username: "taken", FirstName: "T", LastName: "K", Email: "t@example.com", Password: "password1", ConfirmPassword: "password1"}

	if err := s.Register(context.Background(), req); err == nil {
		t.Fatal("Register succeeded for a taken username")
	}
	want := SessionState{Error: "User already exists", ShouldShowLoginModal: true}
	if got := s.State(); got != want {
		t.Errorf("State = %+v, want %+v", got, want)
	}
}

func TestLogoutResetsEverything(t *testing.T) {
	s := loggedIn(t)
	s.ShowLoginModal()

	s.Logout()
	if got := s.State(); got != (SessionState{}) {
		t.Errorf("State = %+v, want defaults", got)
	}
	if tok, _ := s.prefs.Get(TokenKey); tok != "" {
		t.Errorf("Persisted token = %q after logout", tok)
	}
}

func TestModalAndErrorToggles(t *testing.T) {
	s := NewSession(&fakeAuth{}, NewMemoryStore(), nil)
	notified := 0
	s.Subscribe(func(SessionState) { notified++ })

	s.ShowLoginModal()
	s.ShowLoginModal()
	if !s.State().ShouldShowLoginModal {
		t.Error("ShowLoginModal did not raise the flag")
	}
	s.HideLoginModal()
	if s.State().ShouldShowLoginModal {
		t.Error("HideLoginModal did not lower the flag")
	}
	s.ClearError()
	if notified != 2 {
		t.Errorf("Notified %d times, want 2", notified)
	}
}

func TestExpireSession(t *testing.T) {
	n := NewNotifier(time.Minute)
	tok := makeToken(t, "u", time.Now().Add(time.Hour))
	s := NewSession(&fakeAuth{token: tok}, NewMemoryStore(), nil, WithNotifier(n))
	if err := s.Login(context.Background(), LoginRequest{Username: "u", Password: "p"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	s.ExpireToken(tok)

	want := SessionState{ShouldShowLoginModal: true}
	if got := s.State(); got != want {
		t.Errorf("State = %+v, want %+v", got, want)
	}
	toast := n.Current()
	if toast == nil || toast.Message != SessionExpiredMessage || toast.Type != ToastError {
		t.Errorf("Toast = %+v, want session-expired error", toast)
	}
}

func TestExpireSessionPublishesOneState(t *testing.T) {
	s := loggedIn(t)
	var seen []SessionState
	s.Subscribe(func(st SessionState) { seen = append(seen, st) })

	s.ExpireSession()
	want := []SessionState{{ShouldShowLoginModal: true}}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("Notified %+v, want %+v", seen, want)
	}
}

func TestExpireTokenIgnoresSupersededToken(t *testing.T) {
	s := loggedIn(t)
	before := s.State()

	s.ExpireToken("some-older-token")
	if s.State() != before {
		t.Errorf("State = %+v, want unchanged %+v", s.State(), before)
	}
}

func TestExpireWhileLoggedOutOnlyOpensModal(t *testing.T) {
	n := NewNotifier(time.Minute)
	s := NewSession(&fakeAuth{}, NewMemoryStore(), nil, WithNotifier(n))

	s.ExpireSession()
	if !s.State().ShouldShowLoginModal {
		t.Error("Login modal not shown")
	}
	if n.Current() != nil {
		t.Errorf("Unexpected toast %+v", n.Current())
	}
}
