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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pmezard/go-difflib/difflib"
)

var testSecret = []byte("test-secret")

// makeToken returns an HS256 token for sub expiring at exp.
func makeToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"iat": time.Now().Add(-time.Minute).Unix(),
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

type gamesResult struct {
	games []Game
	err   error
}

// fakeGames answers Games calls. Calls for a date in gates block until a
// result is sent on the gate, ignoring cancellation, so stale responses
// really arrive late.
type fakeGames struct {
	mu    sync.Mutex
	calls []Date
	books map[Date][]Game
	err   error
	gates map[Date]chan gamesResult
}

func newFakeGames() *fakeGames {
	return &fakeGames{
		books: make(map[Date][]Game),
		gates: make(map[Date]chan gamesResult),
	}
}

func (f *fakeGames) gate(d Date) chan gamesResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan gamesResult, 1)
	f.gates[d] = ch
	return ch
}

func (f *fakeGames) Games(_ context.Context, sport Sport, date Date) ([]Game, error) {
	f.mu.Lock()
	f.calls = append(f.calls, date)
	gate := f.gates[date]
	games, err := f.books[date], f.err
	f.mu.Unlock()

	if gate != nil {
		r := <-gate
		return r.games, r.err
	}
	if err != nil {
		return nil, err
	}
	out := make([]Game, len(games))
	copy(out, games)
	return out, nil
}

func (f *fakeGames) Calls() []Date {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Date(nil), f.calls...)
}

// fakeAuth answers Login and Register.
type fakeAuth struct {
	mu       sync.Mutex
	token    string
	err      error
	logins   int
	register int
}

func (f *fakeAuth) Login(context.Context, LoginRequest) (TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.err != nil {
		return TokenResponse{}, f.err
	}
	return TokenResponse{AccessToken: f.token, TokenType: "bearer"}, nil
}

func (f *fakeAuth) Register(context.Context, RegisterRequest) (TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.register++
	if f.err != nil {
		return TokenResponse{}, f.err
	}
	return TokenResponse{AccessToken: f.token, TokenType: "bearer"}, nil
}

func (f *fakeAuth) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins, f.register
}

// loggedIn returns a session already holding a valid token for "u".
func loggedIn(t *testing.T) *Session {
	t.Helper()
	tok := makeToken(t, "u", time.Now().Add(time.Hour))
	s := NewSession(&fakeAuth{token: tok}, NewMemoryStore(), nil)
	if err := s.Login(context.Background(), LoginRequest{Username: "u", Password: "p"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// verifyGolden compares actual with testdata/goldens/name. With
// UPDATE_GOLDENS=true it rewrites the file instead.
func verifyGolden(t *testing.T, name, actual string) {
	t.Helper()
	actual = strings.TrimSpace(actual)
	goldenPath := filepath.Join("testdata", "goldens", name)

	if os.Getenv("UPDATE_GOLDENS") == "true" {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
			t.Fatalf("Failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, []byte(actual+"\n"), 0644); err != nil {
			t.Fatalf("Failed to write golden file %s: %v", goldenPath, err)
		}
		t.Logf("Updated golden file: %s", goldenPath)
		return
	}
	expectedBytes, err := os.ReadFile(goldenPath)
	if err != nil {
		t.Fatalf("Failed to read golden file %s: %v\nActual Content:\n%s", goldenPath, err, actual)
	}
	expected := strings.TrimSpace(string(expectedBytes))
	if actual != expected {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(expected),
			B:        difflib.SplitLines(actual),
			FromFile: "Expected",
			ToFile:   "Actual",
			Context:  3,
		})
		t.Errorf("Rendering mismatch for %s:\n%s", name, diff)
	}
}
