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
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Live feed message types.
const (
	MsgTypeOddsUpdated = "ODDS_UPDATED"
	MsgTypeError       = "ERROR"
)

const (
	// Time allowed to read the next message or ping from the server.
	livePongWait = 60 * time.Second

	liveMinBackoff = time.Second
	liveMaxBackoff = 30 * time.Second
)

// LiveMessage is one event from the live feed.
type LiveMessage struct {
	Type  string `json:"type"`
	Sport Sport  `json:"sport,omitempty"`
	Date  string `json:"date,omitempty"`
	Error string `json:"error,omitempty"`
}

// WebSocketURL derives the live feed endpoint from the API base URL.
func WebSocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// LiveFeed keeps a websocket subscription to odds updates, reconnecting with
// capped backoff while its context lives.
type LiveFeed struct {
	url    string
	prefs  PrefStore
	dialer websocket.Dialer
	debugf func(string, ...any)

	mu             sync.Mutex
	handlers       map[int]func(Sport, Date)
	nextID         int
	onUnauthorized func(token string)
	connected      bool
}

// NewLiveFeed returns a feed for wsURL that authenticates with the token in prefs.
func NewLiveFeed(wsURL string, prefs PrefStore, debug bool) *LiveFeed {
	f := &LiveFeed{
		url:   wsURL,
		prefs: prefs,
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			Proxy:            http.ProxyFromEnvironment,
		},
		debugf:   func(string, ...any) {},
		handlers: make(map[int]func(Sport, Date)),
	}
	if debug {
		f.debugf = func(format string, a ...any) {
			log.Printf("[DEBUG LIVE] "+format, a...)
		}
	}
	return f
}

// OnOddsUpdated registers fn for ODDS_UPDATED events and returns a function
// that removes it.
func (f *LiveFeed) OnOddsUpdated(fn func(Sport, Date)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.handlers[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.handlers, id)
		f.mu.Unlock()
	}
}

// OnUnauthorized sets the hook run when the server rejects the token.
func (f *LiveFeed) OnUnauthorized(fn func(token string)) {
	f.mu.Lock()
	f.onUnauthorized = fn
	f.mu.Unlock()
}

// Connected reports whether a subscription is currently open.
func (f *LiveFeed) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Run subscribes until ctx is done and returns ctx.Err().
func (f *LiveFeed) Run(ctx context.Context) error {
	backoff := liveMinBackoff
	for {
		opened, err := f.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if opened {
			backoff = liveMinBackoff
		}
		if err != nil {
			f.debugf("subscription ended: %v (retry in %v)", err, backoff)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, liveMaxBackoff)
	}
}

// session runs one connection. opened reports whether the handshake succeeded.
func (f *LiveFeed) session(ctx context.Context) (opened bool, err error) {
	tok, err := f.prefs.Get(TokenKey)
	if err != nil {
		return false, err
	}
	if tok == "" {
		return false, fmt.Errorf("not logged in")
	}
	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+tok)

	conn, resp, err := f.dialer.DialContext(ctx, f.url, hdr)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized {
				log.Printf("[LIVE] Server rejected the session token")
				f.mu.Lock()
				hook := f.onUnauthorized
				f.mu.Unlock()
				if hook != nil {
					hook(tok)
				}
			}
			return false, fmt.Errorf("dial %s: %s: %s", f.url, resp.Status, strings.TrimSpace(string(body)))
		}
		return false, fmt.Errorf("dial %s: %w", f.url, err)
	}
	log.Printf("[LIVE] Subscribed to %s", f.url)
	f.setConnected(true)
	defer f.setConnected(false)

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(livePongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})
	for {
		var msg LiveMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				log.Printf("[LIVE] Read error: %v", err)
			}
			return true, err
		}
		conn.SetReadDeadline(time.Now().Add(livePongWait))
		f.dispatch(msg)
	}
}

func (f *LiveFeed) dispatch(msg LiveMessage) {
	switch msg.Type {
	case MsgTypeOddsUpdated:
		d, err := ParseDate(msg.Date)
		if err != nil || !msg.Sport.Valid() {
			f.debugf("ignoring malformed update %+v", msg)
			return
		}
		f.debugf("odds updated: %s %s", msg.Sport, d)
		f.mu.Lock()
		handlers := make([]func(Sport, Date), 0, len(f.handlers))
		for _, h := range f.handlers {
			handlers = append(handlers, h)
		}
		f.mu.Unlock()
		for _, h := range handlers {
			h(msg.Sport, d)
		}
	case MsgTypeError:
		log.Printf("[LIVE] Server error: %s", msg.Error)
	default:
		f.debugf("unknown message type %q", msg.Type)
	}
}

func (f *LiveFeed) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}
