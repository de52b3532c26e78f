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
	"log"
	"sync"
	"time"
)

// ToastTTL is how long a notification stays visible.
const ToastTTL = 3 * time.Second

// Toast kinds.
const (
	ToastSuccess = "success"
	ToastError   = "error"
)

// Toast is a transient notification.
type Toast struct {
	Message string
	Type    string
	Expires time.Time
}

// Notifier shows one toast at a time; a new toast replaces the current one.
type Notifier struct {
	state *Observable[*Toast]
	ttl   time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewNotifier returns a Notifier whose toasts expire after ttl.
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = ToastTTL
	}
	return &Notifier{state: NewObservable[*Toast](nil), ttl: ttl}
}

// Success shows a success toast.
func (n *Notifier) Success(msg string) {
	n.show(msg, ToastSuccess)
}

// Error shows an error toast.
func (n *Notifier) Error(msg string) {
	n.show(msg, ToastError)
}

func (n *Notifier) show(msg, kind string) {
	log.Printf("[TOAST] %s: %s", kind, msg)
	t := &Toast{Message: msg, Type: kind, Expires: time.Now().Add(n.ttl)}

	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.ttl, func() {
		n.state.UpdateIf(func(cur *Toast) (*Toast, bool) {
			return nil, cur == t
		})
	})
	n.mu.Unlock()

	n.state.Set(t)
}

// Current returns the visible toast, or nil.
func (n *Notifier) Current() *Toast {
	return n.state.Get()
}

// Dismiss hides the visible toast.
func (n *Notifier) Dismiss() {
	n.state.UpdateIf(func(cur *Toast) (*Toast, bool) {
		return nil, cur != nil
	})
}

// Subscribe registers fn for toast changes; nil means the toast was hidden.
func (n *Notifier) Subscribe(fn func(*Toast)) func() {
	return n.state.Subscribe(fn)
}
