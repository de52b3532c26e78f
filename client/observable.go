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
	"sort"
	"sync"
)

// Observable holds a state value and notifies subscribers after every change.
// Notifications are delivered in the order the changes were made: while one
// goroutine is delivering, changes made by others (or by a subscriber) are
// queued and delivered by that same goroutine. Subscribers run outside the
// value lock, in registration order.
type Observable[T any] struct {
	mu     sync.RWMutex
	value  T
	subs   map[int]func(T)
	nextID int

	pending     []T
	dispatching bool
}

// NewObservable returns an Observable holding initial.
func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{
		value: initial,
		subs:  make(map[int]func(T)),
	}
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Set replaces the value and notifies subscribers.
func (o *Observable[T]) Set(v T) {
	o.Update(func(T) T { return v })
}

// Update applies fn to the current value and notifies subscribers.
func (o *Observable[T]) Update(fn func(T) T) {
	o.UpdateIf(func(v T) (T, bool) { return fn(v), true })
}

// UpdateIf applies fn and notifies only when fn reports a change.
func (o *Observable[T]) UpdateIf(fn func(T) (T, bool)) bool {
	o.mu.Lock()
	next, changed := fn(o.value)
	if !changed {
		o.mu.Unlock()
		return false
	}
	o.value = next
	o.pending = append(o.pending, next)
	if o.dispatching {
		o.mu.Unlock()
		return true
	}
	o.dispatching = true
	o.mu.Unlock()

	o.dispatch()
	return true
}

// dispatch delivers queued values until the queue is empty.
func (o *Observable[T]) dispatch() {
	done := false
	defer func() {
		if !done {
			o.mu.Lock()
			o.pending = nil
			o.dispatching = false
			o.mu.Unlock()
		}
	}()
	for {
		o.mu.Lock()
		if len(o.pending) == 0 {
			o.pending = nil
			o.dispatching = false
			o.mu.Unlock()
			done = true
			return
		}
		v := o.pending[0]
		o.pending = o.pending[1:]
		subs := o.snapshot()
		o.mu.Unlock()

		for _, f := range subs {
			f(v)
		}
	}
}

// Subscribe registers fn and returns a function that removes it.
func (o *Observable[T]) Subscribe(fn func(T)) func() {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// Reset drops all subscribers.
func (o *Observable[T]) Reset() {
	o.mu.Lock()
	o.subs = make(map[int]func(T))
	o.mu.Unlock()
}

func (o *Observable[T]) snapshot() []func(T) {
	ids := make([]int, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(T), 0, len(ids))
	for _, id := range ids {
		out = append(out, o.subs[id])
	}
	return out
}
