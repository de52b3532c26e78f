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

import "log"

// Theme is the color scheme of the client.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ThemeStore holds the theme and persists it under ThemeKey.
type ThemeStore struct {
	prefs PrefStore
	state *Observable[Theme]
}

// NewThemeStore restores the saved theme. Without one, prefersDark picks the
// initial value; it may be nil.
func NewThemeStore(prefs PrefStore, prefersDark func() bool) *ThemeStore {
	initial := ThemeLight
	saved, err := prefs.Get(ThemeKey)
	if err != nil {
		log.Printf("[THEME] Failed to read saved theme: %v", err)
	}
	switch Theme(saved) {
	case ThemeLight, ThemeDark:
		initial = Theme(saved)
	default:
		if prefersDark != nil && prefersDark() {
			initial = ThemeDark
		}
	}
	return &ThemeStore{prefs: prefs, state: NewObservable(initial)}
}

// Theme returns the current theme.
func (t *ThemeStore) Theme() Theme {
	return t.state.Get()
}

// Subscribe registers fn for theme changes.
func (t *ThemeStore) Subscribe(fn func(Theme)) func() {
	return t.state.Subscribe(fn)
}

// Set changes and persists the theme.
func (t *ThemeStore) Set(theme Theme) error {
	if err := t.prefs.Set(ThemeKey, string(theme)); err != nil {
		return err
	}
	t.state.Set(theme)
	return nil
}

// Toggle switches between light and dark.
func (t *ThemeStore) Toggle() error {
	next := ThemeDark
	if t.Theme() == ThemeDark {
		next = ThemeLight
	}
	return t.Set(next)
}
