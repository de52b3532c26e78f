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
)

// Settings are the editable account settings. Empty strings leave the
// stored value unchanged on update.
type Settings struct {
	Username                  string `json:"username,omitempty"`
	Email                     string `json:"email,omitempty"`
	Password                  string `json:"password,omitempty"`
	EmailNotificationsEnabled bool   `json:"email_notifications_enabled"`
}

// SettingsState is the state of the settings page.
type SettingsState struct {
	IsLoading bool
	Error     string
	Settings  *Settings
}

// HasError reports whether the last call failed.
func (s SettingsState) HasError() bool {
	return s.Error != ""
}

// SettingsStore loads and saves the account settings.
type SettingsStore struct {
	api      SettingsAPI
	notifier *Notifier
	state    *Observable[SettingsState]
}

// NewSettingsStore returns an empty store. notifier may be nil.
func NewSettingsStore(api SettingsAPI, notifier *Notifier) *SettingsStore {
	return &SettingsStore{api: api, notifier: notifier, state: NewObservable(SettingsState{})}
}

// State returns a snapshot.
func (s *SettingsStore) State() SettingsState {
	return s.state.Get()
}

// Subscribe registers fn for every state change.
func (s *SettingsStore) Subscribe(fn func(SettingsState)) func() {
	return s.state.Subscribe(fn)
}

// Load fetches the settings.
func (s *SettingsStore) Load(ctx context.Context) error {
	s.setLoading()
	settings, err := s.api.Settings(ctx)
	if err != nil {
		s.fail("Failed to load settings", err)
		return err
	}
	settings.Password = ""
	s.state.Update(func(st SettingsState) SettingsState {
		st.IsLoading = false
		st.Settings = &settings
		return st
	})
	return nil
}

// Update validates and saves req. The password is never kept in the state.
func (s *SettingsStore) Update(ctx context.Context, req Settings) error {
	if err := ValidateSettings(req); err != nil {
		return err
	}
	s.setLoading()
	if err := s.api.UpdateSettings(ctx, req); err != nil {
		s.fail("Failed to update settings", err)
		return err
	}
	s.state.Update(func(st SettingsState) SettingsState {
		st.IsLoading = false
		st.Settings = mergeSettings(st.Settings, req)
		return st
	})
	log.Printf("[SETTINGS] Settings updated")
	if s.notifier != nil {
		s.notifier.Success("Settings updated successfully")
	}
	return nil
}

// mergeSettings applies the non-empty fields of req over cur.
func mergeSettings(cur *Settings, req Settings) *Settings {
	var out Settings
	if cur != nil {
		out = *cur
	}
	if req.Username != "" {
		out.Username = req.Username
	}
	if req.Email != "" {
		out.Email = req.Email
	}
	out.EmailNotificationsEnabled = req.EmailNotificationsEnabled
	out.Password = ""
	return &out
}

func (s *SettingsStore) setLoading() {
	s.state.Update(func(st SettingsState) SettingsState {
		st.IsLoading = true
		st.Error = ""
		return st
	})
}

func (s *SettingsStore) fail(msg string, err error) {
	log.Printf("[SETTINGS] %s: %v", msg, err)
	s.state.Update(func(st SettingsState) SettingsState {
		st.IsLoading = false
		st.Error = UserMessage(err, msg)
		return st
	})
	if s.notifier != nil {
		s.notifier.Error(msg)
	}
}
