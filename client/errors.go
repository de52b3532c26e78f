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
	"errors"
	"fmt"
	"net/http"
)

// AccessDeniedMessage is shown in place of any gated view.
const AccessDeniedMessage = "You must be logged in to access this page."

// SessionExpiredMessage is the notice raised by the session-expiry flow.
const SessionExpiredMessage = "Session expired. Please log in again."

// ErrNotAuthenticated is returned when a guarded view is opened without a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// TransportError is a network or HTTP failure talking to the backend.
type TransportError struct {
	Op      string // e.g. "GET /nba/games"
	Status  int    // 0 when no response was received
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: HTTP %d %s", e.Op, e.Status, http.StatusText(e.Status))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": " + e.Message
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthError is a rejected credential, an expired token or a username conflict.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// ValidationError is a client-side form rule violation. It is never sent to the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsUnauthorized reports whether err is an HTTP 401 from the backend.
func IsUnauthorized(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status == http.StatusUnauthorized
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Status == http.StatusUnauthorized
	}
	return false
}

// UserMessage returns the text to show for err. Transport failures without a
// backend message fall back to fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		if ae.Message != "" {
			return ae.Message
		}
		return fallback
	}
	var te *TransportError
	if errors.As(err, &te) {
		if te.Message != "" {
			return te.Message
		}
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
