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
	"fmt"
	"net/mail"
	"strings"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// isValidEmail checks if the string is a bare email address.
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, ".")
}

func required(field, label, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: label + " is required"}
	}
	return nil
}

// ValidateLogin checks the login form.
func ValidateLogin(req LoginRequest) error {
	if err := required("username", "Username", req.Username); err != nil {
		return err
	}
	return required("password", "Password", req.Password)
}

// ValidateRegistration checks the registration form, in field order.
func ValidateRegistration(req RegisterRequest) error {
	checks := []struct{ field, label, value string }{
		{"username", "Username", req.Username},
		{"first_name", "First name", req.FirstName},
		{"last_name", "Last name", req.LastName},
		{"email", "Email", req.Email},
		{"password", "Password", req.Password},
	}
	for _, c := range checks {
		if err := required(c.field, c.label, c.value); err != nil {
			return err
		}
	}
	if !isValidEmail(req.Email) {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}
	if len(req.Password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}
	if req.Password != req.ConfirmPassword {
		return &ValidationError{Field: "confirm_password", Message: "Passwords do not match"}
	}
	return nil
}

// ValidateSettings checks the optional fields that were filled in.
func ValidateSettings(s Settings) error {
	if s.Email != "" && !isValidEmail(s.Email) {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}
	if s.Password != "" && len(s.Password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}
	return nil
}
