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
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// TokenValidator decides whether a persisted token may still be used.
type TokenValidator interface {
	Validate(ctx context.Context, token string) error
}

// ErrTokenExpired is returned for tokens whose exp claim is not in the future.
var ErrTokenExpired = errors.New("token expired")

// ExpiryValidator decodes the token without checking its signature and
// requires an exp claim in the future. Signature checks belong to the backend.
type ExpiryValidator struct {
	Now func() time.Time
}

func (v ExpiryValidator) Validate(_ context.Context, token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("malformed token: %w", err)
	}
	return checkExpiry(claims, v.Now)
}

func checkExpiry(claims jwt.MapClaims, now func() time.Time) error {
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("bad exp claim: %w", err)
	}
	if exp == nil {
		return errors.New("token has no exp claim")
	}
	n := time.Now()
	if now != nil {
		n = now()
	}
	if !exp.After(n) {
		return ErrTokenExpired
	}
	return nil
}

// TokenSubject returns the sub claim of token, or "" when it cannot be decoded.
func TokenSubject(token string) string {
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

// JWKSValidator verifies the token signature against keys published at URL,
// then applies the expiry rule.
type JWKSValidator struct {
	URL   string
	Now   func() time.Time
	Debug bool

	mu          sync.RWMutex
	keys        jwk.Set
	lastRefresh time.Time
}

// NewJWKSValidator returns a validator for the JWKS at url. Keys are fetched lazily.
func NewJWKSValidator(url string) *JWKSValidator {
	return &JWKSValidator{URL: url}
}

func (v *JWKSValidator) refreshKeys(ctx context.Context) error {
	if v.URL == "" {
		return fmt.Errorf("no JWKS URL provided")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	set, err := jwk.Fetch(ctx, v.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	v.mu.Lock()
	v.keys = set
	v.lastRefresh = time.Now()
	v.mu.Unlock()
	return nil
}

func (v *JWKSValidator) findKey(id string) (any, error) {
	v.mu.RLock()
	set := v.keys
	v.mu.RUnlock()
	if set == nil {
		return nil, fmt.Errorf("JWKS not initialized")
	}
	key, ok := set.LookupKeyID(id)
	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", id)
	}
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("failed to materialize key: %w", err)
	}
	return raw, nil
}

func (v *JWKSValidator) Validate(ctx context.Context, token string) error {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA, *jwt.SigningMethodEd25519:
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		kid, ok := t.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("token missing 'kid' header")
		}

		key, err := v.findKey(kid)
		if err == nil {
			return key, nil
		}

		v.mu.RLock()
		last := v.lastRefresh
		v.mu.RUnlock()
		// Unknown kid: refetch at most once a minute.
		if time.Since(last) > time.Minute {
			if err := v.refreshKeys(ctx); err != nil {
				log.Printf("[AUTH] Error refreshing JWKS: %v", err)
				return nil, err
			}
			return v.findKey(kid)
		}
		return nil, err
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		if v.Debug {
			log.Printf("[AUTH] JWT validation failed: %v", err)
		}
		return fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("unexpected claims type")
	}
	return checkExpiry(claims, v.Now)
}
