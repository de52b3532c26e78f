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
	"strings"
)

// Route names a top-level page.
type Route string

const (
	RouteHome     Route = "home"
	RouteAbout    Route = "about"
	RouteSettings Route = "settings"
)

// SportRoute returns the route of a sport page.
func SportRoute(s Sport) Route {
	return Route(s.PathSegment())
}

// Guarded reports whether r requires a session.
func (r Route) Guarded() bool {
	switch r {
	case RouteHome, RouteAbout:
		return false
	}
	return true
}

// ParseRoute accepts a page name or a sport tag.
func ParseRoute(v string) (Route, bool) {
	switch r := Route(strings.ToLower(strings.TrimSpace(v))); r {
	case RouteHome, RouteAbout, RouteSettings:
		return r, true
	}
	if s, err := ParseSport(v); err == nil {
		return SportRoute(s), true
	}
	return "", false
}

// modalOpener is the part of a Session the guard drives.
type modalOpener interface {
	SessionSource
	ShowLoginModal()
}

// Guard decides whether a route may be entered.
type Guard struct {
	session  modalOpener
	notifier *Notifier
}

// NewGuard returns a Guard over session. notifier may be nil.
func NewGuard(session *Session, notifier *Notifier) *Guard {
	return &Guard{session: session, notifier: notifier}
}

// CanActivate allows public routes and guarded routes with an authorized
// session. A denial raises the access notice and opens the login modal.
func (g *Guard) CanActivate(r Route) bool {
	if !r.Guarded() || g.session.State().Authorized() {
		return true
	}
	log.Printf("[GUARD] Denied %q: not logged in", r)
	if g.notifier != nil {
		g.notifier.Error(AccessDeniedMessage)
	}
	g.session.ShowLoginModal()
	return false
}
