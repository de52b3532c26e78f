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
	"strings"
)

// Sport is the tag that parameterizes a sport store and the backend path segment.
type Sport string

const (
	SportNBA Sport = "NBA"
	SportMLB Sport = "MLB"
	SportNFL Sport = "NFL"
	SportNHL Sport = "NHL"
)

// Sports lists every supported sport in menu order.
var Sports = []Sport{SportNBA, SportMLB, SportNFL, SportNHL}

var sportNames = map[Sport]string{
	SportNBA: "Basketball",
	SportMLB: "Baseball",
	SportNFL: "Football",
	SportNHL: "Hockey",
}

// PathSegment returns the lowercase tag used in backend URLs, e.g. "nba".
func (s Sport) PathSegment() string {
	return strings.ToLower(string(s))
}

// Name returns the display name of the sport.
func (s Sport) Name() string {
	if n, ok := sportNames[s]; ok {
		return n
	}
	return string(s)
}

// Valid reports whether s is one of the supported sports.
func (s Sport) Valid() bool {
	_, ok := sportNames[s]
	return ok
}

// ParseSport accepts a tag ("nba") or a display name ("basketball").
func ParseSport(v string) (Sport, error) {
	v = strings.TrimSpace(v)
	for _, s := range Sports {
		if strings.EqualFold(v, string(s)) || strings.EqualFold(v, s.Name()) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown sport %q", v)
}
