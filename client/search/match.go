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

package search

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jbarkie/betbot/client"
)

const clockLayout = "15:04"

// Validate reports every filter the matcher cannot evaluate.
func (q Query) Validate() error {
	var errs []error
	for _, f := range q.Filters {
		if err := f.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Filter) validate() error {
	switch f.Key {
	case KeyTeam, KeyHome, KeyAway, KeyFav:
		if f.Operator != OpEqual {
			return fmt.Errorf("%s: operator %q not supported", f.Key, f.Operator)
		}
	case KeyOdds:
		if f.Operator != OpEqual {
			return fmt.Errorf("odds: operator %q not supported", f.Operator)
		}
		if v := strings.ToLower(f.Value); v != "none" && v != "available" {
			return fmt.Errorf("odds: want none or available, got %q", f.Value)
		}
	case KeyTime:
		if _, err := time.Parse(clockLayout, f.Value); err != nil {
			return fmt.Errorf("time: bad clock value %q", f.Value)
		}
		if f.Operator == OpRange {
			if _, err := time.Parse(clockLayout, f.MaxValue); err != nil {
				return fmt.Errorf("time: bad clock value %q", f.MaxValue)
			}
		}
	default:
		return fmt.Errorf("unknown filter %q", f.Key)
	}
	return nil
}

// Matcher returns a predicate for games shown in loc. Kickoff times are
// compared as wall-clock minutes in loc.
func (q Query) Matcher(loc *time.Location) func(client.Game) bool {
	return func(g client.Game) bool {
		return q.matches(g, loc)
	}
}

// Match is Matcher with the local zone.
func (q Query) Match(g client.Game) bool {
	return q.matches(g, time.Local)
}

func (q Query) matches(g client.Game, loc *time.Location) bool {
	for _, f := range q.Filters {
		if !f.matches(g, loc) {
			return false
		}
	}
	hay := strings.ToLower(g.Matchup())
	for _, w := range q.FreeText {
		if !strings.Contains(hay, strings.ToLower(w)) {
			return false
		}
	}
	return true
}

func contains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (f Filter) matches(g client.Game, loc *time.Location) bool {
	switch f.Key {
	case KeyTeam:
		return contains(g.HomeTeam, f.Value) || contains(g.AwayTeam, f.Value)
	case KeyHome:
		return contains(g.HomeTeam, f.Value)
	case KeyAway:
		return contains(g.AwayTeam, f.Value)
	case KeyFav:
		fav := g.Favorite()
		return fav != "" && contains(fav, f.Value)
	case KeyOdds:
		if strings.EqualFold(f.Value, "none") {
			return !g.HasOdds()
		}
		return g.HasOdds()
	case KeyTime:
		return f.matchesClock(g, loc)
	}
	// Unknown keys never match; Validate reports them.
	return false
}

func minutes(hhmm string) (int, bool) {
	t, err := time.Parse(clockLayout, hhmm)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func (f Filter) matchesClock(g client.Game, loc *time.Location) bool {
	kick, ok := g.Kickoff(loc)
	if !ok {
		return false
	}
	at := kick.Hour()*60 + kick.Minute()
	v, ok := minutes(f.Value)
	if !ok {
		return false
	}
	switch f.Operator {
	case OpEqual:
		return at == v
	case OpGreater:
		return at > v
	case OpGreaterOrEqual:
		return at >= v
	case OpLess:
		return at < v
	case OpLessOrEqual:
		return at <= v
	case OpRange:
		hi, ok := minutes(f.MaxValue)
		return ok && at >= v && at <= hi
	}
	return false
}
