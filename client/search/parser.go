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

// Package search parses the game filter typed into a sport view, e.g.
//
//	team:lakers odds:available time:>=19:00 "los angeles"
package search

import (
	"strings"
	"unicode"
)

// Operator defines the type of comparison for a filter.
type Operator string

const (
	OpEqual          Operator = "="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpRange          Operator = ".." // time:18:00..21:00
)

// Filter keys.
const (
	KeyTeam = "team"
	KeyHome = "home"
	KeyAway = "away"
	KeyOdds = "odds"
	KeyFav  = "fav"
	KeyTime = "time"
)

// Filter is one key:value criterion.
type Filter struct {
	Key      string
	Value    string
	MaxValue string // only for OpRange
	Operator Operator
}

// Query is a parsed filter expression.
type Query struct {
	Filters  []Filter
	FreeText []string
}

// Empty reports whether the query has no criteria.
func (q Query) Empty() bool {
	return len(q.Filters) == 0 && len(q.FreeText) == 0
}

// Longest prefixes first so ">=" wins over ">".
var prefixOps = []Operator{OpGreaterOrEqual, OpLessOrEqual, OpGreater, OpLess}

// Parse splits input into filters and free text. Tokens that do not form a
// valid key:value pair are kept as free text.
func Parse(input string) Query {
	q := Query{
		Filters:  make([]Filter, 0),
		FreeText: make([]string, 0),
	}
	for _, token := range tokenize(input) {
		f, ok := parseFilter(token)
		if !ok {
			q.FreeText = append(q.FreeText, removeQuotes(token))
			continue
		}
		q.Filters = append(q.Filters, f)
	}
	return q
}

func parseFilter(token string) (Filter, bool) {
	key, val, found := strings.Cut(token, ":")
	if !found {
		return Filter{}, false
	}
	key = strings.ToLower(strings.TrimSpace(key))
	val = strings.TrimSpace(val)
	if key == "" || val == "" || strings.ContainsAny(key, "\"'") {
		return Filter{}, false
	}
	// Only clock values may contain a colon.
	quoted := strings.HasPrefix(val, "\"") || strings.HasPrefix(val, "'")
	if key != KeyTime && !quoted && strings.Contains(val, ":") {
		return Filter{}, false
	}

	if lo, hi, ok := strings.Cut(val, ".."); ok {
		if lo == "" || hi == "" {
			return Filter{}, false
		}
		return Filter{Key: key, Value: removeQuotes(lo), MaxValue: removeQuotes(hi), Operator: OpRange}, true
	}
	for _, op := range prefixOps {
		if rest, ok := strings.CutPrefix(val, string(op)); ok {
			if rest == "" {
				return Filter{}, false
			}
			return Filter{Key: key, Value: removeQuotes(rest), Operator: op}, true
		}
	}
	return Filter{Key: key, Value: removeQuotes(val), Operator: OpEqual}, true
}

// tokenize splits the string by spaces, respecting quotes.
func tokenize(input string) []string {
	var tokens []string
	var cur strings.Builder
	var quote rune

	for _, r := range input {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case unicode.IsSpace(r):
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// removeQuotes strips one pair of matching quotes, and the quotes around a
// quoted value inside a key:"value" token.
func removeQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
