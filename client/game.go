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
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// BackendTimeLayout is the layout of Game.Time as sent by the odds backend.
const BackendTimeLayout = "2006-01-02 15:04"

// BackendZone is the zone the backend renders kickoff times in.
const BackendZone = "America/New_York"

// Game describes one scheduled contest. Games are values: a fetch replaces
// the whole list, nothing mutates a Game in place.
type Game struct {
	ID       string `json:"id"`
	Sport    Sport  `json:"sport"`
	HomeTeam string `json:"homeTeam"`
	AwayTeam string `json:"awayTeam"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time"`
	HomeOdds string `json:"homeOdds"`
	AwayOdds string `json:"awayOdds"`
}

// GamesResponse is the body of GET /{sport}/games.
type GamesResponse struct {
	List []Game `json:"list"`
}

// Analytics is the prediction returned for a single game.
type Analytics struct {
	ID              string  `json:"id"`
	HomeTeam        string  `json:"home_team"`
	AwayTeam        string  `json:"away_team"`
	PredictedWinner string  `json:"predicted_winner"`
	WinProbability  float64 `json:"win_probability"`
}

// HasOdds reports whether a moneyline market exists for either side.
func (g Game) HasOdds() bool {
	return g.HomeOdds != "" || g.AwayOdds != ""
}

// Matchup returns "Away @ Home".
func (g Game) Matchup() string {
	return g.AwayTeam + " @ " + g.HomeTeam
}

// Kickoff parses the backend time and converts it to loc.
func (g Game) Kickoff(loc *time.Location) (time.Time, bool) {
	if g.Time == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, g.Time); err == nil {
		return t.In(loc), true
	}
	src, err := time.LoadLocation(BackendZone)
	if err != nil {
		src = time.UTC
	}
	t, err := time.ParseInLocation(BackendTimeLayout, g.Time, src)
	if err != nil {
		return time.Time{}, false
	}
	return t.In(loc), true
}

// DisplayTime renders the kickoff in 12-hour form for loc. Unparseable
// values are returned unchanged.
func (g Game) DisplayTime(loc *time.Location) string {
	t, ok := g.Kickoff(loc)
	if !ok {
		return g.Time
	}
	return t.Format("3:04 PM")
}

// Favorite returns the team with the higher implied win probability, or ""
// when there is no market or the line is even.
func (g Game) Favorite() string {
	hp, hok := ImpliedProbability(g.HomeOdds)
	ap, aok := ImpliedProbability(g.AwayOdds)
	if !hok || !aok || hp == ap {
		return ""
	}
	if hp > ap {
		return g.HomeTeam
	}
	return g.AwayTeam
}

var (
	logoDots   = regexp.MustCompile(`\.`)
	logoSpaces = regexp.MustCompile(`\s+`)
)

// LogoPath returns the asset path of a team logo for this game's sport.
func (g Game) LogoPath(team string) string {
	name := strings.ToLower(team)
	name = logoDots.ReplaceAllString(name, "")
	name = logoSpaces.ReplaceAllString(name, "-")
	ext := "png"
	if g.Sport == SportMLB {
		ext = "svg"
	}
	return fmt.Sprintf("assets/img/%s/%s.%s", g.Sport.PathSegment(), name, ext)
}

// ImpliedProbability converts American odds ("+150", "-120") to the implied
// win probability in [0,1]. It reports false for empty or non-numeric lines.
func ImpliedProbability(odds string) (float64, bool) {
	odds = strings.TrimSpace(odds)
	if odds == "" {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimPrefix(odds, "+"))
	if err != nil || v == 0 {
		return 0, false
	}
	if v > 0 {
		return 100 / float64(100+v), true
	}
	return float64(-v) / float64(100-v), true
}
