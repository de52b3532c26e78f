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
	"time"
)

// EmptyGamesMessage is shown when a loaded day has no games.
const EmptyGamesMessage = "No games found for today."

// NoOddsMessage replaces the moneylines of a game without a market.
const NoOddsMessage = "No odds available"

// NoMatchesMessage is shown when a filter hides every game.
const NoMatchesMessage = "No games match the filter."

// Body selects the single content block of a sport view.
type Body int

const (
	BodyNone Body = iota
	BodyLoading
	BodyError
	BodyEmpty
	BodyGames
)

// View is what a sport page shows at one instant. A gated view carries only
// Message.
type View struct {
	Gated   bool
	Message string

	Sport        Sport
	Title        string
	Date         Date
	DateLabel    string
	IsToday      bool
	CanGoBack    bool
	CanGoForward bool

	Body     Body
	Error    string
	Games    []Game
	Total    int
	Filtered bool
	Location *time.Location
}

// View returns the current rendering of the navigator.
func (n *Navigator) View() View {
	return n.FilteredView(nil)
}

// FilteredView is View with only the games accepted by match. A nil match
// keeps every game.
func (n *Navigator) FilteredView(match func(Game) bool) View {
	if n.Phase() == PhaseGated {
		return View{Gated: true, Message: AccessDeniedMessage}
	}
	d := n.SelectedDate()
	today := d.Equal(n.today())
	v := View{
		Sport:        n.Sport(),
		Title:        fmt.Sprintf("%s %s", n.Sport(), n.Sport().Name()),
		Date:         d,
		DateLabel:    d.Long(),
		IsToday:      today,
		CanGoBack:    !today,
		CanGoForward: true,
		Location:     n.loc,
	}
	st := n.store.State()
	switch {
	case st.IsLoading:
		v.Body = BodyLoading
	case st.Error != "":
		v.Body = BodyError
		v.Error = st.Error
	case len(st.Games) == 0:
		v.Body = BodyEmpty
	default:
		v.Total = len(st.Games)
		v.Games = st.Games
		if match != nil {
			v.Filtered = true
			v.Games = make([]Game, 0, len(st.Games))
			for _, g := range st.Games {
				if match(g) {
					v.Games = append(v.Games, g)
				}
			}
		}
		v.Body = BodyGames
	}
	return v
}

// Render returns the plain-text form of the view.
func (v View) Render() string {
	if v.Gated {
		return v.Message + "\n"
	}
	var sb strings.Builder
	sb.WriteString(v.Title + "\n")
	back := "«"
	if !v.CanGoBack {
		back = "-"
	}
	fmt.Fprintf(&sb, "%s  %s  »\n\n", back, v.DateLabel)

	switch v.Body {
	case BodyLoading:
		sb.WriteString("Loading games...\n")
	case BodyError:
		sb.WriteString("Error: " + v.Error + "\n")
	case BodyEmpty:
		sb.WriteString(EmptyGamesMessage + "\n")
	case BodyGames:
		if len(v.Games) == 0 {
			sb.WriteString(NoMatchesMessage + "\n")
		}
		for i, g := range v.Games {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(RenderGame(g, v.Location))
		}
		if v.Filtered {
			fmt.Fprintf(&sb, "\n%d of %d games\n", len(v.Games), v.Total)
		}
	}
	return sb.String()
}

// RenderGame returns the plain-text card of one game.
func RenderGame(g Game, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %s\n", g.Matchup(), g.DisplayTime(loc))
	if !g.HasOdds() {
		sb.WriteString("  " + NoOddsMessage + "\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "  %s ML: %s\n", g.AwayTeam, g.AwayOdds)
	fmt.Fprintf(&sb, "  %s ML: %s\n", g.HomeTeam, g.HomeOdds)
	return sb.String()
}
