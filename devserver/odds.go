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

package devserver

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jbarkie/betbot/client"
)

// ErrGameNotFound is returned for ids the book has not issued.
var ErrGameNotFound = errors.New("game not found")

// gameNamespace derives stable game ids from sport, date and matchup.
var gameNamespace = uuid.MustParse("6f1c1b0e-5a0b-4d47-9a3c-8f2d0c6e4b21")

var teams = map[client.Sport][]string{
	client.SportNBA: {
		"Boston Celtics", "Los Angeles Lakers", "Golden State Warriors", "Miami Heat",
		"New York Knicks", "Denver Nuggets", "Phoenix Suns", "Milwaukee Bucks",
		"Dallas Mavericks", "Philadelphia 76ers", "Chicago Bulls", "Oklahoma City Thunder",
	},
	client.SportMLB: {
		"New York Yankees", "Boston Red Sox", "Los Angeles Dodgers", "Chicago Cubs",
		"St. Louis Cardinals", "Atlanta Braves", "Houston Astros", "Seattle Mariners",
		"San Diego Padres", "Philadelphia Phillies", "Toronto Blue Jays", "Texas Rangers",
		"Baltimore Orioles", "Minnesota Twins",
	},
	client.SportNFL: {
		"Kansas City Chiefs", "Buffalo Bills", "Philadelphia Eagles", "San Francisco 49ers",
		"Dallas Cowboys", "Baltimore Ravens", "Detroit Lions", "Green Bay Packers",
		"Miami Dolphins", "Cincinnati Bengals", "Pittsburgh Steelers", "Los Angeles Rams",
	},
	client.SportNHL: {
		"Boston Bruins", "Toronto Maple Leafs", "New York Rangers", "Edmonton Oilers",
		"Colorado Avalanche", "Vegas Golden Knights", "Florida Panthers", "Dallas Stars",
		"Tampa Bay Lightning", "Carolina Hurricanes",
	},
}

var kickoffs = map[client.Sport][]string{
	client.SportNBA: {"19:00", "19:30", "20:00", "22:00", "22:30"},
	client.SportMLB: {"13:05", "18:40", "19:05", "19:10", "21:40", "22:10"},
	client.SportNFL: {"13:00", "16:05", "16:25", "20:20"},
	client.SportNHL: {"19:00", "19:30", "20:00", "22:00"},
}

type dayKey struct {
	sport client.Sport
	date  client.Date
}

// OddsBook generates a deterministic slate of games per sport and day and
// holds the current moneylines. Generated days are kept in memory so line
// changes stick for the life of the process.
type OddsBook struct {
	mu   sync.Mutex
	days map[dayKey][]client.Game
	byID map[string]dayKey

	onUpdate func(client.Sport, client.Date)
}

// NewOddsBook returns an empty book.
func NewOddsBook() *OddsBook {
	return &OddsBook{
		days: make(map[dayKey][]client.Game),
		byID: make(map[string]dayKey),
	}
}

// OnUpdate sets the callback run after UpdateOdds changes a line.
func (b *OddsBook) OnUpdate(fn func(client.Sport, client.Date)) {
	b.mu.Lock()
	b.onUpdate = fn
	b.mu.Unlock()
}

// Games returns the slate for sport on date. The result is a copy.
func (b *OddsBook) Games(sport client.Sport, date client.Date) []client.Game {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]client.Game{}, b.dayLocked(sport, date)...)
}

func (b *OddsBook) dayLocked(sport client.Sport, date client.Date) []client.Game {
	k := dayKey{sport, date}
	games, ok := b.days[k]
	if !ok {
		games = generateSlate(sport, date)
		b.days[k] = games
		for _, g := range games {
			b.byID[g.ID] = k
		}
	}
	return games
}

// Game looks up a game by id.
func (b *OddsBook) Game(sport client.Sport, id string) (client.Game, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, k, err := b.findLocked(sport, id)
	if err != nil {
		return client.Game{}, err
	}
	return b.days[k][i], nil
}

func (b *OddsBook) findLocked(sport client.Sport, id string) (int, dayKey, error) {
	k, ok := b.byID[id]
	if !ok || k.sport != sport {
		return 0, dayKey{}, ErrGameNotFound
	}
	for i, g := range b.days[k] {
		if g.ID == id {
			return i, k, nil
		}
	}
	return 0, dayKey{}, ErrGameNotFound
}

// UpdateOdds replaces the moneyline of a game. Empty strings take the game
// off the board.
func (b *OddsBook) UpdateOdds(sport client.Sport, id, homeOdds, awayOdds string) error {
	for _, o := range []string{homeOdds, awayOdds} {
		if _, ok := client.ImpliedProbability(o); o != "" && !ok {
			return fmt.Errorf("invalid American odds %q", o)
		}
	}
	b.mu.Lock()
	i, k, err := b.findLocked(sport, id)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	b.days[k][i].HomeOdds = homeOdds
	b.days[k][i].AwayOdds = awayOdds
	fn := b.onUpdate
	b.mu.Unlock()

	if fn != nil {
		fn(k.sport, k.date)
	}
	return nil
}

// Drift moves one priced line of the slate by a few cents and returns the
// game it changed. It reports false when nothing on the slate has a market.
func (b *OddsBook) Drift(sport client.Sport, date client.Date, r *rand.Rand) (client.Game, bool) {
	b.mu.Lock()
	var priced []client.Game
	for _, g := range b.dayLocked(sport, date) {
		if g.HasOdds() {
			priced = append(priced, g)
		}
	}
	b.mu.Unlock()
	if len(priced) == 0 {
		return client.Game{}, false
	}
	g := priced[r.IntN(len(priced))]
	fav := -(favoritePrice(g) + 10*(r.IntN(3)-1))
	home, away := priceLine(fav, g.Favorite() == g.HomeTeam)
	if err := b.UpdateOdds(sport, g.ID, home, away); err != nil {
		return client.Game{}, false
	}
	g.HomeOdds, g.AwayOdds = home, away
	return g, true
}

// favoritePrice returns the absolute favorite price, e.g. 150 for -150.
func favoritePrice(g client.Game) int {
	hp, _ := client.ImpliedProbability(g.HomeOdds)
	ap, _ := client.ImpliedProbability(g.AwayOdds)
	p := max(hp, ap)
	if p <= 0.5 {
		return 110
	}
	return max(110, int(p/(1-p)*100+0.5))
}

// priceLine returns home and away odds for a favorite priced at fav (<0).
func priceLine(fav int, homeFavored bool) (string, string) {
	fav = min(fav, -105)
	dog := -fav - 20
	if dog < 100 {
		dog = 100
	}
	f := fmt.Sprintf("%d", fav)
	d := fmt.Sprintf("+%d", dog)
	if homeFavored {
		return f, d
	}
	return d, f
}

func slateSeed(sport client.Sport, date client.Date) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s/%s", sport, date)
	return h.Sum64()
}

// slateSize returns how many games are played. Football only plays on
// Thursday, Sunday and Monday.
func slateSize(sport client.Sport, date client.Date, r *rand.Rand) int {
	n := len(teams[sport]) / 2
	switch sport {
	case client.SportNFL:
		switch time.Date(date.Year, date.Month, date.Day, 12, 0, 0, 0, time.UTC).Weekday() {
		case time.Sunday:
			return n
		case time.Monday, time.Thursday:
			return 1
		}
		return 0
	default:
		// One day in seven is an off day.
		if r.IntN(7) == 0 {
			return 0
		}
		return 1 + r.IntN(n)
	}
}

func generateSlate(sport client.Sport, date client.Date) []client.Game {
	seed := slateSeed(sport, date)
	r := rand.New(rand.NewPCG(seed, seed>>1))

	names := append([]string{}, teams[sport]...)
	r.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
	slots := kickoffs[sport]

	n := slateSize(sport, date, r)
	games := make([]client.Game, 0, n)
	for i := 0; i < n; i++ {
		away, home := names[2*i], names[2*i+1]
		g := client.Game{
			ID:       uuid.NewSHA1(gameNamespace, []byte(fmt.Sprintf("%s/%s/%s@%s", sport, date, away, home))).String(),
			Sport:    sport,
			HomeTeam: home,
			AwayTeam: away,
			Date:     date.String(),
			Time:     date.String() + " " + slots[r.IntN(len(slots))],
		}
		// Roughly one game in four has no market yet.
		if r.IntN(4) != 0 {
			g.HomeOdds, g.AwayOdds = priceLine(-(110 + 10*r.IntN(20)), r.IntN(5) < 3)
		}
		games = append(games, g)
	}
	return games
}

// Predict estimates the winner from the moneyline with the vig removed.
// Games without a market lean to the home side.
func Predict(g client.Game) client.Analytics {
	a := client.Analytics{ID: g.ID, HomeTeam: g.HomeTeam, AwayTeam: g.AwayTeam}
	hp, hok := client.ImpliedProbability(g.HomeOdds)
	ap, aok := client.ImpliedProbability(g.AwayOdds)
	if !hok || !aok {
		a.PredictedWinner = g.HomeTeam
		a.WinProbability = 0.54
		return a
	}
	home := hp / (hp + ap)
	if home >= 0.5 {
		a.PredictedWinner, a.WinProbability = g.HomeTeam, home
	} else {
		a.PredictedWinner, a.WinProbability = g.AwayTeam, 1-home
	}
	return a
}
