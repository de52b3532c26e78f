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

// betbot is a terminal client for browsing daily moneyline odds.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jbarkie/betbot/client"
	"github.com/jbarkie/betbot/tui"
	"github.com/joho/godotenv"
)

var (
	apiURL      = flag.String("api-url", "", "Base URL of the odds backend (env BETBOT_API_URL)")
	dataDir     = flag.String("data-dir", "", "Directory for the session token and preferences (env BETBOT_DATA_DIR)")
	timeout     = flag.Duration("timeout", 10*time.Second, "Timeout of a single backend request")
	authJWKSURL = flag.String("auth-jwks-url", "", "Verify token signatures against this JWKS endpoint")
	liveMode    = flag.Bool("live", false, "Subscribe to live odds updates over a websocket")
	debugMode   = flag.Bool("debug", false, "Enable debug mode")
	logFile     = flag.String("log-file", "betbot.log", "Where to write logs while the UI is running")
	timezone    = flag.String("timezone", "", "IANA time zone for dates and kickoff times (default: local)")
	startPage   = flag.String("open", "home", "Page to open at start: home, about, settings or a sport tag")
)

func envDefault(v *string, key, def string) {
	if *v != "" {
		return
	}
	if e := os.Getenv(key); e != "" {
		*v = e
		return
	}
	*v = def
}

func main() {
	_ = godotenv.Load()
	flag.Parse()

	envDefault(apiURL, "BETBOT_API_URL", "http://localhost:8000")
	envDefault(dataDir, "BETBOT_DATA_DIR", "")
	if *dataDir == "" {
		d, err := client.DefaultDataDir()
		if err != nil {
			log.Fatalf("No data directory: %v", err)
		}
		*dataDir = d
	}
	if v, err := strconv.ParseBool(os.Getenv("BETBOT_LIVE")); err == nil && v {
		*liveMode = true
	}

	loc := time.Local
	if *timezone != "" {
		l, err := time.LoadLocation(*timezone)
		if err != nil {
			log.Fatalf("Invalid --timezone: %v", err)
		}
		loc = l
	}
	start, ok := client.ParseRoute(*startPage)
	if !ok {
		log.Fatalf("Unknown page %q", *startPage)
	}

	f, err := tea.LogToFile(*logFile, "")
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer f.Close()

	store, err := client.OpenStorage(*dataDir, os.Getenv("BETBOT_MASTER_KEY"))
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	prefs := client.NewFileStore(*dataDir, store)
	prefs.Debug = *debugMode

	cfg := client.Config{
		APIURL:      *apiURL,
		Timeout:     *timeout,
		Prefs:       prefs,
		Location:    loc,
		Live:        *liveMode,
		PrefersDark: lipgloss.HasDarkBackground,
		Debug:       *debugMode,
	}
	if *authJWKSURL != "" {
		cfg.Validator = client.NewJWKSValidator(*authJWKSURL)
	}
	app, err := client.NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to configure client: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	app.Start(ctx)
	defer app.Close()

	m := tui.New(ctx, app)
	defer m.Close()
	m.StartAt(start)

	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "betbot: %v\n", err)
		os.Exit(1)
	}
}
