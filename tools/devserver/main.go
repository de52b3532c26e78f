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

// devserver runs a local odds backend for development and demos.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jbarkie/betbot/client"
	"github.com/jbarkie/betbot/devserver"
	"github.com/joho/godotenv"
)

var (
	addr          = flag.String("addr", ":8000", "The TCP address to listen to")
	dataDir       = flag.String("data-dir", "devdata", "Directory for user accounts")
	debugMode     = flag.Bool("debug", false, "Enable debug mode")
	tokenTTL      = flag.Duration("token-ttl", 30*time.Minute, "Lifetime of issued access tokens")
	timezone      = flag.String("timezone", "America/New_York", "Time zone that decides today's slate")
	driftInterval = flag.Duration("drift", 20*time.Second, "How often a line moves on today's slates; 0 disables")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Fatalf("Invalid --timezone: %v", err)
	}
	store, err := client.OpenStorage(*dataDir, os.Getenv("BETBOT_DEVSERVER_MASTER_KEY"))
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	store.EnableCompression(true)

	server, err := devserver.StartServer(devserver.Options{
		Addr:          *addr,
		DataDir:       *dataDir,
		Storage:       store,
		Debug:         *debugMode,
		TokenTTL:      *tokenTTL,
		Location:      loc,
		DriftInterval: *driftInterval,
	})
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	} else {
		log.Println("Gracefully stopped.")
	}
}
