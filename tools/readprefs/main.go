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

// readprefs dumps stored client preferences or devserver accounts as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jbarkie/betbot/client"
	"github.com/jbarkie/betbot/devserver"
)

var (
	dataDir = flag.String("data-dir", "", "Data directory (default: the client's)")
)

func main() {
	flag.Parse()
	dir := *dataDir
	if dir == "" {
		d, err := client.DefaultDataDir()
		if err != nil {
			log.Fatalf("No data directory: %v", err)
		}
		dir = d
	}
	store, err := client.OpenStorage(dir, os.Getenv("BETBOT_MASTER_KEY"))
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	args := flag.Args()
	if len(args) == 0 {
		args = []string{client.PrefFilename(client.TokenKey), client.PrefFilename(client.ThemeKey)}
	}
	for _, arg := range args {
		arg = strings.TrimPrefix(strings.TrimPrefix(arg, dir), "/")
		var obj any
		if strings.HasPrefix(arg, "users") {
			obj = new(devserver.User)
		} else {
			obj = new(client.PrefRecord)
		}
		if err := store.ReadDataFile(arg, obj); err != nil {
			log.Printf("%s: %v", arg, err)
			continue
		}
		if u, ok := obj.(*devserver.User); ok {
			u.PasswordHash = nil
		}
		fmt.Printf("=========== %s ===========\n", arg)
		if err := enc.Encode(obj); err != nil {
			log.Printf("JSON: %s: %v", arg, err)
		}
	}
}
