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
	"errors"
	"os"
	"testing"
)

func TestOpenStorage(t *testing.T) {
	dataDir, err := os.MkdirTemp("", "storage_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dataDir)

	s, err := OpenStorage(dataDir, "hunter22")
	if err != nil {
		t.Fatalf("OpenStorage: %v", err)
	}
	if err := NewFileStore(dataDir, s).Set(TokenKey, "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	s2, err := OpenStorage(dataDir, "hunter22")
	if err != nil {
		t.Fatalf("OpenStorage(reopen): %v", err)
	}
	if v, _ := NewFileStore(dataDir, s2).Get(TokenKey); v != "abc" {
		t.Errorf("Reopened token = %q, want abc", v)
	}

	if _, err := OpenStorage(dataDir, ""); !errors.Is(err, ErrUnencryptedKeyFile) {
		t.Errorf("OpenStorage without passphrase = %v", err)
	}
	if _, err := OpenStorage(dataDir, "wrong"); err == nil {
		t.Error("OpenStorage accepted a wrong passphrase")
	}
}
