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
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
)

// MasterKeyFile is the name of the encrypted master key in a data directory.
const MasterKeyFile = "master.key"

// ErrUnencryptedKeyFile is returned by OpenStorage when a master key exists
// but no passphrase was given.
var ErrUnencryptedKeyFile = errors.New("master key exists but no passphrase was provided")

// DefaultDataDir returns the per-user directory for preferences.
func DefaultDataDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "betbot"), nil
}

// OpenStorage opens dataDir with the master key protected by passphrase,
// creating the key on first use. An empty passphrase opens the directory
// unencrypted, unless a key file is already there.
func OpenStorage(dataDir, passphrase string) (*storage.Storage, error) {
	keyFile := filepath.Join(dataDir, MasterKeyFile)
	if passphrase == "" {
		if _, err := os.Stat(keyFile); err == nil {
			return nil, fmt.Errorf("%s: %w", keyFile, ErrUnencryptedKeyFile)
		}
		log.Println("Warning: No master key passphrase provided. Data will be stored UNENCRYPTED.")
		return storage.New(dataDir, nil), nil
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}
	masterKey, err := crypto.ReadMasterKey([]byte(passphrase), keyFile)
	switch {
	case err == nil:
		log.Println("Loaded master encryption key.")
	case os.IsNotExist(err):
		log.Println("Initializing new master encryption key...")
		if masterKey, err = crypto.CreateMasterKey(); err != nil {
			return nil, fmt.Errorf("create master key: %w", err)
		}
		if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
			return nil, fmt.Errorf("save master key: %w", err)
		}
	default:
		return nil, fmt.Errorf("read master key: %w", err)
	}
	return storage.New(dataDir, masterKey), nil
}
