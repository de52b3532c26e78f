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
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
)

// Well-known preference keys.
const (
	TokenKey = "token"
	ThemeKey = "theme"
)

// PrefStore persists small string preferences. The Session is the only
// writer of TokenKey; everything else only reads it.
type PrefStore interface {
	// Get returns "" and a nil error when the key is absent.
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// PrefRecord is the on-disk form of one preference.
type PrefRecord struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updatedAt"`
	// DeletedAt marks a tombstone (Unix Nano).
	DeletedAt int64 `json:"deletedAt,omitempty"`
}

// PrefFilename returns the storage-relative path of a preference.
func PrefFilename(key string) string {
	return filepath.Join("prefs", fmt.Sprintf("%s.json", url.PathEscape(key)))
}

// FileStore keeps preferences in a c2FmZQ storage directory, encrypted when
// the storage was opened with a master key.
type FileStore struct {
	DataDir string
	Debug   bool
	storage *storage.Storage

	mu    sync.Mutex
	cache map[string]string
}

// NewFileStore creates a FileStore on top of s.
func NewFileStore(dataDir string, s *storage.Storage) *FileStore {
	return &FileStore{
		DataDir: dataDir,
		storage: s,
		cache:   make(map[string]string),
	}
}

// Get returns the stored value for key.
func (fs *FileStore) Get(key string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if v, ok := fs.cache[key]; ok {
		if fs.Debug {
			log.Printf("[PREFS] Cache hit for %s", key)
		}
		return v, nil
	}

	var rec PrefRecord
	if err := fs.storage.ReadDataFile(PrefFilename(key), &rec); err != nil {
		if os.IsNotExist(err) {
			fs.cache[key] = ""
			return "", nil
		}
		return "", fmt.Errorf("ReadDataFile: %w", err)
	}
	v := rec.Value
	if rec.DeletedAt != 0 {
		v = ""
	}
	fs.cache[key] = v
	return v, nil
}

// Set stores value under key.
func (fs *FileStore) Set(key, value string) error {
	return fs.write(PrefRecord{Key: key, Value: value, UpdatedAt: time.Now().UnixNano()})
}

// Delete overwrites key with a tombstone.
func (fs *FileStore) Delete(key string) error {
	now := time.Now().UnixNano()
	return fs.write(PrefRecord{Key: key, UpdatedAt: now, DeletedAt: now})
}

func (fs *FileStore) write(rec PrefRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.storage.SaveDataFile(PrefFilename(rec.Key), &rec); err != nil {
		delete(fs.cache, rec.Key)
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	fs.cache[rec.Key] = rec.Value
	return nil
}

// MemoryStore is an in-process PrefStore.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
