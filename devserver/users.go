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
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/bcrypt"
)

// ErrUserExists is returned by Create when the username is taken.
var ErrUserExists = errors.New("user already exists")

// ErrBadCredentials is returned by Authenticate.
var ErrBadCredentials = errors.New("invalid username or password")

// User is an account record. PasswordHash never leaves the server.
type User struct {
	Username                  string `json:"username"`
	FirstName                 string `json:"first_name"`
	LastName                  string `json:"last_name"`
	Email                     string `json:"email"`
	PasswordHash              []byte `json:"passwordHash"`
	EmailNotificationsEnabled bool   `json:"email_notifications_enabled"`
	CreatedAt                 int64  `json:"createdAt"`
}

// Profile is the public view returned by /users/me.
type Profile struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Disabled  bool   `json:"disabled"`
}

// Profile returns the public fields of u.
func (u *User) Profile() Profile {
	return Profile{Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

// UserStore persists accounts in c2FmZQ storage with a small read cache.
type UserStore struct {
	DataDir string
	storage *storage.Storage
	cache   *lru.Cache[string, *User]
	cost    int

	mu sync.Mutex
}

// NewUserStore creates a UserStore. cost is the bcrypt cost; 0 means
// bcrypt.DefaultCost.
func NewUserStore(dataDir string, s *storage.Storage, cost int) *UserStore {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	cache, _ := lru.New[string, *User](256)
	return &UserStore{
		DataDir: dataDir,
		storage: s,
		cache:   cache,
		cost:    cost,
	}
}

func normalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

func userFilename(username string) string {
	return filepath.Join("users", url.PathEscape(normalizeUsername(username))+".json")
}

// Get loads a user. It returns an error satisfying os.IsNotExist when the
// account does not exist.
func (us *UserStore) Get(username string) (*User, error) {
	key := normalizeUsername(username)
	if u, ok := us.cache.Get(key); ok {
		c := *u
		return &c, nil
	}
	var u User
	if err := us.storage.ReadDataFile(userFilename(key), &u); err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	us.cache.Add(key, &u)
	c := u
	return &c, nil
}

func (us *UserStore) save(u *User) error {
	key := normalizeUsername(u.Username)
	if err := us.storage.SaveDataFile(userFilename(key), u); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	c := *u
	us.cache.Add(key, &c)
	return nil
}

// Create registers a new account.
func (us *UserStore) Create(u User, password string) (*User, error) {
	if normalizeUsername(u.Username) == "" {
		return nil, errors.New("username is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), us.cost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt: %w", err)
	}

	us.mu.Lock()
	defer us.mu.Unlock()
	if _, err := us.Get(u.Username); err == nil {
		return nil, ErrUserExists
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	u.Username = strings.TrimSpace(u.Username)
	u.PasswordHash = hash
	u.CreatedAt = time.Now().UnixNano()
	if err := us.save(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate checks a username and password.
func (us *UserStore) Authenticate(username, password string) (*User, error) {
	u, err := us.Get(username)
	if os.IsNotExist(err) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// SettingsUpdate holds the optional fields of POST /settings.
type SettingsUpdate struct {
	Username                  *string `json:"username"`
	Email                     *string `json:"email"`
	Password                  *string `json:"password"`
	EmailNotificationsEnabled *bool   `json:"email_notifications_enabled"`
}

// Update applies s to the account. Renaming moves the record; the old name
// becomes free.
func (us *UserStore) Update(username string, s SettingsUpdate) (*User, error) {
	us.mu.Lock()
	defer us.mu.Unlock()

	u, err := us.Get(username)
	if err != nil {
		return nil, err
	}
	if s.Email != nil && *s.Email != "" {
		u.Email = strings.TrimSpace(*s.Email)
	}
	if s.EmailNotificationsEnabled != nil {
		u.EmailNotificationsEnabled = *s.EmailNotificationsEnabled
	}
	if s.Password != nil && *s.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*s.Password), us.cost)
		if err != nil {
			return nil, fmt.Errorf("bcrypt: %w", err)
		}
		u.PasswordHash = hash
	}
	oldKey := normalizeUsername(u.Username)
	if s.Username != nil && *s.Username != "" && normalizeUsername(*s.Username) != oldKey {
		if _, err := us.Get(*s.Username); err == nil {
			return nil, ErrUserExists
		} else if !os.IsNotExist(err) {
			return nil, err
		}
		u.Username = strings.TrimSpace(*s.Username)
	}
	if err := us.save(u); err != nil {
		return nil, err
	}
	if normalizeUsername(u.Username) != oldKey {
		us.cache.Remove(oldKey)
		if err := os.Remove(filepath.Join(us.DataDir, userFilename(oldKey))); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	return u, nil
}
