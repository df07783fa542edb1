// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package settings

import (
	"sync"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

// Store holds the current Settings. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	current *Settings
}

// NewStore creates a store holding the default settings.
func NewStore() *Store {
	return &Store{current: Default()}
}

// Get returns a deep copy of the current settings.
func (st *Store) Get() *Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current.Clone()
}

// Configure applies opts to a copy of the current settings and commits the
// result if it validates. On error the store is left unchanged.
func (st *Store) Configure(opts ...Option) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.commit(st.current.Clone(), opts)
}

// Load replaces the settings with the defaults plus opts. The resolver in
// use is kept. On error the store is left unchanged.
func (st *Store) Load(opts ...Option) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	next := Default()
	next.Resolver = st.current.Resolver
	return st.commit(next, opts)
}

// commit applies opts to next and installs it if it validates. The caller
// holds st.mu.
func (st *Store) commit(next *Settings, opts []Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(next); err != nil {
			return asConfigError(err)
		}
	}
	if err := next.Validate(); err != nil {
		return asConfigError(err)
	}

	st.current = next
	return nil
}

// Reset restores the default settings.
func (st *Store) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.current = Default()
}

// Swap replaces the settings wholesale and returns a function restoring the
// previous value. A nil s installs the defaults. Intended for tests:
//
//	restore := store.Swap(custom)
//	defer restore()
func (st *Store) Swap(s *Settings) (restore func()) {
	if s == nil {
		s = Default()
	}

	st.mu.Lock()
	previous := st.current
	st.current = s.Clone()
	st.mu.Unlock()

	return func() {
		st.mu.Lock()
		st.current = previous
		st.mu.Unlock()
	}
}

func asConfigError(err error) error {
	var configErr *wraperrors.ConfigError
	if wraperrors.As(err, &configErr) {
		return err
	}
	return &wraperrors.ConfigError{Reason: err.Error(), Cause: err}
}

var defaultStore = NewStore()

// DefaultStore returns the process-wide store used by the package-level
// functions.
func DefaultStore() *Store {
	return defaultStore
}

// Configure updates the process-wide settings.
func Configure(opts ...Option) error {
	return defaultStore.Configure(opts...)
}

// Get returns a copy of the process-wide settings.
func Get() *Settings {
	return defaultStore.Get()
}

// Reset restores the process-wide defaults.
func Reset() {
	defaultStore.Reset()
}

// Swap replaces the process-wide settings and returns a restore function.
func Swap(s *Settings) (restore func()) {
	return defaultStore.Swap(s)
}
