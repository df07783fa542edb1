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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
	"github.com/tombee/httpwrap/pkg/security"
)

func TestStore_Load(t *testing.T) {
	resolver := security.NewCachingResolver(nil, time.Minute)
	store := NewStore()
	require.NoError(t, store.Configure(WithResolver(resolver), WithTrustedDomains("stale.example")))

	require.NoError(t, store.Load(WithAllowCrossDomain(true)))

	got := store.Get()
	assert.True(t, got.AllowCrossDomain)
	assert.Empty(t, got.TrustedDomains)
	assert.Same(t, resolver, got.Resolver)

	err := store.Load(WithDefaultTimeout(-time.Second))
	var configErr *wraperrors.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.True(t, store.Get().AllowCrossDomain)
}

func TestSources_EnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("allow_cross_domain: true\nredirect_enabled: false\n"), 0o600))
	t.Setenv(EnvAllowCrossDomain, "false")

	opts, err := Sources(path)
	require.NoError(t, err)

	store := NewStore()
	require.NoError(t, store.Configure(opts...))
	got := store.Get()
	assert.False(t, got.AllowCrossDomain)
	assert.False(t, got.RedirectEnabled)

	opts, err = Sources("")
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}

// writeFileAtomic replaces path through a rename so no reader sees a
// partially written file.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// startWatch runs Watch in the background and waits until it has applied
// content written to path. The returned function stops the watcher.
func startWatch(t *testing.T, store *Store, path, content string, ready func(*Settings) bool) (<-chan *Settings, func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan *Settings, 64)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, store, path, nil, func(s *Settings) {
			select {
			case changes <- s:
			default:
			}
		})
	}()

	// The watcher starts asynchronously, so rewrite until it reacts. The
	// tick is longer than the reload delay so each write gets to settle.
	require.Eventually(t, func() bool {
		if ready(store.Get()) {
			return true
		}
		_ = writeFileAtomic(path, []byte(content))
		return false
	}, 5*time.Second, 4*reloadDelay)

	stop := func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not stop")
		}
	}
	t.Cleanup(cancel)
	return changes, stop
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("allow_cross_domain: false\n"), 0o600))

	resolver := security.NewCachingResolver(nil, time.Minute)
	store := NewStore()
	require.NoError(t, store.Configure(WithResolver(resolver), WithTrustedDomains("stale.example")))

	changes, stop := startWatch(t, store, path,
		"allow_cross_domain: true\ntrusted_domains: [api.example.com]\n",
		func(s *Settings) bool { return s.AllowCrossDomain && len(s.TrustedDomains) == 1 })

	got := store.Get()
	assert.Equal(t, []string{"api.example.com"}, got.TrustedDomains)
	assert.Same(t, resolver, got.Resolver)
	assert.NotEmpty(t, changes)

	require.NoError(t, os.WriteFile(path, []byte("default_timeout: nope\n"), 0o600))
	time.Sleep(5 * reloadDelay)
	assert.True(t, store.Get().AllowCrossDomain)
	assert.Equal(t, []string{"api.example.com"}, store.Get().TrustedDomains)

	stop()
}

func TestWatch_EmptyFileKeepsSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redirect_enabled: true\n"), 0o600))

	store := NewStore()
	_, stop := startWatch(t, store, path, "allow_cross_domain: true\n",
		func(s *Settings) bool { return s.AllowCrossDomain })

	// A truncating writer leaves the file empty before the new content lands.
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	time.Sleep(5 * reloadDelay)
	assert.True(t, store.Get().AllowCrossDomain)

	require.NoError(t, os.WriteFile(path, []byte("allow_cross_domain: true\nredirect_enabled: false\n"), 0o600))
	require.Eventually(t, func() bool {
		return !store.Get().RedirectEnabled
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, store.Get().AllowCrossDomain)

	stop()
}

func TestWatch_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "settings.yaml")

	err := Watch(context.Background(), NewStore(), path, nil, nil)
	var configErr *wraperrors.ConfigError
	require.ErrorAs(t, err, &configErr)
}
