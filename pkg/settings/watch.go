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
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

// DefaultPath is the settings file read when no path is given.
const DefaultPath = "~/.config/httpwrap/settings.yaml"

// reloadDelay is how long the file must be quiet before it is reloaded.
const reloadDelay = 100 * time.Millisecond

// Sources returns the options described by the settings file at path
// followed by those from the environment, so environment variables win.
// An empty path skips the file.
func Sources(path string) ([]Option, error) {
	var opts []Option
	if path != "" {
		fileOpts, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fileOpts...)
	}

	envOpts, err := FromEnv()
	if err != nil {
		return nil, err
	}
	return append(opts, envOpts...), nil
}

// Watch reloads store from the file at path and the environment every time
// the file is written or replaced, until ctx is done. A reload that fails is
// logged and the previous settings stay in force. onChange, if non-nil, is
// called with each newly installed snapshot.
//
// The parent directory is watched so that editors which replace the file
// on save are seen. Events are coalesced until the file has been quiet for
// a short delay, and an empty file is treated as a write still in progress.
func Watch(ctx context.Context, store *Store, path string, logger *slog.Logger, onChange func(*Settings)) error {
	if logger == nil {
		logger = slog.Default()
	}

	absPath, err := expandPath(path)
	if err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return &wraperrors.ConfigError{Reason: "failed to create settings watcher", Cause: err}
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		return &wraperrors.ConfigError{Key: absPath, Reason: "failed to watch settings directory", Cause: err}
	}

	logger = logger.With(slog.String("component", "settings"), slog.String("path", absPath))
	logger.Debug("settings watcher started")

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("settings watcher stopped")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			if info, err := os.Stat(absPath); err == nil && info.Size() == 0 {
				logger.Debug("settings file is empty, keeping current settings")
				continue
			}
			if err := reload(store, absPath); err != nil {
				logger.Warn("settings reload failed", slog.Any("error", err))
				continue
			}
			logger.Info("settings reloaded")
			if onChange != nil {
				onChange(store.Get())
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("settings watcher error", slog.Any("error", err))
		}
	}
}

func reload(store *Store, path string) error {
	opts, err := Sources(path)
	if err != nil {
		return err
	}
	return store.Load(opts...)
}
