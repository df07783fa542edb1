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

package shared

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tombee/httpwrap/pkg/settings"
)

// DefaultSettingsPath is read when --config is not given and the file exists.
const DefaultSettingsPath = settings.DefaultPath

// SettingsPath returns the settings file commands should read, or "" when
// there is none.
func SettingsPath() string {
	if path := GetConfigPath(); path != "" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, strings.TrimPrefix(DefaultSettingsPath, "~/"))
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// LoadSettings replaces the process-wide settings with the defaults, the
// settings file and the environment, in that order of precedence.
func LoadSettings() error {
	opts, err := settings.Sources(SettingsPath())
	if err != nil {
		return NewInvalidInputError("loading settings", err)
	}
	if err := settings.DefaultStore().Load(opts...); err != nil {
		return NewInvalidInputError("applying settings", err)
	}
	return nil
}
