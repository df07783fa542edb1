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

// Package config implements the settings command.
package config

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/httpwrap/internal/commands/shared"
	"github.com/tombee/httpwrap/internal/log"
	"github.com/tombee/httpwrap/pkg/security"
	"github.com/tombee/httpwrap/pkg/settings"
)

// settingsView is the printable form of settings.Settings.
type settingsView struct {
	DefaultTimeout      string               `yaml:"default_timeout" json:"default_timeout"`
	AllowInternalAccess bool                 `yaml:"allow_internal_access" json:"allow_internal_access"`
	RedirectEnabled     bool                 `yaml:"redirect_enabled" json:"redirect_enabled"`
	AllowCrossDomain    bool                 `yaml:"allow_cross_domain" json:"allow_cross_domain"`
	EnforceTrustedHosts bool                 `yaml:"enforce_trusted_hosts" json:"enforce_trusted_hosts"`
	TrustedDomains      []string             `yaml:"trusted_domains" json:"trusted_domains"`
	Redact              security.RedactRules `yaml:"redact" json:"redact"`
}

func viewOf(s *settings.Settings) settingsView {
	return settingsView{
		DefaultTimeout:      s.DefaultTimeout.String(),
		AllowInternalAccess: s.AllowInternalAccess,
		RedirectEnabled:     s.RedirectEnabled,
		AllowCrossDomain:    s.AllowCrossDomain,
		EnforceTrustedHosts: s.EnforceTrustedHosts,
		TrustedDomains:      slices.Clone(s.TrustedDomains),
		Redact:              s.Redact.Clone(),
	}
}

// NewSettingsCommand creates the settings command with subcommands
func NewSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "View and validate request policy settings",
		Long: `View and validate the settings applied to every request.

Settings come from the defaults, then the settings file, then HTTPWRAP_*
environment variables.

Subcommands:
  show     - Display the effective settings
  path     - Show the settings file location
  validate - Check a settings file
  watch    - Print the settings every time the file changes`,
	}

	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newPathCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newWatchCommand())

	// If no subcommand provided, default to 'show'
	cmd.RunE = runShow

	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective settings",
		Long: `Display the settings requests would use right now.

Use --json for machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: runShow,
	}
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show the settings file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := shared.SettingsPath()
			if path == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "no settings file (looked for %s)\n", shared.DefaultSettingsPath)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	if err := shared.LoadSettings(); err != nil {
		return err
	}
	return writeSettings(cmd.OutOrStdout(), shared.SettingsPath(), settings.Get())
}

// writeSettings prints s as YAML, or as a JSON envelope with --json.
func writeSettings(w io.Writer, source string, s *settings.Settings) error {
	view := viewOf(s)

	if shared.GetJSON() {
		return shared.EmitJSON(w, struct {
			shared.JSONResponse
			Source   string       `json:"source,omitempty"`
			Settings settingsView `json:"settings"`
		}{
			JSONResponse: shared.JSONResponse{Version: "1.0", Command: "settings", Success: true},
			Source:       source,
			Settings:     view,
		})
	}

	if source != "" && !shared.GetQuiet() {
		fmt.Fprintf(w, "# source: %s\n", source)
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(view); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return encoder.Close()
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Check a settings file",
		Long: `Check that a settings file parses, has no unknown keys and produces
valid settings. Without FILE the active settings file is checked.`,
		Example: `  # Validate a file
  httpwrap settings validate ./settings.yaml

  # Get the result as JSON
  httpwrap settings validate --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := shared.SettingsPath()
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return shared.NewInvalidInputError("no settings file to validate", nil)
	}

	opts, err := settings.LoadFile(path)
	if err == nil {
		err = settings.NewStore().Configure(opts...)
	}
	if err != nil {
		if shared.GetJSON() {
			_ = shared.EmitJSONError(cmd.OutOrStdout(), "settings validate", err)
		}
		return shared.NewInvalidInputError("invalid settings file "+path, err)
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), shared.JSONResponse{
			Version: "1.0",
			Command: "settings validate",
			Success: true,
		})
	}
	if !shared.GetQuiet() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
	}
	return nil
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the settings every time the file changes",
		Long: `Watch the settings file and print the effective settings after every
successful reload. Invalid edits are reported and ignored. Stops on
interrupt.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := shared.SettingsPath()
	if path == "" {
		return shared.NewInvalidInputError("no settings file to watch", nil)
	}
	if err := shared.LoadSettings(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := writeSettings(out, path, settings.Get()); err != nil {
		return err
	}

	logCfg := log.FromEnv()
	logCfg.Output = cmd.ErrOrStderr()
	logger := log.WithComponent(log.New(logCfg), "settings")

	err := settings.Watch(cmd.Context(), settings.DefaultStore(), path, logger, func(s *settings.Settings) {
		if err := writeSettings(out, path, s); err != nil {
			logger.Warn("failed to print settings", log.Error(err))
		}
	})
	if err != nil {
		return shared.NewInvalidInputError("watching settings", err)
	}
	return nil
}
