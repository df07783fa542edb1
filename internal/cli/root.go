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

package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/httpwrap/internal/commands/batch"
	"github.com/tombee/httpwrap/internal/commands/config"
	"github.com/tombee/httpwrap/internal/commands/request"
	"github.com/tombee/httpwrap/internal/commands/shared"
	"github.com/tombee/httpwrap/internal/commands/version"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for httpwrap with every
// subcommand registered.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "httpwrap",
		Short: "httpwrap - policy-checked HTTP requests",
		Long: `httpwrap sends HTTP requests through a security policy. Every request
is checked for a valid URL and scheme, internal and private addresses,
trusted hosts and unsafe cross-domain redirects before and after it is
sent. Sensitive headers are redacted in all output.

Settings are read from ~/.config/httpwrap/settings.yaml and HTTPWRAP_*
environment variables. Run 'httpwrap settings' to see what is in effect.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	shared.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(request.NewCommand())
	cmd.AddCommand(batch.NewCommand())
	cmd.AddCommand(config.NewSettingsCommand())
	cmd.AddCommand(version.NewVersionCommand())

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError prints err to w and returns the process exit code.
func HandleExitError(w io.Writer, err error) int {
	return shared.HandleExitError(w, err)
}
