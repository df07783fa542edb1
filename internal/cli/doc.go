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

/*
Package cli provides the root command for the httpwrap CLI.

This package creates the Cobra command tree and handles global concerns like
version information, persistent flags and exit codes. Individual commands
are implemented in the internal/commands subpackages.

# Command Tree

	httpwrap
	├── request       Send one policy-checked request
	├── batch         Send a YAML list of requests in chunks
	├── settings      Show, validate and watch settings
	│   ├── show
	│   ├── path
	│   ├── validate
	│   └── watch
	├── version       Show version
	└── help          Show help

# Usage

From main.go:

	cli.SetVersion(version, commit, date)
	rootCmd := cli.NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
	    os.Exit(cli.HandleExitError(os.Stderr, err))
	}

# Global Flags

	--verbose, -v    Enable debug logging
	--quiet, -q      Suppress non-error output
	--json           Output in JSON format
	--config         Path to settings file
	--trace          Write request spans to stderr
	--metrics        Write Prometheus metrics to stderr on exit

# Exit Codes

  - Exit 0: Success
  - Exit 1: Request failed (transport, resolution)
  - Exit 2: Invalid input or settings
  - Exit 3: Policy violation or unsafe redirect
  - Exit 4: HTTP error status with --raise
*/
package cli
