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
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// CLI style colors using lipgloss
var (
	// StatusOK styles 2xx statuses and success indicators
	StatusOK = lipgloss.NewStyle().Foreground(lipgloss.Color("42")) // green

	// StatusWarn styles 3xx statuses
	StatusWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange

	// StatusError styles 4xx/5xx statuses and failures
	StatusError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red

	// Muted styles secondary text such as header names
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
)

// colorEnabled is resolved once per process.
var colorEnabled = isTTY()

// isTTY reports whether stdout is a colour-capable terminal.
// Returns false if stdout is piped, NO_COLOR is set, or TERM is "dumb" or empty.
func isTTY() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	termEnv := os.Getenv("TERM")
	if termEnv == "dumb" || termEnv == "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// render applies style when colour output is enabled.
func render(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

// RenderStatusLine renders "200 OK" coloured by status class.
func RenderStatusLine(code int, reason string) string {
	text := strconv.Itoa(code)
	if reason != "" {
		text += " " + reason
	}

	switch {
	case code >= 400:
		return render(StatusError, text)
	case code >= 300:
		return render(StatusWarn, text)
	default:
		return render(StatusOK, text)
	}
}

// RenderLabel renders a dim label (for key: value pairs)
func RenderLabel(label string) string {
	return render(Muted, label)
}

// RenderError renders an error marker followed by msg
func RenderError(msg string) string {
	return render(StatusError, "✗") + " " + msg
}
