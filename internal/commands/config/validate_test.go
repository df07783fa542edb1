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

package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tombee/httpwrap/internal/commands/shared"
)

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantErr  bool
		wantText string
	}{
		{
			name:     "valid file",
			content:  "default_timeout: 30\ntrusted_domains: [example.com]\n",
			wantText: "is valid",
		},
		{
			name:     "empty file",
			content:  "",
			wantText: "is valid",
		},
		{
			name:    "unknown key",
			content: "timeout: 5s\n",
			wantErr: true,
		},
		{
			name:    "bad timeout",
			content: "default_timeout: soon\n",
			wantErr: true,
		},
		{
			name:    "non-positive timeout",
			content: "default_timeout: 0s\n",
			wantErr: true,
		},
		{
			name:    "empty trusted domain",
			content: "trusted_domains: [\"\"]\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSettingsFile(t, tt.content)

			out, err := execute(t, "validate", path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got output:\n%s", out)
				}
				if code := shared.ExitCode(err); code != shared.ExitInvalidInput {
					t.Errorf("exit code = %d, want %d", code, shared.ExitInvalidInput)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out, tt.wantText) {
				t.Errorf("output %q does not contain %q", out, tt.wantText)
			}
		})
	}
}

func TestSettingsValidate_UsesConfigFlag(t *testing.T) {
	path := writeSettingsFile(t, "allow_internal_access: true\n")

	out, err := execute(t, "validate", "--config", path)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("output should name the file, got %q", out)
	}
}

func TestSettingsValidate_JSONFailure(t *testing.T) {
	path := writeSettingsFile(t, "redirect_enabled: maybe\n")

	out, err := execute(t, "validate", "--json", path)
	if err == nil {
		t.Fatal("expected error")
	}

	var resp struct {
		Success bool               `json:"success"`
		Errors  []shared.JSONError `json:"errors"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if resp.Success {
		t.Error("success should be false")
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Type != "config" {
		t.Errorf("errors = %+v, want one config error", resp.Errors)
	}
}
