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

package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/httpwrap/internal/commands/shared"
	"github.com/tombee/httpwrap/pkg/settings"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	shared.ResetFlags()
	restore := settings.Swap(settings.Default())
	t.Cleanup(func() {
		restore()
		shared.ResetFlags()
	})

	root := &cobra.Command{Use: "httpwrap", SilenceUsage: true, SilenceErrors: true}
	shared.RegisterFlags(root.PersistentFlags())
	root.AddCommand(NewCommand())

	var stdout bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"batch"}, args...))

	err := root.Execute()
	return stdout.String(), err
}

func newServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	t.Setenv(settings.EnvAllowInternalAccess, "true")

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// batchFile writes one internal-access entry per path.
func batchFile(t *testing.T, base string, paths ...string) string {
	t.Helper()

	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "- method: get\n  url: %s%s\n  allow_internal: true\n  options:\n    timeout: 5\n", base, p)
	}
	path := filepath.Join(t.TempDir(), "requests.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0600))
	return path
}

func TestBatch_Sequential(t *testing.T) {
	srv, hits := newServer(t)
	path := batchFile(t, srv.URL, "/a", "/b", "/c")

	out, err := execute(t, "", path, "--chunk", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for i, p := range []string{"/a", "/b", "/c"} {
		assert.Contains(t, lines[i], "GET")
		assert.Contains(t, lines[i], srv.URL+p)
		assert.Contains(t, lines[i], "200 OK")
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestBatch_Async(t *testing.T) {
	srv, hits := newServer(t)
	path := batchFile(t, srv.URL, "/a", "/b", "/c", "/d")

	out, err := execute(t, "", path, "--async", "--chunk", "3", "--json")
	require.NoError(t, err)

	var resp struct {
		Success   bool                  `json:"success"`
		Responses []shared.ResponseView `json:"responses"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Responses, 4)
	for i, p := range []string{"/a", "/b", "/c", "/d"} {
		assert.Equal(t, http.StatusOK, resp.Responses[i].Status)
		assert.Equal(t, srv.URL+p, resp.Responses[i].URL, "results keep input order")
	}
	assert.Equal(t, int32(4), hits.Load())
}

func TestBatch_Stdin(t *testing.T) {
	srv, _ := newServer(t)
	data, err := os.ReadFile(batchFile(t, srv.URL, "/a"))
	require.NoError(t, err)

	out, err := execute(t, string(data), "-")
	require.NoError(t, err)
	assert.Contains(t, out, srv.URL+"/a")
}

func TestBatch_InvalidEntrySendsNothing(t *testing.T) {
	srv, hits := newServer(t)

	content := fmt.Sprintf("- method: get\n  url: %s/a\n  allow_internal: true\n- method: get\n  url: %s/b\n", srv.URL, srv.URL)
	path := filepath.Join(t.TempDir(), "requests.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	_, err := execute(t, "", path)
	require.Error(t, err)
	assert.Equal(t, shared.ExitPolicyViolation, shared.ExitCode(err))
	assert.Contains(t, err.Error(), "entry 2")
	assert.Zero(t, hits.Load())
}

func TestBatch_HTTPErrorIsAResponse(t *testing.T) {
	srv, _ := newServer(t)
	path := batchFile(t, srv.URL, "/a", "/fail")

	out, err := execute(t, "", path)
	require.NoError(t, err)
	assert.Contains(t, out, "503 Service Unavailable")
}

func TestBatch_InvalidInput(t *testing.T) {
	srv, _ := newServer(t)
	valid := batchFile(t, srv.URL, "/a")

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("[]\n"), 0600))

	notList := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(notList, []byte("method: get\n"), 0600))

	unknownKey := filepath.Join(t.TempDir(), "unknown.yaml")
	require.NoError(t, os.WriteFile(unknownKey, []byte("- method: get\n  url: https://1.1.1.1/\n  retries: 3\n"), 0600))

	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{filepath.Join(t.TempDir(), "nope.yaml")}},
		{"empty list", []string{empty}},
		{"not a list", []string{notList}},
		{"unknown key", []string{unknownKey}},
		{"zero chunk", []string{valid, "--chunk", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, shared.ExitInvalidInput, shared.ExitCode(err))
		})
	}
}
