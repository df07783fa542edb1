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

// Package batch implements the batch command.
package batch

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/httpwrap/internal/commands/shared"
	"github.com/tombee/httpwrap/internal/log"
	wraperrors "github.com/tombee/httpwrap/pkg/errors"
	"github.com/tombee/httpwrap/pkg/httpclient"
	httpreq "github.com/tombee/httpwrap/pkg/request"
	"github.com/tombee/httpwrap/pkg/response"
)

// DefaultChunk is the number of requests sent together by default.
const DefaultChunk = 5

// NewCommand creates the batch command.
func NewCommand() *cobra.Command {
	var (
		chunk int
		async bool
	)

	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Send a list of requests in chunks",
		Long: `Send the requests listed in a YAML file, chunk by chunk.

Each entry has the keys method, url, options and allow_internal, where
options may set headers, params, json, timeout, allow_redirects, verify
and cookies. Every entry is validated before the first request is sent.

Requests in a chunk run one after another, or concurrently with --async.
The first failure stops the batch. Use - to read the list from stdin.`,
		Example: `  # requests.yaml
  - method: get
    url: https://api.example.com/users/1
  - method: post
    url: https://api.example.com/users
    options:
      json: {name: alice}
      timeout: 10

  httpwrap batch requests.yaml --async --chunk 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], chunk, async)
		},
	}

	cmd.Flags().IntVar(&chunk, "chunk", DefaultChunk, "Number of requests per chunk")
	cmd.Flags().BoolVar(&async, "async", false, "Send the requests of a chunk concurrently")

	return cmd
}

func run(cmd *cobra.Command, path string, chunk int, async bool) (err error) {
	entries, err := readEntries(path, cmd.InOrStdin())
	if err != nil {
		return fail(cmd, shared.NewInvalidInputError("reading batch file", err))
	}

	rt, err := shared.NewRuntime(cmd)
	if err != nil {
		return fail(cmd, err)
	}
	defer func() {
		if closeErr := rt.Close(context.WithoutCancel(cmd.Context())); closeErr != nil && err == nil {
			rt.Logger.Warn("failed to close runtime", log.Error(closeErr))
		}
	}()

	ctx := cmd.Context()
	snapshot := rt.Client.Settings()
	cfgs := make([]*httpreq.Config, 0, len(entries))
	for i, entry := range entries {
		cfg, err := httpreq.FromMap(ctx, entry, httpreq.WithSettings(snapshot))
		if err != nil {
			return fail(cmd, shared.Classify(fmt.Sprintf("entry %d is invalid", i+1), err))
		}
		cfgs = append(cfgs, cfg)
	}

	var results iter.Seq2[[]*response.Response, error]
	if async {
		results = rt.Async.Requests(ctx, cfgs, chunk)
	} else {
		results = rt.Client.Requests(ctx, cfgs, chunk)
	}

	out := cmd.OutOrStdout()
	var views []shared.ResponseView
	sent, index := 0, 0
	for batch, err := range results {
		logger := log.WithBatch(rt.Logger, index)
		if err != nil {
			logger.Error("batch failed", log.Error(err))
			return fail(cmd, shared.Classify(fmt.Sprintf("chunk %d failed", index+1), err))
		}
		logger.Debug("batch completed", "responses", len(batch))

		for _, resp := range batch {
			if shared.GetJSON() {
				views = append(views, shared.NewResponseView(resp))
			} else if !shared.GetQuiet() {
				writeLine(out, cfgs[sent], resp)
			}
			sent++
		}
		index++
	}

	if shared.GetJSON() {
		return shared.EmitJSON(out, struct {
			shared.JSONResponse
			Responses []shared.ResponseView `json:"responses"`
		}{
			JSONResponse: shared.JSONResponse{Version: "1.0", Command: "batch", Success: true},
			Responses:    views,
		})
	}
	return nil
}

// fail reports err as a JSON envelope in --json mode and returns it.
func fail(cmd *cobra.Command, err error) error {
	if shared.GetJSON() {
		_ = shared.EmitJSONError(cmd.OutOrStdout(), "batch", err)
	}
	return err
}

func writeLine(w io.Writer, cfg *httpreq.Config, resp *response.Response) {
	fmt.Fprintf(w, "%-6s %s %s\n",
		strings.ToUpper(cfg.Method()),
		httpclient.SanitizeURL(cfg.URL()),
		shared.RenderStatusLine(resp.StatusCode(), resp.Reason()),
	)
}

// readEntries decodes the YAML request list at path, or stdin for "-".
func readEntries(path string, stdin io.Reader) ([]map[string]any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var entries []map[string]any
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, &wraperrors.ValidationError{
			Field:      "batch",
			Message:    "batch file must be a YAML list of requests",
			Suggestion: "Each entry needs at least method and url",
			Cause:      err,
		}
	}
	if len(entries) == 0 {
		return nil, &wraperrors.ValidationError{Field: "batch", Message: "batch file lists no requests"}
	}
	return entries, nil
}
