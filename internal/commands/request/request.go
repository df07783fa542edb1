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

// Package request implements the request command.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/httpwrap/internal/commands/shared"
	"github.com/tombee/httpwrap/internal/jq"
	wraperrors "github.com/tombee/httpwrap/pkg/errors"
	httpreq "github.com/tombee/httpwrap/pkg/request"
	"github.com/tombee/httpwrap/pkg/response"
)

type requestFlags struct {
	headers        []string
	params         map[string]string
	cookies        map[string]string
	body           string
	timeout        time.Duration
	allowRedirects bool
	insecure       bool
	allowInternal  bool
	query          string
	raise          bool
	include        bool
}

// NewCommand creates the request command.
func NewCommand() *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "request METHOD URL",
		Short: "Send a policy-checked HTTP request",
		Long: `Send one HTTP request through the security policy and print the response.

The target must pass the URL, scheme, internal-address and trusted-host
checks in the current settings before anything is sent. Redirects are
followed only for GET by default, and a redirect chain that leaves the
original domain is rejected unless the destination is trusted.

Sensitive response headers are redacted in all output.`,
		Example: `  # Fetch a document
  httpwrap request get https://api.example.com/users/1

  # Post a JSON body from a file, with a header
  httpwrap request post https://api.example.com/users -d @user.json -H "X-Team: core"

  # Extract a field and fail on 4xx/5xx
  httpwrap request get https://api.example.com/users/1 --query .name --raise`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], args[1], &flags)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&flags.headers, "header", "H", nil, "Request header as \"Name: value\" (repeatable)")
	f.StringToStringVarP(&flags.params, "param", "p", nil, "Query parameter as name=value")
	f.StringToStringVar(&flags.cookies, "cookie", nil, "Cookie as name=value")
	f.StringVarP(&flags.body, "data", "d", "", "JSON object body, or @file to read it from a file")
	f.DurationVar(&flags.timeout, "timeout", 0, "Request timeout (default from settings)")
	f.BoolVar(&flags.allowRedirects, "allow-redirects", false, "Follow redirects (default: GET only)")
	f.BoolVarP(&flags.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	f.BoolVar(&flags.allowInternal, "allow-internal", false, "Allow internal addresses (requires allow_internal_access)")
	f.StringVar(&flags.query, "query", "", "jq expression applied to a JSON response body")
	f.BoolVar(&flags.raise, "raise", false, "Exit with an error on 4xx and 5xx responses")
	f.BoolVarP(&flags.include, "include", "i", false, "Print the status line and headers")

	return cmd
}

func run(cmd *cobra.Command, method, rawURL string, flags *requestFlags) (err error) {
	opts, err := flags.options(cmd)
	if err != nil {
		return fail(cmd, shared.NewInvalidInputError("invalid request", err))
	}

	executor := jq.NewExecutor(0, 0)
	if err := executor.Validate(flags.query); err != nil {
		return fail(cmd, shared.NewInvalidInputError("invalid query", err))
	}

	rt, err := shared.NewRuntime(cmd)
	if err != nil {
		return fail(cmd, err)
	}
	defer func() {
		if closeErr := rt.Close(context.WithoutCancel(cmd.Context())); closeErr != nil && err == nil {
			rt.Logger.Warn("failed to close runtime", "error", closeErr)
		}
	}()

	var options []httpreq.Option
	if flags.allowInternal {
		options = append(options, httpreq.WithAllowInternal())
	}

	resp, err := rt.Client.Request(cmd.Context(), method, rawURL, opts, options...)
	if err != nil {
		return fail(cmd, shared.Classify("request failed", err))
	}

	if err := write(cmd.Context(), cmd.OutOrStdout(), resp, executor, flags); err != nil {
		return fail(cmd, err)
	}

	if flags.raise {
		if _, err := resp.RaiseForStatus(); err != nil {
			return shared.Classify("request failed", err)
		}
	}
	return nil
}

// fail reports err as a JSON envelope in --json mode and returns it.
func fail(cmd *cobra.Command, err error) error {
	if shared.GetJSON() {
		_ = shared.EmitJSONError(cmd.OutOrStdout(), "request", err)
	}
	return err
}

func (f *requestFlags) options(cmd *cobra.Command) (httpreq.Options, error) {
	opts := httpreq.Options{
		Params:  f.params,
		Cookies: f.cookies,
		Timeout: f.timeout,
	}

	if len(f.headers) > 0 {
		opts.Headers = make(map[string]string, len(f.headers))
		for _, h := range f.headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return httpreq.Options{}, &wraperrors.ValidationError{
					Field:      "headers",
					Message:    fmt.Sprintf("invalid header %q", h),
					Suggestion: "Use the form \"Name: value\"",
				}
			}
			opts.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
	}

	if f.body != "" {
		body, err := readBody(f.body)
		if err != nil {
			return httpreq.Options{}, err
		}
		opts.JSON = body
	}

	// Unset flags leave the redirect default to the request model
	if cmd.Flags().Changed("allow-redirects") {
		opts.AllowRedirects = httpreq.Bool(f.allowRedirects)
	}
	if f.insecure {
		opts.Verify = httpreq.Bool(false)
	}
	return opts, nil
}

// readBody decodes a JSON object given inline or as @file.
func readBody(arg string) (map[string]any, error) {
	data := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, &wraperrors.ValidationError{Field: "json", Message: "failed to read body file", Cause: err}
		}
	}

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, &wraperrors.ValidationError{
			Field:      "json",
			Message:    "body must be a JSON object",
			Suggestion: "Pass an object such as '{\"name\": \"value\"}'",
			Cause:      err,
		}
	}
	return body, nil
}

func write(ctx context.Context, w io.Writer, resp *response.Response, executor *jq.Executor, flags *requestFlags) error {
	var result any
	if flags.query != "" {
		var err error
		if result, err = executor.Query(ctx, flags.query, resp.Content()); err != nil {
			return shared.NewInvalidInputError("query failed", err)
		}
	}

	if shared.GetJSON() {
		out := struct {
			shared.JSONResponse
			Response shared.ResponseView `json:"response"`
			Result   any                 `json:"result,omitempty"`
		}{
			JSONResponse: shared.JSONResponse{Version: "1.0", Command: "request", Success: true},
			Response:     shared.NewResponseView(resp),
			Result:       result,
		}
		return shared.EmitJSON(w, out)
	}

	if flags.include {
		shared.WriteHead(w, resp)
	}

	if flags.query != "" {
		return writeResult(w, result)
	}
	if text := resp.Text(); text != "" {
		fmt.Fprint(w, text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(w)
		}
	}
	return nil
}

// writeResult prints strings raw and everything else as indented JSON.
func writeResult(w io.Writer, result any) error {
	if s, ok := result.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
