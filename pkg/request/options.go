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

package request

import (
	"fmt"
	"maps"
	"strings"
	"time"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

// Options are the per-request options shared by every transport.
type Options struct {
	// Headers are sent as-is. Keys are case-insensitive; two keys that differ
	// only in case are rejected.
	Headers map[string]string `mapstructure:"headers" yaml:"headers,omitempty" json:"headers,omitempty"`

	// Params are merged into the URL query string
	Params map[string]string `mapstructure:"params" yaml:"params,omitempty" json:"params,omitempty"`

	// JSON is the request body. Required for post, put and patch; rejected
	// for every other method.
	JSON map[string]any `mapstructure:"json" yaml:"json,omitempty" json:"json,omitempty"`

	// Timeout bounds the whole request. Zero uses the settings default.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// AllowRedirects controls redirect following. Nil picks the default for
	// the method.
	AllowRedirects *bool `mapstructure:"allow_redirects" yaml:"allow_redirects,omitempty" json:"allow_redirects,omitempty"`

	// Verify controls TLS certificate verification. Nil means true.
	Verify *bool `mapstructure:"verify" yaml:"verify,omitempty" json:"verify,omitempty"`

	// Cookies are sent with the request
	Cookies map[string]string `mapstructure:"cookies" yaml:"cookies,omitempty" json:"cookies,omitempty"`
}

// Bool returns a pointer to v, for the optional boolean fields.
func Bool(v bool) *bool {
	return &v
}

// VerifyTLS reports whether TLS certificates must be verified.
func (o Options) VerifyTLS() bool {
	return o.Verify == nil || *o.Verify
}

// FollowRedirects reports whether redirects should be followed. It is only
// meaningful after validation has filled in the per-method default.
func (o Options) FollowRedirects() bool {
	return o.AllowRedirects != nil && *o.AllowRedirects
}

// Clone returns a copy that shares nothing mutable with o, except nested
// values inside JSON.
func (o Options) Clone() Options {
	clone := o
	clone.Headers = maps.Clone(o.Headers)
	clone.Params = maps.Clone(o.Params)
	clone.JSON = maps.Clone(o.JSON)
	clone.Cookies = maps.Clone(o.Cookies)
	if o.AllowRedirects != nil {
		clone.AllowRedirects = Bool(*o.AllowRedirects)
	}
	if o.Verify != nil {
		clone.Verify = Bool(*o.Verify)
	}
	return clone
}

// Validate checks the options in isolation: the timeout must not be negative
// and no two header names may be equal ignoring case.
func (o Options) Validate() error {
	if o.Timeout < 0 {
		return &wraperrors.ValidationError{
			Field:   "timeout",
			Message: fmt.Sprintf("timeout must be a positive duration, got %s", o.Timeout),
		}
	}

	seen := make(map[string]string, len(o.Headers))
	for name := range o.Headers {
		key := strings.ToLower(name)
		if other, ok := seen[key]; ok {
			return &wraperrors.ValidationError{
				Field:      "headers",
				Message:    fmt.Sprintf("duplicate header %q and %q", other, name),
				Suggestion: "Header names are case-insensitive; keep only one of them",
			}
		}
		seen[key] = name
	}
	return nil
}
