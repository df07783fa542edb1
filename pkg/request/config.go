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

// Package request models validated HTTP requests.
package request

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
	"github.com/tombee/httpwrap/pkg/security"
	"github.com/tombee/httpwrap/pkg/settings"
)

// HTTP methods accepted by Config. Methods are always lower case.
const (
	MethodGet    = "get"
	MethodPost   = "post"
	MethodPut    = "put"
	MethodPatch  = "patch"
	MethodDelete = "delete"
	MethodHead   = "head"
)

var (
	allowedMethods = map[string]bool{
		MethodGet: true, MethodPost: true, MethodPut: true,
		MethodPatch: true, MethodDelete: true, MethodHead: true,
	}
	methodsWithBody = map[string]bool{MethodPost: true, MethodPut: true, MethodPatch: true}

	// options is not an accepted method but keeps its redirect default
	methodsWithRedirects = map[string]bool{MethodGet: true, "options": true}
)

// Config is a validated request: method, URL, options, the allow-internal
// override and the settings snapshot it was validated against.
type Config struct {
	method        string
	rawURL        string
	parsed        *url.URL
	opts          Options
	allowInternal bool
	settings      *settings.Settings
}

// Option customises a Config at construction.
type Option func(*Config)

// WithSettings validates the request against s instead of a snapshot of the
// process-wide settings.
func WithSettings(s *settings.Settings) Option {
	return func(c *Config) {
		c.settings = s.Clone()
	}
}

// WithAllowInternal requests the internal-address override. It is only
// honoured when the settings allow internal access.
func WithAllowInternal() Option {
	return func(c *Config) {
		c.allowInternal = true
	}
}

// New builds and validates a request. Validation may resolve the target host.
func New(ctx context.Context, method, rawURL string, opts Options, options ...Option) (*Config, error) {
	c := &Config{
		method: method,
		rawURL: rawURL,
		opts:   opts.Clone(),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.settings == nil {
		c.settings = settings.Get()
	}

	if err := c.validate(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate runs every request check against the captured settings snapshot.
// It never modifies c, so a Config may be validated and sent concurrently.
func (c *Config) Validate(ctx context.Context) error {
	cp := *c
	cp.opts = c.opts.Clone()
	return cp.validate(ctx)
}

// validate checks c and fills in the normalised method, the parsed URL and
// the option defaults.
func (c *Config) validate(ctx context.Context) error {
	if err := c.validateMethod(); err != nil {
		return err
	}
	if err := c.validateURL(); err != nil {
		return err
	}
	if err := c.validateTarget(ctx); err != nil {
		return err
	}
	if err := c.validateShape(); err != nil {
		return err
	}
	if err := c.applyRedirectDefault(); err != nil {
		return err
	}
	return c.applyTimeout()
}

// ValidMethod reports whether New accepts method. Case and surrounding
// space are ignored.
func ValidMethod(method string) bool {
	return allowedMethods[strings.ToLower(strings.TrimSpace(method))]
}

func (c *Config) validateMethod() error {
	method := strings.ToLower(strings.TrimSpace(c.method))
	if method == "" {
		return &wraperrors.ValidationError{Field: "method", Message: "method must be a non-empty string"}
	}
	if !allowedMethods[method] {
		return &wraperrors.ValidationError{
			Field:      "method",
			Message:    fmt.Sprintf("unsupported HTTP method: %s", method),
			Suggestion: "Use one of: get, post, put, patch, delete, head",
		}
	}
	c.method = method
	return nil
}

func (c *Config) validateURL() error {
	parsed, err := security.ValidateURL(c.rawURL)
	if err != nil {
		return err
	}
	if err := security.ValidateScheme(parsed); err != nil {
		return err
	}
	c.parsed = parsed
	return nil
}

func (c *Config) validateTarget(ctx context.Context) error {
	host := strings.ToLower(c.parsed.Hostname())

	if c.allowInternal && !c.settings.AllowInternalAccess {
		return &wraperrors.PolicyError{
			Policy:     wraperrors.PolicyInternalOverride,
			Host:       host,
			Message:    "Internal IP access is disabled",
			Suggestion: "Use settings.Configure(settings.WithAllowInternalAccess(true)) to enable it",
		}
	}

	if !c.allowInternal {
		internal, err := security.IsInternalAddress(ctx, c.settings.Resolver, host)
		if err != nil {
			return err
		}
		if internal {
			return &wraperrors.PolicyError{
				Policy:     wraperrors.PolicyInternalAddress,
				Host:       host,
				Message:    fmt.Sprintf("internal address %q is not allowed", host),
				Suggestion: "Enable internal access in settings and pass the allow-internal override",
			}
		}
	}

	if c.settings.EnforceTrustedHosts && !security.IsAllowedDomain(host, c.settings.TrustedDomains) {
		return &wraperrors.PolicyError{
			Policy:     wraperrors.PolicyUntrustedHost,
			Host:       host,
			Message:    fmt.Sprintf("host %q is not in the trusted domains", host),
			Suggestion: "Add the domain with settings.WithTrustedDomains",
		}
	}
	return nil
}

func (c *Config) validateShape() error {
	if err := c.opts.Validate(); err != nil {
		return err
	}

	upper := strings.ToUpper(c.method)
	hasBody := methodsWithBody[c.method]
	if hasBody && c.opts.JSON == nil {
		return &wraperrors.ValidationError{
			Field:   "json",
			Message: fmt.Sprintf("%s request requires a JSON body", upper),
		}
	}
	if !hasBody && c.opts.JSON != nil {
		return &wraperrors.ValidationError{
			Field:      "json",
			Message:    fmt.Sprintf("%s request does not support a body", upper),
			Suggestion: "Use params for query values",
		}
	}
	return nil
}

func (c *Config) applyRedirectDefault() error {
	if c.opts.AllowRedirects == nil {
		c.opts.AllowRedirects = Bool(c.settings.RedirectEnabled && methodsWithRedirects[c.method])
		return nil
	}
	if *c.opts.AllowRedirects && !c.settings.RedirectEnabled {
		return &wraperrors.PolicyError{
			Policy:     wraperrors.PolicyRedirects,
			Host:       strings.ToLower(c.parsed.Hostname()),
			Message:    "redirects are disabled in settings",
			Suggestion: "Drop allow_redirects or enable redirects with settings.WithRedirectEnabled(true)",
		}
	}
	return nil
}

func (c *Config) applyTimeout() error {
	if c.opts.Timeout < 0 {
		return &wraperrors.ValidationError{Field: "timeout", Message: "timeout must not be negative"}
	}
	if c.opts.Timeout == 0 {
		c.opts.Timeout = c.settings.DefaultTimeout
	}
	return nil
}

// Method returns the lower-case method.
func (c *Config) Method() string { return c.method }

// URL returns the URL as given, without params.
func (c *Config) URL() string { return c.rawURL }

// Host returns the lower-case hostname of the URL.
func (c *Config) Host() string {
	if c.parsed == nil {
		return ""
	}
	return strings.ToLower(c.parsed.Hostname())
}

// Options returns a copy of the validated options, with the redirect
// default and the effective timeout filled in.
func (c *Config) Options() Options { return c.opts.Clone() }

// AllowInternal reports whether the internal-address override is in effect.
func (c *Config) AllowInternal() bool { return c.allowInternal }

// Settings returns the settings snapshot the request was validated against.
func (c *Config) Settings() *settings.Settings { return c.settings }

// Timeout returns the effective timeout.
func (c *Config) Timeout() time.Duration { return c.opts.Timeout }

// EncodedURL returns the URL with Params merged into its query string.
func (c *Config) EncodedURL() string {
	if c.parsed == nil {
		return c.rawURL
	}
	if len(c.opts.Params) == 0 {
		return c.parsed.String()
	}
	u := *c.parsed
	query := u.Query()
	for k, v := range c.opts.Params {
		query.Set(k, v)
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// String returns "METHOD url" for logs.
func (c *Config) String() string {
	return strings.ToUpper(c.method) + " " + c.rawURL
}
