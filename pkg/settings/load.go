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

package settings

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

// Environment variables read by FromEnv.
const (
	EnvDefaultTimeout          = "HTTPWRAP_DEFAULT_TIMEOUT"
	EnvAllowInternalAccess     = "HTTPWRAP_ALLOW_INTERNAL_ACCESS"
	EnvRedirectEnabled         = "HTTPWRAP_REDIRECT_ENABLED"
	EnvAllowCrossDomain        = "HTTPWRAP_ALLOW_CROSS_DOMAIN"
	EnvEnforceTrustedHosts     = "HTTPWRAP_ENFORCE_TRUSTED_HOSTS"
	EnvTrustedDomains          = "HTTPWRAP_TRUSTED_DOMAINS"
	EnvRedactHeaders           = "HTTPWRAP_REDACT_HEADERS"
	EnvRedactHeadersPrefix     = "HTTPWRAP_REDACT_HEADERS_PREFIX"
	EnvRedactHeadersSuffix     = "HTTPWRAP_REDACT_HEADERS_SUFFIX"
	EnvRedactHeadersContaining = "HTTPWRAP_REDACT_HEADERS_CONTAINING"
)

// fileSettings mirrors Settings with optional fields so that a file only
// overrides the keys it sets.
type fileSettings struct {
	DefaultTimeout      *string     `yaml:"default_timeout"`
	AllowInternalAccess *bool       `yaml:"allow_internal_access"`
	RedirectEnabled     *bool       `yaml:"redirect_enabled"`
	AllowCrossDomain    *bool       `yaml:"allow_cross_domain"`
	EnforceTrustedHosts *bool       `yaml:"enforce_trusted_hosts"`
	TrustedDomains      []string    `yaml:"trusted_domains"`
	Redact              *fileRedact `yaml:"redact"`
}

type fileRedact struct {
	Exact    []string `yaml:"exact"`
	Prefix   []string `yaml:"prefix"`
	Suffix   []string `yaml:"suffix"`
	Contains []string `yaml:"contains"`
}

// LoadFile reads a YAML settings file and returns the options it describes.
// Keys absent from the file produce no option. Unknown keys are an error.
func LoadFile(path string) ([]Option, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &wraperrors.ConfigError{Reason: "failed to read settings file", Cause: err}
	}

	var fs fileSettings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fs); err != nil && !wraperrors.Is(err, io.EOF) {
		return nil, &wraperrors.ConfigError{Reason: fmt.Sprintf("failed to parse %s", path), Cause: err}
	}

	return fs.options()
}

func (fs *fileSettings) options() ([]Option, error) {
	var opts []Option

	if fs.DefaultTimeout != nil {
		d, err := parseTimeout(*fs.DefaultTimeout)
		if err != nil {
			return nil, &wraperrors.ConfigError{Key: "default_timeout", Reason: err.Error(), Cause: err}
		}
		opts = append(opts, WithDefaultTimeout(d))
	}
	if fs.AllowInternalAccess != nil {
		opts = append(opts, WithAllowInternalAccess(*fs.AllowInternalAccess))
	}
	if fs.RedirectEnabled != nil {
		opts = append(opts, WithRedirectEnabled(*fs.RedirectEnabled))
	}
	if fs.AllowCrossDomain != nil {
		opts = append(opts, WithAllowCrossDomain(*fs.AllowCrossDomain))
	}
	if fs.EnforceTrustedHosts != nil {
		opts = append(opts, WithEnforceTrustedHosts(*fs.EnforceTrustedHosts))
	}
	if fs.TrustedDomains != nil {
		opts = append(opts, WithTrustedDomains(fs.TrustedDomains...))
	}
	if r := fs.Redact; r != nil {
		if r.Exact != nil {
			opts = append(opts, WithRedactHeaders(r.Exact...))
		}
		if r.Prefix != nil {
			opts = append(opts, WithRedactHeadersPrefix(r.Prefix...))
		}
		if r.Suffix != nil {
			opts = append(opts, WithRedactHeadersSuffix(r.Suffix...))
		}
		if r.Contains != nil {
			opts = append(opts, WithRedactHeadersContaining(r.Contains...))
		}
	}
	return opts, nil
}

// FromEnv returns the options described by HTTPWRAP_* environment variables.
// Unset or empty variables produce no option; malformed values are an error.
func FromEnv() ([]Option, error) {
	var opts []Option

	if val := os.Getenv(EnvDefaultTimeout); val != "" {
		d, err := parseTimeout(val)
		if err != nil {
			return nil, &wraperrors.ConfigError{Key: EnvDefaultTimeout, Reason: err.Error(), Cause: err}
		}
		opts = append(opts, WithDefaultTimeout(d))
	}

	bools := []struct {
		env string
		opt func(bool) Option
	}{
		{EnvAllowInternalAccess, WithAllowInternalAccess},
		{EnvRedirectEnabled, WithRedirectEnabled},
		{EnvAllowCrossDomain, WithAllowCrossDomain},
		{EnvEnforceTrustedHosts, WithEnforceTrustedHosts},
	}
	for _, b := range bools {
		val := os.Getenv(b.env)
		if val == "" {
			continue
		}
		v, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return nil, &wraperrors.ConfigError{Key: b.env, Reason: fmt.Sprintf("invalid boolean %q", val), Cause: err}
		}
		opts = append(opts, b.opt(v))
	}

	lists := []struct {
		env string
		opt func(...string) Option
	}{
		{EnvTrustedDomains, WithTrustedDomains},
		{EnvRedactHeaders, WithRedactHeaders},
		{EnvRedactHeadersPrefix, WithRedactHeadersPrefix},
		{EnvRedactHeadersSuffix, WithRedactHeadersSuffix},
		{EnvRedactHeadersContaining, WithRedactHeadersContaining},
	}
	for _, l := range lists {
		if val := os.Getenv(l.env); val != "" {
			opts = append(opts, l.opt(splitList(val)...))
		}
	}

	return opts, nil
}

// parseTimeout accepts a Go duration ("2.5s", "1m") or a number of seconds.
func parseTimeout(val string) (time.Duration, error) {
	val = strings.TrimSpace(val)
	if d, err := time.ParseDuration(val); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: use a duration like 5s or a number of seconds", val)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// expandPath resolves a leading ~/ and makes path absolute.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", &wraperrors.ConfigError{Reason: "failed to get home directory", Cause: err}
		}
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", &wraperrors.ConfigError{Key: path, Reason: "failed to resolve settings path", Cause: err}
	}
	return absPath, nil
}
