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
	"strings"
	"time"

	"github.com/tombee/httpwrap/pkg/security"
)

// Option changes one aspect of Settings. Options are applied to a copy and
// only committed if the result validates.
type Option func(*Settings) error

// WithDefaultTimeout sets the timeout used by requests that do not set one.
func WithDefaultTimeout(d time.Duration) Option {
	return func(s *Settings) error {
		s.DefaultTimeout = d
		return nil
	}
}

// WithAllowInternalAccess enables or disables requests to internal addresses.
func WithAllowInternalAccess(allow bool) Option {
	return func(s *Settings) error {
		s.AllowInternalAccess = allow
		return nil
	}
}

// WithRedirectEnabled enables or disables redirect following.
func WithRedirectEnabled(enabled bool) Option {
	return func(s *Settings) error {
		s.RedirectEnabled = enabled
		return nil
	}
}

// WithAllowCrossDomain permits redirects to any host.
func WithAllowCrossDomain(allow bool) Option {
	return func(s *Settings) error {
		s.AllowCrossDomain = allow
		return nil
	}
}

// WithEnforceTrustedHosts restricts request targets to TrustedDomains.
func WithEnforceTrustedHosts(enforce bool) Option {
	return func(s *Settings) error {
		s.EnforceTrustedHosts = enforce
		return nil
	}
}

// WithTrustedDomains replaces the trusted domain list.
func WithTrustedDomains(domains ...string) Option {
	return func(s *Settings) error {
		s.TrustedDomains = make([]string, 0, len(domains))
		for _, d := range domains {
			s.TrustedDomains = append(s.TrustedDomains, strings.ToLower(strings.TrimSpace(d)))
		}
		return nil
	}
}

// WithRedactHeaders replaces the exact-match redaction list.
func WithRedactHeaders(names ...string) Option {
	return func(s *Settings) error {
		s.Redact.Exact = security.RedactRules{Exact: names}.Normalize().Exact
		return nil
	}
}

// WithRedactHeadersPrefix replaces the prefix redaction list.
func WithRedactHeadersPrefix(prefixes ...string) Option {
	return func(s *Settings) error {
		s.Redact.Prefix = security.RedactRules{Prefix: prefixes}.Normalize().Prefix
		return nil
	}
}

// WithRedactHeadersSuffix replaces the suffix redaction list.
func WithRedactHeadersSuffix(suffixes ...string) Option {
	return func(s *Settings) error {
		s.Redact.Suffix = security.RedactRules{Suffix: suffixes}.Normalize().Suffix
		return nil
	}
}

// WithRedactHeadersContaining replaces the substring redaction list.
func WithRedactHeadersContaining(substrings ...string) Option {
	return func(s *Settings) error {
		s.Redact.Contains = security.RedactRules{Contains: substrings}.Normalize().Contains
		return nil
	}
}

// WithResolver sets the DNS resolver used by the internal-address check.
// A nil resolver restores the shared caching resolver.
func WithResolver(r security.Resolver) Option {
	return func(s *Settings) error {
		if r == nil {
			r = sharedResolver
		}
		s.Resolver = r
		return nil
	}
}
