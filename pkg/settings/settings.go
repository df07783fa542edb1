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
	"slices"
	"strings"
	"time"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
	"github.com/tombee/httpwrap/pkg/security"
)

// DefaultRequestTimeout is the timeout applied to requests that do not set one.
const DefaultRequestTimeout = 5 * time.Second

// sharedResolver backs every Settings created by Default, so that DNS
// answers are cached across stores.
var sharedResolver = security.NewCachingResolver(nil, 0)

// Settings is the policy configuration applied to requests and responses.
type Settings struct {
	// DefaultTimeout is used by requests that do not set a timeout
	DefaultTimeout time.Duration `yaml:"default_timeout" json:"default_timeout"`

	// AllowInternalAccess permits requests to internal addresses. When false,
	// no request may opt in with an allow-internal override.
	AllowInternalAccess bool `yaml:"allow_internal_access" json:"allow_internal_access"`

	// RedirectEnabled permits following redirects at all
	RedirectEnabled bool `yaml:"redirect_enabled" json:"redirect_enabled"`

	// AllowCrossDomain permits redirects that leave the original host
	AllowCrossDomain bool `yaml:"allow_cross_domain" json:"allow_cross_domain"`

	// EnforceTrustedHosts rejects requests to hosts outside TrustedDomains
	EnforceTrustedHosts bool `yaml:"enforce_trusted_hosts" json:"enforce_trusted_hosts"`

	// TrustedDomains are domains redirects may reach when cross-domain
	// redirects are disabled. Subdomains are trusted too.
	TrustedDomains []string `yaml:"trusted_domains" json:"trusted_domains"`

	// Redact lists the header names hidden when headers are rendered
	Redact security.RedactRules `yaml:"redact" json:"redact"`

	// Resolver answers DNS lookups for the internal-address check
	Resolver security.Resolver `yaml:"-" json:"-"`
}

// Default returns the default settings.
func Default() *Settings {
	return &Settings{
		DefaultTimeout:      DefaultRequestTimeout,
		AllowInternalAccess: false,
		RedirectEnabled:     true,
		AllowCrossDomain:    false,
		TrustedDomains:      []string{},
		Redact:              security.DefaultRedactRules(),
		Resolver:            sharedResolver,
	}
}

// Clone returns a deep copy. The resolver is shared.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	clone := *s
	clone.TrustedDomains = slices.Clone(s.TrustedDomains)
	if clone.TrustedDomains == nil {
		clone.TrustedDomains = []string{}
	}
	clone.Redact = s.Redact.Clone()
	return &clone
}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	if s.DefaultTimeout <= 0 {
		return &wraperrors.ConfigError{
			Key:    "default_timeout",
			Reason: "must be a positive duration, got " + s.DefaultTimeout.String(),
		}
	}
	for _, domain := range s.TrustedDomains {
		if strings.TrimSpace(domain) == "" {
			return &wraperrors.ConfigError{
				Key:    "trusted_domains",
				Reason: "entries must be non-empty",
			}
		}
	}
	if s.Resolver == nil {
		return &wraperrors.ConfigError{
			Key:    "resolver",
			Reason: "a DNS resolver is required",
		}
	}
	return nil
}

// RedirectPolicy returns the redirect policy described by the settings.
func (s *Settings) RedirectPolicy() security.RedirectPolicy {
	return security.RedirectPolicy{
		AllowCrossDomain: s.AllowCrossDomain,
		TrustedDomains:   s.TrustedDomains,
	}
}
