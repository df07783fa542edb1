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

package security

import (
	"fmt"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

// RedirectPolicy decides whether a redirect chain may leave its origin host.
type RedirectPolicy struct {
	// AllowCrossDomain permits hops to any host
	AllowCrossDomain bool

	// TrustedDomains lists hosts (and their subdomains) a hop may reach
	// when cross-domain redirects are not allowed
	TrustedDomains []string
}

// Check walks chain in order and returns an *errors.UnsafeRedirectError for
// the first hop whose host differs from the host of originalURL and is
// neither permitted by AllowCrossDomain nor trusted. A later hop back to the
// origin does not repair an earlier unsafe hop.
func (p RedirectPolicy) Check(originalURL string, chain []string) error {
	origin := Hostname(originalURL)
	if origin == "" {
		return &wraperrors.UnsafeRedirectError{
			Origin: originalURL,
			Hop:    originalURL,
			Chain:  chain,
			Reason: "origin URL has no host",
		}
	}

	for _, hop := range chain {
		host := Hostname(hop)
		if host == "" {
			return &wraperrors.UnsafeRedirectError{
				Origin: originalURL,
				Hop:    hop,
				Chain:  chain,
				Reason: "redirect target has no host",
			}
		}
		if host == origin {
			continue
		}
		if p.AllowCrossDomain || IsAllowedDomain(host, p.TrustedDomains) {
			continue
		}
		return &wraperrors.UnsafeRedirectError{
			Origin: originalURL,
			Hop:    hop,
			Chain:  chain,
			Reason: fmt.Sprintf("host %s is not trusted and cross-domain redirects are disabled", host),
		}
	}
	return nil
}

// IsSafe is the boolean form of Check.
func (p RedirectPolicy) IsSafe(originalURL string, chain []string) bool {
	return p.Check(originalURL, chain) == nil
}
