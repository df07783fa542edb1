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
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IsAllowedDomain reports whether host equals one of the trusted domains or
// is a subdomain of one. Matching is case-insensitive.
//
// Trusted entries may be:
//   - a bare domain: "example.com" (matches example.com and *.example.com)
//   - a URL: "https://example.com/path" (its hostname is used)
//   - a wildcard: "*.example.com" (matches subdomains only)
func IsAllowedDomain(host string, trusted []string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}

	for _, entry := range trusted {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "*") {
			globPattern := strings.ReplaceAll(entry, "*", "**")
			if matched, err := doublestar.Match(globPattern, host); err == nil && matched {
				return true
			}
			continue
		}

		domain := strings.TrimSuffix(Hostname(entry), ".")
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
