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

// Package security implements the request security policy: URL and scheme
// checks, internal address classification, trusted domains, redirect safety
// and header redaction.
package security

import (
	"fmt"
	"net/url"
	"strings"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

// AllowedSchemes are the URL schemes a request may use.
var AllowedSchemes = []string{"http", "https"}

// ValidateURL checks that rawURL is non-empty, has a scheme and has a
// hostname. It returns the parsed URL on success.
func ValidateURL(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, &wraperrors.ValidationError{
			Field:   "url",
			Message: "URL must be a non-empty string",
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, &wraperrors.ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("invalid URL %q", rawURL),
			Cause:   err,
		}
	}

	if parsed.Scheme == "" {
		return nil, &wraperrors.ValidationError{
			Field:      "url",
			Message:    "URL must include a scheme",
			Suggestion: "Prefix the URL with http:// or https://",
		}
	}

	if parsed.Host == "" || parsed.Hostname() == "" {
		return nil, &wraperrors.ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("URL %q must include a valid hostname", rawURL),
		}
	}

	return parsed, nil
}

// ValidateScheme checks that the URL uses one of AllowedSchemes.
func ValidateScheme(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	for _, allowed := range AllowedSchemes {
		if scheme == allowed {
			return nil
		}
	}
	return &wraperrors.ValidationError{
		Field:      "url",
		Message:    fmt.Sprintf("invalid URL scheme: %s", u.Scheme),
		Suggestion: fmt.Sprintf("Use one of: %s", strings.Join(AllowedSchemes, ", ")),
	}
}

// Hostname returns the lowercased hostname of rawURL. Values without a
// scheme are parsed as if they were http URLs, so bare domains work too.
func Hostname(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
