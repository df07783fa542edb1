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
	"slices"
	"strings"
)

// RedactedValue replaces the value of a redacted header when rendered.
const RedactedValue = "<redacted>"

// RedactRules lists header-name patterns whose values must not be rendered.
// The four categories are OR-combined; all comparisons use lower case.
type RedactRules struct {
	Exact    []string `yaml:"exact,omitempty" json:"exact,omitempty"`
	Prefix   []string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Suffix   []string `yaml:"suffix,omitempty" json:"suffix,omitempty"`
	Contains []string `yaml:"contains,omitempty" json:"contains,omitempty"`
}

// DefaultRedactRules redacts the credentials headers.
func DefaultRedactRules() RedactRules {
	return RedactRules{
		Exact: []string{"authorization", "proxy-authorization"},
	}
}

// Normalize returns a copy with every pattern lowercased and trimmed, and
// empty patterns dropped. An empty contains-pattern would match everything.
func (r RedactRules) Normalize() RedactRules {
	return RedactRules{
		Exact:    normalizePatterns(r.Exact),
		Prefix:   normalizePatterns(r.Prefix),
		Suffix:   normalizePatterns(r.Suffix),
		Contains: normalizePatterns(r.Contains),
	}
}

// IsEmpty reports whether no rule is configured.
func (r RedactRules) IsEmpty() bool {
	return len(r.Exact) == 0 && len(r.Prefix) == 0 && len(r.Suffix) == 0 && len(r.Contains) == 0
}

// ShouldRedact reports whether the header called name must be redacted.
func (r RedactRules) ShouldRedact(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))

	for _, p := range r.Exact {
		if name == strings.ToLower(p) {
			return true
		}
	}
	for _, p := range r.Prefix {
		if p != "" && strings.HasPrefix(name, strings.ToLower(p)) {
			return true
		}
	}
	for _, p := range r.Suffix {
		if p != "" && strings.HasSuffix(name, strings.ToLower(p)) {
			return true
		}
	}
	for _, p := range r.Contains {
		if p != "" && strings.Contains(name, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (r RedactRules) Clone() RedactRules {
	return RedactRules{
		Exact:    slices.Clone(r.Exact),
		Prefix:   slices.Clone(r.Prefix),
		Suffix:   slices.Clone(r.Suffix),
		Contains: slices.Clone(r.Contains),
	}
}

func normalizePatterns(patterns []string) []string {
	if patterns == nil {
		return nil
	}
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}
