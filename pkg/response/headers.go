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

package response

import (
	"iter"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/tombee/httpwrap/pkg/security"
)

// Headers is a case-insensitive, read-only view of response headers.
//
// Rendering (String, All, Redacted, LogValue) shows redacted values as
// security.RedactedValue; Get and Raw always return the real values.
// Multiple values for one name are joined with ", ".
type Headers struct {
	values map[string]string
	keys   []string
	rules  security.RedactRules

	once     sync.Once
	redacted map[string]string
}

// NewHeaders builds a header view with names lowercased.
func NewHeaders(h http.Header, rules security.RedactRules) *Headers {
	values := make(map[string]string, len(h))
	for name, vals := range h {
		key := strings.ToLower(name)
		if existing, ok := values[key]; ok {
			vals = append([]string{existing}, vals...)
		}
		values[key] = strings.Join(vals, ", ")
	}
	return &Headers{
		values: values,
		keys:   slices.Sorted(maps.Keys(values)),
		rules:  rules.Normalize(),
	}
}

// Get returns the raw value of the named header, or "" if absent.
func (h *Headers) Get(name string) string {
	return h.values[strings.ToLower(name)]
}

// Lookup returns the raw value of the named header and whether it is present.
func (h *Headers) Lookup(name string) (string, bool) {
	v, ok := h.values[strings.ToLower(name)]
	return v, ok
}

// Has reports whether the named header is present.
func (h *Headers) Has(name string) bool {
	_, ok := h.values[strings.ToLower(name)]
	return ok
}

// Len returns the number of distinct header names.
func (h *Headers) Len() int { return len(h.keys) }

// Keys returns the lowercased header names in sorted order.
func (h *Headers) Keys() []string { return slices.Clone(h.keys) }

// Raw returns a copy of the unredacted headers keyed by lowercased name.
func (h *Headers) Raw() map[string]string {
	return maps.Clone(h.values)
}

// IsRedacted reports whether the named header is hidden when rendered.
func (h *Headers) IsRedacted(name string) bool {
	return h.rules.ShouldRedact(name)
}

// Redacted returns a copy of the headers with redacted values replaced.
func (h *Headers) Redacted() map[string]string {
	return maps.Clone(h.redactedView())
}

// All iterates the redacted view in name order.
func (h *Headers) All() iter.Seq2[string, string] {
	view := h.redactedView()
	return func(yield func(string, string) bool) {
		for _, k := range h.keys {
			if !yield(k, view[k]) {
				return
			}
		}
	}
}

// String renders the redacted view.
func (h *Headers) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range h.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(k))
		b.WriteString(": ")
		b.WriteString(strconv.Quote(h.redactedView()[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// LogValue implements slog.LogValuer using the redacted view.
func (h *Headers) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(h.keys))
	for k, v := range h.All() {
		attrs = append(attrs, slog.String(k, v))
	}
	return slog.GroupValue(attrs...)
}

func (h *Headers) redactedView() map[string]string {
	h.once.Do(func() {
		h.redacted = make(map[string]string, len(h.values))
		for k, v := range h.values {
			if h.rules.ShouldRedact(k) {
				v = security.RedactedValue
			}
			h.redacted[k] = v
		}
	})
	return h.redacted
}
