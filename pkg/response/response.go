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

// Package response normalizes transport responses and enforces the
// redirect policy on them.
package response

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"mime"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
	"github.com/tombee/httpwrap/pkg/security"
	"github.com/tombee/httpwrap/pkg/settings"
)

// DefaultEncoding is assumed when neither the transport nor Content-Type
// names a charset.
const DefaultEncoding = "utf-8"

// Response is the transport-independent view of an HTTP response. It is
// immutable once built.
type Response struct {
	statusCode  int
	headers     *Headers
	body        []byte
	url         string
	originalURL string
	host        string
	cookies     map[string]string
	encoding    string
	elapsed     time.Duration
	history     []*Response
	raiser      StatusRaiser

	textOnce sync.Once
	text     string
}

// New normalises raw using the policy in s. A nil s uses a snapshot of the
// process-wide settings.
//
// When raw carries redirect history, the chain of history URLs followed by
// the final URL is checked: with redirects disabled any history is unsafe,
// otherwise the redirect policy of s decides. An unsafe chain fails with
// *errors.UnsafeRedirectError.
func New(raw Raw, s *settings.Settings) (*Response, error) {
	if raw == nil {
		return nil, &wraperrors.ValidationError{Field: "response", Message: "raw response is nil"}
	}
	if s == nil {
		s = settings.Get()
	}

	resp, err := build(raw, s)
	if err != nil {
		return nil, err
	}

	if len(resp.history) > 0 {
		if err := checkRedirects(resp, s); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func build(raw Raw, s *settings.Settings) (*Response, error) {
	resp := &Response{
		statusCode: raw.StatusCode(),
		headers:    NewHeaders(raw.Header(), s.Redact),
		body:       raw.Body(),
		url:        raw.URL(),
		encoding:   DefaultEncoding,
	}

	if hp, ok := raw.(HistoryProvider); ok {
		for _, h := range hp.History() {
			if h == nil {
				continue
			}
			entry, err := build(h, s)
			if err != nil {
				return nil, err
			}
			// history entries do not carry their own history
			entry.history = nil
			resp.history = append(resp.history, entry)
		}
	}

	resp.originalURL = resp.url
	if len(resp.history) > 0 {
		resp.originalURL = resp.history[0].url
	}
	resp.host = security.Hostname(resp.originalURL)
	if resp.originalURL == "" || resp.host == "" {
		return nil, &wraperrors.ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("response URL %q has no host", resp.originalURL),
		}
	}

	if cp, ok := raw.(CookieProvider); ok {
		resp.cookies = maps.Clone(cp.Cookies())
	}
	if ep, ok := raw.(ElapsedProvider); ok {
		resp.elapsed = ep.Elapsed()
	}
	if enc := encodingOf(raw); enc != "" {
		resp.encoding = enc
	}
	if sr, ok := raw.(StatusRaiser); ok {
		resp.raiser = sr
	}
	return resp, nil
}

func checkRedirects(resp *Response, s *settings.Settings) error {
	chain := resp.RedirectChain()
	if !s.RedirectEnabled {
		return &wraperrors.UnsafeRedirectError{
			Origin: resp.originalURL,
			Hop:    chain[1],
			Chain:  chain,
			Reason: "redirects are disabled in settings",
		}
	}
	return s.RedirectPolicy().Check(resp.originalURL, chain)
}

func encodingOf(raw Raw) string {
	if ep, ok := raw.(EncodingProvider); ok {
		if enc := strings.TrimSpace(ep.Encoding()); enc != "" {
			return strings.ToLower(enc)
		}
	}
	ct := raw.Header().Get("Content-Type")
	if ct == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return strings.ToLower(params["charset"])
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.statusCode }

// Reason returns the standard reason phrase for the status code.
func (r *Response) Reason() string { return http.StatusText(r.statusCode) }

// Headers returns the header view.
func (r *Response) Headers() *Headers { return r.headers }

// Content returns the body bytes.
func (r *Response) Content() []byte { return r.body }

// Text returns the body decoded with the response encoding. Unknown
// encodings fall back to the raw bytes.
func (r *Response) Text() string {
	r.textOnce.Do(func() {
		r.text = decodeText(r.body, r.encoding)
	})
	return r.text
}

// JSON unmarshals the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("decoding JSON response from %s: %w", r.url, err)
	}
	return nil
}

// URL returns the final URL, after redirects.
func (r *Response) URL() string { return r.url }

// FinalURL is an alias of URL.
func (r *Response) FinalURL() string { return r.url }

// OriginalURL returns the URL of the first request in the exchange.
func (r *Response) OriginalURL() string { return r.originalURL }

// Host returns the lowercased hostname of the original URL.
func (r *Response) Host() string { return r.host }

// Cookies returns a copy of the response cookies.
func (r *Response) Cookies() map[string]string { return maps.Clone(r.cookies) }

// Encoding returns the character encoding of the body.
func (r *Response) Encoding() string { return r.encoding }

// Elapsed returns the time taken by the exchange, if the transport reported it.
func (r *Response) Elapsed() time.Duration { return r.elapsed }

// History returns the redirect responses, oldest first.
func (r *Response) History() []*Response { return slices.Clone(r.history) }

// RedirectChain returns the history URLs followed by the final URL. It is
// empty when there was no redirect.
func (r *Response) RedirectChain() []string {
	if len(r.history) == 0 {
		return nil
	}
	chain := make([]string, 0, len(r.history)+1)
	for _, h := range r.history {
		chain = append(chain, h.url)
	}
	return append(chain, r.url)
}

// OK reports whether the status is below 400.
func (r *Response) OK() bool { return r.IsSuccess() || r.IsRedirect() }

// IsInformational reports a 1xx status.
func (r *Response) IsInformational() bool { return r.statusCode >= 100 && r.statusCode < 200 }

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool { return r.statusCode >= 200 && r.statusCode < 300 }

// IsRedirect reports a 3xx status.
func (r *Response) IsRedirect() bool { return r.statusCode >= 300 && r.statusCode < 400 }

// IsClientError reports a 4xx status.
func (r *Response) IsClientError() bool { return r.statusCode >= 400 && r.statusCode < 500 }

// IsServerError reports a 5xx status.
func (r *Response) IsServerError() bool { return r.statusCode >= 500 && r.statusCode < 600 }

// IsError reports a 4xx or 5xx status.
func (r *Response) IsError() bool { return r.IsClientError() || r.IsServerError() }

// IsPermanentRedirect reports a 301 or 308 carrying a Location header.
func (r *Response) IsPermanentRedirect() bool {
	switch r.statusCode {
	case http.StatusMovedPermanently, http.StatusPermanentRedirect:
		return r.headers.Has("Location")
	}
	return false
}

// HasRedirectLocation reports a redirect status carrying a Location header.
func (r *Response) HasRedirectLocation() bool {
	switch r.statusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return r.headers.Has("Location")
	}
	return false
}

// RaiseForStatus returns an error for a 4xx or 5xx status when the
// transport supports it, and the response itself otherwise.
func (r *Response) RaiseForStatus() (*Response, error) {
	if r.raiser == nil {
		return r, nil
	}
	if err := r.raiser.RaiseForStatus(); err != nil {
		return nil, err
	}
	return r, nil
}

// String implements fmt.Stringer.
func (r *Response) String() string {
	return fmt.Sprintf("<Response [%d %s]>", r.statusCode, r.Reason())
}

// LogValue implements slog.LogValuer.
func (r *Response) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("status", r.statusCode),
		slog.String("url", r.url),
		slog.Duration("elapsed", r.elapsed),
		slog.Int("redirects", len(r.history)),
	)
}

func decodeText(body []byte, encoding string) string {
	if len(body) == 0 {
		return ""
	}
	if encoding == "" || encoding == DefaultEncoding || encoding == "utf8" {
		return string(body)
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
