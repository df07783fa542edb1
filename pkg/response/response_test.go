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
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
	"github.com/tombee/httpwrap/pkg/settings"
)

func TestNew_StatusClasses(t *testing.T) {
	tests := []struct {
		code                                              int
		ok, info, success, redirect, client, server, fail bool
	}{
		{code: 101, ok: false, info: true},
		{code: 200, ok: true, success: true},
		{code: 204, ok: true, success: true},
		{code: 302, ok: true, redirect: true},
		{code: 404, client: true, fail: true},
		{code: 503, server: true, fail: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			resp, err := New(&Record{Code: tt.code, FinalURL: "https://example.com/"}, settings.Default())
			require.NoError(t, err)

			assert.Equal(t, tt.ok, resp.OK())
			assert.Equal(t, tt.info, resp.IsInformational())
			assert.Equal(t, tt.success, resp.IsSuccess())
			assert.Equal(t, tt.redirect, resp.IsRedirect())
			assert.Equal(t, tt.client, resp.IsClientError())
			assert.Equal(t, tt.server, resp.IsServerError())
			assert.Equal(t, tt.fail, resp.IsError())
		})
	}
}

func TestNew_SimpleSuccess(t *testing.T) {
	resp, err := New(&Record{
		Code:     200,
		Content:  []byte("ok"),
		FinalURL: "https://example.com/api?q=test",
		Duration: 40 * time.Millisecond,
	}, settings.Default())
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, "OK", resp.Reason())
	assert.True(t, resp.IsSuccess())
	assert.True(t, resp.OK())
	assert.Equal(t, "ok", resp.Text())
	assert.Equal(t, []byte("ok"), resp.Content())
	assert.Equal(t, "example.com", resp.Host())
	assert.Equal(t, resp.URL(), resp.OriginalURL())
	assert.Equal(t, resp.URL(), resp.FinalURL())
	assert.Equal(t, 40*time.Millisecond, resp.Elapsed())
	assert.Equal(t, DefaultEncoding, resp.Encoding())
	assert.Empty(t, resp.History())
	assert.Equal(t, "<Response [200 OK]>", resp.String())
}

func TestNew_RedirectLocation(t *testing.T) {
	tests := []struct {
		code          int
		location      bool
		wantPermanent bool
		wantLocation  bool
	}{
		{301, true, true, true},
		{308, true, true, true},
		{302, true, false, true},
		{303, true, false, true},
		{307, true, false, true},
		{301, false, false, false},
		{300, true, false, false},
		{200, true, false, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d location=%v", tt.code, tt.location), func(t *testing.T) {
			h := http.Header{}
			if tt.location {
				h.Set("Location", "https://example.com/new")
			}
			resp, err := New(&Record{Code: tt.code, Headers: h, FinalURL: "https://example.com/old"}, settings.Default())
			require.NoError(t, err)
			assert.Equal(t, tt.wantPermanent, resp.IsPermanentRedirect())
			assert.Equal(t, tt.wantLocation, resp.HasRedirectLocation())
		})
	}
}

func TestNew_RedactedHeaders(t *testing.T) {
	s := settings.Default()
	s.Redact.Exact = []string{"Authorization"}

	resp, err := New(&Record{
		Code: 200,
		Headers: http.Header{
			"Authorization": {"top-secret"},
			"Content-Type":  {"text/plain"},
		},
		FinalURL: "https://example.com/",
	}, s)
	require.NoError(t, err)

	h := resp.Headers()
	rendered := h.String()
	assert.Contains(t, rendered, "<redacted>")
	assert.NotContains(t, rendered, "top-secret")
	assert.Equal(t, "top-secret", h.Raw()["authorization"])
	assert.Equal(t, "top-secret", h.Get("AUTHORIZATION"))

	for name, value := range h.All() {
		assert.NotEqual(t, "top-secret", value, name)
	}
	assert.Equal(t, "<redacted>", h.Redacted()["authorization"])
	assert.Equal(t, "text/plain", h.Redacted()["content-type"])
	assert.NotContains(t, fmt.Sprint(h.LogValue()), "top-secret")
}

func TestNew_RedirectChainSafe(t *testing.T) {
	raw := &Record{
		Code:     200,
		FinalURL: "https://example.com/final",
		Redirects: []*Record{
			{Code: 301, FinalURL: "https://example.com/start", Headers: http.Header{"Location": {"/middle"}}},
			{Code: 302, FinalURL: "https://example.com/middle", Headers: http.Header{"Location": {"/final"}}},
		},
	}

	resp, err := New(raw, settings.Default())
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/start", resp.OriginalURL())
	assert.Equal(t, "https://example.com/final", resp.FinalURL())
	assert.Equal(t, []string{
		"https://example.com/start",
		"https://example.com/middle",
		"https://example.com/final",
	}, resp.RedirectChain())

	history := resp.History()
	require.Len(t, history, 2)
	assert.True(t, history[0].IsPermanentRedirect())
	assert.Empty(t, history[0].History())
}

func TestNew_RedirectChainUnsafe(t *testing.T) {
	raw := &Record{
		Code:     200,
		FinalURL: "https://a.example/back",
		Redirects: []*Record{
			{Code: 302, FinalURL: "https://a.example/start"},
			{Code: 302, FinalURL: "https://b.example/hop"},
		},
	}

	_, err := New(raw, settings.Default())
	var redirectErr *wraperrors.UnsafeRedirectError
	require.ErrorAs(t, err, &redirectErr)
	assert.Equal(t, "https://b.example/hop", redirectErr.Hop)

	trusted := settings.Default()
	trusted.TrustedDomains = []string{"b.example"}
	_, err = New(raw, trusted)
	assert.NoError(t, err)

	crossDomain := settings.Default()
	crossDomain.AllowCrossDomain = true
	_, err = New(raw, crossDomain)
	assert.NoError(t, err)
}

func TestNew_RedirectsDisabled(t *testing.T) {
	s := settings.Default()
	s.RedirectEnabled = false

	_, err := New(&Record{Code: 200, FinalURL: "https://example.com/"}, s)
	require.NoError(t, err, "a response without history is fine")

	_, err = New(&Record{
		Code:      200,
		FinalURL:  "https://example.com/b",
		Redirects: []*Record{{Code: 302, FinalURL: "https://example.com/a"}},
	}, s)
	var redirectErr *wraperrors.UnsafeRedirectError
	require.ErrorAs(t, err, &redirectErr)
	assert.Equal(t, "https://example.com/b", redirectErr.Hop)
}

func TestNew_MissingHost(t *testing.T) {
	_, err := New(&Record{Code: 200}, settings.Default())
	var valErr *wraperrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "url", valErr.Field)

	_, err = New(nil, settings.Default())
	assert.Error(t, err)
}

func TestText_Charset(t *testing.T) {
	latin1 := []byte{'c', 'a', 'f', 0xe9}

	resp, err := New(&Record{
		Code:     200,
		Headers:  http.Header{"Content-Type": {"text/plain; charset=ISO-8859-1"}},
		Content:  latin1,
		FinalURL: "https://example.com/",
	}, settings.Default())
	require.NoError(t, err)
	assert.Equal(t, "iso-8859-1", resp.Encoding())
	assert.Equal(t, "café", resp.Text())

	resp, err = New(&Record{
		Code:     200,
		Content:  []byte("plain"),
		Charset:  "x-unknown",
		FinalURL: "https://example.com/",
	}, settings.Default())
	require.NoError(t, err)
	assert.Equal(t, "plain", resp.Text())
}

func TestJSON(t *testing.T) {
	resp, err := New(&Record{
		Code:     200,
		Content:  []byte(`{"id": 7, "tags": ["a"]}`),
		FinalURL: "https://example.com/",
	}, settings.Default())
	require.NoError(t, err)

	var body struct {
		ID   int      `json:"id"`
		Tags []string `json:"tags"`
	}
	require.NoError(t, resp.JSON(&body))
	assert.Equal(t, 7, body.ID)
	assert.Equal(t, []string{"a"}, body.Tags)

	bad, err := New(&Record{Code: 200, Content: []byte("<html>"), FinalURL: "https://example.com/"}, settings.Default())
	require.NoError(t, err)
	var out map[string]any
	assert.Error(t, bad.JSON(&out))
}

func TestCookies(t *testing.T) {
	raw := &Record{Code: 200, FinalURL: "https://example.com/", CookieValues: map[string]string{"session": "abc"}}
	resp, err := New(raw, settings.Default())
	require.NoError(t, err)

	cookies := resp.Cookies()
	assert.Equal(t, "abc", cookies["session"])
	cookies["session"] = "changed"
	assert.Equal(t, "abc", resp.Cookies()["session"])
}

type raisingRecord struct {
	Record
}

func (r *raisingRecord) RaiseForStatus() error {
	if r.Code >= 400 {
		return &wraperrors.StatusError{StatusCode: r.Code, Reason: http.StatusText(r.Code), URL: r.FinalURL}
	}
	return nil
}

func TestRaiseForStatus(t *testing.T) {
	ok, err := New(&raisingRecord{Record{Code: 200, FinalURL: "https://example.com/"}}, settings.Default())
	require.NoError(t, err)
	same, err := ok.RaiseForStatus()
	require.NoError(t, err)
	assert.Same(t, ok, same)

	notFound, err := New(&raisingRecord{Record{Code: 404, FinalURL: "https://example.com/x"}}, settings.Default())
	require.NoError(t, err)
	_, err = notFound.RaiseForStatus()
	var statusErr *wraperrors.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 404, statusErr.StatusCode)

	plain, err := New(&Record{Code: 500, FinalURL: "https://example.com/"}, settings.Default())
	require.NoError(t, err)
	same, err = plain.RaiseForStatus()
	assert.NoError(t, err, "transports without a raiser return the response unchanged")
	assert.Same(t, plain, same)
}

func TestHeaders_MultiValueAndCase(t *testing.T) {
	h := NewHeaders(http.Header{
		"Accept":     {"text/html", "application/json"},
		"X-Api-Key":  {"k"},
		"Set-Cookie": {"a=1"},
	}, settings.Default().Redact)

	assert.Equal(t, "text/html, application/json", h.Get("accept"))
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []string{"accept", "set-cookie", "x-api-key"}, h.Keys())
	assert.True(t, strings.HasPrefix(h.String(), `{"accept": "text/html, application/json"`))
	assert.False(t, h.IsRedacted("x-api-key"))

	_, ok := h.Lookup("Missing")
	assert.False(t, ok)
}
