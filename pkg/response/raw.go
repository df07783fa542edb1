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
	"net/http"
	"time"
)

// Raw is what a transport hands back after a request: the final response
// of the exchange. Transports may implement the optional provider
// interfaces below to expose more detail.
type Raw interface {
	StatusCode() int
	Header() http.Header
	Body() []byte
	URL() string
}

// HistoryProvider exposes the responses that led to a redirect, oldest first.
type HistoryProvider interface {
	History() []Raw
}

// CookieProvider exposes the cookies set by the response.
type CookieProvider interface {
	Cookies() map[string]string
}

// ElapsedProvider exposes the time taken by the exchange.
type ElapsedProvider interface {
	Elapsed() time.Duration
}

// EncodingProvider exposes the character encoding of the body.
type EncodingProvider interface {
	Encoding() string
}

// StatusRaiser turns an error status into an error.
type StatusRaiser interface {
	RaiseForStatus() error
}

// Record is a plain Raw value. Transports without a richer response type,
// and tests, can fill one in directly.
type Record struct {
	Code         int
	Headers      http.Header
	Content      []byte
	FinalURL     string
	Redirects    []*Record
	CookieValues map[string]string
	Duration     time.Duration
	Charset      string
}

var (
	_ Raw              = (*Record)(nil)
	_ HistoryProvider  = (*Record)(nil)
	_ CookieProvider   = (*Record)(nil)
	_ ElapsedProvider  = (*Record)(nil)
	_ EncodingProvider = (*Record)(nil)
)

// StatusCode implements Raw.
func (r *Record) StatusCode() int { return r.Code }

// Header implements Raw.
func (r *Record) Header() http.Header { return r.Headers }

// Body implements Raw.
func (r *Record) Body() []byte { return r.Content }

// URL implements Raw.
func (r *Record) URL() string { return r.FinalURL }

// History implements HistoryProvider.
func (r *Record) History() []Raw {
	if len(r.Redirects) == 0 {
		return nil
	}
	history := make([]Raw, len(r.Redirects))
	for i, h := range r.Redirects {
		history[i] = h
	}
	return history
}

// Cookies implements CookieProvider.
func (r *Record) Cookies() map[string]string { return r.CookieValues }

// Elapsed implements ElapsedProvider.
func (r *Record) Elapsed() time.Duration { return r.Duration }

// Encoding implements EncodingProvider. An empty Charset falls back to the
// Content-Type header.
func (r *Record) Encoding() string { return r.Charset }
