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

// Package client provides the blocking and asynchronous request entry points.
//
// A Client validates each request against the security policy, hands it to a
// Transport, and normalises the raw result into a *response.Response whose
// redirect chain has been checked. Every call is logged, measured and traced.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
	"github.com/tombee/httpwrap/pkg/httpclient"
	"github.com/tombee/httpwrap/pkg/request"
	"github.com/tombee/httpwrap/pkg/response"
	"github.com/tombee/httpwrap/pkg/settings"
)

// TracerName is the instrumentation name used for client spans.
const TracerName = "github.com/tombee/httpwrap/pkg/client"

// Transport performs a validated request and returns the raw result.
// *httpclient.Transport is the default implementation.
type Transport interface {
	Do(ctx context.Context, cfg *request.Config) (response.Raw, error)
}

// Opener is implemented by transports that hold resources which must be
// acquired before the first request.
type Opener interface {
	Open(ctx context.Context) error
}

// Client is the blocking request surface. It is safe for concurrent use.
type Client struct {
	transport Transport
	store     *settings.Store
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for per-request records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records request metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithSettingsStore reads settings snapshots from store instead of the
// process-wide default store.
func WithSettingsStore(store *settings.Store) Option {
	return func(c *Client) {
		if store != nil {
			c.store = store
		}
	}
}

// New creates a Client that sends requests through t.
func New(t Transport, opts ...Option) *Client {
	c := &Client{
		transport: t,
		store:     settings.DefaultStore(),
		logger:    slog.Default(),
		tracer:    otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Settings returns a snapshot of the settings new requests will use.
func (c *Client) Settings() *settings.Settings {
	return c.store.Get()
}

// NewConfig validates a request against the client's current settings.
// Later options, such as request.WithSettings, override the snapshot.
func (c *Client) NewConfig(ctx context.Context, method, rawURL string, opts request.Options, options ...request.Option) (*request.Config, error) {
	all := make([]request.Option, 0, len(options)+1)
	all = append(all, request.WithSettings(c.store.Get()))
	all = append(all, options...)
	return request.New(ctx, method, rawURL, opts, all...)
}

// Request validates and sends a request.
func (c *Client) Request(ctx context.Context, method, rawURL string, opts request.Options, options ...request.Option) (*response.Response, error) {
	cfg, err := c.NewConfig(ctx, method, rawURL, opts, options...)
	if err != nil {
		c.rejected(ctx, method, rawURL, err)
		return nil, err
	}
	return c.send(ctx, cfg)
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, rawURL string, opts request.Options, options ...request.Option) (*response.Response, error) {
	return c.Request(ctx, request.MethodGet, rawURL, opts, options...)
}

// Post sends a POST request. opts.JSON must be set.
func (c *Client) Post(ctx context.Context, rawURL string, opts request.Options, options ...request.Option) (*response.Response, error) {
	return c.Request(ctx, request.MethodPost, rawURL, opts, options...)
}

// Put sends a PUT request. opts.JSON must be set.
func (c *Client) Put(ctx context.Context, rawURL string, opts request.Options, options ...request.Option) (*response.Response, error) {
	return c.Request(ctx, request.MethodPut, rawURL, opts, options...)
}

// Patch sends a PATCH request. opts.JSON must be set.
func (c *Client) Patch(ctx context.Context, rawURL string, opts request.Options, options ...request.Option) (*response.Response, error) {
	return c.Request(ctx, request.MethodPatch, rawURL, opts, options...)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, rawURL string, opts request.Options, options ...request.Option) (*response.Response, error) {
	return c.Request(ctx, request.MethodDelete, rawURL, opts, options...)
}

// Head sends a HEAD request.
func (c *Client) Head(ctx context.Context, rawURL string, opts request.Options, options ...request.Option) (*response.Response, error) {
	return c.Request(ctx, request.MethodHead, rawURL, opts, options...)
}

// Do sends a prebuilt config. The config is validated again first, so a
// target whose DNS answer has changed since construction is caught here.
func (c *Client) Do(ctx context.Context, cfg *request.Config) (*response.Response, error) {
	if cfg == nil {
		return nil, &wraperrors.ValidationError{Field: "config", Message: "request config is required"}
	}
	if err := cfg.Validate(ctx); err != nil {
		c.rejected(ctx, cfg.Method(), cfg.URL(), err)
		return nil, err
	}
	return c.send(ctx, cfg)
}

// Open acquires transport resources, if the transport needs any.
func (c *Client) Open(ctx context.Context) error {
	if o, ok := c.transport.(Opener); ok {
		return o.Open(ctx)
	}
	return nil
}

// Close releases transport resources.
func (c *Client) Close() error {
	if closer, ok := c.transport.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Session opens the client, runs fn, and closes the client whether or not
// fn fails.
func (c *Client) Session(ctx context.Context, fn func(*Client) error) (err error) {
	if err := c.Open(ctx); err != nil {
		return wraperrors.Wrap(err, "opening client")
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			err = errors.Join(err, wraperrors.Wrap(closeErr, "closing client"))
		}
	}()
	return fn(c)
}

// Requests sends cfgs sequentially and yields one slice of responses per
// chunk of at most chunk configs, in input order. The first failure is
// yielded and ends the sequence.
func (c *Client) Requests(ctx context.Context, cfgs []*request.Config, chunk int) iter.Seq2[[]*response.Response, error] {
	return func(yield func([]*response.Response, error) bool) {
		if chunk < 1 {
			yield(nil, chunkError(chunk))
			return
		}
		for batch := range slices.Chunk(cfgs, chunk) {
			results := make([]*response.Response, 0, len(batch))
			for _, cfg := range batch {
				resp, err := c.Do(ctx, cfg)
				if err != nil {
					yield(nil, err)
					return
				}
				results = append(results, resp)
			}
			if !yield(results, nil) {
				return
			}
		}
	}
}

// send performs a validated request and normalises its result.
func (c *Client) send(ctx context.Context, cfg *request.Config) (*response.Response, error) {
	method := cfg.Method()
	safeURL := httpclient.SanitizeURL(cfg.URL())

	ctx, span := c.tracer.Start(ctx, "httpwrap "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", safeURL),
			attribute.String("server.address", cfg.Host()),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.roundTrip(ctx, cfg)
	duration := time.Since(start)

	c.metrics.record(method, duration, resp, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.type", wraperrors.TypeOf(err)))
		c.logger.WarnContext(ctx, "request failed",
			slog.String("method", method),
			slog.String("url", safeURL),
			slog.String("error_type", wraperrors.TypeOf(err)),
			slog.Any("error", err),
			slog.Int64("duration_ms", duration.Milliseconds()),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("http.response.status_code", resp.StatusCode()),
		attribute.Int("http.redirect_count", len(resp.History())),
	)
	if resp.IsError() {
		span.SetStatus(codes.Error, resp.Reason())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	c.logger.DebugContext(ctx, "request completed",
		slog.String("method", method),
		slog.String("url", safeURL),
		slog.Int("status", resp.StatusCode()),
		slog.Int("redirects", len(resp.History())),
		slog.Int64("duration_ms", duration.Milliseconds()),
	)
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, cfg *request.Config) (*response.Response, error) {
	raw, err := c.transport.Do(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return response.New(raw, cfg.Settings())
}

// rejected records a request that failed validation before it was sent.
func (c *Client) rejected(ctx context.Context, method, rawURL string, err error) {
	c.metrics.reject(method, err)
	c.logger.WarnContext(ctx, "request rejected",
		slog.String("method", method),
		slog.String("url", httpclient.SanitizeURL(rawURL)),
		slog.String("error_type", wraperrors.TypeOf(err)),
		slog.Any("error", err),
	)
}

func chunkError(chunk int) error {
	return &wraperrors.ValidationError{
		Field:      "chunk",
		Message:    fmt.Sprintf("chunk size must be at least 1, got %d", chunk),
		Suggestion: "Pass a positive chunk size",
	}
}
