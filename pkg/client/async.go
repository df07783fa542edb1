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

package client

import (
	"context"
	"iter"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/tombee/httpwrap/pkg/request"
	"github.com/tombee/httpwrap/pkg/response"
)

// Call is an in-flight asynchronous request.
type Call struct {
	done chan struct{}
	resp *response.Response
	err  error
}

// Done is closed when the call has finished.
func (c *Call) Done() <-chan struct{} { return c.done }

// Wait blocks until the call finishes and returns its result.
func (c *Call) Wait() (*response.Response, error) {
	<-c.done
	return c.resp, c.err
}

func finishedCall(err error) *Call {
	call := &Call{done: make(chan struct{}), err: err}
	close(call.done)
	return call
}

// AsyncClient runs requests on goroutines with the same validation and
// normalisation as Client. Results are identical to the blocking mode.
type AsyncClient struct {
	client *Client
}

// NewAsync creates an AsyncClient that sends requests through t.
func NewAsync(t Transport, opts ...Option) *AsyncClient {
	return &AsyncClient{client: New(t, opts...)}
}

// Client returns the blocking client sharing this client's transport.
func (a *AsyncClient) Client() *Client { return a.client }

// Go sends a prebuilt config on a new goroutine.
func (a *AsyncClient) Go(ctx context.Context, cfg *request.Config) *Call {
	call := &Call{done: make(chan struct{})}
	go func() {
		defer close(call.done)
		call.resp, call.err = a.client.Do(ctx, cfg)
	}()
	return call
}

// Request validates a request synchronously and sends it asynchronously.
// Validation failures are reported through the returned Call.
func (a *AsyncClient) Request(ctx context.Context, method, rawURL string, opts request.Options, options ...request.Option) *Call {
	cfg, err := a.client.NewConfig(ctx, method, rawURL, opts, options...)
	if err != nil {
		a.client.rejected(ctx, method, rawURL, err)
		return finishedCall(err)
	}
	call := &Call{done: make(chan struct{})}
	go func() {
		defer close(call.done)
		call.resp, call.err = a.client.send(ctx, cfg)
	}()
	return call
}

// Get sends a GET request asynchronously.
func (a *AsyncClient) Get(ctx context.Context, rawURL string, opts request.Options, options ...request.Option) *Call {
	return a.Request(ctx, request.MethodGet, rawURL, opts, options...)
}

// Post sends a POST request asynchronously.
func (a *AsyncClient) Post(ctx context.Context, rawURL string, opts request.Options, options ...request.Option) *Call {
	return a.Request(ctx, request.MethodPost, rawURL, opts, options...)
}

// Put sends a PUT request asynchronously.
func (a *AsyncClient) Put(ctx context.Context, rawURL string, opts request.Options, options ...request.Option) *Call {
	return a.Request(ctx, request.MethodPut, rawURL, opts, options...)
}

// Patch sends a PATCH request asynchronously.
func (a *AsyncClient) Patch(ctx context.Context, rawURL string, opts request.Options, options ...request.Option) *Call {
	return a.Request(ctx, request.MethodPatch, rawURL, opts, options...)
}

// Delete sends a DELETE request asynchronously.
func (a *AsyncClient) Delete(ctx context.Context, rawURL string, opts request.Options, options ...request.Option) *Call {
	return a.Request(ctx, request.MethodDelete, rawURL, opts, options...)
}

// Head sends a HEAD request asynchronously.
func (a *AsyncClient) Head(ctx context.Context, rawURL string, opts request.Options, options ...request.Option) *Call {
	return a.Request(ctx, request.MethodHead, rawURL, opts, options...)
}

// Open acquires transport resources.
func (a *AsyncClient) Open(ctx context.Context) error { return a.client.Open(ctx) }

// Close releases transport resources.
func (a *AsyncClient) Close() error { return a.client.Close() }

// Session opens the client, runs fn, and closes the client afterwards.
func (a *AsyncClient) Session(ctx context.Context, fn func(*AsyncClient) error) error {
	return a.client.Session(ctx, func(*Client) error { return fn(a) })
}

// Requests sends each chunk of cfgs concurrently, at most chunk at a time,
// and yields the chunk's responses in input order once all have finished.
// The first failure in a chunk cancels its siblings, is yielded, and ends
// the sequence.
func (a *AsyncClient) Requests(ctx context.Context, cfgs []*request.Config, chunk int) iter.Seq2[[]*response.Response, error] {
	return func(yield func([]*response.Response, error) bool) {
		if chunk < 1 {
			yield(nil, chunkError(chunk))
			return
		}
		for batch := range slices.Chunk(cfgs, chunk) {
			results, err := a.gather(ctx, batch, chunk)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(results, nil) {
				return
			}
		}
	}
}

func (a *AsyncClient) gather(ctx context.Context, batch []*request.Config, limit int) ([]*response.Response, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	results := make([]*response.Response, len(batch))
	for i, cfg := range batch {
		g.Go(func() error {
			resp, err := a.client.Do(gctx, cfg)
			if err != nil {
				return err
			}
			results[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
