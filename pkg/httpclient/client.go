package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tombee/httpwrap/pkg/request"
	"github.com/tombee/httpwrap/pkg/response"
	"github.com/tombee/httpwrap/pkg/security"
)

// Transport performs requests over net/http. It implements client.Transport
// and io.Closer, and is safe for concurrent use.
type Transport struct {
	secure   *http.Client
	insecure *http.Client
	limiter  *rate.Limiter
	cfg      Config
}

type followKey struct{}

// New creates a new transport with the given configuration.
// The transport includes:
//   - Request logging with sanitized URLs
//   - User-Agent header injection
//   - Request ID and trace context propagation
//   - TLS 1.2 minimum, TLS 1.3 preferred
//   - Connection pooling with sensible defaults
//
// Returns an error if the configuration is invalid.
func New(cfg Config) (*Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	dialContext := dialer.DialContext
	if cfg.GuardDial {
		dialContext = security.GuardedDialContext(dialer)
	}

	// Create base HTTP transport with TLS and connection pooling
	baseTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,

		// TLS configuration: 1.2 minimum, 1.3 preferred
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
		},

		// Connection pooling settings
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,

		// Timeouts
		DialContext:           dialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	// Verify=false requests get their own pool so that unverified
	// connections are never reused for verified requests
	insecureTransport := baseTransport.Clone()
	insecureTransport.TLSClientConfig.InsecureSkipVerify = true

	t := &Transport{cfg: cfg}
	t.secure = t.newClient(baseTransport)
	t.insecure = t.newClient(insecureTransport)

	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst == 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return t, nil
}

func (t *Transport) newClient(base *http.Transport) *http.Client {
	return &http.Client{
		Transport:     newLoggingTransport(base, t.cfg.UserAgent, t.cfg.Logger, t.cfg.Propagator),
		CheckRedirect: t.checkRedirect,
	}
}

func (t *Transport) checkRedirect(req *http.Request, via []*http.Request) error {
	if follow, ok := req.Context().Value(followKey{}).(bool); ok && !follow {
		return http.ErrUseLastResponse
	}
	if len(via) > t.cfg.MaxRedirects {
		return fmt.Errorf("stopped after %d redirects", t.cfg.MaxRedirects)
	}
	return nil
}

// HTTPClient returns the underlying client used for verified TLS requests.
func (t *Transport) HTTPClient() *http.Client {
	return t.secure
}

// Do performs cfg and returns the final response together with the redirect
// history. Errors from net/http are returned unchanged.
func (t *Transport) Do(ctx context.Context, cfg *request.Config) (response.Raw, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	// The deadline lives on the context so a request may wait longer
	// than the transport default.
	opts := cfg.Options()
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = t.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx = context.WithValue(ctx, followKey{}, opts.FollowRedirects())
	ctx = security.WithDialPolicy(ctx, security.DialPolicy{
		AllowInternal: cfg.AllowInternal(),
		Resolver:      cfg.Settings().Resolver,
	})

	req, err := newHTTPRequest(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	client := t.secure
	if !opts.VerifyTLS() {
		client = t.insecure
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return newRawResponse(resp, body, time.Since(start)), nil
}

func newHTTPRequest(ctx context.Context, cfg *request.Config, opts request.Options) (*http.Request, error) {
	var body io.Reader
	if opts.JSON != nil {
		data, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, fmt.Errorf("encoding JSON body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(cfg.Method()), cfg.EncodedURL(), body)
	if err != nil {
		return nil, err
	}

	if opts.JSON != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range opts.Headers {
		req.Header.Set(name, value)
	}
	for _, name := range slices.Sorted(maps.Keys(opts.Cookies)) {
		req.AddCookie(&http.Cookie{Name: name, Value: opts.Cookies[name]})
	}
	return req, nil
}

// Close releases idle connections.
func (t *Transport) Close() error {
	t.secure.CloseIdleConnections()
	t.insecure.CloseIdleConnections()
	return nil
}
