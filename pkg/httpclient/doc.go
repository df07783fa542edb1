// Package httpclient provides the net/http transport for httpwrap.
//
// The transport is created with sensible, secure defaults including:
//   - Request logging with sanitized URLs (sensitive parameters redacted)
//   - User-Agent header injection
//   - X-Request-ID and W3C trace context propagation
//   - A dial-time internal-address check, so that redirects and DNS
//     rebinding cannot reach hosts the request model rejected
//   - TLS 1.2 minimum (TLS 1.3 preferred)
//   - Connection pooling for performance
//
// # Usage
//
// Create a transport with default settings and hand it to a client:
//
//	transport, err := httpclient.New(httpclient.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	c := client.New(transport)
//
// Customize configuration:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.UserAgent = "my-service/2.0"
//	cfg.Timeout = 60 * time.Second
//	cfg.RateLimit = 5 // requests per second
//	transport, err := httpclient.New(cfg)
//
// # Redirects
//
// Redirects are followed only when the request allows them, up to
// Config.MaxRedirects hops. The redirect history is returned alongside the
// final response so that the response normalizer can check the chain.
// There is no retry layer: a failed exchange is returned to the caller as is.
//
// # Security
//
// The package includes security features:
//   - Sensitive query parameters (api_key, token, password, etc.) and
//     userinfo passwords are redacted from logs
//   - Header values are never logged
//   - Requests with Verify=false use a separate connection pool
//
// # Observability
//
// Every round trip emits a structured log record via log/slog:
//   - Debug level: successful round trips
//   - Warn level: 4xx/5xx status or transport errors
//   - Fields: method, url (sanitized), request_id, status, duration_ms, error
package httpclient
