package httpclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// RequestIDHeader carries a per-round-trip identifier.
const RequestIDHeader = "X-Request-ID"

// loggingTransport wraps an http.RoundTripper to add:
// - Request logging with sanitized URLs
// - User-Agent header injection
// - Request ID and trace context propagation
// - Duration tracking
type loggingTransport struct {
	base       http.RoundTripper
	userAgent  string
	logger     *slog.Logger
	propagator propagation.TextMapPropagator
}

// newLoggingTransport creates a new logging transport that wraps the base transport.
func newLoggingTransport(base http.RoundTripper, userAgent string, logger *slog.Logger, propagator propagation.TextMapPropagator) *loggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &loggingTransport{
		base:       base,
		userAgent:  userAgent,
		logger:     logger,
		propagator: propagator,
	}
}

// RoundTrip implements http.RoundTripper.
// Logs every round trip with method, URL (sanitized), status/error, and duration.
// Redirect hops are separate round trips and are logged individually.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	// RoundTrip must not modify the caller's request
	req = req.Clone(req.Context())

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		req.Header.Set(RequestIDHeader, requestID)
	}

	propagator := t.propagator
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	propagator.Inject(req.Context(), propagation.HeaderCarrier(req.Header))

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start).Milliseconds()

	logURL := sanitizeURL(req.URL)

	if err != nil {
		t.logger.WarnContext(req.Context(), "http request failed",
			"method", req.Method,
			"url", logURL,
			"request_id", requestID,
			"duration_ms", duration,
			"error", err.Error(),
		)
	} else {
		level := slog.LevelDebug
		if resp.StatusCode >= 400 {
			level = slog.LevelWarn
		}
		t.logger.Log(req.Context(), level, "http request",
			"method", req.Method,
			"url", logURL,
			"request_id", requestID,
			"status", resp.StatusCode,
			"duration_ms", duration,
		)
	}

	return resp, err
}
