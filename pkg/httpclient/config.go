package httpclient

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/propagation"
)

// Config configures the net/http transport.
type Config struct {
	// Timeout bounds an exchange, including redirects, when the request
	// carries no timeout of its own. A request timeout replaces it.
	// Default: 30s. Must be > 0.
	Timeout time.Duration

	// UserAgent is the User-Agent header value used when the request does not set one.
	// Required. Must be non-empty.
	UserAgent string

	// MaxRedirects is the longest redirect chain followed before giving up.
	// Default: 10. Must be >= 0.
	MaxRedirects int

	// RateLimit is the sustained number of requests per second (0 = unlimited).
	// Must be >= 0.
	RateLimit float64

	// Burst is the number of requests allowed above RateLimit at once.
	// Default: 1 when RateLimit > 0.
	Burst int

	// GuardDial re-checks every dialled address against the internal-address
	// rules of the request. Default: true.
	GuardDial bool

	// Logger receives one record per HTTP round trip. Nil uses slog.Default().
	Logger *slog.Logger

	// Propagator injects trace context headers. Nil uses the global otel propagator.
	Propagator propagation.TextMapPropagator
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		UserAgent:    "httpwrap/1.0",
		MaxRedirects: 10,
		GuardDial:    true,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}

	if c.MaxRedirects < 0 {
		return fmt.Errorf("max_redirects must be >= 0, got %d", c.MaxRedirects)
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be >= 0, got %v", c.RateLimit)
	}

	if c.RateLimit > 0 && c.Burst < 0 {
		return fmt.Errorf("burst must be >= 0, got %d", c.Burst)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}

	return nil
}
