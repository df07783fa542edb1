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

package errors

import (
	"fmt"
	"strings"
)

// ValidationError represents a malformed request or request option.
// Use this for wrong types, missing or forbidden bodies, bad URLs and
// non-positive timeouts. These are never retryable.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string

	// Cause is the underlying error (e.g. a URL parse error)
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ValidationError) ErrorType() string { return "validation" }

// IsRetryable implements ErrorClassifier.
func (e *ValidationError) IsRetryable() bool { return false }

// IsUserVisible implements UserVisibleError.
func (e *ValidationError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ValidationError) UserMessage() string { return e.Message }

// Hint implements UserVisibleError.
func (e *ValidationError) Hint() string { return e.Suggestion }

// Policy names reported by PolicyError.
const (
	PolicyInternalAddress  = "internal_address"
	PolicyInternalOverride = "internal_override"
	PolicyUntrustedHost    = "untrusted_host"
	PolicyRedirects        = "redirects_disabled"
)

// PolicyError represents a request that is well formed but forbidden by the
// active security settings. Callers may choose to relax the policy instead
// of fixing the request.
type PolicyError struct {
	// Policy names the rule that rejected the request (see Policy* constants)
	Policy string

	// Host is the offending host, if any
	Host string

	// Message is the human-readable error description
	Message string

	// Suggestion names the setting that would permit the request
	Suggestion string
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("policy violation (%s) for %s: %s", e.Policy, e.Host, e.Message)
	}
	return fmt.Sprintf("policy violation (%s): %s", e.Policy, e.Message)
}

// ErrorType implements ErrorClassifier.
func (e *PolicyError) ErrorType() string { return "policy" }

// IsRetryable implements ErrorClassifier.
func (e *PolicyError) IsRetryable() bool { return false }

// IsUserVisible implements UserVisibleError.
func (e *PolicyError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *PolicyError) UserMessage() string { return e.Message }

// Hint implements UserVisibleError.
func (e *PolicyError) Hint() string { return e.Suggestion }

// ResolutionError represents a DNS lookup failure. A failed lookup says
// nothing about whether the host is internal.
type ResolutionError struct {
	// Host is the name that could not be resolved
	Host string

	// Cause is the resolver error, nil when the lookup returned no addresses
	Cause error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("unable to resolve host %q: no addresses", e.Host)
	}
	return fmt.Sprintf("unable to resolve host %q: %v", e.Host, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ResolutionError) ErrorType() string { return "resolution" }

// IsRetryable implements ErrorClassifier. DNS failures are often transient.
func (e *ResolutionError) IsRetryable() bool { return true }

// UnsafeRedirectError is returned when a response's redirect chain leaves
// the origin host for a destination the redirect policy does not trust.
type UnsafeRedirectError struct {
	// Origin is the URL of the first request in the chain
	Origin string

	// Hop is the first URL that violated the policy
	Hop string

	// Chain is the full sequence of visited URLs
	Chain []string

	// Reason explains why the hop was rejected
	Reason string
}

// Error implements the error interface.
func (e *UnsafeRedirectError) Error() string {
	msg := fmt.Sprintf("insecure redirect detected from %s to %s", e.Origin, e.Hop)
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if len(e.Chain) > 0 {
		msg = fmt.Sprintf("%s (chain: %s)", msg, strings.Join(e.Chain, " -> "))
	}
	return msg
}

// ErrorType implements ErrorClassifier.
func (e *UnsafeRedirectError) ErrorType() string { return "unsafe_redirect" }

// IsRetryable implements ErrorClassifier.
func (e *UnsafeRedirectError) IsRetryable() bool { return false }

// StatusError is raised by RaiseForStatus for 4xx and 5xx responses.
type StatusError struct {
	// StatusCode is the HTTP status code
	StatusCode int

	// Reason is the status reason phrase
	Reason string

	// URL is the final URL of the response
	URL string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	kind := "client error"
	if e.StatusCode >= 500 {
		kind = "server error"
	}
	return fmt.Sprintf("%d %s: %s for url: %s", e.StatusCode, kind, e.Reason, e.URL)
}

// ErrorType implements ErrorClassifier.
func (e *StatusError) ErrorType() string { return "status" }

// IsRetryable implements ErrorClassifier.
func (e *StatusError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 408 || e.StatusCode == 429
}

// ConfigError represents invalid settings.
// Use this for settings file errors, bad environment values, or a
// Configure call that would leave the store in an invalid state.
type ConfigError struct {
	// Key is the settings key that has the problem (e.g., "default_timeout")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ConfigError) ErrorType() string { return "config" }

// IsRetryable implements ErrorClassifier.
func (e *ConfigError) IsRetryable() bool { return false }
