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

package errors_test

import (
	"errors"
	"strings"
	"testing"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		original := errors.New("original error")
		wrapped := wraperrors.Wrap(original, "additional context")

		if wrapped == nil {
			t.Fatal("Wrap should not return nil for non-nil error")
		}

		msg := wrapped.Error()
		if !strings.Contains(msg, "additional context") {
			t.Errorf("wrapped error should contain context, got: %s", msg)
		}
		if !strings.Contains(msg, "original error") {
			t.Errorf("wrapped error should contain original message, got: %s", msg)
		}
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		if wrapped := wraperrors.Wrap(nil, "context"); wrapped != nil {
			t.Errorf("Wrap(nil, _) should return nil, got: %v", wrapped)
		}
	})

	t.Run("preserves error chain", func(t *testing.T) {
		original := errors.New("root cause")
		wrapped := wraperrors.Wrap(original, "context")

		if !errors.Is(wrapped, original) {
			t.Error("wrapped error should match original with errors.Is")
		}
		if unwrapped := errors.Unwrap(wrapped); unwrapped != original {
			t.Errorf("Unwrap should return original error, got: %v", unwrapped)
		}
	})
}

func TestAs(t *testing.T) {
	t.Run("extracts typed error from chain", func(t *testing.T) {
		original := &wraperrors.PolicyError{
			Policy: wraperrors.PolicyInternalAddress,
			Host:   "localhost",
		}
		wrapped := wraperrors.Wrap(original, "building request")

		var target *wraperrors.PolicyError
		if !wraperrors.As(wrapped, &target) {
			t.Fatal("As should extract PolicyError from chain")
		}
		if target.Host != "localhost" {
			t.Errorf("extracted error Host = %q, want %q", target.Host, "localhost")
		}
	})

	t.Run("returns false for different error type", func(t *testing.T) {
		err := &wraperrors.ValidationError{Field: "url"}

		var target *wraperrors.PolicyError
		if wraperrors.As(err, &target) {
			t.Error("As should return false when error type doesn't match")
		}
	})
}

func TestIsPolicyViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"policy error", &wraperrors.PolicyError{Policy: wraperrors.PolicyUntrustedHost}, true},
		{"wrapped policy error", wraperrors.Wrap(&wraperrors.PolicyError{}, "ctx"), true},
		{"unsafe redirect", &wraperrors.UnsafeRedirectError{Origin: "a", Hop: "b"}, true},
		{"validation error", &wraperrors.ValidationError{Message: "bad"}, false},
		{"resolution error", &wraperrors.ResolutionError{Host: "x"}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wraperrors.IsPolicyViolation(tt.err); got != tt.want {
				t.Errorf("IsPolicyViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&wraperrors.ValidationError{}, "validation"},
		{&wraperrors.PolicyError{}, "policy"},
		{&wraperrors.ResolutionError{}, "resolution"},
		{&wraperrors.UnsafeRedirectError{}, "unsafe_redirect"},
		{&wraperrors.StatusError{StatusCode: 404}, "status"},
		{&wraperrors.ConfigError{}, "config"},
		{wraperrors.Wrap(&wraperrors.PolicyError{}, "ctx"), "policy"},
		{errors.New("connection refused"), "transport"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := wraperrors.TypeOf(tt.err); got != tt.want {
				t.Errorf("TypeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}
