// Package jq filters JSON response bodies with jq expressions.
package jq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itchyny/gojq"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

const (
	// DefaultTimeout bounds a single query evaluation.
	DefaultTimeout = 1 * time.Second

	// DefaultMaxInputSize is the largest body a query will decode (10MB).
	DefaultMaxInputSize = 10 * 1024 * 1024
)

// Executor evaluates jq expressions with a timeout and an input size limit.
type Executor struct {
	timeout      time.Duration
	maxInputSize int64
}

// NewExecutor creates an executor. Zero values select the defaults.
func NewExecutor(timeout time.Duration, maxInputSize int64) *Executor {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if maxInputSize == 0 {
		maxInputSize = DefaultMaxInputSize
	}

	return &Executor{
		timeout:      timeout,
		maxInputSize: maxInputSize,
	}
}

// Query decodes body as JSON and evaluates expression against it.
// An empty expression returns the decoded document.
func (e *Executor) Query(ctx context.Context, expression string, body []byte) (any, error) {
	if int64(len(body)) > e.maxInputSize {
		return nil, &wraperrors.ValidationError{
			Field:   "body",
			Message: fmt.Sprintf("body size (%d bytes) exceeds maximum (%d bytes)", len(body), e.maxInputSize),
		}
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &wraperrors.ValidationError{
			Field:      "body",
			Message:    "response body is not JSON",
			Suggestion: "Drop --query for non-JSON responses",
			Cause:      err,
		}
	}
	return e.Execute(ctx, expression, doc)
}

// Execute evaluates expression against an already decoded document.
// A single result is returned as is; several results are returned as a
// slice; no result is nil.
func (e *Executor) Execute(ctx context.Context, expression string, data any) (any, error) {
	if expression == "" {
		return data, nil
	}

	code, err := compile(expression)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var results []any
	iter := code.RunWithContext(execCtx, data)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			if execCtx.Err() != nil {
				return nil, fmt.Errorf("query timeout after %v: %w", e.timeout, execCtx.Err())
			}
			return nil, fmt.Errorf("query failed: %w", err)
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// Validate reports whether expression parses and compiles.
func (e *Executor) Validate(expression string) error {
	if expression == "" {
		return nil
	}
	_, err := compile(expression)
	return err
}

func compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, &wraperrors.ValidationError{
			Field:   "query",
			Message: fmt.Sprintf("invalid jq expression %q", expression),
			Cause:   err,
		}
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, &wraperrors.ValidationError{
			Field:   "query",
			Message: fmt.Sprintf("jq compilation failed for %q", expression),
			Cause:   err,
		}
	}
	return code, nil
}
