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

package shared

import (
	"errors"
	"fmt"
	"io"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

// Exit codes for httpwrap commands
const (
	ExitSuccess         = 0
	ExitRequestFailed   = 1
	ExitInvalidInput    = 2
	ExitPolicyViolation = 3
	ExitHTTPError       = 4
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewRequestError creates an error for requests that could not complete
func NewRequestError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitRequestFailed,
		Message: msg,
		Cause:   cause,
	}
}

// NewInvalidInputError creates an error for bad flags, files or settings
func NewInvalidInputError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidInput,
		Message: msg,
		Cause:   cause,
	}
}

// NewPolicyError creates an error for requests refused by the security policy
func NewPolicyError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitPolicyViolation,
		Message: msg,
		Cause:   cause,
	}
}

// NewHTTPError creates an error for 4xx/5xx responses under --raise
func NewHTTPError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitHTTPError,
		Message: msg,
		Cause:   cause,
	}
}

// Classify wraps err in an ExitError whose code matches its error type.
// An err that already carries an exit code is returned unchanged.
func Classify(msg string, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	switch wraperrors.TypeOf(err) {
	case "policy", "unsafe_redirect":
		return NewPolicyError(msg, err)
	case "validation", "config":
		return NewInvalidInputError(msg, err)
	case "status":
		return NewHTTPError(msg, err)
	default:
		return NewRequestError(msg, err)
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(Classify("", err), &exitErr) {
		return exitErr.Code
	}
	return ExitRequestFailed
}

// HandleExitError prints err and its hint, if any, to w and returns the
// exit code the process should use.
func HandleExitError(w io.Writer, err error) int {
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintln(w, "Error:", err.Error())
	printUserVisibleSuggestion(w, err)

	return ExitCode(err)
}

// printUserVisibleSuggestion prints the hint of the first UserVisibleError
// in err's chain.
func printUserVisibleSuggestion(w io.Writer, err error) {
	var userErr wraperrors.UserVisibleError
	if !errors.As(err, &userErr) || !userErr.IsUserVisible() {
		return
	}
	if hint := userErr.Hint(); hint != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", hint)
	}
}
