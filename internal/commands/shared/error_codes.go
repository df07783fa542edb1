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
	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

// Error codes for structured JSON output
const (
	// Input errors (E001-E099)
	ErrorCodeInvalidRequest = "E001" // Malformed request or options
	ErrorCodeInvalidConfig  = "E002" // Invalid settings or settings file

	// Policy errors (E100-E199)
	ErrorCodePolicyViolation = "E101" // Request refused by the security policy
	ErrorCodeUnsafeRedirect  = "E102" // Redirect chain left trusted hosts

	// Network errors (E200-E299)
	ErrorCodeResolution = "E201" // DNS lookup failed
	ErrorCodeTransport  = "E202" // Connection, TLS or timeout failure

	// Response errors (E300-E399)
	ErrorCodeHTTPStatus = "E301" // 4xx/5xx status under --raise
)

// ErrorCode maps err to its JSON error code.
func ErrorCode(err error) string {
	switch wraperrors.TypeOf(err) {
	case "validation":
		return ErrorCodeInvalidRequest
	case "config":
		return ErrorCodeInvalidConfig
	case "policy":
		return ErrorCodePolicyViolation
	case "unsafe_redirect":
		return ErrorCodeUnsafeRedirect
	case "resolution":
		return ErrorCodeResolution
	case "status":
		return ErrorCodeHTTPStatus
	default:
		return ErrorCodeTransport
	}
}
