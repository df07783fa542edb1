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
	"encoding/json"
	"errors"
	"io"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

// JSONResponse is the base envelope for all JSON output
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// JSONError represents a structured error with code, type, message and suggestion
type JSONError struct {
	Code       string `json:"code"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// EmitJSON marshals v as indented JSON to w
func EmitJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// NewJSONError describes err for JSON output
func NewJSONError(err error) JSONError {
	jsonErr := JSONError{
		Code:    ErrorCode(err),
		Type:    wraperrors.TypeOf(err),
		Message: err.Error(),
	}
	var userErr wraperrors.UserVisibleError
	if errors.As(err, &userErr) {
		jsonErr.Suggestion = userErr.Hint()
	}
	return jsonErr
}

// EmitJSONError writes a failed envelope for command carrying err to w
func EmitJSONError(w io.Writer, command string, err error) error {
	type errorResponse struct {
		JSONResponse
		Errors []JSONError `json:"errors"`
	}

	resp := errorResponse{
		JSONResponse: JSONResponse{
			Version: "1.0",
			Command: command,
			Success: false,
		},
		Errors: []JSONError{NewJSONError(err)},
	}

	return EmitJSON(w, resp)
}
