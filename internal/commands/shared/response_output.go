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
	"fmt"
	"io"

	"github.com/tombee/httpwrap/pkg/httpclient"
	"github.com/tombee/httpwrap/pkg/response"
)

// ResponseView is the JSON form of a response. Header values are redacted
// and URLs are sanitized.
type ResponseView struct {
	Status    int               `json:"status"`
	Reason    string            `json:"reason"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      any               `json:"body,omitempty"`
	Redirects []string          `json:"redirects,omitempty"`
	ElapsedMS int64             `json:"elapsed_ms"`
}

// NewResponseView describes resp. A JSON body is embedded as is, any other
// body as text.
func NewResponseView(resp *response.Response) ResponseView {
	view := ResponseView{
		Status:    resp.StatusCode(),
		Reason:    resp.Reason(),
		URL:       httpclient.SanitizeURL(resp.URL()),
		Headers:   resp.Headers().Redacted(),
		ElapsedMS: resp.Elapsed().Milliseconds(),
	}
	for _, u := range resp.RedirectChain() {
		view.Redirects = append(view.Redirects, httpclient.SanitizeURL(u))
	}

	if content := resp.Content(); len(content) > 0 {
		if json.Valid(content) {
			view.Body = json.RawMessage(content)
		} else {
			view.Body = resp.Text()
		}
	}
	return view
}

// WriteHead prints the status line and the redacted headers of resp.
func WriteHead(w io.Writer, resp *response.Response) {
	fmt.Fprintln(w, RenderStatusLine(resp.StatusCode(), resp.Reason()))
	for name, value := range resp.Headers().All() {
		fmt.Fprintf(w, "%s %s\n", RenderLabel(name+":"), value)
	}
	fmt.Fprintln(w)
}
