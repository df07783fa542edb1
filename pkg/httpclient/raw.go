package httpclient

import (
	"net/http"
	"time"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
	"github.com/tombee/httpwrap/pkg/response"
)

// rawResponse adapts a completed *http.Response to response.Raw.
type rawResponse struct {
	resp    *http.Response
	body    []byte
	url     string
	history []response.Raw
	elapsed time.Duration
}

var (
	_ response.Raw             = (*rawResponse)(nil)
	_ response.HistoryProvider = (*rawResponse)(nil)
	_ response.CookieProvider  = (*rawResponse)(nil)
	_ response.ElapsedProvider = (*rawResponse)(nil)
	_ response.StatusRaiser    = (*rawResponse)(nil)
)

func newRawResponse(resp *http.Response, body []byte, elapsed time.Duration) *rawResponse {
	r := &rawResponse{
		resp:    resp,
		body:    body,
		url:     requestURL(resp),
		elapsed: elapsed,
	}

	// net/http links each redirect request to the response that caused it
	var history []response.Raw
	if resp.Request != nil {
		for prev := resp.Request.Response; prev != nil; {
			history = append(history, &rawResponse{resp: prev, url: requestURL(prev)})
			if prev.Request == nil {
				break
			}
			prev = prev.Request.Response
		}
	}
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	r.history = history

	return r
}

func requestURL(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	return resp.Request.URL.String()
}

func (r *rawResponse) StatusCode() int { return r.resp.StatusCode }
func (r *rawResponse) Header() http.Header { return r.resp.Header }
func (r *rawResponse) Body() []byte { return r.body }
func (r *rawResponse) URL() string { return r.url }
func (r *rawResponse) History() []response.Raw { return r.history }
func (r *rawResponse) Elapsed() time.Duration { return r.elapsed }

func (r *rawResponse) Cookies() map[string]string {
	cookies := r.resp.Cookies()
	if len(cookies) == 0 {
		return nil
	}
	values := make(map[string]string, len(cookies))
	for _, c := range cookies {
		values[c.Name] = c.Value
	}
	return values
}

// RaiseForStatus returns a *errors.StatusError for 4xx and 5xx responses.
func (r *rawResponse) RaiseForStatus() error {
	code := r.resp.StatusCode
	if code >= 400 && code < 600 {
		return &wraperrors.StatusError{
			StatusCode: code,
			Reason:     http.StatusText(code),
			URL:        r.url,
		}
	}
	return nil
}
