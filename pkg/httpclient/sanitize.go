package httpclient

import (
	"net/url"
	"strings"
)

// sensitiveParams contains query parameter names that should be redacted from logs.
// These are matched case-insensitively.
var sensitiveParams = []string{
	"api_key",
	"apikey",
	"token",
	"password",
	"auth",
	"secret",
	"key",
	"credential",
	"signature",
}

// redactedParam replaces the values of sensitive query parameters.
const redactedParam = "[REDACTED]"

// SanitizeURL parses rawURL and returns it with credentials and sensitive
// query parameters redacted. Unparseable input is returned with its query
// string dropped.
func SanitizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		if i := strings.IndexByte(rawURL, '?'); i >= 0 {
			return rawURL[:i]
		}
		return rawURL
	}
	return sanitizeURL(u)
}

// sanitizeURL removes sensitive query parameters and userinfo passwords
// from URLs before logging.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	safe := *u
	if _, hasPassword := u.User.Password(); hasPassword {
		safe.User = url.UserPassword(u.User.Username(), redactedParam)
	}

	if u.RawQuery == "" {
		return safe.String()
	}

	q := u.Query()
	for param := range q {
		if isSensitiveParam(param) {
			q.Set(param, redactedParam)
		}
	}
	safe.RawQuery = q.Encode()
	return safe.String()
}

// isSensitiveParam checks if a parameter name matches the sensitive list.
// Comparison is case-insensitive to catch variants like "API_KEY", "Api_Key", etc.
func isSensitiveParam(param string) bool {
	lower := strings.ToLower(param)
	for _, sensitive := range sensitiveParams {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
