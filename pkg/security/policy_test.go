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

package security

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

func TestIsAllowedDomain(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		trusted []string
		want    bool
	}{
		{"empty list", "example.com", nil, false},
		{"exact match", "example.com", []string{"example.com"}, true},
		{"case insensitive", "API.Example.COM", []string{"example.com"}, true},
		{"subdomain of trusted", "api.example.com", []string{"example.com"}, true},
		{"deep subdomain", "a.b.example.com", []string{"example.com"}, true},
		{"suffix without dot boundary", "badexample.com", []string{"example.com"}, false},
		{"trusted given as URL", "cdn.example.com", []string{"https://example.com/path"}, true},
		{"trusted with port", "example.com", []string{"example.com:8443"}, true},
		{"wildcard subdomain", "api.example.com", []string{"*.example.com"}, true},
		{"wildcard deep subdomain", "a.b.example.com", []string{"*.example.com"}, true},
		{"wildcard excludes apex", "example.com", []string{"*.example.com"}, false},
		{"unrelated host", "evil.com", []string{"example.com", "*.trusted.org"}, false},
		{"blank entries skipped", "example.com", []string{"", "  "}, false},
		{"empty host", "", []string{"example.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowedDomain(tt.host, tt.trusted))
		})
	}
}

func TestRedirectPolicy_Check(t *testing.T) {
	const origin = "https://a.example/start"

	tests := []struct {
		name    string
		policy  RedirectPolicy
		chain   []string
		wantErr bool
		wantHop string
	}{
		{
			name:  "no redirects",
			chain: nil,
		},
		{
			name:  "same host chain",
			chain: []string{"https://a.example/start", "https://a.example/end"},
		},
		{
			name:    "cross host blocked",
			chain:   []string{"https://a.example/start", "https://b.example/end"},
			wantErr: true,
			wantHop: "https://b.example/end",
		},
		{
			name:    "returning to origin does not repair chain",
			chain:   []string{"https://a.example/start", "https://b.example/x", "https://a.example/end"},
			wantErr: true,
			wantHop: "https://b.example/x",
		},
		{
			name:   "cross domain allowed",
			policy: RedirectPolicy{AllowCrossDomain: true},
			chain:  []string{"https://a.example/start", "https://b.example/end"},
		},
		{
			name:   "trusted target",
			policy: RedirectPolicy{TrustedDomains: []string{"b.example"}},
			chain:  []string{"https://a.example/start", "https://cdn.b.example/end"},
		},
		{
			name:    "trusted does not cover other hosts",
			policy:  RedirectPolicy{TrustedDomains: []string{"b.example"}},
			chain:   []string{"https://a.example/start", "https://b.example/x", "https://c.example/end"},
			wantErr: true,
			wantHop: "https://c.example/end",
		},
		{
			name:    "hop without host",
			chain:   []string{"https://a.example/start", "/relative"},
			wantErr: true,
			wantHop: "/relative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Check(origin, tt.chain)
			assert.Equal(t, !tt.wantErr, tt.policy.IsSafe(origin, tt.chain))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var redirectErr *wraperrors.UnsafeRedirectError
			require.ErrorAs(t, err, &redirectErr)
			assert.Equal(t, origin, redirectErr.Origin)
			assert.Equal(t, tt.wantHop, redirectErr.Hop)
			assert.Equal(t, tt.chain, redirectErr.Chain)
			assert.True(t, wraperrors.IsPolicyViolation(err))
		})
	}
}

func TestRedactRules_ShouldRedact(t *testing.T) {
	rules := RedactRules{
		Exact:    []string{"Authorization"},
		Prefix:   []string{"x-secret-"},
		Suffix:   []string{"-token"},
		Contains: []string{"api-key"},
	}

	tests := []struct {
		header string
		want   bool
	}{
		{"authorization", true},
		{"AUTHORIZATION", true},
		{"authorization-extra", false},
		{"X-Secret-Value", true},
		{"x-secret", false},
		{"X-Session-Token", true},
		{"token-x", false},
		{"x-my-api-key-id", true},
		{"content-type", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.ShouldRedact(tt.header))
		})
	}
}

func TestRedactRules_Normalize(t *testing.T) {
	rules := RedactRules{
		Exact:    []string{" Authorization ", "authorization", ""},
		Contains: []string{""},
	}.Normalize()

	assert.Equal(t, []string{"authorization"}, rules.Exact)
	assert.Empty(t, rules.Contains)
	assert.False(t, rules.ShouldRedact("content-type"))
}

func TestDefaultRedactRules(t *testing.T) {
	rules := DefaultRedactRules()

	assert.True(t, rules.ShouldRedact("Authorization"))
	assert.True(t, rules.ShouldRedact("Proxy-Authorization"))
	assert.False(t, rules.ShouldRedact("Cookie"))
	assert.False(t, rules.IsEmpty())
	assert.True(t, RedactRules{}.IsEmpty())
}

type countingResolver struct {
	calls atomic.Int32
	inner Resolver
}

func (c *countingResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	c.calls.Add(1)
	return c.inner.LookupIPAddr(ctx, host)
}

func TestCachingResolver(t *testing.T) {
	upstream := &countingResolver{inner: StaticResolver{"example.com": {"93.184.216.34"}}}
	resolver := NewCachingResolver(upstream, time.Minute)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	resolver.now = func() time.Time { return now }

	ctx := context.Background()
	addrs, err := resolver.LookupIPAddr(ctx, "example.com")
	require.NoError(t, err)
	require.Len(t, addrs, 1)

	_, err = resolver.LookupIPAddr(ctx, "EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, int32(1), upstream.calls.Load(), "second lookup should hit the cache")

	now = now.Add(2 * time.Minute)
	_, err = resolver.LookupIPAddr(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, int32(2), upstream.calls.Load(), "expired entry should be refreshed")

	resolver.Purge()
	_, err = resolver.LookupIPAddr(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, int32(3), upstream.calls.Load())
}

func TestCachingResolver_FailuresNotCached(t *testing.T) {
	upstream := &countingResolver{inner: StaticResolver{}}
	resolver := NewCachingResolver(upstream, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := resolver.LookupIPAddr(context.Background(), "missing.example")
		assert.Error(t, err)
	}
	assert.Equal(t, int32(2), upstream.calls.Load())
}

func TestValidateURL(t *testing.T) {
	u, err := ValidateURL("https://example.com/path?q=1")
	require.NoError(t, err)
	assert.Equal(t, "example.com", u.Hostname())

	for _, raw := range []string{"", "   ", "example.com/path", "http://", "http://:8080/", "://bad"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ValidateURL(raw)
			var valErr *wraperrors.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, "url", valErr.Field)
		})
	}
}

func TestValidateScheme(t *testing.T) {
	u, err := ValidateURL("ftp://example.com/file")
	require.NoError(t, err)
	assert.Error(t, ValidateScheme(u))

	u, err = ValidateURL("HTTPS://example.com/")
	require.NoError(t, err)
	assert.NoError(t, ValidateScheme(u))
}

func TestHostname(t *testing.T) {
	assert.Equal(t, "example.com", Hostname("https://Example.COM:8443/x"))
	assert.Equal(t, "example.com", Hostname("example.com"))
	assert.Equal(t, "::1", Hostname("http://[::1]:80/"))
	assert.Equal(t, "", Hostname("/relative"))
}

func TestGuardedDialContext(t *testing.T) {
	dial := GuardedDialContext(nil)

	t.Run("internal literal blocked", func(t *testing.T) {
		ctx := WithDialPolicy(context.Background(), DialPolicy{})
		_, err := dial(ctx, "tcp", "127.0.0.1:9")
		var policyErr *wraperrors.PolicyError
		require.ErrorAs(t, err, &policyErr)
		assert.Equal(t, wraperrors.PolicyInternalAddress, policyErr.Policy)
	})

	t.Run("name resolving internal blocked", func(t *testing.T) {
		ctx := WithDialPolicy(context.Background(), DialPolicy{
			Resolver: StaticResolver{"rebind.example": {"10.0.0.5"}},
		})
		_, err := dial(ctx, "tcp", "rebind.example:443")
		assert.True(t, wraperrors.IsPolicyViolation(err))
	})

	t.Run("resolution failure", func(t *testing.T) {
		ctx := WithDialPolicy(context.Background(), DialPolicy{Resolver: StaticResolver{}})
		_, err := dial(ctx, "tcp", "missing.example:443")
		var resErr *wraperrors.ResolutionError
		assert.ErrorAs(t, err, &resErr)
	})

	t.Run("bad address", func(t *testing.T) {
		ctx := WithDialPolicy(context.Background(), DialPolicy{})
		_, err := dial(ctx, "tcp", "no-port")
		assert.Error(t, err)
	})
}
