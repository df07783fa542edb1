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
	"fmt"
	"net"
	"net/netip"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

// DialPolicy is attached to a request context to have GuardedDialContext
// re-check every connection, including those opened for redirect hops.
type DialPolicy struct {
	// AllowInternal skips the internal-address check
	AllowInternal bool

	// Resolver resolves the dialled host; nil uses net.DefaultResolver
	Resolver Resolver
}

type dialPolicyKey struct{}

// WithDialPolicy returns a context carrying p.
func WithDialPolicy(ctx context.Context, p DialPolicy) context.Context {
	return context.WithValue(ctx, dialPolicyKey{}, p)
}

// DialPolicyFromContext returns the policy attached to ctx, if any.
func DialPolicyFromContext(ctx context.Context) (DialPolicy, bool) {
	p, ok := ctx.Value(dialPolicyKey{}).(DialPolicy)
	return p, ok
}

// GuardedDialContext returns a DialContext function that resolves the target
// itself, rejects internal addresses unless the context policy allows them
// and dials the first permitted address. Contexts without a DialPolicy are
// dialled unchecked.
func GuardedDialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		policy, ok := DialPolicyFromContext(ctx)
		if !ok || policy.AllowInternal {
			return dialer.DialContext(ctx, network, addr)
		}

		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}

		var addrs []netip.Addr
		if ip, err := netip.ParseAddr(host); err == nil {
			addrs = []netip.Addr{ip}
		} else {
			resolver := policy.Resolver
			if resolver == nil {
				resolver = net.DefaultResolver
			}
			ipAddrs, err := resolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, &wraperrors.ResolutionError{Host: host, Cause: err}
			}
			for _, ipAddr := range ipAddrs {
				if ip, ok := netip.AddrFromSlice(ipAddr.IP); ok {
					addrs = append(addrs, ip)
				}
			}
			if len(addrs) == 0 {
				return nil, &wraperrors.ResolutionError{Host: host}
			}
		}

		for _, ip := range addrs {
			if IsInternalIP(ip) {
				return nil, &wraperrors.PolicyError{
					Policy:  wraperrors.PolicyInternalAddress,
					Host:    host,
					Message: fmt.Sprintf("connection to internal address %s blocked", ip),
				}
			}
		}

		return dialer.DialContext(ctx, network, net.JoinHostPort(addrs[0].Unmap().String(), port))
	}
}
