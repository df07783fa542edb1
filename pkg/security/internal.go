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
	"net/netip"
	"strings"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

// internalSuffixes are name suffixes treated as internal without a lookup.
var internalSuffixes = []string{".local", ".internal", ".lan"}

// reservedPrefixes are ranges that are neither private nor publicly routable
// but are not covered by the net/netip classification helpers.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),       // "this" network
	netip.MustParsePrefix("100.64.0.0/10"),   // carrier-grade NAT
	netip.MustParsePrefix("192.0.0.0/24"),    // IETF protocol assignments
	netip.MustParsePrefix("192.0.2.0/24"),    // TEST-NET-1
	netip.MustParsePrefix("198.18.0.0/15"),   // benchmarking
	netip.MustParsePrefix("198.51.100.0/24"), // TEST-NET-2
	netip.MustParsePrefix("203.0.113.0/24"),  // TEST-NET-3
	netip.MustParsePrefix("240.0.0.0/4"),     // future use, includes broadcast
	netip.MustParsePrefix("2001:db8::/32"),   // documentation
	netip.MustParsePrefix("100::/64"),        // discard-only
}

// IsInternalAddress reports whether host names a non-public network target.
//
// "localhost" and names ending in .local, .internal or .lan are internal by
// name. IP literals are classified directly. Any other name is resolved
// through resolver and is internal when at least one of its addresses is
// private, loopback, link-local, multicast, unspecified or reserved.
//
// A lookup failure is returned as a *errors.ResolutionError together with
// false; callers must not read it as "internal".
func IsInternalAddress(ctx context.Context, resolver Resolver, host string) (bool, error) {
	host = strings.TrimSuffix(strings.ToLower(strings.Trim(host, "[]")), ".")
	if host == "" {
		return false, &wraperrors.ValidationError{Field: "host", Message: "host is empty"}
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true, nil
	}
	for _, suffix := range internalSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true, nil
		}
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return IsInternalIP(addr), nil
	}

	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return false, &wraperrors.ResolutionError{Host: host, Cause: err}
	}
	if len(addrs) == 0 {
		return false, &wraperrors.ResolutionError{Host: host}
	}

	for _, ipAddr := range addrs {
		addr, ok := netip.AddrFromSlice(ipAddr.IP)
		if !ok {
			continue
		}
		if IsInternalIP(addr) {
			return true, nil
		}
	}
	return false, nil
}

// IsInternalIP classifies a single address: private, loopback, link-local,
// multicast, unspecified or reserved addresses are internal.
func IsInternalIP(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case addr.IsPrivate(),
		addr.IsLoopback(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast(),
		addr.IsUnspecified():
		return true
	}
	for _, prefix := range reservedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
