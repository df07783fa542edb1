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
	"strings"
	"sync"
	"time"
)

// Resolver looks up the addresses of a host. *net.Resolver satisfies it;
// tests substitute a static implementation.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// CachingResolver caches successful lookups for a fixed TTL so that the
// internal-address check and the dial that follows see the same answer.
type CachingResolver struct {
	mu       sync.RWMutex
	cache    map[string]*dnsCacheEntry
	timeout  time.Duration
	upstream Resolver
	now      func() time.Time
}

type dnsCacheEntry struct {
	addrs     []net.IPAddr
	timestamp time.Time
}

// NewCachingResolver creates a resolver caching upstream answers for ttl.
// A nil upstream uses net.DefaultResolver; a non-positive ttl uses 30s.
func NewCachingResolver(upstream Resolver, ttl time.Duration) *CachingResolver {
	if upstream == nil {
		upstream = net.DefaultResolver
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachingResolver{
		cache:    make(map[string]*dnsCacheEntry),
		timeout:  ttl,
		upstream: upstream,
		now:      time.Now,
	}
}

// LookupIPAddr resolves host, serving from the cache while the entry is fresh.
// Failures are never cached.
func (r *CachingResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	key := strings.ToLower(host)

	r.mu.RLock()
	entry, exists := r.cache[key]
	r.mu.RUnlock()

	if exists && r.now().Sub(entry.timestamp) < r.timeout {
		return entry.addrs, nil
	}

	addrs, err := r.upstream.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = &dnsCacheEntry{
		addrs:     addrs,
		timestamp: r.now(),
	}
	r.mu.Unlock()

	return addrs, nil
}

// Purge drops every cached entry.
func (r *CachingResolver) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*dnsCacheEntry)
}

// StaticResolver answers lookups from a fixed table. Hosts missing from the
// table fail with a *net.DNSError marked as not found.
type StaticResolver map[string][]string

// LookupIPAddr implements Resolver.
func (s StaticResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	ips, ok := s[strings.ToLower(host)]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	addrs := make([]net.IPAddr, 0, len(ips))
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil {
			addrs = append(addrs, net.IPAddr{IP: parsed})
		}
	}
	return addrs, nil
}
