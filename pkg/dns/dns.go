/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package dns wraps name resolution used to corroborate machine identity.
package dns

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/carverauto/vmminer/pkg/models"
)

const defaultTimeout = 5 * time.Second

// Resolver answers forward and reverse queries. Not-found answers are returned
// as errors for which IsNotFound reports true.
type Resolver interface {
	LookupAddresses(ctx context.Context, fqdn string) ([]string, error)
	LookupNames(ctx context.Context, address string) ([]string, error)
}

// Config is the dns section of the service configuration.
type Config struct {
	KnownDomains []string `json:"known_domains" yaml:"known_domains"`
	// Nameservers are host:port pairs queried in round-robin order instead of
	// the system resolver.
	Nameservers []string        `json:"nameservers" yaml:"nameservers"`
	Timeout     models.Duration `json:"timeout" yaml:"timeout"`
}

// NetResolver implements Resolver with net.Resolver.
type NetResolver struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// NewNetResolver returns a resolver honoring cfg.Nameservers and cfg.Timeout.
func NewNetResolver(cfg *Config) *NetResolver {
	r := &NetResolver{
		resolver: net.DefaultResolver,
		timeout:  defaultTimeout,
	}

	if cfg == nil {
		return r
	}

	if cfg.Timeout > 0 {
		r.timeout = time.Duration(cfg.Timeout)
	}

	if len(cfg.Nameservers) > 0 {
		servers := append([]string(nil), cfg.Nameservers...)

		var next atomic.Uint64

		dialer := &net.Dialer{Timeout: r.timeout}

		r.resolver = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				server := servers[next.Add(1)%uint64(len(servers))]

				return dialer.DialContext(ctx, network, server)
			},
		}
	}

	return r
}

func (r *NetResolver) LookupAddresses(ctx context.Context, fqdn string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := r.resolver.LookupHost(ctx, fqdn)
	if err != nil {
		return nil, err
	}

	return addrs, nil
}

func (r *NetResolver) LookupNames(ctx context.Context, address string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	names, err := r.resolver.LookupAddr(ctx, address)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, strings.TrimSuffix(name, "."))
	}

	return out, nil
}

// IsNotFound reports whether err is an NXDOMAIN or empty answer.
func IsNotFound(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}

	return false
}

// IsTimeout reports whether err is a lookup timeout.
func IsTimeout(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout
	}

	return errors.Is(err, context.DeadlineExceeded)
}
