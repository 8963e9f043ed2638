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

package miner

import (
	"context"
	"slices"
	"strings"

	"github.com/carverauto/vmminer/pkg/dns"
	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/models"
)

// Reconciler fills a missing hostname or domain from the VM name and DNS
// evidence. Conflicting evidence leaves the field empty.
type Reconciler struct {
	resolver     dns.Resolver
	knownDomains []string
	logger       logger.Logger
	metrics      *Metrics
}

func NewReconciler(resolver dns.Resolver, knownDomains []string, log logger.Logger, metrics *Metrics) *Reconciler {
	return &Reconciler{
		resolver:     resolver,
		knownDomains: knownDomains,
		logger:       log,
		metrics:      metrics,
	}
}

// NeedsReconcile reports whether rec is missing either half of its FQDN.
func NeedsReconcile(rec *models.MachineRecord) bool {
	return rec.Hostname == "" || rec.Domain == ""
}

// Reconcile gathers candidates and selects hostname and domain. Lookup
// failures only mean missing evidence.
func (r *Reconciler) Reconcile(ctx context.Context, rec *models.MachineRecord) {
	rec.ParsedShortName = parseVMName(rec.RawName)

	r.forwardLookups(ctx, rec)
	r.reverseLookups(ctx, rec)
	r.selectHostname(rec)
	r.selectDomain(rec)
}

func (r *Reconciler) forwardLookups(ctx context.Context, rec *models.MachineRecord) {
	hostname := rec.Hostname
	if hostname == "" {
		hostname = rec.ParsedShortName
	}

	if hostname == "" {
		return
	}

	for _, domain := range r.knownDomains {
		fqdn := hostname + "." + domain

		addresses, err := r.resolver.LookupAddresses(ctx, fqdn)
		if err != nil {
			r.lookupFailed(ctx, lookupForward, fqdn, err)

			continue
		}

		if len(addresses) == 0 {
			r.metrics.dnsLookup(ctx, lookupForward, outcomeMissing)

			continue
		}

		r.metrics.dnsLookup(ctx, lookupForward, outcomeFound)

		if markForwardMatch(rec, addresses, fqdn) {
			r.logger.Info().Msgf("VM %s: Verified DNS A record %s", rec.RawName, fqdn)
		} else {
			r.logger.Warn().Msgf("VM %s: Unverified DNS A record %s: Resolved to %s",
				rec.RawName, fqdn, strings.Join(addresses, " "))
		}

		rec.DomainCandidates.Add(domain)
	}
}

// markForwardMatch records fqdn on the first interface whose address is in
// addresses.
func markForwardMatch(rec *models.MachineRecord, addresses []string, fqdn string) bool {
	for _, iface := range rec.Interfaces {
		if slices.Contains(addresses, iface.IPv4Address) {
			iface.ForwardMatches.Add(fqdn)

			return true
		}
	}

	return false
}

func (r *Reconciler) reverseLookups(ctx context.Context, rec *models.MachineRecord) {
	for _, iface := range rec.Interfaces {
		names, err := r.resolver.LookupNames(ctx, iface.IPv4Address)
		if err != nil {
			r.lookupFailed(ctx, lookupReverse, iface.IPv4Address, err)

			continue
		}

		if len(names) == 0 {
			r.metrics.dnsLookup(ctx, lookupReverse, outcomeMissing)

			continue
		}

		r.metrics.dnsLookup(ctx, lookupReverse, outcomeFound)

		for _, name := range names {
			name = strings.ToLower(name)
			iface.ReverseNames.Add(name)

			host, domain := splitFQDN(name)
			rec.HostnameCandidates.Add(host)
			rec.DomainCandidates.Add(domain)
		}
	}
}

func (r *Reconciler) lookupFailed(ctx context.Context, kind, query string, err error) {
	outcome := outcomeError
	if dns.IsNotFound(err) {
		outcome = outcomeMissing
	}

	r.metrics.dnsLookup(ctx, kind, outcome)
	r.logger.Debug().Err(err).Str("kind", kind).Str("query", query).Msg("DNS lookup failed")
}

func (r *Reconciler) selectHostname(rec *models.MachineRecord) {
	switch rec.HostnameCandidates.Len() {
	case 0:
		r.logger.Error().Msgf("VM %s: Using VM Name parsed as %s: Fix VMware Guest Tools and DNS Records.",
			rec.RawName, rec.ParsedShortName)

		if rec.Hostname == "" {
			rec.Hostname = rec.ParsedShortName
		}
	case 1:
		candidate := rec.HostnameCandidates.First()
		r.logger.Info().Msgf("VM %s: Hostname found through DNS: %s", rec.RawName, candidate)

		if rec.Hostname == "" {
			rec.Hostname = candidate
		}
	default:
		r.logger.Error().Msgf("VM %s: Multiple Hostnames found through DNS: %v",
			rec.RawName, rec.HostnameCandidates.Sorted())

		if rec.ParsedShortName != "" && rec.HostnameCandidates.Has(rec.ParsedShortName) && rec.Hostname == "" {
			r.logger.Warn().Msgf("VM %s: Selecting Hostname %s from multiple DNS results",
				rec.RawName, rec.ParsedShortName)

			rec.Hostname = rec.ParsedShortName
		}
	}
}

func (r *Reconciler) selectDomain(rec *models.MachineRecord) {
	switch rec.DomainCandidates.Len() {
	case 0:
		r.logger.Error().Msgf("VM %s: Unable to reliably determine domain. Fix VMware Guest Tools and DNS Records.",
			rec.RawName)
	case 1:
		candidate := rec.DomainCandidates.First()
		r.logger.Info().Msgf("VM %s: Domain found through DNS: %s", rec.RawName, candidate)

		if rec.Domain == "" {
			rec.Domain = candidate
		}
	default:
		r.logger.Error().Msgf("VM %s: Multiple Domains found through DNS: %v",
			rec.RawName, rec.DomainCandidates.Sorted())
	}
}
