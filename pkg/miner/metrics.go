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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/carverauto/vmminer/pkg/miner"

	metricMachinesDiscoveredName = "vmminer_machines_discovered"
	metricRecordsSubmittedName   = "vmminer_records_submitted"
	metricRecordsTriagedName     = "vmminer_records_triaged"
	metricSubmissionFailuresName = "vmminer_submission_failures"
	metricDNSLookupsName         = "vmminer_dns_lookups"
	metricCrawlDurationName      = "vmminer_crawl_duration_seconds"
	metricTriageSizeName         = "vmminer_triage_size"
)

// Failure classes reported on vmminer_submission_failures.
const (
	failureServer    = "server"
	failureClient    = "client"
	failureTransport = "transport"
)

// DNS lookup attributes reported on vmminer_dns_lookups.
const (
	lookupForward  = "forward"
	lookupReverse  = "reverse"
	outcomeFound   = "found"
	outcomeMissing = "not_found"
	outcomeError   = "error"
)

// Metrics holds the crawl instruments. A nil *Metrics records nothing.
type Metrics struct {
	machines      metric.Int64Counter
	submitted     metric.Int64Counter
	triaged       metric.Int64Counter
	failures      metric.Int64Counter
	lookups       metric.Int64Counter
	crawlDuration metric.Float64Histogram
	triageSize    metric.Int64ObservableGauge
	registration  metric.Registration
}

// NewMetrics creates the crawl instruments on meter. triageSize is sampled on
// every collection. A nil meter uses the global provider.
func NewMetrics(meter metric.Meter, triageSize func() int) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	m := &Metrics{}

	var err error

	if m.machines, err = meter.Int64Counter(metricMachinesDiscoveredName,
		metric.WithDescription("Virtual machines visited by the crawler")); err != nil {
		return nil, err
	}

	if m.submitted, err = meter.Int64Counter(metricRecordsSubmittedName,
		metric.WithDescription("Device records accepted by the asset registry")); err != nil {
		return nil, err
	}

	if m.triaged, err = meter.Int64Counter(metricRecordsTriagedName,
		metric.WithDescription("Machine records routed to triage")); err != nil {
		return nil, err
	}

	if m.failures, err = meter.Int64Counter(metricSubmissionFailuresName,
		metric.WithDescription("Device submissions rejected or not delivered")); err != nil {
		return nil, err
	}

	if m.lookups, err = meter.Int64Counter(metricDNSLookupsName,
		metric.WithDescription("DNS lookups issued during reconciliation")); err != nil {
		return nil, err
	}

	if m.crawlDuration, err = meter.Float64Histogram(metricCrawlDurationName,
		metric.WithDescription("Duration of a full crawl cycle"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}

	if m.triageSize, err = meter.Int64ObservableGauge(metricTriageSizeName,
		metric.WithDescription("Machines currently held in triage")); err != nil {
		return nil, err
	}

	if triageSize != nil {
		m.registration, err = meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
			observer.ObserveInt64(m.triageSize, int64(triageSize()))

			return nil
		}, m.triageSize)
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) machineDiscovered(ctx context.Context) {
	if m == nil {
		return
	}

	m.machines.Add(ctx, 1)
}

func (m *Metrics) recordSubmitted(ctx context.Context) {
	if m == nil {
		return
	}

	m.submitted.Add(ctx, 1)
}

func (m *Metrics) recordTriaged(ctx context.Context) {
	if m == nil {
		return
	}

	m.triaged.Add(ctx, 1)
}

func (m *Metrics) submissionFailed(ctx context.Context, class string) {
	if m == nil {
		return
	}

	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("class", class)))
}

func (m *Metrics) dnsLookup(ctx context.Context, kind, outcome string) {
	if m == nil {
		return
	}

	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) crawlFinished(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}

	m.crawlDuration.Record(ctx, seconds)
}

// Close unregisters the triage gauge callback.
func (m *Metrics) Close() error {
	if m == nil || m.registration == nil {
		return nil
	}

	return m.registration.Unregister()
}
