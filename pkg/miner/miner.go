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

// Package miner crawls a virtualization inventory, resolves each machine's
// FQDN and reports complete records to the asset registry.
package miner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/vmminer/pkg/dns"
	"github.com/carverauto/vmminer/pkg/inventory"
	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/models"
)

var (
	errNilConfig        = errors.New("miner config is required")
	errBackendRequired  = errors.New("inventory backend is required")
	errResolverRequired = errors.New("dns resolver is required")
	errClientRequired   = errors.New("registry client is required")
)

// Miner runs crawl cycles. Only one cycle may run at a time; the scheduler
// guarantees that.
type Miner struct {
	backend    inventory.Backend
	builder    *RecordBuilder
	reconciler *Reconciler
	pipeline   *Pipeline
	triage     *TriageSet
	publisher  Publisher
	metrics    *Metrics
	meter      metric.Meter
	batch      bool
	logger     logger.Logger
	now        func() time.Time

	mu   sync.RWMutex
	last *models.CycleReport
}

// Option customizes a Miner.
type Option func(*Miner)

// WithPublisher announces submissions, triage and finished cycles.
func WithPublisher(p Publisher) Option {
	return func(m *Miner) {
		m.publisher = p
	}
}

// WithMeter records crawl metrics on meter instead of the global provider.
func WithMeter(meter metric.Meter) Option {
	return func(m *Miner) {
		m.meter = meter
	}
}

// WithClock overrides time.Now for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Miner) {
		m.now = now
	}
}

// New wires a Miner from a validated config and its collaborators.
func New(cfg *Config, backend inventory.Backend, resolver dns.Resolver, client RegistryClient,
	log logger.Logger, opts ...Option) (*Miner, error) {
	switch {
	case cfg == nil:
		return nil, errNilConfig
	case backend == nil:
		return nil, errBackendRequired
	case resolver == nil:
		return nil, errResolverRequired
	case client == nil:
		return nil, errClientRequired
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	m := &Miner{
		backend:   backend,
		triage:    NewTriageSet(),
		publisher: nopPublisher{},
		batch:     cfg.Cube.BatchPost,
		logger:    log,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.publisher == nil {
		m.publisher = nopPublisher{}
	}

	metrics, err := NewMetrics(m.meter, m.triage.Len)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	m.metrics = metrics
	m.builder = NewRecordBuilder(models.NewOSClassifier(cfg.OSMappings), log)
	m.reconciler = NewReconciler(resolver, cfg.DNS.KnownDomains, log, metrics)
	m.pipeline = NewPipeline(client, m.triage, m.publisher, metrics, log)

	return m, nil
}

// Run performs one crawl cycle. Traversal errors abort the cycle and are
// returned; per-record failures are only counted.
func (m *Miner) Run(ctx context.Context) (*models.CycleReport, error) {
	runID := uuid.NewString()
	started := m.now()

	m.logger.Info().Str("run_id", runID).Bool("batch", m.batch).Msg("Crawl started")

	root, err := m.backend.Root(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to locate inventory root: %w", err)
	}

	c := newCycle(m.batch)

	if err := m.walk(ctx, c, root); err != nil {
		return nil, err
	}

	if c.batch {
		for _, name := range c.order {
			c.count(m.pipeline.Submit(ctx, name, c.records[name]))
		}
	}

	triaged := m.summarizeTriage()
	finished := m.now()

	report := &models.CycleReport{
		RunID:       runID,
		StartedAt:   started,
		FinishedAt:  finished,
		Duration:    models.Duration(finished.Sub(started)),
		Machines:    c.machines,
		Submitted:   c.submitted,
		Triaged:     c.triaged,
		Failed:      c.failed,
		TriageNames: triaged,
	}

	m.metrics.crawlFinished(ctx, finished.Sub(started).Seconds())
	m.publisher.CrawlCompleted(ctx, report)

	m.mu.Lock()
	m.last = report
	m.mu.Unlock()

	m.logger.Info().
		Str("run_id", runID).
		Int("machines", report.Machines).
		Int("submitted", report.Submitted).
		Int("triaged", report.Triaged).
		Int("failed", report.Failed).
		Msg("Crawl finished")

	return report, nil
}

// Crawl adapts Run to a scheduler job.
func (m *Miner) Crawl(ctx context.Context) error {
	_, err := m.Run(ctx)

	return err
}

// summarizeTriage logs everything held in triage and returns the names.
func (m *Miner) summarizeTriage() []string {
	names := m.triage.Names()

	m.logger.Warn().Msgf("Triage: %d VMs: %s", len(names), strings.Join(names, ", "))

	for _, name := range names {
		if rec, ok := m.triage.Get(name); ok {
			m.logger.Debug().Interface("record", rec).Msgf("Triage %s", name)
		}
	}

	return names
}

// LastReport returns the report of the most recent completed cycle, or nil.
func (m *Miner) LastReport() *models.CycleReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.last
}

// Triage exposes the records awaiting manual attention.
func (m *Miner) Triage() *TriageSet {
	return m.triage
}

// Close releases metric callbacks and the inventory session.
func (m *Miner) Close(ctx context.Context) error {
	return errors.Join(m.metrics.Close(), m.backend.Close(ctx))
}
