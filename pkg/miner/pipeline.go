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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/carverauto/vmminer/pkg/assetapi"
	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/models"
)

//go:generate mockgen -destination=mock_miner.go -package=miner github.com/carverauto/vmminer/pkg/miner RegistryClient,Publisher

// RegistryClient posts documents to the asset registry.
type RegistryClient interface {
	Post(ctx context.Context, path string, body interface{}) ([]byte, error)
}

// Publisher announces crawl results to interested consumers.
type Publisher interface {
	DeviceSubmitted(ctx context.Context, rec *models.MachineRecord)
	DeviceTriaged(ctx context.Context, rec *models.MachineRecord)
	CrawlCompleted(ctx context.Context, report *models.CycleReport)
}

type nopPublisher struct{}

func (nopPublisher) DeviceSubmitted(context.Context, *models.MachineRecord) {}
func (nopPublisher) DeviceTriaged(context.Context, *models.MachineRecord)   {}
func (nopPublisher) CrawlCompleted(context.Context, *models.CycleReport)    {}

// Outcome is the result of submitting one record.
type Outcome int

const (
	OutcomeSubmitted Outcome = iota
	OutcomeTriaged
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSubmitted:
		return "submitted"
	case OutcomeTriaged:
		return "triaged"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pipeline posts complete records and routes the rest to triage.
type Pipeline struct {
	client    RegistryClient
	triage    *TriageSet
	publisher Publisher
	metrics   *Metrics
	logger    logger.Logger
}

func NewPipeline(client RegistryClient, triage *TriageSet, publisher Publisher,
	metrics *Metrics, log logger.Logger) *Pipeline {
	if publisher == nil {
		publisher = nopPublisher{}
	}

	return &Pipeline{
		client:    client,
		triage:    triage,
		publisher: publisher,
		metrics:   metrics,
		logger:    log,
	}
}

// Submit delivers rec or triages it. Registry failures are logged and
// counted; they never abort the cycle and are not retried.
func (p *Pipeline) Submit(ctx context.Context, name string, rec *models.MachineRecord) Outcome {
	if !rec.Submittable() {
		p.triage.Put(name, rec)
		p.logger.Error().Msgf("VM %s FQDN: %s, GuestTools: %s, GuestToolsRunning: %s",
			name, rec.FQDN(), rec.ToolsStatus, rec.ToolsRunningStatus)
		p.metrics.recordTriaged(ctx)
		p.publisher.DeviceTriaged(ctx, rec)

		return OutcomeTriaged
	}

	p.logger.Debug().Msgf("VM %s POST to API", name)

	resp, err := p.client.Post(ctx, assetapi.DevicesPath, rec.Device())
	if err != nil {
		p.metrics.submissionFailed(ctx, p.logFailure(name, err))

		return OutcomeFailed
	}

	if !isEmptyJSON(resp) {
		p.logger.Debug().Msgf("VM %s Updates: %s", name, resp)
	}

	p.metrics.recordSubmitted(ctx)
	p.publisher.DeviceSubmitted(ctx, rec)

	return OutcomeSubmitted
}

// logFailure logs a failed POST and returns its failure class.
func (p *Pipeline) logFailure(name string, err error) string {
	var statusErr *assetapi.StatusError
	if !errors.As(err, &statusErr) {
		p.logger.Error().Err(err).Msgf("VM %s POST failed", name)

		return failureTransport
	}

	if statusErr.StatusCode >= http.StatusInternalServerError {
		p.logger.Error().Msgf("VM %s %s: %s", name, statusErr.Error(), condenseBody(statusErr.Body))
		p.logger.Debug().Msgf("VM %s %s", name, statusErr.Body)

		return failureServer
	}

	p.logger.Error().Msgf("VM %s %s: %s", name, statusErr.Error(), statusErr.Body)

	return failureClient
}

// condenseBody keeps the first and sixth lines of a server error page, which
// carry the exception class and message.
func condenseBody(body string) string {
	lines := strings.Split(body, "\n")

	line := func(i int) string {
		if i < len(lines) {
			return lines[i]
		}

		return ""
	}

	return strings.ReplaceAll(line(0)+":"+line(5), "() ", "")
}

// isEmptyJSON reports whether resp carries no updates. Bodies that are not
// JSON count as non-empty so they get logged.
func isEmptyJSON(resp []byte) bool {
	resp = bytes.TrimSpace(resp)
	if len(resp) == 0 {
		return true
	}

	var v interface{}
	if err := json.Unmarshal(resp, &v); err != nil {
		return false
	}

	switch val := v.(type) {
	case nil:
		return true
	case map[string]interface{}:
		return len(val) == 0
	case []interface{}:
		return len(val) == 0
	default:
		return false
	}
}
