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

// Package events publishes crawl results to NATS as CloudEvents.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/models"
)

const (
	SubjectDeviceSubmitted = "device.submitted"
	SubjectDeviceTriaged   = "device.triaged"
	SubjectCrawlCompleted  = "crawl.completed"

	specVersion     = "1.0"
	contentTypeJSON = "application/json"
	typePrefix      = "com.carverauto.vmminer."
	defaultPrefix   = "vmminer"
)

var errNATSURLRequired = errors.New("events.nats_url is required")

// Config is the events section of the service configuration. Publishing is
// disabled when NATSURL is empty.
type Config struct {
	NATSURL       string `json:"nats_url" yaml:"nats_url"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
	// Stream publishes through JetStream into the named stream, creating it
	// on first use. Core NATS is used when empty.
	Stream    string `json:"stream" yaml:"stream"`
	CredsFile string `json:"creds_file" yaml:"creds_file"`
}

// ApplyDefaults fills the subject prefix from the application name.
func (c *Config) ApplyDefaults(appName string) {
	if c.SubjectPrefix != "" {
		return
	}

	c.SubjectPrefix = appName
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = defaultPrefix
	}
}

func (c *Config) Enabled() bool {
	return c != nil && c.NATSURL != ""
}

// CloudEvent is the envelope of every published message.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// Sink delivers an encoded message to a subject.
type Sink interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

type coreSink struct {
	nc *nats.Conn
}

func (s coreSink) Publish(_ context.Context, subject string, data []byte) error {
	return s.nc.Publish(subject, data)
}

type jetStreamSink struct {
	js jetstream.JetStream
}

func (s jetStreamSink) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := s.js.Publish(ctx, subject, data)

	return err
}

// Publisher announces submissions, triage decisions and finished cycles.
// Failures are logged and never returned. A nil *Publisher does nothing.
type Publisher struct {
	sink   Sink
	prefix string
	source string
	logger logger.Logger
	conn   *nats.Conn
	now    func() time.Time
}

// NewPublisher publishes to sink under prefix.
func NewPublisher(sink Sink, prefix string, log logger.Logger) *Publisher {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Publisher{
		sink:   sink,
		prefix: prefix,
		source: prefix + "/miner",
		logger: log,
		now:    time.Now,
	}
}

// Connect dials NATS and returns a Publisher owning the connection.
func Connect(ctx context.Context, cfg *Config, log logger.Logger) (*Publisher, error) {
	if !cfg.Enabled() {
		return nil, errNATSURLRequired
	}

	opts := []nats.Option{
		nats.Name(cfg.SubjectPrefix),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Warn().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	var sink Sink = coreSink{nc: nc}

	if cfg.Stream != "" {
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()

			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}

		if err := ensureStream(ctx, js, cfg.Stream, cfg.SubjectPrefix+".>"); err != nil {
			nc.Close()

			return nil, err
		}

		sink = jetStreamSink{js: js}
	}

	log.Info().Str("url", nc.ConnectedUrl()).Str("stream", cfg.Stream).Msg("Connected to NATS")

	p := NewPublisher(sink, cfg.SubjectPrefix, log)
	p.conn = nc

	return p, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, name, subject string) error {
	if _, err := js.Stream(ctx, name); err == nil {
		return nil
	}

	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: []string{subject},
	})
	if err != nil {
		return fmt.Errorf("failed to create or get stream %s: %w", name, err)
	}

	return nil
}

// Subject returns the full NATS subject for an event name.
func (p *Publisher) Subject(name string) string {
	return p.prefix + "." + name
}

func (p *Publisher) DeviceSubmitted(ctx context.Context, rec *models.MachineRecord) {
	if p == nil {
		return
	}

	p.publish(ctx, SubjectDeviceSubmitted, rec.Device())
}

func (p *Publisher) DeviceTriaged(ctx context.Context, rec *models.MachineRecord) {
	if p == nil {
		return
	}

	p.publish(ctx, SubjectDeviceTriaged, rec)
}

func (p *Publisher) CrawlCompleted(ctx context.Context, report *models.CycleReport) {
	if p == nil {
		return
	}

	p.publish(ctx, SubjectCrawlCompleted, report)
}

func (p *Publisher) publish(ctx context.Context, name string, data interface{}) {
	now := p.now()
	subject := p.Subject(name)

	event := CloudEvent{
		SpecVersion:     specVersion,
		ID:              uuid.NewString(),
		Source:          p.source,
		Type:            typePrefix + name,
		DataContentType: contentTypeJSON,
		Subject:         subject,
		Time:            &now,
		Data:            data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("Failed to encode event")

		return
	}

	if err := p.sink.Publish(ctx, subject, payload); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("Failed to publish event")

		return
	}

	p.logger.Debug().Str("subject", subject).Str("event_id", event.ID).Msg("Published event")
}

// Close drains the NATS connection if the publisher owns one.
func (p *Publisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}

	return p.conn.Drain()
}
