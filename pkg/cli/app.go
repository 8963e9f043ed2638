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

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/vmminer/pkg/assetapi"
	"github.com/carverauto/vmminer/pkg/config"
	"github.com/carverauto/vmminer/pkg/dns"
	"github.com/carverauto/vmminer/pkg/events"
	"github.com/carverauto/vmminer/pkg/inventory"
	"github.com/carverauto/vmminer/pkg/inventory/vsphere"
	"github.com/carverauto/vmminer/pkg/lifecycle"
	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/miner"
)

// app is a fully wired crawler and the resources it owns.
type app struct {
	cfg       *miner.Config
	logger    logger.Logger
	miner     *miner.Miner
	publisher *events.Publisher
}

func loadConfig(ctx context.Context, path string) (*miner.Config, error) {
	var cfg miner.Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// newApp builds the logger, metrics pipeline and every crawler collaborator
// from cfg.
func newApp(ctx context.Context, cfg *miner.Config) (*app, error) {
	log, err := lifecycle.CreateLogger(ctx, cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: log}

	_, err = logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName: cfg.Daemon.AppName,
		OTel:        &cfg.Logging.OTel,
	})
	if err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
		log.Warn().Err(err).Msg("Failed to initialize OTel metrics, continuing without export")
	}

	backend, err := openBackend(ctx, cfg, logger.Component(log, "inventory"))
	if err != nil {
		return nil, err
	}

	client, err := assetapi.NewClient(&cfg.Cube)
	if err != nil {
		_ = backend.Close(ctx)

		return nil, err
	}

	var opts []miner.Option

	if cfg.Events.Enabled() {
		publisher, err := events.Connect(ctx, &cfg.Events, logger.Component(log, "events"))
		if err != nil {
			log.Warn().Err(err).Msg("Event publishing disabled")
		} else {
			a.publisher = publisher
			opts = append(opts, miner.WithPublisher(publisher))
		}
	}

	m, err := miner.New(cfg, backend, dns.NewNetResolver(&cfg.DNS), client,
		logger.Component(log, "miner"), opts...)
	if err != nil {
		_ = backend.Close(ctx)
		_ = a.publisher.Close()

		return nil, err
	}

	a.miner = m

	return a, nil
}

func openBackend(ctx context.Context, cfg *miner.Config, log logger.Logger) (inventory.Backend, error) {
	switch cfg.Inventory.Source {
	case miner.SourceFile:
		log.Info().Str("file", cfg.Inventory.File).Msg("Reading inventory snapshot")

		return inventory.LoadSnapshot(cfg.Inventory.File)
	default:
		log.Info().Str("host", cfg.VMware.Host).Str("datacenter", cfg.VMware.Datacenter).Msg("Connecting to vSphere")

		return vsphere.Connect(ctx, &cfg.VMware, log)
	}
}

func (a *app) close(ctx context.Context) error {
	return errors.Join(
		a.miner.Close(ctx),
		a.publisher.Close(),
		lifecycle.ShutdownLogger(),
	)
}
