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
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/carverauto/vmminer/pkg/lifecycle"
	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/scheduler"
	"github.com/carverauto/vmminer/pkg/status"
)

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Crawl on the configured interval until stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), opts)
		},
	}
}

func newCrawlCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run a single crawl cycle and print its report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return crawlOnce(cmd, opts)
		},
	}
}

func runDaemon(ctx context.Context, opts *options) error {
	cfg, err := loadConfig(ctx, opts.configPath)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := a.close(context.Background()); err != nil {
			a.logger.Warn().Err(err).Msg("Shutdown incomplete")
		}
	}()

	sched, err := scheduler.New(&cfg.Scheduler, a.miner.Crawl, nil, logger.Component(a.logger, "scheduler"))
	if err != nil {
		return err
	}

	services := []lifecycle.Service{sched}

	if cfg.Status.Enabled() {
		srv, err := status.NewServer(&cfg.Status, a.miner.Triage(), a.miner, sched,
			logger.Component(a.logger, "status"))
		if err != nil {
			return err
		}

		services = append(services, srv)
	}

	return lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ServiceName: cfg.Daemon.AppName,
		Services:    services,
		Logger:      a.logger,
	})
}

func crawlOnce(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx, opts.configPath)
	if err != nil {
		return err
	}

	// stdout carries the report.
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	defer func() {
		_ = a.close(context.Background())
	}()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Scheduler.PollTimeout))
	defer cancel()

	report, err := a.miner.Run(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	return enc.Encode(report)
}
