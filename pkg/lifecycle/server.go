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

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/vmminer/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

var errNoServices = errors.New("no services to run")

// Service is a long-running component. Start blocks until ctx is cancelled
// or the service fails. Stop releases whatever Start acquired.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ServerOptions describes a process made of one or more services.
type ServerOptions struct {
	ServiceName     string
	Services        []Service
	Logger          logger.Logger
	ShutdownTimeout time.Duration
}

// RunServer starts every service and blocks until SIGINT, SIGTERM, parent
// cancellation or the first service error. All services are then stopped.
func RunServer(ctx context.Context, options *ServerOptions) error {
	if options == nil || len(options.Services) == 0 {
		return errNoServices
	}

	log := options.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("service", options.ServiceName).Msg("Starting")

	g, gctx := errgroup.WithContext(ctx)

	for _, svc := range options.Services {
		g.Go(func() error {
			return svc.Start(gctx)
		})
	}

	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	timeout := options.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var stopErrs []error

	for i := len(options.Services) - 1; i >= 0; i-- {
		if err := options.Services[i].Stop(shutdownCtx); err != nil {
			stopErrs = append(stopErrs, err)
		}
	}

	log.Info().Str("service", options.ServiceName).Msg("Stopped")

	if runErr != nil {
		return fmt.Errorf("%s: %w", options.ServiceName, runErr)
	}

	return errors.Join(stopErrs...)
}
