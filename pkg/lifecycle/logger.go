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
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carverauto/vmminer/pkg/logger"
)

// openOutputs holds log files opened by CreateLogger so ShutdownLogger can
// close them.
//
//nolint:gochecknoglobals // shutdown bookkeeping shared with ShutdownLogger
var (
	openOutputs []io.Closer
	outputsMu   sync.Mutex
)

// CreateLogger builds a logger from config. A nil config falls back to
// logger.DefaultConfig. When OTel export is enabled every line is also
// shipped to the collector.
func CreateLogger(ctx context.Context, config *logger.Config) (logger.Logger, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	level, err := logger.ParseLevel(config)
	if err != nil {
		return nil, err
	}

	output, closer, err := logger.OpenOutput(config.Output)
	if err != nil {
		return nil, err
	}

	if closer != nil {
		outputsMu.Lock()
		openOutputs = append(openOutputs, closer)
		outputsMu.Unlock()
	}

	if config.OTel.Enabled && config.OTel.Endpoint != "" {
		otelWriter, err := logger.NewOTELWriter(ctx, config.OTel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OTel log export: %w", err)
		}

		output = logger.NewMultiWriter(output, otelWriter)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	return logger.New(output, level), nil
}

// ShutdownLogger flushes OTel exporters and closes any log files.
func ShutdownLogger() error {
	errs := []error{logger.ShutdownOTEL()}

	outputsMu.Lock()
	for _, c := range openOutputs {
		errs = append(errs, c.Close())
	}

	openOutputs = nil
	outputsMu.Unlock()

	return errors.Join(errs...)
}
