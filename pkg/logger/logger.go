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

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type zerologLogger struct {
	mu     sync.RWMutex
	logger zerolog.Logger
}

// New returns a Logger writing JSON lines to w at the given level.
func New(w io.Writer, level zerolog.Level) Logger {
	return &zerologLogger{
		logger: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

// Component returns a Logger that tags every line with a "component" field,
// which also selects the OTel instrumentation scope.
func Component(log Logger, name string) Logger {
	return &zerologLogger{logger: log.WithComponent(name)}
}

func (l *zerologLogger) current() *zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	zl := l.logger

	return &zl
}

func (l *zerologLogger) Trace() *zerolog.Event { return l.current().Trace() }
func (l *zerologLogger) Debug() *zerolog.Event { return l.current().Debug() }
func (l *zerologLogger) Info() *zerolog.Event  { return l.current().Info() }
func (l *zerologLogger) Warn() *zerolog.Event  { return l.current().Warn() }
func (l *zerologLogger) Error() *zerolog.Event { return l.current().Error() }
func (l *zerologLogger) Fatal() *zerolog.Event { return l.current().Fatal() }
func (l *zerologLogger) Panic() *zerolog.Event { return l.current().Panic() }
func (l *zerologLogger) With() zerolog.Context { return l.current().With() }

func (l *zerologLogger) WithComponent(component string) zerolog.Logger {
	return l.current().With().Str("component", component).Logger()
}

func (l *zerologLogger) WithFields(fields map[string]interface{}) zerolog.Logger {
	ctx := l.current().With()
	for key, value := range fields {
		ctx = ctx.Interface(key, value)
	}

	return ctx.Logger()
}

func (l *zerologLogger) SetLevel(level zerolog.Level) {
	l.mu.Lock()
	l.logger = l.logger.Level(level)
	l.mu.Unlock()
}

func (l *zerologLogger) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
	} else {
		l.SetLevel(zerolog.InfoLevel)
	}
}

// ParseLevel resolves the effective level of a Config. Debug wins over Level.
func ParseLevel(config *Config) (zerolog.Level, error) {
	if config == nil {
		return zerolog.InfoLevel, nil
	}

	if config.Debug {
		return zerolog.DebugLevel, nil
	}

	if config.Level == "" {
		return zerolog.InfoLevel, nil
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}

	return level, nil
}

// OpenOutput maps the output setting to a writer. "stdout" and "stderr" are
// the process streams; anything else is a file opened for append. The
// returned closer is nil for process streams.
func OpenOutput(output string) (io.Writer, io.Closer, error) {
	switch strings.TrimSpace(output) {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", output, err)
	}

	return f, f, nil
}
