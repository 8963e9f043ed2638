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

// Package scheduler runs a job at a fixed interval with overlap prevention,
// a per-run timeout and restart on failure.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/models"
)

const (
	DefaultPollInterval = time.Hour
	DefaultPollTimeout  = 30 * time.Minute
)

var (
	errInvalidInterval = errors.New("poll interval must be positive")
	errJobPanicked     = errors.New("job panicked")
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Config is the scheduler section of the service configuration.
type Config struct {
	PollInterval models.Duration `json:"poll_interval" yaml:"poll_interval"`
	PollTimeout  models.Duration `json:"poll_timeout" yaml:"poll_timeout"`
	// RestartDelay is waited before re-arming after a failed run. Zero
	// restarts immediately.
	RestartDelay models.Duration `json:"restart_delay" yaml:"restart_delay"`
}

// Validate applies defaults.
func (c *Config) Validate() error {
	if c.PollInterval == 0 {
		c.PollInterval = models.Duration(DefaultPollInterval)
	}

	if c.PollTimeout == 0 {
		c.PollTimeout = models.Duration(DefaultPollTimeout)
	}

	if c.PollInterval < 0 {
		return errInvalidInterval
	}

	return nil
}

// Status is a snapshot of the scheduler state.
type Status struct {
	Running      bool            `json:"running"`
	Interval     models.Duration `json:"interval"`
	Timeout      models.Duration `json:"timeout"`
	Runs         int64           `json:"runs"`
	Skipped      int64           `json:"skipped"`
	Timeouts     int64           `json:"timeouts"`
	Failures     int64           `json:"failures"`
	Restarts     int64           `json:"restarts"`
	LastStart    time.Time       `json:"last_start,omitempty"`
	LastFinish   time.Time       `json:"last_finish,omitempty"`
	LastDuration models.Duration `json:"last_duration"`
	LastError    string          `json:"last_error,omitempty"`
}

// Scheduler drives a Job. It is idle or running; ticks that arrive while
// running are dropped.
type Scheduler struct {
	interval     time.Duration
	timeout      time.Duration
	restartDelay time.Duration
	clock        Clock
	job          Job
	logger       logger.Logger

	running  atomic.Bool
	inflight sync.WaitGroup

	mu     sync.Mutex
	status Status
}

// New returns a scheduler for job. A nil clock uses wall time.
func New(cfg *Config, job Job, clock Clock, log logger.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if clock == nil {
		clock = realClock{}
	}

	return &Scheduler{
		interval:     time.Duration(cfg.PollInterval),
		timeout:      time.Duration(cfg.PollTimeout),
		restartDelay: time.Duration(cfg.RestartDelay),
		clock:        clock,
		job:          job,
		logger:       log,
		status: Status{
			Interval: cfg.PollInterval,
			Timeout:  cfg.PollTimeout,
		},
	}, nil
}

// Run schedules the job until ctx is cancelled. The first run starts
// immediately. A failed run tears the schedule down and re-arms it, forever.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.inflight.Wait()

	results := make(chan error, 1)

	for {
		err := s.runScheduled(ctx, results)
		if ctx.Err() != nil {
			return nil
		}

		s.mu.Lock()
		s.status.Restarts++
		s.mu.Unlock()

		s.logger.Error().Err(err).Msg("Scheduler stopped on job failure, restarting")

		if s.restartDelay > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-s.clock.After(s.restartDelay):
			}
		}
	}
}

// Start runs the schedule; it lets the scheduler be managed as a lifecycle
// service.
func (s *Scheduler) Start(ctx context.Context) error {
	return s.Run(ctx)
}

// Stop waits for an in-flight run to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a copy of the current state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status
	st.Running = s.running.Load()

	return st
}

func (s *Scheduler) runScheduled(ctx context.Context, results chan error) error {
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	s.trigger(ctx, results)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			s.trigger(ctx, results)
		case err := <-results:
			if err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context, results chan<- error) {
	if !s.running.CompareAndSwap(false, true) {
		s.mu.Lock()
		s.status.Skipped++
		s.mu.Unlock()

		s.logger.Warn().Msg("Previous run still in progress, skipping tick")

		return
	}

	s.inflight.Add(1)

	go func() {
		defer s.inflight.Done()

		err := s.execute(ctx)

		s.running.Store(false)

		select {
		case results <- err:
		case <-ctx.Done():
		}
	}()
}

// execute runs the job once. A timeout is logged and reported as success so
// the schedule continues; any other failure is returned.
func (s *Scheduler) execute(ctx context.Context) error {
	runCtx := ctx

	if s.timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.clock.Now()

	s.mu.Lock()
	s.status.Runs++
	s.status.LastStart = start
	s.mu.Unlock()

	s.logger.Warn().Time("started_at", start).Msg("Job started")

	done := make(chan error, 1)

	go func() {
		done <- s.safeRun(runCtx)
	}()

	var err error

	select {
	case err = <-done:
	case <-runCtx.Done():
		err = runCtx.Err()
	}

	finish := s.clock.Now()
	duration := finish.Sub(start)

	s.mu.Lock()
	s.status.LastFinish = finish
	s.status.LastDuration = models.Duration(duration)
	s.status.LastError = ""

	if err != nil {
		s.status.LastError = err.Error()
	}
	s.mu.Unlock()

	switch {
	case err == nil:
		s.logger.Warn().Time("finished_at", finish).Dur("duration", duration).Msg("Job finished")

		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		s.mu.Lock()
		s.status.Timeouts++
		s.mu.Unlock()

		s.logger.Error().Dur("timeout", s.timeout).Dur("duration", duration).Msg("Job timed out")

		return nil
	default:
		s.mu.Lock()
		s.status.Failures++
		s.mu.Unlock()

		s.logger.Error().Err(err).Dur("duration", duration).Msg("Job failed")

		return err
	}
}

func (s *Scheduler) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errJobPanicked, r)
		}
	}()

	return s.job(ctx)
}
