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
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/vmminer/pkg/logger"
)

type fakeService struct {
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (f *fakeService) Start(ctx context.Context) error {
	f.started.Store(true)

	if f.startErr != nil {
		return f.startErr
	}

	<-ctx.Done()

	return ctx.Err()
}

func (f *fakeService) Stop(context.Context) error {
	f.stopped.Store(true)

	return nil
}

func TestRunServer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	a, b := &fakeService{}, &fakeService{}
	done := make(chan error, 1)

	go func() {
		done <- RunServer(ctx, &ServerOptions{ServiceName: "test", Services: []Service{a, b}})
	}()

	require.Eventually(t, func() bool { return a.started.Load() && b.started.Load() }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunServer did not return")
	}

	assert.True(t, a.stopped.Load())
	assert.True(t, b.stopped.Load())
}

func TestRunServer_FirstErrorStopsAll(t *testing.T) {
	boom := errors.New("listen failed")
	a, b := &fakeService{startErr: boom}, &fakeService{}

	err := RunServer(context.Background(), &ServerOptions{ServiceName: "test", Services: []Service{a, b}})
	require.ErrorIs(t, err, boom)
	assert.True(t, b.stopped.Load())
}

func TestRunServer_NoServices(t *testing.T) {
	require.ErrorIs(t, RunServer(context.Background(), &ServerOptions{}), errNoServices)
}

func TestCreateLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vmminer.log")

	log, err := CreateLogger(context.Background(), &logger.Config{Level: "info", Output: path})
	require.NoError(t, err)

	log.Info().Msg("Started")
	log.Debug().Msg("hidden")
	require.NoError(t, ShutdownLogger())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Started"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestCreateLogger_InvalidLevel(t *testing.T) {
	_, err := CreateLogger(context.Background(), &logger.Config{Level: "chatty"})
	require.Error(t, err)
}
