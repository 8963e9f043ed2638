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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/models"
)

var errNoURL = errors.New("url required")

type testAPIConfig struct {
	URL     string          `json:"api_url"`
	Key     string          `json:"api_key"`
	Timeout models.Duration `json:"api_timeout"`
	Batch   bool            `json:"api_batch_post"`
}

type testTLS struct {
	CAFile string `json:"ca_file"`
}

type testConfig struct {
	API      testAPIConfig       `json:"cube"`
	Domains  []string            `json:"known_domains"`
	Mappings map[string][]string `json:"os_mappings"`
	TLS      *testTLS            `json:"tls,omitempty"`
	Workers  int                 `json:"workers"`
}

func (c *testConfig) Validate() error {
	if c.API.URL == "" {
		return errNoURL
	}

	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidate_YAMLEnvironmentSection(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	path := writeFile(t, "vmminer.yml", `
development:
  cube:
    api_url: http://localhost:3000
production:
  cube:
    api_url: https://cube.example.com
    api_key: secret
    api_timeout: 10s
    api_batch_post: true
  known_domains:
    - example.com
    - example.org
  os_mappings:
    linux:
      - Debian GNU/Linux 12 (64-bit)
`)

	var cfg testConfig
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "https://cube.example.com", cfg.API.URL)
	assert.Equal(t, "secret", cfg.API.Key)
	assert.Equal(t, 10*time.Second, time.Duration(cfg.API.Timeout))
	assert.True(t, cfg.API.Batch)
	assert.Equal(t, []string{"example.com", "example.org"}, cfg.Domains)
	assert.Equal(t, []string{"Debian GNU/Linux 12 (64-bit)"}, cfg.Mappings["linux"])
	assert.Nil(t, cfg.TLS)
}

func TestLoadAndValidate_DefaultEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")

	path := writeFile(t, "vmminer.yaml", `
development:
  cube:
    api_url: http://localhost:3000
`)

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))
	assert.Equal(t, "http://localhost:3000", cfg.API.URL)
}

func TestLoadAndValidate_FlatJSON(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")

	path := writeFile(t, "vmminer.json", `{"cube":{"api_url":"http://cube","api_timeout":1000000000},"known_domains":["example.com"]}`)

	var cfg testConfig
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "http://cube", cfg.API.URL)
	assert.Equal(t, time.Second, time.Duration(cfg.API.Timeout))
}

func TestLoadAndValidate_EnvOverlay(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("VMMINER_CUBE_API_KEY", "from-env")
	t.Setenv("VMMINER_CUBE_API_TIMEOUT", "2m")
	t.Setenv("VMMINER_KNOWN_DOMAINS", "a.example.com, b.example.com")
	t.Setenv("VMMINER_OS_MAPPINGS", `{"windows":["Microsoft Windows Server 2019 (64-bit)"]}`)
	t.Setenv("VMMINER_TLS_CA_FILE", "/etc/ca.pem")
	t.Setenv("VMMINER_WORKERS", "4")

	path := writeFile(t, "vmminer.json", `{"cube":{"api_url":"http://cube","api_key":"from-file"}}`)

	var cfg testConfig
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "from-env", cfg.API.Key)
	assert.Equal(t, 2*time.Minute, time.Duration(cfg.API.Timeout))
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, cfg.Domains)
	assert.Equal(t, []string{"Microsoft Windows Server 2019 (64-bit)"}, cfg.Mappings["windows"])
	require.NotNil(t, cfg.TLS)
	assert.Equal(t, "/etc/ca.pem", cfg.TLS.CAFile)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadAndValidate_EnvOverlayInvalidValue(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("VMMINER_CUBE_API_BATCH_POST", "sometimes")

	path := writeFile(t, "vmminer.json", `{"cube":{"api_url":"http://cube"}}`)

	var cfg testConfig
	err := NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VMMINER_CUBE_API_BATCH_POST")
}

func TestLoadAndValidate_ValidationFailure(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")

	path := writeFile(t, "vmminer.json", `{"known_domains":["example.com"]}`)

	var cfg testConfig
	err := NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg)
	require.ErrorIs(t, err, errNoURL)
}

func TestLoadAndValidate_MissingFile(t *testing.T) {
	var cfg testConfig
	err := NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), "/nonexistent/vmminer.yml", &cfg)
	require.Error(t, err)
}

func TestEnvConfigLoader_RejectsNonPointer(t *testing.T) {
	loader := NewEnvConfigLoader(nil, "VMMINER_")

	require.ErrorIs(t, loader.Load(context.Background(), "", testConfig{}), ErrDstMustBeNonNilPointer)

	s := "x"
	require.ErrorIs(t, loader.Load(context.Background(), "", &s), ErrDstMustBePointerToStruct)
}
