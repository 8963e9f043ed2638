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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/carverauto/vmminer/pkg/logger"
)

const defaultEnvironment = "development"

// FileConfigLoader loads configuration from a local JSON or YAML file.
//
// When the top level of the document has a key matching the ENVIRONMENT
// variable (default "development") whose value is a mapping, only that
// section is decoded. Otherwise the whole document is used.
type FileConfigLoader struct {
	logger logger.Logger
}

func NewFileConfigLoader(log logger.Logger) *FileConfigLoader {
	return &FileConfigLoader{logger: log}
}

// Load implements ConfigLoader.
func (f *FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	var doc interface{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}

	if err != nil {
		return fmt.Errorf("failed to parse '%s': %w", path, err)
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = defaultEnvironment
	}

	if section, ok := selectSection(doc, env); ok {
		doc = section

		if f.logger != nil {
			f.logger.Debug().Str("environment", env).Str("path", path).Msg("Using environment section")
		}
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to normalize '%s': %w", path, err)
	}

	if err := json.Unmarshal(normalized, dst); err != nil {
		return fmt.Errorf("failed to decode '%s': %w", path, err)
	}

	return nil
}

func selectSection(doc interface{}, env string) (interface{}, bool) {
	top, ok := doc.(map[string]interface{})
	if !ok {
		return nil, false
	}

	section, ok := top[env].(map[string]interface{})
	if !ok {
		return nil, false
	}

	return section, true
}
