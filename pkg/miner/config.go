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

package miner

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/vmminer/pkg/assetapi"
	"github.com/carverauto/vmminer/pkg/dns"
	"github.com/carverauto/vmminer/pkg/events"
	"github.com/carverauto/vmminer/pkg/inventory/vsphere"
	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/models"
	"github.com/carverauto/vmminer/pkg/scheduler"
	"github.com/carverauto/vmminer/pkg/status"
)

const (
	defaultAppName    = "vmminer"
	defaultAPITimeout = 300 * time.Second

	SourceVSphere = "vsphere"
	SourceFile    = "file"
)

var (
	errAPIURLRequired       = errors.New("cube.api_url is required")
	errKnownDomainsRequired = errors.New("dns.known_domains must not be empty")
	errUnknownSource        = errors.New("unknown inventory source")
	errSnapshotRequired     = errors.New("inventory.file is required for the file source")
	errVMwareHostRequired   = errors.New("vmware.host is required for the vsphere source")
)

// DaemonConfig names the process.
type DaemonConfig struct {
	AppName string `json:"app_name" yaml:"app_name"`
}

// InventoryConfig selects the inventory backend.
type InventoryConfig struct {
	Source string `json:"source" yaml:"source"`
	// File is a YAML or JSON snapshot read by the file source.
	File string `json:"file" yaml:"file"`
}

// Config is the complete vmminer configuration.
type Config struct {
	Daemon     DaemonConfig        `json:"daemon" yaml:"daemon"`
	Logging    *logger.Config      `json:"logging" yaml:"logging"`
	Scheduler  scheduler.Config    `json:"scheduler" yaml:"scheduler"`
	Cube       assetapi.Config     `json:"cube" yaml:"cube"`
	DNS        dns.Config          `json:"dns" yaml:"dns"`
	Inventory  InventoryConfig     `json:"inventory" yaml:"inventory"`
	VMware     vsphere.Config      `json:"vmware" yaml:"vmware"`
	OSMappings map[string][]string `json:"os_mappings" yaml:"os_mappings"`
	Status     status.Config       `json:"status" yaml:"status"`
	Events     events.Config       `json:"events" yaml:"events"`
}

// Validate applies defaults and rejects configurations the crawler cannot run
// with.
func (c *Config) Validate() error {
	if c.Daemon.AppName == "" {
		c.Daemon.AppName = defaultAppName
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	if c.Cube.URL == "" {
		return errAPIURLRequired
	}

	if c.Cube.Timeout == 0 {
		c.Cube.Timeout = models.Seconds(defaultAPITimeout)
	}

	domains := make([]string, 0, len(c.DNS.KnownDomains))

	for _, d := range c.DNS.KnownDomains {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}

	if len(domains) == 0 {
		return errKnownDomainsRequired
	}

	c.DNS.KnownDomains = domains

	switch c.Inventory.Source {
	case "":
		c.Inventory.Source = SourceVSphere

		fallthrough
	case SourceVSphere:
		if c.VMware.Host == "" {
			return errVMwareHostRequired
		}
	case SourceFile:
		if c.Inventory.File == "" {
			return errSnapshotRequired
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownSource, c.Inventory.Source)
	}

	c.Events.ApplyDefaults(c.Daemon.AppName)

	return nil
}
