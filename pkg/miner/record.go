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
	"regexp"
	"strings"

	"github.com/carverauto/vmminer/pkg/inventory"
	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/models"
)

//nolint:gochecknoglobals // compiled once
var (
	// host[.domain] where the domain may contain further dots.
	fqdnPattern = regexp.MustCompile(`^([A-Za-z0-9-]+)(\.([A-Za-z0-9.-]+))?$`)
	// token(.token)*; the first token may not contain underscores.
	vmNamePattern = regexp.MustCompile(`^([A-Za-z0-9-]+)(\.[A-Za-z0-9_-]+)*$`)
)

// splitFQDN returns the short host and the domain of name. Both are empty
// when name is not a well-formed host[.domain].
func splitFQDN(name string) (host, domain string) {
	m := fqdnPattern.FindStringSubmatch(name)
	if m == nil {
		return "", ""
	}

	return m[1], m[3]
}

// parseVMName returns the lowercased first token of a VM name, or "" when the
// name does not match the token grammar.
func parseVMName(name string) string {
	m := vmNamePattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}

	return strings.ToLower(m[1])
}

// RecordBuilder turns guest facts into a MachineRecord.
type RecordBuilder struct {
	classifier *models.OSClassifier
	logger     logger.Logger
}

func NewRecordBuilder(classifier *models.OSClassifier, log logger.Logger) *RecordBuilder {
	return &RecordBuilder{classifier: classifier, logger: log}
}

// Build fills everything the guest reports directly. Hostname and domain come
// from the first IP stack, and any still empty are taken from the guest host
// name.
func (b *RecordBuilder) Build(info *inventory.MachineInfo) *models.MachineRecord {
	rec := models.NewMachineRecord(info.Name)

	rec.OperatingSystem = b.classifier.Classify(info.GuestFullName)
	rec.ToolsStatus = info.ToolsStatus
	rec.ToolsRunningStatus = info.ToolsRunningStatus
	rec.ToolsVersion = info.ToolsVersion
	rec.ToolsVersionStatus = info.ToolsVersionStatus
	rec.ToolsVersionStatus2 = info.ToolsVersionStatus2
	rec.Interfaces = ExtractInterfaces(info, b.logger)

	if info.DNSConfig != nil {
		rec.Hostname = info.DNSConfig.HostName
		rec.Domain = info.DNSConfig.DomainName
	}

	if info.GuestHostName != "" {
		host, domain := splitFQDN(info.GuestHostName)

		if rec.Hostname == "" {
			rec.Hostname = host
		}

		if rec.Domain == "" {
			rec.Domain = domain
		}
	}

	return rec
}
