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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carverauto/vmminer/pkg/inventory"
	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/models"
)

func TestSplitFQDN(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		host   string
		domain string
	}{
		{name: "host only", input: "web01", host: "web01"},
		{name: "host and domain", input: "web01.example.com", host: "web01", domain: "example.com"},
		{name: "deep domain", input: "db-2.corp.example.com", host: "db-2", domain: "corp.example.com"},
		{name: "underscore rejected", input: "bad_host.example.com"},
		{name: "empty", input: ""},
		{name: "trailing dot only", input: "web01."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, domain := splitFQDN(tt.input)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.domain, domain)
		})
	}
}

func TestParseVMName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "DummyVM1", want: "dummyvm1"},
		{input: "Cleanly-Named.example.com", want: "cleanly-named"},
		{input: "app01.with_under.score", want: "app01"},
		{input: "first_token.example.com", want: ""},
		{input: "has space", want: ""},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseVMName(tt.input))
		})
	}
}

func TestBuildFromGuestHostName(t *testing.T) {
	b := NewRecordBuilder(models.NewOSClassifier(nil), logger.NewTestLogger())

	rec := b.Build(scenarioA())

	assert.Equal(t, "DummyVM1", rec.RawName)
	assert.Equal(t, models.OSLinux, rec.OperatingSystem)
	assert.Equal(t, "dummy-vm-1", rec.Hostname)
	assert.Equal(t, "example.com", rec.Domain)
	assert.Equal(t, "toolsOk", rec.ToolsStatus)
	assert.Equal(t, "guestToolsCurrent", rec.ToolsVersionStatus)
	assert.False(t, NeedsReconcile(rec))

	if assert.Len(t, rec.Interfaces, 1) {
		assert.Equal(t, "10.0.0.11", rec.Interfaces[0].IPv4Address)
		assert.Equal(t, "00:50:56:aa:bb:01", rec.Interfaces[0].MACAddress)
	}
}

func TestBuildPrefersIPStackDNSConfig(t *testing.T) {
	b := NewRecordBuilder(models.NewOSClassifier(nil), logger.NewTestLogger())

	info := running("app01")
	info.GuestHostName = "guest-name.other.net"
	info.DNSConfig = &inventory.GuestDNSConfig{HostName: "app01", DomainName: ""}

	rec := b.Build(info)

	assert.Equal(t, "app01", rec.Hostname)
	assert.Equal(t, "other.net", rec.Domain, "empty stack domain is filled from the guest host name")
}

func TestBuildWithoutGuestIdentity(t *testing.T) {
	b := NewRecordBuilder(models.NewOSClassifier(nil), logger.NewTestLogger())

	rec := b.Build(scenarioB())

	assert.Empty(t, rec.Hostname)
	assert.Empty(t, rec.Domain)
	assert.Empty(t, rec.Interfaces, "no interfaces without running tools")
	assert.Equal(t, models.OSUnknown, rec.OperatingSystem)
	assert.True(t, NeedsReconcile(rec))
}
