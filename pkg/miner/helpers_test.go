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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/vmminer/pkg/inventory"
	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/models"
)

type logEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// logSink captures JSON log lines for assertions.
type logSink struct {
	buf bytes.Buffer
}

func newLogSink() (*logSink, logger.Logger) {
	s := &logSink{}

	return s, logger.New(&s.buf, zerolog.DebugLevel)
}

func (s *logSink) entries(t *testing.T) []logEntry {
	t.Helper()

	var out []logEntry

	scanner := bufio.NewScanner(bytes.NewReader(s.buf.Bytes()))
	for scanner.Scan() {
		var e logEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))

		out = append(out, e)
	}

	return out
}

// has reports whether a line at level contains substr.
func (s *logSink) has(t *testing.T, level, substr string) bool {
	t.Helper()

	for _, e := range s.entries(t) {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}

	return false
}

// fakeResolver answers from fixed tables. Unknown names are NXDOMAIN.
type fakeResolver struct {
	mu      sync.Mutex
	forward map[string][]string
	reverse map[string][]string
	errs    map[string]error
	queries []string
}

func (f *fakeResolver) lookup(table map[string][]string, query string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, query)

	if err, ok := f.errs[query]; ok {
		return nil, err
	}

	if answer, ok := table[query]; ok {
		return answer, nil
	}

	return nil, &net.DNSError{Err: "no such host", Name: query, IsNotFound: true}
}

func (f *fakeResolver) LookupAddresses(_ context.Context, fqdn string) ([]string, error) {
	return f.lookup(f.forward, fqdn)
}

func (f *fakeResolver) LookupNames(_ context.Context, address string) ([]string, error) {
	return f.lookup(f.reverse, address)
}

func (f *fakeResolver) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.queries...)
}

func running(name string, nics ...inventory.NIC) *inventory.MachineInfo {
	return &inventory.MachineInfo{
		Name:               name,
		ToolsStatus:        "toolsOk",
		ToolsRunningStatus: models.ToolsRunning,
		ToolsVersion:       "10346",
		ToolsVersionStatus: "guestToolsCurrent",
		NICs:               nics,
	}
}

// scenarioA is a healthy Ubuntu guest whose tools report the full FQDN.
func scenarioA() *inventory.MachineInfo {
	info := running("DummyVM1", inventory.NIC{
		MACAddress:  "00:50:56:aa:bb:01",
		IPAddresses: []string{"10.0.0.11", "fe80::250:56ff:feaa:bb01"},
	})
	info.GuestFullName = "Ubuntu Linux (64-bit)"
	info.GuestHostName = "dummy-vm-1.example.com"

	return info
}

// scenarioB has tools stopped and no DNS evidence.
func scenarioB() *inventory.MachineInfo {
	return &inventory.MachineInfo{
		Name:               "Cleanly-Named.example.com",
		ToolsStatus:        "toolsNotRunning",
		ToolsRunningStatus: "guestToolsNotRunning",
		NICs: []inventory.NIC{{
			MACAddress:  "00:50:56:aa:bb:02",
			IPAddresses: []string{"10.0.0.12"},
		}},
	}
}

// scenarioC relies on DNS to find its identity.
func scenarioC() *inventory.MachineInfo {
	return running("dummyvm3", inventory.NIC{
		MACAddress:  "00:50:56:aa:bb:03",
		IPAddresses: []string{"1.2.3.3"},
	})
}

func scenarioCResolver() *fakeResolver {
	return &fakeResolver{
		forward: map[string][]string{"dummyvm3.example.com": {"1.2.3.3"}},
		reverse: map[string][]string{"1.2.3.3": {"dummyvm3.example.com"}},
	}
}

func snapshot(machines ...*inventory.MachineInfo) *inventory.StaticBackend {
	root := &inventory.SnapshotNode{Type: inventory.TypeFolder, Name: "vm"}
	for _, m := range machines {
		root.Children = append(root.Children, &inventory.SnapshotNode{
			Type:    inventory.TypeVirtualMachine,
			Name:    m.Name,
			Machine: m,
		})
	}

	return inventory.NewStaticBackend(root)
}
