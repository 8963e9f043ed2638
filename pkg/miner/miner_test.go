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
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/vmminer/pkg/assetapi"
	"github.com/carverauto/vmminer/pkg/dns"
	"github.com/carverauto/vmminer/pkg/inventory"
	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/models"
)

var errBackendDown = errors.New("vcenter session expired")

func minerConfig(batch bool) *Config {
	return &Config{
		Cube: assetapi.Config{URL: "http://cube.invalid", BatchPost: batch},
		DNS:  dns.Config{KnownDomains: []string{"example.com"}},
	}
}

// registry is an httptest asset registry capturing device documents.
type registry struct {
	mu     sync.Mutex
	bodies []map[string]interface{}
	server *httptest.Server
}

func newRegistry(t *testing.T) *registry {
	t.Helper()

	r := &registry{}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, assetapi.DevicesPath, req.URL.Path)

		raw, err := io.ReadAll(req.Body)
		assert.NoError(t, err)

		var doc map[string]interface{}
		assert.NoError(t, json.Unmarshal(raw, &doc))

		r.mu.Lock()
		r.bodies = append(r.bodies, doc)
		r.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(r.server.Close)

	return r
}

func (r *registry) client(t *testing.T) *assetapi.Client {
	t.Helper()

	c, err := assetapi.NewClient(&assetapi.Config{URL: r.server.URL, Key: "secret"})
	require.NoError(t, err)

	return c
}

func (r *registry) posted() []map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]map[string]interface{}(nil), r.bodies...)
}

func keys(doc map[string]interface{}) []string {
	out := make([]string, 0, len(doc))
	for k := range doc {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}

func TestRunScenarios(t *testing.T) {
	reg := newRegistry(t)
	resolver := scenarioCResolver()

	m, err := New(minerConfig(false), snapshot(scenarioA(), scenarioB(), scenarioC()),
		resolver, reg.client(t), logger.NewTestLogger())
	require.NoError(t, err)

	report, err := m.Run(context.Background())
	require.NoError(t, err)

	_, err = uuid.Parse(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Machines)
	assert.Equal(t, 2, report.Submitted)
	assert.Equal(t, 1, report.Triaged)
	assert.Zero(t, report.Failed)
	assert.Equal(t, []string{"Cleanly-Named.example.com"}, report.TriageNames)
	assert.Same(t, report, m.LastReport())

	posted := reg.posted()
	require.Len(t, posted, 2)

	// Scenario A: identity from guest tools, whitelisted payload only.
	a := posted[0]
	assert.Equal(t, []string{"domain", "hostname", "ipv4_addresses", "os"}, keys(a))
	assert.Equal(t, "dummy-vm-1", a["hostname"])
	assert.Equal(t, "example.com", a["domain"])
	assert.Equal(t, "linux", a["os"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"ipv4_address": "10.0.0.11", "mac_address": "00:50:56:aa:bb:01"},
	}, a["ipv4_addresses"])

	// Scenario C: identity from DNS.
	c := posted[1]
	assert.Equal(t, []string{"domain", "hostname", "ipv4_addresses"}, keys(c))
	assert.Equal(t, "dummyvm3", c["hostname"])
	assert.Equal(t, "example.com", c["domain"])

	// Scenario A never reached the resolver.
	for _, q := range resolver.calls() {
		assert.NotContains(t, q, "dummy-vm-1")
		assert.NotEqual(t, "10.0.0.11", q)
	}

	// Scenario B is held for triage with the parsed fallback name.
	held, ok := m.Triage().Get("Cleanly-Named.example.com")
	require.True(t, ok)
	assert.Equal(t, "cleanly-named", held.Hostname)
	assert.Empty(t, held.Domain)
}

// recordingBackend logs every machine read into a shared event list.
type recordingBackend struct {
	inventory.Backend
	events *[]string
}

func (b recordingBackend) Machine(ctx context.Context, node inventory.Node) (*inventory.MachineInfo, error) {
	*b.events = append(*b.events, "read:"+node.Name)

	return b.Backend.Machine(ctx, node)
}

type postFunc func(ctx context.Context, path string, body interface{}) ([]byte, error)

func (f postFunc) Post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	return f(ctx, path, body)
}

func TestSubmissionModes(t *testing.T) {
	web := func(name string) *inventory.MachineInfo {
		info := running(name, inventory.NIC{MACAddress: "aa", IPAddresses: []string{"10.0.0.1"}})
		info.GuestHostName = name + ".example.com"

		return info
	}

	tests := []struct {
		name  string
		batch bool
		want  []string
	}{
		{
			name:  "immediate",
			batch: false,
			want:  []string{"read:web01", "post:web01", "read:web02", "post:web02"},
		},
		{
			name:  "batch",
			batch: true,
			want:  []string{"read:web01", "read:web02", "post:web01", "post:web02"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []string

			backend := recordingBackend{Backend: snapshot(web("web01"), web("web02")), events: &events}
			client := postFunc(func(_ context.Context, _ string, body interface{}) ([]byte, error) {
				events = append(events, "post:"+body.(*models.DeviceRecord).Hostname)

				return nil, nil
			})

			m, err := New(minerConfig(tt.batch), backend, &fakeResolver{}, client, logger.NewTestLogger())
			require.NoError(t, err)

			report, err := m.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.want, events)
			assert.Equal(t, 2, report.Submitted)
		})
	}
}

func TestRunBatchDeduplicatesNames(t *testing.T) {
	first := running("web01", inventory.NIC{MACAddress: "aa", IPAddresses: []string{"10.0.0.1"}})
	first.GuestHostName = "first.example.com"
	second := running("web01", inventory.NIC{MACAddress: "bb", IPAddresses: []string{"10.0.0.2"}})
	second.GuestHostName = "second.example.com"

	var posted []string

	client := postFunc(func(_ context.Context, _ string, body interface{}) ([]byte, error) {
		posted = append(posted, body.(*models.DeviceRecord).Hostname)

		return nil, nil
	})

	m, err := New(minerConfig(true), snapshot(first, second), &fakeResolver{}, client, logger.NewTestLogger())
	require.NoError(t, err)

	report, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"second"}, posted, "later records replace earlier ones with the same name")
	assert.Equal(t, 2, report.Machines)
	assert.Equal(t, 1, report.Submitted)
}

func TestRunWalksNestedContainers(t *testing.T) {
	sink, log := newLogSink()

	leaf := scenarioA()
	root := &inventory.SnapshotNode{
		Type: inventory.TypeFolder,
		Name: "vm",
		Children: []*inventory.SnapshotNode{
			{Type: "Network", Name: "VM Network"},
			{
				Type: inventory.TypeFolder,
				Name: "Linux",
				Children: []*inventory.SnapshotNode{
					{Type: inventory.TypeFolder, Name: "Empty"},
					{Type: inventory.TypeVirtualMachine, Name: leaf.Name, Machine: leaf},
				},
			},
		},
	}

	client := postFunc(func(context.Context, string, interface{}) ([]byte, error) { return nil, nil })

	m, err := New(minerConfig(false), inventory.NewStaticBackend(root), &fakeResolver{}, client, log)
	require.NoError(t, err)

	report, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Machines)
	assert.True(t, sink.has(t, "debug", "Unrecognized childEntity Network VM Network"))
	assert.True(t, sink.has(t, "debug", "Folder Linux found - recursing"))
	assert.True(t, sink.has(t, "debug", "Linux: 1 VMs"))
	assert.True(t, sink.has(t, "warn", "Triage: 0 VMs"))
}

func TestRunBackendErrorAbortsCycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := inventory.NewMockBackend(ctrl)
	client := NewMockRegistryClient(ctrl)
	publisher := NewMockPublisher(ctrl)

	root := inventory.NewNode(inventory.TypeFolder, "vm", "group-v1")
	folder := inventory.NewNode(inventory.TypeFolder, "Linux", "group-v2")
	vm := inventory.NewNode(inventory.TypeVirtualMachine, "web01", "vm-1")

	info := running("web01", inventory.NIC{MACAddress: "aa", IPAddresses: []string{"10.0.0.1"}})
	info.GuestHostName = "web01.example.com"

	gomock.InOrder(
		backend.EXPECT().Root(gomock.Any()).Return(root, nil),
		backend.EXPECT().Children(gomock.Any(), root).Return([]inventory.Node{vm, folder}, nil),
		backend.EXPECT().Machine(gomock.Any(), vm).Return(info, nil),
		client.EXPECT().Post(gomock.Any(), assetapi.DevicesPath, gomock.Any()).Return(nil, nil),
		backend.EXPECT().Children(gomock.Any(), folder).Return(nil, errBackendDown),
	)
	publisher.EXPECT().DeviceSubmitted(gomock.Any(), gomock.Any())

	m, err := New(minerConfig(false), backend, &fakeResolver{}, client, logger.NewTestLogger(),
		WithPublisher(publisher))
	require.NoError(t, err)

	report, err := m.Run(context.Background())
	require.ErrorIs(t, err, errBackendDown)
	assert.Nil(t, report)
	assert.Nil(t, m.LastReport())
}

func TestRunRootError(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := inventory.NewMockBackend(ctrl)

	backend.EXPECT().Root(gomock.Any()).Return(inventory.Node{}, errBackendDown)

	m, err := New(minerConfig(true), backend, &fakeResolver{}, NewMockRegistryClient(ctrl), logger.NewTestLogger())
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.ErrorIs(t, err, errBackendDown)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	client := postFunc(func(context.Context, string, interface{}) ([]byte, error) { return nil, nil })

	m, err := New(minerConfig(false), snapshot(scenarioA(), scenarioC()), &fakeResolver{}, client,
		logger.NewTestLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTriagePersistsAcrossCycles(t *testing.T) {
	var events []string

	backend := &recordingBackend{Backend: snapshot(scenarioB()), events: &events}
	client := postFunc(func(context.Context, string, interface{}) ([]byte, error) { return nil, nil })

	m, err := New(minerConfig(false), backend, &fakeResolver{}, client, logger.NewTestLogger())
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)

	backend.Backend = snapshot(scenarioA())

	report, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Triaged, "nothing new was triaged this cycle")
	assert.Equal(t, []string{"Cleanly-Named.example.com"}, report.TriageNames)
	assert.Equal(t, 1, m.Triage().Len())
}

func TestRunPublishesAndRecordsMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := NewMockPublisher(ctrl)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++

		return start.Add(time.Duration(calls-1) * 2 * time.Second)
	}

	client := postFunc(func(context.Context, string, interface{}) ([]byte, error) { return nil, nil })

	publisher.EXPECT().DeviceSubmitted(gomock.Any(), gomock.Any()).Times(2)
	publisher.EXPECT().DeviceTriaged(gomock.Any(), gomock.Any())

	var published *models.CycleReport

	publisher.EXPECT().CrawlCompleted(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, r *models.CycleReport) { published = r })

	m, err := New(minerConfig(false), snapshot(scenarioA(), scenarioB(), scenarioC()),
		scenarioCResolver(), client, logger.NewTestLogger(),
		WithPublisher(publisher), WithMeter(provider.Meter("test")), WithClock(clock))
	require.NoError(t, err)

	t.Cleanup(func() { _ = m.Close(context.Background()) })

	report, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Same(t, report, published)
	assert.Equal(t, start, report.StartedAt)
	assert.Equal(t, models.Duration(2*time.Second), report.Duration)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	metrics := map[string]metricdata.Aggregation{}

	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			metrics[md.Name] = md.Data
		}
	}

	sumOf := func(name string) int64 {
		sum, ok := metrics[name].(metricdata.Sum[int64])
		require.True(t, ok, name)

		var total int64
		for _, dp := range sum.DataPoints {
			total += dp.Value
		}

		return total
	}

	assert.Equal(t, int64(3), sumOf(metricMachinesDiscoveredName))
	assert.Equal(t, int64(2), sumOf(metricRecordsSubmittedName))
	assert.Equal(t, int64(1), sumOf(metricRecordsTriagedName))
	assert.Positive(t, sumOf(metricDNSLookupsName))

	hist, ok := metrics[metricCrawlDurationName].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 2.0, hist.DataPoints[0].Sum, 0.001)

	gauge, ok := metrics[metricTriageSizeName].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(1), gauge.DataPoints[0].Value)
}

func TestRunCountsSubmissionFailures(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	client := postFunc(func(context.Context, string, interface{}) ([]byte, error) {
		return nil, &assetapi.StatusError{StatusCode: http.StatusBadGateway, Body: "bad gateway"}
	})

	m, err := New(minerConfig(true), snapshot(scenarioA()), &fakeResolver{}, client,
		logger.NewTestLogger(), WithMeter(provider.Meter("test")))
	require.NoError(t, err)

	report, err := m.Run(context.Background())
	require.NoError(t, err, "registry failures never abort the cycle")
	assert.Equal(t, 1, report.Failed)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool

	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != metricSubmissionFailuresName {
				continue
			}

			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)

			class, ok := sum.DataPoints[0].Attributes.Value("class")
			require.True(t, ok)
			assert.Equal(t, failureServer, class.AsString())

			found = true
		}
	}

	assert.True(t, found)
}

func TestNewValidatesCollaborators(t *testing.T) {
	client := postFunc(func(context.Context, string, interface{}) ([]byte, error) { return nil, nil })
	backend := snapshot()
	resolver := &fakeResolver{}

	_, err := New(nil, backend, resolver, client, nil)
	require.ErrorIs(t, err, errNilConfig)

	_, err = New(minerConfig(false), nil, resolver, client, nil)
	require.ErrorIs(t, err, errBackendRequired)

	_, err = New(minerConfig(false), backend, nil, client, nil)
	require.ErrorIs(t, err, errResolverRequired)

	_, err = New(minerConfig(false), backend, resolver, nil, nil)
	require.ErrorIs(t, err, errClientRequired)
}
