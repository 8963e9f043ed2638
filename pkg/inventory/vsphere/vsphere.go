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

// Package vsphere serves the inventory tree from a vCenter or ESXi endpoint.
package vsphere

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/carverauto/vmminer/pkg/inventory"
	"github.com/carverauto/vmminer/pkg/logger"
)

const (
	defaultPath = "sdk"
	defaultPort = 443
)

var (
	errHostRequired = errors.New("vmware host is required")
	errBadReference = errors.New("malformed managed object reference")
)

//nolint:gochecknoglobals // property paths read per machine
var machineProperties = []string{"name", "summary", "guest"}

// Config is the vmware section of the service configuration.
type Config struct {
	Host       string `json:"host" yaml:"host"`
	User       string `json:"user" yaml:"user"`
	Password   string `json:"password" yaml:"password"`
	Datacenter string `json:"datacenter" yaml:"datacenter"`
	Insecure   bool   `json:"insecure" yaml:"insecure"`
	Path       string `json:"path" yaml:"path"`
	Port       int    `json:"port" yaml:"port"`
}

// URL builds the SDK endpoint URL including credentials.
func (c *Config) URL() (*url.URL, error) {
	if c.Host == "" {
		return nil, errHostRequired
	}

	path := c.Path
	if path == "" {
		path = defaultPath
	}

	port := c.Port
	if port == 0 {
		port = defaultPort
	}

	u, err := soap.ParseURL(fmt.Sprintf("https://%s:%d/%s", c.Host, port, strings.TrimPrefix(path, "/")))
	if err != nil {
		return nil, fmt.Errorf("invalid vmware endpoint: %w", err)
	}

	u.User = url.UserPassword(c.User, c.Password)

	return u, nil
}

// Backend implements inventory.Backend on top of govmomi.
type Backend struct {
	session   *govmomi.Client
	client    *vim25.Client
	collector *property.Collector
	root      *object.Folder
	logger    logger.Logger
}

// Connect logs in to the endpoint described by cfg and locates the VM folder
// of the configured datacenter.
func Connect(ctx context.Context, cfg *Config, log logger.Logger) (*Backend, error) {
	u, err := cfg.URL()
	if err != nil {
		return nil, err
	}

	session, err := govmomi.NewClient(ctx, u, cfg.Insecure)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Host, err)
	}

	b, err := NewBackend(ctx, session.Client, cfg.Datacenter, log)
	if err != nil {
		_ = session.Logout(ctx)

		return nil, err
	}

	b.session = session

	log.Info().Str("host", cfg.Host).Str("datacenter", cfg.Datacenter).Msg("Connected to vSphere")

	return b, nil
}

// NewBackend wraps an established client. A datacenter that cannot be found
// falls back to the default datacenter.
func NewBackend(ctx context.Context, client *vim25.Client, datacenter string, log logger.Logger) (*Backend, error) {
	finder := find.NewFinder(client, true)

	dc, err := findDatacenter(ctx, finder, datacenter, log)
	if err != nil {
		return nil, err
	}

	folders, err := dc.Folders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read datacenter folders: %w", err)
	}

	return &Backend{
		client:    client,
		collector: property.DefaultCollector(client),
		root:      folders.VmFolder,
		logger:    log,
	}, nil
}

func findDatacenter(ctx context.Context, finder *find.Finder, name string, log logger.Logger) (*object.Datacenter, error) {
	if name != "" {
		dc, err := finder.Datacenter(ctx, name)
		if err == nil {
			return dc, nil
		}

		var notFound *find.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to find datacenter %s: %w", name, err)
		}

		log.Warn().Str("datacenter", name).Msg("Datacenter not found, using default")
	}

	dc, err := finder.DefaultDatacenter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find default datacenter: %w", err)
	}

	return dc, nil
}

func (b *Backend) Root(ctx context.Context) (inventory.Node, error) {
	return b.node(ctx, b.root.Reference())
}

func (b *Backend) Children(ctx context.Context, node inventory.Node) ([]inventory.Node, error) {
	ref, err := parseRef(node.Ref)
	if err != nil {
		return nil, err
	}

	children, err := object.NewFolder(b.client, ref).Children(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", node.Name, err)
	}

	out := make([]inventory.Node, 0, len(children))

	for _, child := range children {
		n, err := b.node(ctx, child.Reference())
		if err != nil {
			return nil, err
		}

		out = append(out, n)
	}

	return out, nil
}

func (b *Backend) Machine(ctx context.Context, node inventory.Node) (*inventory.MachineInfo, error) {
	ref, err := parseRef(node.Ref)
	if err != nil {
		return nil, err
	}

	if inventory.Classify(ref.Type) != inventory.KindMachine {
		return nil, fmt.Errorf("%w: %s", inventory.ErrNotMachine, node.Name)
	}

	var vm mo.VirtualMachine
	if err := b.collector.RetrieveOne(ctx, ref, machineProperties, &vm); err != nil {
		return nil, fmt.Errorf("failed to read properties of %s: %w", node.Name, err)
	}

	return machineInfo(&vm), nil
}

func (b *Backend) Close(ctx context.Context) error {
	if b.session == nil {
		return nil
	}

	return b.session.Logout(ctx)
}

func (b *Backend) node(ctx context.Context, ref types.ManagedObjectReference) (inventory.Node, error) {
	name, err := object.NewCommon(b.client, ref).ObjectName(ctx)
	if err != nil {
		return inventory.Node{}, fmt.Errorf("failed to read name of %s: %w", ref, err)
	}

	return inventory.NewNode(ref.Type, name, ref.String()), nil
}

func parseRef(s string) (types.ManagedObjectReference, error) {
	var ref types.ManagedObjectReference
	if !ref.FromString(s) {
		return ref, fmt.Errorf("%w: %q", errBadReference, s)
	}

	return ref, nil
}

func machineInfo(vm *mo.VirtualMachine) *inventory.MachineInfo {
	info := &inventory.MachineInfo{
		Name:          vm.Summary.Config.Name,
		GuestFullName: vm.Summary.Config.GuestFullName,
	}

	if info.Name == "" {
		info.Name = vm.Name
	}

	guest := vm.Guest
	if guest == nil {
		return info
	}

	info.ToolsStatus = string(guest.ToolsStatus)
	info.ToolsRunningStatus = guest.ToolsRunningStatus
	info.ToolsVersion = guest.ToolsVersion
	info.ToolsVersionStatus = guest.ToolsVersionStatus
	info.ToolsVersionStatus2 = guest.ToolsVersionStatus2
	info.GuestHostName = guest.HostName

	if len(guest.IpStack) > 0 {
		info.DNSConfig = &inventory.GuestDNSConfig{}

		if dns := guest.IpStack[0].DnsConfig; dns != nil {
			info.DNSConfig.HostName = dns.HostName
			info.DNSConfig.DomainName = dns.DomainName
		}
	}

	for _, nic := range guest.Net {
		info.NICs = append(info.NICs, inventory.NIC{
			MACAddress:  nic.MacAddress,
			IPAddresses: append([]string(nil), nic.IpAddress...),
		})
	}

	return info
}
