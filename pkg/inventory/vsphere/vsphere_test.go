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

package vsphere

import (
	"context"
	"crypto/tls"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/simulator"
	"github.com/vmware/govmomi/vim25"

	"github.com/carverauto/vmminer/pkg/inventory"
	"github.com/carverauto/vmminer/pkg/logger"
)

func TestConfigURL(t *testing.T) {
	cfg := &Config{Host: "vcenter.example.com", User: "miner", Password: "secret"}

	u, err := cfg.URL()
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "vcenter.example.com:443", u.Host)
	assert.Equal(t, "/sdk", u.Path)
	assert.Equal(t, "miner", u.User.Username())

	cfg.Path = "/custom"
	cfg.Port = 8443
	u, err = cfg.URL()
	require.NoError(t, err)
	assert.Equal(t, "vcenter.example.com:8443", u.Host)
	assert.Equal(t, "/custom", u.Path)

	_, err = (&Config{}).URL()
	require.ErrorIs(t, err, errHostRequired)
}

func TestBackend_WalksSimulatorInventory(t *testing.T) {
	simulator.Test(func(ctx context.Context, c *vim25.Client) {
		backend, err := NewBackend(ctx, c, "DC0", logger.NewTestLogger())
		require.NoError(t, err)

		root, err := backend.Root(ctx)
		require.NoError(t, err)
		assert.Equal(t, inventory.KindContainer, root.Kind)
		assert.Equal(t, "vm", root.Name)

		children, err := backend.Children(ctx, root)
		require.NoError(t, err)
		require.NotEmpty(t, children)

		for _, child := range children {
			assert.Equal(t, inventory.KindMachine, child.Kind, child.Name)
			assert.True(t, strings.HasPrefix(child.Name, "DC0_"), child.Name)

			info, err := backend.Machine(ctx, child)
			require.NoError(t, err)
			assert.Equal(t, child.Name, info.Name)
		}

		_, err = backend.Machine(ctx, root)
		require.ErrorIs(t, err, inventory.ErrNotMachine)

		require.NoError(t, backend.Close(ctx))
	})
}

func TestBackend_NestedFolder(t *testing.T) {
	simulator.Test(func(ctx context.Context, c *vim25.Client) {
		dc, err := find.NewFinder(c).DefaultDatacenter(ctx)
		require.NoError(t, err)

		folders, err := dc.Folders(ctx)
		require.NoError(t, err)

		_, err = folders.VmFolder.CreateFolder(ctx, "nested")
		require.NoError(t, err)

		backend, err := NewBackend(ctx, c, "", logger.NewTestLogger())
		require.NoError(t, err)

		root, err := backend.Root(ctx)
		require.NoError(t, err)

		children, err := backend.Children(ctx, root)
		require.NoError(t, err)

		var nested *inventory.Node

		for i := range children {
			if children[i].Name == "nested" {
				nested = &children[i]
			}
		}

		require.NotNil(t, nested)
		assert.Equal(t, inventory.KindContainer, nested.Kind)

		grandchildren, err := backend.Children(ctx, *nested)
		require.NoError(t, err)
		assert.Empty(t, grandchildren)
	})
}

func TestBackend_MissingDatacenterFallsBack(t *testing.T) {
	simulator.Test(func(ctx context.Context, c *vim25.Client) {
		backend, err := NewBackend(ctx, c, "DC-missing", logger.NewTestLogger())
		require.NoError(t, err)

		root, err := backend.Root(ctx)
		require.NoError(t, err)
		assert.Equal(t, "vm", root.Name)
	})
}

func TestConnect(t *testing.T) {
	model := simulator.VPX()
	defer model.Remove()

	require.NoError(t, model.Create())

	model.Service.TLS = new(tls.Config)
	server := model.Service.NewServer()
	defer server.Close()

	port, err := strconv.Atoi(server.URL.Port())
	require.NoError(t, err)

	password, _ := server.URL.User.Password()

	cfg := &Config{
		Host:     server.URL.Hostname(),
		Port:     port,
		User:     server.URL.User.Username(),
		Password: password,
		Insecure: true,
	}

	ctx := context.Background()

	backend, err := Connect(ctx, cfg, logger.NewTestLogger())
	require.NoError(t, err)

	root, err := backend.Root(ctx)
	require.NoError(t, err)
	assert.Equal(t, inventory.KindContainer, root.Kind)

	require.NoError(t, backend.Close(ctx))
}

func TestParseRef(t *testing.T) {
	ref, err := parseRef("VirtualMachine:vm-42")
	require.NoError(t, err)
	assert.Equal(t, "VirtualMachine", ref.Type)
	assert.Equal(t, "vm-42", ref.Value)

	_, err = parseRef("garbage")
	require.ErrorIs(t, err, errBadReference)
}
