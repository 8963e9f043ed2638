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

// Package inventory describes the hypervisor object tree walked by the miner
// and the backends that serve it.
package inventory

import (
	"context"
	"errors"
)

//go:generate mockgen -destination=mock_inventory.go -package=inventory github.com/carverauto/vmminer/pkg/inventory Backend

var (
	ErrUnknownNode = errors.New("unknown inventory node")
	ErrNotMachine  = errors.New("inventory node is not a virtual machine")
)

const (
	TypeVirtualMachine = "VirtualMachine"
	TypeFolder         = "Folder"
)

// NodeKind is the traversal role of a node.
type NodeKind int

const (
	KindOther NodeKind = iota
	KindContainer
	KindMachine
)

func (k NodeKind) String() string {
	switch k {
	case KindMachine:
		return "machine"
	case KindContainer:
		return "container"
	case KindOther:
		return "other"
	default:
		return "other"
	}
}

// Classify maps a backend type tag to a NodeKind.
func Classify(typeTag string) NodeKind {
	switch typeTag {
	case TypeVirtualMachine:
		return KindMachine
	case TypeFolder:
		return KindContainer
	default:
		return KindOther
	}
}

// Node is a handle to one object of the tree. Ref is backend specific.
type Node struct {
	Kind NodeKind
	Type string
	Name string
	Ref  string
}

// NewNode builds a node whose Kind is derived from typeTag.
func NewNode(typeTag, name, ref string) Node {
	return Node{Kind: Classify(typeTag), Type: typeTag, Name: name, Ref: ref}
}

// GuestDNSConfig is the DNS configuration of the first IP stack reported by
// the guest agent.
type GuestDNSConfig struct {
	HostName   string `json:"host_name" yaml:"host_name"`
	DomainName string `json:"domain_name" yaml:"domain_name"`
}

// NIC is one guest network adapter.
type NIC struct {
	MACAddress  string   `json:"mac_address" yaml:"mac_address"`
	IPAddresses []string `json:"ip_addresses" yaml:"ip_addresses"`
}

// MachineInfo is the guest facts read for a machine node. DNSConfig is nil
// when the guest reports no IP stack.
type MachineInfo struct {
	Name                string          `json:"name" yaml:"name"`
	GuestFullName       string          `json:"guest_full_name" yaml:"guest_full_name"`
	ToolsStatus         string          `json:"tools_status" yaml:"tools_status"`
	ToolsRunningStatus  string          `json:"tools_running_status" yaml:"tools_running_status"`
	ToolsVersion        string          `json:"tools_version" yaml:"tools_version"`
	ToolsVersionStatus  string          `json:"tools_version_status" yaml:"tools_version_status"`
	ToolsVersionStatus2 string          `json:"tools_version_status2" yaml:"tools_version_status2"`
	GuestHostName       string          `json:"guest_host_name" yaml:"guest_host_name"`
	DNSConfig           *GuestDNSConfig `json:"dns_config,omitempty" yaml:"dns_config,omitempty"`
	NICs                []NIC           `json:"nics" yaml:"nics"`
}

// Backend serves the inventory tree. Implementations must be safe for
// sequential use by a single crawl.
type Backend interface {
	// Root returns the container the walk starts from.
	Root(ctx context.Context) (Node, error)
	// Children lists the direct children of a container node.
	Children(ctx context.Context, node Node) ([]Node, error)
	// Machine reads the guest facts of a machine node.
	Machine(ctx context.Context, node Node) (*MachineInfo, error)
	Close(ctx context.Context) error
}
