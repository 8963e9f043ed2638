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

package models

// ToolsRunning is the guest tools running status reported when the in-guest
// agent is up and network facts can be trusted.
const ToolsRunning = "guestToolsRunning"

// NetworkInterfaceFact is one accepted IPv4 address of a machine together with
// the DNS evidence gathered for it.
type NetworkInterfaceFact struct {
	IPv4Address    string    `json:"ipv4_address"`
	MACAddress     string    `json:"mac_address"`
	ForwardMatches StringSet `json:"forward_matches"`
	ReverseNames   StringSet `json:"reverse_names"`
}

// NewNetworkInterfaceFact wraps an already validated address.
func NewNetworkInterfaceFact(ipv4, mac string) *NetworkInterfaceFact {
	return &NetworkInterfaceFact{
		IPv4Address:    ipv4,
		MACAddress:     mac,
		ForwardMatches: NewStringSet(),
		ReverseNames:   NewStringSet(),
	}
}

// MachineRecord is everything learned about one virtual machine during a crawl
// cycle. It is keyed by RawName.
type MachineRecord struct {
	RawName             string                  `json:"vm_name"`
	ParsedShortName     string                  `json:"vm_short_name,omitempty"`
	OperatingSystem     OSClass                 `json:"os,omitempty"`
	PCIScope            string                  `json:"pci_scope,omitempty"`
	ToolsStatus         string                  `json:"tools_status,omitempty"`
	ToolsRunningStatus  string                  `json:"tools_running_status,omitempty"`
	ToolsVersion        string                  `json:"tools_version,omitempty"`
	ToolsVersionStatus  string                  `json:"tools_version_status,omitempty"`
	ToolsVersionStatus2 string                  `json:"tools_version_status2,omitempty"`
	Interfaces          []*NetworkInterfaceFact `json:"ipv4_addresses"`
	Hostname            string                  `json:"hostname,omitempty"`
	Domain              string                  `json:"domain,omitempty"`
	HostnameCandidates  StringSet               `json:"hostnames"`
	DomainCandidates    StringSet               `json:"domains"`
}

// NewMachineRecord returns an empty record for the named machine.
func NewMachineRecord(rawName string) *MachineRecord {
	return &MachineRecord{
		RawName:            rawName,
		Interfaces:         []*NetworkInterfaceFact{},
		HostnameCandidates: NewStringSet(),
		DomainCandidates:   NewStringSet(),
	}
}

// Submittable reports whether both halves of the FQDN are known.
func (r *MachineRecord) Submittable() bool {
	return r.Hostname != "" && r.Domain != ""
}

// FQDN joins hostname and domain the way the registry expects them. Missing
// parts are left empty so diagnostics show what was attempted.
func (r *MachineRecord) FQDN() string {
	return r.Hostname + "." + r.Domain
}

// Addresses returns the accepted IPv4 addresses in discovery order.
func (r *MachineRecord) Addresses() []string {
	out := make([]string, 0, len(r.Interfaces))
	for _, iface := range r.Interfaces {
		out = append(out, iface.IPv4Address)
	}

	return out
}
