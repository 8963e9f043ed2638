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

// DeviceAddress is one entry of the ipv4_addresses list sent to the registry.
type DeviceAddress struct {
	IPv4Address string `json:"ipv4_address"`
	MACAddress  string `json:"mac_address"`
}

// DeviceRecord is the exact wire format accepted by the asset registry device
// endpoint. Nothing outside these fields is ever sent.
type DeviceRecord struct {
	Hostname      string          `json:"hostname"`
	Domain        string          `json:"domain"`
	OS            string          `json:"os,omitempty"`
	PCIScope      string          `json:"pci_scope,omitempty"`
	IPv4Addresses []DeviceAddress `json:"ipv4_addresses"`
}

// Device projects the record onto the registry whitelist.
func (r *MachineRecord) Device() *DeviceRecord {
	addresses := make([]DeviceAddress, 0, len(r.Interfaces))
	for _, iface := range r.Interfaces {
		addresses = append(addresses, DeviceAddress{
			IPv4Address: iface.IPv4Address,
			MACAddress:  iface.MACAddress,
		})
	}

	return &DeviceRecord{
		Hostname:      r.Hostname,
		Domain:        r.Domain,
		OS:            string(r.OperatingSystem),
		PCIScope:      r.PCIScope,
		IPv4Addresses: addresses,
	}
}
