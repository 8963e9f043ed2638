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
	"net/netip"
	"strings"

	"github.com/carverauto/vmminer/pkg/inventory"
	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/models"
)

// Address prefixes that are never reported. 169. covers all of 169.0.0.0/8,
// not only link-local.
//
//nolint:gochecknoglobals // read-only filter table
var excludedPrefixes = []string{"127.0.0.", "169."}

// ExtractInterfaces returns the accepted IPv4 addresses of info in NIC order.
// Nothing is returned unless guest tools are running.
func ExtractInterfaces(info *inventory.MachineInfo, log logger.Logger) []*models.NetworkInterfaceFact {
	facts := []*models.NetworkInterfaceFact{}

	if info == nil || info.ToolsRunningStatus != models.ToolsRunning {
		return facts
	}

	for _, nic := range info.NICs {
		for _, address := range nic.IPAddresses {
			if excluded(address) {
				continue
			}

			if !isIPv4(address) {
				log.Warn().Msgf("%s: %s is not a valid IPv4 Address", info.Name, address)

				continue
			}

			facts = append(facts, models.NewNetworkInterfaceFact(address, nic.MACAddress))
		}
	}

	return facts
}

func excluded(address string) bool {
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(address, prefix) {
			return true
		}
	}

	return false
}

func isIPv4(address string) bool {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return false
	}

	return addr.Is4()
}
