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

// OSClass is the coarse operating system family reported to the registry.
type OSClass string

const (
	OSUnknown OSClass = ""
	OSWindows OSClass = "windows"
	OSLinux   OSClass = "linux"
)

// defaultGuestOSMappings maps guest full names reported by the hypervisor to
// an OS class.
//
//nolint:gochecknoglobals // read-only lookup table
var defaultGuestOSMappings = map[OSClass][]string{
	OSWindows: {"Microsoft Windows Server 2008 R2 (64-bit)"},
	OSLinux:   {"Ubuntu Linux (64-bit)"},
}

// OSClassifier resolves guest full names to an OSClass by exact match.
type OSClassifier struct {
	table map[string]OSClass
}

// NewOSClassifier builds a classifier from the built-in table plus extra
// entries keyed by class name. Extra entries win on conflict.
func NewOSClassifier(extra map[string][]string) *OSClassifier {
	c := &OSClassifier{table: make(map[string]OSClass)}

	for class, names := range defaultGuestOSMappings {
		for _, name := range names {
			c.table[name] = class
		}
	}

	for class, names := range extra {
		for _, name := range names {
			c.table[name] = OSClass(class)
		}
	}

	return c
}

// Classify returns the class for guestFullName, or OSUnknown when unmapped.
func (c *OSClassifier) Classify(guestFullName string) OSClass {
	if c == nil {
		return OSUnknown
	}

	return c.table[guestFullName]
}
