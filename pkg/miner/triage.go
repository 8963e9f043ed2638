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
	"sort"
	"sync"

	"github.com/carverauto/vmminer/pkg/models"
)

// TriageSet holds records that could not be submitted, keyed by raw VM name.
// Entries outlive crawl cycles until drained.
type TriageSet struct {
	mu      sync.RWMutex
	entries map[string]*models.MachineRecord
}

func NewTriageSet() *TriageSet {
	return &TriageSet{entries: make(map[string]*models.MachineRecord)}
}

// Put stores rec under name, replacing any earlier entry.
func (t *TriageSet) Put(name string, rec *models.MachineRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[name] = rec
}

func (t *TriageSet) Get(name string) (*models.MachineRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.entries[name]

	return rec, ok
}

func (t *TriageSet) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.entries)
}

// Names returns the triaged VM names in sorted order.
func (t *TriageSet) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Snapshot returns a copy of the current entries.
func (t *TriageSet) Snapshot() map[string]*models.MachineRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]*models.MachineRecord, len(t.entries))
	for name, rec := range t.entries {
		out[name] = rec
	}

	return out
}

// Drain removes every entry and returns how many were held.
func (t *TriageSet) Drain() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.entries)
	t.entries = make(map[string]*models.MachineRecord)

	return n
}
