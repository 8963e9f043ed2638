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
	"fmt"

	"github.com/carverauto/vmminer/pkg/inventory"
	"github.com/carverauto/vmminer/pkg/models"
)

// cycle is the state of one crawl. Batch mode holds records until the walk
// ends; insertion order is kept so submission order is deterministic.
type cycle struct {
	batch   bool
	records map[string]*models.MachineRecord
	order   []string

	machines  int
	submitted int
	triaged   int
	failed    int
}

func newCycle(batch bool) *cycle {
	return &cycle{
		batch:   batch,
		records: make(map[string]*models.MachineRecord),
	}
}

func (c *cycle) hold(name string, rec *models.MachineRecord) {
	if _, ok := c.records[name]; !ok {
		c.order = append(c.order, name)
	}

	c.records[name] = rec
}

func (c *cycle) count(o Outcome) {
	switch o {
	case OutcomeSubmitted:
		c.submitted++
	case OutcomeTriaged:
		c.triaged++
	case OutcomeFailed:
		c.failed++
	}
}

// walk visits node's children depth-first in backend order. Backend errors
// abort the walk.
func (m *Miner) walk(ctx context.Context, c *cycle, node inventory.Node) error {
	children, err := m.backend.Children(ctx, node)
	if err != nil {
		return fmt.Errorf("failed to list children of %s: %w", node.Name, err)
	}

	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch child.Kind {
		case inventory.KindMachine:
			if err := m.visitMachine(ctx, c, child); err != nil {
				return err
			}
		case inventory.KindContainer:
			m.logger.Debug().Msgf("Folder %s found - recursing", child.Name)

			if err := m.walk(ctx, c, child); err != nil {
				return err
			}
		case inventory.KindOther:
			m.logger.Debug().Msgf("Unrecognized childEntity %s %s", child.Type, child.Name)
		}
	}

	m.logger.Debug().Msgf("%s: %d VMs", node.Name, c.machines)

	return nil
}

func (m *Miner) visitMachine(ctx context.Context, c *cycle, node inventory.Node) error {
	info, err := m.backend.Machine(ctx, node)
	if err != nil {
		return fmt.Errorf("failed to read machine %s: %w", node.Name, err)
	}

	name := info.Name
	if name == "" {
		name = node.Name
		info.Name = name
	}

	rec := m.builder.Build(info)
	if NeedsReconcile(rec) {
		m.reconciler.Reconcile(ctx, rec)
	}

	c.machines++
	m.metrics.machineDiscovered(ctx)

	if c.batch {
		c.hold(name, rec)

		return nil
	}

	c.count(m.pipeline.Submit(ctx, name, rec))

	return nil
}
