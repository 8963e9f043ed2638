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

package inventory

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const rootRef = "0"

// SnapshotNode is one entry of an inventory snapshot document.
type SnapshotNode struct {
	Type     string          `json:"type" yaml:"type"`
	Name     string          `json:"name" yaml:"name"`
	Machine  *MachineInfo    `json:"machine,omitempty" yaml:"machine,omitempty"`
	Children []*SnapshotNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// StaticBackend serves a tree held in memory, typically loaded from a YAML or
// JSON snapshot file.
type StaticBackend struct {
	root  *SnapshotNode
	nodes map[string]*SnapshotNode
}

// NewStaticBackend indexes root. A root without a type is treated as a folder.
func NewStaticBackend(root *SnapshotNode) *StaticBackend {
	if root.Type == "" {
		root.Type = TypeFolder
	}

	b := &StaticBackend{root: root, nodes: make(map[string]*SnapshotNode)}
	b.index(root, rootRef)

	return b
}

// LoadSnapshot reads a snapshot document. JSON documents are accepted since
// they are valid YAML.
func LoadSnapshot(path string) (*StaticBackend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory snapshot '%s': %w", path, err)
	}

	var root SnapshotNode
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse inventory snapshot '%s': %w", path, err)
	}

	return NewStaticBackend(&root), nil
}

func (b *StaticBackend) index(n *SnapshotNode, ref string) {
	b.nodes[ref] = n

	for i, child := range n.Children {
		b.index(child, ref+"/"+strconv.Itoa(i))
	}
}

func (b *StaticBackend) lookup(node Node) (*SnapshotNode, error) {
	n, ok := b.nodes[node.Ref]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, node.Ref)
	}

	return n, nil
}

func (b *StaticBackend) Root(_ context.Context) (Node, error) {
	return NewNode(b.root.Type, b.root.Name, rootRef), nil
}

func (b *StaticBackend) Children(_ context.Context, node Node) ([]Node, error) {
	n, err := b.lookup(node)
	if err != nil {
		return nil, err
	}

	out := make([]Node, 0, len(n.Children))
	for i, child := range n.Children {
		out = append(out, NewNode(child.Type, child.Name, node.Ref+"/"+strconv.Itoa(i)))
	}

	return out, nil
}

func (b *StaticBackend) Machine(_ context.Context, node Node) (*MachineInfo, error) {
	n, err := b.lookup(node)
	if err != nil {
		return nil, err
	}

	if Classify(n.Type) != KindMachine {
		return nil, fmt.Errorf("%w: %s", ErrNotMachine, n.Name)
	}

	info := MachineInfo{}
	if n.Machine != nil {
		info = *n.Machine
	}

	if info.Name == "" {
		info.Name = n.Name
	}

	return &info, nil
}

func (*StaticBackend) Close(context.Context) error {
	return nil
}
