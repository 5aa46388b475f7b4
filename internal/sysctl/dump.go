// Copyright 2026 The Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sysctl

import (
	"sort"

	"gopkg.in/yaml.v3"
)

// Snapshot is the YAML-serialisable rendition of one node, used by
// `tinykern sysctl` (run with no node name) to produce a sysctl-a-equivalent tree listing.
type Snapshot struct {
	Name     string     `yaml:"name"`
	ID       int32      `yaml:"id"`
	Kind     Kind       `yaml:"kind"`
	Flags    Flag       `yaml:"flags"`
	Descr    string     `yaml:"descr,omitempty"`
	Children []Snapshot `yaml:"children,omitempty"`
}

func snapshot(n *Node) Snapshot {
	s := Snapshot{Name: n.Name, ID: n.ID, Kind: n.Kind, Flags: n.Flags, Descr: n.Descr}
	children := append([]*Node(nil), n.children...)
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	for _, c := range children {
		s.Children = append(s.Children, snapshot(c))
	}
	return s
}

// Dump renders the entire tree as YAML, skipping nodes flagged
// CTLFLAG_SKIP the way `sysctl -a` does.
func (t *Tree) Dump() ([]byte, error) {
	t.mu.Lock()
	root := snapshot(t.root)
	t.mu.Unlock()
	root.Children = filterSkip(root.Children)
	return yaml.Marshal(root)
}

func filterSkip(nodes []Snapshot) []Snapshot {
	out := make([]Snapshot, 0, len(nodes))
	for _, n := range nodes {
		if n.Flags&FlagSkip != 0 {
			continue
		}
		n.Children = filterSkip(n.Children)
		out = append(out, n)
	}
	return out
}
