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

package vm

import "fmt"

// Fork builds a child MM from parent: every mapped region is marked COW
// on both sides and shared by reference, so neither side pays for a
// physical copy until one of them actually writes (spec.md S4). Regions
// with no Clone op (e.g. pinned kernel mappings) are shared outright,
// since they are never copy-on-write candidates.
func Fork(parent *MM) (*MM, error) {
	parent.Lock()
	defer parent.Unlock()

	child := NewMM()
	for slot, r := range parent.regions {
		if r == nil {
			continue
		}
		if r.Ops.Clone != nil {
			r.Prot |= ProtCOW
			r.MMU.AP = UpdateUserAP(r.Prot, r.MMU.AP)
		}

		for len(child.regions) <= slot {
			child.regions = append(child.regions, nil)
		}
		child.regions[slot] = r
		child.install(r)
	}

	if err := validateChild(child); err != nil {
		return nil, fmt.Errorf("vm: Fork: %w", err)
	}
	return child, nil
}

func validateChild(mm *MM) error {
	for i, r := range mm.regions {
		if r == nil {
			continue
		}
		if r.Start()%PageSize != 0 {
			return fmt.Errorf("slot %d not page-aligned", i)
		}
	}
	return nil
}
