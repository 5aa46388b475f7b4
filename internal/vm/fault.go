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

// FaultKind classifies the MMU fault that drove a thread into the abort
// handler.
type FaultKind int

const (
	// FaultTranslation means no mapping exists for the faulting address
	// at all, or the mapping was unmapped concurrently (e.g. during exec
	// region replacement).
	FaultTranslation FaultKind = iota
	// FaultPermission means a mapping exists but forbids the access that
	// was attempted (e.g. a write to a COW page).
	FaultPermission
)

// Signal is the POSIX signal the abort handler decides to deliver when it
// cannot resolve a fault itself.
type Signal int

const (
	SigNone Signal = iota
	SigSegv
	SigBus
)

// Abort is the user MMU fault entry point. It implements the four-step
// algorithm from spec.md §4.2:
//
//  1. Locate the region containing the faulting address under the mm
//     regions lock.
//  2. A translation fault inside a known region means the mapping was
//     unmapped concurrently; re-install it and succeed.
//  3. Otherwise, if the region is COW and has a Clone op, clone it
//     (physical page copy), replace the process's slot with the clone,
//     and succeed.
//  4. Otherwise return the signal that should be delivered.
func Abort(mm *MM, addr uintptr, kind FaultKind, write bool) (Signal, error) {
	mm.Lock()
	r, slot := mm.Find(addr)
	mm.Unlock()

	if r == nil {
		if kind == FaultPermission {
			return SigBus, nil
		}
		return SigSegv, nil
	}

	if kind == FaultTranslation {
		mm.Lock()
		mm.install(r)
		mm.Unlock()
		return SigNone, nil
	}

	if r.Prot&ProtCOW != 0 && r.Ops.Clone != nil {
		r.Lock()
		clone, err := r.Ops.Clone(r)
		r.Unlock()
		if err != nil {
			return SigNone, fmt.Errorf("vm: Abort: Ops.Clone: %w", err)
		}
		clone.Prot = r.Prot &^ ProtCOW
		clone.MMU.AP = UpdateUserAP(clone.Prot, APNone)
		if err := mm.Replace(clone, slot, MapReg); err != nil {
			return SigNone, fmt.Errorf("vm: Abort: Replace: %w", err)
		}
		return SigNone, nil
	}

	if write {
		return SigSegv, nil
	}
	return SigBus, nil
}
