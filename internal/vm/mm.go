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

import (
	"fmt"
	"sync"

	"github.com/jacobsa/syncutil"
)

// InsertOp controls how MM.Insert/MM.Replace treat the new region.
type InsertOp uint8

const (
	// MapReg installs the region's translation immediately.
	MapReg InsertOp = 1 << iota
	// NoFree skips invoking the replaced region's Ops.Free.
	NoFree
)

// MM is the Go rendition of `vm_mm`: a process's memory-management
// struct. It owns a master page-table descriptor (simulated), an ordered
// array of region pointers indexed by semantic slot, and the lock
// protecting insert/remove of those slots.
type MM struct {
	// mu is an invariant-checked mutex, in the style of the teacher's
	// fs/inode package: every release re-validates the structural
	// invariants spec.md §8 #3 requires (page alignment, non-overlap).
	mu syncutil.InvariantMutex

	master []byte // the simulated master page-table descriptor

	// regions is indexed by semantic slot (SlotCode=0, SlotStack=1,
	// SlotHeap=2, then free slots); nil entries are free slots.
	regions []*Region

	pageTables int // count of secondary page tables currently allocated
}

// NewMM allocates a master page table and a zero-sized region array.
func NewMM() *MM {
	mm := &MM{master: make([]byte, 0)}
	mm.mu = syncutil.NewInvariantMutex(mm.checkInvariants)
	return mm
}

func (mm *MM) checkInvariants() {
	for i, r := range mm.regions {
		if r == nil {
			continue
		}
		if r.Start()%PageSize != 0 {
			panic(fmt.Sprintf("vm: mm slot %d region not page-aligned", i))
		}
		if r.MMU.Size == 0 || r.MMU.Size%PageSize != 0 {
			panic(fmt.Sprintf("vm: mm slot %d region bad size", i))
		}
		for j, o := range mm.regions {
			if j <= i || o == nil {
				continue
			}
			if r.Overlaps(o) {
				panic(fmt.Sprintf("vm: mm slots %d and %d overlap", i, j))
			}
		}
	}
}

// Lock/Unlock expose the regions lock to callers that need to read a
// slot and re-validate after releasing it (per the concurrency model:
// region slots may be read with the lock held and must be re-validated
// after any unlock).
func (mm *MM) Lock()   { mm.mu.Lock() }
func (mm *MM) Unlock() { mm.mu.Unlock() }

// RegionAt returns the region installed in slot, or nil. REQUIRES: mm
// locked.
func (mm *MM) RegionAt(slot int) *Region {
	if slot < 0 || slot >= len(mm.regions) {
		return nil
	}
	return mm.regions[slot]
}

// Find returns the region containing vaddr and its slot, or (nil, -1).
// REQUIRES: mm locked.
func (mm *MM) Find(vaddr uintptr) (*Region, int) {
	for i, r := range mm.regions {
		if r == nil {
			continue
		}
		if vaddr >= r.Start() && vaddr < r.End() {
			return r, i
		}
	}
	return nil, -1
}

// freeSlot finds the first nil slot, growing the array if none exists.
// REQUIRES: mm locked.
func (mm *MM) freeSlot() int {
	for i, r := range mm.regions {
		if r == nil {
			return i
		}
	}
	mm.regions = append(mm.regions, nil)
	return len(mm.regions) - 1
}

// Insert finds a free slot (growing the region array if needed) and, if
// MapReg is set, installs the region's translation. It is vm_insert_region.
func (mm *MM) Insert(region *Region, insop InsertOp) (slot int, err error) {
	mm.Lock()
	defer mm.Unlock()

	for _, r := range mm.regions {
		if r != nil && r.Overlaps(region) {
			return -1, fmt.Errorf("vm: Insert: region overlaps an existing mapping")
		}
	}

	slot = mm.freeSlot()
	mm.regions[slot] = region
	if insop&MapReg != 0 {
		mm.install(region)
	}
	return slot, nil
}

// Replace unmaps the previous occupant of slot (unless it is a pinned
// kernel region) and, unless NoFree is set, invokes its Ops.Free; then
// installs the new region. It is vm_replace_region.
func (mm *MM) Replace(region *Region, slot int, insop InsertOp) error {
	mm.Lock()
	defer mm.Unlock()

	if slot < 0 || slot >= len(mm.regions) {
		return fmt.Errorf("vm: Replace: slot %d out of range", slot)
	}

	prev := mm.regions[slot]
	if prev != nil {
		mm.uninstall(prev)
		if insop&NoFree == 0 && prev.Ops.Free != nil {
			if err := prev.Ops.Free(prev); err != nil {
				return fmt.Errorf("vm: Replace: Ops.Free: %w", err)
			}
		}
	}

	mm.regions[slot] = region
	if insop&MapReg != 0 && region != nil {
		mm.install(region)
	}
	return nil
}

func (mm *MM) install(r *Region) {
	r.MMU.AP = UpdateUserAP(r.Prot, r.MMU.AP)
	mm.pageTables++
}

func (mm *MM) uninstall(r *Region) {
	if mm.pageTables > 0 {
		mm.pageTables--
	}
}

// Destroy walks the region array freeing each region via its Ops.Free,
// and releases the master page table. It does not take the regions
// lock: the caller must guarantee no other thread can reach mm anymore
// (e.g. it is only called from process exit).
func Destroy(mm *MM) error {
	var firstErr error
	for _, r := range mm.regions {
		if r == nil || r.Ops.Free == nil {
			continue
		}
		if err := r.Ops.Free(r); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("vm: Destroy: Ops.Free: %w", err)
		}
	}
	mm.regions = nil
	mm.master = nil
	return firstErr
}

var _ sync.Locker = (*MM)(nil)
