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
	"math/rand/v2"
)

func pageRoundDown(v uintptr) uintptr { return v &^ (PageSize - 1) }
func pageRoundUp(v uintptr) uintptr   { return (v + PageSize - 1) &^ (PageSize - 1) }

// NewSect rounds the start down and the end up to page boundaries,
// allocates backing storage, fills the MMU descriptor (including the
// write-back memory-type bit) and computes the initial AP bits from prot.
// It is vm_newsect.
func NewSect(vaddr, size uintptr, prot Prot) (*Region, error) {
	if size == 0 {
		return nil, fmt.Errorf("vm: NewSect: zero size")
	}
	start := pageRoundDown(vaddr)
	end := pageRoundUp(vaddr + size)
	alignedSize := end - start

	r := &Region{
		MMU: MMUDescriptor{
			VAddr:     start,
			Size:      alignedSize,
			WriteBack: true,
			ExecNever: prot&ProtExec == 0,
			Backing:   make([]byte, alignedSize),
		},
		Prot: prot,
		Ops:  DefaultOps,
	}
	r.MMU.AP = UpdateUserAP(prot, APNone)
	return r, nil
}

// RandomRegionBase/RandomRegionLimit bound the virtual-address range
// stack randomisation (vm_rndsect) picks candidates from. Chosen to keep
// simulated addresses distinct from the fixed slots (code/stack/heap)
// exercised elsewhere.
const (
	RandomRegionBase  = uintptr(0x4000_0000)
	RandomRegionLimit = uintptr(0x8000_0000)
)

// RndSect picks a free, page-aligned virtual address in the configured
// random range by repeatedly generating uniformly random candidates and
// rejecting any that overlap an existing region of mm, then allocates the
// backing region exactly as NewSect would. It is vm_rndsect.
func RndSect(mm *MM, size uintptr, prot Prot) (*Region, error) {
	size = pageRoundUp(size)
	span := RandomRegionLimit - RandomRegionBase - size
	if span == 0 {
		span = 1
	}

	mm.Lock()
	defer mm.Unlock()

	const maxTries = 1000
	for try := 0; try < maxTries; try++ {
		candidate := RandomRegionBase + pageRoundDown(uintptr(rand.Int64N(int64(span))))
		conflict := false
		for _, r := range mm.regions {
			if r == nil {
				continue
			}
			if candidate < r.End() && r.Start() < candidate+size {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}

		region, err := NewSect(candidate, size, prot)
		if err != nil {
			return nil, fmt.Errorf("vm: RndSect: NewSect: %w", err)
		}
		// Eagerly account for the secondary page tables the mapping will
		// need so the caller knows mapping will succeed.
		mm.pageTables++
		return region, nil
	}
	return nil, fmt.Errorf("vm: RndSect: did not converge after %d tries", maxTries)
}
