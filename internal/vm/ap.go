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

// AP is one of the six ARM-class access-permission encodings this kernel
// reasons about: kernel-only no-access, kernel-rw/user-none,
// kernel-rw/user-ro, kernel-rw/user-rw, kernel-ro/user-none and
// kernel-ro/user-ro. There is deliberately no "kernel-none/user-*" state;
// the kernel always retains at least the access the user has.
type AP int

const (
	APNone           AP = iota // 000: no access at all
	APKernelRW                 // 001: kernel rw, user none
	APKernelRWUserRO           // 010: kernel rw, user ro
	APFull                     // 011: kernel rw, user rw
	APKernelRO                 // 101: kernel ro, user none
	APReadOnly                 // 111: kernel ro, user ro
)

func (a AP) String() string {
	switch a {
	case APNone:
		return "none"
	case APKernelRW:
		return "krw"
	case APKernelRWUserRO:
		return "krw/uro"
	case APFull:
		return "krw/urw"
	case APKernelRO:
		return "kro"
	case APReadOnly:
		return "kro/uro"
	default:
		return "invalid"
	}
}

// kernelOnlyColumn downgrades a user-visible AP state to its kernel-only
// counterpart, used when the user protection grants neither READ nor
// WRITE.
func kernelOnlyColumn(cur AP) AP {
	switch cur {
	case APFull, APKernelRWUserRO, APKernelRW:
		return APKernelRW
	case APReadOnly, APKernelRO:
		return APKernelRO
	default:
		return APNone
	}
}

// widenToUserRO widens the most recent kernel-rw state to user-ro without
// ever loosening an already-more-permissive state (APFull stays APFull).
func widenToUserRO(cur AP) AP {
	switch cur {
	case APFull:
		return APFull
	case APKernelRW, APKernelRWUserRO, APNone:
		return APKernelRWUserRO
	case APKernelRO, APReadOnly:
		return APReadOnly
	default:
		return APReadOnly
	}
}

// UpdateUserAP recomputes a region's AP bits from its user protection
// flags and its current AP state (vm_updateusr_ap). The rule, applied in
// priority order:
//
//  1. COW+READ forces RO/RO: AP becomes APReadOnly, regardless of the
//     current state or of WRITE (a COW page is never left writable by
//     the user).
//  2. Otherwise WRITE implies user-rw: AP becomes APFull.
//  3. READ-only (no WRITE, no COW) widens the most recent kernel-rw state
//     to user-ro, but never loosens an already-more-permissive state.
//  4. No user access at all (neither READ nor WRITE) downgrades to the
//     kernel-only column corresponding to the current state.
//
// This table is exhaustive over the 6 AP states in both directions, as
// required by spec; every case above and every input AP is handled
// explicitly by the switches in this file.
func UpdateUserAP(prot Prot, cur AP) AP {
	switch {
	case prot&ProtCOW != 0 && prot&ProtRead != 0:
		return APReadOnly
	case prot&ProtWrite != 0:
		return APFull
	case prot&ProtRead != 0:
		return widenToUserRO(cur)
	default:
		return kernelOnlyColumn(cur)
	}
}
