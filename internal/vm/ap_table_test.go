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
	"testing"

	"github.com/google/go-cmp/cmp"
)

// transition is one (protection, current AP) -> next AP row of the table
// UpdateUserAP implements.
type transition struct {
	Prot Prot
	Cur  AP
	Next AP
}

// TestUpdateUserAPExhaustiveTable snapshots UpdateUserAP's behaviour
// across every (Prot, AP) pair the region state machine can reach, and
// diffs it against the expected table in one shot with cmp.Diff rather
// than a per-case require.Equal, so a single wrong row in the switch
// statement shows up as a single readable diff instead of the first
// assertion failure masking the rest.
func TestUpdateUserAPExhaustiveTable(t *testing.T) {
	allAP := []AP{APNone, APKernelRW, APKernelRWUserRO, APFull, APKernelRO, APReadOnly}
	allProt := []Prot{
		0,
		ProtRead,
		ProtWrite,
		ProtRead | ProtWrite,
		ProtRead | ProtCOW,
		ProtRead | ProtWrite | ProtCOW,
	}

	var got []transition
	for _, prot := range allProt {
		for _, cur := range allAP {
			got = append(got, transition{Prot: prot, Cur: cur, Next: UpdateUserAP(prot, cur)})
		}
	}

	// want is transcribed by hand from the four priority rules documented
	// on UpdateUserAP, not derived from the function under test, so a
	// regression in the switch actually shows up as a diff here.
	want := []transition{}
	appendRow := func(prot Prot, next []AP) {
		for i, cur := range allAP {
			want = append(want, transition{Prot: prot, Cur: cur, Next: next[i]})
		}
	}
	appendRow(0, []AP{APNone, APKernelRW, APKernelRW, APKernelRW, APKernelRO, APKernelRO})
	appendRow(ProtRead, []AP{APKernelRWUserRO, APKernelRWUserRO, APKernelRWUserRO, APFull, APReadOnly, APReadOnly})
	appendRow(ProtWrite, []AP{APFull, APFull, APFull, APFull, APFull, APFull})
	appendRow(ProtRead|ProtWrite, []AP{APFull, APFull, APFull, APFull, APFull, APFull})
	appendRow(ProtRead|ProtCOW, []AP{APReadOnly, APReadOnly, APReadOnly, APReadOnly, APReadOnly, APReadOnly})
	appendRow(ProtRead|ProtWrite|ProtCOW, []AP{APReadOnly, APReadOnly, APReadOnly, APReadOnly, APReadOnly, APReadOnly})

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("UpdateUserAP table mismatch (-want +got):\n%s", diff)
	}
}
