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

	"github.com/stretchr/testify/require"
)

func TestNewSectPageAligns(t *testing.T) {
	r, err := NewSect(100, 10, ProtRead|ProtWrite)
	require.NoError(t, err)
	require.Zero(t, r.Start()%PageSize)
	require.Zero(t, r.MMU.Size%PageSize)
	require.GreaterOrEqual(t, r.MMU.Size, uintptr(PageSize))
}

func TestInsertRejectsOverlap(t *testing.T) {
	mm := NewMM()
	a, err := NewSect(0, PageSize, ProtRead|ProtWrite)
	require.NoError(t, err)
	_, err = mm.Insert(a, MapReg)
	require.NoError(t, err)

	b, err := NewSect(0, PageSize, ProtRead)
	require.NoError(t, err)
	_, err = mm.Insert(b, MapReg)
	require.Error(t, err)
}

// TestCOWFork exercises spec.md S4: a parent's writable anonymous page
// must remain unaffected by a "child" writing through a COW clone.
func TestCOWFork(t *testing.T) {
	parentMM := NewMM()
	region, err := NewSect(0, PageSize, ProtRead|ProtWrite)
	require.NoError(t, err)
	region.MMU.Backing[0] = 0xAA
	slot, err := parentMM.Insert(region, MapReg)
	require.NoError(t, err)

	// fork(): mark COW on both sides, share the same backing Region.
	region.Prot |= ProtCOW
	region.MMU.AP = UpdateUserAP(region.Prot, region.MMU.AP)

	childMM := NewMM()
	_, err = childMM.Insert(region, MapReg)
	require.NoError(t, err)

	// Child writes: triggers the abort handler's COW clone path.
	sig, err := Abort(childMM, region.Start(), FaultPermission, true)
	require.NoError(t, err)
	require.Equal(t, SigNone, sig)

	childRegion := childMM.RegionAt(slot)
	childRegion.MMU.Backing[0] = 0x55

	require.Equal(t, byte(0xAA), region.MMU.Backing[0], "parent's page must be untouched")
	require.Equal(t, byte(0x55), childRegion.MMU.Backing[0])
}

func TestCopyinCopyoutRoundTrip(t *testing.T) {
	mm := NewMM()
	region, err := NewSect(0, PageSize, ProtRead|ProtWrite)
	require.NoError(t, err)
	_, err = mm.Insert(region, MapReg)
	require.NoError(t, err)

	require.NoError(t, Copyout(mm, 4, []byte("hello")))
	buf := make([]byte, 5)
	require.NoError(t, Copyin(mm, 4, buf))
	require.Equal(t, "hello", string(buf))
}

func TestCopyinStrTooLong(t *testing.T) {
	mm := NewMM()
	region, err := NewSect(0, PageSize, ProtRead|ProtWrite)
	require.NoError(t, err)
	_, err = mm.Insert(region, MapReg)
	require.NoError(t, err)
	for i := 0; i < PageSize; i++ {
		region.MMU.Backing[i] = 'x'
	}

	_, err = CopyinStr(mm, 0, 8)
	require.Error(t, err)
}

func TestUpdateUserAPTable(t *testing.T) {
	cases := []struct {
		prot Prot
		cur  AP
		want AP
	}{
		{ProtWrite, APNone, APFull},
		{ProtRead | ProtCOW, APFull, APReadOnly},
		{ProtRead, APKernelRW, APKernelRWUserRO},
		{ProtRead, APFull, APFull},
		{0, APFull, APKernelRW},
		{0, APReadOnly, APKernelRO},
	}
	for _, c := range cases {
		got := UpdateUserAP(c.prot, c.cur)
		require.Equalf(t, c.want, got, "prot=%v cur=%v", c.prot, c.cur)
	}
}
