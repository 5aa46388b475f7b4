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

package proc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinykern/tinykern/internal/proc"
)

// TestS3ForkWaitStatus reproduces spec.md S3: a forked child that exits
// normally reports its exit code shifted into the high byte of the wait
// status, and is reaped out of the parent's child list.
func TestS3ForkWaitStatus(t *testing.T) {
	table := proc.NewTable()
	init, err := table.Create(nil)
	require.NoError(t, err)
	require.Equal(t, int32(proc.InitPid), init.ID)

	child, err := table.Fork(init)
	require.NoError(t, err)
	require.NotEqual(t, init.ID, child.ID)

	table.Exit(child, 7, nil)

	reaped, err := table.Wait(init, -1, proc.WaitOptions{})
	require.NoError(t, err)
	require.Equal(t, child.ID, reaped.ID)
	require.Equal(t, 7<<8, proc.EncodeStatus(reaped.ExitCode, reaped.ExitSiginfo))

	_, err = table.Wait(init, -1, proc.WaitOptions{})
	require.Error(t, err)
}

func TestWaitNoHangReturnsNilWithoutZombie(t *testing.T) {
	table := proc.NewTable()
	init, err := table.Create(nil)
	require.NoError(t, err)

	_, err = table.Fork(init)
	require.NoError(t, err)

	p, err := table.Wait(init, -1, proc.WaitOptions{NoHang: true})
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestWaitRejectsUnsupportedPidForms(t *testing.T) {
	table := proc.NewTable()
	init, err := table.Create(nil)
	require.NoError(t, err)

	_, err = table.Wait(init, 0, proc.WaitOptions{})
	require.Error(t, err)
	_, err = table.Wait(init, -5, proc.WaitOptions{})
	require.Error(t, err)
}

// TestOrphanReparenting reproduces the orphan-adoption rule: a
// grandchild whose parent exits first is handed to pid 1.
func TestOrphanReparenting(t *testing.T) {
	table := proc.NewTable()
	init, err := table.Create(nil)
	require.NoError(t, err)

	mid, err := table.Fork(init)
	require.NoError(t, err)
	grandchild, err := table.Fork(mid)
	require.NoError(t, err)

	table.Exit(mid, 0, nil)
	_, err = table.Wait(init, mid.ID, proc.WaitOptions{})
	require.NoError(t, err)

	require.Equal(t, init, grandchild.Parent)
}

func TestEncodeStatusSignalExit(t *testing.T) {
	status := proc.EncodeStatus(0, &proc.Siginfo{Signal: proc.SigSegv, CoreDump: true})
	require.Equal(t, proc.SigSegv|0x80, status)
}
