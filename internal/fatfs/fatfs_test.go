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

package fatfs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tinykern/tinykern/internal/clock"
	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/fatfs"
	"github.com/tinykern/tinykern/internal/vfs"
)

type testProc struct {
	cred *vfs.Credential
	root *vfs.Vnode
	cwd  *vfs.Vnode
}

func (p *testProc) Cred() *vfs.Credential  { return p.cred }
func (p *testProc) RootDir() *vfs.Vnode    { return p.root }
func (p *testProc) CwdDir() *vfs.Vnode     { return p.cwd }
func (p *testProc) SetCwdDir(v *vfs.Vnode) { p.cwd = v }
func (p *testProc) Files() *vfs.FdTable    { return nil }
func (p *testProc) DirVnodeForFd(fd int) (*vfs.Vnode, error) {
	return p.cwd, nil
}

// mountFAT formats a small in-memory disk (Format derives the FAT width
// from the resulting cluster count, the same rule mountVolume itself
// applies, so a disk this size comes back as FAT12) and mounts it,
// returning the superblock and a root-privileged test process.
func mountFAT(t *testing.T) (*vfs.Superblock, *testProc) {
	t.Helper()
	disk := fatfs.NewMemDisk(8192, 512)
	require.NoError(t, fatfs.Format(disk, fatfs.FormatOptions{}))

	sb, err := fatfs.Mount("", 0, fatfs.MountParams{
		Disk:  disk,
		Clock: clock.Clock(clock.NewFakeClock(time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC))),
	})
	require.NoError(t, err)

	root := sb.Root
	require.NoError(t, vfs.Vref(root))
	p := &testProc{
		cred: &vfs.Credential{Uid: 0, Gid: 0, Privileges: map[vfs.Privilege]bool{vfs.PrivVFSWrite: true}},
		root: root,
		cwd:  root,
	}
	return sb, p
}

func TestMountAndRootAttrs(t *testing.T) {
	_, p := mountFAT(t)
	st, err := p.root.Ops.Getattr(p.root)
	require.NoError(t, err)
	require.True(t, st.Mode.IsDir())
}

func TestWriteReadRoundTrip(t *testing.T) {
	_, p := mountFAT(t)
	v, err := vfs.Creat(p, "/hello.txt", 0644, -1)
	require.NoError(t, err)
	defer vfs.Vrele(v)

	n, err := v.Ops.Write(v, 0, []byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.EqualValues(t, 11, v.Size())

	buf := make([]byte, 11)
	n, err = v.Ops.Read(v, 0, buf)
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.Equal(t, "hello world", string(buf))
}

func TestWriteAcrossClusterBoundary(t *testing.T) {
	_, p := mountFAT(t)
	v, err := vfs.Creat(p, "/big.bin", 0644, -1)
	require.NoError(t, err)
	defer vfs.Vrele(v)

	data := make([]byte, 512*8*3+17) // spans several 4 KiB clusters
	for i := range data {
		data[i] = byte(i)
	}
	n, err := v.Ops.Write(v, 0, data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	buf := make([]byte, len(data))
	n, err = v.Ops.Read(v, 0, buf)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)
}

func TestMkdirRmdir(t *testing.T) {
	_, p := mountFAT(t)
	dir, err := vfs.Mkdir(p, "/sub", 0755, -1)
	require.NoError(t, err)
	defer vfs.Vrele(dir)

	v, err := vfs.Creat(p, "/sub/inner.txt", 0644, -1)
	require.NoError(t, err)
	require.NoError(t, vfs.Vrele(v))

	err = vfs.Rmdir(p, "/sub", -1)
	require.Error(t, err)
	e, ok := errno.Of(err)
	require.True(t, ok)
	require.Equal(t, errno.ENOTEMPTY, e)

	require.NoError(t, vfs.Unlink(p, "/sub/inner.txt", -1))
	require.NoError(t, vfs.Rmdir(p, "/sub", -1))
}

// TestLongFileNameShortNameAndRDO reproduces spec.md §8 S6: a long-filename
// create gets a tilde-numbered 8.3 short name, and setting the read-only
// attribute via chmod makes a subsequent write fail with EPERM.
func TestLongFileNameShortNameAndRDO(t *testing.T) {
	_, p := mountFAT(t)

	v, err := vfs.Creat(p, "/Long File Name.txt", 0644, -1)
	require.NoError(t, err)
	defer vfs.Vrele(v)

	ents, err := p.root.Ops.Readdir(p.root)
	require.NoError(t, err)
	require.Len(t, ents, 1)
	require.Equal(t, "Long File Name.txt", ents[0].Name)
	require.Equal(t, "LONGFI~1.TXT", ents[0].ShortName)

	v2, err := vfs.Namei(p, "/Long File Name.txt", -1, 0)
	require.NoError(t, err)
	defer vfs.Vrele(v2)
	require.Equal(t, v.Ino, v2.Ino)

	require.NoError(t, vfs.Chmod(p, "/Long File Name.txt", 0444, -1))

	_, err = v.Ops.Write(v, 0, []byte("x"))
	require.Error(t, err)
	e, ok := errno.Of(err)
	require.True(t, ok)
	require.Equal(t, errno.EPERM, e)
}

func TestRename(t *testing.T) {
	_, p := mountFAT(t)
	v, err := vfs.Creat(p, "/a.txt", 0644, -1)
	require.NoError(t, err)
	_, err = v.Ops.Write(v, 0, []byte("data"))
	require.NoError(t, err)
	require.NoError(t, vfs.Vrele(v))

	parent := p.root
	require.NoError(t, parent.Ops.Rename(parent, "a.txt", parent, "b.txt"))

	_, err = vfs.Namei(p, "/a.txt", -1, 0)
	require.Error(t, err)

	v2, err := vfs.Namei(p, "/b.txt", -1, 0)
	require.NoError(t, err)
	defer vfs.Vrele(v2)

	buf := make([]byte, 4)
	n, err := v2.Ops.Read(v2, 0, buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "data", string(buf))
}

func TestTruncateGrowShrink(t *testing.T) {
	_, p := mountFAT(t)
	v, err := vfs.Creat(p, "/t.bin", 0644, -1)
	require.NoError(t, err)
	defer vfs.Vrele(v)

	require.NoError(t, v.Ops.Truncate(v, 4096*3))
	require.EqualValues(t, 4096*3, v.Size())

	require.NoError(t, v.Ops.Truncate(v, 10))
	require.EqualValues(t, 10, v.Size())

	require.NoError(t, v.Ops.Truncate(v, 0))
	require.EqualValues(t, 0, v.Size())
}
