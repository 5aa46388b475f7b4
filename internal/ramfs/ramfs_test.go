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

package ramfs_test

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tinykern/tinykern/internal/clock"
	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/ramfs"
	"github.com/tinykern/tinykern/internal/vfs"
)

type testProc struct {
	cred *vfs.Credential
	root *vfs.Vnode
	cwd  *vfs.Vnode
}

func (p *testProc) Cred() *vfs.Credential      { return p.cred }
func (p *testProc) RootDir() *vfs.Vnode        { return p.root }
func (p *testProc) CwdDir() *vfs.Vnode         { return p.cwd }
func (p *testProc) SetCwdDir(v *vfs.Vnode)     { p.cwd = v }
func (p *testProc) Files() *vfs.FdTable        { return nil }
func (p *testProc) DirVnodeForFd(fd int) (*vfs.Vnode, error) {
	return p.cwd, nil
}

func mountRoot(t *testing.T) (*vfs.Superblock, *testProc) {
	t.Helper()
	sb, err := ramfs.Mount("", 0, clock.Clock(clock.NewFakeClock(time.Unix(0, 0))))
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

// TestS1MkdirRmdir reproduces spec.md S1.
func TestS1MkdirRmdir(t *testing.T) {
	_, p := mountRoot(t)

	_, err := vfs.Mkdir(p, "/a", 0755, -1)
	require.NoError(t, err)
	_, err = vfs.Mkdir(p, "/a/b", 0700, -1)
	require.NoError(t, err)

	err = vfs.Rmdir(p, "/a", -1)
	require.Error(t, err)
	e, ok := errno.Of(err)
	require.True(t, ok)
	require.Equal(t, errno.ENOTEMPTY, e)

	require.NoError(t, vfs.Rmdir(p, "/a/b", -1))
	require.NoError(t, vfs.Rmdir(p, "/a", -1))
}

func TestRootPermissions(t *testing.T) {
	_, p := mountRoot(t)
	st, err := p.root.Ops.Getattr(p.root)
	require.NoError(t, err)
	require.Equal(t, fs.FileMode(0755), st.Mode.Perm())
	require.True(t, st.Mode.IsDir())
}

func TestChmodIdempotent(t *testing.T) {
	_, p := mountRoot(t)
	_, err := vfs.Creat(p, "/f", 0644, -1)
	require.NoError(t, err)

	require.NoError(t, vfs.Chmod(p, "/f", 0600, -1))
	require.NoError(t, vfs.Chmod(p, "/f", 0600, -1))

	v, err := vfs.Namei(p, "/f", -1, 0)
	require.NoError(t, err)
	defer vfs.Vrele(v)
	require.Equal(t, fs.FileMode(0600), v.Mode().Perm())
	require.False(t, v.Mode().IsDir())
}

func TestWriteReadRoundTrip(t *testing.T) {
	_, p := mountRoot(t)
	v, err := vfs.Creat(p, "/f", 0644, -1)
	require.NoError(t, err)
	defer vfs.Vrele(v)

	n, err := v.Ops.Write(v, 0, []byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, 11, n)

	buf := make([]byte, 11)
	n, err = v.Ops.Read(v, 0, buf)
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.Equal(t, "hello world", string(buf))
}

// TestGrowTruncate reproduces spec.md §8 #7.
func TestGrowTruncate(t *testing.T) {
	_, p := mountRoot(t)
	v, err := vfs.Creat(p, "/f", 0644, -1)
	require.NoError(t, err)
	defer vfs.Vrele(v)

	_, err = v.Ops.Write(v, 0, make([]byte, ramfs.BlockSize*3))
	require.NoError(t, err)

	require.NoError(t, v.Ops.Truncate(v, 0))
	require.EqualValues(t, 0, v.Size())
}
