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

package vfs

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tinykern/tinykern/internal/errno"
)

// Open-flag bits this kernel's fd table itself interprets (the rest pass
// through to the driver uninterpreted).
const (
	OCloexec       uint32 = 1 << 0
	OExecAltPCap   uint32 = 1 << 1
	OKFreeable     uint32 = 1 << 2
)

// File is a per-open-instance file descriptor entry.
type File struct {
	mu     sync.Mutex
	Vnode  *Vnode
	Flags  uint32
	Offset int64

	refcount int32
}

// NewFile wraps v in a File with refcount 1. The caller's Vref on v must
// already have succeeded; Close releases it.
func NewFile(v *Vnode, flags uint32) *File {
	return &File{Vnode: v, Flags: flags, refcount: 1}
}

// Close releases the file's reference on its vnode once its own refcount
// drops to zero.
func (f *File) Close() error {
	f.mu.Lock()
	f.refcount--
	done := f.refcount <= 0
	f.mu.Unlock()
	if !done {
		return nil
	}
	return Vrele(f.Vnode)
}

// FdTable is a process's per-process array of open file descriptors plus
// its umask, sized from RLIMIT_NOFILE at construction.
type FdTable struct {
	mu    sync.Mutex
	files []*File
	Umask uint32
}

// NewFdTable allocates a table sized for `limit` descriptors.
func NewFdTable(limit int) *FdTable {
	return &FdTable{files: make([]*File, limit)}
}

// NextFree scans for the first free slot at or after start
// (fs_fildes_curproc_next).
func (t *FdTable) NextFree(start int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := start; i < len(t.files); i++ {
		if t.files[i] == nil {
			return i
		}
	}
	return -1
}

// Install places f into fd, growing a dense slot reservation made by a
// prior NextFree call into a live entry.
func (t *FdTable) Install(fd int, f *File) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.files) {
		return errno.New("fd.Install", errno.EMFILE)
	}
	t.files[fd] = f
	return nil
}

// Get validates fd and returns its File, or nil.
func (t *FdTable) Get(fd int) *File {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.files) {
		return nil
	}
	return t.files[fd]
}

// Ref adjusts the refcount on the file at fd by delta, clamped so that
// decrements past zero empty the slot, and returns a usable pointer (nil
// if the slot ends up empty). It is fs_fildes_ref.
func (t *FdTable) Ref(fd int, delta int32) *File {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.files) || t.files[fd] == nil {
		return nil
	}
	f := t.files[fd]
	f.mu.Lock()
	f.refcount += delta
	empty := f.refcount <= 0
	f.mu.Unlock()
	if empty {
		t.files[fd] = nil
		return nil
	}
	return f
}

// CloseAll closes descriptors from `from` through the end of the table
// (fs_fildes_close_all). The closes fan out on an errgroup since each
// descriptor's Close only touches its own File and vnode refcount; the
// first failure is reported but every descriptor is still closed.
func (t *FdTable) CloseAll(from int) error {
	t.mu.Lock()
	files := make([]*File, len(t.files))
	copy(files, t.files)
	for i := from; i < len(t.files); i++ {
		t.files[i] = nil
	}
	t.mu.Unlock()

	var g errgroup.Group
	for i := from; i < len(files); i++ {
		f := files[i]
		if f == nil {
			continue
		}
		g.Go(f.Close)
	}
	return g.Wait()
}

// CloseExec closes every descriptor flagged OCloexec (fs_fildes_close_exec).
func (t *FdTable) CloseExec() {
	t.mu.Lock()
	var toClose []*File
	for i, f := range t.files {
		if f != nil && f.Flags&OCloexec != 0 {
			toClose = append(toClose, f)
			t.files[i] = nil
		}
	}
	t.mu.Unlock()

	for _, f := range toClose {
		_ = f.Close()
	}
}

// ErrBadFd is the standard "no such open file descriptor" error returned
// by DirVnodeForFd implementations.
func ErrBadFd(fd int) error {
	return errno.New(fmt.Sprintf("fd %d", fd), errno.EBADF)
}

// ProcCtx is the minimal view of a process VFS syscalls need. proc.Process
// implements this; defining it here (rather than importing package proc)
// avoids a vfs<->proc import cycle while keeping namei/the *_syscalls
// generic over "whatever called in".
type ProcCtx interface {
	Cred() *Credential
	RootDir() *Vnode
	CwdDir() *Vnode
	SetCwdDir(*Vnode)
	Files() *FdTable
	DirVnodeForFd(fd int) (*Vnode, error)
}
