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
	"io/fs"
	"sync"
	"sync/atomic"

	"github.com/tinykern/tinykern/internal/errno"
)

// VnodeOps is the polymorphic operations table every filesystem driver
// (ramfs, fatfs) implements. It plays the role the source kernel gives
// `vnode_ops`, and is how this package stays ignorant of any one
// filesystem's on-disk format — the "trait-object downcasing behind a
// private ops table" option spec.md §9 calls out.
type VnodeOps interface {
	Lookup(parent *Vnode, name string) (*Vnode, error)
	Create(parent *Vnode, name string, mode fs.FileMode) (*Vnode, error)
	Mkdir(parent *Vnode, name string, mode fs.FileMode) (*Vnode, error)
	Rmdir(parent *Vnode, name string) error
	Unlink(parent *Vnode, name string) error
	Link(parent *Vnode, name string, target *Vnode) error
	Rename(oldParent *Vnode, oldName string, newParent *Vnode, newName string) error
	Readdir(dir *Vnode) ([]Dirent, error)
	Read(v *Vnode, offset int64, p []byte) (int, error)
	Write(v *Vnode, offset int64, p []byte) (int, error)
	Truncate(v *Vnode, size int64) error
	Chmod(v *Vnode, mode fs.FileMode) error
	Chown(v *Vnode, uid, gid uint32) error
	Chflags(v *Vnode, flags uint32) error
	Getattr(v *Vnode) (Stat, error)
}

// Dirent is a single (name, inode, type) directory entry, the uniform
// rendition of both ramfs's hash-table entries and a FAT directory row.
type Dirent struct {
	Name  string
	Ino   uint64
	Type  fs.FileMode // type bits only (ModeDir, 0 for regular, ModeSymlink, ...)

	// ShortName is the FAT 8.3 short name backing Name when Name required
	// an LFN (spec.md §8 S6's FILINFO.fname equivalent); empty for
	// filesystems without a short/long name split, such as ramfs, and
	// for FAT entries whose Name already fits 8.3 unchanged.
	ShortName string
}

// Stat is the subset of stat(2) fields VFS and its callers need.
type Stat struct {
	Ino   uint64
	Mode  fs.FileMode
	Size  int64
	Nlink uint32
	Uid   uint32
	Gid   uint32
}

// Vnode is the abstract filesystem-level handle spec.md §3 describes.
type Vnode struct {
	Ino  uint64
	mode fs.FileMode // guarded by mu; file-type + permission bits

	sizeMu sync.RWMutex
	size   int64

	refcount int64 // atomic; vref fails when <= 0

	Ops VnodeOps
	SB  *Superblock

	mu sync.Mutex

	// Data is the filesystem-specific payload (a *ramfs.Inode, *fatfs.Inode,
	// ...). VFS never interprets it; only the owning driver's VnodeOps do.
	Data any

	// prevMountpoint == self means "nothing mounted below me";
	// nextMountpoint == self means "nothing mounted above me".
	prevMountpoint *Vnode
	nextMountpoint *Vnode
}

// NewVnode constructs a vnode with refcount 1 and both mountpoint links
// pointing at itself (the "nothing mounted" state).
func NewVnode(ino uint64, mode fs.FileMode, ops VnodeOps, sb *Superblock) *Vnode {
	v := &Vnode{
		Ino:      ino,
		mode:     mode,
		refcount: 1,
		Ops:      ops,
		SB:       sb,
	}
	v.prevMountpoint = v
	v.nextMountpoint = v
	return v
}

func (v *Vnode) lockVnode()   { v.mu.Lock() }
func (v *Vnode) unlockVnode() { v.mu.Unlock() }

// Mode returns the vnode's file-type + permission bits.
func (v *Vnode) Mode() fs.FileMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// SetMode replaces the vnode's file-type + permission bits, preserving
// the file-type bits already set on v (chmod(f,m) is idempotent modulo
// the type bits, per spec.md §8 #5).
func (v *Vnode) SetMode(m fs.FileMode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = (v.mode & fs.ModeType) | (m &^ fs.ModeType)
}

// Size returns the vnode's current length.
func (v *Vnode) Size() int64 {
	v.sizeMu.RLock()
	defer v.sizeMu.RUnlock()
	return v.size
}

// SetSize updates the vnode's cached length (the driver is responsible
// for actually growing/shrinking backing storage).
func (v *Vnode) SetSize(n int64) {
	v.sizeMu.Lock()
	defer v.sizeMu.Unlock()
	v.size = n
}

// IsDir reports whether v names a directory.
func (v *Vnode) IsDir() bool { return v.Mode().IsDir() }

// Vref increments v's reference count. It fails if the prior count was
// <= 0 (the vnode is already being freed).
func Vref(v *Vnode) error {
	for {
		cur := atomic.LoadInt64(&v.refcount)
		if cur <= 0 {
			return fmt.Errorf("vfs: Vref: vnode %d is being freed", v.Ino)
		}
		if atomic.CompareAndSwapInt64(&v.refcount, cur, cur+1) {
			return nil
		}
	}
}

// Vrele decrements v's reference count; at 1 (dropping to 0) it invokes
// the owning superblock's DeleteVnode.
func Vrele(v *Vnode) error {
	newVal := atomic.AddInt64(&v.refcount, -1)
	if newVal > 0 {
		return nil
	}
	if newVal < 0 {
		return nil
	}
	if v.SB != nil && v.SB.Ops.DeleteVnode != nil {
		return v.SB.Ops.DeleteVnode(v)
	}
	return nil
}

// VreleNunlink decrements the refcount without ever triggering deletion,
// for use while the caller still holds other references elsewhere (it
// relies on those other references to eventually drive the count to the
// real zero).
func VreleNunlink(v *Vnode) {
	for {
		cur := atomic.LoadInt64(&v.refcount)
		if cur <= 1 {
			return
		}
		if atomic.CompareAndSwapInt64(&v.refcount, cur, cur-1) {
			return
		}
	}
}

// Vput is Vrele on an already-locked vnode: it releases the lock first.
func Vput(v *Vnode) error {
	v.unlockVnode()
	return Vrele(v)
}

// Refcount returns v's current reference count, for invariant checks and
// tests (spec.md §8 #1: for all reachable vnodes, refcount > 0).
func (v *Vnode) Refcount() int64 { return atomic.LoadInt64(&v.refcount) }

// AccessMode is the R/W/X permission-check mode chkperm operates on.
type AccessMode uint8

const (
	AccessRead AccessMode = 1 << iota
	AccessWrite
	AccessExec
)

// Credential is the minimal rendition of a process's real/effective
// uid/gid and supplementary groups that chkperm needs.
type Credential struct {
	Uid, Gid   uint32
	Groups     []uint32
	Privileges map[Privilege]bool
}

// Privilege is one of the named capability-like gates spec.md's
// operations require (PROC_FORK, VFS_CHROOT, SYSCTL_WRITE, ...).
type Privilege string

const (
	PrivVFSRead    Privilege = "vfs.read"
	PrivVFSWrite   Privilege = "vfs.write"
	PrivVFSExec    Privilege = "vfs.exec"
	PrivVFSChroot  Privilege = "vfs.chroot"
	PrivSysFlags   Privilege = "vfs.sysflags"
	PrivProcFork   Privilege = "proc.fork"
	PrivSetlogin   Privilege = "proc.setlogin"
	PrivSetrlimit  Privilege = "proc.setrlimit"
	PrivSysctlWrite Privilege = "sysctl.write"
)

// Has reports whether the credential holds priv.
func (c *Credential) Has(priv Privilege) bool {
	if c == nil || c.Privileges == nil {
		return false
	}
	return c.Privileges[priv]
}

// inGroup reports whether gid is c's egid or among its supplementary
// groups.
func (c *Credential) inGroup(gid uint32) bool {
	if c.Gid == gid {
		return true
	}
	for _, g := range c.Groups {
		if g == gid {
			return true
		}
	}
	return false
}

// Chkperm computes the required permission mask by choosing
// owner/group/other based on whether the credential's euid/egid match
// the stat, always OR'ing in OTHER, and additionally requiring X on
// directories. If the mode bits don't satisfy the mask, the matching VFS
// privilege is checked as a fallback before denying with EACCES.
func Chkperm(st Stat, cred *Credential, mode AccessMode) error {
	if st.Mode.IsDir() {
		mode |= AccessExec
	}

	var have fs.FileMode
	switch {
	case cred.Uid == st.Uid:
		have = (st.Mode >> 6) & 7 << 6
	case cred.inGroup(st.Gid):
		have = (st.Mode >> 3) & 7 << 3
	default:
		have = st.Mode & 7
	}
	have |= st.Mode & 7 // OTHER bits always OR'd in

	satisfied := true
	if mode&AccessRead != 0 && have&0444 == 0 {
		satisfied = false
	}
	if mode&AccessWrite != 0 && have&0222 == 0 {
		satisfied = false
	}
	if mode&AccessExec != 0 && have&0111 == 0 {
		satisfied = false
	}
	if satisfied {
		return nil
	}

	var needed Privilege
	switch {
	case mode&AccessWrite != 0:
		needed = PrivVFSWrite
	case mode&AccessExec != 0:
		needed = PrivVFSExec
	default:
		needed = PrivVFSRead
	}
	if cred.Has(needed) {
		return nil
	}
	return errno.New("chkperm", errno.EACCES)
}
