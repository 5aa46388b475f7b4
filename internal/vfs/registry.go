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

// Package vfs is the virtual file system core: file-system registration,
// mountpoint stacking, name resolution, vnode reference counting, the
// per-process file-descriptor table, permission checks, and the
// open/create/link/unlink/mkdir/rmdir/chmod/chflags/chown syscalls.
//
// Concrete drivers (ramfs, the FAT driver) register themselves here; VFS
// itself knows nothing about any one filesystem's on-disk format.
package vfs

import (
	"fmt"
	"sync"
)

// MountCallback is invoked by Mount once the named filesystem has been
// located. It returns a fresh superblock with a populated root vnode.
type MountCallback func(source string, flags uint32, parm any) (*Superblock, error)

// FileSystem is a registered filesystem driver, the Go stand-in for the
// link-set-registered `struct fs` of the source kernel.
type FileSystem struct {
	Name  string
	Mount MountCallback
}

// registry is the global, mutex-guarded filesystem registry (spec.md
// calls it "a global singly linked list under a spin lock"; a slice
// behind a mutex is the idiomatic Go rendition of the same inventory
// pattern spec.md §9 describes — no ecosystem plugin-registry library in
// the retrieved corpus improves on "each subsystem exposes a
// registration function and modules call it at init").
var (
	registryMu sync.Mutex
	registry   []*FileSystem
)

// Register adds fs to the registry. It is idempotent within a name: a
// second registration under the same name is a silent no-op, mirroring
// fs_register's documented idempotence.
func Register(fs *FileSystem) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, existing := range registry {
		if existing.Name == fs.Name {
			return
		}
	}
	registry = append(registry, fs)
}

// Lookup returns the registered filesystem named name, or nil.
func Lookup(name string) *FileSystem {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, fs := range registry {
		if fs.Name == name {
			return fs
		}
	}
	return nil
}

// Iterator is a cursor over the registry, the Go rendition of
// fs_iterate.
type Iterator struct {
	idx int
}

// NewIterator returns an iterator positioned before the first
// registered filesystem.
func NewIterator() *Iterator { return &Iterator{idx: 0} }

// Next returns the next registered filesystem, or nil when exhausted.
func (it *Iterator) Next() *FileSystem {
	registryMu.Lock()
	defer registryMu.Unlock()
	if it.idx >= len(registry) {
		return nil
	}
	fs := registry[it.idx]
	it.idx++
	return fs
}

// Mount locates the named filesystem, invokes its Mount callback, and
// links the resulting root vnode onto target as the new top of the mount
// stack. It is fs_mount.
func Mount(target *Vnode, source, fsname string, flags uint32, parm any) (*Superblock, error) {
	fs := Lookup(fsname)
	if fs == nil {
		return nil, fmt.Errorf("vfs: Mount: unknown filesystem %q", fsname)
	}

	sb, err := fs.Mount(source, flags, parm)
	if err != nil {
		return nil, fmt.Errorf("vfs: Mount: %w", err)
	}

	target.lockVnode()
	sb.Root.lockVnode()

	target.nextMountpoint = sb.Root
	sb.Root.prevMountpoint = target
	sb.Root.nextMountpoint = sb.Root
	sb.MountedOn = target

	sb.Root.unlockVnode()
	target.unlockVnode()

	return sb, nil
}

// Unmount reverses Mount under vnode locks; it refuses when root equals
// its own prev mountpoint (i.e. attempting to unmount the root
// filesystem). It is fs_umount.
func Unmount(sb *Superblock) error {
	root := sb.Root
	root.lockVnode()
	target := root.prevMountpoint
	if target == root {
		root.unlockVnode()
		return fmt.Errorf("vfs: Unmount: cannot unmount the root filesystem")
	}
	root.unlockVnode()

	if sb.Ops.Umount != nil {
		if err := sb.Ops.Umount(sb); err != nil {
			return fmt.Errorf("vfs: Unmount: %w", err)
		}
	}

	target.lockVnode()
	target.nextMountpoint = target
	target.unlockVnode()

	root.lockVnode()
	root.prevMountpoint = root
	root.unlockVnode()

	return nil
}

// GetTopVnode follows NextMountpoint to reach the topmost mounted root
// above v, used while descending during lookup.
func GetTopVnode(v *Vnode) *Vnode {
	for {
		v.lockVnode()
		next := v.nextMountpoint
		v.unlockVnode()
		if next == v {
			return v
		}
		v = next
	}
}

// GetBaseVnode follows PrevMountpoint to escape upward through mount
// points, used when ".." walks off the top of a mounted filesystem.
func GetBaseVnode(v *Vnode) *Vnode {
	v.lockVnode()
	prev := v.prevMountpoint
	v.unlockVnode()
	return prev
}
