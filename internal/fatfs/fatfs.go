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

// Package fatfs is a FAT12/16/32 filesystem driver plugging into the VFS
// contract defined by package vfs: sector I/O through a minimal Disk
// interface, long-file-name (LFN) directory entries, cluster chain
// management, and codepage hooks, the way spec.md §4.6 describes.
//
// It deliberately mirrors package ramfs's shape (a Superblock wrapping a
// vfs.Superblock, an Inode payload reachable from vfs.Vnode.Data, a
// vnodeOps implementing vfs.VnodeOps) so the two drivers read as siblings
// plugging into the same contract.
package fatfs

import (
	"fmt"
	"io/fs"
	"sync"

	"github.com/tinykern/tinykern/internal/clock"
	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/vfs"
)

// Superblock wraps a vfs.Superblock with the mounted FAT volume and the
// vfs_hash of live vnodes, keyed by each inode's full path from the volume
// root (spec.md §3: "stores full path from the volume root (used as a
// stable handle for the vfs hash)").
type Superblock struct {
	SuperblockRef vfs.Superblock

	Vol   *Volume
	Clock clock.Clock

	mu     sync.Mutex
	vnodes map[string]*vfs.Vnode
	nextIno uint64
}

func (sb *Superblock) lookupVnode(path string) *vfs.Vnode {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.vnodes[path]
}

func (sb *Superblock) storeVnode(path string, v *vfs.Vnode) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.vnodes == nil {
		sb.vnodes = make(map[string]*vfs.Vnode)
	}
	sb.vnodes[path] = v
}

func (sb *Superblock) dropVnode(path string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	delete(sb.vnodes, path)
}

func (sb *Superblock) allocIno() uint64 {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.nextIno++
	return sb.nextIno
}

// MountParams is the parm argument fs.Mount expects for "fatfs": the
// backing Disk and, optionally, the Clock used to stamp directory entry
// timestamps and a Codepage override.
type MountParams struct {
	Disk     Disk
	Clock    clock.Clock
	Codepage *Codepage
}

var sbOps = &vnodeOps{}

// Mount reads the boot sector through parm's Disk, validates it, derives
// geometry, and returns a superblock whose root vnode is the FAT volume's
// root directory. It is fs_mount's fatfs.mount callback.
func Mount(source string, flags uint32, parm any) (*vfs.Superblock, error) {
	mp, ok := parm.(MountParams)
	if !ok {
		return nil, fmt.Errorf("fatfs: Mount: parm must be fatfs.MountParams")
	}
	if mp.Disk == nil {
		return nil, fmt.Errorf("fatfs: Mount: MountParams.Disk is required")
	}
	c := clock.Clock(clock.RealClock{})
	if mp.Clock != nil {
		c = mp.Clock
	}
	cp := DefaultCodepage
	if mp.Codepage != nil {
		cp = *mp.Codepage
	}

	vol, err := mountVolume(mp.Disk, flags&vfs.MntRDOnly != 0, cp)
	if err != nil {
		return nil, fmt.Errorf("fatfs: Mount: %w", err)
	}

	sb := &Superblock{Vol: vol, Clock: c}
	sb.SuperblockRef = vfs.Superblock{
		Vdev:  vfs.NextVdev(),
		Flags: flags,
		Ops: vfs.SuperblockOps{
			Statfs:      func(*vfs.Superblock) (vfs.Statfs, error) { return vol.statfs(), nil },
			GetVnode:    func(vsb *vfs.Superblock, ino uint64) (*vfs.Vnode, error) { return nil, errno.New("fatfs.GetVnode", errno.ENOTSUP) },
			DeleteVnode: func(v *vfs.Vnode) error { return deleteVnode(sb, v) },
			Umount:      func(*vfs.Superblock) error { return vol.disk.Sync() },
		},
	}
	vol.sb = sb

	rootIno := sb.allocIno()
	root := vfs.NewVnode(rootIno, fs.ModeDir|0755, sbOps, &sb.SuperblockRef)
	root.Data = &Inode{
		SB:      sb,
		Vnode:   root,
		path:    "/",
		isDir:   true,
		dirObj:  vol.rootDirHandle(),
	}
	sb.SuperblockRef.Root = root
	sb.storeVnode("/", root)

	return &sb.SuperblockRef, nil
}

func deleteVnode(sb *Superblock, v *vfs.Vnode) error {
	in, ok := v.Data.(*Inode)
	if !ok {
		return fmt.Errorf("fatfs: deleteVnode: vnode %d has no fatfs inode", v.Ino)
	}
	sb.dropVnode(in.path)
	return nil
}

// Register installs fatfs into the VFS filesystem registry. Call once at
// boot.
func Register() {
	vfs.Register(&vfs.FileSystem{Name: "fatfs", Mount: Mount})
}
