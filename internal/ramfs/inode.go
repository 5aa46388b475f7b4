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

// Package ramfs is an in-memory filesystem driver plugging into the VFS
// contract defined by package vfs.
package ramfs

import (
	"io/fs"
	"sync"
	"time"

	"github.com/tinykern/tinykern/internal/clock"
	"github.com/tinykern/tinykern/internal/vfs"
)

// BlockSize is the fixed size of each data block a regular file's
// content is stored in.
const BlockSize = 4096

// Inode is the ramfs-specific payload attached to a vfs.Vnode's Data
// field (the Go stand-in for container_of-recovering an outer inode from
// an embedded vnode).
type Inode struct {
	mu sync.RWMutex

	Vnode *vfs.Vnode
	SB    *Superblock

	nlink uint32
	uid   uint32
	gid   uint32

	atime, mtime, ctime, birth time.Time

	// dir is non-nil for directories: name -> (ino, type).
	dir map[string]vfs.Dirent

	// blocks is non-nil for regular files: a slice of fixed-size data
	// blocks. The valid length of the file is Vnode.Size(); trailing
	// bytes of the last block beyond that length are unused padding.
	blocks [][]byte
}

func now(c clock.Clock) time.Time { return c.Now() }

// newInode allocates an inode and registers it in sb's pool, assigning
// the next sequential inode number.
func newInode(sb *Superblock, mode fs.FileMode) *Inode {
	ino := sb.nextIno()
	t := now(sb.Clock)

	in := &Inode{
		SB:    sb,
		nlink: 1,
		atime: t, mtime: t, ctime: t, birth: t,
	}
	if mode.IsDir() {
		in.dir = make(map[string]vfs.Dirent)
	} else {
		in.blocks = make([][]byte, 0)
	}

	v := vfs.NewVnode(ino, mode, sbOps, &sb.SuperblockRef)
	v.Data = in
	in.Vnode = v

	sb.storeVnode(v)
	return in
}

// touchAtime updates the access timestamp unless the superblock has
// MntNoAtime set.
func (in *Inode) touchAtime() {
	if in.SB.SuperblockRef.Flags&vfs.MntNoAtime != 0 {
		return
	}
	in.mu.Lock()
	in.atime = now(in.SB.Clock)
	in.mu.Unlock()
}

func (in *Inode) touchMtime() {
	in.mu.Lock()
	t := now(in.SB.Clock)
	in.mtime = t
	in.ctime = t
	in.mu.Unlock()
}

func (in *Inode) touchCtime() {
	in.mu.Lock()
	in.ctime = now(in.SB.Clock)
	in.mu.Unlock()
}
