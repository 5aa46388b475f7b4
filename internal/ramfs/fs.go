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

package ramfs

import (
	"fmt"
	"hash/maphash"
	"io/fs"
	"sync"

	"github.com/tinykern/tinykern/internal/clock"
	"github.com/tinykern/tinykern/internal/vfs"
)

// Superblock wraps a vfs.Superblock with ramfs's own inode pool. Vnodes
// are kept in a map keyed directly by inode number; the seeded
// hash/maphash value hashIno computes is not used for the lookup.
type Superblock struct {
	SuperblockRef vfs.Superblock

	Clock clock.Clock

	mu       sync.Mutex
	nextInoN uint64
	seed     maphash.Seed

	// vnodes is the vfs_hash context: ino -> live vnode.
	vnodes map[uint64]*vfs.Vnode
}

func (sb *Superblock) nextIno() uint64 {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.nextInoN++
	return sb.nextInoN
}

// hashIno returns a 32-bit hash of the inode number, computed with
// hash/maphash (not half-siphash) under the superblock's seed.
func (sb *Superblock) hashIno(ino uint64) uint32 {
	var h maphash.Hash
	h.SetSeed(sb.seed)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(ino >> (8 * i))
	}
	h.Write(buf[:])
	return uint32(h.Sum64())
}

func (sb *Superblock) storeVnode(v *vfs.Vnode) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.vnodes == nil {
		sb.vnodes = make(map[uint64]*vfs.Vnode)
	}
	sb.vnodes[v.Ino] = v
}

func (sb *Superblock) lookupVnode(ino uint64) *vfs.Vnode {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.vnodes[ino]
}

func (sb *Superblock) dropVnode(ino uint64) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	delete(sb.vnodes, ino)
}

var sbOps = &vnodeOps{}

// Mount creates a fresh ramfs superblock with a root directory inode
// wired with "." and ".." as hard links to itself, permissions
// rwxr-xr-x.
func Mount(source string, flags uint32, parm any) (*vfs.Superblock, error) {
	c := clock.Clock(clock.RealClock{})
	if cc, ok := parm.(clock.Clock); ok {
		c = cc
	}

	sb := &Superblock{Clock: c, seed: maphash.MakeSeed()}
	sb.SuperblockRef = vfs.Superblock{
		Vdev:  vfs.NextVdev(),
		Flags: flags,
		Ops: vfs.SuperblockOps{
			Statfs:      statfs,
			GetVnode:    func(vsb *vfs.Superblock, ino uint64) (*vfs.Vnode, error) { return sb.lookupVnode(ino), nil },
			DeleteVnode: deleteVnode,
			Umount:      func(vsb *vfs.Superblock) error { return nil },
		},
	}

	root := newInode(sb, fs.ModeDir|0755)
	root.dir["."] = vfs.Dirent{Name: ".", Ino: root.Vnode.Ino, Type: fs.ModeDir}
	root.dir[".."] = vfs.Dirent{Name: "..", Ino: root.Vnode.Ino, Type: fs.ModeDir}
	root.nlink = 2

	sb.SuperblockRef.Root = root.Vnode
	return &sb.SuperblockRef, nil
}

func statfs(sb *vfs.Superblock) (vfs.Statfs, error) {
	return vfs.Statfs{BlockSize: BlockSize}, nil
}

func deleteVnode(v *vfs.Vnode) error {
	in, ok := v.Data.(*Inode)
	if !ok {
		return fmt.Errorf("ramfs: deleteVnode: vnode %d has no ramfs inode", v.Ino)
	}
	in.SB.dropVnode(v.Ino)
	return nil
}

// Register installs ramfs into the VFS filesystem registry. Call once at
// boot.
func Register() {
	vfs.Register(&vfs.FileSystem{Name: "ramfs", Mount: Mount})
}
