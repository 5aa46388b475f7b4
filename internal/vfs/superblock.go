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

import "sync/atomic"

// Mount flags.
const (
	MntRDOnly  uint32 = 1 << 0
	MntNoAtime uint32 = 1 << 1
)

// Statfs is the filesystem-level statistics a superblock reports.
type Statfs struct {
	BlockSize  uint32
	Blocks     uint64
	BlocksFree uint64
	Files      uint64
	FilesFree  uint64
}

// SuperblockOps is the per-mounted-filesystem-instance operations table.
type SuperblockOps struct {
	Statfs      func(sb *Superblock) (Statfs, error)
	GetVnode    func(sb *Superblock, ino uint64) (*Vnode, error)
	DeleteVnode func(v *Vnode) error
	Umount      func(sb *Superblock) error
}

// Superblock is a mounted filesystem instance, the Go rendition of
// spec.md §3's superblock.
type Superblock struct {
	FS    *FileSystem
	Vdev  uint64
	Flags uint32
	Root  *Vnode

	// MountedOn is the vnode in the parent filesystem this superblock is
	// mounted on top of (nil for the root filesystem).
	MountedOn *Vnode

	Ops SuperblockOps

	HashSeed uint64
}

// vdevCounter hands out monotonically increasing virtual device ids to
// newly mounted superblocks.
var vdevCounter atomic.Uint64

// NextVdev returns the next virtual device id.
func NextVdev() uint64 {
	return vdevCounter.Add(1)
}
