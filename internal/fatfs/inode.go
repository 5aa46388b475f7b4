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

package fatfs

import (
	"github.com/tinykern/tinykern/internal/vfs"
)

// Inode is the FAT-specific payload attached to a vfs.Vnode's Data field.
// It wraps either a FAT file object or directory object (distinguished by
// isDir) and stores the full path from the volume root, a stable handle
// the vfs layer's vnode cache can key on.
type Inode struct {
	SB    *Superblock
	Vnode *vfs.Vnode

	path  string
	isDir bool

	// dirObj is meaningful when isDir: the cluster chain (or fixed root
	// region) holding this directory's entries.
	dirObj dirLoc

	// For a regular file: its data cluster chain, size, and where its
	// directory entry lives so fsync can rewrite it.
	startCluster uint32
	size         uint32
	attr         byte
	parentLoc    dirLoc
	entrySlot    int // index of the short 8.3 entry within parentLoc

	openCount int

	// sector cache window for this file's data, with a dirty bit. Not
	// yet wired into Read/Write, which go straight through Disk; kept
	// for a follow-up that batches adjacent sector accesses.
	winSector uint32
	winValid  bool
	winDirty  bool
	win       []byte

	// fastSeek is a cluster link-map populated lazily as offsets are
	// touched, so repeat access to a large file doesn't re-walk its FAT
	// chain from the start cluster every time.
	fastSeek []uint32
}

func (in *Inode) clusterForOffset(vol *Volume, offset int64) (uint32, error) {
	clusterBytes := int64(vol.clusterBytes())
	idx := int(offset / clusterBytes)

	if idx < len(in.fastSeek) {
		return in.fastSeek[idx], nil
	}

	cluster := in.startCluster
	start := 0
	if len(in.fastSeek) > 0 {
		cluster = in.fastSeek[len(in.fastSeek)-1]
		start = len(in.fastSeek)
	}
	if start == 0 && cluster == 0 {
		return 0, errEndOfDir
	}
	for i := start; i <= idx; i++ {
		// i == 0 means cluster already holds startCluster itself; every
		// later index requires one more hop along the FAT chain,
		// regardless of where this extension run started.
		if i > 0 {
			next, err := vol.getFATEntry(cluster)
			if err != nil {
				return 0, err
			}
			if next < 2 || isEOC(vol.fatType, next) {
				return 0, errEndOfDir
			}
			cluster = next
		}
		in.fastSeek = append(in.fastSeek, cluster)
	}
	return cluster, nil
}

func (in *Inode) invalidateFastSeek() {
	in.fastSeek = nil
}
