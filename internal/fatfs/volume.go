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
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/tinykern/tinykern/internal/vfs"
)

// Volume is the mounted FAT filesystem's geometry and FAT-table access,
// spec.md §3's "FAT volume ... holds a boot-sector cache window,
// cluster/sector arithmetic constants, a codepage pointer, and a mutex
// used as the big volume lock".
type Volume struct {
	// lockFS serialises every operation that touches the FAT table or a
	// directory region, spec.md §5's "per-volume mutex (lock_fs)".
	lockFS sync.Mutex

	disk     Disk
	readOnly bool
	cp       Codepage

	sb *Superblock

	bytsPerSec uint16
	secPerClus uint8
	rsvdSecCnt uint16
	numFATs    uint8
	rootEntCnt uint16
	totSec     uint32
	fatSz      uint32
	fatType    FatType
	rootClus   uint32 // FAT32 only

	firstFATSector     uint32
	firstRootDirSector uint32 // FAT12/16 only
	firstDataSector    uint32
	rootDirSectors     uint32
	clusterCount       uint32

	// fsInfo* mirror the FSINFO sector's free-cluster and
	// last-allocated-cluster hints (FAT32 only); createChain/removeChain
	// update them and write them back through flushFSInfo on every call.
	fsInfoSector     uint32
	freeClusterCount uint32
	lastAllocCluster uint32

	allocHint uint32
}

func (v *Volume) clusterBytes() uint32 {
	return uint32(v.bytsPerSec) * uint32(v.secPerClus)
}

func (v *Volume) clusterToSector(cluster uint32) uint32 {
	return v.firstDataSector + (cluster-2)*uint32(v.secPerClus)
}

// dirLoc names where a directory's entries live: either the fixed FAT12/16
// root region, or a cluster chain (every subdirectory, and the FAT32 root).
type dirLoc struct {
	fixedRoot    bool
	startCluster uint32
}

func (v *Volume) rootDirHandle() dirLoc {
	if v.fatType == FAT32 {
		return dirLoc{startCluster: v.rootClus}
	}
	return dirLoc{fixedRoot: true}
}

func mountVolume(disk Disk, readOnly bool, cp Codepage) (*Volume, error) {
	buf := make([]byte, bootSectorSize)
	if err := disk.ReadSector(0, buf); err != nil {
		return nil, fmt.Errorf("read boot sector: %w", err)
	}
	p, err := parseBootSector(buf)
	if err != nil {
		return nil, err
	}

	v := &Volume{
		disk:       disk,
		readOnly:   readOnly,
		cp:         cp,
		bytsPerSec: p.bytsPerSec,
		secPerClus: p.secPerClus,
		rsvdSecCnt: p.rsvdSecCnt,
		numFATs:    p.numFATs,
		rootEntCnt: p.rootEntCnt,
		totSec:     p.totSec,
		fatSz:      p.fatSz,
		fatType:    p.fatType,
		rootClus:   p.rootClus,
	}
	v.rootDirSectors = (uint32(p.rootEntCnt)*32 + uint32(p.bytsPerSec) - 1) / uint32(p.bytsPerSec)
	v.firstFATSector = uint32(p.rsvdSecCnt)
	v.firstRootDirSector = v.firstFATSector + uint32(p.numFATs)*p.fatSz
	v.firstDataSector = v.firstRootDirSector + v.rootDirSectors
	dataSectors := p.totSec - v.firstDataSector
	v.clusterCount = dataSectors / uint32(p.secPerClus)
	v.allocHint = 2
	v.freeClusterCount = 0xFFFFFFFF // unknown until FSINFO parsed

	if v.fatType == FAT32 && !readOnly && p.fsInfo != 0 && p.fsInfo != 0xFFFF {
		v.fsInfoSector = uint32(p.fsInfo)
		v.loadFSInfo()
	}

	return v, nil
}

func (v *Volume) statfs() vfs.Statfs {
	return vfs.Statfs{
		BlockSize: uint32(v.bytsPerSec) * uint32(v.secPerClus),
		Blocks:    uint64(v.clusterCount),
	}
}

const (
	fsInfoLeadSig  = 0x41615252
	fsInfoStrucSig = 0x61417272
	fsInfoTrailSig = 0xAA550000
)

func (v *Volume) loadFSInfo() {
	buf := make([]byte, v.bytsPerSec)
	if err := v.disk.ReadSector(v.fsInfoSector, buf); err != nil {
		return
	}
	if binary.LittleEndian.Uint32(buf[0:]) != fsInfoLeadSig || binary.LittleEndian.Uint32(buf[484:]) != fsInfoStrucSig {
		return
	}
	v.freeClusterCount = binary.LittleEndian.Uint32(buf[488:])
	v.lastAllocCluster = binary.LittleEndian.Uint32(buf[492:])
	if v.lastAllocCluster >= 2 {
		v.allocHint = v.lastAllocCluster
	}
}

func (v *Volume) flushFSInfo() {
	if v.fatType != FAT32 || v.fsInfoSector == 0 || v.readOnly {
		return
	}
	buf := make([]byte, v.bytsPerSec)
	binary.LittleEndian.PutUint32(buf[0:], fsInfoLeadSig)
	binary.LittleEndian.PutUint32(buf[484:], fsInfoStrucSig)
	binary.LittleEndian.PutUint32(buf[488:], v.freeClusterCount)
	binary.LittleEndian.PutUint32(buf[492:], v.lastAllocCluster)
	binary.LittleEndian.PutUint32(buf[508:], fsInfoTrailSig)
	_ = v.disk.WriteSector(v.fsInfoSector, buf)
}

// --- FAT table access ---

func (v *Volume) fatEntryLocation(cluster uint32) (sector uint32, byteOff uint32) {
	switch v.fatType {
	case FAT12:
		fatOffset := cluster + cluster/2
		sector = v.firstFATSector + fatOffset/uint32(v.bytsPerSec)
		byteOff = fatOffset % uint32(v.bytsPerSec)
	case FAT16:
		fatOffset := cluster * 2
		sector = v.firstFATSector + fatOffset/uint32(v.bytsPerSec)
		byteOff = fatOffset % uint32(v.bytsPerSec)
	default:
		fatOffset := cluster * 4
		sector = v.firstFATSector + fatOffset/uint32(v.bytsPerSec)
		byteOff = fatOffset % uint32(v.bytsPerSec)
	}
	return
}

// getFATEntry reads the FAT entry for cluster. Caller holds lockFS.
func (v *Volume) getFATEntry(cluster uint32) (uint32, error) {
	sector, off := v.fatEntryLocation(cluster)
	buf := make([]byte, v.bytsPerSec)
	if err := v.disk.ReadSector(sector, buf); err != nil {
		return 0, toErrno("fatfs.getFATEntry", frDiskErr)
	}

	switch v.fatType {
	case FAT12:
		// A 12-bit entry can straddle a sector boundary.
		var lo, hi byte
		if int(off)+1 < len(buf) {
			lo, hi = buf[off], buf[off+1]
		} else {
			lo = buf[off]
			next := make([]byte, v.bytsPerSec)
			if err := v.disk.ReadSector(sector+1, next); err != nil {
				return 0, toErrno("fatfs.getFATEntry", frDiskErr)
			}
			hi = next[0]
		}
		word := uint16(lo) | uint16(hi)<<8
		if cluster&1 == 0 {
			return uint32(word & 0x0FFF), nil
		}
		return uint32(word >> 4), nil
	case FAT16:
		return uint32(binary.LittleEndian.Uint16(buf[off:])), nil
	default:
		return binary.LittleEndian.Uint32(buf[off:]) & 0x0FFFFFFF, nil
	}
}

// setFATEntry writes value into the FAT entry for cluster, across every
// FAT copy (numFATs). Caller holds lockFS.
func (v *Volume) setFATEntry(cluster uint32, value uint32) error {
	if v.readOnly {
		return toErrno("fatfs.setFATEntry", frWriteProtected)
	}
	sector, off := v.fatEntryLocation(cluster)

	for copyIdx := uint8(0); copyIdx < v.numFATs; copyIdx++ {
		fatBase := sector + copyIdx*v.fatSz
		buf := make([]byte, v.bytsPerSec)
		if err := v.disk.ReadSector(fatBase, buf); err != nil {
			return toErrno("fatfs.setFATEntry", frDiskErr)
		}

		switch v.fatType {
		case FAT12:
			var lo, hi byte
			straddles := int(off)+1 >= len(buf)
			var next []byte
			if straddles {
				next = make([]byte, v.bytsPerSec)
				if err := v.disk.ReadSector(fatBase+1, next); err != nil {
					return toErrno("fatfs.setFATEntry", frDiskErr)
				}
				lo, hi = buf[off], next[0]
			} else {
				lo, hi = buf[off], buf[off+1]
			}
			word := uint16(lo) | uint16(hi)<<8
			if cluster&1 == 0 {
				word = (word & 0xF000) | uint16(value&0x0FFF)
			} else {
				word = (word & 0x000F) | uint16(value&0x0FFF)<<4
			}
			buf[off] = byte(word)
			if straddles {
				next[0] = byte(word >> 8)
				if err := v.disk.WriteSector(fatBase+1, next); err != nil {
					return toErrno("fatfs.setFATEntry", frDiskErr)
				}
			} else {
				buf[off+1] = byte(word >> 8)
			}
		case FAT16:
			binary.LittleEndian.PutUint16(buf[off:], uint16(value))
		default:
			cur := binary.LittleEndian.Uint32(buf[off:])
			binary.LittleEndian.PutUint32(buf[off:], (cur&0xF0000000)|(value&0x0FFFFFFF))
		}

		if err := v.disk.WriteSector(fatBase, buf); err != nil {
			return toErrno("fatfs.setFATEntry", frDiskErr)
		}
	}
	return nil
}

func (v *Volume) eocValue() uint32 {
	if v.fatType == FAT32 {
		return fatEOC32
	}
	return 0xFFFFFFFF
}

// createChain extends prevCluster's chain by one cluster (or starts a
// fresh chain if prevCluster is 0), scanning linearly from the alloc hint
// and wrapping around, per spec.md §4.6. Returns the new cluster number,
// or 0 if no free cluster exists. It takes lockFS itself; use
// createChainLocked from a caller that already holds it (directory growth
// during a dirAlloc/dirPosition walk).
func (v *Volume) createChain(prevCluster uint32) (uint32, error) {
	v.lockFS.Lock()
	defer v.lockFS.Unlock()
	return v.createChainLocked(prevCluster)
}

func (v *Volume) createChainLocked(prevCluster uint32) (uint32, error) {
	if v.readOnly {
		return 0, toErrno("fatfs.createChain", frWriteProtected)
	}

	start := v.allocHint
	if start < 2 {
		start = 2
	}
	last := v.clusterCount + 1

	found := uint32(0)
	cur := start
	for i := uint32(0); i < v.clusterCount; i++ {
		entry, err := v.getFATEntry(cur)
		if err != nil {
			return 0, err
		}
		if entry == fatFreeCluster {
			found = cur
			break
		}
		cur++
		if cur > last {
			cur = 2
		}
	}
	if found == 0 {
		return 0, nil
	}

	if err := v.setFATEntry(found, v.eocValue()); err != nil {
		return 0, err
	}
	if prevCluster != 0 {
		if err := v.setFATEntry(prevCluster, found); err != nil {
			return 0, err
		}
	}

	v.allocHint = found
	v.lastAllocCluster = found
	if v.freeClusterCount != 0xFFFFFFFF && v.freeClusterCount > 0 {
		v.freeClusterCount--
	}
	v.flushFSInfo()

	// Zero-fill the new cluster.
	zero := make([]byte, v.bytsPerSec)
	base := v.clusterToSector(found)
	for s := uint32(0); s < uint32(v.secPerClus); s++ {
		if err := v.disk.WriteSector(base+s, zero); err != nil {
			return 0, toErrno("fatfs.createChain", frDiskErr)
		}
	}

	return found, nil
}

// removeChain follows the chain starting at cluster, marking every entry
// free. It takes lockFS itself; use removeChainLocked from a caller that
// already holds it.
func (v *Volume) removeChain(cluster uint32) error {
	v.lockFS.Lock()
	defer v.lockFS.Unlock()
	return v.removeChainLocked(cluster)
}

func (v *Volume) removeChainLocked(cluster uint32) error {
	if v.readOnly {
		return toErrno("fatfs.removeChain", frWriteProtected)
	}

	freed := uint32(0)
	for cluster >= 2 && !isEOC(v.fatType, cluster) {
		next, err := v.getFATEntry(cluster)
		if err != nil {
			return err
		}
		if err := v.setFATEntry(cluster, fatFreeCluster); err != nil {
			return err
		}
		freed++
		if isEOC(v.fatType, next) || next < 2 {
			break
		}
		cluster = next
	}
	if v.freeClusterCount != 0xFFFFFFFF {
		v.freeClusterCount += freed
	}
	v.flushFSInfo()
	return nil
}
