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

import "fmt"

// FormatOptions controls Format's geometry choices. Zero values pick the
// per-field defaults below, and the FAT width follows from the disk's
// resulting cluster count.
type FormatOptions struct {
	// BytesPerSector defaults to 512.
	BytesPerSector uint16
	// SectorsPerCluster defaults to 8 (4 KiB clusters at 512B sectors).
	SectorsPerCluster uint8
	// NumFATs defaults to 2.
	NumFATs uint8
	// Type is the FAT width used when ForceType is set; with ForceType
	// false, Type is ignored and the width is picked from the disk's
	// cluster count like parseBootSector does.
	Type     FatType
	ForceType bool
}

// Format writes a fresh FAT boot sector, FAT tables, FSINFO (FAT32 only),
// and an empty root directory onto disk, mirroring mkfs.fat's layout
// choices closely enough for mountVolume to recognise the result. It is
// the counterpart to mountVolume, used by tests and cmd/tinykern's
// run-scenario scenarios to stand up a scratch volume.
func Format(disk Disk, opts FormatOptions) error {
	bps := opts.BytesPerSector
	if bps == 0 {
		bps = 512
	}
	spc := opts.SectorsPerCluster
	if spc == 0 {
		spc = 8
	}
	numFATs := opts.NumFATs
	if numFATs == 0 {
		numFATs = 2
	}

	totSec := disk.SectorCount()
	if totSec == 0 {
		return fmt.Errorf("fatfs: Format: disk reports zero sectors")
	}

	// geometryFor sizes the FAT and root-directory region for a candidate
	// fatType, resolving the circular dependency between FAT size and
	// cluster count (which depends on the FAT size) by iterating a few
	// times, generously (one full entry width per cluster, rounded up
	// to whole sectors).
	geometryFor := func(candidate FatType) (rootEntCnt uint16, rootDirSectors, rsvdSecCnt, fatSz, clusterCount uint32) {
		if candidate != FAT32 {
			rootEntCnt = 512
			rootDirSectors = (uint32(rootEntCnt)*32 + uint32(bps) - 1) / uint32(bps)
		}
		rsvdSecCnt = 1
		if candidate == FAT32 {
			rsvdSecCnt = 32
		}
		entryBytes := uint32(2)
		if candidate == FAT32 {
			entryBytes = 4
		}
		fatSz = 1
		for i := 0; i < 8; i++ {
			dataSectors := totSec - rsvdSecCnt - numFATs*fatSz - rootDirSectors
			clusterCount = dataSectors / uint32(spc)
			needed := (clusterCount*entryBytes + uint32(bps) - 1) / uint32(bps)
			if needed < 1 {
				needed = 1
			}
			if needed == fatSz {
				break
			}
			fatSz = needed
		}
		return
	}

	deriveType := func(clusterCount uint32) FatType {
		switch {
		case clusterCount <= maxClusterFAT12:
			return FAT12
		case clusterCount <= maxClusterFAT16:
			return FAT16
		default:
			return FAT32
		}
	}

	// mountVolume derives the FAT width solely from the resulting cluster
	// count (parseBootSector does the same), so Format must converge on a
	// type/geometry pair that is self-consistent rather than trusting an
	// a-priori guess.
	fatType := FAT32
	if opts.ForceType {
		fatType = opts.Type
	}
	rootEntCnt, rootDirSectors, rsvdSecCnt16, fatSz, clusterCount := geometryFor(fatType)
	if !opts.ForceType {
		if actual := deriveType(clusterCount); actual != fatType {
			fatType = actual
			rootEntCnt, rootDirSectors, rsvdSecCnt16, fatSz, _ = geometryFor(fatType)
		}
	}
	rsvdSecCnt := uint16(rsvdSecCnt16)

	rootClus := uint32(0)
	if fatType == FAT32 {
		rootClus = 2
	}

	p := bootParams{
		bytsPerSec: bps,
		secPerClus: spc,
		rsvdSecCnt: rsvdSecCnt,
		numFATs:    numFATs,
		rootEntCnt: rootEntCnt,
		totSec:     totSec,
		fatSz:      fatSz,
		rootClus:   rootClus,
		fatType:    fatType,
	}
	if fatType == FAT32 {
		p.fsInfo = 1
	}

	boot := writeBootSector(p)
	if err := disk.WriteSector(0, boot); err != nil {
		return fmt.Errorf("fatfs: Format: write boot sector: %w", err)
	}

	firstFATSector := uint32(rsvdSecCnt)
	zero := make([]byte, bps)
	for f := uint8(0); f < numFATs; f++ {
		base := firstFATSector + uint32(f)*fatSz
		for s := uint32(0); s < fatSz; s++ {
			if err := disk.WriteSector(base+s, zero); err != nil {
				return fmt.Errorf("fatfs: Format: zero FAT: %w", err)
			}
		}
	}

	v := &Volume{
		disk:       disk,
		bytsPerSec: bps,
		secPerClus: spc,
		rsvdSecCnt: rsvdSecCnt,
		numFATs:    numFATs,
		rootEntCnt: rootEntCnt,
		totSec:     totSec,
		fatSz:      fatSz,
		fatType:    fatType,
		rootClus:   rootClus,
	}
	v.rootDirSectors = rootDirSectors
	v.firstFATSector = firstFATSector
	v.firstRootDirSector = firstFATSector + uint32(numFATs)*fatSz
	v.firstDataSector = v.firstRootDirSector + rootDirSectors
	dataSectors := totSec - v.firstDataSector
	v.clusterCount = dataSectors / uint32(spc)
	v.allocHint = 2

	// Reserve cluster 0 and 1 (always) and, for FAT32, mark cluster 2
	// (the root directory) EOC and zero-fill it.
	if err := v.setFATEntry(0, 0x0FFFFFF8); err != nil {
		return err
	}
	if err := v.setFATEntry(1, 0x0FFFFFFF); err != nil {
		return err
	}
	if fatType == FAT32 {
		if err := v.setFATEntry(rootClus, v.eocValue()); err != nil {
			return err
		}
		base := v.clusterToSector(rootClus)
		for s := uint32(0); s < uint32(spc); s++ {
			if err := disk.WriteSector(base+s, zero); err != nil {
				return fmt.Errorf("fatfs: Format: zero root cluster: %w", err)
			}
		}
		v.freeClusterCount = v.clusterCount - 1
		v.lastAllocCluster = rootClus
		v.fsInfoSector = uint32(p.fsInfo)
		v.flushFSInfo()
	} else {
		for s := uint32(0); s < rootDirSectors; s++ {
			if err := disk.WriteSector(v.firstRootDirSector+s, zero); err != nil {
				return fmt.Errorf("fatfs: Format: zero root region: %w", err)
			}
		}
	}

	return disk.Sync()
}
