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
	"errors"
)

// errEndOfDir is the internal sentinel for "walked past every slot this
// directory currently has allocated" (spec.md's dir_sdi/dir_next crossing
// a cluster boundary into a cluster that doesn't exist yet).
var errEndOfDir = errors.New("fatfs: end of directory region")

// slotLocation translates a linear directory-entry index into a (sector,
// byte offset) pair, following the FAT chain when index crosses a cluster
// boundary (dir_sdi/dir_next, spec.md §4.6). When extend is true and the
// walk would run off the end of an allocated chain, a fresh cluster is
// allocated and zero-filled, mirroring "dir_next advances and, when
// crossing into a cluster that doesn't yet exist on a writable mount,
// allocates one and zero-fills it." Caller holds lockFS.
func (v *Volume) slotLocation(loc dirLoc, index int, extend bool) (sector uint32, byteOff int, err error) {
	entriesPerSector := int(v.bytsPerSec) / dirEntrySize

	if loc.fixedRoot {
		if index >= int(v.rootEntCnt) {
			return 0, 0, errEndOfDir
		}
		sector = v.firstRootDirSector + uint32(index/entriesPerSector)
		byteOff = (index % entriesPerSector) * dirEntrySize
		return sector, byteOff, nil
	}

	entriesPerCluster := entriesPerSector * int(v.secPerClus)
	clusterIdx := index / entriesPerCluster
	within := index % entriesPerCluster

	cluster := loc.startCluster
	for i := 0; i < clusterIdx; i++ {
		next, gerr := v.getFATEntry(cluster)
		if gerr != nil {
			return 0, 0, gerr
		}
		if next < 2 || isEOC(v.fatType, next) {
			if !extend {
				return 0, 0, errEndOfDir
			}
			nc, cerr := v.createChainLocked(cluster)
			if cerr != nil {
				return 0, 0, cerr
			}
			if nc == 0 {
				return 0, 0, toErrno("fatfs.dirGrow", frNotEnoughCore)
			}
			next = nc
		}
		cluster = next
	}

	sector = v.clusterToSector(cluster) + uint32(within/entriesPerSector)
	byteOff = (within % entriesPerSector) * dirEntrySize
	return sector, byteOff, nil
}

// readSlot returns the raw 32-byte entry at index within loc.
func (v *Volume) readSlot(loc dirLoc, index int) (rawEntry, error) {
	v.lockFS.Lock()
	defer v.lockFS.Unlock()
	return v.readSlotLocked(loc, index)
}

func (v *Volume) readSlotLocked(loc dirLoc, index int) (rawEntry, error) {
	var e rawEntry
	sector, off, err := v.slotLocation(loc, index, false)
	if err != nil {
		return e, err
	}
	buf := make([]byte, v.bytsPerSec)
	if derr := v.disk.ReadSector(sector, buf); derr != nil {
		return e, toErrno("fatfs.readSlot", frDiskErr)
	}
	copy(e[:], buf[off:off+dirEntrySize])
	return e, nil
}

// writeSlot writes e at index within loc, extending the directory's
// cluster chain if necessary (never for a fixed FAT12/16 root region,
// which is a bounded contiguous area).
func (v *Volume) writeSlot(loc dirLoc, index int, e rawEntry) error {
	v.lockFS.Lock()
	defer v.lockFS.Unlock()
	return v.writeSlotLocked(loc, index, e)
}

func (v *Volume) writeSlotLocked(loc dirLoc, index int, e rawEntry) error {
	if v.readOnly {
		return toErrno("fatfs.writeSlot", frWriteProtected)
	}
	sector, off, err := v.slotLocation(loc, index, true)
	if err != nil {
		return err
	}
	buf := make([]byte, v.bytsPerSec)
	if derr := v.disk.ReadSector(sector, buf); derr != nil {
		return toErrno("fatfs.writeSlot", frDiskErr)
	}
	copy(buf[off:off+dirEntrySize], e[:])
	if derr := v.disk.WriteSector(sector, buf); derr != nil {
		return toErrno("fatfs.writeSlot", frDiskErr)
	}
	return nil
}

// entryInfo is one logical directory entry (its short 8.3 slot plus any
// preceding LFN slots), assembled by dirWalk/dirLookup.
type entryInfo struct {
	longName  string
	shortName [11]byte
	attr      byte
	cluster   uint32
	size      uint32
	wrtTime   uint16
	wrtDate   uint16

	// shortIndex is the slot index of the 8.3 entry; lfnStart is the slot
	// index of the first (highest-ordinal) LFN slot, or equal to
	// shortIndex when there is no LFN.
	lfnStart   int
	shortIndex int
}

// dirWalk iterates loc's logical entries (skipping deleted slots and
// volume labels, assembling LFN runs), calling visit for each. Walking
// stops at the first genuinely free (0x00) slot, the real end-of-directory
// marker, or when visit returns stop=true.
func (v *Volume) dirWalk(loc dirLoc, visit func(ei entryInfo) (stop bool, err error)) error {
	v.lockFS.Lock()
	defer v.lockFS.Unlock()

	index := 0
	var pendingLFN []rawEntry
	lfnStart := -1

	for {
		e, err := v.readSlotLocked(loc, index)
		if err == errEndOfDir {
			return nil
		}
		if err != nil {
			return err
		}
		if e.isFree() {
			return nil
		}
		if e.isDeleted() {
			pendingLFN = nil
			lfnStart = -1
			index++
			continue
		}
		if e.isLFN() {
			if lfnStart == -1 {
				lfnStart = index
			}
			pendingLFN = append(pendingLFN, e)
			index++
			continue
		}
		if e.isVolumeLabel() {
			pendingLFN = nil
			lfnStart = -1
			index++
			continue
		}

		ei := entryInfo{
			shortName:  e.shortName(),
			attr:       e.attr(),
			cluster:    e.cluster(),
			size:       e.fileSize(),
			shortIndex: index,
			lfnStart:   index,
		}
		ei.wrtTime, ei.wrtDate = e.wrtTimeDate()
		if len(pendingLFN) > 0 {
			ei.longName = assembleLFN(pendingLFN)
			ei.lfnStart = lfnStart
		}
		pendingLFN = nil
		lfnStart = -1

		stop, err := visit(ei)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
		index++
	}
}

// dirLookup finds the entry named name (case-insensitively against the
// short name, exactly against any LFN) within loc.
func (v *Volume) dirLookup(loc dirLoc, name string) (entryInfo, error) {
	var found entryInfo
	ok := false
	err := v.dirWalk(loc, func(ei entryInfo) (bool, error) {
		if matchesEntryName(ei, name, v.cp) {
			found = ei
			ok = true
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return entryInfo{}, err
	}
	if !ok {
		return entryInfo{}, toErrno("fatfs.dirLookup", frNoFile)
	}
	return found, nil
}

func matchesEntryName(ei entryInfo, name string, cp Codepage) bool {
	if ei.longName != "" && ei.longName == name {
		return true
	}
	short := shortNameToDisplay(ei.shortName)
	base, ext := shortNameBasis(name, cp)
	cand := base
	if ext != "" {
		cand = base + "." + ext
	}
	return short == cand
}

// shortNameToDisplay renders an 11-byte packed short name as "BASE.EXT"
// (no trailing-space padding, extension omitted if empty) — the form a
// FILINFO.fname field reports, per spec.md §8 S6.
func shortNameToDisplay(raw [11]byte) string {
	base := trimTrailingSpace(raw[0:8])
	ext := trimTrailingSpace(raw[8:11])
	if ext == "" {
		return base
	}
	return base + "." + ext
}

func trimTrailingSpace(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

// dirAlloc scans loc for n consecutive free or deleted slots, extending
// loc's cluster chain as needed, and returns the index of the first slot
// in the run (dir_alloc, spec.md §4.6).
func (v *Volume) dirAlloc(loc dirLoc, n int) (int, error) {
	v.lockFS.Lock()
	defer v.lockFS.Unlock()

	index := 0
	run := 0
	for {
		e, err := v.readSlotLocked(loc, index)
		if err == errEndOfDir {
			if loc.fixedRoot {
				return 0, toErrno("fatfs.dirAlloc", frNotEnoughCore)
			}
			// Force the chain to grow by writing through slotLocation
			// with extend=true, then retry the read.
			sector, off, werr := v.slotLocation(loc, index, true)
			if werr != nil {
				return 0, werr
			}
			buf := make([]byte, v.bytsPerSec)
			if derr := v.disk.ReadSector(sector, buf); derr != nil {
				return 0, toErrno("fatfs.dirAlloc", frDiskErr)
			}
			copy(e[:], buf[off:off+dirEntrySize])
		} else if err != nil {
			return 0, err
		}

		if e.isFree() || e.isDeleted() {
			run++
			if run == n {
				return index - n + 1, nil
			}
		} else {
			run = 0
		}
		index++
	}
}

// dirMarkFree overwrites the n slots starting at index with the deleted
// marker (0xE5), used by rmdir/unlink/rename to release the entry's slots.
// dirWalk skips them and keeps walking to later entries, and the next
// dirAlloc scan treats them as free again.
func (v *Volume) dirMarkFree(loc dirLoc, index, n int) error {
	v.lockFS.Lock()
	defer v.lockFS.Unlock()
	for i := 0; i < n; i++ {
		var e rawEntry
		e[deName] = deMarkerDeleted
		if err := v.writeSlotLocked(loc, index+i, e); err != nil {
			return err
		}
	}
	return nil
}

// dirRemoveEntry frees every slot belonging to ei (its LFN run plus its
// short entry).
func (v *Volume) dirRemoveEntry(loc dirLoc, ei entryInfo) error {
	n := ei.shortIndex - ei.lfnStart + 1
	return v.dirMarkFree(loc, ei.lfnStart, n)
}

// dirCreateEntry allocates and writes the slots for a new directory entry
// named name (create_name, spec.md §4.6): an LFN run when name cannot be
// represented in 8.3 format, followed by the short entry itself.
func (v *Volume) dirCreateEntry(loc dirLoc, name string, attr byte, cluster uint32, size uint32, wrtTime, wrtDate uint16) (entryInfo, error) {
	existingShort := make(map[[11]byte]bool)
	_ = v.dirWalk(loc, func(ei entryInfo) (bool, error) {
		existingShort[ei.shortName] = true
		return false, nil
	})

	short := makeShortName(name, v.cp, func(c [11]byte) bool { return existingShort[c] })

	var lfnEntries []rawEntry
	if needsLFN(name) {
		lfnEntries = buildLFNChain(name, lfnChecksum(short))
	}

	total := len(lfnEntries) + 1
	start, err := v.dirAlloc(loc, total)
	if err != nil {
		return entryInfo{}, err
	}

	for i, le := range lfnEntries {
		if err := v.writeSlot(loc, start+i, le); err != nil {
			return entryInfo{}, err
		}
	}

	var short8 rawEntry
	short8.setShortName(short)
	short8.setAttr(attr)
	short8.setCluster(cluster)
	short8.setFileSize(size)
	short8.setTimes(wrtTime, wrtDate, wrtTime, wrtDate, wrtDate)
	shortIdx := start + len(lfnEntries)
	if err := v.writeSlot(loc, shortIdx, short8); err != nil {
		return entryInfo{}, err
	}

	return entryInfo{
		longName:   name,
		shortName:  short,
		attr:       attr,
		cluster:    cluster,
		size:       size,
		wrtTime:    wrtTime,
		wrtDate:    wrtDate,
		lfnStart:   start,
		shortIndex: shortIdx,
	}, nil
}
