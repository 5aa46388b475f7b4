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

import "encoding/binary"

// Directory-entry layout, bit-exact per spec.md §6.
const (
	deName       = 0  // 11 bytes
	deAttr       = 11
	deNTres      = 12
	deCrtTimeT   = 13
	deCrtTime    = 14
	deCrtDate    = 16
	deLstAccDate = 18
	deFstClusHI  = 20
	deWrtTime    = 22
	deWrtDate    = 24
	deFstClusLO  = 26
	deFileSize   = 28

	dirEntrySize = 32
)

// File attribute bits, per spec.md §6.
const (
	attrRDO = 0x01
	attrHID = 0x02
	attrSYS = 0x04
	attrVOL = 0x08
	attrLFN = 0x0F
	attrDIR = 0x10
	attrARC = 0x20
)

const (
	deMarkerFree    = 0x00
	deMarkerDeleted = 0xE5
	deMarkerEscape  = 0x05

	lfnLastEntry = 0x40
	lfnOrdMask   = 0x3F
)

// LFN entry char offsets, bit-exact per spec.md §6.
var lfnName1Offsets = [5]int{1, 3, 5, 7, 9}
var lfnName2Offsets = [6]int{14, 16, 18, 20, 22, 24}
var lfnName3Offsets = [2]int{28, 30}

type rawEntry [dirEntrySize]byte

func (e *rawEntry) isFree() bool     { return e[deName] == deMarkerFree }
func (e *rawEntry) isDeleted() bool  { return e[deName] == deMarkerDeleted }
func (e *rawEntry) isLFN() bool      { return e[deAttr] == attrLFN }
func (e *rawEntry) isVolumeLabel() bool {
	return e[deAttr]&attrVOL != 0 && e[deAttr] != attrLFN
}

func (e *rawEntry) shortName() [11]byte {
	var n [11]byte
	copy(n[:], e[deName:deName+11])
	if n[0] == deMarkerEscape {
		n[0] = deMarkerDeleted
	}
	return n
}

func (e *rawEntry) setShortName(n [11]byte) { copy(e[deName:deName+11], n[:]) }

func (e *rawEntry) attr() byte     { return e[deAttr] }
func (e *rawEntry) setAttr(a byte) { e[deAttr] = a }

func (e *rawEntry) cluster() uint32 {
	hi := binary.LittleEndian.Uint16(e[deFstClusHI:])
	lo := binary.LittleEndian.Uint16(e[deFstClusLO:])
	return uint32(hi)<<16 | uint32(lo)
}

func (e *rawEntry) setCluster(c uint32) {
	binary.LittleEndian.PutUint16(e[deFstClusHI:], uint16(c>>16))
	binary.LittleEndian.PutUint16(e[deFstClusLO:], uint16(c))
}

func (e *rawEntry) fileSize() uint32     { return binary.LittleEndian.Uint32(e[deFileSize:]) }
func (e *rawEntry) setFileSize(n uint32) { binary.LittleEndian.PutUint32(e[deFileSize:], n) }

func (e *rawEntry) setTimes(crtTime, crtDate, wrtTime, wrtDate, lstAccDate uint16) {
	binary.LittleEndian.PutUint16(e[deCrtTime:], crtTime)
	binary.LittleEndian.PutUint16(e[deCrtDate:], crtDate)
	binary.LittleEndian.PutUint16(e[deWrtTime:], wrtTime)
	binary.LittleEndian.PutUint16(e[deWrtDate:], wrtDate)
	binary.LittleEndian.PutUint16(e[deLstAccDate:], lstAccDate)
}

func (e *rawEntry) wrtTimeDate() (time, date uint16) {
	return binary.LittleEndian.Uint16(e[deWrtTime:]), binary.LittleEndian.Uint16(e[deWrtDate:])
}

func (e *rawEntry) setWrtTimeDate(t, d uint16) {
	binary.LittleEndian.PutUint16(e[deWrtTime:], t)
	binary.LittleEndian.PutUint16(e[deWrtDate:], d)
}

// lfnChars extracts all 13 UTF-16 code units this LFN slot carries,
// including any 0x0000 terminator and 0xFFFF padding; assembleLFN cuts the
// assembled name at the first 0x0000.
func (e *rawEntry) lfnChars() []uint16 {
	var out []uint16
	read := func(off int) uint16 { return binary.LittleEndian.Uint16(e[off:]) }
	for _, off := range lfnName1Offsets {
		out = append(out, read(off))
	}
	for _, off := range lfnName2Offsets {
		out = append(out, read(off))
	}
	for _, off := range lfnName3Offsets {
		out = append(out, read(off))
	}
	return out
}

// buildLFNEntry renders one 13-char LFN slot. ord is the 1-based sequence
// number (OR'd with lfnLastEntry by the caller for the last logical chunk
// of the name, which is the first slot in storage order).
func buildLFNEntry(ord byte, chars []uint16, checksum byte) rawEntry {
	var e rawEntry
	e[0] = ord
	e[deAttr] = attrLFN
	e[13] = checksum // deLfnChksum

	write := func(off int, v uint16) { binary.LittleEndian.PutUint16(e[off:], v) }
	put := func(offsets []int, start int) int {
		i := start
		for _, off := range offsets {
			if i < len(chars) {
				write(off, chars[i])
				i++
			} else if i == len(chars) {
				write(off, 0x0000)
				i++
			} else {
				write(off, 0xFFFF)
			}
		}
		return i
	}
	i := put(lfnName1Offsets[:], 0)
	i = put(lfnName2Offsets[:], i)
	put(lfnName3Offsets[:], i)
	return e
}

// buildLFNChain splits name into the minimum number of 13-char LFN entries
// (storage order: last-logical-chunk first, each OR'ing lfnLastEntry into
// the first slot's ordinal — the "order byte's top bit marks the last
// component" spec.md §4.6 describes).
func buildLFNChain(name string, checksum byte) []rawEntry {
	units := utf16Units(name)
	n := (len(units) + 12) / 13
	if n == 0 {
		n = 1
	}
	entries := make([]rawEntry, n)
	for i := 0; i < n; i++ {
		chunkStart := i * 13
		chunkEnd := chunkStart + 13
		if chunkEnd > len(units) {
			chunkEnd = len(units)
		}
		ord := byte(i + 1)
		if i == n-1 {
			ord |= lfnLastEntry
		}
		// Storage order is reverse of logical order: the entry with the
		// LAST flag (covering the tail of the name) is written first.
		entries[n-1-i] = buildLFNEntry(ord, units[chunkStart:chunkEnd], checksum)
	}
	return entries
}

// assembleLFN reconstructs a long name from LFN slots gathered in on-disk
// (storage) order, i.e. highest ordinal (with the LAST flag) first.
func assembleLFN(slots []rawEntry) string {
	var units []uint16
	for i := len(slots) - 1; i >= 0; i-- {
		units = append(units, slots[i].lfnChars()...)
	}
	end := len(units)
	for i, u := range units {
		if u == 0x0000 {
			end = i
			break
		}
	}
	return string(utf16ToRunes(units[:end]))
}

func utf16ToRunes(units []uint16) []rune {
	out := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		if u >= 0xD800 && u <= 0xDBFF && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF {
			r := (rune(u-0xD800)<<10 | rune(units[i+1]-0xDC00)) + 0x10000
			out = append(out, r)
			i++
			continue
		}
		out = append(out, rune(u))
	}
	return out
}
