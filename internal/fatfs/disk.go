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
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Disk is the block-device contract fatfs_diskio.c wraps in the original
// source (disk_read/disk_write/disk_ioctl). Kept deliberately narrow:
// sector-addressed read/write plus a sync — this is the minimal surface
// the spec's driver needs, not a general filesystem abstraction (an
// afero.Fs would be the wrong shape here; see DESIGN.md).
type Disk interface {
	ReadSector(lba uint32, buf []byte) error
	WriteSector(lba uint32, buf []byte) error
	SectorSize() int
	SectorCount() uint32
	Sync() error
}

// MemDisk is a Disk backed by an in-memory byte slice, standing in for the
// host-backed disk image spec.md §4.6 mounts from. It is what the boot
// scenario in cmd/tinykern and the package's tests format and mount.
type MemDisk struct {
	mu         sync.Mutex
	secSize    int
	data       []byte
}

// NewMemDisk allocates a MemDisk of nSectors sectors of secSize bytes
// each, zero-filled.
func NewMemDisk(nSectors uint32, secSize int) *MemDisk {
	return &MemDisk{secSize: secSize, data: make([]byte, uint64(nSectors)*uint64(secSize))}
}

func (d *MemDisk) SectorSize() int      { return d.secSize }
func (d *MemDisk) SectorCount() uint32  { return uint32(len(d.data) / d.secSize) }

func (d *MemDisk) offset(lba uint32) (int, error) {
	off := int(lba) * d.secSize
	if off < 0 || off+d.secSize > len(d.data) {
		return 0, fmt.Errorf("fatfs: MemDisk: sector %d out of range", lba)
	}
	return off, nil
}

func (d *MemDisk) ReadSector(lba uint32, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	off, err := d.offset(lba)
	if err != nil {
		return err
	}
	copy(buf, d.data[off:off+d.secSize])
	return nil
}

func (d *MemDisk) WriteSector(lba uint32, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	off, err := d.offset(lba)
	if err != nil {
		return err
	}
	copy(d.data[off:off+d.secSize], buf)
	return nil
}

func (d *MemDisk) Sync() error { return nil }

// FileDisk is a Disk backed by a real host file, used when
// cfg.FATConfig.VolumeImagePath names an actual volume image rather than
// the in-memory disk the tests use. It takes an exclusive advisory lock
// on the file for the lifetime of the mount, the same way gcsfuse's
// internal/mount package uses golang.org/x/sys/unix to take host-level
// locks around a mount point instead of trusting callers to coordinate.
type FileDisk struct {
	mu      sync.Mutex
	f       *os.File
	secSize int
}

// OpenFileDisk opens path and flocks it exclusively. secSize is the
// logical sector size to present through the Disk interface; the file's
// size must be an exact multiple of it.
func OpenFileDisk(path string, secSize int) (*FileDisk, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("fatfs: OpenFileDisk: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("fatfs: OpenFileDisk: flock %s: %w", path, err)
	}
	return &FileDisk{f: f, secSize: secSize}, nil
}

func (d *FileDisk) SectorSize() int { return d.secSize }

func (d *FileDisk) SectorCount() uint32 {
	st, err := d.f.Stat()
	if err != nil {
		return 0
	}
	return uint32(st.Size() / int64(d.secSize))
}

func (d *FileDisk) ReadSector(lba uint32, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := unix.Pread(int(d.f.Fd()), buf[:d.secSize], int64(lba)*int64(d.secSize))
	return err
}

func (d *FileDisk) WriteSector(lba uint32, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := unix.Pwrite(int(d.f.Fd()), buf[:d.secSize], int64(lba)*int64(d.secSize))
	return err
}

func (d *FileDisk) Sync() error {
	return d.f.Sync()
}

// Close releases the flock and closes the backing file.
func (d *FileDisk) Close() error {
	_ = unix.Flock(int(d.f.Fd()), unix.LOCK_UN)
	return d.f.Close()
}
