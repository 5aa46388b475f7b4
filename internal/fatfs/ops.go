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
	"io/fs"

	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/vfs"
)

type vnodeOps struct{}

func inodeOf(v *vfs.Vnode) (*Inode, error) {
	in, ok := v.Data.(*Inode)
	if !ok {
		return nil, fmt.Errorf("fatfs: vnode %d has no fatfs inode", v.Ino)
	}
	return in, nil
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func attrToMode(attr byte) fs.FileMode {
	m := fs.FileMode(0755)
	if attr&attrDIR != 0 {
		m |= fs.ModeDir
	}
	if attr&attrRDO != 0 {
		m &^= 0222
	}
	return m
}

func modeToAttr(mode fs.FileMode) byte {
	var a byte
	if mode.IsDir() {
		a |= attrDIR
	}
	if mode&0222 == 0 {
		a |= attrRDO
	}
	return a
}

// newChildVnode constructs and registers a vnode for a freshly looked-up
// or freshly created directory entry.
func newChildVnode(in *Inode, name string, ei entryInfo) *vfs.Vnode {
	childPath := joinPath(in.path, name)
	childIno := in.SB.allocIno()
	mode := attrToMode(ei.attr)
	v := vfs.NewVnode(childIno, mode, sbOps, &in.SB.SuperblockRef)
	child := &Inode{
		SB:         in.SB,
		Vnode:      v,
		path:       childPath,
		parentLoc:  in.dirObj,
		entrySlot:  ei.shortIndex,
		attr:       ei.attr,
	}
	if ei.attr&attrDIR != 0 {
		child.isDir = true
		child.dirObj = dirLoc{startCluster: ei.cluster}
	} else {
		child.startCluster = ei.cluster
		child.size = ei.size
	}
	v.Data = child
	v.SetSize(int64(ei.size))
	in.SB.storeVnode(childPath, v)
	return v
}

func (vnodeOps) Lookup(parent *vfs.Vnode, name string) (*vfs.Vnode, error) {
	in, err := inodeOf(parent)
	if err != nil {
		return nil, err
	}
	if !in.isDir {
		return nil, errno.New("fatfs.Lookup", errno.ENOTDIR)
	}
	vol := in.SB.Vol

	childPath := joinPath(in.path, name)
	if existing := in.SB.lookupVnode(childPath); existing != nil {
		if err := vfs.Vref(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	ei, err := vol.dirLookup(in.dirObj, name)
	if err != nil {
		return nil, err
	}

	v := newChildVnode(in, name, ei)
	if err := vfs.Vref(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (vnodeOps) Create(parent *vfs.Vnode, name string, mode fs.FileMode) (*vfs.Vnode, error) {
	in, err := inodeOf(parent)
	if err != nil {
		return nil, err
	}
	if !in.isDir {
		return nil, errno.New("fatfs.Create", errno.ENOTDIR)
	}
	vol := in.SB.Vol
	if _, err := vol.dirLookup(in.dirObj, name); err == nil {
		return nil, errno.New("fatfs.Create", errno.EEXIST)
	}

	attr := modeToAttr(mode)
	wt, wd := toFATTime(in.SB.Clock.Now())
	ei, err := vol.dirCreateEntry(in.dirObj, name, attr, 0, 0, wt, wd)
	if err != nil {
		return nil, err
	}

	v := newChildVnode(in, name, ei)
	if err := vfs.Vref(v); err != nil {
		return nil, err
	}
	return v, nil
}

func writeDotEntries(vol *Volume, cluster, parentCluster uint32, wt, wd uint16) error {
	dot := func(name string, clus uint32) rawEntry {
		var e rawEntry
		var sn [11]byte
		for i := range sn {
			sn[i] = ' '
		}
		copy(sn[:], name)
		e.setShortName(sn)
		e.setAttr(attrDIR)
		e.setCluster(clus)
		e.setTimes(wt, wd, wt, wd, wd)
		return e
	}
	loc := dirLoc{startCluster: cluster}
	if err := vol.writeSlot(loc, 0, dot(".", cluster)); err != nil {
		return err
	}
	return vol.writeSlot(loc, 1, dot("..", parentCluster))
}

func (vnodeOps) Mkdir(parent *vfs.Vnode, name string, mode fs.FileMode) (*vfs.Vnode, error) {
	in, err := inodeOf(parent)
	if err != nil {
		return nil, err
	}
	if !in.isDir {
		return nil, errno.New("fatfs.Mkdir", errno.ENOTDIR)
	}
	vol := in.SB.Vol
	if _, err := vol.dirLookup(in.dirObj, name); err == nil {
		return nil, errno.New("fatfs.Mkdir", errno.EEXIST)
	}

	newCluster, err := vol.createChain(0)
	if err != nil {
		return nil, err
	}
	if newCluster == 0 {
		return nil, toErrno("fatfs.Mkdir", frNotEnoughCore)
	}

	parentCluster := in.dirObj.startCluster
	if in.dirObj.fixedRoot || parentCluster == vol.rootClus {
		parentCluster = 0
	}
	wt, wd := toFATTime(in.SB.Clock.Now())
	if err := writeDotEntries(vol, newCluster, parentCluster, wt, wd); err != nil {
		return nil, err
	}

	ei, err := vol.dirCreateEntry(in.dirObj, name, attrDIR|modeToAttr(mode), newCluster, 0, wt, wd)
	if err != nil {
		return nil, err
	}

	v := newChildVnode(in, name, ei)
	if err := vfs.Vref(v); err != nil {
		return nil, err
	}
	return v, nil
}

func dirIsEmpty(vol *Volume, loc dirLoc) (bool, error) {
	empty := true
	err := vol.dirWalk(loc, func(ei entryInfo) (bool, error) {
		nm := shortNameToDisplay(ei.shortName)
		if nm != "." && nm != ".." {
			empty = false
			return true, nil
		}
		return false, nil
	})
	return empty, err
}

func (vnodeOps) Rmdir(parent *vfs.Vnode, name string) error {
	if name == "." || name == ".." {
		return errno.New("fatfs.Rmdir", errno.EINVAL)
	}
	in, err := inodeOf(parent)
	if err != nil {
		return err
	}
	vol := in.SB.Vol
	ei, err := vol.dirLookup(in.dirObj, name)
	if err != nil {
		return err
	}
	if ei.attr&attrDIR == 0 {
		return errno.New("fatfs.Rmdir", errno.ENOTDIR)
	}

	childLoc := dirLoc{startCluster: ei.cluster}
	empty, err := dirIsEmpty(vol, childLoc)
	if err != nil {
		return err
	}
	if !empty {
		return errno.New("fatfs.Rmdir", errno.ENOTEMPTY)
	}

	childPath := joinPath(in.path, name)
	if cv := in.SB.lookupVnode(childPath); cv != nil {
		if vfs.GetTopVnode(cv) != cv {
			return errno.New("fatfs.Rmdir", errno.EBUSY)
		}
	}

	if ei.cluster != 0 {
		if err := vol.removeChain(ei.cluster); err != nil {
			return err
		}
	}
	if err := vol.dirRemoveEntry(in.dirObj, ei); err != nil {
		return err
	}
	if cv := in.SB.lookupVnode(childPath); cv != nil {
		return vfs.Vrele(cv)
	}
	return nil
}

func (vnodeOps) Unlink(parent *vfs.Vnode, name string) error {
	in, err := inodeOf(parent)
	if err != nil {
		return err
	}
	vol := in.SB.Vol
	ei, err := vol.dirLookup(in.dirObj, name)
	if err != nil {
		return err
	}
	if ei.attr&attrDIR != 0 {
		return errno.New("fatfs.Unlink", errno.EISDIR)
	}
	if ei.attr&attrRDO != 0 {
		return errno.New("fatfs.Unlink", errno.EACCES)
	}

	if ei.cluster != 0 {
		if err := vol.removeChain(ei.cluster); err != nil {
			return err
		}
	}
	if err := vol.dirRemoveEntry(in.dirObj, ei); err != nil {
		return err
	}

	childPath := joinPath(in.path, name)
	if cv := in.SB.lookupVnode(childPath); cv != nil {
		return vfs.Vrele(cv)
	}
	return nil
}

func (vnodeOps) Link(parent *vfs.Vnode, name string, target *vfs.Vnode) error {
	return errno.New("fatfs.Link", errno.ENOTSUP)
}

func (o vnodeOps) Rename(oldParent *vfs.Vnode, oldName string, newParent *vfs.Vnode, newName string) error {
	oin, err := inodeOf(oldParent)
	if err != nil {
		return err
	}
	nin, err := inodeOf(newParent)
	if err != nil {
		return err
	}
	vol := oin.SB.Vol

	ei, err := vol.dirLookup(oin.dirObj, oldName)
	if err != nil {
		return err
	}
	if _, err := vol.dirLookup(nin.dirObj, newName); err == nil {
		return errno.New("fatfs.Rename", errno.EEXIST)
	}

	newEi, err := vol.dirCreateEntry(nin.dirObj, newName, ei.attr, ei.cluster, ei.size, ei.wrtTime, ei.wrtDate)
	if err != nil {
		return err
	}
	if err := vol.dirRemoveEntry(oin.dirObj, ei); err != nil {
		return err
	}

	oldPath := joinPath(oin.path, oldName)
	newPath := joinPath(nin.path, newName)
	if v := oin.SB.lookupVnode(oldPath); v != nil {
		oin.SB.dropVnode(oldPath)
		if childIn, ok := v.Data.(*Inode); ok {
			childIn.path = newPath
			childIn.parentLoc = nin.dirObj
			childIn.entrySlot = newEi.shortIndex
		}
		oin.SB.storeVnode(newPath, v)
	}
	return nil
}

func (vnodeOps) Readdir(dir *vfs.Vnode) ([]vfs.Dirent, error) {
	in, err := inodeOf(dir)
	if err != nil {
		return nil, err
	}
	if !in.isDir {
		return nil, errno.New("fatfs.Readdir", errno.ENOTDIR)
	}
	vol := in.SB.Vol

	var out []vfs.Dirent
	err = vol.dirWalk(in.dirObj, func(ei entryInfo) (bool, error) {
		short := shortNameToDisplay(ei.shortName)
		name := ei.longName
		var shortName string
		if name == "" {
			name = short
		} else {
			// Only surface ShortName when the entry actually has an LFN
			// backing it (spec.md §8 S6's FILINFO.fname) — a name that
			// already fits 8.3 has no separate short form worth reporting.
			shortName = short
		}
		var typ fs.FileMode
		if ei.attr&attrDIR != 0 {
			typ = fs.ModeDir
		}
		out = append(out, vfs.Dirent{Name: name, Ino: uint64(ei.cluster), Type: typ, ShortName: shortName})
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (vnodeOps) Read(v *vfs.Vnode, offset int64, p []byte) (int, error) {
	in, err := inodeOf(v)
	if err != nil {
		return 0, err
	}
	if in.isDir {
		return 0, errno.New("fatfs.Read", errno.EISDIR)
	}
	vol := in.SB.Vol
	vol.lockFS.Lock()
	defer vol.lockFS.Unlock()

	size := int64(in.size)
	if offset >= size {
		return 0, nil
	}
	remaining := int(size - offset)
	if remaining > len(p) {
		remaining = len(p)
	}

	n := 0
	for n < remaining {
		pos := offset + int64(n)
		cluster, cerr := in.clusterForOffset(vol, pos)
		if cerr != nil {
			break
		}
		clusterOff := pos % int64(vol.clusterBytes())
		sector := vol.clusterToSector(cluster) + uint32(clusterOff/int64(vol.bytsPerSec))
		secOff := int(clusterOff % int64(vol.bytsPerSec))
		chunk := int(vol.bytsPerSec) - secOff
		if left := remaining - n; chunk > left {
			chunk = left
		}
		buf := make([]byte, vol.bytsPerSec)
		if derr := vol.disk.ReadSector(sector, buf); derr != nil {
			return n, toErrno("fatfs.Read", frDiskErr)
		}
		copy(p[n:n+chunk], buf[secOff:secOff+chunk])
		n += chunk
	}
	return n, nil
}

func (vnodeOps) Write(v *vfs.Vnode, offset int64, p []byte) (int, error) {
	in, err := inodeOf(v)
	if err != nil {
		return 0, err
	}
	if in.isDir {
		return 0, errno.New("fatfs.Write", errno.EISDIR)
	}
	if in.attr&attrRDO != 0 {
		return 0, errno.New("fatfs.Write", errno.EPERM)
	}
	vol := in.SB.Vol
	if vol.readOnly {
		return 0, toErrno("fatfs.Write", frWriteProtected)
	}
	vol.lockFS.Lock()
	defer vol.lockFS.Unlock()

	n := 0
	for n < len(p) {
		pos := offset + int64(n)
		cluster, cerr := in.clusterForOffset(vol, pos)
		if cerr != nil {
			prev := in.startCluster
			if len(in.fastSeek) > 0 {
				prev = in.fastSeek[len(in.fastSeek)-1]
			}
			newC, aerr := vol.createChainLocked(prev)
			if aerr != nil {
				return n, aerr
			}
			if newC == 0 {
				return n, toErrno("fatfs.Write", frNotEnoughCore)
			}
			if in.startCluster == 0 {
				in.startCluster = newC
			}
			in.fastSeek = append(in.fastSeek, newC)
			cluster = newC
		}

		clusterOff := pos % int64(vol.clusterBytes())
		sector := vol.clusterToSector(cluster) + uint32(clusterOff/int64(vol.bytsPerSec))
		secOff := int(clusterOff % int64(vol.bytsPerSec))
		chunk := int(vol.bytsPerSec) - secOff
		if left := len(p) - n; chunk > left {
			chunk = left
		}

		buf := make([]byte, vol.bytsPerSec)
		if secOff != 0 || chunk != int(vol.bytsPerSec) {
			if derr := vol.disk.ReadSector(sector, buf); derr != nil {
				return n, toErrno("fatfs.Write", frDiskErr)
			}
		}
		copy(buf[secOff:secOff+chunk], p[n:n+chunk])
		if derr := vol.disk.WriteSector(sector, buf); derr != nil {
			return n, toErrno("fatfs.Write", frDiskErr)
		}
		n += chunk
	}

	endOffset := offset + int64(n)
	if endOffset > int64(in.size) {
		in.size = uint32(endOffset)
		v.SetSize(endOffset)
	}
	if err := in.flushDirEntryLocked(vol); err != nil {
		return n, err
	}
	return n, nil
}

// flushDirEntryLocked rewrites in's own directory entry (size, start
// cluster, write time/date, archive bit), the effect f_sync has in
// spec.md §4.6. Caller holds vol.lockFS.
func (in *Inode) flushDirEntryLocked(vol *Volume) error {
	if in.isDir {
		return nil
	}
	wt, wd := toFATTime(vol.sb.Clock.Now())
	e, err := vol.readSlotLocked(in.parentLoc, in.entrySlot)
	if err != nil {
		return err
	}
	e.setCluster(in.startCluster)
	e.setFileSize(in.size)
	e.setWrtTimeDate(wt, wd)
	in.attr |= attrARC
	e.setAttr(in.attr)
	return vol.writeSlotLocked(in.parentLoc, in.entrySlot, e)
}

func (vnodeOps) Truncate(v *vfs.Vnode, size int64) error {
	in, err := inodeOf(v)
	if err != nil {
		return err
	}
	if in.isDir {
		return errno.New("fatfs.Truncate", errno.EISDIR)
	}
	if in.attr&attrRDO != 0 {
		return errno.New("fatfs.Truncate", errno.EPERM)
	}
	vol := in.SB.Vol
	vol.lockFS.Lock()
	defer vol.lockFS.Unlock()

	switch {
	case size == 0:
		if in.startCluster != 0 {
			if err := vol.removeChainLocked(in.startCluster); err != nil {
				return err
			}
		}
		in.startCluster = 0
		in.fastSeek = nil
	case size > int64(in.size):
		// Grow: walk/extend the chain up to the last cluster the new
		// size requires, without touching already-written bytes.
		needed := (size + int64(vol.clusterBytes()) - 1) / int64(vol.clusterBytes())
		for int64(len(in.fastSeek)) < needed {
			if _, err := in.clusterForOffset(vol, int64(len(in.fastSeek))*int64(vol.clusterBytes())); err == nil {
				continue
			}
			prev := in.startCluster
			if len(in.fastSeek) > 0 {
				prev = in.fastSeek[len(in.fastSeek)-1]
			}
			newC, aerr := vol.createChainLocked(prev)
			if aerr != nil {
				return aerr
			}
			if newC == 0 {
				return toErrno("fatfs.Truncate", frNotEnoughCore)
			}
			if in.startCluster == 0 {
				in.startCluster = newC
			}
			in.fastSeek = append(in.fastSeek, newC)
		}
	default:
		// Shrink: free every cluster beyond the last one the new size
		// still needs.
		needed := (size + int64(vol.clusterBytes()) - 1) / int64(vol.clusterBytes())
		if needed == 0 {
			if in.startCluster != 0 {
				if err := vol.removeChainLocked(in.startCluster); err != nil {
					return err
				}
			}
			in.startCluster = 0
			in.fastSeek = nil
		} else if cluster, cerr := in.clusterForOffset(vol, (needed-1)*int64(vol.clusterBytes())); cerr == nil {
			next, gerr := vol.getFATEntry(cluster)
			if gerr != nil {
				return gerr
			}
			if !isEOC(vol.fatType, next) && next >= 2 {
				if err := vol.setFATEntry(cluster, vol.eocValue()); err != nil {
					return err
				}
				if err := vol.removeChainLocked(next); err != nil {
					return err
				}
			}
			if int64(len(in.fastSeek)) > needed {
				in.fastSeek = in.fastSeek[:needed]
			}
		}
	}

	in.size = uint32(size)
	v.SetSize(size)
	return in.flushDirEntryLocked(vol)
}

func (vnodeOps) Chmod(v *vfs.Vnode, mode fs.FileMode) error {
	in, err := inodeOf(v)
	if err != nil {
		return err
	}
	vol := in.SB.Vol
	vol.lockFS.Lock()
	in.attr = (in.attr &^ attrRDO) | modeToAttr(mode)&attrRDO
	vol.lockFS.Unlock()

	v.SetMode(mode)
	if !in.isDir {
		e, err := vol.readSlot(in.parentLoc, in.entrySlot)
		if err != nil {
			return err
		}
		e.setAttr(in.attr)
		return vol.writeSlot(in.parentLoc, in.entrySlot, e)
	}
	return nil
}

func (vnodeOps) Chown(v *vfs.Vnode, uid, gid uint32) error {
	// FAT has no uid/gid concept on disk; accepted as a no-op so VFS's
	// chown syscall still succeeds (spec.md names no FAT-specific
	// behaviour here).
	return nil
}

func (vnodeOps) Chflags(v *vfs.Vnode, flags uint32) error {
	return nil
}

func (vnodeOps) Getattr(v *vfs.Vnode) (vfs.Stat, error) {
	in, err := inodeOf(v)
	if err != nil {
		return vfs.Stat{}, err
	}
	return vfs.Stat{
		Ino:   v.Ino,
		Mode:  v.Mode(),
		Size:  v.Size(),
		Nlink: 1,
	}, nil
}
