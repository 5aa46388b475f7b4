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
	"io/fs"

	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/vfs"
)

type vnodeOps struct{}

func inodeOf(v *vfs.Vnode) (*Inode, error) {
	in, ok := v.Data.(*Inode)
	if !ok {
		return nil, fmt.Errorf("ramfs: vnode %d has no ramfs inode", v.Ino)
	}
	return in, nil
}

func (vnodeOps) Lookup(parent *vfs.Vnode, name string) (*vfs.Vnode, error) {
	in, err := inodeOf(parent)
	if err != nil {
		return nil, err
	}
	in.mu.RLock()
	ent, ok := in.dir[name]
	in.mu.RUnlock()
	if !ok {
		if name == ".." {
			// lookupVnode escapes a mount root only when Lookup("..")
			// returns EDOM; every ramfs directory carries a ".." entry
			// (the root's names itself), so a missing one is a plain
			// ENOENT, not EDOM.
			return nil, errno.New("ramfs.Lookup", errno.ENOENT)
		}
		return nil, errno.New("ramfs.Lookup", errno.ENOENT)
	}

	child := in.SB.lookupVnode(ent.Ino)
	if child == nil {
		return nil, fmt.Errorf("ramfs: Lookup: dangling dirent %q -> ino %d", name, ent.Ino)
	}
	if err := vfs.Vref(child); err != nil {
		return nil, err
	}
	in.touchAtime()
	return child, nil
}

func (vnodeOps) Create(parent *vfs.Vnode, name string, mode fs.FileMode) (*vfs.Vnode, error) {
	in, err := inodeOf(parent)
	if err != nil {
		return nil, err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if _, exists := in.dir[name]; exists {
		return nil, errno.New("ramfs.Create", errno.EEXIST)
	}

	child := newInode(in.SB, mode&fs.ModePerm)
	in.dir[name] = vfs.Dirent{Name: name, Ino: child.Vnode.Ino, Type: 0}
	in.mtime = now(in.SB.Clock)
	in.ctime = in.mtime

	if err := vfs.Vref(child.Vnode); err != nil {
		return nil, err
	}
	return child.Vnode, nil
}

func (vnodeOps) Mkdir(parent *vfs.Vnode, name string, mode fs.FileMode) (*vfs.Vnode, error) {
	in, err := inodeOf(parent)
	if err != nil {
		return nil, err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if _, exists := in.dir[name]; exists {
		return nil, errno.New("ramfs.Mkdir", errno.EEXIST)
	}

	child := newInode(in.SB, (mode&fs.ModePerm)|fs.ModeDir)
	child.dir["."] = vfs.Dirent{Name: ".", Ino: child.Vnode.Ino, Type: fs.ModeDir}
	child.dir[".."] = vfs.Dirent{Name: "..", Ino: parent.Ino, Type: fs.ModeDir}
	child.nlink = 2

	in.dir[name] = vfs.Dirent{Name: name, Ino: child.Vnode.Ino, Type: fs.ModeDir}
	in.nlink++
	in.mtime = now(in.SB.Clock)
	in.ctime = in.mtime

	if err := vfs.Vref(child.Vnode); err != nil {
		return nil, err
	}
	return child.Vnode, nil
}

func (vnodeOps) Rmdir(parent *vfs.Vnode, name string) error {
	if name == "." || name == ".." {
		return errno.New("ramfs.Rmdir", errno.EINVAL)
	}
	in, err := inodeOf(parent)
	if err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	ent, ok := in.dir[name]
	if !ok {
		return errno.New("ramfs.Rmdir", errno.ENOENT)
	}
	childV := in.SB.lookupVnode(ent.Ino)
	if childV == nil {
		return fmt.Errorf("ramfs: Rmdir: dangling dirent")
	}
	if !childV.IsDir() {
		return errno.New("ramfs.Rmdir", errno.ENOTDIR)
	}
	childIn, err := inodeOf(childV)
	if err != nil {
		return err
	}

	childIn.mu.RLock()
	empty := len(childIn.dir) <= 2
	childIn.mu.RUnlock()
	if !empty {
		return errno.New("ramfs.Rmdir", errno.ENOTEMPTY)
	}
	// spec.md: refuse mount points, detected by NextMountpoint != self.
	if vfs.GetTopVnode(childV) != childV {
		return errno.New("ramfs.Rmdir", errno.EBUSY)
	}

	delete(in.dir, name)
	in.nlink--
	in.mtime = now(in.SB.Clock)
	in.ctime = in.mtime

	return vfs.Vrele(childV)
}

func (vnodeOps) Unlink(parent *vfs.Vnode, name string) error {
	in, err := inodeOf(parent)
	if err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	ent, ok := in.dir[name]
	if !ok {
		return errno.New("ramfs.Unlink", errno.ENOENT)
	}
	childV := in.SB.lookupVnode(ent.Ino)
	if childV == nil {
		return fmt.Errorf("ramfs: Unlink: dangling dirent")
	}
	childIn, err := inodeOf(childV)
	if err != nil {
		return err
	}

	delete(in.dir, name)
	in.mtime = now(in.SB.Clock)
	in.ctime = in.mtime

	childIn.mu.Lock()
	childIn.nlink--
	childIn.mu.Unlock()

	return vfs.Vrele(childV)
}

func (vnodeOps) Link(parent *vfs.Vnode, name string, target *vfs.Vnode) error {
	in, err := inodeOf(parent)
	if err != nil {
		return err
	}
	targetIn, err := inodeOf(target)
	if err != nil {
		return err
	}

	in.mu.Lock()
	if _, exists := in.dir[name]; exists {
		in.mu.Unlock()
		return errno.New("ramfs.Link", errno.EEXIST)
	}
	in.dir[name] = vfs.Dirent{Name: name, Ino: target.Ino, Type: target.Mode().Type()}
	in.mtime = now(in.SB.Clock)
	in.ctime = in.mtime
	in.mu.Unlock()

	targetIn.mu.Lock()
	targetIn.nlink++
	targetIn.mu.Unlock()

	return vfs.Vref(target)
}

func (o vnodeOps) Rename(oldParent *vfs.Vnode, oldName string, newParent *vfs.Vnode, newName string) error {
	target, err := o.Lookup(oldParent, oldName)
	if err != nil {
		return err
	}
	defer vfs.Vrele(target)
	if err := o.Link(newParent, newName, target); err != nil {
		return err
	}
	return o.Unlink(oldParent, oldName)
}

func (vnodeOps) Readdir(dir *vfs.Vnode) ([]vfs.Dirent, error) {
	in, err := inodeOf(dir)
	if err != nil {
		return nil, err
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]vfs.Dirent, 0, len(in.dir))
	for _, ent := range in.dir {
		out = append(out, ent)
	}
	in.touchAtime()
	return out, nil
}

func (vnodeOps) Read(v *vfs.Vnode, offset int64, p []byte) (int, error) {
	in, err := inodeOf(v)
	if err != nil {
		return 0, err
	}
	in.mu.RLock()
	defer in.mu.RUnlock()

	size := v.Size()
	if offset >= size {
		return 0, nil
	}
	remaining := int(size - offset)
	if remaining > len(p) {
		remaining = len(p)
	}

	n := 0
	for n < remaining {
		blockIdx := int((offset + int64(n)) / BlockSize)
		blockOff := int((offset + int64(n)) % BlockSize)
		if blockIdx >= len(in.blocks) {
			break
		}
		chunk := BlockSize - blockOff
		if left := remaining - n; chunk > left {
			chunk = left
		}
		copy(p[n:n+chunk], in.blocks[blockIdx][blockOff:blockOff+chunk])
		n += chunk
	}

	in.touchAtime()
	return n, nil
}

func (vnodeOps) Write(v *vfs.Vnode, offset int64, p []byte) (int, error) {
	in, err := inodeOf(v)
	if err != nil {
		return 0, err
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	endOffset := offset + int64(len(p))
	if endOffset > v.Size() {
		if err := growLocked(in, v, endOffset); err != nil {
			// Partial extension failure ends the transfer early,
			// returning the bytes actually written so far.
			return 0, err
		}
	}

	n := 0
	for n < len(p) {
		blockIdx := int((offset + int64(n)) / BlockSize)
		blockOff := int((offset + int64(n)) % BlockSize)
		if blockIdx >= len(in.blocks) {
			break
		}
		chunk := BlockSize - blockOff
		if left := len(p) - n; chunk > left {
			chunk = left
		}
		copy(in.blocks[blockIdx][blockOff:blockOff+chunk], p[n:n+chunk])
		n += chunk
	}

	in.mtime = now(in.SB.Clock)
	in.ctime = in.mtime
	return n, nil
}

// growLocked grows the block array to cover size bytes, allocating new
// zeroed blocks as needed. Caller holds in.mu.
func growLocked(in *Inode, v *vfs.Vnode, size int64) error {
	wantBlocks := int((size + BlockSize - 1) / BlockSize)
	for len(in.blocks) < wantBlocks {
		in.blocks = append(in.blocks, make([]byte, BlockSize))
	}
	v.SetSize(size)
	return nil
}

func (vnodeOps) Truncate(v *vfs.Vnode, size int64) error {
	in, err := inodeOf(v)
	if err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	if size == 0 {
		in.blocks = nil
		v.SetSize(0)
	} else if size > v.Size() {
		if err := growLocked(in, v, size); err != nil {
			return err
		}
	} else {
		// Partial shrink (0 < size < current size) is not implemented:
		// the block array is left as-is and only the reported length
		// changes. See DESIGN.md (ramfs_set_filesize TODO in the
		// original source).
		v.SetSize(size)
	}

	in.mtime = now(in.SB.Clock)
	in.ctime = in.mtime
	return nil
}

func (vnodeOps) Chmod(v *vfs.Vnode, mode fs.FileMode) error {
	in, err := inodeOf(v)
	if err != nil {
		return err
	}
	v.SetMode(mode)
	in.touchCtime()
	return nil
}

func (vnodeOps) Chown(v *vfs.Vnode, uid, gid uint32) error {
	in, err := inodeOf(v)
	if err != nil {
		return err
	}
	in.mu.Lock()
	in.uid = uid
	in.gid = gid
	in.mu.Unlock()
	in.touchCtime()
	return nil
}

func (vnodeOps) Chflags(v *vfs.Vnode, flags uint32) error {
	in, err := inodeOf(v)
	if err != nil {
		return err
	}
	in.touchCtime()
	return nil
}

func (vnodeOps) Getattr(v *vfs.Vnode) (vfs.Stat, error) {
	in, err := inodeOf(v)
	if err != nil {
		return vfs.Stat{}, err
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	return vfs.Stat{
		Ino:   v.Ino,
		Mode:  v.Mode(),
		Size:  v.Size(),
		Nlink: in.nlink,
		Uid:   in.uid,
		Gid:   in.gid,
	}, nil
}
