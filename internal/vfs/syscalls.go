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

import (
	"fmt"
	"io/fs"

	"github.com/tinykern/tinykern/internal/errno"
)

// Creat resolves the parent of path and creates a regular file in it
// after checking write permission on the parent. It is fs_creat.
func Creat(p ProcCtx, path string, mode fs.FileMode, fd int) (*Vnode, error) {
	parent, name, err := NameiParent(p, path, fd, 0)
	if err != nil {
		return nil, fmt.Errorf("vfs: Creat: %w", err)
	}
	defer Vrele(parent)

	st, err := parent.Ops.Getattr(parent)
	if err != nil {
		return nil, fmt.Errorf("vfs: Creat: %w", err)
	}
	if err := Chkperm(st, p.Cred(), AccessWrite); err != nil {
		return nil, fmt.Errorf("vfs: Creat: %w", err)
	}

	return parent.Ops.Create(parent, name, mode&(fs.ModePerm))
}

// Link creates name in parent(path) pointing at target, refusing a
// filesystem-spanning link with EXDEV. It is fs_link.
func Link(p ProcCtx, target *Vnode, path string, fd int) error {
	parent, name, err := NameiParent(p, path, fd, 0)
	if err != nil {
		return fmt.Errorf("vfs: Link: %w", err)
	}
	defer Vrele(parent)

	if parent.SB != target.SB {
		return errno.New("vfs.Link", errno.EXDEV)
	}

	st, err := parent.Ops.Getattr(parent)
	if err != nil {
		return fmt.Errorf("vfs: Link: %w", err)
	}
	if err := Chkperm(st, p.Cred(), AccessWrite); err != nil {
		return fmt.Errorf("vfs: Link: %w", err)
	}

	return parent.Ops.Link(parent, name, target)
}

// Unlink removes name from parent(path). Unlinking a directory is
// permitted only to uid 0. It is fs_unlink.
func Unlink(p ProcCtx, path string, fd int) error {
	parent, name, err := NameiParent(p, path, fd, 0)
	if err != nil {
		return fmt.Errorf("vfs: Unlink: %w", err)
	}
	defer Vrele(parent)

	st, err := parent.Ops.Getattr(parent)
	if err != nil {
		return fmt.Errorf("vfs: Unlink: %w", err)
	}
	if err := Chkperm(st, p.Cred(), AccessWrite); err != nil {
		return fmt.Errorf("vfs: Unlink: %w", err)
	}

	child, err := parent.Ops.Lookup(parent, name)
	if err != nil {
		return fmt.Errorf("vfs: Unlink: %w", err)
	}
	defer Vrele(child)
	if child.IsDir() && p.Cred().Uid != 0 {
		return errno.New("vfs.Unlink", errno.EPERM)
	}

	return parent.Ops.Unlink(parent, name)
}

// Mkdir creates a directory named by path after checking write
// permission on its parent. It is fs_mkdir.
func Mkdir(p ProcCtx, path string, mode fs.FileMode, fd int) (*Vnode, error) {
	parent, name, err := NameiParent(p, path, fd, 0)
	if err != nil {
		return nil, fmt.Errorf("vfs: Mkdir: %w", err)
	}
	defer Vrele(parent)

	st, err := parent.Ops.Getattr(parent)
	if err != nil {
		return nil, fmt.Errorf("vfs: Mkdir: %w", err)
	}
	if err := Chkperm(st, p.Cred(), AccessWrite); err != nil {
		return nil, fmt.Errorf("vfs: Mkdir: %w", err)
	}

	return parent.Ops.Mkdir(parent, name, (mode&fs.ModePerm)|fs.ModeDir)
}

// Rmdir removes the (empty) directory named by path. It is fs_rmdir.
func Rmdir(p ProcCtx, path string, fd int) error {
	parent, name, err := NameiParent(p, path, fd, 0)
	if err != nil {
		return fmt.Errorf("vfs: Rmdir: %w", err)
	}
	defer Vrele(parent)

	st, err := parent.Ops.Getattr(parent)
	if err != nil {
		return fmt.Errorf("vfs: Rmdir: %w", err)
	}
	if err := Chkperm(st, p.Cred(), AccessWrite); err != nil {
		return fmt.Errorf("vfs: Rmdir: %w", err)
	}

	return parent.Ops.Rmdir(parent, name)
}

// Chmod changes the permission bits of the vnode named by path.
func Chmod(p ProcCtx, path string, mode fs.FileMode, fd int) error {
	v, err := Namei(p, path, fd, 0)
	if err != nil {
		return fmt.Errorf("vfs: Chmod: %w", err)
	}
	defer Vrele(v)

	st, err := v.Ops.Getattr(v)
	if err != nil {
		return fmt.Errorf("vfs: Chmod: %w", err)
	}
	if p.Cred().Uid != st.Uid && p.Cred().Uid != 0 {
		return errno.New("vfs.Chmod", errno.EPERM)
	}

	return v.Ops.Chmod(v, mode&fs.ModePerm)
}

// Chflags changes the flags of the vnode named by path; requires the
// SYSFLAGS privilege.
func Chflags(p ProcCtx, path string, flags uint32, fd int) error {
	if !p.Cred().Has(PrivSysFlags) {
		return errno.New("vfs.Chflags", errno.EPERM)
	}
	v, err := Namei(p, path, fd, 0)
	if err != nil {
		return fmt.Errorf("vfs: Chflags: %w", err)
	}
	defer Vrele(v)
	return v.Ops.Chflags(v, flags)
}

// Chown changes the owner/group of the vnode named by path.
func Chown(p ProcCtx, path string, uid, gid uint32, fd int) error {
	v, err := Namei(p, path, fd, 0)
	if err != nil {
		return fmt.Errorf("vfs: Chown: %w", err)
	}
	defer Vrele(v)

	st, err := v.Ops.Getattr(v)
	if err != nil {
		return fmt.Errorf("vfs: Chown: %w", err)
	}
	if p.Cred().Uid != 0 && p.Cred().Uid != st.Uid {
		return errno.New("vfs.Chown", errno.EPERM)
	}

	return v.Ops.Chown(v, uid, gid)
}

// Chdir resolves path to a directory and installs it as p's cwd.
func Chdir(p ProcCtx, path string, fd int) error {
	v, err := Namei(p, path, fd, ODirectory)
	if err != nil {
		return fmt.Errorf("vfs: Chdir: %w", err)
	}

	st, err := v.Ops.Getattr(v)
	if err != nil {
		_ = Vrele(v)
		return fmt.Errorf("vfs: Chdir: %w", err)
	}
	if err := Chkperm(st, p.Cred(), AccessExec); err != nil {
		_ = Vrele(v)
		return fmt.Errorf("vfs: Chdir: %w", err)
	}

	old := p.CwdDir()
	p.SetCwdDir(v)
	if old != nil {
		_ = Vrele(old)
	}
	return nil
}

// Chroot resolves path to a directory and returns it, referenced;
// requires the VFS_CHROOT privilege. Installing it as the process root
// is left to the caller (the syscall layer's fsChroot does so).
func Chroot(p ProcCtx, path string, fd int) (*Vnode, error) {
	if !p.Cred().Has(PrivVFSChroot) {
		return nil, errno.New("vfs.Chroot", errno.EPERM)
	}
	v, err := Namei(p, path, fd, ODirectory)
	if err != nil {
		return nil, fmt.Errorf("vfs: Chroot: %w", err)
	}
	return v, nil
}
