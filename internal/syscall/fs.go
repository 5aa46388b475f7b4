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

package syscall

import (
	"io/fs"

	"github.com/tinykern/tinykern/internal/vfs"
	"github.com/tinykern/tinykern/internal/vm"
)

func (t *Table) registerFS() {
	t.register(FSMkdir, fsMkdir)
	t.register(FSRmdir, fsRmdir)
	t.register(FSCreat, fsCreat)
	t.register(FSUnlink, fsUnlink)
	t.register(FSChmod, fsChmod)
	t.register(FSChown, fsChown)
	t.register(FSChflags, fsChflags)
}

// fdAtCwd is the fd argument value meaning "resolve relative to the
// caller's cwd", matching the AT_FDCWD convention the at(2) family uses.
const fdAtCwd = -100

func copyinPath(ctx *Context, uaddr uintptr) (string, error) {
	return vm.CopyinStr(ctx.Proc.MM, uaddr, maxPathLen)
}

func fsMkdir(ctx *Context, args Args) (uintptr, error) {
	path, err := copyinPath(ctx, args[0])
	if err != nil {
		return 0, err
	}
	_, err = vfs.Mkdir(ctx.Proc, path, fs.FileMode(args[1]), fdAtCwd)
	return 0, err
}

func fsRmdir(ctx *Context, args Args) (uintptr, error) {
	path, err := copyinPath(ctx, args[0])
	if err != nil {
		return 0, err
	}
	return 0, vfs.Rmdir(ctx.Proc, path, fdAtCwd)
}

func fsCreat(ctx *Context, args Args) (uintptr, error) {
	path, err := copyinPath(ctx, args[0])
	if err != nil {
		return 0, err
	}
	v, err := vfs.Creat(ctx.Proc, path, fs.FileMode(args[1]), fdAtCwd)
	if err != nil {
		return 0, err
	}
	fd := ctx.Proc.Files().NextFree(0)
	if err := vfs.Vref(v); err != nil {
		return 0, err
	}
	if err := ctx.Proc.Files().Install(fd, vfs.NewFile(v, 0)); err != nil {
		return 0, err
	}
	return uintptr(fd), nil
}

func fsUnlink(ctx *Context, args Args) (uintptr, error) {
	path, err := copyinPath(ctx, args[0])
	if err != nil {
		return 0, err
	}
	return 0, vfs.Unlink(ctx.Proc, path, fdAtCwd)
}

func fsChmod(ctx *Context, args Args) (uintptr, error) {
	path, err := copyinPath(ctx, args[0])
	if err != nil {
		return 0, err
	}
	return 0, vfs.Chmod(ctx.Proc, path, fs.FileMode(args[1]), fdAtCwd)
}

func fsChown(ctx *Context, args Args) (uintptr, error) {
	path, err := copyinPath(ctx, args[0])
	if err != nil {
		return 0, err
	}
	return 0, vfs.Chown(ctx.Proc, path, uint32(args[1]), uint32(args[2]), fdAtCwd)
}

func fsChflags(ctx *Context, args Args) (uintptr, error) {
	path, err := copyinPath(ctx, args[0])
	if err != nil {
		return 0, err
	}
	return 0, vfs.Chflags(ctx.Proc, path, uint32(args[1]), fdAtCwd)
}

func fsChdir(ctx *Context, args Args) (uintptr, error) {
	path, err := copyinPath(ctx, args[0])
	if err != nil {
		return 0, err
	}
	return 0, vfs.Chdir(ctx.Proc, path, fdAtCwd)
}

func fsChroot(ctx *Context, args Args) (uintptr, error) {
	path, err := copyinPath(ctx, args[0])
	if err != nil {
		return 0, err
	}
	v, err := vfs.Chroot(ctx.Proc, path, fdAtCwd)
	if err != nil {
		return 0, err
	}
	old := ctx.Proc.RootDir()
	ctx.Proc.SetRootDir(v)
	if old != nil {
		_ = vfs.Vrele(old)
	}
	return 0, nil
}
