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
	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/proc"
	"github.com/tinykern/tinykern/internal/vm"
)

// maxPathLen bounds any path string this layer copies in from user
// space, the same role MAXPATHLEN plays at the real syscall boundary.
const maxPathLen = 1024

func (t *Table) registerProc() {
	t.register(ProcFork, procFork)
	t.register(ProcWait, procWait)
	t.register(ProcExit, procExit)
	t.register(ProcGetpid, procGetpid)
	t.register(ProcGetppid, procGetppid)
	t.register(ProcChdir, fsChdir)
	t.register(ProcChroot, fsChroot)
	t.register(ProcGetrlim, procGetrlim)
	t.register(ProcSetrlim, procSetrlim)
	t.register(ProcGetsid, procGetsid)
	t.register(ProcSetsid, procSetsid)
	t.register(ProcGetpgrp, procGetpgrp)
	t.register(ProcSetpgid, procSetpgid)
	t.register(ProcGetlogin, procGetlogin)
	t.register(ProcSetlogin, procSetlogin)
}

func procFork(ctx *Context, args Args) (uintptr, error) {
	child, err := ctx.Table.Fork(ctx.Proc)
	if err != nil {
		return 0, err
	}
	return uintptr(child.ID), nil
}

// procWait implements the WAIT syscall: args[0] is the target pid
// (signed, so -1 means "any child"), args[1] is the WaitOptions bitmask
// (bit 0 = WNOHANG, bit 1 = WNOWAIT), args[2] is a user pointer to
// receive the encoded status word, or 0 to skip it.
func procWait(ctx *Context, args Args) (uintptr, error) {
	pid := int32(args[0])
	opts := proc.WaitOptions{
		NoHang: args[1]&0x1 != 0,
		NoWait: args[1]&0x2 != 0,
	}

	child, err := ctx.Table.Wait(ctx.Proc, pid, opts)
	if err != nil {
		return 0, err
	}
	if child == nil {
		return 0, nil // WNOHANG, nothing to reap yet
	}

	if args[2] != 0 {
		status := proc.EncodeStatus(child.ExitCode, child.ExitSiginfo)
		buf := []byte{byte(status), byte(status >> 8), byte(status >> 16), byte(status >> 24)}
		if err := vm.Copyout(ctx.Proc.MM, uintptr(args[2]), buf); err != nil {
			return 0, err
		}
	}
	return uintptr(child.ID), nil
}

func procExit(ctx *Context, args Args) (uintptr, error) {
	ctx.Table.Exit(ctx.Proc, int(args[0]), nil)
	return 0, nil
}

func procGetpid(ctx *Context, args Args) (uintptr, error) {
	return uintptr(ctx.Proc.ID), nil
}

func procGetppid(ctx *Context, args Args) (uintptr, error) {
	if ctx.Proc.Parent == nil {
		return 0, nil
	}
	return uintptr(ctx.Proc.Parent.ID), nil
}

func procGetrlim(ctx *Context, args Args) (uintptr, error) {
	which := int(args[0])
	rl, err := proc.Getrlimit(ctx.Proc, which)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 16)
	putU64(buf[0:8], rl.Cur)
	putU64(buf[8:16], rl.Max)
	if err := vm.Copyout(ctx.Proc.MM, args[1], buf); err != nil {
		return 0, err
	}
	return 0, nil
}

func procSetrlim(ctx *Context, args Args) (uintptr, error) {
	which := int(args[0])
	buf := make([]byte, 16)
	if err := vm.Copyin(ctx.Proc.MM, args[1], buf); err != nil {
		return 0, err
	}
	rl := proc.Rlimit{Cur: getU64(buf[0:8]), Max: getU64(buf[8:16])}
	return 0, proc.Setrlimit(ctx.Proc, which, rl)
}

func procGetsid(ctx *Context, args Args) (uintptr, error) {
	target := ctx.Proc
	if args[0] != 0 {
		p, ok := ctx.Table.Get(int32(args[0]))
		if !ok {
			return 0, errno.New("syscall.GetSid", errno.ESRCH)
		}
		target = p
	}
	return uintptr(proc.Getsid(target)), nil
}

func procSetsid(ctx *Context, args Args) (uintptr, error) {
	sid, err := ctx.Groups.Setsid(ctx.Proc)
	return uintptr(sid), err
}

func procGetpgrp(ctx *Context, args Args) (uintptr, error) {
	return uintptr(proc.Getpgrp(ctx.Proc)), nil
}

func procSetpgid(ctx *Context, args Args) (uintptr, error) {
	pid, pgid := int32(args[0]), int32(args[1])
	target := ctx.Proc
	if pid != 0 {
		p, ok := ctx.Table.Get(pid)
		if !ok {
			return 0, errno.New("syscall.Setpgid", errno.ESRCH)
		}
		target = p
	}
	return 0, ctx.Groups.Setpgid(ctx.Proc, target, pid, pgid)
}

func procGetlogin(ctx *Context, args Args) (uintptr, error) {
	name, err := proc.Getlogin(ctx.Proc)
	if err != nil {
		return 0, err
	}
	return 0, vm.CopyoutStr(ctx.Proc.MM, args[0], name, int(args[1]))
}

func procSetlogin(ctx *Context, args Args) (uintptr, error) {
	name, err := vm.CopyinStr(ctx.Proc.MM, args[0], proc.MaxLoginLen)
	if err != nil {
		return 0, err
	}
	return 0, proc.Setlogin(ctx.Proc, name)
}

func putU64(b []byte, v uint64) {
	for i := range b {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

func getU64(b []byte) uint64 {
	var v uint64
	for i := range b {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v
}
