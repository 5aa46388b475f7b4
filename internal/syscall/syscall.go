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

// Package syscall is the numeric dispatch layer: per-subsystem jump
// tables (PROC_*, SCHED_*, FS_*, SYSCTL_*) that translate a syscall id
// and six register-style arguments into a call against proc/vfs/sysctl,
// marshalling through vm.Copyin/Copyout exactly as a real syscall
// boundary would.
package syscall

import (
	"fmt"

	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/proc"
	"github.com/tinykern/tinykern/internal/sysctl"
)

// ID is a syscall number. The high nibble selects the subsystem jump
// table; the low bits are a dense index within it.
type ID uint32

const (
	groupProc   ID = 0x1000
	groupSched  ID = 0x2000
	groupFS     ID = 0x3000
	groupSysctl ID = 0x4000
)

const (
	ProcFork ID = groupProc + iota
	ProcWait
	ProcExit
	ProcGetpid
	ProcGetppid
	ProcChdir
	ProcChroot
	ProcGetrlim
	ProcSetrlim
	ProcGetsid
	ProcSetsid
	ProcGetpgrp
	ProcSetpgid
	ProcGetlogin
	ProcSetlogin
)

const (
	SchedGetpriority ID = groupSched + iota
	SchedSetpriority
)

const (
	FSCreat ID = groupFS + iota
	FSMkdir
	FSRmdir
	FSUnlink
	FSChmod
	FSChown
	FSChflags
)

const (
	SysctlCall ID = groupSysctl + iota
)

// Args is the fixed six-register argument vector every syscall handler
// receives, mirroring a real syscall ABI's calling convention.
type Args [6]uintptr

// Context is the per-call environment a handler runs in.
type Context struct {
	Table  *proc.Table
	Groups *proc.GroupTable
	Sysctl *sysctl.Tree
	Proc   *proc.Process
	Thread *proc.Thread
}

// HandlerFunc executes one syscall, returning the value that would be
// placed in the return register.
type HandlerFunc func(ctx *Context, args Args) (uintptr, error)

// Table maps syscall ids to handlers.
type Table struct {
	handlers map[ID]HandlerFunc
}

// NewTable builds the dispatch table with every handler this kernel
// implements wired in.
func NewTable() *Table {
	t := &Table{handlers: make(map[ID]HandlerFunc)}
	t.registerProc()
	t.registerFS()
	t.registerSysctl()
	t.registerSched()
	return t
}

func (t *Table) register(id ID, h HandlerFunc) {
	t.handlers[id] = h
}

// Dispatch looks up id and invokes it, translating an unknown id into
// ENOTSUP the way an unrecognised syscall number does.
func (t *Table) Dispatch(ctx *Context, id ID, args Args) (uintptr, error) {
	h, ok := t.handlers[id]
	if !ok {
		return 0, errno.New(fmt.Sprintf("syscall.Dispatch(%#x)", uint32(id)), errno.ENOTSUP)
	}
	return h(ctx, args)
}
