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

package proc

import (
	"sync"

	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/vfs"
	"github.com/tinykern/tinykern/internal/vm"
)

// InitPid is the pid of the first process, the eventual adopter of every
// orphan (spec.md's "reparent to pid 1" rule).
const InitPid = 1

// Table is the global process table: pid allocation, the live process
// map, and orphan reparenting. It is the Go analogue of the kernel's
// static proc[MaxProc] array plus its freelist.
type Table struct {
	mu      sync.Mutex
	procs   map[int32]*Process
	nextPid int32
}

// NewTable builds an empty table. Callers install pid 1 themselves via
// Create before anything else runs.
func NewTable() *Table {
	return &Table{procs: make(map[int32]*Process), nextPid: InitPid}
}

func (t *Table) allocPid() (int32, error) {
	for i := int32(0); i < MaxProc; i++ {
		pid := t.nextPid
		t.nextPid++
		if t.nextPid >= MaxProc {
			t.nextPid = InitPid
		}
		if _, taken := t.procs[pid]; !taken {
			return pid, nil
		}
	}
	return 0, errno.New("proc.allocPid", errno.EAGAIN)
}

// Create allocates a pid and registers a bare process under parent
// (nil only for pid 1 itself).
func (t *Table) Create(parent *Process) (*Process, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pid, err := t.allocPid()
	if err != nil {
		return nil, err
	}

	p := &Process{
		ID:         pid,
		state:      StateInitial,
		Parent:     parent,
		Privileges: make(map[vfs.Privilege]bool),
	}
	p.Rlimits[RlimitNoFile] = Rlimit{Cur: 256, Max: 1024}
	p.Rlimits[RlimitCore] = Rlimit{Cur: 0, Max: Unlimited}
	for i := range p.Rlimits {
		if p.Rlimits[i] == (Rlimit{}) {
			p.Rlimits[i] = Rlimit{Cur: Unlimited, Max: Unlimited}
		}
	}
	p.fds = vfs.NewFdTable(int(p.Rlimits[RlimitNoFile].Cur))

	t.procs[pid] = p
	return p, nil
}

// Get looks up a live process by pid.
func (t *Table) Get(pid int32) (*Process, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.procs[pid]
	return p, ok
}

// Fork creates p's child: a new pid, a cloned address space (COW,
// delegated to vm.MM.Fork-equivalent semantics via region Clone ops),
// inherited credentials, rlimits and root/cwd. The child keeps the empty
// fd table Create gave it; the parent's open descriptors are not copied
// into it. It links the child into p's FirstChild/NextSibling
// inheritance chain (spec.md S3).
func (t *Table) Fork(parent *Process) (*Process, error) {
	child, err := t.Create(parent)
	if err != nil {
		return nil, err
	}

	child.RealUid, child.EffUid, child.SavedUid = parent.RealUid, parent.EffUid, parent.SavedUid
	child.RealGid, child.EffGid, child.SavedGid = parent.RealGid, parent.EffGid, parent.SavedGid
	child.Groups = append([]uint32(nil), parent.Groups...)
	for k, v := range parent.Privileges {
		child.Privileges[k] = v
	}
	child.Group = parent.Group
	child.rootDir = parent.rootDir
	child.cwdDir = parent.cwdDir
	child.Rlimits = parent.Rlimits

	if parent.rootDir != nil {
		vfs.Vref(parent.rootDir)
	}
	if parent.cwdDir != nil {
		vfs.Vref(parent.cwdDir)
	}

	if parent.MM != nil {
		childMM, err := vm.Fork(parent.MM)
		if err != nil {
			return nil, err
		}
		child.MM = childMM
	}

	parent.inhMu.Lock()
	child.NextSibling = parent.FirstChild
	parent.FirstChild = child
	parent.inhMu.Unlock()

	child.setState(StateReady)
	return child, nil
}

// WaitOptions mirrors the wait(2) option bits spec.md names.
type WaitOptions struct {
	NoHang  bool
	NoWait  bool
}

// Wait implements wait(pid, options): pid > 0 waits for that specific
// child; pid == -1 waits for any child. The spec leaves pid == 0 (wait
// for any child in the caller's process group) and pid < -1 (wait for
// any child in the named group) undecided; this kernel declines both
// rather than guess at process-group semantics, returning ENOTSUP.
func (t *Table) Wait(parent *Process, pid int32, opts WaitOptions) (*Process, error) {
	if pid == 0 || pid < -1 {
		return nil, errno.New("proc.Wait", errno.ENOTSUP)
	}

	parent.inhMu.Lock()
	var target *Process
	found := false
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if pid != -1 && c.ID != pid {
			continue
		}
		found = true
		if c.State() == StateZombie {
			target = c
			break
		}
	}
	if !found {
		parent.inhMu.Unlock()
		return nil, errno.New("proc.Wait", errno.ECHILD)
	}
	if target == nil {
		parent.inhMu.Unlock()
		if opts.NoHang {
			return nil, nil
		}
		return nil, errno.New("proc.Wait", errno.EAGAIN)
	}

	if !opts.NoWait {
		t.unlinkChildLocked(parent, target)
	}
	parent.inhMu.Unlock()

	if !opts.NoWait {
		t.mu.Lock()
		delete(t.procs, target.ID)
		t.mu.Unlock()
	}

	return target, nil
}

func (t *Table) unlinkChildLocked(parent, target *Process) {
	if parent.FirstChild == target {
		parent.FirstChild = target.NextSibling
		return
	}
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.NextSibling == target {
			c.NextSibling = target.NextSibling
			return
		}
	}
}

// Exit marks p a zombie, records its exit status, closes its resources
// and reparents its children to pid 1 (spec.md's orphan-adoption rule).
func (t *Table) Exit(p *Process, code int, si *Siginfo) {
	_ = p.fds.CloseAll(0)
	if p.MM != nil {
		_ = vm.Destroy(p.MM)
	}
	if p.cwdDir != nil {
		_ = vfs.Vrele(p.cwdDir)
	}
	if p.rootDir != nil {
		_ = vfs.Vrele(p.rootDir)
	}

	p.mu.Lock()
	p.ExitCode = code
	p.ExitSiginfo = si
	p.mu.Unlock()
	p.setState(StateZombie)

	initProc, ok := t.Get(InitPid)
	if !ok {
		return
	}

	p.inhMu.Lock()
	children := p.FirstChild
	p.FirstChild = nil
	p.inhMu.Unlock()

	if children == nil {
		return
	}

	initProc.inhMu.Lock()
	c := children
	for c != nil {
		next := c.NextSibling
		c.Parent = initProc
		c.NextSibling = initProc.FirstChild
		initProc.FirstChild = c
		c = next
	}
	initProc.inhMu.Unlock()
}

// EncodeStatus packs a wait() status word the way spec.md §3 describes:
// normal exit low byte << 8, or the signal number in the low 7 bits
// with bit 7 set on core dump, for abnormal termination.
func EncodeStatus(code int, si *Siginfo) int {
	if si == nil {
		return (code & 0xff) << 8
	}
	status := si.Signal & 0x7f
	if si.CoreDump {
		status |= 0x80
	}
	return status
}
