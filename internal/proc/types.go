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

// Package proc is the process model and scheduler: process control
// blocks, the parent/child inheritance tree, process groups and
// sessions, credential and rlimit handling, fork/wait/exit, and the
// priority-heap scheduler with load-average calculation.
package proc

import (
	"sync"
	"time"

	"github.com/tinykern/tinykern/internal/vfs"
	"github.com/tinykern/tinykern/internal/vm"
)

// State is one of the process lifecycle states spec.md §3 names.
type State int

const (
	StateInitial State = iota
	StateRunning
	StateReady
	StateWaiting
	StateStopped
	StateZombie
	StateDefunct
)

func (s State) String() string {
	return [...]string{"INITIAL", "RUNNING", "READY", "WAITING", "STOPPED", "ZOMBIE", "DEFUNCT"}[s]
}

// MaxProc bounds the process id space, as spec.md §3 requires.
const MaxProc = 1 << 16

// Resource limit indices (rlimit[i]).
const (
	RlimitCore = iota
	RlimitCPU
	RlimitData
	RlimitFSize
	RlimitNoFile
	RlimitStack
	RlimitAS
	rlimitCount
)

// Rlimit is a single soft/hard resource limit pair.
type Rlimit struct {
	Cur, Max uint64
}

// Unlimited marks an rlimit field as having no ceiling.
const Unlimited = ^uint64(0)

// Times accumulates a process's own and its reaped children's CPU time.
type Times struct {
	SelfUser, SelfSystem     time.Duration
	ChildUser, ChildSystem   time.Duration
}

// Siginfo records why a process died, for encoding into a wait() status.
type Siginfo struct {
	Signal   int
	CoreDump bool
}

// Process is the Go rendition of `proc`.
type Process struct {
	ID    int32
	state State
	Nice  int
	Name  string

	// Credentials.
	RealUid, EffUid, SavedUid uint32
	RealGid, EffGid, SavedGid uint32
	Groups                    []uint32
	Privileges                map[vfs.Privilege]bool

	rootDir, cwdDir *vfs.Vnode
	fds             *vfs.FdTable

	Group *ProcessGroup

	// Execed records whether p has called exec since it was forked, the
	// condition setpgid(2) (spec.md §4.2) checks before letting a parent
	// move a child into a different process group. No PROC_* syscall in
	// spec.md §6 covers exec, so only the tests call MarkExeced; the
	// field and check exist so GroupTable.Setpgid's
	// legality table already matches original_source/kern/proc.c and
	// needs no further change once exec lands.
	Execed bool

	// Inheritance tree, protected by inhMu (the process's own
	// inheritance lock, not the global proc lock).
	inhMu       sync.Mutex
	Parent      *Process
	FirstChild  *Process
	NextSibling *Process

	MM *vm.MM

	Rlimits [rlimitCount]Rlimit
	Times   Times

	MainThread *Thread

	ExitCode    int
	ExitSiginfo *Siginfo

	mu sync.Mutex
}

var _ vfs.ProcCtx = (*Process)(nil)

// Cred returns the vfs-facing view of p's effective credentials.
func (p *Process) Cred() *vfs.Credential {
	return &vfs.Credential{Uid: p.EffUid, Gid: p.EffGid, Groups: p.Groups, Privileges: p.Privileges}
}

func (p *Process) RootDir() *vfs.Vnode { return p.rootDir }
func (p *Process) CwdDir() *vfs.Vnode  { return p.cwdDir }
func (p *Process) SetCwdDir(v *vfs.Vnode) {
	p.mu.Lock()
	p.cwdDir = v
	p.mu.Unlock()
}

// SetRootDir installs v as p's root directory vnode, e.g. once at boot
// when pid 1 is wired to the freshly mounted root filesystem, or by
// chroot (spec.md §4.4). Callers own the ref they hand in.
func (p *Process) SetRootDir(v *vfs.Vnode) {
	p.mu.Lock()
	p.rootDir = v
	p.mu.Unlock()
}
func (p *Process) Files() *vfs.FdTable { return p.fds }

// MarkExeced records that p has exec'd, closing the window in which a
// parent may still move it to a different process group.
func (p *Process) MarkExeced() {
	p.mu.Lock()
	p.Execed = true
	p.mu.Unlock()
}

func (p *Process) DirVnodeForFd(fd int) (*vfs.Vnode, error) {
	f := p.fds.Get(fd)
	if f == nil {
		return nil, vfs.ErrBadFd(fd)
	}
	return f.Vnode, nil
}

// State returns p's current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Process) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// ProcessGroup is the POSIX process group spec.md §3 describes.
type ProcessGroup struct {
	ID      int32
	Session *Session
}

// Session records a session leader, controlling tty and login name.
type Session struct {
	ID        int32 // leader pid
	LeaderPid int32
	CtlTTYFd  int
	Login     string // bounded length; see MaxLoginLen
}

// MaxLoginLen bounds Session.Login, mirroring the fixed-size login name
// buffer of the source kernel.
const MaxLoginLen = 32
