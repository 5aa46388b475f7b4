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
)

// GroupTable tracks live process groups and sessions by id, so setpgid
// and getsid can find or create them.
type GroupTable struct {
	mu       sync.Mutex
	groups   map[int32]*ProcessGroup
	sessions map[int32]*Session
}

// NewGroupTable returns an empty group/session registry.
func NewGroupTable() *GroupTable {
	return &GroupTable{groups: make(map[int32]*ProcessGroup), sessions: make(map[int32]*Session)}
}

// Setsid makes p the leader of a brand new session and process group
// sharing p's pid, detaching it from any controlling terminal. Fails
// with EPERM if p is already a process group leader, matching setsid(2).
func (gt *GroupTable) Setsid(p *Process) (int32, error) {
	gt.mu.Lock()
	defer gt.mu.Unlock()

	if p.Group != nil && p.Group.ID == p.ID {
		return 0, errno.New("proc.Setsid", errno.EPERM)
	}

	sess := &Session{ID: p.ID, LeaderPid: p.ID, CtlTTYFd: -1}
	grp := &ProcessGroup{ID: p.ID, Session: sess}
	gt.sessions[sess.ID] = sess
	gt.groups[grp.ID] = grp
	p.Group = grp
	return p.ID, nil
}

// Setpgid moves the process identified by pid (0 means p itself) into
// the group pgid (0 means "use pid as the new group's id"), creating the
// group only when pgid==0; a non-zero pgid naming a group that does not
// already exist in target's session is an error. It refuses to move a
// process that is not the caller itself or one of the caller's children,
// refuses to move a child that has already exec'd, refuses to move a
// session leader, and refuses to join a group in a different session,
// per setpgid(2) (spec.md §4.2, original_source/kern/proc.c's legality
// table).
func (gt *GroupTable) Setpgid(p *Process, target *Process, pid, pgid int32) error {
	if pid == 0 {
		pid = p.ID
	}
	if target != p && target.Parent != p {
		return errno.New("proc.Setpgid", errno.EPERM)
	}
	if target != p && target.Execed {
		return errno.New("proc.Setpgid", errno.EPERM)
	}
	if target.Group != nil && target.Group.Session != nil && target.Group.Session.LeaderPid == target.ID {
		return errno.New("proc.Setpgid", errno.EPERM)
	}

	gt.mu.Lock()
	defer gt.mu.Unlock()

	creating := pgid == 0
	if pgid == 0 {
		pgid = pid
	}

	grp, ok := gt.groups[pgid]
	if !ok {
		if !creating {
			return errno.New("proc.Setpgid", errno.ESRCH)
		}
		var sess *Session
		if target.Group != nil {
			sess = target.Group.Session
		}
		grp = &ProcessGroup{ID: pgid, Session: sess}
		gt.groups[pgid] = grp
	} else if target.Group != nil && grp.Session != target.Group.Session {
		return errno.New("proc.Setpgid", errno.EPERM)
	}

	target.Group = grp
	return nil
}

// Getpgrp returns p's own process group id.
func Getpgrp(p *Process) int32 {
	if p.Group == nil {
		return p.ID
	}
	return p.Group.ID
}

// Getsid returns target's session id.
func Getsid(target *Process) int32 {
	if target.Group == nil || target.Group.Session == nil {
		return target.ID
	}
	return target.Group.Session.ID
}

// Getlogin returns the login name recorded against p's session.
func Getlogin(p *Process) (string, error) {
	if p.Group == nil || p.Group.Session == nil {
		return "", errno.New("proc.Getlogin", errno.ENOTSUP)
	}
	return p.Group.Session.Login, nil
}

// Setlogin requires the CapSetlogin privilege and a session leader,
// truncating to MaxLoginLen the way the fixed-size session login buffer
// would.
func Setlogin(p *Process, name string) error {
	if p.Group == nil || p.Group.Session == nil || p.Group.Session.LeaderPid != p.ID {
		return errno.New("proc.Setlogin", errno.EPERM)
	}
	if !p.Cred().Has(vfs.PrivSetlogin) {
		return errno.New("proc.Setlogin", errno.EPERM)
	}
	if len(name) >= MaxLoginLen {
		name = name[:MaxLoginLen-1]
	}
	p.Group.Session.Login = name
	return nil
}
