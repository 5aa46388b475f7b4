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

import "sync"

// ThreadFlag is one of the per-thread scheduling flags spec.md §3 lists.
type ThreadFlag uint32

const (
	FlagInUse ThreadFlag = 1 << iota
	FlagExec
	FlagWait
	FlagKWorker
	FlagNoSig
	FlagInSys
	FlagDetach
	FlagStopped
)

// Policy is a thread's scheduling-policy field.
type Policy int

const (
	PolicyOther Policy = iota
	PolicyRealtime
)

// Priority levels. Lower numeric value is less favoured; "low" and
// "error" are named per spec.md's csw_ok/penalty-rule prose.
const (
	PriorityError   = 0 // lowest; assigned while sleeping
	PriorityLow     = 1 // the penalty-rule demotion target
	PriorityDefault = 10
	PriorityRealtime = 31
)

// Thread is the Go rendition of `thread`.
type Thread struct {
	mu sync.Mutex

	ID       int32
	Owner    *Process
	Flags    ThreadFlag
	Policy   Policy
	Priority int
	TSCounter int

	Errno int

	// heapIndex is maintained by container/heap's Fix/Push/Pop; callers
	// never set it directly.
	heapIndex int

	FirstChild, NextSibling *Thread // kernel worker chains
}

func (t *Thread) hasFlag(f ThreadFlag) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Flags&f != 0
}

func (t *Thread) setFlag(f ThreadFlag, on bool) {
	t.mu.Lock()
	if on {
		t.Flags |= f
	} else {
		t.Flags &^= f
	}
	t.mu.Unlock()
}

// GetPriority reads t.Priority under its lock.
func (t *Thread) GetPriority() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Priority
}

// SetPriority writes t.Priority under its lock; it does not reorder any
// heap t may currently be sitting in (callers holding the scheduler's
// own lock must heap.Fix after calling this).
func (t *Thread) SetPriority(pri int) {
	t.mu.Lock()
	t.Priority = pri
	t.mu.Unlock()
}

// MarkRunnable sets IN_USE and EXEC, the minimum flag state Enqueue
// expects; it does not itself insert t into any run queue.
func (t *Thread) MarkRunnable() {
	t.setFlag(FlagInUse, true)
	t.setFlag(FlagExec, true)
}

// csw_ok: IN_USE ∧ EXEC ∧ ¬WAIT ∧ ¬STOPPED.
func (t *Thread) cswOK() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Flags&FlagInUse == 0 || t.Flags&FlagExec == 0 {
		return false
	}
	if t.Flags&(FlagWait|FlagStopped) != 0 {
		return false
	}
	return true
}
