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
	"fmt"

	"github.com/tinykern/tinykern/internal/vm"
)

// Well-known signal numbers this kernel core actually delivers.
const (
	SigSegv = 11
	SigBus  = 7
)

// HandleFault is the thread-level MMU fault entry point: it calls into
// vm.Abort and, when the abort handler cannot resolve the fault itself,
// terminates the owning process the way a delivered, uncaught SIGSEGV or
// SIGBUS would (spec.md's fault-handling contract leaves signal
// dispositions out of scope, so an uncaught fault is always fatal here).
func HandleFault(table *Table, t *Thread, addr uintptr, kind vm.FaultKind, write bool) error {
	p := t.Owner
	if p == nil || p.MM == nil {
		return fmt.Errorf("proc: HandleFault: thread has no owning address space")
	}

	sig, err := vm.Abort(p.MM, addr, kind, write)
	if err != nil {
		return fmt.Errorf("proc: HandleFault: %w", err)
	}
	if sig == vm.SigNone {
		return nil
	}

	signo := SigBus
	if sig == vm.SigSegv {
		signo = SigSegv
	}

	table.Exit(p, 0, &Siginfo{Signal: signo, CoreDump: true})
	t.setFlag(FlagInUse, false)
	return nil
}
