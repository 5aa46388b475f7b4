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
	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/vfs"
)

// Getrlimit returns p's limit pair for resource which.
func Getrlimit(p *Process, which int) (Rlimit, error) {
	if which < 0 || which >= rlimitCount {
		return Rlimit{}, errno.New("proc.Getrlimit", errno.EINVAL)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Rlimits[which], nil
}

// Setrlimit installs new as p's limit pair for resource which. Raising
// the hard ceiling requires PrivSetrlimit; lowering either value, or
// raising the soft value up to the existing hard ceiling, is always
// permitted. The new soft value may never exceed the new hard value.
func Setrlimit(p *Process, which int, new Rlimit) error {
	if which < 0 || which >= rlimitCount {
		return errno.New("proc.Setrlimit", errno.EINVAL)
	}
	if new.Cur > new.Max {
		return errno.New("proc.Setrlimit", errno.EINVAL)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cur := p.Rlimits[which]
	if new.Max > cur.Max && !p.Cred().Has(vfs.PrivSetrlimit) {
		return errno.New("proc.Setrlimit", errno.EPERM)
	}

	p.Rlimits[which] = new
	if which == RlimitNoFile {
		// The fd table itself is sized at process creation; shrinking or
		// growing a live table is out of scope (see DESIGN.md).
		_ = p.fds
	}
	return nil
}
