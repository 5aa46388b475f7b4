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
)

func (t *Table) registerSched() {
	t.register(SchedGetpriority, schedGetpriority)
	t.register(SchedSetpriority, schedSetpriority)
}

func schedGetpriority(ctx *Context, args Args) (uintptr, error) {
	return uintptr(ctx.Thread.GetPriority()), nil
}

// schedSetpriority bounds the requested priority to
// [PriorityLow, PriorityRealtime-1]; this call never grants realtime
// scheduling, and no other syscall in the table does either.
func schedSetpriority(ctx *Context, args Args) (uintptr, error) {
	pri := int(args[0])
	if pri < proc.PriorityLow || pri >= proc.PriorityRealtime {
		return 0, errno.New("syscall.SetPriority", errno.EINVAL)
	}
	ctx.Thread.SetPriority(pri)
	return 0, nil
}
