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
	"github.com/tinykern/tinykern/internal/sysctl"
	"github.com/tinykern/tinykern/internal/vm"
)

func (t *Table) registerSysctl() {
	t.register(SysctlCall, sysctlCall)
}

// sysctlCall implements the SYSCTL syscall's wire format from spec.md §6:
// args = {name_ptr, namelen, oldptr, oldlenp, newptr, newlen}. namelen
// counts 32-bit oid components (not bytes); oldlenp points at a uint64
// holding the caller's buffer capacity on entry and the value written on
// exit.
func sysctlCall(ctx *Context, args Args) (uintptr, error) {
	namePtr, nameLen := args[0], args[1]
	oldPtr, oldLenPtr := args[2], args[3]
	newPtr, newLen := args[4], args[5]

	if nameLen == 0 {
		return 0, errno.New("syscall.Sysctl", errno.EINVAL)
	}

	nameBuf := make([]byte, nameLen*4)
	if err := vm.Copyin(ctx.Proc.MM, namePtr, nameBuf); err != nil {
		return 0, err
	}
	ids := make([]int32, nameLen)
	for i := range ids {
		o := i * 4
		ids[i] = int32(nameBuf[o]) | int32(nameBuf[o+1])<<8 | int32(nameBuf[o+2])<<16 | int32(nameBuf[o+3])<<24
	}

	node, err := ctx.Sysctl.NodeByOid(ids)
	if err != nil {
		return 0, err
	}

	req := &sysctl.Req{Cred: ctx.Proc.Cred()}
	var result []byte
	if newPtr != 0 && newLen != 0 {
		req.NewBuf = make([]byte, newLen)
		if err := vm.Copyin(ctx.Proc.MM, newPtr, req.NewBuf); err != nil {
			return 0, err
		}
		result, err = ctx.Sysctl.Set(node, req)
	} else {
		result, err = ctx.Sysctl.Get(node, req)
	}
	if err != nil {
		return 0, err
	}

	if oldPtr == 0 {
		return 0, nil
	}

	capBuf := make([]byte, 8)
	if err := vm.Copyin(ctx.Proc.MM, oldLenPtr, capBuf); err != nil {
		return 0, err
	}
	capacity := getU64(capBuf)
	n := uint64(len(result))
	if n > capacity {
		n = capacity
	}
	if n > 0 {
		if err := vm.Copyout(ctx.Proc.MM, oldPtr, result[:n]); err != nil {
			return 0, err
		}
	}
	outLen := make([]byte, 8)
	putU64(outLen, uint64(len(result)))
	if err := vm.Copyout(ctx.Proc.MM, oldLenPtr, outLen); err != nil {
		return 0, err
	}

	return 0, nil
}
