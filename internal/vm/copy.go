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

package vm

import (
	"bytes"

	"github.com/tinykern/tinykern/internal/errno"
)

// Useracc verifies that [addr, addr+len) lies entirely inside a single
// region of mm and that the region's user AP bits satisfy prot. It is
// useracc.
func Useracc(mm *MM, addr, length uintptr, prot Prot) (*Region, error) {
	mm.Lock()
	defer mm.Unlock()

	r, _ := mm.Find(addr)
	if r == nil {
		return nil, errno.New("useracc", errno.EFAULT)
	}
	if addr+length > r.End() {
		return nil, errno.New("useracc", errno.EFAULT)
	}
	if prot&ProtWrite != 0 && r.MMU.AP != APFull {
		return nil, errno.New("useracc", errno.EFAULT)
	}
	if prot&ProtRead != 0 && r.MMU.AP != APFull && r.MMU.AP != APReadOnly && r.MMU.AP != APKernelRWUserRO {
		return nil, errno.New("useracc", errno.EFAULT)
	}
	return r, nil
}

// translate maps a validated user virtual address to the kernel-visible
// slice backing it.
func translate(r *Region, addr, length uintptr) []byte {
	off := addr - r.Start()
	return r.MMU.Backing[off : off+length]
}

// Copyin copies len(dst) bytes from the calling process's address space
// at uaddr into dst.
func Copyin(mm *MM, uaddr uintptr, dst []byte) error {
	r, err := Useracc(mm, uaddr, uintptr(len(dst)), ProtRead)
	if err != nil {
		return err
	}
	mm.Lock()
	defer mm.Unlock()
	copy(dst, translate(r, uaddr, uintptr(len(dst))))
	return nil
}

// Copyout copies src into the calling process's address space at uaddr.
func Copyout(mm *MM, uaddr uintptr, src []byte) error {
	r, err := Useracc(mm, uaddr, uintptr(len(src)), ProtWrite)
	if err != nil {
		return err
	}
	mm.Lock()
	defer mm.Unlock()
	copy(translate(r, uaddr, uintptr(len(src))), src)
	return nil
}

// CopyinStr copies a NUL-terminated string from uaddr into a buffer of at
// most maxlen bytes, walking page-by-page and re-validating/re-translating
// on each page crossing. It returns ENAMETOOLONG (with the result
// truncated to maxlen-1 bytes, the last byte of the buffer being the
// terminator) if the buffer fills without finding a NUL.
func CopyinStr(mm *MM, uaddr uintptr, maxlen int) (string, error) {
	out := make([]byte, 0, maxlen)
	addr := uaddr

	for len(out) < maxlen {
		pageEnd := pageRoundUp(addr + 1)
		chunk := int(pageEnd - addr)
		if remaining := maxlen - len(out); chunk > remaining {
			chunk = remaining
		}

		r, err := Useracc(mm, addr, uintptr(chunk), ProtRead)
		if err != nil {
			return "", err
		}

		mm.Lock()
		buf := translate(r, addr, uintptr(chunk))
		if i := bytes.IndexByte(buf, 0); i >= 0 {
			out = append(out, buf[:i]...)
			mm.Unlock()
			return string(out), nil
		}
		out = append(out, buf...)
		mm.Unlock()

		addr += uintptr(chunk)
	}

	if len(out) > 0 {
		out = out[:len(out)-1]
	}
	return string(out), errno.New("copyinstr", errno.ENAMETOOLONG)
}

// CopyoutStr copies s, NUL-terminated, to uaddr, walking page-by-page as
// CopyinStr does. maxlen bounds the destination buffer including the
// terminator; if s does not fit, it is truncated and ENAMETOOLONG is
// returned with a terminating NUL still written.
func CopyoutStr(mm *MM, uaddr uintptr, s string, maxlen int) error {
	data := []byte(s)
	truncated := false
	if len(data)+1 > maxlen {
		data = data[:maxlen-1]
		truncated = true
	}
	data = append(data, 0)

	if err := Copyout(mm, uaddr, data); err != nil {
		return err
	}
	if truncated {
		return errno.New("copyoutstr", errno.ENAMETOOLONG)
	}
	return nil
}
