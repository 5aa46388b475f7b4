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

// Package errno is the Go-native rendition of the POSIX errno values named
// throughout the kernel's subsystem contracts. It deliberately reuses
// syscall.Errno as its representation so callers can errors.Is(err,
// errno.ENOENT) against whatever the syscall package itself would have
// produced on this platform, rather than inventing a parallel error type.
package errno

import (
	"errors"
	"fmt"
	"syscall"
)

// The subset of POSIX errno values this kernel's subsystem contracts name
// explicitly. Re-exported under kernel-familiar names so call sites read
// errno.ENOENT rather than syscall.ENOENT.
const (
	EPERM       = syscall.EPERM
	ENOENT      = syscall.ENOENT
	EIO         = syscall.EIO
	EFAULT      = syscall.EFAULT
	EACCES      = syscall.EACCES
	EEXIST      = syscall.EEXIST
	ENOTDIR     = syscall.ENOTDIR
	EISDIR      = syscall.EISDIR
	EINVAL      = syscall.EINVAL
	ENFILE      = syscall.ENFILE
	EMFILE      = syscall.EMFILE
	EBADF       = syscall.EBADF
	ENOTEMPTY   = syscall.ENOTEMPTY
	EXDEV       = syscall.EXDEV
	EBUSY       = syscall.EBUSY
	ENOMEM      = syscall.ENOMEM
	EAGAIN      = syscall.EAGAIN
	EWOULDBLOCK = syscall.EWOULDBLOCK
	ENAMETOOLONG = syscall.ENAMETOOLONG
	ECHILD      = syscall.ECHILD
	ESRCH       = syscall.ESRCH
	// EDOM is used internally by VFS lookup to signal "walked off the top
	// of a mounted filesystem via .." and MUST NEVER be returned across
	// the user/kernel boundary; see vfs.lookupVnode.
	EDOM = syscall.EDOM
	// ENOTSUP is the syscall package's own constant (on Linux it shares
	// EOPNOTSUPP's numeric value).
	ENOTSUP = syscall.ENOTSUP
)

// Err wraps an Errno with the operation that produced it, in the same
// "Context: %v" style fmt.Errorf wrapping used throughout this codebase.
type Err struct {
	Op  string
	Err syscall.Errno
}

func (e *Err) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
}

func (e *Err) Unwrap() error { return e.Err }

// New returns an error reporting that op failed with errno e.
func New(op string, e syscall.Errno) error {
	return &Err{Op: op, Err: e}
}

// Of extracts the syscall.Errno from err, if any, returning (0, false)
// otherwise.
func Of(err error) (syscall.Errno, bool) {
	var e *Err
	if errors.As(err, &e) {
		return e.Err, true
	}
	var raw syscall.Errno
	if errors.As(err, &raw) {
		return raw, true
	}
	return 0, false
}
