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

package fatfs

import "github.com/tinykern/tinykern/internal/errno"

// fresult is the Go rendition of the FatFs FRESULT enum named throughout
// spec.md §4.6's error-mapping table.
type fresult int

const (
	frOK fresult = iota
	frDiskErr
	frIntErr
	frNotReady
	frNoFile
	frNoPath
	frInvalidName
	frDenied
	frExist
	frInvalidObject
	frWriteProtected
	frInvalidDrive
	frNotEnabled
	frNoFilesystem
	frTimeout
	frLocked
	frNotEnoughCore
	frTooManyOpenFiles
	frInvalidParameter
)

// toErrno maps a FRESULT to the errno value spec.md §4.6's table names,
// wrapped with op in the same "Context: %v" style used throughout.
func toErrno(op string, fr fresult) error {
	switch fr {
	case frOK:
		return nil
	case frDiskErr, frIntErr, frNotEnabled, frNoFilesystem:
		return errno.New(op, errno.EIO)
	case frNoFile, frNoPath:
		return errno.New(op, errno.ENOENT)
	case frDenied, frLocked:
		return errno.New(op, errno.EACCES)
	case frExist:
		return errno.New(op, errno.EEXIST)
	case frWriteProtected:
		return errno.New(op, errno.EPERM)
	case frNotReady:
		return errno.New(op, errno.EBUSY)
	case frInvalidName, frInvalidObject, frInvalidDrive, frInvalidParameter:
		return errno.New(op, errno.EINVAL)
	case frTimeout:
		return errno.New(op, errno.EWOULDBLOCK)
	case frNotEnoughCore:
		return errno.New(op, errno.ENOMEM)
	case frTooManyOpenFiles:
		return errno.New(op, errno.ENFILE)
	default:
		return errno.New(op, errno.EIO)
	}
}
