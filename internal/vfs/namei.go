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

package vfs

import (
	"fmt"
	"strings"

	"github.com/tinykern/tinykern/internal/errno"
)

// NameiFlags controls fs_namei_proc's resolution behaviour.
type NameiFlags uint8

const (
	// AtFdArg resolves relative paths against the directory vnode of a
	// supplied fd, instead of the process's cwd.
	AtFdArg NameiFlags = 1 << iota
	// ODirectory enforces that the resolved entry be a directory.
	ODirectory
)

func tokenize(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' })
}

// lookupVnode walks a single already-tokenised path starting from start,
// implementing the per-component resolution rules of spec.md §4.4:
// "." is skipped, ".." escapes a mount root via GetBaseVnode, and every
// resolved vnode descends through any filesystem mounted on it via
// GetTopVnode.
func lookupVnode(start *Vnode, components []string) (*Vnode, error) {
	cur := start
	if err := Vref(cur); err != nil {
		return nil, err
	}

	for _, comp := range components {
		if comp == "." {
			continue
		}

		next, err := cur.Ops.Lookup(cur, comp)
		if err != nil {
			errnoVal, ok := errno.Of(err)
			if ok && errnoVal == errno.EDOM && comp == ".." && GetBaseVnode(cur) != cur {
				base := GetBaseVnode(cur)
				if err := Vref(base); err != nil {
					_ = Vrele(cur)
					return nil, err
				}
				_ = Vrele(cur)
				cur = base
				continue
			}
			_ = Vrele(cur)
			return nil, fmt.Errorf("vfs: lookupVnode: %w", err)
		}

		top := GetTopVnode(next)
		if top != next {
			if err := Vref(top); err != nil {
				_ = Vrele(next)
				_ = Vrele(cur)
				return nil, err
			}
			_ = Vrele(next)
			next = top
		}

		_ = Vrele(cur)
		cur = next
	}

	return cur, nil
}

// Namei resolves path against p's root/cwd/fd-relative directory
// (fs_namei_proc). Absolute paths start from p's root; relative paths
// start from p's cwd, unless AtFdArg is set, in which case they start
// from the directory named by fd.
func Namei(p ProcCtx, path string, fd int, flags NameiFlags) (*Vnode, error) {
	if path == "/" {
		root := p.RootDir()
		if err := Vref(root); err != nil {
			return nil, err
		}
		return root, nil
	}
	if path == "." {
		cwd := p.CwdDir()
		if err := Vref(cwd); err != nil {
			return nil, err
		}
		return cwd, nil
	}

	var start *Vnode
	switch {
	case strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\"):
		start = p.RootDir()
	case flags&AtFdArg != 0:
		dir, err := p.DirVnodeForFd(fd)
		if err != nil {
			return nil, fmt.Errorf("vfs: Namei: %w", err)
		}
		start = dir
	default:
		start = p.CwdDir()
	}

	components := tokenize(path)
	result, err := lookupVnode(start, components)
	if err != nil {
		return nil, err
	}

	trailingSlash := strings.HasSuffix(path, "/") || strings.HasSuffix(path, "\\")
	if (trailingSlash || flags&ODirectory != 0) && !result.IsDir() {
		_ = Vrele(result)
		return nil, errno.New("Namei", errno.ENOTDIR)
	}

	return result, nil
}

// NameiParent resolves the parent directory of path and returns it along
// with the final path component, for create-style operations that need
// to operate on the parent before the child exists.
func NameiParent(p ProcCtx, path string, fd int, flags NameiFlags) (parent *Vnode, name string, err error) {
	components := tokenize(path)
	if len(components) == 0 {
		return nil, "", errno.New("NameiParent", errno.EINVAL)
	}
	name = components[len(components)-1]
	parentPath := "/" + strings.Join(components[:len(components)-1], "/")
	if !strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "\\") {
		parentPath = strings.Join(components[:len(components)-1], "/")
		if parentPath == "" {
			parentPath = "."
		}
	}
	parent, err = Namei(p, parentPath, fd, flags|ODirectory)
	return
}
