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

// Package sysctl is the MIB (management information base) tree: dynamic
// oid registration and removal with a running/dying drain protocol, name
// resolution between dotted names and integer id paths, and the reserved
// introspection nodes (NAME, NEXT, NAME2OID, OIDFMT, OIDDESCR).
package sysctl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/vfs"
)

// Kind is the sysctl type tag carried in an oid's format string.
type Kind int

const (
	KindNode Kind = iota + 1
	KindInt
	KindString
	KindOpaque
	KindS64
	KindUint
	KindLong
	KindUlong
	KindU64
)

// Flag bits, matching the wire-format flag values named in spec.md §6.
type Flag uint32

const (
	FlagSkip    Flag = 0x01000000
	FlagSecure  Flag = 0x02000000
	FlagDyn     Flag = 0x04000000
	FlagRD      Flag = 0x10000000
	FlagWR      Flag = 0x20000000
	FlagKernWR  Flag = 0x40000000
	FlagAnybody Flag = 0x80000000
	FlagDying   Flag = 0x00010000
)

// CtlMaxName bounds the depth of a dotted oid path.
const CtlMaxName = 24

// CtlAutoStart is the first dynamically assigned oid id, used when a
// node is registered with id OidAuto.
const CtlAutoStart = 0x100

// OidAuto requests dynamic id assignment.
const OidAuto = -1

// Req carries a read/write sysctl request: the new value to write (if
// any) and a cursor into the caller's buffer for the old value to be
// copied out to, plus the credential performing the call.
type Req struct {
	Cred   *vfs.Credential
	OldBuf []byte // buffer the handler copies its current value into
	NewBuf []byte // caller-supplied new value, nil for a read-only get
}

// HandlerFunc renders or updates a node's value given req, returning the
// bytes to copy out (for a read) or nil.
type HandlerFunc func(req *Req) ([]byte, error)

// Node is one oid in the tree.
type Node struct {
	ID       int32
	Name     string
	Kind     Kind
	Flags    Flag
	Descr    string
	SecLevel int // CTLFLAG_SECURE threshold: writes refused while the tree's level is at or above this

	Handler HandlerFunc

	parent   *Node
	children []*Node

	mu      sync.Mutex
	running int
	dying   bool
}

// Tree is the root of the MIB, plus the bookkeeping needed for dynamic
// registration/removal and name<->oid resolution.
type Tree struct {
	mu         sync.Mutex
	root       *Node
	nextAuto   int32
	secLevel   int
}

// NewTree builds an empty tree with its root node and the reserved
// introspection nodes installed under it.
func NewTree() *Tree {
	t := &Tree{
		root:     &Node{ID: 0, Name: "sysctl", Kind: KindNode},
		nextAuto: CtlAutoStart,
	}
	t.installIntrospection()
	return t
}

// SetSecurityLevel changes the tree's current security level, gating
// CTLFLAG_SECURE nodes whose threshold is at or below it.
func (t *Tree) SetSecurityLevel(level int) {
	t.mu.Lock()
	t.secLevel = level
	t.mu.Unlock()
}

// AddOid registers child under parent (nil for the root), assigning id
// dynamically if id == OidAuto. It is sysctl_add_oid.
func (t *Tree) AddOid(parent *Node, id int32, name string, kind Kind, flags Flag, descr string, h HandlerFunc) (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if parent == nil {
		parent = t.root
	}
	for _, c := range parent.children {
		if c.Name == name {
			return nil, errno.New("sysctl.AddOid", errno.EEXIST)
		}
	}

	if id == OidAuto {
		id = t.nextAuto
		t.nextAuto++
		flags |= FlagDyn
	}

	n := &Node{ID: id, Name: name, Kind: kind, Flags: flags, Descr: descr, Handler: h, parent: parent}
	parent.children = append(parent.children, n)
	return n, nil
}

// RemoveOid unregisters n, optionally recursing into its children. It
// marks the subtree dying and blocks until every in-flight handler
// invocation has drained, mirroring the running/dying protocol the
// original sysctl implementation uses (see DESIGN.md).
func (t *Tree) RemoveOid(n *Node, recurse bool) error {
	if !recurse && len(n.children) > 0 {
		return errno.New("sysctl.RemoveOid", errno.ENOTEMPTY)
	}

	var mark func(*Node)
	mark = func(node *Node) {
		node.mu.Lock()
		node.dying = true
		node.mu.Unlock()
		for _, c := range node.children {
			mark(c)
		}
	}
	mark(n)

	var drain func(*Node)
	drain = func(node *Node) {
		node.mu.Lock()
		for node.running > 0 {
			node.mu.Unlock()
			node.mu.Lock()
		}
		node.mu.Unlock()
		for _, c := range node.children {
			drain(c)
		}
	}
	drain(n)

	t.mu.Lock()
	defer t.mu.Unlock()
	if n.parent != nil {
		siblings := n.parent.children
		for i, c := range siblings {
			if c == n {
				n.parent.children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Lookup walks a dotted name ("proc.maxproc") to its Node.
func (t *Tree) Lookup(name string) (*Node, error) {
	parts := strings.Split(name, ".")
	cur := t.root
	for _, part := range parts {
		var next *Node
		for _, c := range cur.children {
			if c.Name == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil, errno.New("sysctl.Lookup", errno.ENOENT)
		}
		cur = next
	}
	return cur, nil
}

// Name2Oid resolves a dotted name to its integer id path.
func (t *Tree) Name2Oid(name string) ([]int32, error) {
	parts := strings.Split(name, ".")
	if len(parts) > CtlMaxName {
		return nil, errno.New("sysctl.Name2Oid", errno.ENAMETOOLONG)
	}
	ids := make([]int32, 0, len(parts))
	cur := t.root
	for _, part := range parts {
		var next *Node
		for _, c := range cur.children {
			if c.Name == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil, errno.New("sysctl.Name2Oid", errno.ENOENT)
		}
		ids = append(ids, next.ID)
		cur = next
	}
	return ids, nil
}

// NodeByOid walks an integer id path down from the root.
func (t *Tree) NodeByOid(ids []int32) (*Node, error) {
	cur := t.root
	for _, id := range ids {
		var next *Node
		for _, c := range cur.children {
			if c.ID == id {
				next = c
				break
			}
		}
		if next == nil {
			return nil, errno.New("sysctl.NodeByOid", errno.ENOENT)
		}
		cur = next
	}
	return cur, nil
}

// fullName returns n's dotted name, walking up to but excluding the root.
func (n *Node) fullName() string {
	var parts []string
	for cur := n; cur != nil && cur.Name != "sysctl"; cur = cur.parent {
		parts = append([]string{cur.Name}, parts...)
	}
	return strings.Join(parts, ".")
}

// Get invokes n's handler to read its current value, after checking that
// n is flagged readable or writable; the caller's credential is not
// checked.
func (t *Tree) Get(n *Node, req *Req) ([]byte, error) {
	if n.Flags&FlagRD == 0 && n.Flags&FlagWR == 0 {
		return nil, errno.New("sysctl.Get", errno.EINVAL)
	}
	return t.invoke(n, req)
}

// Set invokes n's handler to write req.NewBuf, enforcing the
// CTLFLAG_SECURE security-level gate and the CTLFLAG_ANYBODY/PRIV_SYSCTL_WRITE
// privilege gate.
func (t *Tree) Set(n *Node, req *Req) ([]byte, error) {
	if n.Flags&FlagWR == 0 {
		return nil, errno.New("sysctl.Set", errno.EACCES)
	}
	if n.Flags&FlagSecure != 0 {
		t.mu.Lock()
		level := t.secLevel
		t.mu.Unlock()
		if level >= n.SecLevel {
			return nil, errno.New("sysctl.Set", errno.EPERM)
		}
	}
	if n.Flags&FlagAnybody == 0 {
		if req.Cred == nil || !req.Cred.Has(vfs.PrivSysctlWrite) {
			return nil, errno.New("sysctl.Set", errno.EPERM)
		}
	}
	return t.invoke(n, req)
}

func (t *Tree) invoke(n *Node, req *Req) ([]byte, error) {
	n.mu.Lock()
	if n.dying {
		n.mu.Unlock()
		return nil, errno.New("sysctl.invoke", errno.ENOENT)
	}
	n.running++
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.running--
		n.mu.Unlock()
	}()

	if n.Handler == nil {
		return nil, errno.New("sysctl.invoke", errno.ENOTSUP)
	}
	return n.Handler(req)
}

// HandleInt is the generic CTLTYPE_INT handler: it copies *val out, and
// if req carries a new value, parses and stores it.
func HandleInt(val *int32) HandlerFunc {
	return func(req *Req) ([]byte, error) {
		if req.NewBuf != nil {
			if len(req.NewBuf) < 4 {
				return nil, errno.New("sysctl.HandleInt", errno.EINVAL)
			}
			*val = int32(req.NewBuf[0]) | int32(req.NewBuf[1])<<8 | int32(req.NewBuf[2])<<16 | int32(req.NewBuf[3])<<24
			return nil, nil
		}
		v := *val
		return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}, nil
	}
}

// HandleString is the generic CTLTYPE_STRING handler.
func HandleString(val *string, maxLen int) HandlerFunc {
	return func(req *Req) ([]byte, error) {
		if req.NewBuf != nil {
			if len(req.NewBuf) >= maxLen {
				return nil, errno.New("sysctl.HandleString", errno.ENAMETOOLONG)
			}
			*val = string(req.NewBuf)
			return nil, nil
		}
		return []byte(*val), nil
	}
}

// installIntrospection wires the reserved NAME/NEXT/NAME2OID/OIDFMT/OIDDESCR
// nodes spec.md §4.7 names under the root.
func (t *Tree) installIntrospection() {
	t.root.children = append(t.root.children,
		&Node{ID: -1, Name: "name", Kind: KindString, Flags: FlagRD, parent: t.root, Handler: t.handleName},
		&Node{ID: -2, Name: "next", Kind: KindOpaque, Flags: FlagRD, parent: t.root, Handler: t.handleNext},
		&Node{ID: -3, Name: "name2oid", Kind: KindOpaque, Flags: FlagRD | FlagAnybody, parent: t.root, Handler: t.handleName2Oid},
		&Node{ID: -4, Name: "oidfmt", Kind: KindOpaque, Flags: FlagRD, parent: t.root, Handler: t.handleOidFmt},
		&Node{ID: -5, Name: "oiddescr", Kind: KindString, Flags: FlagRD, parent: t.root, Handler: t.handleOidDescr},
	)
}

func (t *Tree) handleName(req *Req) ([]byte, error) {
	ids, err := decodeOidPath(req.NewBuf)
	if err != nil {
		return nil, err
	}
	n, err := t.NodeByOid(ids)
	if err != nil {
		return nil, err
	}
	return []byte(n.fullName()), nil
}

func (t *Tree) handleNext(req *Req) ([]byte, error) {
	ids, err := decodeOidPath(req.NewBuf)
	if err != nil {
		return nil, err
	}
	n, err := t.NodeByOid(ids)
	if err != nil {
		return nil, err
	}

	sorted := append([]*Node(nil), n.children...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	if len(sorted) == 0 {
		return nil, errno.New("sysctl.Next", errno.ENOENT)
	}
	next := sorted[0]
	return encodeOidPath(append(ids, next.ID)), nil
}

func (t *Tree) handleName2Oid(req *Req) ([]byte, error) {
	ids, err := t.Name2Oid(string(req.NewBuf))
	if err != nil {
		return nil, err
	}
	return encodeOidPath(ids), nil
}

func (t *Tree) handleOidFmt(req *Req) ([]byte, error) {
	ids, err := decodeOidPath(req.NewBuf)
	if err != nil {
		return nil, err
	}
	n, err := t.NodeByOid(ids)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("%d:%d", n.Kind, n.Flags)), nil
}

func (t *Tree) handleOidDescr(req *Req) ([]byte, error) {
	ids, err := decodeOidPath(req.NewBuf)
	if err != nil {
		return nil, err
	}
	n, err := t.NodeByOid(ids)
	if err != nil {
		return nil, err
	}
	return []byte(n.Descr), nil
}

func decodeOidPath(buf []byte) ([]int32, error) {
	if len(buf)%4 != 0 {
		return nil, errno.New("sysctl.decodeOidPath", errno.EINVAL)
	}
	ids := make([]int32, len(buf)/4)
	for i := range ids {
		o := i * 4
		ids[i] = int32(buf[o]) | int32(buf[o+1])<<8 | int32(buf[o+2])<<16 | int32(buf[o+3])<<24
	}
	return ids, nil
}

func encodeOidPath(ids []int32) []byte {
	buf := make([]byte, len(ids)*4)
	for i, id := range ids {
		o := i * 4
		buf[o] = byte(id)
		buf[o+1] = byte(id >> 8)
		buf[o+2] = byte(id >> 16)
		buf[o+3] = byte(id >> 24)
	}
	return buf
}

// ParseDottedInts is a small helper for callers (e.g. the CLI) turning a
// human-typed "1.2.3" oid path into ids, separate from Name2Oid's
// dotted-name form.
func ParseDottedInts(s string) ([]int32, error) {
	parts := strings.Split(s, ".")
	ids := make([]int32, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, errno.New("sysctl.ParseDottedInts", errno.EINVAL)
		}
		ids[i] = int32(v)
	}
	return ids, nil
}
