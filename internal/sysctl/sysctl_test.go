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

package sysctl_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/sysctl"
	"github.com/tinykern/tinykern/internal/vfs"
)

func int32Bytes(v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

func decodeInt32(buf []byte) int32 {
	return int32(binary.LittleEndian.Uint32(buf))
}

// TestS5SysctlRoundTrip reproduces spec.md S5.
func TestS5SysctlRoundTrip(t *testing.T) {
	tree := sysctl.NewTree()
	kern, err := tree.AddOid(nil, sysctl.OidAuto, "kern", sysctl.KindNode, sysctl.FlagRD, "", nil)
	require.NoError(t, err)
	test, err := tree.AddOid(kern, sysctl.OidAuto, "test", sysctl.KindNode, sysctl.FlagRD, "", nil)
	require.NoError(t, err)

	value := int32(7)
	node, err := tree.AddOid(test, sysctl.OidAuto, "value", sysctl.KindInt, sysctl.FlagRD|sysctl.FlagWR|sysctl.FlagAnybody, "", sysctl.HandleInt(&value))
	require.NoError(t, err)

	got, err := tree.Get(node, &sysctl.Req{})
	require.NoError(t, err)
	require.Equal(t, int32(7), decodeInt32(got))

	_, err = tree.Set(node, &sysctl.Req{NewBuf: int32Bytes(42)})
	require.NoError(t, err)

	got, err = tree.Get(node, &sysctl.Req{})
	require.NoError(t, err)
	require.Equal(t, int32(42), decodeInt32(got))

	require.NoError(t, tree.RemoveOid(node, false))

	_, err = tree.Lookup("kern.test.value")
	require.Error(t, err)
	code, ok := errno.Of(err)
	require.True(t, ok)
	require.Equal(t, errno.ENOENT, code)
}

func TestSetRefusesWithoutWriteFlag(t *testing.T) {
	tree := sysctl.NewTree()
	value := int32(1)
	node, err := tree.AddOid(nil, sysctl.OidAuto, "rdonly", sysctl.KindInt, sysctl.FlagRD, "", sysctl.HandleInt(&value))
	require.NoError(t, err)

	_, err = tree.Set(node, &sysctl.Req{NewBuf: int32Bytes(99)})
	require.Error(t, err)
}

func TestSetRequiresPrivilegeWithoutAnybody(t *testing.T) {
	tree := sysctl.NewTree()
	value := int32(1)
	node, err := tree.AddOid(nil, sysctl.OidAuto, "guarded", sysctl.KindInt, sysctl.FlagRD|sysctl.FlagWR, "", sysctl.HandleInt(&value))
	require.NoError(t, err)

	_, err = tree.Set(node, &sysctl.Req{NewBuf: int32Bytes(5)})
	require.Error(t, err)

	cred := &vfs.Credential{Privileges: map[vfs.Privilege]bool{vfs.PrivSysctlWrite: true}}
	_, err = tree.Set(node, &sysctl.Req{Cred: cred, NewBuf: int32Bytes(5)})
	require.NoError(t, err)
}

func TestSecureNodeGatedBySecurityLevel(t *testing.T) {
	tree := sysctl.NewTree()
	value := int32(1)
	node, err := tree.AddOid(nil, sysctl.OidAuto, "secureval", sysctl.KindInt, sysctl.FlagRD|sysctl.FlagWR|sysctl.FlagAnybody|sysctl.FlagSecure, "", sysctl.HandleInt(&value))
	require.NoError(t, err)
	node.SecLevel = 1

	tree.SetSecurityLevel(1)
	_, err = tree.Set(node, &sysctl.Req{NewBuf: int32Bytes(5)})
	require.Error(t, err)

	tree.SetSecurityLevel(0)
	_, err = tree.Set(node, &sysctl.Req{NewBuf: int32Bytes(5)})
	require.NoError(t, err)
}

func TestName2OidAndNodeByOidAgree(t *testing.T) {
	tree := sysctl.NewTree()
	kern, err := tree.AddOid(nil, sysctl.OidAuto, "kern", sysctl.KindNode, sysctl.FlagRD, "", nil)
	require.NoError(t, err)
	_, err = tree.AddOid(kern, sysctl.OidAuto, "hz", sysctl.KindInt, sysctl.FlagRD, "", sysctl.HandleInt(new(int32)))
	require.NoError(t, err)

	ids, err := tree.Name2Oid("kern.hz")
	require.NoError(t, err)
	require.Len(t, ids, 2)

	n, err := tree.NodeByOid(ids)
	require.NoError(t, err)
	require.Equal(t, "hz", n.Name)
}

func TestDumpProducesYAML(t *testing.T) {
	tree := sysctl.NewTree()
	_, err := tree.AddOid(nil, sysctl.OidAuto, "kern", sysctl.KindNode, sysctl.FlagRD, "kernel parameters", nil)
	require.NoError(t, err)

	out, err := tree.Dump()
	require.NoError(t, err)
	require.Contains(t, string(out), "kern")
}
