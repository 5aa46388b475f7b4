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

package proc_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/proc"
	"github.com/tinykern/tinykern/internal/vfs"
)

// newLoginFixture generates a fresh, collision-free login name per test
// run instead of a hardcoded string, so TestSetloginTruncatesOverlongName
// below exercises MaxLoginLen truncation against genuinely unpredictable
// input rather than a name sized to fit the bug it's checking for.
func newLoginFixture() string {
	return "sess-" + uuid.NewString()
}

func TestSetsidAndSetloginRoundTrip(t *testing.T) {
	table := proc.NewTable()
	groups := proc.NewGroupTable()

	init, err := table.Create(nil)
	require.NoError(t, err)

	leader, err := table.Fork(init)
	require.NoError(t, err)

	sid, err := groups.Setsid(leader)
	require.NoError(t, err)
	require.Equal(t, leader.ID, sid)

	leader.Privileges[vfs.PrivSetlogin] = true

	name := newLoginFixture()[:proc.MaxLoginLen-1]
	require.NoError(t, proc.Setlogin(leader, name))

	got, err := proc.Getlogin(leader)
	require.NoError(t, err)
	require.Equal(t, name, got)
}

func TestSetloginTruncatesOverlongName(t *testing.T) {
	table := proc.NewTable()
	groups := proc.NewGroupTable()

	init, err := table.Create(nil)
	require.NoError(t, err)

	leader, err := table.Fork(init)
	require.NoError(t, err)

	_, err = groups.Setsid(leader)
	require.NoError(t, err)
	leader.Privileges[vfs.PrivSetlogin] = true

	overlong := strings.Repeat(newLoginFixture(), 3)
	require.GreaterOrEqual(t, len(overlong), proc.MaxLoginLen)

	require.NoError(t, proc.Setlogin(leader, overlong))

	got, err := proc.Getlogin(leader)
	require.NoError(t, err)
	require.Less(t, len(got), proc.MaxLoginLen)
	require.True(t, strings.HasPrefix(overlong, got))
}

func TestSetloginRequiresSessionLeader(t *testing.T) {
	table := proc.NewTable()
	groups := proc.NewGroupTable()

	init, err := table.Create(nil)
	require.NoError(t, err)

	_, err = groups.Setsid(init)
	require.NoError(t, err)

	child, err := table.Fork(init)
	require.NoError(t, err)
	child.Privileges[vfs.PrivSetlogin] = true

	err = proc.Setlogin(child, newLoginFixture())
	require.Error(t, err)
}

func TestSetpgidChildOwnershipAndExistingGroup(t *testing.T) {
	table := proc.NewTable()
	groups := proc.NewGroupTable()

	init, err := table.Create(nil)
	require.NoError(t, err)

	parent, err := table.Fork(init)
	require.NoError(t, err)
	child, err := table.Fork(parent)
	require.NoError(t, err)
	unrelated, err := table.Fork(init)
	require.NoError(t, err)

	// A process may not move a process that is neither itself nor its
	// own child into a new group, even with pgid==0 (create-or-join).
	err = groups.Setpgid(parent, unrelated, unrelated.ID, 0)
	require.Error(t, err)
	e, ok := errno.Of(err)
	require.True(t, ok)
	require.Equal(t, errno.EPERM, e)

	// pgid==0 lets a parent put its own not-yet-exec'd child into a brand
	// new group named after the child's own pid.
	require.NoError(t, groups.Setpgid(parent, child, child.ID, 0))
	require.Equal(t, child.ID, proc.Getpgrp(child))

	// A non-zero pgid that doesn't already name a group in the target's
	// session must fail rather than silently create one.
	err = groups.Setpgid(parent, parent, parent.ID, 99999)
	require.Error(t, err)
	e, ok = errno.Of(err)
	require.True(t, ok)
	require.Equal(t, errno.ESRCH, e)

	// Once child.ID's group exists, a second child can join it
	// explicitly by pgid as long as it shares a session.
	second, err := table.Fork(parent)
	require.NoError(t, err)
	require.NoError(t, groups.Setpgid(parent, second, second.ID, child.ID))
	require.Equal(t, child.ID, proc.Getpgrp(second))

	// A child that has already exec'd can no longer be moved.
	third, err := table.Fork(parent)
	require.NoError(t, err)
	third.MarkExeced()
	err = groups.Setpgid(parent, third, third.ID, 0)
	require.Error(t, err)
	e, ok = errno.Of(err)
	require.True(t, ok)
	require.Equal(t, errno.EPERM, e)
}
