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

// Package kernel wires the subsystems described in spec.md into a single
// bootable instance: the process table and scheduler, the VFS registry
// with ramfs mounted as root, the sysctl tree seeded with the standard
// kern.* nodes, and the syscall dispatch table that fronts all of it.
// It is the lifecycle-scoped singleton spec.md §9 calls for in place of
// C's file-scope globals (curproc, procarr, sysctl__children, ...).
package kernel

import (
	"fmt"

	"github.com/tinykern/tinykern/internal/cfg"
	"github.com/tinykern/tinykern/internal/clock"
	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/fatfs"
	"github.com/tinykern/tinykern/internal/proc"
	"github.com/tinykern/tinykern/internal/ramfs"
	"github.com/tinykern/tinykern/internal/sysctl"
	syscallglue "github.com/tinykern/tinykern/internal/syscall"
	"github.com/tinykern/tinykern/internal/vfs"
)

// Kernel bundles every subsystem singleton a booted instance needs.
type Kernel struct {
	Config   cfg.Config
	Clock    clock.Clock
	Table    *proc.Table
	Groups   *proc.GroupTable
	Sched    *proc.Scheduler
	Sysctl   *sysctl.Tree
	Syscalls *syscallglue.Table
	RootSB   *vfs.Superblock
	Init     *proc.Process
}

// Boot brings up a kernel instance: registers ramfs (and fatfs, when a
// FAT volume image is configured), mounts ramfs as the root filesystem, creates pid 1 with its
// root/cwd wired to that root vnode, and seeds the sysctl tree's kern.*
// hardware/scheduling nodes from cfg.
func Boot(c cfg.Config) (*Kernel, error) {
	ramfs.Register()

	cl := clock.Clock(clock.RealClock{})

	sb, err := ramfs.Mount("", 0, cl)
	if err != nil {
		return nil, fmt.Errorf("kernel.Boot: mount root: %w", err)
	}
	if err := vfs.Vref(sb.Root); err != nil {
		return nil, fmt.Errorf("kernel.Boot: vref root: %w", err)
	}

	table := proc.NewTable()
	init, err := table.Create(nil)
	if err != nil {
		return nil, fmt.Errorf("kernel.Boot: create pid 1: %w", err)
	}
	init.SetRootDir(sb.Root)
	init.SetCwdDir(sb.Root)
	init.Privileges[vfs.PrivVFSRead] = true
	init.Privileges[vfs.PrivVFSWrite] = true
	init.Privileges[vfs.PrivVFSExec] = true
	init.Privileges[vfs.PrivProcFork] = true

	if c.FAT.VolumeImagePath != "" {
		if err := mountFATVolume(init, c); err != nil {
			return nil, fmt.Errorf("kernel.Boot: mount FAT volume: %w", err)
		}
	}

	sched := proc.NewScheduler(c.Scheduler.LavgPeriodSec)

	tree := sysctl.NewTree()
	tree.SetSecurityLevel(c.Sysctl.SecurityLevel)
	if err := seedKernNodes(tree, c); err != nil {
		return nil, fmt.Errorf("kernel.Boot: seed sysctl: %w", err)
	}

	k := &Kernel{
		Config:   c,
		Clock:    cl,
		Table:    table,
		Groups:   proc.NewGroupTable(),
		Sched:    sched,
		Sysctl:   tree,
		Syscalls: syscallglue.NewTable(),
		RootSB:   sb,
		Init:     init,
	}
	return k, nil
}

// mountFATVolume mounts the host volume image named by c.FAT at /mnt,
// creating the mount point first if it is missing. It is only reached
// when the operator configures a real backing image; the test suites use
// fatfs.NewMemDisk directly instead.
func mountFATVolume(init *proc.Process, c cfg.Config) error {
	fatfs.Register()

	const mountPoint = "/mnt"
	if _, err := vfs.Mkdir(init, mountPoint, 0755, -1); err != nil {
		if e, ok := errno.Of(err); !ok || e != errno.EEXIST {
			return err
		}
	}
	target, err := vfs.Namei(init, mountPoint, -1, vfs.ODirectory)
	if err != nil {
		return err
	}

	disk, err := fatfs.OpenFileDisk(c.FAT.VolumeImagePath, 512)
	if err != nil {
		return err
	}

	_, err = vfs.Mount(target, c.FAT.VolumeImagePath, "fatfs", 0, fatfs.MountParams{
		Disk: disk,
	})
	return err
}

// seedKernNodes registers the handful of read/write kern.* nodes the
// scenarios and the `sysctl` CLI subcommand exercise: HZ and the
// scheduler's nice-range are read-only hardware facts, security level is
// the one kern.* setting it makes sense to flip at runtime.
func seedKernNodes(tree *sysctl.Tree, c cfg.Config) error {
	kern, err := tree.AddOid(nil, sysctl.OidAuto, "kern", sysctl.KindNode, sysctl.FlagRD, "kernel facts and tunables", nil)
	if err != nil {
		return err
	}
	hz := int32(c.Scheduler.HZ)
	if _, err := tree.AddOid(kern, sysctl.OidAuto, "hz", sysctl.KindInt, sysctl.FlagRD|sysctl.FlagAnybody, "timer tick rate", sysctl.HandleInt(&hz)); err != nil {
		return err
	}
	niceMin := int32(c.Scheduler.NiceMin)
	if _, err := tree.AddOid(kern, sysctl.OidAuto, "nice_min", sysctl.KindInt, sysctl.FlagRD|sysctl.FlagAnybody, "lowest nice value", sysctl.HandleInt(&niceMin)); err != nil {
		return err
	}
	niceMax := int32(c.Scheduler.NiceMax)
	if _, err := tree.AddOid(kern, sysctl.OidAuto, "nice_max", sysctl.KindInt, sysctl.FlagRD|sysctl.FlagAnybody, "highest nice value", sysctl.HandleInt(&niceMax)); err != nil {
		return err
	}
	securelevel := int32(c.Sysctl.SecurityLevel)
	if _, err := tree.AddOid(kern, sysctl.OidAuto, "securelevel", sysctl.KindInt, sysctl.FlagRD|sysctl.FlagWR, "sysctl security level", sysctl.HandleInt(&securelevel)); err != nil {
		return err
	}
	return nil
}
