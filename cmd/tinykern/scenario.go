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

package main

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinykern/tinykern/internal/clock"
	"github.com/tinykern/tinykern/internal/errno"
	"github.com/tinykern/tinykern/internal/fatfs"
	"github.com/tinykern/tinykern/internal/kernel"
	"github.com/tinykern/tinykern/internal/proc"
	"github.com/tinykern/tinykern/internal/sysctl"
	"github.com/tinykern/tinykern/internal/vfs"
	"github.com/tinykern/tinykern/internal/vm"
)

// procCtx adapts a booted kernel's pid 1 to vfs.ProcCtx, the same shim
// every package's own _test.go files use in place of a real process.
type procCtx struct {
	cred *vfs.Credential
	root *vfs.Vnode
	cwd  *vfs.Vnode
}

func (p *procCtx) Cred() *vfs.Credential  { return p.cred }
func (p *procCtx) RootDir() *vfs.Vnode    { return p.root }
func (p *procCtx) CwdDir() *vfs.Vnode     { return p.cwd }
func (p *procCtx) SetCwdDir(v *vfs.Vnode) { p.cwd = v }
func (p *procCtx) Files() *vfs.FdTable    { return nil }
func (p *procCtx) DirVnodeForFd(fd int) (*vfs.Vnode, error) {
	return p.cwd, nil
}

type scenarioFunc func(k *kernel.Kernel) error

var scenarios = []struct {
	name string
	run  scenarioFunc
}{
	{"S1: ramfs mkdir/rmdir", scenarioS1},
	{"S2: FAT12 path walk across mounts", scenarioS2},
	{"S3: fork/wait exit status", scenarioS3},
	{"S4: COW fork page isolation", scenarioS4},
	{"S5: sysctl round trip", scenarioS5},
	{"S6: FAT long file name + read-only chmod", scenarioS6},
}

var scenarioCmd = &cobra.Command{
	Use:   "run-scenario [name]",
	Short: "Boot a fresh kernel and run one (or all) of the spec's S1-S6 scenarios",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter string
		if len(args) == 1 {
			filter = args[0]
		}

		ran := 0
		for _, s := range scenarios {
			if filter != "" && filter != s.name {
				continue
			}
			ran++
			k, err := kernel.Boot(bootConfig)
			if err != nil {
				return fmt.Errorf("%s: boot: %w", s.name, err)
			}
			if err := s.run(k); err != nil {
				fmt.Printf("FAIL %s: %v\n", s.name, err)
				return err
			}
			fmt.Printf("PASS %s\n", s.name)
		}
		if ran == 0 {
			return fmt.Errorf("run-scenario: no scenario matches %q", filter)
		}
		return nil
	},
}

func rootProc(k *kernel.Kernel) *procCtx {
	return &procCtx{
		cred: &vfs.Credential{Uid: 0, Privileges: map[vfs.Privilege]bool{
			vfs.PrivVFSRead: true, vfs.PrivVFSWrite: true, vfs.PrivVFSExec: true,
		}},
		root: k.RootSB.Root,
		cwd:  k.RootSB.Root,
	}
}

func scenarioS1(k *kernel.Kernel) error {
	p := rootProc(k)
	if _, err := vfs.Mkdir(p, "/a", 0755, -1); err != nil {
		return err
	}
	if _, err := vfs.Mkdir(p, "/a/b", 0700, -1); err != nil {
		return err
	}
	if err := vfs.Rmdir(p, "/a", -1); err == nil {
		return fmt.Errorf("expected ENOTEMPTY removing non-empty dir")
	}
	if err := vfs.Rmdir(p, "/a/b", -1); err != nil {
		return err
	}
	return vfs.Rmdir(p, "/a", -1)
}

func scenarioS2(k *kernel.Kernel) error {
	fatfs.Register()

	p := rootProc(k)
	if _, err := vfs.Mkdir(p, "/mnt", 0755, -1); err != nil {
		return err
	}
	mntDir, err := vfs.Namei(p, "/mnt", -1, vfs.ODirectory)
	if err != nil {
		return err
	}

	disk := fatfs.NewMemDisk(8192, 512)
	if err := fatfs.Format(disk, fatfs.FormatOptions{}); err != nil {
		return err
	}
	sb, err := vfs.Mount(mntDir, "", "fatfs", 0, fatfs.MountParams{
		Disk:  disk,
		Clock: clock.Clock(clock.NewFakeClock(time.Now())),
	})
	if err != nil {
		return err
	}

	resolved, err := vfs.Namei(p, "/mnt", -1, vfs.ODirectory)
	if err != nil {
		return err
	}
	if resolved.SB != sb {
		return fmt.Errorf("expected /mnt to resolve across its mountpoint stack onto the FAT root, got a vnode on superblock %p, want %p", resolved.SB, sb)
	}
	return nil
}

func scenarioS3(k *kernel.Kernel) error {
	child, err := k.Table.Fork(k.Init)
	if err != nil {
		return err
	}
	k.Table.Exit(child, 7, nil)

	reaped, err := k.Table.Wait(k.Init, -1, proc.WaitOptions{})
	if err != nil {
		return err
	}
	if reaped.ID != child.ID {
		return fmt.Errorf("reaped pid %d, want %d", reaped.ID, child.ID)
	}
	want := 7 << 8
	got := proc.EncodeStatus(reaped.ExitCode, reaped.ExitSiginfo)
	if got != want {
		return fmt.Errorf("wait status = %#x, want %#x", got, want)
	}
	return nil
}

func scenarioS4(k *kernel.Kernel) error {
	parentMM := vm.NewMM()
	region, err := vm.NewSect(0, vm.PageSize, vm.ProtRead|vm.ProtWrite)
	if err != nil {
		return err
	}
	region.MMU.Backing[0] = 0xAA
	slot, err := parentMM.Insert(region, vm.MapReg)
	if err != nil {
		return err
	}

	region.Prot |= vm.ProtCOW
	region.MMU.AP = vm.UpdateUserAP(region.Prot, region.MMU.AP)

	childMM := vm.NewMM()
	if _, err := childMM.Insert(region, vm.MapReg); err != nil {
		return err
	}

	if _, err := vm.Abort(childMM, region.Start(), vm.FaultPermission, true); err != nil {
		return err
	}

	childRegion := childMM.RegionAt(slot)
	childRegion.MMU.Backing[0] = 0x55

	if region.MMU.Backing[0] != 0xAA {
		return fmt.Errorf("parent's page was mutated by the child's COW write")
	}
	if childRegion.MMU.Backing[0] != 0x55 {
		return fmt.Errorf("child's COW clone did not take the write")
	}
	return nil
}

func scenarioS5(k *kernel.Kernel) error {
	node, err := k.Sysctl.Lookup("kern.hz")
	if err != nil {
		return err
	}
	cred := &vfs.Credential{Uid: 0}
	got, err := k.Sysctl.Get(node, &sysctl.Req{Cred: cred})
	if err != nil {
		return err
	}
	if int32(binary.LittleEndian.Uint32(got)) != int32(bootConfig.Scheduler.HZ) {
		return fmt.Errorf("kern.hz round trip mismatch")
	}

	sl, err := k.Sysctl.Lookup("kern.securelevel")
	if err != nil {
		return err
	}
	writeCred := &vfs.Credential{Uid: 0, Privileges: map[vfs.Privilege]bool{vfs.PrivSysctlWrite: true}}
	newVal := make([]byte, 4)
	binary.LittleEndian.PutUint32(newVal, 1)
	if _, err := k.Sysctl.Set(sl, &sysctl.Req{Cred: writeCred, NewBuf: newVal}); err != nil {
		return err
	}
	got, err = k.Sysctl.Get(sl, &sysctl.Req{Cred: writeCred})
	if err != nil {
		return err
	}
	if binary.LittleEndian.Uint32(got) != 1 {
		return fmt.Errorf("kern.securelevel write did not stick")
	}
	return nil
}

func scenarioS6(k *kernel.Kernel) error {
	p := rootProc(k)

	disk := fatfs.NewMemDisk(8192, 512)
	if err := fatfs.Format(disk, fatfs.FormatOptions{}); err != nil {
		return err
	}
	sb, err := fatfs.Mount("", 0, fatfs.MountParams{
		Disk:  disk,
		Clock: clock.Clock(clock.NewFakeClock(time.Now())),
	})
	if err != nil {
		return err
	}
	if err := vfs.Vref(sb.Root); err != nil {
		return err
	}
	fatProc := &procCtx{cred: p.cred, root: sb.Root, cwd: sb.Root}

	longName := "Long File Name.txt"
	if _, err := vfs.Creat(fatProc, "/"+longName, 0644, -1); err != nil {
		return err
	}

	// spec.md §8 S6: the short 8.3 name (FILINFO.fname) must be a
	// tilde-number form.
	ents, err := sb.Root.Ops.Readdir(sb.Root)
	if err != nil {
		return err
	}
	const wantShort = "LONGFI~1.TXT"
	found := false
	for _, ent := range ents {
		if ent.Name == longName {
			found = true
			if ent.ShortName != wantShort {
				return fmt.Errorf("expected short name %q for %q, got %q", wantShort, longName, ent.ShortName)
			}
		}
	}
	if !found {
		return fmt.Errorf("expected %q in root directory listing", longName)
	}

	if err := vfs.Chmod(fatProc, "/"+longName, 0444, -1); err != nil {
		return err
	}

	v, err := vfs.Namei(fatProc, "/"+longName, -1, 0)
	if err != nil {
		return err
	}
	st, err := v.Ops.Getattr(v)
	if err != nil {
		return err
	}
	if st.Mode&0222 != 0 {
		return fmt.Errorf("expected read-only mode after chmod 0444, got %o", st.Mode)
	}

	if _, err := v.Ops.Write(v, 0, []byte("x")); err == nil {
		return fmt.Errorf("expected write to read-only file to fail")
	} else if e, ok := errno.Of(err); !ok || e != errno.EPERM {
		return fmt.Errorf("expected EPERM writing to read-only file, got %v", err)
	}

	if err := vfs.Chmod(fatProc, "/"+longName, 0644, -1); err != nil {
		return err
	}
	if err := vfs.Unlink(fatProc, "/"+longName, -1); err != nil {
		return err
	}
	if _, err := vfs.Namei(fatProc, "/"+longName, -1, 0); err == nil {
		return fmt.Errorf("expected lookup of unlinked file to fail")
	} else if e, ok := errno.Of(err); !ok || e != errno.ENOENT {
		return fmt.Errorf("expected ENOENT after unlink, got %v", err)
	}
	return nil
}
