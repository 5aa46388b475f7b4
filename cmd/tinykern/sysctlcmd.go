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

	"github.com/spf13/cobra"

	"github.com/tinykern/tinykern/internal/kernel"
	"github.com/tinykern/tinykern/internal/sysctl"
	"github.com/tinykern/tinykern/internal/vfs"
)

var sysctlWriteValue string

var sysctlCmd = &cobra.Command{
	Use:   "sysctl [name]",
	Short: "Boot a kernel and read (or write) one sysctl node, or dump the whole tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := kernel.Boot(bootConfig)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			out, err := k.Sysctl.Dump()
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		node, err := k.Sysctl.Lookup(args[0])
		if err != nil {
			return err
		}

		cred := &vfs.Credential{Uid: 0, Privileges: map[vfs.Privilege]bool{vfs.PrivSysctlWrite: true}}

		if sysctlWriteValue != "" {
			var n int32
			if _, err := fmt.Sscanf(sysctlWriteValue, "%d", &n); err != nil {
				return fmt.Errorf("sysctl: parsing new value %q: %w", sysctlWriteValue, err)
			}
			buf := make([]byte, 4)
			binary.LittleEndian.PutUint32(buf, uint32(n))
			if _, err := k.Sysctl.Set(node, &sysctl.Req{Cred: cred, NewBuf: buf}); err != nil {
				return err
			}
		}

		got, err := k.Sysctl.Get(node, &sysctl.Req{Cred: cred})
		if err != nil {
			return err
		}
		if len(got) == 4 {
			fmt.Printf("%s = %d\n", args[0], int32(binary.LittleEndian.Uint32(got)))
		} else {
			fmt.Printf("%s = %q\n", args[0], string(got))
		}
		return nil
	},
}

func init() {
	sysctlCmd.Flags().StringVarP(&sysctlWriteValue, "write", "w", "", "new integer value to write before reading back")
}
