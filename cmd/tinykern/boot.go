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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinykern/tinykern/internal/kernel"
	"github.com/tinykern/tinykern/internal/logger"
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Boot the kernel (mount root ramfs, start pid 1 and the scheduler) and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := kernel.Boot(bootConfig)
		if err != nil {
			return err
		}
		logger.Infof("tinykern: booted, pid 1 state=%s, HZ=%d, MaxProc=%d",
			k.Init.State(), bootConfig.Scheduler.HZ, bootConfig.Proc.MaxProc)
		l1, l5, l15 := k.Sched.LoadAverages()
		fmt.Printf("booted: pid1=%d root_ino=%d load=%.2f/%.2f/%.2f\n",
			k.Init.ID, k.RootSB.Root.Ino, l1, l5, l15)
		return nil
	},
}
