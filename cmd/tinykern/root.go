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

// Package main is the tinykern operator entrypoint: it boots the
// simulated kernel described in spec.md and drives it through a cobra
// command tree, mirroring the shape of the teacher's own cmd/ package
// (a root command with persistent config flags and verb subcommands)
// even though the kernel itself exposes no shell.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tinykern/tinykern/internal/cfg"
	"github.com/tinykern/tinykern/internal/logger"
	"github.com/tinykern/tinykern/internal/metrics"
)

var bootConfig cfg.Config

var rootCmd = &cobra.Command{
	Use:   "tinykern",
	Short: "Boot and drive the tinykern simulated kernel core",
	Long: `tinykern hosts the process/scheduler, VM manager, VFS, ramfs, FAT
driver and sysctl MIB described in spec.md as a single-process Go
program, the way the teacher repo hosts a POSIX file system as a
userspace FUSE daemon instead of an in-kernel driver.`,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		resolved, err := cfg.Resolve(viper.GetViper())
		if err != nil {
			return fmt.Errorf("resolving configuration: %w", err)
		}
		bootConfig = resolved

		if err := logger.Init(logger.Config{
			Format:     bootConfig.Logging.Format,
			Severity:   strings.ToLower(bootConfig.Logging.Severity),
			FilePath:   bootConfig.Logging.FilePath,
			MaxSizeMB:  bootConfig.Logging.LogRotate.MaxFileSizeMB,
			MaxBackups: bootConfig.Logging.LogRotate.BackupFileCount,
		}); err != nil {
			return fmt.Errorf("initialising logger: %w", err)
		}
		metrics.MustRegister(nil)
		return nil
	},
}

func init() {
	if err := cfg.BindFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintln(os.Stderr, "tinykern: binding flags:", err)
		os.Exit(1)
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	rootCmd.AddCommand(bootCmd)
	rootCmd.AddCommand(sysctlCmd)
	rootCmd.AddCommand(scenarioCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
