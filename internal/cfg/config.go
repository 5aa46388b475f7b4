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

// Package cfg is the kernel's boot-time configuration surface: the
// scheduler, memory manager and sysctl tree all take their tunables from
// here instead of hardcoded constants, bound from flags/env/config file
// through viper the way the teacher's cfg package binds mount options.
package cfg

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full set of kernel boot parameters.
type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	VM        VMConfig        `yaml:"vm" mapstructure:"vm"`
	Proc      ProcConfig      `yaml:"proc" mapstructure:"proc"`
	Sysctl    SysctlConfig    `yaml:"sysctl" mapstructure:"sysctl"`
	FAT       FATConfig       `yaml:"fat" mapstructure:"fat"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// SchedulerConfig tunes the priority-heap scheduler.
type SchedulerConfig struct {
	HZ            int `yaml:"hz" mapstructure:"hz"`
	LavgPeriodSec int `yaml:"lavg-period-seconds" mapstructure:"lavg-period-seconds"`
	NiceMin       int `yaml:"nice-min" mapstructure:"nice-min"`
	NiceMax       int `yaml:"nice-max" mapstructure:"nice-max"`
}

// VMConfig tunes the memory manager.
type VMConfig struct {
	PageSize int `yaml:"page-size" mapstructure:"page-size"`
}

// ProcConfig tunes the process table.
type ProcConfig struct {
	MaxProc int `yaml:"max-proc" mapstructure:"max-proc"`
}

// SysctlConfig seeds the initial sysctl security level.
type SysctlConfig struct {
	SecurityLevel int `yaml:"security-level" mapstructure:"security-level"`
}

// FATConfig points the FAT driver at a backing volume image.
type FATConfig struct {
	VolumeImagePath string `yaml:"volume-image-path" mapstructure:"volume-image-path"`
	CodePage        int    `yaml:"code-page" mapstructure:"code-page"`
}

// LoggingConfig mirrors the teacher's LogConfig: severity, format and
// rotation.
type LoggingConfig struct {
	Severity  string        `yaml:"severity" mapstructure:"severity"`
	Format    string        `yaml:"format" mapstructure:"format"`
	FilePath  string        `yaml:"file-path" mapstructure:"file-path"`
	LogRotate LogRotateConfig `yaml:"log-rotate" mapstructure:"log-rotate"`
}

// LogRotateConfig mirrors the teacher's lumberjack-backed rotation knobs.
type LogRotateConfig struct {
	MaxFileSizeMB   int  `yaml:"max-file-size-mb" mapstructure:"max-file-size-mb"`
	BackupFileCount int  `yaml:"backup-file-count" mapstructure:"backup-file-count"`
	Compress        bool `yaml:"compress" mapstructure:"compress"`
}

// Default returns the kernel's out-of-the-box boot configuration.
func Default() Config {
	return Config{
		Scheduler: SchedulerConfig{HZ: 100, LavgPeriodSec: 5, NiceMin: -20, NiceMax: 20},
		VM:        VMConfig{PageSize: 4096},
		Proc:      ProcConfig{MaxProc: 1 << 16},
		Sysctl:    SysctlConfig{SecurityLevel: -1},
		FAT:       FATConfig{CodePage: 437},
		Logging: LoggingConfig{
			Severity: "INFO",
			Format:   "json",
			LogRotate: LogRotateConfig{
				MaxFileSizeMB:   64,
				BackupFileCount: 5,
				Compress:        true,
			},
		},
	}
}

// BindFlags registers every boot parameter as a pflag and binds it into
// viper, the same wiring shape the teacher's cfg.BindFlags uses for mount
// options.
func BindFlags(fs *pflag.FlagSet) error {
	d := Default()

	fs.Int("scheduler.hz", d.Scheduler.HZ, "Kernel timer tick rate.")
	fs.Int("scheduler.lavg-period-seconds", d.Scheduler.LavgPeriodSec, "Load average sampling period, in seconds.")
	fs.Int("scheduler.nice-min", d.Scheduler.NiceMin, "Lowest nice value a process may request.")
	fs.Int("scheduler.nice-max", d.Scheduler.NiceMax, "Highest nice value a process may request.")
	fs.Int("vm.page-size", d.VM.PageSize, "Virtual memory page size in bytes.")
	fs.Int("proc.max-proc", d.Proc.MaxProc, "Upper bound on live process ids.")
	fs.Int("sysctl.security-level", d.Sysctl.SecurityLevel, "Initial sysctl security level (-1 disables CTLFLAG_SECURE gating).")
	fs.String("fat.volume-image-path", d.FAT.VolumeImagePath, "Path to the backing FAT volume image.")
	fs.Int("fat.code-page", d.FAT.CodePage, "OEM code page used for FAT short-name translation.")
	fs.String("logging.severity", d.Logging.Severity, "Minimum log severity: TRACE, DEBUG, INFO, WARNING, ERROR.")
	fs.String("logging.format", d.Logging.Format, "Log encoding: text or json.")
	fs.String("logging.file-path", d.Logging.FilePath, "Log file path; empty logs to stderr.")
	fs.Int("logging.log-rotate.max-file-size-mb", d.Logging.LogRotate.MaxFileSizeMB, "Log file size, in MiB, that triggers rotation.")
	fs.Int("logging.log-rotate.backup-file-count", d.Logging.LogRotate.BackupFileCount, "Number of rotated log files retained.")
	fs.Bool("logging.log-rotate.compress", d.Logging.LogRotate.Compress, "Gzip rotated log files.")

	for _, name := range []string{
		"scheduler.hz", "scheduler.lavg-period-seconds", "scheduler.nice-min", "scheduler.nice-max",
		"vm.page-size", "proc.max-proc", "sysctl.security-level",
		"fat.volume-image-path", "fat.code-page",
		"logging.severity", "logging.format", "logging.file-path",
		"logging.log-rotate.max-file-size-mb", "logging.log-rotate.backup-file-count", "logging.log-rotate.compress",
	} {
		if err := viper.BindPFlag(name, fs.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// Resolve decodes viper's current state into a Config, applying
// mapstructure's decode hooks for the handful of non-primitive fields.
func Resolve(v *viper.Viper) (Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hookFunc())); err != nil {
		return Config{}, err
	}
	normalizeLogging(&cfg)
	return cfg, nil
}

// LavgPeriod reports the scheduler's configured load-average sampling
// period as a time.Duration, for callers outside this package that
// prefer not to reason about raw seconds.
func (c Config) LavgPeriod() time.Duration {
	return time.Duration(c.Scheduler.LavgPeriodSec) * time.Second
}
