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

package cfg

import "fmt"

// Validate rejects boot parameters the kernel cannot act on, the same
// role the teacher's cfg.ValidateConfig plays for mount options.
func (c Config) Validate() error {
	if c.VM.PageSize <= 0 || c.VM.PageSize&(c.VM.PageSize-1) != 0 {
		return fmt.Errorf("vm.page-size must be a positive power of two, got %d", c.VM.PageSize)
	}
	if c.Scheduler.HZ <= 0 {
		return fmt.Errorf("scheduler.hz must be positive, got %d", c.Scheduler.HZ)
	}
	if c.Scheduler.LavgPeriodSec != 5 && c.Scheduler.LavgPeriodSec != 11 {
		return fmt.Errorf("scheduler.lavg-period-seconds must be 5 or 11, got %d", c.Scheduler.LavgPeriodSec)
	}
	if c.Scheduler.NiceMin >= c.Scheduler.NiceMax {
		return fmt.Errorf("scheduler.nice-min (%d) must be less than scheduler.nice-max (%d)", c.Scheduler.NiceMin, c.Scheduler.NiceMax)
	}
	if c.Proc.MaxProc <= 0 {
		return fmt.Errorf("proc.max-proc must be positive, got %d", c.Proc.MaxProc)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}
