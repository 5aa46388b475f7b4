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

package proc

import (
	"time"

	"github.com/tinykern/tinykern/internal/clock"
)

// sched_threadDelay: puts t to sleep and re-marks it executable when the
// wait-timer descriptor fires, driven by cl so tests can use
// clock.SimulatedClock instead of a real timer.
func (s *Scheduler) ThreadDelay(t *Thread, cl clock.Clock, d time.Duration) {
	t.setFlag(FlagWait, true)
	s.Sleep(t)

	fire := func() {
		t.setFlag(FlagWait, false)
		s.Wake(t)
	}

	if sc, ok := cl.(*clock.SimulatedClock); ok {
		go func() {
			<-sc.After(d)
			fire()
		}()
		return
	}

	go func() {
		<-time.After(d)
		fire()
	}()
}
