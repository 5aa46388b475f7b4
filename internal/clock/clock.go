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

// Package clock provides a thin abstraction over wall-clock time so that
// timestamp-sensitive kernel subsystems (ramfs inode times, FAT directory
// entries, scheduler ThreadDelay wake-ups) can be driven deterministically
// in tests.
package clock

import "time"

// Clock is the dependency every timestamp-producing subsystem takes instead
// of calling time.Now directly.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the host's wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FakeClock implements Clock with a time that only advances when told to,
// for use in tests that assert on exact timestamps (e.g. ramfs atime/mtime
// invariants, FAT creation-time stamping).
type FakeClock struct {
	t time.Time
}

// NewFakeClock returns a FakeClock initialised to t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{t: t}
}

func (c *FakeClock) Now() time.Time { return c.t }

// Advance moves the fake clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// SetTime pins the fake clock to an absolute time.
func (c *FakeClock) SetTime(t time.Time) {
	c.t = t
}
