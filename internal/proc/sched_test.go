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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinykern/tinykern/internal/proc"
)

func TestSchedulerPicksHighestPriority(t *testing.T) {
	s := proc.NewScheduler(5)
	low := &proc.Thread{ID: 1, Priority: proc.PriorityDefault, TSCounter: 4}
	high := &proc.Thread{ID: 2, Priority: proc.PriorityRealtime, TSCounter: 4}
	low.MarkRunnable()
	high.MarkRunnable()
	s.Enqueue(low)
	s.Enqueue(high)

	picked := s.Pick()
	require.Equal(t, high.ID, picked.ID)
}

// TestSchedulerPenaltyPreventsStarvation reproduces spec.md §8 #8: a
// thread that exhausts its time slice without being realtime is
// demoted, letting other runnable threads get a turn instead of the
// same thread monopolising the CPU.
func TestSchedulerPenaltyPreventsStarvation(t *testing.T) {
	s := proc.NewScheduler(5)
	hog := &proc.Thread{ID: 1, Priority: proc.PriorityDefault, TSCounter: 0}
	other := &proc.Thread{ID: 2, Priority: proc.PriorityDefault - 1, TSCounter: 4}
	hog.MarkRunnable()
	other.MarkRunnable()
	s.Enqueue(hog)
	s.Enqueue(other)

	picked := s.Pick()
	require.Equal(t, other.ID, picked.ID, "exhausted thread must be demoted below a fresher one")
}

func TestSleepWakeRoundTrip(t *testing.T) {
	s := proc.NewScheduler(5)
	th := &proc.Thread{ID: 1, Priority: proc.PriorityDefault, TSCounter: 4}
	th.MarkRunnable()
	s.Enqueue(th)
	require.Equal(t, 1, s.RunQueueLen())

	s.Sleep(th)
	require.Equal(t, 0, s.RunQueueLen())

	ok := s.Wake(th)
	require.True(t, ok)
	require.Equal(t, 1, s.RunQueueLen())
}

func TestWakeRefusesThreadNotInUse(t *testing.T) {
	s := proc.NewScheduler(5)
	th := &proc.Thread{ID: 1}
	require.False(t, s.Wake(th))
}

func TestLoadAveragesRiseUnderSustainedLoad(t *testing.T) {
	s := proc.NewScheduler(5)
	th := &proc.Thread{ID: 1, Priority: proc.PriorityDefault, TSCounter: 1 << 20}
	th.MarkRunnable()
	s.Enqueue(th)

	for i := 0; i < proc.HZ*5+1; i++ {
		s.Tick()
	}

	l1, _, _ := s.LoadAverages()
	require.Greater(t, l1, 0.0)
}
