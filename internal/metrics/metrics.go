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

// Package metrics exposes runtime kernel counters through
// prometheus/client_golang, the same instrumentation library the teacher
// repo uses for its own request/cache metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RunQueueLength is the instantaneous number of runnable threads in
	// the scheduler heap.
	RunQueueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tinykern",
		Subsystem: "sched",
		Name:      "run_queue_length",
		Help:      "Number of threads currently eligible for scheduling.",
	})

	// LoadAverage tracks the three EWMA load averages, one series per
	// window label, scaled by 1/2048 (the scheduler's 11-bit fixed-point
	// fraction).
	LoadAverage = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tinykern",
		Subsystem: "sched",
		Name:      "load_average",
		Help:      "Exponentially weighted moving average of the run queue size.",
	}, []string{"window"})

	// SyscallsTotal counts dispatched syscalls by subsystem jump table.
	SyscallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tinykern",
		Subsystem: "syscall",
		Name:      "total",
		Help:      "Total syscalls dispatched, by jump table.",
	}, []string{"table"})

	// FatErrnoTotal counts FAT FRESULT-to-errno translations by the
	// resulting errno class.
	FatErrnoTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tinykern",
		Subsystem: "fatfs",
		Name:      "errno_total",
		Help:      "FAT operations resulting in each errno class.",
	}, []string{"errno"})
)

// MustRegister registers every kernel collector against r. Call once at
// boot; a nil r registers against the global default registry. Nothing
// in the tree sets or increments these collectors, so they report their
// zero values.
func MustRegister(r prometheus.Registerer) {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	r.MustRegister(RunQueueLength, LoadAverage, SyscallsTotal, FatErrnoTotal)
}
