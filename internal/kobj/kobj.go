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

// Package kobj provides the kernel heap's reference-counted object
// primitive: an atomic counter paired with a destructor, the Go stand-in
// for the source kernel's kmalloc/kobj pair. No other package in the tree
// imports it; vnodes and files keep their own reference counters.
package kobj

import (
	"fmt"
	"sync/atomic"

	"github.com/tinykern/tinykern/internal/logger"
)

// Ref is an atomic, destructor-bearing reference count. The zero value is
// not usable; construct with New.
type Ref struct {
	count   atomic.Int64
	destroy func() error
}

// New creates a Ref with an initial count of 1. destroy is invoked exactly
// once, when the count is observed to drop to (or through) zero.
func New(destroy func() error) *Ref {
	r := &Ref{destroy: destroy}
	r.count.Store(1)
	return r
}

// Get increments the count and reports whether it did. It fails (returns
// false) if the object is already being destroyed, mirroring vref's
// "refcount <= 0" rejection.
func (r *Ref) Get() (ok bool) {
	for {
		cur := r.count.Load()
		if cur <= 0 {
			return false
		}
		if r.count.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// Put decrements the count by delta and destroys the object when the count
// reaches zero. delta must be positive.
func (r *Ref) Put(delta int64) (destroyed bool) {
	if delta <= 0 {
		panic(fmt.Sprintf("kobj: non-positive Put delta %d", delta))
	}
	newVal := r.count.Add(-delta)
	if newVal > 0 {
		return false
	}
	if newVal+delta <= 0 {
		// The count was already at or below zero before this Put (a racing
		// double-free), so the destructor has already been claimed; only
		// the caller whose Put takes the count from positive to zero or
		// below runs it.
		return false
	}
	if err := r.destroy(); err != nil {
		logger.Errorf("kobj: destroy: %v", err)
	}
	return true
}

// Count returns the current reference count, for diagnostics/tests only.
func (r *Ref) Count() int64 { return r.count.Load() }
