// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package task

import (
	"context"
	"time"
)

// Signal is closed, never sent to, when the event it stands for happens.
type Signal <-chan struct{}

// FiredSignal has already fired.
var FiredSignal = func() Signal {
	c := make(chan struct{})
	close(c)
	return c
}()

// NewSignal returns an unfired signal and the Task that fires it.
// The Task must be run at most once.
func NewSignal() (Signal, Task) {
	c := make(chan struct{})
	fire := func(context.Context) error {
		close(c)
		return nil
	}
	return c, fire
}

// Fired reports whether the signal has fired, without blocking.
func (s Signal) Fired() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}

// Wait blocks until the signal fires, returning false if ctx is stopped
// first.
func (s Signal) Wait(ctx context.Context) bool {
	return s.wait(ctx, nil)
}

// TryWait is Wait bounded by timeout.
func (s Signal) TryWait(ctx context.Context, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	return s.wait(ctx, t.C)
}

// wait blocks until s fires, ctx stops or expired delivers. A signal that
// fired at the same moment still counts.
func (s Signal) wait(ctx context.Context, expired <-chan time.Time) bool {
	select {
	case <-s:
		return true
	case <-ShouldStop(ctx):
	case <-expired:
	}
	return s.Fired()
}
