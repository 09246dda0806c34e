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
	"sync"
	"time"
)

// Event is something that can be waited on, such as a Signal.
type Event interface {
	Fired() bool
	Wait(ctx context.Context) bool
	TryWait(ctx context.Context, timeout time.Duration) bool
}

// Events collects events to wait on together. It is safe for concurrent
// use. Fired events are dropped from the collection.
type Events struct {
	mutex  sync.Mutex
	events []Event
}

// Add adds events to the collection.
func (e *Events) Add(events ...Event) {
	e.mutex.Lock()
	e.events = append(e.events, events...)
	e.mutex.Unlock()
}

// Pending returns the number of events that have not fired.
func (e *Events) Pending() int {
	return len(e.unfired())
}

// TryWait waits until every event added so far has fired, returning false
// if timeout passes or ctx is stopped first.
func (e *Events) TryWait(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for _, event := range e.unfired() {
		if !event.TryWait(ctx, time.Until(deadline)) {
			return false
		}
	}
	return true
}

// unfired drops the fired events and returns a copy of the rest.
func (e *Events) unfired() []Event {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	kept := e.events[:0]
	for _, event := range e.events {
		if !event.Fired() {
			kept = append(kept, event)
		}
	}
	for i := len(kept); i < len(e.events); i++ {
		e.events[i] = nil
	}
	e.events = kept
	return append([]Event(nil), kept...)
}
