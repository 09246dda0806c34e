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

// Package eventcache holds the events posted by asynchronous methods until a
// client collects them.
package eventcache

import (
	"context"
	"sync"
	"time"

	"github.com/google/jsonrpcd/core/event/task"
	"github.com/google/jsonrpcd/core/fault"
	"github.com/pkg/errors"
)

const (
	// ErrTimeout is returned by WaitAndGet when no event arrived in time.
	ErrTimeout = fault.Const("Timed out waiting for event")
	// DefaultMaxSize is the number of events held when no limit is given.
	DefaultMaxSize = 1024
)

// Event is a single notification posted against a callback id.
type Event struct {
	CallbackID string                 `json:"callbackId"`
	Name       string                 `json:"name"`
	Time       int64                  `json:"time"`
	Data       map[string]interface{} `json:"data"`
}

type key struct {
	callbackID string
	name       string
}

type entry struct {
	seq   uint64
	event Event
}

// Cache holds FIFO queues of events keyed by callback id and event name.
// When full the oldest event over all queues is dropped.
// It is safe for concurrent use.
type Cache struct {
	mutex   sync.Mutex
	max     int
	size    int
	seq     uint64
	dropped int
	queues  map[key][]entry
	changed task.Signal
	fire    task.Task
	// Now is the clock used to stamp events posted without a time.
	Now func() time.Time
}

// New returns a cache holding at most max events.
// If max is not positive DefaultMaxSize is used.
func New(max int) *Cache {
	if max <= 0 {
		max = DefaultMaxSize
	}
	c := &Cache{max: max, queues: map[key][]entry{}, Now: time.Now}
	c.changed, c.fire = task.NewSignal()
	return c
}

// Post adds the event to the end of its queue, waking any waiters.
func (c *Cache) Post(e Event) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if e.Time == 0 {
		e.Time = c.Now().UnixNano() / int64(time.Millisecond)
	}
	if e.Data == nil {
		e.Data = map[string]interface{}{}
	}
	if c.size >= c.max {
		c.dropOldest()
	}
	c.seq++
	k := key{e.CallbackID, e.Name}
	c.queues[k] = append(c.queues[k], entry{seq: c.seq, event: e})
	c.size++
	c.notify()
}

func (c *Cache) dropOldest() {
	var oldest key
	found := false
	for k, q := range c.queues {
		if !found || q[0].seq < c.queues[oldest][0].seq {
			oldest, found = k, true
		}
	}
	if !found {
		return
	}
	c.pop(oldest)
	c.dropped++
}

func (c *Cache) pop(k key) Event {
	q := c.queues[k]
	e := q[0].event
	if len(q) == 1 {
		delete(c.queues, k)
	} else {
		c.queues[k] = q[1:]
	}
	c.size--
	return e
}

// notify must be called with the lock held.
func (c *Cache) notify() {
	c.fire(context.Background())
	c.changed, c.fire = task.NewSignal()
}

// WaitAndGet removes and returns the oldest event with the callback id and
// name, waiting up to timeout for one to be posted.
// It returns ErrTimeout if none arrives in time, or the context error if ctx
// is cancelled first.
func (c *Cache) WaitAndGet(ctx context.Context, callbackID, name string, timeout time.Duration) (Event, error) {
	k := key{callbackID, name}
	deadline := time.Now().Add(timeout)
	for {
		c.mutex.Lock()
		if _, ok := c.queues[k]; ok {
			e := c.pop(k)
			c.mutex.Unlock()
			return e, nil
		}
		changed := c.changed
		c.mutex.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Event{}, errors.Wrapf(ErrTimeout, "%s %s after %v", callbackID, name, timeout)
		}
		if !changed.TryWait(ctx, remaining) {
			if err := task.StopReason(ctx); err != nil {
				return Event{}, err
			}
		}
	}
}

// GetAll removes and returns all the events with the callback id and name,
// oldest first.
func (c *Cache) GetAll(callbackID, name string) []Event {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	k := key{callbackID, name}
	q := c.queues[k]
	out := make([]Event, len(q))
	for i, e := range q {
		out[i] = e.event
	}
	delete(c.queues, k)
	c.size -= len(q)
	return out
}

// Clear drops every event.
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.queues = map[key][]entry{}
	c.size = 0
}

// Len returns the number of events held.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.size
}

// Dropped returns the number of events discarded because the cache was full.
func (c *Cache) Dropped() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.dropped
}
