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

package log

import "sync"

// Broadcaster forwards all messages to all supplied handlers.
// Broadcaster implements the Handler interface.
type Broadcaster struct {
	l        sync.RWMutex
	handlers map[int]Handler
	nextID   int
}

// Broadcast returns a new Broadcaster that forwards all messages to all the
// supplied handlers.
func Broadcast(handlers ...Handler) *Broadcaster {
	b := &Broadcaster{handlers: map[int]Handler{}}
	for _, h := range handlers {
		b.Listen(h)
	}
	return b
}

// Listen calls adds h to the list of handlers that are informed of each log
// message passed to Handle.
// The returned function removes h from the list.
func (b *Broadcaster) Listen(h Handler) (unlisten func()) {
	b.l.Lock()
	defer b.l.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	return func() {
		b.l.Lock()
		defer b.l.Unlock()
		delete(b.handlers, id)
	}
}

// Count returns the number of registered handlers.
func (b *Broadcaster) Count() int {
	b.l.RLock()
	defer b.l.RUnlock()
	return len(b.handlers)
}

// Handle broadcasts the page to all the listening handlers.
func (b *Broadcaster) Handle(m *Message) {
	b.l.RLock()
	defer b.l.RUnlock()
	for _, h := range b.handlers {
		h.Handle(m)
	}
}

// Close calls Close on all the listening handlers and removes them from the
// broadcaster.
func (b *Broadcaster) Close() {
	b.l.Lock()
	defer b.l.Unlock()
	for _, h := range b.handlers {
		h.Close()
	}
	b.handlers = map[int]Handler{}
}
