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

// Package session manages the server side state shared by the connections
// of one client: its method table, event cache and facades.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/jsonrpcd/eventcache"
	"github.com/google/jsonrpcd/method"
)

// Facade is a set of methods instantiated for each session.
type Facade interface {
	Methods() []*method.Method
}

// Shutdowner is implemented by facades that release resources when their
// session closes.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Factory builds a facade for a new session.
type Factory func(ctx context.Context, s *Session) (Facade, error)

// Session is the state of one client.
type Session struct {
	// UID is the identifier handed to the client in the handshake.
	UID int
	// Created is when the session was initiated.
	Created time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	methods   *method.Table
	events    *eventcache.Cache
	facades   []Facade
	callbacks uint64

	mutex      sync.Mutex
	lastActive time.Time
	attached   int
	closed     bool
}

// Info is a snapshot of the state of a session.
type Info struct {
	UID         int       `json:"uid"`
	Created     time.Time `json:"created"`
	LastActive  time.Time `json:"lastActive"`
	Connections int       `json:"connections"`
	Methods     int       `json:"methods"`
	Events      int       `json:"events"`
}

// Context returns a context that lives as long as the session.
// Work started by asynchronous methods should use it.
func (s *Session) Context() context.Context { return s.ctx }

// Methods returns the method table of the session.
func (s *Session) Methods() *method.Table { return s.methods }

// Events returns the event cache of the session.
func (s *Session) Events() *eventcache.Cache { return s.events }

// NextCallbackID returns a new callback id of the form <uid>-<seq>.
func (s *Session) NextCallbackID() string {
	return fmt.Sprintf("%d-%d", s.UID, atomic.AddUint64(&s.callbacks, 1))
}

// Touch records activity on the session at time t.
func (s *Session) Touch(t time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if t.After(s.lastActive) {
		s.lastActive = t
	}
}

// LastActive returns the time of the last activity on the session.
func (s *Session) LastActive() time.Time {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.lastActive
}

// Attached returns the number of connections using the session.
func (s *Session) Attached() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.attached
}

// Closed returns true once the session has been closed.
func (s *Session) Closed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closed
}

// Info returns a snapshot of the session state.
func (s *Session) Info() Info {
	s.mutex.Lock()
	info := Info{
		UID:         s.UID,
		Created:     s.Created,
		LastActive:  s.lastActive,
		Connections: s.attached,
	}
	s.mutex.Unlock()
	info.Methods = s.methods.Len()
	info.Events = s.events.Len()
	return info
}
