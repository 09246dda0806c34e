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

package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/jsonrpcd/core/fault"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/eventcache"
	"github.com/google/jsonrpcd/method"
	"github.com/pkg/errors"
)

const (
	// ErrUnknownSession is returned for a uid with no open session.
	ErrUnknownSession = fault.Const("Unknown session")
	// ErrTooManySessions is returned when the session limit is reached.
	ErrTooManySessions = fault.Const("Too many sessions")
	// ErrSessionClosed is returned when attaching to a closed session.
	ErrSessionClosed = fault.Const("Session closed")
)

// Manager owns the open sessions.
type Manager struct {
	// MaxSessions limits the number of open sessions, 0 means no limit.
	MaxSessions int
	// EventCacheSize is the size of the event cache of new sessions.
	EventCacheSize int
	// Now is the clock used for session activity.
	Now func() time.Time

	factories []Factory

	mutex    sync.Mutex
	sessions map[int]*Session
	pending  int
	lastUID  int
}

// NewManager returns a manager that instantiates the factories for every
// new session, in order.
func NewManager(factories ...Factory) *Manager {
	return &Manager{
		Now:       time.Now,
		factories: factories,
		sessions:  map[int]*Session{},
	}
}

// Initiate creates a new session with the next uid and attaches the caller
// to it. The session is only visible to Get, Continue and Close once all of
// its facades are built.
func (m *Manager) Initiate(ctx context.Context) (*Session, error) {
	now := m.Now()
	m.mutex.Lock()
	if m.MaxSessions > 0 && len(m.sessions)+m.pending >= m.MaxSessions {
		m.mutex.Unlock()
		return nil, errors.Wrapf(ErrTooManySessions, "limit is %d", m.MaxSessions)
	}
	m.lastUID++
	m.pending++
	s := &Session{
		UID:        m.lastUID,
		Created:    now,
		methods:    &method.Table{},
		events:     eventcache.New(m.EventCacheSize),
		lastActive: now,
		attached:   1,
	}
	m.mutex.Unlock()
	s.events.Now = m.Now

	ctx = log.V{"uid": s.UID}.Bind(ctx)
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for _, factory := range m.factories {
		f, err := factory(s.ctx, s)
		if err == nil {
			err = s.methods.Add(f.Methods()...)
		}
		if err != nil {
			if f != nil {
				s.facades = append(s.facades, f)
			}
			m.mutex.Lock()
			m.pending--
			m.mutex.Unlock()
			if e := m.shutdown(ctx, s); e != nil {
				log.W(ctx, "Shutting down partial session: %v", e)
			}
			return nil, errors.Wrap(err, "creating session facades")
		}
		s.facades = append(s.facades, f)
	}

	m.mutex.Lock()
	m.pending--
	m.sessions[s.UID] = s
	m.mutex.Unlock()
	log.I(ctx, "Session initiated with %d methods", s.methods.Len())
	return s, nil
}

// Continue attaches the caller to the open session with the uid.
func (m *Manager) Continue(ctx context.Context, uid int) (*Session, error) {
	s, ok := m.Get(uid)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSession, "uid %d", uid)
	}
	if err := m.Attach(s); err != nil {
		return nil, err
	}
	log.D(log.V{"uid": uid}.Bind(ctx), "Session continued")
	return s, nil
}

// Get returns the open session with the uid.
func (m *Manager) Get(uid int) (*Session, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s, ok := m.sessions[uid]
	return s, ok
}

// Sessions returns the open sessions ordered by uid.
func (m *Manager) Sessions() []*Session {
	m.mutex.Lock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mutex.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

// Attach records a connection using s.
func (m *Manager) Attach(s *Session) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return errors.Wrapf(ErrSessionClosed, "uid %d", s.UID)
	}
	s.attached++
	if now := m.Now(); now.After(s.lastActive) {
		s.lastActive = now
	}
	return nil
}

// Detach records that a connection stopped using s.
func (m *Manager) Detach(s *Session) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.attached > 0 {
		s.attached--
	}
	if now := m.Now(); now.After(s.lastActive) {
		s.lastActive = now
	}
}

// Close shuts down the facades of the session with the uid in reverse
// creation order, drops its events and forgets it.
func (m *Manager) Close(ctx context.Context, uid int) error {
	m.mutex.Lock()
	s, ok := m.sessions[uid]
	delete(m.sessions, uid)
	m.mutex.Unlock()
	if !ok {
		return errors.Wrapf(ErrUnknownSession, "uid %d", uid)
	}

	return m.shutdown(log.V{"uid": uid}.Bind(ctx), s)
}

// shutdown marks s closed, shuts down its facades in reverse creation order
// and drops its events.
func (m *Manager) shutdown(ctx context.Context, s *Session) error {
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()

	errs := fault.List{}
	for i := len(s.facades) - 1; i >= 0; i-- {
		if sd, ok := s.facades[i].(Shutdowner); ok {
			errs.Collect(sd.Shutdown(ctx))
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.events.Clear()
	log.I(ctx, "Session closed")
	return errs.Err()
}

// CloseAll closes every open session.
func (m *Manager) CloseAll(ctx context.Context) error {
	errs := fault.List{}
	for _, s := range m.Sessions() {
		errs.Collect(m.Close(ctx, s.UID))
	}
	return errs.Err()
}

// Reap closes the sessions with no attached connection that have been
// inactive for longer than idle, returning their uids.
func (m *Manager) Reap(ctx context.Context, idle time.Duration) []int {
	now := m.Now()
	reaped := []int{}
	for _, s := range m.Sessions() {
		s.mutex.Lock()
		expired := s.attached == 0 && now.Sub(s.lastActive) > idle
		s.mutex.Unlock()
		if !expired {
			continue
		}
		if err := m.Close(ctx, s.UID); err != nil {
			log.W(ctx, "Closing idle session %d: %v", s.UID, err)
		}
		reaped = append(reaped, s.UID)
	}
	if len(reaped) > 0 {
		log.I(ctx, "Reaped %d idle sessions", len(reaped))
	}
	return reaped
}
