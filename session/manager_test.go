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

package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/jsonrpcd/core/assert"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/eventcache"
	"github.com/google/jsonrpcd/method"
	"github.com/google/jsonrpcd/session"
)

type recorder struct {
	name  string
	order *[]string
	fail  error
}

func (r *recorder) Methods() []*method.Method {
	return []*method.Method{method.Must(method.Func(r.name, func(context.Context) error { return nil }))}
}

func (r *recorder) Shutdown(ctx context.Context) error {
	*r.order = append(*r.order, r.name)
	return r.fail
}

func factory(name string, order *[]string) session.Factory {
	return func(ctx context.Context, s *session.Session) (session.Facade, error) {
		return &recorder{name: name, order: order}, nil
	}
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestInitiateAndClose(t *testing.T) {
	ctx := log.Testing(t)
	order := []string{}
	m := session.NewManager(factory("a", &order), factory("b", &order))

	s1, err := m.Initiate(ctx)
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "uid").That(s1.UID).Equals(1)
	assert.For(ctx, "methods").That(s1.Methods().Len()).Equals(2)
	assert.For(ctx, "attached").That(s1.Attached()).Equals(1)

	s2, _ := m.Initiate(ctx)
	assert.For(ctx, "uid").That(s2.UID).Equals(2)
	assert.For(ctx, "callback").That(s2.NextCallbackID()).Equals("2-1")
	assert.For(ctx, "callback").That(s2.NextCallbackID()).Equals("2-2")

	s1.Events().Post(eventcache.Event{CallbackID: "1-1", Name: "x"})
	err = m.Close(ctx, s1.UID)
	assert.For(ctx, "close").ThatError(err).Succeeded()
	assert.For(ctx, "closed").ThatBoolean(s1.Closed()).IsTrue()
	assert.For(ctx, "events cleared").That(s1.Events().Len()).Equals(0)
	assert.For(ctx, "shutdown order").ThatSlice(order).Equals([]string{"b", "a"})
	assert.For(ctx, "session context").ThatError(s1.Context().Err()).Equals(context.Canceled)

	_, found := m.Get(s1.UID)
	assert.For(ctx, "forgotten").ThatBoolean(found).IsFalse()
	assert.For(ctx, "close again").ThatError(m.Close(ctx, s1.UID)).HasCause(session.ErrUnknownSession)

	s3, _ := m.Initiate(ctx)
	assert.For(ctx, "uids never repeat").That(s3.UID).Equals(3)
	assert.For(ctx, "sessions").ThatSlice(m.Sessions()).IsLength(2)

	assert.For(ctx, "close all").ThatError(m.CloseAll(ctx)).Succeeded()
	assert.For(ctx, "sessions").ThatSlice(m.Sessions()).IsEmpty()
}

func TestContinue(t *testing.T) {
	ctx := log.Testing(t)
	m := session.NewManager()
	s, _ := m.Initiate(ctx)

	c, err := m.Continue(ctx, s.UID)
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "same").That(c).Equals(s)
	assert.For(ctx, "attached").That(s.Attached()).Equals(2)

	_, err = m.Continue(ctx, 99)
	assert.For(ctx, "unknown").ThatError(err).HasCause(session.ErrUnknownSession)

	m.Close(ctx, s.UID)
	assert.For(ctx, "attach closed").ThatError(m.Attach(s)).HasCause(session.ErrSessionClosed)
}

func TestMaxSessions(t *testing.T) {
	ctx := log.Testing(t)
	m := session.NewManager()
	m.MaxSessions = 1
	s, err := m.Initiate(ctx)
	assert.For(ctx, "first").ThatError(err).Succeeded()
	_, err = m.Initiate(ctx)
	assert.For(ctx, "second").ThatError(err).HasCause(session.ErrTooManySessions)
	m.Close(ctx, s.UID)
	_, err = m.Initiate(ctx)
	assert.For(ctx, "after close").ThatError(err).Succeeded()
}

func TestFacadeFailures(t *testing.T) {
	ctx := log.Testing(t)
	order := []string{}
	bad := func(ctx context.Context, s *session.Session) (session.Facade, error) {
		return nil, fmt.Errorf("no hardware")
	}
	m := session.NewManager(factory("a", &order), bad)
	_, err := m.Initiate(ctx)
	assert.For(ctx, "err").ThatError(err).Failed()
	assert.For(ctx, "cleaned up").ThatSlice(order).Equals([]string{"a"})
	assert.For(ctx, "no sessions").ThatSlice(m.Sessions()).IsEmpty()

	dup := session.NewManager(factory("a", &order), factory("a", &order))
	_, err = dup.Initiate(ctx)
	assert.For(ctx, "duplicate").ThatError(err).HasCause(method.ErrDuplicateMethod)
}

func TestShutdownError(t *testing.T) {
	ctx := log.Testing(t)
	order := []string{}
	m := session.NewManager(func(ctx context.Context, s *session.Session) (session.Facade, error) {
		return &recorder{name: "a", order: &order, fail: fmt.Errorf("stuck")}, nil
	})
	s, _ := m.Initiate(ctx)
	err := m.Close(ctx, s.UID)
	assert.For(ctx, "err").ThatError(err).HasMessage("stuck")
	_, found := m.Get(s.UID)
	assert.For(ctx, "still removed").ThatBoolean(found).IsFalse()
}

func TestReap(t *testing.T) {
	ctx := log.Testing(t)
	c := &clock{now: time.Unix(1000, 0)}
	m := session.NewManager()
	m.Now = c.Now

	busy, _ := m.Initiate(ctx)
	idle, _ := m.Initiate(ctx)
	fresh, _ := m.Initiate(ctx)
	m.Detach(idle)
	c.now = c.now.Add(time.Minute)
	m.Detach(fresh)
	c.now = c.now.Add(30 * time.Second)

	reaped := m.Reap(ctx, 45*time.Second)
	assert.For(ctx, "reaped").ThatSlice(reaped).Equals([]int{idle.UID})
	_, found := m.Get(busy.UID)
	assert.For(ctx, "busy kept").ThatBoolean(found).IsTrue()
	_, found = m.Get(fresh.UID)
	assert.For(ctx, "fresh kept").ThatBoolean(found).IsTrue()

	info := fresh.Info()
	assert.For(ctx, "info uid").That(info.UID).Equals(fresh.UID)
	assert.For(ctx, "info connections").That(info.Connections).Equals(0)
	assert.For(ctx, "info last active").That(info.LastActive).Equals(time.Unix(1060, 0))
}

func TestInitiateHidesSessionUntilBuilt(t *testing.T) {
	ctx := log.Testing(t)
	var m *session.Manager
	seen := []error{}
	probing := func(ctx context.Context, s *session.Session) (session.Facade, error) {
		_, err := m.Continue(ctx, s.UID)
		seen = append(seen, err, m.Close(ctx, s.UID))
		return &recorder{name: "late", order: &[]string{}}, nil
	}
	m = session.NewManager(probing)
	m.MaxSessions = 1

	s, err := m.Initiate(ctx)
	assert.For(ctx, "initiate").ThatError(err).Succeeded()
	assert.For(ctx, "continue while building").ThatError(seen[0]).HasCause(session.ErrUnknownSession)
	assert.For(ctx, "close while building").ThatError(seen[1]).HasCause(session.ErrUnknownSession)
	assert.For(ctx, "open").ThatBoolean(s.Closed()).IsFalse()
	_, found := m.Get(s.UID)
	assert.For(ctx, "published").ThatBoolean(found).IsTrue()
	_, err = m.Initiate(ctx)
	assert.For(ctx, "limit counts it").ThatError(err).HasCause(session.ErrTooManySessions)
}
