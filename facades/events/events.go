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

// Package events exposes the session event cache to clients.
package events

import (
	"context"
	"time"

	"github.com/google/jsonrpcd/eventcache"
	"github.com/google/jsonrpcd/method"
	"github.com/google/jsonrpcd/session"
)

// DefaultTimeout is the wait used by eventWaitAndGet when none is given.
const DefaultTimeout = time.Minute

type facade struct {
	cache *eventcache.Cache
}

// New is the session.Factory of the events facade.
func New(ctx context.Context, s *session.Session) (session.Facade, error) {
	return &facade{cache: s.Events()}, nil
}

func (f *facade) Methods() []*method.Method {
	return []*method.Method{
		method.Must(method.Func("eventWaitAndGet", f.waitAndGet,
			method.P("callbackId", "the callback id returned by an async method"),
			method.P("name", "the event name"),
			method.Default("timeout", "milliseconds to wait", DefaultTimeout.Milliseconds()),
		)).Describe("Waits for and removes the oldest matching event."),
		method.Must(method.Func("eventGetAll", f.getAll,
			method.P("callbackId", "the callback id returned by an async method"),
			method.P("name", "the event name"),
		)).Describe("Removes and returns all the matching events."),
		method.Must(method.Func("eventPost", f.post,
			method.P("callbackId", "the callback id to post against"),
			method.P("name", "the event name"),
			method.Optional("data", "the event payload"),
		)).Describe("Posts an event to the session."),
		method.Must(method.Func("eventClearAll", f.clearAll)).
			Describe("Drops every event of the session."),
	}
}

func (f *facade) waitAndGet(ctx context.Context, callbackID, name string, timeout int64) (eventcache.Event, error) {
	return f.cache.WaitAndGet(ctx, callbackID, name, time.Duration(timeout)*time.Millisecond)
}

func (f *facade) getAll(ctx context.Context, callbackID, name string) ([]eventcache.Event, error) {
	return f.cache.GetAll(callbackID, name), nil
}

func (f *facade) post(ctx context.Context, callbackID, name string, data map[string]interface{}) error {
	f.cache.Post(eventcache.Event{CallbackID: callbackID, Name: name, Data: data})
	return nil
}

func (f *facade) clearAll(ctx context.Context) error {
	f.cache.Clear()
	return nil
}
