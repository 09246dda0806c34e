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

// Package util holds small methods useful for checking a connection.
package util

import (
	"context"
	"time"

	"github.com/google/jsonrpcd/core/app/crash"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/eventcache"
	"github.com/google/jsonrpcd/jsonrpc"
	"github.com/google/jsonrpcd/method"
	"github.com/google/jsonrpcd/session"
)

// MaxTimerDelay is the longest delay accepted by timerStart.
const MaxTimerDelay = time.Hour

type facade struct {
	s *session.Session
}

// New is the session.Factory of the util facade.
func New(ctx context.Context, s *session.Session) (session.Facade, error) {
	return &facade{s: s}, nil
}

func (f *facade) Methods() []*method.Method {
	return []*method.Method{
		method.Must(method.Func("echo", echo, method.P("value", "any JSON value"))).
			Describe("Returns its argument."),
		method.Must(method.Func("sum", sum, method.P("values", "the numbers to add"))).
			Describe("Returns the sum of the numbers."),
		method.Must(method.Async("timerStart", f.timerStart,
			method.P("delayMs", "milliseconds before the event is posted"),
			method.Default("name", "the event name", "timerExpired"),
		)).Describe("Posts an event under the returned callback id after the delay."),
	}
}

func echo(ctx context.Context, value interface{}) (interface{}, error) {
	return value, nil
}

func sum(ctx context.Context, values []float64) (float64, error) {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total, nil
}

func (f *facade) timerStart(ctx context.Context, callbackID string, delayMs int64, name string) error {
	delay := time.Duration(delayMs) * time.Millisecond
	if delay < 0 || delay > MaxTimerDelay {
		return jsonrpc.Errorf(jsonrpc.InvalidParams, "delayMs must be between 0 and %d", MaxTimerDelay.Milliseconds())
	}
	sctx := f.s.Context()
	events := f.s.Events()
	crash.Go(func() {
		select {
		case <-time.After(delay):
			log.D(sctx, "Timer %s expired, posting %s", callbackID, name)
			events.Post(eventcache.Event{
				CallbackID: callbackID,
				Name:       name,
				Data:       map[string]interface{}{"delayMs": delayMs},
			})
		case <-sctx.Done():
		}
	})
	return nil
}
