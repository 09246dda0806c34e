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

package task_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/jsonrpcd/core/assert"
	"github.com/google/jsonrpcd/core/event/task"
	"github.com/google/jsonrpcd/core/log"
)

const (
	ExpectNonBlocking = time.Second
	ExpectBlocking    = time.Millisecond * 50
)

func TestOnce(t *testing.T) {
	ctx := log.Testing(t)
	count := 0
	once := task.Once(func(context.Context) error { count++; return nil })
	once(ctx)
	once(ctx)
	assert.For(ctx, "calls").That(count).Equals(1)
}

func TestRetry(t *testing.T) {
	ctx := log.Testing(t)
	fail := errors.New("not yet")
	attempts := 0
	err := task.Retry(ctx, 0, time.Millisecond, func(context.Context) (bool, error) {
		attempts++
		if attempts < 3 {
			return false, fail
		}
		return true, nil
	})
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "attempts").That(attempts).Equals(3)

	attempts = 0
	err = task.Retry(ctx, 2, time.Millisecond, func(context.Context) (bool, error) {
		attempts++
		return false, fail
	})
	assert.For(ctx, "limited err").ThatError(err).Equals(fail)
	assert.For(ctx, "limited attempts").That(attempts).Equals(2)
}

func TestRetryCancelled(t *testing.T) {
	ctx := log.Testing(t)
	ctx, cancel := task.WithCancel(ctx)
	cancel()
	err := task.Retry(ctx, 0, time.Hour, func(context.Context) (bool, error) { return false, nil })
	assert.For(ctx, "err").ThatError(err).Equals(context.Canceled)
	assert.For(ctx, "stopped").That(task.Stopped(ctx)).Equals(true)
}

func TestEvery(t *testing.T) {
	ctx := log.Testing(t)
	ctx, cancel := task.WithCancel(ctx)
	calls := 0
	task.Every(ctx, time.Millisecond, func(context.Context) {
		calls++
		if calls == 3 {
			cancel()
		}
	})
	assert.For(ctx, "calls").That(calls).Equals(3)
}
