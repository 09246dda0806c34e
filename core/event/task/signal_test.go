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
	"testing"
	"time"

	"github.com/google/jsonrpcd/core/assert"
	"github.com/google/jsonrpcd/core/event/task"
	"github.com/google/jsonrpcd/core/log"
)

func TestSignalFire(t *testing.T) {
	ctx := log.Testing(t)
	signal, fire := task.NewSignal()
	assert.For(ctx, "Signal before fire").That(signal.Fired()).Equals(false)
	fire(ctx)
	assert.For(ctx, "Signal after fire").That(signal.Fired()).Equals(true)
	assert.For(ctx, "Fired signal").That(task.FiredSignal.Fired()).Equals(true)
}

func TestSignalWait(t *testing.T) {
	ctx := log.Testing(t)
	inSignal, inFire := task.NewSignal()
	outSignal, outFire := task.NewSignal()
	go func() {
		inFire(ctx)
		outSignal.Wait(ctx)
	}()
	inSignal.Wait(ctx)
	assert.For(ctx, "Out before fire").That(outSignal.Fired()).Equals(false)
	outFire(ctx)
	assert.For(ctx, "Out after fire").That(outSignal.Wait(ctx)).Equals(true)
}

func TestSignalTryWait(t *testing.T) {
	ctx := log.Testing(t)
	signal, fire := task.NewSignal()
	fire(ctx)
	assert.For(ctx, "sig").That(signal.TryWait(ctx, ExpectBlocking)).Equals(true)
}

func TestSignalTryWaitTimeout(t *testing.T) {
	ctx := log.Testing(t)
	assert := assert.To(t)
	signal, _ := task.NewSignal()
	before := time.Now()
	assert.For("wait").That(signal.TryWait(ctx, ExpectBlocking)).Equals(false)
	assert.For("duration").ThatDuration(time.Since(before)).IsAtMost(ExpectBlocking + ExpectNonBlocking)
}

func TestEvents(t *testing.T) {
	ctx := log.Testing(t)
	signals := task.Events{}
	in1, in1fire := task.NewSignal()
	in2, in2fire := task.NewSignal()
	signals.Add(in1)
	assert.For(ctx, "Size after 1").That(signals.Pending()).Equals(1)
	signals.Add(in2)
	assert.For(ctx, "Size after 2").That(signals.Pending()).Equals(2)
	assert.For(ctx, "Wait before signals").That(signals.TryWait(ctx, ExpectBlocking)).Equals(false)
	in1fire(ctx)
	assert.For(ctx, "Pending list after signal 1").That(signals.Pending()).Equals(1)
	in2fire(ctx)
	assert.For(ctx, "Wait after all signals").That(signals.TryWait(ctx, ExpectNonBlocking)).Equals(true)
	assert.For(ctx, "Pending list after all signals").That(signals.Pending()).Equals(0)
}
