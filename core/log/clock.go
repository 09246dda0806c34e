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

import (
	"context"
	"time"
)

// Clock supplies the timestamps of messages.
type Clock interface {
	Time() time.Time
}

// FixedClock always reports the same time. Tests use it for stable output.
type FixedClock time.Time

func (c FixedClock) Time() time.Time { return time.Time(c) }

type clockKey struct{}

// PutClock returns ctx with c used to timestamp messages logged through it.
func PutClock(ctx context.Context, c Clock) context.Context {
	return context.WithValue(ctx, clockKey{}, c)
}

// GetClock returns the Clock of ctx, or nil for the wall clock.
func GetClock(ctx context.Context) Clock {
	c, _ := ctx.Value(clockKey{}).(Clock)
	return c
}
