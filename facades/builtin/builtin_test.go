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

package builtin_test

import (
	"context"
	"testing"

	"github.com/google/jsonrpcd/core/assert"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/facades/builtin"
	"github.com/google/jsonrpcd/facades/util"
	"github.com/google/jsonrpcd/session"
)

func call(ctx context.Context, s *session.Session, name string) interface{} {
	m, ok := s.Methods().Lookup(name)
	assert.For(ctx, "lookup %s", name).ThatBoolean(ok).IsTrue()
	res, err := m.Call(ctx, nil, "")
	assert.For(ctx, "call %s", name).ThatError(err).Succeeded()
	return res
}

func TestHelp(t *testing.T) {
	ctx := log.Testing(t)
	s, err := session.NewManager(builtin.New, util.New).Initiate(ctx)
	assert.For(ctx, "initiate").ThatError(err).Succeeded()

	help := call(ctx, s, "help").([]string)
	assert.For(ctx, "count").ThatSlice(help).IsLength(5)
	assert.For(ctx, "sorted").ThatString(help[0]).Equals("echo(value interface {}) interface {}\n    Returns its argument.")
	assert.For(ctx, "async").ThatString(help[4]).Contains("timerStart(delayMs int64, name string = \"timerExpired\") async")
}

func TestSessionInfo(t *testing.T) {
	ctx := log.Testing(t)
	s, _ := session.NewManager(builtin.New).Initiate(ctx)
	info := call(ctx, s, "sessionInfo").(session.Info)
	assert.For(ctx, "uid").That(info.UID).Equals(s.UID)
	assert.For(ctx, "methods").That(info.Methods).Equals(2)
	assert.For(ctx, "connections").That(info.Connections).Equals(1)
}
