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

package system_test

import (
	"os"
	"testing"

	"github.com/google/jsonrpcd/core/assert"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/facades/system"
	"github.com/google/jsonrpcd/session"
)

func TestSystemMethods(t *testing.T) {
	ctx := log.Testing(t)
	s, err := session.NewManager(system.New).Initiate(ctx)
	assert.For(ctx, "initiate").ThatError(err).Succeeded()
	call := func(name string) interface{} {
		m, ok := s.Methods().Lookup(name)
		assert.For(ctx, "lookup %s", name).ThatBoolean(ok).IsTrue()
		res, err := m.Call(ctx, nil, "")
		assert.For(ctx, "call %s", name).ThatError(err).Succeeded()
		return res
	}

	count := call("systemCpuCount").(system.CPUCount)
	assert.For(ctx, "logical cpus").ThatInteger(count.Logical).IsAtLeast(1)

	mem := call("systemMemoryInfo").(system.MemoryInfo)
	assert.For(ctx, "memory").ThatBoolean(mem.Total > 0).IsTrue()

	call("systemHostInfo")

	procs := call("systemProcesses").([]system.Process)
	self := false
	for _, p := range procs {
		if int(p.PID) == os.Getpid() {
			self = true
		}
	}
	assert.For(ctx, "lists self").ThatBoolean(self).IsTrue()
}
