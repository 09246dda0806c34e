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

package method_test

import (
	"context"
	"testing"

	"github.com/google/jsonrpcd/core/assert"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/method"
)

func nop(name string) *method.Method {
	return method.Must(method.Func(name, func(context.Context) error { return nil }))
}

func TestTable(t *testing.T) {
	ctx := log.Testing(t)
	table, err := method.NewTable(nop("b"), nop("a"))
	assert.For(ctx, "new").ThatError(err).Succeeded()

	err = table.Add(nop("c"), nop("a"))
	assert.For(ctx, "duplicate").ThatError(err).HasCause(method.ErrDuplicateMethod)
	_, found := table.Lookup("c")
	assert.For(ctx, "not partially added").ThatBoolean(found).IsFalse()

	other, _ := method.NewTable(nop("c"))
	assert.For(ctx, "merge").ThatError(table.Merge(other)).Succeeded()

	names := []string{}
	for _, m := range table.List() {
		names = append(names, m.Name)
	}
	assert.For(ctx, "list").ThatSlice(names).Equals([]string{"a", "b", "c"})
	assert.For(ctx, "len").That(table.Len()).Equals(3)

	m, found := table.Lookup("b")
	assert.For(ctx, "found").ThatBoolean(found).IsTrue()
	assert.For(ctx, "name").That(m.Name).Equals("b")

	_, err = method.NewTable(nop("x"), nop("x"))
	assert.For(ctx, "same batch").ThatError(err).HasCause(method.ErrDuplicateMethod)
}
