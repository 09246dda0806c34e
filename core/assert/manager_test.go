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

package assert_test

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/google/jsonrpcd/core/assert"
	"github.com/pkg/errors"
)

type fakeT struct {
	fatal bytes.Buffer
	error bytes.Buffer
	log   bytes.Buffer
}

func (f *fakeT) Fatal(args ...interface{}) {
	fmt.Fprintln(&f.fatal, args...)
}
func (f *fakeT) Error(args ...interface{}) {
	fmt.Fprintln(&f.error, args...)
}
func (f *fakeT) Log(args ...interface{}) {
	fmt.Fprintln(&f.log, args...)
}

func TestManager(t *testing.T) {
	const (
		expectLog   = "Info:manager test\n    log to info\n"
		expectError = "Error:manager test\n    log to error\n"
		expectFatal = "Critical:manager test\n    log to fatal\n"
	)
	fake := &fakeT{}
	assert.To(fake).For("manager test").Log("log to info")
	assert.To(fake).For("manager test").Error("log to error")
	assert.To(fake).For("manager test").Fatal("log to fatal")
	if fake.log.String() != expectLog {
		t.Errorf("For info got %q expected %q", fake.log.String(), expectLog)
	}
	if fake.error.String() != expectError {
		t.Errorf("For error got %q expected %q", fake.error.String(), expectError)
	}
	if fake.fatal.String() != expectFatal {
		t.Errorf("For fatal got %q expected %q", fake.fatal.String(), expectFatal)
	}
}

type point struct {
	X, Y   int
	hidden string
}

func TestPassingAssertions(t *testing.T) {
	fake := &fakeT{}
	assert := assert.To(fake)
	cause := errors.New("cause")
	assert.For("value").That(1).Equals(1)
	assert.For("nil").That((*point)(nil)).IsNil()
	assert.For("deep").That(point{1, 2, "a"}).DeepEquals(point{1, 2, "a"})
	assert.For("string").ThatString([]byte("abc")).Equals("abc")
	assert.For("contains").ThatString("abc").Contains("b")
	assert.For("bool").ThatBoolean(true).IsTrue()
	assert.For("int").ThatInteger(3).IsAtLeast(2)
	assert.For("slice").ThatSlice([]int{1, 2}).Equals([]int{1, 2})
	assert.For("deep slice").ThatSlice([]point{{1, 2, ""}}).DeepEquals([]point{{1, 2, ""}})
	assert.For("duration").ThatDuration(time.Second).IsAtMost(time.Minute)
	assert.For("error").ThatError(nil).Succeeded()
	assert.For("cause").ThatError(errors.Wrap(cause, "wrapped")).HasCause(cause)
	if got := fake.error.String(); got != "" {
		t.Errorf("Passing assertions reported errors:\n%s", got)
	}
}

func TestFailingAssertions(t *testing.T) {
	for _, test := range []struct {
		name string
		run  func(assert.Manager) bool
	}{
		{"equals", func(a assert.Manager) bool { return a.For("x").That(1).Equals(2) }},
		{"not nil", func(a assert.Manager) bool { return a.For("x").That(nil).IsNotNil() }},
		{"deep", func(a assert.Manager) bool { return a.For("x").That(point{1, 2, "a"}).DeepEquals(point{1, 2, "b"}) }},
		{"string", func(a assert.Manager) bool { return a.For("x").ThatString("abc").Equals("abd") }},
		{"shorter", func(a assert.Manager) bool { return a.For("x").ThatString("ab").Equals("abc") }},
		{"slice", func(a assert.Manager) bool { return a.For("x").ThatSlice([]int{1}).Equals([]int{1, 2}) }},
		{"empty", func(a assert.Manager) bool { return a.For("x").ThatSlice([]int{1}).IsEmpty() }},
		{"error", func(a assert.Manager) bool { return a.For("x").ThatError(nil).Failed() }},
		{"message", func(a assert.Manager) bool { return a.For("x").ThatError(nil).HasMessage("boom") }},
	} {
		fake := &fakeT{}
		if test.run(assert.To(fake)) {
			t.Errorf("%s: assertion unexpectedly passed", test.name)
		}
		if fake.error.Len() == 0 {
			t.Errorf("%s: failing assertion did not report an error", test.name)
		}
	}
}
