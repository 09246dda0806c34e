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

package method

import (
	"sort"
	"sync"

	"github.com/google/jsonrpcd/core/fault"
	"github.com/pkg/errors"
)

// ErrDuplicateMethod is returned when adding a method whose name is taken.
const ErrDuplicateMethod = fault.Const("Duplicate method")

// Table is a registry of methods by name. It is safe for concurrent use.
type Table struct {
	mutex   sync.RWMutex
	methods map[string]*Method
}

// NewTable returns a table holding methods.
func NewTable(methods ...*Method) (*Table, error) {
	t := &Table{methods: map[string]*Method{}}
	if err := t.Add(methods...); err != nil {
		return nil, err
	}
	return t, nil
}

// Add registers the methods. No method is added if any name is taken.
func (t *Table) Add(methods ...*Method) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.methods == nil {
		t.methods = map[string]*Method{}
	}
	seen := map[string]bool{}
	for _, m := range methods {
		if _, found := t.methods[m.Name]; found || seen[m.Name] {
			return errors.Wrap(ErrDuplicateMethod, m.Name)
		}
		seen[m.Name] = true
	}
	for _, m := range methods {
		t.methods[m.Name] = m
	}
	return nil
}

// Merge adds every method of o to t.
func (t *Table) Merge(o *Table) error {
	return t.Add(o.List()...)
}

// Lookup returns the method with the name.
func (t *Table) Lookup(name string) (*Method, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	m, ok := t.methods[name]
	return m, ok
}

// Len returns the number of methods in the table.
func (t *Table) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.methods)
}

// List returns all the methods sorted by name.
func (t *Table) List() []*Method {
	t.mutex.RLock()
	out := make([]*Method, 0, len(t.methods))
	for _, m := range t.methods {
		out = append(out, m)
	}
	t.mutex.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
