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

// Package method binds Go functions to named JSON-RPC methods.
package method

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonrpcd/core/fault"
	"github.com/google/jsonrpcd/jsonrpc"
	"github.com/pkg/errors"
)

// ErrBadSignature is returned when a function cannot be bound as a method.
const ErrBadSignature = fault.Const("Invalid method signature")

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	stringType  = reflect.TypeOf("")
)

// Param describes a single argument of a Method.
type Param struct {
	Name     string
	Help     string
	Optional bool
	// Default is the JSON value used when the argument is not supplied.
	Default json.RawMessage
}

// P returns a required parameter.
func P(name, help string) Param { return Param{Name: name, Help: help} }

// Optional returns a parameter that takes its zero value when omitted.
func Optional(name, help string) Param { return Param{Name: name, Help: help, Optional: true} }

// Default returns a parameter that takes value when omitted.
// It panics if value cannot be encoded as JSON.
func Default(name, help string, value interface{}) Param {
	data, err := json.Marshal(value)
	if err != nil {
		panic(errors.Wrapf(err, "default for param %s", name))
	}
	return Param{Name: name, Help: help, Default: data}
}

// Method is a Go function callable by name with JSON arguments.
type Method struct {
	Name   string
	Help   string
	Params []Param
	// Async methods are handed a callback id used to post events.
	Async bool

	fn        reflect.Value
	args      []reflect.Type
	hasResult bool
	result    reflect.Type
}

// Func binds fn as the method name.
// fn must have the form func(context.Context, args...) ([result,] error).
// params describe the arguments after the context in order. Arguments
// without a Param are required and named by position.
func Func(name string, fn interface{}, params ...Param) (*Method, error) {
	return bind(name, false, fn, params)
}

// Async binds fn as the asynchronous method name.
// fn must have the form func(context.Context, callbackID string, args...) ([result,] error).
func Async(name string, fn interface{}, params ...Param) (*Method, error) {
	return bind(name, true, fn, params)
}

// Must panics if err is not nil, otherwise it returns m.
func Must(m *Method, err error) *Method {
	if err != nil {
		panic(err)
	}
	return m
}

// Describe sets the help text of m and returns it.
func (m *Method) Describe(help string) *Method {
	m.Help = help
	return m
}

func bind(name string, async bool, fn interface{}, params []Param) (*Method, error) {
	if name == "" {
		return nil, errors.Wrap(ErrBadSignature, "empty method name")
	}
	f := reflect.ValueOf(fn)
	t := f.Type()
	if f.Kind() != reflect.Func {
		return nil, errors.Wrapf(ErrBadSignature, "%s: expected a function, got %v", name, t)
	}
	first := 1
	if async {
		first = 2
	}
	if t.NumIn() < first || t.In(0) != contextType {
		return nil, errors.Wrapf(ErrBadSignature, "%s: first argument must be a context.Context", name)
	}
	if async && t.In(1) != stringType {
		return nil, errors.Wrapf(ErrBadSignature, "%s: second argument must be the callback id string", name)
	}
	if t.IsVariadic() {
		return nil, errors.Wrapf(ErrBadSignature, "%s: variadic functions are not supported", name)
	}
	switch {
	case t.NumOut() == 1 && t.Out(0) == errorType:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return nil, errors.Wrapf(ErrBadSignature, "%s: must return ([result,] error)", name)
	}
	m := &Method{Name: name, Async: async, fn: f, hasResult: t.NumOut() == 2}
	if m.hasResult {
		m.result = t.Out(0)
	}
	for i := first; i < t.NumIn(); i++ {
		m.args = append(m.args, t.In(i))
	}
	if len(params) > len(m.args) {
		return nil, errors.Wrapf(ErrBadSignature, "%s: %d params described for %d arguments", name, len(params), len(m.args))
	}
	m.Params = make([]Param, len(m.args))
	copy(m.Params, params)
	seen := map[string]bool{}
	for i := range m.Params {
		p := &m.Params[i]
		if p.Name == "" {
			p.Name = fmt.Sprintf("arg%d", i)
		}
		if seen[p.Name] {
			return nil, errors.Wrapf(ErrBadSignature, "%s: duplicate param %s", name, p.Name)
		}
		seen[p.Name] = true
		if p.Default != nil {
			if err := json.Unmarshal(p.Default, reflect.New(m.args[i]).Interface()); err != nil {
				return nil, errors.Wrapf(ErrBadSignature, "%s: default for %s: %v", name, p.Name, err)
			}
		}
	}
	return m, nil
}

// Call invokes the method with the JSON params, which may be an array of
// positional arguments, an object of named arguments or empty.
// callbackID is passed to async methods and ignored otherwise.
// Binding failures are returned as InvalidParams errors and a panic in the
// method as an InternalError.
func (m *Method) Call(ctx context.Context, params json.RawMessage, callbackID string) (result interface{}, err error) {
	args, rpcErr := m.bindArgs(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	in := make([]reflect.Value, 0, len(args)+2)
	in = append(in, reflect.ValueOf(ctx))
	if m.Async {
		in = append(in, reflect.ValueOf(callbackID))
	}
	in = append(in, args...)

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = jsonrpc.Errorf(jsonrpc.InternalError, "%s panicked: %v", m.Name, r)
		}
	}()
	out := m.fn.Call(in)
	if e := out[len(out)-1]; !e.IsNil() {
		return nil, e.Interface().(error)
	}
	if m.hasResult {
		return out[0].Interface(), nil
	}
	return nil, nil
}

func (m *Method) bindArgs(params json.RawMessage) ([]reflect.Value, *jsonrpc.Error) {
	params = bytes.TrimSpace(params)
	supplied := make([]json.RawMessage, len(m.args))
	switch {
	case len(params) == 0 || bytes.Equal(params, []byte("null")):
	case params[0] == '[':
		list := []json.RawMessage{}
		if err := json.Unmarshal(params, &list); err != nil {
			return nil, jsonrpc.Errorf(jsonrpc.InvalidParams, "Could not decode params: %v", err)
		}
		if len(list) > len(m.args) {
			return nil, jsonrpc.Errorf(jsonrpc.InvalidParams,
				"%s takes at most %d params, got %d", m.Name, len(m.args), len(list))
		}
		copy(supplied, list)
	case params[0] == '{':
		named := map[string]json.RawMessage{}
		if err := json.Unmarshal(params, &named); err != nil {
			return nil, jsonrpc.Errorf(jsonrpc.InvalidParams, "Could not decode params: %v", err)
		}
		for i, p := range m.Params {
			if v, ok := named[p.Name]; ok {
				supplied[i] = v
				delete(named, p.Name)
			}
		}
		for name := range named {
			return nil, jsonrpc.Errorf(jsonrpc.InvalidParams, "%s has no param named %s", m.Name, name)
		}
	default:
		return nil, jsonrpc.Errorf(jsonrpc.InvalidParams, "Params must be an array or an object")
	}

	args := make([]reflect.Value, len(m.args))
	for i, t := range m.args {
		p := m.Params[i]
		raw := supplied[i]
		switch {
		case raw != nil:
		case p.Default != nil:
			raw = p.Default
		case p.Optional:
			args[i] = reflect.Zero(t)
			continue
		default:
			return nil, jsonrpc.Errorf(jsonrpc.InvalidParams, "%s is missing param %s", m.Name, p.Name)
		}
		v := reflect.New(t)
		if err := json.Unmarshal(raw, v.Interface()); err != nil {
			return nil, jsonrpc.Errorf(jsonrpc.InvalidParams, "%s param %s: %v", m.Name, p.Name, err).WithData(p.Name)
		}
		args[i] = v.Elem()
	}
	return args, nil
}

// Signature returns a human readable description of the method arguments
// and result.
func (m *Method) Signature() string {
	b := &strings.Builder{}
	b.WriteString(m.Name)
	b.WriteString("(")
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		switch {
		case p.Default != nil:
			fmt.Fprintf(b, "%s %v = %s", p.Name, m.args[i], p.Default)
		case p.Optional:
			fmt.Fprintf(b, "[%s %v]", p.Name, m.args[i])
		default:
			fmt.Fprintf(b, "%s %v", p.Name, m.args[i])
		}
	}
	b.WriteString(")")
	if m.hasResult {
		fmt.Fprintf(b, " %v", m.result)
	}
	if m.Async {
		b.WriteString(" async")
	}
	if m.Help != "" {
		b.WriteString("\n    ")
		b.WriteString(m.Help)
	}
	return b.String()
}
