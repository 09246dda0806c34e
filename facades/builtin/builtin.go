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

// Package builtin provides the introspection methods present in every
// session.
package builtin

import (
	"context"

	"github.com/google/jsonrpcd/method"
	"github.com/google/jsonrpcd/session"
)

type facade struct {
	s *session.Session
}

// New is the session.Factory of the builtin facade.
func New(ctx context.Context, s *session.Session) (session.Facade, error) {
	return &facade{s: s}, nil
}

func (f *facade) Methods() []*method.Method {
	return []*method.Method{
		method.Must(method.Func("help", f.help)).
			Describe("Returns the signatures of all the methods of the session."),
		method.Must(method.Func("sessionInfo", f.sessionInfo)).
			Describe("Returns the state of the session."),
	}
}

func (f *facade) help(ctx context.Context) ([]string, error) {
	methods := f.s.Methods().List()
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = m.Signature()
	}
	return out, nil
}

func (f *facade) sessionInfo(ctx context.Context) (session.Info, error) {
	return f.s.Info(), nil
}
