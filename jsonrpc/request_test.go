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

package jsonrpc_test

import (
	"testing"

	"github.com/google/jsonrpcd/core/assert"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/jsonrpc"
)

func TestParseRequest(t *testing.T) {
	ctx := log.Testing(t)
	for _, test := range []struct {
		line   string
		code   jsonrpc.ErrorCode
		id     string
		method string
		params string
	}{
		{line: `{"id":1,"method":"echo","params":[1,2]}`, id: "1", method: "echo", params: "[1,2]"},
		{line: `{"id":"a","method":"echo","params":{"value":3}}`, id: `"a"`, method: "echo", params: `{"value":3}`},
		{line: `{"id":1.0,"method":"echo"}`, id: "1.0", method: "echo"},
		{line: ` {"id":7,"method":"echo","params":null} `, id: "7", method: "echo"},
		{line: `{"method":"notify"}`, method: "notify"},
		{line: `{"jsonrpc":"2.0","id":2,"method":"echo"}`, id: "2", method: "echo"},
		{line: `{"id":1,"method":"echo"`, code: jsonrpc.ParseError},
		{line: `not json`, code: jsonrpc.ParseError},
		{line: `[1,2]`, code: jsonrpc.InvalidRequest},
		{line: `{"id":true,"method":"echo"}`, code: jsonrpc.InvalidRequest},
		{line: `{"id":3}`, code: jsonrpc.InvalidRequest, id: "3"},
		{line: `{"id":4,"method":""}`, code: jsonrpc.InvalidRequest, id: "4"},
		{line: `{"id":5,"method":12}`, code: jsonrpc.InvalidRequest, id: "5"},
		{line: `{"id":6,"method":"echo","params":"x"}`, code: jsonrpc.InvalidRequest, id: "6"},
		{line: `{"jsonrpc":"1.0","id":8,"method":"echo"}`, code: jsonrpc.InvalidRequest, id: "8"},
	} {
		ctx := log.V{"line": test.line}.Bind(ctx)
		req, err := jsonrpc.ParseRequest([]byte(test.line))
		if test.code != 0 {
			if !assert.For(ctx, "err").That(err).IsNotNil() {
				continue
			}
			assert.For(ctx, "code").That(err.Code).Equals(test.code)
			if test.id != "" {
				assert.For(ctx, "recovered id").ThatString(req.ID).Equals(test.id)
			}
			continue
		}
		if !assert.For(ctx, "err").That(err).IsNil() {
			continue
		}
		assert.For(ctx, "id").ThatString(req.ID).Equals(test.id)
		assert.For(ctx, "method").ThatString(req.Method).Equals(test.method)
		assert.For(ctx, "params").ThatString(req.Params).Equals(test.params)
		assert.For(ctx, "notification").ThatBoolean(req.IsNotification()).Equals(test.id == "")
	}
}

func TestUnsupportedVersionNotEchoed(t *testing.T) {
	ctx := log.Testing(t)
	req, err := jsonrpc.ParseRequest([]byte(`{"jsonrpc":"1.0","id":8,"method":"echo"}`))
	if !assert.For(ctx, "err").That(err).IsNotNil() {
		return
	}
	assert.For(ctx, "version").ThatString(req.Version).Equals("")
	resp := jsonrpc.NewError(req.ID, err).For(req)
	assert.For(ctx, "reply version").ThatString(resp.Version).Equals("")
	assert.For(ctx, "reply id").ThatString(resp.ID).Equals("8")
}

func TestParseHandshake(t *testing.T) {
	ctx := log.Testing(t)
	h, err := jsonrpc.ParseHandshake([]byte(`{"cmd":"initiate","uid":-1}`))
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "cmd").That(h.Cmd).Equals(jsonrpc.Initiate)

	h, err = jsonrpc.ParseHandshake([]byte(`{"cmd":"continue","uid":3}`))
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "uid").That(h.UID).Equals(3)

	_, err = jsonrpc.ParseHandshake([]byte(`{"cmd":"restart","uid":3}`))
	assert.For(ctx, "unknown cmd").ThatError(err).HasCause(jsonrpc.ErrBadHandshake)

	_, err = jsonrpc.ParseHandshake([]byte(`{"cmd":`))
	assert.For(ctx, "bad json").ThatError(err).HasCause(jsonrpc.ErrBadHandshake)
}
