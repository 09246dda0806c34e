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

package jsonrpc

import (
	"bytes"
	"encoding/json"
)

// Version is the only protocol version accepted in the jsonrpc member.
const Version = "2.0"

// Request is a single call decoded from a frame.
type Request struct {
	// Version is the optional "jsonrpc" member. If set it is echoed in the
	// response.
	Version string `json:"jsonrpc,omitempty"`
	// ID is the raw request id, or nil for a notification.
	ID json.RawMessage `json:"id,omitempty"`
	// Method is the name of the method to invoke.
	Method string `json:"method"`
	// Params is the raw array or object of arguments, or nil.
	Params json.RawMessage `json:"params,omitempty"`
}

// IsNotification returns true if the request has no id and so expects no
// response.
func (r *Request) IsNotification() bool { return r.ID == nil }

var null = []byte("null")

// ParseRequest decodes and validates a request frame.
// For ParseError the returned request is nil. For InvalidRequest the
// request is returned with as much as could be recovered, so the error
// response can be correlated by id.
func ParseRequest(line []byte) (*Request, *Error) {
	line = bytes.TrimSpace(line)
	if !json.Valid(line) {
		return nil, Errorf(ParseError, "Parse error")
	}
	if kind(line) != '{' {
		return nil, Errorf(InvalidRequest, "Request must be a JSON object")
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(line, &fields); err != nil {
		return nil, Errorf(ParseError, "Parse error: %v", err)
	}

	req := &Request{}
	if id, ok := fields["id"]; ok {
		switch kind(id) {
		case '"', '0', 'n':
			req.ID = id
		default:
			return nil, Errorf(InvalidRequest, "Request id must be a number or a string")
		}
	}
	if v, ok := fields["jsonrpc"]; ok {
		if err := json.Unmarshal(v, &req.Version); err != nil || req.Version != Version {
			req.Version = ""
			return req, Errorf(InvalidRequest, "Unsupported jsonrpc version %s", v)
		}
	}
	m, ok := fields["method"]
	if !ok || kind(m) != '"' {
		return req, Errorf(InvalidRequest, "Request method must be a string")
	}
	if err := json.Unmarshal(m, &req.Method); err != nil || req.Method == "" {
		return req, Errorf(InvalidRequest, "Request method must not be empty")
	}
	if p, ok := fields["params"]; ok {
		switch kind(p) {
		case '[', '{':
			req.Params = p
		case 'n':
		default:
			return req, Errorf(InvalidRequest, "Request params must be an array or an object")
		}
	}
	return req, nil
}

// kind returns a character classifying the JSON value in v:
// '{', '[', '"', '0' for numbers, 't' or 'f' for booleans and 'n' for null.
// v must be valid JSON.
func kind(v []byte) byte {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return 0
	}
	switch c := v[0]; c {
	case '{', '[', '"', 't', 'f', 'n':
		return c
	default:
		return '0'
	}
}
