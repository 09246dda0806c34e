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
	"encoding/json"
)

// Response is the reply to a Request.
// The id, result and error members are always present. When Error is set
// Result is null.
type Response struct {
	Version  string          `json:"jsonrpc,omitempty"`
	ID       json.RawMessage `json:"id"`
	Result   json.RawMessage `json:"result"`
	Callback *string         `json:"callback"`
	Error    *Error          `json:"error"`
}

// NewResult builds the successful response to the request with the given id.
// If result cannot be encoded an InternalError response is returned instead.
// An empty callback is encoded as null.
func NewResult(id json.RawMessage, result interface{}, callback string) *Response {
	data, err := Marshal(result)
	if err != nil {
		return NewError(id, Errorf(InternalError, "Could not encode result: %v", err))
	}
	r := &Response{ID: id, Result: data}
	if callback != "" {
		r.Callback = &callback
	}
	return r
}

// NewError builds the error response to the request with the given id.
// err is converted with ToError.
func NewError(id json.RawMessage, err error) *Response {
	e := ToError(err)
	if e == nil {
		e = Errorf(InternalError, "Unknown error")
	}
	return &Response{ID: id, Error: e}
}

// For returns the response with the version echoed from req.
// req may be nil.
func (r *Response) For(req *Request) *Response {
	if req != nil {
		r.Version = req.Version
	}
	return r
}

// Err returns the response error as an error, or nil.
func (r *Response) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

// CallbackID returns the callback member, or the empty string.
func (r *Response) CallbackID() string {
	if r.Callback == nil {
		return ""
	}
	return *r.Callback
}
