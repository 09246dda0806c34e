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

// Package jsonrpc holds the wire types of the line oriented JSON-RPC
// protocol: the connection handshake, requests, responses and errors, and
// the newline delimited frame reader and writer.
package jsonrpc

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode is the numeric code of an Error.
type ErrorCode int

// The JSON-RPC 2.0 error codes, followed by the server defined range.
const (
	ParseError     ErrorCode = -32700
	InvalidRequest ErrorCode = -32600
	MethodNotFound ErrorCode = -32601
	InvalidParams  ErrorCode = -32602
	InternalError  ErrorCode = -32603
	ServerError    ErrorCode = -32000
	SessionClosed  ErrorCode = -32001
)

func (c ErrorCode) String() string {
	switch c {
	case ParseError:
		return "ParseError"
	case InvalidRequest:
		return "InvalidRequest"
	case MethodNotFound:
		return "MethodNotFound"
	case InvalidParams:
		return "InvalidParams"
	case InternalError:
		return "InternalError"
	case ServerError:
		return "ServerError"
	case SessionClosed:
		return "SessionClosed"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error is the error member of a Response.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Errorf returns a new Error with the given code and formatted message.
func Errorf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v (%d): %s", e.Code, int(e.Code), e.Message)
}

// WithData returns a copy of e carrying data.
func (e *Error) WithData(data interface{}) *Error {
	out := *e
	out.Data = data
	return &out
}

// ToError converts err to an *Error.
// An *Error anywhere in the chain of err is returned as is, any other error
// becomes a ServerError carrying the error text.
func ToError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := errors.Cause(err).(*Error); ok {
		return e
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: ServerError, Message: err.Error()}
}
