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

	"github.com/google/jsonrpcd/core/fault"
	"github.com/pkg/errors"
)

// ErrBadHandshake is returned for an invalid handshake frame.
const ErrBadHandshake = fault.Const("Invalid handshake")

// HandshakeCmd is the command of the first frame of a connection.
type HandshakeCmd string

const (
	// Initiate requests a new session. The uid is ignored.
	Initiate HandshakeCmd = "initiate"
	// Continue attaches to the existing session with the uid.
	Continue HandshakeCmd = "continue"
)

// Handshake is the first frame sent by a client.
type Handshake struct {
	Cmd HandshakeCmd `json:"cmd"`
	UID int          `json:"uid"`
}

// HandshakeReply is the server response to a Handshake.
type HandshakeReply struct {
	Status bool   `json:"status"`
	UID    int    `json:"uid"`
	Error  string `json:"error,omitempty"`
}

// ParseHandshake decodes and validates a handshake frame.
func ParseHandshake(line []byte) (*Handshake, error) {
	h := &Handshake{}
	if err := json.Unmarshal(line, h); err != nil {
		return nil, errors.Wrapf(ErrBadHandshake, "%v", err)
	}
	switch h.Cmd {
	case Initiate, Continue:
		return h, nil
	default:
		return nil, errors.Wrapf(ErrBadHandshake, "unknown cmd '%s'", h.Cmd)
	}
}
