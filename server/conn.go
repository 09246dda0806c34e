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

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"time"

	"github.com/google/jsonrpcd/core/app/crash"
	"github.com/google/jsonrpcd/core/event/task"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/jsonrpc"
	"github.com/google/jsonrpcd/session"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// The methods handled by the server rather than a facade.
const (
	CloseSession     = "closeSession"
	CloseSl4aSession = "closeSl4aSession"
)

type conn struct {
	server  *Server
	net     net.Conn
	r       *jsonrpc.Reader
	w       *jsonrpc.Writer
	session *session.Session
}

func (s *Server) serveConn(ctx context.Context, nc net.Conn) {
	ctx = log.V{
		"conn":   uuid.New().String(),
		"remote": nc.RemoteAddr().String(),
	}.Bind(ctx)
	ctx, cancel := task.WithCancel(ctx)
	defer cancel()
	defer nc.Close()

	// Unblock reads when the server stops.
	done := make(chan struct{})
	defer close(done)
	crash.Go(func() {
		select {
		case <-ctx.Done():
			nc.Close()
		case <-done:
		}
	})

	c := &conn{
		server: s,
		net:    nc,
		r:      jsonrpc.NewReader(nc, s.cfg.MaxFrameSize),
		w:      jsonrpc.NewWriter(nc),
	}
	if err := c.handshake(ctx); err != nil {
		log.W(ctx, "Handshake failed: %v", err)
		return
	}
	defer s.sessions.Detach(c.session)
	ctx = log.V{"uid": c.session.UID}.Bind(ctx)
	log.D(ctx, "Connection attached")

	// Calls are cancelled as soon as the peer goes away, so a blocking
	// method does not hold the connection after its client left.
	calls, abandon := task.WithCancel(ctx)
	frames := make(chan frame)
	readerDone := make(chan struct{})
	crash.Go(func() {
		defer close(readerDone)
		c.read(ctx, frames, abandon)
	})
	defer func() {
		abandon()
		cancel()
		nc.Close()
		<-readerDone
	}()

	for f := range frames {
		switch {
		case f.err == jsonrpc.ErrFrameTooLarge:
			log.W(ctx, "Dropping request larger than %d bytes", s.cfg.MaxFrameSize)
			e := jsonrpc.Errorf(jsonrpc.InvalidRequest, "Request larger than %d bytes", s.cfg.MaxFrameSize)
			if c.write(ctx, jsonrpc.NewError(nil, e)) != nil {
				return
			}
			continue
		case f.err == io.EOF, task.Stopped(ctx):
			log.D(ctx, "Connection closed")
			return
		case f.err != nil:
			log.W(ctx, "Reading request: %v", f.err)
			return
		}
		if len(bytes.TrimSpace(f.line)) == 0 {
			continue
		}
		done := s.inRPC()
		keep := c.handle(calls, f.line)
		done()
		if !keep {
			return
		}
	}
}

type frame struct {
	line []byte
	err  error
}

// read delivers request frames until the connection fails. The failure is
// delivered last, after abandon is called.
func (c *conn) read(ctx context.Context, frames chan<- frame, abandon task.CancelFunc) {
	defer close(frames)
	for {
		line, err := c.r.ReadFrame()
		if err != nil && err != jsonrpc.ErrFrameTooLarge {
			abandon()
		}
		select {
		case frames <- frame{line, err}:
		case <-ctx.Done():
			return
		}
		if err != nil && err != jsonrpc.ErrFrameTooLarge {
			return
		}
	}
}

func (c *conn) handshake(ctx context.Context) error {
	if t := c.server.cfg.HandshakeTimeout; t > 0 {
		c.net.SetReadDeadline(time.Now().Add(t))
		defer c.net.SetReadDeadline(time.Time{})
	}
	line, err := c.r.ReadFrame()
	if err != nil {
		return errors.Wrap(err, "reading handshake")
	}
	h, err := jsonrpc.ParseHandshake(line)
	if err == nil {
		switch h.Cmd {
		case jsonrpc.Initiate:
			c.session, err = c.server.sessions.Initiate(ctx)
		case jsonrpc.Continue:
			c.session, err = c.server.sessions.Continue(ctx, h.UID)
		}
	}
	if err != nil {
		c.w.Encode(jsonrpc.HandshakeReply{Status: false, Error: err.Error()})
		return err
	}
	if err := c.w.Encode(jsonrpc.HandshakeReply{Status: true, UID: c.session.UID}); err != nil {
		c.server.sessions.Detach(c.session)
		return errors.Wrap(err, "writing handshake reply")
	}
	return nil
}

// handle processes a single request line, returning false if the connection
// should be closed.
func (c *conn) handle(ctx context.Context, line []byte) bool {
	c.session.Touch(time.Now())
	req, rpcErr := jsonrpc.ParseRequest(line)
	if rpcErr != nil {
		log.W(ctx, "Bad request: %v", rpcErr)
		var id json.RawMessage
		if req != nil {
			id = req.ID
		}
		return c.write(ctx, jsonrpc.NewError(id, rpcErr).For(req)) == nil
	}
	ctx = log.Enter(ctx, req.Method)

	if c.session.Closed() {
		c.reply(ctx, req, jsonrpc.NewError(req.ID, jsonrpc.Errorf(jsonrpc.SessionClosed, "Session %d is closed", c.session.UID)))
		return false
	}

	switch req.Method {
	case CloseSession, CloseSl4aSession:
		if err := c.server.sessions.Close(ctx, c.session.UID); err != nil {
			log.W(ctx, "Closing session: %v", err)
		}
		c.reply(ctx, req, jsonrpc.NewResult(req.ID, true, ""))
		return false
	}

	m, ok := c.session.Methods().Lookup(req.Method)
	if !ok {
		log.D(ctx, "Unknown method")
		return c.reply(ctx, req, jsonrpc.NewError(req.ID, jsonrpc.Errorf(jsonrpc.MethodNotFound, "Unknown RPC: %s", req.Method)))
	}
	callback := ""
	if m.Async {
		callback = c.session.NextCallbackID()
	}
	result, err := m.Call(ctx, req.Params, callback)
	if err != nil {
		e := jsonrpc.ToError(err)
		if e.Code == jsonrpc.InternalError {
			log.W(ctx, "Method failed: %v", err)
		} else {
			log.D(ctx, "Method returned error: %v", err)
		}
		return c.reply(ctx, req, jsonrpc.NewError(req.ID, e))
	}
	return c.reply(ctx, req, jsonrpc.NewResult(req.ID, result, callback))
}

// reply writes the response unless req is a notification.
func (c *conn) reply(ctx context.Context, req *jsonrpc.Request, resp *jsonrpc.Response) bool {
	if req.IsNotification() {
		return true
	}
	return c.write(ctx, resp.For(req)) == nil
}

func (c *conn) write(ctx context.Context, resp *jsonrpc.Response) error {
	if err := c.w.Encode(resp); err != nil {
		if !task.Stopped(ctx) {
			log.W(ctx, "Writing response: %v", err)
		}
		return err
	}
	return nil
}
