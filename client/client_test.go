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

package client_test

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/jsonrpcd/client"
	"github.com/google/jsonrpcd/core/assert"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/jsonrpc"
)

// peer is a scripted server end of a single connection.
type peer struct {
	r *jsonrpc.Reader
	w *jsonrpc.Writer
}

// fake accepts one connection, answers its handshake with reply and hands
// the connection to script. The returned channel is closed once script
// returns and the connection is closed.
func fake(ctx context.Context, reply jsonrpc.HandshakeReply, script func(*peer)) (string, <-chan struct{}) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.For(ctx, "listen").ThatError(err).Succeeded()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer l.Close()
		c, err := l.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		c.SetDeadline(time.Now().Add(5 * time.Second))
		p := &peer{r: jsonrpc.NewReader(c, 0), w: jsonrpc.NewWriter(c)}
		if _, err := p.r.ReadFrame(); err != nil {
			return
		}
		p.w.Encode(reply)
		if script != nil {
			script(p)
		}
	}()
	return l.Addr().String(), done
}

func (p *peer) next() *jsonrpc.Request {
	line, err := p.r.ReadFrame()
	if err != nil {
		return nil
	}
	req, _ := jsonrpc.ParseRequest(line)
	return req
}

func TestOutOfOrderResponses(t *testing.T) {
	ctx := log.Testing(t)
	addr, done := fake(ctx, jsonrpc.HandshakeReply{Status: true, UID: 7}, func(p *peer) {
		first, second := p.next(), p.next()
		if first == nil || second == nil {
			return
		}
		p.w.Encode(jsonrpc.NewResult(second.ID, second.Method, ""))
		p.w.Encode(jsonrpc.NewResult(first.ID, first.Method, ""))
		p.next()
	})
	defer func() { <-done }()

	c, err := client.Dial(ctx, addr)
	assert.For(ctx, "dial").ThatError(err).Succeeded()
	defer c.Close()
	assert.For(ctx, "uid").That(c.UID()).Equals(7)

	results := make(chan string, 2)
	call := func(method string) {
		res, _ := c.Call(ctx, method)
		results <- method + "=" + string(res)
	}
	go call("a")
	go call("b")
	got := map[string]bool{<-results: true, <-results: true}
	assert.For(ctx, "results").That(got).DeepEquals(map[string]bool{`a="a"`: true, `b="b"`: true})
}

func TestErrorResponse(t *testing.T) {
	ctx := log.Testing(t)
	addr, done := fake(ctx, jsonrpc.HandshakeReply{Status: true, UID: 1}, func(p *peer) {
		req := p.next()
		if req == nil {
			return
		}
		p.w.Encode(jsonrpc.NewError(req.ID, jsonrpc.Errorf(jsonrpc.InvalidParams, "bad").WithData("x")))
		req = p.next()
		if req == nil {
			return
		}
		p.w.Encode(jsonrpc.NewResult(req.ID, 1, ""))
		p.next()
	})
	defer func() { <-done }()

	c, err := client.Dial(ctx, addr)
	assert.For(ctx, "dial").ThatError(err).Succeeded()
	defer c.Close()

	_, err = c.Call(ctx, "anything", 1, "two")
	assert.For(ctx, "error").ThatError(err).HasMessage("InvalidParams (-32602): bad")
	e, ok := err.(*jsonrpc.Error)
	if assert.For(ctx, "is rpc error").ThatBoolean(ok).IsTrue() {
		assert.For(ctx, "data").That(e.Data).Equals("x")
	}

	_, _, err = c.CallAsync(ctx, "notAsync")
	assert.For(ctx, "missing callback").ThatError(err).HasMessage("notAsync returned no callback id")
}

func TestHandshakeRejected(t *testing.T) {
	ctx := log.Testing(t)
	addr, done := fake(ctx, jsonrpc.HandshakeReply{Status: false, Error: "nope"}, nil)
	defer func() { <-done }()

	_, err := client.Dial(ctx, addr)
	assert.For(ctx, "dial").ThatError(err).HasCause(client.ErrHandshake)
	assert.For(ctx, "message").ThatError(err).HasMessage("nope: " + client.ErrHandshake.Error())
}

func TestConnectionLost(t *testing.T) {
	ctx := log.Testing(t)
	addr, done := fake(ctx, jsonrpc.HandshakeReply{Status: true, UID: 1}, func(p *peer) {
		p.next()
	})
	defer func() { <-done }()

	c, err := client.Dial(ctx, addr)
	assert.For(ctx, "dial").ThatError(err).Succeeded()
	defer c.Close()

	_, err = c.Call(ctx, "dropped")
	assert.For(ctx, "call").ThatError(err).HasCause(client.ErrClosed)
	_, err = c.Call(ctx, "again")
	assert.For(ctx, "after close").ThatError(err).HasCause(client.ErrClosed)
	assert.For(ctx, "notify").ThatError(c.Notify(ctx, "again")).HasCause(client.ErrClosed)
}

func TestCallCancelled(t *testing.T) {
	ctx := log.Testing(t)
	addr, done := fake(ctx, jsonrpc.HandshakeReply{Status: true, UID: 1}, func(p *peer) {
		p.next()
		p.next()
	})
	defer func() { <-done }()

	c, err := client.Dial(ctx, addr)
	assert.For(ctx, "dial").ThatError(err).Succeeded()
	defer c.Close()

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = c.Call(cctx, "slow")
	assert.For(ctx, "cancelled").ThatError(err).Equals(context.DeadlineExceeded)
	assert.For(ctx, "still open").ThatError(c.Err()).Succeeded()
}

func TestNamedParams(t *testing.T) {
	ctx := log.Testing(t)
	got := make(chan json.RawMessage, 1)
	addr, done := fake(ctx, jsonrpc.HandshakeReply{Status: true, UID: 1}, func(p *peer) {
		req := p.next()
		if req == nil {
			return
		}
		got <- req.Params
		p.w.Encode(jsonrpc.NewResult(req.ID, nil, ""))
		p.next()
	})
	defer func() { <-done }()

	c, err := client.Dial(ctx, addr)
	assert.For(ctx, "dial").ThatError(err).Succeeded()
	defer c.Close()

	_, err = c.CallNamed(ctx, "named", map[string]interface{}{"a": 1})
	assert.For(ctx, "call").ThatError(err).Succeeded()
	assert.For(ctx, "params").ThatString(<-got).Equals(`{"a":1}`)
}

func TestDialFailure(t *testing.T) {
	ctx := log.Testing(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.For(ctx, "listen").ThatError(err).Succeeded()
	addr := l.Addr().String()
	l.Close()
	_, err = client.Dial(ctx, addr)
	assert.For(ctx, "dial").ThatError(err).Failed()
}

func TestUnreadableRequestFailsPendingCalls(t *testing.T) {
	ctx := log.Testing(t)
	addr, done := fake(ctx, jsonrpc.HandshakeReply{Status: true, UID: 1}, func(p *peer) {
		if p.next() == nil {
			return
		}
		e := jsonrpc.Errorf(jsonrpc.InvalidRequest, "Request larger than 64 bytes")
		p.w.Encode(jsonrpc.NewError(nil, e))
		req := p.next()
		if req == nil {
			return
		}
		p.w.Encode(jsonrpc.NewResult(req.ID, "ok", ""))
		p.next()
	})
	defer func() { <-done }()

	c, err := client.Dial(ctx, addr)
	assert.For(ctx, "dial").ThatError(err).Succeeded()
	defer c.Close()

	_, err = c.Call(context.Background(), "echo", "big")
	if assert.For(ctx, "failed").ThatError(err).Failed() {
		assert.For(ctx, "code").That(jsonrpc.ToError(err).Code).Equals(jsonrpc.InvalidRequest)
	}
	res, err := c.Call(ctx, "echo", "next")
	assert.For(ctx, "still usable").ThatError(err).Succeeded()
	assert.For(ctx, "result").ThatString(res).Equals(`"ok"`)
}

func TestRequestTooLarge(t *testing.T) {
	ctx := log.Testing(t)
	got := make(chan string, 1)
	addr, done := fake(ctx, jsonrpc.HandshakeReply{Status: true, UID: 1}, func(p *peer) {
		req := p.next()
		if req == nil {
			return
		}
		got <- string(req.Params)
		p.w.Encode(jsonrpc.NewResult(req.ID, nil, ""))
		p.next()
	})
	defer func() { <-done }()

	c, err := client.Dial(ctx, addr, client.WithMaxRequestSize(64))
	assert.For(ctx, "dial").ThatError(err).Succeeded()
	defer c.Close()

	_, err = c.Call(context.Background(), "echo", strings.Repeat("<", 100))
	assert.For(ctx, "too large").ThatError(err).HasCause(jsonrpc.ErrFrameTooLarge)

	_, err = c.Call(ctx, "echo", "<&>")
	assert.For(ctx, "small").ThatError(err).Succeeded()
	assert.For(ctx, "sent unescaped").ThatString(<-got).Equals(`["<&>"]`)
}

func TestLargeResponse(t *testing.T) {
	ctx := log.Testing(t)
	big := strings.Repeat("x", 2<<20)
	addr, done := fake(ctx, jsonrpc.HandshakeReply{Status: true, UID: 1}, func(p *peer) {
		for {
			req := p.next()
			if req == nil {
				return
			}
			p.w.Encode(jsonrpc.NewResult(req.ID, big, ""))
		}
	})
	defer func() { <-done }()

	c, err := client.Dial(ctx, addr)
	assert.For(ctx, "dial").ThatError(err).Succeeded()
	res, err := c.Call(ctx, "big")
	assert.For(ctx, "large").ThatError(err).Succeeded()
	assert.For(ctx, "size").That(len(res)).Equals(len(big) + 2)
	_, err = c.Call(ctx, "again")
	assert.For(ctx, "connection kept").ThatError(err).Succeeded()
	c.Close()

	addr, done2 := fake(ctx, jsonrpc.HandshakeReply{Status: true, UID: 1}, func(p *peer) {
		if req := p.next(); req != nil {
			p.w.Encode(jsonrpc.NewResult(req.ID, big, ""))
		}
	})
	defer func() { <-done2 }()
	c, err = client.Dial(ctx, addr, client.WithMaxResponseSize(1<<20))
	assert.For(ctx, "dial limited").ThatError(err).Succeeded()
	defer c.Close()
	_, err = c.Call(ctx, "big")
	assert.For(ctx, "limited").ThatError(err).HasCause(client.ErrClosed)
}
