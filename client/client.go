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

// Package client is a Go client of the JSON-RPC server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/jsonrpcd/core/app/crash"
	"github.com/google/jsonrpcd/core/fault"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/eventcache"
	"github.com/google/jsonrpcd/jsonrpc"
	"github.com/google/jsonrpcd/server"
	"github.com/pkg/errors"
)

const (
	// ErrClosed is returned for calls on a closed connection.
	ErrClosed = fault.Const("Connection closed")
	// ErrHandshake is returned when the server refuses the handshake.
	ErrHandshake = fault.Const("Handshake refused")
)

// Client is a connection to a session on a server.
// Calls may be made concurrently, responses are matched by id.
type Client struct {
	conn   net.Conn
	r      *jsonrpc.Reader
	w      *jsonrpc.Writer
	uid    int
	nextID int64

	mutex   sync.Mutex
	pending map[string]chan *jsonrpc.Response
	closed  chan struct{}
	err     error
	once    sync.Once
}

// DefaultMaxResponseSize is the largest response frame a client reads
// unless WithMaxResponseSize is given.
const DefaultMaxResponseSize = 64 << 20

// Option configures a Client.
type Option func(*Client)

// WithMaxRequestSize sets the largest request the client sends. Larger
// requests fail with jsonrpc.ErrFrameTooLarge without reaching the server.
// It should match the max-frame-size of the server.
func WithMaxRequestSize(n int) Option {
	return func(c *Client) { c.w.Max = n }
}

// WithMaxResponseSize sets the largest response frame the client reads.
// A larger response closes the connection.
func WithMaxResponseSize(n int) Option {
	return func(c *Client) { c.r = jsonrpc.NewReader(c.conn, n) }
}

// Dial connects to the server at addr and initiates a new session.
func Dial(ctx context.Context, addr string, options ...Option) (*Client, error) {
	return connect(ctx, addr, jsonrpc.Handshake{Cmd: jsonrpc.Initiate, UID: -1}, options)
}

// Continue connects to the server at addr and attaches to the session uid.
func Continue(ctx context.Context, addr string, uid int, options ...Option) (*Client, error) {
	return connect(ctx, addr, jsonrpc.Handshake{Cmd: jsonrpc.Continue, UID: uid}, options)
}

func connect(ctx context.Context, addr string, h jsonrpc.Handshake, options []Option) (*Client, error) {
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %v", addr)
	}
	c := &Client{
		conn:    conn,
		r:       jsonrpc.NewReader(conn, DefaultMaxResponseSize),
		w:       jsonrpc.NewWriter(conn),
		pending: map[string]chan *jsonrpc.Response{},
		closed:  make(chan struct{}),
	}
	c.w.Max = jsonrpc.DefaultMaxFrameSize
	for _, o := range options {
		o(c)
	}
	if err := c.handshake(ctx, h); err != nil {
		conn.Close()
		return nil, err
	}
	crash.Go(c.receive)
	log.D(ctx, "Connected to %v session %d", addr, c.uid)
	return c, nil
}

func (c *Client) handshake(ctx context.Context, h jsonrpc.Handshake) error {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}
	if err := c.w.Encode(h); err != nil {
		return errors.Wrap(err, "sending handshake")
	}
	line, err := c.r.ReadFrame()
	if err != nil {
		return errors.Wrap(err, "reading handshake reply")
	}
	reply := jsonrpc.HandshakeReply{}
	if err := json.Unmarshal(line, &reply); err != nil {
		return errors.Wrap(err, "decoding handshake reply")
	}
	if !reply.Status {
		return errors.Wrapf(ErrHandshake, "%s", reply.Error)
	}
	c.uid = reply.UID
	return nil
}

// UID returns the session uid.
func (c *Client) UID() int { return c.uid }

func (c *Client) receive() {
	for {
		line, err := c.r.ReadFrame()
		if err != nil {
			c.shutdown(errors.Wrap(ErrClosed, err.Error()))
			return
		}
		resp := &jsonrpc.Response{}
		if err := json.Unmarshal(line, resp); err != nil {
			c.shutdown(errors.Wrapf(err, "decoding response %q", line))
			return
		}
		if isNull(resp.ID) {
			if resp.Error != nil {
				c.failPending(resp)
			}
			continue
		}
		c.mutex.Lock()
		ch, ok := c.pending[string(resp.ID)]
		delete(c.pending, string(resp.ID))
		c.mutex.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// failPending delivers resp to every outstanding call. The server replies
// with a null id when it could not read the request, so the failed call
// cannot be told apart from the others.
func (c *Client) failPending(resp *jsonrpc.Response) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for id, ch := range c.pending {
		ch <- resp
		delete(c.pending, id)
	}
}

func isNull(id json.RawMessage) bool {
	id = bytes.TrimSpace(id)
	return len(id) == 0 || bytes.Equal(id, []byte("null"))
}

func (c *Client) shutdown(err error) {
	c.once.Do(func() {
		c.mutex.Lock()
		c.err = err
		c.mutex.Unlock()
		close(c.closed)
		c.conn.Close()
	})
}

// Err returns the reason the connection was closed, or nil.
func (c *Client) Err() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.err
}

// Close closes the connection without closing the session.
func (c *Client) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

func encodeParams(params []interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	data, err := jsonrpc.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "encoding params")
	}
	return data, nil
}

// Call invokes method with positional params and returns the raw result.
// RPC failures are returned as *jsonrpc.Error.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	resp, err := c.call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// Invoke calls method with positional params and returns the whole
// response.
func (c *Client) Invoke(ctx context.Context, method string, params ...interface{}) (*jsonrpc.Response, error) {
	return c.call(ctx, method, params)
}

// CallNamed invokes method with named params and returns the raw result.
func (c *Client) CallNamed(ctx context.Context, method string, params map[string]interface{}) (json.RawMessage, error) {
	data, err := jsonrpc.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "encoding params")
	}
	resp, err := c.send(ctx, method, data)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// CallAsync invokes the asynchronous method and returns the callback id to
// collect its events with, as well as the raw result.
func (c *Client) CallAsync(ctx context.Context, method string, params ...interface{}) (string, json.RawMessage, error) {
	resp, err := c.call(ctx, method, params)
	if err != nil {
		return "", nil, err
	}
	if resp.Callback == nil {
		return "", nil, errors.Errorf("%s returned no callback id", method)
	}
	return *resp.Callback, resp.Result, nil
}

// Notify invokes method without waiting for, or receiving, a response.
func (c *Client) Notify(ctx context.Context, method string, params ...interface{}) error {
	data, err := encodeParams(params)
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return c.Err()
	default:
	}
	return c.w.Encode(jsonrpc.Request{Method: method, Params: data})
}

// CloseSession closes the session on the server, which also ends the
// connection.
func (c *Client) CloseSession(ctx context.Context) error {
	_, err := c.Call(ctx, server.CloseSession)
	c.Close()
	return err
}

// EventWaitAndGet waits for the event posted under callbackID with the name.
func (c *Client) EventWaitAndGet(ctx context.Context, callbackID, name string, timeout time.Duration) (eventcache.Event, error) {
	e := eventcache.Event{}
	res, err := c.Call(ctx, "eventWaitAndGet", callbackID, name, timeout.Milliseconds())
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(res, &e); err != nil {
		return e, errors.Wrap(err, "decoding event")
	}
	return e, nil
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (*jsonrpc.Response, error) {
	data, err := encodeParams(params)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, method, data)
}

func (c *Client) send(ctx context.Context, method string, params json.RawMessage) (*jsonrpc.Response, error) {
	id := strconv.FormatInt(atomic.AddInt64(&c.nextID, 1), 10)
	ch := make(chan *jsonrpc.Response, 1)
	c.mutex.Lock()
	if c.err != nil {
		c.mutex.Unlock()
		return nil, c.err
	}
	c.pending[id] = ch
	c.mutex.Unlock()
	forget := func() {
		c.mutex.Lock()
		delete(c.pending, id)
		c.mutex.Unlock()
	}

	req := jsonrpc.Request{ID: json.RawMessage(id), Method: method, Params: params}
	if err := c.w.Encode(req); err != nil {
		forget()
		return nil, errors.Wrapf(err, "sending %s", method)
	}
	select {
	case resp := <-ch:
		return result(resp)
	case <-c.closed:
		// The response may have arrived just before the connection closed.
		select {
		case resp := <-ch:
			return result(resp)
		default:
		}
		forget()
		return nil, c.Err()
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	}
}

func result(resp *jsonrpc.Response) (*jsonrpc.Response, error) {
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp, nil
}
