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

// Package server serves JSON-RPC sessions over line oriented TCP
// connections.
package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/jsonrpcd/core/app/crash"
	"github.com/google/jsonrpcd/core/event/task"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/jsonrpc"
	"github.com/google/jsonrpcd/session"
)

// Server accepts connections and dispatches their requests to sessions.
type Server struct {
	cfg      Config
	sessions *session.Manager

	mutex sync.Mutex
	conns int

	wg           sync.WaitGroup
	keepAlive    chan struct{}
	inFlightRPCs int32
}

// New returns a server whose sessions are built from the factories.
func New(cfg Config, factories ...session.Factory) *Server {
	m := session.NewManager(factories...)
	m.MaxSessions = cfg.MaxSessions
	m.EventCacheSize = cfg.EventCacheSize
	return &Server{
		cfg:       cfg,
		sessions:  m,
		keepAlive: make(chan struct{}, 1),
	}
}

// Sessions returns the session manager of the server.
func (s *Server) Sessions() *session.Manager { return s.sessions }

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.conns
}

// Serve accepts connections on l until ctx is cancelled, the idle timeout
// expires or accepting fails. Each connection is served on its own
// goroutine. Serve closes l and every session, and returns once all the
// connections are finished.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	ctx, cancel := task.WithCancel(ctx)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
		}
		l.Close()
	}()

	if s.cfg.SessionIdleTimeout > 0 {
		s.wg.Add(1)
		crash.Go(func() {
			defer s.wg.Done()
			s.reapIdle(ctx, s.cfg.SessionIdleTimeout)
		})
	}
	if s.cfg.IdleTimeout > 0 {
		s.wg.Add(1)
		crash.Go(func() {
			defer s.wg.Done()
			s.stopIfIdle(ctx, task.CancelFunc(cancel), s.cfg.IdleTimeout)
		})
	}

	log.I(ctx, "Serving JSON-RPC on %v", l.Addr())
	var err error
	for {
		c, e := l.Accept()
		if e != nil {
			if !task.Stopped(ctx) {
				err = log.Errf(ctx, e, "Accepting connection on %v", l.Addr())
			}
			break
		}
		s.wg.Add(1)
		if !s.admit() {
			crash.Go(func() {
				defer s.wg.Done()
				s.reject(ctx, c)
			})
			continue
		}
		crash.Go(func() {
			defer s.wg.Done()
			defer s.release()
			s.serveConn(ctx, c)
		})
	}

	cancel()
	close(stopped)
	s.wg.Wait()
	if e := s.sessions.CloseAll(ctx); e != nil {
		log.W(ctx, "Closing sessions: %v", e)
	}
	log.I(ctx, "JSON-RPC server stopped")
	return err
}

func (s *Server) admit() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.cfg.MaxConnections > 0 && s.conns >= s.cfg.MaxConnections {
		return false
	}
	s.conns++
	return true
}

func (s *Server) release() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.conns--
}

func (s *Server) reject(ctx context.Context, c net.Conn) {
	defer c.Close()
	log.W(ctx, "Rejecting connection from %v: limit of %d connections reached", c.RemoteAddr(), s.cfg.MaxConnections)
	// Consume the handshake so closing does not reset the connection before
	// the client reads the reply.
	c.SetDeadline(time.Now().Add(time.Second))
	jsonrpc.NewReader(c, s.cfg.MaxFrameSize).ReadFrame()
	jsonrpc.NewWriter(c).Encode(jsonrpc.HandshakeReply{
		Status: false,
		Error:  "too many connections",
	})
}

// inRPC should be called at the start of a request. The returned function
// should be called when the request finishes.
func (s *Server) inRPC() func() {
	atomic.AddInt32(&s.inFlightRPCs, 1)
	s.ping()
	return func() {
		s.ping()
		atomic.AddInt32(&s.inFlightRPCs, -1)
	}
}

func (s *Server) ping() {
	select {
	case s.keepAlive <- struct{}{}:
	default:
	}
}

// stopIfIdle calls stop if there is no request within idleTimeout.
// This function blocks until there's an idle timeout, or ctx is cancelled.
func (s *Server) stopIfIdle(ctx context.Context, stop task.CancelFunc, idleTimeout time.Duration) {
	// Split the idleTimeout into N smaller chunks, and check that there was
	// no activity from the client in a contiguous N chunks of time.
	// This avoids stopping the server if the machine is suspended and the
	// system clock jumps forward.
	waitTime := idleTimeout / 12
	var idleTime time.Duration
	for {
		select {
		case <-task.ShouldStop(ctx):
			return
		case <-time.After(waitTime):
			if atomic.LoadInt32(&s.inFlightRPCs) != 0 {
				continue
			}
			idleTime += waitTime
			if idleTime >= idleTimeout {
				log.W(ctx, "Stopping server: no requests for %v (--idle-timeout %v)", idleTime, idleTimeout)
				stop()
				return
			}
		case <-s.keepAlive:
			idleTime = 0
		}
	}
}

func (s *Server) reapIdle(ctx context.Context, idle time.Duration) {
	interval := idle / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	task.Every(ctx, interval, func(ctx context.Context) {
		s.sessions.Reap(ctx, idle)
	})
}
