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

package grpcutil_test

import (
	"context"
	"net"
	"testing"

	"github.com/google/jsonrpcd/core/assert"
	"github.com/google/jsonrpcd/core/event/task"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/core/net/grpcutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestServeAndDial(t *testing.T) {
	ctx := log.Testing(t)
	ctx, cancel := task.WithCancel(ctx)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.For(ctx, "listen").ThatError(err).Succeeded()

	done := make(chan error, 1)
	go func() {
		done <- grpcutil.ServeWithListener(ctx, listener, func(ctx context.Context, l net.Listener, s *grpc.Server) error {
			healthpb.RegisterHealthServer(s, health.NewServer())
			return nil
		})
	}()

	err = grpcutil.Client(ctx, listener.Addr().String(), func(ctx context.Context, conn *grpc.ClientConn) error {
		res, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
		if err != nil {
			return err
		}
		assert.For(ctx, "status").That(res.Status).Equals(healthpb.HealthCheckResponse_SERVING)
		return nil
	})
	assert.For(ctx, "client").ThatError(err).Succeeded()

	cancel()
	assert.For(ctx, "serve").ThatError(<-done).Succeeded()
}

func TestServeBadAddress(t *testing.T) {
	ctx := log.Testing(t)
	err := grpcutil.Serve(ctx, "not-an-address", func(context.Context, net.Listener, *grpc.Server) error { return nil })
	assert.For(ctx, "serve").ThatError(err).Failed()
}
