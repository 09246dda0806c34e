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
	"context"
	"fmt"
	"net"

	"github.com/google/jsonrpcd/core/event/task"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/core/net/grpcutil"
	"github.com/google/jsonrpcd/session"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the service name reported by the admin health endpoint.
const HealthService = "jsonrpcd"

// ListenAndServe listens on the configured addresses and serves until ctx
// is cancelled or the server stops.
func ListenAndServe(ctx context.Context, cfg Config, factories ...session.Factory) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	l, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return log.Errf(ctx, err, "Could not listen on %v", cfg.Address)
	}
	if addr, ok := l.Addr().(*net.TCPAddr); ok {
		// The following message is parsed by launchers to detect the selected port. DO NOT CHANGE!
		fmt.Printf("Bound on port '%d'\n", addr.Port)
	}
	var admin net.Listener
	if cfg.Admin != "" {
		if admin, err = net.Listen("tcp", cfg.Admin); err != nil {
			l.Close()
			return log.Errf(ctx, err, "Could not listen on admin address %v", cfg.Admin)
		}
	}
	return New(cfg, factories...).ServeWithAdmin(ctx, l, admin)
}

// ServeWithAdmin runs Serve on l and, if admin is not nil, a gRPC health
// endpoint on admin. The health status is SERVING while Serve runs and
// NOT_SERVING once it stops. Both listeners are closed on return.
func (s *Server) ServeWithAdmin(ctx context.Context, l, admin net.Listener) error {
	if admin == nil {
		return s.Serve(ctx, l)
	}
	ctx, cancel := task.WithCancel(ctx)
	defer cancel()

	healthServer := health.NewServer()
	healthServer.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		defer healthServer.Shutdown()
		healthServer.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
		return s.Serve(ctx, l)
	})
	g.Go(func() error {
		ctx := log.PutTag(ctx, "admin")
		return grpcutil.ServeWithListener(ctx, admin, func(ctx context.Context, listener net.Listener, server *grpc.Server) error {
			log.I(ctx, "Health endpoint on %v", listener.Addr())
			healthpb.RegisterHealthServer(server, healthServer)
			return nil
		})
	})
	return g.Wait()
}
