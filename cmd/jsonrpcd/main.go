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

// The jsonrpcd command serves, and talks to, line based JSON-RPC sessions.
package main

import (
	"context"

	"github.com/google/jsonrpcd/core/app"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/facades/builtin"
	"github.com/google/jsonrpcd/facades/events"
	"github.com/google/jsonrpcd/facades/system"
	"github.com/google/jsonrpcd/facades/util"
	"github.com/google/jsonrpcd/session"
	"google.golang.org/grpc/grpclog"
)

// facades are instantiated for every session the server creates.
var facades = []session.Factory{
	builtin.New,
	events.New,
	system.New,
	util.New,
}

func main() {
	app.ShortHelp = "jsonrpcd serves JSON-RPC facades over TCP sessions"
	app.Version = app.VersionSpec{Major: 1, Minor: 0, Point: 0}
	app.Run(run)
}

func run(ctx context.Context) error {
	grpclog.SetLogger(log.From(ctx))
	return app.VerbMain(ctx)
}
