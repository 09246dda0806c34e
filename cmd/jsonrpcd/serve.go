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

package main

import (
	"context"
	"flag"

	"github.com/google/jsonrpcd/config"
	"github.com/google/jsonrpcd/core/app"
	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/server"
)

type serveVerb struct {
	server.Config
	ConfigFile string `name:"config" help:"YAML file of server settings, flags take precedence"`
}

func init() {
	app.AddVerb(&app.Verb{
		Name:      "serve",
		ShortHelp: "Runs the JSON-RPC server",
		Auto:      &serveVerb{Config: server.DefaultConfig()},
	})
}

func (verb *serveVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	if flags.NArg() > 0 {
		app.Usage(ctx, "serve takes no arguments, got %v", flags.Args())
	}
	if err := verb.load(&flags); err != nil {
		return log.Err(ctx, err, "Loading settings")
	}
	return server.ListenAndServe(ctx, verb.Config, facades...)
}

// load merges the config file into the flag values and validates the result.
func (verb *serveVerb) load(flags *flag.FlagSet) error {
	if err := config.LoadWithFlags(verb.ConfigFile, &verb.Config, flags); err != nil {
		return err
	}
	return verb.Config.Validate()
}
