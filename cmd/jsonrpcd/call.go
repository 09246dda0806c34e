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
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/jsonrpcd/client"
	"github.com/google/jsonrpcd/core/app"
	"github.com/google/jsonrpcd/core/log"
)

// ClientFlags select the server and session a client verb talks to.
type ClientFlags struct {
	Address      string `help:"address of the JSON-RPC server"`
	UID          int    `help:"session to continue, 0 starts a new one"`
	Keep         bool   `help:"leave a new session open and print its uid"`
	MaxFrameSize int    `name:"max-frame-size" help:"largest request sent, should match the server max-frame-size"`
}

func (f ClientFlags) connect(ctx context.Context) (*client.Client, error) {
	if f.Address == "" {
		app.Usage(ctx, "-address must be set")
	}
	options := []client.Option{}
	if f.MaxFrameSize > 0 {
		options = append(options, client.WithMaxRequestSize(f.MaxFrameSize))
	}
	if f.UID > 0 {
		return client.Continue(ctx, f.Address, f.UID, options...)
	}
	return client.Dial(ctx, f.Address, options...)
}

// done releases c, closing the session if it was started for this command.
func (f ClientFlags) done(ctx context.Context, c *client.Client) {
	if f.UID > 0 || f.Keep {
		if f.Keep {
			fmt.Fprintf(os.Stderr, "Session %d\n", c.UID())
		}
		c.Close()
		return
	}
	if err := c.CloseSession(ctx); err != nil {
		log.W(ctx, "Closing session %d: %v", c.UID(), err)
	}
}

type callVerb struct {
	ClientFlags
}

func init() {
	app.AddVerb(&app.Verb{
		Name:       "call",
		ShortHelp:  "Calls a method and prints its result",
		ShortUsage: "<method> [param...]",
		Auto:       &callVerb{},
	})
}

func (verb *callVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	if flags.NArg() < 1 {
		app.Usage(ctx, "call requires a method name")
	}
	method := flags.Arg(0)
	params := make([]interface{}, flags.NArg()-1)
	for i, arg := range flags.Args()[1:] {
		params[i] = param(arg)
	}

	c, err := verb.connect(ctx)
	if err != nil {
		return log.Err(ctx, err, "Connecting")
	}
	defer verb.done(ctx, c)

	resp, err := c.Invoke(ctx, method, params...)
	if err != nil {
		return log.Errf(ctx, err, "Calling %s", method)
	}
	if cb := resp.CallbackID(); cb != "" {
		fmt.Fprintf(os.Stderr, "Callback %s\n", cb)
	}
	return printJSON(resp.Result)
}

// param decodes arg as JSON, falling back to the raw string.
func param(arg string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return arg
	}
	return v
}

func printJSON(raw json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		_, err = fmt.Fprintln(os.Stdout, string(raw))
		return err
	}
	e := json.NewEncoder(os.Stdout)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
