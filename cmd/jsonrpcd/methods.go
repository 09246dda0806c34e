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

	"github.com/google/jsonrpcd/core/app"
	"github.com/google/jsonrpcd/core/log"
)

type methodsVerb struct {
	ClientFlags
}

func init() {
	app.AddVerb(&app.Verb{
		Name:      "methods",
		ShortHelp: "Lists the methods of a session",
		Auto:      &methodsVerb{},
	})
}

func (verb *methodsVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	c, err := verb.connect(ctx)
	if err != nil {
		return log.Err(ctx, err, "Connecting")
	}
	defer verb.done(ctx, c)

	res, err := c.Call(ctx, "help")
	if err != nil {
		return log.Err(ctx, err, "Listing methods")
	}
	signatures := []string{}
	if err := json.Unmarshal(res, &signatures); err != nil {
		return log.Err(ctx, err, "Decoding method list")
	}
	for _, s := range signatures {
		fmt.Fprintln(os.Stdout, s)
	}
	return nil
}
