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

// Package config loads settings structs from YAML files and merges them
// with command line flags.
package config

import (
	"flag"
	"os"

	"github.com/google/jsonrpcd/core/app/flags"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Load decodes the YAML file at path into dst.
// Keys that do not match a field of dst are an error.
func Load(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading config")
	}
	if err := yaml.UnmarshalStrict(data, dst); err != nil {
		return errors.Wrapf(err, "parsing config %s", path)
	}
	return nil
}

// LoadWithFlags loads the YAML file at path into dst, which must also be
// bound to fs, then re-applies every flag that was set on the command line.
// An empty path leaves dst as the flags set it.
func LoadWithFlags(path string, dst interface{}, fs *flag.FlagSet) error {
	if path == "" {
		return nil
	}
	set := map[string]string{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = f.Value.String() })

	if err := Load(path, dst); err != nil {
		return err
	}

	bound := flags.NewSet("config")
	bound.Bind("", dst, "")
	for name, value := range set {
		if bound.Raw.Lookup(name) == nil {
			continue
		}
		if err := bound.Raw.Set(name, value); err != nil {
			return errors.Wrapf(err, "re-applying -%s", name)
		}
	}
	return nil
}
