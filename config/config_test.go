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

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/jsonrpcd/config"
	"github.com/google/jsonrpcd/core/app/flags"
	"github.com/google/jsonrpcd/core/assert"
)

type Settings struct {
	Address string        `yaml:"address"`
	Limit   int           `yaml:"limit"`
	Timeout time.Duration `yaml:"timeout"`
}

type verbFlags struct {
	Settings
	Config string `help:"config file"`
}

func write(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	assert := assert.To(t)
	s := Settings{Limit: 3}
	err := config.Load(write(t, "address: localhost:1234\ntimeout: 5s\n"), &s)
	assert.For("load").ThatError(err).Succeeded()
	assert.For("Settings").That(s).Equals(Settings{Address: "localhost:1234", Limit: 3, Timeout: 5 * time.Second})

	err = config.Load(write(t, "adress: typo\n"), &s)
	assert.For("unknown key").ThatError(err).Failed()

	err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"), &s)
	assert.For("missing file").ThatError(err).Failed()
}

func TestLoadWithFlags(t *testing.T) {
	assert := assert.To(t)
	v := verbFlags{Settings: Settings{Address: "default", Limit: 1}}
	fs := flags.NewSet("test")
	fs.Bind("", &v, "")
	path := write(t, "address: from-file\nlimit: 10\ntimeout: 1m\n")
	err := fs.Parse(nil, "-limit", "20", "-config", path)
	assert.For("parse").ThatError(err).Succeeded()

	err = config.LoadWithFlags(v.Config, &v.Settings, &fs.Raw)
	assert.For("load").ThatError(err).Succeeded()
	assert.For("address from file").That(v.Address).Equals("from-file")
	assert.For("limit from flag").That(v.Limit).Equals(20)
	assert.For("timeout from file").That(v.Timeout).Equals(time.Minute)
}

func TestLoadWithFlagsNoFile(t *testing.T) {
	assert := assert.To(t)
	v := verbFlags{Settings: Settings{Address: "default"}}
	fs := flags.NewSet("test")
	fs.Bind("", &v, "")
	assert.For("parse").ThatError(fs.Parse(nil, "-address", "flag")).Succeeded()
	assert.For("load").ThatError(config.LoadWithFlags("", &v.Settings, &fs.Raw)).Succeeded()
	assert.For("address").That(v.Address).Equals("flag")
}
