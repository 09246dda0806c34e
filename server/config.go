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
	"time"

	"github.com/google/jsonrpcd/core/fault"
	"github.com/google/jsonrpcd/jsonrpc"
	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned by Config.Validate.
const ErrInvalidConfig = fault.Const("Invalid server configuration")

// Config holds the server settings.
// It is bound to command line flags and loaded from YAML files.
type Config struct {
	Address            string        `yaml:"address" help:"address the JSON-RPC server listens on"`
	Admin              string        `yaml:"admin" help:"address of the gRPC health endpoint, empty to disable"`
	MaxConnections     int           `yaml:"max_connections" name:"max-connections" help:"maximum concurrent connections, 0 for no limit"`
	MaxSessions        int           `yaml:"max_sessions" name:"max-sessions" help:"maximum open sessions, 0 for no limit"`
	MaxFrameSize       int           `yaml:"max_frame_size" name:"max-frame-size" help:"maximum size in bytes of a request line"`
	EventCacheSize     int           `yaml:"event_cache_size" name:"event-cache-size" help:"events held per session before the oldest is dropped"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout" name:"session-idle-timeout" help:"close sessions without connections after this long, 0 to keep them"`
	IdleTimeout        time.Duration `yaml:"idle_timeout" name:"idle-timeout" help:"stop the server after no requests for this long, 0 to run forever"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout" name:"handshake-timeout" help:"time allowed for a client to send its handshake"`
}

// DefaultConfig returns the default server settings.
func DefaultConfig() Config {
	return Config{
		Address:            "localhost:0",
		MaxConnections:     32,
		MaxFrameSize:       jsonrpc.DefaultMaxFrameSize,
		EventCacheSize:     1024,
		SessionIdleTimeout: 30 * time.Minute,
		HandshakeTimeout:   10 * time.Second,
	}
}

// Validate checks the settings are usable.
func (c Config) Validate() error {
	switch {
	case c.Address == "":
		return errors.Wrap(ErrInvalidConfig, "address must be set")
	case c.MaxConnections < 0:
		return errors.Wrap(ErrInvalidConfig, "max-connections must not be negative")
	case c.MaxSessions < 0:
		return errors.Wrap(ErrInvalidConfig, "max-sessions must not be negative")
	case c.MaxFrameSize < 0:
		return errors.Wrap(ErrInvalidConfig, "max-frame-size must not be negative")
	case c.SessionIdleTimeout < 0 || c.IdleTimeout < 0 || c.HandshakeTimeout < 0:
		return errors.Wrap(ErrInvalidConfig, "timeouts must not be negative")
	}
	return nil
}
