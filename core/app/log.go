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

package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonrpcd/core/log"
)

const logChanBufferSize = 100

// LogHandler is the primary application logger target.
// It is assigned to the main context on startup and is closed on shutdown.
var LogHandler log.Indirect

// LogFlags holds the command line flags that control logging.
type LogFlags struct {
	Level log.Severity `help:"the minimum severity of messages to log"`
	Style log.Style    `help:"the style used to print log messages"`
	JSON  bool         `help:"write log messages as one JSON object per line"`
	File  string       `help:"also write log messages to this file"`
}

func logDefaults() LogFlags {
	return LogFlags{
		Level: log.Info,
		Style: log.Normal,
	}
}

func (f *LogFlags) handler(w log.Writer) log.Handler {
	if f.JSON {
		return log.JSON(w)
	}
	return f.Style.Handler(w)
}

func wrapHandler(to log.Handler) log.Handler {
	to = log.Channel(to, logChanBufferSize)
	return log.NewHandler(func(m *log.Message) {
		to.Handle(m)
		if m.StopProcess {
			to.Close()
			panic(FatalExit)
		}
	}, to.Close)
}

func prepareContext(flags *LogFlags) context.Context {
	process := strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
	LogHandler.SetTarget(wrapHandler(flags.handler(log.Std())))
	ctx := context.Background()
	ctx = log.PutProcess(ctx, process)
	ctx = log.PutFilter(ctx, log.SeverityFilter(flags.Level))
	ctx = log.PutHandler(ctx, &LogHandler)
	return ctx
}

func updateContext(ctx context.Context, flags *LogFlags) context.Context {
	ctx = log.PutFilter(ctx, log.SeverityFilter(flags.Level))
	handler := flags.handler(log.Std())
	if flags.File != "" {
		if file := createLogFile(ctx, flags.File); file != nil {
			fileHandler := log.OnClosed(flags.handler(log.To(file)), func() { file.Close() })
			handler = log.Broadcast(handler, fileHandler)
		}
	}
	if old := LogHandler.SetTarget(wrapHandler(handler)); old != nil {
		old.Close()
	}
	return ctx
}

func createLogFile(ctx context.Context, path string) *os.File {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)

	os.MkdirAll(dir, 0755)
	for i := 0; i < 10; i++ {
		file, err := os.Create(path)
		if err == nil {
			log.I(ctx, "Logging to: %v", path)
			return file
		}

		// Try a different path next.
		path = filepath.Join(dir, fmt.Sprintf("%s-%d%s", name, i, ext))
	}

	log.E(ctx, "Failed to create log file %v", path)
	return nil
}
