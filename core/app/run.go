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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/jsonrpcd/core/app/crash"
	"github.com/google/jsonrpcd/core/event/task"
	"github.com/google/jsonrpcd/core/log"
)

var (
	// Name is the full name of the application
	Name string
	// ExitFuncForTesting can be set to change the behaviour when there is a command line parsing failure.
	// It defaults to os.Exit
	ExitFuncForTesting = os.Exit
	// ShortHelp should be set to add a help message to the usage text.
	ShortHelp = ""
	// ShortUsage is usage text for the additional non-flag arguments.
	ShortUsage = ""
	// UsageFooter is printed at the bottom of the usage text
	UsageFooter = ""
	// Version holds the version specification for the application.
	// If valid a command line option to report it will be added automatically.
	Version = VersionSpec{Major: -1}
)

// VersionSpec is the structure for the version of an application.
type VersionSpec struct {
	// Major version, the version structure is in valid if <0
	Major int
	// Minor version, not used if <0
	Minor int
	// Point version, not used if <0
	Point int
	// The build identifier, not used if an empty string
	Build string
}

// IsValid reports true if the VersionSpec is valid, ie it has a Major version.
func (v VersionSpec) IsValid() bool {
	return v.Major >= 0
}

// Format implements fmt.Formatter to print the version.
func (v VersionSpec) Format(f fmt.State, c rune) {
	fmt.Fprint(f, v.Major)
	if v.Minor >= 0 {
		fmt.Fprint(f, ".", v.Minor)
	}
	if v.Point >= 0 {
		fmt.Fprint(f, ".", v.Point)
	}
	if v.Build != "" {
		fmt.Fprint(f, ":", v.Build)
	}
}

// AppFlags are the flags common to every application.
type AppFlags struct {
	Log      LogFlags
	Version  bool `help:"print the version and exit"`
	FullHelp bool `name:"-"`
}

func init() {
	Name = strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
}

// Run performs all the work needed to start up an application.
// It parsers the main command line arguments, builds a primary context that will be cancelled on exit
// runs the provided task, cancels the primary context and then waits for either the maximum shutdown delay
// or all registered signals whichever comes first.
func Run(main task.Task) {
	crash.Register(onCrash)

	// Defer the panic handling
	defer func() {
		switch cause := recover().(type) {
		case nil:
		case ExitCode:
			ExitFuncForTesting(int(cause))
		default:
			crash.Crash(cause)
		}
	}()
	flags := &AppFlags{Log: logDefaults()}

	// install all the common application flags
	rootCtx := prepareContext(&flags.Log)

	// parse the command line
	verbMainPrepare(flags)
	if err := globalVerbs.Flags.Parse(&flags.FullHelp, os.Args[1:]...); err != nil {
		parseFailed(rootCtx, err, flags.FullHelp)
	}
	if flags.FullHelp {
		usage(rootCtx, "", true)
		panic(SuccessExit)
	}

	if flags.Version {
		if Version.IsValid() {
			fmt.Fprint(os.Stdout, Name, " version ", Version, "\n")
		} else {
			fmt.Fprint(os.Stdout, Name, " version unknown\n")
		}
		return
	}

	ctx, cancel := task.WithCancel(rootCtx)

	ctx = updateContext(ctx, &flags.Log)

	// Defer the shutdown code
	shutdownOnce := sync.Once{}
	shutdown := func() {
		shutdownOnce.Do(func() {
			cancel()
			if !WaitForCleanup(rootCtx) {
				fmt.Fprint(os.Stderr, "Timeout waiting for cleanup\n")
			}
			LogHandler.Close()
		})
	}

	defer shutdown()

	// Add the abort and crash signal handlers
	handleAbortSignals(task.CancelFunc(cancel))
	handleCrashSignals(task.CancelFunc(cancel))

	// Now we are ready to run the main task
	if err := main(ctx); err != nil {
		log.F(ctx, true, "Main failed\nError: %v", err)
	}
}
