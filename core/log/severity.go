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

package log

import (
	"strconv"
	"strings"

	"github.com/google/jsonrpcd/core/fault"
)

// ErrUnknownSeverity is returned when parsing an unrecognised severity name.
const ErrUnknownSeverity = fault.Const("Unknown severity")

// Severity defines the severity of a logging message.
type Severity int32

// The values must be sequential from 0 so that flags.ForEnum can list them.
const (
	// Verbose indicates extremely verbose level messages.
	Verbose Severity = iota
	// Debug indicates debug-level messages.
	Debug
	// Info indicates minor informational messages that should generally be ignored.
	Info
	// Warning indicates issues that might affect performance or compatibility, but could be ignored.
	Warning
	// Error indicates non terminal failure conditions that may have an effect on results.
	Error
	// Fatal indicates a fatal error.
	Fatal
)

var severityNames = [...]string{"Verbose", "Debug", "Info", "Warning", "Error", "Fatal"}

// String returns the full name of the severity.
func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return strconv.Itoa(int(s))
	}
	return severityNames[s]
}

// Short returns the severity string with a single character.
func (s Severity) Short() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "?"
	}
	return severityNames[s][:1]
}

// Choose sets the severity to the supplied choice.
// This lets a *Severity be bound directly as a command line flag.
func (s *Severity) Choose(v interface{}) { *s = v.(Severity) }

// UnmarshalText parses a severity name, ignoring case.
func (s *Severity) UnmarshalText(text []byte) error {
	for i, n := range severityNames {
		if strings.EqualFold(n, string(text)) {
			*s = Severity(i)
			return nil
		}
	}
	return ErrUnknownSeverity
}

// MarshalText returns the full name of the severity.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
