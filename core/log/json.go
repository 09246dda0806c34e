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
	"encoding/json"
	"fmt"
	"time"
)

type jsonMessage struct {
	Time     string                 `json:"time,omitempty"`
	Severity string                 `json:"severity"`
	Tag      string                 `json:"tag,omitempty"`
	Process  string                 `json:"process,omitempty"`
	Trace    string                 `json:"trace,omitempty"`
	Text     string                 `json:"text"`
	Values   map[string]interface{} `json:"values,omitempty"`
}

// JSON returns a Handler that writes each message to w as a single line JSON
// object. Values that cannot be marshalled are written using their %v form.
func JSON(w Writer) Handler {
	return handler{
		handle: func(m *Message) {
			out := jsonMessage{
				Severity: m.Severity.String(),
				Tag:      m.Tag,
				Process:  m.Process,
				Trace:    traceString(m.Trace),
				Text:     m.Text,
			}
			if !m.Time.IsZero() {
				out.Time = m.Time.Format(time.RFC3339Nano)
			}
			if len(m.Values) > 0 {
				out.Values = make(map[string]interface{}, len(m.Values))
				for _, v := range m.Values {
					if _, err := json.Marshal(v.Value); err != nil {
						out.Values[v.Name] = fmt.Sprint(v.Value)
					} else {
						out.Values[v.Name] = v.Value
					}
				}
			}
			data, err := json.Marshal(out)
			if err != nil {
				data = []byte(fmt.Sprintf("{\"severity\":%q,\"text\":%q}", m.Severity, m.Text))
			}
			w(string(data), m.Severity)
		},
	}
}
