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

import "github.com/google/jsonrpcd/core/app/crash"

// Channel returns a Handler that queues messages for to, which is then only
// ever called from a single goroutine. Closing the returned handler delivers
// the queued messages and closes to.
func Channel(to Handler, size int) Handler {
	queue := make(chan *Message, size)
	stopped := make(chan struct{})
	crash.Go(func() {
		defer close(stopped)
		defer to.Close()
		for m := <-queue; m != nil; m = <-queue {
			to.Handle(m)
		}
	})
	return NewHandler(func(m *Message) {
		if m == nil {
			return
		}
		select {
		case queue <- m:
		case <-stopped:
		}
	}, func() {
		select {
		case queue <- nil:
			<-stopped
		case <-stopped:
		}
	})
}
