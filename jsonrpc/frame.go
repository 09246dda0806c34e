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

package jsonrpc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sync"

	"github.com/google/jsonrpcd/core/fault"
	"github.com/pkg/errors"
)

// ErrFrameTooLarge is returned by Reader.ReadFrame for a frame longer than
// the maximum frame size. The oversized frame has been discarded and the
// reader is positioned at the start of the next one.
const ErrFrameTooLarge = fault.Const("Frame too large")

// DefaultMaxFrameSize is the maximum frame size used when none is given.
const DefaultMaxFrameSize = 1 << 20

// Reader reads newline delimited frames.
type Reader struct {
	r   *bufio.Reader
	max int
}

// NewReader returns a Reader of frames from r that are at most max bytes
// long. If max is not positive DefaultMaxFrameSize is used.
func NewReader(r io.Reader, max int) *Reader {
	if max <= 0 {
		max = DefaultMaxFrameSize
	}
	return &Reader{r: bufio.NewReader(r), max: max}
}

// ReadFrame returns the next frame without its line terminator.
// A final frame without a terminator is returned before io.EOF.
func (r *Reader) ReadFrame() ([]byte, error) {
	var frame []byte
	tooLarge := false
	for {
		chunk, err := r.r.ReadSlice('\n')
		if !tooLarge {
			if len(frame)+len(chunk) > r.max+2 {
				tooLarge = true
				frame = nil
			} else {
				frame = append(frame, chunk...)
			}
		}
		switch err {
		case nil:
			if tooLarge {
				return nil, ErrFrameTooLarge
			}
			frame = bytes.TrimRight(frame, "\r\n")
			if len(frame) > r.max {
				return nil, ErrFrameTooLarge
			}
			return frame, nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			if tooLarge {
				return nil, ErrFrameTooLarge
			}
			if len(frame) > 0 {
				return bytes.TrimRight(frame, "\r"), nil
			}
			return nil, io.EOF
		default:
			return nil, err
		}
	}
}

// Marshal encodes v as JSON without escaping HTML characters, so that
// strings are not inflated on the wire.
func Marshal(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	e := json.NewEncoder(buf)
	e.SetEscapeHTML(false)
	if err := e.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Writer writes JSON values as newline terminated frames.
// It is safe for concurrent use.
type Writer struct {
	// Max is the largest frame Encode writes, 0 for no limit.
	Max int

	mutex sync.Mutex
	w     io.Writer
}

// NewWriter returns a Writer of frames to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Encode writes v as a single frame. HTML characters are not escaped.
// A frame larger than Max is not written and ErrFrameTooLarge is returned.
func (w *Writer) Encode(v interface{}) error {
	data, err := Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding frame")
	}
	if w.Max > 0 && len(data) > w.Max {
		return errors.Wrapf(ErrFrameTooLarge, "%d bytes, limit is %d", len(data), w.Max)
	}
	data = append(data, '\n')
	w.mutex.Lock()
	defer w.mutex.Unlock()
	_, err = w.w.Write(data)
	return err
}
