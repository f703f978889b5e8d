// Copyright (c) 2017 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package kafka

import (
	"errors"
	"fmt"
)

// TransientDriverError wraps a recoverable broker I/O error. The commit
// loop retries at the next tick; it is never surfaced to the user
// callback.
type TransientDriverError struct {
	Op  string
	Err error
}

func (e *TransientDriverError) Error() string {
	return fmt.Sprintf("kafka: transient driver error during %s: %v", e.Op, e.Err)
}

func (e *TransientDriverError) Unwrap() error { return e.Err }

// FatalDriverError wraps an unrecoverable broker error (auth, unknown
// topic at produce time, ...). Receiving one collapses the consumer to
// STOPPING.
type FatalDriverError struct {
	Op  string
	Err error
}

func (e *FatalDriverError) Error() string {
	return fmt.Sprintf("kafka: fatal driver error during %s: %v", e.Op, e.Err)
}

func (e *FatalDriverError) Unwrap() error { return e.Err }

// CallbackError wraps a panic or error surfaced by the user's stream
// processor. Routed to Consumer.OnTaskError.
type CallbackError struct {
	TP     TopicPartition
	Offset int64
	Err    error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("kafka: callback error at %s offset %d: %v", e.TP, e.Offset, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// ErrMissingKey is raised by Table.Get when the key is absent and no
// default factory was configured.
var ErrMissingKey = errors.New("kafka: key not found in table")

// ErrOffsetRegression marks an attempted commit whose offset is not
// greater than the current committed offset. It is not returned as a
// failure; callers should treat it as "already committed" and continue.
var ErrOffsetRegression = errors.New("kafka: commit offset does not advance current offset")
