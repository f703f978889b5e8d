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

package consumer

import (
	"sync"
	"sync/atomic"

	"github.com/kafkaflow/kafkaflow/kafka"
)

// messageRef is the Go-native replacement for the GC weak-reference the
// source relies on (spec.md §9 "GC-triggered ack -> deterministic
// release"): a reference-counted handle attached to a Message. Derived
// stream events borrow it with Retain; when the last borrow calls
// Release, onRelease fires exactly once, from whichever goroutine drops
// the final reference.
//
// Cycles are impossible by construction: derived events never hold a
// reference back to the messageRef that spawned them, only forward to
// their own children (design notes, spec.md §9).
type messageRef struct {
	msg        *kafka.Message
	tp         kafka.TopicPartition
	offset     int64
	consumerID int64
	onRelease  func(*messageRef)

	refs    int32
	fired   int32 // 1 once onRelease has run
	fireMux sync.Mutex
}

// newMessageRef creates a ref with one implicit reference, held by the
// consumer delivery path itself until the callback and any derived events
// retain their own.
func newMessageRef(msg *kafka.Message, tp kafka.TopicPartition, offset int64, consumerID int64, onRelease func(*messageRef)) *messageRef {
	return &messageRef{
		msg:        msg,
		tp:         tp,
		offset:     offset,
		consumerID: consumerID,
		onRelease:  onRelease,
		refs:       1,
	}
}

// Retain adds one reference, taken by a derived event before it starts
// its own work.
func (r *messageRef) Retain() {
	atomic.AddInt32(&r.refs, 1)
}

// Release drops one reference. When the count reaches zero, onRelease
// fires exactly once.
func (r *messageRef) Release() {
	if atomic.AddInt32(&r.refs, -1) > 0 {
		return
	}
	r.fireMux.Lock()
	defer r.fireMux.Unlock()
	if atomic.CompareAndSwapInt32(&r.fired, 0, 1) {
		if r.onRelease != nil {
			r.onRelease(r)
		}
	}
}
