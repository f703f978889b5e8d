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

// Package list provides the small bounded-capacity queue the consumer uses
// for its cross-goroutine recently-acked notifications, where an
// unbounded channel would let a stalled
// drain loop grow memory without limit. Grounded on the capacity-aware
// list the teacher's partitionConsumer reports against via
// list.ErrCapacity in its ack tracking path.
package list

import "errors"

// ErrCapacity is returned by Push when the queue is full and the caller
// asked for blocking-free backpressure instead of drop-oldest behavior.
var ErrCapacity = errors.New("list: queue at capacity")

// BoundedQueue[T] is a fixed-capacity FIFO. It is not safe for concurrent
// use without external synchronization; callers that need that (like the
// consumer's recently-acked queue) wrap it in a mutex or run it behind a
// single owning goroutine.
type BoundedQueue[T any] struct {
	items []T
	cap   int
}

// NewBoundedQueue returns an empty queue with room for capacity items.
// capacity <= 0 means unbounded, matching spec.md §9's documented default
// for the recently-acked queue.
func NewBoundedQueue[T any](capacity int) *BoundedQueue[T] {
	return &BoundedQueue[T]{cap: capacity}
}

// Push appends v. If the queue is at capacity and dropOldest is true, the
// oldest element is discarded to make room, Push always succeeds, and
// dropped reports the eviction so callers can count it. If dropOldest is
// false, Push returns ErrCapacity instead of growing past capacity.
func (q *BoundedQueue[T]) Push(v T, dropOldest bool) (dropped bool, err error) {
	if q.cap > 0 && len(q.items) >= q.cap {
		if !dropOldest {
			return false, ErrCapacity
		}
		q.items = q.items[1:]
		dropped = true
	}
	q.items = append(q.items, v)
	return dropped, nil
}

// Pop removes and returns the oldest element. ok is false if the queue is
// empty.
func (q *BoundedQueue[T]) Pop() (v T, ok bool) {
	if len(q.items) == 0 {
		return v, false
	}
	v = q.items[0]
	q.items = q.items[1:]
	return v, true
}

// Len reports the number of queued elements.
func (q *BoundedQueue[T]) Len() int {
	return len(q.items)
}
