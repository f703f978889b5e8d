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

import "sort"

// ackSet is the sorted, unique-insert-preserving multiset of acknowledged
// offsets for a single topic-partition (spec.md §4.2). It is the core
// invariant of this system: it decides which offsets are safe to commit.
//
// Grounded on faust's Consumer._acked / _new_offset
// (original_source/faust/transport/base.py), expressed here as its own
// type instead of a dict-of-lists so the gap-aware prefix algorithm and
// its tests stand on their own.
type ackSet struct {
	offsets []int64 // always kept sorted, unique
}

// Ack records offset as acknowledged. Duplicate acks are idempotent: a
// repeated offset is silently absorbed.
func (a *ackSet) Ack(offset int64) {
	i := sort.Search(len(a.offsets), func(i int) bool { return a.offsets[i] >= offset })
	if i < len(a.offsets) && a.offsets[i] == offset {
		return // duplicate, already present
	}
	a.offsets = append(a.offsets, 0)
	copy(a.offsets[i+1:], a.offsets[i:])
	a.offsets[i] = offset
}

// CommittablePrefix returns the last offset of the longest run of
// consecutive integers at the head of the sorted set, and drains that run
// from the set. ok is false if the set is empty (no commit offset).
//
// Example: offsets [1,2,3,4,5,8] -> returns (5, true), leaving [8].
// Offsets [34,35,36,40,41] -> returns (36, true), leaving [40,41].
func (a *ackSet) CommittablePrefix() (offset int64, ok bool) {
	if len(a.offsets) == 0 {
		return 0, false
	}
	k := 1
	for k < len(a.offsets) && a.offsets[k] == a.offsets[k-1]+1 {
		k++
	}
	offset = a.offsets[k-1]
	a.offsets = a.offsets[k:]
	return offset, true
}

// Len reports how many offsets are currently pending in the set.
func (a *ackSet) Len() int {
	return len(a.offsets)
}

// Reset discards all pending offsets, used when a partition is revoked.
func (a *ackSet) Reset() {
	a.offsets = nil
}
