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
	"testing"

	"github.com/kafkaflow/kafkaflow/kafka"
)

func TestMessageRefFiresOnceOnSingleRelease(t *testing.T) {
	fired := 0
	tp := kafka.TopicPartition{Topic: "t", Partition: 0}
	ref := newMessageRef(&kafka.Message{}, tp, 5, 1, func(*messageRef) { fired++ })

	ref.Release()
	if fired != 1 {
		t.Fatalf("expected exactly one release, got %d", fired)
	}
}

func TestMessageRefWaitsForAllDerivedReferences(t *testing.T) {
	fired := 0
	tp := kafka.TopicPartition{Topic: "t", Partition: 0}
	ref := newMessageRef(&kafka.Message{}, tp, 5, 1, func(*messageRef) { fired++ })

	ref.Retain() // a derived event borrows the handle
	ref.Retain() // a second derived event borrows it too

	ref.Release() // the implicit construction-time reference drops
	if fired != 0 {
		t.Fatalf("release fired before all derived references dropped")
	}
	ref.Release()
	if fired != 0 {
		t.Fatalf("release fired before the last derived reference dropped")
	}
	ref.Release()
	if fired != 1 {
		t.Fatalf("expected exactly one release after the last reference dropped, got %d", fired)
	}
}

func TestMessageRefConcurrentReleaseFiresExactlyOnce(t *testing.T) {
	tp := kafka.TopicPartition{Topic: "t", Partition: 0}
	var fired int
	var mu sync.Mutex
	ref := newMessageRef(&kafka.Message{}, tp, 5, 1, func(*messageRef) {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	const n = 50
	for i := 0; i < n-1; i++ {
		ref.Retain()
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			ref.Release()
		}()
	}
	wg.Wait()

	if fired != 1 {
		t.Fatalf("expected exactly one release across %d concurrent releasers, got %d", n, fired)
	}
}
