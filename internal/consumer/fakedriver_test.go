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
	"context"
	"sync"

	"github.com/kafkaflow/kafkaflow/kafka"
)

// fakeDriver is a hand-rolled stand-in for a kafka.Driver, in the style of
// the teacher's mockSaramaConsumer / mockPartitionedConsumer
// (_examples/GiG-kafka-client/internal/consumer/mocks_test.go) rather than
// a generated or reflection-based mock.
type fakeDriver struct {
	mu       sync.Mutex
	commits  map[kafka.TopicPartition]kafka.OffsetAndMetadata
	commitCalls int
	failNextCommit bool
	committed map[kafka.TopicPartition]int64
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		commits:   make(map[kafka.TopicPartition]kafka.OffsetAndMetadata),
		committed: make(map[kafka.TopicPartition]int64),
	}
}

func (d *fakeDriver) Subscribe(ctx context.Context, topics []string, callback kafka.ConsumerCallback,
	onRevoked kafka.PartitionsRevokedCallback, onAssigned kafka.PartitionsAssignedCallback) error {
	return nil
}

func (d *fakeDriver) Commit(ctx context.Context, offsets map[kafka.TopicPartition]kafka.OffsetAndMetadata) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commitCalls++
	if d.failNextCommit {
		d.failNextCommit = false
		return &kafka.TransientDriverError{Op: "commit", Err: errFake}
	}
	for tp, om := range offsets {
		d.commits[tp] = om
		d.committed[tp] = om.Offset
	}
	return nil
}

func (d *fakeDriver) CommittedOffset(ctx context.Context, tp kafka.TopicPartition) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	off, ok := d.committed[tp]
	if !ok {
		return -1, nil
	}
	return off, nil
}

func (d *fakeDriver) TopicMeta(topic string) string { return "" }

func (d *fakeDriver) Send(ctx context.Context, topic string, key, value []byte) (<-chan error, error) {
	resultC := make(chan error, 1)
	resultC <- nil
	return resultC, nil
}

func (d *fakeDriver) Close() error { return nil }

func (d *fakeDriver) commitCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commitCalls
}

func (d *fakeDriver) commitFor(tp kafka.TopicPartition) (kafka.OffsetAndMetadata, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	om, ok := d.commits[tp]
	return om, ok
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

const errFake = fakeErr("fake transient failure")
