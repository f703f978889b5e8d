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
	"errors"
	"testing"

	"github.com/kafkaflow/kafkaflow/kafka"
)

func newTestConsumer(driver *fakeDriver, opts *kafka.Options) *Consumer {
	if opts == nil {
		opts = &kafka.Options{Autoack: true}
	}
	return New(Config{
		Driver:   driver,
		Callback: func(ctx context.Context, msg *kafka.Message) {},
		Options:  opts,
	})
}

func deliverAndRelease(c *Consumer, tp kafka.TopicPartition, offsets []int64) {
	for _, o := range offsets {
		msg := &kafka.Message{Topic: tp.Topic, Partition: tp.Partition, Offset: o}
		ref := newMessageRef(msg, tp, o, c.ID, c.onMessageReleased)
		ref.Release()
	}
}

// TestS1InOrderAcks: spec.md §8 scenario S1.
func TestS1InOrderAcks(t *testing.T) {
	driver := newFakeDriver()
	c := newTestConsumer(driver, &kafka.Options{Autoack: true})
	tp := kafka.TopicPartition{Topic: "t", Partition: 0}

	deliverAndRelease(c, tp, []int64{0, 1, 2, 3, 4})

	if _, err := c.MaybeCommit(context.Background()); err != nil {
		t.Fatalf("MaybeCommit: %v", err)
	}

	off, ok := c.CurrentOffset(tp)
	if !ok || off != 4 {
		t.Fatalf("CurrentOffset = (%d, %v), want (4, true)", off, ok)
	}
	if n := len(c.PendingAcks(tp)); n != 0 {
		t.Fatalf("expected empty ack set, got %d pending", n)
	}
}

// TestS2OutOfOrderAcks: spec.md §8 scenario S2.
func TestS2OutOfOrderAcks(t *testing.T) {
	driver := newFakeDriver()
	c := newTestConsumer(driver, &kafka.Options{Autoack: true})
	tp := kafka.TopicPartition{Topic: "t", Partition: 0}

	deliverAndRelease(c, tp, []int64{2, 0, 1, 4, 3})

	if _, err := c.MaybeCommit(context.Background()); err != nil {
		t.Fatalf("MaybeCommit: %v", err)
	}
	if off, ok := c.CurrentOffset(tp); !ok || off != 4 {
		t.Fatalf("CurrentOffset = (%d, %v), want (4, true)", off, ok)
	}
}

// TestS3GapStallsProgress: spec.md §8 scenario S3.
func TestS3GapStallsProgress(t *testing.T) {
	driver := newFakeDriver()
	c := newTestConsumer(driver, &kafka.Options{Autoack: true})
	tp := kafka.TopicPartition{Topic: "t", Partition: 0}

	deliverAndRelease(c, tp, []int64{0, 1, 2, 4, 5})
	if _, err := c.MaybeCommit(context.Background()); err != nil {
		t.Fatalf("MaybeCommit: %v", err)
	}
	if off, ok := c.CurrentOffset(tp); !ok || off != 2 {
		t.Fatalf("CurrentOffset = (%d, %v), want (2, true)", off, ok)
	}
	if got := c.PendingAcks(tp); len(got) != 2 {
		t.Fatalf("expected [4,5] pending, got %v", got)
	}

	deliverAndRelease(c, tp, []int64{3})
	if _, err := c.MaybeCommit(context.Background()); err != nil {
		t.Fatalf("MaybeCommit: %v", err)
	}
	if off, ok := c.CurrentOffset(tp); !ok || off != 5 {
		t.Fatalf("CurrentOffset = (%d, %v), want (5, true)", off, ok)
	}
	if n := len(c.PendingAcks(tp)); n != 0 {
		t.Fatalf("expected empty pending set, got %d", n)
	}
}

// TestS4AutoackDisabledPerTopic: spec.md §8 scenario S4.
func TestS4AutoackDisabledPerTopic(t *testing.T) {
	driver := newFakeDriver()
	opts := &kafka.Options{
		Autoack:        true,
		AutoackByTopic: map[string]bool{"a": false},
	}
	c := newTestConsumer(driver, opts)
	tpA := kafka.TopicPartition{Topic: "a", Partition: 0}
	tpB := kafka.TopicPartition{Topic: "b", Partition: 0}

	deliverAndRelease(c, tpA, []int64{0})
	deliverAndRelease(c, tpB, []int64{0})

	if _, err := c.MaybeCommit(context.Background()); err != nil {
		t.Fatalf("MaybeCommit: %v", err)
	}

	if _, ok := c.CurrentOffset(tpA); ok {
		t.Fatalf("topic a should remain uncommitted without an explicit ack")
	}
	if off, ok := c.CurrentOffset(tpB); !ok || off != 0 {
		t.Fatalf("topic b CurrentOffset = (%d, %v), want (0, true)", off, ok)
	}

	c.Ack(tpA, 0)
	if _, err := c.MaybeCommit(context.Background()); err != nil {
		t.Fatalf("MaybeCommit: %v", err)
	}
	if off, ok := c.CurrentOffset(tpA); !ok || off != 0 {
		t.Fatalf("topic a CurrentOffset after explicit ack = (%d, %v), want (0, true)", off, ok)
	}
}

// TestS6RebalanceClearsState: spec.md §8 scenario S6.
func TestS6RebalanceClearsState(t *testing.T) {
	driver := newFakeDriver()
	c := newTestConsumer(driver, &kafka.Options{Autoack: true})
	tp := kafka.TopicPartition{Topic: "t", Partition: 0}

	c.mu.Lock()
	c.ackSets[tp] = &ackSet{offsets: []int64{10, 11, 13}}
	c.currentOffset[tp] = 9
	c.everCommitted[tp] = true
	c.mu.Unlock()

	c.OnPartitionsRevoked([]kafka.TopicPartition{tp})

	if om, ok := driver.commitFor(tp); !ok || om.Offset != 11 {
		t.Fatalf("revoke should have committed offset 11, got %+v (ok=%v)", om, ok)
	}
	if _, ok := c.CurrentOffset(tp); ok {
		t.Fatalf("expected CurrentOffset cleared after revoke")
	}
	if n := len(c.PendingAcks(tp)); n != 0 {
		t.Fatalf("expected ack set cleared after revoke, got %d", n)
	}

	c.OnPartitionsAssigned(map[kafka.TopicPartition]int64{tp: 11})
	if off, ok := c.CurrentOffset(tp); !ok || off != 11 {
		t.Fatalf("CurrentOffset after assign = (%d, %v), want (11, true)", off, ok)
	}
	if n := len(c.PendingAcks(tp)); n != 0 {
		t.Fatalf("expected empty ack set after assign, got %d", n)
	}
}

// TestMaybeCommitSkipsNonAdvancingOffset covers the OffsetRegression rule
// (spec.md §7, §9): a commit attempt that does not advance CurrentOffset
// is silently skipped rather than raised.
func TestMaybeCommitSkipsNonAdvancingOffset(t *testing.T) {
	driver := newFakeDriver()
	c := newTestConsumer(driver, &kafka.Options{Autoack: true})
	tp := kafka.TopicPartition{Topic: "t", Partition: 0}

	deliverAndRelease(c, tp, []int64{0, 1})
	if _, err := c.MaybeCommit(context.Background()); err != nil {
		t.Fatalf("MaybeCommit: %v", err)
	}
	firstCalls := driver.commitCount()

	// No new acks: AckSet is empty, so no commit should even be
	// attempted on the next tick.
	did, err := c.MaybeCommit(context.Background())
	if err != nil {
		t.Fatalf("MaybeCommit: %v", err)
	}
	if did {
		t.Fatalf("expected no commit when AckSet is empty")
	}
	if driver.commitCount() != firstCalls {
		t.Fatalf("expected no additional driver.Commit call, got %d (was %d)", driver.commitCount(), firstCalls)
	}

	// A redelivered offset equal to CurrentOffset does not advance it: the
	// attempt is skipped without a driver.Commit call.
	c.Ack(tp, 1)
	did, err = c.MaybeCommit(context.Background())
	if err != nil {
		t.Fatalf("MaybeCommit: %v", err)
	}
	if did {
		t.Fatalf("expected no commit for offset 1 with CurrentOffset already 1")
	}
	if driver.commitCount() != firstCalls {
		t.Fatalf("expected no driver.Commit call for a non-advancing offset, got %d (was %d)", driver.commitCount(), firstCalls)
	}
}

// TestOnTaskErrorCommitsWhenAutoackEverOn: spec.md §4.3 "on_task_error".
func TestOnTaskErrorCommitsWhenAutoackEverOn(t *testing.T) {
	driver := newFakeDriver()
	c := newTestConsumer(driver, &kafka.Options{Autoack: true})
	tp := kafka.TopicPartition{Topic: "t", Partition: 0}

	deliverAndRelease(c, tp, []int64{0, 1, 2})

	_ = c.OnTaskError(context.Background(), &kafka.CallbackError{TP: tp, Offset: 2, Err: errFake})

	if off, ok := c.CurrentOffset(tp); !ok || off != 2 {
		t.Fatalf("CurrentOffset after on_task_error = (%d, %v), want (2, true)", off, ok)
	}
}

// TestTrackMessagePanicStillReleasesRef covers the panic path of
// TrackMessage (spec.md §4.2): a callback that panics must still release
// its messageRef, or the offset can never enter AckSet and
// CommittablePrefix can never advance past it again. It also checks that
// the CallbackError OnTaskError produces actually reaches the consumer's
// OnError hook rather than being dropped.
func TestTrackMessagePanicStillReleasesRef(t *testing.T) {
	driver := newFakeDriver()
	var surfaced error
	c := New(Config{
		Driver: driver,
		Callback: func(ctx context.Context, msg *kafka.Message) {
			panic("boom")
		},
		Options: &kafka.Options{Autoack: true},
		OnError: func(err error) { surfaced = err },
	})
	tp := kafka.TopicPartition{Topic: "t", Partition: 0}
	msg := &kafka.Message{Topic: tp.Topic, Partition: tp.Partition, Offset: 0}

	c.TrackMessage(context.Background(), msg, 0)

	if got := c.PendingAcks(tp); len(got) != 1 || got[0] != 0 {
		t.Fatalf("PendingAcks = %v, want [0] (panic must still release the ref and autoack it)", got)
	}

	if _, err := c.MaybeCommit(context.Background()); err != nil {
		t.Fatalf("MaybeCommit: %v", err)
	}
	if off, ok := c.CurrentOffset(tp); !ok || off != 0 {
		t.Fatalf("CurrentOffset = (%d, %v), want (0, true); offset 0 must become committable despite the panic", off, ok)
	}

	if surfaced == nil {
		t.Fatalf("expected OnError to receive the surfaced CallbackError, got nil")
	}
	var cbErr *kafka.CallbackError
	if !errors.As(surfaced, &cbErr) {
		t.Fatalf("surfaced error = %v, want a *kafka.CallbackError", surfaced)
	}
	if cbErr.TP != tp || cbErr.Offset != 0 {
		t.Fatalf("surfaced CallbackError = %+v, want TP=%v Offset=0", cbErr, tp)
	}
}
