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

// Package consumer implements the ack-set accounting, commit advancement
// and rebalance reaction that sit at the center of this module (spec.md
// components C and D). Its style — a lifecycle-guarded component with a
// tally scope and a zap logger threaded through the constructor — is
// carried over from the teacher's partitionConsumer
// (_examples/GiG-kafka-client/internal/consumer/partition.go), generalized
// from a single partition to the whole multi-partition consumer spec.md
// describes.
package consumer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/kafkaflow/kafkaflow/internal/list"
	"github.com/kafkaflow/kafkaflow/internal/metrics"
	"github.com/kafkaflow/kafkaflow/internal/util"
	"github.com/kafkaflow/kafkaflow/kafka"
)

var consumerIDs int64

// nextConsumerID hands out the per-instance id faust's Consumer derives
// from an itertools.count() counter (original_source/faust/transport/base.py).
func nextConsumerID() int64 {
	return atomic.AddInt64(&consumerIDs, 1)
}

// recentAck is a (tp, offset) pair queued for the drain loop to turn into
// a message_out sensor event (spec.md §4.5).
type recentAck struct {
	tp     kafka.TopicPartition
	offset int64
}

// Consumer orchestrates delivery, ack accounting, periodic commit,
// rebalance reaction and sensor emission for one broker session (spec.md
// §4.3, component D).
type Consumer struct {
	ID int64

	driver   kafka.Driver
	callback kafka.ConsumerCallback
	onError  func(error)
	sensor   kafka.Sensor
	opts     *kafka.Options
	logger   *zap.Logger
	scope    tally.Scope

	lifecycle *util.RunLifecycle

	stateMu sync.Mutex
	state   State

	commitMu sync.Mutex // at most one commit in flight (spec.md §8, property 6)

	// mu guards ackSets, currentOffset and dirtyMessages. All three are
	// consumer-owned mutations that, per spec.md §5, happen on the
	// consumer's task executor; in this Go port that executor is
	// approximated by this mutex rather than a single goroutine, since
	// release callbacks legitimately arrive from arbitrary goroutines.
	mu             sync.Mutex
	ackSets        map[kafka.TopicPartition]*ackSet
	currentOffset  map[kafka.TopicPartition]int64
	everCommitted  map[kafka.TopicPartition]bool
	dirtyMessages  []*messageRef
	autoackEverOn  bool

	recentMu sync.Mutex
	recent   *list.BoundedQueue[recentAck]
	recentSig chan struct{} // non-blocking wakeup for recentlyAckedLoop

	stopC chan struct{}
	wg    sync.WaitGroup
}

// Config bundles the constructor arguments for New, mirroring the
// teacher's newPartitionConsumer parameter list (driver, options, scope,
// logger) but scoped to the whole consumer rather than one partition.
type Config struct {
	Driver   kafka.Driver
	Callback kafka.ConsumerCallback
	Options  *kafka.Options
	Sensor   kafka.Sensor
	Scope    tally.Scope
	Logger   *zap.Logger

	// OnError receives every error OnTaskError surfaces (spec.md §7:
	// a CallbackError is routed to on_task_error, which best-effort
	// commits, "then surfaces"). A nil OnError means the error is
	// logged and otherwise dropped.
	OnError func(error)

	// RecentlyAckedCapacity bounds the drain queue; <= 0 means unbounded,
	// the documented default from spec.md §9.
	RecentlyAckedCapacity int
}

// New constructs a Consumer in the CREATED state. Start must be called
// before it delivers anything.
func New(cfg Config) *Consumer {
	if cfg.Sensor == nil {
		cfg.Sensor = kafka.NoopSensor{}
	}
	if cfg.Options == nil {
		cfg.Options = &kafka.Options{CommitInterval: kafka.DefaultCommitInterval}
	}
	id := nextConsumerID()
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Consumer{
		ID:            id,
		driver:        cfg.Driver,
		callback:      cfg.Callback,
		onError:       cfg.OnError,
		sensor:        cfg.Sensor,
		opts:          cfg.Options,
		logger:        logger.With(zap.Int64("consumer_id", id)),
		scope:         cfg.Scope,
		ackSets:       make(map[kafka.TopicPartition]*ackSet),
		currentOffset: make(map[kafka.TopicPartition]int64),
		everCommitted: make(map[kafka.TopicPartition]bool),
		recent:        list.NewBoundedQueue[recentAck](cfg.RecentlyAckedCapacity),
		recentSig:     make(chan struct{}, 1),
		stopC:         make(chan struct{}),
	}
	c.lifecycle = util.NewRunLifecycle(fmt.Sprintf("consumer-%d", id), c.logger)
	c.setState(StateCreated)
	return c
}

func (c *Consumer) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// State returns the consumer's current lifecycle state.
func (c *Consumer) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// Start subscribes to topics and launches the commit and drain loops
// (spec.md §4.3 "start").
func (c *Consumer) Start(ctx context.Context, topics []string) error {
	var startErr error
	c.lifecycle.Start(func() error {
		c.setState(StateStarting)
		err := c.driver.Subscribe(ctx, topics, c.trackAndDeliver, c.OnPartitionsRevoked, c.OnPartitionsAssigned)
		if err != nil {
			startErr = err
			c.setState(StateStopping)
			c.setState(StateStopped)
			return err
		}
		c.setState(StateRunning)
		c.wg.Add(2)
		go c.commitLoop()
		go c.recentlyAckedLoop()
		if c.scope != nil {
			c.scope.Counter(metrics.ConsumerStarted).Inc(1)
		}
		return nil
	})
	return startErr
}

// Stop cancels the commit and drain loops, attempts one best-effort final
// commit, and releases dirty message bookkeeping (spec.md §5
// "Cancellation").
func (c *Consumer) Stop(ctx context.Context) {
	c.lifecycle.Stop(func() {
		c.setState(StateStopping)
		close(c.stopC)
		c.wg.Wait()
		_, _ = c.MaybeCommit(ctx)
		c.mu.Lock()
		c.dirtyMessages = nil
		c.mu.Unlock()
		if err := c.driver.Close(); err != nil {
			c.logger.Error("driver close failed", zap.Error(err))
		}
		c.setState(StateStopped)
		if c.scope != nil {
			c.scope.Counter(metrics.ConsumerStopped).Inc(1)
		}
	})
}

// trackAndDeliver is the driver-facing message callback: it wraps the
// fetched message, records it, then hands it to TrackMessage.
func (c *Consumer) trackAndDeliver(ctx context.Context, msg *kafka.Message) {
	c.TrackMessage(ctx, msg, msg.Offset)
}

// TrackMessage is invoked by the driver on every fetched message (spec.md
// §4.3 "track_message"). It creates a messageRef, appends it to the dirty
// list, emits message_in (happens-before the callback, per spec.md §5),
// then invokes the user callback.
func (c *Consumer) TrackMessage(ctx context.Context, msg *kafka.Message, offset int64) {
	tp := msg.TP()
	ref := newMessageRef(msg, tp, offset, c.ID, c.onMessageReleased)

	c.mu.Lock()
	c.dirtyMessages = append(c.dirtyMessages, ref)
	c.mu.Unlock()

	c.sensor.OnMessageIn(c.ID, tp, offset, msg)

	// The implicit reference held since construction must be dropped
	// whether the callback returns normally or panics, or a panicking
	// callback leaks its offset out of AckSet forever (spec.md §4.2).
	defer ref.Release()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in stream callback: %v", r)
			c.logger.Error("callback panicked", zap.Error(err))
			surfaced := c.OnTaskError(ctx, &kafka.CallbackError{TP: tp, Offset: offset, Err: err})
			if c.onError != nil {
				c.onError(surfaced)
			}
		}
	}()
	c.callback(ctx, msg)
}

// onMessageReleased is messageRef's release callback (spec.md §4.1). It
// may run on any goroutine; Ack itself never suspends, matching spec.md
// §5 "Ack and AckSet mutation must not suspend."
func (c *Consumer) onMessageReleased(ref *messageRef) {
	if c.opts.AutoackFor(ref.tp.Topic) {
		c.Ack(ref.tp, ref.offset)
	}
}

// Ack adds offset to AckSet(tp) and, for topics with autoack enabled,
// enqueues (tp, offset) for the recently-acked drain loop that emits
// message_out (spec.md §4.3 "ack"; kafka.Sensor.OnMessageOut fires "only
// for topics with autoack enabled", spec.md §8 property 3). Never
// suspends.
func (c *Consumer) Ack(tp kafka.TopicPartition, offset int64) {
	c.mu.Lock()
	set, ok := c.ackSets[tp]
	if !ok {
		set = &ackSet{}
		c.ackSets[tp] = set
	}
	set.Ack(offset)
	autoack := c.opts.AutoackFor(tp.Topic)
	c.autoackEverOn = c.autoackEverOn || autoack
	c.mu.Unlock()

	if !autoack {
		return
	}

	c.recentMu.Lock()
	dropped, _ := c.recent.Push(recentAck{tp: tp, offset: offset}, true)
	c.recentMu.Unlock()
	if dropped && c.scope != nil {
		c.scope.Counter(metrics.RecentlyAckedDrops).Inc(1)
	}

	select {
	case c.recentSig <- struct{}{}:
	default:
		// a wakeup is already pending; the drain loop will catch this
		// entry when it processes the queue.
	}
}

// shouldCommit implements the corrected rule spec.md §9 specifies in
// place of the source's `bool(offset)` test, which treated offset 0 as
// falsy and so never committable: commit if newOffset advances
// CurrentOffset, or unconditionally if tp has never been committed
// (there is nothing to advance past yet, and offset 0 is a legitimate
// first commit).
func (c *Consumer) shouldCommit(tp kafka.TopicPartition, newOffset int64) bool {
	current, known := c.currentOffset[tp]
	if !known || !c.everCommitted[tp] {
		return true
	}
	return newOffset > current
}

// MaybeCommit computes the new commit offset for every tp with a
// non-empty AckSet and, where shouldCommit allows it, performs the driver
// commit and advances CurrentOffset (spec.md §4.3 "maybe_commit"). Only
// one commit is ever in flight, guarded by commitMu. A committed tp whose
// lowest pending offset leaves a gap after CurrentOffset is held back
// until the gap fills; if the driver commit fails, the drained offsets
// are put back into their AckSet for the next attempt.
func (c *Consumer) MaybeCommit(ctx context.Context) (bool, error) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	didCommit := false
	commits := make(map[kafka.TopicPartition]kafka.OffsetAndMetadata)
	runStart := make(map[kafka.TopicPartition]int64) // first offset of each drained run

	c.mu.Lock()
	for tp, set := range c.ackSets {
		if set.Len() == 0 {
			continue
		}
		first := set.offsets[0]
		if c.everCommitted[tp] && first > c.currentOffset[tp]+1 {
			continue // gap after the committed offset: wait for it to fill
		}
		offset, ok := set.CommittablePrefix()
		if !ok {
			continue
		}
		if !c.shouldCommit(tp, offset) {
			// OffsetRegression: already committed or not yet advancing;
			// silently skipped per spec.md §7.
			continue
		}
		commits[tp] = kafka.OffsetAndMetadata{
			Offset:   offset,
			Metadata: c.driver.TopicMeta(tp.Topic),
		}
		runStart[tp] = first
	}
	c.mu.Unlock()

	if len(commits) == 0 {
		return false, nil
	}

	if c.scope != nil {
		c.scope.Counter(metrics.CommitAttempt).Inc(1)
	}
	if err := c.driver.Commit(ctx, commits); err != nil {
		if c.scope != nil {
			c.scope.Counter(metrics.CommitFailure).Inc(1)
		}
		c.mu.Lock()
		for tp, om := range commits {
			if set, ok := c.ackSets[tp]; ok {
				for o := runStart[tp]; o <= om.Offset; o++ {
					set.Ack(o)
				}
			}
		}
		c.mu.Unlock()
		c.logger.Warn("commit failed, will retry next tick", zap.Error(err))
		return false, err
	}

	c.mu.Lock()
	for tp, om := range commits {
		c.currentOffset[tp] = om.Offset
		c.everCommitted[tp] = true
		didCommit = true
	}
	c.mu.Unlock()

	if c.scope != nil {
		c.scope.Counter(metrics.CommitSuccess).Inc(1)
	}
	return didCommit, nil
}

// OnTaskError routes a user stream-processor error (spec.md §4.3
// "on_task_error"): if autoack was ever in effect, it attempts one
// best-effort commit before surfacing the error to the caller.
func (c *Consumer) OnTaskError(ctx context.Context, err error) error {
	c.mu.Lock()
	autoackEverOn := c.autoackEverOn
	c.mu.Unlock()
	if autoackEverOn {
		if _, commitErr := c.MaybeCommit(ctx); commitErr != nil {
			c.logger.Warn("best-effort commit on task error failed", zap.Error(commitErr))
		}
	}
	return err
}

// OnPartitionsRevoked flushes commits for tps (best-effort) then clears
// their AckSet and CurrentOffset (spec.md §4.3 rebalance contract).
func (c *Consumer) OnPartitionsRevoked(tps []kafka.TopicPartition) {
	c.setState(StateRebalancing)
	if _, err := c.MaybeCommit(context.Background()); err != nil {
		c.logger.Warn("best-effort commit on revoke failed", zap.Error(err))
	}
	c.mu.Lock()
	for _, tp := range tps {
		delete(c.ackSets, tp)
		delete(c.currentOffset, tp)
		delete(c.everCommitted, tp)
	}
	c.mu.Unlock()
	if c.scope != nil {
		c.scope.Counter(metrics.RebalanceRevoked).Inc(int64(len(tps)))
	}
}

// OnPartitionsAssigned initializes CurrentOffset(tp) from the driver's
// reported committed offset, not from consumer memory (spec.md §4.3).
// Both drivers report -1, not 0, as the "no prior commit" sentinel
// (franz_driver.go's CommittedOffset, sarama's OffsetManager convention),
// so offset 0 is a legitimate prior commit and must still count as
// everCommitted.
func (c *Consumer) OnPartitionsAssigned(assignments map[kafka.TopicPartition]int64) {
	c.mu.Lock()
	for tp, offset := range assignments {
		c.currentOffset[tp] = offset
		c.everCommitted[tp] = offset >= 0
		if _, ok := c.ackSets[tp]; !ok {
			c.ackSets[tp] = &ackSet{}
		}
	}
	c.mu.Unlock()
	c.setState(StateRunning)
	if c.scope != nil {
		c.scope.Counter(metrics.RebalanceAssigned).Inc(int64(len(assignments)))
	}
}

// CurrentOffset returns the last committed offset recorded for tp.
func (c *Consumer) CurrentOffset(tp kafka.TopicPartition) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	off, ok := c.currentOffset[tp]
	return off, ok
}

// PendingAcks returns a copy of the pending (uncommitted) offsets for tp,
// for tests and diagnostics.
func (c *Consumer) PendingAcks(tp kafka.TopicPartition) []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.ackSets[tp]
	if !ok {
		return nil
	}
	out := make([]int64, len(set.offsets))
	copy(out, set.offsets)
	return out
}
