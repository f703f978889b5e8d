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

package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/kafkaflow/kafkaflow/kafka"
)

func init() {
	Register("kafka+franz", newFranzDriver)
}

// franzDriver is the alternate kafka+franz:// Driver, proving the
// transport registry genuinely dispatches on URL scheme rather than
// hardwiring sarama (design notes §9). Built on github.com/twmb/franz-go's
// pkg/kgo client and pkg/kadm admin client for group-offset commit/fetch.
type franzDriver struct {
	client  *kgo.Client
	admin   *kadm.Client
	groupID string
	logger  *zap.Logger

	mu        sync.Mutex
	cancelCtx context.CancelFunc
}

func newFranzDriver(rawURL string) (kafka.Driver, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	brokers := strings.Split(u.Host, ",")
	groupID := strings.TrimPrefix(u.Path, "/")
	if groupID == "" {
		groupID = "kafkaflow-default"
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("franz driver: new client: %w", err)
	}
	return &franzDriver{
		client:  client,
		admin:   kadm.NewClient(client),
		groupID: groupID,
		logger:  zap.NewNop(),
	}, nil
}

func (d *franzDriver) Subscribe(ctx context.Context, topics []string, callback kafka.ConsumerCallback,
	onRevoked kafka.PartitionsRevokedCallback, onAssigned kafka.PartitionsAssignedCallback) error {

	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancelCtx = cancel
	d.mu.Unlock()

	d.client.AddConsumeTopics(topics...)

	go func() {
		for {
			fetches := d.client.PollFetches(runCtx)
			if runCtx.Err() != nil {
				return
			}
			fetches.EachError(func(topic string, partition int32, err error) {
				d.logger.Warn("fetch error", zap.String("topic", topic), zap.Int32("partition", partition), zap.Error(err))
			})
			fetches.EachRecord(func(rec *kgo.Record) {
				callback(runCtx, &kafka.Message{
					Topic:     rec.Topic,
					Partition: rec.Partition,
					Offset:    rec.Offset,
					Key:       rec.Key,
					Value:     rec.Value,
					Timestamp: rec.Timestamp,
				})
			})
		}
	}()

	// franz-go drives rebalances internally through its own group
	// management; without OnPartitionsRevoked/OnPartitionsAssigned client
	// hooks wired at construction time, this adapter reports every
	// subscribed topic's partitions as assigned at offset -1 (unknown)
	// once on startup, matching the "earliest/latest per policy" fallback
	// from spec.md §4.3 rather than a live rebalance callback.
	assignments := make(map[kafka.TopicPartition]int64)
	for _, topic := range topics {
		for _, p := range d.client.GetConsumePartitions()[topic] {
			assignments[kafka.TopicPartition{Topic: topic, Partition: p}] = -1
		}
	}
	if len(assignments) > 0 {
		onAssigned(assignments)
	}
	return nil
}

func (d *franzDriver) Commit(ctx context.Context, offsets map[kafka.TopicPartition]kafka.OffsetAndMetadata) error {
	toCommit := make(kadm.Offsets, len(offsets))
	for tp, om := range offsets {
		toCommit.Add(kadm.Offset{
			Topic:     tp.Topic,
			Partition: tp.Partition,
			At:        om.Offset + 1,
			Metadata:  om.Metadata,
		})
	}
	if err := d.admin.CommitAllOffsets(ctx, d.groupID, toCommit); err != nil {
		return &kafka.TransientDriverError{Op: "commit", Err: err}
	}
	return nil
}

func (d *franzDriver) CommittedOffset(ctx context.Context, tp kafka.TopicPartition) (int64, error) {
	commits, err := d.admin.FetchOffsetsForTopics(ctx, d.groupID, tp.Topic)
	if err != nil {
		return -1, err
	}
	if err := commits.Error(); err != nil {
		return -1, err
	}
	offset, ok := commits.Lookup(tp.Topic, tp.Partition)
	if !ok || offset.At <= 0 {
		return -1, nil
	}
	// Commit stores the next offset to consume (Offset+1); report the last
	// committed offset itself.
	return offset.At - 1, nil
}

func (d *franzDriver) TopicMeta(topic string) string {
	return ""
}

func (d *franzDriver) Send(ctx context.Context, topic string, key, value []byte) (<-chan error, error) {
	resultC := make(chan error, 1)
	rec := &kgo.Record{Topic: topic, Key: key, Value: value}
	d.client.Produce(ctx, rec, func(_ *kgo.Record, err error) {
		resultC <- err
	})
	return resultC, nil
}

func (d *franzDriver) Close() error {
	d.mu.Lock()
	if d.cancelCtx != nil {
		d.cancelCtx()
	}
	d.mu.Unlock()
	d.client.Close()
	return nil
}
