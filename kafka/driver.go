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

import "context"

// OffsetAndMetadata is the commit payload for a single topic-partition: the
// offset to commit plus an opaque per-topic metadata value forwarded
// verbatim by the core (spec §6 "Commit payload").
type OffsetAndMetadata struct {
	Offset   int64
	Metadata string
}

// PartitionsRevokedCallback is invoked by the driver before it hands a set
// of partitions to another group member. The consumer must flush commits
// for tps (best-effort) before returning.
type PartitionsRevokedCallback func(tps []TopicPartition)

// PartitionsAssignedCallback is invoked by the driver once new partitions
// have been assigned to this consumer, reporting the committed offset the
// driver found at the broker for each (or the configured reset policy
// offset if none existed).
type PartitionsAssignedCallback func(assignments map[TopicPartition]int64)

// ConsumerCallback is the application stream processor invoked for every
// delivered message.
type ConsumerCallback func(ctx context.Context, msg *Message)

// Driver is the narrow contract the core requires from a concrete broker
// client. Out of scope for this module: the wire protocol, fetch/poll loop
// internals and the rebalance protocol itself — a Driver consumes and
// reports on those, it does not reimplement them.
type Driver interface {
	// Subscribe registers interest in topics and begins delivering fetched
	// messages to callback. Rebalance notifications flow through onRevoked
	// and onAssigned.
	Subscribe(ctx context.Context, topics []string, callback ConsumerCallback,
		onRevoked PartitionsRevokedCallback, onAssigned PartitionsAssignedCallback) error

	// Commit durably records, per tp, the offset and metadata to commit.
	// A TransientDriverError is retryable at the next commit tick; any
	// other error is treated as fatal.
	Commit(ctx context.Context, offsets map[TopicPartition]OffsetAndMetadata) error

	// CommittedOffset returns the last committed offset the broker has on
	// file for tp, or -1 if none exists yet.
	CommittedOffset(ctx context.Context, tp TopicPartition) (int64, error)

	// TopicMeta returns the opaque per-topic metadata value forwarded
	// verbatim in commit calls for that topic.
	TopicMeta(topic string) string

	// Send enqueues a fire-and-forget produce request; err resolves the
	// returned channel once the broker acknowledges durability (or the
	// send fails).
	Send(ctx context.Context, topic string, key, value []byte) (<-chan error, error)

	// Close releases driver resources. No outstanding call may be left
	// dangling after Close returns.
	Close() error
}

// DriverFactory constructs a Driver bound to a broker URL. Transport
// resolves the right factory by URL scheme.
type DriverFactory func(url string) (Driver, error)
