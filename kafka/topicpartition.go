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

// Package kafka defines the types and driver contract shared across the
// consumer, producer, transport and table layers. Nothing in this package
// knows about a specific broker wire protocol; concrete drivers live under
// internal/transport.
package kafka

import "fmt"

// TopicPartition identifies a single ordered log within a named topic. It is
// a value type: comparable, hashable, and safe to use as a map key.
type TopicPartition struct {
	Topic     string
	Partition int32
}

// String renders the tp as "topic-partition", matching the form the teacher
// uses in log fields and scope tags.
func (tp TopicPartition) String() string {
	return fmt.Sprintf("%s-%d", tp.Topic, tp.Partition)
}

// Less gives TopicPartition a total order: by topic, then by partition.
func (tp TopicPartition) Less(other TopicPartition) bool {
	if tp.Topic != other.Topic {
		return tp.Topic < other.Topic
	}
	return tp.Partition < other.Partition
}

// registry interns TopicPartition values per broker session so repeated
// construction from the same (topic, partition) pair is cheap and equal
// values are identical under ==, which they already are for this value
// type — the registry exists only to avoid the caller accumulating
// duplicate TopicPartition-keyed bookkeeping across components.
type registry struct {
	tps map[TopicPartition]TopicPartition
}

// NewRegistry returns an empty TopicPartition interning table.
func NewRegistry() *registry {
	return &registry{tps: make(map[TopicPartition]TopicPartition)}
}

// Intern returns the canonical TopicPartition for (topic, partition),
// registering it on first use.
func (r *registry) Intern(topic string, partition int32) TopicPartition {
	tp := TopicPartition{Topic: topic, Partition: partition}
	if existing, ok := r.tps[tp]; ok {
		return existing
	}
	r.tps[tp] = tp
	return tp
}
