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

// Sensor is the hook the consumer emits delivery and release events
// through. spec.md scopes full metrics sinks out — this is the narrow
// hook contract the core requires; a concrete sink (tally + zap, in this
// module's case) is just one implementation.
type Sensor interface {
	// OnMessageIn fires synchronously before the user callback runs for
	// every tracked message (spec.md §4.3: "sensor emission happens-before
	// callback invocation").
	OnMessageIn(consumerID int64, tp TopicPartition, offset int64, msg *Message)

	// OnMessageOut fires once the message's last derived reference has
	// released, but only for topics with autoack enabled (spec.md §8,
	// property 3).
	OnMessageOut(consumerID int64, tp TopicPartition, offset int64)
}

// NoopSensor discards every event. Used when the caller doesn't wire a
// metrics sink.
type NoopSensor struct{}

func (NoopSensor) OnMessageIn(int64, TopicPartition, int64, *Message) {}
func (NoopSensor) OnMessageOut(int64, TopicPartition, int64)          {}
