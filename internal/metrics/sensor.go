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

package metrics

import (
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/kafkaflow/kafkaflow/kafka"
)

// TallySensor is the default kafka.Sensor: it counts message_in/message_out
// through a tally.Scope tagged per partition, the same tagging style the
// teacher's partitionConsumer uses for its own scope
// (scope.Tagged(map[string]string{"partition": ...})).
type TallySensor struct {
	scope  tally.Scope
	logger *zap.Logger
}

// NewTallySensor builds a Sensor reporting through scope; a nil scope
// makes every event a no-op. logger is kept on the sensor, but no event
// is logged through it.
func NewTallySensor(scope tally.Scope, logger *zap.Logger) *TallySensor {
	return &TallySensor{scope: scope, logger: logger}
}

func (s *TallySensor) OnMessageIn(consumerID int64, tp kafka.TopicPartition, offset int64, msg *kafka.Message) {
	if s.scope != nil {
		s.partitionScope(tp).Counter(MessageIn).Inc(1)
	}
}

func (s *TallySensor) OnMessageOut(consumerID int64, tp kafka.TopicPartition, offset int64) {
	if s.scope != nil {
		s.partitionScope(tp).Counter(MessageOut).Inc(1)
	}
}

func (s *TallySensor) partitionScope(tp kafka.TopicPartition) tally.Scope {
	return s.scope.Tagged(map[string]string{
		"topic":     tp.Topic,
		"partition": tp.String(),
	})
}
