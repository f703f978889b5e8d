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

// Package producer implements the two send primitives spec.md component E
// requires: fire-and-forget and await-result. No retry logic lives here —
// the driver owns transient-error retries (spec.md §4.6).
package producer

import (
	"context"
	"fmt"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/kafkaflow/kafkaflow/internal/metrics"
	"github.com/kafkaflow/kafkaflow/kafka"
)

// Producer wraps a kafka.Driver's Send call with the future-returning
// contract spec.md §4.6 describes, the way the teacher's DLQ producer
// wraps sarama's SyncProducer.SendMessage (mocks_test.go's
// mockDLQProducer) for the changelog mirror's use.
type Producer struct {
	driver kafka.Driver
	scope  tally.Scope
	logger *zap.Logger
}

// New builds a Producer over driver.
func New(driver kafka.Driver, scope tally.Scope, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{driver: driver, scope: scope, logger: logger}
}

// Send enqueues key/value for transmission to topic and returns a future
// that resolves once the broker acknowledges durability (spec.md §4.6
// "send"). Serialization is the caller's responsibility.
func (p *Producer) Send(ctx context.Context, topic string, key, value []byte) (<-chan error, error) {
	if p.scope != nil {
		p.scope.Counter(metrics.ProducerSend).Inc(1)
	}
	resultC, err := p.driver.Send(ctx, topic, key, value)
	if err != nil {
		if p.scope != nil {
			p.scope.Counter(metrics.ProducerSendFail).Inc(1)
		}
		return nil, fmt.Errorf("producer: send to %s failed: %w", topic, err)
	}
	return resultC, nil
}

// SendAndWait awaits the future inline (spec.md §4.6 "send_and_wait").
func (p *Producer) SendAndWait(ctx context.Context, topic string, key, value []byte) error {
	resultC, err := p.Send(ctx, topic, key, value)
	if err != nil {
		return err
	}
	select {
	case err := <-resultC:
		if err != nil {
			p.logger.Warn("send failed", zap.String("topic", topic), zap.Error(err))
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
