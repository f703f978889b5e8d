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
	"time"

	"go.uber.org/zap"

	"github.com/kafkaflow/kafkaflow/kafka"
)

// commitLoop is the scheduled commit loop (spec.md §4.4): it sleeps
// commit_interval before the first attempt, so a freshly started consumer
// never slams the broker, then repeats until Stop closes stopC. A commit
// error that is not a TransientDriverError is fatal: it is handed to the
// OnError hook, the loop ends and the consumer is stopped. Mirrors
// the teacher's partitionConsumer.commitLoop, generalized from a single
// partition's MarkPartitionOffset to the whole consumer's MaybeCommit.
func (c *Consumer) commitLoop() {
	defer c.wg.Done()
	interval := c.opts.CommitInterval
	if interval <= 0 {
		interval = kafka.DefaultCommitInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := c.MaybeCommit(context.Background()); err != nil {
				var transient *kafka.TransientDriverError
				if !errors.As(err, &transient) {
					c.logger.Error("fatal commit error, stopping consumer", zap.Error(err))
					c.setState(StateStopping)
					if c.onError != nil {
						c.onError(err)
					}
					go c.Stop(context.Background())
					return
				}
				c.logger.Warn("scheduled commit failed, retrying next tick", zap.Error(err))
			}
		case <-c.stopC:
			return
		}
	}
}

// recentlyAckedLoop drains (tp, offset) pairs queued by Ack and emits
// message_out sensor events, decoupled from the commit loop so metric
// emission never stalls commits or vice versa (spec.md §4.5).
func (c *Consumer) recentlyAckedLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.recentSig:
			c.drainRecent()
		case <-c.stopC:
			c.drainRecent()
			return
		}
	}
}

func (c *Consumer) drainRecent() {
	for {
		c.recentMu.Lock()
		ra, ok := c.recent.Pop()
		c.recentMu.Unlock()
		if !ok {
			return
		}
		c.sensor.OnMessageOut(c.ID, ra.tp, ra.offset)
	}
}
