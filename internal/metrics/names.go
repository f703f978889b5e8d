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

// Package metrics names the tally counters and gauges emitted by the
// consumer, commit loop and table. Mirrors the teacher's
// metrics.KafkaPartition* constant family, extended with the sensor
// events spec.md requires (message_in/message_out) and table changelog
// counters.
package metrics

const (
	// Consumer / commit loop.
	MessageIn          = "kafkaflow.message_in"
	MessageOut         = "kafkaflow.message_out"
	CommitAttempt      = "kafkaflow.commit_attempt"
	CommitSuccess      = "kafkaflow.commit_success"
	CommitFailure      = "kafkaflow.commit_failure"
	CommitOffsetGauge  = "kafkaflow.commit_offset"
	AckSetSizeGauge    = "kafkaflow.ackset_size"
	RecentlyAckedDrops = "kafkaflow.recently_acked_dropped"
	ConsumerStarted    = "kafkaflow.consumer_started"
	ConsumerStopped    = "kafkaflow.consumer_stopped"
	RebalanceRevoked   = "kafkaflow.rebalance_revoked"
	RebalanceAssigned  = "kafkaflow.rebalance_assigned"

	// Table / changelog.
	TableSet        = "kafkaflow.table_set"
	TableDel        = "kafkaflow.table_del"
	TableRecoverLag = "kafkaflow.table_recover_lag"

	// Producer.
	ProducerSend     = "kafkaflow.producer_send"
	ProducerSendFail = "kafkaflow.producer_send_fail"
)
