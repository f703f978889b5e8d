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

// Package transport resolves a broker URL to a concrete kafka.Driver and
// owns the Consumer/Producer pair it creates, per spec.md component F and
// design notes §9 ("pluggable stores... resolve by URL scheme at bind
// time through a registry" — the same registry shape is used here for
// drivers).
package transport

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/kafkaflow/kafkaflow/internal/consumer"
	"github.com/kafkaflow/kafkaflow/internal/producer"
	"github.com/kafkaflow/kafkaflow/kafka"
)

var (
	registryMu sync.Mutex
	registry   = map[string]kafka.DriverFactory{}
)

// Register binds scheme (e.g. "kafka", "kafka+franz") to a DriverFactory.
// Driver packages call this from an init func, the same "resolve by
// scheme" shape internal/store uses for pluggable table stores.
func Register(scheme string, factory kafka.DriverFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[scheme] = factory
}

// Transport is parameterized by a broker URL and is the only place that
// knows which driver implementation backs that URL (spec.md §4.7).
type Transport struct {
	url    string
	driver kafka.Driver
	scope  tally.Scope
	logger *zap.Logger
}

// New resolves url's scheme against the driver registry and constructs
// the backing driver.
func New(rawURL string, scope tally.Scope, logger *zap.Logger) (*Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid broker url %q: %w", rawURL, err)
	}
	registryMu.Lock()
	factory, ok := registry[u.Scheme]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("transport: no driver registered for scheme %q", u.Scheme)
	}
	driver, err := factory(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: constructing driver for %q: %w", rawURL, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{url: rawURL, driver: driver, scope: scope, logger: logger}, nil
}

// CreateConsumer builds a Consumer bound to this transport's driver
// (spec.md §4.7 "create_consumer"). onError, if non-nil, receives every
// error OnTaskError surfaces from a panicking or failing callback
// (spec.md §7); it may be nil if the caller only cares about the
// best-effort commit side effect.
func (t *Transport) CreateConsumer(callback kafka.ConsumerCallback, opts *kafka.Options, sensor kafka.Sensor, onError func(error)) *consumer.Consumer {
	return consumer.New(consumer.Config{
		Driver:   t.driver,
		Callback: callback,
		OnError:  onError,
		Options:  opts,
		Sensor:   sensor,
		Scope:    t.scope,
		Logger:   t.logger,
	})
}

// CreateProducer builds a Producer bound to this transport's driver
// (spec.md §4.7 "create_producer").
func (t *Transport) CreateProducer() *producer.Producer {
	return producer.New(t.driver, t.scope, t.logger)
}

// Close releases the underlying driver.
func (t *Transport) Close() error {
	return t.driver.Close()
}
