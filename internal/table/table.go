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

// Package table implements the changelog-mirrored keyed map of spec.md
// component G. Grounded on original_source/faust/tables.py: a Table here
// is composed of a keyed store plus a stream endpoint rather than
// subclassing both, per design notes §9 ("model Table as a struct
// embedding... a stream endpoint plus a keyed store, not as a subclass of
// both").
package table

import (
	"context"
	"fmt"
	"sync"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/kafkaflow/kafkaflow/internal/metrics"
	"github.com/kafkaflow/kafkaflow/internal/producer"
	"github.com/kafkaflow/kafkaflow/internal/store"
	"github.com/kafkaflow/kafkaflow/kafka"
)

// ChangelogRecord is a single entry on a table's changelog topic. A nil
// Value is a tombstone (spec.md §3, §6).
type ChangelogRecord struct {
	Key   string
	Value []byte // nil means delete
}

// ChangelogTopic derives the deterministic changelog topic name for a
// table, `{app_id}-{table_name}-changelog` (spec.md §3, §6). Both the
// producer side here and any recovery consumer must use this exact
// algorithm.
func ChangelogTopic(appID, tableName string) string {
	return fmt.Sprintf("%s-%s-changelog", appID, tableName)
}

// Config bundles the declarative configuration a Table is given before
// bind (spec.md §4.8 "Binding": "Before the app starts, Tables are
// declarative; they have no data").
type Config struct {
	AppID          string
	Name           string
	StoreURL       string
	DefaultFactory func() []byte // nil means missing-key is an error
	Producer       *producer.Producer
	Forward        chan<- ForwardedValue // optional stream-coupling output
	Scope          tally.Scope
	Logger         *zap.Logger
}

// ForwardedValue is what Table.OnDone sends downstream after writing the
// table entry: the original value, forwarded unchanged (spec.md §4.8
// "Stream coupling"; design notes §9 resolves the source's
// `super().on_done(value)` gap as "forward the original value to
// downstream listeners after the table write").
type ForwardedValue struct {
	RequestKey string
	Value      []byte
}

// Table is a keyed mapping whose every mutation is mirrored onto a
// changelog topic before the mutating call returns (spec.md §4.8).
type Table struct {
	appID          string
	name           string
	changelogTopic string
	defaultFactory func() []byte
	producer       *producer.Producer
	forward        chan<- ForwardedValue
	scope          tally.Scope
	logger         *zap.Logger

	mu       sync.RWMutex
	backing  store.Store
	recovered bool
}

// New constructs a Table. The Table has no backing store until Bind is
// called — it is declarative until then.
func New(cfg Config) *Table {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{
		appID:          cfg.AppID,
		name:           cfg.Name,
		changelogTopic: ChangelogTopic(cfg.AppID, cfg.Name),
		defaultFactory: cfg.DefaultFactory,
		producer:       cfg.Producer,
		forward:        cfg.Forward,
		scope:          cfg.Scope,
		logger:         logger,
	}
}

// Bind resolves the backing store from storeURL (class-supplied in-memory
// store or a URL-dispatched persistent store) and is called once at app
// start (spec.md §4.8 "Binding").
func (t *Table) Bind(storeURL string) error {
	backing, err := store.ByURL(storeURL)
	if err != nil {
		return fmt.Errorf("table %s: bind: %w", t.name, err)
	}
	t.mu.Lock()
	t.backing = backing
	t.mu.Unlock()
	return nil
}

// ChangelogTopicName returns this table's derived changelog topic.
func (t *Table) ChangelogTopicName() string {
	return t.changelogTopic
}

// Recover rehydrates the backing store by applying every record from recs
// in order (earliest to end of log), last-writer-wins, tombstones delete
// (spec.md §4.8 "Recovery model"; spec.md §8 property 4). It must run to
// completion before the table serves reads or accepts Set/Del from the
// application. Recovery applies directly to the backing store without
// re-publishing to the changelog.
func (t *Table) Recover(ctx context.Context, recs <-chan ChangelogRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.backing == nil {
		return fmt.Errorf("table %s: recover called before bind", t.name)
	}
	for rec := range recs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if rec.Value == nil {
			t.backing.Del(rec.Key)
		} else {
			t.backing.Set(rec.Key, rec.Value)
		}
	}
	t.recovered = true
	return nil
}

// Get returns the value at key. If key is absent and a default factory
// was configured, a fresh default is inserted (triggering the same
// changelog publish as Set) and returned; otherwise kafka.ErrMissingKey is
// returned (spec.md §4.8).
func (t *Table) Get(ctx context.Context, key string) ([]byte, error) {
	t.mu.RLock()
	v, ok := t.backing.Get(key)
	t.mu.RUnlock()
	if ok {
		return v, nil
	}
	if t.defaultFactory == nil {
		return nil, kafka.ErrMissingKey
	}
	v = t.defaultFactory()
	if err := t.Set(ctx, key, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Set updates the underlying map, then schedules a changelog publish
// (fire-and-forget, ordered per key by virtue of a single producer
// instance per table). Returns once the send is accepted into the
// producer queue, not once the broker acknowledges it (spec.md §4.8).
func (t *Table) Set(ctx context.Context, key string, value []byte) error {
	t.mu.Lock()
	t.backing.Set(key, value)
	t.mu.Unlock()

	if t.scope != nil {
		t.scope.Counter(metrics.TableSet).Inc(1)
	}
	return t.publish(ctx, key, value)
}

// Del removes key and schedules a tombstone publish (spec.md §4.8).
func (t *Table) Del(ctx context.Context, key string) error {
	t.mu.Lock()
	t.backing.Del(key)
	t.mu.Unlock()

	if t.scope != nil {
		t.scope.Counter(metrics.TableDel).Inc(1)
	}
	return t.publish(ctx, key, nil)
}

// publish schedules the changelog record. Producer failures are logged
// but never roll back the table mutation — the table favors eventual
// consistency over rollback (spec.md §7): the next successful write, or a
// full recovery replay, reconciles the changelog.
func (t *Table) publish(ctx context.Context, key string, value []byte) error {
	if t.producer == nil {
		return nil
	}
	resultC, err := t.producer.Send(ctx, t.changelogTopic, []byte(key), value)
	if err != nil {
		t.logger.Warn("changelog publish not accepted", zap.String("table", t.name), zap.String("key", key), zap.Error(err))
		return err
	}
	go func() {
		if err := <-resultC; err != nil {
			t.logger.Warn("changelog publish failed after acceptance",
				zap.String("table", t.name), zap.String("key", key), zap.Error(err))
		}
	}()
	return nil
}

// OnDone implements the table-as-stream coupling: it replaces the table
// entry keyed by requestKey with value, then forwards the original value
// downstream (spec.md §4.8 "Stream coupling").
func (t *Table) OnDone(ctx context.Context, requestKey string, value []byte) error {
	if err := t.Set(ctx, requestKey, value); err != nil {
		return err
	}
	if t.forward != nil {
		select {
		case t.forward <- ForwardedValue{RequestKey: requestKey, Value: value}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Iterate calls fn for every key/value currently in the table.
func (t *Table) Iterate(fn func(key string, value []byte) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.backing.Iterate(fn)
}

// Close releases the backing store.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.backing == nil {
		return nil
	}
	return t.backing.Close()
}
