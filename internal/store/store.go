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

// Package store provides the narrow keyed get/set/del/iterate contract a
// Table's backing map needs, resolved by URL scheme at bind time (design
// notes §9: "resolve store by URL scheme at bind time through a
// registry"). No transactional requirements are placed on implementations.
package store

import (
	"fmt"
	"net/url"
	"sync"
)

// Store is the contract Table relies on for its underlying map.
type Store interface {
	Get(key string) (value []byte, ok bool)
	Set(key string, value []byte)
	Del(key string)
	// Iterate calls fn for every key/value currently in the store. fn
	// returning false stops iteration early.
	Iterate(fn func(key string, value []byte) bool)
	Close() error
}

// Factory constructs a Store bound to a URL.
type Factory func(rawURL string) (Store, error)

var (
	mu       sync.Mutex
	registry = map[string]Factory{}
)

// Register binds scheme to factory. Called from each store
// implementation's init func.
func Register(scheme string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[scheme] = factory
}

// ByURL resolves rawURL's scheme against the registry and constructs the
// backing store. An empty rawURL resolves to the in-memory store.
func ByURL(rawURL string) (Store, error) {
	if rawURL == "" {
		return NewMemStore(), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("store: invalid store url %q: %w", rawURL, err)
	}
	mu.Lock()
	factory, ok := registry[u.Scheme]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("store: no store registered for scheme %q", u.Scheme)
	}
	return factory(rawURL)
}
