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

package store

import (
	"fmt"
	"net/url"

	bolt "go.etcd.io/bbolt"
)

func init() {
	Register("bolt", newBoltStore)
}

var tableBucket = []byte("table")

// BoltStore is the persistent, URL-dispatched Table backing store
// (`bolt://path/to/file`), grounded on the wider retrieval pack's use of
// go.etcd.io/bbolt for embedded keyed storage
// (e.g. cuemby-warren, jaegertracing-jaeger, tkmct-go-ethereum).
type BoltStore struct {
	db *bolt.DB
}

func newBoltStore(rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("boltstore: invalid url %q: %w", rawURL, err)
	}
	// bolt://path preserves the leading slash for absolute paths (u.Path
	// already carries it); bolt:relative/path comes through as u.Opaque.
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %q: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tableBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(key string) (value []byte, ok bool) {
	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(tableBucket).Get([]byte(key))
		if v != nil {
			value = append([]byte(nil), v...)
			ok = true
		}
		return nil
	})
	return value, ok
}

func (s *BoltStore) Set(key string, value []byte) {
	_ = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tableBucket).Put([]byte(key), value)
	})
}

func (s *BoltStore) Del(key string) {
	_ = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tableBucket).Delete([]byte(key))
	})
}

func (s *BoltStore) Iterate(fn func(key string, value []byte) bool) {
	_ = s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(tableBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !fn(string(k), v) {
				break
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
