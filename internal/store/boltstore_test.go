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
	"path/filepath"
	"testing"
)

func TestBoltStoreSetGetDel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.db")
	s, err := ByURL("bolt://" + path)
	if err != nil {
		t.Fatalf("ByURL: %v", err)
	}
	defer s.Close()

	if _, ok := s.Get("k"); ok {
		t.Fatalf("expected missing key")
	}
	s.Set("k", []byte("v"))
	v, ok := s.Get("k")
	if !ok || string(v) != "v" {
		t.Fatalf("got (%q, %v), want (v, true)", v, ok)
	}
	s.Del("k")
	if _, ok := s.Get("k"); ok {
		t.Fatalf("expected key removed after Del")
	}
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.db")
	s1, err := ByURL("bolt://" + path)
	if err != nil {
		t.Fatalf("ByURL: %v", err)
	}
	s1.Set("k", []byte("v1"))
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := ByURL("bolt://" + path)
	if err != nil {
		t.Fatalf("reopen ByURL: %v", err)
	}
	defer s2.Close()
	v, ok := s2.Get("k")
	if !ok || string(v) != "v1" {
		t.Fatalf("got (%q, %v) after reopen, want (v1, true)", v, ok)
	}
}
