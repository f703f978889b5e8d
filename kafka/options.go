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

import "time"

// Options carries the configuration recognized by the core (spec §6).
// Transport hands the Options value to every Consumer it creates, which
// reads its commit interval and autoack flags from it. Table does not read
// Options: its store URL is passed to Table.Bind.
type Options struct {
	// CommitInterval is the time between commit attempts. Defaults to the
	// app-wide value when zero.
	CommitInterval time.Duration

	// Autoack is the default autoack flag applied to every topic unless
	// overridden in AutoackByTopic.
	Autoack bool

	// AutoackByTopic overrides Autoack per topic.
	AutoackByTopic map[string]bool

	// Store is the URL of the backing store used by Tables that don't
	// specify their own. Empty means "in-memory".
	Store string

	// AppID names this application; it is the first component of every
	// derived changelog topic name.
	AppID string
}

// AutoackFor resolves the effective autoack flag for topic, honoring a
// per-topic override.
func (o *Options) AutoackFor(topic string) bool {
	if o.AutoackByTopic != nil {
		if v, ok := o.AutoackByTopic[topic]; ok {
			return v
		}
	}
	return o.Autoack
}

// DefaultCommitInterval is used when neither the consumer nor the app
// configures one.
const DefaultCommitInterval = 3 * time.Second
