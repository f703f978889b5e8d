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

package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadAppliesDefaults(t *testing.T) {
	v := viper.New()
	v.Set("app_id", "myapp")
	v.Set("broker_url", "kafka://localhost:9092")

	app, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if app.Options.CommitInterval.Seconds() != 3 {
		t.Fatalf("CommitInterval = %v, want 3s", app.Options.CommitInterval)
	}
	if !app.Options.Autoack {
		t.Fatalf("expected autoack to default to true")
	}
	if app.DefaultStore != "mem://" {
		t.Fatalf("DefaultStore = %q, want mem://", app.DefaultStore)
	}
}

func TestLoadRequiresAppID(t *testing.T) {
	v := viper.New()
	v.Set("broker_url", "kafka://localhost:9092")
	if _, err := Load(v); err == nil {
		t.Fatalf("expected an error when app_id is missing")
	}
}

func TestLoadRequiresBrokerURL(t *testing.T) {
	v := viper.New()
	v.Set("app_id", "myapp")
	if _, err := Load(v); err == nil {
		t.Fatalf("expected an error when broker_url is missing")
	}
}

func TestLoadParsesPerTopicAutoackOverrides(t *testing.T) {
	v := viper.New()
	v.Set("app_id", "myapp")
	v.Set("broker_url", "kafka://localhost:9092")
	v.Set("autoack_by_topic", map[string]interface{}{"orders": false, "payments": true})

	app, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if app.Options.AutoackByTopic["orders"] != false {
		t.Fatalf("expected orders override to be false")
	}
	if app.Options.AutoackByTopic["payments"] != true {
		t.Fatalf("expected payments override to be true")
	}
}

func TestLoadParsesCustomCommitInterval(t *testing.T) {
	v := viper.New()
	v.Set("app_id", "myapp")
	v.Set("broker_url", "kafka://localhost:9092")
	v.Set("commit_interval", "500ms")

	app, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if app.Options.CommitInterval.String() != "500ms" {
		t.Fatalf("CommitInterval = %v, want 500ms", app.Options.CommitInterval)
	}
}
