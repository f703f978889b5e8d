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

// Package config loads the option table the core recognizes (spec.md §6)
// through viper, the way the wider retrieval pack's stream-processing
// services load configuration (e.g. madcok-co-unicorn,
// turtacn-kubestack-ai).
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/kafkaflow/kafkaflow/kafka"
)

// App is the application-wide configuration this module's core reads:
// broker URL, app id, and the default Options every Consumer/Table falls
// back to unless it overrides a field itself.
type App struct {
	AppID         string
	BrokerURL     string
	DefaultStore  string
	Options       kafka.Options
}

// Load reads configuration from the given viper instance. Callers
// typically construct v with viper.New(), point it at a config file or
// environment prefix, then call Load. No CLI or env surface is part of
// the core itself (spec.md §6) — wiring v to flags/env is the caller's
// concern.
func Load(v *viper.Viper) (*App, error) {
	v.SetDefault("commit_interval", "3s")
	v.SetDefault("autoack", true)
	v.SetDefault("store", "mem://")

	appID := v.GetString("app_id")
	if appID == "" {
		return nil, fmt.Errorf("config: app_id is required")
	}
	brokerURL := v.GetString("broker_url")
	if brokerURL == "" {
		return nil, fmt.Errorf("config: broker_url is required")
	}

	interval, err := time.ParseDuration(v.GetString("commit_interval"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid commit_interval: %w", err)
	}

	autoackByTopic := make(map[string]bool)
	for topic, val := range v.GetStringMap("autoack_by_topic") {
		if b, ok := val.(bool); ok {
			autoackByTopic[topic] = b
		}
	}

	return &App{
		AppID:        appID,
		BrokerURL:    brokerURL,
		DefaultStore: v.GetString("store"),
		Options: kafka.Options{
			CommitInterval: interval,
			Autoack:        v.GetBool("autoack"),
			AutoackByTopic: autoackByTopic,
			Store:          v.GetString("store"),
			AppID:          appID,
		},
	}, nil
}
