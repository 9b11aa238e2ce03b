/*
Copyright 2025 The iosched Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config holds the scheduler configuration and its environment overrides.
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-logr/logr"

	"github.com/clookd/iosched/pkg/iosched/clook"
	"github.com/clookd/iosched/pkg/iosched/framework/plugins/queue"
	"github.com/clookd/iosched/pkg/iosched/util/env"
)

const (
	EnvPolicy       = "IOSCHED_POLICY"
	EnvQueueType    = "IOSCHED_QUEUE_TYPE"
	EnvMaxDevices   = "IOSCHED_MAX_DEVICES"
	EnvDisableMerge = "IOSCHED_DISABLE_MERGE"
)

const (
	defaultPolicyName = clook.PolicyName
	defaultQueueType  = queue.SortedListQueueName
	defaultMaxDevices = 64
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config configures a scheduler host.
type Config struct {
	// PolicyName selects the policy attached to new devices.
	// Optional: Defaults to "clook".
	PolicyName string
	// QueueType selects the pending queue implementation. It must name a registered queue.
	// Optional: Defaults to "SortedList".
	QueueType string
	// MaxDevices caps the number of attached devices.
	// Optional: Defaults to 64. Negative values are rejected.
	MaxDevices int
	// DisableMerge turns off the neighbor merge heuristic.
	DisableMerge bool
}

// ValidateAndApplyDefaults checks the configuration for validity and populates any empty fields with defaults.
// It returns a new, validated `Config` object and does not mutate the receiver.
func (c *Config) ValidateAndApplyDefaults() (*Config, error) {
	cfg := c.deepCopy()
	if cfg == nil {
		cfg = &Config{}
	}

	if cfg.PolicyName == "" {
		cfg.PolicyName = defaultPolicyName
	}
	if cfg.QueueType == "" {
		cfg.QueueType = defaultQueueType
	}
	if !slices.Contains(queue.Names(), cfg.QueueType) {
		return nil, fmt.Errorf("%w: unknown queue type %q, registered: %v", ErrInvalidConfig, cfg.QueueType,
			queue.Names())
	}
	if cfg.MaxDevices < 0 {
		return nil, fmt.Errorf("%w: MaxDevices cannot be negative, got %d", ErrInvalidConfig, cfg.MaxDevices)
	}
	if cfg.MaxDevices == 0 {
		cfg.MaxDevices = defaultMaxDevices
	}
	return cfg, nil
}

// FromEnv builds an unvalidated Config from the IOSCHED_* environment variables.
func FromEnv(logger logr.Logger) *Config {
	return &Config{
		PolicyName:   env.GetEnvString(EnvPolicy, defaultPolicyName, logger),
		QueueType:    env.GetEnvChoice(EnvQueueType, defaultQueueType, queue.Names(), logger),
		MaxDevices:   env.GetEnvInt(EnvMaxDevices, defaultMaxDevices, logger),
		DisableMerge: env.GetEnvBool(EnvDisableMerge, false, logger),
	}
}

func (c *Config) deepCopy() *Config {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}
