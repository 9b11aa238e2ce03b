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

package clook

import (
	"github.com/clookd/iosched/pkg/iosched/framework"
	"github.com/clookd/iosched/pkg/iosched/framework/plugins/queue"
)

// PolicyName is the identifier the C-LOOK policy is registered under.
const PolicyName = "clook"

// Policy creates C-LOOK sessions. It implements `framework.Policy`.
type Policy struct {
	defaultQueue queue.RegisteredQueueName
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithDefaultQueue selects the queue implementation used when `framework.SessionOptions.QueueType` is empty.
func WithDefaultQueue(name string) PolicyOption {
	return func(p *Policy) {
		p.defaultQueue = queue.RegisteredQueueName(name)
	}
}

// NewPolicy returns a C-LOOK policy. Sessions use the SortedList queue unless configured otherwise.
func NewPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{defaultQueue: queue.SortedListQueueName}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns PolicyName.
func (p *Policy) Name() string { return PolicyName }

// NewSession creates an Active session with an empty pending queue.
// It returns ErrAllocationFailure, wrapping the cause, if the queue implementation cannot be constructed.
func (p *Policy) NewSession(opts framework.SessionOptions) (framework.Session, error) {
	queueType := p.defaultQueue
	if opts.QueueType != "" {
		queueType = queue.RegisteredQueueName(opts.QueueType)
	}
	s, err := newSession(PolicyName, queueType, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

var _ framework.Policy = &Policy{}
