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

package observability

import (
	"sync"

	"github.com/clookd/iosched/pkg/iosched/metrics"
)

// MetricsSink turns events into Prometheus series. Seek distance is tracked per device from consecutive dispatches.
type MetricsSink struct {
	mu           sync.Mutex
	lastDispatch map[string]uint64
}

// NewMetricsSink registers the scheduler metrics and returns a sink updating them.
func NewMetricsSink() *MetricsSink {
	metrics.Register()
	return &MetricsSink{lastDispatch: make(map[string]uint64)}
}

func (s *MetricsSink) Observe(e Event) {
	switch e.Kind {
	case EventAdmitted:
		metrics.RecordAdmitted(e.Policy, e.Direction.Letter())
	case EventDispatched:
		metrics.RecordDispatched(e.Policy, e.Direction.Letter())
		s.mu.Lock()
		if last, ok := s.lastDispatch[e.Device]; ok {
			metrics.RecordSeekDistance(e.Policy, e.Device, last, e.Position)
		}
		s.lastDispatch[e.Device] = e.End
		s.mu.Unlock()
	}
	metrics.RecordPending(e.Policy, e.Device, e.Pending)
}

// Forget drops the tracked head position of a device.
func (s *MetricsSink) Forget(policy, device string) {
	s.mu.Lock()
	delete(s.lastDispatch, device)
	s.mu.Unlock()
	metrics.ForgetDevice(policy, device)
}

var _ Sink = &MetricsSink{}
