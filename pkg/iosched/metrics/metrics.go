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

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	compbasemetrics "k8s.io/component-base/metrics"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	metricsutil "github.com/clookd/iosched/pkg/iosched/util/metrics"
)

const (
	// --- Subsystems ---
	SchedulerComponent = "iosched"
)

var (
	// --- Common Label Sets ---
	DirectionLabels = []string{"policy", "direction"}
	DeviceLabels    = []string{"policy", "device"}
)

var (
	admittedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: SchedulerComponent,
			Name:      "requests_admitted_total",
			Help:      metricsutil.HelpMsgWithStability("Counter of requests admitted to a pending queue, broken out by policy and direction.", compbasemetrics.ALPHA),
		},
		DirectionLabels,
	)

	dispatchedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: SchedulerComponent,
			Name:      "requests_dispatched_total",
			Help:      metricsutil.HelpMsgWithStability("Counter of requests dispatched to the host, broken out by policy and direction.", compbasemetrics.ALPHA),
		},
		DirectionLabels,
	)

	mergedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: SchedulerComponent,
			Name:      "requests_merged_total",
			Help:      metricsutil.HelpMsgWithStability("Counter of pending requests absorbed into a neighbor.", compbasemetrics.ALPHA),
		},
		DeviceLabels,
	)

	pendingGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: SchedulerComponent,
			Name:      "pending_requests",
			Help:      metricsutil.HelpMsgWithStability("Number of requests currently pending per device session.", compbasemetrics.ALPHA),
		},
		DeviceLabels,
	)

	seekDistance = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: SchedulerComponent,
			Name:      "dispatch_seek_distance",
			Help:      metricsutil.HelpMsgWithStability("Absolute distance in positions between consecutive dispatches of a device session.", compbasemetrics.ALPHA),
			Buckets:   prometheus.ExponentialBuckets(1, 4, 16),
		},
		DeviceLabels,
	)

	completionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: SchedulerComponent,
			Name:      "completion_duration_seconds",
			Help:      metricsutil.HelpMsgWithStability("Time from dispatch to completion of a request in seconds.", compbasemetrics.ALPHA),
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		DeviceLabels,
	)
)

var registerMetrics sync.Once

// Register all metrics.
func Register(customCollectors ...prometheus.Collector) {
	registerMetrics.Do(func() {
		metrics.Registry.MustRegister(admittedCounter)
		metrics.Registry.MustRegister(dispatchedCounter)
		metrics.Registry.MustRegister(mergedCounter)
		metrics.Registry.MustRegister(pendingGauge)
		metrics.Registry.MustRegister(seekDistance)
		metrics.Registry.MustRegister(completionLatency)
		for _, collector := range customCollectors {
			metrics.Registry.MustRegister(collector)
		}
	})
}

// Reset clears every series. Intended for tests.
func Reset() {
	admittedCounter.Reset()
	dispatchedCounter.Reset()
	mergedCounter.Reset()
	pendingGauge.Reset()
	seekDistance.Reset()
	completionLatency.Reset()
}

// RecordAdmitted counts one admission.
func RecordAdmitted(policy, direction string) {
	admittedCounter.WithLabelValues(policy, direction).Inc()
}

// RecordDispatched counts one dispatch.
func RecordDispatched(policy, direction string) {
	dispatchedCounter.WithLabelValues(policy, direction).Inc()
}

// RecordMerged counts one merge on a device.
func RecordMerged(policy, device string) {
	mergedCounter.WithLabelValues(policy, device).Inc()
}

// RecordPending sets the pending depth of a device session.
func RecordPending(policy, device string, pending int) {
	pendingGauge.WithLabelValues(policy, device).Set(float64(pending))
}

// RecordSeekDistance observes the distance travelled between two consecutive dispatches.
func RecordSeekDistance(policy, device string, from, to uint64) {
	var d uint64
	if to >= from {
		d = to - from
	} else {
		d = from - to
	}
	seekDistance.WithLabelValues(policy, device).Observe(float64(d))
}

// RecordCompletionLatency observes how long a request spent in flight.
func RecordCompletionLatency(policy, device string, d time.Duration) {
	completionLatency.WithLabelValues(policy, device).Observe(d.Seconds())
}

// ForgetDevice drops the per-device series of a detached device.
func ForgetDevice(policy, device string) {
	pendingGauge.DeleteLabelValues(policy, device)
	mergedCounter.DeleteLabelValues(policy, device)
	seekDistance.DeleteLabelValues(policy, device)
	completionLatency.DeleteLabelValues(policy, device)
}
