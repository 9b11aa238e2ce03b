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
	"github.com/go-logr/logr"

	logutil "github.com/clookd/iosched/pkg/iosched/util/logging"
)

// LogSink writes each event as a structured log line at VERBOSE verbosity.
type LogSink struct {
	logger logr.Logger
}

// NewLogSink creates a LogSink writing through logger.
func NewLogSink(logger logr.Logger) *LogSink {
	return &LogSink{logger: logger.WithName("events")}
}

func (s *LogSink) Observe(e Event) {
	s.logger.V(logutil.VERBOSE).Info(e.String(),
		"session", e.Session,
		"device", e.Device,
		"requestID", e.RequestID,
		"end", e.End,
		"pending", e.Pending,
	)
}

var _ Sink = &LogSink{}
