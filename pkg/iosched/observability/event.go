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

// Package observability defines the diagnostic events a sweep scheduler emits and the sinks that consume them.
//
// The scheduler never logs directly; it calls the `Sink` it was constructed with. The log line format of `LogSink`,
// `[<policy>] add R 1024` and `[<policy>] dsp W 2048`, mirrors what elevator schedulers traditionally print.
package observability

import (
	"fmt"

	"github.com/clookd/iosched/pkg/iosched/types"
)

// EventKind distinguishes admissions from dispatches.
type EventKind string

const (
	// EventAdmitted is emitted after a request was inserted into the pending queue.
	EventAdmitted EventKind = "add"
	// EventDispatched is emitted after a request left the pending queue for the host's dispatch list.
	EventDispatched EventKind = "dsp"
)

// Event is one diagnostic record.
type Event struct {
	Kind      EventKind
	Policy    string
	Session   string
	Device    string
	RequestID types.RequestID
	Direction types.Direction
	// Position is the request's start position.
	Position uint64
	// End is the request's end position, the key the queue is ordered by.
	End uint64
	// Pending is the queue length after the operation.
	Pending int
}

// String renders the event in the classic elevator log format.
func (e Event) String() string {
	return fmt.Sprintf("[%s] %s %s %d", e.Policy, e.Kind, e.Direction.Letter(), e.Position)
}

// Sink consumes scheduler events. Implementations MUST NOT call back into the scheduler.
type Sink interface {
	Observe(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Observe(e Event) { f(e) }

type discardSink struct{}

func (discardSink) Observe(Event) {}

// Discard drops every event.
var Discard Sink = discardSink{}

// multiSink fans events out to several sinks in order.
type multiSink []Sink

func (m multiSink) Observe(e Event) {
	for _, s := range m {
		s.Observe(e)
	}
}

// Forget forwards to every member that keeps per-device state.
func (m multiSink) Forget(policy, device string) {
	for _, s := range m {
		if f, ok := s.(interface{ Forget(policy, device string) }); ok {
			f.Forget(policy, device)
		}
	}
}

// MultiSink returns a Sink that forwards every event to each non-nil sink in order.
func MultiSink(sinks ...Sink) Sink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return Discard
	case 1:
		return out[0]
	default:
		return out
	}
}
