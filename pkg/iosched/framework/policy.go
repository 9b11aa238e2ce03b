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

package framework

import (
	"github.com/go-logr/logr"

	"github.com/clookd/iosched/pkg/iosched/observability"
	"github.com/clookd/iosched/pkg/iosched/types"
)

// Dispatcher is the host's sorted dispatch acceptance. A scheduler hands every request it dispatches to the
// Dispatcher, which places it into the host's own in-flight order. The scheduler never re-sorts dispatched requests.
type Dispatcher interface {
	AcceptSorted(req *types.Request)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(req *types.Request)

func (f DispatcherFunc) AcceptSorted(req *types.Request) { f(req) }

// SessionOptions configures a new scheduler session for one device.
type SessionOptions struct {
	// Device names the device the session is bound to. Used for logging and metrics only.
	Device string
	// QueueType selects the registered `OrderedQueue` implementation. Empty selects the policy default.
	QueueType string
	// Dispatcher receives dispatched requests. Optional.
	Dispatcher Dispatcher
	// Sink receives admit and dispatch events. Optional; events are discarded when nil.
	Sink observability.Sink
	// Logger is the parent logger of the session. The zero value discards.
	Logger logr.Logger
}

// Session is the per-device scheduler state together with the operations a host invokes on it.
//
// A Session is NOT goroutine-safe. The host serializes all calls against one session; distinct sessions share nothing
// and may be used concurrently.
type Session interface {
	// ID returns the unique identifier of the session.
	ID() string

	// Device returns the device the session is bound to.
	Device() string

	// Admit inserts req into the pending queue at its sorted position.
	Admit(req *types.Request) error

	// DispatchNext removes the pending request with the smallest end position and hands it to the Dispatcher.
	// Returns (nil, nil) when nothing is pending. force is accepted for drain-on-shutdown callers and never changes
	// which request is selected.
	DispatchNext(force bool) (*types.Request, error)

	// MergeAdjacent removes absorbed from the pending queue after the host combined it into primary. primary keeps its
	// position in the order.
	MergeAdjacent(primary, absorbed *types.Request) error

	// NeighborBefore returns the pending request ordered immediately before req, or nil at the front.
	NeighborBefore(req *types.Request) (*types.Request, error)

	// NeighborAfter returns the pending request ordered immediately after req, or nil at the back.
	NeighborAfter(req *types.Request) (*types.Request, error)

	// IsEmpty reports whether no request is pending.
	IsEmpty() bool

	// Len returns the number of pending requests.
	Len() int

	// Pending returns the pending requests in dispatch order.
	Pending() []*types.Request

	// BeginDrain signals that the host is shutting the session down. Admission and dispatch keep working.
	BeginDrain() error

	// Destroy releases the session. It fails without side effects while requests are pending.
	Destroy() error
}

// Policy is a named scheduling policy the host can select. It is the function table a host looks up in a
// `registry.Registry`.
type Policy interface {
	// Name returns the identifier the policy is registered under.
	Name() string

	// NewSession creates the scheduler state for one device. No partial state survives a failure.
	NewSession(opts SessionOptions) (Session, error)
}
