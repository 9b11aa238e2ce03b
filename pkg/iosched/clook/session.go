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
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/clookd/iosched/pkg/iosched/framework"
	"github.com/clookd/iosched/pkg/iosched/framework/plugins/queue"
	"github.com/clookd/iosched/pkg/iosched/observability"
	"github.com/clookd/iosched/pkg/iosched/types"
	logutil "github.com/clookd/iosched/pkg/iosched/util/logging"
)

// Session is the C-LOOK scheduler state of one device. It implements `framework.Session`.
//
// # Ordering
//
// The pending queue is the only state the policy needs. `Admit` places a request at its sorted slot and
// `DispatchNext` always takes the head, so at every dispatch the request leaving is the one with the smallest end
// position currently pending, with ties going to the earliest admission.
//
// # Concurrency
//
// There is no mutex. The host serializes calls against one session.
type Session struct {
	id         string
	policy     string
	device     string
	state      sessionState
	pending    framework.OrderedQueue
	dispatcher framework.Dispatcher
	sink       observability.Sink
	logger     logr.Logger
}

// newSession creates an Active session backed by the named queue implementation.
func newSession(policy string, queueType queue.RegisteredQueueName, opts framework.SessionOptions) (*Session, error) {
	pending, err := queue.NewQueueFromName(queueType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocationFailure, err)
	}

	sink := opts.Sink
	if sink == nil {
		sink = observability.Discard
	}
	id := uuid.NewString()
	s := &Session{
		id:         id,
		policy:     policy,
		device:     opts.Device,
		state:      stateActive,
		pending:    pending,
		dispatcher: opts.Dispatcher,
		sink:       sink,
		logger: opts.Logger.WithName("clook-session").WithValues(
			"session", id,
			"device", opts.Device,
			"queueType", pending.Name(),
		),
	}
	s.logger.V(logutil.DEBUG).Info("Session created", "state", s.state)
	return s, nil
}

func (s *Session) ID() string     { return s.id }
func (s *Session) Device() string { return s.device }
func (s *Session) Policy() string { return s.policy }

// State returns the lifecycle state name (Uninitialized, Active, Draining, Destroyed).
func (s *Session) State() string { return s.state.String() }

// Admit inserts req at its sorted slot and emits an admitted event.
func (s *Session) Admit(req *types.Request) error {
	if err := s.state.usable(); err != nil {
		return err
	}
	if err := s.pending.InsertSorted(req); err != nil {
		return fmt.Errorf("failed to admit request: %w", err)
	}
	if s.state == stateDraining {
		s.logger.V(logutil.DEBUG).Info("Request admitted while draining", "request", req)
	}
	s.emit(observability.EventAdmitted, req)
	return nil
}

// DispatchNext removes the pending head and hands it to the dispatcher. Returns (nil, nil) when nothing is pending.
func (s *Session) DispatchNext(force bool) (*types.Request, error) {
	if err := s.state.usable(); err != nil {
		return nil, err
	}
	if s.pending.IsEmpty() {
		return nil, nil
	}
	req, err := s.pending.RemoveHead()
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch request: %w", err)
	}
	if s.dispatcher != nil {
		s.dispatcher.AcceptSorted(req)
	}
	s.logger.V(logutil.TRACE).Info("Request dispatched", "request", req, "force", force)
	s.emit(observability.EventDispatched, req)
	return req, nil
}

// MergeAdjacent drops absorbed from the pending queue. primary is not touched.
func (s *Session) MergeAdjacent(primary, absorbed *types.Request) error {
	if err := s.state.usable(); err != nil {
		return err
	}
	if primary == nil || absorbed == nil {
		return framework.ErrNilRequest
	}
	if primary.ID == absorbed.ID {
		return ErrSelfMerge
	}
	removed, err := s.pending.Remove(absorbed.ID)
	if err != nil {
		return fmt.Errorf("failed to merge request %d into %d: %w", absorbed.ID, primary.ID, err)
	}
	removed.Membership = types.MembershipMerged
	s.logger.V(logutil.TRACE).Info("Request merged", "primary", primary, "absorbed", removed)
	return nil
}

// NeighborBefore returns the pending request ordered immediately before req.
func (s *Session) NeighborBefore(req *types.Request) (*types.Request, error) {
	prev, _, err := s.neighbors(req)
	return prev, err
}

// NeighborAfter returns the pending request ordered immediately after req.
func (s *Session) NeighborAfter(req *types.Request) (*types.Request, error) {
	_, next, err := s.neighbors(req)
	return next, err
}

func (s *Session) neighbors(req *types.Request) (prev, next *types.Request, err error) {
	if err := s.state.usable(); err != nil {
		return nil, nil, err
	}
	if req == nil {
		return nil, nil, framework.ErrNilRequest
	}
	return s.pending.Neighbors(req.ID)
}

// IsEmpty reports whether no request is pending. A session without a queue is empty.
func (s *Session) IsEmpty() bool {
	return s.pending == nil || s.pending.IsEmpty()
}

// Len returns the number of pending requests.
func (s *Session) Len() int {
	if s.pending == nil {
		return 0
	}
	return s.pending.Len()
}

// Pending returns the pending requests in dispatch order.
func (s *Session) Pending() []*types.Request {
	if s.pending == nil {
		return nil
	}
	return s.pending.Snapshot()
}

// BeginDrain moves an Active session to Draining. Calling it on a Draining session is a no-op.
func (s *Session) BeginDrain() error {
	if err := s.state.usable(); err != nil {
		return err
	}
	if s.state == stateActive {
		s.transition(stateDraining)
	}
	return nil
}

// Destroy moves the session to Destroyed. It is refused, leaving the queue untouched, while requests are pending.
func (s *Session) Destroy() error {
	if err := s.state.usable(); err != nil {
		return err
	}
	if n := s.pending.Len(); n > 0 {
		s.logger.Error(ErrNonEmptyOnDestroy, "Refusing to destroy session", "pending", n)
		return fmt.Errorf("%w: %d pending", ErrNonEmptyOnDestroy, n)
	}
	s.transition(stateDestroyed)
	s.pending = nil
	return nil
}

func (s *Session) transition(to sessionState) {
	s.logger.V(logutil.DEBUG).Info("Session state changed", "from", s.state, "to", to)
	s.state = to
}

func (s *Session) emit(kind observability.EventKind, req *types.Request) {
	s.sink.Observe(observability.Event{
		Kind:      kind,
		Policy:    s.policy,
		Session:   s.id,
		Device:    s.device,
		RequestID: req.ID,
		Direction: req.Direction,
		Position:  req.Start,
		End:       req.End,
		Pending:   s.pending.Len(),
	})
}

var _ framework.Session = &Session{}
