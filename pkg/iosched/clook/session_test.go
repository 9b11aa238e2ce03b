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
	"math/rand"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clookd/iosched/pkg/iosched/framework"
	"github.com/clookd/iosched/pkg/iosched/framework/plugins/queue"
	"github.com/clookd/iosched/pkg/iosched/observability"
	"github.com/clookd/iosched/pkg/iosched/types"
)

var queueTypes = []string{queue.SortedListQueueName, queue.BTreeQueueName}

type harness struct {
	session    *Session
	recorder   *observability.Recorder
	dispatched []*types.Request
	nextID     types.RequestID
}

func newHarness(t *testing.T, queueType string) *harness {
	t.Helper()
	h := &harness{recorder: &observability.Recorder{}}
	s, err := NewPolicy().NewSession(framework.SessionOptions{
		Device:    "sda",
		QueueType: queueType,
		Sink:      h.recorder,
		Logger:    testr.New(t),
		Dispatcher: framework.DispatcherFunc(func(req *types.Request) {
			req.Membership = types.MembershipDispatched
			h.dispatched = append(h.dispatched, req)
		}),
	})
	require.NoError(t, err, "Setup: creating a session should not fail")
	h.session = s.(*Session)
	return h
}

func (h *harness) request(t *testing.T, dir types.Direction, start, end uint64) *types.Request {
	t.Helper()
	h.nextID++
	req, err := types.NewRequest(h.nextID, dir, start, end)
	require.NoError(t, err, "Setup: creating request should not fail")
	return req
}

func (h *harness) admit(t *testing.T, dir types.Direction, start, end uint64) *types.Request {
	t.Helper()
	req := h.request(t, dir, start, end)
	require.NoError(t, h.session.Admit(req), "Admit should not fail for a valid request")
	return req
}

func (h *harness) drainEnds(t *testing.T) []uint64 {
	t.Helper()
	var out []uint64
	for {
		req, err := h.session.DispatchNext(false)
		require.NoError(t, err)
		if req == nil {
			return out
		}
		out = append(out, req.End)
	}
}

func assertSortedPending(t *testing.T, s *Session) {
	t.Helper()
	pending := s.Pending()
	for i := 1; i < len(pending); i++ {
		require.LessOrEqual(t, pending[i-1].End, pending[i].End, "pending must be non-decreasing by end position")
	}
}

func TestSession_DispatchOrderScenario(t *testing.T) {
	t.Parallel()
	for _, qt := range queueTypes {
		t.Run(qt, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, qt)
			for _, end := range []uint64{50, 10, 90, 30} {
				h.admit(t, types.Read, end, end)
				assertSortedPending(t, h.session)
			}

			assert.Equal(t, []uint64{10, 30, 50, 90}, h.drainEnds(t))
			assert.True(t, h.session.IsEmpty())
		})
	}
}

func TestSession_TieBreakScenario(t *testing.T) {
	t.Parallel()
	for _, qt := range queueTypes {
		t.Run(qt, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, qt)
			write := h.admit(t, types.Write, 33, 40)
			read := h.admit(t, types.Read, 35, 40)

			first, err := h.session.DispatchNext(false)
			require.NoError(t, err)
			second, err := h.session.DispatchNext(false)
			require.NoError(t, err)

			assert.Same(t, write, first, "the request admitted first must be dispatched first")
			assert.Same(t, read, second)
		})
	}
}

func TestSession_DestroyGuardScenario(t *testing.T) {
	t.Parallel()
	for _, qt := range queueTypes {
		t.Run(qt, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, qt)
			req := h.admit(t, types.Read, 100, 107)

			err := h.session.Destroy()
			require.ErrorIs(t, err, ErrNonEmptyOnDestroy, "Destroy must refuse a non-empty session")
			assert.Equal(t, 1, h.session.Len(), "a refused Destroy must leave the queue untouched")
			assert.Equal(t, "Active", h.session.State())

			got, err := h.session.DispatchNext(true)
			require.NoError(t, err)
			assert.Same(t, req, got, "dispatch must drain the pending request")

			require.NoError(t, h.session.Destroy(), "Destroy must succeed once drained")
			assert.Equal(t, "Destroyed", h.session.State())
		})
	}
}

func TestSession_WrapAround(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")

	h.admit(t, types.Read, 100, 100)
	h.admit(t, types.Read, 200, 200)
	h.admit(t, types.Read, 300, 300)

	first, err := h.session.DispatchNext(false)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), first.End)

	// A request behind the sweep becomes the new minimum: the next dispatch wraps back to it.
	h.admit(t, types.Write, 20, 20)
	assert.Equal(t, []uint64{20, 200, 300}, h.drainEnds(t))
}

func TestSession_DispatchEmpty(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")

	for _, force := range []bool{false, true} {
		req, err := h.session.DispatchNext(force)
		assert.NoError(t, err, "DispatchNext on an empty queue is not an error")
		assert.Nil(t, req, "DispatchNext on an empty queue must return nil")
	}
	assert.True(t, h.session.IsEmpty(), "the queue must remain empty")
	assert.Empty(t, h.recorder.Events(), "no event may be emitted when nothing was dispatched")
	assert.Empty(t, h.dispatched, "the dispatcher must not be called when nothing was dispatched")
}

func TestSession_ForceDoesNotChangeSelection(t *testing.T) {
	t.Parallel()
	forced := newHarness(t, "")
	normal := newHarness(t, "")
	for _, h := range []*harness{forced, normal} {
		for _, end := range []uint64{70, 5, 5, 40} {
			h.admit(t, types.Read, end, end)
		}
	}

	for range 4 {
		a, err := forced.session.DispatchNext(true)
		require.NoError(t, err)
		b, err := normal.session.DispatchNext(false)
		require.NoError(t, err)
		assert.Equal(t, b.ID, a.ID, "force must not change the selected request")
	}
}

func TestSession_Events(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")

	h.admit(t, types.Read, 1024, 1031)
	h.admit(t, types.Write, 2048, 2055)
	_, err := h.session.DispatchNext(false)
	require.NoError(t, err)
	_, err = h.session.DispatchNext(false)
	require.NoError(t, err)

	want := []string{
		"[clook] add R 1024",
		"[clook] add W 2048",
		"[clook] dsp R 1024",
		"[clook] dsp W 2048",
	}
	if diff := cmp.Diff(want, h.recorder.Lines()); diff != "" {
		t.Errorf("Unexpected event lines (-want +got):\n%s", diff)
	}

	events := h.recorder.Events()
	assert.Equal(t, h.session.ID(), events[0].Session)
	assert.Equal(t, "sda", events[0].Device)
	assert.Equal(t, 2, events[1].Pending, "Pending must reflect the queue length after admission")
	assert.Equal(t, 0, events[3].Pending, "Pending must reflect the queue length after dispatch")
}

func TestSession_DispatcherReceivesRequests(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")

	a := h.admit(t, types.Read, 10, 19)
	b := h.admit(t, types.Read, 0, 9)
	_, err := h.session.DispatchNext(false)
	require.NoError(t, err)
	_, err = h.session.DispatchNext(false)
	require.NoError(t, err)

	require.Len(t, h.dispatched, 2)
	assert.Same(t, b, h.dispatched[0])
	assert.Same(t, a, h.dispatched[1])
	assert.Equal(t, types.MembershipDispatched, a.Membership, "a dispatched request belongs to the dispatch list only")
}

func TestSession_AdmitRejections(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")

	assert.ErrorIs(t, h.session.Admit(nil), framework.ErrNilRequest)

	req := h.admit(t, types.Read, 0, 7)
	assert.ErrorIs(t, h.session.Admit(req), framework.ErrAlreadyQueued,
		"a request may be a member of at most one list")
	assert.Equal(t, 1, h.session.Len())
}

func TestSession_MergeAdjacent(t *testing.T) {
	t.Parallel()
	for _, qt := range queueTypes {
		t.Run(qt, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, qt)
			low := h.admit(t, types.Read, 0, 9)
			absorbed := h.admit(t, types.Read, 10, 19)
			primary := h.admit(t, types.Read, 20, 29)
			high := h.admit(t, types.Read, 30, 39)

			before, err := h.session.NeighborBefore(primary)
			require.NoError(t, err)
			assert.Same(t, absorbed, before)

			require.NoError(t, h.session.MergeAdjacent(primary, absorbed))
			assert.Equal(t, types.MembershipMerged, absorbed.Membership)
			assert.Equal(t, types.MembershipPending, primary.Membership)

			pending := h.session.Pending()
			assert.NotContains(t, pending, absorbed, "the absorbed request must leave the queue")
			assert.Equal(t, []*types.Request{low, primary, high}, pending, "primary must keep its position")
			assert.Equal(t, uint64(20), primary.Start, "the scheduler must not modify primary")

			err = h.session.MergeAdjacent(primary, absorbed)
			assert.ErrorIs(t, err, framework.ErrRequestNotQueued, "merging a non-member must fail")
			assert.ErrorIs(t, h.session.MergeAdjacent(primary, primary), ErrSelfMerge)
			assert.ErrorIs(t, h.session.MergeAdjacent(nil, primary), framework.ErrNilRequest)
			assert.Equal(t, 3, h.session.Len(), "failed merges must not change the queue")
		})
	}
}

func TestSession_Neighbors(t *testing.T) {
	t.Parallel()
	h := newHarness(t, queue.BTreeQueueName)
	a := h.admit(t, types.Read, 0, 10)
	b := h.admit(t, types.Write, 5, 20)

	prev, err := h.session.NeighborBefore(a)
	require.NoError(t, err)
	assert.Nil(t, prev, "the head has no predecessor")
	next, err := h.session.NeighborAfter(a)
	require.NoError(t, err)
	assert.Same(t, b, next)
	next, err = h.session.NeighborAfter(b)
	require.NoError(t, err)
	assert.Nil(t, next, "the tail has no successor")

	stranger := h.request(t, types.Read, 0, 1)
	_, err = h.session.NeighborBefore(stranger)
	assert.ErrorIs(t, err, framework.ErrRequestNotQueued)
	_, err = h.session.NeighborAfter(nil)
	assert.ErrorIs(t, err, framework.ErrNilRequest)
}

func TestSession_Lifecycle(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")
	s := h.session
	assert.Equal(t, "Active", s.State())

	require.NoError(t, s.BeginDrain())
	assert.Equal(t, "Draining", s.State())
	require.NoError(t, s.BeginDrain(), "BeginDrain is idempotent")

	// Draining still answers admit and dispatch.
	req := h.admit(t, types.Write, 8, 15)
	got, err := s.DispatchNext(true)
	require.NoError(t, err)
	assert.Same(t, req, got)

	require.NoError(t, s.Destroy())
	assert.Equal(t, "Destroyed", s.State())

	assert.ErrorIs(t, s.Admit(h.request(t, types.Read, 0, 0)), ErrSessionDestroyed)
	_, err = s.DispatchNext(false)
	assert.ErrorIs(t, err, ErrSessionDestroyed)
	assert.ErrorIs(t, s.BeginDrain(), ErrSessionDestroyed)
	assert.ErrorIs(t, s.Destroy(), ErrSessionDestroyed)
	assert.True(t, s.IsEmpty())
	assert.Zero(t, s.Len())
}

func TestSession_Uninitialized(t *testing.T) {
	t.Parallel()
	var s Session

	assert.Equal(t, "Uninitialized", s.State())
	req, err := types.NewRequest(1, types.Read, 0, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Admit(req), ErrSessionUninitialized)
	_, err = s.DispatchNext(false)
	assert.ErrorIs(t, err, ErrSessionUninitialized)
	assert.ErrorIs(t, s.Destroy(), ErrSessionUninitialized)
	assert.Nil(t, s.Pending())
}

func TestPolicy_AllocationFailure(t *testing.T) {
	t.Parallel()

	s, err := NewPolicy().NewSession(framework.SessionOptions{QueueType: "NoSuchQueue"})
	assert.ErrorIs(t, err, ErrAllocationFailure, "an unusable queue type must surface as an allocation failure")
	assert.Nil(t, s, "no partial session may be returned")

	s, err = NewPolicy(WithDefaultQueue("NoSuchQueue")).NewSession(framework.SessionOptions{})
	assert.ErrorIs(t, err, ErrAllocationFailure)
	assert.Nil(t, s)
}

func TestPolicy_SessionsAreIndependent(t *testing.T) {
	t.Parallel()
	p := NewPolicy(WithDefaultQueue(queue.BTreeQueueName))

	a, err := p.NewSession(framework.SessionOptions{Device: "sda"})
	require.NoError(t, err)
	b, err := p.NewSession(framework.SessionOptions{Device: "sdb"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID(), "every session must get a unique ID")
	assert.Equal(t, PolicyName, p.Name())

	req, err := types.NewRequest(1, types.Read, 0, 7)
	require.NoError(t, err)
	require.NoError(t, a.Admit(req))
	assert.Equal(t, 1, a.Len())
	assert.True(t, b.IsEmpty(), "admission on one session must not affect another")
}

// TestSession_RandomizedProperties checks sort order, minimum-first dispatch, tie-break stability and conservation
// over a random mix of admissions, dispatches and merges.
func TestSession_RandomizedProperties(t *testing.T) {
	t.Parallel()
	for _, qt := range queueTypes {
		t.Run(qt, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, qt)
			rng := rand.New(rand.NewSource(7))
			admittedAt := make(map[types.RequestID]int)
			admitted, removed := 0, 0

			for step := 0; step < 3000; step++ {
				switch op := rng.Intn(10); {
				case op < 5:
					end := uint64(rng.Intn(100))
					req := h.admit(t, types.Direction(rng.Intn(2)), end/2, end)
					admittedAt[req.ID] = step
					admitted++
				case op < 9:
					pending := h.session.Pending()
					req, err := h.session.DispatchNext(op == 8)
					require.NoError(t, err)
					if len(pending) == 0 {
						require.Nil(t, req)
						continue
					}
					for _, other := range pending {
						require.LessOrEqual(t, req.End, other.End, "dispatch must return the minimum end position")
						if other.End == req.End {
							require.LessOrEqual(t, admittedAt[req.ID], admittedAt[other.ID],
								"equal end positions must leave in admission order")
						}
					}
					removed++
				default:
					pending := h.session.Pending()
					if len(pending) < 2 {
						continue
					}
					primary := pending[rng.Intn(len(pending))]
					absorbed, err := h.session.NeighborBefore(primary)
					require.NoError(t, err)
					if absorbed == nil {
						continue
					}
					require.NoError(t, h.session.MergeAdjacent(primary, absorbed))
					removed++
				}
				require.Equal(t, admitted-removed, h.session.Len(), "admitted - dispatched - merged must equal the queue length")
				assertSortedPending(t, h.session)
			}
		})
	}
}
