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

package queue_test

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clookd/iosched/pkg/iosched/framework"
	"github.com/clookd/iosched/pkg/iosched/framework/plugins/queue"
	"github.com/clookd/iosched/pkg/iosched/types"
)

// newRequest builds a pending-ready request. The start position is derived from the end so that diagnostics in
// failure messages stay readable.
func newRequest(t testing.TB, id types.RequestID, dir types.Direction, end uint64) *types.Request {
	t.Helper()
	start := uint64(0)
	if end >= 8 {
		start = end - 7
	}
	req, err := types.NewRequest(id, dir, start, end)
	require.NoError(t, err, "Setup: creating request %d should not fail", id)
	return req
}

func ids(reqs []*types.Request) []types.RequestID {
	out := make([]types.RequestID, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.ID)
	}
	return out
}

func ends(reqs []*types.Request) []uint64 {
	out := make([]uint64, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.End)
	}
	return out
}

// assertSorted checks that the queue's members are non-decreasing by end position.
func assertSorted(t *testing.T, q framework.OrderedQueue, msgAndArgs ...any) {
	t.Helper()
	snap := q.Snapshot()
	for i := 1; i < len(snap); i++ {
		if !assert.LessOrEqual(t, snap[i-1].End, snap[i].End, msgAndArgs...) {
			return
		}
	}
}

// TestQueueConformance is the conformance test suite for `framework.OrderedQueue` implementations.
// It iterates over all queue implementations registered via `queue.MustRegisterQueue` and runs a series of sub-tests to
// ensure they adhere to the `framework.OrderedQueue` contract.
func TestQueueConformance(t *testing.T) {
	t.Parallel()

	for queueName, constructor := range queue.RegisteredQueues {
		t.Run(string(queueName), func(t *testing.T) {
			t.Parallel()

			t.Run("Initialization", func(t *testing.T) {
				t.Parallel()
				q, err := constructor()
				require.NoError(t, err, "Setup: creating queue for test should not fail")

				require.NotNil(t, q, "Constructor should return a non-nil queue instance")
				assert.Zero(t, q.Len(), "A new queue should have a length of 0")
				assert.True(t, q.IsEmpty(), "A new queue should be empty")
				assert.Empty(t, q.Snapshot(), "A new queue should have an empty snapshot")
				assert.Equal(t, string(queueName), q.Name(), "Name() should return the registered name of the queue")
			})

			t.Run("EmptyQueue", func(t *testing.T) {
				t.Parallel()
				q, err := constructor()
				require.NoError(t, err, "Setup: creating queue for test should not fail")

				head, err := q.RemoveHead()
				assert.ErrorIs(t, err, framework.ErrQueueEmpty, "RemoveHead on empty queue should return ErrQueueEmpty")
				assert.Nil(t, head, "RemoveHead on empty queue should return a nil request")

				head, err = q.PeekHead()
				assert.ErrorIs(t, err, framework.ErrQueueEmpty, "PeekHead on empty queue should return ErrQueueEmpty")
				assert.Nil(t, head, "PeekHead on empty queue should return a nil request")
				assert.True(t, q.IsEmpty(), "The queue must remain empty after failed removals")
			})

			t.Run("InsertSorted_OrdersByEndPosition", func(t *testing.T) {
				t.Parallel()
				q, err := constructor()
				require.NoError(t, err, "Setup: creating queue for test should not fail")

				for i, end := range []uint64{50, 10, 90, 30} {
					req := newRequest(t, types.RequestID(i+1), types.Read, end)
					require.NoError(t, q.InsertSorted(req), "InsertSorted should not fail for a valid request")
					assert.Equal(t, types.MembershipPending, req.Membership, "InsertSorted must mark the request pending")
					assertSorted(t, q, "queue must stay sorted after inserting end %d", end)
				}

				assert.Equal(t, []uint64{10, 30, 50, 90}, ends(q.Snapshot()))

				var got []uint64
				for !q.IsEmpty() {
					head, err := q.PeekHead()
					require.NoError(t, err)
					removed, err := q.RemoveHead()
					require.NoError(t, err, "RemoveHead should not fail on a non-empty queue")
					assert.Same(t, head, removed, "PeekHead must return the request RemoveHead removes next")
					assert.Equal(t, types.MembershipNone, removed.Membership, "RemoveHead must unlink the request")
					got = append(got, removed.End)
				}
				assert.Equal(t, []uint64{10, 30, 50, 90}, got, "Requests must leave in ascending end order")
			})

			t.Run("InsertSorted_FIFOTieBreak", func(t *testing.T) {
				t.Parallel()
				q, err := constructor()
				require.NoError(t, err, "Setup: creating queue for test should not fail")

				write := newRequest(t, 1, types.Write, 40)
				read := newRequest(t, 2, types.Read, 40)
				low := newRequest(t, 3, types.Read, 20)
				another := newRequest(t, 4, types.Write, 40)
				for _, r := range []*types.Request{write, read, low, another} {
					require.NoError(t, q.InsertSorted(r))
				}

				want := []types.RequestID{3, 1, 2, 4}
				if diff := cmp.Diff(want, ids(q.Snapshot())); diff != "" {
					t.Errorf("Unexpected order among equal end positions (-want +got):\n%s", diff)
				}
			})

			t.Run("InsertSorted_Rejections", func(t *testing.T) {
				t.Parallel()
				q, err := constructor()
				require.NoError(t, err, "Setup: creating queue for test should not fail")

				assert.ErrorIs(t, q.InsertSorted(nil), framework.ErrNilRequest, "InsertSorted(nil) must return ErrNilRequest")

				req := newRequest(t, 1, types.Read, 10)
				require.NoError(t, q.InsertSorted(req))
				assert.ErrorIs(t, q.InsertSorted(req), framework.ErrAlreadyQueued,
					"Inserting a pending request again must return ErrAlreadyQueued")

				dispatched := newRequest(t, 2, types.Read, 20)
				dispatched.Membership = types.MembershipDispatched
				assert.ErrorIs(t, q.InsertSorted(dispatched), framework.ErrAlreadyQueued,
					"Inserting a request linked into another list must return ErrAlreadyQueued")

				assert.Equal(t, 1, q.Len(), "Failed inserts must not change the queue length")
			})

			t.Run("Remove", func(t *testing.T) {
				t.Parallel()
				q, err := constructor()
				require.NoError(t, err, "Setup: creating queue for test should not fail")

				reqs := []*types.Request{
					newRequest(t, 1, types.Read, 10),
					newRequest(t, 2, types.Write, 20),
					newRequest(t, 3, types.Read, 30),
				}
				for _, r := range reqs {
					require.NoError(t, q.InsertSorted(r))
				}

				removed, err := q.Remove(2)
				require.NoError(t, err, "Remove of a member should not fail")
				assert.Same(t, reqs[1], removed)
				assert.Equal(t, types.MembershipNone, removed.Membership, "Remove must unlink the request")
				assert.Equal(t, []types.RequestID{1, 3}, ids(q.Snapshot()))

				_, err = q.Remove(2)
				assert.ErrorIs(t, err, framework.ErrRequestNotQueued, "Removing a request twice must fail")
				_, err = q.Remove(99)
				assert.ErrorIs(t, err, framework.ErrRequestNotQueued, "Removing an unknown handle must fail")

				// A removed request can be admitted again.
				require.NoError(t, q.InsertSorted(removed))
				assert.Equal(t, []types.RequestID{1, 2, 3}, ids(q.Snapshot()))
			})

			t.Run("Neighbors", func(t *testing.T) {
				t.Parallel()
				q, err := constructor()
				require.NoError(t, err, "Setup: creating queue for test should not fail")

				a := newRequest(t, 1, types.Read, 10)
				b := newRequest(t, 2, types.Read, 20)
				c := newRequest(t, 3, types.Read, 20)
				d := newRequest(t, 4, types.Read, 30)
				for _, r := range []*types.Request{d, b, a, c} {
					require.NoError(t, q.InsertSorted(r))
				}

				testCases := []struct {
					name     string
					id       types.RequestID
					wantPrev *types.Request
					wantNext *types.Request
				}{
					{name: "head has no predecessor", id: 1, wantPrev: nil, wantNext: b},
					{name: "equal keys in admission order", id: 2, wantPrev: a, wantNext: c},
					{name: "second of equal keys", id: 3, wantPrev: b, wantNext: d},
					{name: "tail has no successor", id: 4, wantPrev: c, wantNext: nil},
				}
				for _, tc := range testCases {
					prev, next, err := q.Neighbors(tc.id)
					require.NoError(t, err, "[%s] Neighbors should not fail for a member", tc.name)
					assert.Same(t, tc.wantPrev, prev, "[%s] unexpected predecessor", tc.name)
					assert.Same(t, tc.wantNext, next, "[%s] unexpected successor", tc.name)
				}

				_, _, err = q.Neighbors(42)
				assert.ErrorIs(t, err, framework.ErrRequestNotQueued, "Neighbors of a non-member must fail")
			})

			t.Run("RandomizedConservation", func(t *testing.T) {
				t.Parallel()
				q, err := constructor()
				require.NoError(t, err, "Setup: creating queue for test should not fail")

				rng := rand.New(rand.NewSource(1))
				live := make(map[types.RequestID]*types.Request)
				var nextID types.RequestID
				admitted, removed := 0, 0
				for step := 0; step < 2000; step++ {
					switch op := rng.Intn(10); {
					case op < 5:
						nextID++
						req := newRequest(t, nextID, types.Direction(rng.Intn(2)), uint64(rng.Intn(64)))
						require.NoError(t, q.InsertSorted(req))
						live[req.ID] = req
						admitted++
					case op < 8:
						if q.IsEmpty() {
							_, err := q.RemoveHead()
							require.ErrorIs(t, err, framework.ErrQueueEmpty)
							continue
						}
						head, err := q.RemoveHead()
						require.NoError(t, err)
						for _, other := range live {
							require.LessOrEqual(t, head.End, other.End, "RemoveHead must return the minimum end position")
						}
						delete(live, head.ID)
						removed++
					default:
						for id := range live {
							_, err := q.Remove(id)
							require.NoError(t, err)
							delete(live, id)
							removed++
							break
						}
					}
					require.Equal(t, admitted-removed, q.Len(), "admitted - removed must equal the queue length")
				}
				assertSorted(t, q, "queue must be sorted after randomized operations")
			})
		})
	}
}
