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
	"github.com/clookd/iosched/pkg/iosched/types"
)

// OrderedQueue is the contract for a pending-request container ordered by `types.Request.End`.
//
// Implementations store `types.RequestID` handles alongside non-owning references to the host's requests, and index
// members by handle so that removal of an arbitrary member is constant time.
//
// Implementations are NOT goroutine-safe. The owner of the queue serializes all calls.
type OrderedQueue interface {
	// Name returns the registered name of the implementation (e.g., "SortedList").
	Name() string

	// Len returns the number of pending requests.
	Len() int

	// IsEmpty reports whether the queue holds no requests.
	IsEmpty() bool

	// InsertSorted links req immediately before the first member whose end position is strictly greater than
	// req.End, or at the back if there is none. On success req.Membership becomes `types.MembershipPending`.
	// Returns ErrNilRequest for a nil request and ErrAlreadyQueued if req is linked into any list.
	InsertSorted(req *types.Request) error

	// RemoveHead unlinks and returns the member with the smallest end position.
	// Returns ErrQueueEmpty if the queue is empty. The removed request's membership becomes `types.MembershipNone`.
	RemoveHead() (*types.Request, error)

	// Remove unlinks the member identified by id.
	// Returns ErrRequestNotQueued if id is not a member of this queue.
	Remove(id types.RequestID) (*types.Request, error)

	// PeekHead returns the head without unlinking it, or ErrQueueEmpty.
	PeekHead() (*types.Request, error)

	// Neighbors returns the members immediately before and after id in the current order. Either may be nil at a
	// boundary. Returns ErrRequestNotQueued if id is not a member of this queue.
	Neighbors(id types.RequestID) (prev, next *types.Request, err error)

	// Snapshot returns the members in order. The slice is a copy; the requests are not.
	Snapshot() []*types.Request
}
