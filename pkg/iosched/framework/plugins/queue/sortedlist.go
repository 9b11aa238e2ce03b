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

package queue

import (
	"container/list"

	"github.com/clookd/iosched/pkg/iosched/framework"
	"github.com/clookd/iosched/pkg/iosched/types"
)

// SortedListQueueName is the name of the list-based ordered queue implementation.
//
// This queue keeps its members in a doubly linked list (`container/list`) ordered by end position. Insertion scans from
// the front and stops at the first member with a strictly greater end position, so members with equal end positions
// stay in admission order. Removal of the head or of any member identified by its handle is O(1).
//
// # Performance and Trade-offs
//
// Insertion is O(n) in the number of members scanned. At the queue depths a single device session sees (a handful to
// low hundreds of outstanding requests) this beats the constant factors of a tree. For deeper queues, `BTreeQueueName`
// provides the same ordering with O(log n) insertion.
const SortedListQueueName = "SortedList"

func init() {
	MustRegisterQueue(RegisteredQueueName(SortedListQueueName),
		func() (framework.OrderedQueue, error) {
			return newSortedListQueue(), nil
		})
}

// sortedListQueue is the internal implementation of the SortedList queue.
// See the documentation for the exported `SortedListQueueName` constant for detailed user-facing information.
type sortedListQueue struct {
	requests *list.List
	// index maps a member's handle to its list element.
	index map[types.RequestID]*list.Element
}

// newSortedListQueue creates a new `sortedListQueue` instance.
func newSortedListQueue() *sortedListQueue {
	return &sortedListQueue{
		requests: list.New(),
		index:    make(map[types.RequestID]*list.Element),
	}
}

// --- `framework.OrderedQueue` Interface Implementation ---

// InsertSorted links req before the first member with a strictly greater end position.
func (sq *sortedListQueue) InsertSorted(req *types.Request) error {
	if req == nil {
		return framework.ErrNilRequest
	}
	if req.Membership != types.MembershipNone {
		return framework.ErrAlreadyQueued
	}
	if _, ok := sq.index[req.ID]; ok {
		return framework.ErrAlreadyQueued
	}

	var mark *list.Element
	for e := sq.requests.Front(); e != nil; e = e.Next() {
		if e.Value.(*types.Request).End > req.End {
			mark = e
			break
		}
	}

	var element *list.Element
	if mark != nil {
		element = sq.requests.InsertBefore(req, mark)
	} else {
		element = sq.requests.PushBack(req)
	}
	sq.index[req.ID] = element
	req.Membership = types.MembershipPending
	return nil
}

// RemoveHead unlinks the front of the list.
func (sq *sortedListQueue) RemoveHead() (*types.Request, error) {
	front := sq.requests.Front()
	if front == nil {
		return nil, framework.ErrQueueEmpty
	}
	return sq.unlink(front), nil
}

// Remove unlinks the member identified by id.
func (sq *sortedListQueue) Remove(id types.RequestID) (*types.Request, error) {
	element, ok := sq.index[id]
	if !ok {
		return nil, framework.ErrRequestNotQueued
	}
	return sq.unlink(element), nil
}

func (sq *sortedListQueue) unlink(element *list.Element) *types.Request {
	req := sq.requests.Remove(element).(*types.Request)
	delete(sq.index, req.ID)
	req.Membership = types.MembershipNone
	return req
}

// PeekHead returns the front of the list without removing it.
func (sq *sortedListQueue) PeekHead() (*types.Request, error) {
	front := sq.requests.Front()
	if front == nil {
		return nil, framework.ErrQueueEmpty
	}
	return front.Value.(*types.Request), nil
}

// Neighbors returns the members adjacent to id.
func (sq *sortedListQueue) Neighbors(id types.RequestID) (prev, next *types.Request, err error) {
	element, ok := sq.index[id]
	if !ok {
		return nil, nil, framework.ErrRequestNotQueued
	}
	if p := element.Prev(); p != nil {
		prev = p.Value.(*types.Request)
	}
	if n := element.Next(); n != nil {
		next = n.Value.(*types.Request)
	}
	return prev, next, nil
}

// Snapshot returns the members in list order.
func (sq *sortedListQueue) Snapshot() []*types.Request {
	out := make([]*types.Request, 0, sq.requests.Len())
	for e := sq.requests.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*types.Request))
	}
	return out
}

// Name returns the name of the queue.
func (sq *sortedListQueue) Name() string {
	return SortedListQueueName
}

// Len returns the number of items in the queue.
func (sq *sortedListQueue) Len() int {
	return sq.requests.Len()
}

// IsEmpty reports whether the queue has no members.
func (sq *sortedListQueue) IsEmpty() bool {
	return sq.requests.Len() == 0
}

var _ framework.OrderedQueue = &sortedListQueue{}
