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
	"github.com/tidwall/btree"

	"github.com/clookd/iosched/pkg/iosched/framework"
	"github.com/clookd/iosched/pkg/iosched/types"
)

// BTreeQueueName is the name of the B-tree backed ordered queue implementation.
//
// Members are keyed by (end position, admission sequence). The sequence number is assigned from a per-queue counter at
// insertion time, which reproduces the FIFO tie-break of `SortedListQueueName` exactly. Insertion and removal are
// O(log n), which makes this the better choice once a session routinely holds thousands of pending requests.
const BTreeQueueName = "BTree"

func init() {
	MustRegisterQueue(RegisteredQueueName(BTreeQueueName),
		func() (framework.OrderedQueue, error) {
			return newBTreeQueue(), nil
		})
}

// btreeEntry is the tree key. `end` is copied from the request at insertion so that the tree order never depends on
// host-owned memory.
type btreeEntry struct {
	end uint64
	seq uint64
	req *types.Request
}

func btreeEntryLess(a, b btreeEntry) bool {
	if a.end != b.end {
		return a.end < b.end
	}
	return a.seq < b.seq
}

// btreeQueue is the internal implementation of the BTree queue.
type btreeQueue struct {
	tree    *btree.BTreeG[btreeEntry]
	index   map[types.RequestID]btreeEntry
	nextSeq uint64
}

func newBTreeQueue() *btreeQueue {
	return &btreeQueue{
		// The owning session serializes access, so the tree's internal locking is disabled.
		tree:  btree.NewBTreeGOptions(btreeEntryLess, btree.Options{NoLocks: true}),
		index: make(map[types.RequestID]btreeEntry),
	}
}

// --- `framework.OrderedQueue` Interface Implementation ---

func (bq *btreeQueue) InsertSorted(req *types.Request) error {
	if req == nil {
		return framework.ErrNilRequest
	}
	if req.Membership != types.MembershipNone {
		return framework.ErrAlreadyQueued
	}
	if _, ok := bq.index[req.ID]; ok {
		return framework.ErrAlreadyQueued
	}

	entry := btreeEntry{end: req.End, seq: bq.nextSeq, req: req}
	bq.nextSeq++
	bq.tree.Set(entry)
	bq.index[req.ID] = entry
	req.Membership = types.MembershipPending
	return nil
}

func (bq *btreeQueue) RemoveHead() (*types.Request, error) {
	entry, ok := bq.tree.PopMin()
	if !ok {
		return nil, framework.ErrQueueEmpty
	}
	delete(bq.index, entry.req.ID)
	entry.req.Membership = types.MembershipNone
	return entry.req, nil
}

func (bq *btreeQueue) Remove(id types.RequestID) (*types.Request, error) {
	entry, ok := bq.index[id]
	if !ok {
		return nil, framework.ErrRequestNotQueued
	}
	bq.tree.Delete(entry)
	delete(bq.index, id)
	entry.req.Membership = types.MembershipNone
	return entry.req, nil
}

func (bq *btreeQueue) PeekHead() (*types.Request, error) {
	entry, ok := bq.tree.Min()
	if !ok {
		return nil, framework.ErrQueueEmpty
	}
	return entry.req, nil
}

func (bq *btreeQueue) Neighbors(id types.RequestID) (prev, next *types.Request, err error) {
	entry, ok := bq.index[id]
	if !ok {
		return nil, nil, framework.ErrRequestNotQueued
	}
	// Descend and Ascend both start at the pivot itself, so the member is skipped.
	bq.tree.Descend(entry, func(item btreeEntry) bool {
		if item.seq == entry.seq {
			return true
		}
		prev = item.req
		return false
	})
	bq.tree.Ascend(entry, func(item btreeEntry) bool {
		if item.seq == entry.seq {
			return true
		}
		next = item.req
		return false
	})
	return prev, next, nil
}

func (bq *btreeQueue) Snapshot() []*types.Request {
	out := make([]*types.Request, 0, bq.tree.Len())
	bq.tree.Scan(func(item btreeEntry) bool {
		out = append(out, item.req)
		return true
	})
	return out
}

func (bq *btreeQueue) Name() string  { return BTreeQueueName }
func (bq *btreeQueue) Len() int      { return bq.tree.Len() }
func (bq *btreeQueue) IsEmpty() bool { return bq.tree.Len() == 0 }

var _ framework.OrderedQueue = &btreeQueue{}
