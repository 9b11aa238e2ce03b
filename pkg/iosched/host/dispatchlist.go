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

package host

import (
	"time"

	"github.com/tidwall/btree"
	"k8s.io/utils/clock"

	"github.com/clookd/iosched/pkg/iosched/framework"
	"github.com/clookd/iosched/pkg/iosched/types"
)

type inflightEntry struct {
	start        uint64
	seq          uint64
	req          *types.Request
	dispatchedAt time.Time
}

func inflightLess(a, b inflightEntry) bool {
	if a.start != b.start {
		return a.start < b.start
	}
	return a.seq < b.seq
}

// DispatchList is the host's in-flight list of one device, ordered by start position with arrival order breaking
// ties. It implements `framework.Dispatcher`. It is not goroutine-safe; the owning device lock serializes access.
type DispatchList struct {
	tree    *btree.BTreeG[inflightEntry]
	nextSeq uint64
	clock   clock.PassiveClock
}

// NewDispatchList returns an empty dispatch list.
func NewDispatchList(clk clock.PassiveClock) *DispatchList {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &DispatchList{
		tree:  btree.NewBTreeGOptions(inflightLess, btree.Options{NoLocks: true}),
		clock: clk,
	}
}

// AcceptSorted places req by start position and marks it dispatched.
func (d *DispatchList) AcceptSorted(req *types.Request) {
	d.tree.Set(inflightEntry{start: req.Start, seq: d.nextSeq, req: req, dispatchedAt: d.clock.Now()})
	d.nextSeq++
	req.Membership = types.MembershipDispatched
}

// PopFront removes the in-flight request with the lowest start position and reports how long it was in flight.
func (d *DispatchList) PopFront() (*types.Request, time.Duration, bool) {
	e, ok := d.tree.PopMin()
	if !ok {
		return nil, 0, false
	}
	e.req.Membership = types.MembershipNone
	return e.req, d.clock.Since(e.dispatchedAt), true
}

// Len returns the number of in-flight requests.
func (d *DispatchList) Len() int { return d.tree.Len() }

// Snapshot returns the in-flight requests in issue order.
func (d *DispatchList) Snapshot() []*types.Request {
	out := make([]*types.Request, 0, d.tree.Len())
	d.tree.Scan(func(e inflightEntry) bool {
		out = append(out, e.req)
		return true
	})
	return out
}

var _ framework.Dispatcher = &DispatchList{}
