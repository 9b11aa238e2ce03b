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

package types

import (
	"fmt"
)

// RequestID is the stable handle a host assigns to a request. Queues index their members by this handle.
type RequestID uint64

// Direction is the data direction of a request.
type Direction int

const (
	// Read transfers data from the device.
	Read Direction = iota
	// Write transfers data to the device.
	Write
)

// Letter returns the single-letter form used in diagnostics ("R" or "W").
func (d Direction) Letter() string {
	if d == Write {
		return "W"
	}
	return "R"
}

func (d Direction) String() string {
	switch d {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("Unknown(%d)", int(d))
	}
}

// ParseDirection accepts "R"/"W" as well as "read"/"write".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "R", "r", "read":
		return Read, nil
	case "W", "w", "write":
		return Write, nil
	default:
		return Read, fmt.Errorf("unknown direction %q", s)
	}
}

// Membership records which list a request currently belongs to. A request is a member of at most one list at a time.
type Membership int

const (
	// MembershipNone means the request is not linked into any list.
	MembershipNone Membership = iota
	// MembershipPending means the request sits in a scheduler's pending queue.
	MembershipPending
	// MembershipDispatched means the request was handed to the host's dispatch list.
	MembershipDispatched
	// MembershipMerged means the request was absorbed into another request and left the pending queue.
	MembershipMerged
)

func (m Membership) String() string {
	switch m {
	case MembershipNone:
		return "None"
	case MembershipPending:
		return "Pending"
	case MembershipDispatched:
		return "Dispatched"
	case MembershipMerged:
		return "Merged"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// Request is a unit of I/O work located on a device's linear address space.
//
// `End` is the highest position the request touches and is the sort key of the pending queue. It MUST NOT change
// while the request is pending; `Start` may be lowered by the host when it merges a neighbor into this request.
type Request struct {
	ID        RequestID
	Start     uint64
	End       uint64
	Direction Direction

	// Membership is maintained by the list the request is linked into. Callers outside a queue or dispatch list
	// implementation should treat it as read-only.
	Membership Membership
}

// NewRequest validates the range and returns an unlinked request.
func NewRequest(id RequestID, dir Direction, start, end uint64) (*Request, error) {
	if end < start {
		return nil, fmt.Errorf("%w: start %d, end %d", ErrInvalidRange, start, end)
	}
	return &Request{ID: id, Start: start, End: end, Direction: dir}, nil
}

// Sectors returns the number of positions covered by the request.
func (r *Request) Sectors() uint64 {
	return r.End - r.Start + 1
}

// Contiguous reports whether r and other overlap or touch end to end.
func (r *Request) Contiguous(other *Request) bool {
	if r.Start <= other.Start {
		return r.End == ^uint64(0) || r.End+1 >= other.Start
	}
	return other.End == ^uint64(0) || other.End+1 >= r.Start
}

func (r *Request) String() string {
	return fmt.Sprintf("%s[%d-%d]#%d", r.Direction.Letter(), r.Start, r.End, r.ID)
}
