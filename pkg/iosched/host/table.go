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
	"fmt"
	"sync"

	"github.com/clookd/iosched/pkg/iosched/types"
)

type tableEntry struct {
	req      *types.Request
	absorbed []types.RequestID
}

// RequestTable owns every live request and hands out stable handles. It is goroutine-safe.
type RequestTable struct {
	mu       sync.Mutex
	nextID   types.RequestID
	requests map[types.RequestID]*tableEntry
}

// NewRequestTable returns an empty table. The first handle issued is 1.
func NewRequestTable() *RequestTable {
	return &RequestTable{requests: make(map[types.RequestID]*tableEntry)}
}

// New validates the range, assigns the next handle and stores the request.
func (t *RequestTable) New(dir types.Direction, start, end uint64) (*types.Request, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, err := types.NewRequest(t.nextID+1, dir, start, end)
	if err != nil {
		return nil, err
	}
	t.nextID++
	t.requests[req.ID] = &tableEntry{req: req}
	return req, nil
}

// Get returns the request registered under id.
func (t *RequestTable) Get(id types.RequestID) (*types.Request, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", types.ErrRequestNotFound, id)
	}
	return e.req, nil
}

// Absorb records that absorbed now travels with primary. Releasing primary releases absorbed too.
func (t *RequestTable) Absorb(primary, absorbed types.RequestID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.requests[primary]
	if !ok {
		return fmt.Errorf("%w: %d", types.ErrRequestNotFound, primary)
	}
	a, ok := t.requests[absorbed]
	if !ok {
		return fmt.Errorf("%w: %d", types.ErrRequestNotFound, absorbed)
	}
	p.absorbed = append(p.absorbed, absorbed)
	p.absorbed = append(p.absorbed, a.absorbed...)
	a.absorbed = nil
	return nil
}

// Absorbed returns the handles carried by primary.
func (t *RequestTable) Absorbed(primary types.RequestID) []types.RequestID {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.requests[primary]
	if !ok {
		return nil
	}
	return append([]types.RequestID(nil), e.absorbed...)
}

// Release forgets id and every request it absorbed, returning how many entries were dropped.
// A request that is still pending in a scheduler queue cannot be released.
func (t *RequestTable) Release(id types.RequestID) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.requests[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", types.ErrRequestNotFound, id)
	}
	if e.req.Membership == types.MembershipPending {
		return 0, fmt.Errorf("%w: %s", ErrRequestBusy, e.req)
	}
	released := 1
	delete(t.requests, id)
	for _, a := range e.absorbed {
		if _, ok := t.requests[a]; ok {
			delete(t.requests, a)
			released++
		}
	}
	return released, nil
}

// Len returns the number of live requests.
func (t *RequestTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}
