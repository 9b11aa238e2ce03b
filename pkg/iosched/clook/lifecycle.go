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
)

// sessionState is the lifecycle state of a `Session`.
type sessionState int

const (
	// stateUninitialized is the zero value: the session has no queue yet.
	stateUninitialized sessionState = iota

	// stateActive indicates the session accepts admissions and dispatches.
	stateActive

	// stateDraining indicates the host asked for shutdown. The session keeps answering admit and dispatch, but the host
	// is not expected to admit more work.
	stateDraining

	// stateDestroyed is terminal and only reachable with an empty pending queue.
	stateDestroyed
)

func (s sessionState) String() string {
	switch s {
	case stateUninitialized:
		return "Uninitialized"
	case stateActive:
		return "Active"
	case stateDraining:
		return "Draining"
	case stateDestroyed:
		return "Destroyed"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// usable returns the error for operations that require a live session.
func (s sessionState) usable() error {
	switch s {
	case stateActive, stateDraining:
		return nil
	case stateDestroyed:
		return ErrSessionDestroyed
	default:
		return ErrSessionUninitialized
	}
}
