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
	"errors"
)

// `OrderedQueue` Errors
//
// These errors are returned by `OrderedQueue` methods and are wrapped by the sweep scheduler where it adds context.
var (
	// ErrQueueEmpty indicates an operation that requires a member (RemoveHead, PeekHead) was attempted on an empty
	// queue. The scheduler checks emptiness before removing the head, so callers normally never see it.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrNilRequest indicates that a nil request was passed to InsertSorted.
	ErrNilRequest = errors.New("request cannot be nil")

	// ErrAlreadyQueued indicates that a request which is already linked into a list was offered for insertion.
	ErrAlreadyQueued = errors.New("request is already linked into a list")

	// ErrRequestNotQueued indicates that the given handle does not identify a member of this queue.
	ErrRequestNotQueued = errors.New("request is not a member of this queue")
)
