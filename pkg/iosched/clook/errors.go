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
	"errors"
)

var (
	// ErrAllocationFailure indicates that a session could not acquire its backing queue. No session state survives.
	ErrAllocationFailure = errors.New("failed to allocate scheduler session")

	// ErrNonEmptyOnDestroy indicates an attempt to destroy a session that still holds pending requests. The session is
	// left untouched; the host must drain it first.
	ErrNonEmptyOnDestroy = errors.New("cannot destroy scheduler session with pending requests")

	// ErrSessionDestroyed indicates an operation on a session that has already been destroyed.
	ErrSessionDestroyed = errors.New("scheduler session is destroyed")

	// ErrSessionUninitialized indicates an operation on a session that was not created through a Policy.
	ErrSessionUninitialized = errors.New("scheduler session is not initialized")

	// ErrSelfMerge indicates a merge notification naming the same request as primary and absorbed.
	ErrSelfMerge = errors.New("cannot merge a request into itself")
)
