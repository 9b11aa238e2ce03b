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
	"errors"
)

var (
	// ErrDeviceNotFound indicates an operation on a device that is not attached.
	ErrDeviceNotFound = errors.New("device not attached")

	// ErrDeviceExists indicates a second attach of the same device name.
	ErrDeviceExists = errors.New("device already attached")

	// ErrTooManyDevices indicates that the configured device limit has been reached.
	ErrTooManyDevices = errors.New("device limit reached")

	// ErrNothingInFlight indicates a completion on a device whose dispatch list is empty.
	ErrNothingInFlight = errors.New("no request in flight")

	// ErrRequestBusy indicates an attempt to release a request that is still pending in a scheduler queue.
	ErrRequestBusy = errors.New("request is still pending")
)
