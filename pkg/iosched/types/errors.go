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
	"errors"
)

var (
	// ErrInvalidRange indicates a request whose end position lies before its start position.
	ErrInvalidRange = errors.New("request end position precedes start position")

	// ErrRequestNotFound indicates that no request is registered under the given handle.
	ErrRequestNotFound = errors.New("request not found for the given handle")
)
