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

/*
Package clook implements the C-LOOK elevator policy.

Pending requests are kept ascending by end position. Every dispatch removes the smallest pending end position, so a
continuous run of dispatches sweeps upward across the device. When a request below the last dispatched position is
admitted while higher ones are still pending, it becomes the new minimum and the next dispatch jumps back to it: the
sweep wraps without any explicit head position or direction state.

# Lifecycle

A `Session` moves through Uninitialized → Active → Draining → Destroyed. Admission and dispatch are accepted while
Active or Draining. Destroy is refused with `ErrNonEmptyOnDestroy` while any request is pending.
*/
package clook
