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

// Package types defines the request model shared by the ordered queues, the sweep scheduler and the host.
//
// A `Request` is owned by the host. Schedulers and queues refer to it by its `RequestID` handle and only ever update
// its `Membership` tag, which records the single list the request currently belongs to.
package types
