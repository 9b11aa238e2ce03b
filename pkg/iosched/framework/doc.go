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

// Package framework defines the contracts between the sweep scheduler and its pluggable ordered queue
// implementations.
//
// An `OrderedQueue` keeps pending requests sorted ascending by end position, with requests of equal end position kept
// in admission order. It carries no notion of sweep direction: the scheduler obtains C-LOOK behavior purely by always
// removing the head.
package framework
