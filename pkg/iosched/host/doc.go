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
Package host is an in-process reference host for scheduling policies.

It owns what a scheduler deliberately does not: the request table that hands out stable request handles, the
per-device dispatch list that dispatched requests are sorted into, the locking that serializes calls against each
device's session, and the merge heuristic that asks a session for neighbors and tells it which request was absorbed.

# Merging

After a request is admitted, the host looks at its pending neighbors. A predecessor with the same direction whose
range touches or overlaps the new request is folded into it; the new request is then folded into a successor with
the same direction whose range touches or overlaps it. The primary request always keeps its end position, so merges
never reorder the pending queue.
*/
package host
