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

// Package queue provides the registered `framework.OrderedQueue` implementations used by the sweep scheduler.
package queue

import (
	"fmt"
	"sort"
	"sync"

	"github.com/clookd/iosched/pkg/iosched/framework"
)

type RegisteredQueueName string

// QueueConstructor defines the function signature for creating a `framework.OrderedQueue`.
type QueueConstructor func() (framework.OrderedQueue, error)

var (
	// mu guards the registration maps.
	mu sync.RWMutex
	// RegisteredQueues stores the constructors for all registered queues.
	RegisteredQueues = make(map[RegisteredQueueName]QueueConstructor)
)

// MustRegisterQueue registers a queue constructor, and panics if the name is
// already registered.
// This is intended to be called from init() functions.
func MustRegisterQueue(name RegisteredQueueName, constructor QueueConstructor) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := RegisteredQueues[name]; ok {
		panic(fmt.Sprintf("framework.OrderedQueue already registered with name %q", name))
	}
	RegisteredQueues[name] = constructor
}

// NewQueueFromName creates a new OrderedQueue given its registered name.
// This is called by the sweep scheduler when a session is created.
func NewQueueFromName(name RegisteredQueueName) (framework.OrderedQueue, error) {
	mu.RLock()
	defer mu.RUnlock()
	constructor, ok := RegisteredQueues[name]
	if !ok {
		return nil, fmt.Errorf("no framework.OrderedQueue registered with name %q", name)
	}
	return constructor()
}

// Names returns the registered queue names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(RegisteredQueues))
	for name := range RegisteredQueues {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}
