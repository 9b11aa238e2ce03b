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

// Package registry provides the policy registry a host consults to select a scheduling policy by name.
//
// A `Registry` is an explicit object created at startup and passed to whatever needs it. There is no process-wide
// registration state: two registries never observe each other's policies.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/clookd/iosched/pkg/iosched/clook"
	"github.com/clookd/iosched/pkg/iosched/framework"
)

var (
	// ErrPolicyNotFound indicates a lookup or removal of a name no policy is registered under.
	ErrPolicyNotFound = errors.New("no scheduling policy registered with name")

	// ErrPolicyAlreadyRegistered indicates a second registration under an existing name.
	ErrPolicyAlreadyRegistered = errors.New("scheduling policy already registered with name")

	// ErrInvalidPolicy indicates a nil policy or one with an empty name.
	ErrInvalidPolicy = errors.New("invalid scheduling policy")
)

// Registry maps policy names to `framework.Policy` function tables. It is goroutine-safe.
type Registry struct {
	// mu guards policies.
	mu       sync.RWMutex
	policies map[string]framework.Policy
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{policies: make(map[string]framework.Policy)}
}

// NewDefaultRegistry returns a registry holding the built-in policies.
func NewDefaultRegistry(opts ...clook.PolicyOption) *Registry {
	r := New()
	r.MustRegister(clook.NewPolicy(opts...))
	return r
}

// Register adds policy under policy.Name().
func (r *Registry) Register(policy framework.Policy) error {
	if policy == nil || policy.Name() == "" {
		return ErrInvalidPolicy
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name := policy.Name()
	if _, ok := r.policies[name]; ok {
		return fmt.Errorf("%w %q", ErrPolicyAlreadyRegistered, name)
	}
	r.policies[name] = policy
	return nil
}

// MustRegister registers policy, and panics if the name is already registered.
func (r *Registry) MustRegister(policy framework.Policy) {
	if err := r.Register(policy); err != nil {
		panic(err)
	}
}

// Unregister removes the policy registered under name. Sessions already created from it are unaffected.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.policies[name]; !ok {
		return fmt.Errorf("%w %q", ErrPolicyNotFound, name)
	}
	delete(r.policies, name)
	return nil
}

// Lookup returns the policy registered under name.
func (r *Registry) Lookup(name string) (framework.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	policy, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrPolicyNotFound, name)
	}
	return policy, nil
}

// Names returns the registered policy names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
