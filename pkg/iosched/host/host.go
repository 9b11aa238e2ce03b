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
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/clookd/iosched/pkg/iosched/framework"
	"github.com/clookd/iosched/pkg/iosched/metrics"
	"github.com/clookd/iosched/pkg/iosched/observability"
	"github.com/clookd/iosched/pkg/iosched/registry"
	"github.com/clookd/iosched/pkg/iosched/types"
	logutil "github.com/clookd/iosched/pkg/iosched/util/logging"
)

// Options configures a Host.
type Options struct {
	// Registry is consulted by AttachDevice. Required.
	Registry *registry.Registry
	// QueueType is passed to every new session. Empty selects the policy default.
	QueueType string
	// MaxDevices caps the number of attached devices. Zero means no limit.
	MaxDevices int
	// DisableMerge turns off the neighbor merge heuristic in Submit.
	DisableMerge bool
	// Sink receives the events of every session.
	Sink observability.Sink
	// Clock times requests in flight. Defaults to the real clock.
	Clock  clock.PassiveClock
	Logger logr.Logger
}

// deviceForgetter is implemented by sinks that keep per-device state.
type deviceForgetter interface {
	Forget(policy, device string)
}

// device is the host-side state of one attached device.
type device struct {
	// mu serializes every call against session and dispatch.
	mu       sync.Mutex
	name     string
	policy   string
	session  framework.Session
	dispatch *DispatchList
	detached bool
}

// Host attaches devices to scheduling policies and drives their sessions. It is goroutine-safe; calls against the
// same device are serialized, calls against different devices are not.
type Host struct {
	opts   Options
	table  *RequestTable
	logger logr.Logger

	// mu guards devices.
	mu      sync.RWMutex
	devices map[string]*device
}

// New creates a Host with no attached devices.
func New(opts Options) *Host {
	if opts.Sink == nil {
		opts.Sink = observability.Discard
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	return &Host{
		opts:    opts,
		table:   NewRequestTable(),
		logger:  opts.Logger.WithName("host"),
		devices: make(map[string]*device),
	}
}

// Table returns the host's request table.
func (h *Host) Table() *RequestTable { return h.table }

// AttachDevice creates a session of the named policy for a new device.
func (h *Host) AttachDevice(name, policyName string) error {
	policy, err := h.opts.Registry.Lookup(policyName)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.devices[name]; ok {
		return fmt.Errorf("%w: %q", ErrDeviceExists, name)
	}
	if h.opts.MaxDevices > 0 && len(h.devices) >= h.opts.MaxDevices {
		return fmt.Errorf("%w: %d", ErrTooManyDevices, h.opts.MaxDevices)
	}

	dispatch := NewDispatchList(h.opts.Clock)
	session, err := policy.NewSession(framework.SessionOptions{
		Device:     name,
		QueueType:  h.opts.QueueType,
		Dispatcher: dispatch,
		Sink:       h.opts.Sink,
		Logger:     h.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to attach device %q: %w", name, err)
	}
	h.devices[name] = &device{name: name, policy: policyName, session: session, dispatch: dispatch}
	h.logger.V(logutil.DEFAULT).Info("Device attached", "device", name, "policy", policyName, "session", session.ID())
	return nil
}

// Devices returns the attached device names in sorted order.
func (h *Host) Devices() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.devices))
	for name := range h.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lock returns the named device with its lock held. The caller must unlock it.
func (h *Host) lock(name string) (*device, error) {
	h.mu.RLock()
	d, ok := h.devices[name]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
	}
	d.mu.Lock()
	if d.detached {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
	}
	return d, nil
}

// Submit creates a request, admits it to the device's session and applies the merge heuristic.
// It returns the pending request now carrying the submitted range, which differs from the new request when that was
// absorbed into its successor.
func (h *Host) Submit(name string, dir types.Direction, start, end uint64) (*types.Request, error) {
	d, err := h.lock(name)
	if err != nil {
		return nil, err
	}
	defer d.mu.Unlock()

	req, err := h.table.New(dir, start, end)
	if err != nil {
		return nil, err
	}
	if err := d.session.Admit(req); err != nil {
		if _, relErr := h.table.Release(req.ID); relErr != nil {
			h.logger.Error(relErr, "Failed to release rejected request", "request", req)
		}
		return nil, err
	}
	if h.opts.DisableMerge {
		return req, nil
	}
	return h.mergeNeighbors(d, req)
}

// mergeNeighbors folds same-direction contiguous neighbors together without changing any pending end position.
func (h *Host) mergeNeighbors(d *device, req *types.Request) (*types.Request, error) {
	prev, err := d.session.NeighborBefore(req)
	if err != nil {
		return nil, err
	}
	if prev != nil && prev.Direction == req.Direction && prev.Contiguous(req) {
		if err := h.merge(d, req, prev); err != nil {
			return nil, err
		}
	}

	next, err := d.session.NeighborAfter(req)
	if err != nil {
		return nil, err
	}
	if next != nil && next.Direction == req.Direction && req.Contiguous(next) {
		if err := h.merge(d, next, req); err != nil {
			return nil, err
		}
		return next, nil
	}
	return req, nil
}

// merge notifies the session before either request is modified.
func (h *Host) merge(d *device, primary, absorbed *types.Request) error {
	if err := d.session.MergeAdjacent(primary, absorbed); err != nil {
		return err
	}
	primary.Start = min(primary.Start, absorbed.Start)
	if err := h.table.Absorb(primary.ID, absorbed.ID); err != nil {
		return err
	}
	metrics.RecordMerged(d.policy, d.name)
	h.logger.V(logutil.TRACE).Info("Requests merged", "device", d.name, "primary", primary, "absorbed", absorbed)
	return nil
}

// Pull asks the device's session for its next request. The request is placed in the device's dispatch list. Returns
// (nil, nil) when nothing is pending.
func (h *Host) Pull(name string, force bool) (*types.Request, error) {
	d, err := h.lock(name)
	if err != nil {
		return nil, err
	}
	defer d.mu.Unlock()
	return d.session.DispatchNext(force)
}

// Complete retires the in-flight request with the lowest start position and releases it from the request table.
func (h *Host) Complete(name string) (*types.Request, error) {
	d, err := h.lock(name)
	if err != nil {
		return nil, err
	}
	defer d.mu.Unlock()

	req, inFlight, ok := d.dispatch.PopFront()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNothingInFlight, name)
	}
	if _, err := h.table.Release(req.ID); err != nil {
		return nil, err
	}
	metrics.RecordCompletionLatency(d.policy, d.name, inFlight)
	return req, nil
}

// Pending returns the device's pending requests in dispatch order.
func (h *Host) Pending(name string) ([]*types.Request, error) {
	d, err := h.lock(name)
	if err != nil {
		return nil, err
	}
	defer d.mu.Unlock()
	return d.session.Pending(), nil
}

// InFlight returns the device's dispatched requests in issue order.
func (h *Host) InFlight(name string) ([]*types.Request, error) {
	d, err := h.lock(name)
	if err != nil {
		return nil, err
	}
	defer d.mu.Unlock()
	return d.dispatch.Snapshot(), nil
}

// DrainAndDetach moves the device's session to Draining, force-dispatches everything still pending, destroys the
// session and detaches the device. It returns the requests dispatched during the drain, in dispatch order. In-flight
// requests stay owned by the caller through the returned slice and the request table.
func (h *Host) DrainAndDetach(name string) ([]*types.Request, error) {
	d, err := h.lock(name)
	if err != nil {
		return nil, err
	}
	defer d.mu.Unlock()

	if err := d.session.BeginDrain(); err != nil {
		return nil, err
	}
	var drained []*types.Request
	for {
		req, err := d.session.DispatchNext(true)
		if err != nil {
			return drained, err
		}
		if req == nil {
			break
		}
		drained = append(drained, req)
	}
	if err := d.session.Destroy(); err != nil {
		return drained, err
	}

	d.detached = true
	h.mu.Lock()
	delete(h.devices, name)
	h.mu.Unlock()
	if f, ok := h.opts.Sink.(deviceForgetter); ok {
		f.Forget(d.policy, name)
	}
	h.logger.V(logutil.DEFAULT).Info("Device detached", "device", name, "drained", len(drained),
		"inFlight", d.dispatch.Len())
	return drained, nil
}

// Shutdown drains and detaches every attached device concurrently. It returns the number of requests dispatched
// while draining. Devices that fail stay attached and their errors are joined.
func (h *Host) Shutdown(ctx context.Context) (int, error) {
	var (
		mu      sync.Mutex
		drained int
		errs    []error
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range h.Devices() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reqs, err := h.DrainAndDetach(name)
			mu.Lock()
			defer mu.Unlock()
			drained += len(reqs)
			if err != nil {
				errs = append(errs, fmt.Errorf("device %q: %w", name, err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	h.logger.V(logutil.DEFAULT).Info("Host shut down", "drained", drained, "remaining", len(h.Devices()))
	return drained, errors.Join(errs...)
}
