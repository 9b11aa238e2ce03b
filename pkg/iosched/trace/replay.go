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

package trace

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/clookd/iosched/pkg/iosched/host"
	"github.com/clookd/iosched/pkg/iosched/types"
	logutil "github.com/clookd/iosched/pkg/iosched/util/logging"
)

// Dispatch is one entry of the replayed dispatch order.
type Dispatch struct {
	Device  string
	Request *types.Request
}

func (d Dispatch) String() string {
	return fmt.Sprintf("%s %s %d %d", d.Device, d.Request.Direction.Letter(), d.Request.Start, d.Request.End)
}

// Replay applies ops to h in order, attaching devices to policy on first use. Afterwards every device is drained
// and detached. It returns all dispatches in the order they happened.
func Replay(ctx context.Context, h *host.Host, policy string, ops []Op) ([]Dispatch, error) {
	logger := log.FromContext(ctx).WithName("replay")
	var (
		out      []Dispatch
		devices  []string
		attached = make(map[string]bool)
	)

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if !attached[op.Device] {
			if err := h.AttachDevice(op.Device, policy); err != nil {
				return out, fmt.Errorf("line %d: %w", op.Line, err)
			}
			attached[op.Device] = true
			devices = append(devices, op.Device)
		}

		switch op.Kind {
		case OpSubmit:
			if _, err := h.Submit(op.Device, op.Direction, op.Start, op.End); err != nil {
				return out, fmt.Errorf("line %d: %w", op.Line, err)
			}
		case OpPull:
			req, err := h.Pull(op.Device, false)
			if err != nil {
				return out, fmt.Errorf("line %d: %w", op.Line, err)
			}
			if req == nil {
				logger.V(logutil.DEBUG).Info("Pull on idle device", "device", op.Device, "line", op.Line)
				continue
			}
			out = append(out, Dispatch{Device: op.Device, Request: req})
		case OpComplete:
			if _, err := h.Complete(op.Device); err != nil {
				return out, fmt.Errorf("line %d: %w", op.Line, err)
			}
		}
	}

	for _, name := range devices {
		drained, err := h.DrainAndDetach(name)
		for _, req := range drained {
			out = append(out, Dispatch{Device: name, Request: req})
		}
		if err != nil {
			return out, fmt.Errorf("failed to drain device %q: %w", name, err)
		}
	}
	logger.V(logutil.VERBOSE).Info("Trace replayed", "ops", len(ops), "devices", len(devices), "dispatched", len(out))
	return out, nil
}
