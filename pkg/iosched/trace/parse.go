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

// Package trace parses request traces and replays them through a host.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/clookd/iosched/pkg/iosched/types"
)

// ErrMalformedLine is returned for any line that is not a recognized operation.
var ErrMalformedLine = errors.New("malformed trace line")

// OpKind identifies a trace operation.
type OpKind int

const (
	OpSubmit OpKind = iota
	OpPull
	OpComplete
)

func (k OpKind) String() string {
	switch k {
	case OpSubmit:
		return "submit"
	case OpPull:
		return "pull"
	case OpComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Op is a single parsed trace line. Direction, Start and End are only set for OpSubmit.
type Op struct {
	Line      int
	Kind      OpKind
	Device    string
	Direction types.Direction
	Start     uint64
	End       uint64
}

// Parse reads a trace from r.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		op, err := parseFields(fields)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrMalformedLine, line, err)
		}
		op.Line = line
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	return ops, nil
}

func parseFields(fields []string) (Op, error) {
	op := Op{Device: fields[0]}
	switch {
	case len(fields) == 2 && fields[1] == "pull":
		op.Kind = OpPull
		return op, nil
	case len(fields) == 2 && fields[1] == "complete":
		op.Kind = OpComplete
		return op, nil
	case len(fields) != 4:
		return op, fmt.Errorf("expected <device> <R|W> <start> <end>, got %d fields", len(fields))
	}

	dir, err := types.ParseDirection(fields[1])
	if err != nil {
		return op, err
	}
	start, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return op, fmt.Errorf("invalid start: %w", err)
	}
	end, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return op, fmt.Errorf("invalid end: %w", err)
	}
	if end < start {
		return op, fmt.Errorf("%w: start %d, end %d", types.ErrInvalidRange, start, end)
	}
	op.Kind = OpSubmit
	op.Direction = dir
	op.Start = start
	op.End = end
	return op, nil
}
