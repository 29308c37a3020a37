// Package commands implements the jpamb subcommands, one file per
// command.
package commands

import (
	"fmt"
	"strings"

	"github.com/fewrick/jpamb/internal/frame"
	"github.com/fewrick/jpamb/internal/heap"
	"github.com/fewrick/jpamb/internal/interp"
	"github.com/fewrick/jpamb/internal/jerrors"
	"github.com/fewrick/jpamb/internal/opcode"
	"github.com/fewrick/jpamb/internal/suite"
	"github.com/fewrick/jpamb/internal/value"
)

// Run implements "jpamb run <methodid> <args>": one concrete interpretation,
// printing the two-line interpreter standard output of §6.
func Run(code *suite.Cache, args []string) error {
	if len(args) < 1 {
		return jerrors.NewUsageError("usage: jpamb run <methodid> [args]")
	}
	m, err := opcode.ParseMethodID(args[0])
	if err != nil {
		return jerrors.NewUsageError("%v", err)
	}

	tupleStr := "()"
	if len(args) > 1 {
		tupleStr = strings.Join(args[1:], " ")
	}
	values, err := value.ParseTuple(tupleStr)
	if err != nil {
		return jerrors.NewUsageError("%v", err)
	}
	if len(values) != len(m.Params) {
		return jerrors.NewUsageError("%s takes %d argument(s), got %d", m, len(m.Params), len(values))
	}

	h := heap.New()
	bound := make([]value.Value, len(values))
	for i, v := range values {
		bound[i] = h.BindArgument(v)
	}
	fs := &frame.Frames{}
	fs.Push(interp.NewFrame(m, bound))
	st := &interp.State{Heap: h, Frames: fs}

	ip := interp.New(code)
	outcome, trace, err := ip.Run(st, 1000)
	if err != nil {
		return err
	}

	fmt.Println(string(outcome))
	fmt.Println(strings.Join(entryOffsets(m, trace), ","))
	return nil
}

// entryOffsets narrows a run's full "method@offset" trace (which spans
// every frame the run ever pushed) down to the bare decimal offsets of
// the entry method itself, matching the §6 standard-output format.
func entryOffsets(m opcode.MethodID, trace []string) []string {
	prefix := m.Key() + "@"
	offsets := make([]string, 0, len(trace))
	for _, pc := range trace {
		if strings.HasPrefix(pc, prefix) {
			offsets = append(offsets, pc[len(prefix):])
		}
	}
	return offsets
}
