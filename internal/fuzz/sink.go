package fuzz

import "github.com/fewrick/jpamb/internal/interp"

// Sink receives fuzz progress as it happens. The core loop never imports
// a concrete sink implementation (store, dashboard) directly; the CLI
// layer wires those in at construction time, keeping the loop free of
// persistence or transport concerns.
type Sink interface {
	Iteration(index int, args string, outcome interp.Outcome, newCoverage bool, coveredCount int)
	Summary(r Result)
}
