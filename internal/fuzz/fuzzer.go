package fuzz

import (
	"math/rand"

	"github.com/fewrick/jpamb/internal/abstract"
	"github.com/fewrick/jpamb/internal/frame"
	"github.com/fewrick/jpamb/internal/heap"
	"github.com/fewrick/jpamb/internal/hint"
	"github.com/fewrick/jpamb/internal/interp"
	"github.com/fewrick/jpamb/internal/opcode"
	"github.com/fewrick/jpamb/internal/suite"
	"github.com/fewrick/jpamb/internal/value"
)

// Result is the outcome of one fuzz campaign against a single method.
type Result struct {
	Method        opcode.MethodID
	Iterations    int
	Outcomes      map[interp.Outcome]int
	Covered       map[string]bool
	TotalOffsets  int
	StalledOut    bool
	FullCoverage  bool
	CorpusSamples [][]value.Value
}

// Fuzzer drives one coverage-guided campaign against a resolved method.
// It only ever talks to internal/interp, internal/abstract, internal/hint
// and internal/suite; persistence and live reporting are plugged in as
// Sinks by the caller.
type Fuzzer struct {
	cfg    Config
	code   *suite.Cache
	method opcode.MethodID
	ip     *interp.Interp
	ab     *abstract.Interp
	rng    *rand.Rand
	sinks  []Sink
}

func New(code *suite.Cache, method opcode.MethodID, cfg Config, sinks ...Sink) *Fuzzer {
	return &Fuzzer{
		cfg:    cfg,
		code:   code,
		method: method,
		ip:     interp.New(code),
		ab:     abstract.New(code),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		sinks:  sinks,
	}
}

// Run executes the campaign: seed from static hints, then generate and
// mutate inputs guided by edge coverage until a stall, an iteration cap,
// or full coverage of the entry method stops it (§4.I).
func (f *Fuzzer) Run() (Result, error) {
	code, err := f.code.Code(f.method)
	if err != nil {
		return Result{}, err
	}
	offsets, err := f.code.Offsets(f.method)
	if err != nil {
		return Result{}, err
	}

	biases := computeBias(f.ab, f.method, f.cfg.Budget)
	extracted := hint.Extract(code, len(f.method.Params))
	seeds := hint.GenerateValues(f.method.Params, extracted)

	queue := make([][]value.Value, len(seeds))
	copy(queue, seeds)

	var corpus [][]value.Value
	r := Result{
		Method:       f.method,
		Outcomes:     make(map[interp.Outcome]int),
		Covered:      make(map[string]bool),
		TotalOffsets: len(offsets),
	}

	entryPrefix := f.method.Key() + "@"
	entryCovered := make(map[string]bool)

	stall := 0
	for r.Iterations < f.cfg.MaxIterations {
		args := f.next(&queue, corpus, biases)

		outcome, trace, err := f.runOne(args)
		if err != nil {
			return r, err
		}
		r.Iterations++
		r.Outcomes[outcome]++

		newCoverage := false
		for _, pc := range trace {
			if !r.Covered[pc] {
				r.Covered[pc] = true
				newCoverage = true
			}
			if len(pc) > len(entryPrefix) && pc[:len(entryPrefix)] == entryPrefix {
				entryCovered[pc] = true
			}
		}

		for _, sink := range f.sinks {
			sink.Iteration(r.Iterations, encodeTuple(args), outcome, newCoverage, len(r.Covered))
		}

		if newCoverage {
			stall = 0
			corpus = append(corpus, args)
			if len(corpus) > 256 {
				corpus = corpus[1:]
			}
		} else {
			stall++
		}

		if len(offsets) > 0 && len(entryCovered) >= len(offsets) {
			r.FullCoverage = true
			break
		}
		if stall >= f.cfg.StallLimit {
			r.StalledOut = true
			break
		}
	}

	r.CorpusSamples = corpus
	for _, sink := range f.sinks {
		sink.Summary(r)
	}
	return r, nil
}

// next picks the next argument tuple to try: drain the static seed queue
// first, then — for a non-empty corpus on a single-parameter method — with
// probability mutation_rate mutate a known-interesting corpus entry, else
// generate a fresh tuple from scratch (§4.I).
func (f *Fuzzer) next(queue *[][]value.Value, corpus [][]value.Value, biases []intBias) []value.Value {
	if len(*queue) > 0 {
		args := (*queue)[0]
		*queue = (*queue)[1:]
		return args
	}
	if len(f.method.Params) == 1 && len(corpus) > 0 && f.rng.Float64() < f.cfg.MutationRate {
		base := corpus[f.rng.Intn(len(corpus))]
		return mutateTuple(f.rng, base, biases, f.cfg)
	}
	return randomTuple(f.rng, f.method.Params, biases, f.cfg)
}

func (f *Fuzzer) runOne(args []value.Value) (interp.Outcome, []string, error) {
	h := heap.New()
	bound := make([]value.Value, len(args))
	for i, a := range args {
		bound[i] = h.BindArgument(a)
	}
	fs := &frame.Frames{}
	fs.Push(interp.NewFrame(f.method, bound))
	st := &interp.State{Heap: h, Frames: fs}
	return f.ip.Run(st, f.cfg.Budget)
}

func encodeTuple(args []value.Value) string {
	s := "("
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += a.Encode()
	}
	return s + ")"
}
