package fuzz

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/fewrick/jpamb/internal/interp"
	"github.com/fewrick/jpamb/internal/opcode"
	"github.com/fewrick/jpamb/internal/suite"
	"github.com/fewrick/jpamb/internal/value"
)

type fixedResolver map[string][]opcode.Instruction

func (r fixedResolver) Resolve(m opcode.MethodID) ([]opcode.Instruction, error) {
	code, ok := r[m.Key()]
	if !ok {
		return nil, notFoundErr{}
	}
	return code, nil
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "not found" }

func divideMethod() (opcode.MethodID, fixedResolver) {
	m, _ := opcode.ParseMethodID("a.B.m:(II)I")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpLoad, Type: value.TypeInt, Index: 0},
			{Op: opcode.OpLoad, Type: value.TypeInt, Index: 1},
			{Op: opcode.OpBinary, Type: value.TypeInt, BinOp: opcode.Div},
			{Op: opcode.OpReturn, Type: value.TypeInt},
		},
	}
	return m, code
}

func TestRunReachesFullCoverage(t *testing.T) {
	m, code := divideMethod()
	cfg := DefaultConfig()
	cfg.MaxIterations = 50
	f := New(suite.New(code), m, cfg)
	r, err := f.Run()
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if r.Iterations == 0 {
		t.Fatal("Iterations = 0, want at least one run")
	}
	if !r.FullCoverage {
		t.Fatalf("FullCoverage = false after %d iterations, want true for a 4-instruction method", r.Iterations)
	}
	total := 0
	for _, n := range r.Outcomes {
		total += n
	}
	if total != r.Iterations {
		t.Fatalf("outcome counts sum to %d, want %d", total, r.Iterations)
	}
}

func TestRunFindsDivideByZero(t *testing.T) {
	m, code := divideMethod()
	cfg := DefaultConfig()
	cfg.MaxIterations = 200
	cfg.Seed = 7
	f := New(suite.New(code), m, cfg)
	r, err := f.Run()
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	// The hint seeds are drained first and the first of them is (0, 0).
	if r.Outcomes[interp.DivideByZero] == 0 {
		t.Fatalf("outcomes = %v, want at least one divide by zero", r.Outcomes)
	}
}

func TestStallLimitStopsLoop(t *testing.T) {
	// Offset 2 is unreachable, so full coverage never ends the loop and
	// every run after the first adds no new coverage.
	m, _ := opcode.ParseMethodID("a.B.m:(I)I")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpLoad, Type: value.TypeInt, Index: 0},
			{Op: opcode.OpReturn, Type: value.TypeInt},
			{Op: opcode.OpPush, Value: value.Int(0)},
		},
	}
	cfg := DefaultConfig()
	cfg.MaxIterations = 10000
	cfg.StallLimit = 5
	f := New(suite.New(code), m, cfg)
	r, err := f.Run()
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !r.StalledOut || r.FullCoverage || r.Iterations >= cfg.MaxIterations {
		t.Fatalf("StalledOut = %v, FullCoverage = %v after %d iterations, want a stall before the cap", r.StalledOut, r.FullCoverage, r.Iterations)
	}
}

func TestRandomAndMutateProduceRightArity(t *testing.T) {
	m, code := divideMethod()
	cfg := DefaultConfig()
	f := New(suite.New(code), m, cfg)
	tup := randomTuple(f.rng, m.Params, nil, cfg)
	if len(tup) != 2 {
		t.Fatalf("len(tup) = %d, want 2", len(tup))
	}
	mutated := mutateTuple(f.rng, tup, nil, cfg)
	if len(mutated) != 2 {
		t.Fatalf("len(mutated) = %d, want 2", len(mutated))
	}
}

func TestJitterStaysWithinTenAndCanHitEveryOffset(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seen := map[int32]bool{}
	for i := 0; i < 2000; i++ {
		d := jitter(rng, 100, intBias{}) - 100
		if d < -10 || d > 10 {
			t.Fatalf("jitter delta %d out of ±10 range", d)
		}
		seen[d] = true
	}
	for want := int32(-10); want <= 10; want++ {
		if !seen[want] {
			t.Fatalf("jitter never produced delta %d across 2000 draws", want)
		}
	}
}

func TestMutateStringCapsLengthAndAlphabet(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	s := ""
	for i := 0; i < 2000; i++ {
		s = mutateString(rng, s)
		if len(s) > maxMutatedStringLen {
			t.Fatalf("mutateString produced length %d, want <= %d", len(s), maxMutatedStringLen)
		}
	}
	for _, r := range s {
		if !strings.ContainsRune(stringChars, r) {
			t.Fatalf("mutateString produced out-of-alphabet rune %q", r)
		}
	}
}

func TestConfigNumericRangeAndLengthsAreHonored(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	cfg := DefaultConfig()
	cfg.NumericRange = 5
	cfg.MaxStringLen = 4
	cfg.MaxArrayLen = 2
	elemType := value.Type{Kind: value.KInt}
	arrType := value.Type{Kind: value.KArray, Elem: &elemType}
	for i := 0; i < 500; i++ {
		v := randomValue(rng, value.Type{Kind: value.KInt}, intBias{}, 3, cfg)
		if n := v.AsInt(); n < -5 || n > 5 {
			t.Fatalf("randomValue ignored NumericRange: got %d", n)
		}
		s := randomValue(rng, value.Type{Kind: value.KString}, intBias{}, 3, cfg)
		if n := len([]rune(s.Encode())); n > cfg.MaxStringLen+2 {
			t.Fatalf("randomValue ignored MaxStringLen: got length %d", n)
		}
		a := randomValue(rng, arrType, intBias{}, 3, cfg)
		elems, _ := a.Raw.([]value.Value)
		if len(elems) > cfg.MaxArrayLen {
			t.Fatalf("randomValue ignored MaxArrayLen: got %d elements", len(elems))
		}
	}
}
