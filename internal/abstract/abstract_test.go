package abstract

import (
	"errors"
	"testing"

	"github.com/fewrick/jpamb/internal/interp"
	"github.com/fewrick/jpamb/internal/opcode"
	"github.com/fewrick/jpamb/internal/sign"
	"github.com/fewrick/jpamb/internal/suite"
	"github.com/fewrick/jpamb/internal/value"
)

type fixedResolver map[string][]opcode.Instruction

func (r fixedResolver) Resolve(m opcode.MethodID) ([]opcode.Instruction, error) {
	code, ok := r[m.Key()]
	if !ok {
		return nil, errors.New("not found")
	}
	return code, nil
}

func TestRunAllDivideByZeroPossible(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.m:(II)I")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpLoad, Type: value.TypeInt, Index: 0},
			{Op: opcode.OpLoad, Type: value.TypeInt, Index: 1},
			{Op: opcode.OpBinary, Type: value.TypeInt, BinOp: opcode.Div},
			{Op: opcode.OpReturn, Type: value.TypeInt},
		},
	}
	ab := New(suite.New(code))
	locals := map[int]AValue{
		0: FromSigns(value.KInt, sign.NewSet(sign.Pos)),
		1: FromSigns(value.KInt, sign.NewSet(sign.Zero, sign.Pos)),
	}
	initial := &AState{Frames: []*AFrame{NewFrame(m.Key(), locals)}}

	results, err := ab.RunAll(initial, 100)
	if err != nil {
		t.Fatalf("RunAll error: %v", err)
	}
	if !results[interp.DivideByZero] {
		t.Fatalf("results = %v, want divide by zero reachable", results)
	}
	if !results[interp.Ok] {
		t.Fatalf("results = %v, want ok reachable (divisor could also be +)", results)
	}
}

func TestRunAllBranchesBothWays(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.m:(I)I")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpLoad, Type: value.TypeInt, Index: 0},
			{Op: opcode.OpIfz, Cond: opcode.Gt, Target: 4},
			{Op: opcode.OpPush, Value: value.Int(0)},
			{Op: opcode.OpReturn, Type: value.TypeInt},
			{Op: opcode.OpPush, Value: value.Int(1)},
			{Op: opcode.OpReturn, Type: value.TypeInt},
		},
	}
	ab := New(suite.New(code))
	locals := map[int]AValue{
		0: FromSigns(value.KInt, sign.NewSet(sign.Neg, sign.Pos)),
	}
	initial := &AState{Frames: []*AFrame{NewFrame(m.Key(), locals)}}

	results, err := ab.RunAll(initial, 100)
	if err != nil {
		t.Fatalf("RunAll error: %v", err)
	}
	if !results[interp.Ok] {
		t.Fatalf("results = %v, want ok reachable", results)
	}
	if len(results) != 1 {
		t.Fatalf("results = %v, want only ok (both branches return ok in this harness)", results)
	}
}

func TestRunAllNegativeArraySize(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.m:(I)V")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpLoad, Type: value.TypeInt, Index: 0},
			{Op: opcode.OpNewArray, Type: value.TypeInt},
			{Op: opcode.OpReturn, Void: true},
		},
	}
	ab := New(suite.New(code))
	locals := map[int]AValue{
		0: FromSigns(value.KInt, sign.NewSet(sign.Neg)),
	}
	initial := &AState{Frames: []*AFrame{NewFrame(m.Key(), locals)}}

	results, err := ab.RunAll(initial, 100)
	if err != nil {
		t.Fatalf("RunAll error: %v", err)
	}
	if !results[interp.NegativeArraySize] {
		t.Fatalf("results = %v, want negative array size", results)
	}
	if len(results) != 1 {
		t.Fatalf("results = %v, want only negative array size", results)
	}
}

func TestRunAllBudgetExhausted(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.loop:()V")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpGoto, Target: 0},
		},
	}
	ab := New(suite.New(code))
	initial := &AState{Frames: []*AFrame{NewFrame(m.Key(), map[int]AValue{})}}

	results, err := ab.RunAll(initial, 10)
	if err != nil {
		t.Fatalf("RunAll error: %v", err)
	}
	if !results[interp.Budget] {
		t.Fatalf("results = %v, want budget exhausted", results)
	}
}

func TestRunAllThrowIsAssertionError(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.m:()V")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpNew, ClassName: "java.lang.AssertionError"},
			{Op: opcode.OpThrow},
		},
	}
	ab := New(suite.New(code))
	initial := &AState{Frames: []*AFrame{NewFrame(m.Key(), map[int]AValue{})}}

	results, err := ab.RunAll(initial, 100)
	if err != nil {
		t.Fatalf("RunAll error: %v", err)
	}
	if !results[interp.AssertionError] {
		t.Fatalf("results = %v, want assertion error", results)
	}
}
