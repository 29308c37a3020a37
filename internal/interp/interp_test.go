package interp

import (
	"testing"

	"github.com/fewrick/jpamb/internal/frame"
	"github.com/fewrick/jpamb/internal/heap"
	"github.com/fewrick/jpamb/internal/opcode"
	"github.com/fewrick/jpamb/internal/suite"
	"github.com/fewrick/jpamb/internal/value"
)

type fixedResolver map[string][]opcode.Instruction

func (r fixedResolver) Resolve(m opcode.MethodID) ([]opcode.Instruction, error) {
	code, ok := r[m.Key()]
	if !ok {
		return nil, errNotFound
	}
	return code, nil
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "not found" }

var errNotFound = notFoundErr{}

func newState(locals map[int]value.Value, method string) *State {
	h := heap.New()
	fs := &frame.Frames{}
	fs.Push(frame.New(method, locals))
	return &State{Heap: h, Frames: fs}
}

func TestRunDivideByZero(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.m:(II)I")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpLoad, Type: value.TypeInt, Index: 0},
			{Op: opcode.OpLoad, Type: value.TypeInt, Index: 1},
			{Op: opcode.OpBinary, Type: value.TypeInt, BinOp: opcode.Div},
			{Op: opcode.OpReturn, Type: value.TypeInt},
		},
	}
	ip := New(suite.New(code))
	st := newState(map[int]value.Value{0: value.Int(10), 1: value.Int(0)}, m.Key())

	outcome, trace, err := ip.Run(st, 1000)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != DivideByZero {
		t.Fatalf("outcome = %q, want divide by zero", outcome)
	}
	if len(trace) != 3 {
		t.Fatalf("trace = %v, want 3 entries", trace)
	}
}

func TestRunOkReturn(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.m:(I)I")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpLoad, Type: value.TypeInt, Index: 0},
			{Op: opcode.OpReturn, Type: value.TypeInt},
		},
	}
	ip := New(suite.New(code))
	st := newState(map[int]value.Value{0: value.Int(3)}, m.Key())

	outcome, _, err := ip.Run(st, 1000)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != Ok {
		t.Fatalf("outcome = %q, want ok", outcome)
	}
}

func TestRunBudgetExhausted(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.loop:()V")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpGoto, Target: 0},
		},
	}
	ip := New(suite.New(code))
	st := newState(map[int]value.Value{}, m.Key())

	outcome, _, err := ip.Run(st, 10)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != Budget {
		t.Fatalf("outcome = %q, want *", outcome)
	}
}

func TestRunNullPointerArrayLoad(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.m:([I)I")
	arrType := value.Array(value.TypeInt)
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpLoad, Type: arrType, Index: 0},
			{Op: opcode.OpPush, Value: value.Int(0)},
			{Op: opcode.OpArrayLoad, Type: value.TypeInt},
			{Op: opcode.OpReturn, Type: value.TypeInt},
		},
	}
	ip := New(suite.New(code))
	st := newState(map[int]value.Value{0: value.NullRef(arrType)}, m.Key())

	outcome, _, err := ip.Run(st, 1000)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != NullPointer {
		t.Fatalf("outcome = %q, want null pointer", outcome)
	}
}

func TestRunOutOfBoundsArrayStore(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.m:()V")
	arrType := value.Array(value.TypeInt)
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpPush, Value: value.Int(2), Type: value.TypeInt},
			{Op: opcode.OpNewArray, Type: value.TypeInt},
			{Op: opcode.OpStore, Index: 0},
			{Op: opcode.OpLoad, Type: arrType, Index: 0},
			{Op: opcode.OpPush, Value: value.Int(5)},
			{Op: opcode.OpPush, Value: value.Int(1)},
			{Op: opcode.OpArrayStore, Type: value.TypeInt},
			{Op: opcode.OpReturn, Void: true},
		},
	}
	ip := New(suite.New(code))
	st := newState(map[int]value.Value{}, m.Key())

	outcome, _, err := ip.Run(st, 1000)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != OutOfBounds {
		t.Fatalf("outcome = %q, want out of bounds", outcome)
	}
}

func TestRunNegativeArraySize(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.m:()V")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpPush, Value: value.Int(-1)},
			{Op: opcode.OpNewArray, Type: value.TypeInt},
			{Op: opcode.OpReturn, Void: true},
		},
	}
	ip := New(suite.New(code))
	st := newState(map[int]value.Value{}, m.Key())

	outcome, _, err := ip.Run(st, 1000)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != NegativeArraySize {
		t.Fatalf("outcome = %q, want negative array size", outcome)
	}
}

func TestRunThrowIsAssertionError(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.m:()V")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpNew, ClassName: "java.lang.AssertionError"},
			{Op: opcode.OpThrow},
		},
	}
	ip := New(suite.New(code))
	st := newState(map[int]value.Value{}, m.Key())

	outcome, _, err := ip.Run(st, 1000)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != AssertionError {
		t.Fatalf("outcome = %q, want assertion error", outcome)
	}
}

func TestRunStringReturn(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.m:()Ljava/lang/String;")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpPush, Value: value.RawString("hi")},
			{Op: opcode.OpReturn, Type: value.TypeString},
		},
	}
	ip := New(suite.New(code))
	st := newState(map[int]value.Value{}, m.Key())

	outcome, _, err := ip.Run(st, 1000)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != Outcome("hi") {
		t.Fatalf("outcome = %q, want hi", outcome)
	}
}

func TestCastToShortWraps(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.m:()V")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpPush, Value: value.Int(40000)},
			{Op: opcode.OpCast},
			{Op: opcode.OpReturn, Void: true},
		},
	}
	ip := New(suite.New(code))
	st := newState(map[int]value.Value{}, m.Key())

	outcome, _, err := ip.Run(st, 1000)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != Ok {
		t.Fatalf("outcome = %q, want ok", outcome)
	}
	if got := toShort(40000); got != -25536 {
		t.Fatalf("toShort(40000) = %d, want -25536", got)
	}
}

func TestIfzNullCheck(t *testing.T) {
	m, _ := opcode.ParseMethodID("a.B.m:(Ljava/lang/String;)I")
	code := fixedResolver{
		m.Key(): {
			{Op: opcode.OpLoad, Type: value.TypeString, Index: 0},
			{Op: opcode.OpIfz, Cond: opcode.Is, Target: 4},
			{Op: opcode.OpPush, Value: value.Int(1)},
			{Op: opcode.OpReturn, Type: value.TypeInt},
			{Op: opcode.OpPush, Value: value.Int(0)},
			{Op: opcode.OpReturn, Type: value.TypeInt},
		},
	}
	ip := New(suite.New(code))
	st := newState(map[int]value.Value{0: value.NullRef(value.TypeString)}, m.Key())

	outcome, _, err := ip.Run(st, 1000)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != Ok {
		t.Fatalf("outcome = %q, want ok", outcome)
	}
}
