package abstract

import (
	"fmt"

	"github.com/fewrick/jpamb/internal/interp"
	"github.com/fewrick/jpamb/internal/jerrors"
	"github.com/fewrick/jpamb/internal/opcode"
	"github.com/fewrick/jpamb/internal/sign"
	"github.com/fewrick/jpamb/internal/suite"
	"github.com/fewrick/jpamb/internal/value"
)

// Interp drives the abstract step function. Like interp.Interp, it is
// immutable configuration shared across runs.
type Interp struct {
	Code     *suite.Cache
	Classify interp.ThrowClassifier
}

func New(code *suite.Cache) *Interp {
	return &Interp{Code: code, Classify: interp.DefaultThrowClassifier}
}

func NewEntryFrame(method opcode.MethodID, args []AValue) *AFrame {
	locals := make(map[int]AValue, len(args))
	for i, a := range args {
		locals[i] = a
	}
	return NewFrame(method.Key(), locals)
}

func mustParseMethod(key string) opcode.MethodID {
	m, err := opcode.ParseMethodID(key)
	if err != nil {
		panic(jerrors.NewImplementationBug(key, 0, "corrupt method key: "+err.Error()))
	}
	return m
}

// Step executes the instruction at the top frame's PC, returning every
// successor state the non-determinism of the sign abstraction admits
// (§4.F: a step can yield zero, one, or two successor states) plus any
// terminal outcomes reached directly.
func (ab *Interp) Step(st *AState) ([]*AState, []interp.Outcome, error) {
	top, ok := st.Top()
	if !ok {
		return nil, nil, jerrors.NewImplementationBug("", 0, "abstract step with no active frame")
	}
	pc := top.PC
	instr, err := ab.Code.Lookup(mustParseMethod(pc.Method), pc.Offset)
	if err != nil {
		return nil, nil, err
	}

	switch instr.Op {
	case opcode.OpPush:
		return ab.stepPush(st, top, instr)
	case opcode.OpLoad:
		return ab.stepLoad(st, top, instr)
	case opcode.OpStore:
		v, err := top.Pop()
		if err != nil {
			return nil, nil, err
		}
		top.Store(instr.Index, v)
		return oneSuccessor(st, advance(top)), nil, nil
	case opcode.OpBinary:
		return ab.stepBinary(st, top, instr)
	case opcode.OpCompareFloating:
		return ab.stepCompareFloating(st, top)
	case opcode.OpIfz:
		return ab.stepIfz(st, top, instr)
	case opcode.OpIf:
		return ab.stepIf(st, top, instr)
	case opcode.OpGoto:
		top.PC.Offset = instr.Target
		return oneSuccessor(st, true), nil, nil
	case opcode.OpIncr:
		v, err := top.Load(instr.Index)
		if err != nil {
			return nil, nil, err
		}
		top.Store(instr.Index, FromSigns(v.Kind, sign.Add(v.Signs, sign.Abstract([]int32{instr.Incr}))))
		return oneSuccessor(st, advance(top)), nil, nil
	case opcode.OpCast:
		v, err := top.Pop()
		if err != nil {
			return nil, nil, err
		}
		top.Push(FromSigns(value.KShort, v.Signs))
		return oneSuccessor(st, advance(top)), nil, nil
	case opcode.OpReturn:
		return ab.stepReturn(st, top, instr)
	case opcode.OpNew:
		top.Push(NewObject(instr.ClassName))
		return oneSuccessor(st, advance(top)), nil, nil
	case opcode.OpDup:
		v, err := top.Pop()
		if err != nil {
			return nil, nil, err
		}
		top.Push(v)
		top.Push(v)
		return oneSuccessor(st, advance(top)), nil, nil
	case opcode.OpInvokeStatic:
		return ab.stepInvokeStatic(st, top, instr)
	case opcode.OpInvokeSpecial:
		n := len(instr.Method.Params) + 1
		for i := 0; i < n; i++ {
			if _, err := top.Pop(); err != nil {
				return nil, nil, err
			}
		}
		return oneSuccessor(st, advance(top)), nil, nil
	case opcode.OpGet:
		if instr.Field == "$assertionsDisabled" {
			top.Push(FromSigns(value.KBoolean, sign.NewSet(sign.Zero)))
			return oneSuccessor(st, advance(top)), nil, nil
		}
		return nil, nil, jerrors.NewImplementationBug(pc.Method, pc.Offset,
			fmt.Sprintf("unsupported abstract static field %q", instr.Field))
	case opcode.OpThrow:
		v, err := top.Pop()
		if err != nil {
			return nil, nil, err
		}
		return nil, []interp.Outcome{ab.Classify(v.Class)}, nil
	case opcode.OpNewArray:
		return ab.stepNewArray(st, top)
	default:
		return nil, nil, jerrors.NewImplementationBug(pc.Method, pc.Offset,
			fmt.Sprintf("unsupported abstract opcode %s", instr.Op))
	}
}

// abstractOf classifies a concrete literal's sign, reading the payload
// from whichever field its kind actually uses (F for Float, I for
// everything else — Float values never populate I).
func abstractOf(v value.Value) sign.Set {
	if v.Type.Kind == value.KFloat {
		switch {
		case v.AsFloat() < 0:
			return sign.NewSet(sign.Neg)
		case v.AsFloat() > 0:
			return sign.NewSet(sign.Pos)
		default:
			return sign.NewSet(sign.Zero)
		}
	}
	return sign.Abstract([]int32{v.AsInt()})
}

func isReferenceKind(k value.Kind) bool {
	switch k {
	case value.KReference, value.KString, value.KArray, value.KObject:
		return true
	default:
		return false
	}
}

func advance(f *AFrame) bool {
	f.PC.Offset++
	return true
}

func oneSuccessor(st *AState, keep bool) []*AState {
	if !keep {
		return nil
	}
	return []*AState{st}
}

func (ab *Interp) stepPush(st *AState, top *AFrame, instr opcode.Instruction) ([]*AState, []interp.Outcome, error) {
	if instr.Value.Type.Kind == value.KString {
		if instr.Value.Raw == nil {
			top.Push(NullString())
		} else {
			s, _ := instr.Value.Raw.(string)
			top.Push(StringLiteral(s))
		}
	} else {
		top.Push(FromSigns(instr.Value.Type.Kind, abstractOf(instr.Value)))
	}
	return oneSuccessor(st, advance(top)), nil, nil
}

func (ab *Interp) stepLoad(st *AState, top *AFrame, instr opcode.Instruction) ([]*AState, []interp.Outcome, error) {
	v, err := top.Load(instr.Index)
	if err != nil {
		return nil, nil, err
	}
	if instr.Type.Kind == value.KReference || instr.Type.Kind == value.KObject || instr.Type.Kind == value.KArray {
		// A non-string reference load gives up precise modeling (§4.F):
		// the abstract interpreter reports it and stops exploring this
		// path further.
		return nil, []interp.Outcome{"string detected"}, nil
	}
	top.Push(v)
	return oneSuccessor(st, advance(top)), nil, nil
}

func (ab *Interp) stepBinary(st *AState, top *AFrame, instr opcode.Instruction) ([]*AState, []interp.Outcome, error) {
	v2, err := top.Pop()
	if err != nil {
		return nil, nil, err
	}
	v1, err := top.Pop()
	if err != nil {
		return nil, nil, err
	}

	var outcomes []interp.Outcome
	var states []*AState

	switch instr.BinOp {
	case opcode.Add:
		top.Push(FromSigns(instr.Type.Kind, sign.Add(v1.Signs, v2.Signs)))
		states = oneSuccessor(st, advance(top))
	case opcode.Sub:
		top.Push(FromSigns(instr.Type.Kind, sign.Subtract(v1.Signs, v2.Signs)))
		states = oneSuccessor(st, advance(top))
	case opcode.Mul:
		top.Push(FromSigns(instr.Type.Kind, sign.Multiply(v1.Signs, v2.Signs)))
		states = oneSuccessor(st, advance(top))
	case opcode.Div:
		quotient, mayZero := sign.Divide(v1.Signs, v2.Signs)
		if mayZero {
			outcomes = append(outcomes, interp.DivideByZero)
		}
		if !quotient.Empty() {
			top.Push(FromSigns(instr.Type.Kind, quotient))
			states = oneSuccessor(st, advance(top))
		}
	case opcode.Rem:
		remainder, mayZero := sign.Remainder(v1.Signs, v2.Signs)
		if mayZero {
			outcomes = append(outcomes, interp.DivideByZero)
		}
		if !remainder.Empty() {
			top.Push(FromSigns(instr.Type.Kind, remainder))
			states = oneSuccessor(st, advance(top))
		}
	default:
		return nil, nil, jerrors.NewImplementationBug(top.PC.Method, top.PC.Offset,
			fmt.Sprintf("unhandled abstract binary op %s", instr.BinOp))
	}
	return states, outcomes, nil
}

func (ab *Interp) stepCompareFloating(st *AState, top *AFrame) ([]*AState, []interp.Outcome, error) {
	v2, err := top.Pop()
	if err != nil {
		return nil, nil, err
	}
	v1, err := top.Pop()
	if err != nil {
		return nil, nil, err
	}
	out := sign.Set{}
	if sign.GreaterThan(v1.Signs, v2.Signs).Has(sign.True) {
		out[sign.Pos] = true
	}
	if sign.LessThan(v1.Signs, v2.Signs).Has(sign.True) {
		out[sign.Neg] = true
	}
	if sign.Equal(v1.Signs, v2.Signs).Has(sign.True) {
		out[sign.Zero] = true
	}
	top.Push(FromSigns(value.KInt, out))
	return oneSuccessor(st, advance(top)), nil, nil
}

func (ab *Interp) stepIfz(st *AState, top *AFrame, instr opcode.Instruction) ([]*AState, []interp.Outcome, error) {
	v, err := top.Pop()
	if err != nil {
		return nil, nil, err
	}

	var takenPossible, fallPossible bool
	switch instr.Cond {
	case opcode.Is, opcode.IsNot:
		if !isReferenceKind(v.Kind) {
			return nil, nil, jerrors.NewImplementationBug(top.PC.Method, top.PC.Offset,
				fmt.Sprintf("is/isnot operand of kind %s is not a reference", v.Kind))
		}
		if instr.Cond == opcode.Is {
			takenPossible, fallPossible = v.couldBeNull(), v.couldBeNonNull()
		} else {
			takenPossible, fallPossible = v.couldBeNonNull(), v.couldBeNull()
		}
	case opcode.Eq:
		r := sign.Equal(v.Signs, sign.NewSet(sign.Zero))
		takenPossible, fallPossible = r.Has(sign.True), r.Has(sign.False)
	case opcode.Ne:
		r := sign.NotEqual(v.Signs, sign.NewSet(sign.Zero))
		takenPossible, fallPossible = r.Has(sign.True), r.Has(sign.False)
	case opcode.Gt:
		r := sign.GreaterThan(v.Signs, sign.NewSet(sign.Zero))
		takenPossible, fallPossible = r.Has(sign.True), r.Has(sign.False)
	case opcode.Ge:
		r := sign.GreaterEqual(v.Signs, sign.NewSet(sign.Zero))
		takenPossible, fallPossible = r.Has(sign.True), r.Has(sign.False)
	case opcode.Lt:
		r := sign.LessThan(v.Signs, sign.NewSet(sign.Zero))
		takenPossible, fallPossible = r.Has(sign.True), r.Has(sign.False)
	case opcode.Le:
		r := sign.LessEqual(v.Signs, sign.NewSet(sign.Zero))
		takenPossible, fallPossible = r.Has(sign.True), r.Has(sign.False)
	default:
		return nil, nil, jerrors.NewImplementationBug(top.PC.Method, top.PC.Offset,
			fmt.Sprintf("unhandled abstract ifz condition %s", instr.Cond))
	}

	return branch(st, top, instr.Target, takenPossible, fallPossible), nil, nil
}

func (ab *Interp) stepIf(st *AState, top *AFrame, instr opcode.Instruction) ([]*AState, []interp.Outcome, error) {
	v2, err := top.Pop()
	if err != nil {
		return nil, nil, err
	}
	v1, err := top.Pop()
	if err != nil {
		return nil, nil, err
	}

	var result sign.Set
	switch instr.Cond {
	case opcode.Eq:
		result = sign.Equal(v1.Signs, v2.Signs)
	case opcode.Ne:
		result = sign.NotEqual(v1.Signs, v2.Signs)
	case opcode.Gt:
		result = sign.GreaterThan(v1.Signs, v2.Signs)
	case opcode.Ge:
		result = sign.GreaterEqual(v1.Signs, v2.Signs)
	case opcode.Lt:
		result = sign.LessThan(v1.Signs, v2.Signs)
	case opcode.Le:
		result = sign.LessEqual(v1.Signs, v2.Signs)
	default:
		return nil, nil, jerrors.NewImplementationBug(top.PC.Method, top.PC.Offset,
			fmt.Sprintf("unhandled abstract if condition %s", instr.Cond))
	}

	return branch(st, top, instr.Target, result.Has(sign.True), result.Has(sign.False)), nil, nil
}

// branch produces the successor states for a conditional instruction:
// a taken-branch clone (PC set to target) when the condition could hold,
// a fallthrough clone (PC+1) when it could fail to hold — both, either,
// or neither depending on what the sign abstraction leaves possible.
func branch(st *AState, top *AFrame, target int, takenPossible, fallPossible bool) []*AState {
	var out []*AState
	if takenPossible {
		taken := st.Clone()
		takenTop, _ := taken.Top()
		takenTop.PC.Offset = target
		out = append(out, taken)
	}
	if fallPossible {
		fall := st.Clone()
		fallTop, _ := fall.Top()
		fallTop.PC.Offset++
		out = append(out, fall)
	}
	_ = top
	return out
}

func (ab *Interp) stepReturn(st *AState, top *AFrame, instr opcode.Instruction) ([]*AState, []interp.Outcome, error) {
	var ret AValue
	if !instr.Void {
		v, err := top.Pop()
		if err != nil {
			return nil, nil, err
		}
		ret = v
	}

	st.Pop()
	caller, ok := st.Top()
	if !ok {
		if instr.Void {
			return nil, []interp.Outcome{interp.Ok}, nil
		}
		if ret.Kind == value.KString && ret.Str != nil {
			return nil, []interp.Outcome{interp.Outcome(*ret.Str)}, nil
		}
		return nil, []interp.Outcome{interp.Ok}, nil
	}
	if !instr.Void {
		caller.Push(ret)
	}
	caller.PC.Offset++
	return []*AState{st}, nil, nil
}

func (ab *Interp) stepInvokeStatic(st *AState, top *AFrame, instr opcode.Instruction) ([]*AState, []interp.Outcome, error) {
	n := len(instr.Method.Params)
	args := make([]AValue, n)
	for i := n - 1; i >= 0; i-- {
		v, err := top.Pop()
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}
	top.PC.Offset++
	st.Push(NewEntryFrame(instr.Method, args))
	return []*AState{st}, nil, nil
}

func (ab *Interp) stepNewArray(st *AState, top *AFrame) ([]*AState, []interp.Outcome, error) {
	size, err := top.Pop()
	if err != nil {
		return nil, nil, err
	}
	var outcomes []interp.Outcome
	var states []*AState
	// Only a size sign set that contains "-" triggers negative array
	// size; "0" alone allocates a zero-length array successfully.
	if size.Signs.Has(sign.Neg) {
		outcomes = append(outcomes, interp.NegativeArraySize)
	}
	if size.Signs.Has(sign.Zero) || size.Signs.Has(sign.Pos) {
		top.Push(NewArrayRef())
		states = oneSuccessor(st, advance(top))
	}
	return states, outcomes, nil
}
