// Package interp implements the concrete step function and run loop of
// §4.D: a single bytecode instruction transforms one State into the next,
// or the run terminates in one of the seven outcomes of §6.
package interp

import (
	"fmt"
	"strconv"

	"github.com/fewrick/jpamb/internal/frame"
	"github.com/fewrick/jpamb/internal/heap"
	"github.com/fewrick/jpamb/internal/jerrors"
	"github.com/fewrick/jpamb/internal/opcode"
	"github.com/fewrick/jpamb/internal/suite"
	"github.com/fewrick/jpamb/internal/value"
)

// Outcome is one of the seven terminal results of §6, or a string-return
// payload for reference-returning entrypoints.
type Outcome string

const (
	Ok                Outcome = "ok"
	AssertionError    Outcome = "assertion error"
	DivideByZero      Outcome = "divide by zero"
	NullPointer       Outcome = "null pointer"
	OutOfBounds       Outcome = "out of bounds"
	NegativeArraySize Outcome = "negative array size"
	Budget            Outcome = "*"
)

// State is the full interpreter state of §3: a heap and a call stack.
type State struct {
	Heap   *heap.Heap
	Frames *frame.Frames
}

// ThrowClassifier decides the terminal outcome for a thrown object's
// class name. The default always answers "assertion error" (§5 open
// question: every Throw in this harness is an assertion violation), but
// the hook exists so a caller can plug in class-aware routing without
// touching Step itself (§9 "expose a hook rather than hard-code it").
type ThrowClassifier func(className string) Outcome

// DefaultThrowClassifier is the catch-all classifier: every Throw in
// this harness is treated as an assertion violation (§5 open question),
// regardless of the thrown object's class.
func DefaultThrowClassifier(string) Outcome { return AssertionError }

// Interp bundles the bytecode cache and throw classifier the step
// function needs; it carries no other state, so one Interp can drive
// many independent runs.
type Interp struct {
	Code     *suite.Cache
	Classify ThrowClassifier
}

func New(code *suite.Cache) *Interp {
	return &Interp{Code: code, Classify: DefaultThrowClassifier}
}

// NewFrame builds the initial frame for an entrypoint method, binding
// already heap-bound argument values into locals 0..N-1.
func NewFrame(method opcode.MethodID, args []value.Value) *frame.Frame {
	locals := make(map[int]value.Value, len(args))
	for i, a := range args {
		locals[i] = a
	}
	return frame.New(method.Key(), locals)
}

// Run drives the concrete step function until it terminates or the step
// budget is exhausted (§4.D "terminates within N steps or reports *"),
// returning the terminal outcome and the ordered, deduplicated trace of
// visited program counters (§3 "Trace").
func (ip *Interp) Run(st *State, budget int) (Outcome, []string, error) {
	seen := make(map[string]bool)
	var trace []string
	for i := 0; i < budget; i++ {
		top, ok := st.Frames.Top()
		if !ok {
			return "", trace, jerrors.NewImplementationBug("", 0, "step with no active frame")
		}
		pcStr := top.PC.String()
		if !seen[pcStr] {
			seen[pcStr] = true
			trace = append(trace, pcStr)
		}

		next, outcome, terminal, err := ip.Step(st)
		if err != nil {
			return "", trace, err
		}
		if terminal {
			return outcome, trace, nil
		}
		st = next
	}
	return Budget, trace, nil
}

// Step executes the single instruction at the current PC of the top
// frame, returning either a continuation State or a terminal Outcome.
func (ip *Interp) Step(st *State) (*State, Outcome, bool, error) {
	top, ok := st.Frames.Top()
	if !ok {
		return nil, "", false, jerrors.NewImplementationBug("", 0, "step with no active frame")
	}
	pc := top.PC
	instr, err := ip.Code.Lookup(mustParse(pc.Method), pc.Offset)
	if err != nil {
		return nil, "", false, err
	}

	switch instr.Op {
	case opcode.OpPush:
		top.Stack.Push(st.Heap.BindArgument(instr.Value))
		return advance(st, top)

	case opcode.OpLoad:
		v, err := top.Load(instr.Index)
		if err != nil {
			return nil, "", false, err
		}
		top.Stack.Push(v)
		return advance(st, top)

	case opcode.OpStore:
		v, err := top.Stack.Pop(pc)
		if err != nil {
			return nil, "", false, err
		}
		top.Store(instr.Index, v)
		return advance(st, top)

	case opcode.OpBinary:
		return ip.stepBinary(st, top, instr)

	case opcode.OpCompareFloating:
		return ip.stepCompareFloating(st, top, instr)

	case opcode.OpIfz:
		return ip.stepIfz(st, top, instr)

	case opcode.OpIf:
		return ip.stepIf(st, top, instr)

	case opcode.OpGoto:
		top.PC.Offset = instr.Target
		return st, "", false, nil

	case opcode.OpIncr:
		v, err := top.Load(instr.Index)
		if err != nil {
			return nil, "", false, err
		}
		top.Store(instr.Index, value.Int(v.AsInt()+instr.Incr))
		return advance(st, top)

	case opcode.OpCast:
		v, err := top.Stack.Pop(pc)
		if err != nil {
			return nil, "", false, err
		}
		top.Stack.Push(value.Short(toShort(v.AsInt())))
		return advance(st, top)

	case opcode.OpReturn:
		return ip.stepReturn(st, top, instr)

	case opcode.OpNew:
		top.Stack.Push(st.Heap.NewObject(instr.ClassName))
		return advance(st, top)

	case opcode.OpDup:
		v, err := top.Stack.Peek(pc)
		if err != nil {
			return nil, "", false, err
		}
		top.Stack.Push(v)
		return advance(st, top)

	case opcode.OpInvokeStatic:
		return ip.stepInvokeStatic(st, top, instr)

	case opcode.OpInvokeSpecial:
		return ip.stepInvokeSpecial(st, top, instr)

	case opcode.OpInvokeVirtual:
		return ip.stepInvokeVirtual(st, top, instr)

	case opcode.OpInvokeDynamic:
		return ip.stepInvokeDynamic(st, top, instr)

	case opcode.OpGet:
		if instr.Field == "$assertionsDisabled" {
			top.Stack.Push(value.Bool(false))
			return advance(st, top)
		}
		return nil, "", false, jerrors.NewImplementationBug(pc.Method, pc.Offset,
			fmt.Sprintf("unsupported static field %q", instr.Field))

	case opcode.OpThrow:
		ref, err := top.Stack.Pop(pc)
		if err != nil {
			return nil, "", false, err
		}
		class := ""
		if !ref.IsNull() {
			cell, err := st.Heap.Get(pc.Method, pc.Offset, ref.Ref.Index)
			if err == nil {
				class = cell.Class
			}
		}
		return nil, ip.Classify(class), true, nil

	case opcode.OpNewArray:
		return ip.stepNewArray(st, top, instr)

	case opcode.OpArrayStore:
		return ip.stepArrayStore(st, top, instr)

	case opcode.OpArrayLoad:
		return ip.stepArrayLoad(st, top, instr)

	case opcode.OpArrayLength:
		return ip.stepArrayLength(st, top)

	default:
		return nil, "", false, jerrors.NewImplementationBug(pc.Method, pc.Offset,
			fmt.Sprintf("unhandled opcode %s", instr.Op))
	}
}

func advance(st *State, f *frame.Frame) (*State, Outcome, bool, error) {
	f.PC.Offset++
	return st, "", false, nil
}

func (ip *Interp) stepBinary(st *State, top *frame.Frame, instr opcode.Instruction) (*State, Outcome, bool, error) {
	pc := top.PC
	v2, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}
	v1, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}

	if instr.Type.Kind == value.KFloat {
		a, b := v1.AsFloat(), v2.AsFloat()
		switch instr.BinOp {
		case opcode.Div:
			if b == 0 {
				return nil, DivideByZero, true, nil
			}
			top.Stack.Push(value.Float(a / b))
		case opcode.Add:
			top.Stack.Push(value.Float(a + b))
		case opcode.Sub:
			top.Stack.Push(value.Float(a - b))
		case opcode.Mul:
			top.Stack.Push(value.Float(a * b))
		default:
			return nil, "", false, jerrors.NewImplementationBug(pc.Method, pc.Offset,
				fmt.Sprintf("unsupported float binary op %s", instr.BinOp))
		}
		return advance(st, top)
	}

	a, b := v1.AsInt(), v2.AsInt()
	switch instr.BinOp {
	case opcode.Add:
		top.Stack.Push(value.Int(a + b))
	case opcode.Sub:
		top.Stack.Push(value.Int(a - b))
	case opcode.Mul:
		top.Stack.Push(value.Int(a * b))
	case opcode.Div:
		if b == 0 {
			return nil, DivideByZero, true, nil
		}
		top.Stack.Push(value.Int(a / b))
	case opcode.Rem:
		if b == 0 {
			return nil, DivideByZero, true, nil
		}
		top.Stack.Push(value.Int(a % b))
	default:
		return nil, "", false, jerrors.NewImplementationBug(pc.Method, pc.Offset,
			fmt.Sprintf("unhandled binary op %s", instr.BinOp))
	}
	return advance(st, top)
}

func (ip *Interp) stepCompareFloating(st *State, top *frame.Frame, instr opcode.Instruction) (*State, Outcome, bool, error) {
	pc := top.PC
	v2, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}
	v1, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}
	a, b := v1.AsFloat(), v2.AsFloat()
	switch {
	case isNaN(a) || isNaN(b):
		top.Stack.Push(value.Int(int32(instr.NanValue)))
	case a > b:
		top.Stack.Push(value.Int(1))
	case a < b:
		top.Stack.Push(value.Int(-1))
	default:
		top.Stack.Push(value.Int(0))
	}
	return advance(st, top)
}

func isNaN(f float64) bool { return f != f }

func isReferenceKind(k value.Kind) bool {
	switch k {
	case value.KReference, value.KString, value.KArray, value.KObject:
		return true
	default:
		return false
	}
}

func (ip *Interp) stepIfz(st *State, top *frame.Frame, instr opcode.Instruction) (*State, Outcome, bool, error) {
	pc := top.PC
	v, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}

	var taken bool
	switch instr.Cond {
	case opcode.Is, opcode.IsNot:
		if !isReferenceKind(v.Type.Kind) {
			return nil, "", false, jerrors.NewImplementationBug(pc.Method, pc.Offset,
				fmt.Sprintf("is/isnot operand of kind %s is not a reference", v.Type.Kind))
		}
		if instr.Cond == opcode.Is {
			taken = v.IsNull()
		} else {
			taken = !v.IsNull()
		}
	case opcode.Eq:
		taken = v.AsInt() == 0
	case opcode.Ne:
		taken = v.AsInt() != 0
	case opcode.Gt:
		taken = v.AsInt() > 0
	case opcode.Ge:
		taken = v.AsInt() >= 0
	case opcode.Lt:
		taken = v.AsInt() < 0
	case opcode.Le:
		taken = v.AsInt() <= 0
	default:
		return nil, "", false, jerrors.NewImplementationBug(pc.Method, pc.Offset,
			fmt.Sprintf("unhandled ifz condition %s", instr.Cond))
	}
	if taken {
		top.PC.Offset = instr.Target
	} else {
		top.PC.Offset++
	}
	return st, "", false, nil
}

func (ip *Interp) stepIf(st *State, top *frame.Frame, instr opcode.Instruction) (*State, Outcome, bool, error) {
	pc := top.PC
	v2, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}
	v1, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}
	a, b := v1.AsInt(), v2.AsInt()

	var taken bool
	switch instr.Cond {
	case opcode.Eq:
		taken = a == b
	case opcode.Ne:
		taken = a != b
	case opcode.Gt:
		taken = a > b
	case opcode.Ge:
		taken = a >= b
	case opcode.Lt:
		taken = a < b
	case opcode.Le:
		taken = a <= b
	default:
		return nil, "", false, jerrors.NewImplementationBug(pc.Method, pc.Offset,
			fmt.Sprintf("unhandled if condition %s", instr.Cond))
	}
	if taken {
		top.PC.Offset = instr.Target
	} else {
		top.PC.Offset++
	}
	return st, "", false, nil
}

func (ip *Interp) stepReturn(st *State, top *frame.Frame, instr opcode.Instruction) (*State, Outcome, bool, error) {
	pc := top.PC
	var ret value.Value
	if !instr.Void {
		v, err := top.Stack.Pop(pc)
		if err != nil {
			return nil, "", false, err
		}
		ret = v
	}

	if _, ok := st.Frames.Pop(); !ok {
		return nil, "", false, jerrors.NewImplementationBug(pc.Method, pc.Offset, "return with no frame to pop")
	}

	caller, ok := st.Frames.Top()
	if !ok {
		if instr.Void {
			return nil, Ok, true, nil
		}
		if ret.Type.Kind == value.KString {
			if ret.IsNull() {
				return nil, Outcome("null"), true, nil
			}
			cell, err := st.Heap.Get(pc.Method, pc.Offset, ret.Ref.Index)
			if err != nil {
				return nil, "", false, err
			}
			return nil, Outcome(cell.Text), true, nil
		}
		return nil, Ok, true, nil
	}

	if !instr.Void {
		caller.Stack.Push(ret)
	}
	caller.PC.Offset++
	return st, "", false, nil
}

func popArgs(top *frame.Frame, n int) ([]value.Value, error) {
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := top.Stack.Pop(top.PC)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (ip *Interp) stepInvokeStatic(st *State, top *frame.Frame, instr opcode.Instruction) (*State, Outcome, bool, error) {
	args, err := popArgs(top, len(instr.Method.Params))
	if err != nil {
		return nil, "", false, err
	}
	top.PC.Offset++ // caller resumes here once the callee returns
	callee := NewFrame(instr.Method, args)
	st.Frames.Push(callee)
	return st, "", false, nil
}

func (ip *Interp) stepInvokeSpecial(st *State, top *frame.Frame, instr opcode.Instruction) (*State, Outcome, bool, error) {
	// Only <init> is modeled (§4.D): the object was already allocated by
	// the preceding New, so construction is a no-op that just discards
	// the receiver and constructor arguments.
	n := len(instr.Method.Params) + 1
	if _, err := popArgs(top, n); err != nil {
		return nil, "", false, err
	}
	return advance(st, top)
}

func (ip *Interp) stepInvokeVirtual(st *State, top *frame.Frame, instr opcode.Instruction) (*State, Outcome, bool, error) {
	pc := top.PC
	args, err := popArgs(top, len(instr.Method.Params))
	if err != nil {
		return nil, "", false, err
	}
	recv, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}
	if recv.IsNull() {
		return nil, NullPointer, true, nil
	}
	cell, err := st.Heap.Get(pc.Method, pc.Offset, recv.Ref.Index)
	if err != nil {
		return nil, "", false, err
	}
	text := []rune(cell.Text)

	switch instr.Method.Name {
	case "length":
		top.Stack.Push(value.Int(int32(len(text))))
	case "toUpperCase":
		top.Stack.Push(st.Heap.NewString(upper(cell.Text)))
	case "toLowerCase":
		top.Stack.Push(st.Heap.NewString(lower(cell.Text)))
	case "charAt":
		idx := int(args[0].AsInt())
		if idx < 0 || idx >= len(text) {
			return nil, OutOfBounds, true, nil
		}
		top.Stack.Push(value.Char(text[idx]))
	case "equals":
		other := args[0]
		eq := false
		if !other.IsNull() && other.Type.Kind == value.KString {
			otherCell, err := st.Heap.Get(pc.Method, pc.Offset, other.Ref.Index)
			if err != nil {
				return nil, "", false, err
			}
			eq = otherCell.Text == cell.Text
		}
		top.Stack.Push(value.Bool(eq))
	case "substring":
		start := int(args[0].AsInt())
		end := len(text)
		if len(args) > 1 {
			end = int(args[1].AsInt())
		}
		if start < 0 || end > len(text) || start > end {
			return nil, OutOfBounds, true, nil
		}
		top.Stack.Push(st.Heap.NewString(string(text[start:end])))
	default:
		return nil, "", false, jerrors.NewImplementationBug(pc.Method, pc.Offset,
			fmt.Sprintf("unsupported virtual method %q", instr.Method.Name))
	}
	return advance(st, top)
}

func (ip *Interp) stepInvokeDynamic(st *State, top *frame.Frame, instr opcode.Instruction) (*State, Outcome, bool, error) {
	params, err := parseConcatDescriptor(instr.Dynamic.Descriptor)
	if err != nil {
		return nil, "", false, jerrors.NewImplementationBug(top.PC.Method, top.PC.Offset, err.Error())
	}
	args, err := popArgs(top, len(params))
	if err != nil {
		return nil, "", false, err
	}
	var out string
	for i, a := range args {
		out += stringify(st.Heap, a, params[i])
	}
	top.Stack.Push(st.Heap.NewString(out))
	return advance(st, top)
}

func (ip *Interp) stepNewArray(st *State, top *frame.Frame, instr opcode.Instruction) (*State, Outcome, bool, error) {
	pc := top.PC
	size, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}
	n := size.AsInt()
	if n < 0 {
		return nil, NegativeArraySize, true, nil
	}
	top.Stack.Push(st.Heap.NewArray(instr.Type, int(n)))
	return advance(st, top)
}

func (ip *Interp) stepArrayStore(st *State, top *frame.Frame, instr opcode.Instruction) (*State, Outcome, bool, error) {
	pc := top.PC
	v, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}
	idx, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}
	ref, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}
	if ref.IsNull() {
		return nil, NullPointer, true, nil
	}
	cell, err := st.Heap.Get(pc.Method, pc.Offset, ref.Ref.Index)
	if err != nil {
		return nil, "", false, err
	}
	i := int(idx.AsInt())
	if i < 0 || i >= len(cell.Elements) {
		return nil, OutOfBounds, true, nil
	}
	cell.Elements[i] = v
	return advance(st, top)
}

func (ip *Interp) stepArrayLoad(st *State, top *frame.Frame, instr opcode.Instruction) (*State, Outcome, bool, error) {
	pc := top.PC
	idx, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}
	ref, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}
	if ref.IsNull() {
		return nil, NullPointer, true, nil
	}
	cell, err := st.Heap.Get(pc.Method, pc.Offset, ref.Ref.Index)
	if err != nil {
		return nil, "", false, err
	}
	i := int(idx.AsInt())
	if i < 0 || i >= len(cell.Elements) {
		return nil, OutOfBounds, true, nil
	}
	top.Stack.Push(cell.Elements[i])
	return advance(st, top)
}

func (ip *Interp) stepArrayLength(st *State, top *frame.Frame) (*State, Outcome, bool, error) {
	pc := top.PC
	ref, err := top.Stack.Pop(pc)
	if err != nil {
		return nil, "", false, err
	}
	if ref.IsNull() {
		return nil, NullPointer, true, nil
	}
	cell, err := st.Heap.Get(pc.Method, pc.Offset, ref.Ref.Index)
	if err != nil {
		return nil, "", false, err
	}
	if cell.Kind == heap.CellString {
		top.Stack.Push(value.Int(int32(len([]rune(cell.Text)))))
	} else {
		top.Stack.Push(value.Int(int32(len(cell.Elements))))
	}
	return advance(st, top)
}

func toShort(i int32) int16 {
	m := (int64(i) + 32768) % 65536
	if m < 0 {
		m += 65536
	}
	return int16(m - 32768)
}

func stringify(h *heap.Heap, v value.Value, t value.Type) string {
	switch v.Type.Kind {
	case value.KString:
		if v.IsNull() {
			return "null"
		}
		cell, err := h.Get("", 0, v.Ref.Index)
		if err != nil {
			return ""
		}
		return cell.Text
	case value.KBoolean:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case value.KChar:
		return string(v.AsChar())
	case value.KFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	default:
		return strconv.FormatInt(int64(v.AsInt()), 10)
	}
}

func upper(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'a' && r <= 'z' {
			out[i] = r - ('a' - 'A')
		}
	}
	return string(out)
}

func lower(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'A' && r <= 'Z' {
			out[i] = r + ('a' - 'A')
		}
	}
	return string(out)
}

// parseConcatDescriptor counts and types the parameters of a
// makeConcat* bootstrap descriptor `(T1T2…Tn)Ljava/lang/String;`.
func parseConcatDescriptor(desc string) ([]value.Type, error) {
	open, close := -1, -1
	for i, r := range desc {
		if r == '(' {
			open = i
		}
		if r == ')' {
			close = i
		}
	}
	if open < 0 || close < 0 || close < open {
		return nil, fmt.Errorf("malformed concat descriptor %q", desc)
	}
	s := desc[open+1 : close]
	var types []value.Type
	for len(s) > 0 {
		t, n, err := value.ParseTypeTag(s)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
		s = s[n:]
	}
	return types, nil
}

func mustParse(key string) opcode.MethodID {
	m, err := opcode.ParseMethodID(key)
	if err != nil {
		// key is always a MethodID.Key() produced by this package, so a
		// parse failure here means the key itself was corrupted, not
		// that external input was malformed.
		panic(jerrors.NewImplementationBug(key, 0, "corrupt method key: "+err.Error()))
	}
	return m
}
