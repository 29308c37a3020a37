package opcode

import (
	"fmt"

	"github.com/fewrick/jpamb/internal/value"
)

// Op identifies which instruction variant an Instruction carries (§4.D).
type Op int

const (
	OpPush Op = iota
	OpLoad
	OpStore
	OpBinary
	OpCompareFloating
	OpIfz
	OpIf
	OpGoto
	OpIncr
	OpCast
	OpReturn
	OpNew
	OpDup
	OpInvokeStatic
	OpInvokeSpecial
	OpInvokeVirtual
	OpInvokeDynamic
	OpGet
	OpThrow
	OpNewArray
	OpArrayStore
	OpArrayLoad
	OpArrayLength
)

func (o Op) String() string {
	switch o {
	case OpPush:
		return "push"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpBinary:
		return "binary"
	case OpCompareFloating:
		return "compare_floating"
	case OpIfz:
		return "ifz"
	case OpIf:
		return "if"
	case OpGoto:
		return "goto"
	case OpIncr:
		return "incr"
	case OpCast:
		return "cast"
	case OpReturn:
		return "return"
	case OpNew:
		return "new"
	case OpDup:
		return "dup"
	case OpInvokeStatic:
		return "invokestatic"
	case OpInvokeSpecial:
		return "invokespecial"
	case OpInvokeVirtual:
		return "invokevirtual"
	case OpInvokeDynamic:
		return "invokedynamic"
	case OpGet:
		return "get"
	case OpThrow:
		return "throw"
	case OpNewArray:
		return "newarray"
	case OpArrayStore:
		return "arraystore"
	case OpArrayLoad:
		return "arrayload"
	case OpArrayLength:
		return "arraylength"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// BinOp is the arithmetic operator carried by a Binary instruction.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Rem
)

func (b BinOp) String() string {
	switch b {
	case Add:
		return "add"
	case Sub:
		return "sub"
	case Mul:
		return "mul"
	case Div:
		return "div"
	case Rem:
		return "rem"
	default:
		return fmt.Sprintf("binop(%d)", int(b))
	}
}

// Cond is the comparison condition carried by If/Ifz instructions.
type Cond int

const (
	Eq Cond = iota
	Ne
	Gt
	Ge
	Lt
	Le
	Is    // reference is null (Ifz only)
	IsNot // reference is not null (Ifz only)
)

func (c Cond) String() string {
	switch c {
	case Eq:
		return "eq"
	case Ne:
		return "ne"
	case Gt:
		return "gt"
	case Ge:
		return "ge"
	case Lt:
		return "lt"
	case Le:
		return "le"
	case Is:
		return "is"
	case IsNot:
		return "isnot"
	default:
		return fmt.Sprintf("cond(%d)", int(c))
	}
}

// Dynamic carries the bootstrap info of an InvokeDynamic instruction
// (§4.D: only string-concatenation (makeConcat*) bootstraps are modeled).
type Dynamic struct {
	Name       string
	Descriptor string
}

// Instruction is the tagged union of one bytecode opcode (§4.D). Only the
// fields relevant to Op are meaningful; all others are zero.
type Instruction struct {
	Op Op

	Type value.Type // operand type for Push/Load/Store/Binary/Cast/NewArray/Array*
	Void bool       // true for a value-less Return

	Value value.Value // literal operand for Push

	Index int // local-variable slot for Load/Store/Incr
	Incr  int32 // increment amount for Incr

	BinOp BinOp // arithmetic operator for Binary

	Cond   Cond // comparison for If/Ifz
	Target int  // branch offset for If/Ifz/Goto

	NanValue int // result when either operand is NaN, for CompareFloating: +1 or -1

	ClassName string // allocated/thrown class name for New

	Method MethodID // callee for InvokeStatic/InvokeSpecial/InvokeVirtual

	Dynamic Dynamic // bootstrap descriptor for InvokeDynamic

	Field string // field name for Get

	CastFrom value.Type // source type for Cast
	CastTo   value.Type // destination type for Cast

	Dim int // dimension count for NewArray
}

func (i Instruction) String() string {
	switch i.Op {
	case OpPush:
		return fmt.Sprintf("push %s", i.Value.Encode())
	case OpLoad, OpStore:
		return fmt.Sprintf("%s %s %d", i.Op, i.Type, i.Index)
	case OpBinary:
		return fmt.Sprintf("binary %s %s", i.Type, i.BinOp)
	case OpIfz, OpIf:
		return fmt.Sprintf("%s %s %d", i.Op, i.Cond, i.Target)
	case OpGoto:
		return fmt.Sprintf("goto %d", i.Target)
	case OpIncr:
		return fmt.Sprintf("incr %d %d", i.Index, i.Incr)
	case OpNew:
		return fmt.Sprintf("new %s", i.ClassName)
	case OpInvokeStatic, OpInvokeSpecial, OpInvokeVirtual:
		return fmt.Sprintf("%s %s", i.Op, i.Method)
	case OpInvokeDynamic:
		return fmt.Sprintf("invokedynamic %s", i.Dynamic.Name)
	case OpGet:
		return fmt.Sprintf("get %s", i.Field)
	default:
		return i.Op.String()
	}
}
