// Package abstract implements the sign-abstract interpreter of §4.F/§4.G:
// a non-deterministic step function over sign-abstracted values, driven
// by a worklist to a sound over-approximation of every outcome a
// concrete run could reach.
//
// It deliberately duplicates the frame/state shape of internal/interp
// rather than sharing it generically: the concrete and abstract step
// functions branch on entirely different value representations (a
// concrete Value vs. a sign Set), and forcing them through one
// polymorphic frame type would obscure more than it would save.
package abstract

import (
	"fmt"

	"github.com/fewrick/jpamb/internal/frame"
	"github.com/fewrick/jpamb/internal/jerrors"
	"github.com/fewrick/jpamb/internal/sign"
	"github.com/fewrick/jpamb/internal/value"
)

// AValue is the abstract counterpart of value.Value: numeric and
// boolean kinds carry a sign.Set, string constants carry their literal
// text directly (§4.F "Push: if value.type==String, push the Value
// directly"), and reference-family kinds carry only a nullability set
// since the abstract interpreter does not model heap contents.
type AValue struct {
	Kind  value.Kind
	Signs sign.Set // meaningful for Int/Float/Boolean/Char/Short

	Str *string // set iff Kind==KString and the value is a known literal

	Class string // set iff Kind==KObject

	// Null tracks which of {could be null, could be non-null} are
	// possible, using sign.True/sign.False as the two tags. Reference-
	// family kinds only.
	Null sign.Set
}

func FromSigns(kind value.Kind, signs sign.Set) AValue {
	return AValue{Kind: kind, Signs: signs}
}

func StringLiteral(s string) AValue {
	return AValue{Kind: value.KString, Str: &s, Null: sign.NewSet(sign.False)}
}

func NullString() AValue {
	return AValue{Kind: value.KString, Null: sign.NewSet(sign.True)}
}

func NewObject(class string) AValue {
	return AValue{Kind: value.KObject, Class: class, Null: sign.NewSet(sign.False)}
}

func NewArrayRef() AValue {
	return AValue{Kind: value.KArray, Null: sign.NewSet(sign.False)}
}

// UnknownRef models a reference-typed parameter whose nullness was not
// narrowed by the caller: both null and non-null remain possible, which
// is the sound default absent any seeding information.
func UnknownRef(kind value.Kind) AValue {
	return AValue{Kind: kind, Null: sign.NewSet(sign.True, sign.False)}
}

func (v AValue) couldBeNull() bool    { return v.Null.Has(sign.True) }
func (v AValue) couldBeNonNull() bool { return v.Null.Has(sign.False) }

// AFrame is the abstract counterpart of frame.Frame.
type AFrame struct {
	Locals map[int]AValue
	Stack  []AValue
	PC     frame.PC
}

func NewFrame(method string, locals map[int]AValue) *AFrame {
	return &AFrame{Locals: locals, Stack: nil, PC: frame.PC{Method: method, Offset: 0}}
}

func (f *AFrame) Push(v AValue) { f.Stack = append(f.Stack, v) }

func (f *AFrame) Pop() (AValue, error) {
	if len(f.Stack) == 0 {
		return AValue{}, jerrors.NewImplementationBug(f.PC.Method, f.PC.Offset, "abstract operand stack underflow")
	}
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v, nil
}

func (f *AFrame) Load(index int) (AValue, error) {
	v, ok := f.Locals[index]
	if !ok {
		return AValue{}, jerrors.NewImplementationBug(f.PC.Method, f.PC.Offset,
			fmt.Sprintf("read of unset abstract local %d", index))
	}
	return v, nil
}

func (f *AFrame) Store(index int, v AValue) { f.Locals[index] = v }

func (f *AFrame) Clone() *AFrame {
	locals := make(map[int]AValue, len(f.Locals))
	for k, v := range f.Locals {
		locals[k] = v
	}
	stack := make([]AValue, len(f.Stack))
	copy(stack, f.Stack)
	return &AFrame{Locals: locals, Stack: stack, PC: f.PC}
}

// AState is the abstract counterpart of interp.State: a call stack with
// no heap, since the abstract interpreter never dereferences one.
type AState struct {
	Frames []*AFrame
}

func (s *AState) Top() (*AFrame, bool) {
	if len(s.Frames) == 0 {
		return nil, false
	}
	return s.Frames[len(s.Frames)-1], true
}

func (s *AState) Push(f *AFrame) { s.Frames = append(s.Frames, f) }

func (s *AState) Pop() (*AFrame, bool) {
	if len(s.Frames) == 0 {
		return nil, false
	}
	f := s.Frames[len(s.Frames)-1]
	s.Frames = s.Frames[:len(s.Frames)-1]
	return f, true
}

func (s *AState) Clone() *AState {
	frames := make([]*AFrame, len(s.Frames))
	for i, f := range s.Frames {
		frames[i] = f.Clone()
	}
	return &AState{Frames: frames}
}
