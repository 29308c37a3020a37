package value

// Ref is a heap reference: either the absent-reference sentinel (Null) or
// a non-negative index into the run's heap. Null is distinct from index
// 0 per §3's invariant.
type Ref struct {
	Null  bool
	Index int
}

// Value pairs a type tag with a payload (§3 "Value"). Int/Float/Boolean/
// Char/Short carry their payload directly in I or F; Reference/String/
// Array/Object carry a heap Ref once bound into a run. Raw holds the
// pre-binding payload (string text, or nested element Values) used only
// while constructing an argument tuple from surface syntax, before the
// values have a heap to live in — see heap.BindArgument.
type Value struct {
	Type Type
	I    int32 // Int, Boolean (0/1), Char (code point), Short
	F    float64
	Ref  Ref
	Raw  any // string | []Value, valid only pre-binding
}

// Int constructs an Int value. 32-bit wraparound on arithmetic is a
// property of Go's int32 semantics (two's complement overflow), not
// something this constructor needs to enforce.
func Int(i int32) Value { return Value{Type: TypeInt, I: i} }

func Float(f float64) Value { return Value{Type: TypeFloat, F: f} }

func Bool(b bool) Value {
	var i int32
	if b {
		i = 1
	}
	return Value{Type: TypeBoolean, I: i}
}

func Char(r rune) Value { return Value{Type: TypeChar, I: int32(r)} }

func Short(i int16) Value { return Value{Type: TypeShort, I: int32(i)} }

// NullRef constructs the null reference of the given reference-family
// type (Reference, String, Array or Object).
func NullRef(t Type) Value { return Value{Type: t, Ref: Ref{Null: true}} }

// RefTo constructs a non-null reference into the heap at idx.
func RefTo(t Type, idx int) Value { return Value{Type: t, Ref: Ref{Index: idx}} }

// RawString constructs a pre-binding string value: surface text that has
// not yet been allocated into a run's heap.
func RawString(s string) Value { return Value{Type: TypeString, Raw: s} }

// RawArray constructs a pre-binding array value from its element type and
// elements, not yet allocated into a run's heap.
func RawArray(elem Type, elems []Value) Value {
	return Value{Type: Array(elem), Raw: elems}
}

func (v Value) IsNull() bool { return v.Ref.Null }

func (v Value) AsInt() int32    { return v.I }
func (v Value) AsFloat() float64 { return v.F }
func (v Value) AsBool() bool    { return v.I != 0 }
func (v Value) AsChar() rune    { return rune(v.I) }

// Equal is reference/value equality for the operand-stack representation:
// numeric kinds compare by payload, references compare by heap index
// (null == null only, per §4.D edge cases).
func (v Value) Equal(o Value) bool {
	if !v.Type.Equal(o.Type) {
		return false
	}
	switch v.Type.Kind {
	case KFloat:
		return v.F == o.F
	case KReference, KString, KArray, KObject:
		if v.Ref.Null || o.Ref.Null {
			return v.Ref.Null && o.Ref.Null
		}
		return v.Ref.Index == o.Ref.Index
	default:
		return v.I == o.I
	}
}
