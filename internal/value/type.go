// Package value implements the tagged value model of §3/§4.A: the closed
// type universe, the runtime Value representation used by the operand
// stack and locals, and the surface-syntax encode/parse pair the fuzzer
// and argument parser rely on.
package value

import "fmt"

// Kind is one member of the closed type universe.
type Kind int

const (
	KInt Kind = iota
	KFloat
	KBoolean
	KChar
	KShort
	KReference
	KString
	KArray
	KObject
)

func (k Kind) String() string {
	switch k {
	case KInt:
		return "int"
	case KFloat:
		return "float"
	case KBoolean:
		return "boolean"
	case KChar:
		return "char"
	case KShort:
		return "short"
	case KReference:
		return "reference"
	case KString:
		return "string"
	case KArray:
		return "array"
	case KObject:
		return "object"
	default:
		return "unknown"
	}
}

// Type is a value in the closed variant Int | Float | Boolean | Char |
// Short | Reference | String | Array(of Type) | Object(classname).
// Types compare by structural equality (Equal), not identity.
type Type struct {
	Kind  Kind
	Elem  *Type  // set iff Kind == KArray
	Class string // set iff Kind == KObject
}

var (
	TypeInt       = Type{Kind: KInt}
	TypeFloat     = Type{Kind: KFloat}
	TypeBoolean   = Type{Kind: KBoolean}
	TypeChar      = Type{Kind: KChar}
	TypeShort     = Type{Kind: KShort}
	TypeReference = Type{Kind: KReference}
	TypeString    = Type{Kind: KString}
)

// Array builds the type of an array with the given element type.
func Array(elem Type) Type {
	e := elem
	return Type{Kind: KArray, Elem: &e}
}

// Object builds the type of an object of the given class name.
func Object(class string) Type {
	return Type{Kind: KObject, Class: class}
}

// Equal reports structural equality between two types.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KArray:
		if t.Elem == nil || o.Elem == nil {
			return t.Elem == o.Elem
		}
		return t.Elem.Equal(*o.Elem)
	case KObject:
		return t.Class == o.Class
	default:
		return true
	}
}

func (t Type) String() string {
	switch t.Kind {
	case KArray:
		return fmt.Sprintf("%s[]", t.Elem.String())
	case KObject:
		return t.Class
	default:
		return t.Kind.String()
	}
}

// Tag renders a type as a JVM-style single/compound descriptor tag, the
// inverse of ParseTypeTag. Reference with no further information renders
// as a generic object reference; callers that need java.lang.String use
// the dedicated String type, which renders distinctly.
func (t Type) Tag() string {
	switch t.Kind {
	case KInt:
		return "I"
	case KFloat:
		return "F"
	case KBoolean:
		return "Z"
	case KChar:
		return "C"
	case KShort:
		return "S"
	case KReference:
		return "Ljava/lang/Object;"
	case KString:
		return "Ljava/lang/String;"
	case KArray:
		return "[" + t.Elem.Tag()
	case KObject:
		return "L" + t.Class + ";"
	default:
		return "?"
	}
}

// Letter is the single-character element-type tag used by the array
// surface syntax of §4.A (`[T: e1, e2, ...]`). Object/array elements fall
// back to their full Tag form since they have no single-letter form.
func (t Type) Letter() string {
	switch t.Kind {
	case KInt, KFloat, KBoolean, KChar, KShort:
		return t.Tag()
	default:
		return t.Tag()
	}
}

// ParseTypeTag parses one type descriptor starting at s[0] and returns
// the parsed type plus the number of bytes consumed, so callers can walk
// a concatenated parameter-type list (§6 method identifier syntax).
//
// 'J' (long) and 'D' (double) are accepted but approximated as Int and
// Float respectively, and 'B' (byte) is approximated as Short: spec.md's
// Non-goals explicitly waive exact long/double semantics, and the closed
// type universe of §3 has no byte member, so the nearest-width member
// stands in. This is a deliberate, documented approximation, not a bug.
func ParseTypeTag(s string) (Type, int, error) {
	if s == "" {
		return Type{}, 0, fmt.Errorf("empty type tag")
	}
	switch s[0] {
	case 'I', 'J':
		return TypeInt, 1, nil
	case 'F', 'D':
		return TypeFloat, 1, nil
	case 'Z':
		return TypeBoolean, 1, nil
	case 'C':
		return TypeChar, 1, nil
	case 'S', 'B':
		return TypeShort, 1, nil
	case 'L':
		end := indexByte(s, ';')
		if end < 0 {
			return Type{}, 0, fmt.Errorf("unterminated object type tag %q", s)
		}
		name := s[1:end]
		if name == "java/lang/String" || name == "java.lang.String" {
			return TypeString, end + 1, nil
		}
		return Object(name), end + 1, nil
	case '[':
		elem, n, err := ParseTypeTag(s[1:])
		if err != nil {
			return Type{}, 0, err
		}
		return Array(elem), n + 1, nil
	default:
		return Type{}, 0, fmt.Errorf("unknown type tag %q", s[0:1])
	}
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
