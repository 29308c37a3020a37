// Package opcode defines the bytecode instruction repertoire (§4.D/§4.F)
// and the method-identifier / descriptor grammar of §6, shared by the
// concrete and abstract interpreters.
package opcode

import (
	"fmt"
	"strings"

	"github.com/fewrick/jpamb/internal/value"
)

// MethodID is a fully-qualified method identifier: a.b.Class.method:(T1T2…Tn)Tret
type MethodID struct {
	Class  string // dotted class name, e.g. "a.b.Class"
	Name   string
	Params []value.Type
	Return *value.Type // nil for void
}

// Key is a stable map key for this method, used by the bytecode cache.
func (m MethodID) Key() string { return m.String() }

func (m MethodID) String() string {
	var b strings.Builder
	b.WriteString(m.Class)
	b.WriteByte('.')
	b.WriteString(m.Name)
	b.WriteByte(':')
	b.WriteByte('(')
	for _, p := range m.Params {
		b.WriteString(p.Tag())
	}
	b.WriteByte(')')
	if m.Return == nil {
		b.WriteByte('V')
	} else {
		b.WriteString(m.Return.Tag())
	}
	return b.String()
}

// ParseMethodID parses the §6 method identifier surface syntax.
func ParseMethodID(s string) (MethodID, error) {
	colon := strings.LastIndexByte(s, ':')
	if colon < 0 {
		return MethodID{}, fmt.Errorf("malformed method id %q: missing ':'", s)
	}
	left, right := s[:colon], s[colon+1:]

	dot := strings.LastIndexByte(left, '.')
	if dot < 0 {
		return MethodID{}, fmt.Errorf("malformed method id %q: no class.method separator", s)
	}
	class, name := left[:dot], left[dot+1:]
	if class == "" || name == "" {
		return MethodID{}, fmt.Errorf("malformed method id %q: empty class or method name", s)
	}

	if len(right) == 0 || right[0] != '(' {
		return MethodID{}, fmt.Errorf("malformed method id %q: descriptor must start with '('", s)
	}
	close := strings.IndexByte(right, ')')
	if close < 0 {
		return MethodID{}, fmt.Errorf("malformed method id %q: unterminated descriptor", s)
	}
	paramsStr, retStr := right[1:close], right[close+1:]

	params, err := parseTypeList(paramsStr)
	if err != nil {
		return MethodID{}, fmt.Errorf("malformed method id %q: %w", s, err)
	}

	var ret *value.Type
	if retStr != "V" {
		t, n, err := value.ParseTypeTag(retStr)
		if err != nil || n != len(retStr) {
			return MethodID{}, fmt.Errorf("malformed method id %q: bad return type %q", s, retStr)
		}
		ret = &t
	}

	return MethodID{Class: class, Name: name, Params: params, Return: ret}, nil
}

func parseTypeList(s string) ([]value.Type, error) {
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
