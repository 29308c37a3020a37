// Package hint implements the static syntactic hinter of §4.H: a
// read-only scan of a method's bytecode that harvests the literal
// constants, string comparisons, and array-bound checks a fuzzer can use
// to seed its first generation of inputs, without executing anything.
package hint

import (
	"strings"

	"github.com/fewrick/jpamb/internal/opcode"
)

// noiseWords are substrings that mark a harvested string constant as
// diagnostic text (an exception message, say) rather than a value the
// program branches on — these are filtered out before being offered as
// seed material.
var noiseWords = []string{"must not", "does not match", "invalid", "error", "expected", "unexpected"}

func isNoise(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range noiseWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// LengthReq records an `arraylength` result compared against a constant
// threshold, e.g. `array.length > 3`.
type LengthReq struct {
	Threshold int
	Cond      opcode.Cond
}

// Extracted is everything the hinter harvests from one method's
// bytecode (§4.H).
type Extracted struct {
	Constants       []int    // int/short/char literals guarding a branch; float literals are not harvested
	AllStrings      []string // every non-noise string constant pushed anywhere
	StringConstants []string // string constants harvested near an equals() call
	StringTransform string   // "upper", "lower", or ""
	HasParamCompare bool     // two distinct parameter loads compared directly
	HasParamUsage   bool     // any load references a parameter slot

	ArrayElementValues map[int]int // index -> guarded element value
	ArrayMaxIndex      int
	ArrayLengthReq     *LengthReq
}

// Extract scans code for the syntactic hints of §4.H. paramCount bounds
// which local slots count as "parameter" loads, matching the method's
// declared parameter list.
func Extract(code []opcode.Instruction, paramCount int) Extracted {
	e := Extracted{ArrayElementValues: make(map[int]int)}

	for _, instr := range code {
		switch instr.Op {
		case opcode.OpPush:
			if instr.Value.Type.Kind.String() == "string" {
				if s, ok := instr.Value.Raw.(string); ok && !isNoise(s) {
					e.AllStrings = append(e.AllStrings, s)
				}
			}
		case opcode.OpLoad:
			if instr.Index < paramCount {
				e.HasParamUsage = true
			}
		}
	}

	for i, instr := range code {
		switch instr.Op {
		case opcode.OpIfz:
			if c, ok := precedingIntPush(code, i); ok {
				e.Constants = append(e.Constants, c)
				if c >= 32 && c <= 126 {
					e.Constants = append(e.Constants, int(rune(c)))
				}
			}
			e.Constants = append(e.Constants, 0)
		case opcode.OpIf:
			if c, ok := precedingIntPush(code, i); ok {
				e.Constants = append(e.Constants, c)
			}
			if i >= 2 && code[i-1].Op == opcode.OpLoad && code[i-2].Op == opcode.OpLoad &&
				code[i-1].Index < paramCount && code[i-2].Index < paramCount && code[i-1].Index != code[i-2].Index {
				e.HasParamCompare = true
			}
		case opcode.OpInvokeVirtual:
			switch instr.Method.Name {
			case "toUpperCase":
				e.StringTransform = "upper"
			case "toLowerCase":
				e.StringTransform = "lower"
			case "equals":
				lo := i - 10
				if lo < 0 {
					lo = 0
				}
				for j := lo; j < i; j++ {
					if code[j].Op == opcode.OpPush && code[j].Value.Type.Kind.String() == "string" {
						if s, ok := code[j].Value.Raw.(string); ok && !isNoise(s) {
							e.StringConstants = append(e.StringConstants, s)
						}
					}
				}
			}
		case opcode.OpArrayLoad:
			if idx, ok := precedingIntPush(code, i); ok {
				if idx > e.ArrayMaxIndex {
					e.ArrayMaxIndex = idx
				}
				if i+2 < len(code) && code[i+1].Op == opcode.OpPush &&
					(code[i+2].Op == opcode.OpIf || code[i+2].Op == opcode.OpIfz) {
					if v, ok := literalInt(code[i+1]); ok {
						e.ArrayElementValues[idx] = v
					}
				}
			}
		case opcode.OpArrayLength:
			if i+1 < len(code) && code[i+1].Op == opcode.OpIfz {
				e.ArrayLengthReq = &LengthReq{Threshold: 0, Cond: code[i+1].Cond}
			} else if i+2 < len(code) && code[i+1].Op == opcode.OpPush && code[i+2].Op == opcode.OpIf {
				if v, ok := literalInt(code[i+1]); ok {
					e.ArrayLengthReq = &LengthReq{Threshold: v, Cond: code[i+2].Cond}
				}
			}
		}
	}

	if e.StringTransform != "" && len(e.AllStrings) > 0 {
		e.StringConstants = e.AllStrings
	}
	return e
}

func literalInt(instr opcode.Instruction) (int, bool) {
	if instr.Op != opcode.OpPush {
		return 0, false
	}
	switch instr.Value.Type.Kind.String() {
	case "int", "short", "char":
		return int(instr.Value.AsInt()), true
	default:
		return 0, false
	}
}

// precedingIntPush looks one or two instructions back from i for a push
// of an integer-like literal, the window the original hinter uses for
// the constant that feeds a comparison.
func precedingIntPush(code []opcode.Instruction, i int) (int, bool) {
	if i-1 >= 0 {
		if v, ok := literalInt(code[i-1]); ok {
			return v, true
		}
	}
	if i-2 >= 0 {
		if v, ok := literalInt(code[i-2]); ok {
			return v, true
		}
	}
	return 0, false
}

