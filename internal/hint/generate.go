package hint

import (
	"strings"

	"github.com/fewrick/jpamb/internal/value"
)

// maxTuples caps the cartesian product below so a method with many
// parameters and many harvested constants still produces a bounded
// seed set for the fuzzer to start from.
const maxTuples = 64

// GenerateValues produces the fuzzer's initial seed generation (§4.H):
// one or more candidate argument tuples built from the static hints
// harvested by Extract, following the same priority cascade as the
// reference hinter — boolean enumeration, array shape from observed
// bounds checks, string transforms/equality constants, float jitter
// around integer constants, and a fallback for parameters the scan
// found nothing about.
func GenerateValues(params []value.Type, e Extracted) [][]value.Value {
	if len(params) == 0 {
		return [][]value.Value{{}}
	}

	perParam := make([][]value.Value, len(params))
	for i, p := range params {
		perParam[i] = candidatesForParam(p, e)
	}

	tuples := cartesian(perParam, maxTuples)

	if e.HasParamCompare && len(params) >= 2 &&
		isIntLike(params[0]) && isIntLike(params[1]) {
		tuples = append(tuples, paramComparisonTuples(params, e)...)
	}

	return tuples
}

func isIntLike(t value.Type) bool {
	return t.Kind == value.KInt || t.Kind == value.KShort
}

func candidatesForParam(t value.Type, e Extracted) []value.Value {
	switch t.Kind {
	case value.KBoolean:
		return []value.Value{value.Bool(false), value.Bool(true)}
	case value.KInt, value.KShort:
		return intCandidates(e)
	case value.KFloat:
		return floatCandidates(e)
	case value.KChar:
		return []value.Value{value.Char('a'), value.Char('A'), value.Char('0')}
	case value.KString:
		return stringCandidates(e)
	case value.KArray:
		return arrayCandidates(t, e)
	default:
		return []value.Value{value.NullRef(t)}
	}
}

func intCandidates(e Extracted) []value.Value {
	cs := uniqueInts(e.Constants)
	if len(cs) == 0 {
		if e.HasParamUsage {
			return []value.Value{value.Int(0), value.Int(1)}
		}
		return []value.Value{value.Int(0)}
	}
	seen := make(map[int32]bool)
	var out []value.Value
	for _, c := range cs {
		for _, d := range []int32{-1, 0, 1} {
			v := int32(c) + d
			if !seen[v] {
				seen[v] = true
				out = append(out, value.Int(v))
			}
		}
	}
	return out
}

func floatCandidates(e Extracted) []value.Value {
	cs := uniqueInts(e.Constants)
	if len(cs) == 0 {
		return []value.Value{value.Float(0)}
	}
	var out []value.Value
	for _, c := range cs {
		f := float64(c)
		out = append(out, value.Float(f-0.5), value.Float(f), value.Float(f+0.5))
	}
	return out
}

func stringCandidates(e Extracted) []value.Value {
	var strs []string
	switch e.StringTransform {
	case "upper":
		for _, s := range e.StringConstants {
			strs = append(strs, strings.ToLower(s), strings.ToUpper(s))
		}
	case "lower":
		for _, s := range e.StringConstants {
			strs = append(strs, strings.ToUpper(s), strings.ToLower(s))
		}
	default:
		for _, s := range e.StringConstants {
			strs = append(strs, s)
		}
	}
	if len(strs) == 0 {
		strs = []string{"", "test"}
	}
	seen := make(map[string]bool)
	var out []value.Value
	for _, s := range strs {
		if !seen[s] {
			seen[s] = true
			out = append(out, value.RawString(s))
		}
	}
	return out
}

func arrayCandidates(t value.Type, e Extracted) []value.Value {
	elem := *t.Elem
	var out []value.Value
	out = append(out, value.RawArray(elem, nil)) // always offer the empty-array edge case

	switch {
	case len(e.ArrayElementValues) > 0:
		maxIdx := 0
		for idx := range e.ArrayElementValues {
			if idx > maxIdx {
				maxIdx = idx
			}
		}
		elems := make([]value.Value, maxIdx+1)
		for i := range elems {
			elems[i] = zeroValue(elem)
		}
		for idx, v := range e.ArrayElementValues {
			elems[idx] = literalElem(elem, v)
		}
		out = append(out, value.RawArray(elem, elems))

	case e.ArrayMaxIndex > 0:
		elems := make([]value.Value, e.ArrayMaxIndex+1)
		for i := range elems {
			elems[i] = zeroValue(elem)
		}
		out = append(out, value.RawArray(elem, elems))

	case e.ArrayLengthReq != nil:
		elems := []value.Value{zeroValue(elem)}
		out = append(out, value.RawArray(elem, elems))

	default:
		elems := []value.Value{zeroValue(elem), zeroValue(elem), zeroValue(elem)}
		out = append(out, value.RawArray(elem, elems))
	}
	return out
}

func zeroValue(t value.Type) value.Value {
	switch t.Kind {
	case value.KChar:
		return value.Char('a')
	case value.KFloat:
		return value.Float(0)
	case value.KBoolean:
		return value.Bool(false)
	default:
		return value.Int(0)
	}
}

func literalElem(t value.Type, v int) value.Value {
	if t.Kind == value.KChar && v >= 32 && v <= 126 {
		return value.Char(rune(v))
	}
	return value.Int(int32(v))
}

func paramComparisonTuples(params []value.Type, e Extracted) [][]value.Value {
	maxC := 0
	for _, c := range e.Constants {
		if c > maxC {
			maxC = c
		}
	}
	offsets := [][2]int{{-1, -1}, {0, 0}, {1, 1}, {1, 10}, {5, 5}, {10, 1}}
	var out [][]value.Value
	for _, off := range offsets {
		tuple := make([]value.Value, len(params))
		tuple[0] = value.Int(int32(maxC + off[0]))
		tuple[1] = value.Int(int32(maxC + off[1]))
		for i := 2; i < len(params); i++ {
			tuple[i] = zeroValue(params[i])
		}
		out = append(out, tuple)
	}
	return out
}

func uniqueInts(cs []int) []int {
	seen := make(map[int]bool, len(cs))
	var out []int
	for _, c := range cs {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// cartesian builds the product of per-parameter candidate lists, in
// argument order, stopping once cap tuples have been produced.
func cartesian(lists [][]value.Value, limit int) [][]value.Value {
	result := [][]value.Value{{}}
	for _, list := range lists {
		if len(list) == 0 {
			list = []value.Value{value.Int(0)}
		}
		var next [][]value.Value
		for _, prefix := range result {
			for _, v := range list {
				if len(next) >= limit {
					break
				}
				tuple := make([]value.Value, len(prefix)+1)
				copy(tuple, prefix)
				tuple[len(prefix)] = v
				next = append(next, tuple)
			}
		}
		result = next
		if len(result) >= limit {
			result = result[:limit]
		}
	}
	return result
}
