package fuzz

import (
	"github.com/fewrick/jpamb/internal/abstract"
	"github.com/fewrick/jpamb/internal/interp"
	"github.com/fewrick/jpamb/internal/opcode"
	"github.com/fewrick/jpamb/internal/sign"
	"github.com/fewrick/jpamb/internal/value"
)

// intBias narrows the range the integer generator draws from for one
// parameter, when the abstract interpreter has already proven a sign
// never participates in an "ok" outcome. This is the G->I feedback edge:
// the abstract interpreter's verdict feeds back into what the fuzzer
// bothers to try.
type intBias struct {
	avoidNeg, avoidZero, avoidPos bool
}

func (b intBias) lo(span int32) int32 {
	if b.avoidNeg && !b.avoidZero {
		return 0
	}
	if b.avoidNeg && b.avoidZero {
		return 1
	}
	return -span
}

func (b intBias) hi(span int32) int32 {
	if b.avoidPos && !b.avoidZero {
		return 0
	}
	if b.avoidPos && b.avoidZero {
		return -1
	}
	return span
}

// computeBias probes each int-like parameter's three signs independently
// against the sign-abstract interpreter, holding every other parameter at
// its full unknown range, and records any sign that never reaches Ok.
// A budget timeout on a probe is inconclusive and is not used to bias
// anything.
func computeBias(ab *abstract.Interp, method opcode.MethodID, budget int) []intBias {
	biases := make([]intBias, len(method.Params))
	for i, p := range method.Params {
		if p.Kind != value.KInt && p.Kind != value.KShort {
			continue
		}
		var b intBias
		for _, s := range []sign.Sign{sign.Neg, sign.Zero, sign.Pos} {
			args := make([]abstract.AValue, len(method.Params))
			for j, q := range method.Params {
				if j == i {
					args[j] = abstract.FromSigns(q.Kind, sign.NewSet(s))
				} else {
					args[j] = fullRange(q)
				}
			}
			frame := abstract.NewEntryFrame(method, args)
			results, err := ab.RunAll(&abstract.AState{Frames: []*abstract.AFrame{frame}}, budget)
			if err != nil {
				continue
			}
			if !results[interp.Ok] && !results[interp.Budget] {
				switch s {
				case sign.Neg:
					b.avoidNeg = true
				case sign.Zero:
					b.avoidZero = true
				case sign.Pos:
					b.avoidPos = true
				}
			}
		}
		biases[i] = b
	}
	return biases
}

// fullRange is the sound default abstract value for a parameter the bias
// probe isn't narrowing this round: every sign or nullability stays open.
func fullRange(t value.Type) abstract.AValue {
	switch t.Kind {
	case value.KBoolean:
		return abstract.FromSigns(t.Kind, sign.NewSet(sign.True, sign.False))
	case value.KInt, value.KShort, value.KFloat, value.KChar:
		return abstract.FromSigns(t.Kind, sign.NewSet(sign.Neg, sign.Zero, sign.Pos))
	case value.KString:
		return abstract.AValue{Kind: value.KString, Null: sign.NewSet(sign.True, sign.False)}
	default:
		return abstract.UnknownRef(t.Kind)
	}
}
