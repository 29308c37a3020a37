package fuzz

import (
	"math/rand"

	"github.com/fewrick/jpamb/internal/value"
)

const (
	letters             = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	stringChars         = letters + "0123456789_-"
	maxMutatedStringLen = 100
)

// randomTuple generates one fresh argument tuple from scratch, per §4.I.
func randomTuple(rng *rand.Rand, params []value.Type, biases []intBias, cfg Config) []value.Value {
	out := make([]value.Value, len(params))
	for i, p := range params {
		var b intBias
		if i < len(biases) {
			b = biases[i]
		}
		out[i] = randomValue(rng, p, b, 3, cfg)
	}
	return out
}

func randomValue(rng *rand.Rand, t value.Type, b intBias, depth int, cfg Config) value.Value {
	switch t.Kind {
	case value.KBoolean:
		return value.Bool(rng.Intn(2) == 1)
	case value.KInt:
		return value.Int(randomInt(rng, b, int32(cfg.NumericRange)))
	case value.KShort:
		return value.Short(int16(randomInt(rng, b, int32(cfg.NumericRange))))
	case value.KFloat:
		return value.Float(float64(randomInt(rng, b, int32(cfg.NumericRange))) + rng.Float64())
	case value.KChar:
		return value.Char(randomLetter(rng))
	case value.KString:
		return value.RawString(randomString(rng, rng.Intn(cfg.MaxStringLen+1)))
	case value.KArray:
		if depth <= 0 {
			return value.RawArray(*t.Elem, nil)
		}
		n := rng.Intn(cfg.MaxArrayLen + 1)
		elems := make([]value.Value, n)
		for i := range elems {
			elems[i] = randomValue(rng, *t.Elem, intBias{}, depth-1, cfg)
		}
		return value.RawArray(*t.Elem, elems)
	default:
		return value.NullRef(t)
	}
}

func randomInt(rng *rand.Rand, b intBias, span int32) int32 {
	lo, hi := b.lo(span), b.hi(span)
	if hi < lo {
		lo, hi = hi, lo
	}
	v := lo + rng.Int31n(hi-lo+1)
	if b.avoidZero && v == 0 {
		v = 1
	}
	return v
}

func randomLetter(rng *rand.Rand) rune {
	return rune(letters[rng.Intn(len(letters))])
}

func randomString(rng *rand.Rand, n int) string {
	buf := make([]rune, n)
	for i := range buf {
		buf[i] = rune(stringChars[rng.Intn(len(stringChars))])
	}
	return string(buf)
}

// mutateTuple derives a new tuple from an existing corpus entry by
// perturbing every field, using the same mutation-by-type rules per §4.I.
func mutateTuple(rng *rand.Rand, base []value.Value, biases []intBias, cfg Config) []value.Value {
	out := make([]value.Value, len(base))
	copy(out, base)
	for i := range out {
		var b intBias
		if i < len(biases) {
			b = biases[i]
		}
		out[i] = mutateValue(rng, out[i], b, cfg)
	}
	return out
}

func mutateValue(rng *rand.Rand, v value.Value, b intBias, cfg Config) value.Value {
	switch v.Type.Kind {
	case value.KBoolean:
		return value.Bool(!v.AsBool())
	case value.KInt:
		return value.Int(jitter(rng, v.AsInt(), b))
	case value.KShort:
		return value.Short(int16(jitter(rng, v.AsInt(), b)))
	case value.KFloat:
		delta := (rng.Float64() - 0.5) * 2
		return value.Float(v.AsFloat() + delta)
	case value.KChar:
		return value.Char(randomLetter(rng))
	case value.KString:
		return value.RawString(mutateString(rng, v.Encode()))
	case value.KArray:
		elems, _ := v.Raw.([]value.Value)
		return mutateArray(rng, v.Type, elems, cfg)
	default:
		return v
	}
}

// jitter perturbs an integer by a uniform delta in ±10 (§4.I).
func jitter(rng *rand.Rand, i int32, b intBias) int32 {
	d := rng.Int31n(21) - 10
	v := i + d
	if b.avoidZero && v == 0 {
		v++
	}
	return v
}

func mutateString(rng *rand.Rand, s string) string {
	runes := []rune(s)
	if len(runes) >= 2 && runes[0] == '"' && runes[len(runes)-1] == '"' {
		runes = runes[1 : len(runes)-1]
	}
	switch {
	case len(runes) == 0 || (rng.Intn(3) == 0 && len(runes) < maxMutatedStringLen):
		runes = append(runes, randomStringRune(rng))
	case rng.Intn(2) == 0:
		idx := rng.Intn(len(runes))
		runes[idx] = randomStringRune(rng)
	default:
		idx := rng.Intn(len(runes))
		runes = append(runes[:idx], runes[idx+1:]...)
	}
	if len(runes) > maxMutatedStringLen {
		runes = runes[:maxMutatedStringLen]
	}
	return string(runes)
}

func randomStringRune(rng *rand.Rand) rune {
	return rune(stringChars[rng.Intn(len(stringChars))])
}

func mutateArray(rng *rand.Rand, t value.Type, elems []value.Value, cfg Config) value.Value {
	elem := *t.Elem
	next := make([]value.Value, len(elems))
	copy(next, elems)
	switch {
	case len(next) == 0 || rng.Intn(3) == 0:
		next = append(next, randomValue(rng, elem, intBias{}, 1, cfg))
	case len(next) > 0 && rng.Intn(2) == 0:
		idx := rng.Intn(len(next))
		next[idx] = randomValue(rng, elem, intBias{}, 1, cfg)
	default:
		idx := rng.Intn(len(next))
		next = append(next[:idx], next[idx+1:]...)
	}
	return value.RawArray(elem, next)
}
