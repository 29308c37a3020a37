package commands

import (
	"fmt"

	"github.com/fewrick/jpamb/internal/abstract"
	"github.com/fewrick/jpamb/internal/jerrors"
	"github.com/fewrick/jpamb/internal/opcode"
	"github.com/fewrick/jpamb/internal/sign"
	"github.com/fewrick/jpamb/internal/suite"
	"github.com/fewrick/jpamb/internal/value"
)

// Abstract implements "jpamb abstract <methodid>": runs the sign-abstract
// worklist driver over every parameter's full sign range and prints the
// resulting outcome set, one per line.
func Abstract(code *suite.Cache, args []string) error {
	if len(args) < 1 {
		return jerrors.NewUsageError("usage: jpamb abstract <methodid>")
	}
	m, err := opcode.ParseMethodID(args[0])
	if err != nil {
		return jerrors.NewUsageError("%v", err)
	}

	params := make([]abstract.AValue, len(m.Params))
	for i, p := range m.Params {
		params[i] = fullRange(p)
	}

	ab := abstract.New(code)
	initial := &abstract.AState{Frames: []*abstract.AFrame{abstract.NewEntryFrame(m, params)}}

	results, err := ab.RunAll(initial, 1000)
	if err != nil {
		return err
	}
	for outcome := range results {
		fmt.Println(string(outcome))
	}
	return nil
}

// fullRange is the widest abstract value for a parameter type: every
// sign or nullability stays open, mirroring internal/fuzz's bias probe.
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
