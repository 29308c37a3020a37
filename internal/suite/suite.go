// Package suite implements the bytecode cache of §4.B: a lazily
// populated, idempotent mapping from method identifier to instruction
// vector, sourced from an external Resolver collaborator.
package suite

import (
	"fmt"

	"github.com/fewrick/jpamb/internal/jerrors"
	"github.com/fewrick/jpamb/internal/opcode"
)

// Resolver loads a method's instruction vector from wherever methods are
// defined (a decompiled class suite on disk, a test fixture, etc). The
// cache treats lookup failure as a usage error: an unresolvable method
// id means the caller asked for something that doesn't exist.
type Resolver interface {
	Resolve(m opcode.MethodID) ([]opcode.Instruction, error)
}

// FallbackResolver is a Resolver with a second lookup path, used for
// methods whose primary bytecode source is unavailable but that can
// still be loaded from a secondary one (§4 supplemented feature: the
// lazy class-JSON fallback for char-array-typed methods).
type FallbackResolver interface {
	Resolver
	ResolveFallback(m opcode.MethodID) ([]opcode.Instruction, error)
}

// Cache wraps a Resolver with insert-only memoization (§4.B): once a
// method's bytecode is loaded, the same slice is returned on every
// subsequent lookup, never reloaded or mutated.
type Cache struct {
	resolver Resolver
	methods  map[string][]opcode.Instruction
}

func New(r Resolver) *Cache {
	return &Cache{resolver: r, methods: make(map[string][]opcode.Instruction)}
}

// Code returns the full instruction vector for m, resolving and caching
// it on first access. If the resolver supports a fallback path and the
// primary lookup fails, the fallback is tried before giving up.
func (c *Cache) Code(m opcode.MethodID) ([]opcode.Instruction, error) {
	if code, ok := c.methods[m.Key()]; ok {
		return code, nil
	}
	code, err := c.resolver.Resolve(m)
	if err != nil {
		if fb, ok := c.resolver.(FallbackResolver); ok {
			if fallback, fbErr := fb.ResolveFallback(m); fbErr == nil {
				c.methods[m.Key()] = fallback
				return fallback, nil
			}
		}
		return nil, jerrors.NewUsageError("cannot resolve method %s: %v", m, err)
	}
	c.methods[m.Key()] = code
	return code, nil
}

// Lookup returns the single instruction at (method, offset), reporting
// an ImplementationBug if offset falls outside the method's bytecode:
// a valid PC only ever advances within bounds, so an out-of-range PC
// here is always a defect in the step function that produced it.
func (c *Cache) Lookup(m opcode.MethodID, offset int) (opcode.Instruction, error) {
	code, err := c.Code(m)
	if err != nil {
		return opcode.Instruction{}, err
	}
	if offset < 0 || offset >= len(code) {
		return opcode.Instruction{}, jerrors.NewImplementationBug(m.Key(), offset,
			fmt.Sprintf("pc offset out of range [0,%d)", len(code)))
	}
	return code[offset], nil
}

// Offsets returns every valid offset for m, used by the fuzzer's full-
// coverage stop rule and the CLI's campaign offset total.
func (c *Cache) Offsets(m opcode.MethodID) ([]int, error) {
	code, err := c.Code(m)
	if err != nil {
		return nil, err
	}
	offsets := make([]int, len(code))
	for i := range code {
		offsets[i] = i
	}
	return offsets, nil
}
