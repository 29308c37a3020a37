// Package heap implements the monotonically growing heap of §3: once
// allocated, a cell's index and kind never change. There is no garbage
// collection or freeing, matching a single concrete run's bounded
// lifetime (§3 "Heap lifecycle"). The abstract interpreter keeps no heap.
package heap

import (
	"fmt"

	"github.com/fewrick/jpamb/internal/jerrors"
	"github.com/fewrick/jpamb/internal/value"
)

// CellKind distinguishes the three heap cell shapes (§3 "Heap").
type CellKind int

const (
	CellString CellKind = iota
	CellArray
	CellObject
)

// Cell is one heap-resident object: a string, an array, or a plain
// object (used for thrown/allocated class instances such as
// AssertionError, whose only observable trait is its class name).
type Cell struct {
	Kind CellKind

	Text string // CellString

	ElemType value.Type    // CellArray
	Elements []value.Value // CellArray

	Class string // CellObject, and the class of a string-like object
}

// Heap is an append-only slice of cells, indexed from 0.
type Heap struct {
	cells []Cell
}

func New() *Heap { return &Heap{} }

// Alloc appends a new cell and returns its index.
func (h *Heap) Alloc(c Cell) int {
	h.cells = append(h.cells, c)
	return len(h.cells) - 1
}

// NewString allocates a string cell and returns its reference Value.
func (h *Heap) NewString(s string) value.Value {
	idx := h.Alloc(Cell{Kind: CellString, Text: s, Class: "java.lang.String"})
	return value.RefTo(value.TypeString, idx)
}

// NewArray allocates a zero-filled array cell of the given element type
// and length, matching the concrete interpreter's NewArray semantics.
func (h *Heap) NewArray(elem value.Type, length int) value.Value {
	elems := make([]value.Value, length)
	for i := range elems {
		elems[i] = zeroOf(elem)
	}
	idx := h.Alloc(Cell{Kind: CellArray, ElemType: elem, Elements: elems})
	return value.RefTo(value.Array(elem), idx)
}

// NewArrayFrom allocates an array cell pre-populated with elems.
func (h *Heap) NewArrayFrom(elem value.Type, elems []value.Value) value.Value {
	idx := h.Alloc(Cell{Kind: CellArray, ElemType: elem, Elements: elems})
	return value.RefTo(value.Array(elem), idx)
}

// NewObject allocates a plain object cell of the given class name.
func (h *Heap) NewObject(class string) value.Value {
	idx := h.Alloc(Cell{Kind: CellObject, Class: class})
	return value.RefTo(value.Object(class), idx)
}

func zeroOf(t value.Type) value.Value {
	switch t.Kind {
	case value.KFloat:
		return value.Float(0)
	case value.KBoolean:
		return value.Bool(false)
	case value.KChar:
		return value.Char(0)
	case value.KShort:
		return value.Short(0)
	case value.KReference, value.KString, value.KArray, value.KObject:
		return value.NullRef(t)
	default:
		return value.Int(0)
	}
}

// Get looks up a cell by index, reporting an ImplementationBug for an
// out-of-range index: valid operand Values are only ever constructed by
// this package's allocators or by BindArgument, so an out-of-range index
// reaching here is always an interpreter defect, never a program result.
func (h *Heap) Get(method string, offset int, idx int) (Cell, error) {
	if idx < 0 || idx >= len(h.cells) {
		return Cell{}, jerrors.NewImplementationBug(method, offset,
			fmt.Sprintf("heap index %d out of range [0,%d)", idx, len(h.cells)))
	}
	return h.cells[idx], nil
}

// BindArgument converts a pre-binding Value (constructed from surface
// syntax, carrying its payload in Raw) into a heap-backed operand-stack
// Value, allocating string/array cells as needed. Booleans, ints and
// floats pass through unchanged; this mirrors the argument-binding loop
// of the reference interpreter's entry point.
func (h *Heap) BindArgument(v value.Value) value.Value {
	switch v.Type.Kind {
	case value.KString:
		if v.Raw == nil {
			return value.NullRef(value.TypeString)
		}
		s, _ := v.Raw.(string)
		return h.NewString(s)
	case value.KArray:
		if v.Raw == nil {
			return value.NullRef(v.Type)
		}
		raw, _ := v.Raw.([]value.Value)
		elems := make([]value.Value, len(raw))
		for i, e := range raw {
			elems[i] = h.BindArgument(e)
		}
		return h.NewArrayFrom(*v.Type.Elem, elems)
	default:
		return v
	}
}
