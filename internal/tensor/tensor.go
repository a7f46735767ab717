// Package tensor provides layout-tagged views over caller-owned buffers.
//
// A View never owns its storage and never converts layouts implicitly;
// layout conversion is an explicit operation in the convert package.
package tensor

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when an index, shape, or layout tag
// disagrees with what a view or operation declares.
var ErrShapeMismatch = errors.New("shape mismatch")

// WordBits is the width of one packed storage word.
const WordBits = 32

// Words returns the number of packed words needed to hold one bit-plane
// of the given channel count.
func Words(channels int) int {
	return (channels + WordBits - 1) / WordBits
}

// TailMask returns the lane mask for the packed word at group index g.
// Lanes beyond the channel count are cleared so they contribute nothing
// to popcount accumulations.
func TailMask(channels, g int) uint32 {
	rem := channels - g*WordBits
	if rem >= WordBits {
		return ^uint32(0)
	}
	if rem <= 0 {
		return 0
	}
	return (uint32(1) << uint(rem)) - 1
}

// Elem is the closed set of element types a view may carry.
type Elem interface {
	int8 | int32 | uint32 | float32
}

// View is a (shape, layout, storage) triple. Indexing is row-major over
// the declared dims; what each dim means is fixed by the layout tag.
type View[E Elem] struct {
	layout Layout
	dims   []int
	data   []E
}

// NewView wraps data in a view with the given layout tag and dims. The
// storage length must match the shape exactly.
func NewView[E Elem](layout Layout, dims []int, data []E) (*View[E], error) {
	n := 1
	for _, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("%w: dim %d must be positive", ErrShapeMismatch, d)
		}
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, storage has %d",
			ErrShapeMismatch, dims, n, len(data))
	}
	ds := make([]int, len(dims))
	copy(ds, dims)
	return &View[E]{layout: layout, dims: ds, data: data}, nil
}

func (v *View[E]) Layout() Layout { return v.layout }

func (v *View[E]) Dims() []int { return v.dims }

// Data exposes the underlying storage. Kernels index it directly after
// validating shapes once per call.
func (v *View[E]) Data() []E { return v.data }

func (v *View[E]) NumElements() int {
	n := 1
	for _, d := range v.dims {
		n *= d
	}
	return n
}

// Offset computes the flat storage offset of a multi-dimensional index.
func (v *View[E]) Offset(idx ...int) (int, error) {
	if len(idx) != len(v.dims) {
		return 0, fmt.Errorf("%w: index rank %d, view rank %d", ErrShapeMismatch, len(idx), len(v.dims))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= v.dims[i] {
			return 0, fmt.Errorf("%w: index %d out of range [0,%d) at dim %d",
				ErrShapeMismatch, x, v.dims[i], i)
		}
		off = off*v.dims[i] + x
	}
	return off, nil
}

// At returns the element at a multi-dimensional index.
func (v *View[E]) At(idx ...int) (E, error) {
	off, err := v.Offset(idx...)
	if err != nil {
		var zero E
		return zero, err
	}
	return v.data[off], nil
}

// Set stores an element at a multi-dimensional index.
func (v *View[E]) Set(val E, idx ...int) error {
	off, err := v.Offset(idx...)
	if err != nil {
		return err
	}
	v.data[off] = val
	return nil
}

// Check verifies that the view carries the expected layout and dims.
// Kernel entry points call it once before touching raw storage.
func (v *View[E]) Check(layout Layout, dims ...int) error {
	if v.layout != layout {
		return fmt.Errorf("%w: layout %s, expected %s", ErrShapeMismatch, v.layout, layout)
	}
	if len(dims) != len(v.dims) {
		return fmt.Errorf("%w: rank %d, expected %d", ErrShapeMismatch, len(v.dims), len(dims))
	}
	for i, d := range dims {
		if v.dims[i] != d {
			return fmt.Errorf("%w: dim %d is %d, expected %d", ErrShapeMismatch, i, v.dims[i], d)
		}
	}
	return nil
}
