package gridformat

import (
	"fmt"
	"reflect"
)

// entityField evaluates a per-point or per-cell callback at write time.
type entityField[V any] struct {
	count  func() int
	fn     func(int) V
	layout Layout
	prec   Precision
}

// NewPointField returns a field evaluating fn for every point of grid when
// it is serialized. V is a scalar or a fixed-shape nested array or slice,
// e.g. float64 or [3]float64.
func NewPointField[V any](grid UnstructuredGrid, fn func(i int) V, opts ...FieldOption) (Field, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrInvalidState)
	}
	return newEntityField(grid.NumberOfPoints, fn, opts)
}

// NewCellField returns a field evaluating fn for every cell of grid when
// it is serialized.
func NewCellField[V any](grid UnstructuredGrid, fn func(i int) V, opts ...FieldOption) (Field, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrInvalidState)
	}
	return newEntityField(grid.NumberOfCells, fn, opts)
}

func newEntityField[V any](count func() int, fn func(int) V, opts []FieldOption) (Field, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil callback", ErrValue)
	}
	leaf, err := leafPrecision(reflect.TypeFor[V]())
	if err != nil {
		return nil, err
	}

	n := count()
	var sub []int
	if n > 0 {
		v := reflect.ValueOf(fn(0))
		if isRange(v) {
			sub = shapeOf(v)
		}
	} else if zero := reflect.New(reflect.TypeFor[V]()).Elem(); isRange(zero) {
		sub = shapeOf(zero)
	}
	o := buildFieldOptions(leaf, opts)
	return &entityField[V]{
		count:  count,
		fn:     fn,
		layout: NewLayout(append([]int{n}, sub...)...),
		prec:   o.precision,
	}, nil
}

func (f *entityField[V]) Layout() Layout       { return f.layout }
func (f *entityField[V]) Precision() Precision { return f.prec }

func (f *entityField[V]) Serialized() (Serialization, error) {
	n := f.layout.Extent(0)
	if c := f.count(); c != n {
		return Serialization{}, fmt.Errorf("%w: grid changed from %d to %d entities", ErrSize, n, c)
	}
	sub := f.layout.extents[1:]
	data := make([]byte, 0, f.layout.NumberOfEntries()*f.prec.Size())
	for i := range n {
		v := reflect.ValueOf(f.fn(i))
		if len(sub) > 0 {
			if err := checkShapeAt(v, sub); err != nil {
				return Serialization{}, fmt.Errorf("entity %d: %w", i, err)
			}
		} else if isRange(v) {
			return Serialization{}, fmt.Errorf("%w: entity %d returned a range", ErrSize, i)
		}
		var err error
		if data, err = appendLeaves(data, v, f.prec); err != nil {
			return Serialization{}, err
		}
	}
	return Serialization{data: data}, nil
}
