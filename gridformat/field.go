package gridformat

import (
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-gridformat/internal/dtype"
)

// Field is a source of values to be written. Serialized must not modify
// the field and returns Layout().NumberOfEntries()*Precision().Size()
// bytes.
type Field interface {
	Layout() Layout
	Precision() Precision
	Serialized() (Serialization, error)
}

// FieldOption configures field construction.
type FieldOption func(*fieldOptions)

type fieldOptions struct {
	precision Precision
}

func buildFieldOptions(def Precision, opts []FieldOption) fieldOptions {
	o := fieldOptions{precision: def}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPrecision sets the precision values are converted to when the field
// is serialized.
func WithPrecision(p Precision) FieldOption {
	return func(o *fieldOptions) {
		if p.Valid() {
			o.precision = p
		}
	}
}

func checkSerialized(f Field, s Serialization) error {
	want := f.Layout().NumberOfEntries() * f.Precision().Size()
	if s.Len() != want {
		return fmt.Errorf("%w: field produced %d bytes, layout %v of %s needs %d", ErrSize, s.Len(), f.Layout(), f.Precision(), want)
	}
	return nil
}

// scalarField holds a single value.
type scalarField struct {
	prec Precision
	data []byte
}

// NewScalarField returns a field holding v. Its layout has one entry.
func NewScalarField[T Scalar](v T, opts ...FieldOption) Field {
	o := buildFieldOptions(dtype.KindFor[T](), opts)
	data := make([]byte, o.precision.Size())
	dtype.Put(o.precision, data, v)
	return &scalarField{prec: o.precision, data: data}
}

func (f *scalarField) Layout() Layout       { return NewLayout(1) }
func (f *scalarField) Precision() Precision { return f.prec }

func (f *scalarField) Serialized() (Serialization, error) {
	return SerializationFrom(f.data), nil
}

// rangeField references a possibly nested slice or array of scalars. The
// nesting depth defines the layout.
type rangeField struct {
	values reflect.Value
	layout Layout
	prec   Precision
}

// NewRangeField returns a field over values, which may be a scalar or a
// nested slice or array of scalars such as [][3]float64. The field keeps a
// reference to values, so changes made before writing are visible. Ragged
// nesting fails with ErrSize.
func NewRangeField(values any, opts ...FieldOption) (Field, error) {
	v := reflect.ValueOf(values)
	if !v.IsValid() {
		return nil, fmt.Errorf("%w: nil range", ErrValue)
	}
	leaf, err := leafPrecision(v.Type())
	if err != nil {
		return nil, err
	}
	extents := shapeOf(v)
	if err := checkShape(v, extents); err != nil {
		return nil, err
	}
	o := buildFieldOptions(leaf, opts)
	return &rangeField{values: v, layout: NewLayout(extents...), prec: o.precision}, nil
}

func (f *rangeField) Layout() Layout       { return f.layout }
func (f *rangeField) Precision() Precision { return f.prec }

func (f *rangeField) Serialized() (Serialization, error) {
	if err := checkShape(f.values, f.layout.extents); err != nil {
		return Serialization{}, err
	}
	data := make([]byte, 0, f.layout.NumberOfEntries()*f.prec.Size())
	data, err := appendLeaves(data, f.values, f.prec)
	if err != nil {
		return Serialization{}, err
	}
	return Serialization{data: data}, nil
}

// flatField flattens arbitrarily ragged nested ranges.
type flatField struct {
	values reflect.Value
	count  int
	prec   Precision
}

// NewFlatField returns a one-dimensional field over all scalars of a
// possibly ragged nested range, in iteration order. It is typically used
// for cell connectivity given as [][]int.
func NewFlatField(values any, opts ...FieldOption) (Field, error) {
	v := reflect.ValueOf(values)
	if !v.IsValid() {
		return nil, fmt.Errorf("%w: nil range", ErrValue)
	}
	leaf, err := leafPrecision(v.Type())
	if err != nil {
		return nil, err
	}
	o := buildFieldOptions(leaf, opts)
	return &flatField{values: v, count: countLeaves(v), prec: o.precision}, nil
}

func (f *flatField) Layout() Layout       { return NewLayout(f.count) }
func (f *flatField) Precision() Precision { return f.prec }

func (f *flatField) Serialized() (Serialization, error) {
	if n := countLeaves(f.values); n != f.count {
		return Serialization{}, fmt.Errorf("%w: range changed from %d to %d values", ErrSize, f.count, n)
	}
	data, err := appendLeaves(make([]byte, 0, f.count*f.prec.Size()), f.values, f.prec)
	if err != nil {
		return Serialization{}, err
	}
	return Serialization{data: data}, nil
}

// bufferField wraps bytes that are already serialized.
type bufferField struct {
	data   Serialization
	layout Layout
	prec   Precision
}

// NewBufferField returns a field over pre-serialized little-endian values.
// The field takes ownership of s.
func NewBufferField(s Serialization, layout Layout, prec Precision) (Field, error) {
	if !prec.Valid() {
		return nil, fmt.Errorf("%w: invalid precision", ErrValue)
	}
	f := &bufferField{data: s, layout: layout, prec: prec}
	if err := checkSerialized(f, s); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *bufferField) Layout() Layout                     { return f.layout }
func (f *bufferField) Precision() Precision               { return f.prec }
func (f *bufferField) Serialized() (Serialization, error) { return f.data, nil }

// lazyField evaluates a callback on every serialization.
type lazyField[S any] struct {
	source S
	layout Layout
	prec   Precision
	fn     func(S) (Serialization, error)
}

// NewLazyField returns a field whose values are produced by fn(source)
// each time the field is serialized. Nothing is cached.
func NewLazyField[S any](source S, layout Layout, prec Precision, fn func(S) (Serialization, error)) (Field, error) {
	if !prec.Valid() {
		return nil, fmt.Errorf("%w: invalid precision", ErrValue)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: nil callback", ErrValue)
	}
	return &lazyField[S]{source: source, layout: layout, prec: prec, fn: fn}, nil
}

func (f *lazyField[S]) Layout() Layout       { return f.layout }
func (f *lazyField[S]) Precision() Precision { return f.prec }

func (f *lazyField[S]) Serialized() (Serialization, error) {
	s, err := f.fn(f.source)
	if err != nil {
		return Serialization{}, err
	}
	if err := checkSerialized(f, s); err != nil {
		return Serialization{}, err
	}
	return s, nil
}

// leafPrecision returns the precision of the innermost element type of t.
func leafPrecision(t reflect.Type) (Precision, error) {
	for t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	if t.Kind() == reflect.Bool {
		return dtype.Uint8, nil
	}
	k, ok := dtype.KindOf(t.Kind())
	if !ok {
		return dtype.Invalid, fmt.Errorf("%w: %s is not a scalar type", ErrType, t)
	}
	return k, nil
}

func isRange(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

// shapeOf derives extents from the first element at every nesting level.
// Empty slices take the remaining extents from the element types.
func shapeOf(v reflect.Value) []int {
	if !isRange(v) {
		return []int{1}
	}
	var extents []int
	for {
		extents = append(extents, v.Len())
		if v.Len() == 0 {
			break
		}
		v = v.Index(0)
		if !isRange(v) {
			return extents
		}
	}
	for t := v.Type().Elem(); t.Kind() == reflect.Slice || t.Kind() == reflect.Array; t = t.Elem() {
		if t.Kind() == reflect.Array {
			extents = append(extents, t.Len())
		} else {
			extents = append(extents, 0)
		}
	}
	return extents
}

// checkShape verifies that every nested range of v has the given extents.
func checkShape(v reflect.Value, extents []int) error {
	if !isRange(v) {
		if len(extents) == 1 && extents[0] == 1 {
			return nil
		}
		return fmt.Errorf("%w: expected a range of shape %v", ErrSize, extents)
	}
	return checkShapeAt(v, extents)
}

func checkShapeAt(v reflect.Value, extents []int) error {
	if len(extents) == 0 {
		if isRange(v) {
			return fmt.Errorf("%w: unexpected nesting", ErrSize)
		}
		return nil
	}
	if !isRange(v) {
		return fmt.Errorf("%w: missing nesting level", ErrSize)
	}
	if v.Len() != extents[0] {
		return fmt.Errorf("%w: ragged range with extent %d, expected %d", ErrSize, v.Len(), extents[0])
	}
	if v.Kind() == reflect.Array && len(extents) == 1 {
		return nil
	}
	for i := 0; i < v.Len(); i++ {
		if err := checkShapeAt(v.Index(i), extents[1:]); err != nil {
			return err
		}
	}
	return nil
}

func countLeaves(v reflect.Value) int {
	if !isRange(v) {
		return 1
	}
	if v.Len() == 0 {
		return 0
	}
	if !isRange(v.Index(0)) {
		return v.Len()
	}
	n := 0
	for i := 0; i < v.Len(); i++ {
		n += countLeaves(v.Index(i))
	}
	return n
}

// appendLeaves appends all scalars of v in row-major order, converted to k.
func appendLeaves(dst []byte, v reflect.Value, k Precision) ([]byte, error) {
	if isRange(v) {
		var err error
		for i := 0; i < v.Len(); i++ {
			if dst, err = appendLeaves(dst, v.Index(i), k); err != nil {
				return nil, err
			}
		}
		return dst, nil
	}
	off := len(dst)
	dst = append(dst, make([]byte, k.Size())...)
	if err := dtype.PutValue(k, dst[off:], v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrType, err)
	}
	return dst, nil
}
