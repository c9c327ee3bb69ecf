package gridformat

import (
	"fmt"

	"github.com/robert-malhotra/go-gridformat/internal/dtype"
)

// extendedField pads the sub-dimensions of a field up to target extents.
type extendedField struct {
	field  Field
	target []int
	fill   []byte
}

// ExtendTo returns a field whose last dimension is padded to n entries
// with fill, e.g. 2D vectors to 3D. The source field is not modified. The
// field must have a dimension greater than one and n must not be smaller
// than its last extent.
func ExtendTo(f Field, n int, fill float64) (Field, error) {
	l := f.Layout()
	if l.Dimension() <= 1 {
		return nil, fmt.Errorf("%w: can only extend fields with dimension > 1", ErrSize)
	}
	target := l.Extents()[1:]
	target[len(target)-1] = n
	return newExtendedField(f, target, fill)
}

// ExtendAllTo returns a field whose sub-dimensions are all padded to n
// entries with zeros, e.g. 2x2 tensors to 3x3.
func ExtendAllTo(f Field, n int) (Field, error) {
	l := f.Layout()
	if l.Dimension() <= 1 {
		return nil, fmt.Errorf("%w: can only extend fields with dimension > 1", ErrSize)
	}
	target := make([]int, l.Dimension()-1)
	for i := range target {
		target[i] = n
	}
	return newExtendedField(f, target, 0)
}

func newExtendedField(f Field, target []int, fill float64) (Field, error) {
	e := &extendedField{field: f, target: target, fill: make([]byte, f.Precision().Size())}
	dtype.PutFloat(f.Precision(), e.fill, fill)
	if _, err := e.extend(f.Layout()); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *extendedField) extend(orig Layout) (Layout, error) {
	if orig.Dimension() <= 1 {
		return Layout{}, fmt.Errorf("%w: can only extend fields with dimension > 1", ErrSize)
	}
	if orig.Dimension() != len(e.target)+1 {
		return Layout{}, fmt.Errorf("%w: field layout %v does not match target sub-dimension %d", ErrSize, orig, len(e.target))
	}
	extents := append([]int{orig.Extent(0)}, e.target...)
	for i := 1; i < orig.Dimension(); i++ {
		if extents[i] < orig.Extent(i) {
			return Layout{}, fmt.Errorf("%w: cannot shrink extent %d from %d to %d", ErrSize, i, orig.Extent(i), extents[i])
		}
	}
	return NewLayout(extents...), nil
}

func (e *extendedField) Layout() Layout {
	l, err := e.extend(e.field.Layout())
	if err != nil {
		return NewLayout(append([]int{0}, e.target...)...)
	}
	return l
}

func (e *extendedField) Precision() Precision { return e.field.Precision() }

func (e *extendedField) Serialized() (Serialization, error) {
	orig := e.field.Layout()
	l, err := e.extend(orig)
	if err != nil {
		return Serialization{}, err
	}
	src, err := e.field.Serialized()
	if err != nil {
		return Serialization{}, err
	}
	if err := checkSerialized(e.field, src); err != nil {
		return Serialization{}, err
	}

	size := len(e.fill)
	dst := make([]byte, l.NumberOfEntries()*size)
	for off := 0; off < len(dst); off += size {
		copy(dst[off:], e.fill)
	}
	copyStrided(dst, src.Bytes(), orig.extents, l.extents, size)
	return Serialization{data: dst}, nil
}

// copyStrided copies a row-major block of shape srcExt into the leading
// corner of a row-major block of shape dstExt.
func copyStrided(dst, src []byte, srcExt, dstExt []int, elemSize int) {
	if len(srcExt) == 1 {
		copy(dst, src[:srcExt[0]*elemSize])
		return
	}
	srcStride := elemSize
	dstStride := elemSize
	for i := 1; i < len(srcExt); i++ {
		srcStride *= srcExt[i]
		dstStride *= dstExt[i]
	}
	for i := 0; i < srcExt[0]; i++ {
		copyStrided(dst[i*dstStride:], src[i*srcStride:], srcExt[1:], dstExt[1:], elemSize)
	}
}

// Flattened returns a one-dimensional view of f with the same values.
func Flattened(f Field) Field {
	return &flattenedField{f}
}

type flattenedField struct {
	Field
}

func (f *flattenedField) Layout() Layout {
	return NewLayout(f.Field.Layout().NumberOfEntries())
}

// mergedField concatenates fields along their first dimension.
type mergedField struct {
	fields []Field
	prec   Precision
	sub    Layout
}

// Merged returns the concatenation of fields along the first dimension.
// All fields must share precision and sub-layout.
func Merged(fields ...Field) (Field, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to merge", ErrValue)
	}
	if len(fields) == 1 {
		return fields[0], nil
	}
	first := fields[0]
	if first.Layout().Dimension() == 0 {
		return nil, fmt.Errorf("%w: cannot merge zero-dimensional fields", ErrSize)
	}
	m := &mergedField{fields: fields, prec: first.Precision(), sub: first.Layout().SubLayout(1)}
	for i, f := range fields[1:] {
		if f.Precision() != m.prec {
			return nil, fmt.Errorf("%w: field %d has precision %s, expected %s", ErrType, i+1, f.Precision(), m.prec)
		}
		if l := f.Layout(); l.Dimension() != first.Layout().Dimension() || !l.SubLayout(1).Equal(m.sub) {
			return nil, fmt.Errorf("%w: field %d has layout %v, incompatible with %v", ErrSize, i+1, l, first.Layout())
		}
	}
	return m, nil
}

func (m *mergedField) Layout() Layout {
	n := 0
	for _, f := range m.fields {
		n += f.Layout().Extent(0)
	}
	return NewLayout(append([]int{n}, m.sub.extents...)...)
}

func (m *mergedField) Precision() Precision { return m.prec }

func (m *mergedField) Serialized() (Serialization, error) {
	var data []byte
	for _, f := range m.fields {
		s, err := f.Serialized()
		if err != nil {
			return Serialization{}, err
		}
		if err := checkSerialized(f, s); err != nil {
			return Serialization{}, err
		}
		data = append(data, s.Bytes()...)
	}
	return Serialization{data: data}, nil
}
