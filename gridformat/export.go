package gridformat

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-gridformat/internal/dtype"
)

// Export returns the values of f converted to T.
func Export[T Scalar](f Field) ([]T, error) {
	s, err := f.Serialized()
	if err != nil {
		return nil, err
	}
	out, err := dtype.Convert[T](f.Precision(), s.Bytes())
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// FieldValues returns the values of f as float64.
func FieldValues(f Field) ([]float64, error) {
	return Export[float64](f)
}

// ExportTo copies the values of f into dst, converting each value to the
// element type of dst. dst is either a pointer to a slice, which is
// resized, or a slice or pointer to an array with room for all values.
// Elements may be nested fixed-size arrays such as [3]float64, in which
// case values fill them in row-major order.
func ExportTo(f Field, dst any) error {
	v := reflect.ValueOf(dst)
	if !v.IsValid() {
		return fmt.Errorf("%w: nil destination", ErrValue)
	}
	k := f.Precision()
	if k.Size() == 0 {
		return fmt.Errorf("%w: field has invalid precision %s", ErrValue, k)
	}
	s, err := f.Serialized()
	if err != nil {
		return err
	}
	if s.Len()%k.Size() != 0 {
		return fmt.Errorf("%w: %d bytes of %s", ErrType, s.Len(), k)
	}
	n := s.Len() / k.Size()

	var target reflect.Value
	grow := false
	switch {
	case v.Kind() == reflect.Pointer && v.Elem().Kind() == reflect.Slice:
		target, grow = v.Elem(), true
	case v.Kind() == reflect.Pointer && v.Elem().Kind() == reflect.Array:
		target = v.Elem()
	case v.Kind() == reflect.Slice:
		target = v
	default:
		return fmt.Errorf("%w: cannot export into %T", ErrType, dst)
	}
	if _, err := leafPrecision(target.Type()); err != nil {
		return err
	}
	elem := target.Type().Elem()
	if scalarOrArray(elem).Kind() == reflect.Slice {
		return fmt.Errorf("%w: cannot export into nested slices of %T", ErrType, dst)
	}
	per := leavesPerElement(elem)
	if grow {
		if n%per != 0 {
			return fmt.Errorf("%w: %d values do not fill elements of %s", ErrSize, n, elem)
		}
		target.Set(reflect.MakeSlice(target.Type(), n/per, n/per))
	}
	if capacity := target.Len() * per; capacity < n {
		return fmt.Errorf("%w: destination holds %d values, field has %d", ErrSize, capacity, n)
	}

	i := 0
	return setLeaves(target, func(leaf reflect.Value) error {
		if i >= n {
			return errStop
		}
		err := dtype.SetValue(k, s.Bytes()[i*k.Size():], leaf)
		i++
		if err != nil {
			return fmt.Errorf("%w: %w", ErrType, err)
		}
		return nil
	})
}

var errStop = errors.New("stop")

// scalarOrArray strips fixed-size array levels from t.
func scalarOrArray(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t
}

func leavesPerElement(t reflect.Type) int {
	n := 1
	for ; t.Kind() == reflect.Array; t = t.Elem() {
		n *= t.Len()
	}
	return n
}

// setLeaves calls fn for every settable scalar of v in row-major order
// until fn returns errStop.
func setLeaves(v reflect.Value, fn func(reflect.Value) error) error {
	err := walkSettable(v, fn)
	if err == errStop {
		return nil
	}
	return err
}

func walkSettable(v reflect.Value, fn func(reflect.Value) error) error {
	if !isRange(v) {
		return fn(v)
	}
	for i := 0; i < v.Len(); i++ {
		if err := walkSettable(v.Index(i), fn); err != nil {
			return err
		}
	}
	return nil
}
