package dtype

import (
	"fmt"
	"math"
	"reflect"
)

// bits reads the raw k.Size() bytes at src as an unsigned integer.
func bits(k Kind, src []byte) uint64 {
	switch k.Size() {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(Order.Uint16(src))
	case 4:
		return uint64(Order.Uint32(src))
	default:
		return Order.Uint64(src)
	}
}

// Int reads one element of precision k as a signed integer.
func Int(k Kind, src []byte) int64 {
	switch k {
	case Int8:
		return int64(int8(src[0]))
	case Int16:
		return int64(int16(Order.Uint16(src)))
	case Int32:
		return int64(int32(Order.Uint32(src)))
	case Int64:
		return int64(Order.Uint64(src))
	case Float32, Float64:
		return int64(Float(k, src))
	default:
		return int64(bits(k, src))
	}
}

// Uint reads one element of precision k as an unsigned integer.
// Negative values wrap the way an integer conversion does.
func Uint(k Kind, src []byte) uint64 {
	switch {
	case k.IsFloat():
		f := Float(k, src)
		if f < 0 {
			return uint64(int64(f))
		}
		return uint64(f)
	case k.IsSigned():
		return uint64(Int(k, src))
	default:
		return bits(k, src)
	}
}

// Float reads one element of precision k as a float64.
func Float(k Kind, src []byte) float64 {
	switch k {
	case Float32:
		return float64(math.Float32frombits(Order.Uint32(src)))
	case Float64:
		return math.Float64frombits(Order.Uint64(src))
	}
	if k.IsSigned() {
		return float64(Int(k, src))
	}
	return float64(bits(k, src))
}

// Get reads one element of precision k as T.
func Get[T Scalar](k Kind, src []byte) T {
	switch {
	case k.IsFloat():
		return T(Float(k, src))
	case k.IsSigned():
		return T(Int(k, src))
	default:
		return T(bits(k, src))
	}
}

// Convert reads all elements of a precision-k buffer into a slice of T.
func Convert[T Scalar](k Kind, data []byte) ([]T, error) {
	size := k.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, k)
	}
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes of %s", ErrSizeMismatch, len(data), k)
	}
	out := make([]T, len(data)/size)
	for i := range out {
		out[i] = Get[T](k, data[i*size:])
	}
	return out, nil
}

// SetValue assigns one element of precision k to the settable scalar dst.
func SetValue(k Kind, src []byte, dst reflect.Value) error {
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(Int(k, src))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		dst.SetUint(Uint(k, src))
	case reflect.Float32, reflect.Float64:
		dst.SetFloat(Float(k, src))
	case reflect.Bool:
		dst.SetBool(bits(k, src) != 0)
	default:
		return fmt.Errorf("cannot convert %s to %s", k, dst.Type())
	}
	return nil
}

// Cast converts a precision-k buffer into a buffer of precision to.
func Cast(k, to Kind, data []byte) ([]byte, error) {
	if k == to {
		return data, nil
	}
	size := k.Size()
	if size == 0 || to.Size() == 0 {
		return nil, fmt.Errorf("%w: %s to %s", ErrUnknownKind, k, to)
	}
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes of %s", ErrSizeMismatch, len(data), k)
	}
	n := len(data) / size
	out := make([]byte, n*to.Size())
	for i := 0; i < n; i++ {
		src := data[i*size:]
		dst := out[i*to.Size():]
		switch {
		case k.IsFloat():
			PutFloat(to, dst, Float(k, src))
		case k.IsSigned():
			PutInt(to, dst, Int(k, src))
		default:
			PutUint(to, dst, bits(k, src))
		}
	}
	return out, nil
}

// SwapBytes reverses the byte order of every element in data in place.
func SwapBytes(k Kind, data []byte) {
	size := k.Size()
	if size <= 1 {
		return
	}
	for i := 0; i+size <= len(data); i += size {
		e := data[i : i+size]
		for a, b := 0, size-1; a < b; a, b = a+1, b-1 {
			e[a], e[b] = e[b], e[a]
		}
	}
}
