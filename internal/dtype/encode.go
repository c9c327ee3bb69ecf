package dtype

import (
	"fmt"
	"math"
	"reflect"
)

// PutInt stores v at precision k into dst, which must hold at least k.Size() bytes.
func PutInt(k Kind, dst []byte, v int64) {
	switch k {
	case Float32:
		Order.PutUint32(dst, math.Float32bits(float32(v)))
	case Float64:
		Order.PutUint64(dst, math.Float64bits(float64(v)))
	default:
		putBits(k, dst, uint64(v))
	}
}

// PutUint stores v at precision k into dst.
func PutUint(k Kind, dst []byte, v uint64) {
	switch k {
	case Float32:
		Order.PutUint32(dst, math.Float32bits(float32(v)))
	case Float64:
		Order.PutUint64(dst, math.Float64bits(float64(v)))
	default:
		putBits(k, dst, v)
	}
}

// PutFloat stores v at precision k into dst. Integer kinds truncate toward zero.
func PutFloat(k Kind, dst []byte, v float64) {
	switch k {
	case Float32:
		Order.PutUint32(dst, math.Float32bits(float32(v)))
	case Float64:
		Order.PutUint64(dst, math.Float64bits(v))
	default:
		if v < 0 {
			putBits(k, dst, uint64(int64(v)))
		} else {
			putBits(k, dst, uint64(v))
		}
	}
}

// putBits writes the low k.Size() bytes of v.
func putBits(k Kind, dst []byte, v uint64) {
	switch k.Size() {
	case 1:
		dst[0] = byte(v)
	case 2:
		Order.PutUint16(dst, uint16(v))
	case 4:
		Order.PutUint32(dst, uint32(v))
	case 8:
		Order.PutUint64(dst, v)
	}
}

// Put stores the Go scalar v at precision k into dst.
func Put[T Scalar](k Kind, dst []byte, v T) {
	src := KindFor[T]()
	switch {
	case src.IsFloat():
		PutFloat(k, dst, float64(v))
	case src.IsSigned():
		PutInt(k, dst, int64(v))
	default:
		PutUint(k, dst, uint64(v))
	}
}

// Encode converts values to a buffer of precision k.
func Encode[T Scalar](k Kind, values []T) []byte {
	size := k.Size()
	buf := make([]byte, len(values)*size)
	for i, v := range values {
		Put(k, buf[i*size:], v)
	}
	return buf
}

// PutValue stores a reflected scalar value at precision k into dst.
func PutValue(k Kind, dst []byte, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		PutInt(k, dst, v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		PutUint(k, dst, v.Uint())
	case reflect.Float32, reflect.Float64:
		PutFloat(k, dst, v.Float())
	case reflect.Bool:
		var b uint64
		if v.Bool() {
			b = 1
		}
		PutUint(k, dst, b)
	default:
		return fmt.Errorf("cannot encode %s as %s", v.Type(), k)
	}
	return nil
}
