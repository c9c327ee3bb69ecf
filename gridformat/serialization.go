package gridformat

import (
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-gridformat/internal/dtype"
)

// Serialization owns the flat little-endian bytes of field values.
type Serialization struct {
	data []byte
}

// NewSerialization returns a zeroed serialization of n bytes.
func NewSerialization(n int) Serialization {
	return Serialization{data: make([]byte, n)}
}

// SerializationFrom returns a serialization holding a copy of data.
func SerializationFrom(data []byte) Serialization {
	return Serialization{data: slices.Clone(data)}
}

// SerializationFromScalar returns a serialization holding v at its own
// precision.
func SerializationFromScalar[T Scalar](v T) Serialization {
	return Serialization{data: dtype.Encode(dtype.KindFor[T](), []T{v})}
}

// Bytes returns the underlying bytes. They remain owned by s.
func (s Serialization) Bytes() []byte {
	return s.data
}

// Len returns the number of bytes.
func (s Serialization) Len() int {
	return len(s.data)
}

// Clone returns an independent copy of s.
func (s Serialization) Clone() Serialization {
	return SerializationFrom(s.data)
}

// Resize returns s grown or shrunk to n bytes. New bytes are zero.
func (s Serialization) Resize(n int) Serialization {
	if n <= cap(s.data) {
		old := len(s.data)
		s.data = s.data[:n]
		if n > old {
			clear(s.data[old:])
		}
		return s
	}
	data := make([]byte, n)
	copy(data, s.data)
	return Serialization{data: data}
}

// AsSliceOf decodes the bytes as little-endian values of type T.
func AsSliceOf[T Scalar](s Serialization) ([]T, error) {
	k := dtype.KindFor[T]()
	if len(s.data)%k.Size() != 0 {
		return nil, fmt.Errorf("%w: %d bytes cannot be viewed as %s", ErrType, len(s.data), k)
	}
	return dtype.Convert[T](k, s.data)
}
