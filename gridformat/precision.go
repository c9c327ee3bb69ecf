package gridformat

import (
	"fmt"

	"github.com/robert-malhotra/go-gridformat/internal/dtype"
)

// Precision identifies the scalar type of field values.
type Precision = dtype.Kind

// Supported precisions.
const (
	Int8    = dtype.Int8
	Int16   = dtype.Int16
	Int32   = dtype.Int32
	Int64   = dtype.Int64
	UInt8   = dtype.Uint8
	UInt16  = dtype.Uint16
	UInt32  = dtype.Uint32
	UInt64  = dtype.Uint64
	Float32 = dtype.Float32
	Float64 = dtype.Float64
	Char    = dtype.Char
)

// Scalar is the set of Go types that can be stored in a field.
type Scalar = dtype.Scalar

// ParsePrecision parses a VTK type name such as "Float32" or "UInt8".
func ParsePrecision(s string) (Precision, error) {
	k, err := dtype.Parse(s)
	if err != nil {
		return dtype.Invalid, fmt.Errorf("%w: %w", ErrValue, err)
	}
	return k, nil
}

// PrecisionOf returns the precision matching the Go type T.
func PrecisionOf[T Scalar]() Precision {
	return dtype.KindFor[T]()
}
