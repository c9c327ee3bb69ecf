package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"golang.org/x/exp/constraints"
)

// Order is the byte order of every serialization produced by this module.
var Order = binary.LittleEndian

// ErrUnknownKind is returned when a precision name cannot be parsed.
var ErrUnknownKind = errors.New("unknown precision")

// ErrSizeMismatch is returned when a buffer is not a multiple of the element size.
var ErrSizeMismatch = errors.New("buffer size is not a multiple of the element size")

// Scalar is the set of Go types that can be stored in a field.
type Scalar interface {
	constraints.Integer | constraints.Float
}

// Kind identifies the scalar type of field data.
type Kind uint8

const (
	Invalid Kind = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	// Char is a single byte of text, stored as VTK "String".
	Char
)

// Kinds lists all valid kinds.
var Kinds = []Kind{Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, Float32, Float64, Char}

var kindNames = map[Kind]string{
	Int8:    "Int8",
	Int16:   "Int16",
	Int32:   "Int32",
	Int64:   "Int64",
	Uint8:   "UInt8",
	Uint16:  "UInt16",
	Uint32:  "UInt32",
	Uint64:  "UInt64",
	Float32: "Float32",
	Float64: "Float64",
	Char:    "String",
}

// String returns the VTK attribute name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Invalid(%d)", uint8(k))
}

// Parse returns the kind for a VTK attribute name such as "Float64".
func Parse(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return Invalid, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k >= Int8 && k <= Char
}

// Size returns the size of a single element in bytes.
func (k Kind) Size() int {
	switch k {
	case Int8, Uint8, Char:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// IsIntegral reports whether k is an integer kind (Char included).
func (k Kind) IsIntegral() bool {
	return k.Valid() && !k.IsFloat()
}

// IsFloat reports whether k is a floating-point kind.
func (k Kind) IsFloat() bool {
	return k == Float32 || k == Float64
}

// IsSigned reports whether k can hold negative values. Char is treated as
// an unsigned byte.
func (k Kind) IsSigned() bool {
	switch k {
	case Int8, Int16, Int32, Int64, Float32, Float64:
		return true
	default:
		return false
	}
}

// KindOf returns the kind corresponding to a reflect.Kind.
// Platform-sized int and uint map to their 64-bit counterparts.
func KindOf(rk reflect.Kind) (Kind, bool) {
	switch rk {
	case reflect.Int8:
		return Int8, true
	case reflect.Int16:
		return Int16, true
	case reflect.Int32:
		return Int32, true
	case reflect.Int64, reflect.Int:
		return Int64, true
	case reflect.Uint8:
		return Uint8, true
	case reflect.Uint16:
		return Uint16, true
	case reflect.Uint32:
		return Uint32, true
	case reflect.Uint64, reflect.Uint, reflect.Uintptr:
		return Uint64, true
	case reflect.Float32:
		return Float32, true
	case reflect.Float64:
		return Float64, true
	default:
		return Invalid, false
	}
}

// KindFor returns the kind of the Go scalar type T.
func KindFor[T Scalar]() Kind {
	k, _ := KindOf(reflect.TypeFor[T]().Kind())
	return k
}
