package dtype

import (
	"fmt"
	"math"
	"strconv"
)

// AppendText appends the decimal text of one element of precision k.
// Floats use the shortest representation that round-trips at their precision.
// Char elements are written as their numeric byte value.
func AppendText(dst []byte, k Kind, src []byte) []byte {
	switch k {
	case Float32:
		return strconv.AppendFloat(dst, Float(k, src), 'g', -1, 32)
	case Float64:
		return strconv.AppendFloat(dst, Float(k, src), 'g', -1, 64)
	case Int8, Int16, Int32, Int64:
		return strconv.AppendInt(dst, Int(k, src), 10)
	default:
		return strconv.AppendUint(dst, bits(k, src), 10)
	}
}

// ParseText parses one decimal token as precision k and stores it into dst.
func ParseText(k Kind, text string, dst []byte) error {
	switch k {
	case Float32, Float64:
		v, err := strconv.ParseFloat(text, 8*k.Size())
		if err != nil {
			return fmt.Errorf("parsing %q as %s: %w", text, k, err)
		}
		PutFloat(k, dst, v)
	case Int8, Int16, Int32, Int64:
		v, err := strconv.ParseInt(text, 10, 8*k.Size())
		if err != nil {
			return fmt.Errorf("parsing %q as %s: %w", text, k, err)
		}
		PutInt(k, dst, v)
	case Char:
		// accept both signed and unsigned spellings of a byte
		v, err := strconv.ParseInt(text, 10, 16)
		if err != nil || v < math.MinInt8 || v > math.MaxUint8 {
			return fmt.Errorf("parsing %q as %s: invalid byte", text, k)
		}
		dst[0] = byte(v)
	case Uint8, Uint16, Uint32, Uint64:
		v, err := strconv.ParseUint(text, 10, 8*k.Size())
		if err != nil {
			return fmt.Errorf("parsing %q as %s: %w", text, k, err)
		}
		PutUint(k, dst, v)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, k)
	}
	return nil
}
