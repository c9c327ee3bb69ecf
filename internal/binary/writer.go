// Package binary provides the fixed-width integer I/O used for VTK-XML
// data array headers and appended data framing.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidSize is returned when an invalid header size is specified.
var ErrInvalidSize = errors.New("invalid header size: must be 1, 2, 4, or 8")

// ErrOverflow is returned when a value does not fit into the header width.
var ErrOverflow = errors.New("value exceeds header width")

// Config holds the byte order and header width used to frame data arrays.
type Config struct {
	ByteOrder  binary.ByteOrder
	HeaderSize int // 4 or 8 bytes in VTK files
}

// Validate checks that the configured header size is supported.
func (c Config) Validate() error {
	switch c.HeaderSize {
	case 1, 2, 4, 8:
		return nil
	default:
		return fmt.Errorf("%w: got %d", ErrInvalidSize, c.HeaderSize)
	}
}

// Writer writes header values and payload bytes to a sequential stream.
type Writer struct {
	w          io.Writer
	order      binary.ByteOrder
	headerSize int
	pos        int64
}

// NewWriter creates a binary writer with the given configuration.
func NewWriter(w io.Writer, cfg Config) *Writer {
	order := cfg.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}
	return &Writer{
		w:          w,
		order:      order,
		headerSize: cfg.HeaderSize,
	}
}

// Pos returns the number of bytes written so far.
func (w *Writer) Pos() int64 {
	return w.pos
}

// WriteBytes writes the given bytes at the current position.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.w.Write(data)
	w.pos += int64(n)
	return err
}

// WriteUintN writes an unsigned integer of n bytes (1, 2, 4, or 8).
func (w *Writer) WriteUintN(v uint64, n int) error {
	buf, err := AppendUintN(nil, w.order, v, n)
	if err != nil {
		return err
	}
	return w.WriteBytes(buf)
}

// WriteHeader writes a value using the configured header size.
func (w *Writer) WriteHeader(v uint64) error {
	return w.WriteUintN(v, w.headerSize)
}

// WriteHeaders writes all values using the configured header size.
func (w *Writer) WriteHeaders(values ...uint64) error {
	for _, v := range values {
		if err := w.WriteHeader(v); err != nil {
			return err
		}
	}
	return nil
}

// AppendUintN appends v encoded in n bytes to dst. A nil order means
// little-endian.
func AppendUintN(dst []byte, order binary.ByteOrder, v uint64, n int) ([]byte, error) {
	if n < 8 && v>>(8*uint(n)) != 0 {
		return dst, fmt.Errorf("%w: %d does not fit into %d bytes", ErrOverflow, v, n)
	}
	if order == nil {
		order = binary.LittleEndian
	}
	var buf [8]byte
	switch n {
	case 1:
		buf[0] = uint8(v)
	case 2:
		order.PutUint16(buf[:], uint16(v))
	case 4:
		order.PutUint32(buf[:], uint32(v))
	case 8:
		order.PutUint64(buf[:], v)
	default:
		return dst, fmt.Errorf("%w: got %d", ErrInvalidSize, n)
	}
	return append(dst, buf[:n]...), nil
}
