package binary

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Reader reads header values and payload bytes from a random-access source.
type Reader struct {
	r          io.ReaderAt
	order      binary.ByteOrder
	headerSize int
	pos        int64
}

// NewReader creates a binary reader with the given configuration.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	order := cfg.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}
	return &Reader{
		r:          r,
		order:      order,
		headerSize: cfg.HeaderSize,
	}
}

// At returns a new reader positioned at the given offset.
// The new reader shares the underlying io.ReaderAt but has independent position.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{
		r:          r.r,
		order:      r.order,
		headerSize: r.headerSize,
		pos:        offset,
	}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	read, err := r.r.ReadAt(buf, r.pos)
	if read == n {
		// ReadAt may report io.EOF together with a full read at the end of input
		r.pos += int64(n)
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("reading %d bytes at offset %d: %w", n, r.pos, err)
}

// ReadUintN reads an unsigned integer of n bytes (1, 2, 4, or 8).
func (r *Reader) ReadUintN(n int) (uint64, error) {
	switch n {
	case 1, 2, 4, 8:
	default:
		return 0, fmt.Errorf("%w: got %d", ErrInvalidSize, n)
	}
	buf, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return DecodeUintN(r.order, buf), nil
}

// ReadHeader reads a value using the configured header size.
func (r *Reader) ReadHeader() (uint64, error) {
	return r.ReadUintN(r.headerSize)
}

// ReadHeaders reads n values using the configured header size.
func (r *Reader) ReadHeaders(n int) ([]uint64, error) {
	values := make([]uint64, n)
	for i := range values {
		v, err := r.ReadHeader()
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// DecodeUintN decodes an unsigned integer from a 1, 2, 4 or 8 byte buffer.
func DecodeUintN(order binary.ByteOrder, buf []byte) uint64 {
	switch len(buf) {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(order.Uint16(buf))
	case 4:
		return uint64(order.Uint32(buf))
	default:
		return order.Uint64(buf)
	}
}
