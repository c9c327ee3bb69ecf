package compress

import (
	"bytes"
	"fmt"

	"github.com/ulikunitz/xz"
)

// LZMA implements vtkLZMADataCompressor. Blocks are xz streams with a
// CRC32 check. The level is accepted for symmetry and does not change
// the output, since blocks are smaller than the smallest dictionary.
type LZMA struct {
	level int
}

// NewLZMA creates an lzma codec.
func NewLZMA(level int) *LZMA {
	return &LZMA{level: level}
}

func (c *LZMA) Name() string      { return "lzma" }
func (c *LZMA) Attribute() string { return "vtkLZMADataCompressor" }

func (c *LZMA) CompressBlock(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	w, err := xz.WriterConfig{CheckSum: xz.CRC32}.NewWriter(buf)
	if err != nil {
		return dst, fmt.Errorf("xz writer: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return dst, fmt.Errorf("xz compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return dst, fmt.Errorf("xz compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *LZMA) DecompressBlock(dst, src []byte) error {
	r, err := xz.ReaderConfig{SingleStream: true}.NewReader(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("xz reader: %w", err)
	}
	return readBlock("xz", r, dst)
}
