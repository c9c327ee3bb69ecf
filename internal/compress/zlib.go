package compress

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zlib"
)

// Zlib implements vtkZLibDataCompressor.
type Zlib struct {
	level int
}

// NewZlib creates a zlib codec. Negative levels select the default level.
func NewZlib(level int) *Zlib {
	if level < 0 || level > zlib.BestCompression {
		level = zlib.DefaultCompression
	}
	return &Zlib{level: level}
}

func (z *Zlib) Name() string      { return "zlib" }
func (z *Zlib) Attribute() string { return "vtkZLibDataCompressor" }

func (z *Zlib) CompressBlock(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	w, err := zlib.NewWriterLevel(buf, z.level)
	if err != nil {
		return dst, fmt.Errorf("zlib writer: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return dst, fmt.Errorf("zlib compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return dst, fmt.Errorf("zlib compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (z *Zlib) DecompressBlock(dst, src []byte) error {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("zlib reader: %w", err)
	}
	defer r.Close()

	return readBlock("zlib", r, dst)
}
