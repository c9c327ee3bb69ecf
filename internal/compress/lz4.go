package compress

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

var lz4Levels = []lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

// LZ4 implements vtkLZ4DataCompressor using the raw block format.
// Levels 1 to 9 select the high compression mode.
type LZ4 struct {
	level lz4.CompressionLevel
}

// NewLZ4 creates an lz4 codec.
func NewLZ4(level int) *LZ4 {
	if level < 0 || level >= len(lz4Levels) {
		level = 0
	}
	return &LZ4{level: lz4Levels[level]}
}

func (c *LZ4) Name() string      { return "lz4" }
func (c *LZ4) Attribute() string { return "vtkLZ4DataCompressor" }

func (c *LZ4) CompressBlock(dst, src []byte) ([]byte, error) {
	out := make([]byte, lz4.CompressBlockBound(len(src)))
	var (
		n   int
		err error
	)
	if c.level == lz4.Fast {
		var comp lz4.Compressor
		n, err = comp.CompressBlock(src, out)
	} else {
		comp := lz4.CompressorHC{Level: c.level}
		n, err = comp.CompressBlock(src, out)
	}
	if err != nil {
		return dst, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 && len(src) > 0 {
		return dst, fmt.Errorf("lz4 compress: no output for %d bytes", len(src))
	}
	return append(dst, out[:n]...), nil
}

func (c *LZ4) DecompressBlock(dst, src []byte) error {
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return fmt.Errorf("lz4 decompress: %w", err)
	}
	if n != len(dst) {
		return fmt.Errorf("%w: lz4 block holds %d bytes, expected %d", ErrSize, n, len(dst))
	}
	return nil
}
