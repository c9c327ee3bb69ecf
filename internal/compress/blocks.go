package compress

import (
	"errors"
	"fmt"
	"io"
)

// Blocks describes how a buffer of TotalSize bytes is split into blocks.
type Blocks struct {
	TotalSize      int
	BlockSize      int
	NumberOfBlocks int
	// Residual is the size of the last block if it is shorter than
	// BlockSize, zero otherwise.
	Residual int
}

// NewBlocks splits total bytes into blocks of blockSize bytes.
// A non-positive block size yields a single block holding everything.
func NewBlocks(total, blockSize int) Blocks {
	if blockSize <= 0 {
		blockSize = total
	}
	b := Blocks{TotalSize: total, BlockSize: blockSize}
	if total == 0 {
		return b
	}
	b.NumberOfBlocks = (total + blockSize - 1) / blockSize
	b.Residual = total % blockSize
	return b
}

// BlockLen returns the uncompressed size of block i.
func (b Blocks) BlockLen(i int) int {
	if i == b.NumberOfBlocks-1 && b.Residual != 0 {
		return b.Residual
	}
	return b.BlockSize
}

// CompressedBlocks is a block split together with the compressed size of
// every block.
type CompressedBlocks struct {
	Blocks
	CompressedSizes []int
}

// CompressedSize returns the sum of all compressed block sizes.
func (c CompressedBlocks) CompressedSize() int {
	total := 0
	for _, s := range c.CompressedSizes {
		total += s
	}
	return total
}

// Validate checks the consistency of the block description.
func (c CompressedBlocks) Validate() error {
	if len(c.CompressedSizes) != c.NumberOfBlocks {
		return fmt.Errorf("%w: %d compressed sizes for %d blocks", ErrSize, len(c.CompressedSizes), c.NumberOfBlocks)
	}
	if c.NumberOfBlocks == 0 {
		if c.TotalSize != 0 {
			return fmt.Errorf("%w: no blocks for %d bytes", ErrSize, c.TotalSize)
		}
		return nil
	}
	if c.BlockSize <= 0 || c.Residual < 0 || c.Residual >= c.BlockSize {
		return fmt.Errorf("%w: block size %d, residual %d", ErrSize, c.BlockSize, c.Residual)
	}
	for i, s := range c.CompressedSizes {
		if s < 0 {
			return fmt.Errorf("%w: negative size for block %d", ErrSize, i)
		}
	}
	return nil
}

// Compress splits data into blocks and compresses each block independently.
// It returns the block description and the concatenated compressed blocks.
// The identity codec always uses a single block.
func Compress(c Compressor, data []byte, blockSize int) (CompressedBlocks, []byte, error) {
	if IsNone(c) {
		c = None{}
		blockSize = len(data)
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	blocks := CompressedBlocks{Blocks: NewBlocks(len(data), blockSize)}
	blocks.CompressedSizes = make([]int, blocks.NumberOfBlocks)

	out := make([]byte, 0, len(data)/2)
	offset := 0
	for i := range blocks.NumberOfBlocks {
		n := blocks.BlockLen(i)
		before := len(out)
		var err error
		out, err = c.CompressBlock(out, data[offset:offset+n])
		if err != nil {
			return CompressedBlocks{}, nil, fmt.Errorf("block %d: %w", i, err)
		}
		blocks.CompressedSizes[i] = len(out) - before
		offset += n
	}
	return blocks, out, nil
}

// maxExpansion bounds the ratio of decompressed to compressed block size
// accepted by Decompress. No supported codec comes close to it.
const maxExpansion = 1 << 16

// Decompress restores the original data from concatenated compressed blocks.
// Block descriptions that do not fit the compressed data are rejected with
// ErrSize before anything is allocated.
func Decompress(c Compressor, blocks CompressedBlocks, data []byte) ([]byte, error) {
	if c == nil {
		c = None{}
	}
	if err := blocks.Validate(); err != nil {
		return nil, err
	}
	expected, in := 0, 0
	for i, csize := range blocks.CompressedSizes {
		if csize > len(data)-in {
			return nil, fmt.Errorf("%w: block %d needs %d compressed bytes, %d left", ErrSize, i, csize, len(data)-in)
		}
		n := blocks.BlockLen(i)
		if n > maxExpansion*(csize+1) {
			return nil, fmt.Errorf("%w: block %d expands %d bytes to %d", ErrSize, i, csize, n)
		}
		in += csize
		expected += n
	}
	if expected != blocks.TotalSize && blocks.TotalSize != 0 {
		return nil, fmt.Errorf("%w: blocks hold %d bytes, expected %d", ErrSize, expected, blocks.TotalSize)
	}

	out := make([]byte, expected)
	in, pos := 0, 0
	for i, csize := range blocks.CompressedSizes {
		n := blocks.BlockLen(i)
		if err := c.DecompressBlock(out[pos:pos+n], data[in:in+csize]); err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		in += csize
		pos += n
	}
	return out, nil
}

// readBlock fills dst from the decoder r of the named codec. A stream that
// ends early or holds more than len(dst) bytes is reported as ErrSize.
func readBlock(name string, r io.Reader, dst []byte) error {
	if n, err := io.ReadFull(r, dst); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s block holds %d bytes, expected %d", ErrSize, name, n, len(dst))
		}
		return fmt.Errorf("%s decompress: %w", name, err)
	}
	var extra [1]byte
	if n, _ := r.Read(extra[:]); n != 0 {
		return fmt.Errorf("%w: %s block exceeds %d bytes", ErrSize, name, len(dst))
	}
	return nil
}
