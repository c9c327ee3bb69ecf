package compress

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/robert-malhotra/go-gridformat/internal/binary"
)

// maxBlocks bounds the block count accepted from a file header.
const maxBlocks = 1 << 31

// HeaderLen returns the number of header words for n blocks.
func HeaderLen(n int) int {
	return 3 + n
}

// HeaderValues returns the header words of the block description.
func (c CompressedBlocks) HeaderValues() []uint64 {
	values := make([]uint64, 0, HeaderLen(c.NumberOfBlocks))
	values = append(values, uint64(c.NumberOfBlocks), uint64(c.BlockSize), uint64(c.Residual))
	for _, s := range c.CompressedSizes {
		values = append(values, uint64(s))
	}
	return values
}

// WriteHeader writes the block header using the writer's header width.
func WriteHeader(w *binary.Writer, c CompressedBlocks) error {
	return w.WriteHeaders(c.HeaderValues()...)
}

// AppendHeader appends the encoded block header to dst.
func AppendHeader(dst []byte, cfg binary.Config, c CompressedBlocks) ([]byte, error) {
	var err error
	for _, v := range c.HeaderValues() {
		dst, err = binary.AppendUintN(dst, cfg.ByteOrder, v, cfg.HeaderSize)
		if err != nil {
			return dst, err
		}
	}
	return dst, nil
}

// BlocksFromHeader builds a block description from the three leading
// header words and the compressed sizes. Sizes that do not fit into an int
// or a total that overflows are rejected with ErrSize.
func BlocksFromHeader(nblocks, blockSize, residual uint64, sizes []uint64) (CompressedBlocks, error) {
	if uint64(len(sizes)) != nblocks {
		return CompressedBlocks{}, fmt.Errorf("%w: %d compressed sizes for %d blocks", ErrSize, len(sizes), nblocks)
	}
	if blockSize > math.MaxInt || residual > math.MaxInt {
		return CompressedBlocks{}, fmt.Errorf("%w: block size %d, residual %d", ErrSize, blockSize, residual)
	}
	total := uint64(0)
	if nblocks > 0 {
		hi, lo := bits.Mul64(nblocks, blockSize)
		if hi != 0 || lo > math.MaxInt {
			return CompressedBlocks{}, fmt.Errorf("%w: %d blocks of %d bytes", ErrSize, nblocks, blockSize)
		}
		total = lo
		if residual != 0 && residual < blockSize {
			total -= blockSize - residual
		}
	}
	c := CompressedBlocks{
		Blocks: Blocks{
			TotalSize:      int(total),
			BlockSize:      int(blockSize),
			NumberOfBlocks: int(nblocks),
			Residual:       int(residual),
		},
		CompressedSizes: make([]int, len(sizes)),
	}
	for i, s := range sizes {
		if s > math.MaxInt {
			return CompressedBlocks{}, fmt.Errorf("%w: block %d claims %d compressed bytes", ErrSize, i, s)
		}
		c.CompressedSizes[i] = int(s)
	}
	return c, c.Validate()
}

// ReadHeader reads a block header using the reader's header width.
func ReadHeader(r *binary.Reader) (CompressedBlocks, error) {
	head, err := r.ReadHeaders(3)
	if err != nil {
		return CompressedBlocks{}, fmt.Errorf("reading block header: %w", err)
	}
	if head[0] > maxBlocks {
		return CompressedBlocks{}, fmt.Errorf("%w: %d blocks", ErrSize, head[0])
	}
	sizes, err := r.ReadHeaders(int(head[0]))
	if err != nil {
		return CompressedBlocks{}, fmt.Errorf("reading compressed block sizes: %w", err)
	}
	return BlocksFromHeader(head[0], head[1], head[2], sizes)
}
