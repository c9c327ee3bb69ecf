// Package compress implements the block compression engine used for
// VTK-XML data arrays.
//
// Data is split into blocks of a fixed size (the last block may be shorter)
// and every block is compressed independently. The block sizes are recorded
// in a header of the form
//
//	[nblocks, blockSize, residual, csize_0, ..., csize_{n-1}]
//
// where residual is the size of the last block if it is shorter than
// blockSize and zero otherwise.
package compress

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultBlockSize is the uncompressed block size VTK uses.
const DefaultBlockSize = 32768

// DefaultLevel selects the codec's default compression level.
const DefaultLevel = -1

var (
	// ErrSize is returned when block sizes do not add up.
	ErrSize = errors.New("compressed block size mismatch")

	// ErrUnknownCompressor is returned for unregistered compressor names.
	ErrUnknownCompressor = errors.New("unknown compressor")
)

// Compressor compresses and decompresses single blocks.
type Compressor interface {
	// Name is the short name of the algorithm ("none", "zlib", ...).
	Name() string

	// Attribute is the value of the compressor attribute of a VTK file.
	// It is empty for the identity codec.
	Attribute() string

	// CompressBlock appends the compressed contents of src to dst.
	CompressBlock(dst, src []byte) ([]byte, error)

	// DecompressBlock decompresses src into dst, which has exactly the
	// expected decompressed size.
	DecompressBlock(dst, src []byte) error
}

type constructor func(level int) Compressor

var registry = map[string]constructor{
	"none": func(int) Compressor { return None{} },
	"zlib": func(level int) Compressor { return NewZlib(level) },
	"lz4":  func(level int) Compressor { return NewLZ4(level) },
	"lzma": func(level int) Compressor { return NewLZMA(level) },
}

// New returns the compressor registered under the short name.
func New(name string, level int) (Compressor, error) {
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompressor, name)
	}
	return c(level), nil
}

// ForAttribute returns the compressor for a VTK compressor attribute.
// An empty attribute selects the identity codec.
func ForAttribute(attr string) (Compressor, error) {
	if attr == "" {
		return None{}, nil
	}
	for _, name := range Names() {
		c := registry[name](DefaultLevel)
		if c.Attribute() == attr {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCompressor, attr)
}

// Names lists the registered short names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsNone reports whether c is the identity codec.
func IsNone(c Compressor) bool {
	if c == nil {
		return true
	}
	_, ok := c.(None)
	return ok
}
