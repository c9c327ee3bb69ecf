package compress

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/robert-malhotra/go-gridformat/internal/binary"
)

func testData(n int) []byte {
	rng := rand.New(rand.NewSource(int64(n)))
	data := make([]byte, n)
	for i := range data {
		// mostly repetitive so the codecs have something to do
		if i%7 == 0 {
			data[i] = byte(rng.Intn(256))
		} else {
			data[i] = byte(i / 100)
		}
	}
	return data
}

func TestNewBlocks(t *testing.T) {
	tests := []struct {
		total, blockSize  int
		nblocks, residual int
	}{
		{0, 32768, 0, 0},
		{1, 32768, 1, 1},
		{32768, 32768, 1, 0},
		{32769, 32768, 2, 1},
		{100, 10, 10, 0},
		{105, 10, 11, 5},
		{42, 0, 1, 0},
	}

	for _, tt := range tests {
		b := NewBlocks(tt.total, tt.blockSize)
		if b.NumberOfBlocks != tt.nblocks {
			t.Errorf("NewBlocks(%d, %d): expected %d blocks, got %d", tt.total, tt.blockSize, tt.nblocks, b.NumberOfBlocks)
		}
		if b.Residual != tt.residual {
			t.Errorf("NewBlocks(%d, %d): expected residual %d, got %d", tt.total, tt.blockSize, tt.residual, b.Residual)
		}
		sum := 0
		for i := range b.NumberOfBlocks {
			sum += b.BlockLen(i)
		}
		if sum != tt.total {
			t.Errorf("NewBlocks(%d, %d): block lengths sum to %d", tt.total, tt.blockSize, sum)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 100, 4096, 32768, 70000}
	for _, name := range Names() {
		c, err := New(name, DefaultLevel)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
		for _, n := range sizes {
			data := testData(n)
			blocks, compressed, err := Compress(c, data, 4096)
			if err != nil {
				t.Fatalf("%s: Compress(%d) failed: %v", name, n, err)
			}
			if len(blocks.CompressedSizes) != blocks.NumberOfBlocks {
				t.Fatalf("%s: %d sizes for %d blocks", name, len(blocks.CompressedSizes), blocks.NumberOfBlocks)
			}
			if blocks.CompressedSize() != len(compressed) {
				t.Fatalf("%s: sizes sum to %d, payload has %d bytes", name, blocks.CompressedSize(), len(compressed))
			}
			got, err := Decompress(c, blocks, compressed)
			if err != nil {
				t.Fatalf("%s: Decompress(%d) failed: %v", name, n, err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("%s: round trip of %d bytes differs", name, n)
			}
		}
	}
}

func TestNoneSingleBlock(t *testing.T) {
	data := testData(100000)
	blocks, out, err := Compress(None{}, data, 10)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if blocks.NumberOfBlocks != 1 || blocks.BlockSize != len(data) || blocks.Residual != 0 {
		t.Errorf("unexpected blocks %+v", blocks.Blocks)
	}
	if !bytes.Equal(out, data) {
		t.Error("identity codec changed the data")
	}

	empty, _, err := Compress(None{}, nil, 10)
	if err != nil {
		t.Fatalf("Compress(nil) failed: %v", err)
	}
	if empty.NumberOfBlocks != 0 {
		t.Errorf("expected 0 blocks for empty input, got %d", empty.NumberOfBlocks)
	}
}

func TestNoneValidatesSplitting(t *testing.T) {
	blocks, err := BlocksFromHeader(2, 4, 2, []uint64{4, 3})
	if err != nil {
		t.Fatalf("BlocksFromHeader failed: %v", err)
	}
	if _, err := Decompress(None{}, blocks, make([]byte, 7)); !errors.Is(err, ErrSize) {
		t.Errorf("expected ErrSize, got %v", err)
	}
}

func TestDecompressTruncated(t *testing.T) {
	c := NewZlib(DefaultLevel)
	blocks, out, err := Compress(c, testData(10000), 1000)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if _, err := Decompress(c, blocks, out[:len(out)-1]); !errors.Is(err, ErrSize) {
		t.Errorf("expected ErrSize, got %v", err)
	}
}

func TestDecompressWrongSize(t *testing.T) {
	for _, c := range []Compressor{NewZlib(DefaultLevel), NewLZ4(DefaultLevel), NewLZMA(DefaultLevel)} {
		blocks, out, err := Compress(c, testData(1000), 1000)
		if err != nil {
			t.Fatalf("%s: Compress failed: %v", c.Name(), err)
		}
		blocks.BlockSize = 1200
		blocks.TotalSize = 1200
		if _, err := Decompress(c, blocks, out); !errors.Is(err, ErrSize) {
			t.Errorf("%s: expected ErrSize for a block shorter than declared, got %v", c.Name(), err)
		}
	}
}

func TestBlocksFromHeaderBounds(t *testing.T) {
	tests := []struct {
		name                         string
		nblocks, blockSize, residual uint64
		sizes                        []uint64
	}{
		{"total overflows", 2, 1 << 62, 0, []uint64{1, 1}},
		{"product wraps", 4, 1 << 63, 0, []uint64{1, 1, 1, 1}},
		{"block size beyond int", 1, 1 << 63, 0, []uint64{1}},
		{"compressed size beyond int", 1, 16, 0, []uint64{1 << 63}},
		{"residual not below block size", 1, 16, 16, []uint64{1}},
		{"missing sizes", 3, 16, 0, []uint64{1}},
	}
	for _, tt := range tests {
		if _, err := BlocksFromHeader(tt.nblocks, tt.blockSize, tt.residual, tt.sizes); !errors.Is(err, ErrSize) {
			t.Errorf("%s: expected ErrSize, got %v", tt.name, err)
		}
	}
}

func TestDecompressImplausibleHeader(t *testing.T) {
	// a header claiming gigabytes behind a few compressed bytes
	blocks, err := BlocksFromHeader(2, 1<<40, 0, []uint64{1, 1})
	if err != nil {
		t.Fatalf("BlocksFromHeader failed: %v", err)
	}
	if _, err := Decompress(NewZlib(DefaultLevel), blocks, []byte{0, 0}); !errors.Is(err, ErrSize) {
		t.Errorf("expected ErrSize, got %v", err)
	}

	var head []byte
	cfg := binary.Config{HeaderSize: 8}
	for _, v := range []uint64{2, 1 << 62, 0, 1, 1} {
		head, _ = binary.AppendUintN(head, nil, v, 8)
	}
	if _, err := ReadHeader(binary.NewReader(bytes.NewReader(head), cfg)); !errors.Is(err, ErrSize) {
		t.Errorf("ReadHeader: expected ErrSize, got %v", err)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	for _, size := range []int{4, 8} {
		cfg := binary.Config{HeaderSize: size}
		blocks, _, err := Compress(NewLZ4(DefaultLevel), testData(70000), DefaultBlockSize)
		if err != nil {
			t.Fatalf("Compress failed: %v", err)
		}

		head, err := AppendHeader(nil, cfg, blocks)
		if err != nil {
			t.Fatalf("AppendHeader failed: %v", err)
		}
		if len(head) != HeaderLen(3)*size {
			t.Fatalf("expected %d header bytes, got %d", HeaderLen(3)*size, len(head))
		}

		var buf bytes.Buffer
		if err := WriteHeader(binary.NewWriter(&buf, cfg), blocks); err != nil {
			t.Fatalf("WriteHeader failed: %v", err)
		}
		if !bytes.Equal(buf.Bytes(), head) {
			t.Errorf("WriteHeader and AppendHeader disagree")
		}

		got, err := ReadHeader(binary.NewReader(bytes.NewReader(head), cfg))
		if err != nil {
			t.Fatalf("ReadHeader failed: %v", err)
		}
		if got.TotalSize != 70000 || got.NumberOfBlocks != 3 || got.Residual != 70000-2*DefaultBlockSize {
			t.Errorf("unexpected header %+v", got.Blocks)
		}
		for i := range blocks.CompressedSizes {
			if got.CompressedSizes[i] != blocks.CompressedSizes[i] {
				t.Errorf("block %d: expected size %d, got %d", i, blocks.CompressedSizes[i], got.CompressedSizes[i])
			}
		}
	}
}

func TestRegistry(t *testing.T) {
	tests := []struct {
		attr string
		name string
	}{
		{"", "none"},
		{"vtkZLibDataCompressor", "zlib"},
		{"vtkLZ4DataCompressor", "lz4"},
		{"vtkLZMADataCompressor", "lzma"},
	}
	for _, tt := range tests {
		c, err := ForAttribute(tt.attr)
		if err != nil {
			t.Fatalf("ForAttribute(%q) failed: %v", tt.attr, err)
		}
		if c.Name() != tt.name {
			t.Errorf("ForAttribute(%q) = %s, want %s", tt.attr, c.Name(), tt.name)
		}
	}
	if _, err := ForAttribute("vtkZstdDataCompressor"); !errors.Is(err, ErrUnknownCompressor) {
		t.Errorf("expected ErrUnknownCompressor, got %v", err)
	}
	if _, err := New("brotli", 0); !errors.Is(err, ErrUnknownCompressor) {
		t.Errorf("expected ErrUnknownCompressor, got %v", err)
	}
}

func TestCompressionLevels(t *testing.T) {
	data := testData(50000)
	for level := range 10 {
		for _, c := range []Compressor{NewZlib(level), NewLZ4(level)} {
			blocks, out, err := Compress(c, data, DefaultBlockSize)
			if err != nil {
				t.Fatalf("%s level %d: %v", c.Name(), level, err)
			}
			got, err := Decompress(c, blocks, out)
			if err != nil {
				t.Fatalf("%s level %d: %v", c.Name(), level, err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("%s level %d: round trip differs", c.Name(), level)
			}
		}
	}
}
