package gridformat

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/robert-malhotra/go-gridformat/internal/binary"
	"github.com/robert-malhotra/go-gridformat/internal/compress"
	"github.com/robert-malhotra/go-gridformat/internal/dtype"
	"github.com/robert-malhotra/go-gridformat/internal/encoding"
	"github.com/robert-malhotra/go-gridformat/internal/vtkxml"
	"github.com/robert-malhotra/go-gridformat/parallel"
)

// Encoder selects how data arrays are encoded.
type Encoder string

// Encoders.
const (
	EncoderAutomatic Encoder = ""
	EncoderASCII     Encoder = "ascii"
	EncoderBase64    Encoder = "base64"
	EncoderRaw       Encoder = "raw"
)

// DataFormat selects where data arrays are stored.
type DataFormat string

// Data formats.
const (
	DataFormatAutomatic DataFormat = ""
	DataFormatInlined   DataFormat = "inlined"
	DataFormatAppended  DataFormat = "appended"
)

// Compressor selects the block compressor.
type Compressor string

// Compressors.
const (
	CompressorAutomatic Compressor = ""
	CompressorNone      Compressor = "none"
	CompressorZlib      Compressor = "zlib"
	CompressorLZ4       Compressor = "lz4"
	CompressorLZMA      Compressor = "lzma"
)

// WriterOption configures a writer.
type WriterOption func(*writerOptions)

type writerOptions struct {
	encoder         Encoder
	dataFormat      DataFormat
	compressor      Compressor
	headerPrecision Precision
	coordPrecision  Precision
	blockSize       int
	level           int
	ascii           encoding.ASCIIFormat
	logger          *slog.Logger
}

func defaultWriterOptions() *writerOptions {
	return &writerOptions{
		headerPrecision: UInt64,
		coordPrecision:  Float64,
		blockSize:       compress.DefaultBlockSize,
		level:           compress.DefaultLevel,
		ascii:           encoding.DefaultASCIIFormat(),
		logger:          discardLogger(),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithEncoder sets the data array encoder.
func WithEncoder(e Encoder) WriterOption {
	return func(o *writerOptions) {
		o.encoder = e
	}
}

// WithDataFormat sets whether data is inlined or appended.
func WithDataFormat(f DataFormat) WriterOption {
	return func(o *writerOptions) {
		o.dataFormat = f
	}
}

// WithCompressor sets the block compressor.
func WithCompressor(c Compressor) WriterOption {
	return func(o *writerOptions) {
		o.compressor = c
	}
}

// WithCompressionLevel sets the compression level (0-9, negative for the
// compressor's default).
func WithCompressionLevel(level int) WriterOption {
	return func(o *writerOptions) {
		o.level = level
	}
}

// WithBlockSize sets the uncompressed size of compression blocks.
func WithBlockSize(n int) WriterOption {
	return func(o *writerOptions) {
		if n > 0 {
			o.blockSize = n
		}
	}
}

// WithHeaderPrecision sets the width of size headers (UInt32 or UInt64).
// It also determines the precision of connectivity and offsets.
func WithHeaderPrecision(p Precision) WriterOption {
	return func(o *writerOptions) {
		o.headerPrecision = p
	}
}

// WithCoordinatePrecision sets the precision point coordinates are
// written with.
func WithCoordinatePrecision(p Precision) WriterOption {
	return func(o *writerOptions) {
		if p.Valid() {
			o.coordPrecision = p
		}
	}
}

// WithASCIIFormat sets the layout of ASCII data arrays. The delimiter and
// the line prefix must consist of whitespace, otherwise writing fails with
// ErrValue.
func WithASCIIFormat(entriesPerLine int, delimiter, linePrefix string) WriterOption {
	return func(o *writerOptions) {
		o.ascii = encoding.ASCIIFormat{EntriesPerLine: entriesPerLine, Delimiter: delimiter, LinePrefix: linePrefix}
	}
}

// WithLogger sets the logger for warnings and debug output. The default
// discards everything.
func WithLogger(l *slog.Logger) WriterOption {
	return func(o *writerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// settings resolves automatic choices and validates the combination.
func (o *writerOptions) settings() (vtkxml.Settings, error) {
	s := vtkxml.Settings{
		ASCIIFormat: o.ascii,
		BlockSize:   o.blockSize,
		Header:      binary.Config{ByteOrder: dtype.Order},
	}
	switch o.headerPrecision {
	case UInt32:
		s.Header.HeaderSize = 4
	case UInt64:
		s.Header.HeaderSize = 8
	default:
		return s, fmt.Errorf("%w: header precision must be UInt32 or UInt64, got %s", ErrValue, o.headerPrecision)
	}

	switch o.encoder {
	case EncoderASCII:
		s.ASCII = true
		if err := o.ascii.Validate(); err != nil {
			return s, fmt.Errorf("%w: %w", ErrValue, err)
		}
	case EncoderBase64, EncoderAutomatic:
		s.Encoder = encoding.Base64{}
	case EncoderRaw:
		s.Encoder = encoding.Raw{}
	default:
		return s, fmt.Errorf("%w: unknown encoder %q", ErrValue, o.encoder)
	}

	switch o.dataFormat {
	case DataFormatAutomatic:
		s.Appended = !s.ASCII
	case DataFormatInlined:
	case DataFormatAppended:
		s.Appended = true
	default:
		return s, fmt.Errorf("%w: unknown data format %q", ErrValue, o.dataFormat)
	}

	name := string(o.compressor)
	switch {
	case s.ASCII:
		if o.compressor != CompressorAutomatic && o.compressor != CompressorNone {
			o.logger.Warn("ascii output is never compressed", "compressor", name)
		}
		name = string(CompressorNone)
	case o.compressor == CompressorAutomatic:
		name = string(CompressorZlib)
	}
	c, err := compress.New(name, o.level)
	if err != nil {
		return s, classify(err)
	}
	s.Compressor = c

	if err := s.Validate(); err != nil {
		return s, classify(err)
	}
	return s, nil
}

// ReaderOption configures a reader.
type ReaderOption func(*readerOptions)

type readerOptions struct {
	comm           parallel.Communicator
	mergeExceeding bool
	logger         *slog.Logger
}

func defaultReaderOptions() *readerOptions {
	return &readerOptions{logger: discardLogger()}
}

// WithCommunicator makes a parallel file reader open only the pieces of
// the calling rank.
func WithCommunicator(c parallel.Communicator) ReaderOption {
	return func(o *readerOptions) {
		o.comm = c
	}
}

// WithMergeExceedingPieces makes the last rank read all pieces beyond the
// number of ranks.
func WithMergeExceedingPieces(merge bool) ReaderOption {
	return func(o *readerOptions) {
		o.mergeExceeding = merge
	}
}

// WithReaderLogger sets the logger of a reader.
func WithReaderLogger(l *slog.Logger) ReaderOption {
	return func(o *readerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Options is the YAML representation of writer options.
type Options struct {
	Encoder             Encoder    `json:"encoder,omitempty"`
	DataFormat          DataFormat `json:"data_format,omitempty"`
	Compressor          Compressor `json:"compressor,omitempty"`
	HeaderPrecision     string     `json:"header_precision,omitempty"`
	CoordinatePrecision string     `json:"coordinate_precision,omitempty"`
	BlockSize           int        `json:"block_size,omitempty"`
	CompressionLevel    *int       `json:"compression_level,omitempty"`
}

// ParseOptions decodes writer options from YAML. Unknown keys are an
// error.
func ParseOptions(data []byte) ([]WriterOption, error) {
	var cfg Options
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValue, err)
	}
	return cfg.WriterOptions()
}

// LoadOptions reads writer options from a YAML file.
func LoadOptions(path string) ([]WriterOption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	opts, err := ParseOptions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// WriterOptions converts the options into writer options.
func (c Options) WriterOptions() ([]WriterOption, error) {
	opts := []WriterOption{
		WithEncoder(c.Encoder),
		WithDataFormat(c.DataFormat),
		WithCompressor(c.Compressor),
	}
	if c.HeaderPrecision != "" {
		p, err := ParsePrecision(c.HeaderPrecision)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithHeaderPrecision(p))
	}
	if c.CoordinatePrecision != "" {
		p, err := ParsePrecision(c.CoordinatePrecision)
		if err != nil {
			return nil, err
		}
		if !p.IsFloat() {
			return nil, fmt.Errorf("%w: coordinate precision %s is not a float type", ErrValue, p)
		}
		opts = append(opts, WithCoordinatePrecision(p))
	}
	if c.BlockSize < 0 {
		return nil, fmt.Errorf("%w: negative block size", ErrValue)
	}
	if c.BlockSize > 0 {
		opts = append(opts, WithBlockSize(c.BlockSize))
	}
	if c.CompressionLevel != nil {
		opts = append(opts, WithCompressionLevel(*c.CompressionLevel))
	}
	return opts, nil
}
