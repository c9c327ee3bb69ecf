// Package vtkxml builds and parses VTK-XML documents: file headers, data
// array framing for inlined and appended data, and extraction of raw
// appended sections.
package vtkxml

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-gridformat/internal/binary"
	"github.com/robert-malhotra/go-gridformat/internal/compress"
	"github.com/robert-malhotra/go-gridformat/internal/dtype"
	"github.com/robert-malhotra/go-gridformat/internal/encoding"
)

// Version is the VTK-XML file version written to every file.
const Version = "2.0"

var (
	// ErrUnsupported is returned for combinations of settings that cannot
	// be represented in a VTK-XML file.
	ErrUnsupported = errors.New("unsupported data array settings")

	// ErrMalformed is returned when a file does not follow the VTK-XML layout.
	ErrMalformed = errors.New("malformed VTK-XML file")
)

// Settings controls how data arrays are framed and encoded.
type Settings struct {
	// ASCII selects the text encoding. Encoder is ignored when set.
	ASCII       bool
	ASCIIFormat encoding.ASCIIFormat

	// Encoder is the binary encoding (raw or base64).
	Encoder encoding.Encoder

	// Compressor may be nil or compress.None for uncompressed data.
	Compressor compress.Compressor
	BlockSize  int

	// Appended stores array payloads in the AppendedData section.
	Appended bool

	// Header holds the byte order and width of size headers.
	Header binary.Config
}

// Validate reports structurally unsupported combinations.
func (s Settings) Validate() error {
	if s.ASCII && s.Appended {
		return fmt.Errorf("%w: ascii data cannot be appended", ErrUnsupported)
	}
	if s.ASCII {
		if err := s.ASCIIFormat.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
	} else {
		if s.Encoder == nil {
			return fmt.Errorf("%w: no encoder", ErrUnsupported)
		}
		if s.Encoder.Name() == "raw" && !s.Appended {
			return fmt.Errorf("%w: raw binary data cannot be inlined", ErrUnsupported)
		}
	}
	if err := s.Header.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if s.Header.HeaderSize != 4 && s.Header.HeaderSize != 8 {
		return fmt.Errorf("%w: header width %d", ErrUnsupported, s.Header.HeaderSize)
	}
	return nil
}

// Format returns the value of the DataArray format attribute.
func (s Settings) Format() string {
	switch {
	case s.Appended:
		return "appended"
	case s.ASCII:
		return "ascii"
	default:
		return "binary"
	}
}

// EncodingName returns the encoding attribute of the AppendedData section.
func (s Settings) EncodingName() string {
	if s.ASCII || s.Encoder == nil {
		return "ascii"
	}
	return s.Encoder.Name()
}

// HeaderType returns the header_type attribute value.
func (s Settings) HeaderType() string {
	if s.Header.HeaderSize == 4 {
		return dtype.Uint32.String()
	}
	return dtype.Uint64.String()
}

func (s Settings) header() binary.Config {
	cfg := s.Header
	if cfg.ByteOrder == nil {
		cfg.ByteOrder = dtype.Order
	}
	return cfg
}

func (s Settings) compressed() bool {
	return !s.ASCII && !compress.IsNone(s.Compressor)
}

// EncodeArray returns the framed and encoded form of a precision-k buffer.
func (s Settings) EncodeArray(k dtype.Kind, data []byte) ([]byte, error) {
	if s.ASCII {
		return encoding.AppendASCII(nil, k, data, s.ASCIIFormat)
	}

	cfg := s.header()
	var head, payload []byte
	var err error
	if s.compressed() {
		blocks, out, cerr := compress.Compress(s.Compressor, data, s.BlockSize)
		if cerr != nil {
			return nil, cerr
		}
		head, err = compress.AppendHeader(nil, cfg, blocks)
		payload = out
	} else {
		head, err = binary.AppendUintN(nil, cfg.ByteOrder, uint64(len(data)), cfg.HeaderSize)
		payload = data
	}
	if err != nil {
		return nil, err
	}
	// header and payload are encoded as separate units
	out := s.Encoder.Append(nil, head)
	return s.Encoder.Append(out, payload), nil
}
