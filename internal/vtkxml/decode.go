package vtkxml

import (
	"bytes"
	"fmt"

	"github.com/beevik/etree"

	gbinary "github.com/robert-malhotra/go-gridformat/internal/binary"
	"github.com/robert-malhotra/go-gridformat/internal/compress"
	"github.com/robert-malhotra/go-gridformat/internal/dtype"
	"github.com/robert-malhotra/go-gridformat/internal/encoding"
)

// ArrayData is a decoded data array. Data is always little-endian.
type ArrayData struct {
	Name       string
	Kind       dtype.Kind
	Components int
	// Tuples is the NumberOfTuples attribute, zero if absent.
	Tuples int
	Data   []byte
}

// Len returns the number of scalar values in the array.
func (a ArrayData) Len() int {
	if a.Kind.Size() == 0 {
		return 0
	}
	return len(a.Data) / a.Kind.Size()
}

// Describe reads the attributes of a DataArray or PDataArray element.
func Describe(e *etree.Element) (ArrayData, error) {
	a := ArrayData{Name: e.SelectAttrValue("Name", "")}
	var err error
	if a.Kind, err = dtype.Parse(e.SelectAttrValue("type", "")); err != nil {
		return a, fmt.Errorf("%w: array %q: %v", ErrMalformed, a.Name, err)
	}
	if a.Components, err = IntAttr(e, "NumberOfComponents", 1); err != nil {
		return a, err
	}
	if a.Components == 0 {
		a.Components = 1
	}
	if a.Tuples, err = IntAttr(e, "NumberOfTuples", 0); err != nil {
		return a, err
	}
	return a, nil
}

// ReadArray decodes the values of a DataArray element.
func (f *File) ReadArray(e *etree.Element) (ArrayData, error) {
	a, err := Describe(e)
	if err != nil {
		return a, err
	}

	switch format := e.SelectAttrValue("format", ""); format {
	case "ascii":
		// parsed text is already little-endian
		a.Data, err = encoding.ParseASCII([]byte(e.Text()), a.Kind, -1)
		if err != nil {
			return a, fmt.Errorf("array %q: %w", a.Name, err)
		}
		return a, nil
	case "binary":
		a.Data, err = f.decodeBase64(encoding.StripSpace([]byte(e.Text())))
	case "appended":
		var offset int
		if offset, err = IntAttr(e, "offset", 0); err != nil {
			return a, err
		}
		if offset > len(f.appendix) {
			return a, fmt.Errorf("%w: array %q offset %d beyond appended data", ErrMalformed, a.Name, offset)
		}
		switch f.appendixEncoding {
		case "raw":
			a.Data, err = f.decodeRaw(f.appendix, offset)
		case "base64":
			a.Data, err = f.decodeBase64(f.appendix[offset:])
		default:
			return a, fmt.Errorf("%w: appended encoding %q", ErrMalformed, f.appendixEncoding)
		}
	default:
		return a, fmt.Errorf("%w: array %q has format %q", ErrMalformed, a.Name, format)
	}
	if err != nil {
		return a, fmt.Errorf("array %q: %w", a.Name, err)
	}
	if len(a.Data)%a.Kind.Size() != 0 {
		return a, fmt.Errorf("%w: array %q holds %d bytes of %s", ErrMalformed, a.Name, len(a.Data), a.Kind)
	}
	if f.header.ByteOrder != dtype.Order {
		dtype.SwapBytes(a.Kind, a.Data)
	}
	return a, nil
}

func (f *File) compressed() bool {
	return !compress.IsNone(f.compressor)
}

func (f *File) decodeRaw(buf []byte, offset int) ([]byte, error) {
	r := gbinary.NewReader(bytes.NewReader(buf), f.header).At(int64(offset))
	if !f.compressed() {
		n, err := r.ReadHeader()
		if err != nil {
			return nil, err
		}
		if n > uint64(len(buf)) {
			return nil, fmt.Errorf("%w: %d bytes announced", ErrMalformed, n)
		}
		return r.ReadBytes(int(n))
	}

	blocks, err := compress.ReadHeader(r)
	if err != nil {
		return nil, err
	}
	start := int(r.Pos())
	end := start + blocks.CompressedSize()
	if end > len(buf) || end < start {
		return nil, fmt.Errorf("%w: compressed blocks exceed appended data", ErrMalformed)
	}
	return compress.Decompress(f.compressor, blocks, buf[start:end])
}

// decodeBase64 decodes a framed array whose header and payload were either
// encoded as separate padded units or as one joint unit.
func (f *File) decodeBase64(src []byte) ([]byte, error) {
	var b64 encoding.Base64
	h := f.header.HeaderSize

	decodePrefix := func(nbytes int) ([]byte, error) {
		n := b64.EncodedLen(nbytes)
		if n > len(src) {
			return nil, fmt.Errorf("%w: base64 data truncated", ErrMalformed)
		}
		return b64.Decode(src[:n])
	}
	// joint reports whether a header of hb bytes shares its base64 unit
	// with the payload.
	joint := func(hb int) bool {
		n := b64.EncodedLen(hb)
		return hb%3 != 0 && src[n-1] != '='
	}
	payload := func(hb, nbytes int) ([]byte, error) {
		if nbytes < 0 || nbytes > len(src) {
			return nil, fmt.Errorf("%w: %d payload bytes announced", ErrMalformed, nbytes)
		}
		if joint(hb) {
			all, err := decodePrefix(hb + nbytes)
			if err != nil {
				return nil, err
			}
			return all[hb:], nil
		}
		start := b64.EncodedLen(hb)
		end := start + b64.EncodedLen(nbytes)
		if end > len(src) {
			return nil, fmt.Errorf("%w: base64 data truncated", ErrMalformed)
		}
		return b64.Decode(src[start:end])
	}

	if !f.compressed() {
		head, err := decodePrefix(h)
		if err != nil {
			return nil, err
		}
		n := gbinary.DecodeUintN(f.header.ByteOrder, head[:h])
		if n > uint64(len(src)) {
			return nil, fmt.Errorf("%w: %d bytes announced", ErrMalformed, n)
		}
		data, err := payload(h, int(n))
		if err != nil {
			return nil, err
		}
		if len(data) < int(n) {
			return nil, fmt.Errorf("%w: payload truncated", ErrMalformed)
		}
		return data[:n], nil
	}

	first, err := decodePrefix(3 * h)
	if err != nil {
		return nil, err
	}
	nblocks := gbinary.DecodeUintN(f.header.ByteOrder, first[:h])
	if nblocks > uint64(len(src)) {
		return nil, fmt.Errorf("%w: %d blocks announced", ErrMalformed, nblocks)
	}
	hb := compress.HeaderLen(int(nblocks)) * h
	head, err := decodePrefix(hb)
	if err != nil {
		return nil, err
	}
	blocks, err := compress.ReadHeader(gbinary.NewReader(bytes.NewReader(head), f.header))
	if err != nil {
		return nil, err
	}
	data, err := payload(hb, blocks.CompressedSize())
	if err != nil {
		return nil, err
	}
	if len(data) < blocks.CompressedSize() {
		return nil, fmt.Errorf("%w: compressed payload truncated", ErrMalformed)
	}
	return compress.Decompress(f.compressor, blocks, data)
}
