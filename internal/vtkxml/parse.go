package vtkxml

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	gbinary "github.com/robert-malhotra/go-gridformat/internal/binary"
	"github.com/robert-malhotra/go-gridformat/internal/compress"
)

// File is a parsed VTK-XML file.
type File struct {
	doc  *etree.Document
	root *etree.Element

	header     gbinary.Config
	compressor compress.Compressor

	appendix         []byte
	appendixEncoding string
}

// ReadFile parses the VTK-XML file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses a VTK-XML document. A raw AppendedData section is cut out
// before the XML is parsed.
func Parse(data []byte) (*File, error) {
	f := &File{}
	xmlData, err := f.extractAppendix(data)
	if err != nil {
		return nil, err
	}

	f.doc = etree.NewDocument()
	if err := f.doc.ReadFromBytes(xmlData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	f.root = f.doc.SelectElement("VTKFile")
	if f.root == nil {
		return nil, fmt.Errorf("%w: missing VTKFile element", ErrMalformed)
	}

	f.header = gbinary.Config{ByteOrder: binary.LittleEndian, HeaderSize: 4}
	switch order := f.root.SelectAttrValue("byte_order", "LittleEndian"); order {
	case "LittleEndian":
	case "BigEndian":
		f.header.ByteOrder = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: byte order %q", ErrMalformed, order)
	}
	switch ht := f.root.SelectAttrValue("header_type", "UInt32"); ht {
	case "UInt32":
	case "UInt64":
		f.header.HeaderSize = 8
	default:
		return nil, fmt.Errorf("%w: header type %q", ErrMalformed, ht)
	}

	f.compressor, err = compress.ForAttribute(f.root.SelectAttrValue("compressor", ""))
	if err != nil {
		return nil, err
	}

	if app := f.root.SelectElement("AppendedData"); app != nil {
		f.appendixEncoding = app.SelectAttrValue("encoding", "raw")
		if f.appendixEncoding == "base64" {
			f.appendix = bytes.TrimRight(f.appendix, " \t\r\n")
		}
	}
	return f, nil
}

// extractAppendix removes the payload of an AppendedData section and
// returns the remaining XML.
func (f *File) extractAppendix(data []byte) ([]byte, error) {
	start := bytes.Index(data, []byte("<AppendedData"))
	if start < 0 {
		return data, nil
	}
	gt := bytes.IndexByte(data[start:], '>')
	if gt < 0 {
		return nil, fmt.Errorf("%w: unterminated AppendedData tag", ErrMalformed)
	}
	gt += start
	if data[gt-1] == '/' {
		return data, nil
	}
	us := bytes.IndexByte(data[gt:], '_')
	end := bytes.LastIndex(data, []byte("</AppendedData>"))
	if us < 0 || end < 0 || gt+us > end {
		return nil, fmt.Errorf("%w: cannot locate appended data", ErrMalformed)
	}
	us += gt
	f.appendix = data[us+1 : end]

	xmlData := make([]byte, 0, us+len(data)-end)
	xmlData = append(xmlData, data[:us]...)
	xmlData = append(xmlData, data[end:]...)
	return xmlData, nil
}

// Root returns the VTKFile element.
func (f *File) Root() *etree.Element {
	return f.root
}

// Type returns the dataset type of the file.
func (f *File) Type() string {
	return f.root.SelectAttrValue("type", "")
}

// Element returns the element at the slash-separated path below VTKFile,
// or nil if it does not exist.
func (f *File) Element(path string) *etree.Element {
	e := f.root
	for _, name := range strings.Split(path, "/") {
		if e = e.SelectElement(name); e == nil {
			return nil
		}
	}
	return e
}

// DataArrays returns the DataArray children of the element at path.
func (f *File) DataArrays(path string) []*etree.Element {
	e := f.Element(path)
	if e == nil {
		return nil
	}
	return e.SelectElements("DataArray")
}

// DataArray returns the named DataArray child of the element at path.
func (f *File) DataArray(path, name string) *etree.Element {
	for _, e := range f.DataArrays(path) {
		if e.SelectAttrValue("Name", "") == name {
			return e
		}
	}
	return nil
}

// IntAttr parses an integer attribute of e.
func IntAttr(e *etree.Element, key string, def int) (int, error) {
	v := e.SelectAttrValue(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: attribute %s=%q", ErrMalformed, key, v)
	}
	return n, nil
}
