package vtkxml

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/robert-malhotra/go-gridformat/internal/dtype"
)

// Array is a data array to be written.
type Array struct {
	Name       string
	Kind       dtype.Kind
	Components int
	// Tuples is written as NumberOfTuples when positive.
	Tuples int
	Data   []byte
}

// Document is a VTK-XML document under construction. Appended payloads
// are collected while arrays are added and spliced in by WriteTo.
type Document struct {
	doc      *etree.Document
	root     *etree.Element
	settings Settings
	appendix []byte
	appended int
}

// NewDocument creates a document whose root VTKFile element describes a
// dataset of the given type ("UnstructuredGrid", "Collection", ...).
func NewDocument(fileType string, s Settings) *Document {
	doc := etree.NewDocument()
	root := doc.CreateElement("VTKFile")
	root.CreateAttr("type", fileType)
	root.CreateAttr("version", Version)
	root.CreateAttr("byte_order", "LittleEndian")
	root.CreateAttr("header_type", s.HeaderType())
	if s.compressed() {
		root.CreateAttr("compressor", s.Compressor.Attribute())
	}
	return &Document{doc: doc, root: root, settings: s}
}

// NewPlainDocument creates a document without data array settings, as
// used for collection files.
func NewPlainDocument(fileType, version string) *Document {
	doc := etree.NewDocument()
	root := doc.CreateElement("VTKFile")
	root.CreateAttr("type", fileType)
	root.CreateAttr("version", version)
	root.CreateAttr("byte_order", "LittleEndian")
	return &Document{doc: doc, root: root, settings: Settings{ASCII: true}}
}

// Root returns the VTKFile element.
func (d *Document) Root() *etree.Element {
	return d.root
}

// Settings returns the data array settings of the document.
func (d *Document) Settings() Settings {
	return d.settings
}

// AddDataArray appends a DataArray element holding a to parent.
func (d *Document) AddDataArray(parent *etree.Element, a Array) error {
	if a.Kind.Size() == 0 {
		return fmt.Errorf("%w: array %q has no precision", ErrUnsupported, a.Name)
	}
	if len(a.Data)%a.Kind.Size() != 0 {
		return fmt.Errorf("%w: array %q holds %d bytes of %s", ErrMalformed, a.Name, len(a.Data), a.Kind)
	}
	encoded, err := d.settings.EncodeArray(a.Kind, a.Data)
	if err != nil {
		return fmt.Errorf("encoding array %q: %w", a.Name, err)
	}

	e := parent.CreateElement("DataArray")
	e.CreateAttr("type", a.Kind.String())
	if a.Name != "" {
		e.CreateAttr("Name", a.Name)
	}
	comps := a.Components
	if comps <= 0 {
		comps = 1
	}
	e.CreateAttr("NumberOfComponents", strconv.Itoa(comps))
	if a.Tuples > 0 {
		e.CreateAttr("NumberOfTuples", strconv.Itoa(a.Tuples))
	}
	e.CreateAttr("format", d.settings.Format())

	if d.settings.Appended {
		e.CreateAttr("offset", strconv.Itoa(len(d.appendix)))
		d.appendix = append(d.appendix, encoded...)
		d.appended++
		return nil
	}
	e.SetText(string(encoded))
	return nil
}

// AddPDataArray appends a PDataArray element describing a field of a
// parallel file. It carries no values.
func (d *Document) AddPDataArray(parent *etree.Element, name string, k dtype.Kind, components int) {
	e := parent.CreateElement("PDataArray")
	e.CreateAttr("type", k.String())
	if name != "" {
		e.CreateAttr("Name", name)
	}
	if components <= 0 {
		components = 1
	}
	e.CreateAttr("NumberOfComponents", strconv.Itoa(components))
	e.CreateAttr("format", d.settings.Format())
}

// WriteTo writes the document. Raw appended data makes the output invalid
// XML, so no XML declaration is written in that case.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	rawAppendix := d.appended > 0 && d.settings.EncodingName() == "raw"

	var placeholder string
	if d.appended > 0 {
		placeholder = "appendix-" + uuid.NewString()
		app := d.root.CreateElement("AppendedData")
		app.CreateAttr("encoding", d.settings.EncodingName())
		app.SetText(placeholder)
		defer d.root.RemoveChild(app)
	}

	d.doc.Indent(2)
	var buf bytes.Buffer
	if !rawAppendix {
		buf.WriteString("<?xml version=\"1.0\"?>\n")
	}
	if _, err := d.doc.WriteTo(&buf); err != nil {
		return 0, err
	}

	out := buf.Bytes()
	if d.appended > 0 {
		i := bytes.LastIndex(out, []byte(placeholder))
		if i < 0 {
			return 0, fmt.Errorf("%w: appendix placeholder lost", ErrMalformed)
		}
		spliced := make([]byte, 0, len(out)+len(d.appendix)+8)
		spliced = append(spliced, out[:i]...)
		spliced = append(spliced, "\n_"...)
		spliced = append(spliced, d.appendix...)
		spliced = append(spliced, "\n  "...)
		spliced = append(spliced, out[i+len(placeholder):]...)
		out = spliced
	}
	n, err := w.Write(out)
	return int64(n), err
}
