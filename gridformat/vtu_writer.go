package gridformat

import (
	"io"
	"strconv"

	"github.com/beevik/etree"

	"github.com/robert-malhotra/go-gridformat/internal/dtype"
	"github.com/robert-malhotra/go-gridformat/internal/vtkxml"
)

// VTUWriter writes an unstructured grid and its fields to a .vtu file.
type VTUWriter struct {
	*gridWriter
}

// NewVTUWriter returns a writer for grid. The options are validated
// immediately; unsupported combinations fail with ErrInvalidState.
func NewVTUWriter(grid UnstructuredGrid, opts ...WriterOption) (*VTUWriter, error) {
	w, err := newGridWriter(grid, opts)
	if err != nil {
		return nil, err
	}
	return &VTUWriter{w}, nil
}

// Rank returns 0; a .vtu file is written by a single process.
func (w *VTUWriter) Rank() int { return 0 }

// Extension returns ".vtu".
func (w *VTUWriter) Extension() string { return ".vtu" }

// WriteTo writes the file to out and releases all registered fields.
func (w *VTUWriter) WriteTo(out io.Writer) (int64, error) {
	defer w.Clear()
	return w.write(out)
}

// Write writes the file to filename, adding the .vtu extension if it is
// missing, and returns the path written. Registered fields are released.
func (w *VTUWriter) Write(filename string) (string, error) {
	defer w.Clear()
	path := withExtension(filename, w.Extension())
	err := writeFileAtomic(path, func(out io.Writer) error {
		_, err := w.write(out)
		return err
	})
	if err != nil {
		return "", err
	}
	w.log.Debug("file written", "path", path)
	return path, nil
}

func (w *VTUWriter) write(out io.Writer) (int64, error) {
	cache, err := w.prepare()
	if err != nil {
		return 0, err
	}
	doc, err := w.vtuDocument(cache)
	if err != nil {
		return 0, err
	}
	n, err := doc.WriteTo(out)
	if err != nil {
		return n, classify(err)
	}
	return n, nil
}

// vtuDocument builds the document of an UnstructuredGrid file.
func (w *gridWriter) vtuDocument(c *fieldCache) (*vtkxml.Document, error) {
	doc := vtkxml.NewDocument("UnstructuredGrid", w.settings)
	ug := doc.Root().CreateElement("UnstructuredGrid")

	if err := addFieldData(doc, ug, c); err != nil {
		return nil, err
	}

	np, nc := w.grid.NumberOfPoints(), w.grid.NumberOfCells()
	piece := ug.CreateElement("Piece")
	piece.CreateAttr("NumberOfPoints", strconv.Itoa(np))
	piece.CreateAttr("NumberOfCells", strconv.Itoa(nc))

	if err := addEntityData(doc, piece, c); err != nil {
		return nil, err
	}

	coords := make([]byte, 3*np*w.opts.coordPrecision.Size())
	size := w.opts.coordPrecision.Size()
	for i := range np {
		x := w.grid.PointCoordinates(i)
		for j := range 3 {
			dtype.PutFloat(w.opts.coordPrecision, coords[(3*i+j)*size:], x[j])
		}
	}
	points := vtkxml.Array{Name: "Points", Kind: w.opts.coordPrecision, Components: 3, Data: coords}
	if err := doc.AddDataArray(piece.CreateElement("Points"), points); err != nil {
		return nil, classify(err)
	}

	k := w.opts.headerPrecision
	conn, offsets, types, err := cellArrays(w.grid, k)
	if err != nil {
		return nil, err
	}
	cells := piece.CreateElement("Cells")
	for _, a := range []vtkxml.Array{
		{Name: "connectivity", Kind: k, Data: conn},
		{Name: "offsets", Kind: k, Data: offsets},
		{Name: "types", Kind: dtype.Uint8, Data: types},
	} {
		if err := doc.AddDataArray(cells, a); err != nil {
			return nil, classify(err)
		}
	}
	return doc, nil
}

// addFieldData adds the meta data of c as a FieldData section.
func addFieldData(doc *vtkxml.Document, parent *etree.Element, c *fieldCache) error {
	if len(c.meta) == 0 {
		return nil
	}
	fd := parent.CreateElement("FieldData")
	for _, m := range c.meta {
		l := m.field.Layout()
		tuples, comps := 1, 1
		if m.field.Precision() != Char && l.Dimension() > 0 {
			tuples, comps = l.Extent(0), l.NumberOfEntriesFrom(1)
		}
		if err := addFieldArray(doc, fd, m.name, m.field, comps, tuples); err != nil {
			return err
		}
	}
	return nil
}

// addEntityData adds the point and cell fields of c to piece.
func addEntityData(doc *vtkxml.Document, piece *etree.Element, c *fieldCache) error {
	pd := piece.CreateElement("PointData")
	for _, p := range c.points {
		if err := addFieldArray(doc, pd, p.name, p.field, components(p.field), 0); err != nil {
			return err
		}
	}
	cd := piece.CreateElement("CellData")
	for _, f := range c.cells {
		if err := addFieldArray(doc, cd, f.name, f.field, components(f.field), 0); err != nil {
			return err
		}
	}
	return nil
}
