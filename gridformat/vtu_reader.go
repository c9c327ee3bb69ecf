package gridformat

import (
	"fmt"
	"log/slog"

	"github.com/beevik/etree"

	"github.com/robert-malhotra/go-gridformat/internal/dtype"
	"github.com/robert-malhotra/go-gridformat/internal/vtkxml"
)

// pieceFile is a parsed single-piece dataset file. It decodes the field
// arrays shared by all dataset types.
type pieceFile struct {
	path      string
	dataset   string
	file      *vtkxml.File
	numPoints int
	numCells  int
	log       *slog.Logger
}

// openPieceFile parses the file at path, which must hold a dataset of the
// given type, and returns it together with its first Piece element.
func openPieceFile(path, dataset string, o *readerOptions) (*pieceFile, *etree.Element, error) {
	f, err := vtkxml.ReadFile(path)
	if err != nil {
		return nil, nil, classify(err)
	}
	if f.Type() != dataset || f.Element(dataset) == nil {
		return nil, nil, fmt.Errorf("%w: %s holds %q, not %s", ErrIO, path, f.Type(), dataset)
	}
	piece := f.Element(dataset + "/Piece")
	if piece == nil {
		return nil, nil, fmt.Errorf("%w: %s has no piece", ErrIO, path)
	}
	if n := len(f.Element(dataset).SelectElements("Piece")); n > 1 {
		o.logger.Warn("only the first piece is read", "path", path, "pieces", n)
	}
	return &pieceFile{path: path, dataset: dataset, file: f, log: o.logger}, piece, nil
}

func (r *pieceFile) piecePath(section string) string {
	return r.dataset + "/Piece/" + section
}

func (r *pieceFile) fieldDataPath() string {
	return r.dataset + "/FieldData"
}

// Filename returns the path the reader was opened with.
func (r *pieceFile) Filename() string { return r.path }

// NumberOfPoints returns the number of points, or 0 after Close.
func (r *pieceFile) NumberOfPoints() int { return r.numPoints }

// NumberOfCells returns the number of cells, or 0 after Close.
func (r *pieceFile) NumberOfCells() int { return r.numCells }

// PointFieldNames returns the point field names in file order.
func (r *pieceFile) PointFieldNames() []string { return r.names(r.piecePath("PointData")) }

// CellFieldNames returns the cell field names in file order.
func (r *pieceFile) CellFieldNames() []string { return r.names(r.piecePath("CellData")) }

// MetaDataNames returns the meta data names in file order.
func (r *pieceFile) MetaDataNames() []string { return r.names(r.fieldDataPath()) }

func (r *pieceFile) names(path string) []string {
	if r.file == nil {
		return nil
	}
	var names []string
	for _, e := range r.file.DataArrays(path) {
		names = append(names, e.SelectAttrValue("Name", ""))
	}
	return names
}

func (r *pieceFile) checkOpen() error {
	if r.file == nil {
		return fmt.Errorf("%w: reader is closed", ErrInvalidState)
	}
	return nil
}

// PointField returns the named point field.
func (r *pieceFile) PointField(name string) (Field, error) {
	return r.namedField(r.piecePath("PointData"), name, r.numPoints)
}

// CellField returns the named cell field.
func (r *pieceFile) CellField(name string) (Field, error) {
	return r.namedField(r.piecePath("CellData"), name, r.numCells)
}

// MetaData returns the named meta data. Strings are returned as Char
// fields, see StringValue.
func (r *pieceFile) MetaData(name string) (Field, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	e := r.file.DataArray(r.fieldDataPath(), name)
	if e == nil {
		return nil, fmt.Errorf("%w: no meta data named %q", ErrValue, name)
	}
	a, err := r.file.ReadArray(e)
	if err != nil {
		return nil, classify(err)
	}
	if a.Kind == Char {
		return NewBufferField(Serialization{data: a.Data}, NewLayout(a.Len()), a.Kind)
	}
	tuples := a.Len() / a.Components
	if a.Len()%a.Components != 0 {
		return nil, fmt.Errorf("%w: meta data %q holds %d values in tuples of %d", ErrSize, name, a.Len(), a.Components)
	}
	layout := NewLayout(tuples)
	if a.Components > 1 {
		layout = NewLayout(tuples, a.Components)
	}
	return NewBufferField(Serialization{data: a.Data}, layout, a.Kind)
}

func (r *pieceFile) namedField(path, name string, entities int) (Field, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	e := r.file.DataArray(path, name)
	if e == nil {
		return nil, fmt.Errorf("%w: no field named %q", ErrValue, name)
	}
	return r.entityField(e, entities)
}

// entityField decodes an array holding one tuple per point or cell.
func (r *pieceFile) entityField(e *etree.Element, entities int) (Field, error) {
	a, err := r.file.ReadArray(e)
	if err != nil {
		return nil, classify(err)
	}
	if a.Len() != entities*a.Components {
		return nil, fmt.Errorf("%w: array %q holds %d values, expected %d tuples of %d", ErrSize, a.Name, a.Len(), entities, a.Components)
	}
	layout := NewLayout(entities)
	if a.Components > 1 {
		layout = NewLayout(entities, a.Components)
	}
	return NewBufferField(Serialization{data: a.Data}, layout, a.Kind)
}

// Close releases the parsed file. Further reads fail with
// ErrInvalidState.
func (r *pieceFile) Close() error {
	r.file = nil
	r.numPoints, r.numCells = 0, 0
	return nil
}

// VTUReader reads a .vtu file. The whole file is parsed when it is
// opened; data arrays are decoded on access.
type VTUReader struct {
	*pieceFile
}

// OpenVTU opens the .vtu file at path.
func OpenVTU(path string, opts ...ReaderOption) (*VTUReader, error) {
	o := defaultReaderOptions()
	for _, opt := range opts {
		opt(o)
	}
	pf, piece, err := openPieceFile(path, "UnstructuredGrid", o)
	if err != nil {
		return nil, err
	}
	if pf.numPoints, err = vtkxml.IntAttr(piece, "NumberOfPoints", 0); err != nil {
		return nil, classify(err)
	}
	if pf.numCells, err = vtkxml.IntAttr(piece, "NumberOfCells", 0); err != nil {
		return nil, classify(err)
	}
	return &VTUReader{pf}, nil
}

// Points returns the point coordinates with layout (points, 3).
func (r *VTUReader) Points() (Field, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	arrays := r.file.DataArrays(r.piecePath("Points"))
	if len(arrays) == 0 {
		return nil, fmt.Errorf("%w: %s has no points", ErrIO, r.path)
	}
	return r.entityField(arrays[0], r.numPoints)
}

// cellArray decodes a Cells array as int64 values.
func (r *VTUReader) cellArray(name string) ([]int64, error) {
	e := r.file.DataArray(r.piecePath("Cells"), name)
	if e == nil {
		return nil, fmt.Errorf("%w: %s has no %s array", ErrIO, r.path, name)
	}
	a, err := r.file.ReadArray(e)
	if err != nil {
		return nil, classify(err)
	}
	out, err := dtype.Convert[int64](a.Kind, a.Data)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// VisitCells calls fn for every cell in order.
func (r *VTUReader) VisitCells(fn func(t CellType, corners []int) error) error {
	return r.visitCells(0, fn)
}

// visitCells visits all cells with point indices shifted by shift.
func (r *VTUReader) visitCells(shift int, fn func(t CellType, corners []int) error) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	if r.numCells == 0 {
		return nil
	}
	types, err := r.cellArray("types")
	if err != nil {
		return err
	}
	offsets, err := r.cellArray("offsets")
	if err != nil {
		return err
	}
	conn, err := r.cellArray("connectivity")
	if err != nil {
		return err
	}
	if len(types) < r.numCells || len(offsets) < r.numCells {
		return fmt.Errorf("%w: cell arrays are shorter than %d cells", ErrSize, r.numCells)
	}

	var corners []int
	begin := int64(0)
	for i := range r.numCells {
		end := offsets[i]
		if end < begin {
			return fmt.Errorf("%w: invalid offset array", ErrValue)
		}
		if end > int64(len(conn)) {
			return fmt.Errorf("%w: connectivity array read from the file is too small", ErrSize)
		}
		t, err := CellTypeFromVTK(uint8(types[i]))
		if err != nil {
			return err
		}
		corners = corners[:0]
		for _, c := range conn[begin:end] {
			corners = append(corners, int(c)+shift)
		}
		if err := fn(t, corners); err != nil {
			return err
		}
		begin = end
	}
	return nil
}

// Grid returns the points and cells of the file.
func (r *VTUReader) Grid() (*UnstructuredGridData, error) {
	return readGrid(r)
}
