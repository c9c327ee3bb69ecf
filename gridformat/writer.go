package gridformat

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/robert-malhotra/go-gridformat/internal/dtype"
	"github.com/robert-malhotra/go-gridformat/internal/vtkxml"
)

// gridWriter holds the state shared by the unstructured grid writers:
// the grid, the resolved settings and the registered fields.
type gridWriter struct {
	grid     UnstructuredGrid
	opts     *writerOptions
	settings vtkxml.Settings
	log      *slog.Logger

	pointFields FieldStorage
	cellFields  FieldStorage
	metaData    FieldStorage
}

func newGridWriter(grid UnstructuredGrid, options []WriterOption) (*gridWriter, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrInvalidState)
	}
	opts := defaultWriterOptions()
	for _, opt := range options {
		opt(opts)
	}
	s, err := opts.settings()
	if err != nil {
		return nil, err
	}
	return &gridWriter{grid: grid, opts: opts, settings: s, log: opts.logger}, nil
}

func checkName(name string, f Field) error {
	if name == "" {
		return fmt.Errorf("%w: empty field name", ErrValue)
	}
	if f == nil {
		return fmt.Errorf("%w: nil field %q", ErrValue, name)
	}
	return nil
}

// SetPointField registers f as point data under name, replacing any
// field of the same name. Fields are released after each write.
func (w *gridWriter) SetPointField(name string, f Field) error {
	if err := checkName(name, f); err != nil {
		return err
	}
	w.pointFields.Set(name, f)
	return nil
}

// SetCellField registers f as cell data under name.
func (w *gridWriter) SetCellField(name string, f Field) error {
	if err := checkName(name, f); err != nil {
		return err
	}
	w.cellFields.Set(name, f)
	return nil
}

// SetMetaData registers a value as field data under name. value may be a
// Field, a string, a scalar or a (nested) slice of scalars.
func (w *gridWriter) SetMetaData(name string, value any) error {
	var f Field
	switch v := value.(type) {
	case Field:
		f = v
	case string:
		// stored NUL-terminated, as VTK does
		data := append([]byte(v), 0)
		f = &bufferField{data: Serialization{data: data}, layout: NewLayout(len(data)), prec: Char}
	default:
		var err error
		if f, err = NewRangeField(value); err != nil {
			return fmt.Errorf("meta data %q: %w", name, err)
		}
	}
	if err := checkName(name, f); err != nil {
		return err
	}
	w.metaData.Set(name, f)
	return nil
}

// RemovePointField unregisters and returns the named point field.
func (w *gridWriter) RemovePointField(name string) (Field, error) {
	return w.pointFields.Pop(name)
}

// RemoveCellField unregisters and returns the named cell field.
func (w *gridWriter) RemoveCellField(name string) (Field, error) {
	return w.cellFields.Pop(name)
}

// RemoveMetaData unregisters and returns the named meta data.
func (w *gridWriter) RemoveMetaData(name string) (Field, error) {
	return w.metaData.Pop(name)
}

// PointFieldNames returns the registered point field names, sorted.
func (w *gridWriter) PointFieldNames() []string { return w.pointFields.Names() }

// CellFieldNames returns the registered cell field names, sorted.
func (w *gridWriter) CellFieldNames() []string { return w.cellFields.Names() }

// MetaDataNames returns the registered meta data names, sorted.
func (w *gridWriter) MetaDataNames() []string { return w.metaData.Names() }

// Clear unregisters all fields.
func (w *gridWriter) Clear() {
	w.pointFields.Clear()
	w.cellFields.Clear()
	w.metaData.Clear()
}

// Grid returns the grid being written.
func (w *gridWriter) Grid() UnstructuredGrid {
	return w.grid
}

type namedField struct {
	name  string
	field Field
}

// fieldCache holds the normalized fields of a single write. Vector and
// tensor fields are padded to three components per dimension.
type fieldCache struct {
	points []namedField
	cells  []namedField
	meta   []namedField
}

func (w *gridWriter) prepare() (*fieldCache, error) {
	c := &fieldCache{}
	var err error
	if c.points, err = normalizeAll(&w.pointFields, w.grid.NumberOfPoints(), "point"); err != nil {
		return nil, err
	}
	if c.cells, err = normalizeAll(&w.cellFields, w.grid.NumberOfCells(), "cell"); err != nil {
		return nil, err
	}
	for _, name := range w.metaData.Names() {
		f, _ := w.metaData.Get(name)
		c.meta = append(c.meta, namedField{name, f})
	}
	return c, nil
}

func normalizeAll(s *FieldStorage, entities int, kind string) ([]namedField, error) {
	var out []namedField
	for _, name := range s.Names() {
		f, _ := s.Get(name)
		l := f.Layout()
		if l.Dimension() == 0 || l.Extent(0) != entities {
			return nil, fmt.Errorf("%w: %s field %q has layout %v for %d entities", ErrSize, kind, name, l, entities)
		}
		n, err := normalize(f)
		if err != nil {
			return nil, fmt.Errorf("%s field %q: %w", kind, name, err)
		}
		out = append(out, namedField{name, n})
	}
	return out, nil
}

// normalize pads vectors and tensors with up to three entries per
// dimension to exactly three.
func normalize(f Field) (Field, error) {
	l := f.Layout()
	if l.Dimension() <= 1 {
		return f, nil
	}
	for i := 1; i < l.Dimension(); i++ {
		if l.Extent(i) > 3 {
			return f, nil
		}
	}
	return ExtendAllTo(f, 3)
}

// components returns the number of components per entity of f.
func components(f Field) int {
	return f.Layout().NumberOfEntriesFrom(1)
}

// addFieldArray serializes f and adds it as a DataArray to parent.
func addFieldArray(doc *vtkxml.Document, parent *etree.Element, name string, f Field, comps, tuples int) error {
	s, err := f.Serialized()
	if err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	if err := checkSerialized(f, s); err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	a := vtkxml.Array{Name: name, Kind: f.Precision(), Components: comps, Tuples: tuples, Data: s.Bytes()}
	if err := doc.AddDataArray(parent, a); err != nil {
		return classify(err)
	}
	return nil
}

// writeFileAtomic writes a file through a temporary file in the same
// directory that is renamed into place on success.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir, base := filepath.Split(path)
	tmp := filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// withExtension returns filename with ext appended unless it already
// ends with it.
func withExtension(filename, ext string) string {
	if strings.HasSuffix(filename, ext) {
		return filename
	}
	return filename + ext
}

// cellArrays builds the connectivity, offsets and types arrays of grid.
// Connectivity and offsets use precision k.
func cellArrays(grid UnstructuredGrid, k Precision) (conn, offsets, types []byte, err error) {
	n := grid.NumberOfCells()
	np := grid.NumberOfPoints()
	size := k.Size()
	offsets = make([]byte, n*size)
	types = make([]byte, n)
	var corners []int
	total := 0
	for i := range n {
		t := grid.CellType(i)
		if types[i] = t.VTKNumber(); types[i] == 0 {
			return nil, nil, nil, fmt.Errorf("%w: cell %d has unknown type %v", ErrValue, i, t)
		}
		corners = grid.CellCorners(i, corners[:0])
		for _, c := range corners {
			if c < 0 || c >= np {
				return nil, nil, nil, fmt.Errorf("%w: cell %d references point %d of %d", ErrValue, i, c, np)
			}
			off := len(conn)
			conn = append(conn, make([]byte, size)...)
			dtype.PutInt(k, conn[off:], int64(c))
		}
		total += len(corners)
		dtype.PutInt(k, offsets[i*size:], int64(total))
	}
	return conn, offsets, types, nil
}
