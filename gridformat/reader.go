package gridformat

import (
	"fmt"
	"path/filepath"
	"strings"
)

// GridReader reads a grid with its fields. Image grids are read as
// unstructured grids of pixels or voxels.
type GridReader interface {
	NumberOfPoints() int
	NumberOfCells() int
	PointFieldNames() []string
	CellFieldNames() []string
	MetaDataNames() []string
	Points() (Field, error)
	PointField(name string) (Field, error)
	CellField(name string) (Field, error)
	MetaData(name string) (Field, error)
	// VisitCells calls fn with the type and corners of every cell until
	// fn returns an error.
	VisitCells(fn func(t CellType, corners []int) error) error
	Grid() (*UnstructuredGridData, error)
	Close() error
}

// Open opens a .vtu, .pvtu, .vti, .pvti or .pvd file, chosen by
// extension.
func Open(path string, opts ...ReaderOption) (GridReader, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".vtu":
		return OpenVTU(path, opts...)
	case ".pvtu":
		return OpenPVTU(path, opts...)
	case ".vti":
		return OpenVTI(path, opts...)
	case ".pvti":
		return OpenPVTI(path, opts...)
	case ".pvd":
		return OpenPVD(path, opts...)
	default:
		return nil, fmt.Errorf("%w: unsupported file extension %q", ErrValue, ext)
	}
}

// StringValue returns the text held by a String field such as string
// meta data, without the terminating NUL.
func StringValue(f Field) (string, error) {
	if f.Precision() != Char {
		return "", fmt.Errorf("%w: %s field does not hold text", ErrType, f.Precision())
	}
	s, err := f.Serialized()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(s.Bytes()), "\x00"), nil
}

// readGrid materializes the grid of r.
func readGrid(r GridReader) (*UnstructuredGridData, error) {
	pts, err := r.Points()
	if err != nil {
		return nil, err
	}
	g := &UnstructuredGridData{}
	if err := ExportTo(pts, &g.Points); err != nil {
		return nil, err
	}
	err = r.VisitCells(func(t CellType, corners []int) error {
		g.AddCell(t, corners...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}
