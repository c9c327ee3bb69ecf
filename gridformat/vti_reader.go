package gridformat

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/robert-malhotra/go-gridformat/internal/dtype"
)

// VTIReader reads a .vti file. Points and cells are derived from the
// image geometry; field arrays are decoded on access.
type VTIReader struct {
	*pieceFile
	image ImageGrid
	begin [3]int
}

// OpenVTI opens the .vti file at path. Rotated images fail with
// ErrValue.
func OpenVTI(path string, opts ...ReaderOption) (*VTIReader, error) {
	o := defaultReaderOptions()
	for _, opt := range opts {
		opt(o)
	}
	pf, piece, err := openPieceFile(path, "ImageData", o)
	if err != nil {
		return nil, err
	}
	geo := pf.file.Element("ImageData")
	extent := piece.SelectAttrValue("Extent", geo.SelectAttrValue("WholeExtent", ""))
	image, begin, err := imageGeometry(geo, extent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	pf.numPoints, pf.numCells = image.NumberOfPoints(), image.NumberOfCells()
	return &VTIReader{pieceFile: pf, image: image, begin: begin}, nil
}

// imageGeometry returns the image spanned by extent in the coordinate
// system of the ImageData or PImageData element e, together with its
// first point index.
func imageGeometry(e *etree.Element, extent string) (ImageGrid, [3]int, error) {
	var image ImageGrid
	begin, size, err := parseExtent(extent)
	if err != nil {
		return image, begin, err
	}
	origin, err := parseVector(e.SelectAttrValue("Origin", "0 0 0"), 3)
	if err != nil {
		return image, begin, err
	}
	spacing, err := parseVector(e.SelectAttrValue("Spacing", "1 1 1"), 3)
	if err != nil {
		return image, begin, err
	}
	dir, err := parseVector(e.SelectAttrValue("Direction", identityDirection), 9)
	if err != nil {
		return image, begin, err
	}
	for i, v := range dir {
		if (i%4 == 0 && v != 1) || (i%4 != 0 && v != 0) {
			return image, begin, fmt.Errorf("%w: rotated images are not supported", ErrValue)
		}
	}
	for d := range 3 {
		image.Spacing[d] = spacing[d]
		image.Extents[d] = size[d]
		image.Origin[d] = origin[d] + float64(begin[d])*spacing[d]
	}
	return image, begin, image.Validate()
}

// Image returns the geometry of the file.
func (r *VTIReader) Image() (ImageGrid, error) {
	if err := r.checkOpen(); err != nil {
		return ImageGrid{}, err
	}
	return r.image, nil
}

// Points returns the point coordinates with layout (points, 3).
func (r *VTIReader) Points() (Field, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	return imagePoints(r.image)
}

// VisitCells calls fn for every cell in order.
func (r *VTIReader) VisitCells(fn func(t CellType, corners []int) error) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	return visitGridCells(r.image, fn)
}

// Grid returns the points and cells of the file.
func (r *VTIReader) Grid() (*UnstructuredGridData, error) {
	return readGrid(r)
}

func imagePoints(image ImageGrid) (Field, error) {
	n := image.NumberOfPoints()
	size := Float64.Size()
	data := make([]byte, 3*n*size)
	for i := range n {
		x := image.PointCoordinates(i)
		for d := range 3 {
			dtype.PutFloat(Float64, data[(3*i+d)*size:], x[d])
		}
	}
	return NewBufferField(Serialization{data: data}, NewLayout(n, 3), Float64)
}

func visitGridCells(g UnstructuredGrid, fn func(t CellType, corners []int) error) error {
	var corners []int
	for i := range g.NumberOfCells() {
		corners = g.CellCorners(i, corners[:0])
		if err := fn(g.CellType(i), corners); err != nil {
			return err
		}
	}
	return nil
}
