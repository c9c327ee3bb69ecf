package gridformat

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/robert-malhotra/go-gridformat/internal/vtkxml"
)

// PVTIReader reads a .pvti file and its pieces. Without a communicator
// all pieces are read and assembled into the whole image. With a
// communicator each rank reads the pieces of its rank, which must
// together form a box.
type PVTIReader struct {
	path    string
	pieces  []*VTIReader
	indices []int
	image   ImageGrid
	begin   [3]int
	open    bool
	log     *slog.Logger
}

// OpenPVTI opens the parallel image file at path and the pieces it
// references.
func OpenPVTI(path string, opts ...ReaderOption) (*PVTIReader, error) {
	o := defaultReaderOptions()
	for _, opt := range opts {
		opt(o)
	}

	f, err := vtkxml.ReadFile(path)
	if err != nil {
		return nil, classify(err)
	}
	geo := f.Element("PImageData")
	if f.Type() != "PImageData" || geo == nil {
		return nil, fmt.Errorf("%w: %s is not a PImageData file", ErrIO, path)
	}
	whole, wholeBegin, err := imageGeometry(geo, geo.SelectAttrValue("WholeExtent", ""))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var paths []string
	for _, p := range geo.SelectElements("Piece") {
		src := p.SelectAttrValue("Source", "")
		if src == "" {
			return nil, fmt.Errorf("%w: %s has a piece without source", ErrIO, path)
		}
		if !filepath.IsAbs(src) {
			src = filepath.Join(filepath.Dir(path), src)
		}
		paths = append(paths, src)
	}

	r := &PVTIReader{path: path, open: true, log: o.logger, image: whole, begin: wholeBegin}
	first, count := 0, len(paths)
	if o.comm != nil {
		first, count = piecesOfRank(len(paths), o.comm.Size(), o.comm.Rank(), o.mergeExceeding, r.log)
	}
	for i := first; i < first+count; i++ {
		pr, err := OpenVTI(paths[i], WithReaderLogger(o.logger))
		if err != nil {
			return nil, fmt.Errorf("piece %d: %w", i, err)
		}
		if pr.image.Spacing != whole.Spacing {
			return nil, fmt.Errorf("%w: piece %d has spacing %v, the image %v", ErrValue, i, pr.image.Spacing, whole.Spacing)
		}
		r.pieces = append(r.pieces, pr)
		r.indices = append(r.indices, i)
	}
	if o.comm != nil && len(r.pieces) > 0 {
		r.image, r.begin = boundingBox(r.pieces)
	}
	if err := r.checkTiling(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if len(r.pieces) > 1 {
		points, cells := r.pieces[0].PointFieldNames(), r.pieces[0].CellFieldNames()
		for _, p := range r.pieces[1:] {
			if !slices.Equal(p.PointFieldNames(), points) {
				return nil, fmt.Errorf("%w: all pieces must define the same point fields", ErrIO)
			}
			if !slices.Equal(p.CellFieldNames(), cells) {
				return nil, fmt.Errorf("%w: all pieces must define the same cell fields", ErrIO)
			}
		}
	}
	return r, nil
}

// boundingBox returns the smallest image containing all pieces.
func boundingBox(pieces []*VTIReader) (ImageGrid, [3]int) {
	begin, end := pieces[0].begin, pieces[0].begin
	for _, p := range pieces {
		for d := range 3 {
			begin[d] = min(begin[d], p.begin[d])
			end[d] = max(end[d], p.begin[d]+p.image.Extents[d])
		}
	}
	box := ImageGrid{Spacing: pieces[0].image.Spacing}
	for d := range 3 {
		box.Extents[d] = end[d] - begin[d]
		box.Origin[d] = pieces[0].image.Origin[d] - float64(pieces[0].begin[d]-begin[d])*box.Spacing[d]
	}
	return box, begin
}

// checkTiling verifies that the pieces read cover every cell of the image
// exactly once.
func (r *PVTIReader) checkTiling() error {
	if len(r.pieces) == 0 {
		return nil
	}
	counts := r.image.cellCounts()
	covered := make([]bool, r.image.NumberOfCells())
	for i, p := range r.pieces {
		for d := range 3 {
			b := p.begin[d] - r.begin[d]
			if b < 0 || b+p.image.Extents[d] > r.image.Extents[d] {
				return fmt.Errorf("%w: piece %d lies outside the image", ErrValue, r.indices[i])
			}
			if p.NumberOfCells() > 0 && (p.image.Extents[d] > 0) != (r.image.Extents[d] > 0) {
				return fmt.Errorf("%w: piece %d is flat in another direction than the image", ErrValue, r.indices[i])
			}
		}
		pc := p.image.cellCounts()
		for j := range p.NumberOfCells() {
			c := r.boxIndex(p, unravel(j, pc), counts)
			if covered[c] {
				return fmt.Errorf("%w: piece %d overlaps another piece", ErrValue, r.indices[i])
			}
			covered[c] = true
		}
	}
	if slices.Contains(covered, false) {
		return fmt.Errorf("%w: the pieces do not cover the image", ErrValue)
	}
	return nil
}

// boxIndex maps the location loc within piece p to an index in a box of
// the image with the given counts.
func (r *PVTIReader) boxIndex(p *VTIReader, loc, counts [3]int) int {
	for d := range 3 {
		loc[d] += p.begin[d] - r.begin[d]
	}
	return ravel(loc, counts)
}

// Filename returns the path of the parallel file.
func (r *PVTIReader) Filename() string { return r.path }

// Pieces describes the pieces read by this reader.
func (r *PVTIReader) Pieces() []Piece {
	out := make([]Piece, len(r.pieces))
	for i, p := range r.pieces {
		out[i] = Piece{Rank: r.indices[i], NumberOfPoints: p.NumberOfPoints(), NumberOfCells: p.NumberOfCells(), Path: p.Filename()}
	}
	return out
}

// Image returns the geometry of the part of the image read.
func (r *PVTIReader) Image() (ImageGrid, error) {
	if err := r.checkOpen(); err != nil {
		return ImageGrid{}, err
	}
	return r.image, nil
}

// NumberOfPoints returns the number of points of the part read.
func (r *PVTIReader) NumberOfPoints() int {
	if len(r.pieces) == 0 {
		return 0
	}
	return r.image.NumberOfPoints()
}

// NumberOfCells returns the number of cells of the part read.
func (r *PVTIReader) NumberOfCells() int {
	if len(r.pieces) == 0 {
		return 0
	}
	return r.image.NumberOfCells()
}

func (r *PVTIReader) PointFieldNames() []string { return r.firstNames((*VTIReader).PointFieldNames) }
func (r *PVTIReader) CellFieldNames() []string  { return r.firstNames((*VTIReader).CellFieldNames) }
func (r *PVTIReader) MetaDataNames() []string   { return r.firstNames((*VTIReader).MetaDataNames) }

func (r *PVTIReader) firstNames(fn func(*VTIReader) []string) []string {
	if len(r.pieces) == 0 {
		return nil
	}
	return fn(r.pieces[0])
}

func (r *PVTIReader) checkOpen() error {
	if !r.open {
		return fmt.Errorf("%w: reader is closed", ErrInvalidState)
	}
	return nil
}

// assemble places the values of a field of every piece at the location
// of the piece in the image. Points on shared piece boundaries are taken
// from the last piece.
func (r *PVTIReader) assemble(points bool, get func(*VTIReader) (Field, error)) (Field, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if len(r.pieces) == 0 {
		return NewBufferField(Serialization{}, NewLayout(0), Float64)
	}
	counts, total := r.image.cellCounts(), r.image.NumberOfCells()
	if points {
		counts, total = r.image.pointCounts(), r.image.NumberOfPoints()
	}

	var out []byte
	var first Field
	var entry int
	for i, p := range r.pieces {
		f, err := get(p)
		if err != nil {
			return nil, fmt.Errorf("piece %d: %w", r.indices[i], err)
		}
		if first == nil {
			first = f
			entry = components(f) * f.Precision().Size()
			out = make([]byte, total*entry)
		} else if f.Precision() != first.Precision() || components(f) != components(first) {
			return nil, fmt.Errorf("%w: piece %d stores %s with %d components, piece %d %s with %d", ErrType,
				r.indices[i], f.Precision(), components(f), r.indices[0], first.Precision(), components(first))
		}
		s, err := f.Serialized()
		if err != nil {
			return nil, err
		}
		data := s.Bytes()
		pc := p.image.cellCounts()
		if points {
			pc = p.image.pointCounts()
		}
		for j := range f.Layout().Extent(0) {
			at := r.boxIndex(p, unravel(j, pc), counts)
			copy(out[at*entry:(at+1)*entry], data[j*entry:(j+1)*entry])
		}
	}
	extents := first.Layout().Extents()
	extents[0] = total
	return NewBufferField(Serialization{data: out}, NewLayout(extents...), first.Precision())
}

// Points returns the coordinates of the part read.
func (r *PVTIReader) Points() (Field, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if len(r.pieces) == 0 {
		return NewBufferField(Serialization{}, NewLayout(0, 3), Float64)
	}
	return imagePoints(r.image)
}

// PointField returns the named point field of the part read.
func (r *PVTIReader) PointField(name string) (Field, error) {
	return r.assemble(true, func(p *VTIReader) (Field, error) { return p.PointField(name) })
}

// CellField returns the named cell field of the part read.
func (r *PVTIReader) CellField(name string) (Field, error) {
	return r.assemble(false, func(p *VTIReader) (Field, error) { return p.CellField(name) })
}

// MetaData returns the named meta data of the first piece.
func (r *PVTIReader) MetaData(name string) (Field, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if len(r.pieces) == 0 {
		return nil, fmt.Errorf("%w: no meta data named %q", ErrValue, name)
	}
	return r.pieces[0].MetaData(name)
}

// VisitCells visits the cells of the part read.
func (r *PVTIReader) VisitCells(fn func(t CellType, corners []int) error) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	if len(r.pieces) == 0 {
		return nil
	}
	return visitGridCells(r.image, fn)
}

// Grid returns the points and cells of the part read.
func (r *PVTIReader) Grid() (*UnstructuredGridData, error) {
	return readGrid(r)
}

// Close closes all pieces.
func (r *PVTIReader) Close() error {
	for _, p := range r.pieces {
		p.Close()
	}
	r.pieces, r.indices = nil, nil
	r.open = false
	return nil
}
