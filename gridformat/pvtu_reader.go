package gridformat

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/robert-malhotra/go-gridformat/internal/vtkxml"
)

// PVTUReader reads a .pvtu file and its pieces. Without a communicator
// all pieces are read and merged in piece order. With a communicator
// each rank reads the piece matching its rank.
type PVTUReader struct {
	path    string
	pieces  []*VTUReader
	indices []int
	open    bool
	log     *slog.Logger
}

// OpenPVTU opens the parallel file at path and the pieces it references.
func OpenPVTU(path string, opts ...ReaderOption) (*PVTUReader, error) {
	o := defaultReaderOptions()
	for _, opt := range opts {
		opt(o)
	}

	f, err := vtkxml.ReadFile(path)
	if err != nil {
		return nil, classify(err)
	}
	grid := f.Element("PUnstructuredGrid")
	if f.Type() != "PUnstructuredGrid" || grid == nil {
		return nil, fmt.Errorf("%w: %s is not a PUnstructuredGrid file", ErrIO, path)
	}
	var paths []string
	for _, p := range grid.SelectElements("Piece") {
		src := p.SelectAttrValue("Source", "")
		if src == "" {
			return nil, fmt.Errorf("%w: %s has a piece without source", ErrIO, path)
		}
		if !filepath.IsAbs(src) {
			src = filepath.Join(filepath.Dir(path), src)
		}
		paths = append(paths, src)
	}

	r := &PVTUReader{path: path, open: true, log: o.logger}
	first, count := 0, len(paths)
	if o.comm != nil {
		first, count = piecesOfRank(len(paths), o.comm.Size(), o.comm.Rank(), o.mergeExceeding, r.log)
	}
	for i := first; i < first+count; i++ {
		pr, err := OpenVTU(paths[i], WithReaderLogger(o.logger))
		if err != nil {
			return nil, fmt.Errorf("piece %d: %w", i, err)
		}
		r.pieces = append(r.pieces, pr)
		r.indices = append(r.indices, i)
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

// piecesOfRank returns the range of pieces read by rank. Ranks beyond
// the number of pieces read nothing. If merge is set the last rank also
// reads all pieces beyond the number of ranks.
func piecesOfRank(numPieces, numRanks, rank int, merge bool, log *slog.Logger) (first, count int) {
	if rank == 0 {
		switch {
		case numPieces < numRanks:
			log.Warn("file defines fewer pieces than there are ranks, some ranks read empty grids", "pieces", numPieces, "ranks", numRanks)
		case numPieces > numRanks && !merge:
			log.Warn("file defines more pieces than there are ranks, only the first pieces are read", "pieces", numPieces, "ranks", numRanks)
		}
	}
	if rank >= numPieces {
		return 0, 0
	}
	if merge && rank == numRanks-1 {
		return rank, numPieces - rank
	}
	return rank, 1
}

// Filename returns the path of the parallel file.
func (r *PVTUReader) Filename() string { return r.path }

// Pieces describes the pieces read by this reader.
func (r *PVTUReader) Pieces() []Piece {
	out := make([]Piece, len(r.pieces))
	for i, p := range r.pieces {
		out[i] = Piece{Rank: r.indices[i], NumberOfPoints: p.NumberOfPoints(), NumberOfCells: p.NumberOfCells(), Path: p.Filename()}
	}
	return out
}

// NumberOfPoints returns the number of points of all pieces read.
func (r *PVTUReader) NumberOfPoints() int {
	n := 0
	for _, p := range r.pieces {
		n += p.NumberOfPoints()
	}
	return n
}

// NumberOfCells returns the number of cells of all pieces read.
func (r *PVTUReader) NumberOfCells() int {
	n := 0
	for _, p := range r.pieces {
		n += p.NumberOfCells()
	}
	return n
}

func (r *PVTUReader) PointFieldNames() []string { return r.firstNames((*VTUReader).PointFieldNames) }
func (r *PVTUReader) CellFieldNames() []string  { return r.firstNames((*VTUReader).CellFieldNames) }
func (r *PVTUReader) MetaDataNames() []string   { return r.firstNames((*VTUReader).MetaDataNames) }

func (r *PVTUReader) firstNames(fn func(*VTUReader) []string) []string {
	if len(r.pieces) == 0 {
		return nil
	}
	return fn(r.pieces[0])
}

func (r *PVTUReader) checkOpen() error {
	if !r.open {
		return fmt.Errorf("%w: reader is closed", ErrInvalidState)
	}
	return nil
}

// merge concatenates a field of all pieces. A reader without pieces
// returns an empty field of the given layout.
func (r *PVTUReader) merge(empty Layout, get func(*VTUReader) (Field, error)) (Field, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if len(r.pieces) == 0 {
		return NewBufferField(Serialization{}, empty, Float64)
	}
	fields := make([]Field, len(r.pieces))
	for i, p := range r.pieces {
		f, err := get(p)
		if err != nil {
			return nil, fmt.Errorf("piece %d: %w", r.indices[i], err)
		}
		fields[i] = f
	}
	return Merged(fields...)
}

// Points returns the coordinates of all pieces read.
func (r *PVTUReader) Points() (Field, error) {
	return r.merge(NewLayout(0, 3), (*VTUReader).Points)
}

// PointField returns the named point field of all pieces read.
func (r *PVTUReader) PointField(name string) (Field, error) {
	return r.merge(NewLayout(0), func(p *VTUReader) (Field, error) { return p.PointField(name) })
}

// CellField returns the named cell field of all pieces read.
func (r *PVTUReader) CellField(name string) (Field, error) {
	return r.merge(NewLayout(0), func(p *VTUReader) (Field, error) { return p.CellField(name) })
}

// MetaData returns the named meta data of the first piece.
func (r *PVTUReader) MetaData(name string) (Field, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if len(r.pieces) == 0 {
		return nil, fmt.Errorf("%w: no meta data named %q", ErrValue, name)
	}
	return r.pieces[0].MetaData(name)
}

// VisitCells visits the cells of all pieces read. Corner indices refer
// to the merged points.
func (r *PVTUReader) VisitCells(fn func(t CellType, corners []int) error) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	shift := 0
	for _, p := range r.pieces {
		if err := p.visitCells(shift, fn); err != nil {
			return err
		}
		shift += p.NumberOfPoints()
	}
	return nil
}

// Grid returns the merged points and cells of all pieces read.
func (r *PVTUReader) Grid() (*UnstructuredGridData, error) {
	return readGrid(r)
}

// Close closes all pieces.
func (r *PVTUReader) Close() error {
	for _, p := range r.pieces {
		p.Close()
	}
	r.pieces, r.indices = nil, nil
	r.open = false
	return nil
}
