package gridformat

import (
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/robert-malhotra/go-gridformat/internal/vtkxml"
	"github.com/robert-malhotra/go-gridformat/parallel"
)

// PVTIWriter writes one image piece per rank plus a .pvti parent file.
// The pieces must lie on a common lattice: equal spacing and origins
// that differ by whole cells.
type PVTIWriter struct {
	*gridWriter
	image  ImageGrid
	comm   parallel.Communicator
	pieces []Piece
}

// NewPVTIWriter returns a writer for the local part of a distributed
// image. All ranks of comm must call Write collectively. A nil comm
// writes a single piece.
func NewPVTIWriter(image ImageGrid, comm parallel.Communicator, opts ...WriterOption) (*PVTIWriter, error) {
	if err := image.Validate(); err != nil {
		return nil, err
	}
	w, err := newGridWriter(image, opts)
	if err != nil {
		return nil, err
	}
	if comm == nil {
		comm = parallel.Null{}
	}
	return &PVTIWriter{gridWriter: w, image: image, comm: comm}, nil
}

// Rank returns the rank of the writer in its communicator.
func (w *PVTIWriter) Rank() int { return w.comm.Rank() }

// Communicator returns the communicator the pieces are written with.
func (w *PVTIWriter) Communicator() parallel.Communicator { return w.comm }

// Extension returns ".pvti".
func (w *PVTIWriter) Extension() string { return ".pvti" }

// Pieces returns the pieces of the last successful write.
func (w *PVTIWriter) Pieces() []Piece { return w.pieces }

// Write collectively writes the pieces and the parent file and returns
// the parent path on every rank. Pieces that do not share a lattice fail
// with ErrValue before anything is written. If writing fails on any
// rank, every rank removes its piece and ErrPieceFailed is returned.
// Registered fields are released.
func (w *PVTIWriter) Write(filename string) (string, error) {
	defer w.Clear()
	w.pieces = nil
	parent := withExtension(filename, w.Extension())

	geo := make([]float64, 0, 9)
	geo = append(geo, w.image.Origin[:]...)
	geo = append(geo, w.image.Spacing[:]...)
	for _, e := range w.image.Extents {
		geo = append(geo, float64(e))
	}
	all, err := parallel.AllGather(w.comm, geo)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPieceFailed, err)
	}
	lat, err := placePieces(all)
	if err != nil {
		return "", err
	}
	rank := w.comm.Rank()
	dom := imageDomain{origin: lat.origin, begin: lat.begins[rank], whole: lat.whole}

	cache, prepErr := w.prepare()
	writePiece := func(out io.Writer) error {
		if prepErr != nil {
			return prepErr
		}
		doc, err := w.vtiDocument(cache, w.image, dom)
		if err != nil {
			return err
		}
		return writeDocument(doc, out)
	}
	writeParent := func(out io.Writer, _ [][]int) error {
		return writeDocument(w.pvtiDocument(cache, parent, lat), out)
	}
	local := []int{w.grid.NumberOfPoints(), w.grid.NumberOfCells()}
	status, err := writeCollectively(w.comm, w.log, parent, local, writePiece, writeParent)
	if err != nil {
		return "", err
	}
	pieces := make([]Piece, len(status))
	for r, s := range status {
		pieces[r] = Piece{Rank: r, NumberOfPoints: s[0], NumberOfCells: s[1], Path: PieceFilename(parent, r)}
	}
	w.pieces = pieces
	return parent, nil
}

// lattice is the arrangement of all pieces in the whole image.
type lattice struct {
	origin  [3]float64
	spacing [3]float64
	whole   [3]int
	begins  [][3]int
	extents [][3]int
}

// placePieces arranges pieces given as origin, spacing and extents per
// rank. The whole image starts at the smallest origin; piece offsets are
// whole multiples of the spacing.
func placePieces(all [][]float64) (*lattice, error) {
	for r, geo := range all {
		if len(geo) != 9 {
			return nil, fmt.Errorf("%w: rank %d sent %d geometry values", ErrSize, r, len(geo))
		}
	}
	lat := &lattice{begins: make([][3]int, len(all)), extents: make([][3]int, len(all))}
	for d := range 3 {
		lat.origin[d] = math.Inf(1)
		lat.spacing[d] = all[0][3+d]
	}
	for r, geo := range all {
		for d := range 3 {
			if geo[3+d] != lat.spacing[d] {
				return nil, fmt.Errorf("%w: rank %d uses spacing %v, rank 0 uses %v", ErrValue, r, geo[3+d], lat.spacing[d])
			}
			lat.origin[d] = min(lat.origin[d], geo[d])
			lat.extents[r][d] = int(geo[6+d])
		}
	}
	for r, geo := range all {
		for d := range 3 {
			offset := (geo[d] - lat.origin[d]) / lat.spacing[d]
			begin := math.Round(offset)
			if math.Abs(offset-begin) > 1e-2 {
				return nil, fmt.Errorf("%w: origin of rank %d is not on the lattice", ErrValue, r)
			}
			lat.begins[r][d] = int(begin)
			lat.whole[d] = max(lat.whole[d], lat.begins[r][d]+lat.extents[r][d])
		}
	}
	return lat, nil
}

// pvtiDocument builds the parent file of the pieces in lat.
func (w *gridWriter) pvtiDocument(c *fieldCache, parent string, lat *lattice) *vtkxml.Document {
	doc := vtkxml.NewDocument("PImageData", w.settings)
	pid := doc.Root().CreateElement("PImageData")
	pid.CreateAttr("WholeExtent", formatExtent([3]int{}, lat.whole))
	pid.CreateAttr("GhostLevel", "0")
	pid.CreateAttr("Origin", formatVector(lat.origin))
	pid.CreateAttr("Spacing", formatVector(lat.spacing))
	pid.CreateAttr("Direction", identityDirection)

	ppd := pid.CreateElement("PPointData")
	for _, p := range c.points {
		doc.AddPDataArray(ppd, p.name, p.field.Precision(), components(p.field))
	}
	pcd := pid.CreateElement("PCellData")
	for _, f := range c.cells {
		doc.AddPDataArray(pcd, f.name, f.field.Precision(), components(f.field))
	}
	for r := range lat.begins {
		piece := pid.CreateElement("Piece")
		piece.CreateAttr("Extent", formatExtent(lat.begins[r], lat.extents[r]))
		piece.CreateAttr("Source", filepath.Base(PieceFilename(parent, r)))
	}
	return doc
}
