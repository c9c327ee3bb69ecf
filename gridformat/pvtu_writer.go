package gridformat

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-gridformat/internal/vtkxml"
	"github.com/robert-malhotra/go-gridformat/parallel"
)

// Piece describes the contribution of one rank to a parallel file.
type Piece struct {
	Rank           int
	NumberOfPoints int
	NumberOfCells  int
	Path           string
}

// PieceFilename returns the path of the piece written by rank for the
// parallel file parent: {base}_p{rank}.vti next to a .pvti parent and
// {base}_p{rank}.vtu otherwise.
func PieceFilename(parent string, rank int) string {
	ext := filepath.Ext(parent)
	pieceExt := ".vtu"
	if strings.EqualFold(ext, ".pvti") {
		pieceExt = ".vti"
	}
	return strings.TrimSuffix(parent, ext) + "_p" + strconv.Itoa(rank) + pieceExt
}

// ParsePieceRank returns the rank encoded in a piece file name.
func ParsePieceRank(name string) (int, error) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	i := strings.LastIndex(stem, "_p")
	if i < 0 {
		return 0, fmt.Errorf("%w: %q is not a piece file name", ErrValue, name)
	}
	rank, err := strconv.Atoi(stem[i+2:])
	if err != nil || rank < 0 {
		return 0, fmt.Errorf("%w: %q is not a piece file name", ErrValue, name)
	}
	return rank, nil
}

// PVTUWriter writes one piece per rank plus a .pvtu parent file.
type PVTUWriter struct {
	*gridWriter
	comm   parallel.Communicator
	pieces []Piece
}

// NewPVTUWriter returns a writer for the local part of a distributed
// grid. All ranks of comm must call Write collectively. A nil comm
// writes a single piece.
func NewPVTUWriter(grid UnstructuredGrid, comm parallel.Communicator, opts ...WriterOption) (*PVTUWriter, error) {
	w, err := newGridWriter(grid, opts)
	if err != nil {
		return nil, err
	}
	if comm == nil {
		comm = parallel.Null{}
	}
	return &PVTUWriter{gridWriter: w, comm: comm}, nil
}

// Rank returns the rank of the writer in its communicator.
func (w *PVTUWriter) Rank() int { return w.comm.Rank() }

// Communicator returns the communicator the pieces are written with.
func (w *PVTUWriter) Communicator() parallel.Communicator { return w.comm }

// Extension returns ".pvtu".
func (w *PVTUWriter) Extension() string { return ".pvtu" }

// Pieces returns the pieces of the last successful write.
func (w *PVTUWriter) Pieces() []Piece { return w.pieces }

// Write collectively writes the pieces and the parent file and returns
// the parent path on every rank. If any rank fails, every rank removes
// its piece, no parent file is written and ErrPieceFailed is returned.
// Registered fields are released.
func (w *PVTUWriter) Write(filename string) (string, error) {
	defer w.Clear()
	w.pieces = nil
	parent := withExtension(filename, w.Extension())

	cache, prepErr := w.prepare()
	writePiece := func(out io.Writer) error {
		if prepErr != nil {
			return prepErr
		}
		doc, err := w.vtuDocument(cache)
		if err != nil {
			return err
		}
		return writeDocument(doc, out)
	}
	writeParent := func(out io.Writer, status [][]int) error {
		return writeDocument(w.pvtuDocument(cache, parent, len(status)), out)
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

func writeDocument(doc *vtkxml.Document, out io.Writer) error {
	if _, err := doc.WriteTo(out); err != nil {
		return classify(err)
	}
	return nil
}

// writeCollectively writes the piece of the calling rank next to parent,
// gathers local from all ranks together with the outcome and lets rank 0
// write the parent. If any rank fails, every rank removes its piece and
// ErrPieceFailed is returned. On success all gathered values are
// returned on every rank.
func writeCollectively(
	comm parallel.Communicator,
	log *slog.Logger,
	parent string,
	local []int,
	writePiece func(io.Writer) error,
	writeParent func(io.Writer, [][]int) error,
) ([][]int, error) {
	rank := comm.Rank()
	piecePath := PieceFilename(parent, rank)
	err := writeFileAtomic(piecePath, writePiece)
	if err != nil {
		log.Error("writing piece failed", "rank", rank, "path", piecePath, "error", err)
	}

	// first barrier: agree on the outcome of all pieces
	failed := 0
	if err != nil {
		failed = 1
	}
	gathered, cerr := parallel.AllGather(comm, append([]int{failed}, local...))
	if cerr != nil {
		return nil, abortPiece(log, piecePath, errors.Join(err, cerr))
	}
	status := make([][]int, len(gathered))
	anyFailed := false
	for r, g := range gathered {
		anyFailed = anyFailed || g[0] != 0
		status[r] = g[1:]
	}
	if anyFailed {
		return nil, abortPiece(log, piecePath, err)
	}
	log.Debug("piece committed", "rank", rank, "path", piecePath)

	// rank 0 writes the parent, the second barrier publishes its outcome
	var perr error
	if rank == 0 {
		perr = writeFileAtomic(parent, func(out io.Writer) error {
			return writeParent(out, status)
		})
	}
	outcome := []int{0}
	if perr != nil {
		outcome[0] = 1
	}
	outcome, cerr = parallel.Broadcast(comm, 0, outcome)
	if cerr != nil {
		return nil, abortPiece(log, piecePath, errors.Join(perr, cerr))
	}
	if outcome[0] != 0 {
		return nil, abortPiece(log, piecePath, perr)
	}
	if rank == 0 {
		log.Debug("file written", "path", parent, "pieces", len(status))
	}
	return status, nil
}

// abortPiece removes the local piece and reports the collective failure.
func abortPiece(log *slog.Logger, piecePath string, cause error) error {
	if err := os.Remove(piecePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("removing piece failed", "path", piecePath, "error", err)
	}
	if cause != nil {
		return fmt.Errorf("%w: %w", ErrPieceFailed, cause)
	}
	return fmt.Errorf("%w: another rank failed", ErrPieceFailed)
}

// pvtuDocument builds the parent file referencing numPieces pieces.
func (w *gridWriter) pvtuDocument(c *fieldCache, parent string, numPieces int) *vtkxml.Document {
	doc := vtkxml.NewDocument("PUnstructuredGrid", w.settings)
	pug := doc.Root().CreateElement("PUnstructuredGrid")
	pug.CreateAttr("GhostLevel", "0")

	ppd := pug.CreateElement("PPointData")
	for _, p := range c.points {
		doc.AddPDataArray(ppd, p.name, p.field.Precision(), components(p.field))
	}
	pcd := pug.CreateElement("PCellData")
	for _, f := range c.cells {
		doc.AddPDataArray(pcd, f.name, f.field.Precision(), components(f.field))
	}
	doc.AddPDataArray(pug.CreateElement("PPoints"), "", w.opts.coordPrecision, 3)

	for r := range numPieces {
		pug.CreateElement("Piece").CreateAttr("Source", filepath.Base(PieceFilename(parent, r)))
	}
	return doc
}
