package gridformat

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-gridformat/internal/vtkxml"
	"github.com/robert-malhotra/go-gridformat/parallel"
)

// TimeStepWriter is a writer that can produce the files of a time series.
// It is implemented by the VTU, VTI, PVTU and PVTI writers.
type TimeStepWriter interface {
	Write(filename string) (string, error)
	SetMetaData(name string, value any) error
	Rank() int
}

// collectiveWriter is implemented by writers whose ranks write every step
// together. Their ranks wait for the collection file written by rank 0.
type collectiveWriter interface {
	Communicator() parallel.Communicator
}

type pvdStep struct {
	time float64
	file string
}

// PVDWriter writes a time series as one file per step plus a .pvd
// collection that lists them.
type PVDWriter struct {
	w     TimeStepWriter
	base  string
	steps []pvdStep
}

// NewPVDWriter returns a time series writer. basePath is the path of the
// collection file without the .pvd extension; step files are named
// {base}-{index}.
func NewPVDWriter(w TimeStepWriter, basePath string) *PVDWriter {
	return &PVDWriter{w: w, base: strings.TrimSuffix(basePath, ".pvd")}
}

// Filename returns the path of the collection file.
func (p *PVDWriter) Filename() string {
	return p.base + ".pvd"
}

// WriteStep writes the fields currently attached to the inner writer as
// the step at time t and rewrites the collection file. Fields must be
// attached again before the next step. With a parallel writer every rank
// returns once rank 0 has written the collection, and fails if rank 0 did.
func (p *PVDWriter) WriteStep(t float64) (string, error) {
	if err := p.w.SetMetaData("TimeValue", t); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%05d", p.base, len(p.steps))
	written, err := p.w.Write(name)
	if err != nil {
		return "", err
	}
	p.steps = append(p.steps, pvdStep{time: t, file: written})

	if p.w.Rank() == 0 {
		err = writeFileAtomic(p.Filename(), p.writeCollection)
	}
	if cw, ok := p.w.(collectiveWriter); ok {
		err = p.shareOutcome(cw.Communicator(), err)
	}
	if err != nil {
		return "", err
	}
	return p.Filename(), nil
}

// shareOutcome broadcasts whether rank 0 wrote the collection file.
func (p *PVDWriter) shareOutcome(comm parallel.Communicator, err error) error {
	outcome := []int{0}
	if err != nil {
		outcome[0] = 1
	}
	outcome, cerr := parallel.Broadcast(comm, 0, outcome)
	switch {
	case err != nil:
		return err
	case cerr != nil:
		return fmt.Errorf("%w: %w", ErrIO, cerr)
	case outcome[0] != 0:
		return fmt.Errorf("%w: rank 0 failed to write %s", ErrIO, p.Filename())
	}
	return nil
}

func (p *PVDWriter) writeCollection(out io.Writer) error {
	doc := vtkxml.NewPlainDocument("Collection", "1.0")
	coll := doc.Root().CreateElement("Collection")
	dir := filepath.Dir(p.Filename())
	for _, s := range p.steps {
		file := s.file
		if rel, err := filepath.Rel(dir, s.file); err == nil {
			file = rel
		}
		e := coll.CreateElement("DataSet")
		e.CreateAttr("timestep", strconv.FormatFloat(s.time, 'g', -1, 64))
		e.CreateAttr("group", "")
		e.CreateAttr("part", "0")
		e.CreateAttr("name", "")
		e.CreateAttr("file", filepath.ToSlash(file))
	}
	if _, err := doc.WriteTo(out); err != nil {
		return classify(err)
	}
	return nil
}
