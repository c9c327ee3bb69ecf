package gridformat

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/robert-malhotra/go-gridformat/internal/vtkxml"
)

// PVDReader reads a .pvd time series. One step is open at a time; the
// GridReader methods refer to it. The first step is selected on open.
type PVDReader struct {
	path  string
	steps []pvdStep
	opts  []ReaderOption
	step  int
	cur   GridReader
	log   *slog.Logger
}

// OpenPVD opens the collection file at path. Step files are opened with
// Open and the given options, so parallel steps are read per rank when
// a communicator is set.
func OpenPVD(path string, opts ...ReaderOption) (*PVDReader, error) {
	o := defaultReaderOptions()
	for _, opt := range opts {
		opt(o)
	}
	f, err := vtkxml.ReadFile(path)
	if err != nil {
		return nil, classify(err)
	}
	coll := f.Element("Collection")
	if f.Type() != "Collection" || coll == nil {
		return nil, fmt.Errorf("%w: %s is not a Collection file", ErrIO, path)
	}
	r := &PVDReader{path: path, opts: opts, log: o.logger}
	for i, ds := range coll.SelectElements("DataSet") {
		file := ds.SelectAttrValue("file", "")
		if file == "" {
			return nil, fmt.Errorf("%w: data set %d of %s has no file", ErrIO, i, path)
		}
		file = filepath.FromSlash(file)
		if !filepath.IsAbs(file) {
			file = filepath.Join(filepath.Dir(path), file)
		}
		t, err := strconv.ParseFloat(ds.SelectAttrValue("timestep", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: data set %d of %s has an invalid timestep", ErrIO, i, path)
		}
		r.steps = append(r.steps, pvdStep{time: t, file: file})
	}
	if len(r.steps) == 0 {
		return nil, fmt.Errorf("%w: %s lists no data sets", ErrIO, path)
	}
	if err := r.SetStep(0); err != nil {
		return nil, err
	}
	return r, nil
}

// Filename returns the path of the collection file.
func (r *PVDReader) Filename() string { return r.path }

// NumberOfSteps returns the number of steps in the collection.
func (r *PVDReader) NumberOfSteps() int { return len(r.steps) }

// TimeAt returns the time of step i.
func (r *PVDReader) TimeAt(i int) (float64, error) {
	if i < 0 || i >= len(r.steps) {
		return 0, fmt.Errorf("%w: step %d out of range [0, %d)", ErrValue, i, len(r.steps))
	}
	return r.steps[i].time, nil
}

// StepFilename returns the path of the file of step i.
func (r *PVDReader) StepFilename(i int) (string, error) {
	if i < 0 || i >= len(r.steps) {
		return "", fmt.Errorf("%w: step %d out of range [0, %d)", ErrValue, i, len(r.steps))
	}
	return r.steps[i].file, nil
}

// Step returns the index of the current step.
func (r *PVDReader) Step() int { return r.step }

// SetStep closes the current step and opens step i.
func (r *PVDReader) SetStep(i int) error {
	if r.steps == nil {
		return fmt.Errorf("%w: reader is closed", ErrInvalidState)
	}
	if i < 0 || i >= len(r.steps) {
		return fmt.Errorf("%w: step %d out of range [0, %d)", ErrValue, i, len(r.steps))
	}
	if r.cur != nil {
		r.cur.Close()
		r.cur = nil
	}
	cur, err := Open(r.steps[i].file, r.opts...)
	if err != nil {
		return fmt.Errorf("step %d: %w", i, err)
	}
	r.cur, r.step = cur, i
	r.log.Debug("step opened", "step", i, "time", r.steps[i].time, "path", r.steps[i].file)
	return nil
}

// Current returns the reader of the current step.
func (r *PVDReader) Current() (GridReader, error) {
	if r.cur == nil {
		return nil, fmt.Errorf("%w: no step is open", ErrInvalidState)
	}
	return r.cur, nil
}

func (r *PVDReader) NumberOfPoints() int {
	if r.cur == nil {
		return 0
	}
	return r.cur.NumberOfPoints()
}

func (r *PVDReader) NumberOfCells() int {
	if r.cur == nil {
		return 0
	}
	return r.cur.NumberOfCells()
}

func (r *PVDReader) PointFieldNames() []string {
	if r.cur == nil {
		return nil
	}
	return r.cur.PointFieldNames()
}

func (r *PVDReader) CellFieldNames() []string {
	if r.cur == nil {
		return nil
	}
	return r.cur.CellFieldNames()
}

func (r *PVDReader) MetaDataNames() []string {
	if r.cur == nil {
		return nil
	}
	return r.cur.MetaDataNames()
}

func (r *PVDReader) Points() (Field, error) {
	cur, err := r.Current()
	if err != nil {
		return nil, err
	}
	return cur.Points()
}

func (r *PVDReader) PointField(name string) (Field, error) {
	cur, err := r.Current()
	if err != nil {
		return nil, err
	}
	return cur.PointField(name)
}

func (r *PVDReader) CellField(name string) (Field, error) {
	cur, err := r.Current()
	if err != nil {
		return nil, err
	}
	return cur.CellField(name)
}

func (r *PVDReader) MetaData(name string) (Field, error) {
	cur, err := r.Current()
	if err != nil {
		return nil, err
	}
	return cur.MetaData(name)
}

func (r *PVDReader) VisitCells(fn func(t CellType, corners []int) error) error {
	cur, err := r.Current()
	if err != nil {
		return err
	}
	return cur.VisitCells(fn)
}

func (r *PVDReader) Grid() (*UnstructuredGridData, error) {
	cur, err := r.Current()
	if err != nil {
		return nil, err
	}
	return cur.Grid()
}

// Close closes the current step. Further reads fail with
// ErrInvalidState.
func (r *PVDReader) Close() error {
	var err error
	if r.cur != nil {
		err = r.cur.Close()
	}
	r.cur, r.steps = nil, nil
	return err
}
