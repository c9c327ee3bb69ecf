package gridformat

import (
	"fmt"
	"strconv"
	"strings"
)

// ImageGrid is an axis-aligned grid of equally sized cells. Extents holds
// the number of cells per direction; a direction with zero cells is flat.
// Points and cells are numbered with x running fastest.
//
// ImageGrid implements UnstructuredGrid: its cells are segments, pixels
// or voxels depending on the number of non-flat directions.
type ImageGrid struct {
	Origin  [3]float64
	Spacing [3]float64
	Extents [3]int
}

// Validate checks that the spacing is positive and the extents are not
// negative.
func (g ImageGrid) Validate() error {
	for d := range 3 {
		if !(g.Spacing[d] > 0) {
			return fmt.Errorf("%w: spacing %v in direction %d is not positive", ErrValue, g.Spacing[d], d)
		}
		if g.Extents[d] < 0 {
			return fmt.Errorf("%w: negative extent %d in direction %d", ErrValue, g.Extents[d], d)
		}
	}
	return nil
}

// dimension returns the number of non-flat directions.
func (g ImageGrid) dimension() int {
	n := 0
	for _, e := range g.Extents {
		if e > 0 {
			n++
		}
	}
	return n
}

func (g ImageGrid) pointCounts() [3]int {
	return [3]int{g.Extents[0] + 1, g.Extents[1] + 1, g.Extents[2] + 1}
}

func (g ImageGrid) cellCounts() [3]int {
	if g.dimension() == 0 {
		return [3]int{}
	}
	return [3]int{max(g.Extents[0], 1), max(g.Extents[1], 1), max(g.Extents[2], 1)}
}

func (g ImageGrid) NumberOfPoints() int {
	n := g.pointCounts()
	return n[0] * n[1] * n[2]
}

func (g ImageGrid) NumberOfCells() int {
	n := g.cellCounts()
	return n[0] * n[1] * n[2]
}

func (g ImageGrid) PointCoordinates(i int) [3]float64 {
	loc := unravel(i, g.pointCounts())
	var x [3]float64
	for d := range 3 {
		x[d] = g.Origin[d] + float64(loc[d])*g.Spacing[d]
	}
	return x
}

func (g ImageGrid) CellType(int) CellType {
	switch g.dimension() {
	case 1:
		return Segment
	case 2:
		return Pixel
	default:
		return Voxel
	}
}

// CellCorners appends the corners of cell i in VTK pixel and voxel order.
func (g ImageGrid) CellCorners(i int, buf []int) []int {
	loc := unravel(i, g.cellCounts())
	np := g.pointCounts()
	var active []int
	for d := range 3 {
		if g.Extents[d] > 0 {
			active = append(active, d)
		}
	}
	for c := range 1 << len(active) {
		p := loc
		for j, d := range active {
			p[d] += (c >> j) & 1
		}
		buf = append(buf, ravel(p, np))
	}
	return buf
}

// unravel returns the location of index i in a box of the given counts,
// x running fastest.
func unravel(i int, counts [3]int) [3]int {
	return [3]int{i % counts[0], (i / counts[0]) % counts[1], i / (counts[0] * counts[1])}
}

func ravel(loc, counts [3]int) int {
	return loc[0] + counts[0]*(loc[1]+counts[1]*loc[2])
}

// formatExtent renders the index range [begin, begin+size] per direction
// as "x0 x1 y0 y1 z0 z1".
func formatExtent(begin, size [3]int) string {
	parts := make([]string, 0, 6)
	for d := range 3 {
		parts = append(parts, strconv.Itoa(begin[d]), strconv.Itoa(begin[d]+size[d]))
	}
	return strings.Join(parts, " ")
}

func parseExtent(s string) (begin, size [3]int, err error) {
	fields := strings.Fields(s)
	if len(fields) != 6 {
		return begin, size, fmt.Errorf("%w: extent %q needs 6 values", ErrIO, s)
	}
	for d := range 3 {
		b, err0 := strconv.Atoi(fields[2*d])
		e, err1 := strconv.Atoi(fields[2*d+1])
		if err0 != nil || err1 != nil || e < b {
			return begin, size, fmt.Errorf("%w: invalid extent %q", ErrIO, s)
		}
		begin[d], size[d] = b, e-b
	}
	return begin, size, nil
}

func formatVector(v [3]float64) string {
	return strconv.FormatFloat(v[0], 'g', -1, 64) + " " +
		strconv.FormatFloat(v[1], 'g', -1, 64) + " " +
		strconv.FormatFloat(v[2], 'g', -1, 64)
}

func parseVector(s string, n int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("%w: %q needs %d values", ErrIO, s, n)
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrIO, f)
		}
		out[i] = v
	}
	return out, nil
}
