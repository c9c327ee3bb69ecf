package gridformat

import (
	"slices"
	"strconv"
	"strings"
)

// Layout is the shape of field data. The first extent usually counts
// points or cells, further extents describe vector and tensor components.
type Layout struct {
	extents []int
}

// NewLayout returns a layout with the given extents. Negative extents are
// treated as zero.
func NewLayout(extents ...int) Layout {
	l := Layout{extents: make([]int, len(extents))}
	for i, e := range extents {
		l.extents[i] = max(e, 0)
	}
	return l
}

// Dimension returns the number of extents.
func (l Layout) Dimension() int {
	return len(l.extents)
}

// Extent returns the i-th extent.
func (l Layout) Extent(i int) int {
	return l.extents[i]
}

// Extents returns a copy of all extents.
func (l Layout) Extents() []int {
	return slices.Clone(l.extents)
}

// NumberOfEntries returns the product of all extents. A zero-dimensional
// layout describes a single value.
func (l Layout) NumberOfEntries() int {
	return l.NumberOfEntriesFrom(0)
}

// NumberOfEntriesFrom returns the product of the extents starting at
// dimension codim.
func (l Layout) NumberOfEntriesFrom(codim int) int {
	n := 1
	for _, e := range l.extents[min(codim, len(l.extents)):] {
		n *= e
	}
	return n
}

// SubLayout returns the layout formed by the extents starting at
// dimension codim.
func (l Layout) SubLayout(codim int) Layout {
	return NewLayout(l.extents[min(codim, len(l.extents)):]...)
}

// Equal reports whether both layouts have the same extents.
func (l Layout) Equal(o Layout) bool {
	return slices.Equal(l.extents, o.extents)
}

func (l Layout) String() string {
	parts := make([]string, len(l.extents))
	for i, e := range l.extents {
		parts[i] = strconv.Itoa(e)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
