package gridformat

import (
	"fmt"
	"slices"
)

// CellType identifies the shape of a cell.
type CellType uint8

// Supported cell types. Pixels and voxels use the axis-aligned corner
// order of VTK; Lagrange cells carry their higher-order nodes after the
// corners.
const (
	Vertex CellType = iota + 1
	Segment
	Triangle
	Quadrilateral
	Polygon
	Tetrahedron
	Hexahedron
	Pixel
	Voxel
	LagrangeSegment
	LagrangeTriangle
	LagrangeQuadrilateral
	LagrangeTetrahedron
	LagrangeHexahedron
)

var cellTypeInfo = map[CellType]struct {
	name string
	vtk  uint8
}{
	Vertex:                {"vertex", 1},
	Segment:               {"segment", 3},
	Triangle:              {"triangle", 5},
	Polygon:               {"polygon", 7},
	Pixel:                 {"pixel", 8},
	Quadrilateral:         {"quadrilateral", 9},
	Tetrahedron:           {"tetrahedron", 10},
	Voxel:                 {"voxel", 11},
	Hexahedron:            {"hexahedron", 12},
	LagrangeSegment:       {"lagrange_segment", 68},
	LagrangeTriangle:      {"lagrange_triangle", 69},
	LagrangeQuadrilateral: {"lagrange_quadrilateral", 70},
	LagrangeTetrahedron:   {"lagrange_tetrahedron", 71},
	LagrangeHexahedron:    {"lagrange_hexahedron", 72},
}

func (c CellType) String() string {
	if info, ok := cellTypeInfo[c]; ok {
		return info.name
	}
	return fmt.Sprintf("CellType(%d)", uint8(c))
}

// VTKNumber returns the VTK cell type identifier, or 0 for unknown types.
func (c CellType) VTKNumber() uint8 {
	return cellTypeInfo[c].vtk
}

// CellTypeFromVTK maps a VTK cell type identifier to a CellType.
func CellTypeFromVTK(n uint8) (CellType, error) {
	for c, info := range cellTypeInfo {
		if info.vtk == n {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unsupported VTK cell type %d", ErrValue, n)
}

// UnstructuredGrid is implemented by meshes that can be written as
// unstructured grids. Points and cells are addressed by index.
type UnstructuredGrid interface {
	NumberOfPoints() int
	NumberOfCells() int
	PointCoordinates(i int) [3]float64
	CellType(i int) CellType
	// CellCorners appends the point indices of cell i to buf.
	CellCorners(i int, buf []int) []int
}

// UnstructuredGridData is a slice-backed UnstructuredGrid. Cell i uses
// the point indices Connectivity[Offsets[i-1]:Offsets[i]], with an
// implicit leading offset of zero.
type UnstructuredGridData struct {
	Points       [][3]float64
	Types        []CellType
	Connectivity []int
	Offsets      []int
}

// AddCell appends a cell with the given corners.
func (g *UnstructuredGridData) AddCell(t CellType, corners ...int) {
	g.Types = append(g.Types, t)
	g.Connectivity = append(g.Connectivity, corners...)
	g.Offsets = append(g.Offsets, len(g.Connectivity))
}

func (g *UnstructuredGridData) NumberOfPoints() int               { return len(g.Points) }
func (g *UnstructuredGridData) NumberOfCells() int                { return len(g.Types) }
func (g *UnstructuredGridData) PointCoordinates(i int) [3]float64 { return g.Points[i] }
func (g *UnstructuredGridData) CellType(i int) CellType           { return g.Types[i] }

func (g *UnstructuredGridData) CellCorners(i int, buf []int) []int {
	begin := 0
	if i > 0 {
		begin = g.Offsets[i-1]
	}
	return append(buf, g.Connectivity[begin:g.Offsets[i]]...)
}

// Validate checks that cells reference existing points and that offsets
// are consistent.
func (g *UnstructuredGridData) Validate() error {
	if len(g.Offsets) != len(g.Types) {
		return fmt.Errorf("%w: %d offsets for %d cells", ErrSize, len(g.Offsets), len(g.Types))
	}
	if !slices.IsSorted(g.Offsets) {
		return fmt.Errorf("%w: offsets are not ascending", ErrValue)
	}
	if n := len(g.Offsets); n > 0 && g.Offsets[n-1] != len(g.Connectivity) {
		return fmt.Errorf("%w: offsets end at %d, connectivity has %d entries", ErrSize, g.Offsets[n-1], len(g.Connectivity))
	}
	for _, p := range g.Connectivity {
		if p < 0 || p >= len(g.Points) {
			return fmt.Errorf("%w: point index %d out of range", ErrValue, p)
		}
	}
	return nil
}

// Copy returns a deep copy of any grid as UnstructuredGridData.
func Copy(grid UnstructuredGrid) *UnstructuredGridData {
	g := &UnstructuredGridData{
		Points:  make([][3]float64, grid.NumberOfPoints()),
		Types:   make([]CellType, grid.NumberOfCells()),
		Offsets: make([]int, grid.NumberOfCells()),
	}
	for i := range g.Points {
		g.Points[i] = grid.PointCoordinates(i)
	}
	for i := range g.Types {
		g.Types[i] = grid.CellType(i)
		g.Connectivity = grid.CellCorners(i, g.Connectivity)
		g.Offsets[i] = len(g.Connectivity)
	}
	return g
}
