package gridformat

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	gbinary "github.com/robert-malhotra/go-gridformat/internal/binary"
	"github.com/robert-malhotra/go-gridformat/internal/compress"
	"github.com/robert-malhotra/go-gridformat/internal/dtype"
)

func writerConfigs() map[string][]WriterOption {
	return map[string][]WriterOption{
		"automatic":            nil,
		"ascii":                {WithEncoder(EncoderASCII)},
		"ascii custom":         {WithEncoder(EncoderASCII), WithASCIIFormat(3, "\t", "    ")},
		"base64 inlined":       {WithEncoder(EncoderBase64), WithDataFormat(DataFormatInlined), WithCompressor(CompressorNone)},
		"base64 inlined lz4":   {WithDataFormat(DataFormatInlined), WithCompressor(CompressorLZ4), WithHeaderPrecision(UInt32)},
		"raw appended":         {WithEncoder(EncoderRaw), WithCompressor(CompressorNone)},
		"raw appended lzma":    {WithEncoder(EncoderRaw), WithCompressor(CompressorLZMA), WithBlockSize(64)},
		"base64 appended zlib": {WithCompressor(CompressorZlib), WithCompressionLevel(9), WithBlockSize(100), WithHeaderPrecision(UInt32)},
		"float32 coordinates":  {WithCoordinatePrecision(Float32), WithCompressor(CompressorLZ4)},
	}
}

func attachFields(t *testing.T, w interface {
	SetPointField(string, Field) error
	SetCellField(string, Field) error
	SetMetaData(string, any) error
}, g *UnstructuredGridData) {
	t.Helper()
	vel, err := NewPointField(g, func(i int) [2]float64 { return [2]float64{g.Points[i][0], 2 * g.Points[i][1]} })
	if err != nil {
		t.Fatalf("NewPointField failed: %v", err)
	}
	temp, err := NewPointField(g, func(i int) float32 { return float32(i) + 0.5 })
	if err != nil {
		t.Fatalf("NewPointField failed: %v", err)
	}
	ids, err := NewCellField(g, func(i int) int { return 100 + i }, WithPrecision(Int32))
	if err != nil {
		t.Fatalf("NewCellField failed: %v", err)
	}
	for name, f := range map[string]Field{"velocity": vel, "temperature": temp} {
		if err := w.SetPointField(name, f); err != nil {
			t.Fatalf("SetPointField failed: %v", err)
		}
	}
	if err := w.SetCellField("id", ids); err != nil {
		t.Fatalf("SetCellField failed: %v", err)
	}
	if err := w.SetMetaData("title", "test grid"); err != nil {
		t.Fatalf("SetMetaData failed: %v", err)
	}
	if err := w.SetMetaData("bounds", [][2]float64{{0, 2}, {0, 1}}); err != nil {
		t.Fatalf("SetMetaData failed: %v", err)
	}
}

func checkGridData(t *testing.T, r GridReader, g *UnstructuredGridData, pointOffset int) {
	t.Helper()
	if r.NumberOfPoints() != g.NumberOfPoints() || r.NumberOfCells() != g.NumberOfCells() {
		t.Fatalf("read %d points and %d cells, want %d and %d", r.NumberOfPoints(), r.NumberOfCells(), g.NumberOfPoints(), g.NumberOfCells())
	}
	got, err := r.Grid()
	if err != nil {
		t.Fatalf("Grid failed: %v", err)
	}
	if !reflect.DeepEqual(got.Points, g.Points) {
		t.Errorf("points differ: %v", got.Points)
	}
	if !reflect.DeepEqual(got.Types, g.Types) || !reflect.DeepEqual(got.Offsets, g.Offsets) {
		t.Errorf("cells differ: %v %v", got.Types, got.Offsets)
	}
	for i, c := range g.Connectivity {
		if got.Connectivity[i] != c+pointOffset {
			t.Errorf("connectivity %d: got %d, want %d", i, got.Connectivity[i], c+pointOffset)
		}
	}
}

func TestVTURoundTrip(t *testing.T) {
	for name, opts := range writerConfigs() {
		t.Run(name, func(t *testing.T) {
			g := testGrid()
			w, err := NewVTUWriter(g, opts...)
			if err != nil {
				t.Fatalf("NewVTUWriter failed: %v", err)
			}
			attachFields(t, w, g)

			path, err := w.Write(filepath.Join(t.TempDir(), "grid"))
			if err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if !strings.HasSuffix(path, "grid.vtu") {
				t.Errorf("unexpected path %q", path)
			}
			if len(w.PointFieldNames())+len(w.CellFieldNames())+len(w.MetaDataNames()) != 0 {
				t.Error("fields must be released after Write")
			}

			r, err := OpenVTU(path)
			if err != nil {
				t.Fatalf("OpenVTU failed: %v", err)
			}
			defer r.Close()
			checkGridData(t, r, g, 0)

			if names := r.PointFieldNames(); !reflect.DeepEqual(names, []string{"temperature", "velocity"}) {
				t.Errorf("unexpected point fields %v", names)
			}
			vel, err := r.PointField("velocity")
			if err != nil {
				t.Fatalf("PointField failed: %v", err)
			}
			if !vel.Layout().Equal(NewLayout(6, 3)) {
				t.Errorf("velocity layout %v, want (6, 3)", vel.Layout())
			}
			var vecs [][3]float64
			if err := ExportTo(vel, &vecs); err != nil {
				t.Fatalf("ExportTo failed: %v", err)
			}
			if vecs[5] != [3]float64{2, 2, 0} {
				t.Errorf("velocity of point 5 = %v", vecs[5])
			}

			temp, err := r.PointField("temperature")
			if err != nil {
				t.Fatalf("PointField failed: %v", err)
			}
			if temp.Precision() != Float32 {
				t.Errorf("temperature precision %v", temp.Precision())
			}
			tv, _ := FieldValues(temp)
			if tv[3] != 3.5 {
				t.Errorf("temperature of point 3 = %v", tv[3])
			}

			ids, err := r.CellField("id")
			if err != nil {
				t.Fatalf("CellField failed: %v", err)
			}
			iv, _ := Export[int](ids)
			if !reflect.DeepEqual(iv, []int{100, 101, 102}) || ids.Precision() != Int32 {
				t.Errorf("unexpected ids %v (%v)", iv, ids.Precision())
			}

			title, err := r.MetaData("title")
			if err != nil {
				t.Fatalf("MetaData failed: %v", err)
			}
			if s, err := StringValue(title); err != nil || s != "test grid" {
				t.Errorf("title = %q, %v", s, err)
			}
			bounds, err := r.MetaData("bounds")
			if err != nil {
				t.Fatalf("MetaData failed: %v", err)
			}
			if !bounds.Layout().Equal(NewLayout(2, 2)) {
				t.Errorf("bounds layout %v", bounds.Layout())
			}
		})
	}
}

func TestVTUHeader(t *testing.T) {
	g := testGrid()
	w, err := NewVTUWriter(g, WithEncoder(EncoderRaw), WithCompressor(CompressorZlib), WithHeaderPrecision(UInt32))
	if err != nil {
		t.Fatalf("NewVTUWriter failed: %v", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`<VTKFile type="UnstructuredGrid" version="2.0" byte_order="LittleEndian" header_type="UInt32" compressor="vtkZLibDataCompressor">`,
		`<Piece NumberOfPoints="6" NumberOfCells="3">`,
		`<DataArray type="UInt32" Name="connectivity" NumberOfComponents="1" format="appended" offset="`,
		`<DataArray type="UInt8" Name="types"`,
		`<AppendedData encoding="raw">`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %s", want)
		}
	}
	if strings.HasPrefix(out, "<?xml") {
		t.Error("raw appended data must not carry an XML declaration")
	}
}

func TestWriterOptionErrors(t *testing.T) {
	g := testGrid()
	tests := []struct {
		name string
		opts []WriterOption
		kind error
	}{
		{"raw inlined", []WriterOption{WithEncoder(EncoderRaw), WithDataFormat(DataFormatInlined)}, ErrInvalidState},
		{"ascii appended", []WriterOption{WithEncoder(EncoderASCII), WithDataFormat(DataFormatAppended)}, ErrInvalidState},
		{"header precision", []WriterOption{WithHeaderPrecision(Int16)}, ErrValue},
		{"compressor", []WriterOption{WithCompressor("brotli")}, ErrValue},
		{"encoder", []WriterOption{WithEncoder("hex")}, ErrValue},
	}
	for _, tt := range tests {
		if _, err := NewVTUWriter(g, tt.opts...); !errors.Is(err, tt.kind) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.kind, err)
		}
	}
	if _, err := NewVTUWriter(nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("nil grid: expected ErrInvalidState, got %v", err)
	}
}

func TestASCIIWithCompressorWarns(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	w, err := NewVTUWriter(testGrid(), WithEncoder(EncoderASCII), WithCompressor(CompressorZlib), WithLogger(logger))
	if err != nil {
		t.Fatalf("NewVTUWriter failed: %v", err)
	}
	if !strings.Contains(logs.String(), "never compressed") {
		t.Errorf("expected a warning, got %q", logs.String())
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if strings.Contains(buf.String(), "compressor=") {
		t.Error("ascii output must not name a compressor")
	}
}

func TestWriteFieldSizeMismatch(t *testing.T) {
	g := testGrid()
	w, _ := NewVTUWriter(g)
	f, _ := NewRangeField([]float64{1, 2})
	if err := w.SetPointField("short", f); err != nil {
		t.Fatalf("SetPointField failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "bad.vtu")
	if _, err := w.Write(path); !errors.Is(err, ErrSize) {
		t.Errorf("expected ErrSize, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("a failed write must not leave a file behind")
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 0 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestWriterRegistry(t *testing.T) {
	w, _ := NewVTUWriter(testGrid())
	f := NewScalarField(1.0)
	if err := w.SetPointField("", f); !errors.Is(err, ErrValue) {
		t.Errorf("expected ErrValue for empty name, got %v", err)
	}
	_ = w.SetCellField("a", f)
	_ = w.SetCellField("a", f)
	if names := w.CellFieldNames(); len(names) != 1 {
		t.Errorf("expected one field, got %v", names)
	}
	if _, err := w.RemoveCellField("a"); err != nil {
		t.Errorf("RemoveCellField failed: %v", err)
	}
	if _, err := w.RemoveCellField("a"); !errors.Is(err, ErrValue) {
		t.Errorf("expected ErrValue, got %v", err)
	}
	if err := w.SetMetaData("m", struct{}{}); !errors.Is(err, ErrType) {
		t.Errorf("expected ErrType, got %v", err)
	}
}

func TestReaderErrors(t *testing.T) {
	dir := t.TempDir()
	w, _ := NewVTUWriter(testGrid())
	path, err := w.Write(filepath.Join(dir, "grid.vtu"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	r, err := OpenVTU(path)
	if err != nil {
		t.Fatalf("OpenVTU failed: %v", err)
	}
	if _, err := r.PointField("missing"); !errors.Is(err, ErrValue) {
		t.Errorf("expected ErrValue, got %v", err)
	}
	r.Close()
	if _, err := r.Points(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	if err := r.VisitCells(func(CellType, []int) error { return nil }); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	if r.NumberOfPoints() != 0 {
		t.Error("closed reader reports points")
	}

	if _, err := OpenVTU(filepath.Join(dir, "missing.vtu")); !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
	bad := filepath.Join(dir, "bad.vtu")
	if err := os.WriteFile(bad, []byte("<VTKFile type=\"PolyData\"/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenVTU(bad); !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
	if _, err := Open(filepath.Join(dir, "grid.vtk")); !errors.Is(err, ErrValue) {
		t.Errorf("expected ErrValue, got %v", err)
	}
	gr, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	gr.Close()
}

func TestCellTypes(t *testing.T) {
	numbers := map[CellType]uint8{
		Vertex: 1, Segment: 3, Triangle: 5, Polygon: 7, Pixel: 8,
		Quadrilateral: 9, Tetrahedron: 10, Voxel: 11, Hexahedron: 12,
		LagrangeSegment: 68, LagrangeTriangle: 69, LagrangeQuadrilateral: 70,
		LagrangeTetrahedron: 71, LagrangeHexahedron: 72,
	}
	for c, n := range numbers {
		if c.VTKNumber() != n {
			t.Errorf("%v: expected VTK number %d, got %d", c, n, c.VTKNumber())
		}
		back, err := CellTypeFromVTK(n)
		if err != nil || back != c {
			t.Errorf("%v: round trip gave %v, %v", c, back, err)
		}
	}
	if _, err := CellTypeFromVTK(22); !errors.Is(err, ErrValue) {
		t.Errorf("expected ErrValue, got %v", err)
	}
	if err := testGrid().Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
	g := testGrid()
	g.Connectivity[0] = 42
	if err := g.Validate(); !errors.Is(err, ErrValue) {
		t.Errorf("expected ErrValue, got %v", err)
	}
	if c := Copy(testGrid()); !reflect.DeepEqual(c, testGrid()) {
		t.Errorf("Copy differs: %+v", c)
	}
}

func TestPixelVoxelLagrangeRoundTrip(t *testing.T) {
	g := &UnstructuredGridData{}
	for z := range 2 {
		for y := range 2 {
			for x := range 3 {
				g.Points = append(g.Points, [3]float64{float64(x), float64(y), float64(z)})
			}
		}
	}
	g.AddCell(Pixel, 0, 1, 3, 4)
	g.AddCell(Voxel, 0, 1, 3, 4, 6, 7, 9, 10)
	g.AddCell(LagrangeSegment, 0, 2, 1)
	g.AddCell(LagrangeQuadrilateral, 0, 2, 5, 3, 1, 4, 4, 3, 4)

	path := filepath.Join(t.TempDir(), "cells.vtu")
	w, err := NewVTUWriter(g)
	if err != nil {
		t.Fatalf("NewVTUWriter failed: %v", err)
	}
	if _, err := w.Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	r, err := OpenVTU(path)
	if err != nil {
		t.Fatalf("OpenVTU failed: %v", err)
	}
	defer r.Close()
	got, err := r.Grid()
	if err != nil {
		t.Fatalf("Grid failed: %v", err)
	}
	if !reflect.DeepEqual(got.Types, g.Types) {
		t.Errorf("expected types %v, got %v", g.Types, got.Types)
	}
	if !reflect.DeepEqual(got.Connectivity, g.Connectivity) {
		t.Errorf("expected connectivity %v, got %v", g.Connectivity, got.Connectivity)
	}
}

// writeAppendedVTU writes a single-point file whose Points array is the
// given raw appended zlib payload.
func writeAppendedVTU(t *testing.T, payload []byte) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(`<VTKFile type="UnstructuredGrid" version="2.0" byte_order="LittleEndian" header_type="UInt64" compressor="vtkZLibDataCompressor">
  <UnstructuredGrid>
    <Piece NumberOfPoints="1" NumberOfCells="0">
      <Points>
        <DataArray type="Float64" Name="Points" NumberOfComponents="3" format="appended" offset="0"/>
      </Points>
    </Piece>
  </UnstructuredGrid>
  <AppendedData encoding="raw">
_`)
	buf.Write(payload)
	buf.WriteString("\n  </AppendedData>\n</VTKFile>\n")
	path := filepath.Join(t.TempDir(), "corrupt.vtu")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func blockHeader(values ...uint64) []byte {
	var out []byte
	for _, v := range values {
		out, _ = gbinary.AppendUintN(out, nil, v, 8)
	}
	return out
}

func TestCorruptBlockHeader(t *testing.T) {
	path := writeAppendedVTU(t, append(blockHeader(2, 1<<62, 0, 1, 1), 0, 0))
	r, err := OpenVTU(path)
	if err != nil {
		t.Fatalf("OpenVTU failed: %v", err)
	}
	if _, err := r.Points(); !errors.Is(err, ErrSize) {
		t.Errorf("expected ErrSize, got %v", err)
	}
}

func TestShortCompressedBlock(t *testing.T) {
	coords := dtype.Encode(dtype.Float64, []float64{1, 2, 3})
	blocks, data, err := compress.Compress(compress.NewZlib(compress.DefaultLevel), coords, 0)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	// the header announces twice the bytes the block holds
	payload := append(blockHeader(1, 48, 0, uint64(blocks.CompressedSizes[0])), data...)
	r, err := OpenVTU(writeAppendedVTU(t, payload))
	if err != nil {
		t.Fatalf("OpenVTU failed: %v", err)
	}
	if _, err := r.Points(); !errors.Is(err, ErrSize) || errors.Is(err, ErrIO) {
		t.Errorf("expected ErrSize only, got %v", err)
	}

	// the intact header reads back
	payload = append(blockHeader(1, 24, 0, uint64(blocks.CompressedSizes[0])), data...)
	if r, err = OpenVTU(writeAppendedVTU(t, payload)); err != nil {
		t.Fatalf("OpenVTU failed: %v", err)
	}
	points, err := r.Points()
	if err != nil {
		t.Fatalf("Points failed: %v", err)
	}
	if got, _ := FieldValues(points); !reflect.DeepEqual(got, []float64{1, 2, 3}) {
		t.Errorf("unexpected points %v", got)
	}
}
