// Diagnostic tool for inspecting and converting VTK grid files
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/robert-malhotra/go-gridformat/gridformat"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/vtkinspect/main.go <file.vtu|file.pvtu|file.vti|file.pvti|file.pvd> [out.vtu [options.yaml]]")
		os.Exit(1)
	}

	filename := os.Args[1]
	fmt.Printf("=== Analyzing %s ===\n\n", filename)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	r, err := gridformat.Open(filename, gridformat.WithReaderLogger(logger))
	if err != nil {
		fmt.Printf("ERROR: Failed to open file: %v\n", err)
		os.Exit(1)
	}
	defer r.Close()

	if p, ok := r.(*gridformat.PVDReader); ok {
		fmt.Printf("Steps: %d\n", p.NumberOfSteps())
		for i := range p.NumberOfSteps() {
			t, _ := p.TimeAt(i)
			file, _ := p.StepFilename(i)
			fmt.Printf("  t=%g: %s\n", t, file)
		}
		fmt.Println("Showing the first step")
	}
	if p, ok := r.(interface{ Pieces() []gridformat.Piece }); ok {
		fmt.Printf("Pieces: %d\n", len(p.Pieces()))
		for _, piece := range p.Pieces() {
			fmt.Printf("  %s: %d points, %d cells\n", piece.Path, piece.NumberOfPoints, piece.NumberOfCells)
		}
	}
	fmt.Printf("Points: %d\n", r.NumberOfPoints())
	fmt.Printf("Cells: %d\n", r.NumberOfCells())
	printCellTypes(r)
	fmt.Println()

	printFields("Point field", r.PointFieldNames(), r.PointField)
	printFields("Cell field", r.CellFieldNames(), r.CellField)
	printFields("Meta data", r.MetaDataNames(), r.MetaData)

	if len(os.Args) > 2 {
		if err := convert(r, os.Args[2], os.Args[3:], logger); err != nil {
			fmt.Printf("ERROR: Conversion failed: %v\n", err)
			os.Exit(1)
		}
	}
}

func printCellTypes(r gridformat.GridReader) {
	counts := make(map[gridformat.CellType]int)
	err := r.VisitCells(func(t gridformat.CellType, _ []int) error {
		counts[t]++
		return nil
	})
	if err != nil {
		fmt.Printf("ERROR reading cells: %v\n", err)
		return
	}
	for t, n := range counts {
		fmt.Printf("  %s: %d\n", t, n)
	}
}

func printFields(kind string, names []string, get func(string) (gridformat.Field, error)) {
	for _, name := range names {
		f, err := get(name)
		if err != nil {
			fmt.Printf("%s %q: ERROR %v\n", kind, name, err)
			continue
		}
		fmt.Printf("%s %q:\n", kind, name)
		fmt.Printf("  Precision: %s\n", f.Precision())
		fmt.Printf("  Layout: %v\n", f.Layout())
		if s, err := gridformat.StringValue(f); err == nil {
			fmt.Printf("  Value: %q\n", s)
		}
	}
}

// convert rewrites everything read by r into a single .vtu file.
func convert(r gridformat.GridReader, out string, args []string, logger *slog.Logger) error {
	opts := []gridformat.WriterOption{gridformat.WithLogger(logger)}
	if len(args) > 0 {
		loaded, err := gridformat.LoadOptions(args[0])
		if err != nil {
			return err
		}
		opts = append(opts, loaded...)
	}

	grid, err := r.Grid()
	if err != nil {
		return err
	}
	w, err := gridformat.NewVTUWriter(grid, opts...)
	if err != nil {
		return err
	}
	for _, name := range r.PointFieldNames() {
		f, err := r.PointField(name)
		if err != nil {
			return err
		}
		if err := w.SetPointField(name, f); err != nil {
			return err
		}
	}
	for _, name := range r.CellFieldNames() {
		f, err := r.CellField(name)
		if err != nil {
			return err
		}
		if err := w.SetCellField(name, f); err != nil {
			return err
		}
	}
	for _, name := range r.MetaDataNames() {
		f, err := r.MetaData(name)
		if err != nil {
			return err
		}
		if err := w.SetMetaData(name, f); err != nil {
			return err
		}
	}

	path, err := w.Write(out)
	if err != nil {
		return err
	}
	fmt.Printf("\nWrote %s\n", path)
	return nil
}
