package gridformat

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseOptions(t *testing.T) {
	yml := `
encoder: raw
data_format: appended
compressor: lzma
header_precision: UInt32
coordinate_precision: Float32
block_size: 4096
compression_level: 6
`
	opts, err := ParseOptions([]byte(yml))
	if err != nil {
		t.Fatalf("ParseOptions failed: %v", err)
	}
	w, err := NewVTUWriter(testGrid(), opts...)
	if err != nil {
		t.Fatalf("NewVTUWriter failed: %v", err)
	}
	if w.opts.blockSize != 4096 || w.opts.level != 6 || w.opts.coordPrecision != Float32 {
		t.Errorf("unexpected options %+v", w.opts)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	for _, want := range []string{`header_type="UInt32"`, `compressor="vtkLZMADataCompressor"`, `<AppendedData encoding="raw">`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output lacks %s", want)
		}
	}
}

func TestParseOptionsErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":         "encoding: raw\n",
		"bad precision":       "header_precision: Float128\n",
		"float coordinates":   "coordinate_precision: Int32\n",
		"negative block size": "block_size: -1\n",
		"not a mapping":       "- raw\n",
		"wrong value type":    "block_size: large\n",
	}
	for name, yml := range tests {
		if _, err := ParseOptions([]byte(yml)); !errors.Is(err, ErrValue) {
			t.Errorf("%s: expected ErrValue, got %v", name, err)
		}
	}
}

func TestParseOptionsEmpty(t *testing.T) {
	opts, err := ParseOptions(nil)
	if err != nil {
		t.Fatalf("ParseOptions failed: %v", err)
	}
	w, err := NewVTUWriter(testGrid(), opts...)
	if err != nil {
		t.Fatalf("NewVTUWriter failed: %v", err)
	}
	if !w.settings.Appended || w.settings.Compressor.Name() != "zlib" {
		t.Errorf("expected appended zlib output by default, got %+v", w.settings)
	}
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "options.yaml")
	if err := os.WriteFile(path, []byte("encoder: ascii\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts, err := LoadOptions(path)
	if err != nil {
		t.Fatalf("LoadOptions failed: %v", err)
	}
	w, err := NewVTUWriter(testGrid(), opts...)
	if err != nil {
		t.Fatalf("NewVTUWriter failed: %v", err)
	}
	if !w.settings.ASCII || w.settings.Appended {
		t.Errorf("expected inlined ascii output, got %+v", w.settings)
	}
	if _, err := LoadOptions(filepath.Join(dir, "missing.yaml")); !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	if err := classify(nil); err != nil {
		t.Errorf("classify(nil) = %v", err)
	}
	wrapped := classify(ErrSize)
	if wrapped != ErrSize {
		t.Errorf("classified errors must pass through, got %v", wrapped)
	}
	if err := classify(os.ErrNotExist); !errors.Is(err, ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrIO wrapping the cause, got %v", err)
	}
}

func TestASCIIFormatSeparators(t *testing.T) {
	if _, err := NewVTUWriter(testGrid(), WithEncoder(EncoderASCII), WithASCIIFormat(4, ",", "")); !errors.Is(err, ErrValue) {
		t.Errorf("expected ErrValue for a comma delimiter, got %v", err)
	}
	if _, err := NewVTUWriter(testGrid(), WithEncoder(EncoderASCII), WithASCIIFormat(4, " ", "> ")); !errors.Is(err, ErrValue) {
		t.Errorf("expected ErrValue for a non-blank line prefix, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "tabs.vtu")
	w, err := NewVTUWriter(testGrid(), WithEncoder(EncoderASCII), WithASCIIFormat(2, "\t", "    "))
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
	if _, err := r.Points(); err != nil {
		t.Errorf("reading tab separated points failed: %v", err)
	}
}
