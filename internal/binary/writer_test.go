package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestWriterWriteHeader(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		value    uint64
		expected []byte
	}{
		{"uint32 LE", Config{ByteOrder: binary.LittleEndian, HeaderSize: 4}, 0x01020304, []byte{0x04, 0x03, 0x02, 0x01}},
		{"uint32 BE", Config{ByteOrder: binary.BigEndian, HeaderSize: 4}, 0x01020304, []byte{0x01, 0x02, 0x03, 0x04}},
		{"uint64 LE", Config{ByteOrder: binary.LittleEndian, HeaderSize: 8}, 1, []byte{1, 0, 0, 0, 0, 0, 0, 0}},
		{"uint8", Config{ByteOrder: binary.LittleEndian, HeaderSize: 1}, 0xAB, []byte{0xAB}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf, tt.cfg)
			if err := w.WriteHeader(tt.value); err != nil {
				t.Fatalf("WriteHeader failed: %v", err)
			}
			if !bytes.Equal(buf.Bytes(), tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, buf.Bytes())
			}
			if w.Pos() != int64(len(tt.expected)) {
				t.Errorf("expected position %d, got %d", len(tt.expected), w.Pos())
			}
		})
	}
}

func TestWriterOverflow(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Config{HeaderSize: 4})
	err := w.WriteHeader(1 << 32)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected nothing written, got %d bytes", buf.Len())
	}
}

func TestWriterWriteBytes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Config{HeaderSize: 8})

	if err := w.WriteHeader(5); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}
	if err := w.WriteBytes([]byte("hello")); err != nil {
		t.Fatalf("WriteBytes failed: %v", err)
	}
	if err := w.WriteBytes(nil); err != nil {
		t.Fatalf("WriteBytes(nil) failed: %v", err)
	}
	if w.Pos() != 13 {
		t.Errorf("expected position 13, got %d", w.Pos())
	}
	if got := buf.Bytes()[8:]; string(got) != "hello" {
		t.Errorf("expected payload %q, got %q", "hello", got)
	}
}

func TestAppendUintN(t *testing.T) {
	tests := []struct {
		order binary.ByteOrder
		v     uint64
		n     int
		want  []byte
	}{
		{binary.LittleEndian, 0x0102, 2, []byte{0x02, 0x01}},
		{binary.BigEndian, 0x0102, 2, []byte{0x01, 0x02}},
		{binary.BigEndian, 0x01020304, 4, []byte{1, 2, 3, 4}},
		{binary.LittleEndian, 0x0102030405060708, 8, []byte{8, 7, 6, 5, 4, 3, 2, 1}},
		{nil, 0x01020304, 4, []byte{4, 3, 2, 1}},
		{nil, 0xff, 1, []byte{0xff}},
	}
	for _, tt := range tests {
		got, err := AppendUintN([]byte{0xaa}, tt.order, tt.v, tt.n)
		if err != nil {
			t.Fatalf("AppendUintN(%v, %#x, %d) failed: %v", tt.order, tt.v, tt.n, err)
		}
		if want := append([]byte{0xaa}, tt.want...); !bytes.Equal(got, want) {
			t.Errorf("AppendUintN(%v, %#x, %d) = %x, want %x", tt.order, tt.v, tt.n, got, want)
		}
	}
	if _, err := AppendUintN(nil, nil, 1<<16, 2); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestAppendUintNInvalidSize(t *testing.T) {
	if _, err := AppendUintN(nil, binary.LittleEndian, 1, 3); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{HeaderSize: 8}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (Config{HeaderSize: 6}).Validate(); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}
