package dtype

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestKindNames(t *testing.T) {
	tests := []struct {
		kind Kind
		name string
		size int
	}{
		{Int8, "Int8", 1},
		{Int16, "Int16", 2},
		{Int32, "Int32", 4},
		{Int64, "Int64", 8},
		{Uint8, "UInt8", 1},
		{Uint16, "UInt16", 2},
		{Uint32, "UInt32", 4},
		{Uint64, "UInt64", 8},
		{Float32, "Float32", 4},
		{Float64, "Float64", 8},
		{Char, "String", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := tt.kind.Size(); got != tt.size {
				t.Errorf("Size() = %d, want %d", got, tt.size)
			}
			parsed, err := Parse(tt.name)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if parsed != tt.kind {
				t.Errorf("Parse(%q) = %v, want %v", tt.name, parsed, tt.kind)
			}
		})
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := Parse("Float16"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	if Invalid.Valid() {
		t.Error("Invalid should not be valid")
	}
}

func TestKindTraits(t *testing.T) {
	if !Int32.IsSigned() || !Int32.IsIntegral() || Int32.IsFloat() {
		t.Error("Int32 traits wrong")
	}
	if Uint16.IsSigned() || !Uint16.IsIntegral() {
		t.Error("Uint16 traits wrong")
	}
	if !Float64.IsSigned() || Float64.IsIntegral() || !Float64.IsFloat() {
		t.Error("Float64 traits wrong")
	}
	if !Char.IsIntegral() || Char.IsSigned() {
		t.Error("Char traits wrong")
	}
}

func TestKindFor(t *testing.T) {
	if KindFor[int]() != Int64 {
		t.Errorf("int maps to %v", KindFor[int]())
	}
	if KindFor[uint]() != Uint64 {
		t.Errorf("uint maps to %v", KindFor[uint]())
	}
	if KindFor[float32]() != Float32 {
		t.Errorf("float32 maps to %v", KindFor[float32]())
	}
	if KindFor[uint8]() != Uint8 {
		t.Errorf("uint8 maps to %v", KindFor[uint8]())
	}
	if _, ok := KindOf(reflect.String); ok {
		t.Error("string should not map to a kind")
	}
}

func TestEncodeConvert(t *testing.T) {
	buf := Encode(Float32, []int{1, -2, 3})
	if len(buf) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(buf))
	}
	got, err := Convert[float64](Float32, buf)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	want := []float64{1, -2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestEncodeTruncatesFloats(t *testing.T) {
	buf := Encode(Int32, []float64{1.9, -1.9, 0.2})
	got, err := Convert[int32](Int32, buf)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	want := []int32{1, -1, 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestEncodeLittleEndian(t *testing.T) {
	buf := Encode(Uint32, []uint32{0x01020304})
	want := []byte{4, 3, 2, 1}
	if !reflect.DeepEqual(buf, want) {
		t.Errorf("expected %v, got %v", want, buf)
	}
}

func TestSignedRoundTrip(t *testing.T) {
	for _, k := range []Kind{Int8, Int16, Int32, Int64} {
		buf := make([]byte, k.Size())
		PutInt(k, buf, -5)
		if got := Int(k, buf); got != -5 {
			t.Errorf("%v: expected -5, got %d", k, got)
		}
		if got := Float(k, buf); got != -5 {
			t.Errorf("%v: expected -5.0, got %v", k, got)
		}
	}
}

func TestConvertSizeMismatch(t *testing.T) {
	if _, err := Convert[int32](Int32, []byte{1, 2, 3}); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestCast(t *testing.T) {
	src := Encode(Float64, []float64{1.5, 2.5})
	out, err := Cast(Float64, Float32, src)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	got, _ := Convert[float32](Float32, out)
	if !reflect.DeepEqual(got, []float32{1.5, 2.5}) {
		t.Errorf("unexpected cast result %v", got)
	}
}

func TestPutValueAndSetValue(t *testing.T) {
	buf := make([]byte, 8)
	if err := PutValue(Float64, buf, reflect.ValueOf(int16(7))); err != nil {
		t.Fatalf("PutValue failed: %v", err)
	}
	var out uint8
	if err := SetValue(Float64, buf, reflect.ValueOf(&out).Elem()); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if out != 7 {
		t.Errorf("expected 7, got %d", out)
	}
	if err := PutValue(Float64, buf, reflect.ValueOf("x")); err == nil {
		t.Error("expected error encoding string")
	}
}

func TestSwapBytes(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	SwapBytes(Uint32, data)
	want := []byte{4, 3, 2, 1, 8, 7, 6, 5}
	if !reflect.DeepEqual(data, want) {
		t.Errorf("expected %v, got %v", want, data)
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		kind  Kind
		value float64
		text  string
	}{
		{Int32, -42, "-42"},
		{Uint8, 200, "200"},
		{Float64, 0.1, "0.1"},
		{Float32, 1.5, "1.5"},
		{Float64, 1e20, "1e+20"},
		{Char, 65, "65"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			buf := make([]byte, tt.kind.Size())
			PutFloat(tt.kind, buf, tt.value)
			if got := string(AppendText(nil, tt.kind, buf)); got != tt.text {
				t.Errorf("AppendText = %q, want %q", got, tt.text)
			}
			back := make([]byte, tt.kind.Size())
			if err := ParseText(tt.kind, tt.text, back); err != nil {
				t.Fatalf("ParseText failed: %v", err)
			}
			if !reflect.DeepEqual(buf, back) {
				t.Errorf("round trip mismatch: %v vs %v", buf, back)
			}
		})
	}
}

func TestParseTextErrors(t *testing.T) {
	buf := make([]byte, 8)
	if err := ParseText(Int8, "300", buf); err == nil {
		t.Error("expected range error for Int8")
	}
	if err := ParseText(Float64, "abc", buf); err == nil {
		t.Error("expected syntax error")
	}
	if err := ParseText(Char, "-1", buf); err != nil || buf[0] != 0xFF {
		t.Errorf("expected -1 to parse as 0xFF, got %v %x", err, buf[0])
	}
	if err := ParseText(Float64, "nan", buf); err != nil || !math.IsNaN(Float(Float64, buf)) {
		t.Errorf("expected NaN, got %v", err)
	}
}
