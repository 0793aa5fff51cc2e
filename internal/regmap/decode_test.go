package regmap

import (
	"errors"
	"math"
	"testing"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/types"
)

func floatSpec(name string) RegisterSpec {
	return RegisterSpec{Name: name, Address: 3026, Length: 2, Encoding: Float32, Bank: Input}
}

func asciiSpec(name string, length uint16) RegisterSpec {
	return RegisterSpec{Name: name, Address: 30, Length: length, Encoding: ASCIIText, Bank: Holding}
}

func TestDecodeFloat32RoundTrip(t *testing.T) {
	for _, want := range []float32{0, 1, -1, 230.5, 180.0, 0.0001, -99999.25, math.MaxFloat32} {
		words := EncodeFloat32(want)
		v, err := Decode(floatSpec("voltage"), words)
		if err != nil {
			t.Fatalf("Decode(%v) returned error: %v", want, err)
		}
		if v.Kind != types.KindNumber {
			t.Fatalf("Decode(%v) kind = %v, want number", want, v.Kind)
		}
		if float32(v.Num) != want {
			t.Errorf("Decode(EncodeFloat32(%v)) = %v", want, v.Num)
		}
	}
}

func TestDecodeFloat32WordOrder(t *testing.T) {
	// 230.5 = 0x43668000: high word first.
	v, err := Decode(floatSpec("voltage"), []uint16{0x4366, 0x8000})
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if v.Num != 230.5 {
		t.Errorf("Decode = %v, want 230.5", v.Num)
	}
}

func TestDecodeFloat32BadLength(t *testing.T) {
	for _, words := range [][]uint16{nil, {0x4366}, {0x4366, 0x8000, 0}} {
		_, err := Decode(floatSpec("voltage"), words)
		if !errors.Is(err, ErrBadLength) {
			t.Errorf("Decode(%d words) error = %v, want ErrBadLength", len(words), err)
		}
	}
}

func TestDecodeFloat32NonFinite(t *testing.T) {
	nan := EncodeFloat32(float32(math.NaN()))
	if _, err := Decode(floatSpec("voltage"), nan); !errors.Is(err, ErrBadEncoding) {
		t.Errorf("Decode(NaN) error = %v, want ErrBadEncoding", err)
	}
	inf := EncodeFloat32(float32(math.Inf(1)))
	if _, err := Decode(floatSpec("voltage"), inf); !errors.Is(err, ErrBadEncoding) {
		t.Errorf("Decode(+Inf) error = %v, want ErrBadEncoding", err)
	}
}

func TestDecodeASCII(t *testing.T) {
	// Two words 0x5032 0x3130 decode to "P210".
	v, err := Decode(asciiSpec("name", 2), []uint16{0x5032, 0x3130})
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if v.Kind != types.KindText || v.Text != "P210" {
		t.Errorf("Decode = %q, want \"P210\"", v.Text)
	}
}

func TestDecodeASCIITrimsTrailingNULs(t *testing.T) {
	v, err := Decode(asciiSpec("name", 4), []uint16{0x5032, 0x3130, 0x0000, 0x0000})
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if v.Text != "P210" {
		t.Errorf("Decode = %q, want \"P210\"", v.Text)
	}
}

func TestDecodeASCIIBadLength(t *testing.T) {
	for _, words := range [][]uint16{nil, {0x5032}, {0x5032, 0x3130, 0x0000}} {
		_, err := Decode(asciiSpec("name", 2), words)
		if !errors.Is(err, ErrBadLength) {
			t.Errorf("Decode(%d words) error = %v, want ErrBadLength", len(words), err)
		}
	}
}

func TestSpecValidate(t *testing.T) {
	cases := []struct {
		spec RegisterSpec
		ok   bool
	}{
		{floatSpec("v"), true},
		{RegisterSpec{Name: "v", Length: 1, Encoding: Float32}, false},
		{asciiSpec("n", 2), true},
		{asciiSpec("n", 6), true},
		{asciiSpec("n", 0), false},
		{asciiSpec("n", 3), false},
	}
	for _, c := range cases {
		err := c.spec.Validate()
		if c.ok && err != nil {
			t.Errorf("Validate(%+v) = %v, want nil", c.spec, err)
		}
		if !c.ok && err == nil {
			t.Errorf("Validate(%+v) = nil, want error", c.spec)
		}
	}
}

func TestMapBankPartition(t *testing.T) {
	m, err := NewMap([]RegisterSpec{
		floatSpec("voltage"),
		{Name: "current", Address: 3028, Length: 2, Encoding: Float32, Bank: Input},
		asciiSpec("name", 2),
	})
	if err != nil {
		t.Fatalf("NewMap returned error: %v", err)
	}
	if got := len(m.Bank(Input)); got != 2 {
		t.Errorf("input bank has %d specs, want 2", got)
	}
	if got := len(m.Bank(Holding)); got != 1 {
		t.Errorf("holding bank has %d specs, want 1", got)
	}
	if _, ok := m.Lookup("voltage"); !ok {
		t.Error("Lookup(voltage) not found")
	}
}

func TestMapRejectsDuplicates(t *testing.T) {
	_, err := NewMap([]RegisterSpec{floatSpec("voltage"), floatSpec("voltage")})
	if err == nil {
		t.Fatal("NewMap accepted duplicate names")
	}
}
