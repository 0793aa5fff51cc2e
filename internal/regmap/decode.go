package regmap

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/types"
)

var (
	// ErrBadLength means the raw word count does not match the spec.
	ErrBadLength = errors.New("decode: bad register length")
	// ErrBadEncoding means the bit pattern is not a representable value.
	ErrBadEncoding = errors.New("decode: bad encoding")
)

// Decode interprets raw register words according to the spec. Float32 takes
// two words, high word first, big-endian bytes within each word. ASCIIText
// maps each word to two characters, high byte first, and trims trailing NULs.
func Decode(spec RegisterSpec, words []uint16) (types.Value, error) {
	switch spec.Encoding {
	case Float32:
		return decodeFloat32(words)
	case ASCIIText:
		return decodeASCII(words)
	default:
		return types.Value{}, fmt.Errorf("%w: unknown encoding", ErrBadEncoding)
	}
}

func decodeFloat32(words []uint16) (types.Value, error) {
	if len(words) != 2 {
		return types.Value{}, fmt.Errorf("%w: float32 wants 2 words, got %d", ErrBadLength, len(words))
	}
	bits := uint32(words[0])<<16 | uint32(words[1])
	f := math.Float32frombits(bits)
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return types.Value{}, fmt.Errorf("%w: non-finite float32 bit pattern %#08x", ErrBadEncoding, bits)
	}
	return types.Number(float64(f)), nil
}

func decodeASCII(words []uint16) (types.Value, error) {
	if len(words) == 0 || len(words)%2 != 0 {
		return types.Value{}, fmt.Errorf("%w: ascii wants a positive even word count, got %d", ErrBadLength, len(words))
	}
	raw := make([]byte, 0, len(words)*2)
	for _, w := range words {
		raw = append(raw, byte(w>>8), byte(w))
	}
	raw = bytes.TrimRight(raw, "\x00")
	return types.Text(string(raw)), nil
}

// EncodeFloat32 is the inverse of the float32 decode, used by tests and the
// simulated transport.
func EncodeFloat32(f float32) []uint16 {
	bits := math.Float32bits(f)
	return []uint16{uint16(bits >> 16), uint16(bits)}
}
