// Package encoding turns serialized bytes into the text or binary
// representations used inside VTK-XML files and back.
package encoding

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when encoded data cannot be decoded.
var ErrInvalidInput = errors.New("invalid encoded input")

// Encoder encodes binary payloads.
type Encoder interface {
	// Name is the VTK spelling of the encoding ("raw", "base64").
	Name() string
	// Append appends the encoded form of src to dst.
	Append(dst, src []byte) []byte
	// EncodedLen returns the encoded size of n bytes.
	EncodedLen(n int) int
	// Decode decodes a complete encoded unit.
	Decode(src []byte) ([]byte, error)
}

// Raw writes bytes verbatim.
type Raw struct{}

func (Raw) Name() string                  { return "raw" }
func (Raw) Append(dst, src []byte) []byte { return append(dst, src...) }
func (Raw) EncodedLen(n int) int          { return n }

func (Raw) Decode(src []byte) ([]byte, error) {
	return append([]byte(nil), src...), nil
}

// Base64 uses the standard alphabet with padding. Every call to Append
// produces an independently padded unit.
type Base64 struct{}

func (Base64) Name() string { return "base64" }

func (Base64) Append(dst, src []byte) []byte {
	return base64.StdEncoding.AppendEncode(dst, src)
}

func (Base64) EncodedLen(n int) int {
	return base64.StdEncoding.EncodedLen(n)
}

// Decode decodes a padded unit. Whitespace is ignored.
func (Base64) Decode(src []byte) ([]byte, error) {
	out, err := base64.StdEncoding.AppendDecode(nil, StripSpace(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return out, nil
}

// ForName returns the binary encoder with the given VTK name.
func ForName(name string) (Encoder, error) {
	switch name {
	case "raw":
		return Raw{}, nil
	case "base64":
		return Base64{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrInvalidInput, name)
	}
}

// StripSpace returns src without ASCII whitespace. The input is not modified.
func StripSpace(src []byte) []byte {
	out := make([]byte, 0, len(src))
	for _, c := range src {
		switch c {
		case ' ', '\t', '\n', '\r', '\v', '\f':
		default:
			out = append(out, c)
		}
	}
	return out
}
