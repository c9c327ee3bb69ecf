package gridformat

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-gridformat/internal/binary"
	"github.com/robert-malhotra/go-gridformat/internal/compress"
	"github.com/robert-malhotra/go-gridformat/internal/dtype"
	"github.com/robert-malhotra/go-gridformat/internal/vtkxml"
)

// Error kinds. Every error returned by this package wraps exactly one of
// them, so callers can distinguish failures with errors.Is.
var (
	ErrType         = errors.New("type error")
	ErrSize         = errors.New("size error")
	ErrValue        = errors.New("value error")
	ErrIO           = errors.New("i/o error")
	ErrInvalidState = errors.New("invalid state")

	// ErrPieceFailed is returned on every rank when a collective write was
	// aborted because some rank failed.
	ErrPieceFailed = errors.New("parallel write aborted")
)

var kinds = []error{ErrType, ErrSize, ErrValue, ErrIO, ErrInvalidState, ErrPieceFailed}

// classify wraps an error from the internal packages with its kind.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}

	var kind error
	switch {
	case errors.Is(err, compress.ErrSize), errors.Is(err, binary.ErrOverflow):
		kind = ErrSize
	case errors.Is(err, dtype.ErrSizeMismatch):
		kind = ErrType
	case errors.Is(err, compress.ErrUnknownCompressor), errors.Is(err, dtype.ErrUnknownKind):
		kind = ErrValue
	case errors.Is(err, vtkxml.ErrUnsupported):
		kind = ErrInvalidState
	default:
		// malformed files, bad encodings and failed reads or writes
		kind = ErrIO
	}
	return fmt.Errorf("%w: %w", kind, err)
}
