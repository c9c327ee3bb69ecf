package encoding

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-gridformat/internal/dtype"
)

// ASCIIFormat controls how values are laid out as text.
type ASCIIFormat struct {
	EntriesPerLine int
	Delimiter      string
	LinePrefix     string
}

// DefaultASCIIFormat writes ten space-separated values per line.
func DefaultASCIIFormat() ASCIIFormat {
	return ASCIIFormat{EntriesPerLine: 10, Delimiter: " "}
}

// Validate reports a delimiter or line prefix that holds anything but
// whitespace. ParseASCII splits on whitespace only, so such text could not
// be read back.
func (f ASCIIFormat) Validate() error {
	for _, part := range []string{f.Delimiter, f.LinePrefix} {
		if len(bytes.TrimSpace([]byte(part))) != 0 {
			return fmt.Errorf("%w: ascii separator %q is not whitespace", ErrInvalidInput, part)
		}
	}
	return nil
}

func (f ASCIIFormat) normalized() ASCIIFormat {
	if f.EntriesPerLine <= 0 {
		f.EntriesPerLine = 10
	}
	if f.Delimiter == "" {
		f.Delimiter = " "
	}
	return f
}

// AppendASCII appends the text form of the precision-k values in data.
// Lines are separated by a newline and start with the line prefix; no
// delimiter follows the last value of a line.
func AppendASCII(dst []byte, k dtype.Kind, data []byte, f ASCIIFormat) ([]byte, error) {
	size := k.Size()
	if size == 0 {
		return dst, fmt.Errorf("%w: precision %s", ErrInvalidInput, k)
	}
	if len(data)%size != 0 {
		return dst, fmt.Errorf("%w: %d bytes of %s", ErrInvalidInput, len(data), k)
	}
	if err := f.Validate(); err != nil {
		return dst, err
	}
	f = f.normalized()
	n := len(data) / size
	for i := 0; i < n; i++ {
		switch {
		case i%f.EntriesPerLine == 0:
			if i > 0 {
				dst = append(dst, '\n')
			}
			dst = append(dst, f.LinePrefix...)
		default:
			dst = append(dst, f.Delimiter...)
		}
		dst = dtype.AppendText(dst, k, data[i*size:])
	}
	return dst, nil
}

// ParseASCII parses whitespace-separated values as precision k. When count
// is non-negative the text must hold exactly count values.
func ParseASCII(text []byte, k dtype.Kind, count int) ([]byte, error) {
	size := k.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: precision %s", ErrInvalidInput, k)
	}
	tokens := bytes.Fields(text)
	if count >= 0 && len(tokens) != count {
		return nil, fmt.Errorf("%w: expected %d values, found %d", ErrInvalidInput, count, len(tokens))
	}
	out := make([]byte, len(tokens)*size)
	for i, tok := range tokens {
		if err := dtype.ParseText(k, string(tok), out[i*size:]); err != nil {
			return nil, fmt.Errorf("%w: value %d: %v", ErrInvalidInput, i, err)
		}
	}
	return out, nil
}
