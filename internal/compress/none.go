package compress

import "fmt"

// None is the identity codec. It treats the whole buffer as one block.
type None struct{}

func (None) Name() string      { return "none" }
func (None) Attribute() string { return "" }

func (None) CompressBlock(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

func (None) DecompressBlock(dst, src []byte) error {
	if len(src) != len(dst) {
		return fmt.Errorf("%w: block holds %d bytes, expected %d", ErrSize, len(src), len(dst))
	}
	copy(dst, src)
	return nil
}
