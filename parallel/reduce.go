package parallel

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/robert-malhotra/go-gridformat/internal/dtype"
)

// Number is the set of values the typed collectives operate on.
type Number interface {
	constraints.Integer | constraints.Float
}

func encode[T Number](values []T) []byte {
	return dtype.Encode(dtype.KindFor[T](), values)
}

func decode[T Number](data []byte) ([]T, error) {
	return dtype.Convert[T](dtype.KindFor[T](), data)
}

// Gather collects values of every rank on root, in rank order. Other
// ranks receive nil.
func Gather[T Number](c Communicator, root int, values []T) ([][]T, error) {
	parts, err := c.Gather(root, encode(values))
	if err != nil || parts == nil {
		return nil, err
	}
	out := make([][]T, len(parts))
	for i, p := range parts {
		if out[i], err = decode[T](p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Broadcast returns root's values on every rank.
func Broadcast[T Number](c Communicator, root int, values []T) ([]T, error) {
	data, err := c.Broadcast(root, encode(values))
	if err != nil {
		return nil, err
	}
	return decode[T](data)
}

// Scatter sends parts[i] of root to rank i.
func Scatter[T Number](c Communicator, root int, parts [][]T) ([]T, error) {
	var raw [][]byte
	if c.Rank() == root {
		raw = make([][]byte, len(parts))
		for i, p := range parts {
			raw[i] = encode(p)
		}
	}
	data, err := c.Scatter(root, raw)
	if err != nil {
		return nil, err
	}
	return decode[T](data)
}

// AllGather returns the values of every rank, in rank order, on every
// rank.
func AllGather[T Number](c Communicator, values []T) ([][]T, error) {
	parts, err := Gather(c, 0, values)
	if err != nil {
		return nil, err
	}
	var flat []T
	lengths := make([]uint64, 0, c.Size())
	for _, p := range parts {
		lengths = append(lengths, uint64(len(p)))
		flat = append(flat, p...)
	}
	if lengths, err = Broadcast(c, 0, lengths); err != nil {
		return nil, err
	}
	if flat, err = Broadcast(c, 0, flat); err != nil {
		return nil, err
	}
	out := make([][]T, len(lengths))
	for i, n := range lengths {
		out[i], flat = flat[:int(n)], flat[int(n):]
	}
	return out, nil
}

// Reduce combines values element-wise across all ranks with op and
// returns the result on every rank. All ranks must pass the same number
// of values.
func Reduce[T Number](c Communicator, values []T, op func(a, b T) T) ([]T, error) {
	parts, err := Gather(c, 0, values)
	if err != nil {
		return nil, err
	}
	var result []T
	if c.Rank() == 0 {
		result = append(result, parts[0]...)
		for r, p := range parts[1:] {
			if len(p) != len(result) {
				// still broadcast so that no rank is left waiting
				result = nil
				err = fmt.Errorf("%w: rank %d reduced %d values, rank 0 %d", ErrRank, r+1, len(p), len(parts[0]))
				break
			}
			for i := range result {
				result[i] = op(result[i], p[i])
			}
		}
	}
	out, berr := Broadcast(c, 0, result)
	if berr != nil {
		return nil, berr
	}
	if err != nil {
		return nil, err
	}
	if len(out) != len(values) {
		return nil, fmt.Errorf("%w: reduction over mismatched lengths", ErrRank)
	}
	return out, nil
}

// Max returns the largest v over all ranks.
func Max[T Number](c Communicator, v T) (T, error) {
	return reduceOne(c, v, func(a, b T) T { return max(a, b) })
}

// Min returns the smallest v over all ranks.
func Min[T Number](c Communicator, v T) (T, error) {
	return reduceOne(c, v, func(a, b T) T { return min(a, b) })
}

// Sum returns the sum of v over all ranks.
func Sum[T Number](c Communicator, v T) (T, error) {
	return reduceOne(c, v, func(a, b T) T { return a + b })
}

func reduceOne[T Number](c Communicator, v T, op func(a, b T) T) (T, error) {
	out, err := Reduce(c, []T{v}, op)
	if err != nil {
		var zero T
		return zero, err
	}
	return out[0], nil
}
