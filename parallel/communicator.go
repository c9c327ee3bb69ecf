// Package parallel defines the collective communication used to write
// and read multi-piece files, and provides a single-process communicator
// and an in-process group of communicators.
package parallel

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrRank is returned when a root rank is outside the group.
	ErrRank = errors.New("invalid rank")

	// ErrAborted is returned by collectives of a group in which a rank
	// has failed.
	ErrAborted = errors.New("communicator group aborted")
)

// Communicator is a group of cooperating processes. All methods except
// Size and Rank are collective: every rank of the group must call them in
// the same order with the same root. Payloads are byte slices; the
// generic helpers of this package encode typed values on top of them.
type Communicator interface {
	Size() int
	Rank() int

	// Barrier blocks until all ranks have entered it.
	Barrier() error

	// Gather collects data from every rank on root. Root receives one
	// entry per rank, in rank order; other ranks receive nil.
	Gather(root int, data []byte) ([][]byte, error)

	// Broadcast returns the data passed by root on every rank.
	Broadcast(root int, data []byte) ([]byte, error)

	// Scatter sends parts[i] of root to rank i. Only root's parts are
	// used; it must hold one entry per rank.
	Scatter(root int, parts [][]byte) ([]byte, error)
}

func checkRoot(c Communicator, root int) error {
	if root < 0 || root >= c.Size() {
		return fmt.Errorf("%w: root %d in group of size %d", ErrRank, root, c.Size())
	}
	return nil
}

// Null is the communicator of a single process.
type Null struct{}

func (Null) Size() int      { return 1 }
func (Null) Rank() int      { return 0 }
func (Null) Barrier() error { return nil }

func (n Null) Gather(root int, data []byte) ([][]byte, error) {
	if err := checkRoot(n, root); err != nil {
		return nil, err
	}
	return [][]byte{slices.Clone(data)}, nil
}

func (n Null) Broadcast(root int, data []byte) ([]byte, error) {
	if err := checkRoot(n, root); err != nil {
		return nil, err
	}
	return slices.Clone(data), nil
}

func (n Null) Scatter(root int, parts [][]byte) ([]byte, error) {
	if err := checkRoot(n, root); err != nil {
		return nil, err
	}
	if len(parts) != 1 {
		return nil, fmt.Errorf("%w: %d parts for 1 rank", ErrRank, len(parts))
	}
	return slices.Clone(parts[0]), nil
}
