package parallel

import (
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// group is the shared state of a set of Local communicators. Every
// collective is an exchange in which all ranks deposit a value and
// receive the values of all ranks.
type group struct {
	mu         sync.Mutex
	cond       *sync.Cond
	size       int
	slots      []any
	arrived    int
	generation uint64
	result     []any
	err        error
}

func (g *group) exchange(rank int, v any) ([]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}

	gen := g.generation
	g.slots[rank] = v
	g.arrived++
	if g.arrived == g.size {
		g.result = g.slots
		g.slots = make([]any, g.size)
		g.arrived = 0
		g.generation++
		g.cond.Broadcast()
		return g.result, nil
	}
	for g.generation == gen && g.err == nil {
		g.cond.Wait()
	}
	if g.generation == gen {
		return nil, g.err
	}
	return g.result, nil
}

// abort releases all ranks blocked in a collective.
func (g *group) abort(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err == nil {
		g.err = fmt.Errorf("%w: %w", ErrAborted, err)
	}
	g.cond.Broadcast()
}

// Local is one rank of an in-process communicator group. Ranks usually
// run on separate goroutines, see Run.
type Local struct {
	g    *group
	rank int
}

// NewLocal returns the communicators of a group of size ranks.
func NewLocal(size int) []*Local {
	g := &group{size: size, slots: make([]any, size)}
	g.cond = sync.NewCond(&g.mu)
	comms := make([]*Local, size)
	for i := range comms {
		comms[i] = &Local{g: g, rank: i}
	}
	return comms
}

func (c *Local) Size() int { return c.g.size }
func (c *Local) Rank() int { return c.rank }

func (c *Local) Barrier() error {
	_, err := c.g.exchange(c.rank, nil)
	return err
}

func (c *Local) Gather(root int, data []byte) ([][]byte, error) {
	if err := checkRoot(c, root); err != nil {
		return nil, err
	}
	all, err := c.g.exchange(c.rank, slices.Clone(data))
	if err != nil || c.rank != root {
		return nil, err
	}
	out := make([][]byte, len(all))
	for i, v := range all {
		out[i] = v.([]byte)
	}
	return out, nil
}

func (c *Local) Broadcast(root int, data []byte) ([]byte, error) {
	if err := checkRoot(c, root); err != nil {
		return nil, err
	}
	var v any
	if c.rank == root {
		v = slices.Clone(data)
	}
	all, err := c.g.exchange(c.rank, v)
	if err != nil {
		return nil, err
	}
	return slices.Clone(all[root].([]byte)), nil
}

func (c *Local) Scatter(root int, parts [][]byte) ([]byte, error) {
	if err := checkRoot(c, root); err != nil {
		return nil, err
	}
	var v any
	if c.rank == root && len(parts) == c.g.size {
		v = parts
	}
	all, err := c.g.exchange(c.rank, v)
	if err != nil {
		return nil, err
	}
	p, ok := all[root].([][]byte)
	if !ok {
		return nil, fmt.Errorf("%w: root %d did not provide one part per rank", ErrRank, root)
	}
	return slices.Clone(p[c.rank]), nil
}

// Run executes fn on size ranks of a new Local group, each on its own
// goroutine, and returns the first error. A failing rank aborts the
// collectives of the others.
func Run(size int, fn func(c Communicator) error) error {
	comms := NewLocal(size)
	var eg errgroup.Group
	for _, c := range comms {
		eg.Go(func() error {
			if err := fn(c); err != nil {
				c.g.abort(fmt.Errorf("rank %d: %w", c.rank, err))
				return err
			}
			return nil
		})
	}
	return eg.Wait()
}
