// Package speed holds the heartbeat speed index shared between the button
// task (sole writer) and the heartbeat task (reader).
package speed

import (
	"fmt"
	"sync/atomic"
)

// Multipliers are the allowed heartbeat speed multipliers, in cycle order.
var Multipliers = [...]int{1, 2, 4}

// Count is the number of allowed speeds.
const Count = len(Multipliers)

// Index is a single-word atomic cell selecting an entry of Multipliers.
// The zero value selects the first multiplier.
//
// Advance is a plain load/store pair, not a compare-and-swap: it is only
// correct with a single writer.
type Index struct {
	v atomic.Uint32
}

// NewIndex returns an Index starting at i.
func NewIndex(i int) (*Index, error) {
	if i < 0 || i >= Count {
		return nil, fmt.Errorf("speed index %d out of range [0,%d)", i, Count)
	}
	idx := &Index{}
	idx.v.Store(uint32(i))
	return idx, nil
}

// Load returns the current index.
func (x *Index) Load() int {
	return int(x.v.Load())
}

// Multiplier returns the multiplier selected by the current index.
func (x *Index) Multiplier() int {
	return Multipliers[x.Load()]
}

// Advance moves to the next speed, wrapping to the first after the last,
// and returns the new index.
func (x *Index) Advance() int {
	next := (x.v.Load() + 1) % uint32(Count)
	x.v.Store(next)
	return int(next)
}
