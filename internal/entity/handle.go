package entity

import (
	"hash/fnv"

	"github.com/google/uuid"
)

// Handle is an opaque reference to an agent, sphere obstacle or box-obstacle
// node. The core never dereferences it directly — all trait reads/writes
// go through a World.
type Handle struct {
	id uuid.UUID
}

// NewHandle allocates a fresh, globally unique handle.
func NewHandle() Handle {
	return Handle{id: uuid.New()}
}

// Zero reports whether h is the zero-value handle (e.g. an obstacle node's
// missing prev/next link).
func (h Handle) Zero() bool {
	return h.id == uuid.Nil
}

func (h Handle) String() string {
	return h.id.String()
}

// Hash returns the stable fingerprint of the handle used by cell snapshots
// to dedup a multi-registered entity across the cells it occupies.
func (h Handle) Hash() uint64 {
	sum := fnv.New64a()
	_, _ = sum.Write(h.id[:])
	return sum.Sum64()
}
