package grid

import (
	"github.com/leroyworks/crowdgrid/internal/entity"
	"github.com/leroyworks/crowdgrid/internal/vecmath"
)

// Kind discriminates the denormalized snapshots a cell carries, replacing
// the source's per-trait tagged structs with a single POD plus
// discriminator (spec.md §9 "Trait polymorphism").
type Kind int

const (
	KindAgent Kind = iota
	KindSphereObstacle
	KindBoxObstacle
)

// bucketHint is the small-vector capacity hint from spec.md §5, sized to
// avoid heap churn for the common case of a lightly populated cell.
const bucketHint = 8

// Avoiding is the cell-resident snapshot written at registration time so
// queries never touch the entity store directly (spec.md §3).
type Avoiding struct {
	Handle   entity.Handle
	Hash     uint64
	Location vecmath.Vector3
	Radius   float64
	Kind     Kind
}

// Cell is a single spatial-hash bucket: five append-only snapshot lists
// guarded by one spinlock, plus the Registered flag used to dedup the
// occupied-cells queue.
type Cell struct {
	lock spinlock

	Agents                 []Avoiding
	SphereObstaclesDynamic []Avoiding
	SphereObstaclesStatic  []Avoiding
	BoxObstaclesDynamic    []Avoiding
	BoxObstaclesStatic     []Avoiding

	Registered bool
}

func newCell() Cell {
	return Cell{
		Agents:                 make([]Avoiding, 0, bucketHint),
		SphereObstaclesDynamic: make([]Avoiding, 0, bucketHint),
		SphereObstaclesStatic:  make([]Avoiding, 0, bucketHint),
		BoxObstaclesDynamic:    make([]Avoiding, 0, bucketHint),
		BoxObstaclesStatic:     make([]Avoiding, 0, bucketHint),
	}
}

// Lock acquires the cell's spinlock. Callers must Unlock on every exit
// path, including panics — use `defer c.Unlock()` immediately after.
func (c *Cell) Lock() { c.lock.Lock() }

// Unlock releases the cell's spinlock.
func (c *Cell) Unlock() { c.lock.Unlock() }

// AppendAgent appends an agent snapshot under lock.
func (c *Cell) AppendAgent(a Avoiding) {
	c.Lock()
	defer c.Unlock()
	c.Agents = append(c.Agents, a)
}

// AppendSphereObstacle appends a sphere-obstacle snapshot to the static or
// dynamic bucket under lock.
func (c *Cell) AppendSphereObstacle(a Avoiding, static bool) {
	c.Lock()
	defer c.Unlock()
	if static {
		c.SphereObstaclesStatic = append(c.SphereObstaclesStatic, a)
	} else {
		c.SphereObstaclesDynamic = append(c.SphereObstaclesDynamic, a)
	}
}

// AppendBoxObstacle appends a box-obstacle-edge snapshot to the static or
// dynamic bucket under lock.
func (c *Cell) AppendBoxObstacle(a Avoiding, static bool) {
	c.Lock()
	defer c.Unlock()
	if static {
		c.BoxObstaclesStatic = append(c.BoxObstaclesStatic, a)
	} else {
		c.BoxObstaclesDynamic = append(c.BoxObstaclesDynamic, a)
	}
}

// MarkRegisteredIfFirst sets Registered under lock and reports whether this
// call was the one that flipped it false->true — the caller enqueues the
// cell's index into the occupied-cells queue exactly when this is true.
func (c *Cell) MarkRegisteredIfFirst() bool {
	c.Lock()
	defer c.Unlock()
	if c.Registered {
		return false
	}
	c.Registered = true
	return true
}

// Reset clears the dynamic buckets and the Registered flag. Static buckets
// are left intact — per the Open Question resolution in SPEC_FULL.md §11(a),
// statics survive reset and are never re-inserted once their own trait's
// Registered flag is set, so clearing them here would silently drop them
// until the host re-registers, which it never does for a static obstacle.
func (c *Cell) Reset() {
	c.Lock()
	defer c.Unlock()
	c.Agents = c.Agents[:0]
	c.SphereObstaclesDynamic = c.SphereObstaclesDynamic[:0]
	c.BoxObstaclesDynamic = c.BoxObstaclesDynamic[:0]
	c.Registered = false
}

// Subjects returns every snapshot a query should consider: all five
// buckets concatenated into a freshly allocated slice that does not alias
// the cell's own buckets.
func (c *Cell) Subjects() []Avoiding {
	total := len(c.Agents) + len(c.SphereObstaclesDynamic) + len(c.SphereObstaclesStatic) +
		len(c.BoxObstaclesDynamic) + len(c.BoxObstaclesStatic)
	out := make([]Avoiding, 0, total)
	out = append(out, c.Agents...)
	out = append(out, c.SphereObstaclesDynamic...)
	out = append(out, c.SphereObstaclesStatic...)
	out = append(out, c.BoxObstaclesDynamic...)
	out = append(out, c.BoxObstaclesStatic...)
	return out
}

// ObstacleSubjects returns only the sphere- and box-obstacle snapshots
// (static and dynamic), the candidate set for SphereSweepForObstacle.
func (c *Cell) ObstacleSubjects() []Avoiding {
	total := len(c.SphereObstaclesDynamic) + len(c.SphereObstaclesStatic) +
		len(c.BoxObstaclesDynamic) + len(c.BoxObstaclesStatic)
	out := make([]Avoiding, 0, total)
	out = append(out, c.SphereObstaclesDynamic...)
	out = append(out, c.SphereObstaclesStatic...)
	out = append(out, c.BoxObstaclesDynamic...)
	out = append(out, c.BoxObstaclesStatic...)
	return out
}
