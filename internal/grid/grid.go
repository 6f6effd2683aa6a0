// Package grid implements the uniform 3D spatial hash used to index
// agents and obstacles for the ORCA planner, grounded on the teacher's
// map-based SpatialGrid (internal/game/spatial_grid.go) generalized to a
// flat, axis-independent, indexed cell array per spec.md §4.1.
package grid

import (
	"fmt"
	"math"

	"github.com/leroyworks/crowdgrid/internal/vecmath"
)

// CellPos is an integer cell coordinate.
type CellPos struct {
	X, Y, Z int
}

// Config are the grid's immutable construction parameters (spec.md §6).
type Config struct {
	Origin               vecmath.Vector3
	Dims                 CellPos // nx, ny, nz
	CellSize             vecmath.Vector3
	MaxThreadsAllowed    int
	MinBatchSizeAllowed  int
}

// Grid is the uniform 3D hash: a flat, never-moved array of cells plus the
// sharded occupied-cells queues that make Reset O(occupied) instead of
// O(N).
type Grid struct {
	cfg      Config
	cells    []Cell
	occupied *OccupiedCellsQueues
}

// New allocates a grid of cfg.Dims.X*Y*Z cells. Returns an error if any
// dimension or cell size axis is non-positive — the one place grid
// construction can fail, reported the teacher's plain fmt.Errorf way
// (SPEC_FULL.md §3).
func New(cfg Config) (*Grid, error) {
	if cfg.Dims.X <= 0 || cfg.Dims.Y <= 0 || cfg.Dims.Z <= 0 {
		return nil, fmt.Errorf("grid: dims must be positive, got %+v", cfg.Dims)
	}
	if cfg.CellSize.X <= 0 || cfg.CellSize.Y <= 0 || cfg.CellSize.Z <= 0 {
		return nil, fmt.Errorf("grid: cell size must be positive, got %+v", cfg.CellSize)
	}
	if cfg.MaxThreadsAllowed < 1 {
		cfg.MaxThreadsAllowed = 1
	}
	if cfg.MinBatchSizeAllowed < 1 {
		cfg.MinBatchSizeAllowed = 1
	}

	total := cfg.Dims.X * cfg.Dims.Y * cfg.Dims.Z
	cells := make([]Cell, total)
	for i := range cells {
		cells[i] = newCell()
	}

	return &Grid{
		cfg:      cfg,
		cells:    cells,
		occupied: NewOccupiedCellsQueues(cfg.MaxThreadsAllowed, total),
	}, nil
}

// Config returns the grid's immutable construction parameters.
func (g *Grid) Config() Config { return g.cfg }

// Occupied returns the sharded occupied-cells queues.
func (g *Grid) Occupied() *OccupiedCellsQueues { return g.occupied }

// NumCells returns the total cell count nx*ny*nz.
func (g *Grid) NumCells() int { return len(g.cells) }

// IsInside reports whether c is within [0,dims) on every axis.
func (g *Grid) IsInside(c CellPos) bool {
	return c.X >= 0 && c.X < g.cfg.Dims.X &&
		c.Y >= 0 && c.Y < g.cfg.Dims.Y &&
		c.Z >= 0 && c.Z < g.cfg.Dims.Z
}

// GetIndexAt returns the flat array index for c: x + nx*(y + ny*z).
func (g *Grid) GetIndexAt(c CellPos) int {
	return c.X + g.cfg.Dims.X*(c.Y+g.cfg.Dims.Y*c.Z)
}

// WorldToCage floors (p - origin) / cellSize component-wise.
func (g *Grid) WorldToCage(p vecmath.Vector3) CellPos {
	return CellPos{
		X: int(math.Floor((p.X - g.cfg.Origin.X) / g.cfg.CellSize.X)),
		Y: int(math.Floor((p.Y - g.cfg.Origin.Y) / g.cfg.CellSize.Y)),
		Z: int(math.Floor((p.Z - g.cfg.Origin.Z) / g.cfg.CellSize.Z)),
	}
}

// CageToWorld returns the world-space center of cell c.
func (g *Grid) CageToWorld(c CellPos) vecmath.Vector3 {
	return vecmath.Vector3{
		X: g.cfg.Origin.X + (float64(c.X)+0.5)*g.cfg.CellSize.X,
		Y: g.cfg.Origin.Y + (float64(c.Y)+0.5)*g.cfg.CellSize.Y,
		Z: g.cfg.Origin.Z + (float64(c.Z)+0.5)*g.cfg.CellSize.Z,
	}
}

// At returns the cell at c. It always clamps out-of-range coordinates to
// the nearest valid cell instead of panicking (there is no checked build), a
// deterministic fast path per spec.md §4.1 ("release clamps ... but must
// be deterministic").
func (g *Grid) At(c CellPos) *Cell {
	return g.AtIndex(g.clampedIndex(c))
}

// AtIndex returns the cell at flat index i, clamped into range.
func (g *Grid) AtIndex(i int) *Cell {
	if i < 0 {
		i = 0
	}
	if i >= len(g.cells) {
		i = len(g.cells) - 1
	}
	return &g.cells[i]
}

func (g *Grid) clampedIndex(c CellPos) int {
	clamp := func(v, hi int) int {
		if v < 0 {
			return 0
		}
		if v >= hi {
			return hi - 1
		}
		return v
	}
	c.X = clamp(c.X, g.cfg.Dims.X)
	c.Y = clamp(c.Y, g.cfg.Dims.Y)
	c.Z = clamp(c.Z, g.cfg.Dims.Z)
	return g.GetIndexAt(c)
}

// maxCellRadius is half the largest cell-size axis, the expansion factor
// queries use to guarantee a subject near a cell boundary isn't missed.
func (g *Grid) maxCellRadius() float64 {
	return 0.5 * math.Max(g.cfg.CellSize.X, math.Max(g.cfg.CellSize.Y, g.cfg.CellSize.Z))
}

// MaxCellSize returns the largest cell-size axis.
func (g *Grid) MaxCellSize() float64 {
	return math.Max(g.cfg.CellSize.X, math.Max(g.cfg.CellSize.Y, g.cfg.CellSize.Z))
}

// ExpandedCellAABB returns the min/max cage coordinates of every cell whose
// center could fall within radius of center once quantization is accounted
// for — the shared first step of every query's cell-gathering (spec.md
// §4.4 step 1).
func (g *Grid) ExpandedCellAABB(center vecmath.Vector3, radius float64) (min, max CellPos) {
	expanded := radius + g.maxCellRadius()*math.Sqrt2
	r := vecmath.Vector3{X: expanded, Y: expanded, Z: expanded}
	return g.WorldToCage(center.Sub(r)), g.WorldToCage(center.Add(r))
}

// GetNeighborCells enumerates every in-bounds cell in the AABB
// [WorldToCage(center-range), WorldToCage(center+range)].
func (g *Grid) GetNeighborCells(center, rng vecmath.Vector3) []CellPos {
	min := g.WorldToCage(center.Sub(rng))
	max := g.WorldToCage(center.Add(rng))
	return g.enumerateClipped(min, max)
}

func (g *Grid) enumerateClipped(min, max CellPos) []CellPos {
	out := make([]CellPos, 0, (max.X-min.X+1)*(max.Y-min.Y+1)*(max.Z-min.Z+1))
	for z := min.Z; z <= max.Z; z++ {
		for y := min.Y; y <= max.Y; y++ {
			for x := min.X; x <= max.X; x++ {
				c := CellPos{X: x, Y: y, Z: z}
				if g.IsInside(c) {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// SphereSweepForCells returns every cell whose AABB intersects the capsule
// swept from start to end with the given radius. This uses the
// conservative-AABB-of-the-capsule option spec.md §4.1 explicitly permits
// (the query layer tolerates over-approximation) rather than a full
// Amanatides-Woo voxel walk.
func (g *Grid) SphereSweepForCells(start, end vecmath.Vector3, radius float64) []CellPos {
	r := vecmath.Vector3{X: radius, Y: radius, Z: radius}
	lo := vecmath.Vector3{
		X: math.Min(start.X, end.X),
		Y: math.Min(start.Y, end.Y),
		Z: math.Min(start.Z, end.Z),
	}.Sub(r)
	hi := vecmath.Vector3{
		X: math.Max(start.X, end.X),
		Y: math.Max(start.Y, end.Y),
		Z: math.Max(start.Z, end.Z),
	}.Add(r)

	min := g.WorldToCage(lo)
	max := g.WorldToCage(hi)
	return g.enumerateClipped(min, max)
}
