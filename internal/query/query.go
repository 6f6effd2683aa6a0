// Package query implements the grid's spatial queries — sphere trace,
// swept-sphere trace, sector trace and obstacle sweep — sharing one
// cell-gathering/sort/keep-K/visibility skeleton (spec.md §4.4), grounded
// on the teacher's internal/game/spatial_grid.go
// (GetObstaclesInRadius/GetObstaclesAlongLine/CheckCollision) generalized
// from a map-keyed obstacle-only grid to the full agent/obstacle query
// family over grid.Grid.
package query

import (
	"math"
	"sort"

	"github.com/leroyworks/crowdgrid/internal/entity"
	"github.com/leroyworks/crowdgrid/internal/grid"
	"github.com/leroyworks/crowdgrid/internal/vecmath"
)

// SortMode selects how results are ordered and how keep-K truncation picks
// a winner (spec.md §4.4).
type SortMode int

const (
	SortNone SortMode = iota
	SortNearToFar
	SortFarToNear
)

// Options are the inputs every query shares. KeepCount follows spec.md's
// encoding: -1 unlimited, 1 best-only fast path, n>1 bounded.
type Options struct {
	KeepCount  int
	SortMode   SortMode
	SortOrigin vecmath.Vector3
	Ignore     map[entity.Handle]struct{}
	Filter     entity.Filter

	CheckVisibility bool
	CheckOrigin     vecmath.Vector3
	CheckRadius     float64
}

// TraceResult is one accepted subject.
type TraceResult struct {
	Subject      entity.Handle
	Location     vecmath.Vector3
	CachedDistSq float64
}

// Result is a query's full outcome.
type Result struct {
	Hit     bool
	Results []TraceResult
}

// Engine binds a grid and the world it indexes, the pair every query needs
// to resolve filters and run obstacle visibility checks.
type Engine struct {
	Grid  *grid.Grid
	World entity.World
}

// NewEngine constructs a query Engine over g and w.
func NewEngine(g *grid.Grid, w entity.World) *Engine {
	return &Engine{Grid: g, World: w}
}

func (e *Engine) ignored(opts Options, h entity.Handle) bool {
	if opts.Ignore == nil {
		return false
	}
	_, ok := opts.Ignore[h]
	return ok
}

func (e *Engine) passesFilter(opts Options, h entity.Handle) bool {
	if opts.Filter.Include == nil && opts.Filter.Exclude == nil {
		return true
	}
	return e.World.Matches(h, opts.Filter)
}

// visible reports whether the straight path from opts.CheckOrigin to the
// subject's near surface point is unobstructed (spec.md §4.4 step 5d).
func (e *Engine) visible(opts Options, subjectLoc vecmath.Vector3, subjectRadius float64) bool {
	if !opts.CheckVisibility {
		return true
	}
	toSubject := subjectLoc.Sub(opts.CheckOrigin)
	dir := toSubject.Normalize()
	surface := subjectLoc.Sub(dir.Scale(subjectRadius))
	_, hit := e.SphereSweepForObstacle(opts.CheckOrigin, surface, opts.CheckRadius)
	return !hit
}

// run is the shared cell-gather/sort/keep-K skeleton (spec.md §4.4 steps
// 3-6), parameterized by the candidate cell list, which bucket(s) of each
// cell to scan, and the primary geometric test for this query kind.
func (e *Engine) run(cells []grid.CellPos, sortOrigin vecmath.Vector3, opts Options, subjectsOf func(*grid.Cell) []grid.Avoiding, test func(grid.Avoiding) bool) Result {
	if opts.SortMode != SortNone {
		sort.Slice(cells, func(i, j int) bool {
			di := e.Grid.CageToWorld(cells[i]).DistanceToSquared(sortOrigin)
			dj := e.Grid.CageToWorld(cells[j]).DistanceToSquared(sortOrigin)
			if opts.SortMode == SortNearToFar {
				return di < dj
			}
			return di > dj
		})
	}

	maxCellSize := e.Grid.MaxCellSize()
	bounded := opts.KeepCount > 1

	var best *TraceResult
	var kept []TraceResult

	for _, c := range cells {
		if bounded && len(kept) >= opts.KeepCount {
			worst := kept[len(kept)-1].CachedDistSq
			tau := math.Sqrt(worst) + 2*maxCellSize*math.Sqrt2
			cellDist := e.Grid.CageToWorld(c).DistanceTo(sortOrigin)
			if opts.SortMode == SortNearToFar && cellDist > tau {
				break
			}
			if opts.SortMode == SortFarToNear && cellDist < math.Sqrt(worst)-2*maxCellSize*math.Sqrt2 {
				break
			}
		}

		cell := e.Grid.At(c)
		for _, subject := range subjectsOf(cell) {
			if e.ignored(opts, subject.Handle) {
				continue
			}
			if !e.passesFilter(opts, subject.Handle) {
				continue
			}
			if !test(subject) {
				continue
			}
			if !e.visible(opts, subject.Location, subject.Radius) {
				continue
			}

			cur := TraceResult{Subject: subject.Handle, Location: subject.Location, CachedDistSq: sortOrigin.DistanceToSquared(subject.Location)}

			if opts.KeepCount == 1 {
				// SortNone keeps the first candidate encountered
				// (SPEC_FULL.md §11(b)'s determinism choice for the
				// single-result fast path), so only SortMode-driven
				// comparisons can replace an already-set best.
				if best == nil || (opts.SortMode != SortNone && betterUnderSort(cur.CachedDistSq, best.CachedDistSq, opts.SortMode)) {
					best = &cur
				}
				continue
			}

			kept = append(kept, cur)
			if opts.SortMode != SortNone {
				sort.Slice(kept, func(i, j int) bool {
					if opts.SortMode == SortNearToFar {
						return kept[i].CachedDistSq < kept[j].CachedDistSq
					}
					return kept[i].CachedDistSq > kept[j].CachedDistSq
				})
			}
			if bounded && len(kept) > opts.KeepCount {
				kept = kept[:opts.KeepCount]
			}
		}
	}

	if opts.KeepCount == 1 {
		if best == nil {
			return Result{}
		}
		return Result{Hit: true, Results: []TraceResult{*best}}
	}

	if opts.SortMode == SortNone {
		shuffle(kept)
	}
	if opts.KeepCount > 0 && len(kept) > opts.KeepCount {
		kept = kept[:opts.KeepCount]
	}
	return Result{Hit: len(kept) > 0, Results: kept}
}

// betterUnderSort is only ever called with a SortMode-driven comparison;
// SortNone's keepCount==1 fast path short-circuits in run before reaching
// here (SPEC_FULL.md §11(b)).
func betterUnderSort(candidate, current float64, mode SortMode) bool {
	if mode == SortFarToNear {
		return candidate > current
	}
	return candidate < current
}

// shuffle performs an in-place Fisher-Yates shuffle, grounded on spec.md
// §4.4 step 6's "else Fisher-Yates shuffle" requirement for unsorted
// multi-result queries. Uses a fixed-seed LCG rather than math/rand so
// results stay reproducible across runs with the same candidate order,
// mirroring SPEC_FULL.md §11(b)'s determinism preference.
func shuffle(results []TraceResult) {
	state := uint64(0x2545F4914F6CDD1D)
	next := func() uint64 {
		state = state*6364136223846793005 + 1442695040888963407
		return state
	}
	for i := len(results) - 1; i > 0; i-- {
		j := int(next() % uint64(i+1))
		results[i], results[j] = results[j], results[i]
	}
}
