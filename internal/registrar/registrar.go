// Package registrar implements the six per-tick registration phases that
// populate a grid's cells from the entity world, grounded on
// NeighborGridComponent.cpp's RegisterNeighborGrid_Trace,
// RegisterNeighborGrid_SphereObstacle, RegisterSubjectSingle,
// RegisterSubjectMultiple, RegisterSphereObstacles and RegisterBoxObstacles
// (spec.md §4.3). Every phase runs its matching handle set through
// workpool.Run for the data-parallel fan-out spec.md §5 requires.
package registrar

import (
	"github.com/leroyworks/crowdgrid/internal/entity"
	"github.com/leroyworks/crowdgrid/internal/grid"
	"github.com/leroyworks/crowdgrid/internal/vecmath"
	"github.com/leroyworks/crowdgrid/internal/workpool"
)

// Filters are the canonical include/exclude sets from spec.md §6, matching
// original_source's DefineFilters() exactly.
var (
	TraceFilter = entity.NewFilter(
		[]entity.TraitKind{entity.TraitLocated, entity.TraitTrace, entity.TraitActivated},
	)
	SphereObstacleGridLinkFilter = entity.NewFilter(
		[]entity.TraitKind{entity.TraitLocated, entity.TraitSphereObstacle},
	)
	AgentSingleFilter = entity.NewFilter(
		[]entity.TraitKind{entity.TraitLocated, entity.TraitCollider, entity.TraitAvoiding, entity.TraitActivated},
		entity.TraitRegisterMultiple,
	)
	AgentMultipleFilter = entity.NewFilter(
		[]entity.TraitKind{entity.TraitLocated, entity.TraitCollider, entity.TraitAvoiding, entity.TraitRegisterMultiple, entity.TraitActivated},
		entity.TraitSphereObstacle,
	)
	SphereObstaclesFilter = entity.NewFilter(
		[]entity.TraitKind{entity.TraitLocated, entity.TraitCollider, entity.TraitAvoiding, entity.TraitSphereObstacle},
	)
	BoxObstaclesFilter = entity.NewFilter(
		[]entity.TraitKind{entity.TraitBoxObstacle, entity.TraitLocated, entity.TraitAvoiding},
	)
)

// Config bounds the data-parallel fan-out every phase uses.
type Config struct {
	MaxThreadsAllowed   int
	MinBatchSizeAllowed int
}

// snapshot collects the handles matching a filter before fanning the batch
// out, so each worker goroutine only ever reads its own index range —
// mirroring the source's ParallelFor over a pre-chunked subject array.
func snapshot(w entity.World, f entity.Filter) []entity.Handle {
	var out []entity.Handle
	w.ForEach(f, func(h entity.Handle) {
		out = append(out, h)
	})
	return out
}

// RegisterTrace binds g to every agent's Trace.NeighborGrid, letting later
// phases and the tick driver find their grid without a global lookup
// (RegisterNeighborGrid_Trace).
func RegisterTrace(w entity.World, g *grid.Grid, cfg Config) {
	handles := snapshot(w, TraceFilter)
	workpool.Run(len(handles), cfg.MinBatchSizeAllowed, cfg.MaxThreadsAllowed, func(start, end int) {
		for _, h := range handles[start:end] {
			loc, ok := w.Located(h)
			if !ok || !insideGrid(g, loc.Location) {
				continue
			}
			if tr, ok := w.Trace(h); ok {
				tr.NeighborGrid = g
			}
		}
	})
}

// RegisterSphereObstacleGridLink binds g to every sphere obstacle's
// NeighborGrid (RegisterNeighborGrid_SphereObstacle).
func RegisterSphereObstacleGridLink(w entity.World, g *grid.Grid, cfg Config) {
	handles := snapshot(w, SphereObstacleGridLinkFilter)
	workpool.Run(len(handles), cfg.MinBatchSizeAllowed, cfg.MaxThreadsAllowed, func(start, end int) {
		for _, h := range handles[start:end] {
			loc, ok := w.Located(h)
			if !ok || !insideGrid(g, loc.Location) {
				continue
			}
			if so, ok := w.SphereObstacle(h); ok {
				so.NeighborGrid = g
			}
		}
	})
}

func insideGrid(g *grid.Grid, p vecmath.Vector3) bool {
	return g.IsInside(g.WorldToCage(p))
}

// RegisterAgentSingle inserts every non-multi-cell agent into its single
// home cell (RegisterSubjectSingle).
func RegisterAgentSingle(w entity.World, g *grid.Grid, cfg Config) {
	handles := snapshot(w, AgentSingleFilter)
	workpool.Run(len(handles), cfg.MinBatchSizeAllowed, cfg.MaxThreadsAllowed, func(start, end int) {
		for _, h := range handles[start:end] {
			loc, ok := w.Located(h)
			if !ok {
				continue
			}
			col, ok := w.Collider(h)
			if !ok {
				continue
			}
			cellPos := g.WorldToCage(loc.Location)
			if !g.IsInside(cellPos) {
				continue
			}
			insertAgent(g, cellPos, h, loc.Location, col.Radius)
		}
	})
}

// RegisterAgentMultiple inserts every RegisterMultiple agent into every cell
// its AABB (radius, radius, radius) overlaps (RegisterSubjectMultiple).
func RegisterAgentMultiple(w entity.World, g *grid.Grid, cfg Config) {
	handles := snapshot(w, AgentMultipleFilter)
	workpool.Run(len(handles), cfg.MinBatchSizeAllowed, cfg.MaxThreadsAllowed, func(start, end int) {
		for _, h := range handles[start:end] {
			loc, ok := w.Located(h)
			if !ok {
				continue
			}
			col, ok := w.Collider(h)
			if !ok {
				continue
			}
			r := vecmath.Vector3{X: col.Radius, Y: col.Radius, Z: col.Radius}
			cells := g.GetNeighborCells(loc.Location, r)
			for _, c := range cells {
				insertAgent(g, c, h, loc.Location, col.Radius)
			}
		}
	})
}

func insertAgent(g *grid.Grid, c grid.CellPos, h entity.Handle, loc vecmath.Vector3, radius float64) {
	cell := g.At(c)
	cell.AppendAgent(grid.Avoiding{
		Handle:   h,
		Hash:     h.Hash(),
		Location: loc,
		Radius:   radius,
		Kind:     grid.KindAgent,
	})
	if cell.MarkRegisteredIfFirst() {
		g.Occupied().Enqueue(g.GetIndexAt(c))
	}
}

// RegisterSphereObstacles inserts every sphere obstacle into every cell its
// AABB overlaps, skipping statics that are already registered
// (RegisterSphereObstacles).
func RegisterSphereObstacles(w entity.World, g *grid.Grid, cfg Config) {
	handles := snapshot(w, SphereObstaclesFilter)
	workpool.Run(len(handles), cfg.MinBatchSizeAllowed, cfg.MaxThreadsAllowed, func(start, end int) {
		for _, h := range handles[start:end] {
			so, ok := w.SphereObstacle(h)
			if !ok || (so.Static && so.Registered) {
				continue
			}
			loc, ok := w.Located(h)
			if !ok {
				continue
			}
			r := vecmath.Vector3{X: so.Radius, Y: so.Radius, Z: so.Radius}
			cells := g.GetNeighborCells(loc.Location, r)
			for _, c := range cells {
				cell := g.At(c)
				cell.AppendSphereObstacle(grid.Avoiding{
					Handle:   h,
					Hash:     h.Hash(),
					Location: loc.Location,
					Radius:   so.Radius,
					Kind:     grid.KindSphereObstacle,
				}, so.Static)
				if cell.MarkRegisteredIfFirst() {
					g.Occupied().Enqueue(g.GetIndexAt(c))
				}
			}
			so.Registered = true
		}
	})
}

// RegisterBoxObstacles inserts every box-obstacle edge into every cell its
// swept vertical sheet overlaps, skipping statics already registered and
// nodes with a dangling prev/next link (RegisterBoxObstacles).
func RegisterBoxObstacles(w entity.World, g *grid.Grid, cfg Config) {
	handles := snapshot(w, BoxObstaclesFilter)
	workpool.Run(len(handles), cfg.MinBatchSizeAllowed, cfg.MaxThreadsAllowed, func(start, end int) {
		for _, h := range handles[start:end] {
			bo, ok := w.BoxObstacle(h)
			if !ok || (bo.Static && bo.Registered) {
				continue
			}
			if bo.Prev.Zero() || bo.Next.Zero() {
				continue
			}
			nextBo, ok := w.BoxObstacle(bo.Next)
			if !ok {
				continue
			}

			cellSize := g.Config().CellSize
			startZ := bo.Point3D.Z
			endZ := startZ + bo.Height
			sweepRadius := g.MaxCellSize() * 2.0

			seen := make(map[grid.CellPos]struct{})
			var ordered []grid.CellPos
			for z := startZ; z <= endZ; z += cellSize.Z {
				layerStart := vecmath.Vector3{X: bo.Point3D.X, Y: bo.Point3D.Y, Z: z}
				layerEnd := vecmath.Vector3{X: nextBo.Point3D.X, Y: nextBo.Point3D.Y, Z: z}
				for _, c := range g.SphereSweepForCells(layerStart, layerEnd, sweepRadius) {
					if _, dup := seen[c]; !dup {
						seen[c] = struct{}{}
						ordered = append(ordered, c)
					}
				}
			}

			for _, c := range ordered {
				cell := g.At(c)
				cell.AppendBoxObstacle(grid.Avoiding{
					Handle:   h,
					Hash:     h.Hash(),
					Location: bo.Point3D,
					Radius:   0,
					Kind:     grid.KindBoxObstacle,
				}, bo.Static)
				if cell.MarkRegisteredIfFirst() {
					g.Occupied().Enqueue(g.GetIndexAt(c))
				}
			}
			bo.Registered = true
		}
	})
}
