package query

import (
	"math"

	"github.com/leroyworks/crowdgrid/internal/grid"
	"github.com/leroyworks/crowdgrid/internal/vecmath"
)

// SphereTrace finds subjects within radius of origin (spec.md §4.4's
// SphereTrace primary test).
func (e *Engine) SphereTrace(origin vecmath.Vector3, radius float64, opts Options) Result {
	min, max := e.Grid.ExpandedCellAABB(origin, radius)
	cells := clippedRange(e.Grid, min, max)

	test := func(s grid.Avoiding) bool {
		return origin.DistanceTo(s.Location) <= radius+s.Radius
	}
	return e.run(cells, opts.SortOrigin, opts, (*grid.Cell).Subjects, test)
}

// SphereSweepTrace finds subjects along the swept capsule from start to end
// (spec.md §4.4's SphereSweep primary test).
func (e *Engine) SphereSweepTrace(start, end vecmath.Vector3, radius float64, opts Options) Result {
	cells := e.Grid.SphereSweepForCells(start, end, radius)

	test := func(s grid.Avoiding) bool {
		// NearestOnSegment clamps t into [0,1] itself, which already
		// realizes the projection-range cull spec.md §4.4 describes as
		// `-(r+R) <= t <= L+(r+R)`: a subject whose unclamped projection
		// falls outside that range only ever matches via its nearest
		// segment endpoint, same as the explicit cull would allow.
		nearest, _ := vecmath.NearestOnSegment(s.Location, start, end)
		combined := radius + s.Radius
		return s.Location.DistanceToSquared(nearest) < combined*combined
	}
	return e.run(cells, opts.SortOrigin, opts, (*grid.Cell).Subjects, test)
}

// SectorTrace finds subjects within an angular cone (spec.md §4.4's
// SectorTrace primary test).
func (e *Engine) SectorTrace(origin vecmath.Vector3, radius, height float64, direction vecmath.Vector3, angleDeg float64, opts Options) Result {
	min, max := e.Grid.ExpandedCellAABB(origin, math.Max(radius, height/2))
	cells := clippedRange(e.Grid, min, max)

	dirXY := direction.XY().Normalize()
	cosHalfAngle := math.Cos(angleDeg * math.Pi / 360.0)
	fullCircle := angleDeg >= 359.999

	test := func(s grid.Avoiding) bool {
		delta := s.Location.Sub(origin)
		deltaXY := delta.XY()
		xyDist := deltaXY.Length()
		if xyDist > radius+s.Radius {
			return false
		}
		if math.Abs(delta.Z) > height/2+s.Radius {
			return false
		}
		if fullCircle || xyDist == 0 {
			return true
		}
		return dirXY.Dot(deltaXY.Normalize()) >= cosHalfAngle
	}
	return e.run(cells, opts.SortOrigin, opts, (*grid.Cell).Subjects, test)
}

func clippedRange(g *grid.Grid, min, max grid.CellPos) []grid.CellPos {
	var out []grid.CellPos
	for z := min.Z; z <= max.Z; z++ {
		for y := min.Y; y <= max.Y; y++ {
			for x := min.X; x <= max.X; x++ {
				c := grid.CellPos{X: x, Y: y, Z: z}
				if g.IsInside(c) {
					out = append(out, c)
				}
			}
		}
	}
	return out
}
