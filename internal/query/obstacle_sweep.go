package query

import (
	"math"

	"github.com/leroyworks/crowdgrid/internal/entity"
	"github.com/leroyworks/crowdgrid/internal/grid"
	"github.com/leroyworks/crowdgrid/internal/vecmath"
)

// ObstacleHit is the nearest obstacle struck by a sweep.
type ObstacleHit struct {
	Subject  entity.Handle
	Location vecmath.Vector3
	DistSq   float64
}

// SphereSweepForObstacle returns the nearest obstacle intersecting the
// capsule swept from start to end with the given radius (spec.md §4.4's
// obstacle sweep), scanning SphereSweepForCells's candidate cells in their
// z/y/x enumeration order. After the first hit it stops at the first cell
// whose distance from the swept segment, less half the largest cell size,
// squared, exceeds the best hit's squared distance from start; cells later
// in the enumeration are not examined, even if they lie nearer.
func (e *Engine) SphereSweepForObstacle(start, end vecmath.Vector3, radius float64) (ObstacleHit, bool) {
	cells := e.Grid.SphereSweepForCells(start, end, radius)
	cellMaxRadius := 0.5 * e.Grid.MaxCellSize()

	var best ObstacleHit
	found := false

	for _, c := range cells {
		if found {
			cellCenter := e.Grid.CageToWorld(c)
			marginDist := vecmath.PointToSegmentDistSq(cellCenter, start, end)
			margin := math.Sqrt(marginDist) - cellMaxRadius
			if margin > 0 && margin*margin > best.DistSq {
				break
			}
		}

		cell := e.Grid.At(c)
		for _, obs := range cell.ObstacleSubjects() {
			distSq, ok := e.obstacleHitDistSq(obs, start, end, radius)
			if !ok {
				continue
			}
			if !found || distSq < best.DistSq {
				best = ObstacleHit{Subject: obs.Handle, Location: obs.Location, DistSq: distSq}
				found = true
			}
		}
	}

	return best, found
}

// obstacleHitDistSq tests one obstacle snapshot against the sweep capsule
// and returns the squared distance from start to the obstacle's location
// when it's a hit. Sphere obstacles use the exact
// point-to-segment-distance test from spec.md §4.4. Box-obstacle edges use
// an XY-plane distance check plus a Z-overlap check rather than the full
// 4-vertex capsule-vs-box separating-axis test. The XY distance is taken
// between the sweep and the edge point nearest the sweep's start, which is
// not in general the minimum distance between the two segments, and the
// sweep radius is not added to the sweep's Z span, so this test can reject
// a capsule that crosses an edge obliquely or grazes the top or bottom of
// the obstacle.
func (e *Engine) obstacleHitDistSq(obs grid.Avoiding, start, end vecmath.Vector3, radius float64) (float64, bool) {
	switch obs.Kind {
	case grid.KindSphereObstacle:
		nearest, _ := vecmath.NearestOnSegment(obs.Location, start, end)
		combined := radius + obs.Radius
		if obs.Location.DistanceToSquared(nearest) > combined*combined {
			return 0, false
		}
		return start.DistanceToSquared(obs.Location), true

	case grid.KindBoxObstacle:
		bo, ok := e.World.BoxObstacle(obs.Handle)
		if !ok || bo.Next.Zero() {
			return 0, false
		}
		next, ok := e.World.BoxObstacle(bo.Next)
		if !ok {
			return 0, false
		}

		edgeStart := bo.Point3D
		edgeEnd := next.Point3D
		if !zOverlap(start.Z, end.Z, edgeStart.Z, edgeStart.Z+bo.Height) {
			return 0, false
		}

		flat := func(v vecmath.Vector3) vecmath.Vector3 { return vecmath.Vector3{X: v.X, Y: v.Y} }
		nearestOnEdge, _ := vecmath.NearestOnSegment(flat(start), flat(edgeStart), flat(edgeEnd))
		nearestOnSweep, _ := vecmath.NearestOnSegment(nearestOnEdge, flat(start), flat(end))
		if nearestOnSweep.DistanceToSquared(nearestOnEdge) > radius*radius {
			return 0, false
		}
		return start.DistanceToSquared(edgeStart), true

	default:
		return 0, false
	}
}

func zOverlap(aLo, aHi, bLo, bHi float64) bool {
	if aLo > aHi {
		aLo, aHi = aHi, aLo
	}
	return aLo <= bHi && bLo <= aHi
}
