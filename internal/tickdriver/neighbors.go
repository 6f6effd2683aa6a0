package tickdriver

import (
	"github.com/leroyworks/crowdgrid/internal/entity"
	"github.com/leroyworks/crowdgrid/internal/grid"
	"github.com/leroyworks/crowdgrid/internal/orca"
	"github.com/leroyworks/crowdgrid/internal/vecmath"
)

// gatherAgentNeighbors collects up to maxNeighbors live agents nearest to
// center, matching filter, excluding the querying agent by hash and
// deduped across whatever cells a multi-registered agent occupies
// (spec.md §4.6).
func (d *Driver) gatherAgentNeighbors(selfHash uint64, center vecmath.Vector3, rng float64, maxNeighbors int, filter entity.Filter) []orca.AgentNeighbor {
	r := vecmath.Vector3{X: rng, Y: rng, Z: rng}
	cells := d.Grid.GetNeighborCells(center, r)

	var all []grid.Avoiding
	bounded := newBoundedNeighbors(maxNeighbors)

	for _, c := range cells {
		for _, a := range d.Grid.At(c).Agents {
			if a.Hash == selfHash {
				continue
			}
			if !d.World.Matches(a.Handle, filter) {
				continue
			}
			distSq := center.DistanceToSquared(a.Location)
			idx := len(all)
			all = append(all, a)
			bounded.offer(a.Hash, idx, distSq)
		}
	}

	out := make([]orca.AgentNeighbor, 0, len(bounded.h))
	for _, idx := range bounded.indices() {
		a := all[idx]
		moving, ok := d.World.Moving(a.Handle)
		if !ok {
			continue
		}
		out = append(out, orca.AgentNeighbor{
			Position: a.Location.XY(),
			Velocity: moving.CurrentVelocity.XY(),
			Radius:   a.Radius,
		})
	}
	return out
}

// gatherObstacleNeighbors collects sphere and box obstacles within rng of
// center, filtering box-obstacle edges to the ones facing the agent
// (spec.md §4.6: Z-overlap and `leftOf(obstacle, pos) < 0`).
func (d *Driver) gatherObstacleNeighbors(center vecmath.Vector3, rng, selfRadius float64) ([]orca.SphereObstacleNeighbor, []orca.SegmentObstacleNeighbor) {
	r := vecmath.Vector3{X: rng, Y: rng, Z: selfRadius}
	cells := d.Grid.GetNeighborCells(center, r)

	var spheres []orca.SphereObstacleNeighbor
	var segments []orca.SegmentObstacleNeighbor
	seen := make(map[uint64]struct{})

	for _, c := range cells {
		for _, obs := range d.Grid.At(c).ObstacleSubjects() {
			if _, dup := seen[obs.Hash]; dup {
				continue
			}

			switch obs.Kind {
			case grid.KindSphereObstacle:
				so, ok := d.World.SphereObstacle(obs.Handle)
				if !ok || so.Excluded {
					continue
				}
				seen[obs.Hash] = struct{}{}
				spheres = append(spheres, orca.SphereObstacleNeighbor{Position: obs.Location.XY(), Radius: obs.Radius})

			case grid.KindBoxObstacle:
				seg, ok := d.resolveSegment(obs.Handle, center, selfRadius)
				if !ok {
					continue
				}
				seen[obs.Hash] = struct{}{}
				segments = append(segments, seg)
			}
		}
	}

	return spheres, segments
}

// resolveSegment builds the ORCA segment-neighbor view of a box-obstacle
// edge and applies the spec.md §4.6 facing filter. selfRadius extends the
// agent's Z extent for the overlap test, matching NeighborGridComponent.cpp's
// [Z-SelfRadius, Z+SelfRadius] range rather than a single Z point.
func (d *Driver) resolveSegment(h entity.Handle, agentPos vecmath.Vector3, selfRadius float64) (orca.SegmentObstacleNeighbor, bool) {
	bo, ok := d.World.BoxObstacle(h)
	if !ok || bo.Excluded || bo.Next.Zero() || bo.Prev.Zero() {
		return orca.SegmentObstacleNeighbor{}, false
	}
	next, ok := d.World.BoxObstacle(bo.Next)
	if !ok {
		return orca.SegmentObstacleNeighbor{}, false
	}
	if !zOverlap(agentPos.Z-selfRadius, agentPos.Z+selfRadius, bo.Point3D.Z, bo.Point3D.Z+bo.Height) {
		return orca.SegmentObstacleNeighbor{}, false
	}
	if vecmath.LeftOf(bo.Point2D, next.Point2D, agentPos.XY()) >= 0 {
		return orca.SegmentObstacleNeighbor{}, false
	}

	return orca.SegmentObstacleNeighbor{
		A:       bo.Point2D,
		B:       next.Point2D,
		ConvexA: bo.IsConvex,
		ConvexB: next.IsConvex,
		NextDir: next.UnitDir,
	}, true
}

func zOverlap(aLo, aHi, bLo, bHi float64) bool {
	if aLo > aHi {
		aLo, aHi = aHi, aLo
	}
	return aLo <= bHi && bLo <= aHi
}
