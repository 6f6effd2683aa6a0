package orca

import (
	"math"

	"github.com/leroyworks/crowdgrid/internal/vecmath"
)

// AgentNeighbor is the planning-relevant snapshot of one nearby agent,
// gathered by the tick driver from a grid query (spec.md §4.4/§4.6).
type AgentNeighbor struct {
	Position vecmath.Vector2
	Velocity vecmath.Vector2
	Radius   float64
}

// SphereObstacleNeighbor is a circular static/dynamic obstacle, treated as a
// zero-velocity agent for ORCA purposes — the simplification
// SPEC_FULL.md documents for obstacles that are not box-obstacle segments.
type SphereObstacleNeighbor struct {
	Position vecmath.Vector2
	Radius   float64
}

// SegmentObstacleNeighbor is one edge of a convex or non-convex polyline
// obstacle chain (spec.md §3's BoxObstacle), named A->B with each
// endpoint's convexity and the unit direction of the edge starting at B
// (needed for the foreign-leg test on the right leg; the left leg's
// foreign test uses this edge's own direction, not the previous edge's).
type SegmentObstacleNeighbor struct {
	A, B    vecmath.Vector2
	ConvexA bool
	ConvexB bool
	NextDir vecmath.Vector2 // unit direction of the edge starting at B
}

func (s SegmentObstacleNeighbor) direction() vecmath.Vector2 {
	return s.B.Sub(s.A).Normalize()
}

// buildObstacleLines appends at most one ORCA half-plane per obstacle
// neighbor (sphere or segment) to lines, skipping any neighbor whose velocity
// obstacle is already dominated by a previously added obstacle line
// (the RVO "already covered" test).
func buildObstacleLines(lines []vecmath.Line, position, velocity vecmath.Vector2, radius float64, spheres []SphereObstacleNeighbor, segments []SegmentObstacleNeighbor, timeHorizonObstacle float64) []vecmath.Line {
	invTimeHorizonObst := 1.0 / timeHorizonObstacle

	for _, sphere := range spheres {
		lines = appendSphereObstacleLine(lines, position, velocity, radius, sphere, invTimeHorizonObst)
	}
	for _, seg := range segments {
		lines = appendSegmentObstacleLine(lines, position, velocity, radius, seg, invTimeHorizonObst)
	}
	return lines
}

func appendSphereObstacleLine(lines []vecmath.Line, position, velocity vecmath.Vector2, radius float64, o SphereObstacleNeighbor, invTimeHorizonObst float64) []vecmath.Line {
	relativePosition := o.Position.Sub(position)
	combinedRadius := radius + o.Radius
	combinedRadiusSq := vecmath.Sqr(combinedRadius)

	if alreadyCoveredByPoint(lines, relativePosition, combinedRadius, invTimeHorizonObst) {
		return lines
	}

	// A static obstacle has zero velocity, so relativeVelocity == velocity.
	w := velocity.Sub(relativePosition.Scale(invTimeHorizonObst))
	wLengthSq := w.LengthSquared()
	dotProduct := w.Dot(relativePosition)

	var line vecmath.Line
	if dotProduct < 0 && vecmath.Sqr(dotProduct) > combinedRadiusSq*wLengthSq {
		wLength := math.Sqrt(wLengthSq)
		unitW := w.Scale(1 / wLength)
		line.Direction = vecmath.Vector2{X: unitW.Y, Y: -unitW.X}
		u := unitW.Scale(combinedRadius*invTimeHorizonObst - wLength)
		line.Point = velocity.Add(u.Scale(0.5))
	} else {
		distSq := relativePosition.LengthSquared()
		leg := math.Sqrt(math.Max(0, distSq-combinedRadiusSq))
		var dir vecmath.Vector2
		if relativePosition.Det(w) > 0 {
			dir = vecmath.Vector2{
				X: relativePosition.X*leg - relativePosition.Y*combinedRadius,
				Y: relativePosition.X*combinedRadius + relativePosition.Y*leg,
			}.Scale(1 / distSq)
		} else {
			dir = vecmath.Vector2{
				X: relativePosition.X*leg + relativePosition.Y*combinedRadius,
				Y: -relativePosition.X*combinedRadius + relativePosition.Y*leg,
			}.Scale(-1 / distSq)
		}
		line.Direction = dir
		u := dir.Scale(velocity.Dot(dir)).Sub(velocity)
		line.Point = velocity.Add(u.Scale(0.5))
	}
	return append(lines, line)
}

func alreadyCoveredByPoint(lines []vecmath.Line, relativePosition vecmath.Vector2, combinedRadius, invTimeHorizonObst float64) bool {
	scaled := relativePosition.Scale(invTimeHorizonObst)
	for _, l := range lines {
		if scaled.Sub(l.Point).Det(l.Direction)-invTimeHorizonObst*combinedRadius >= -epsilon {
			return true
		}
	}
	return false
}

// appendSegmentObstacleLine ports NeighborGridComponent.cpp's per-edge ORCA
// obstacle-line construction: collision cases (vertex/segment), then the
// no-collision cut-off-circle/leg/cut-off-line region selection, with
// foreign-leg replacement against the adjoining edges.
func appendSegmentObstacleLine(lines []vecmath.Line, position, velocity vecmath.Vector2, radius float64, o SegmentObstacleNeighbor, invTimeHorizonObst float64) []vecmath.Line {
	relativePosition1 := o.A.Sub(position)
	relativePosition2 := o.B.Sub(position)

	if alreadyCoveredSegment(lines, relativePosition1, relativePosition2, invTimeHorizonObst) {
		return lines
	}

	distSq1 := relativePosition1.LengthSquared()
	distSq2 := relativePosition2.LengthSquared()
	radiusSq := vecmath.Sqr(radius)

	obstacleVector := o.B.Sub(o.A)
	s := relativePosition1.Scale(-1).Dot(obstacleVector) / obstacleVector.LengthSquared()
	distSqLine := relativePosition1.Scale(-1).Sub(obstacleVector.Scale(s)).LengthSquared()

	edgeDir := o.direction()

	switch {
	case s < 0 && distSq1 <= radiusSq:
		if o.ConvexA {
			dir := vecmath.Vector2{X: -relativePosition1.Y, Y: relativePosition1.X}.Normalize()
			lines = append(lines, vecmath.Line{Point: vecmath.Vector2{}, Direction: dir})
		}
		return lines
	case s > 1 && distSq2 <= radiusSq:
		if o.ConvexB && relativePosition2.Det(o.NextDir) >= 0 {
			dir := vecmath.Vector2{X: -relativePosition2.Y, Y: relativePosition2.X}.Normalize()
			lines = append(lines, vecmath.Line{Point: vecmath.Vector2{}, Direction: dir})
		}
		return lines
	case s >= 0 && s < 1 && distSqLine <= radiusSq:
		lines = append(lines, vecmath.Line{Point: vecmath.Vector2{}, Direction: edgeDir.Scale(-1)})
		return lines
	}

	// No collision: compute the two legs, treating a degenerate "point
	// obstacle" edge (non-convex endpoint) the same way RVO2 does.
	var leftLegDirection, rightLegDirection vecmath.Vector2
	obstacle1Convex, obstacle2Convex := o.ConvexA, o.ConvexB

	switch {
	case s < 0 && distSqLine <= radiusSq:
		if !obstacle1Convex {
			return lines
		}
		leg := math.Sqrt(math.Max(0, distSq1-radiusSq))
		leftLegDirection = vecmath.Vector2{
			X: relativePosition1.X*leg - relativePosition1.Y*radius,
			Y: relativePosition1.X*radius + relativePosition1.Y*leg,
		}.Scale(1 / distSq1)
		rightLegDirection = vecmath.Vector2{
			X: relativePosition1.X*leg + relativePosition1.Y*radius,
			Y: -relativePosition1.X*radius + relativePosition1.Y*leg,
		}.Scale(1 / distSq1)
	case s > 1 && distSqLine <= radiusSq:
		if !obstacle2Convex {
			return lines
		}
		leg := math.Sqrt(math.Max(0, distSq2-radiusSq))
		leftLegDirection = vecmath.Vector2{
			X: relativePosition2.X*leg - relativePosition2.Y*radius,
			Y: relativePosition2.X*radius + relativePosition2.Y*leg,
		}.Scale(1 / distSq2)
		rightLegDirection = vecmath.Vector2{
			X: relativePosition2.X*leg + relativePosition2.Y*radius,
			Y: -relativePosition2.X*radius + relativePosition2.Y*leg,
		}.Scale(1 / distSq2)
	default:
		if obstacle1Convex {
			leg1 := math.Sqrt(math.Max(0, distSq1-radiusSq))
			leftLegDirection = vecmath.Vector2{
				X: relativePosition1.X*leg1 - relativePosition1.Y*radius,
				Y: relativePosition1.X*radius + relativePosition1.Y*leg1,
			}.Scale(1 / distSq1)
		} else {
			leftLegDirection = edgeDir.Scale(-1)
		}
		if obstacle2Convex {
			leg2 := math.Sqrt(math.Max(0, distSq2-radiusSq))
			rightLegDirection = vecmath.Vector2{
				X: relativePosition2.X*leg2 + relativePosition2.Y*radius,
				Y: -relativePosition2.X*radius + relativePosition2.Y*leg2,
			}.Scale(1 / distSq2)
		} else {
			rightLegDirection = edgeDir
		}
	}

	isLeftLegForeign, isRightLegForeign := false, false
	if o.ConvexA && leftLegDirection.Det(edgeDir.Scale(-1)) >= 0 {
		leftLegDirection = edgeDir.Scale(-1)
		isLeftLegForeign = true
	}
	if o.ConvexB && rightLegDirection.Det(o.NextDir) <= 0 {
		rightLegDirection = o.NextDir
		isRightLegForeign = true
	}

	leftCutOff := relativePosition1.Scale(invTimeHorizonObst)
	rightCutOff := relativePosition2.Scale(invTimeHorizonObst)
	cutOffVector := rightCutOff.Sub(leftCutOff)

	t := 0.5
	if cutOffVector.LengthSquared() > 0 {
		t = velocity.Sub(leftCutOff).Dot(cutOffVector) / cutOffVector.LengthSquared()
	}
	tLeft := velocity.Sub(leftCutOff).Dot(leftLegDirection)
	tRight := velocity.Sub(rightCutOff).Dot(rightLegDirection)

	if t < 0 && tLeft < 0 {
		unitW := velocity.Sub(leftCutOff).Normalize()
		dir := vecmath.Vector2{X: unitW.Y, Y: -unitW.X}
		point := leftCutOff.Add(unitW.Scale(radius * invTimeHorizonObst))
		lines = append(lines, vecmath.Line{Point: point, Direction: dir})
		return lines
	}
	if t > 1 && tRight < 0 {
		unitW := velocity.Sub(rightCutOff).Normalize()
		dir := vecmath.Vector2{X: unitW.Y, Y: -unitW.X}
		point := rightCutOff.Add(unitW.Scale(radius * invTimeHorizonObst))
		lines = append(lines, vecmath.Line{Point: point, Direction: dir})
		return lines
	}

	distSqCutoff := math.Inf(1)
	if t >= 0 && t <= 1 {
		distSqCutoff = velocity.Sub(leftCutOff.Add(cutOffVector.Scale(t))).LengthSquared()
	}
	distSqLeft := math.Inf(1)
	if tLeft >= 0 {
		distSqLeft = velocity.Sub(leftCutOff.Add(leftLegDirection.Scale(tLeft))).LengthSquared()
	}
	distSqRight := math.Inf(1)
	if tRight >= 0 {
		distSqRight = velocity.Sub(rightCutOff.Add(rightLegDirection.Scale(tRight))).LengthSquared()
	}

	switch {
	case distSqCutoff <= distSqLeft && distSqCutoff <= distSqRight:
		dir := edgeDir.Scale(-1)
		perp := vecmath.Vector2{X: -dir.Y, Y: dir.X}
		lines = append(lines, vecmath.Line{
			Point:     leftCutOff.Add(perp.Scale(radius * invTimeHorizonObst)),
			Direction: dir,
		})
	case distSqLeft <= distSqRight:
		if isLeftLegForeign {
			return lines
		}
		perp := vecmath.Vector2{X: -leftLegDirection.Y, Y: leftLegDirection.X}
		lines = append(lines, vecmath.Line{
			Point:     leftCutOff.Add(perp.Scale(radius * invTimeHorizonObst)),
			Direction: leftLegDirection,
		})
	default:
		if isRightLegForeign {
			return lines
		}
		dir := rightLegDirection.Scale(-1)
		perp := vecmath.Vector2{X: -dir.Y, Y: dir.X}
		lines = append(lines, vecmath.Line{
			Point:     rightCutOff.Add(perp.Scale(radius * invTimeHorizonObst)),
			Direction: dir,
		})
	}
	return lines
}

func alreadyCoveredSegment(lines []vecmath.Line, relativePosition1, relativePosition2 vecmath.Vector2, invTimeHorizonObst float64) bool {
	for _, l := range lines {
		p1 := relativePosition1.Scale(invTimeHorizonObst).Sub(l.Point)
		p2 := relativePosition2.Scale(invTimeHorizonObst).Sub(l.Point)
		if p1.Det(l.Direction) >= -epsilon && p2.Det(l.Direction) >= -epsilon {
			return true
		}
	}
	return false
}

// buildAgentLines appends one ORCA half-plane per agent neighbor, assuming
// reciprocity (each side takes half the responsibility for avoidance).
func buildAgentLines(lines []vecmath.Line, position, velocity vecmath.Vector2, radius float64, neighbors []AgentNeighbor, timeHorizonAgent, timeStep float64) []vecmath.Line {
	invTimeHorizon := 1.0 / timeHorizonAgent

	for _, other := range neighbors {
		relativePosition := other.Position.Sub(position)
		relativeVelocity := velocity.Sub(other.Velocity)
		distSq := relativePosition.LengthSquared()
		combinedRadius := radius + other.Radius
		combinedRadiusSq := vecmath.Sqr(combinedRadius)

		var line vecmath.Line
		var u vecmath.Vector2

		if distSq > combinedRadiusSq {
			w := relativeVelocity.Sub(relativePosition.Scale(invTimeHorizon))
			wLengthSq := w.LengthSquared()
			dotProduct1 := w.Dot(relativePosition)

			if dotProduct1 < 0 && vecmath.Sqr(dotProduct1) > combinedRadiusSq*wLengthSq {
				wLength := math.Sqrt(wLengthSq)
				unitW := w.Scale(1 / wLength)
				line.Direction = vecmath.Vector2{X: unitW.Y, Y: -unitW.X}
				u = unitW.Scale(combinedRadius*invTimeHorizon - wLength)
			} else {
				leg := math.Sqrt(math.Max(0, distSq-combinedRadiusSq))
				if relativePosition.Det(w) > 0 {
					line.Direction = vecmath.Vector2{
						X: relativePosition.X*leg - relativePosition.Y*combinedRadius,
						Y: relativePosition.X*combinedRadius + relativePosition.Y*leg,
					}.Scale(1 / distSq)
				} else {
					line.Direction = vecmath.Vector2{
						X: relativePosition.X*leg + relativePosition.Y*combinedRadius,
						Y: -relativePosition.X*combinedRadius + relativePosition.Y*leg,
					}.Scale(-1 / distSq)
				}
				dotProduct2 := relativeVelocity.Dot(line.Direction)
				u = line.Direction.Scale(dotProduct2).Sub(relativeVelocity)
			}
		} else {
			invTimeStep := 1.0 / timeStep
			w := relativeVelocity.Sub(relativePosition.Scale(invTimeStep))
			wLength := w.Length()
			unitW := w.Scale(1 / wLength)
			line.Direction = vecmath.Vector2{X: unitW.Y, Y: -unitW.X}
			u = unitW.Scale(combinedRadius*invTimeStep - wLength)
		}

		line.Point = velocity.Add(u.Scale(0.5))
		lines = append(lines, line)
	}
	return lines
}
