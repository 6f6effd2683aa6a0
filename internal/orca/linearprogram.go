// Package orca implements the ORCA (Optimal Reciprocal Collision Avoidance)
// half-plane construction and sequential linear-program projection that
// back the grid's per-agent velocity planner (spec.md §4.5). The line
// construction is ported from
// original_source/.../NeighborGridComponent.cpp's ComputeNewVelocity; that
// file calls out to LinearProgram1/2/3 without defining them, so this
// module implements them from the public RVO2 reference algorithm
// (van den Berg, Guy, Lin, Manocha) rather than from retrieved source.
package orca

import (
	"math"

	"github.com/leroyworks/crowdgrid/internal/vecmath"
)

// epsilon guards the near-parallel-lines branches in every linear program,
// matching RVO2's own tolerance for "effectively zero" determinants.
const epsilon = 1e-5

// linearProgram1 finds the point on lines[lineNo] closest to (or furthest
// along, under directionOpt) optVelocity while respecting every preceding
// line in lines[:lineNo] and staying within the speed disc of radius
// radius. Reports false if lines[lineNo] is infeasible given those
// constraints.
func linearProgram1(lines []vecmath.Line, lineNo int, radius float64, optVelocity vecmath.Vector2, directionOpt bool) (vecmath.Vector2, bool) {
	dotProduct := lines[lineNo].Point.Dot(lines[lineNo].Direction)
	discriminant := vecmath.Sqr(dotProduct) + vecmath.Sqr(radius) - lines[lineNo].Point.LengthSquared()
	if discriminant < 0 {
		return vecmath.Vector2{}, false
	}

	sqrtDiscriminant := math.Sqrt(discriminant)
	tLeft := -dotProduct - sqrtDiscriminant
	tRight := -dotProduct + sqrtDiscriminant

	for i := 0; i < lineNo; i++ {
		denominator := lines[lineNo].Direction.Det(lines[i].Direction)
		numerator := lines[i].Direction.Det(lines[lineNo].Point.Sub(lines[i].Point))

		if math.Abs(denominator) <= epsilon {
			if numerator < 0 {
				return vecmath.Vector2{}, false
			}
			continue
		}

		t := numerator / denominator
		if denominator >= 0 {
			tRight = math.Min(tRight, t)
		} else {
			tLeft = math.Max(tLeft, t)
		}
		if tLeft > tRight {
			return vecmath.Vector2{}, false
		}
	}

	var t float64
	if directionOpt {
		if optVelocity.Dot(lines[lineNo].Direction) > 0 {
			t = tRight
		} else {
			t = tLeft
		}
	} else {
		t = lines[lineNo].Direction.Dot(optVelocity.Sub(lines[lineNo].Point))
		t = vecmath.Clamp(t, tLeft, tRight)
	}
	return lines[lineNo].Point.Add(lines[lineNo].Direction.Scale(t)), true
}

// linearProgram2 finds the velocity closest to optVelocity (or, under
// directionOpt, the fastest velocity in the direction optVelocity) that
// satisfies every line in lines and lies within the speed disc of radius
// radius. Returns the feasible result and len(lines); on infeasibility it
// returns the best result found before failure and the index of the first
// line that could not be satisfied.
func linearProgram2(lines []vecmath.Line, radius float64, optVelocity vecmath.Vector2, directionOpt bool) (vecmath.Vector2, int) {
	var result vecmath.Vector2
	if directionOpt {
		result = optVelocity.Scale(radius)
	} else if optVelocity.LengthSquared() > vecmath.Sqr(radius) {
		result = optVelocity.Normalize().Scale(radius)
	} else {
		result = optVelocity
	}

	for i, line := range lines {
		if line.Direction.Det(line.Point.Sub(result)) > 0 {
			candidate, ok := linearProgram1(lines, i, radius, optVelocity, directionOpt)
			if !ok {
				return result, i
			}
			result = candidate
		}
	}
	return result, len(lines)
}

// linearProgram3 is the 3D fallback invoked when linearProgram2 fails on
// line beginLine: it relaxes the problem by, for each line from beginLine
// onward that the running result violates by more than the current
// distance, projecting every earlier agent line (lines[numObstLines:i])
// onto it, keeping the obstacle lines unchanged, and re-solving with
// linearProgram2 toward the line's inward normal, progressively reducing the
// worst violation instead of leaving the result undefined.
func linearProgram3(lines []vecmath.Line, numObstLines, beginLine int, radius float64, result vecmath.Vector2) vecmath.Vector2 {
	distance := 0.0

	for i := beginLine; i < len(lines); i++ {
		if lines[i].Direction.Det(lines[i].Point.Sub(result)) <= distance {
			continue
		}

		projLines := make([]vecmath.Line, numObstLines, len(lines))
		copy(projLines, lines[:numObstLines])

		for j := numObstLines; j < i; j++ {
			var line vecmath.Line
			determinant := lines[i].Direction.Det(lines[j].Direction)

			if math.Abs(determinant) <= epsilon {
				if lines[i].Direction.Dot(lines[j].Direction) > 0 {
					continue
				}
				line.Point = lines[i].Point.Add(lines[j].Point).Scale(0.5)
			} else {
				t := lines[j].Direction.Det(lines[i].Point.Sub(lines[j].Point)) / determinant
				line.Point = lines[i].Point.Add(lines[i].Direction.Scale(t))
			}

			line.Direction = lines[j].Direction.Sub(lines[i].Direction).Normalize()
			projLines = append(projLines, line)
		}

		perp := vecmath.Vector2{X: -lines[i].Direction.Y, Y: lines[i].Direction.X}
		candidate, fails := linearProgram2(projLines, radius, perp, true)
		if fails < len(projLines) {
			// Should only be possible due to floating point error; keep the
			// previous result rather than propagate an inconsistent one.
		} else {
			result = candidate
		}

		distance = lines[i].Direction.Det(lines[i].Point.Sub(result))
	}

	return result
}
