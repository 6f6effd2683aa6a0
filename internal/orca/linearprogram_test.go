package orca

import (
	"math"
	"testing"

	"github.com/leroyworks/crowdgrid/internal/vecmath"
)

// A single line not containing the origin should push the optimum onto the
// line, on the feasible side.
func TestLinearProgram1SingleLine(t *testing.T) {
	lines := []vecmath.Line{
		{Point: vecmath.Vector2{X: 1, Y: 0}, Direction: vecmath.Vector2{X: 0, Y: 1}},
	}
	result, ok := linearProgram1(lines, 0, 10, vecmath.Vector2{X: 0, Y: 0}, false)
	if !ok {
		t.Fatal("expected line 0 to be feasible")
	}
	if math.Abs(result.X-1) > 1e-9 {
		t.Errorf("result = %+v, want X == 1", result)
	}
}

// Two parallel, opposite-facing lines with no overlap are infeasible.
func TestLinearProgram1InfeasibleParallelLines(t *testing.T) {
	lines := []vecmath.Line{
		{Point: vecmath.Vector2{X: 0, Y: 5}, Direction: vecmath.Vector2{X: 1, Y: 0}},
		{Point: vecmath.Vector2{X: 0, Y: -5}, Direction: vecmath.Vector2{X: -1, Y: 0}},
	}
	_, ok := linearProgram1(lines, 1, 10, vecmath.Vector2{}, false)
	if ok {
		t.Fatal("expected infeasibility for two opposing half-planes with no overlap")
	}
}

// With no constraint lines, LinearProgram2 should simply clamp optVelocity
// to the speed disc.
func TestLinearProgram2NoLinesClampsToRadius(t *testing.T) {
	result, failedAt := linearProgram2(nil, 2, vecmath.Vector2{X: 10, Y: 0}, false)
	if failedAt != 0 {
		t.Fatalf("failedAt = %d, want 0 (len(lines))", failedAt)
	}
	if math.Abs(result.Length()-2) > 1e-9 {
		t.Errorf("result length = %v, want 2", result.Length())
	}
}

// A single feasible line should leave an already-satisfying optVelocity
// untouched. The feasible side is left of the direction, so this line
// admits every velocity with X <= 1, including the origin.
func TestLinearProgram2SatisfiedLinePassesThrough(t *testing.T) {
	lines := []vecmath.Line{
		{Point: vecmath.Vector2{X: 1, Y: 0}, Direction: vecmath.Vector2{X: 0, Y: 1}},
	}
	opt := vecmath.Vector2{X: 0, Y: 0}
	result, failedAt := linearProgram2(lines, 5, opt, false)
	if failedAt != len(lines) {
		t.Fatalf("failedAt = %d, want %d", failedAt, len(lines))
	}
	if !approxEqual2(result, opt, 1e-9) {
		t.Errorf("result = %+v, want unchanged %+v", result, opt)
	}
}

// LinearProgram3's fallback must always produce a finite result within the
// speed disc, even when LinearProgram2 reports infeasibility.
func TestLinearProgram3StaysWithinSpeedDisc(t *testing.T) {
	// Two lines whose feasible half-planes don't overlap inside the disc.
	lines := []vecmath.Line{
		{Point: vecmath.Vector2{X: 0, Y: 3}, Direction: vecmath.Vector2{X: 1, Y: 0}},
		{Point: vecmath.Vector2{X: 0, Y: -3}, Direction: vecmath.Vector2{X: -1, Y: 0}},
	}
	radius := 1.0
	result, failedAt := linearProgram2(lines, radius, vecmath.Vector2{}, false)
	if failedAt >= len(lines) {
		t.Fatal("expected this scenario to be infeasible for linearProgram2")
	}
	result = linearProgram3(lines, 0, failedAt, radius, result)
	if result.Length() > radius+1e-6 {
		t.Errorf("fallback result %+v exceeds radius %v", result, radius)
	}
	if math.IsNaN(result.X) || math.IsNaN(result.Y) {
		t.Fatalf("fallback result is NaN: %+v", result)
	}
}
