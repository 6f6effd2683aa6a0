package orca

import "github.com/leroyworks/crowdgrid/internal/vecmath"

// Request bundles the per-agent state ComputeNewVelocity needs: its own
// position/radius/speed limits plus the desired and current velocity to
// plan from (spec.md §3's Avoidance trait).
type Request struct {
	Position        vecmath.Vector2
	Radius          float64
	MaxSpeed        float64
	DesiredVelocity vecmath.Vector2
	CurrentVelocity vecmath.Vector2

	TimeHorizonAgent    float64
	TimeHorizonObstacle float64
	TimeStep            float64
}

// Result is the planned velocity plus the ORCA lines that produced it,
// exposed for callers that want to inspect infeasibility (spec.md §4.5
// leaves OrcaLines on the trait as scratch for exactly this).
type Result struct {
	Velocity vecmath.Vector2
	Lines    []vecmath.Line
}

// ComputeNewVelocity builds the obstacle ORCA lines, then the agent ORCA
// lines, and projects req.DesiredVelocity onto their intersection via
// LinearProgram2, falling back to LinearProgram3's 3D relaxation if any
// line is infeasible. This mirrors NeighborGridComponent.cpp's
// ComputeNewVelocity, called once per Decouple phase (agents-only, then
// obstacles-only) with the matching neighbor sets passed in and the other
// left empty.
func ComputeNewVelocity(req Request, agents []AgentNeighbor, spheres []SphereObstacleNeighbor, segments []SegmentObstacleNeighbor) Result {
	var lines []vecmath.Line
	lines = buildObstacleLines(lines, req.Position, req.CurrentVelocity, req.Radius, spheres, segments, req.TimeHorizonObstacle)
	numObstLines := len(lines)

	lines = buildAgentLines(lines, req.Position, req.CurrentVelocity, req.Radius, agents, req.TimeHorizonAgent, req.TimeStep)

	result, failedLine := linearProgram2(lines, req.MaxSpeed, req.DesiredVelocity, false)
	if failedLine < len(lines) {
		result = linearProgram3(lines, numObstLines, failedLine, req.MaxSpeed, result)
	}

	return Result{Velocity: result, Lines: lines}
}
