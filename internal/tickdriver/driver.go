// Package tickdriver orchestrates one simulation frame: reset the grid's
// occupied cells, run every registration phase, then decouple every agent
// (gather neighbors, plan a collision-free velocity, integrate position).
// Grounded on the teacher's internal/game/room.go gameLoop/update
// (ticker-driven loop, delta-time clamp, mutex-guarded per-frame state)
// generalized from one room's entity set to the grid's own phase barriers,
// and on NeighborGridComponent.cpp's Decouple for the per-agent body.
package tickdriver

import (
	"github.com/leroyworks/crowdgrid/internal/entity"
	"github.com/leroyworks/crowdgrid/internal/grid"
	"github.com/leroyworks/crowdgrid/internal/orca"
	"github.com/leroyworks/crowdgrid/internal/query"
	"github.com/leroyworks/crowdgrid/internal/registrar"
	"github.com/leroyworks/crowdgrid/internal/vecmath"
	"github.com/leroyworks/crowdgrid/internal/workpool"
)

// MaxDeltaTime is the per-tick integration clamp from spec.md §4.6 — 1/30s,
// bounding drift from a stalled frame without affecting scheduling.
const MaxDeltaTime = 0.0333

// DecoupleFilter selects the agents Decouple plans for: every trait
// decoupleOne reads, excluding agents still Appearing. It is distinct from
// neighborBaseFilter, which selects the neighbors an agent avoids.
var DecoupleFilter = entity.NewFilter(
	[]entity.TraitKind{
		entity.TraitLocated, entity.TraitCollider, entity.TraitMove, entity.TraitMoving,
		entity.TraitAvoidance, entity.TraitAvoiding, entity.TraitActivated,
	},
	entity.TraitAppearing,
)

// neighborBaseFilter is spec.md §6's agent-neighbor filter, amended with a
// required Dying trait when the querying agent is itself Dying.
var neighborBaseFilter = entity.NewFilter(
	[]entity.TraitKind{entity.TraitLocated, entity.TraitCollider, entity.TraitAvoidance, entity.TraitAvoiding, entity.TraitActivated},
	entity.TraitSphereObstacle, entity.TraitBoxObstacle, entity.TraitCorpse,
)

// Driver runs one grid's per-tick pipeline.
type Driver struct {
	Grid     *grid.Grid
	World    entity.World
	Query    *query.Engine
	Registry registrar.Config
}

// New constructs a Driver over g and w, with registrar fan-out bounded by
// regCfg.
func New(g *grid.Grid, w entity.World, regCfg registrar.Config) *Driver {
	return &Driver{Grid: g, World: w, Query: query.NewEngine(g, w), Registry: regCfg}
}

// Tick runs Reset -> Register* -> Decouple for one frame of deltaTime
// seconds (spec.md §4.6).
func (d *Driver) Tick(deltaTime float64) {
	dt := vecmath.Clamp(deltaTime, 0, MaxDeltaTime)

	d.reset()

	registrar.RegisterTrace(d.World, d.Grid, d.Registry)
	registrar.RegisterSphereObstacleGridLink(d.World, d.Grid, d.Registry)
	registrar.RegisterAgentSingle(d.World, d.Grid, d.Registry)
	registrar.RegisterAgentMultiple(d.World, d.Grid, d.Registry)
	registrar.RegisterSphereObstacles(d.World, d.Grid, d.Registry)
	registrar.RegisterBoxObstacles(d.World, d.Grid, d.Registry)

	d.decouple(dt)
}

// reset drains every occupied-cells shard in parallel, clearing exactly the
// cells touched last tick — the O(occupied) reset spec.md §3 requires.
func (d *Driver) reset() {
	occupied := d.Grid.Occupied()
	workpool.Run(occupied.NumShards(), 1, d.Registry.MaxThreadsAllowed, func(start, end int) {
		for shard := start; shard < end; shard++ {
			for _, idx := range occupied.DrainShard(shard) {
				d.Grid.AtIndex(idx).Reset()
			}
		}
	})
}

func (d *Driver) decouple(dt float64) {
	handles := make([]entity.Handle, 0)
	d.World.ForEach(DecoupleFilter, func(h entity.Handle) {
		handles = append(handles, h)
	})

	workpool.Run(len(handles), d.Registry.MinBatchSizeAllowed, d.Registry.MaxThreadsAllowed, func(start, end int) {
		for _, h := range handles[start:end] {
			d.decoupleOne(h, dt)
		}
	})
}

func (d *Driver) decoupleOne(h entity.Handle, dt float64) {
	located, ok := d.World.Located(h)
	if !ok {
		return
	}
	collider, ok := d.World.Collider(h)
	if !ok {
		return
	}
	move, ok := d.World.Move(h)
	if !ok {
		return
	}
	moving, ok := d.World.Moving(h)
	if !ok {
		return
	}
	avoidance, ok := d.World.Avoidance(h)
	if !ok || !avoidance.Enable {
		return
	}

	selfHash := h.Hash()
	filter := neighborBaseFilter
	if d.World.HasTrait(h, entity.TraitDying) {
		filter = filter.With(entity.TraitDying)
	}

	avoidance.Position = located.Location.XY()
	avoidance.Radius = collider.Radius
	avoidance.MaxSpeed = vecmath.Clamp(move.MoveSpeed*moving.PassiveSpeedMult, avoidance.MinAvoidSpeed, 1e18)
	avoidance.DesiredVelocity = moving.DesiredVelocity.XY()
	avoidance.CurrentVelocity = moving.CurrentVelocity.XY()

	agentRange := avoidance.NeighborDist + avoidance.Radius
	agents := d.gatherAgentNeighbors(selfHash, located.Location, agentRange, avoidance.MaxNeighbors, filter)

	agentResult := orca.ComputeNewVelocity(orca.Request{
		Position:            avoidance.Position,
		Radius:              avoidance.Radius,
		MaxSpeed:            avoidance.MaxSpeed,
		DesiredVelocity:     avoidance.DesiredVelocity,
		CurrentVelocity:     avoidance.CurrentVelocity,
		TimeHorizonAgent:    avoidance.TimeHorizonAgent,
		TimeHorizonObstacle: avoidance.TimeHorizonObstacle,
		TimeStep:            dt,
	}, agents, nil, nil)
	avoidance.OrcaLines = agentResult.Lines
	avoidance.AvoidingVelocity = agentResult.Velocity

	if !moving.Falling && moving.LaunchTimer <= 0 {
		rate := vecmath.Clamp(move.Acceleration/100, 0.0001, 1e18)
		moving.CurrentVelocity = interpolateVelocity(moving.CurrentVelocity, avoidance.AvoidingVelocity, rate, dt)
	}

	obstacleRange := avoidance.TimeHorizonObstacle*avoidance.MaxSpeed + avoidance.Radius
	spheres, segments := d.gatherObstacleNeighbors(located.Location, obstacleRange, avoidance.Radius)

	if moving.PushedBack {
		avoidance.MaxSpeed = vecmath.Clamp(moving.CurrentVelocity.XY().Length(), moving.PushBackSpeedOverride, 1e18)
	} else {
		avoidance.MaxSpeed = moving.CurrentVelocity.XY().Length()
	}
	avoidance.DesiredVelocity = moving.CurrentVelocity.XY()
	avoidance.CurrentVelocity = moving.CurrentVelocity.XY()

	obstacleResult := orca.ComputeNewVelocity(orca.Request{
		Position:            avoidance.Position,
		Radius:              avoidance.Radius,
		MaxSpeed:            avoidance.MaxSpeed,
		DesiredVelocity:     avoidance.DesiredVelocity,
		CurrentVelocity:     avoidance.CurrentVelocity,
		TimeHorizonAgent:    avoidance.TimeHorizonAgent,
		TimeHorizonObstacle: avoidance.TimeHorizonObstacle,
		TimeStep:            dt,
	}, nil, spheres, segments)
	avoidance.OrcaLines = obstacleResult.Lines
	avoidance.AvoidingVelocity = obstacleResult.Velocity

	z := moving.CurrentVelocity.Z
	moving.CurrentVelocity = avoidance.AvoidingVelocity.To3(z)

	located.PreLocation = located.Location
	located.Location = located.Location.Add(moving.CurrentVelocity.Scale(dt))
}

// interpolateVelocity moves current toward target by the fraction
// clamp(rate*dt, 0, 1) of the remaining gap, the "VInterpTo" inertia step
// from NeighborGridComponent.cpp's Decouple, preserving Z.
func interpolateVelocity(current vecmath.Vector3, target vecmath.Vector2, rate, dt float64) vecmath.Vector3 {
	z := current.Z
	cur2 := current.XY()
	delta := target.Sub(cur2)
	frac := vecmath.Clamp(rate*dt, 0, 1)
	return cur2.Add(delta.Scale(frac)).To3(z)
}
