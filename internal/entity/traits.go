package entity

import "github.com/leroyworks/crowdgrid/internal/vecmath"

// TraitKind enumerates the trait presence/absence a Filter can test for.
// This is the Go stand-in for the host ECS's trait-type tokens (spec.md
// §6's H.hasTrait<T>()).
type TraitKind int

const (
	TraitLocated TraitKind = iota
	TraitCollider
	TraitMove
	TraitMoving
	TraitAvoidance
	TraitAvoiding
	TraitTrace
	TraitSphereObstacle
	TraitBoxObstacle
	TraitActivated
	TraitRegisterMultiple
	TraitDying
	TraitCorpse
	TraitAppearing
)

// Located is the entity's current and previous-tick world position.
type Located struct {
	Location    vecmath.Vector3
	PreLocation vecmath.Vector3
}

// Collider is the entity's collision radius, used for AABB expansion and
// geometric tests.
type Collider struct {
	Radius float64
}

// Move holds the entity's locomotion parameters.
type Move struct {
	MoveSpeed    float64
	Acceleration float64
}

// Moving is the entity's velocity state, driven by the tick driver.
type Moving struct {
	DesiredVelocity       vecmath.Vector3
	CurrentVelocity       vecmath.Vector3
	PassiveSpeedMult      float64
	Falling               bool
	LaunchTimer           float64
	PushedBack            bool
	PushBackSpeedOverride float64
}

// Avoidance holds an agent's ORCA planning state and scratch.
type Avoidance struct {
	Enable bool

	Position         vecmath.Vector2
	Radius           float64
	MaxSpeed         float64
	DesiredVelocity  vecmath.Vector2
	CurrentVelocity  vecmath.Vector2
	AvoidingVelocity vecmath.Vector2

	NeighborDist        float64
	MaxNeighbors        int
	TimeHorizonAgent    float64
	TimeHorizonObstacle float64
	MinAvoidSpeed       float64
	IgnoreGroups        uint32

	// OrcaLines is agent-local scratch, written only by the owning task
	// during Decouple (spec.md §5).
	OrcaLines []vecmath.Line
}

// Trace binds an agent to the grid it should query this tick. NeighborGrid
// is typed `any` to avoid an import cycle with package grid — callers type
// assert to *grid.Grid.
type Trace struct {
	NeighborGrid any
}

// Avoiding is a marker trait: its presence means the entity participates in
// per-tick cell registration. The cell-resident position/radius snapshot
// lives in package grid as grid.Avoiding, a distinct (if confusingly
// same-named in the source material) concept.
type Avoiding struct{}

// Activated marks an entity as live and eligible for registration/queries.
type Activated struct{}

// RegisterMultiple marks an agent for multi-cell (AABB) registration
// instead of the single-cell fast path.
type RegisterMultiple struct{}

// Dying marks an agent mid-death-animation; per spec.md §6 this narrows the
// agent-neighbor filter to other Dying agents only.
type Dying struct{}

// Corpse marks a dead entity excluded from neighbor gathering.
type Corpse struct{}

// Appearing marks an entity still spawning in, excluded from Decouple.
type Appearing struct{}

// SphereObstacle is a circular static/dynamic obstacle.
type SphereObstacle struct {
	Location   vecmath.Vector3
	Radius     float64
	Static     bool
	Registered bool
	Excluded   bool

	// NeighborGrid is bound by RegisterSphereObstacleGridLink, the same
	// way an agent's Trace learns its grid.
	NeighborGrid any
}

// BoxObstacle is one vertex of a convex polyline obstacle chain. The ORCA
// segment for a node spans Point3D to Next's Point3D, extruded vertically
// by Height.
type BoxObstacle struct {
	Prev, Next Handle

	Point2D  vecmath.Vector2
	UnitDir  vecmath.Vector2
	IsConvex bool

	Point3D vecmath.Vector3
	Height  float64

	Static     bool
	Registered bool
	Excluded   bool
}
