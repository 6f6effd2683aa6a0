package query

import (
	"testing"

	"github.com/leroyworks/crowdgrid/internal/entity"
	"github.com/leroyworks/crowdgrid/internal/grid"
	"github.com/leroyworks/crowdgrid/internal/registrar"
	"github.com/leroyworks/crowdgrid/internal/vecmath"
)

func newTestGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.New(grid.Config{
		Origin:              vecmath.Vector3{X: -100, Y: -100, Z: -20},
		Dims:                grid.CellPos{X: 20, Y: 20, Z: 4},
		CellSize:            vecmath.Vector3{X: 10, Y: 10, Z: 10},
		MaxThreadsAllowed:   2,
		MinBatchSizeAllowed: 1,
	})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	return g
}

func spawnAgent(w *entity.Registry, pos vecmath.Vector3, radius float64) entity.Handle {
	h := w.Spawn()
	w.SetLocated(h, entity.Located{Location: pos, PreLocation: pos})
	w.SetCollider(h, entity.Collider{Radius: radius})
	w.SetAvoiding(h, true)
	w.SetActivated(h, true)
	return h
}

func registerAll(w entity.World, g *grid.Grid) {
	cfg := registrar.Config{MaxThreadsAllowed: 2, MinBatchSizeAllowed: 1}
	registrar.RegisterAgentSingle(w, g, cfg)
	registrar.RegisterAgentMultiple(w, g, cfg)
	registrar.RegisterSphereObstacles(w, g, cfg)
	registrar.RegisterBoxObstacles(w, g, cfg)
}

// Empty world: a sphere trace over a populated grid with no subjects inside
// radius should miss cleanly (spec.md §8 scenario 1, applied to the query
// layer).
func TestSphereTraceEmptyWorldMisses(t *testing.T) {
	g := newTestGrid(t)
	w := entity.NewRegistry()
	engine := NewEngine(g, w)

	result := engine.SphereTrace(vecmath.Vector3{X: 0, Y: 0, Z: 0}, 5, Options{KeepCount: -1, SortMode: SortNearToFar})
	if result.Hit {
		t.Fatalf("expected no hit in an empty world, got %+v", result.Results)
	}
}

// A sphere trace with KeepCount 1 among several overlapping agents must
// return exactly the nearest one (spec.md §8 scenario 3).
func TestSphereTraceKeepOneReturnsNearest(t *testing.T) {
	g := newTestGrid(t)
	w := entity.NewRegistry()

	near := spawnAgent(w, vecmath.Vector3{X: 1, Y: 0, Z: 0}, 1)
	far := spawnAgent(w, vecmath.Vector3{X: 4, Y: 0, Z: 0}, 1)
	_ = far

	registerAll(w, g)
	engine := NewEngine(g, w)

	result := engine.SphereTrace(vecmath.Vector3{X: 0, Y: 0, Z: 0}, 10, Options{
		KeepCount:  1,
		SortMode:   SortNearToFar,
		SortOrigin: vecmath.Vector3{X: 0, Y: 0, Z: 0},
	})
	if !result.Hit || len(result.Results) != 1 {
		t.Fatalf("expected exactly one hit, got %+v", result)
	}
	if result.Results[0].Subject != near {
		t.Errorf("expected nearest agent to win, got a different handle")
	}
}

// A sector trace should exclude subjects outside the angular cone even when
// they are within radius (spec.md §8 scenario 4).
func TestSectorTraceCullsOutsideCone(t *testing.T) {
	g := newTestGrid(t)
	w := entity.NewRegistry()

	inFront := spawnAgent(w, vecmath.Vector3{X: 5, Y: 0, Z: 0}, 1)
	behind := spawnAgent(w, vecmath.Vector3{X: -5, Y: 0, Z: 0}, 1)
	_ = behind

	registerAll(w, g)
	engine := NewEngine(g, w)

	result := engine.SectorTrace(
		vecmath.Vector3{X: 0, Y: 0, Z: 0}, 10, 10,
		vecmath.Vector3{X: 1, Y: 0, Z: 0}, 45,
		Options{KeepCount: -1, SortMode: SortNone},
	)
	if !result.Hit {
		t.Fatal("expected the forward agent to be found")
	}
	for _, r := range result.Results {
		if r.Subject == behind {
			t.Fatal("agent behind the origin should have been culled by the cone test")
		}
	}
	found := false
	for _, r := range result.Results {
		if r.Subject == inFront {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the forward agent in results")
	}
}

// Subjects excluded by opts.Filter must never appear in results, regardless
// of proximity.
func TestSphereTraceRespectsFilter(t *testing.T) {
	g := newTestGrid(t)
	w := entity.NewRegistry()

	h := spawnAgent(w, vecmath.Vector3{X: 1, Y: 0, Z: 0}, 1)
	w.SetDying(h, true)

	registerAll(w, g)
	engine := NewEngine(g, w)

	excludeDying := entity.NewFilter([]entity.TraitKind{entity.TraitCollider}, entity.TraitDying)
	result := engine.SphereTrace(vecmath.Vector3{}, 10, Options{KeepCount: -1, Filter: excludeDying})
	if result.Hit {
		t.Fatalf("expected the dying agent to be filtered out, got %+v", result.Results)
	}
}

// Ignored handles must never appear in results even if they would otherwise
// match.
func TestSphereTraceRespectsIgnore(t *testing.T) {
	g := newTestGrid(t)
	w := entity.NewRegistry()

	h := spawnAgent(w, vecmath.Vector3{X: 1, Y: 0, Z: 0}, 1)
	registerAll(w, g)
	engine := NewEngine(g, w)

	result := engine.SphereTrace(vecmath.Vector3{}, 10, Options{
		KeepCount: -1,
		Ignore:    map[entity.Handle]struct{}{h: {}},
	})
	if result.Hit {
		t.Fatal("expected the only candidate to be excluded via Ignore")
	}
}

// SphereSweepTrace should find a subject that lies near the midpoint of the
// swept segment even though it is far from both endpoints.
func TestSphereSweepTraceFindsSubjectAlongPath(t *testing.T) {
	g := newTestGrid(t)
	w := entity.NewRegistry()

	mid := spawnAgent(w, vecmath.Vector3{X: 5, Y: 0.5, Z: 0}, 1)
	registerAll(w, g)
	engine := NewEngine(g, w)

	result := engine.SphereSweepTrace(
		vecmath.Vector3{X: 0, Y: 0, Z: 0},
		vecmath.Vector3{X: 10, Y: 0, Z: 0},
		0.5,
		Options{KeepCount: -1},
	)
	if !result.Hit {
		t.Fatal("expected the sweep to find the agent near the path midpoint")
	}
	if result.Results[0].Subject != mid {
		t.Errorf("expected the midpoint agent, got a different handle")
	}
}
