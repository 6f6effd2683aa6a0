package registrar

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/leroyworks/crowdgrid/internal/entity"
	"github.com/leroyworks/crowdgrid/internal/grid"
	"github.com/leroyworks/crowdgrid/internal/vecmath"
)

func newTestGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.New(grid.Config{
		Origin:              vecmath.Vector3{X: -50, Y: -50, Z: -10},
		Dims:                grid.CellPos{X: 10, Y: 10, Z: 2},
		CellSize:            vecmath.Vector3{X: 10, Y: 10, Z: 10},
		MaxThreadsAllowed:   4,
		MinBatchSizeAllowed: 1,
	})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	return g
}

func TestRegisterAgentSingleInsertsIntoHomeCell(t *testing.T) {
	Convey("Given one agent eligible for single-cell registration", t, func() {
		g := newTestGrid(t)
		w := entity.NewRegistry()
		h := w.Spawn()
		pos := vecmath.Vector3{X: 2, Y: 3, Z: 0}
		w.SetLocated(h, entity.Located{Location: pos, PreLocation: pos})
		w.SetCollider(h, entity.Collider{Radius: 1})
		w.SetAvoiding(h, true)
		w.SetActivated(h, true)

		cfg := Config{MaxThreadsAllowed: 2, MinBatchSizeAllowed: 1}
		RegisterAgentSingle(w, g, cfg)

		Convey("The agent should appear in exactly its home cell", func() {
			home := g.At(g.WorldToCage(pos))
			So(len(home.Agents), ShouldEqual, 1)
			So(home.Agents[0].Handle, ShouldEqual, h)
		})

		Convey("The home cell should be marked occupied", func() {
			drained := g.Occupied().DrainShard(g.GetIndexAt(g.WorldToCage(pos)) % g.Occupied().NumShards())
			So(drained, ShouldContain, g.GetIndexAt(g.WorldToCage(pos)))
		})
	})
}

func TestRegisterAgentMultipleSpansMultipleCells(t *testing.T) {
	Convey("Given an oversized agent flagged for multi-cell registration", t, func() {
		g := newTestGrid(t)
		w := entity.NewRegistry()
		h := w.Spawn()
		pos := vecmath.Vector3{X: 0, Y: 0, Z: 0}
		w.SetLocated(h, entity.Located{Location: pos, PreLocation: pos})
		w.SetCollider(h, entity.Collider{Radius: 15})
		w.SetAvoiding(h, true)
		w.SetActivated(h, true)
		w.SetRegisterMultiple(h, true)

		cfg := Config{MaxThreadsAllowed: 2, MinBatchSizeAllowed: 1}
		RegisterAgentMultiple(w, g, cfg)

		Convey("The agent should be inserted into more than one cell", func() {
			count := 0
			for x := 0; x < 10; x++ {
				for y := 0; y < 10; y++ {
					for z := 0; z < 2; z++ {
						cell := g.At(grid.CellPos{X: x, Y: y, Z: z})
						for _, a := range cell.Agents {
							if a.Handle == h {
								count++
							}
						}
					}
				}
			}
			So(count, ShouldBeGreaterThan, 1)
		})
	})
}

func TestRegisterSphereObstaclesSkipsAlreadyRegisteredStatics(t *testing.T) {
	Convey("Given a static sphere obstacle already marked Registered", t, func() {
		g := newTestGrid(t)
		w := entity.NewRegistry()
		h := w.Spawn()
		pos := vecmath.Vector3{X: 1, Y: 1, Z: 0}
		w.SetLocated(h, entity.Located{Location: pos, PreLocation: pos})
		w.SetCollider(h, entity.Collider{Radius: 1})
		w.SetAvoiding(h, true)
		w.SetSphereObstacle(h, entity.SphereObstacle{Location: pos, Radius: 1, Static: true, Registered: true})

		cfg := Config{MaxThreadsAllowed: 2, MinBatchSizeAllowed: 1}
		RegisterSphereObstacles(w, g, cfg)

		Convey("It should not be re-inserted", func() {
			home := g.At(g.WorldToCage(pos))
			So(len(home.SphereObstaclesStatic), ShouldEqual, 0)
		})
	})
}

func TestRegisterSphereObstaclesInsertsNewStatics(t *testing.T) {
	Convey("Given a static sphere obstacle not yet registered", t, func() {
		g := newTestGrid(t)
		w := entity.NewRegistry()
		h := w.Spawn()
		pos := vecmath.Vector3{X: 1, Y: 1, Z: 0}
		w.SetLocated(h, entity.Located{Location: pos, PreLocation: pos})
		w.SetCollider(h, entity.Collider{Radius: 1})
		w.SetAvoiding(h, true)
		w.SetSphereObstacle(h, entity.SphereObstacle{Location: pos, Radius: 1, Static: true})

		cfg := Config{MaxThreadsAllowed: 2, MinBatchSizeAllowed: 1}
		RegisterSphereObstacles(w, g, cfg)

		Convey("It should be inserted and marked Registered", func() {
			home := g.At(g.WorldToCage(pos))
			So(len(home.SphereObstaclesStatic), ShouldEqual, 1)
			so, _ := w.SphereObstacle(h)
			So(so.Registered, ShouldBeTrue)
		})
	})
}

func TestRegisterBoxObstaclesSkipsDanglingLinks(t *testing.T) {
	Convey("Given a box-obstacle node with no Prev/Next link", t, func() {
		g := newTestGrid(t)
		w := entity.NewRegistry()
		h := w.Spawn()
		w.SetLocated(h, entity.Located{})
		w.SetAvoiding(h, true)
		w.SetBoxObstacle(h, entity.BoxObstacle{Point3D: vecmath.Vector3{}, Height: 10})

		cfg := Config{MaxThreadsAllowed: 2, MinBatchSizeAllowed: 1}
		So(func() { RegisterBoxObstacles(w, g, cfg) }, ShouldNotPanic)

		Convey("It should be skipped without being marked Registered", func() {
			bo, _ := w.BoxObstacle(h)
			So(bo.Registered, ShouldBeFalse)
		})
	})
}

func TestRegisterBoxObstaclesInsertsChainedEdge(t *testing.T) {
	Convey("Given two linked box-obstacle nodes forming one edge", t, func() {
		g := newTestGrid(t)
		w := entity.NewRegistry()

		a := w.Spawn()
		b := w.Spawn()

		w.SetLocated(a, entity.Located{Location: vecmath.Vector3{X: -5, Y: 0, Z: 0}})
		w.SetLocated(b, entity.Located{Location: vecmath.Vector3{X: 5, Y: 0, Z: 0}})
		w.SetAvoiding(a, true)
		w.SetAvoiding(b, true)

		w.SetBoxObstacle(a, entity.BoxObstacle{
			Prev: b, Next: b,
			Point3D: vecmath.Vector3{X: -5, Y: 0, Z: 0}, Height: 10,
		})
		w.SetBoxObstacle(b, entity.BoxObstacle{
			Prev: a, Next: a,
			Point3D: vecmath.Vector3{X: 5, Y: 0, Z: 0}, Height: 10,
		})

		cfg := Config{MaxThreadsAllowed: 2, MinBatchSizeAllowed: 1}
		RegisterBoxObstacles(w, g, cfg)

		Convey("Cells along the swept edge should carry a box-obstacle snapshot", func() {
			total := 0
			for x := 0; x < 10; x++ {
				for y := 0; y < 10; y++ {
					for z := 0; z < 2; z++ {
						cell := g.At(grid.CellPos{X: x, Y: y, Z: z})
						total += len(cell.BoxObstaclesDynamic) + len(cell.BoxObstaclesStatic)
					}
				}
			}
			So(total, ShouldBeGreaterThan, 0)
		})
	})
}

// Two registration phases running concurrently against the same grid, each
// fanning its own batches out via workpool, must not corrupt any cell's
// buckets. (Driver.Tick runs the phases one after another; this test is
// stricter than that.)
func TestConcurrentRegistrationPhasesDoNotRace(t *testing.T) {
	Convey("Given agents and sphere obstacles registered concurrently", t, func() {
		g := newTestGrid(t)
		w := entity.NewRegistry()

		for i := 0; i < 20; i++ {
			h := w.Spawn()
			pos := vecmath.Vector3{X: float64(i % 10), Y: float64(i % 10), Z: 0}
			w.SetLocated(h, entity.Located{Location: pos, PreLocation: pos})
			w.SetCollider(h, entity.Collider{Radius: 1})
			w.SetAvoiding(h, true)
			w.SetActivated(h, true)
		}
		for i := 0; i < 20; i++ {
			h := w.Spawn()
			pos := vecmath.Vector3{X: float64(i % 10), Y: float64(i % 10), Z: 0}
			w.SetLocated(h, entity.Located{Location: pos, PreLocation: pos})
			w.SetCollider(h, entity.Collider{Radius: 1})
			w.SetAvoiding(h, true)
			w.SetSphereObstacle(h, entity.SphereObstacle{Location: pos, Radius: 1})
		}

		cfg := Config{MaxThreadsAllowed: 4, MinBatchSizeAllowed: 1}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); RegisterAgentSingle(w, g, cfg) }()
		go func() { defer wg.Done(); RegisterSphereObstacles(w, g, cfg) }()
		wg.Wait()

		// Agents register into their home cell only: 20 snapshots. Sphere
		// obstacles register into every cell their radius-1 AABB overlaps:
		// at (0,0,0) and (9,9,0) that straddles cell boundaries on x, y and
		// z (8 cells), elsewhere only on z (2 cells). Each position is used
		// twice, so 2*(8+8+8*2) = 64 obstacle snapshots.
		Convey("Every agent should be registered once and every obstacle once per overlapped cell", func() {
			agents, obstacles := 0, 0
			for x := 0; x < 10; x++ {
				for y := 0; y < 10; y++ {
					for z := 0; z < 2; z++ {
						cell := g.At(grid.CellPos{X: x, Y: y, Z: z})
						agents += len(cell.Agents)
						obstacles += len(cell.SphereObstaclesDynamic) + len(cell.SphereObstaclesStatic)
					}
				}
			}
			So(agents, ShouldEqual, 20)
			So(obstacles, ShouldEqual, 64)
		})
	})
}
