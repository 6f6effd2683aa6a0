// Command simdemo exercises the full grid/registrar/orca/tickdriver
// pipeline end to end without any networking or rendering layer attached
// — a small population of agents circling toward opposite targets, logged
// every few ticks so the ORCA avoidance is visible in the numbers.
// Grounded on the teacher's internal/game/room.go gameLoop, generalized
// from a websocket-driven room loop to a standalone ticker loop with no
// transport (spec.md §1's Non-goals explicitly exclude networking).
package main

import (
	"flag"
	"log"
	"math"
	"time"

	"github.com/leroyworks/crowdgrid/internal/entity"
	"github.com/leroyworks/crowdgrid/internal/grid"
	"github.com/leroyworks/crowdgrid/internal/registrar"
	"github.com/leroyworks/crowdgrid/internal/tickdriver"
	"github.com/leroyworks/crowdgrid/internal/vecmath"
)

func main() {
	agentCount := flag.Int("agents", 32, "number of agents to simulate")
	ticks := flag.Int("ticks", 200, "number of ticks to run")
	logEvery := flag.Int("log-every", 20, "log a position snapshot every N ticks")
	flag.Parse()

	world := entity.NewRegistry()

	g, err := grid.New(grid.Config{
		Origin:              vecmath.Vector3{X: -500, Y: -500, Z: -50},
		Dims:                grid.CellPos{X: 20, Y: 20, Z: 2},
		CellSize:            vecmath.Vector3{X: 50, Y: 50, Z: 50},
		MaxThreadsAllowed:   4,
		MinBatchSizeAllowed: 8,
	})
	if err != nil {
		log.Fatalf("simdemo: grid.New: %v", err)
	}

	handles := spawnAgentsOnCircle(world, *agentCount, 400)

	driver := tickdriver.New(g, world, registrar.Config{
		MaxThreadsAllowed:   g.Config().MaxThreadsAllowed,
		MinBatchSizeAllowed: g.Config().MinBatchSizeAllowed,
	})

	const dt = 1.0 / 30.0
	start := time.Now()
	for tick := 0; tick < *ticks; tick++ {
		driver.Tick(dt)
		if *logEvery > 0 && tick%*logEvery == 0 {
			logSnapshot(world, handles, tick)
		}
	}
	log.Printf("simdemo: %d ticks over %d agents in %s", *ticks, *agentCount, time.Since(start))
}

// spawnAgentsOnCircle places agentCount agents evenly around a circle of
// the given radius, each desiring to move straight through the center to
// the opposite side — the classic ORCA "circle crossing" stress scenario.
func spawnAgentsOnCircle(w *entity.Registry, agentCount int, radius float64) []entity.Handle {
	handles := make([]entity.Handle, agentCount)
	for i := 0; i < agentCount; i++ {
		theta := 2 * math.Pi * float64(i) / float64(agentCount)
		pos := vecmath.Vector3{X: radius * math.Cos(theta), Y: radius * math.Sin(theta), Z: 0}
		target := pos.Scale(-1)
		desired := target.Sub(pos).Normalize().Scale(60)

		h := w.Spawn()
		w.SetLocated(h, entity.Located{Location: pos, PreLocation: pos})
		w.SetCollider(h, entity.Collider{Radius: 10})
		w.SetMove(h, entity.Move{MoveSpeed: 60, Acceleration: 2000})
		w.SetMoving(h, entity.Moving{DesiredVelocity: desired, CurrentVelocity: desired, PassiveSpeedMult: 1})
		w.SetAvoidance(h, entity.Avoidance{
			Enable:              true,
			NeighborDist:        150,
			MaxNeighbors:        10,
			TimeHorizonAgent:    2,
			TimeHorizonObstacle: 1,
			MinAvoidSpeed:       5,
		})
		w.SetTrace(h, entity.Trace{})
		w.SetAvoiding(h, true)
		w.SetActivated(h, true)
		handles[i] = h
	}
	return handles
}

func logSnapshot(w *entity.Registry, handles []entity.Handle, tick int) {
	for i, h := range handles {
		if i >= 3 {
			break
		}
		loc, _ := w.Located(h)
		moving, _ := w.Moving(h)
		log.Printf("simdemo: tick=%d agent=%d pos=(%.1f,%.1f) vel=(%.1f,%.1f)",
			tick, i, loc.Location.X, loc.Location.Y, moving.CurrentVelocity.X, moving.CurrentVelocity.Y)
	}
}
