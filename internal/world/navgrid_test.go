package world

import (
	"math/rand"
	"testing"
)

func wallGrid() *NavGrid {
	// A vertical wall across the middle with a gap at the bottom.
	obstacles := []Obstacle{
		{ID: "wall", X: 380, Y: 0, Width: 40, Height: 500},
	}
	return NewNavGrid(obstacles, 800, 600, 25, 14)
}

func TestSnapToNavigableKeepsWalkablePoints(t *testing.T) {
	grid := wallGrid()
	p := Vec2{X: 100, Y: 100}
	snapped, ok := grid.SnapToNavigable(p)
	if !ok {
		t.Fatalf("open terrain failed to snap")
	}
	if snapped != p {
		t.Fatalf("walkable point moved from %v to %v", p, snapped)
	}
}

func TestSnapToNavigableEscapesObstacles(t *testing.T) {
	grid := wallGrid()
	inside := Vec2{X: 400, Y: 250}
	snapped, ok := grid.SnapToNavigable(inside)
	if !ok {
		t.Fatalf("point inside obstacle failed to snap")
	}
	for _, obs := range grid.obstacles {
		if CircleRectOverlap(snapped.X, snapped.Y, grid.actorHalf, obs) {
			t.Fatalf("snapped point %v still overlaps %s", snapped, obs.ID)
		}
	}
}

func TestIsPathClearThroughWall(t *testing.T) {
	grid := wallGrid()
	a := Vec2{X: 100, Y: 250}
	b := Vec2{X: 700, Y: 250}
	if grid.IsPathClear(a, b) {
		t.Fatalf("straight path through the wall reported clear")
	}
	if !grid.IsPathClear(a, Vec2{X: 300, Y: 250}) {
		t.Fatalf("open straight path reported blocked")
	}
}

func TestRaycastBlockedMatchesObstacles(t *testing.T) {
	grid := wallGrid()
	if !grid.RaycastBlocked(Vec2{X: 100, Y: 250}, Vec2{X: 700, Y: 250}) {
		t.Fatalf("sight line through the wall reported clear")
	}
	// The wall stops at y=500; a line below it is clear.
	if grid.RaycastBlocked(Vec2{X: 100, Y: 560}, Vec2{X: 700, Y: 560}) {
		t.Fatalf("sight line under the wall reported blocked")
	}
}

func TestFindPathRoutesAroundWall(t *testing.T) {
	grid := wallGrid()
	start := Vec2{X: 100, Y: 250}
	target := Vec2{X: 700, Y: 250}

	path, ok := grid.FindPath(start, target)
	if !ok || len(path) == 0 {
		t.Fatalf("no path found around the wall")
	}
	if last := path[len(path)-1]; last != target {
		t.Fatalf("path ends at %v, want %v", last, target)
	}
	// The route must dip below the wall's end to get through.
	dipped := false
	for _, p := range path {
		if p.Y > 500 {
			dipped = true
			break
		}
	}
	if !dipped {
		t.Fatalf("path %v never rounded the wall", path)
	}
}

func TestFindPathFailsIntoObstacle(t *testing.T) {
	grid := wallGrid()
	if _, ok := grid.FindPath(Vec2{X: 100, Y: 250}, Vec2{X: 400, Y: 250}); ok {
		t.Fatalf("path into an obstacle interior should fail")
	}
}

func TestGenerateObstaclesDeterministic(t *testing.T) {
	a := GenerateObstacles(rand.New(rand.NewSource(7)), 12, 800, 600, 40, 120, 20, 100)
	b := GenerateObstacles(rand.New(rand.NewSource(7)), 12, 800, 600, 40, 120, 20, 100)
	if len(a) != len(b) {
		t.Fatalf("obstacle counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("obstacle %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerateObstaclesRespectSpawnSafeZone(t *testing.T) {
	obstacles := GenerateObstacles(rand.New(rand.NewSource(3)), 20, 800, 600, 40, 120, 20, 150)
	for _, obs := range obstacles {
		if CircleRectOverlap(400, 300, 150, obs) {
			t.Fatalf("obstacle %+v intrudes on the spawn-safe radius", obs)
		}
	}
}
