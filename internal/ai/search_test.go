package ai

import (
	"testing"
	"time"

	"manhunt/server/internal/world"
)

// fakeNav is a scriptable Navigation for search tests.
type fakeNav struct {
	snap func(p world.Vec2) (world.Vec2, bool)
}

func (n *fakeNav) SnapToNavigable(p world.Vec2) (world.Vec2, bool) {
	if n.snap == nil {
		return p, true
	}
	return n.snap(p)
}

func (n *fakeNav) IsPathClear(a, b world.Vec2) bool { return true }

func (n *fakeNav) FindPath(from, to world.Vec2) ([]world.Vec2, bool) {
	return []world.Vec2{to}, true
}

func drainSearch(s *SearchSession) []world.Vec2 {
	var points []world.Vec2
	for {
		p, ok := s.NextWaypoint()
		if !ok {
			return points
		}
		points = append(points, p)
	}
}

func TestSearchNeverRevisitsZones(t *testing.T) {
	cfg := DefaultSearchConfig()
	session := NewSearchSession(world.Vec2{X: 1000, Y: 1000}, cfg, nil, time.Unix(0, 0))

	seen := make(map[ZoneKey]int)
	for _, p := range drainSearch(session) {
		zone := ZoneKey{
			X: int(p.X / cfg.ZoneSize),
			Y: int(p.Y / cfg.ZoneSize),
		}
		seen[zone]++
		if seen[zone] > 1 {
			t.Fatalf("zone %v enqueued twice", zone)
		}
	}
	if len(seen) == 0 {
		t.Fatalf("search produced no waypoints")
	}
}

func TestSearchStopsAtMaxRadius(t *testing.T) {
	cfg := DefaultSearchConfig()
	center := world.Vec2{X: 1000, Y: 1000}
	session := NewSearchSession(center, cfg, nil, time.Unix(0, 0))

	points := drainSearch(session)
	if !session.Exhausted() {
		t.Fatalf("session should report exhausted after draining")
	}
	for _, p := range points {
		dx := p.X - center.X
		dy := p.Y - center.Y
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		radius := dx
		if dy > radius {
			radius = dy
		}
		if radius > cfg.MaxRadius {
			t.Fatalf("waypoint %v outside max radius %v", p, cfg.MaxRadius)
		}
	}
}

func TestSearchSkipsUnreachableWithoutStalling(t *testing.T) {
	cfg := DefaultSearchConfig()
	center := world.Vec2{X: 1000, Y: 1000}

	// Everything east of center is off the mesh.
	nav := &fakeNav{snap: func(p world.Vec2) (world.Vec2, bool) {
		if p.X > center.X {
			return world.Vec2{}, false
		}
		return p, true
	}}
	session := NewSearchSession(center, cfg, nav, time.Unix(0, 0))

	points := drainSearch(session)
	if len(points) == 0 {
		t.Fatalf("search produced no waypoints with half the arena blocked")
	}
	for _, p := range points {
		if p.X > center.X {
			t.Fatalf("waypoint %v landed in the unreachable half", p)
		}
	}
	if !session.Exhausted() {
		t.Fatalf("session should terminate despite unreachable zones")
	}
}

func TestSearchRejectsDistantSnaps(t *testing.T) {
	cfg := DefaultSearchConfig()
	center := world.Vec2{X: 1000, Y: 1000}

	// Snapping teleports everything far away; every waypoint must be
	// discarded by the tolerance check.
	nav := &fakeNav{snap: func(p world.Vec2) (world.Vec2, bool) {
		return p.Add(world.Vec2{X: cfg.SnapTolerance + 50}), true
	}}
	session := NewSearchSession(center, cfg, nav, time.Unix(0, 0))

	if points := drainSearch(session); len(points) != 0 {
		t.Fatalf("expected no waypoints, got %d", len(points))
	}
}

func TestSearchExpiresOnTimeout(t *testing.T) {
	cfg := DefaultSearchConfig()
	start := time.Unix(1000, 0)
	session := NewSearchSession(world.Vec2{}, cfg, nil, start)

	if session.Expired(start.Add(44 * time.Second)) {
		t.Fatalf("session expired before the timeout")
	}
	if !session.Expired(start.Add(46 * time.Second)) {
		t.Fatalf("session should expire after the timeout")
	}
}

func TestSearchCoversGrowingRings(t *testing.T) {
	cfg := DefaultSearchConfig()
	session := NewSearchSession(world.Vec2{X: 1000, Y: 1000}, cfg, nil, time.Unix(0, 0))

	var lastRadius float64
	for {
		_, ok := session.NextWaypoint()
		if !ok {
			break
		}
		if r := session.CurrentRadius(); r < lastRadius {
			t.Fatalf("sweep radius shrank from %v to %v", lastRadius, r)
		} else {
			lastRadius = r
		}
	}
	if lastRadius < cfg.MaxRadius {
		t.Fatalf("sweep radius %v never reached the configured %v", lastRadius, cfg.MaxRadius)
	}
}
