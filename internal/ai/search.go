package ai

import (
	"math"
	"time"

	"manhunt/server/internal/world"
)

// ZoneKey is a grid-quantized unit of searched area. Visited zones are never
// re-enqueued within a session.
type ZoneKey struct {
	X int
	Y int
}

// SearchConfig tunes the expanding-square sweep. The expansion cadence and
// zone size are deliberately tunable; the defaults are the empirically-tuned
// representative values.
type SearchConfig struct {
	LegLength       float64       // initial leg length (L0)
	LegExpansion    float64       // added to the leg every ExpandEveryLegs legs
	ExpandEveryLegs int           // legs completed between expansions
	SampleSpacing   float64       // distance between waypoint samples on a leg
	ZoneSize        float64       // visited-zone grid cell edge
	SnapTolerance   float64       // max distance a waypoint may snap to terrain
	MaxRadius       float64       // Chebyshev radius ending the session
	Timeout         time.Duration // wall/sim-clock session budget
	ScanDuration    time.Duration // rotational scan performed at each waypoint
}

// DefaultSearchConfig returns the representative tuning.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		LegLength:       100,
		LegExpansion:    100,
		ExpandEveryLegs: 2,
		SampleSpacing:   25,
		ZoneSize:        50,
		SnapTolerance:   60,
		MaxRadius:       600,
		Timeout:         45 * time.Second,
		ScanDuration:    2 * time.Second,
	}
}

// Cardinal headings cycled with consistent chirality (clockwise).
var searchHeadings = [4]world.Vec2{
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 0, Y: -1},
}

// SearchSession sweeps an outward square spiral around a center point,
// producing nav-validated waypoints and skipping zones already cleared this
// session. The visited set only grows; after the spiral expands, only zones
// in the new outer ring are generated.
type SearchSession struct {
	cfg SearchConfig
	nav Navigation

	center        world.Vec2
	cursor        world.Vec2
	headingIndex  int
	legLength     float64
	legsCompleted int
	currentRadius float64

	visited map[ZoneKey]struct{}
	queue   []world.Vec2

	startedAt time.Time
	exhausted bool
}

// NewSearchSession starts a sweep centered on the suspected position.
func NewSearchSession(center world.Vec2, cfg SearchConfig, nav Navigation, now time.Time) *SearchSession {
	if cfg.LegLength <= 0 {
		cfg.LegLength = 100
	}
	if cfg.LegExpansion <= 0 {
		cfg.LegExpansion = cfg.LegLength
	}
	if cfg.ExpandEveryLegs <= 0 {
		cfg.ExpandEveryLegs = 2
	}
	if cfg.SampleSpacing <= 0 {
		cfg.SampleSpacing = 25
	}
	if cfg.ZoneSize <= 0 {
		cfg.ZoneSize = 50
	}
	if cfg.MaxRadius <= 0 {
		cfg.MaxRadius = 600
	}
	s := &SearchSession{
		cfg:       cfg,
		nav:       nav,
		center:    center,
		cursor:    center,
		legLength: cfg.LegLength,
		visited:   make(map[ZoneKey]struct{}),
		startedAt: now,
	}
	// The center zone counts as cleared: the agent is standing there.
	s.visited[s.zoneOf(center)] = struct{}{}
	return s
}

// zoneOf quantizes a point to its visited-zone key.
func (s *SearchSession) zoneOf(p world.Vec2) ZoneKey {
	return ZoneKey{
		X: int(math.Floor(p.X / s.cfg.ZoneSize)),
		Y: int(math.Floor(p.Y / s.cfg.ZoneSize)),
	}
}

// NextWaypoint pops the next validated waypoint, generating more spiral legs
// on demand. ok is false when the sweep has covered the configured radius.
func (s *SearchSession) NextWaypoint() (world.Vec2, bool) {
	if s == nil {
		return world.Vec2{}, false
	}
	for len(s.queue) == 0 {
		if s.exhausted || s.currentRadius > s.cfg.MaxRadius {
			s.exhausted = true
			return world.Vec2{}, false
		}
		s.generateLeg()
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	return next, true
}

// generateLeg walks one spiral leg, enqueueing samples whose zones are
// unvisited and navigable. Unreachable zones are marked visited so the ring
// can complete without retrying them.
func (s *SearchSession) generateLeg() {
	heading := searchHeadings[s.headingIndex]
	traveled := 0.0
	for traveled < s.legLength {
		step := s.cfg.SampleSpacing
		if remaining := s.legLength - traveled; step > remaining {
			step = remaining
		}
		traveled += step
		s.cursor = s.cursor.Add(heading.Scale(step))

		radius := math.Max(math.Abs(s.cursor.X-s.center.X), math.Abs(s.cursor.Y-s.center.Y))
		if radius > s.currentRadius {
			s.currentRadius = radius
		}
		if radius > s.cfg.MaxRadius {
			s.exhausted = true
			return
		}

		zone := s.zoneOf(s.cursor)
		if _, seen := s.visited[zone]; seen {
			continue
		}
		s.visited[zone] = struct{}{}

		if s.nav == nil {
			s.queue = append(s.queue, s.cursor)
			continue
		}
		snapped, ok := s.nav.SnapToNavigable(s.cursor)
		if !ok {
			continue
		}
		if s.cfg.SnapTolerance > 0 && world.Dist(snapped, s.cursor) > s.cfg.SnapTolerance {
			continue
		}
		s.queue = append(s.queue, snapped)
	}

	s.headingIndex = (s.headingIndex + 1) % len(searchHeadings)
	s.legsCompleted++
	if s.legsCompleted%s.cfg.ExpandEveryLegs == 0 {
		s.legLength += s.cfg.LegExpansion
	}
}

// Exhausted reports whether the spiral has passed the maximum radius.
func (s *SearchSession) Exhausted() bool {
	return s == nil || (s.exhausted && len(s.queue) == 0)
}

// Expired reports whether the session timed out.
func (s *SearchSession) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return s.cfg.Timeout > 0 && now.Sub(s.startedAt) > s.cfg.Timeout
}

// VisitedZoneCount reports how many zones the session has cleared or ruled
// unreachable.
func (s *SearchSession) VisitedZoneCount() int {
	if s == nil {
		return 0
	}
	return len(s.visited)
}

// CurrentRadius exposes the sweep's Chebyshev radius for debugging.
func (s *SearchSession) CurrentRadius() float64 {
	if s == nil {
		return 0
	}
	return s.currentRadius
}

// ScanDuration is the per-waypoint rotational scan time.
func (s *SearchSession) ScanDuration() time.Duration {
	if s == nil {
		return 0
	}
	return s.cfg.ScanDuration
}
