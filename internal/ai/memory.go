package ai

import (
	"time"

	"manhunt/server/internal/world"
)

// ConfidenceTier buckets memory strength into behavioral bands.
type ConfidenceTier int

const (
	TierLost ConfidenceTier = iota
	TierFading
	TierLow
	TierMedium
	TierHigh
)

func (t ConfidenceTier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	case TierFading:
		return "fading"
	default:
		return "lost"
	}
}

// MemoryConfig tunes decay and the update/override rule. Values come from the
// agent profile; zero values fall back to the representative defaults.
type MemoryConfig struct {
	DecayRate         float64       // confidence lost per second
	OverrideCooldown  time.Duration // staleness window letting weaker signals through
	HighThreshold     float64
	MediumThreshold   float64
	LowThreshold      float64
	LostThreshold     float64
	PropagationFactor float64 // confidence multiplier applied to shared intel
	ShareRangeVisual  float64 // intel range with line of sight
	ShareRangeRadio   float64 // intel range without line of sight (shouted/radio)
}

// DefaultMemoryConfig returns the representative tuning from the design docs.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		DecayRate:         0.1,
		OverrideCooldown:  4 * time.Second,
		HighThreshold:     0.8,
		MediumThreshold:   0.5,
		LowThreshold:      0.3,
		LostThreshold:     0.05,
		PropagationFactor: 0.9,
		ShareRangeVisual:  400,
		ShareRangeRadio:   900,
	}
}

// MemorySnapshot is the read-only view exchanged during intel sharing. The
// receiving agent runs it through its own update rule; nothing mutates the
// sender.
type MemorySnapshot struct {
	Position   world.Vec2 `json:"position"`
	Confidence float64    `json:"confidence"`
	LastUpdate time.Time  `json:"lastUpdate"`
}

// TargetMemory is the single confidence-weighted belief about where the
// pursued target was last known to be.
type TargetMemory struct {
	cfg        MemoryConfig
	position   world.Vec2
	confidence float64
	lastUpdate time.Time
	hasRecord  bool
}

// NewTargetMemory builds an empty memory with the given tuning.
func NewTargetMemory(cfg MemoryConfig) *TargetMemory {
	if cfg.DecayRate <= 0 {
		cfg.DecayRate = 0.1
	}
	if cfg.PropagationFactor <= 0 || cfg.PropagationFactor >= 1 {
		cfg.PropagationFactor = 0.9
	}
	if cfg.LostThreshold <= 0 {
		cfg.LostThreshold = 0.05
	}
	return &TargetMemory{cfg: cfg}
}

// Observe feeds a new observation through the update rule: a signal at least
// as strong as the current belief always wins; a weaker one only refreshes
// memory gone stale past the override cooldown. Accepted updates replace the
// position wholesale and reset the decay clock.
func (m *TargetMemory) Observe(position world.Vec2, sourceConfidence float64, now time.Time) bool {
	if m == nil {
		return false
	}
	sourceConfidence = world.Clamp(sourceConfidence, 0, 1)
	if m.hasRecord {
		stale := now.Sub(m.lastUpdate) > m.cfg.OverrideCooldown
		if sourceConfidence < m.confidence && !stale {
			return false
		}
	}
	m.position = position
	m.confidence = sourceConfidence
	m.lastUpdate = now
	m.hasRecord = true
	return true
}

// Decay applies linear confidence loss for dt seconds. Confidence never goes
// below zero and never rises without a new observation.
func (m *TargetMemory) Decay(dt float64) {
	if m == nil || !m.hasRecord || dt <= 0 {
		return
	}
	m.confidence -= m.cfg.DecayRate * dt
	if m.confidence < 0 {
		m.confidence = 0
	}
}

// Reset forgets the target entirely.
func (m *TargetMemory) Reset() {
	if m == nil {
		return
	}
	m.position = world.Vec2{}
	m.confidence = 0
	m.lastUpdate = time.Time{}
	m.hasRecord = false
}

// HasTarget reports whether the belief is still actionable.
func (m *TargetMemory) HasTarget() bool {
	return m != nil && m.hasRecord && m.confidence > m.cfg.LostThreshold
}

// Confidence returns the current belief strength in [0,1].
func (m *TargetMemory) Confidence() float64 {
	if m == nil || !m.hasRecord {
		return 0
	}
	return m.confidence
}

// Position returns the suspected target position; only meaningful while
// HasTarget holds.
func (m *TargetMemory) Position() world.Vec2 {
	if m == nil {
		return world.Vec2{}
	}
	return m.position
}

// Tier buckets the current confidence.
func (m *TargetMemory) Tier() ConfidenceTier {
	if m == nil || !m.hasRecord {
		return TierLost
	}
	switch {
	case m.confidence >= m.cfg.HighThreshold:
		return TierHigh
	case m.confidence >= m.cfg.MediumThreshold:
		return TierMedium
	case m.confidence >= m.cfg.LowThreshold:
		return TierLow
	case m.confidence > m.cfg.LostThreshold:
		return TierFading
	default:
		return TierLost
	}
}

// Snapshot exposes the record for intel sharing. Safe to hand to other
// agents: plain values, no aliasing back into this memory.
func (m *TargetMemory) Snapshot() (MemorySnapshot, bool) {
	if m == nil || !m.hasRecord {
		return MemorySnapshot{}, false
	}
	return MemorySnapshot{
		Position:   m.position,
		Confidence: m.confidence,
		LastUpdate: m.lastUpdate,
	}, true
}

// AssimilateIntel treats a broadcast snapshot as an observation discounted by
// the propagation factor. Eligibility depends on distance between the agents:
// shouted or radioed intel (no line of sight) carries further than visual
// confirmation.
func (m *TargetMemory) AssimilateIntel(snap MemorySnapshot, senderDistance float64, lineOfSight bool, now time.Time) bool {
	if m == nil {
		return false
	}
	limit := m.cfg.ShareRangeRadio
	if lineOfSight {
		limit = m.cfg.ShareRangeVisual
	}
	if limit > 0 && senderDistance > limit {
		return false
	}
	return m.Observe(snap.Position, snap.Confidence*m.cfg.PropagationFactor, now)
}
