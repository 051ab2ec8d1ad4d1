package ai

import "manhunt/server/internal/world"

// Built-in trigger ids, one per stimulus class.
const (
	TriggerSuppressedHidden TriggerID = "suppressed-then-hidden"
	TriggerClosingThreat    TriggerID = "closing-threat"
	TriggerWitnessedLosses  TriggerID = "witnessed-losses"
	TriggerSoundVulnerable  TriggerID = "sound-vulnerability"
	TriggerSustainedFire    TriggerID = "sustained-fire"
	TriggerDesperation      TriggerID = "desperation"
	TriggerSuspicion        TriggerID = "suspicion"
)

// TriggerTuning carries the per-trigger costs and continuity thresholds from
// the agent profile.
type TriggerTuning struct {
	SuppressedHiddenCost    float64
	SuppressedHiddenSeconds float64
	ClosingThreatCost       float64
	ClosingThreatRadius     float64
	WitnessedLossesCost     float64
	WitnessedLossesMin      float64
	SoundVulnerableCost     float64
	SustainedFireCost       float64
	SustainedFireSeconds    float64
	DesperationCost         float64
	DesperationHealthFrac   float64
	SuspicionCost           float64
	SuspicionSeconds        float64
}

// DefaultTriggerTuning returns the representative tuning.
func DefaultTriggerTuning() TriggerTuning {
	return TriggerTuning{
		SuppressedHiddenCost:    0.2,
		SuppressedHiddenSeconds: 3,
		ClosingThreatCost:       0.3,
		ClosingThreatRadius:     350,
		WitnessedLossesCost:     0.4,
		WitnessedLossesMin:      2,
		SoundVulnerableCost:     0.5,
		SustainedFireCost:       0.6,
		SustainedFireSeconds:    4,
		DesperationCost:         0.7,
		DesperationHealthFrac:   0.25,
		SuspicionCost:           0.8,
		SuspicionSeconds:        5,
	}
}

// DefaultTriggers builds the seven stimulus triggers. Each keeps its own
// continuity timers; nothing else about them is stateful.
func DefaultTriggers(tuning TriggerTuning) []Trigger {
	return []Trigger{
		&suppressedHiddenTrigger{cost: tuning.SuppressedHiddenCost, holdSeconds: tuning.SuppressedHiddenSeconds},
		&closingThreatTrigger{cost: tuning.ClosingThreatCost, radius: tuning.ClosingThreatRadius},
		&witnessedLossesTrigger{cost: tuning.WitnessedLossesCost, minLosses: tuning.WitnessedLossesMin},
		&soundVulnerableTrigger{cost: tuning.SoundVulnerableCost},
		&sustainedFireTrigger{cost: tuning.SustainedFireCost, holdSeconds: tuning.SustainedFireSeconds},
		&desperationTrigger{cost: tuning.DesperationCost, healthFrac: tuning.DesperationHealthFrac},
		&suspicionTrigger{cost: tuning.SuspicionCost, holdSeconds: tuning.SuspicionSeconds},
	}
}

func suspectedTarget(in TriggerInput) (world.Vec2, bool) {
	if in.Memory == nil || !in.Memory.HasTarget() {
		return world.Vec2{}, false
	}
	return in.Memory.Position(), true
}

// suppressedHiddenTrigger fires after the agent has been suppressed with the
// target out of sight for a continuous stretch: flush them out.
type suppressedHiddenTrigger struct {
	cost        float64
	holdSeconds float64
	elapsed     float64
}

func (t *suppressedHiddenTrigger) ID() TriggerID { return TriggerSuppressedHidden }
func (t *suppressedHiddenTrigger) Cost() float64 { return t.cost }

func (t *suppressedHiddenTrigger) Ready(in TriggerInput) bool {
	if in.Facts.Bool(FactSuppressed) && !in.Facts.Bool(FactTargetVisible) {
		t.elapsed += in.DT
	} else {
		t.elapsed = 0
	}
	return t.elapsed >= t.holdSeconds
}

func (t *suppressedHiddenTrigger) Target(in TriggerInput) (world.Vec2, bool) {
	return suspectedTarget(in)
}

// closingThreatTrigger fires when a visible target keeps closing distance
// inside the pursuit radius.
type closingThreatTrigger struct {
	cost     float64
	radius   float64
	lastDist float64
}

func (t *closingThreatTrigger) ID() TriggerID { return TriggerClosingThreat }
func (t *closingThreatTrigger) Cost() float64 { return t.cost }

func (t *closingThreatTrigger) Ready(in TriggerInput) bool {
	pos, ok := suspectedTarget(in)
	if !ok || !in.Facts.Bool(FactTargetVisible) {
		t.lastDist = 0
		return false
	}
	dist := world.Dist(in.AgentPos, pos)
	closing := t.lastDist > 0 && dist < t.lastDist
	t.lastDist = dist
	return closing && dist <= t.radius
}

func (t *closingThreatTrigger) Target(in TriggerInput) (world.Vec2, bool) {
	return suspectedTarget(in)
}

// witnessedLossesTrigger fires once enough allied defeats have been observed.
type witnessedLossesTrigger struct {
	cost      float64
	minLosses float64
}

func (t *witnessedLossesTrigger) ID() TriggerID { return TriggerWitnessedLosses }
func (t *witnessedLossesTrigger) Cost() float64 { return t.cost }

func (t *witnessedLossesTrigger) Ready(in TriggerInput) bool {
	return in.Facts.Number(FactAllyLosses) >= t.minLosses
}

func (t *witnessedLossesTrigger) Target(in TriggerInput) (world.Vec2, bool) {
	return suspectedTarget(in)
}

// soundVulnerableTrigger fires when sound intel reports the target reloading
// while memory still places them well.
type soundVulnerableTrigger struct {
	cost float64
}

func (t *soundVulnerableTrigger) ID() TriggerID { return TriggerSoundVulnerable }
func (t *soundVulnerableTrigger) Cost() float64 { return t.cost }

func (t *soundVulnerableTrigger) Ready(in TriggerInput) bool {
	if !in.Facts.Bool(FactTargetReloading) {
		return false
	}
	return in.Memory != nil && in.Memory.Tier() >= TierMedium
}

func (t *soundVulnerableTrigger) Target(in TriggerInput) (world.Vec2, bool) {
	return suspectedTarget(in)
}

// sustainedFireTrigger fires after taking fire from the same zone for a
// continuous stretch.
type sustainedFireTrigger struct {
	cost        float64
	holdSeconds float64
	elapsed     float64
}

func (t *sustainedFireTrigger) ID() TriggerID { return TriggerSustainedFire }
func (t *sustainedFireTrigger) Cost() float64 { return t.cost }

func (t *sustainedFireTrigger) Ready(in TriggerInput) bool {
	if in.Facts.Bool(FactUnderFire) {
		t.elapsed += in.DT
	} else {
		t.elapsed = 0
	}
	return t.elapsed >= t.holdSeconds
}

func (t *sustainedFireTrigger) Target(in TriggerInput) (world.Vec2, bool) {
	return suspectedTarget(in)
}

// desperationTrigger fires at critical health while under fire: self
// preservation through overwhelming force.
type desperationTrigger struct {
	cost       float64
	healthFrac float64
}

func (t *desperationTrigger) ID() TriggerID { return TriggerDesperation }
func (t *desperationTrigger) Cost() float64 { return t.cost }

func (t *desperationTrigger) Ready(in TriggerInput) bool {
	return in.Facts.Bool(FactUnderFire) && in.Facts.Number(FactHealthFrac) <= t.healthFrac
}

func (t *desperationTrigger) Target(in TriggerInput) (world.Vec2, bool) {
	return suspectedTarget(in)
}

// suspicionTrigger fires when confidence stays high without visual contact
// for a continuous stretch: the target is almost certainly there, unseen.
type suspicionTrigger struct {
	cost        float64
	holdSeconds float64
	elapsed     float64
}

func (t *suspicionTrigger) ID() TriggerID { return TriggerSuspicion }
func (t *suspicionTrigger) Cost() float64 { return t.cost }

func (t *suspicionTrigger) Ready(in TriggerInput) bool {
	if in.Memory != nil && in.Memory.Tier() == TierHigh && !in.Facts.Bool(FactTargetVisible) {
		t.elapsed += in.DT
	} else {
		t.elapsed = 0
	}
	return t.elapsed >= t.holdSeconds
}

func (t *suspicionTrigger) Target(in TriggerInput) (world.Vec2, bool) {
	return suspectedTarget(in)
}
