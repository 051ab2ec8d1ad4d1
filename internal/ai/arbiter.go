package ai

import (
	"sort"
	"time"

	"manhunt/server/internal/world"
)

// TriggerID names a registered attack trigger.
type TriggerID string

// TriggerInput is the read-only context a trigger predicate evaluates
// against. Everything stimulus-shaped lives in the fact snapshot; the memory
// record supplies the belief about the target.
type TriggerInput struct {
	Facts    WorldState
	Memory   *TargetMemory
	AgentPos world.Vec2
	Now      time.Time
	DT       float64
}

// Trigger is one independent stimulus→attack rule. Ready is called every
// tick so implementations can run continuity timers off DT; returning true
// proposes an attack at the position produced by Target.
type Trigger interface {
	ID() TriggerID
	Cost() float64
	Ready(in TriggerInput) bool
	Target(in TriggerInput) (world.Vec2, bool)
}

// SafetyCheckResult is the outcome of the pre-attack guard. Computed per
// attempt, never persisted.
type SafetyCheckResult struct {
	Safe             bool
	RequiredDistance float64
	ActualDistance   float64
	PathClear        bool
}

// Decision reports which trigger fired, where, and how the safety gate ruled.
type Decision struct {
	Trigger    TriggerID
	Capability CapabilityID
	Target     world.Vec2
	Check      SafetyCheckResult
}

// ArbiterConfig tunes the shared safety gate and cooldown.
type ArbiterConfig struct {
	Capability   CapabilityID
	SafetyMargin float64
	Cooldown     time.Duration
}

// AttackArbiter evaluates triggers in ascending-cost order and gates every
// proposal behind the blast-radius and throw-path checks. No trigger can
// bypass the gate: deciding to attack and deciding it is safe are separate
// concerns by construction.
type AttackArbiter struct {
	cfg         ArbiterConfig
	triggers    []Trigger
	catalog     CapabilityCatalog
	obstruction Obstruction
	readyAt     time.Time
}

// NewAttackArbiter registers the trigger set. Triggers are stably sorted by
// cost so registration order breaks ties.
func NewAttackArbiter(cfg ArbiterConfig, triggers []Trigger, catalog CapabilityCatalog, obstruction Obstruction) *AttackArbiter {
	kept := make([]Trigger, 0, len(triggers))
	for _, t := range triggers {
		if t != nil {
			kept = append(kept, t)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Cost() < kept[j].Cost()
	})
	return &AttackArbiter{
		cfg:         cfg,
		triggers:    kept,
		catalog:     catalog,
		obstruction: obstruction,
	}
}

// Evaluate runs one arbitration pass. Every trigger's Ready is invoked so
// continuity timers keep counting even while the cooldown blocks
// authorization. The first satisfied trigger (lowest cost) selects the
// target; the safety gate then rules. authorized is true only when the gate
// passed and the cooldown is clear.
func (a *AttackArbiter) Evaluate(in TriggerInput) (Decision, bool) {
	if a == nil {
		return Decision{}, false
	}

	var fired Trigger
	var target world.Vec2
	for _, trigger := range a.triggers {
		ready := trigger.Ready(in)
		if fired != nil || !ready {
			continue
		}
		point, ok := trigger.Target(in)
		if !ok {
			continue
		}
		fired = trigger
		target = point
	}
	if fired == nil {
		return Decision{}, false
	}

	decision := Decision{
		Trigger:    fired.ID(),
		Capability: a.cfg.Capability,
		Target:     target,
	}

	if !in.Now.Before(a.readyAt) {
		decision.Check = a.safetyCheck(in.AgentPos, target)
	}

	return decision, decision.Check.Safe
}

// safetyCheck rejects any attack that would catch the agent inside the blast
// or whose throw path is blocked. The radius comes from the capability
// descriptor, never a constant.
func (a *AttackArbiter) safetyCheck(agentPos, target world.Vec2) SafetyCheckResult {
	result := SafetyCheckResult{
		ActualDistance: world.Dist(agentPos, target),
	}
	desc, ok := a.catalog.Descriptor(a.cfg.Capability)
	if !ok {
		return result
	}
	result.RequiredDistance = desc.EffectRadius + a.cfg.SafetyMargin

	result.PathClear = a.obstruction == nil || !a.obstruction.RaycastBlocked(agentPos, target)

	result.Safe = result.ActualDistance >= result.RequiredDistance && result.PathClear
	return result
}

// Commit starts the shared cooldown after an authorized attack executes.
func (a *AttackArbiter) Commit(now time.Time) {
	if a == nil {
		return
	}
	a.readyAt = now.Add(a.cfg.Cooldown)
}

// CoolingDown reports whether the shared cooldown still blocks authorization.
func (a *AttackArbiter) CoolingDown(now time.Time) bool {
	return a != nil && now.Before(a.readyAt)
}
