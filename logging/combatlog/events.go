package combatlog

import (
	"context"

	"manhunt/server/logging"
)

const (
	// EventAttackAuthorized is emitted when the arbiter clears an area attack.
	EventAttackAuthorized logging.EventType = "combat.attack_authorized"
	// EventAttackRejected is emitted when the safety gate denies an attack.
	EventAttackRejected logging.EventType = "combat.attack_rejected"
	// EventDamage is emitted when an attack deals damage to a target.
	EventDamage logging.EventType = "combat.damage"
	// EventDefeat is emitted when an actor is defeated.
	EventDefeat logging.EventType = "combat.defeat"
)

// AttackPayload captures an arbiter decision.
type AttackPayload struct {
	Trigger          string  `json:"trigger"`
	Capability       string  `json:"capability"`
	TargetX          float64 `json:"targetX"`
	TargetY          float64 `json:"targetY"`
	RequiredDistance float64 `json:"requiredDistance"`
	ActualDistance   float64 `json:"actualDistance"`
	PathClear        bool    `json:"pathClear"`
}

// DamagePayload captures the amount dealt to a single target.
type DamagePayload struct {
	Capability   string  `json:"capability,omitempty"`
	Amount       float64 `json:"amount"`
	TargetHealth float64 `json:"targetHealth"`
}

func AttackAuthorized(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AttackPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAttackAuthorized,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

func AttackRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AttackPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAttackRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

func Damage(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DamagePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

func Defeat(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDefeat,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
	})
}
