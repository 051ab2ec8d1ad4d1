package ailog

import (
	"context"

	"manhunt/server/logging"
)

const (
	// EventStateTransition is emitted when an agent changes behavioral state.
	EventStateTransition logging.EventType = "ai.state_transition"
	// EventPlanCommitted is emitted when the planner produces a plan.
	EventPlanCommitted logging.EventType = "ai.plan_committed"
	// EventNoPlan is emitted when planning fails and a fallback goal is used.
	EventNoPlan logging.EventType = "ai.no_plan"
	// EventReplan is emitted when declared action effects failed to materialize.
	EventReplan logging.EventType = "ai.replan"
	// EventMemoryUpdate is emitted when an observation is accepted into memory.
	EventMemoryUpdate logging.EventType = "ai.memory_update"
	// EventIntelShared is emitted when an agent assimilates another's memory.
	EventIntelShared logging.EventType = "ai.intel_shared"
	// EventSearchStarted is emitted when a search session begins.
	EventSearchStarted logging.EventType = "ai.search_started"
	// EventSearchEnded is emitted when a search session terminates.
	EventSearchEnded logging.EventType = "ai.search_ended"
	// EventConfigWarning is emitted for out-of-range tuning at startup.
	EventConfigWarning logging.EventType = "ai.config_warning"
)

// StateTransitionPayload records a behavioral state change.
type StateTransitionPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PlanPayload records a committed plan.
type PlanPayload struct {
	Goal    string   `json:"goal"`
	Actions []string `json:"actions"`
	Cost    float64  `json:"cost"`
}

// MemoryPayload records an accepted memory observation.
type MemoryPayload struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

// SearchPayload records search session lifecycle data.
type SearchPayload struct {
	CenterX      float64 `json:"centerX"`
	CenterY      float64 `json:"centerY"`
	Reason       string  `json:"reason,omitempty"`
	VisitedZones int     `json:"visitedZones,omitempty"`
}

func StateTransition(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, from, to string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStateTransition,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryAI,
		Payload:  StateTransitionPayload{From: from, To: to},
	})
}

func PlanCommitted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, goal string, actions []string, cost float64) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlanCommitted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryAI,
		Payload:  PlanPayload{Goal: goal, Actions: actions, Cost: cost},
	})
}

func NoPlan(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, goal string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventNoPlan,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryAI,
		Payload:  PlanPayload{Goal: goal},
	})
}

func Replan(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, action string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventReplan,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryAI,
		Payload:  map[string]string{"divergedAction": action},
	})
}

func MemoryUpdate(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, x, y, confidence float64, source string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMemoryUpdate,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryAI,
		Payload:  MemoryPayload{X: x, Y: y, Confidence: confidence, Source: source},
	})
}

func IntelShared(ctx context.Context, pub logging.Publisher, tick uint64, sender, receiver logging.EntityRef, confidence float64) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventIntelShared,
		Tick:     tick,
		Actor:    sender,
		Targets:  []logging.EntityRef{receiver},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryAI,
		Payload:  MemoryPayload{Confidence: confidence, Source: "intel"},
	})
}

func SearchStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, centerX, centerY float64) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSearchStarted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySearch,
		Payload:  SearchPayload{CenterX: centerX, CenterY: centerY},
	})
}

func SearchEnded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, reason string, visitedZones int) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSearchEnded,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySearch,
		Payload:  SearchPayload{Reason: reason, VisitedZones: visitedZones},
	})
}

func ConfigWarning(ctx context.Context, pub logging.Publisher, message string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventConfigWarning,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySystem,
		Payload:  map[string]string{"message": message},
	})
}
