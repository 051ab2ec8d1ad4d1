package ai

import "manhunt/server/internal/world"

// ActionDef is the reusable Action implementation behind the built-in
// library. Cost can be context-priced through the optional costFn; otherwise
// the base cost is flat.
type ActionDef struct {
	name   string
	base   float64
	pre    GoalState
	eff    Effects
	costFn func(ws WorldState, base float64) float64
}

// NewAction builds a flat-cost action.
func NewAction(name string, base float64, pre GoalState, eff Effects) *ActionDef {
	return &ActionDef{name: name, base: base, pre: pre, eff: eff}
}

// NewDynamicAction builds an action priced against the planning-time state.
func NewDynamicAction(name string, base float64, pre GoalState, eff Effects, costFn func(ws WorldState, base float64) float64) *ActionDef {
	return &ActionDef{name: name, base: base, pre: pre, eff: eff, costFn: costFn}
}

func (a *ActionDef) Name() string { return a.name }

func (a *ActionDef) Cost(ws WorldState) float64 {
	if a.costFn != nil {
		return a.costFn(ws, a.base)
	}
	return a.base
}

func (a *ActionDef) Preconditions() GoalState {
	return a.pre
}

func (a *ActionDef) Effects() Effects {
	return a.eff
}

// Built-in action names. State handlers map the head of a committed plan onto
// behavioral states, so these double as routing keys.
const (
	ActionPatrol       = "Patrol"
	ActionPursueTarget = "PursueTarget"
	ActionSearchArea   = "SearchArea"
	ActionMeleeAttack  = "MeleeAttack"
	ActionRangedAttack = "RangedAttack"
	ActionThrowCharge  = "ThrowCharge"
	ActionTakeCover    = "TakeCover"
	ActionHoldCover    = "HoldCover"
	ActionFlankTarget  = "FlankTarget"
	ActionRetreat      = "Retreat"
)

// Common goals requested by the state machine.
var (
	GoalEliminate = GoalState{FactTargetEliminated: Bool(true)}
	GoalSafe      = GoalState{FactSafe: Bool(true)}
	GoalPatrol    = GoalState{FactPatrolling: Bool(true)}
	GoalLocate    = GoalState{FactTargetLocated: Bool(true)}
)

// DefaultActions assembles the built-in library. Costs are tuned so that the
// planner prefers direct pursuit while the target is well localized, flanking
// under fire, area charges when confidence is high but sight is lost, and
// retreat as health drains.
func DefaultActions() []Action {
	return []Action{
		NewAction(ActionPatrol, 1,
			GoalState{},
			Effects{FactPatrolling: Bool(true)}),

		NewDynamicAction(ActionSearchArea, 3,
			GoalState{FactTargetVisible: Bool(false)},
			Effects{FactTargetLocated: Bool(true), FactAtSuspectedPos: Bool(true)},
			func(ws WorldState, base float64) float64 {
				// Weak memory means a wider sweep; price it accordingly.
				return base + (1-world.Clamp(ws.Number(FactMemoryConfidence), 0, 1))*3
			}),

		NewDynamicAction(ActionPursueTarget, 2,
			GoalState{FactTargetLocated: Bool(true)},
			Effects{FactTargetInRange: Bool(true)},
			func(ws WorldState, base float64) float64 {
				return base + (1-world.Clamp(ws.Number(FactMemoryConfidence), 0, 1))*2
			}),

		NewAction(ActionMeleeAttack, 2,
			GoalState{FactTargetInRange: Bool(true), FactTargetVisible: Bool(true)},
			Effects{FactTargetEliminated: Bool(true)}),

		NewDynamicAction(ActionRangedAttack, 3,
			GoalState{FactTargetVisible: Bool(true)},
			Effects{FactTargetEliminated: Bool(true)},
			func(ws WorldState, base float64) float64 {
				// Ammo scarcity raises the price of shooting.
				charges := ws.Number(FactChargesLeft)
				if charges <= 0 {
					return base + 50
				}
				return base + 2/charges
			}),

		NewDynamicAction(ActionThrowCharge, 4,
			GoalState{FactTargetLocated: Bool(true)},
			Effects{FactTargetEliminated: Bool(true)},
			func(ws WorldState, base float64) float64 {
				if ws.Number(FactChargesLeft) <= 0 {
					return base + 50
				}
				// Cheaper the more certain the agent is about where the
				// target is hiding.
				return base + (1-world.Clamp(ws.Number(FactMemoryConfidence), 0, 1))*4
			}),

		NewDynamicAction(ActionTakeCover, 2,
			GoalState{FactHasCover: Bool(true)},
			Effects{FactInCover: Bool(true)},
			func(ws WorldState, base float64) float64 {
				// Cover gets cheap as health drains.
				return base * world.Clamp(ws.Number(FactHealthFrac), 0.2, 1)
			}),

		NewAction(ActionHoldCover, 1,
			GoalState{FactInCover: Bool(true)},
			Effects{FactSafe: Bool(true)}),

		NewDynamicAction(ActionFlankTarget, 3,
			GoalState{FactTargetLocated: Bool(true), FactUnderFire: Bool(true)},
			Effects{FactFlanking: Bool(true), FactTargetInRange: Bool(true)},
			func(ws WorldState, base float64) float64 {
				if ws.Bool(FactSuppressed) {
					return base + 4
				}
				return base
			}),

		NewDynamicAction(ActionRetreat, 6,
			GoalState{},
			Effects{FactSafe: Bool(true)},
			func(ws WorldState, base float64) float64 {
				// Falls toward 1 as health approaches zero.
				return 1 + (base-1)*world.Clamp(ws.Number(FactHealthFrac), 0, 1)
			}),
	}
}
