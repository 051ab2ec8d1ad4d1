package ai

import (
	"math"

	"manhunt/server/internal/world"
)

// defaultHandlers builds a fresh handler set for one agent. Handlers keep
// per-agent timers, so instances are never shared.
func defaultHandlers() []StateHandler {
	return []StateHandler{
		&idleHandler{},
		&pursuingHandler{},
		&searchingHandler{},
		&combatHandler{},
		&seekingCoverHandler{},
		&inCoverHandler{},
		&flankingHandler{},
		&suppressedHandler{},
		&retreatingHandler{},
	}
}

// idleHandler patrols between the agent's anchor points until something is
// worth chasing.
type idleHandler struct {
	patrolIdx int
}

func (h *idleHandler) ID() StateID { return StateIdle }

func (h *idleHandler) Transitions() []StateID {
	return []StateID{StatePursuing, StateCombat}
}

func (h *idleHandler) Enter(a *Agent, step StepContext) {
	a.dropPlan()
}

func (h *idleHandler) Exit(a *Agent, step StepContext) {}

func (h *idleHandler) Think(a *Agent, step StepContext) StateID {
	if a.targetVisible() {
		return StateCombat
	}
	if a.memory.HasTarget() {
		return StatePursuing
	}

	if len(a.patrolPoints) == 0 {
		// Nothing to walk; sweep the horizon instead.
		a.emitFace(a.slowScanAngle(step), step)
		return StateIdle
	}
	dest := a.patrolPoints[h.patrolIdx%len(a.patrolPoints)]
	if a.moveToward(dest, step) {
		h.patrolIdx++
	}
	return StateIdle
}

// pursuingHandler closes on the suspected position. Arriving without visual
// contact hands off to the area search.
type pursuingHandler struct{}

func (h *pursuingHandler) ID() StateID { return StatePursuing }

func (h *pursuingHandler) Transitions() []StateID {
	return []StateID{StateCombat, StateSearching, StateIdle}
}

func (h *pursuingHandler) Enter(a *Agent, step StepContext) {
	a.clearPath()
}

func (h *pursuingHandler) Exit(a *Agent, step StepContext) {
	a.clearPath()
}

func (h *pursuingHandler) Think(a *Agent, step StepContext) StateID {
	if a.targetVisible() {
		return StateCombat
	}
	dest, ok := a.suspectedPos()
	if !ok {
		return StateIdle
	}
	if a.moveToward(dest, step) {
		// Reached the last known spot and the target is not here.
		return StateSearching
	}
	return StatePursuing
}

// searchingHandler drives the expanding-square sweep, pausing to scan at each
// waypoint.
type searchingHandler struct {
	waypoint    world.Vec2
	hasWaypoint bool
	scanLeft    float64
}

func (h *searchingHandler) ID() StateID { return StateSearching }

func (h *searchingHandler) Transitions() []StateID {
	return []StateID{StateCombat, StateIdle}
}

func (h *searchingHandler) Enter(a *Agent, step StepContext) {
	center := a.pos
	if pos, ok := a.suspectedPos(); ok {
		center = pos
	}
	a.beginSearch(center, step)
	h.hasWaypoint = false
	h.scanLeft = 0
}

func (h *searchingHandler) Exit(a *Agent, step StepContext) {
	a.clearPath()
}

func (h *searchingHandler) Think(a *Agent, step StepContext) StateID {
	if a.targetVisible() {
		a.endSearch("reacquired", step)
		return StateCombat
	}
	session := a.search
	if session == nil {
		return StateIdle
	}
	if session.Expired(step.Now) {
		a.endSearch("timeout", step)
		a.memory.Reset()
		return StateIdle
	}

	if h.scanLeft > 0 {
		h.scanLeft -= step.DT
		a.emitFace(a.scanAngle(h.scanLeft, session.ScanDuration().Seconds()), step)
		return StateSearching
	}

	if !h.hasWaypoint {
		next, ok := session.NextWaypoint()
		if !ok {
			a.endSearch("exhausted", step)
			a.memory.Reset()
			return StateIdle
		}
		h.waypoint = next
		h.hasWaypoint = true
		a.clearPath()
	}

	if a.moveToward(h.waypoint, step) {
		h.hasWaypoint = false
		h.scanLeft = session.ScanDuration().Seconds()
	}
	return StateSearching
}

// combatHandler plans toward elimination and routes the plan head onto the
// specialist states.
type combatHandler struct{}

func (h *combatHandler) ID() StateID { return StateCombat }

func (h *combatHandler) Transitions() []StateID {
	return []StateID{StateSeekingCover, StateFlanking, StateRetreating, StatePursuing, StateIdle}
}

func (h *combatHandler) Enter(a *Agent, step StepContext) {
	a.dropPlan()
}

func (h *combatHandler) Exit(a *Agent, step StepContext) {}

func (h *combatHandler) Think(a *Agent, step StepContext) StateID {
	if !a.targetVisible() {
		if a.memory.HasTarget() {
			return StatePursuing
		}
		return StateIdle
	}

	if !a.ensurePlan(GoalEliminate, step) {
		// NoPlanFound is not an error state; fall back to default behavior.
		return StateIdle
	}

	action, ok := a.plan.Current()
	if !ok {
		a.dropPlan()
		return StateIdle
	}
	switch action.Name() {
	case ActionTakeCover:
		return StateSeekingCover
	case ActionFlankTarget:
		return StateFlanking
	case ActionRetreat:
		return StateRetreating
	case ActionPursueTarget, ActionSearchArea:
		return StatePursuing
	case ActionMeleeAttack:
		h.melee(a, step)
	case ActionRangedAttack, ActionThrowCharge:
		h.shoot(a, step)
	default:
		a.plan.Advance()
	}
	return StateCombat
}

func (h *combatHandler) melee(a *Agent, step StepContext) {
	target, ok := a.deps.Perception.TargetPosition()
	if !ok {
		return
	}
	if world.Dist(a.pos, target) > a.profile.MeleeRange {
		a.moveToward(target, step)
		return
	}
	a.emitFaceToward(target, step)
	a.emitAttack(CapabilityMelee, target, step)
}

func (h *combatHandler) shoot(a *Agent, step StepContext) {
	target, ok := a.deps.Perception.TargetPosition()
	if !ok {
		return
	}
	a.emitFaceToward(target, step)
	a.emitAttack(CapabilityRifle, target, step)
}

// seekingCoverHandler walks to the best sight-blocked point nearby.
type seekingCoverHandler struct {
	dest    world.Vec2
	hasDest bool
}

func (h *seekingCoverHandler) ID() StateID { return StateSeekingCover }

func (h *seekingCoverHandler) Transitions() []StateID {
	return []StateID{StateInCover, StateCombat}
}

func (h *seekingCoverHandler) Enter(a *Agent, step StepContext) {
	h.dest, h.hasDest = a.findCoverPoint()
	a.clearPath()
}

func (h *seekingCoverHandler) Exit(a *Agent, step StepContext) {
	a.clearPath()
}

func (h *seekingCoverHandler) Think(a *Agent, step StepContext) StateID {
	if !h.hasDest {
		// No cover in reach; stand and fight.
		return StateCombat
	}
	if a.moveToward(h.dest, step) {
		return StateInCover
	}
	return StateSeekingCover
}

// inCoverHandler holds position for the configured dwell, then re-engages.
type inCoverHandler struct {
	holdLeft float64
}

func (h *inCoverHandler) ID() StateID { return StateInCover }

func (h *inCoverHandler) Transitions() []StateID {
	return []StateID{StateCombat, StatePursuing, StateIdle}
}

func (h *inCoverHandler) Enter(a *Agent, step StepContext) {
	h.holdLeft = a.profile.CoverHoldSeconds
}

func (h *inCoverHandler) Exit(a *Agent, step StepContext) {}

func (h *inCoverHandler) Think(a *Agent, step StepContext) StateID {
	h.holdLeft -= step.DT
	if h.holdLeft > 0 {
		if pos, ok := a.suspectedPos(); ok {
			a.emitFaceToward(pos, step)
		}
		return StateInCover
	}
	if a.targetVisible() {
		return StateCombat
	}
	if a.memory.HasTarget() {
		return StatePursuing
	}
	return StateIdle
}

// flankingHandler circles to a perpendicular offset from the suspected
// position. A stall watchdog falls back to direct pursuit.
type flankingHandler struct {
	dest       world.Vec2
	hasDest    bool
	stallClock float64
	lastPos    world.Vec2
}

func (h *flankingHandler) ID() StateID { return StateFlanking }

func (h *flankingHandler) Transitions() []StateID {
	return []StateID{StateCombat, StatePursuing}
}

func (h *flankingHandler) Enter(a *Agent, step StepContext) {
	h.dest, h.hasDest = a.flankPoint()
	h.stallClock = 0
	h.lastPos = a.pos
	a.clearPath()
}

func (h *flankingHandler) Exit(a *Agent, step StepContext) {
	a.clearPath()
}

func (h *flankingHandler) Think(a *Agent, step StepContext) StateID {
	if !h.hasDest {
		return StatePursuing
	}

	moved := world.Dist(a.pos, h.lastPos)
	h.lastPos = a.pos
	if moved < a.profile.StuckEpsilon {
		h.stallClock += step.DT
	} else {
		h.stallClock = 0
	}
	if h.stallClock >= a.profile.StallSeconds {
		// Geometry is not cooperating; go straight in instead of idling.
		return StatePursuing
	}

	if a.moveToward(h.dest, step) {
		return StateCombat
	}
	return StateFlanking
}

// suppressedHandler keeps the agent's head down for the configured beat, then
// breaks for cover or back into the fight.
type suppressedHandler struct {
	holdLeft float64
}

func (h *suppressedHandler) ID() StateID { return StateSuppressed }

func (h *suppressedHandler) Transitions() []StateID {
	return []StateID{StateSeekingCover, StateCombat, StatePursuing, StateIdle}
}

func (h *suppressedHandler) Enter(a *Agent, step StepContext) {
	h.holdLeft = a.profile.SuppressedSeconds
	a.clearPath()
}

func (h *suppressedHandler) Exit(a *Agent, step StepContext) {}

func (h *suppressedHandler) Think(a *Agent, step StepContext) StateID {
	h.holdLeft -= step.DT
	if h.holdLeft > 0 {
		return StateSuppressed
	}
	if a.facts.Bool(FactUnderFire) {
		return StateSeekingCover
	}
	if a.targetVisible() {
		return StateCombat
	}
	if a.memory.HasTarget() {
		return StatePursuing
	}
	return StateIdle
}

// retreatingHandler opens distance from the threat until outside the safe
// radius.
type retreatingHandler struct{}

func (h *retreatingHandler) ID() StateID { return StateRetreating }

func (h *retreatingHandler) Transitions() []StateID {
	return []StateID{StateIdle}
}

func (h *retreatingHandler) Enter(a *Agent, step StepContext) {
	a.dropPlan()
	a.clearPath()
}

func (h *retreatingHandler) Exit(a *Agent, step StepContext) {
	a.clearPath()
}

func (h *retreatingHandler) Think(a *Agent, step StepContext) StateID {
	threat, ok := a.suspectedPos()
	if !ok {
		return StateIdle
	}
	if world.Dist(a.pos, threat) >= a.profile.SafeDistance {
		return StateIdle
	}
	a.moveAway(threat, step)
	return StateRetreating
}

// flankPoint picks a perpendicular offset from the line to the suspected
// position, preferring the side with a clear path.
func (a *Agent) flankPoint() (world.Vec2, bool) {
	target, ok := a.suspectedPos()
	if !ok {
		return world.Vec2{}, false
	}
	toTarget := target.Sub(a.pos).Normalized()
	perp := world.Vec2{X: -toTarget.Y, Y: toTarget.X}
	for _, side := range []float64{1, -1} {
		candidate := target.Add(perp.Scale(side * a.profile.FlankOffset))
		if a.deps.Navigation == nil {
			return candidate, true
		}
		snapped, snapOK := a.deps.Navigation.SnapToNavigable(candidate)
		if !snapOK {
			continue
		}
		if _, pathOK := a.deps.Navigation.FindPath(a.pos, snapped); pathOK {
			return snapped, true
		}
	}
	return world.Vec2{}, false
}

// findCoverPoint samples points around the agent and returns the first
// navigable one whose sight line to the suspected position is blocked.
func (a *Agent) findCoverPoint() (world.Vec2, bool) {
	threat, ok := a.suspectedPos()
	if !ok {
		return world.Vec2{}, false
	}
	if a.deps.Obstruction == nil {
		return world.Vec2{}, false
	}
	radius := a.profile.FlankOffset
	for i := 0; i < 8; i++ {
		angle := float64(i) * math.Pi / 4
		candidate := a.pos.Add(world.Vec2{X: math.Cos(angle), Y: math.Sin(angle)}.Scale(radius))
		if a.deps.Navigation != nil {
			snapped, snapOK := a.deps.Navigation.SnapToNavigable(candidate)
			if !snapOK {
				continue
			}
			candidate = snapped
		}
		if a.deps.Obstruction.RaycastBlocked(candidate, threat) {
			return candidate, true
		}
	}
	return world.Vec2{}, false
}
