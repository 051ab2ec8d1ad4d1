package ai

import (
	"context"
	"fmt"
	"math"
	"time"

	"manhunt/server/internal/world"
	"manhunt/server/logging"
	"manhunt/server/logging/ailog"
	"manhunt/server/logging/combatlog"
)

// SoundKind classifies an audible stimulus fed in by the host simulation.
type SoundKind string

const (
	SoundGunfire   SoundKind = "gunfire"
	SoundReload    SoundKind = "reload"
	SoundFootsteps SoundKind = "footsteps"
)

// SoundEvent is a positioned audible stimulus. Sounds queue between ticks and
// are drained at the start of the next Tick.
type SoundEvent struct {
	Kind     SoundKind
	Position world.Vec2
	At       time.Time
}

// Sound-derived observation confidences and the window a heard reload keeps
// the target flagged vulnerable.
const (
	soundConfidence      = 0.6
	reloadWindowSeconds  = 2.0
	underFireGraceSecond = 1.0
)

// AgentConfig assembles one agent. Profile is required; Actions and Triggers
// default to the built-in libraries.
type AgentConfig struct {
	ID           string
	Profile      *Profile
	Position     world.Vec2
	PatrolPoints []world.Vec2
	Actions      []Action
	Triggers     []Trigger
}

// Agent is one autonomous hunter: a planner choosing what to do, a state
// machine doing it, a decaying memory of the target, and an arbiter deciding
// when the area attack is both wanted and safe. Tick is the only entry point
// that mutates; everything the host reads back is a value copy.
type Agent struct {
	id      string
	profile *Profile
	deps    Deps

	pos    world.Vec2
	facing float64

	memory  *TargetMemory
	planner *Planner
	plan    *Plan
	goal    GoalState
	search  *SearchSession
	arbiter *AttackArbiter
	machine *Machine

	patrolPoints []world.Vec2

	facts    WorldState
	commands []Command

	path    []world.Vec2
	pathIdx int
	pathEnd world.Vec2
	hasPath bool

	underFireUntil  time.Time
	suppressedUntil time.Time
	reloadHeardTil  time.Time
	allyLosses      int
	pendingSounds   []SoundEvent
}

// NewAgent wires the decision stack for one agent.
func NewAgent(cfg AgentConfig, deps Deps) (*Agent, error) {
	if cfg.Profile == nil {
		return nil, fmt.Errorf("agent %s: profile is required", cfg.ID)
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	actions := cfg.Actions
	if len(actions) == 0 {
		actions = DefaultActions()
	}
	triggers := cfg.Triggers
	if len(triggers) == 0 {
		triggers = DefaultTriggers(cfg.Profile.Triggers)
	}
	machine, err := NewMachine(StateIdle, defaultHandlers())
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", cfg.ID, err)
	}
	return &Agent{
		id:           cfg.ID,
		profile:      cfg.Profile,
		deps:         deps,
		pos:          cfg.Position,
		patrolPoints: append([]world.Vec2(nil), cfg.PatrolPoints...),
		memory:       NewTargetMemory(cfg.Profile.Memory),
		planner:      NewPlanner(actions, cfg.Profile.PlannerMaxNodes),
		arbiter:      NewAttackArbiter(cfg.Profile.Arbiter, triggers, deps.Catalog, deps.Obstruction),
		machine:      machine,
		facts:        WorldState{},
	}, nil
}

// ID returns the agent's identifier.
func (a *Agent) ID() string { return a.id }

// Position returns the agent's current position.
func (a *Agent) Position() world.Vec2 { return a.pos }

// SetPosition is called by the host after integrating movement.
func (a *Agent) SetPosition(p world.Vec2) { a.pos = p }

// State reports the occupied behavioral state.
func (a *Agent) State() StateID { return a.machine.Current() }

// Memory exposes the target belief for intel sharing and debug views.
func (a *Agent) Memory() *TargetMemory { return a.memory }

// NoteUnderFire records incoming fire; the flag holds for a short grace so
// single shots register across ticks.
func (a *Agent) NoteUnderFire(now time.Time) {
	a.underFireUntil = now.Add(secondsToDuration(underFireGraceSecond))
}

// NoteSuppressed records heavy concentrated fire.
func (a *Agent) NoteSuppressed(now time.Time) {
	a.suppressedUntil = now.Add(secondsToDuration(a.profile.SuppressedSeconds))
	a.NoteUnderFire(now)
}

// NoteAllyDefeated counts a witnessed allied loss.
func (a *Agent) NoteAllyDefeated() { a.allyLosses++ }

// HearSound queues an audible stimulus for the next tick.
func (a *Agent) HearSound(ev SoundEvent) {
	a.pendingSounds = append(a.pendingSounds, ev)
}

// AssimilateIntel runs a broadcast memory snapshot through this agent's
// update rule. Reports whether the intel was accepted.
func (a *Agent) AssimilateIntel(snap MemorySnapshot, senderDistance float64, lineOfSight bool, now time.Time) bool {
	return a.memory.AssimilateIntel(snap, senderDistance, lineOfSight, now)
}

// Tick runs one decision cycle and returns the commands to execute. The
// sequence is fixed: decay, perceive, arbitrate, think.
func (a *Agent) Tick(tick uint64, now time.Time, dt float64) []Command {
	a.commands = a.commands[:0]
	step := StepContext{Tick: tick, Now: now, DT: dt}

	a.memory.Decay(dt)
	a.perceive(step)
	a.drainSounds(step)
	a.buildFacts(now)
	a.applyInterrupts(step)
	a.arbitrate(step)
	a.machine.Step(a, step)

	out := make([]Command, len(a.commands))
	copy(out, a.commands)
	return out
}

// perceive feeds direct sight through the memory update rule.
func (a *Agent) perceive(step StepContext) {
	p := a.deps.Perception
	if p == nil || !p.CanSeeTarget() {
		return
	}
	pos, ok := p.TargetPosition()
	if !ok {
		return
	}
	if a.memory.Observe(pos, 1.0, step.Now) {
		ailog.MemoryUpdate(context.Background(), a.deps.Publisher, step.Tick, a.entityRef(), pos.X, pos.Y, 1.0, "visual")
	}
}

// drainSounds converts queued stimuli into memory observations and the
// reload-vulnerability window.
func (a *Agent) drainSounds(step StepContext) {
	for _, ev := range a.pendingSounds {
		if ev.Kind == SoundReload {
			a.reloadHeardTil = ev.At.Add(secondsToDuration(reloadWindowSeconds))
		}
		if a.memory.Observe(ev.Position, soundConfidence, step.Now) {
			ailog.MemoryUpdate(context.Background(), a.deps.Publisher, step.Tick, a.entityRef(), ev.Position.X, ev.Position.Y, soundConfidence, "sound:"+string(ev.Kind))
		}
	}
	a.pendingSounds = a.pendingSounds[:0]
}

// buildFacts snapshots the world into the planner's fact space.
func (a *Agent) buildFacts(now time.Time) {
	visible := a.deps.Perception != nil && a.deps.Perception.CanSeeTarget()
	located := a.memory.HasTarget()

	inRange := false
	if visible {
		if target, ok := a.deps.Perception.TargetPosition(); ok {
			inRange = world.Dist(a.pos, target) <= a.profile.MeleeRange
		}
	}

	atSuspected := located && world.Dist(a.pos, a.memory.Position()) <= a.profile.ArriveRadius
	underFire := now.Before(a.underFireUntil)
	suppressed := now.Before(a.suppressedUntil)

	healthFrac := 1.0
	charges := 0.0
	if a.deps.Vitals != nil {
		healthFrac = world.Clamp(a.deps.Vitals.HealthFraction(), 0, 1)
		charges = float64(a.deps.Vitals.Charges(a.profile.Arbiter.Capability))
	}

	inCover := a.machine.Current() == StateInCover
	if !inCover && located && a.deps.Obstruction != nil {
		inCover = a.deps.Obstruction.RaycastBlocked(a.pos, a.memory.Position())
	}
	hasCover := inCover
	if !hasCover && located {
		_, hasCover = a.findCoverPoint()
	}

	safe := !underFire && (!located || world.Dist(a.pos, a.memory.Position()) >= a.profile.SafeDistance)

	a.facts = WorldState{
		FactTargetVisible:    Bool(visible),
		FactTargetLocated:    Bool(located),
		FactTargetInRange:    Bool(inRange),
		FactTargetEliminated: Bool(false),
		FactTargetReloading:  Bool(now.Before(a.reloadHeardTil)),
		FactAtSuspectedPos:   Bool(atSuspected),
		FactHasCover:         Bool(hasCover),
		FactInCover:          Bool(inCover),
		FactUnderFire:        Bool(underFire),
		FactSuppressed:       Bool(suppressed),
		FactSafe:             Bool(safe),
		FactPatrolling:       Bool(a.machine.Current() == StateIdle),
		FactFlanking:         Bool(a.machine.Current() == StateFlanking),
		FactHealthFrac:       Number(healthFrac),
		FactChargesLeft:      Number(charges),
		FactMemoryConfidence: Number(a.memory.Confidence()),
		FactAllyLosses:       Number(float64(a.allyLosses)),
	}
}

// applyInterrupts enforces the whole-graph overrides: critical health forces
// retreat, fresh incoming fire forces the suppressed beat. Reactive states
// already handling the stimulus are left alone.
func (a *Agent) applyInterrupts(step StepContext) {
	current := a.machine.Current()
	if a.facts.Number(FactHealthFrac) <= a.profile.RetreatHealthFrac && current != StateRetreating {
		a.machine.Force(a, StateRetreating, step)
		return
	}
	if !a.facts.Bool(FactUnderFire) {
		return
	}
	switch current {
	case StateSuppressed, StateRetreating, StateSeekingCover, StateInCover, StateFlanking, StateCombat:
		return
	}
	a.machine.Force(a, StateSuppressed, step)
}

// arbitrate runs the attack arbiter and emits the throw when authorized.
func (a *Agent) arbitrate(step StepContext) {
	in := TriggerInput{
		Facts:    a.facts,
		Memory:   a.memory,
		AgentPos: a.pos,
		Now:      step.Now,
		DT:       step.DT,
	}
	decision, authorized := a.arbiter.Evaluate(in)
	if decision.Trigger == "" {
		return
	}
	payload := combatlog.AttackPayload{
		Trigger:          string(decision.Trigger),
		Capability:       string(decision.Capability),
		TargetX:          decision.Target.X,
		TargetY:          decision.Target.Y,
		RequiredDistance: decision.Check.RequiredDistance,
		ActualDistance:   decision.Check.ActualDistance,
		PathClear:        decision.Check.PathClear,
	}
	if !authorized {
		if !a.arbiter.CoolingDown(step.Now) {
			combatlog.AttackRejected(context.Background(), a.deps.Publisher, step.Tick, a.entityRef(), payload)
		}
		return
	}
	if a.deps.Vitals != nil && a.deps.Vitals.Charges(decision.Capability) <= 0 {
		return
	}
	a.emitFaceToward(decision.Target, step)
	a.emitAttack(decision.Capability, decision.Target, step)
	a.arbiter.Commit(step.Now)
	combatlog.AttackAuthorized(context.Background(), a.deps.Publisher, step.Tick, a.entityRef(), payload)
}

func (a *Agent) entityRef() logging.EntityRef {
	return logging.EntityRef{ID: a.id, Kind: logging.EntityKindAgent}
}

func (a *Agent) targetVisible() bool {
	return a.facts.Bool(FactTargetVisible)
}

func (a *Agent) suspectedPos() (world.Vec2, bool) {
	if !a.memory.HasTarget() {
		return world.Vec2{}, false
	}
	return a.memory.Position(), true
}

// ensurePlan keeps a valid plan for the goal, replanning when the current
// action's preconditions stopped holding. Returns false when no sequence
// reaches the goal.
func (a *Agent) ensurePlan(goal GoalState, step StepContext) bool {
	if a.plan != nil && goalsEqual(a.goal, goal) && !a.plan.Empty() {
		if a.plan.Valid(a.facts) {
			return true
		}
		if action, ok := a.plan.Current(); ok {
			ailog.Replan(context.Background(), a.deps.Publisher, step.Tick, a.entityRef(), action.Name())
		}
		a.plan = nil
	}
	plan, err := a.planner.Plan(a.facts, goal)
	if err != nil {
		ailog.NoPlan(context.Background(), a.deps.Publisher, step.Tick, a.entityRef(), goalName(goal))
		a.plan = nil
		return false
	}
	a.plan = plan
	a.goal = goal
	ailog.PlanCommitted(context.Background(), a.deps.Publisher, step.Tick, a.entityRef(), goalName(goal), plan.Names(), plan.TotalCost)
	return true
}

func (a *Agent) dropPlan() {
	a.plan = nil
	a.goal = nil
}

func goalsEqual(a, b GoalState) bool {
	if len(a) != len(b) {
		return false
	}
	for key, want := range a {
		have, ok := b[key]
		if !ok || !want.Equal(have) {
			return false
		}
	}
	return true
}

func goalName(goal GoalState) string {
	switch {
	case goalsEqual(goal, GoalEliminate):
		return "eliminate"
	case goalsEqual(goal, GoalSafe):
		return "safe"
	case goalsEqual(goal, GoalPatrol):
		return "patrol"
	case goalsEqual(goal, GoalLocate):
		return "locate"
	default:
		return "custom"
	}
}

// beginSearch opens a sweep session centered on the suspected position.
func (a *Agent) beginSearch(center world.Vec2, step StepContext) {
	a.search = NewSearchSession(center, a.profile.Search, a.deps.Navigation, step.Now)
	ailog.SearchStarted(context.Background(), a.deps.Publisher, step.Tick, a.entityRef(), center.X, center.Y)
}

// endSearch closes the session and reports why.
func (a *Agent) endSearch(reason string, step StepContext) {
	if a.search == nil {
		return
	}
	ailog.SearchEnded(context.Background(), a.deps.Publisher, step.Tick, a.entityRef(), reason, a.search.VisitedZoneCount())
	a.search = nil
}

// moveToward emits movement along a navigable path to dest. Reports true on
// arrival.
func (a *Agent) moveToward(dest world.Vec2, step StepContext) bool {
	if world.Dist(a.pos, dest) <= a.profile.ArriveRadius {
		a.clearPath()
		return true
	}

	nav := a.deps.Navigation
	if nav == nil || nav.IsPathClear(a.pos, dest) {
		a.emitMoveToward(dest, step)
		return false
	}

	if !a.hasPath || world.Dist(a.pathEnd, dest) > a.profile.ArriveRadius {
		path, ok := nav.FindPath(a.pos, dest)
		if !ok || len(path) == 0 {
			// Unreachable; press toward it directly and let physics resolve.
			a.emitMoveToward(dest, step)
			return false
		}
		a.path = path
		a.pathIdx = 0
		a.pathEnd = dest
		a.hasPath = true
	}

	for a.pathIdx < len(a.path) && world.Dist(a.pos, a.path[a.pathIdx]) <= a.profile.ArriveRadius {
		a.pathIdx++
	}
	if a.pathIdx >= len(a.path) {
		a.clearPath()
		a.emitMoveToward(dest, step)
		return false
	}
	a.emitMoveToward(a.path[a.pathIdx], step)
	return false
}

// moveAway opens distance from a threat point.
func (a *Agent) moveAway(from world.Vec2, step StepContext) {
	dir := a.pos.Sub(from).Normalized()
	if dir.Length() == 0 {
		dir = world.Vec2{X: 1}
	}
	a.emitMove(dir, step)
}

func (a *Agent) clearPath() {
	a.path = nil
	a.pathIdx = 0
	a.hasPath = false
}

func (a *Agent) emitMoveToward(dest world.Vec2, step StepContext) {
	dir := dest.Sub(a.pos).Normalized()
	a.emitMove(dir, step)
}

func (a *Agent) emitMove(dir world.Vec2, step StepContext) {
	if dir.Length() == 0 {
		return
	}
	a.facing = math.Atan2(dir.Y, dir.X)
	a.commands = append(a.commands, Command{
		OriginTick: step.Tick,
		ActorID:    a.id,
		Type:       CommandMove,
		IssuedAt:   step.Now,
		Move:       &MoveCommand{DX: dir.X, DY: dir.Y},
	})
}

func (a *Agent) emitFace(angle float64, step StepContext) {
	a.facing = angle
	a.commands = append(a.commands, Command{
		OriginTick: step.Tick,
		ActorID:    a.id,
		Type:       CommandFace,
		IssuedAt:   step.Now,
		Face:       &FaceCommand{Angle: angle},
	})
}

func (a *Agent) emitFaceToward(point world.Vec2, step StepContext) {
	dir := point.Sub(a.pos)
	if dir.Length() == 0 {
		return
	}
	a.emitFace(math.Atan2(dir.Y, dir.X), step)
}

func (a *Agent) emitAttack(capability CapabilityID, target world.Vec2, step StepContext) {
	a.commands = append(a.commands, Command{
		OriginTick: step.Tick,
		ActorID:    a.id,
		Type:       CommandAttack,
		IssuedAt:   step.Now,
		Attack:     &AttackCommand{Capability: capability, Target: target},
	})
}

// slowScanAngle drifts the facing while loitering.
func (a *Agent) slowScanAngle(step StepContext) float64 {
	return a.facing + (math.Pi/4)*step.DT
}

// scanAngle sweeps a full rotation across the scan window.
func (a *Agent) scanAngle(remaining, total float64) float64 {
	if total <= 0 {
		return a.facing
	}
	return 2 * math.Pi * (total - remaining) / total
}

// DebugState is the value snapshot broadcast to diagnostic clients.
type DebugState struct {
	ID           string   `json:"id"`
	X            float64  `json:"x"`
	Y            float64  `json:"y"`
	State        string   `json:"state"`
	PlanActions  []string `json:"planActions,omitempty"`
	Goal         string   `json:"goal,omitempty"`
	HasSuspect   bool     `json:"hasSuspect"`
	SuspectX     float64  `json:"suspectX,omitempty"`
	SuspectY     float64  `json:"suspectY,omitempty"`
	Confidence   float64  `json:"confidence"`
	Tier         string   `json:"tier"`
	VisitedZones int      `json:"visitedZones,omitempty"`
	SearchRadius float64  `json:"searchRadius,omitempty"`
	CoolingDown  bool     `json:"coolingDown"`
	AllyLosses   int      `json:"allyLosses,omitempty"`
}

// DebugSnapshot captures the agent's decision internals for broadcast.
func (a *Agent) DebugSnapshot(now time.Time) DebugState {
	snap := DebugState{
		ID:          a.id,
		X:           a.pos.X,
		Y:           a.pos.Y,
		State:       a.machine.Current().String(),
		Confidence:  a.memory.Confidence(),
		Tier:        a.memory.Tier().String(),
		CoolingDown: a.arbiter.CoolingDown(now),
		AllyLosses:  a.allyLosses,
	}
	if a.plan != nil {
		snap.PlanActions = a.plan.Names()
		snap.Goal = goalName(a.goal)
	}
	if pos, ok := a.suspectedPos(); ok {
		snap.HasSuspect = true
		snap.SuspectX = pos.X
		snap.SuspectY = pos.Y
	}
	if a.search != nil {
		snap.VisitedZones = a.search.VisitedZoneCount()
		snap.SearchRadius = a.search.CurrentRadius()
	}
	return snap
}
