package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"manhunt/server/internal/ai"
	"manhunt/server/internal/world"
	"manhunt/server/logging"
	"manhunt/server/logging/ailog"
	"manhunt/server/logging/combatlog"
)

// agentState couples an agent's decision core with the simulated body the
// world integrates.
type agentState struct {
	agent   *ai.Agent
	profile *ai.Profile
	health  float64
	charges int
	intent  world.Vec2
	facing  float64
	alive   bool
}

type targetState struct {
	id     string
	pos    world.Vec2
	intent world.Vec2
	health float64
	alive  bool
}

type pendingBlast struct {
	owner       string
	capability  ai.CapabilityID
	at          world.Vec2
	radius      float64
	detonatesAt time.Time
}

// World owns the simulated arena: terrain, hunter agents, and the connected
// targets they pursue. All mutation happens inside Step, under the hub's
// lock, in sorted-id order so two worlds stepped with the same inputs stay in
// lockstep.
type World struct {
	obstacles []world.Obstacle
	nav       *world.NavGrid

	agents     map[string]*agentState
	agentOrder []string

	targets     map[string]*targetState
	targetOrder []string

	blasts []pendingBlast

	catalog ai.CapabilityCatalog
	pub     logging.Publisher
	rng     *rand.Rand
	tick    uint64
}

// worldPerception adapts the world's sight model onto one agent. The pursued
// target is the nearest living one inside vision with a clear sight line.
type worldPerception struct {
	w  *World
	as *agentState
}

func (p worldPerception) visibleTarget() (*targetState, bool) {
	var best *targetState
	bestDist := math.MaxFloat64
	pos := p.as.agent.Position()
	for _, id := range p.w.targetOrder {
		t := p.w.targets[id]
		if !t.alive {
			continue
		}
		d := world.Dist(pos, t.pos)
		if d > p.as.profile.VisionRange || d >= bestDist {
			continue
		}
		if p.w.nav.RaycastBlocked(pos, t.pos) {
			continue
		}
		best = t
		bestDist = d
	}
	return best, best != nil
}

func (p worldPerception) CanSeeTarget() bool {
	_, ok := p.visibleTarget()
	return ok
}

func (p worldPerception) TargetPosition() (world.Vec2, bool) {
	t, ok := p.visibleTarget()
	if !ok {
		return world.Vec2{}, false
	}
	return t.pos, true
}

// worldVitals exposes an agent's body to its decision core.
type worldVitals struct {
	as *agentState
}

func (v worldVitals) HealthFraction() float64 {
	return v.as.health / agentMaxHealth
}

func (v worldVitals) Charges(capability ai.CapabilityID) int {
	if capability == v.as.profile.Arbiter.Capability {
		return v.as.charges
	}
	return 0
}

// NewWorld builds terrain from the seed and spawns the hunter pack.
func NewWorld(seed int64, agentCount int, lib *ai.Library, pub logging.Publisher) (*World, error) {
	profile, ok := lib.Profile("hunter")
	if !ok {
		return nil, fmt.Errorf("agent config missing hunter profile")
	}
	if pub == nil {
		pub = logging.NopPublisher()
	}

	rng := rand.New(rand.NewSource(seed))
	obstacles := world.GenerateObstacles(rng, obstacleCount, worldWidth, worldHeight, obstacleMinSize, obstacleMaxSize, obstacleMargin, spawnSafeRadius)
	nav := world.NewNavGrid(obstacles, worldWidth, worldHeight, navCellSize, actorHalf)

	w := &World{
		obstacles: obstacles,
		nav:       nav,
		agents:    make(map[string]*agentState),
		targets:   make(map[string]*targetState),
		catalog:   lib.Catalog(),
		pub:       pub,
		rng:       rng,
	}

	desc, _ := lib.Catalog().Descriptor(profile.Arbiter.Capability)
	for i := 0; i < agentCount; i++ {
		id := fmt.Sprintf("agent-%d", i+1)
		spawn := w.randomNavigable()
		patrol := []world.Vec2{spawn, w.randomNavigable(), w.randomNavigable()}
		as := &agentState{
			profile: profile,
			health:  agentMaxHealth,
			charges: desc.Charges,
			alive:   true,
		}
		agent, err := ai.NewAgent(ai.AgentConfig{
			ID:           id,
			Profile:      profile,
			Position:     spawn,
			PatrolPoints: patrol,
		}, ai.Deps{
			Perception:  worldPerception{w: w, as: as},
			Navigation:  nav,
			Obstruction: nav,
			Vitals:      worldVitals{as: as},
			Catalog:     lib.Catalog(),
			Publisher:   pub,
		})
		if err != nil {
			return nil, err
		}
		as.agent = agent
		w.agents[id] = as
		w.agentOrder = append(w.agentOrder, id)
	}
	sort.Strings(w.agentOrder)
	return w, nil
}

func (w *World) randomNavigable() world.Vec2 {
	for i := 0; i < 64; i++ {
		p := world.Vec2{
			X: actorHalf + w.rng.Float64()*(worldWidth-2*actorHalf),
			Y: actorHalf + w.rng.Float64()*(worldHeight-2*actorHalf),
		}
		if snapped, ok := w.nav.SnapToNavigable(p); ok {
			return snapped
		}
	}
	return world.Vec2{X: worldWidth / 2, Y: worldHeight / 2}
}

// AddTarget spawns a connected target and returns its spawn position.
func (w *World) AddTarget(id string) world.Vec2 {
	spawn := w.randomNavigable()
	w.targets[id] = &targetState{id: id, pos: spawn, health: targetMaxHealth, alive: true}
	w.targetOrder = append(w.targetOrder, id)
	sort.Strings(w.targetOrder)
	return spawn
}

// RemoveTarget drops a disconnected target.
func (w *World) RemoveTarget(id string) {
	if _, ok := w.targets[id]; !ok {
		return
	}
	delete(w.targets, id)
	for i, existing := range w.targetOrder {
		if existing == id {
			w.targetOrder = append(w.targetOrder[:i], w.targetOrder[i+1:]...)
			break
		}
	}
}

// SetTargetIntent stores a target's normalized movement intent.
func (w *World) SetTargetIntent(id string, dx, dy float64) bool {
	t, ok := w.targets[id]
	if !ok || !t.alive {
		return false
	}
	length := math.Hypot(dx, dy)
	if length > 1 {
		dx /= length
		dy /= length
	}
	t.intent = world.Vec2{X: dx, Y: dy}
	return true
}

// TargetFire resolves a target shooting toward a point: hit the first agent
// near the ray, suppress agents near the impact, and let every agent in
// earshot localize the shooter.
func (w *World) TargetFire(id string, toX, toY float64, now time.Time) bool {
	shooter, ok := w.targets[id]
	if !ok || !shooter.alive {
		return false
	}
	aim := world.Vec2{X: toX, Y: toY}

	var hit *agentState
	hitDist := math.MaxFloat64
	for _, agentID := range w.agentOrder {
		as := w.agents[agentID]
		if !as.alive {
			continue
		}
		pos := as.agent.Position()
		if distPointSegment(pos, shooter.pos, aim) > fireHitRadius {
			continue
		}
		if w.nav.RaycastBlocked(shooter.pos, pos) {
			continue
		}
		if d := world.Dist(shooter.pos, pos); d < hitDist {
			hit = as
			hitDist = d
		}
	}

	for _, agentID := range w.agentOrder {
		as := w.agents[agentID]
		if !as.alive {
			continue
		}
		pos := as.agent.Position()
		if world.Dist(pos, aim) <= fireSuppressRadius {
			as.agent.NoteSuppressed(now)
		}
		if world.Dist(pos, shooter.pos) <= as.profile.Memory.ShareRangeRadio {
			as.agent.HearSound(ai.SoundEvent{Kind: ai.SoundGunfire, Position: shooter.pos, At: now})
		}
	}

	if hit != nil {
		hit.agent.NoteUnderFire(now)
		w.damageAgent(hit, rifleDamage, logging.EntityRef{ID: shooter.id, Kind: logging.EntityKindTarget}, "", now)
	}
	return true
}

// emitFootsteps lets nearby agents hear a moving target. Footsteps carry
// through walls, so there is no line-of-sight check.
func (w *World) emitFootsteps(t *targetState, now time.Time) {
	for _, agentID := range w.agentOrder {
		as := w.agents[agentID]
		if !as.alive {
			continue
		}
		if world.Dist(as.agent.Position(), t.pos) <= footstepHearRadius {
			as.agent.HearSound(ai.SoundEvent{Kind: ai.SoundFootsteps, Position: t.pos, At: now})
		}
	}
}

// TargetReload broadcasts the reload sound: a vulnerability window the
// arbiter can exploit.
func (w *World) TargetReload(id string, now time.Time) bool {
	shooter, ok := w.targets[id]
	if !ok || !shooter.alive {
		return false
	}
	for _, agentID := range w.agentOrder {
		as := w.agents[agentID]
		if !as.alive {
			continue
		}
		if world.Dist(as.agent.Position(), shooter.pos) <= as.profile.Memory.ShareRangeRadio {
			as.agent.HearSound(ai.SoundEvent{Kind: ai.SoundReload, Position: shooter.pos, At: now})
		}
	}
	return true
}

// Step advances the world one tick.
func (w *World) Step(now time.Time, dt float64) {
	w.tick++

	for _, id := range w.targetOrder {
		t := w.targets[id]
		if !t.alive {
			continue
		}
		w.integrate(&t.pos, t.intent, targetMoveSpeed, dt)
		if t.intent.Length() > 0 {
			w.emitFootsteps(t, now)
		}
	}

	w.detonateDue(now)

	for _, id := range w.agentOrder {
		as := w.agents[id]
		if !as.alive {
			continue
		}
		commands := as.agent.Tick(w.tick, now, dt)
		as.intent = world.Vec2{}
		for _, cmd := range commands {
			w.applyCommand(as, cmd, now)
		}
		if as.intent.Length() > 0 {
			pos := as.agent.Position()
			w.integrate(&pos, as.intent, as.profile.MoveSpeed, dt)
			as.agent.SetPosition(pos)
		}
	}

	if w.tick%intelShareEvery == 0 {
		w.shareIntel(now)
	}
}

func (w *World) applyCommand(as *agentState, cmd ai.Command, now time.Time) {
	switch cmd.Type {
	case ai.CommandMove:
		if cmd.Move != nil {
			as.intent = world.Vec2{X: cmd.Move.DX, Y: cmd.Move.DY}
		}
	case ai.CommandFace:
		if cmd.Face != nil {
			as.facing = cmd.Face.Angle
		}
	case ai.CommandAttack:
		if cmd.Attack != nil {
			w.resolveAttack(as, *cmd.Attack, now)
		}
	}
}

func (w *World) resolveAttack(as *agentState, attack ai.AttackCommand, now time.Time) {
	pos := as.agent.Position()
	switch attack.Capability {
	case ai.CapabilityMelee:
		w.resolveDirectHit(as, attack.Target, as.profile.MeleeRange, meleeDamage, attack.Capability, now)
	case ai.CapabilityRifle:
		if w.nav.RaycastBlocked(pos, attack.Target) {
			return
		}
		w.resolveDirectHit(as, attack.Target, rifleRange, rifleDamage, attack.Capability, now)
	default:
		desc, ok := w.catalog.Descriptor(attack.Capability)
		if !ok || as.charges <= 0 {
			return
		}
		at := attack.Target
		if desc.ThrowRange > 0 && world.Dist(pos, at) > desc.ThrowRange {
			dir := at.Sub(pos).Normalized()
			at = pos.Add(dir.Scale(desc.ThrowRange))
		}
		as.charges--
		w.blasts = append(w.blasts, pendingBlast{
			owner:       as.agent.ID(),
			capability:  attack.Capability,
			at:          at,
			radius:      desc.EffectRadius,
			detonatesAt: now.Add(time.Duration(grenadeFuseSeconds * float64(time.Second))),
		})
	}
}

func (w *World) resolveDirectHit(as *agentState, aim world.Vec2, reach, damage float64, capability ai.CapabilityID, now time.Time) {
	pos := as.agent.Position()
	for _, id := range w.targetOrder {
		t := w.targets[id]
		if !t.alive {
			continue
		}
		if world.Dist(pos, t.pos) > reach {
			continue
		}
		if distPointSegment(t.pos, pos, aim) > fireHitRadius {
			continue
		}
		w.damageTarget(t, damage, as, capability, now)
		return
	}
}

func (w *World) detonateDue(now time.Time) {
	remaining := w.blasts[:0]
	for _, blast := range w.blasts {
		if now.Before(blast.detonatesAt) {
			remaining = append(remaining, blast)
			continue
		}
		owner := logging.EntityRef{ID: blast.owner, Kind: logging.EntityKindAgent}
		for _, id := range w.targetOrder {
			t := w.targets[id]
			if t.alive && world.Dist(t.pos, blast.at) <= blast.radius {
				w.damageTargetRef(t, grenadeDamage, owner, blast.capability, now)
			}
		}
		for _, id := range w.agentOrder {
			as := w.agents[id]
			if as.alive && world.Dist(as.agent.Position(), blast.at) <= blast.radius {
				w.damageAgent(as, grenadeDamage, owner, blast.capability, now)
			}
		}
		for _, id := range w.agentOrder {
			as := w.agents[id]
			if as.alive {
				as.agent.HearSound(ai.SoundEvent{Kind: ai.SoundGunfire, Position: blast.at, At: now})
			}
		}
	}
	w.blasts = remaining
}

func (w *World) damageTarget(t *targetState, amount float64, by *agentState, capability ai.CapabilityID, now time.Time) {
	w.damageTargetRef(t, amount, logging.EntityRef{ID: by.agent.ID(), Kind: logging.EntityKindAgent}, capability, now)
}

func (w *World) damageTargetRef(t *targetState, amount float64, by logging.EntityRef, capability ai.CapabilityID, now time.Time) {
	t.health -= amount
	ref := logging.EntityRef{ID: t.id, Kind: logging.EntityKindTarget}
	combatlog.Damage(context.Background(), w.pub, w.tick, by, ref, combatlog.DamagePayload{
		Capability:   string(capability),
		Amount:       amount,
		TargetHealth: math.Max(t.health, 0),
	})
	if t.health <= 0 {
		t.alive = false
		t.intent = world.Vec2{}
		combatlog.Defeat(context.Background(), w.pub, w.tick, by, ref)
	}
}

func (w *World) damageAgent(as *agentState, amount float64, by logging.EntityRef, capability ai.CapabilityID, now time.Time) {
	as.health -= amount
	ref := logging.EntityRef{ID: as.agent.ID(), Kind: logging.EntityKindAgent}
	combatlog.Damage(context.Background(), w.pub, w.tick, by, ref, combatlog.DamagePayload{
		Capability:   string(capability),
		Amount:       amount,
		TargetHealth: math.Max(as.health, 0),
	})
	if as.health > 0 {
		return
	}
	as.alive = false
	combatlog.Defeat(context.Background(), w.pub, w.tick, by, ref)
	// Witnesses count the loss toward the retaliation trigger.
	for _, id := range w.agentOrder {
		other := w.agents[id]
		if !other.alive || other == as {
			continue
		}
		pos := other.agent.Position()
		if world.Dist(pos, as.agent.Position()) <= other.profile.VisionRange &&
			!w.nav.RaycastBlocked(pos, as.agent.Position()) {
			other.agent.NoteAllyDefeated()
		}
	}
}

// shareIntel runs one broadcast round: every agent offers its belief to every
// other agent in range; the receiver's own update rule decides acceptance.
func (w *World) shareIntel(now time.Time) {
	for _, senderID := range w.agentOrder {
		sender := w.agents[senderID]
		if !sender.alive {
			continue
		}
		snap, ok := sender.agent.Memory().Snapshot()
		if !ok {
			continue
		}
		senderPos := sender.agent.Position()
		for _, receiverID := range w.agentOrder {
			if receiverID == senderID {
				continue
			}
			receiver := w.agents[receiverID]
			if !receiver.alive {
				continue
			}
			receiverPos := receiver.agent.Position()
			dist := world.Dist(senderPos, receiverPos)
			los := !w.nav.RaycastBlocked(senderPos, receiverPos)
			if receiver.agent.AssimilateIntel(snap, dist, los, now) {
				ailog.IntelShared(context.Background(), w.pub, w.tick,
					logging.EntityRef{ID: senderID, Kind: logging.EntityKindAgent},
					logging.EntityRef{ID: receiverID, Kind: logging.EntityKindAgent},
					snap.Confidence)
			}
		}
	}
}

// integrate moves a body along its intent, stopping at world bounds and
// obstacle faces.
func (w *World) integrate(pos *world.Vec2, intent world.Vec2, speed, dt float64) {
	if intent.Length() == 0 {
		return
	}
	dir := intent.Normalized()
	next := pos.Add(dir.Scale(speed * dt))
	next.X = world.Clamp(next.X, actorHalf, worldWidth-actorHalf)
	next.Y = world.Clamp(next.Y, actorHalf, worldHeight-actorHalf)
	for _, obs := range w.obstacles {
		if world.CircleRectOverlap(next.X, next.Y, actorHalf, obs) {
			// Try sliding along each axis before giving up.
			slideX := world.Vec2{X: next.X, Y: pos.Y}
			if !world.CircleRectOverlap(slideX.X, slideX.Y, actorHalf, obs) {
				next = slideX
				continue
			}
			slideY := world.Vec2{X: pos.X, Y: next.Y}
			if !world.CircleRectOverlap(slideY.X, slideY.Y, actorHalf, obs) {
				next = slideY
				continue
			}
			return
		}
	}
	*pos = next
}

func distPointSegment(p, a, b world.Vec2) float64 {
	ab := b.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	if lenSq == 0 {
		return world.Dist(p, a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / lenSq
	t = world.Clamp(t, 0, 1)
	closest := a.Add(ab.Scale(t))
	return world.Dist(p, closest)
}

// AgentSnapshot is the public agent view broadcast to clients.
type AgentSnapshot struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Facing float64 `json:"facing"`
	Health float64 `json:"health"`
	State  string  `json:"state"`
	Alive  bool    `json:"alive"`
}

// TargetSnapshot is the public target view broadcast to clients.
type TargetSnapshot struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Health float64 `json:"health"`
	Alive  bool    `json:"alive"`
}

// Snapshot captures the broadcastable world state in deterministic order.
func (w *World) Snapshot() ([]AgentSnapshot, []TargetSnapshot) {
	agents := make([]AgentSnapshot, 0, len(w.agentOrder))
	for _, id := range w.agentOrder {
		as := w.agents[id]
		pos := as.agent.Position()
		agents = append(agents, AgentSnapshot{
			ID:     id,
			X:      pos.X,
			Y:      pos.Y,
			Facing: as.facing,
			Health: math.Max(as.health, 0),
			State:  as.agent.State().String(),
			Alive:  as.alive,
		})
	}
	targets := make([]TargetSnapshot, 0, len(w.targetOrder))
	for _, id := range w.targetOrder {
		t := w.targets[id]
		targets = append(targets, TargetSnapshot{
			ID:     id,
			X:      t.pos.X,
			Y:      t.pos.Y,
			Health: math.Max(t.health, 0),
			Alive:  t.alive,
		})
	}
	return agents, targets
}

// DebugSnapshots captures per-agent decision internals in deterministic order.
func (w *World) DebugSnapshots(now time.Time) []ai.DebugState {
	out := make([]ai.DebugState, 0, len(w.agentOrder))
	for _, id := range w.agentOrder {
		out = append(out, w.agents[id].agent.DebugSnapshot(now))
	}
	return out
}

// Obstacles exposes the generated terrain for the initial client payload.
func (w *World) Obstacles() []world.Obstacle {
	return w.obstacles
}

// Tick reports the current tick counter.
func (w *World) Tick() uint64 {
	return w.tick
}
