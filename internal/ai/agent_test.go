package ai

import (
	"testing"
	"time"

	"manhunt/server/internal/world"
)

type fakePerception struct {
	visible bool
	pos     world.Vec2
}

func (p *fakePerception) CanSeeTarget() bool { return p.visible }

func (p *fakePerception) TargetPosition() (world.Vec2, bool) {
	return p.pos, p.visible
}

type fakeVitals struct {
	health  float64
	charges int
}

func (v *fakeVitals) HealthFraction() float64 { return v.health }

func (v *fakeVitals) Charges(CapabilityID) int { return v.charges }

// aiHarness steps one agent through simulated time, integrating its movement
// commands the way the host world would.
type aiHarness struct {
	t          *testing.T
	agent      *Agent
	perception *fakePerception
	vitals     *fakeVitals
	profile    *Profile
	now        time.Time
	tick       uint64
}

func newHarness(t *testing.T) *aiHarness {
	t.Helper()
	lib := MustLoadLibrary()
	profile, ok := lib.Profile("hunter")
	if !ok {
		t.Fatalf("embedded config missing hunter profile")
	}
	perception := &fakePerception{}
	vitals := &fakeVitals{health: 1, charges: 3}
	agent, err := NewAgent(AgentConfig{
		ID:      "agent-1",
		Profile: profile,
	}, Deps{
		Perception:  perception,
		Navigation:  &fakeNav{},
		Obstruction: stubObstruction{},
		Vitals:      vitals,
		Catalog:     lib.Catalog(),
	})
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	return &aiHarness{
		t:          t,
		agent:      agent,
		perception: perception,
		vitals:     vitals,
		profile:    profile,
		now:        time.Unix(10_000, 0),
	}
}

func (h *aiHarness) step(dt float64) []Command {
	h.tick++
	h.now = h.now.Add(time.Duration(dt * float64(time.Second)))
	commands := h.agent.Tick(h.tick, h.now, dt)
	for _, cmd := range commands {
		if cmd.Type == CommandMove && cmd.Move != nil {
			pos := h.agent.Position()
			pos.X += cmd.Move.DX * h.profile.MoveSpeed * dt
			pos.Y += cmd.Move.DY * h.profile.MoveSpeed * dt
			h.agent.SetPosition(pos)
		}
	}
	return commands
}

func (h *aiHarness) stepSeconds(seconds float64) {
	const dt = 1.0 / 15
	steps := int(seconds / dt)
	for i := 0; i < steps; i++ {
		h.step(dt)
	}
}

func TestAgentStartsIdle(t *testing.T) {
	h := newHarness(t)
	h.step(1.0 / 15)
	if got := h.agent.State(); got != StateIdle {
		t.Fatalf("state = %v, want Idle", got)
	}
}

func TestAgentPursuesHeardGunfire(t *testing.T) {
	h := newHarness(t)
	h.agent.HearSound(SoundEvent{Kind: SoundGunfire, Position: world.Vec2{X: 500}, At: h.now})

	h.step(1.0 / 15)
	if got := h.agent.State(); got != StatePursuing {
		t.Fatalf("state = %v, want Pursuing after hearing gunfire", got)
	}
	snap := h.agent.DebugSnapshot(h.now)
	if !snap.HasSuspect || snap.SuspectX != 500 {
		t.Fatalf("suspect = %+v, want the gunfire position", snap)
	}
}

func TestAgentArrivalWithoutContactStartsSearch(t *testing.T) {
	h := newHarness(t)
	// The stimulus is close enough that one pursuit tick arrives.
	h.agent.HearSound(SoundEvent{Kind: SoundGunfire, Position: world.Vec2{X: 10}, At: h.now})

	h.step(1.0 / 15) // Idle -> Pursuing
	h.step(1.0 / 15) // arrival -> Searching
	if got := h.agent.State(); got != StateSearching {
		t.Fatalf("state = %v, want Searching after arriving empty-handed", got)
	}
	snap := h.agent.DebugSnapshot(h.now)
	if snap.VisitedZones == 0 {
		t.Fatalf("search session not started")
	}
}

func TestAgentReacquisitionInterruptsSearch(t *testing.T) {
	h := newHarness(t)
	h.agent.HearSound(SoundEvent{Kind: SoundGunfire, Position: world.Vec2{X: 10}, At: h.now})
	h.step(1.0 / 15)
	h.step(1.0 / 15)
	if got := h.agent.State(); got != StateSearching {
		t.Fatalf("precondition: state = %v, want Searching", got)
	}

	h.perception.visible = true
	h.perception.pos = world.Vec2{X: 60}
	h.step(1.0 / 15)
	if got := h.agent.State(); got != StateCombat {
		t.Fatalf("state = %v, want Combat after reacquiring the target", got)
	}
}

func TestAgentUnderFireInterrupt(t *testing.T) {
	h := newHarness(t)
	h.agent.NoteUnderFire(h.now)
	h.step(1.0 / 15)
	if got := h.agent.State(); got != StateSuppressed {
		t.Fatalf("state = %v, want Suppressed after taking fire", got)
	}
}

func TestAgentCriticalHealthForcesRetreat(t *testing.T) {
	h := newHarness(t)
	h.agent.HearSound(SoundEvent{Kind: SoundGunfire, Position: world.Vec2{X: 100}, At: h.now})
	h.vitals.health = 0.1
	h.step(1.0 / 15)
	if got := h.agent.State(); got != StateRetreating {
		t.Fatalf("state = %v, want Retreating at critical health", got)
	}
}

func TestAgentSustainedFireAuthorizesGrenade(t *testing.T) {
	h := newHarness(t)
	// The shooter is localized by sound far enough out that pursuit cannot
	// close inside the safety gate before the trigger matures.
	h.agent.HearSound(SoundEvent{Kind: SoundGunfire, Position: world.Vec2{X: 700}, At: h.now})

	deadline := h.profile.Triggers.SustainedFireSeconds + 1
	var attack *AttackCommand
	for elapsed := 0.0; elapsed < deadline; elapsed += 1.0 / 15 {
		h.agent.NoteUnderFire(h.now)
		for _, cmd := range h.step(1.0 / 15) {
			if cmd.Type == CommandAttack && cmd.Attack != nil && cmd.Attack.Capability == CapabilityGrenade {
				attack = cmd.Attack
			}
		}
		if attack != nil {
			break
		}
	}
	if attack == nil {
		t.Fatalf("sustained fire never authorized the area attack")
	}
	if attack.Target.X != 700 {
		t.Fatalf("attack target = %v, want the suspected position", attack.Target)
	}
	snap := h.agent.DebugSnapshot(h.now)
	if !snap.CoolingDown {
		t.Fatalf("shared cooldown should start after the authorized attack")
	}
}

func TestAgentTooCloseGrenadeRejected(t *testing.T) {
	h := newHarness(t)
	// Suspected position inside the blast radius: the gate must hold even
	// under sustained fire.
	h.agent.HearSound(SoundEvent{Kind: SoundGunfire, Position: world.Vec2{X: 100}, At: h.now})

	deadline := h.profile.Triggers.SustainedFireSeconds + 2
	for elapsed := 0.0; elapsed < deadline; elapsed += 1.0 / 15 {
		h.agent.NoteUnderFire(h.now)
		// Pin the agent so pursuit cannot open the distance past the gate.
		h.agent.SetPosition(world.Vec2{})
		for _, cmd := range h.step(1.0 / 15) {
			if cmd.Type == CommandAttack && cmd.Attack != nil && cmd.Attack.Capability == CapabilityGrenade {
				t.Fatalf("grenade authorized %.0f units from the blast center", cmd.Attack.Target.X)
			}
		}
	}
}
