package main

import (
	"reflect"
	"testing"
	"time"

	"manhunt/server/internal/ai"
	"manhunt/server/internal/world"
	"manhunt/server/logging"
)

const testDT = 1.0 / tickRate

func testWorld(t *testing.T, seed int64) *World {
	t.Helper()
	lib := ai.MustLoadLibrary()
	w, err := NewWorld(seed, 3, lib, logging.NopPublisher())
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	return w
}

func TestWorldsRunInLockstep(t *testing.T) {
	a := testWorld(t, 42)
	b := testWorld(t, 42)

	a.AddTarget("target-1")
	b.AddTarget("target-1")
	a.SetTargetIntent("target-1", 1, 0)
	b.SetTargetIntent("target-1", 1, 0)

	now := time.Unix(1_700_000_000, 0)
	for tick := 0; tick < 150; tick++ {
		now = now.Add(time.Second / tickRate)
		a.Step(now, testDT)
		b.Step(now, testDT)

		if tick%30 != 0 {
			continue
		}
		agentsA, targetsA := a.Snapshot()
		agentsB, targetsB := b.Snapshot()
		if !reflect.DeepEqual(agentsA, agentsB) {
			t.Fatalf("tick %d: agent snapshots diverged\n%v\n%v", tick, agentsA, agentsB)
		}
		if !reflect.DeepEqual(targetsA, targetsB) {
			t.Fatalf("tick %d: target snapshots diverged\n%v\n%v", tick, targetsA, targetsB)
		}
		if !reflect.DeepEqual(a.DebugSnapshots(now), b.DebugSnapshots(now)) {
			t.Fatalf("tick %d: debug snapshots diverged", tick)
		}
	}
}

func TestWorldGenerationIsSeeded(t *testing.T) {
	a := testWorld(t, 7)
	b := testWorld(t, 7)
	if !reflect.DeepEqual(a.Obstacles(), b.Obstacles()) {
		t.Fatalf("same seed produced different terrain")
	}

	c := testWorld(t, 8)
	if reflect.DeepEqual(a.Obstacles(), c.Obstacles()) {
		t.Fatalf("different seeds produced identical terrain")
	}
}

func TestTargetFireSuppressesNearbyAgents(t *testing.T) {
	w := testWorld(t, 42)
	w.AddTarget("target-1")

	agent := w.agents[w.agentOrder[0]]
	agentPos := agent.agent.Position()
	w.targets["target-1"].pos = agentPos.Add(world.Vec2{X: 200})

	now := time.Unix(1_700_000_000, 0)
	w.TargetFire("target-1", agentPos.X, agentPos.Y, now)
	w.Step(now.Add(time.Second/tickRate), testDT)

	if got := agent.agent.State(); got != ai.StateSuppressed {
		t.Fatalf("agent state = %v, want Suppressed after taking fire", got)
	}
}

func TestReloadSoundLocalizesShooter(t *testing.T) {
	w := testWorld(t, 42)
	w.AddTarget("target-1")

	agent := w.agents[w.agentOrder[0]]
	shooterPos := agent.agent.Position().Add(world.Vec2{X: 500})
	shooterPos.X = world.Clamp(shooterPos.X, actorHalf, worldWidth-actorHalf)
	w.targets["target-1"].pos = shooterPos

	now := time.Unix(1_700_000_000, 0)
	w.TargetReload("target-1", now)
	w.Step(now.Add(time.Second/tickRate), testDT)

	snap := agent.agent.DebugSnapshot(now)
	if !snap.HasSuspect {
		t.Fatalf("agent never localized the reload sound")
	}
	if snap.SuspectX != shooterPos.X || snap.SuspectY != shooterPos.Y {
		t.Fatalf("suspect = (%v,%v), want shooter position %v", snap.SuspectX, snap.SuspectY, shooterPos)
	}
}

func TestFootstepsLocalizeUnseenTarget(t *testing.T) {
	w := testWorld(t, 42)
	w.AddTarget("target-1")

	agent := w.agents[w.agentOrder[0]]
	pos := agent.agent.Position()
	w.targets["target-1"].pos = pos.Add(world.Vec2{X: 150})

	// Wall between the pair: footsteps carry through it, sight does not.
	w.obstacles = append(w.obstacles, world.Obstacle{
		ID: "wall-1", X: pos.X + 60, Y: pos.Y - 120, Width: 30, Height: 240,
	})
	w.nav = world.NewNavGrid(w.obstacles, worldWidth, worldHeight, navCellSize, actorHalf)

	now := time.Unix(1_700_000_000, 0)
	now = now.Add(time.Second / tickRate)
	w.Step(now, testDT)
	if snap := agent.agent.DebugSnapshot(now); snap.HasSuspect {
		t.Fatalf("stationary target behind the wall was localized: %+v", snap)
	}

	w.SetTargetIntent("target-1", 0, 1)
	now = now.Add(time.Second / tickRate)
	w.Step(now, testDT)

	snap := agent.agent.DebugSnapshot(now)
	if !snap.HasSuspect {
		t.Fatalf("moving target in earshot was never heard")
	}
	if snap.Confidence > 0.9 {
		t.Fatalf("confidence = %v, want a sound-tier belief, not a sighting", snap.Confidence)
	}
}

func TestBlastDamagesEveryoneInRadius(t *testing.T) {
	w := testWorld(t, 42)
	w.AddTarget("target-1")

	target := w.targets["target-1"]
	now := time.Unix(1_700_000_000, 0)
	w.blasts = append(w.blasts, pendingBlast{
		owner:       w.agentOrder[0],
		capability:  ai.CapabilityGrenade,
		at:          target.pos,
		radius:      225,
		detonatesAt: now,
	})

	w.Step(now.Add(time.Second/tickRate), testDT)
	if target.health >= targetMaxHealth {
		t.Fatalf("target health = %v, want damage from the blast", target.health)
	}
}

func TestIntelShareConvergesBeliefs(t *testing.T) {
	w := testWorld(t, 42)
	now := time.Unix(1_700_000_000, 0)

	sender := w.agents[w.agentOrder[0]]
	receiver := w.agents[w.agentOrder[1]]

	// Co-locate the pair so the broadcast is always in range, then seed only
	// the sender's memory.
	receiver.agent.SetPosition(sender.agent.Position().Add(world.Vec2{X: 50}))
	sender.agent.HearSound(ai.SoundEvent{Kind: ai.SoundGunfire, Position: world.Vec2{X: 1200, Y: 900}, At: now})

	for tick := 0; tick <= intelShareEvery+1; tick++ {
		now = now.Add(time.Second / tickRate)
		w.Step(now, testDT)
	}

	if !receiver.agent.Memory().HasTarget() {
		t.Fatalf("receiver never assimilated the shared intel")
	}
	if got := receiver.agent.Memory().Position(); got.X != 1200 || got.Y != 900 {
		t.Fatalf("receiver belief = %v, want the shared position", got)
	}
}
