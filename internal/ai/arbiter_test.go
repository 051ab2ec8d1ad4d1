package ai

import (
	"testing"
	"time"

	"manhunt/server/internal/world"
)

// stubTrigger fires on demand at a fixed point.
type stubTrigger struct {
	id     TriggerID
	cost   float64
	ready  bool
	target world.Vec2
	calls  int
}

func (t *stubTrigger) ID() TriggerID { return t.id }
func (t *stubTrigger) Cost() float64 { return t.cost }

func (t *stubTrigger) Ready(in TriggerInput) bool {
	t.calls++
	return t.ready
}

func (t *stubTrigger) Target(in TriggerInput) (world.Vec2, bool) {
	return t.target, true
}

// stubObstruction scripts the throw-path check.
type stubObstruction struct {
	blocked bool
}

func (o stubObstruction) RaycastBlocked(a, b world.Vec2) bool { return o.blocked }

func testCatalog() StaticCatalog {
	return StaticCatalog{
		CapabilityGrenade: {
			ID:           CapabilityGrenade,
			EffectRadius: 225,
			ThrowRange:   700,
			Charges:      3,
		},
	}
}

func testArbiterConfig() ArbiterConfig {
	return ArbiterConfig{
		Capability:   CapabilityGrenade,
		SafetyMargin: 50,
		Cooldown:     8 * time.Second,
	}
}

func arbiterInput(agentPos world.Vec2, now time.Time) TriggerInput {
	return TriggerInput{
		Facts:    WorldState{},
		AgentPos: agentPos,
		Now:      now,
		DT:       1.0 / 15,
	}
}

func TestSafetyGateDistanceBoundary(t *testing.T) {
	// Effect radius 225 plus margin 50: 270 is inside the blast, 275 is out.
	cases := []struct {
		distance float64
		want     bool
	}{
		{270, false},
		{275, true},
	}
	for _, tc := range cases {
		trigger := &stubTrigger{id: "test", cost: 0.5, ready: true, target: world.Vec2{X: tc.distance}}
		arb := NewAttackArbiter(testArbiterConfig(), []Trigger{trigger}, testCatalog(), stubObstruction{})

		decision, authorized := arb.Evaluate(arbiterInput(world.Vec2{}, time.Unix(0, 0)))
		if authorized != tc.want {
			t.Fatalf("distance %v: authorized = %v, want %v", tc.distance, authorized, tc.want)
		}
		if decision.Check.RequiredDistance != 275 {
			t.Fatalf("required distance = %v, want 275", decision.Check.RequiredDistance)
		}
		if decision.Check.ActualDistance != tc.distance {
			t.Fatalf("actual distance = %v, want %v", decision.Check.ActualDistance, tc.distance)
		}
	}
}

func TestSafetyGateExactMinimumAccepted(t *testing.T) {
	trigger := &stubTrigger{id: "test", cost: 0.5, ready: true, target: world.Vec2{X: 275}}
	arb := NewAttackArbiter(testArbiterConfig(), []Trigger{trigger}, testCatalog(), stubObstruction{})

	if _, authorized := arb.Evaluate(arbiterInput(world.Vec2{}, time.Unix(0, 0))); !authorized {
		t.Fatalf("attack at exactly the minimum safe distance must be authorized")
	}
}

func TestSafetyGateBlockedThrowPath(t *testing.T) {
	trigger := &stubTrigger{id: "test", cost: 0.5, ready: true, target: world.Vec2{X: 400}}
	arb := NewAttackArbiter(testArbiterConfig(), []Trigger{trigger}, testCatalog(), stubObstruction{blocked: true})

	decision, authorized := arb.Evaluate(arbiterInput(world.Vec2{}, time.Unix(0, 0)))
	if authorized {
		t.Fatalf("blocked throw path must not authorize")
	}
	if decision.Check.PathClear {
		t.Fatalf("check should report the blocked path")
	}
}

func TestCheapestReadyTriggerWins(t *testing.T) {
	expensive := &stubTrigger{id: "expensive", cost: 0.6, ready: true, target: world.Vec2{X: 400}}
	cheap := &stubTrigger{id: "cheap", cost: 0.3, ready: true, target: world.Vec2{X: 500}}

	// Registration order deliberately reversed from cost order.
	arb := NewAttackArbiter(testArbiterConfig(), []Trigger{expensive, cheap}, testCatalog(), stubObstruction{})

	decision, authorized := arb.Evaluate(arbiterInput(world.Vec2{}, time.Unix(0, 0)))
	if !authorized {
		t.Fatalf("expected authorization")
	}
	if decision.Trigger != "cheap" {
		t.Fatalf("fired trigger = %s, want cheap", decision.Trigger)
	}
}

func TestAllTriggersEvaluatedEveryTick(t *testing.T) {
	first := &stubTrigger{id: "first", cost: 0.1, ready: true, target: world.Vec2{X: 400}}
	second := &stubTrigger{id: "second", cost: 0.9, ready: false}
	arb := NewAttackArbiter(testArbiterConfig(), []Trigger{first, second}, testCatalog(), stubObstruction{})

	arb.Evaluate(arbiterInput(world.Vec2{}, time.Unix(0, 0)))
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("ready calls = %d/%d, want 1/1: continuity timers depend on every-tick evaluation", first.calls, second.calls)
	}
}

func TestCooldownBlocksAuthorizationNotEvaluation(t *testing.T) {
	trigger := &stubTrigger{id: "test", cost: 0.5, ready: true, target: world.Vec2{X: 400}}
	arb := NewAttackArbiter(testArbiterConfig(), []Trigger{trigger}, testCatalog(), stubObstruction{})

	start := time.Unix(1000, 0)
	if _, authorized := arb.Evaluate(arbiterInput(world.Vec2{}, start)); !authorized {
		t.Fatalf("first attack should authorize")
	}
	arb.Commit(start)

	if !arb.CoolingDown(start.Add(time.Second)) {
		t.Fatalf("cooldown should be active")
	}
	if _, authorized := arb.Evaluate(arbiterInput(world.Vec2{}, start.Add(time.Second))); authorized {
		t.Fatalf("cooldown must block authorization")
	}
	if trigger.calls != 2 {
		t.Fatalf("trigger Ready calls = %d, want evaluation to continue during cooldown", trigger.calls)
	}

	after := start.Add(9 * time.Second)
	if arb.CoolingDown(after) {
		t.Fatalf("cooldown should have expired")
	}
	if _, authorized := arb.Evaluate(arbiterInput(world.Vec2{}, after)); !authorized {
		t.Fatalf("attack should authorize again after the cooldown")
	}
}

func TestContinuityTriggersNeedSustainedStimulus(t *testing.T) {
	tuning := DefaultTriggerTuning()
	trigger := &sustainedFireTrigger{cost: tuning.SustainedFireCost, holdSeconds: tuning.SustainedFireSeconds}

	underFire := TriggerInput{Facts: WorldState{FactUnderFire: Bool(true)}, DT: 1}
	calm := TriggerInput{Facts: WorldState{FactUnderFire: Bool(false)}, DT: 1}

	for i := 0; i < 3; i++ {
		if trigger.Ready(underFire) {
			t.Fatalf("fired after only %d seconds", i+1)
		}
	}
	// Interruption resets the clock.
	if trigger.Ready(calm) {
		t.Fatalf("fired while calm")
	}
	for i := 0; i < 3; i++ {
		if trigger.Ready(underFire) {
			t.Fatalf("fired %d seconds after the reset", i+1)
		}
	}
	if !trigger.Ready(underFire) {
		t.Fatalf("should fire after four continuous seconds under fire")
	}
}

func TestSuspicionTriggerRequiresHighTierWithoutSight(t *testing.T) {
	tuning := DefaultTriggerTuning()
	trigger := &suspicionTrigger{cost: tuning.SuspicionCost, holdSeconds: tuning.SuspicionSeconds}

	memory := testMemory()
	memory.Observe(world.Vec2{X: 300}, 1.0, time.Unix(1000, 0))

	hidden := TriggerInput{
		Facts:  WorldState{FactTargetVisible: Bool(false)},
		Memory: memory,
		DT:     1,
	}
	for i := 0; i < 4; i++ {
		if trigger.Ready(hidden) {
			t.Fatalf("fired after only %d seconds", i+1)
		}
	}
	if !trigger.Ready(hidden) {
		t.Fatalf("should fire after five seconds of high-confidence blindness")
	}

	target, ok := trigger.Target(hidden)
	if !ok || target.X != 300 {
		t.Fatalf("target = %v/%v, want suspected position", target, ok)
	}
}
