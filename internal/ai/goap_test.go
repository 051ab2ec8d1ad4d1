package ai

import (
	"errors"
	"reflect"
	"testing"
)

const (
	factA FactKey = "a"
	factB FactKey = "b"
	factC FactKey = "c"
)

func TestPlannerPicksCheapestSequence(t *testing.T) {
	actions := []Action{
		NewAction("A", 1, GoalState{}, Effects{factA: Bool(true)}),
		NewAction("B", 2, GoalState{factA: Bool(true)}, Effects{factB: Bool(true)}),
		NewAction("C", 5, GoalState{}, Effects{factB: Bool(true)}),
	}
	planner := NewPlanner(actions, 0)

	plan, err := planner.Plan(WorldState{}, GoalState{factB: Bool(true)})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if got, want := plan.Names(), []string{"A", "B"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("plan actions = %v, want %v", got, want)
	}
	if plan.TotalCost != 3 {
		t.Fatalf("plan cost = %v, want 3", plan.TotalCost)
	}
}

func TestPlannerGoalAlreadySatisfied(t *testing.T) {
	planner := NewPlanner(DefaultActions(), 0)
	ws := WorldState{FactSafe: Bool(true)}

	plan, err := planner.Plan(ws, GoalSafe)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if !plan.Empty() {
		t.Fatalf("expected empty plan, got %v", plan.Names())
	}
}

func TestPlannerBreaksCostTiesByRegistrationOrder(t *testing.T) {
	actions := []Action{
		NewAction("First", 2, GoalState{}, Effects{factA: Bool(true)}),
		NewAction("Second", 2, GoalState{}, Effects{factA: Bool(true)}),
	}
	planner := NewPlanner(actions, 0)

	for i := 0; i < 5; i++ {
		plan, err := planner.Plan(WorldState{}, GoalState{factA: Bool(true)})
		if err != nil {
			t.Fatalf("Plan returned error: %v", err)
		}
		if got := plan.Names(); len(got) != 1 || got[0] != "First" {
			t.Fatalf("run %d: plan = %v, want [First]", i, got)
		}
	}
}

func TestPlannerNodeBoundReportsNoPlan(t *testing.T) {
	// Goal fact no action produces; the search must give up at the bound
	// instead of exploring forever.
	actions := []Action{
		NewAction("Toggle", 1, GoalState{}, Effects{factA: Bool(true)}),
		NewAction("Untoggle", 1, GoalState{factA: Bool(true)}, Effects{factA: Bool(false)}),
	}
	planner := NewPlanner(actions, 8)

	_, err := planner.Plan(WorldState{}, GoalState{factC: Bool(true)})
	if !errors.Is(err, ErrNoPlan) {
		t.Fatalf("err = %v, want ErrNoPlan", err)
	}
}

func TestPlannerPrefersShorterPlanAtEqualCost(t *testing.T) {
	actions := []Action{
		NewAction("Step1", 1, GoalState{}, Effects{factA: Bool(true)}),
		NewAction("Step2", 1, GoalState{factA: Bool(true)}, Effects{factC: Bool(true)}),
		NewAction("Direct", 2, GoalState{}, Effects{factC: Bool(true)}),
	}
	planner := NewPlanner(actions, 0)

	plan, err := planner.Plan(WorldState{}, GoalState{factC: Bool(true)})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if got, want := plan.Names(), []string{"Direct"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("plan actions = %v, want %v", got, want)
	}
}

func TestPlanValidDetectsDivergence(t *testing.T) {
	actions := []Action{
		NewAction("Strike", 1,
			GoalState{FactTargetVisible: Bool(true)},
			Effects{FactTargetEliminated: Bool(true)}),
	}
	planner := NewPlanner(actions, 0)

	start := WorldState{FactTargetVisible: Bool(true)}
	plan, err := planner.Plan(start, GoalState{FactTargetEliminated: Bool(true)})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if !plan.Valid(start) {
		t.Fatalf("plan should be valid while preconditions hold")
	}

	diverged := WorldState{FactTargetVisible: Bool(false)}
	if plan.Valid(diverged) {
		t.Fatalf("plan should be invalid after the target broke sight")
	}
}

func TestPlannerDynamicCostShiftsChoice(t *testing.T) {
	planner := NewPlanner(DefaultActions(), 0)

	// High confidence without sight: the thrown charge outprices the
	// pursue-then-melee chain.
	confident := WorldState{
		FactTargetVisible:    Bool(false),
		FactTargetLocated:    Bool(true),
		FactMemoryConfidence: Number(0.95),
		FactChargesLeft:      Number(3),
		FactHealthFrac:       Number(1),
	}
	plan, err := planner.Plan(confident, GoalEliminate)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if got := plan.Names(); len(got) == 0 || got[0] != ActionThrowCharge {
		t.Fatalf("confident plan = %v, want head %s", got, ActionThrowCharge)
	}

	// No charges left and the target back in sight: throwing is priced out
	// of contention and the pursue chain wins.
	dry := confident.Clone()
	dry[FactChargesLeft] = Number(0)
	dry[FactTargetVisible] = Bool(true)
	plan, err = planner.Plan(dry, GoalEliminate)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	for _, name := range plan.Names() {
		if name == ActionThrowCharge {
			t.Fatalf("plan %v uses %s with zero charges", plan.Names(), ActionThrowCharge)
		}
	}
}
