package ai

import "testing"

func TestMachineGraphIsClosed(t *testing.T) {
	// Every transition a handler declares must land on a registered state;
	// NewMachine rejects anything else, so construction is the whole test.
	if _, err := NewMachine(StateIdle, defaultHandlers()); err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
}

func TestMachineRejectsMissingInitialHandler(t *testing.T) {
	handlers := []StateHandler{&idleHandler{}}
	if _, err := NewMachine(StateCombat, handlers); err == nil {
		t.Fatalf("expected error for unregistered initial state")
	}
}

func TestMachineRejectsDanglingTransition(t *testing.T) {
	// idleHandler declares Pursuing and Combat; registering it alone leaves
	// both dangling.
	if _, err := NewMachine(StateIdle, []StateHandler{&idleHandler{}}); err == nil {
		t.Fatalf("expected error for transitions to unregistered states")
	}
}

func TestMachineRejectsDuplicateHandlers(t *testing.T) {
	handlers := append(defaultHandlers(), &idleHandler{})
	if _, err := NewMachine(StateIdle, handlers); err == nil {
		t.Fatalf("expected error for duplicate handler registration")
	}
}

func TestStateIDStrings(t *testing.T) {
	names := map[StateID]string{
		StateIdle:         "Idle",
		StatePursuing:     "Pursuing",
		StateSearching:    "Searching",
		StateCombat:       "Combat",
		StateSeekingCover: "SeekingCover",
		StateInCover:      "InCover",
		StateFlanking:     "Flanking",
		StateSuppressed:   "Suppressed",
		StateRetreating:   "Retreating",
	}
	for id, want := range names {
		if got := id.String(); got != want {
			t.Fatalf("String(%d) = %q, want %q", int(id), got, want)
		}
	}
}
