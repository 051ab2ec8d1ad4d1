package ai

import (
	"context"
	"fmt"
	"time"

	"manhunt/server/logging/ailog"
)

// StateID enumerates the behavioral states an agent can occupy.
type StateID int

const (
	StateIdle StateID = iota
	StatePursuing
	StateSearching
	StateCombat
	StateSeekingCover
	StateInCover
	StateFlanking
	StateSuppressed
	StateRetreating
)

func (s StateID) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePursuing:
		return "Pursuing"
	case StateSearching:
		return "Searching"
	case StateCombat:
		return "Combat"
	case StateSeekingCover:
		return "SeekingCover"
	case StateInCover:
		return "InCover"
	case StateFlanking:
		return "Flanking"
	case StateSuppressed:
		return "Suppressed"
	case StateRetreating:
		return "Retreating"
	default:
		return fmt.Sprintf("StateID(%d)", int(s))
	}
}

// StepContext carries the per-tick timing shared by every handler.
type StepContext struct {
	Tick uint64
	Now  time.Time
	DT   float64
}

// StateHandler owns one behavioral state. Enter and Exit bracket occupancy;
// Think runs once per tick and returns the state to occupy next (itself to
// stay). Transitions declares every state Think can return, which lets the
// machine verify the graph is closed at construction time.
type StateHandler interface {
	ID() StateID
	Enter(a *Agent, step StepContext)
	Think(a *Agent, step StepContext) StateID
	Exit(a *Agent, step StepContext)
	Transitions() []StateID
}

// Machine is a table of state handlers plus the current occupancy. Behavior
// lives in the handlers; the machine only routes and logs transitions.
type Machine struct {
	handlers map[StateID]StateHandler
	current  StateID
	entered  bool
}

// NewMachine registers the handler set and verifies closure: every declared
// transition must land on a registered state.
func NewMachine(initial StateID, handlers []StateHandler) (*Machine, error) {
	table := make(map[StateID]StateHandler, len(handlers))
	for _, h := range handlers {
		if h == nil {
			continue
		}
		if _, dup := table[h.ID()]; dup {
			return nil, fmt.Errorf("fsm: duplicate handler for %s", h.ID())
		}
		table[h.ID()] = h
	}
	if _, ok := table[initial]; !ok {
		return nil, fmt.Errorf("fsm: no handler for initial state %s", initial)
	}
	for _, h := range table {
		for _, next := range h.Transitions() {
			if _, ok := table[next]; !ok {
				return nil, fmt.Errorf("fsm: %s declares transition to unregistered %s", h.ID(), next)
			}
		}
	}
	return &Machine{handlers: table, current: initial}, nil
}

// Current reports the occupied state.
func (m *Machine) Current() StateID {
	if m == nil {
		return StateIdle
	}
	return m.current
}

// Step runs one tick: enter on first use, think, and follow at most one
// transition. Limiting to one hop per tick keeps transitions observable and
// prevents handler ping-pong within a frame.
func (m *Machine) Step(a *Agent, step StepContext) {
	if m == nil {
		return
	}
	handler := m.handlers[m.current]
	if !m.entered {
		handler.Enter(a, step)
		m.entered = true
	}
	next := handler.Think(a, step)
	if next == m.current {
		return
	}
	m.transition(a, next, step)
}

// Force moves to a state immediately, running Exit and Enter hooks. Used for
// whole-graph interrupts (taking fire, critical health) that outrank the
// occupied state's own transitions.
func (m *Machine) Force(a *Agent, next StateID, step StepContext) {
	if m == nil || next == m.current {
		return
	}
	if !m.entered {
		m.handlers[m.current].Enter(a, step)
		m.entered = true
	}
	m.transition(a, next, step)
}

func (m *Machine) transition(a *Agent, next StateID, step StepContext) {
	handler, ok := m.handlers[next]
	if !ok {
		return
	}
	from := m.current
	m.handlers[from].Exit(a, step)
	m.current = next
	handler.Enter(a, step)
	if a != nil {
		ailog.StateTransition(context.Background(), a.deps.Publisher, step.Tick, a.entityRef(), from.String(), next.String())
	}
}
