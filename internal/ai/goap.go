package ai

import (
	"container/heap"
	"errors"
)

// ErrNoPlan is returned when no action sequence reaches the goal. Callers
// treat it as non-fatal and fall back to a default goal.
var ErrNoPlan = errors.New("goap: no plan found")

// DefaultMaxExpandedNodes bounds a single planning request so one tick's
// search cannot stall the scheduler.
const DefaultMaxExpandedNodes = 512

// Action is one planning unit: a partial precondition match, a partial fact
// mutation, and a cost priced against the state it would run in. Actions are
// pure during search; execution happens later under the state machine.
type Action interface {
	Name() string
	Cost(ws WorldState) float64
	Preconditions() GoalState
	Effects() Effects
}

// Plan is an ordered, cost-minimal action sequence produced by the planner.
type Plan struct {
	Actions   []Action
	TotalCost float64
	Goal      GoalState

	cursor int
}

// Empty reports whether the plan has no remaining steps.
func (p *Plan) Empty() bool {
	return p == nil || p.cursor >= len(p.Actions)
}

// Current returns the action awaiting execution.
func (p *Plan) Current() (Action, bool) {
	if p.Empty() {
		return nil, false
	}
	return p.Actions[p.cursor], true
}

// Advance marks the current action complete and moves to the next.
func (p *Plan) Advance() {
	if p == nil || p.cursor >= len(p.Actions) {
		return
	}
	p.cursor++
}

// Valid reports whether the current action's preconditions still hold. A
// false result is the replanning trigger: the world diverged from the
// conceptual effects the plan was built on.
func (p *Plan) Valid(ws WorldState) bool {
	action, ok := p.Current()
	if !ok {
		return true
	}
	return action.Preconditions().Satisfied(ws)
}

// Names lists remaining action names, for logging and debug broadcast.
func (p *Plan) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Actions)-p.cursor)
	for i := p.cursor; i < len(p.Actions); i++ {
		names = append(names, p.Actions[i].Name())
	}
	return names
}

// Planner performs bounded A* over partial world states. Nodes are fact
// snapshots, edges are applicable actions, edge weight is the action's cost
// priced against the node, and the heuristic is the count of unsatisfied goal
// facts (admissible: every action satisfies at least one).
type Planner struct {
	actions  []Action
	maxNodes int
}

// NewPlanner registers the action set in priority-tie order. maxNodes <= 0
// selects DefaultMaxExpandedNodes.
func NewPlanner(actions []Action, maxNodes int) *Planner {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxExpandedNodes
	}
	registered := make([]Action, 0, len(actions))
	for _, action := range actions {
		if action != nil {
			registered = append(registered, action)
		}
	}
	return &Planner{actions: registered, maxNodes: maxNodes}
}

type planNode struct {
	state     WorldState
	g         float64
	f         float64
	depth     int
	actionIdx int
	parent    *planNode
	seq       int
	index     int
}

type planQueue []*planNode

func (pq planQueue) Len() int { return len(pq) }

// Less orders by f, then total cost, then fewer actions, then registration
// order of the edge action, then insertion order. The chain keeps plans
// deterministic across runs.
func (pq planQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.g != b.g {
		return a.g < b.g
	}
	if a.depth != b.depth {
		return a.depth < b.depth
	}
	if a.actionIdx != b.actionIdx {
		return a.actionIdx < b.actionIdx
	}
	return a.seq < b.seq
}

func (pq planQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *planQueue) Push(x any) {
	n := len(*pq)
	item := x.(*planNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *planQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// Plan searches for a minimal-cost sequence satisfying goal from ws. Hitting
// the node-expansion bound is reported as ErrNoPlan.
func (p *Planner) Plan(ws WorldState, goal GoalState) (*Plan, error) {
	if p == nil || len(goal) == 0 {
		return nil, ErrNoPlan
	}
	if goal.Satisfied(ws) {
		return &Plan{Goal: goal}, nil
	}

	open := &planQueue{}
	heap.Init(open)
	seq := 0
	heap.Push(open, &planNode{
		state:     ws.Clone(),
		f:         float64(goal.Unsatisfied(ws)),
		actionIdx: -1,
	})

	best := map[string]float64{ws.key(): 0}
	expanded := 0

	for open.Len() > 0 {
		current := heap.Pop(open).(*planNode)
		if goal.Satisfied(current.state) {
			return reconstructPlan(p.actions, current, goal), nil
		}
		if expanded >= p.maxNodes {
			return nil, ErrNoPlan
		}
		expanded++

		for idx, action := range p.actions {
			if !action.Preconditions().Satisfied(current.state) {
				continue
			}
			cost := action.Cost(current.state)
			if cost < 0 {
				cost = 0
			}
			next := current.state.Apply(action.Effects())
			tentativeG := current.g + cost
			key := next.key()
			if prev, ok := best[key]; ok && tentativeG >= prev {
				continue
			}
			best[key] = tentativeG
			seq++
			heap.Push(open, &planNode{
				state:     next,
				g:         tentativeG,
				f:         tentativeG + float64(goal.Unsatisfied(next)),
				depth:     current.depth + 1,
				actionIdx: idx,
				parent:    current,
				seq:       seq,
			})
		}
	}
	return nil, ErrNoPlan
}

func reconstructPlan(actions []Action, end *planNode, goal GoalState) *Plan {
	ordered := make([]Action, 0, end.depth)
	for node := end; node != nil && node.actionIdx >= 0; node = node.parent {
		ordered = append(ordered, actions[node.actionIdx])
	}
	for i := 0; i < len(ordered)/2; i++ {
		j := len(ordered) - 1 - i
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}
	return &Plan{Actions: ordered, TotalCost: end.g, Goal: goal}
}
