package ai

import (
	"fmt"
	"sort"
	"strings"
)

// FactKey names one entry in the per-tick world state snapshot.
type FactKey string

// Fact vocabulary shared by the planner, triggers, and state handlers. The
// snapshot is rebuilt from scratch every tick; no key survives between ticks.
const (
	FactTargetVisible    FactKey = "targetVisible"
	FactTargetLocated    FactKey = "targetLocated"
	FactTargetInRange    FactKey = "targetInRange"
	FactTargetEliminated FactKey = "targetEliminated"
	FactTargetReloading  FactKey = "targetReloading"
	FactAtSuspectedPos   FactKey = "atSuspectedPos"
	FactHasCover         FactKey = "hasCover"
	FactInCover          FactKey = "inCover"
	FactUnderFire        FactKey = "underFire"
	FactSuppressed       FactKey = "suppressed"
	FactSafe             FactKey = "safe"
	FactPatrolling       FactKey = "patrolling"
	FactFlanking         FactKey = "flanking"
	FactHealthFrac       FactKey = "healthFrac"
	FactChargesLeft      FactKey = "chargesLeft"
	FactMemoryConfidence FactKey = "memoryConfidence"
	FactAllyLosses       FactKey = "allyLosses"
)

type factKind uint8

const (
	factBool factKind = iota
	factNumber
)

// FactValue holds either a boolean or numeric fact.
type FactValue struct {
	kind   factKind
	truth  bool
	number float64
}

// Bool wraps a boolean fact value.
func Bool(v bool) FactValue {
	return FactValue{kind: factBool, truth: v}
}

// Number wraps a numeric fact value.
func Number(v float64) FactValue {
	return FactValue{kind: factNumber, number: v}
}

// AsBool returns the boolean payload; numeric facts report true when nonzero.
func (v FactValue) AsBool() bool {
	if v.kind == factNumber {
		return v.number != 0
	}
	return v.truth
}

// AsNumber returns the numeric payload; boolean facts report 0 or 1.
func (v FactValue) AsNumber() float64 {
	if v.kind == factBool {
		if v.truth {
			return 1
		}
		return 0
	}
	return v.number
}

// Equal compares two fact values by kind and payload.
func (v FactValue) Equal(o FactValue) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == factBool {
		return v.truth == o.truth
	}
	return v.number == o.number
}

func (v FactValue) String() string {
	if v.kind == factBool {
		return fmt.Sprintf("%t", v.truth)
	}
	return fmt.Sprintf("%g", v.number)
}

// WorldState is the flat fact snapshot the planner and triggers reason over.
type WorldState map[FactKey]FactValue

// Clone copies the snapshot.
func (ws WorldState) Clone() WorldState {
	cloned := make(WorldState, len(ws))
	for k, v := range ws {
		cloned[k] = v
	}
	return cloned
}

// Bool reads a boolean fact; missing keys read as false.
func (ws WorldState) Bool(key FactKey) bool {
	v, ok := ws[key]
	return ok && v.AsBool()
}

// Number reads a numeric fact; missing keys read as zero.
func (ws WorldState) Number(key FactKey) float64 {
	v, ok := ws[key]
	if !ok {
		return 0
	}
	return v.AsNumber()
}

// Apply overlays effect values onto a copy of the snapshot.
func (ws WorldState) Apply(effects Effects) WorldState {
	next := ws.Clone()
	for k, v := range effects {
		next[k] = v
	}
	return next
}

// key produces a canonical string for closed-set deduplication during
// planning. Keys are sorted so equal states collide regardless of insertion
// order.
func (ws WorldState) key() string {
	keys := make([]string, 0, len(ws))
	for k := range ws {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(ws[FactKey(k)].String())
		b.WriteByte(';')
	}
	return b.String()
}

// GoalState is a partial fact match: every listed fact must hold exactly.
type GoalState map[FactKey]FactValue

// Satisfied reports whether every goal fact holds in the snapshot. Missing
// keys never satisfy a goal.
func (g GoalState) Satisfied(ws WorldState) bool {
	for k, want := range g {
		have, ok := ws[k]
		if !ok || !have.Equal(want) {
			return false
		}
	}
	return true
}

// Unsatisfied counts goal facts the snapshot does not yet hold. Used as the
// planner's admissible heuristic.
func (g GoalState) Unsatisfied(ws WorldState) int {
	count := 0
	for k, want := range g {
		have, ok := ws[k]
		if !ok || !have.Equal(want) {
			count++
		}
	}
	return count
}

// Effects is a partial fact mutation applied conceptually during planning.
type Effects map[FactKey]FactValue
