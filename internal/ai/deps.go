package ai

import (
	"time"

	"manhunt/server/internal/world"
	"manhunt/server/logging"
)

// Perception is the sight query surface supplied by the host simulation.
type Perception interface {
	// CanSeeTarget reports whether the pursued target is currently visible.
	CanSeeTarget() bool
	// TargetPosition returns the target's position while visible.
	TargetPosition() (world.Vec2, bool)
}

// Navigation answers terrain queries. A nav-grid implementation lives in
// internal/world; the core only depends on this surface.
type Navigation interface {
	SnapToNavigable(p world.Vec2) (world.Vec2, bool)
	IsPathClear(a, b world.Vec2) bool
	FindPath(from, to world.Vec2) ([]world.Vec2, bool)
}

// Obstruction answers sight-line and throw-path blockage queries.
type Obstruction interface {
	RaycastBlocked(a, b world.Vec2) bool
}

// Vitals exposes the health and resource facts fed into the world state.
type Vitals interface {
	HealthFraction() float64
	Charges(capability CapabilityID) int
}

// Deps bundles every collaborator an agent consumes. All queries are
// read-only; the agent never blocks on a collaborator.
type Deps struct {
	Perception  Perception
	Navigation  Navigation
	Obstruction Obstruction
	Vitals      Vitals
	Catalog     CapabilityCatalog
	Publisher   logging.Publisher
}

// CommandType enumerates the fire-and-forget commands an agent emits.
type CommandType string

const (
	CommandMove   CommandType = "Move"
	CommandFace   CommandType = "Face"
	CommandAttack CommandType = "Attack"
)

// Command is consumed by the presentation/physics layers; the core never
// waits on its completion.
type Command struct {
	OriginTick uint64
	ActorID    string
	Type       CommandType
	IssuedAt   time.Time
	Move       *MoveCommand
	Face       *FaceCommand
	Attack     *AttackCommand
}

// MoveCommand carries a desired unit movement vector.
type MoveCommand struct {
	DX float64
	DY float64
}

// FaceCommand carries a desired facing angle in radians.
type FaceCommand struct {
	Angle float64
}

// AttackCommand requests an area attack toward a point.
type AttackCommand struct {
	Capability CapabilityID
	Target     world.Vec2
}
