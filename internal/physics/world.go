// Package physics defines the boundary between the turn engine and the rigid
// body simulation, and provides SimWorld, a small deterministic simulation
// used by the server and by tests.
package physics

import "github.com/mcoot/topple/internal/model"

// ObjectTag identifies what the projectile touched
type ObjectTag string

const (
	TagProjectile ObjectTag = "projectile"
	TagStructure  ObjectTag = "structure"
	TagGround     ObjectTag = "ground"
	TagBoundary   ObjectTag = "boundary"
)

// CollisionEvent is delivered to subscribers when two objects make contact
type CollisionEvent struct {
	Subject ObjectTag
	Other   ObjectTag
}

// CollisionHandler receives collision notifications.
// Handlers are never invoked while the world holds its own lock.
type CollisionHandler func(CollisionEvent)

// World is the physics collaborator consumed by the turn engine
type World interface {
	// InitializeRound discards any existing bricks and materializes the structure
	InitializeRound(structure model.Structure)
	// ApplyLaunchImpulse resets the projectile to its origin and launches it along direction*power
	ApplyLaunchImpulse(direction model.Vec3, power float64)

	ProjectilePosition() model.Vec3
	// BrickPositions returns brick centres in the structure's flattened brick order
	BrickPositions() []model.Vec3
	IsProjectileAtRest() bool
	IsStructureAtRest() bool

	// SubscribeCollisions registers h and returns a function that removes it
	SubscribeCollisions(h CollisionHandler) (unsubscribe func())
}
