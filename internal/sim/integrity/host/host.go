// Package host declares the collaborators the integrity core consumes. The
// core never reaches past these interfaces into the world that embeds it.
package host

import (
	"errors"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/model"
)

var (
	// ErrProbeUnavailable means the queried region is not loaded or not
	// readable right now. Callers degrade to "unknown" instead of failing.
	ErrProbeUnavailable = errors.New("probe unavailable")
	// ErrActorGone means the actor left between scheduling and execution.
	ErrActorGone = errors.New("actor gone")
)

type WorldProbe interface {
	Block(pos geom.BlockPos) (model.BlockInfo, error)
	// Raycast returns the first block along dir within maxDist that passes the
	// filter. Air is never a hit.
	Raycast(origin, dir geom.Vec3, maxDist float64, f model.RayFilter) (model.RayHit, bool, error)
	EntitiesNear(origin geom.Vec3, radius float64, f model.EntityFilter) ([]model.Entity, error)
}

// ConfigProvider is read once per tick. The bool result reports whether the
// key exists.
type ConfigProvider interface {
	Bool(key string) (bool, bool)
	Number(key string) (float64, bool)
	Strings(key string) ([]string, bool)
}

type FlagSink interface {
	Report(ev model.DetectionEvent)
}

type FlagSinkFunc func(ev model.DetectionEvent)

func (f FlagSinkFunc) Report(ev model.DetectionEvent) { f(ev) }

// MultiSink fans a report out to every sink in order.
type MultiSink []FlagSink

func (m MultiSink) Report(ev model.DetectionEvent) {
	for _, s := range m {
		if s != nil {
			s.Report(ev)
		}
	}
}

type TeleportOptions struct {
	KeepVelocity bool
	Rotation     *model.Rotation
}

type EntityActuator interface {
	Teleport(actorID string, pos geom.Vec3, opts TeleportOptions) error
	ApplyImpulse(actorID string, horizontal geom.Vec2, vertical float64) error
	CancelPendingAction(actorID string) error
	RemoveItemAt(actorID string, slot int) error
	StripEnchantment(actorID string, slot int, ench string) error
	SetRotation(actorID string, rot model.Rotation) error
	ResyncBlock(actorID string, pos geom.BlockPos) error
}
