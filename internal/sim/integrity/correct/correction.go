// Package correct applies corrections through the host actuator and runs
// deferred reapplications on the tick loop.
package correct

import (
	"fmt"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/integrity/model"
)

type Kind string

const (
	KindRevertRotation   Kind = "revert_rotation"
	KindReposition       Kind = "reposition"
	KindImpulse          Kind = "impulse"
	KindClearSlot        Kind = "clear_slot"
	KindStripEnchantment Kind = "strip_enchantment"
	KindCancel           Kind = "cancel"
	KindResyncBlock      Kind = "resync_block"
)

// Correction is one requested change to an actor. A reposition may carry an
// impulse that is applied right after it.
type Correction struct {
	Kind Kind `json:"kind"`

	Rot         model.Rotation `json:"rot,omitempty"`
	Pos         geom.Vec3      `json:"pos,omitempty"`
	Impulse     geom.Vec3      `json:"impulse,omitempty"`
	Slot        int            `json:"slot,omitempty"`
	Enchantment string         `json:"enchantment,omitempty"`
	Block       geom.BlockPos  `json:"block,omitempty"`

	// ReapplyTicks re-sends Impulse on each of the following ticks.
	ReapplyTicks int `json:"reapply_ticks,omitempty"`
}

func RevertRotation(r model.Rotation) *Correction {
	return &Correction{Kind: KindRevertRotation, Rot: r}
}

func Reposition(p geom.Vec3) *Correction {
	return &Correction{Kind: KindReposition, Pos: p}
}

// Oppose builds an impulse pushing against disp.
func Oppose(disp geom.Vec3, scale float64) *Correction {
	return &Correction{Kind: KindImpulse, Impulse: disp.Mul(-scale)}
}

func ClearSlot(slot int) *Correction {
	return &Correction{Kind: KindClearSlot, Slot: slot}
}

func StripEnchantment(slot int, ench string) *Correction {
	return &Correction{Kind: KindStripEnchantment, Slot: slot, Enchantment: ench}
}

func Cancel() *Correction { return &Correction{Kind: KindCancel} }

func ResyncBlock(b geom.BlockPos) *Correction {
	return &Correction{Kind: KindResyncBlock, Block: b}
}

// ApplyTo returns the snapshot later detectors in the same tick should see.
func (c *Correction) ApplyTo(s model.Snapshot) model.Snapshot {
	if c == nil {
		return s
	}
	switch c.Kind {
	case KindRevertRotation:
		return s.WithRot(c.Rot)
	case KindReposition:
		return s.WithPos(c.Pos)
	case KindClearSlot:
		return s.WithoutSlot(c.Slot)
	case KindStripEnchantment:
		return s.WithoutEnchantment(c.Slot, c.Enchantment)
	}
	return s
}

// Send performs c against the actuator. It does not schedule reapplication.
func Send(a host.EntityActuator, actorID string, c *Correction) error {
	if c == nil || a == nil {
		return nil
	}
	var err error
	switch c.Kind {
	case KindRevertRotation:
		err = a.SetRotation(actorID, c.Rot)
	case KindReposition:
		err = a.Teleport(actorID, c.Pos, host.TeleportOptions{})
		if err == nil && c.Impulse != (geom.Vec3{}) {
			err = sendImpulse(a, actorID, c.Impulse)
		}
	case KindImpulse:
		err = sendImpulse(a, actorID, c.Impulse)
	case KindClearSlot:
		err = a.RemoveItemAt(actorID, c.Slot)
	case KindStripEnchantment:
		err = a.StripEnchantment(actorID, c.Slot, c.Enchantment)
	case KindCancel:
		err = a.CancelPendingAction(actorID)
	case KindResyncBlock:
		err = a.ResyncBlock(actorID, c.Block)
	default:
		return fmt.Errorf("correct: unknown kind %q", c.Kind)
	}
	if err != nil {
		return fmt.Errorf("correct %s %s: %w", c.Kind, actorID, err)
	}
	return nil
}

func sendImpulse(a host.EntityActuator, actorID string, v geom.Vec3) error {
	if !geom.Finite(v) {
		return geom.ErrDegenerate
	}
	return a.ApplyImpulse(actorID, geom.Vec2{v.X(), v.Z()}, v.Y())
}
