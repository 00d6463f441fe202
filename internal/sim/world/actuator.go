package world

import (
	"fmt"

	"voxelguard.ai/internal/protocol"
	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/integrity/model"
)

// actuator applies integrity corrections to actor records and tells the
// client through CORRECTION messages flushed at the end of the tick.
type actuator struct{ w *World }

func (c *actuator) actor(id string) (*Actor, error) {
	a := c.w.actors[id]
	if a == nil {
		return nil, fmt.Errorf("actor %s: %w", id, host.ErrActorGone)
	}
	return a, nil
}

func (c *actuator) msg(a *Actor, kind string) protocol.CorrectionMsg {
	return protocol.CorrectionMsg{
		Type:            protocol.TypeCorrection,
		ProtocolVersion: protocol.Version,
		Tick:            c.w.tick.Load(),
		ActorID:         a.ID,
		Kind:            kind,
	}
}

func (c *actuator) Teleport(id string, pos geom.Vec3, opts host.TeleportOptions) error {
	a, err := c.actor(id)
	if err != nil {
		return err
	}
	if !geom.Finite(pos) {
		return geom.ErrDegenerate
	}
	a.Pos = pos
	if !opts.KeepVelocity {
		a.Vel = geom.Vec3{}
	}
	m := c.msg(a, protocol.CorrTeleport)
	p := [3]float64(pos)
	m.Pos = &p
	if opts.Rotation != nil {
		a.Rot = *opts.Rotation
		m.Rot = &protocol.Rotation{Yaw: a.Rot.Yaw, Pitch: a.Rot.Pitch}
	}
	c.w.queue(id, m)
	return nil
}

func (c *actuator) ApplyImpulse(id string, horizontal geom.Vec2, vertical float64) error {
	a, err := c.actor(id)
	if err != nil {
		return err
	}
	imp := geom.Vec3{horizontal.X(), vertical, horizontal.Y()}
	a.Vel = a.Vel.Add(imp)
	m := c.msg(a, protocol.CorrImpulse)
	v := [3]float64(imp)
	m.Impulse = &v
	c.w.queue(id, m)
	return nil
}

func (c *actuator) CancelPendingAction(id string) error {
	a, err := c.actor(id)
	if err != nil {
		return err
	}
	c.w.queue(id, c.msg(a, protocol.CorrCancel))
	return nil
}

func (c *actuator) RemoveItemAt(id string, slot int) error {
	a, err := c.actor(id)
	if err != nil {
		return err
	}
	if slot < 0 || slot >= len(a.Inventory) {
		return fmt.Errorf("remove item: slot %d out of range", slot)
	}
	a.Inventory[slot] = model.ItemStack{}
	m := c.msg(a, protocol.CorrRemoveItem)
	m.Slot = &slot
	c.w.queue(id, m)
	return nil
}

func (c *actuator) StripEnchantment(id string, slot int, ench string) error {
	a, err := c.actor(id)
	if err != nil {
		return err
	}
	if slot < 0 || slot >= len(a.Inventory) {
		return fmt.Errorf("strip enchantment: slot %d out of range", slot)
	}
	snap := model.Snapshot{Inventory: a.Inventory}.WithoutEnchantment(slot, ench)
	a.Inventory = snap.Inventory
	m := c.msg(a, protocol.CorrStripEnchantment)
	m.Slot = &slot
	m.Enchantment = ench
	c.w.queue(id, m)
	return nil
}

func (c *actuator) SetRotation(id string, rot model.Rotation) error {
	a, err := c.actor(id)
	if err != nil {
		return err
	}
	a.Rot = rot
	m := c.msg(a, protocol.CorrRotation)
	m.Rot = &protocol.Rotation{Yaw: rot.Yaw, Pitch: rot.Pitch}
	c.w.queue(id, m)
	return nil
}

// ResyncBlock re-sends the authoritative block so a client that predicted
// a cancelled edit rolls it back.
func (c *actuator) ResyncBlock(id string, pos geom.BlockPos) error {
	a, err := c.actor(id)
	if err != nil {
		return err
	}
	b, err := c.w.chunks.GetBlock(pos)
	if err != nil {
		return err
	}
	m := c.msg(a, protocol.CorrBlock)
	bp := [3]int{pos.X, pos.Y, pos.Z}
	m.BlockPos = &bp
	m.BlockID = c.w.chunks.BlockName(b)
	c.w.queue(id, m)
	return nil
}
