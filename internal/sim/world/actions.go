package world

import (
	"voxelguard.ai/internal/protocol"
	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/guard"
	"voxelguard.ai/internal/sim/integrity/model"
)

func (w *World) applyAct(a *Actor, act protocol.ActMsg, nowTick uint64) {
	// Staleness check: accept only [now-2, now].
	if act.Tick > nowTick || act.Tick+2 < nowTick {
		for _, req := range act.Actions {
			w.pushEvent(a.ID, actionResult(nowTick, req.ID, false, protocol.ErrStale, "stale act"))
		}
		return
	}
	for _, req := range act.Actions {
		code, msg := w.applyAction(a, req)
		w.pushEvent(a.ID, actionResult(nowTick, req.ID, code == "", code, msg))
	}
}

func (w *World) applyAction(a *Actor, req protocol.ActionReq) (code, msg string) {
	who := a.Snapshot(w.tick.Load())
	switch req.Type {
	case protocol.ActBreak:
		return w.breakBlock(a, who, blockPos(req.BlockPos))
	case protocol.ActPlace:
		if req.Against == nil {
			return protocol.ErrBadRequest, "place needs against"
		}
		return w.placeBlock(a, who, blockPos(req.BlockPos), blockPos(*req.Against), req.BlockID)
	case protocol.ActInteractBlock:
		pos := blockPos(req.BlockPos)
		if _, err := w.chunks.GetBlock(pos); err != nil {
			return protocol.ErrInvalidTarget, "block not loaded"
		}
		return refused(w.engine.BeforeInteract(who, pos))
	case protocol.ActInteractEntity, protocol.ActAttack:
		target, ok := w.entity(req.TargetID)
		if !ok || target.ID == a.ID {
			return protocol.ErrInvalidTarget, "unknown target"
		}
		if a.GameMode == model.GameModeSpectator {
			return protocol.ErrNoPermission, "spectators cannot interact"
		}
		return refused(w.engine.BeforeEntity(who, target))
	case protocol.ActUseItem:
		if _, ok := who.Held(); !ok {
			return protocol.ErrBadRequest, "nothing held"
		}
		w.engine.OnUseItem(a.ID)
		return "", ""
	case protocol.ActGameMode:
		to := model.GameMode(req.GameMode)
		if !to.Valid() {
			return protocol.ErrBadRequest, "unknown gamemode"
		}
		if d := w.engine.BeforeGameModeChange(who, to); d.Cancel {
			return protocol.ErrNoPermission, "gamemode change refused"
		}
		a.GameMode = to
		return "", ""
	default:
		return protocol.ErrBadRequest, "unknown action type"
	}
}

func (w *World) breakBlock(a *Actor, who model.Snapshot, pos geom.BlockPos) (string, string) {
	switch a.GameMode {
	case model.GameModeAdventure, model.GameModeSpectator:
		return protocol.ErrNoPermission, "cannot break in " + string(a.GameMode)
	}
	cur, err := w.chunks.GetBlock(pos)
	if err != nil {
		return protocol.ErrInvalidTarget, "block not loaded"
	}
	name := w.chunks.BlockName(cur)
	if name == "AIR" {
		return protocol.ErrInvalidTarget, "nothing to break"
	}
	if name == "BEDROCK" && a.GameMode != model.GameModeCreative {
		return protocol.ErrNoPermission, "bedrock"
	}
	if code, msg := refused(w.engine.BeforeBreak(who, pos)); code != "" {
		return code, msg
	}
	if err := w.chunks.SetBlock(pos, w.chunks.Gen().Air); err != nil {
		return protocol.ErrInternal, err.Error()
	}
	return "", ""
}

func (w *World) placeBlock(a *Actor, who model.Snapshot, pos, against geom.BlockPos, blockID string) (string, string) {
	if a.GameMode == model.GameModeSpectator || a.GameMode == model.GameModeAdventure {
		return protocol.ErrNoPermission, "cannot place in " + string(a.GameMode)
	}
	b, ok := w.catalogs.Blocks.Index[blockID]
	if !ok || blockID == "AIR" {
		return protocol.ErrBadRequest, "unknown block"
	}
	held, ok := who.Held()
	if a.GameMode != model.GameModeCreative && (!ok || held.ID != blockID) {
		return protocol.ErrBadRequest, "block not held"
	}
	cur, err := w.chunks.GetBlock(pos)
	if err != nil {
		return protocol.ErrInvalidTarget, "block not loaded"
	}
	if info := w.chunks.Info(cur); !info.Air && !info.Liquid && !info.Passable {
		return protocol.ErrInvalidTarget, "occupied"
	}
	if !pos.Touches(against) {
		return protocol.ErrBadRequest, "against must share a face with block_pos"
	}
	sup, err := w.chunks.GetBlock(against)
	if err != nil {
		return protocol.ErrInvalidTarget, "block not loaded"
	}
	if info := w.chunks.Info(sup); info.Air || info.Liquid {
		return protocol.ErrInvalidTarget, "nothing to place against"
	}
	if code, msg := refused(w.engine.BeforePlace(who, pos, against)); code != "" {
		return code, msg
	}
	if err := w.chunks.SetBlock(pos, b); err != nil {
		return protocol.ErrInternal, err.Error()
	}
	if a.GameMode != model.GameModeCreative {
		slot := a.SelectedSlot
		a.Inventory[slot].Amount--
		if a.Inventory[slot].Amount <= 0 {
			a.Inventory[slot] = model.ItemStack{}
		}
	}
	return "", ""
}

func refused(d guard.Decision) (string, string) {
	if !d.Cancel {
		return "", ""
	}
	msg := "blocked"
	if len(d.Events) > 0 {
		msg = "blocked: " + string(d.Events[0].Kind)
	}
	return protocol.ErrBlocked, msg
}

func blockPos(p [3]int) geom.BlockPos { return geom.BlockPos{X: p[0], Y: p[1], Z: p[2]} }

func actionResult(tick uint64, ref string, ok bool, code string, message string) protocol.Event {
	e := protocol.Event{
		"t":    tick,
		"type": protocol.TypeActionResult,
		"ref":  ref,
		"ok":   ok,
	}
	if code != "" {
		e["code"] = code
	}
	if message != "" {
		e["message"] = message
	}
	return e
}
