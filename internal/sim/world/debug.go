package world

import (
	"fmt"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/model"
)

// Debug helpers are for tests and the replay tool. They must only be called
// from the goroutine that drives the world (StepOnce callers).

func (w *World) DebugSetBlock(pos geom.BlockPos, blockID string) error {
	b, ok := w.catalogs.Blocks.Index[blockID]
	if !ok {
		return fmt.Errorf("unknown block %q", blockID)
	}
	return w.chunks.SetBlock(pos, b)
}

func (w *World) DebugBlock(pos geom.BlockPos) (string, error) {
	b, err := w.chunks.GetBlock(pos)
	if err != nil {
		return "", err
	}
	return w.chunks.BlockName(b), nil
}

// DebugActor returns a copy of the actor's current record.
func (w *World) DebugActor(id string) (model.Snapshot, bool) {
	a := w.actors[id]
	if a == nil {
		return model.Snapshot{}, false
	}
	return a.Snapshot(w.tick.Load()), true
}

func (w *World) DebugPendingCorrections() int { return w.engine.PendingTasks() }
