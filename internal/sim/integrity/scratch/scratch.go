// Package scratch holds the long-lived per-actor values the detectors carry
// from one tick to the next.
package scratch

import (
	"sort"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/model"
)

// Record is owned by its actor's slice of the tick loop. Nothing else
// writes to it.
type Record struct {
	ActorID string

	// Seen is false until the first tick completes. Until then every
	// "previous" value reads as the current one.
	Seen bool

	PrevFeet geom.Vec3
	PrevHead geom.Vec3
	PrevRot  model.Rotation
	// PrevPitchDelta is the pitch change observed on the previous tick.
	PrevPitchDelta float64

	LastSafe    geom.Vec3
	HasLastSafe bool

	PendingKnockbackTicks int

	ClickCounter       int
	ClickLastDecayTick uint64
}

// Table is an actor-id keyed arena. Records exist from Join to Leave.
type Table struct {
	records map[string]*Record
}

func NewTable() *Table {
	return &Table{records: map[string]*Record{}}
}

// Join creates a fresh record, replacing any stale one under the same id.
func (t *Table) Join(actorID string, tick uint64) *Record {
	r := &Record{ActorID: actorID, ClickLastDecayTick: tick}
	t.records[actorID] = r
	return r
}

func (t *Table) Leave(actorID string) {
	delete(t.records, actorID)
}

func (t *Table) Get(actorID string) (*Record, bool) {
	r, ok := t.records[actorID]
	return r, ok
}

func (t *Table) Live(actorID string) bool {
	_, ok := t.records[actorID]
	return ok
}

func (t *Table) Len() int { return len(t.records) }

// IDs returns the live actor ids in ascending order.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.records))
	for id := range t.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Prev returns the previous feet, head and rotation, defaulting to the
// current values on the first tick.
func (r *Record) Prev(cur model.Snapshot, eyeHeight float64) (feet, head geom.Vec3, rot model.Rotation) {
	if !r.Seen {
		return cur.Pos, cur.Eye(eyeHeight), cur.Rot
	}
	return r.PrevFeet, r.PrevHead, r.PrevRot
}

// Safe returns the last location known to be clear, or fallback.
func (r *Record) Safe(fallback geom.Vec3) geom.Vec3 {
	if r.HasLastSafe {
		return r.LastSafe
	}
	return fallback
}

// EndTick stores this tick's final values for next tick's comparisons.
func (r *Record) EndTick(final model.Snapshot, eyeHeight, pitchDelta float64) {
	r.PrevFeet = final.Pos
	r.PrevHead = final.Eye(eyeHeight)
	r.PrevRot = final.Rot
	r.PrevPitchDelta = pitchDelta
	r.Seen = true
}

// Click counts one use-item action.
func (r *Record) Click() {
	r.ClickCounter++
}

// DecayClicks removes one click per decay window elapsed since the last
// decay, including windows in which the actor was not processed. The
// counter never drops below zero.
func (r *Record) DecayClicks(now uint64, every uint64) {
	if every == 0 || now < r.ClickLastDecayTick {
		return
	}
	n := (now - r.ClickLastDecayTick) / every
	if n == 0 {
		return
	}
	r.ClickLastDecayTick += n * every
	if uint64(r.ClickCounter) <= n {
		r.ClickCounter = 0
		return
	}
	r.ClickCounter -= int(n)
}
