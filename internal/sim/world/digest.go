package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"
	"math"

	"voxelguard.ai/internal/sim/integrity/model"
)

// stateDigest hashes everything a replay must reproduce: chunks, actor
// poses, gamemodes and inventories.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], nowTick)
	h.Write(tmp[:])
	binary.LittleEndian.PutUint64(tmp[:], uint64(w.cfg.Seed))
	h.Write(tmp[:])
	h.Write([]byte(w.chunks.Digest()))

	for _, a := range w.sortedActors() {
		h.Write([]byte(a.ID))
		for _, f := range []float64{a.Pos[0], a.Pos[1], a.Pos[2], a.Vel[0], a.Vel[1], a.Vel[2], a.Rot.Yaw, a.Rot.Pitch} {
			writeFloat(h, tmp, f)
		}
		h.Write([]byte(a.GameMode))
		binary.LittleEndian.PutUint64(tmp[:], uint64(int64(a.SelectedSlot)))
		h.Write(tmp[:])
		for _, it := range a.Inventory {
			h.Write([]byte(it.ID))
			binary.LittleEndian.PutUint64(tmp[:], uint64(int64(it.Amount)))
			h.Write(tmp[:])
			for _, e := range it.Enchantments {
				h.Write([]byte(e.ID))
				binary.LittleEndian.PutUint64(tmp[:], uint64(int64(e.Level)))
				h.Write(tmp[:])
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeFloat(h hash.Hash, tmp [8]byte, f float64) {
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
	h.Write(tmp[:])
}

// detectionDigest hashes the tick's detections in emission order. Evidence
// is included through its JSON form (map keys are sorted by encoding/json).
func detectionDigest(events []model.DetectionEvent) string {
	h := sha256.New()
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		h.Write(b)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
