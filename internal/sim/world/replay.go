package world

import "fmt"

// Replay feeds one logged tick back through StepOnce and checks that the
// world reproduces the logged state and detection digests.
func (w *World) Replay(entry TickLogEntry) (StepResult, error) {
	if entry.Tick != w.CurrentTick() {
		return StepResult{}, fmt.Errorf("tick mismatch: want=%d got=%d", w.CurrentTick(), entry.Tick)
	}

	joins := make([]JoinRequest, 0, len(entry.Joins))
	resps := make([]chan JoinResponse, 0, len(entry.Joins))
	for _, j := range entry.Joins {
		ch := make(chan JoinResponse, 1)
		resps = append(resps, ch)
		joins = append(joins, JoinRequest{Name: j.Name, InputMode: j.InputMode, Tags: j.Tags, Resp: ch})
	}
	states := make([]StateEnvelope, 0, len(entry.States))
	for _, s := range entry.States {
		states = append(states, StateEnvelope{ActorID: s.ActorID, State: s.State})
	}
	acts := make([]ActionEnvelope, 0, len(entry.Actions))
	for _, a := range entry.Actions {
		acts = append(acts, ActionEnvelope{ActorID: a.ActorID, Act: a.Act})
	}

	res := w.StepOnce(joins, entry.Leaves, states, acts)

	for i, j := range entry.Joins {
		got := (<-resps[i]).Welcome.ActorID
		if !j.Refused && got != j.ActorID {
			return res, fmt.Errorf("tick %d: join %q got actor %s, log has %s", entry.Tick, j.Name, got, j.ActorID)
		}
	}
	if res.Digest != entry.Digest {
		return res, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", entry.Tick, res.Digest, entry.Digest)
	}
	if res.DetectionDigest != entry.DetectionDigest {
		return res, fmt.Errorf("detection digest mismatch at tick %d: got=%s want=%s (%d detections)",
			entry.Tick, res.DetectionDigest, entry.DetectionDigest, len(res.Detections))
	}
	return res, nil
}
