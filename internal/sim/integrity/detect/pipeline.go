package detect

import (
	"log"

	"voxelguard.ai/internal/sim/integrity/correct"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/integrity/model"
	"voxelguard.ai/internal/sim/integrity/samples"
	"voxelguard.ai/internal/sim/integrity/state"
)

type Pipeline struct {
	Detectors []Detector
	Sink      host.FlagSink
	Act       *correct.Actuator
	// Samples, when set, is amended after repositions.
	Samples *samples.Buffer
	Logger  *log.Logger
}

func NewPipeline(sink host.FlagSink, act *correct.Actuator, buf *samples.Buffer, logger *log.Logger) *Pipeline {
	return &Pipeline{Detectors: Table, Sink: sink, Act: act, Samples: buf, Logger: logger}
}

// Evaluate runs every enabled detector in table order and applies each
// correction before the next detector runs. It returns all raised events,
// including those not reported because flags are off.
func (p *Pipeline) Evaluate(in *Input) []model.DetectionEvent {
	var out []model.DetectionEvent
	for _, d := range p.Detectors {
		if !in.Cfg.Enabled(d.Kind) {
			continue
		}
		res := d.Eval(in)
		if !res.Fired {
			continue
		}
		ev := model.DetectionEvent{
			ActorID:  in.Snap.ActorID,
			Kind:     d.Kind,
			Evidence: res.Evidence,
			Tick:     in.Tick,
		}
		out = append(out, ev)
		if in.Cfg.Flags && p.Sink != nil {
			p.Sink.Report(ev)
		}
		if res.Correction != nil {
			p.apply(in, d.Kind, res.Correction)
		}
	}
	return out
}

func (p *Pipeline) apply(in *Input, kind model.Kind, c *correct.Correction) {
	if p.Act == nil {
		return
	}
	rec := in.Rec
	onReapply := func() {
		if rec.PendingKnockbackTicks > 0 {
			rec.PendingKnockbackTicks--
		}
	}
	if err := p.Act.Apply(in.Snap.ActorID, in.Tick, c, onReapply); err != nil {
		if p.Logger != nil {
			p.Logger.Printf("actor=%s tick=%d kind=%s correction failed: %v", in.Snap.ActorID, in.Tick, kind, err)
		}
		return
	}
	in.Snap = c.ApplyTo(in.Snap)
	if c.Kind == correct.KindReposition {
		in.State = state.Compute(in.Snap, state.Probe(in.World, in.Snap.Pos))
		if p.Samples != nil {
			p.Samples.Amend(in.Snap.ActorID, in.Snap.Pos)
		}
	}
}
