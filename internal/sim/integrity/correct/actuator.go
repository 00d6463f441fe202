package correct

import (
	"log"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/host"
)

// Applied records a correction that reached the host.
type Applied struct {
	ActorID    string      `json:"actor_id"`
	Tick       uint64      `json:"tick"`
	Correction *Correction `json:"correction"`
	Reapplied  bool        `json:"reapplied,omitempty"`
}

// Actuator sends corrections to the host and arms reapplication tasks.
type Actuator struct {
	Host   host.EntityActuator
	Sched  *Scheduler
	Logger *log.Logger

	applied []Applied
}

func NewActuator(h host.EntityActuator, logger *log.Logger) *Actuator {
	return &Actuator{Host: h, Sched: NewScheduler(), Logger: logger}
}

// Apply sends c now. When c.ReapplyTicks > 0 the impulse is queued again for
// each of the following ticks; onReapply runs after each successful resend.
func (a *Actuator) Apply(actorID string, now uint64, c *Correction, onReapply func()) error {
	if c == nil {
		return nil
	}
	if err := Send(a.Host, actorID, c); err != nil {
		return err
	}
	a.applied = append(a.applied, Applied{ActorID: actorID, Tick: now, Correction: c})

	if c.ReapplyTicks <= 0 || c.Impulse == (geom.Vec3{}) {
		return nil
	}
	again := &Correction{Kind: KindImpulse, Impulse: c.Impulse}
	for i := 1; i <= c.ReapplyTicks; i++ {
		fire := now + uint64(i)
		a.Sched.Schedule(actorID, fire, string(KindImpulse), func() error {
			if err := Send(a.Host, actorID, again); err != nil {
				return err
			}
			a.applied = append(a.applied, Applied{ActorID: actorID, Tick: fire, Correction: again, Reapplied: true})
			if onReapply != nil {
				onReapply()
			}
			return nil
		})
	}
	return nil
}

// Drain runs due tasks and logs their failures.
func (a *Actuator) Drain(now uint64, live func(string) bool) DrainResult {
	res := a.Sched.Drain(now, live)
	for _, err := range res.Errs {
		a.logf("tick=%d deferred correction failed: %v", now, err)
	}
	return res
}

// Forget drops an actor's pending tasks, typically on leave.
func (a *Actuator) Forget(actorID string) {
	a.Sched.Forget(actorID)
}

// TakeApplied returns and clears the corrections applied since the last call.
func (a *Actuator) TakeApplied() []Applied {
	out := a.applied
	a.applied = nil
	return out
}

func (a *Actuator) logf(format string, args ...any) {
	if a.Logger != nil {
		a.Logger.Printf(format, args...)
	}
}
