package correct

import (
	"container/heap"
)

// Task runs on the tick loop once FireTick is reached.
type Task struct {
	ActorID  string
	FireTick uint64
	Name     string
	Run      func() error

	seq uint64
}

// Scheduler is a queue of deferred tasks ordered by (FireTick, ActorID,
// insertion). It is not safe for concurrent use; the tick loop owns it.
type Scheduler struct {
	q   taskQueue
	seq uint64
}

func NewScheduler() *Scheduler { return &Scheduler{} }

func (s *Scheduler) Schedule(actorID string, fireTick uint64, name string, fn func() error) {
	s.seq++
	heap.Push(&s.q, &Task{ActorID: actorID, FireTick: fireTick, Name: name, Run: fn, seq: s.seq})
}

// Forget drops every pending task of actorID.
func (s *Scheduler) Forget(actorID string) int {
	kept := s.q[:0]
	n := 0
	for _, t := range s.q {
		if t.ActorID == actorID {
			n++
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(s.q); i++ {
		s.q[i] = nil
	}
	s.q = kept
	heap.Init(&s.q)
	return n
}

type DrainResult struct {
	Ran     int
	Skipped int
	Errs    []error
}

// Drain runs every task due at or before now. Tasks whose actor is no longer
// live are dropped without running.
func (s *Scheduler) Drain(now uint64, live func(actorID string) bool) DrainResult {
	var res DrainResult
	for len(s.q) > 0 && s.q[0].FireTick <= now {
		t := heap.Pop(&s.q).(*Task)
		if live != nil && !live(t.ActorID) {
			res.Skipped++
			continue
		}
		res.Ran++
		if t.Run == nil {
			continue
		}
		if err := t.Run(); err != nil {
			res.Errs = append(res.Errs, err)
		}
	}
	return res
}

func (s *Scheduler) Pending() int { return len(s.q) }

// PendingFor counts the tasks queued for actorID.
func (s *Scheduler) PendingFor(actorID string) int {
	n := 0
	for _, t := range s.q {
		if t.ActorID == actorID {
			n++
		}
	}
	return n
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.FireTick != b.FireTick {
		return a.FireTick < b.FireTick
	}
	if a.ActorID != b.ActorID {
		return a.ActorID < b.ActorID
	}
	return a.seq < b.seq
}

func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x any) { *q = append(*q, x.(*Task)) }

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}
