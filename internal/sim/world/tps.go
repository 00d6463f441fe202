package world

import (
	"sync"
	"time"
)

// TPSMonitor keeps the last N tick intervals. It is written by the world
// loop and read by the admin endpoint.
type TPSMonitor struct {
	mu        sync.Mutex
	intervals []time.Duration
	steps     []time.Duration
	next      int
	filled    bool
	lastStart time.Time
}

type TPSStats struct {
	Samples   int     `json:"samples"`
	TPS       float64 `json:"tps"`
	AvgMs     float64 `json:"avg_interval_ms"`
	StepAvgMs float64 `json:"step_avg_ms"`
	StepMaxMs float64 `json:"step_max_ms"`
}

func NewTPSMonitor(n int) *TPSMonitor {
	if n <= 0 {
		n = 20
	}
	return &TPSMonitor{intervals: make([]time.Duration, n), steps: make([]time.Duration, n)}
}

// Observe records one tick that started at start and took d.
func (m *TPSMonitor) Observe(start time.Time, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var interval time.Duration
	if !m.lastStart.IsZero() {
		interval = start.Sub(m.lastStart)
	}
	m.lastStart = start
	m.intervals[m.next] = interval
	m.steps[m.next] = d
	m.next = (m.next + 1) % len(m.intervals)
	if m.next == 0 {
		m.filled = true
	}
}

func (m *TPSMonitor) Stats() TPSStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.next
	if m.filled {
		n = len(m.intervals)
	}
	st := TPSStats{Samples: n}
	if n == 0 {
		return st
	}
	var sumI, sumS, maxS time.Duration
	counted := 0
	for i := 0; i < n; i++ {
		if m.intervals[i] > 0 {
			sumI += m.intervals[i]
			counted++
		}
		sumS += m.steps[i]
		if m.steps[i] > maxS {
			maxS = m.steps[i]
		}
	}
	st.StepAvgMs = ms(sumS) / float64(n)
	st.StepMaxMs = ms(maxS)
	if counted > 0 {
		st.AvgMs = ms(sumI) / float64(counted)
		if st.AvgMs > 0 {
			st.TPS = 1000 / st.AvgMs
		}
	}
	return st
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
