package debug

import (
	"fmt"
	"sync/atomic"
	"time"
)

// LoadMeter measures how much of each buffer's real-time budget a render
// callback uses. Record is lock free and allocation free, so it may wrap a
// render callback; the other methods may run on any goroutine.
type LoadMeter struct {
	budget time.Duration

	count   atomic.Uint64
	total   atomic.Int64
	max     atomic.Int64
	last    atomic.Int64
	overrun atomic.Uint64
}

// NewLoadMeter creates a meter for buffers of bufferSize frames.
func NewLoadMeter(sampleRate float64, bufferSize int) *LoadMeter {
	return &LoadMeter{
		budget: time.Duration(float64(bufferSize) / sampleRate * float64(time.Second)),
	}
}

// Budget returns the duration of one buffer.
func (m *LoadMeter) Budget() time.Duration {
	return m.budget
}

// Start returns a function that records the time elapsed since Start.
func (m *LoadMeter) Start() func() {
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// Record adds one callback duration.
func (m *LoadMeter) Record(elapsed time.Duration) {
	m.count.Add(1)
	m.total.Add(int64(elapsed))
	m.last.Store(int64(elapsed))
	for {
		cur := m.max.Load()
		if int64(elapsed) <= cur || m.max.CompareAndSwap(cur, int64(elapsed)) {
			break
		}
	}
	if elapsed > m.budget {
		m.overrun.Add(1)
	}
}

// LoadStats is a snapshot of a LoadMeter.
type LoadStats struct {
	Count    uint64
	Average  time.Duration
	Max      time.Duration
	Last     time.Duration
	Overruns uint64
	// Load is the average callback duration as a percentage of the budget.
	Load float64
}

// Stats returns the current statistics.
func (m *LoadMeter) Stats() LoadStats {
	s := LoadStats{
		Count:    m.count.Load(),
		Max:      time.Duration(m.max.Load()),
		Last:     time.Duration(m.last.Load()),
		Overruns: m.overrun.Load(),
	}
	if s.Count > 0 {
		s.Average = time.Duration(m.total.Load() / int64(s.Count))
	}
	if m.budget > 0 {
		s.Load = float64(s.Average) / float64(m.budget) * 100
	}
	return s
}

// Reset clears all measurements.
func (m *LoadMeter) Reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
	m.last.Store(0)
	m.overrun.Store(0)
}

func (s LoadStats) String() string {
	return fmt.Sprintf("%d callbacks, avg %v, max %v, load %.2f%%, %d overruns",
		s.Count, s.Average, s.Max, s.Load, s.Overruns)
}
