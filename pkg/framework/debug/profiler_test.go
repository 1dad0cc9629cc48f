package debug

import (
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLoadMeter(t *testing.T) {
	t.Run("Budget", func(t *testing.T) {
		m := NewLoadMeter(48000, 480)
		if m.Budget() != 10*time.Millisecond {
			t.Errorf("Expected 10ms budget, got %v", m.Budget())
		}
	})

	t.Run("Record", func(t *testing.T) {
		m := NewLoadMeter(48000, 480)
		m.Record(2 * time.Millisecond)
		m.Record(4 * time.Millisecond)
		m.Record(12 * time.Millisecond)

		s := m.Stats()
		if s.Count != 3 {
			t.Errorf("Expected count 3, got %d", s.Count)
		}
		if s.Average != 6*time.Millisecond {
			t.Errorf("Expected 6ms average, got %v", s.Average)
		}
		if s.Max != 12*time.Millisecond || s.Last != 12*time.Millisecond {
			t.Errorf("max %v, last %v", s.Max, s.Last)
		}
		if s.Overruns != 1 {
			t.Errorf("Expected 1 overrun, got %d", s.Overruns)
		}
		if math.Abs(s.Load-60) > 1e-9 {
			t.Errorf("Expected 60%% load, got %f", s.Load)
		}
		if !strings.Contains(s.String(), "3 callbacks") {
			t.Errorf("String() = %s", s)
		}

		m.Reset()
		if m.Stats().Count != 0 {
			t.Error("Reset kept measurements")
		}
	})

	t.Run("Start", func(t *testing.T) {
		m := NewLoadMeter(44100, 128)
		stop := m.Start()
		time.Sleep(time.Millisecond)
		stop()
		if m.Stats().Last < time.Millisecond {
			t.Error("Timing seems too short")
		}
	})

	t.Run("Concurrent", func(t *testing.T) {
		m := NewLoadMeter(44100, 128)
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					m.Record(time.Duration(g*100+i) * time.Microsecond)
				}
			}(g)
		}
		wg.Wait()

		s := m.Stats()
		if s.Count != 400 {
			t.Errorf("Expected 400 records, got %d", s.Count)
		}
		if s.Max != 399*time.Microsecond {
			t.Errorf("Expected max 399µs, got %v", s.Max)
		}
	})
}
