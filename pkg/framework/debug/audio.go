package debug

import (
	"fmt"
	"math"
)

// Analyzer accumulates statistics over a stream of audio buffers. It does not
// allocate in Add.
type Analyzer struct {
	clipThreshold    float32
	dcThreshold      float64
	silenceThreshold float64

	samples    int
	peak       float32
	sum        float64
	sumSquares float64
	clipped    int
	nan        int
}

// NewAnalyzer creates an analyzer with the default thresholds.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		clipThreshold:    0.99,
		dcThreshold:      0.01,
		silenceThreshold: 0.0001,
	}
}

// Add folds buffer into the statistics.
func (a *Analyzer) Add(buffer []float32) {
	for _, s := range buffer {
		if math.IsNaN(float64(s)) {
			a.nan++
			continue
		}
		abs := s
		if abs < 0 {
			abs = -abs
		}
		if abs > a.peak {
			a.peak = abs
		}
		if abs >= a.clipThreshold {
			a.clipped++
		}
		a.sum += float64(s)
		a.sumSquares += float64(s) * float64(s)
		a.samples++
	}
}

// Analysis is the result of an Analyzer.
type Analysis struct {
	Samples int
	Peak    float32
	RMS     float64
	DC      float64
	Clipped int
	NaN     int
	Silent  bool
}

// Result returns the statistics of everything added so far.
func (a *Analyzer) Result() Analysis {
	r := Analysis{Samples: a.samples, Peak: a.peak, Clipped: a.clipped, NaN: a.nan}
	if a.samples > 0 {
		r.RMS = math.Sqrt(a.sumSquares / float64(a.samples))
		r.DC = a.sum / float64(a.samples)
	}
	r.Silent = r.RMS < a.silenceThreshold
	return r
}

// Issues lists the problems found so far, each prefixed with name.
func (a *Analyzer) Issues(name string) []string {
	r := a.Result()
	var issues []string
	if r.NaN > 0 {
		issues = append(issues, fmt.Sprintf("%s: contains %d NaN values", name, r.NaN))
	}
	if r.Clipped > 0 {
		issues = append(issues, fmt.Sprintf("%s: clipping detected (%d samples)", name, r.Clipped))
	}
	if math.Abs(r.DC) > a.dcThreshold {
		issues = append(issues, fmt.Sprintf("%s: DC offset detected (%.3f)", name, r.DC))
	}
	return issues
}

// Reset clears the statistics.
func (a *Analyzer) Reset() {
	*a = Analyzer{
		clipThreshold:    a.clipThreshold,
		dcThreshold:      a.dcThreshold,
		silenceThreshold: a.silenceThreshold,
	}
}

// Report logs the statistics and issues to l.
func (a *Analyzer) Report(l *Logger, name string) {
	r := a.Result()
	l.Info("%s: %d samples, peak %.3f, rms %.3f, dc %.6f", name, r.Samples, r.Peak, r.RMS, r.DC)
	if r.Silent {
		l.Warn("%s: silent", name)
	}
	for _, issue := range a.Issues(name) {
		l.Warn("%s", issue)
	}
}
