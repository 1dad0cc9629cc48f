// Package mixer accumulates per-voice channel buffers inside the shared
// memory region. Every routine addresses channels through a pointer table, so
// a shifted table makes it work on a sub-range of the buffer without copying.
package mixer

import (
	"math"

	"github.com/justyntemme/kernelhost/pkg/arena"
)

// Mixer operates on one memory region - no allocations
type Mixer struct {
	mem *arena.Memory
}

// New creates a mixer over mem.
func New(mem *arena.Memory) *Mixer {
	return &Mixer{mem: mem}
}

// ClearOutput zeroes frames samples of every channel in table.
func (m *Mixer) ClearOutput(frames, channels int, table arena.Offset) {
	n := frames * m.mem.SampleWidth()
	for ch := 0; ch < channels; ch++ {
		m.mem.Zero(m.mem.Pointer(table, ch), n)
	}
}

// MixCheckVoice adds the voice buffers to the output buffers and returns the
// voice's peak absolute level across all channels.
func (m *Mixer) MixCheckVoice(frames, channels int, voice, output arena.Offset) float64 {
	peak := 0.0
	for ch := 0; ch < channels; ch++ {
		src := m.mem.Pointer(voice, ch)
		dst := m.mem.Pointer(output, ch)
		for i := 0; i < frames; i++ {
			s := m.mem.Sample(src, i)
			peak = math.Max(peak, math.Abs(s))
			m.mem.SetSample(dst, i, m.mem.Sample(dst, i)+s)
		}
	}
	return peak
}

// FadeOut applies a linear ramp from 1 down to 0 over frames samples.
func (m *Mixer) FadeOut(frames, channels int, table arena.Offset) {
	if frames <= 0 {
		return
	}
	step := 1.0 / float64(frames)
	for ch := 0; ch < channels; ch++ {
		buf := m.mem.Pointer(table, ch)
		for i := 0; i < frames; i++ {
			g := 1.0 - float64(i+1)*step
			m.mem.SetSample(buf, i, m.mem.Sample(buf, i)*g)
		}
	}
}

// FadeIn applies a linear ramp from 0 up to 1 over frames samples.
func (m *Mixer) FadeIn(frames, channels int, table arena.Offset) {
	if frames <= 0 {
		return
	}
	step := 1.0 / float64(frames)
	for ch := 0; ch < channels; ch++ {
		buf := m.mem.Pointer(table, ch)
		for i := 0; i < frames; i++ {
			g := float64(i) * step
			m.mem.SetSample(buf, i, m.mem.Sample(buf, i)*g)
		}
	}
}

// CopyChannels copies frames samples per channel from src into dst, writing
// at sample position at of each destination channel.
func (m *Mixer) CopyChannels(frames, channels int, src, dst arena.Offset, at int) {
	shift := arena.Offset(at * m.mem.SampleWidth())
	for ch := 0; ch < channels; ch++ {
		from := m.mem.Pointer(src, ch)
		to := m.mem.Pointer(dst, ch) + shift
		for i := 0; i < frames; i++ {
			m.mem.SetSample(to, i, m.mem.Sample(from, i))
		}
	}
}
