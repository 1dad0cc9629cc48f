package native

import (
	"fmt"
	"math"

	"github.com/justyntemme/kernelhost/pkg/arena"
	"github.com/justyntemme/kernelhost/pkg/kernel"
	"github.com/justyntemme/kernelhost/pkg/midi"
)

// Filter state slots; per-channel filter memory follows filterSlots.
const (
	filterCutoff = iota
	filterVolume
	filterPeak
	filterRate
	filterSlots
)

const filterJSON = `{
	"name": "lowpass",
	"size": %d,
	"inputs": %d,
	"outputs": %d,
	"compile_options": "%s",
	"meta": [{"name": "lowpass"}],
	"ui": [{
		"type": "hgroup",
		"label": "tone",
		"items": [
			{"type": "hslider", "label": "cutoff", "address": "/tone/cutoff", "index": %d, "init": 20000, "min": 20, "max": 20000, "step": 1,
			 "meta": [{"midi": "ctrl %d"}]},
			{"type": "hslider", "label": "volume", "address": "/tone/volume", "index": %d, "init": 1, "min": 0, "max": 2, "step": 0.01},
			{"type": "vbargraph", "label": "peak", "address": "/tone/peak", "index": %d, "min": 0, "max": 1}
		]
	}]
}`

// FilterModule is a one-pole lowpass with output volume. It processes
// in place, so it can serve as a shared effect on the mixed output.
type FilterModule struct {
	meta     *kernel.Metadata
	channels int
}

// NewFilter creates a filter module with the same number of inputs and
// outputs. double selects 8-byte samples.
func NewFilter(channels int, double bool) (*FilterModule, error) {
	if channels < 1 {
		return nil, fmt.Errorf("filter needs at least one channel, got %d", channels)
	}
	src := fmt.Sprintf(filterJSON, (filterSlots+channels)*8, channels, channels, compileOptions(double),
		filterCutoff, midi.CCCutoff, filterVolume, filterPeak)
	meta, err := kernel.ParseMetadata([]byte(src))
	if err != nil {
		return nil, err
	}
	return &FilterModule{meta: meta, channels: channels}, nil
}

// Metadata implements kernel.Module.
func (m *FilterModule) Metadata() *kernel.Metadata {
	return m.meta
}

// Instantiate implements kernel.Module.
func (m *FilterModule) Instantiate(mem *arena.Memory) (kernel.Kernel, error) {
	if mem == nil {
		return nil, fmt.Errorf("filter: nil memory")
	}
	return &filter{mem: mem, channels: m.channels}, nil
}

type filter struct {
	mem      *arena.Memory
	channels int
}

func (f *filter) slots() int {
	return filterSlots + f.channels
}

func (f *filter) Init(state arena.Offset, sampleRate float64) {
	f.mem.Zero(state, f.slots()*8)
	f.mem.SetFloat64(slot(state, filterRate), sampleRate)
	f.mem.SetFloat64(slot(state, filterCutoff), 20000)
	f.mem.SetFloat64(slot(state, filterVolume), 1)
}

func (f *filter) Compute(state arena.Offset, frames int, inputs, outputs arena.Offset) {
	m := f.mem
	sr := m.Float64(slot(state, filterRate))
	cutoff := math.Min(m.Float64(slot(state, filterCutoff)), sr/2)
	a := 1 - math.Exp(-2*math.Pi*cutoff/sr)
	vol := m.Float64(slot(state, filterVolume))

	peak := 0.0
	for ch := 0; ch < f.channels; ch++ {
		in := m.Pointer(inputs, ch)
		out := m.Pointer(outputs, ch)
		z := m.Float64(slot(state, filterSlots+ch))
		for i := 0; i < frames; i++ {
			z += (m.Sample(in, i) - z) * a
			y := z * vol
			m.SetSample(out, i, y)
			if abs := math.Abs(y); abs > peak {
				peak = abs
			}
		}
		m.SetFloat64(slot(state, filterSlots+ch), z)
	}
	m.SetFloat64(slot(state, filterPeak), peak)
}

func (f *filter) SetParamValue(state arena.Offset, index int, value float64) {
	if index < 0 || index >= filterSlots {
		return
	}
	f.mem.SetFloat64(slot(state, index), value)
}

func (f *filter) ParamValue(state arena.Offset, index int) float64 {
	if index < 0 || index >= filterSlots {
		return 0
	}
	return f.mem.Float64(slot(state, index))
}

func (f *filter) NumInputs() int  { return f.channels }
func (f *filter) NumOutputs() int { return f.channels }

func (f *filter) SampleRate(state arena.Offset) float64 {
	return f.mem.Float64(slot(state, filterRate))
}
