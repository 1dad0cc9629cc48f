// Package native provides kernels implemented in Go against the shared arena.
// They follow the same contract as externally compiled kernels and are used by
// the examples and tests.
package native

import (
	"fmt"
	"math"

	"github.com/justyntemme/kernelhost/pkg/arena"
	"github.com/justyntemme/kernelhost/pkg/kernel"
	"github.com/justyntemme/kernelhost/pkg/midi"
)

// Oscillator state slots, 8 bytes each.
const (
	oscFreq = iota
	oscGate
	oscGain
	oscVolume
	oscBend
	oscLevel
	oscPhase
	oscEnv
	oscRate
	oscSlots
)

const oscillatorJSON = `{
	"name": "oscillator",
	"size": %d,
	"inputs": 0,
	"outputs": %d,
	"compile_options": "%s",
	"meta": [{"name": "oscillator"}, {"options": "[nvoices:16]"}],
	"ui": [{
		"type": "vgroup",
		"label": "synth",
		"items": [
			{"type": "hslider", "label": "freq", "address": "/synth/freq", "index": %d, "init": 440, "min": 20, "max": 20000, "step": 0.01},
			{"type": "button", "label": "gate", "address": "/synth/gate", "index": %d},
			{"type": "hslider", "label": "gain", "address": "/synth/gain", "index": %d, "init": 0.5, "min": 0, "max": 1, "step": 0.01},
			{"type": "hslider", "label": "volume", "address": "/synth/volume", "index": %d, "init": 0.8, "min": 0, "max": 1, "step": 0.01,
			 "meta": [{"midi": "ctrl %d"}]},
			{"type": "hslider", "label": "bend", "address": "/synth/bend", "index": %d, "init": 0, "min": -2, "max": 2, "step": 0.01,
			 "meta": [{"midi": "pitchwheel"}]},
			{"type": "hbargraph", "label": "level", "address": "/synth/level", "index": %d, "min": 0, "max": 1}
		]
	}]
}`

// OscillatorModule is a sine voice with a gate-driven envelope.
type OscillatorModule struct {
	meta    *kernel.Metadata
	outputs int
}

// NewOscillator creates an oscillator module writing the same signal to
// outputs channels. double selects 8-byte samples.
func NewOscillator(outputs int, double bool) (*OscillatorModule, error) {
	if outputs < 1 {
		return nil, fmt.Errorf("oscillator needs at least one output, got %d", outputs)
	}
	src := fmt.Sprintf(oscillatorJSON, oscSlots*8, outputs, compileOptions(double),
		oscFreq, oscGate, oscGain, oscVolume, midi.CCVolume, oscBend, oscLevel)
	meta, err := kernel.ParseMetadata([]byte(src))
	if err != nil {
		return nil, err
	}
	return &OscillatorModule{meta: meta, outputs: outputs}, nil
}

// Metadata implements kernel.Module.
func (m *OscillatorModule) Metadata() *kernel.Metadata {
	return m.meta
}

// Instantiate implements kernel.Module.
func (m *OscillatorModule) Instantiate(mem *arena.Memory) (kernel.Kernel, error) {
	if mem == nil {
		return nil, fmt.Errorf("oscillator: nil memory")
	}
	return &oscillator{mem: mem, outputs: m.outputs}, nil
}

type oscillator struct {
	mem     *arena.Memory
	outputs int
}

func compileOptions(double bool) string {
	if double {
		return "-lang go -double"
	}
	return "-lang go -single"
}

func slot(state arena.Offset, i int) arena.Offset {
	return state + arena.Offset(i*8)
}

func (o *oscillator) Init(state arena.Offset, sampleRate float64) {
	o.mem.Zero(state, oscSlots*8)
	o.mem.SetFloat64(slot(state, oscRate), sampleRate)
	o.mem.SetFloat64(slot(state, oscFreq), 440)
	o.mem.SetFloat64(slot(state, oscGain), 0.5)
	o.mem.SetFloat64(slot(state, oscVolume), 0.8)
}

func (o *oscillator) Compute(state arena.Offset, frames int, _, outputs arena.Offset) {
	m := o.mem
	sr := m.Float64(slot(state, oscRate))
	freq := m.Float64(slot(state, oscFreq)) * math.Pow(2, m.Float64(slot(state, oscBend))/12)
	gate := m.Float64(slot(state, oscGate))
	amp := m.Float64(slot(state, oscGain)) * m.Float64(slot(state, oscVolume))
	phase := m.Float64(slot(state, oscPhase))
	env := m.Float64(slot(state, oscEnv))

	coef := 1 - math.Exp(-1/(0.005*sr))
	if gate <= 0 {
		coef = 1 - math.Exp(-1/(0.05*sr))
	}
	target := 0.0
	if gate > 0 {
		target = 1
	}
	inc := freq / sr

	peak := 0.0
	for i := 0; i < frames; i++ {
		env += (target - env) * coef
		v := math.Sin(2*math.Pi*phase) * env * amp
		for ch := 0; ch < o.outputs; ch++ {
			m.SetSample(m.Pointer(outputs, ch), i, v)
		}
		if a := math.Abs(v); a > peak {
			peak = a
		}
		phase += inc
		if phase >= 1 {
			phase -= math.Floor(phase)
		}
	}

	m.SetFloat64(slot(state, oscPhase), phase)
	m.SetFloat64(slot(state, oscEnv), env)
	m.SetFloat64(slot(state, oscLevel), peak)
}

func (o *oscillator) SetParamValue(state arena.Offset, index int, value float64) {
	if index < 0 || index >= oscSlots {
		return
	}
	o.mem.SetFloat64(slot(state, index), value)
}

func (o *oscillator) ParamValue(state arena.Offset, index int) float64 {
	if index < 0 || index >= oscSlots {
		return 0
	}
	return o.mem.Float64(slot(state, index))
}

func (o *oscillator) NumInputs() int  { return 0 }
func (o *oscillator) NumOutputs() int { return o.outputs }

func (o *oscillator) SampleRate(state arena.Offset) float64 {
	return o.mem.Float64(slot(state, oscRate))
}
