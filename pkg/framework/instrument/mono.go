package instrument

import (
	"context"
	"fmt"

	"github.com/justyntemme/kernelhost/pkg/arena"
	"github.com/justyntemme/kernelhost/pkg/framework/event"
	"github.com/justyntemme/kernelhost/pkg/framework/layout"
	"github.com/justyntemme/kernelhost/pkg/framework/param"
	"github.com/justyntemme/kernelhost/pkg/kernel"
)

// Mono runs a single kernel instance over each buffer.
type Mono struct {
	base

	mem    *arena.Memory
	layout *layout.Mono
	kernel kernel.Kernel
	ctl    *param.Controller
}

// NewMono plans memory for module, instantiates it and parses its controls.
func NewMono(ctx context.Context, module kernel.Module, cfg Config, opts ...Option) (*Mono, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := &Mono{}
	if err := m.init(cfg, opts); err != nil {
		return nil, err
	}

	meta := module.Metadata()
	l, err := layout.PlanMono(layout.Params{
		Inputs:      meta.Inputs,
		Outputs:     meta.Outputs,
		BufferSize:  m.cfg.BufferSize,
		SampleWidth: meta.SampleWidth(),
		StateSize:   meta.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to plan %s: %w", meta.Name, err)
	}
	if err := m.checkLayout(meta.Name, l.Regions()); err != nil {
		return nil, err
	}
	mem, err := arena.New(l.Size, meta.SampleWidth())
	if err != nil {
		return nil, fmt.Errorf("failed to allocate %s: %w", meta.Name, err)
	}
	l.WriteTables(mem)

	k, err := module.Instantiate(mem)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate %s: %w", meta.Name, err)
	}
	if err := kernel.Verify(meta, k); err != nil {
		return nil, fmt.Errorf("failed to verify %s: %w", meta.Name, err)
	}
	k.Init(l.State, m.cfg.SampleRate)

	table, err := param.Parse(meta.UI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s controls: %w", meta.Name, err)
	}

	m.mem, m.layout, m.kernel = mem, l, k
	m.ctl = param.NewController(table, k, l.State)
	m.bind(table, m.ctl)
	m.configured = true

	m.opts.logger.Info("mono instrument %s ready: %d in, %d out, %d controls, %d bytes, %d-byte samples",
		meta.Name, meta.Inputs, meta.Outputs, m.controlCount(), l.Size, meta.SampleWidth())
	return m, nil
}

// Compute renders one buffer. It returns false only once the instrument is
// destroyed; an inactive instrument or missing buffers still return true.
func (m *Mono) Compute(inputs, outputs [][]float32) bool {
	proceed, result := m.check()
	if !proceed {
		return result
	}
	frames := m.cfg.BufferSize
	nin, nout := m.kernel.NumInputs(), m.kernel.NumOutputs()
	if !ready(inputs, nin, frames) || !ready(outputs, nout, frames) {
		return true
	}

	events := m.drain()
	for i := range events {
		m.apply(&events[i])
	}

	for ch := 0; ch < nin; ch++ {
		m.mem.WriteChannel(m.layout.Channel(m.layout.Inputs, ch), inputs[ch][:frames])
	}
	if m.opts.compute != nil {
		m.opts.compute(frames)
	}
	m.kernel.Compute(m.layout.State, frames, m.layout.Inputs.Offset, m.layout.Outputs.Offset)
	for ch := 0; ch < nout; ch++ {
		m.mem.ReadChannel(m.layout.Channel(m.layout.Outputs, ch), outputs[ch][:frames])
	}

	m.pollOutputs()
	m.advance()
	return true
}

// apply handles controls only; notes have no meaning without voices.
func (m *Mono) apply(e *event.Event) {
	switch e.Type {
	case event.ParameterChange:
		m.setParam(e.Address, e.Value)
	case event.MIDI:
		m.midiControl(e.Bytes())
	}
}

// Layout returns the planned memory layout.
func (m *Mono) Layout() *layout.Mono {
	return m.layout
}
