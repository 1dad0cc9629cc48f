package instrument

import (
	"context"
	"fmt"

	"github.com/justyntemme/kernelhost/pkg/arena"
	"github.com/justyntemme/kernelhost/pkg/framework/event"
	"github.com/justyntemme/kernelhost/pkg/framework/layout"
	"github.com/justyntemme/kernelhost/pkg/framework/mixer"
	"github.com/justyntemme/kernelhost/pkg/framework/param"
	"github.com/justyntemme/kernelhost/pkg/framework/voice"
	"github.com/justyntemme/kernelhost/pkg/kernel"
	"github.com/justyntemme/kernelhost/pkg/midi"
)

// Poly turns a monophonic voice kernel into a polyphonic instrument with an
// optional shared effect kernel.
type Poly struct {
	base

	mem    *arena.Memory
	layout *layout.Poly
	mixer  *mixer.Mixer

	kernel kernel.Kernel
	pool   *voice.Pool
	voices *param.Controller

	effect    kernel.Kernel
	effectCtl *param.Controller

	bounds []int
	// shift is the sample position the input, output and mixing tables
	// currently point at.
	shift int
}

// NewPoly plans memory for cfg.Voices instances of voiceModule plus one
// instance of effectModule, which may be nil. The effect runs in place on the
// mixed output, so it must have as many inputs and outputs as the voice has
// outputs and use the same sample width.
func NewPoly(ctx context.Context, voiceModule, effectModule kernel.Module, cfg Config, opts ...Option) (*Poly, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := &Poly{}
	if err := p.init(cfg, opts); err != nil {
		return nil, err
	}

	meta := voiceModule.Metadata()
	width := meta.SampleWidth()
	params := layout.Params{
		Inputs:      meta.Inputs,
		Outputs:     meta.Outputs,
		BufferSize:  p.cfg.BufferSize,
		SampleWidth: width,
		StateSize:   meta.Size,
		Voices:      p.cfg.Voices,
	}

	var effectMeta *kernel.Metadata
	if effectModule != nil {
		effectMeta = effectModule.Metadata()
		if err := checkEffect(meta, effectMeta); err != nil {
			return nil, err
		}
		params.Effect = true
		params.EffectStateSize = effectMeta.Size
	}

	l, err := layout.PlanPoly(params)
	if err != nil {
		return nil, fmt.Errorf("failed to plan %s: %w", meta.Name, err)
	}
	if err := p.checkLayout(meta.Name, l.Regions()); err != nil {
		return nil, err
	}
	mem, err := arena.New(l.Size, width)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate %s: %w", meta.Name, err)
	}
	l.WriteTables(mem)
	p.mem, p.layout, p.mixer = mem, l, mixer.New(mem)

	if p.kernel, err = instantiate(voiceModule, mem); err != nil {
		return nil, err
	}
	for _, st := range l.Voices {
		p.kernel.Init(st, p.cfg.SampleRate)
	}
	table, err := param.Parse(meta.UI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s controls: %w", meta.Name, err)
	}
	p.voices = param.NewController(table, p.kernel, l.Voices...)
	p.pool = voice.NewPool(p.kernel, table, l.Voices, p.cfg.SampleRate)
	p.bind(table, p.voices)

	if effectModule != nil {
		if p.effect, err = instantiate(effectModule, mem); err != nil {
			return nil, err
		}
		p.effect.Init(l.Effect, p.cfg.SampleRate)
		effectTable, err := param.Parse(effectMeta.UI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s controls: %w", effectMeta.Name, err)
		}
		p.effectCtl = param.NewController(effectTable, p.effect, l.Effect)
		p.bind(effectTable, p.effectCtl)
	}

	p.bounds = make([]int, 0, p.queue.Capacity()+1)
	p.configured = true

	p.opts.logger.Info("poly instrument %s ready: %d voices, %d out, effect=%v, %d controls, %d bytes, %d-byte samples",
		meta.Name, len(l.Voices), meta.Outputs, effectModule != nil, p.controlCount(), l.Size, width)
	return p, nil
}

func checkEffect(voiceMeta, effectMeta *kernel.Metadata) error {
	switch {
	case effectMeta.SampleWidth() != voiceMeta.SampleWidth():
		return fmt.Errorf("effect %s uses %d-byte samples, voice %s uses %d",
			effectMeta.Name, effectMeta.SampleWidth(), voiceMeta.Name, voiceMeta.SampleWidth())
	case effectMeta.Inputs != voiceMeta.Outputs || effectMeta.Outputs != voiceMeta.Outputs:
		return fmt.Errorf("effect %s has %d in/%d out, voice %s has %d out",
			effectMeta.Name, effectMeta.Inputs, effectMeta.Outputs, voiceMeta.Name, voiceMeta.Outputs)
	}
	return nil
}

func instantiate(module kernel.Module, mem *arena.Memory) (kernel.Kernel, error) {
	meta := module.Metadata()
	k, err := module.Instantiate(mem)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate %s: %w", meta.Name, err)
	}
	if err := kernel.Verify(meta, k); err != nil {
		return nil, fmt.Errorf("failed to verify %s: %w", meta.Name, err)
	}
	return k, nil
}

// Compute renders one buffer. Events due in the buffer split it into slices;
// each event is applied at the start of its slice and every voice that is
// not Free renders the slice into the mixing buffer, which is added to the
// output. The effect then runs once over the whole output.
//
// It returns false only once the instrument is destroyed.
func (p *Poly) Compute(inputs, outputs [][]float32) bool {
	proceed, result := p.check()
	if !proceed {
		return result
	}
	frames := p.cfg.BufferSize
	nin, nout := p.kernel.NumInputs(), p.kernel.NumOutputs()
	if !ready(inputs, nin, frames) || !ready(outputs, nout, frames) {
		return true
	}

	for ch := 0; ch < nin; ch++ {
		p.mem.WriteChannel(p.layout.Channel(p.layout.Inputs, ch), inputs[ch][:frames])
	}
	if p.opts.compute != nil {
		p.opts.compute(frames)
	}

	events := p.drain()
	p.bounds = Boundaries(events, frames, p.bounds[:0])
	p.mixer.ClearOutput(frames, nout, p.layout.Outputs.Offset)

	start, next := 0, 0
	for _, end := range p.bounds {
		for ; next < len(events) && events[next].Offset <= start; next++ {
			p.apply(&events[next])
		}
		p.shiftTo(start)
		p.computeSlice(start, end-start)
		start = end
	}
	p.shiftTo(0)

	if p.effect != nil {
		p.effect.Compute(p.layout.Effect, frames, p.layout.Outputs.Offset, p.layout.Outputs.Offset)
	}
	for ch := 0; ch < nout; ch++ {
		p.mem.ReadChannel(p.layout.Channel(p.layout.Outputs, ch), outputs[ch][:frames])
	}

	p.pollOutputs()
	p.advance()
	return true
}

// Boundaries appends to dst the end of every slice of a frames-long buffer
// split at the offsets of events: each distinct offset inside (0, frames)
// followed by frames. Offsets must be sorted, as Drain returns them.
func Boundaries(events []event.Event, frames int, dst []int) []int {
	last := 0
	for i := range events {
		off := events[i].Offset
		if off > last && off < frames {
			dst = append(dst, off)
			last = off
		}
	}
	return append(dst, frames)
}

func (p *Poly) shiftTo(start int) {
	if start == p.shift {
		return
	}
	p.layout.Shift(p.mem, start)
	p.shift = start
}

func (p *Poly) computeSlice(start, frames int) {
	nout := p.kernel.NumOutputs()
	for i := 0; i < p.pool.Len(); i++ {
		v := p.pool.Voice(i)
		if v.Note == voice.Free {
			continue
		}
		if v.Note == voice.LegatoSteal {
			p.computeLegato(v, start, frames)
		} else {
			p.kernel.Compute(v.State, frames, p.layout.Inputs.Offset, p.layout.Mix.Offset)
		}
		level := p.mixer.MixCheckVoice(frames, nout, p.layout.Mix.Offset, p.layout.Outputs.Offset)
		p.pool.Retire(i, level, frames)
	}
}

// computeLegato renders a stolen voice into the mixing buffer: the first
// half of the slice plays the old note gated off and faded out, the second
// half plays the pending note faded in. The second half is rendered into
// the half-mixing buffer and copied behind the first.
func (p *Poly) computeLegato(v *voice.Voice, start, frames int) {
	half := frames / 2
	if half == 0 {
		v.ApplyPending()
		p.kernel.Compute(v.State, frames, p.layout.Inputs.Offset, p.layout.Mix.Offset)
		return
	}
	nout := p.kernel.NumOutputs()
	mix, halfMix := p.layout.Mix.Offset, p.layout.Half.Offset

	v.GateOff()
	p.kernel.Compute(v.State, half, p.layout.Inputs.Offset, mix)
	p.mixer.FadeOut(half, nout, mix)

	v.ApplyPending()
	p.shiftTo(start + half)
	p.kernel.Compute(v.State, frames-half, p.layout.Inputs.Offset, halfMix)
	p.mixer.FadeIn(frames-half, nout, halfMix)
	p.shiftTo(start)
	p.mixer.CopyChannels(frames-half, nout, halfMix, mix, half)
}

func (p *Poly) apply(e *event.Event) {
	switch e.Type {
	case event.NoteOn:
		if e.Velocity == 0 {
			p.pool.KeyOff(e.Pitch, false)
			return
		}
		p.pool.KeyOn(e.Pitch, e.Velocity)
	case event.NoteOff:
		p.pool.KeyOff(e.Pitch, false)
	case event.ParameterChange:
		p.setParam(e.Address, e.Value)
	case event.AllNotesOff:
		p.pool.AllNotesOff(e.Value > 0)
	case event.MIDI:
		p.applyMIDI(e.Bytes())
	}
}

func (p *Poly) applyMIDI(data []byte) {
	msg, ok := midi.Decode(data)
	if !ok {
		return
	}
	switch msg.Type {
	case midi.EventTypeNoteOn:
		p.pool.KeyOn(int(msg.Note), int(msg.Velocity))
	case midi.EventTypeNoteOff:
		p.pool.KeyOff(int(msg.Note), false)
	case midi.EventTypeControlChange:
		switch msg.Controller {
		case midi.CCAllNotesOff:
			p.pool.AllNotesOff(false)
		case midi.CCAllSoundOff:
			p.pool.AllNotesOff(true)
		default:
			p.midiControl(data)
		}
	default:
		p.midiControl(data)
	}
}

// Pool exposes the voice pool. It is owned by the render thread.
func (p *Poly) Pool() *voice.Pool {
	return p.pool
}

// Layout returns the planned memory layout.
func (p *Poly) Layout() *layout.Poly {
	return p.layout
}

// Memory returns the shared region.
func (p *Poly) Memory() *arena.Memory {
	return p.mem
}
