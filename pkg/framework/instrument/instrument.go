// Package instrument runs kernels inside a real-time render callback.
//
// A Mono instrument drives one kernel instance over each buffer. A Poly
// instrument drives one instance per voice, splits each buffer at the sample
// positions of scheduled events, mixes the voices and runs an optional shared
// effect on the result.
//
// Setup (NewMono, NewPoly) allocates and may block. Compute never allocates,
// blocks or logs. Every other method only enqueues an event and is safe to
// call from any goroutine.
package instrument

import (
	"fmt"
	"sync/atomic"

	"github.com/justyntemme/kernelhost/pkg/framework/debug"
	"github.com/justyntemme/kernelhost/pkg/framework/event"
	"github.com/justyntemme/kernelhost/pkg/framework/layout"
	"github.com/justyntemme/kernelhost/pkg/framework/param"
)

// OutputHandler receives display-only control values on the render thread.
type OutputHandler func(address string, value float64)

// ComputeHandler is called on the render thread before the kernel runs.
type ComputeHandler func(frames int)

// Option configures an instrument at setup.
type Option func(*options)

type options struct {
	logger  *debug.Logger
	output  OutputHandler
	compute ComputeHandler
}

func buildOptions(opts []Option) options {
	o := options{logger: debug.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used during setup.
func WithLogger(l *debug.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOutputHandler registers the receiver of bargraph values.
func WithOutputHandler(h OutputHandler) Option {
	return func(o *options) {
		o.output = h
	}
}

// WithComputeHandler registers a callback run before each kernel compute.
func WithComputeHandler(h ComputeHandler) Option {
	return func(o *options) {
		o.compute = h
	}
}

// bound pairs a parsed table with the controller writing it.
type bound struct {
	table *param.Table
	ctl   *param.Controller
}

// base holds what mono and poly instruments share: configuration, the event
// queue, the render clock and the lifecycle flags.
type base struct {
	cfg  Config
	opts options

	queue  *event.Queue
	events []event.Event

	controls []bound
	inputs   []string
	outputs  []string

	frames    atomic.Int64
	active    atomic.Bool
	destroyed atomic.Bool

	poll       int
	configured bool
}

func (b *base) init(cfg Config, opts []Option) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	b.cfg = cfg.withDefaults()
	b.opts = buildOptions(opts)
	b.queue = event.NewQueue(b.cfg.EventCapacity)
	b.events = make([]event.Event, 0, b.queue.Capacity())
	b.poll = b.cfg.OutputPollInterval
	b.active.Store(true)
	return nil
}

func (b *base) bind(table *param.Table, ctl *param.Controller) {
	b.controls = append(b.controls, bound{table: table, ctl: ctl})
	b.inputs = append(b.inputs, table.Inputs...)
	b.outputs = append(b.outputs, table.Outputs...)
}

// checkLayout rejects overlapping regions and logs the plan at debug level.
func (b *base) checkLayout(name string, regions []layout.Region) error {
	if r1, r2, found := layout.Overlap(regions); found {
		return fmt.Errorf("%s layout: %s overlaps %s", name, r1.Name, r2.Name)
	}
	if b.opts.logger.Enabled(debug.LogLevelDebug) {
		for _, r := range regions {
			b.opts.logger.Debug("%s: %s at %d, %d bytes", name, r.Name, r.Start, r.Size)
		}
	}
	return nil
}

// controlCount returns the number of controls over every bound table.
func (b *base) controlCount() int {
	n := 0
	for _, c := range b.controls {
		n += c.table.Count()
	}
	return n
}

// Config returns the configuration in effect, defaults applied.
func (b *base) Config() Config {
	return b.cfg
}

// Time returns the render clock in seconds: the start of the next buffer.
func (b *base) Time() float64 {
	return float64(b.frames.Load()) / b.cfg.SampleRate
}

// SetActive pauses or resumes processing. An inactive instrument keeps
// returning true from Compute without touching any buffer.
func (b *base) SetActive(active bool) {
	b.active.Store(active)
}

// Active reports whether the instrument processes audio.
func (b *base) Active() bool {
	return b.active.Load()
}

// Destroy marks the instrument inert. Later Compute calls return false.
func (b *base) Destroy() {
	b.destroyed.Store(true)
}

// Destroyed reports whether Destroy was called.
func (b *base) Destroyed() bool {
	return b.destroyed.Load()
}

// Inputs returns the adjustable control addresses.
func (b *base) Inputs() []string {
	return b.inputs
}

// Outputs returns the display-only control addresses.
func (b *base) Outputs() []string {
	return b.outputs
}

// ScheduleEvent queues e for the render thread. It returns false when the
// queue is full, and without queueing anything when e is a parameter change
// for an address that is unknown or display-only.
func (b *base) ScheduleEvent(e event.Event) bool {
	if e.Type == event.ParameterChange && b.lookup(e.Address) != nil {
		return false
	}
	return b.queue.Schedule(e)
}

// Dropped returns how many events were rejected because the queue was full.
func (b *base) Dropped() uint64 {
	return b.queue.Dropped()
}

// KeyOn schedules a note on at the current render time.
func (b *base) KeyOn(pitch, velocity int) bool {
	return b.queue.Schedule(event.NewNoteOn(b.Time(), pitch, velocity))
}

// KeyOff schedules a note off at the current render time.
func (b *base) KeyOff(pitch int) bool {
	return b.queue.Schedule(event.NewNoteOff(b.Time(), pitch))
}

// AllNotesOff schedules the release of every voice. With hard set the voices
// are cut instead of released.
func (b *base) AllNotesOff(hard bool) bool {
	e := event.Event{Time: b.Time(), Type: event.AllNotesOff}
	if hard {
		e.Value = 1
	}
	return b.queue.Schedule(e)
}

// MIDIMessage schedules a raw MIDI message at the current render time.
func (b *base) MIDIMessage(data []byte) bool {
	return b.queue.Schedule(event.NewMIDI(b.Time(), data))
}

// SetParamValue validates address and schedules the write at the current
// render time. Unknown addresses return param.ErrUnknownAddress and
// display-only controls return param.ErrReadOnly.
func (b *base) SetParamValue(address string, value float64) error {
	if err := b.lookup(address); err != nil {
		return err
	}
	if !b.queue.Schedule(event.NewParameterChange(b.Time(), address, value)) {
		return fmt.Errorf("failed to schedule %s: event queue full", address)
	}
	return nil
}

// ParamValue reads a control. It reads kernel memory directly and must run
// on the render thread or between callbacks, for instance from a compute or
// output handler.
func (b *base) ParamValue(address string) (float64, error) {
	for _, c := range b.controls {
		if _, ok := c.table.Lookup(address); ok {
			return c.ctl.ParamValue(address)
		}
	}
	return 0, param.ErrUnknownAddress
}

func (b *base) lookup(address string) error {
	for _, c := range b.controls {
		if ctl, ok := c.table.Lookup(address); ok {
			if ctl.ReadOnly() {
				return param.ErrReadOnly
			}
			return nil
		}
	}
	return param.ErrUnknownAddress
}

// setParam applies a scheduled parameter change to the first table that
// knows address.
func (b *base) setParam(address string, value float64) {
	for _, c := range b.controls {
		if _, ok := c.table.Lookup(address); ok {
			_ = c.ctl.SetParamValue(address, value)
			return
		}
	}
}

// midiControl forwards controller and pitch-wheel messages to every table.
func (b *base) midiControl(data []byte) {
	for _, c := range b.controls {
		c.ctl.MIDIMessage(data)
	}
}

// check runs at the top of Compute.
func (b *base) check() (proceed, result bool) {
	if b.destroyed.Load() {
		return false, false
	}
	if !b.configured {
		panic(ErrNotConfigured)
	}
	if !b.active.Load() {
		return false, true
	}
	return true, true
}

// ready reports whether the host buffers can hold one full buffer for the
// given channel counts. With zero channels the slice is never inspected.
func ready(bufs [][]float32, channels, frames int) bool {
	if channels == 0 {
		return true
	}
	if len(bufs) < channels {
		return false
	}
	for ch := 0; ch < channels; ch++ {
		if len(bufs[ch]) < frames {
			return false
		}
	}
	return true
}

// pollOutputs pushes every display-only value once every OutputPollInterval
// callbacks.
func (b *base) pollOutputs() {
	if b.opts.output == nil {
		return
	}
	b.poll--
	if b.poll > 0 {
		return
	}
	b.poll = b.cfg.OutputPollInterval
	for _, c := range b.controls {
		for _, addr := range c.table.Outputs {
			v, err := c.ctl.ParamValue(addr)
			if err == nil {
				b.opts.output(addr, v)
			}
		}
	}
}

// drain pops the events due in the next buffer.
func (b *base) drain() []event.Event {
	start := float64(b.frames.Load()) / b.cfg.SampleRate
	b.events = b.queue.Drain(start, b.cfg.BufferSize, b.cfg.SampleRate, b.events[:0])
	return b.events
}

func (b *base) advance() {
	b.frames.Add(int64(b.cfg.BufferSize))
}
