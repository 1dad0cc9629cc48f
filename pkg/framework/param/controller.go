package param

import (
	"errors"

	"github.com/justyntemme/kernelhost/pkg/arena"
	"github.com/justyntemme/kernelhost/pkg/kernel"
	"github.com/justyntemme/kernelhost/pkg/midi"
)

var (
	// ErrUnknownAddress is returned for addresses missing from the table.
	ErrUnknownAddress = errors.New("unknown control address")
	// ErrReadOnly is returned when writing a display-only control.
	ErrReadOnly = errors.New("control is read-only")
)

// Controller applies a shared Table to one kernel and one or more instance
// states. Writes go to every state; reads come from the first.
// All methods are allocation free and meant for the render thread.
type Controller struct {
	table  *Table
	kernel kernel.Kernel
	states []arena.Offset
}

// NewController binds table to k at the given state offsets.
func NewController(table *Table, k kernel.Kernel, states ...arena.Offset) *Controller {
	return &Controller{table: table, kernel: k, states: states}
}

// Table returns the shared address table.
func (c *Controller) Table() *Table {
	return c.table
}

// SetParamValue writes value to the control at address.
func (c *Controller) SetParamValue(address string, value float64) error {
	ctl, ok := c.table.controls[address]
	if !ok {
		return ErrUnknownAddress
	}
	if ctl.ReadOnly() {
		return ErrReadOnly
	}
	for _, st := range c.states {
		c.kernel.SetParamValue(st, ctl.Index, value)
	}
	return nil
}

// ParamValue reads the control at address. Unknown addresses yield
// (0, ErrUnknownAddress).
func (c *Controller) ParamValue(address string) (float64, error) {
	ctl, ok := c.table.controls[address]
	if !ok || len(c.states) == 0 {
		return 0, ErrUnknownAddress
	}
	return c.kernel.ParamValue(c.states[0], ctl.Index), nil
}

// CtrlChange remaps value from [0,127] onto every control bound to ctrl.
// The channel is not used for routing.
func (c *Controller) CtrlChange(channel, ctrl, value int) {
	if ctrl < 0 || ctrl >= len(c.table.CtrlChange) {
		return
	}
	for _, b := range c.table.CtrlChange[ctrl] {
		_ = c.SetParamValue(b.Address, Remap(float64(value), 0, 127, b.Min, b.Max))
	}
}

// PitchWheel remaps value from [0,16383] onto every pitch-wheel control.
func (c *Controller) PitchWheel(channel, value int) {
	for _, b := range c.table.PitchWheel {
		_ = c.SetParamValue(b.Address, Remap(float64(value), 0, 16383, b.Min, b.Max))
	}
}

// MIDIMessage handles control change and pitch wheel messages. Everything
// else, notes included, is ignored here.
func (c *Controller) MIDIMessage(data []byte) {
	m, ok := midi.Decode(data)
	if !ok {
		return
	}
	switch m.Type {
	case midi.EventTypeControlChange:
		c.CtrlChange(int(m.Channel), int(m.Controller), int(m.Value))
	case midi.EventTypePitchBend:
		c.PitchWheel(int(m.Channel), int(m.Bend))
	}
}

// Remap maps v from [lo, hi] onto [min, max].
func Remap(v, lo, hi, min, max float64) float64 {
	return (v-lo)/(hi-lo)*(max-min) + min
}
