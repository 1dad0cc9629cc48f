// Package param maps a kernel's control tree onto flat address tables and
// translates MIDI controller messages into parameter writes.
package param

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/justyntemme/kernelhost/pkg/kernel"
)

// Control is one registered leaf of the control tree.
type Control struct {
	Address string
	Kind    kernel.Kind
	Index   int
	Init    float64
	Min     float64
	Max     float64
}

// ReadOnly reports whether the control is a display-only output.
func (c Control) ReadOnly() bool {
	return c.Kind.Output()
}

// Binding ties a MIDI source to a control's range.
type Binding struct {
	Address string
	Min     float64
	Max     float64
}

// Table is the parsed control tree. It is built once at setup and shared
// read-only by every voice of an instrument.
type Table struct {
	// Inputs and Outputs list addresses in tree order.
	Inputs  []string
	Outputs []string

	PitchWheel []Binding
	CtrlChange [128][]Binding

	controls map[string]Control
}

// Parse walks the control tree depth first and registers every leaf.
// Duplicate addresses are rejected.
func Parse(ui []kernel.Node) (*Table, error) {
	t := &Table{controls: make(map[string]Control)}
	var err error
	kernel.Walk(ui, kernel.ItemFunc(func(it *kernel.Item) {
		if err != nil || it.Kind == kernel.KindSoundfile {
			return
		}
		if _, dup := t.controls[it.Address]; dup {
			err = fmt.Errorf("duplicate control address %q", it.Address)
			return
		}
		t.register(it)
	}))
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) register(it *kernel.Item) {
	c := Control{
		Address: it.Address,
		Kind:    it.Kind,
		Index:   it.Index,
		Init:    it.Init,
		Min:     it.Min,
		Max:     it.Max,
	}
	t.controls[it.Address] = c

	if c.ReadOnly() {
		t.Outputs = append(t.Outputs, it.Address)
		return
	}
	t.Inputs = append(t.Inputs, it.Address)

	annotation, ok := it.MIDI()
	if !ok {
		return
	}
	b := Binding{Address: it.Address, Min: it.Min, Max: it.Max}
	if annotation == "pitchwheel" {
		t.PitchWheel = append(t.PitchWheel, b)
		return
	}
	if n, ok := parseCtrl(annotation); ok {
		t.CtrlChange[n] = append(t.CtrlChange[n], b)
	}
}

// parseCtrl accepts "ctrl <n>" with n in 0..127.
func parseCtrl(s string) (int, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 || fields[0] != "ctrl" {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 || n > 127 {
		return 0, false
	}
	return n, true
}

// Lookup returns the control registered under address.
func (t *Table) Lookup(address string) (Control, bool) {
	c, ok := t.controls[address]
	return c, ok
}

// Count returns the number of registered controls.
func (t *Table) Count() int {
	return len(t.controls)
}

// Find returns the input controls whose address ends with suffix, in tree
// order.
func (t *Table) Find(suffix string) []Control {
	var out []Control
	for _, addr := range t.Inputs {
		if strings.HasSuffix(addr, suffix) {
			out = append(out, t.controls[addr])
		}
	}
	return out
}
