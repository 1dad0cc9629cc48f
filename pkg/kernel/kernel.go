// Package kernel defines the contract of a compiled DSP kernel and the
// metadata it publishes. Kernels are opaque: the host only plans memory,
// drives compute and reads or writes parameter slots.
package kernel

import (
	"fmt"

	"github.com/justyntemme/kernelhost/pkg/arena"
)

// Kernel is one compiled DSP unit bound to a memory region. Every call takes
// the state offset of the instance it addresses, so one Kernel serves all
// voices of an instrument.
type Kernel interface {
	// Init prepares the instance at state for the given sample rate.
	Init(state arena.Offset, sampleRate float64)
	// Compute renders frames samples. inputs and outputs are pointer tables.
	Compute(state arena.Offset, frames int, inputs, outputs arena.Offset)
	// SetParamValue writes parameter slot index.
	SetParamValue(state arena.Offset, index int, value float64)
	// ParamValue reads parameter slot index.
	ParamValue(state arena.Offset, index int) float64
	NumInputs() int
	NumOutputs() int
	SampleRate(state arena.Offset) float64
}

// Module produces kernels. Metadata is available before any memory exists so
// the host can plan the layout first.
type Module interface {
	Metadata() *Metadata
	// Instantiate binds the kernel to mem. mem must be at least as large as
	// the layout planned from Metadata.
	Instantiate(mem *arena.Memory) (Kernel, error)
}

// ConsistencyError reports kernel-reported metadata that disagrees with what
// the layout was planned from.
type ConsistencyError struct {
	Field string
	Want  int
	Got   int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("kernel %s mismatch: planned %d, kernel reports %d", e.Field, e.Want, e.Got)
}

// Verify checks the channel counts reported by k against meta.
// It runs once at setup, never per callback.
func Verify(meta *Metadata, k Kernel) error {
	if got := k.NumInputs(); got != meta.Inputs {
		return &ConsistencyError{Field: "inputs", Want: meta.Inputs, Got: got}
	}
	if got := k.NumOutputs(); got != meta.Outputs {
		return &ConsistencyError{Field: "outputs", Want: meta.Outputs, Got: got}
	}
	return nil
}
