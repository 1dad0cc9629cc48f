package instrument

import (
	"fmt"
	"testing"

	"github.com/justyntemme/kernelhost/pkg/arena"
	"github.com/justyntemme/kernelhost/pkg/kernel"
)

const fakeJSON = `{
	"name": "fake",
	"size": 64,
	"inputs": 0,
	"outputs": %d,
	"compile_options": "-single",
	"ui": [{"type": "vgroup", "label": "v", "items": [
		{"type": "hslider", "label": "freq", "address": "/v/freq", "index": 0, "min": 20, "max": 20000},
		{"type": "button", "label": "gate", "address": "/v/gate", "index": 1},
		{"type": "hslider", "label": "gain", "address": "/v/gain", "index": 2, "min": 0, "max": 1},
		{"type": "hbargraph", "label": "level", "address": "/v/level", "index": 3, "min": 0, "max": 1}
	]}]
}`

type call struct {
	state  arena.Offset
	frames int
}

// fakeModule builds kernels that output gate*gain on every channel and record
// each compute call.
type fakeModule struct {
	meta     *kernel.Metadata
	reported int
	calls    []call
}

func newFakeModule(t *testing.T, outputs int) *fakeModule {
	t.Helper()
	meta, err := kernel.ParseMetadata([]byte(fmt.Sprintf(fakeJSON, outputs)))
	if err != nil {
		t.Fatalf("failed to parse fake metadata: %v", err)
	}
	return &fakeModule{meta: meta, reported: outputs}
}

func (m *fakeModule) Metadata() *kernel.Metadata { return m.meta }

func (m *fakeModule) Instantiate(mem *arena.Memory) (kernel.Kernel, error) {
	return &fakeKernel{mem: mem, module: m}, nil
}

// callsFor returns the frame counts computed for state.
func (m *fakeModule) callsFor(state arena.Offset) []int {
	var out []int
	for _, c := range m.calls {
		if c.state == state {
			out = append(out, c.frames)
		}
	}
	return out
}

type fakeKernel struct {
	mem    *arena.Memory
	module *fakeModule
}

func (k *fakeKernel) Init(state arena.Offset, sampleRate float64) {
	k.mem.Zero(state, 64)
	k.mem.SetFloat64(state+56, sampleRate)
}

func (k *fakeKernel) Compute(state arena.Offset, frames int, _, outputs arena.Offset) {
	k.module.calls = append(k.module.calls, call{state: state, frames: frames})
	v := k.ParamValue(state, 1) * k.ParamValue(state, 2)
	for ch := 0; ch < k.module.reported; ch++ {
		buf := k.mem.Pointer(outputs, ch)
		for i := 0; i < frames; i++ {
			k.mem.SetSample(buf, i, v)
		}
	}
	k.SetParamValue(state, 3, v)
}

func (k *fakeKernel) SetParamValue(state arena.Offset, index int, value float64) {
	k.mem.SetFloat64(state+arena.Offset(index*8), value)
}

func (k *fakeKernel) ParamValue(state arena.Offset, index int) float64 {
	return k.mem.Float64(state + arena.Offset(index*8))
}

func (k *fakeKernel) NumInputs() int                        { return 0 }
func (k *fakeKernel) NumOutputs() int                       { return k.module.reported }
func (k *fakeKernel) SampleRate(state arena.Offset) float64 { return k.mem.Float64(state + 56) }

func buffers(channels, frames int) [][]float32 {
	out := make([][]float32, channels)
	for i := range out {
		out[i] = make([]float32, frames)
	}
	return out
}
