package native

import (
	"math"
	"testing"

	"github.com/justyntemme/kernelhost/pkg/arena"
	"github.com/justyntemme/kernelhost/pkg/framework/param"
	"github.com/justyntemme/kernelhost/pkg/kernel"
	"github.com/justyntemme/kernelhost/pkg/midi"
)

const frames = 256

// region lays out one state block, a one-entry pointer table per direction
// and the channel storage behind them.
func region(t *testing.T, stateSize, channels, width int) (mem *arena.Memory, in, out arena.Offset) {
	t.Helper()
	in = arena.Offset(stateSize)
	out = in + arena.Offset(channels*arena.PointerSize)
	storage := int(out) + channels*arena.PointerSize
	mem, err := arena.New(storage+2*channels*frames*width, width)
	if err != nil {
		t.Fatalf("arena.New failed: %v", err)
	}
	for ch := 0; ch < channels; ch++ {
		mem.SetPointer(in, ch, arena.Offset(storage+ch*frames*width))
		mem.SetPointer(out, ch, arena.Offset(storage+(channels+ch)*frames*width))
	}
	return mem, in, out
}

func TestOscillatorMetadata(t *testing.T) {
	for _, double := range []bool{false, true} {
		m, err := NewOscillator(2, double)
		if err != nil {
			t.Fatalf("NewOscillator failed: %v", err)
		}
		meta := m.Metadata()
		want := 4
		if double {
			want = 8
		}
		if meta.SampleWidth() != want {
			t.Errorf("double=%v: sample width %d, want %d", double, meta.SampleWidth(), want)
		}
		if meta.Inputs != 0 || meta.Outputs != 2 || meta.Size != oscSlots*8 {
			t.Errorf("unexpected metadata %+v", meta)
		}

		addresses := map[string]int{}
		kernel.Walk(meta.UI, kernel.ItemFunc(func(it *kernel.Item) {
			addresses[it.Address] = it.Index
		}))
		if addresses["/synth/gate"] != oscGate || addresses["/synth/level"] != oscLevel {
			t.Errorf("unexpected addresses %v", addresses)
		}
	}

	if _, err := NewOscillator(0, false); err == nil {
		t.Error("Expected error for zero outputs")
	}
}

func TestOscillatorCompute(t *testing.T) {
	m, _ := NewOscillator(2, false)
	mem, in, out := region(t, m.Metadata().Size, 2, 4)
	k, err := m.Instantiate(mem)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if err := kernel.Verify(m.Metadata(), k); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	k.Init(0, 48000)
	if k.SampleRate(0) != 48000 {
		t.Errorf("SampleRate = %f", k.SampleRate(0))
	}

	k.Compute(0, frames, in, out)
	if k.ParamValue(0, oscLevel) != 0 {
		t.Error("Expected silence with the gate closed")
	}

	k.SetParamValue(0, oscGate, 1)
	k.SetParamValue(0, oscGain, 1)
	k.SetParamValue(0, oscVolume, 1)
	for i := 0; i < 20; i++ {
		k.Compute(0, frames, in, out)
	}
	level := k.ParamValue(0, oscLevel)
	if level < 0.9 || level > 1 {
		t.Errorf("level = %f, want close to 1", level)
	}
	for i := 0; i < frames; i++ {
		a, b := mem.Sample(mem.Pointer(out, 0), i), mem.Sample(mem.Pointer(out, 1), i)
		if a != b {
			t.Fatalf("channels differ at %d: %f != %f", i, a, b)
		}
	}

	k.SetParamValue(0, oscGate, 0)
	for i := 0; i < 100; i++ {
		k.Compute(0, frames, in, out)
	}
	if level := k.ParamValue(0, oscLevel); level > 0.0005 {
		t.Errorf("level after release = %f", level)
	}

	k.SetParamValue(0, 99, 1)
	if k.ParamValue(0, 99) != 0 {
		t.Error("out of range slot must read 0")
	}
}

func TestFilterInPlace(t *testing.T) {
	m, err := NewFilter(1, true)
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}
	mem, table, _ := region(t, m.Metadata().Size, 1, 8)
	k, _ := m.Instantiate(mem)
	k.Init(0, 44100)
	k.SetParamValue(0, filterCutoff, 100)

	buf := mem.Pointer(table, 0)
	for i := 0; i < frames; i++ {
		v := 1.0
		if i%2 == 1 {
			v = -1
		}
		mem.SetSample(buf, i, v)
	}
	k.Compute(0, frames, table, table)

	peak := 0.0
	for i := frames / 2; i < frames; i++ {
		peak = math.Max(peak, math.Abs(mem.Sample(buf, i)))
	}
	if peak > 0.1 {
		t.Errorf("nyquist tone not attenuated: peak %f", peak)
	}
	if k.ParamValue(0, filterPeak) <= 0 {
		t.Error("peak bargraph not updated")
	}
	if k.NumInputs() != 1 || k.NumOutputs() != 1 {
		t.Errorf("channels = %d/%d", k.NumInputs(), k.NumOutputs())
	}
}

func TestControllerBindings(t *testing.T) {
	osc, err := NewOscillator(1, false)
	if err != nil {
		t.Fatalf("NewOscillator failed: %v", err)
	}
	filter, err := NewFilter(1, false)
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}

	tests := []struct {
		meta    *kernel.Metadata
		ctrl    uint8
		address string
	}{
		{osc.Metadata(), midi.CCVolume, "/synth/volume"},
		{filter.Metadata(), midi.CCCutoff, "/tone/cutoff"},
	}
	for _, tt := range tests {
		table, err := param.Parse(tt.meta.UI)
		if err != nil {
			t.Fatalf("Parse(%s) failed: %v", tt.meta.Name, err)
		}
		bound := table.CtrlChange[tt.ctrl]
		if len(bound) != 1 || bound[0].Address != tt.address {
			t.Errorf("%s: ctrl %d bound to %+v, want %s", tt.meta.Name, tt.ctrl, bound, tt.address)
		}
	}
}
