package layout

import (
	"testing"

	"github.com/justyntemme/kernelhost/pkg/arena"
)

func TestPlanMono(t *testing.T) {
	l, err := PlanMono(Params{Inputs: 2, Outputs: 2, BufferSize: 128, SampleWidth: 4, StateSize: 60})
	if err != nil {
		t.Fatalf("PlanMono failed: %v", err)
	}

	if l.State != 0 {
		t.Errorf("state offset = %d, want 0", l.State)
	}
	if l.Inputs.Offset != 64 {
		t.Errorf("input table = %d, want 64 (state aligned)", l.Inputs.Offset)
	}
	if l.Outputs.Offset != l.Inputs.Offset+8 {
		t.Errorf("output table = %d, want %d", l.Outputs.Offset, l.Inputs.Offset+8)
	}
	if l.Inputs.Storage < l.Outputs.Offset+8 {
		t.Errorf("input storage %d overlaps output table", l.Inputs.Storage)
	}
	if l.Outputs.Storage != l.Inputs.Storage+2*128*4 {
		t.Errorf("output storage = %d, want %d", l.Outputs.Storage, l.Inputs.Storage+2*128*4)
	}
	if l.Size != int(l.Outputs.Storage)+2*128*4 {
		t.Errorf("size = %d", l.Size)
	}
	if a, b, found := Overlap(l.Regions()); found {
		t.Errorf("regions overlap: %+v and %+v", a, b)
	}
}

func TestPlanMonoNoInputs(t *testing.T) {
	l, err := PlanMono(Params{Inputs: 0, Outputs: 1, BufferSize: 64, SampleWidth: 8, StateSize: 16})
	if err != nil {
		t.Fatal(err)
	}
	if l.Inputs.Channels != 0 {
		t.Errorf("input channels = %d", l.Inputs.Channels)
	}
	if a, b, found := Overlap(l.Regions()); found {
		t.Errorf("regions overlap: %+v and %+v", a, b)
	}
}

func TestPlanPoly(t *testing.T) {
	p := Params{
		Inputs: 0, Outputs: 2, BufferSize: 128, SampleWidth: 8, StateSize: 72,
		Voices: 4, Effect: true, EffectStateSize: 48,
	}
	l, err := PlanPoly(p)
	if err != nil {
		t.Fatalf("PlanPoly failed: %v", err)
	}

	if len(l.Voices) != 4 {
		t.Fatalf("got %d voice offsets, want 4", len(l.Voices))
	}
	for i := 1; i < len(l.Voices); i++ {
		if l.Voices[i]-l.Voices[i-1] != 72 {
			t.Errorf("voice %d stride = %d, want 72", i, l.Voices[i]-l.Voices[i-1])
		}
	}
	if l.Effect != l.Voices[3]+72 {
		t.Errorf("effect offset = %d, want directly after last voice", l.Effect)
	}

	order := []arena.Offset{
		l.Inputs.Offset, l.Outputs.Offset, l.Mix.Offset, l.Half.Offset,
		l.Outputs.Storage, l.Mix.Storage, l.Half.Storage,
	}
	for i := 1; i < len(order); i++ {
		if order[i] < order[i-1] {
			t.Errorf("region %d at %d precedes region %d at %d", i, order[i], i-1, order[i-1])
		}
	}
	if l.Outputs.Offset < l.Effect+48 {
		t.Errorf("tables start inside the effect state")
	}
	if a, b, found := Overlap(l.Regions()); found {
		t.Errorf("regions overlap: %+v and %+v", a, b)
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	p := Params{Inputs: 1, Outputs: 2, BufferSize: 256, SampleWidth: 4, StateSize: 100, Voices: 8}
	a, _ := PlanPoly(p)
	b, _ := PlanPoly(p)
	if a.Size != b.Size || a.Half.Storage != b.Half.Storage {
		t.Error("identical params produced different layouts")
	}
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"zero buffer", Params{Outputs: 1, SampleWidth: 4}},
		{"bad width", Params{Outputs: 1, BufferSize: 64, SampleWidth: 2}},
		{"negative channels", Params{Inputs: -1, BufferSize: 64, SampleWidth: 4}},
		{"negative voices", Params{Outputs: 1, BufferSize: 64, SampleWidth: 4, Voices: -1}},
		{"beyond pointer range", Params{Outputs: 1, BufferSize: 64, SampleWidth: 4, StateSize: 1 << 30, Voices: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PlanPoly(tt.p); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := PlanMono(Params{Outputs: 2, BufferSize: 1 << 28, SampleWidth: 8}); err == nil {
		t.Error("expected error for a mono region beyond pointer range")
	}
}

func TestShiftAndRestore(t *testing.T) {
	l, err := PlanPoly(Params{Inputs: 1, Outputs: 2, BufferSize: 32, SampleWidth: 4, StateSize: 8, Voices: 1})
	if err != nil {
		t.Fatal(err)
	}
	mem, _ := arena.New(l.Size, 4)
	l.WriteTables(mem)

	for ch := 0; ch < 2; ch++ {
		if got, want := mem.Pointer(l.Outputs.Offset, ch), l.Channel(l.Outputs, ch); got != want {
			t.Errorf("output ch %d = %d, want %d", ch, got, want)
		}
	}

	l.Shift(mem, 10)
	l.Shift(mem, 20)
	for ch := 0; ch < 2; ch++ {
		if got, want := mem.Pointer(l.Mix.Offset, ch), l.Channel(l.Mix, ch)+20*4; got != want {
			t.Errorf("shifted mix ch %d = %d, want %d", ch, got, want)
		}
		if got, want := mem.Pointer(l.Half.Offset, ch), l.Channel(l.Half, ch); got != want {
			t.Errorf("half ch %d moved to %d", ch, got)
		}
	}
	if got, want := mem.Pointer(l.Inputs.Offset, 0), l.Channel(l.Inputs, 0)+20*4; got != want {
		t.Errorf("shifted input = %d, want %d", got, want)
	}

	l.Shift(mem, 0)
	for ch := 0; ch < 2; ch++ {
		if got, want := mem.Pointer(l.Outputs.Offset, ch), l.Channel(l.Outputs, ch); got != want {
			t.Errorf("restored output ch %d = %d, want %d", ch, got, want)
		}
	}
}

func TestOverlapDetectsCollision(t *testing.T) {
	regions := []Region{{"a", 0, 16}, {"b", 8, 16}, {"empty", 4, 0}}
	if _, _, found := Overlap(regions); !found {
		t.Error("expected overlap")
	}
}
