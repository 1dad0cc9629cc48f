// Package layout plans where kernel state, pointer tables and channel buffers
// live inside one shared memory region.
//
// Offsets are a pure function of the channel counts, buffer size, sample width
// and voice count. They are computed once at setup; the compute path only
// re-derives pointer-table entries from the stored base offsets.
package layout

import (
	"fmt"
	"math"
	"sort"

	"github.com/justyntemme/kernelhost/pkg/arena"
)

// Alignment of every region start, in bytes.
const Alignment = 8

// Params describes what needs to fit into the region.
type Params struct {
	Inputs      int
	Outputs     int
	BufferSize  int
	SampleWidth int
	StateSize   int

	// Poly only.
	Voices          int
	Effect          bool
	EffectStateSize int
}

func (p Params) validate(poly bool) error {
	switch {
	case p.Inputs < 0 || p.Outputs < 0:
		return fmt.Errorf("negative channel count (%d in, %d out)", p.Inputs, p.Outputs)
	case p.BufferSize <= 0:
		return fmt.Errorf("buffer size must be positive, got %d", p.BufferSize)
	case p.SampleWidth != 4 && p.SampleWidth != 8:
		return fmt.Errorf("sample width must be 4 or 8, got %d", p.SampleWidth)
	case p.StateSize < 0 || p.EffectStateSize < 0:
		return fmt.Errorf("negative state size")
	case poly && p.Voices < 0:
		return fmt.Errorf("negative voice count %d", p.Voices)
	}
	return nil
}

// Region is a named byte range.
type Region struct {
	Name  string
	Start arena.Offset
	Size  int
}

// End returns the first byte after the region.
func (r Region) End() arena.Offset {
	return r.Start + arena.Offset(r.Size)
}

// Table is a pointer table together with the channel storage it points into.
type Table struct {
	Offset   arena.Offset
	Storage  arena.Offset
	Channels int
}

func align(n int) int {
	return (n + Alignment - 1) / Alignment * Alignment
}

type planner struct {
	next    int
	regions []Region
}

func (pl *planner) take(name string, size int) arena.Offset {
	start := arena.Offset(pl.next)
	pl.regions = append(pl.regions, Region{Name: name, Start: start, Size: size})
	pl.next = align(pl.next + size)
	return start
}

func (pl *planner) table(name string, channels int) Table {
	return Table{Offset: pl.take(name+" pointers", channels*arena.PointerSize), Channels: channels}
}

// check rejects regions whose offsets do not fit a pointer-table entry.
func (pl *planner) check() error {
	if pl.next > math.MaxInt32 {
		return fmt.Errorf("region of %d bytes exceeds the %d bytes addressable by pointer tables", pl.next, math.MaxInt32)
	}
	return nil
}

func (pl *planner) storage(name string, t *Table, bufferSize, width int) {
	t.Storage = pl.take(name+" samples", t.Channels*bufferSize*width)
}

// Mono is the layout of a single kernel instance.
type Mono struct {
	Params  Params
	State   arena.Offset
	Inputs  Table
	Outputs Table
	Size    int
	regions []Region
}

// PlanMono lays out state, input/output pointer tables, then raw input and
// output samples.
func PlanMono(p Params) (*Mono, error) {
	if err := p.validate(false); err != nil {
		return nil, fmt.Errorf("invalid mono layout: %w", err)
	}
	pl := &planner{}
	l := &Mono{Params: p}
	l.State = pl.take("state", p.StateSize)
	l.Inputs = pl.table("input", p.Inputs)
	l.Outputs = pl.table("output", p.Outputs)
	pl.storage("input", &l.Inputs, p.BufferSize, p.SampleWidth)
	pl.storage("output", &l.Outputs, p.BufferSize, p.SampleWidth)
	if err := pl.check(); err != nil {
		return nil, fmt.Errorf("invalid mono layout: %w", err)
	}
	l.Size = pl.next
	l.regions = pl.regions
	return l, nil
}

// Regions returns every planned region in layout order.
func (l *Mono) Regions() []Region {
	return l.regions
}

// Channel returns the start of channel ch inside t's storage.
func (l *Mono) Channel(t Table, ch int) arena.Offset {
	return channel(l.Params, t, ch)
}

// WriteTables stores the base channel offsets into every pointer table.
func (l *Mono) WriteTables(mem *arena.Memory) {
	writeTable(mem, l.Params, l.Inputs, 0)
	writeTable(mem, l.Params, l.Outputs, 0)
}

// Poly is the layout of N voice instances plus an optional effect and the
// mixing buffers.
type Poly struct {
	Params Params
	Voices []arena.Offset
	// Effect is only meaningful when Params.Effect is set.
	Effect  arena.Offset
	Inputs  Table
	Outputs Table
	Mix     Table
	Half    Table
	Size    int
	regions []Region
}

// PlanPoly lays out the voice states, the effect state, the input, output,
// mixing and half-mixing pointer tables, then their raw samples in the same
// order.
func PlanPoly(p Params) (*Poly, error) {
	if err := p.validate(true); err != nil {
		return nil, fmt.Errorf("invalid poly layout: %w", err)
	}
	pl := &planner{}
	l := &Poly{Params: p, Voices: make([]arena.Offset, p.Voices)}
	for i := range l.Voices {
		l.Voices[i] = pl.take(fmt.Sprintf("voice %d state", i), p.StateSize)
	}
	if p.Effect {
		l.Effect = pl.take("effect state", p.EffectStateSize)
	}
	l.Inputs = pl.table("input", p.Inputs)
	l.Outputs = pl.table("output", p.Outputs)
	l.Mix = pl.table("mixing", p.Outputs)
	l.Half = pl.table("half mixing", p.Outputs)
	pl.storage("input", &l.Inputs, p.BufferSize, p.SampleWidth)
	pl.storage("output", &l.Outputs, p.BufferSize, p.SampleWidth)
	pl.storage("mixing", &l.Mix, p.BufferSize, p.SampleWidth)
	pl.storage("half mixing", &l.Half, p.BufferSize, p.SampleWidth)
	if err := pl.check(); err != nil {
		return nil, fmt.Errorf("invalid poly layout: %w", err)
	}
	l.Size = pl.next
	l.regions = pl.regions
	return l, nil
}

// Regions returns every planned region in layout order.
func (l *Poly) Regions() []Region {
	return l.regions
}

// Channel returns the start of channel ch inside t's storage.
func (l *Poly) Channel(t Table, ch int) arena.Offset {
	return channel(l.Params, t, ch)
}

// WriteTables stores the base channel offsets into every pointer table.
func (l *Poly) WriteTables(mem *arena.Memory) {
	l.Shift(mem, 0)
	writeTable(mem, l.Params, l.Half, 0)
}

// Shift re-derives the input, output and mixing tables so that channel views
// start start samples into their storage. Shift(mem, 0) restores them.
// The half-mixing table is never shifted.
func (l *Poly) Shift(mem *arena.Memory, start int) {
	writeTable(mem, l.Params, l.Inputs, start)
	writeTable(mem, l.Params, l.Outputs, start)
	writeTable(mem, l.Params, l.Mix, start)
}

func channel(p Params, t Table, ch int) arena.Offset {
	return t.Storage + arena.Offset(ch*p.BufferSize*p.SampleWidth)
}

func writeTable(mem *arena.Memory, p Params, t Table, start int) {
	shift := arena.Offset(start * p.SampleWidth)
	for ch := 0; ch < t.Channels; ch++ {
		mem.SetPointer(t.Offset, ch, channel(p, t, ch)+shift)
	}
}

// Overlap returns the first pair of overlapping non-empty regions.
func Overlap(regions []Region) (a, b Region, found bool) {
	sorted := make([]Region, 0, len(regions))
	for _, r := range regions {
		if r.Size > 0 {
			sorted = append(sorted, r)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End() {
			return sorted[i-1], sorted[i], true
		}
	}
	return Region{}, Region{}, false
}
