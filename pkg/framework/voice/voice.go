// Package voice binds kernel instances to notes and decides which instance
// plays the next note when all of them are busy.
package voice

import (
	"github.com/justyntemme/kernelhost/pkg/arena"
	"github.com/justyntemme/kernelhost/pkg/framework/param"
	"github.com/justyntemme/kernelhost/pkg/kernel"
	"github.com/justyntemme/kernelhost/pkg/midi"
)

// Note values below zero are states rather than pitches.
const (
	// Free voices are silent and available.
	Free = -1
	// Releasing voices have been gated off and are finishing their tail.
	Releasing = -2
	// LegatoSteal voices were stolen and crossfade into a pending note.
	LegatoSteal = -3
)

// NoVoice is returned when no voice can be found.
const NoVoice = -1

// RetireLevel is the peak level under which a releasing voice may be freed.
const RetireLevel = 0.0005

// TuningA4 is the reference pitch used for /freq controls.
const TuningA4 = 440.0

// indices holds the kernel parameter slots driven by notes. They are shared
// by every voice because all voices use the same control layout.
type indices struct {
	freq []int
	key  []int
	gate []int
	gain []int
	vel  []int
}

func findIndices(table *param.Table) *indices {
	ix := &indices{}
	collect := func(dst *[]int, suffix string) {
		for _, c := range table.Find(suffix) {
			*dst = append(*dst, c.Index)
		}
	}
	collect(&ix.freq, "/freq")
	collect(&ix.key, "/key")
	collect(&ix.gate, "/gate")
	collect(&ix.gain, "/gain")
	collect(&ix.vel, "/vel")
	collect(&ix.vel, "/velocity")
	return ix
}

// Voice is one kernel instance dedicated to a single sounding note.
type Voice struct {
	State            arena.Offset
	Note             int
	Date             uint64
	ReleaseCountdown int
	Level            float64

	kernel  kernel.Kernel
	idx     *indices
	release int

	pending         bool
	pendingPitch    int
	pendingVelocity int
}

// Pending returns the note a LegatoSteal voice will switch to.
func (v *Voice) Pending() (pitch, velocity int, ok bool) {
	return v.pendingPitch, v.pendingVelocity, v.pending
}

// Playing reports whether the voice is bound to pitch, counting the pending
// note of a stolen voice.
func (v *Voice) Playing(pitch int) bool {
	if v.Note == pitch {
		return true
	}
	return v.Note == LegatoSteal && v.pending && v.pendingPitch == pitch
}

func (v *Voice) set(slots []int, value float64) {
	for _, i := range slots {
		v.kernel.SetParamValue(v.State, i, value)
	}
}

// KeyOn starts pitch. With legato set the note is only stored and applied
// later by ApplyPending, in the middle of a crossfade.
func (v *Voice) KeyOn(pitch, velocity int, legato bool) {
	if legato {
		v.pending = true
		v.pendingPitch = pitch
		v.pendingVelocity = velocity
		return
	}
	v.set(v.idx.freq, midi.NoteToFrequency(pitch, TuningA4))
	v.set(v.idx.key, float64(pitch))
	v.set(v.idx.gate, 1)
	v.set(v.idx.gain, float64(velocity)/127)
	v.set(v.idx.vel, float64(velocity))
	v.Note = pitch
	v.ReleaseCountdown = 0
	v.pending = false
}

// ApplyPending starts the stored legato note. It returns false when there is
// nothing pending.
func (v *Voice) ApplyPending() bool {
	if !v.pending {
		return false
	}
	v.KeyOn(v.pendingPitch, v.pendingVelocity, false)
	return true
}

// KeyOff closes the gate. A hard key off frees the voice at once; otherwise
// it starts releasing with a countdown of half a second.
func (v *Voice) KeyOff(hard bool) {
	v.set(v.idx.gate, 0)
	v.pending = false
	if hard {
		v.Note = Free
		v.ReleaseCountdown = 0
		return
	}
	v.Note = Releasing
	v.ReleaseCountdown = v.release
}

// GateOff closes the gate without changing the voice state.
func (v *Voice) GateOff() {
	v.set(v.idx.gate, 0)
}
