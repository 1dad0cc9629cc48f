package voice

import (
	"github.com/justyntemme/kernelhost/pkg/arena"
	"github.com/justyntemme/kernelhost/pkg/framework/param"
	"github.com/justyntemme/kernelhost/pkg/kernel"
)

// Pool manages voice allocation for polyphonic synthesis. It is owned by the
// render thread and never allocates after NewPool.
type Pool struct {
	voices []Voice
	date   uint64
}

// NewPool creates one Free voice per state offset. The note controls are
// looked up in table by address suffix (/freq, /key, /gate, /gain, /vel and
// /velocity).
func NewPool(k kernel.Kernel, table *param.Table, states []arena.Offset, sampleRate float64) *Pool {
	ix := findIndices(table)
	p := &Pool{voices: make([]Voice, len(states))}
	for i, st := range states {
		p.voices[i] = Voice{
			State:   st,
			Note:    Free,
			kernel:  k,
			idx:     ix,
			release: int(sampleRate / 2),
		}
	}
	return p
}

// Len returns the number of voices.
func (p *Pool) Len() int {
	return len(p.voices)
}

// Voice returns voice i.
func (p *Pool) Voice(i int) *Voice {
	return &p.voices[i]
}

// Date returns the last allocation date handed out.
func (p *Pool) Date() uint64 {
	return p.date
}

func (p *Pool) allocate(i int) int {
	p.date++
	p.voices[i].Date = p.date
	return i
}

// FreeVoice returns the lowest-indexed Free voice. When none is free it
// steals the oldest Releasing voice, or the oldest voice of all when nothing
// is releasing, and tags it LegatoSteal. The chosen voice gets a new
// allocation date. NoVoice is only returned for an empty pool.
func (p *Pool) FreeVoice() int {
	for i := range p.voices {
		if p.voices[i].Note == Free {
			return p.allocate(i)
		}
	}

	oldestReleasing, oldestPlaying := NoVoice, NoVoice
	for i := range p.voices {
		v := &p.voices[i]
		if v.Note == Releasing {
			if oldestReleasing == NoVoice || v.Date < p.voices[oldestReleasing].Date {
				oldestReleasing = i
			}
		} else if oldestPlaying == NoVoice || v.Date < p.voices[oldestPlaying].Date {
			oldestPlaying = i
		}
	}

	stolen := oldestReleasing
	if stolen == NoVoice {
		stolen = oldestPlaying
	}
	if stolen == NoVoice {
		return NoVoice
	}
	p.voices[stolen].Note = LegatoSteal
	return p.allocate(stolen)
}

// KeyOn allocates a voice and starts pitch on it. A stolen voice receives the
// note as a pending legato note. It returns the voice index or NoVoice.
func (p *Pool) KeyOn(pitch, velocity int) int {
	i := p.FreeVoice()
	if i == NoVoice {
		return NoVoice
	}
	v := &p.voices[i]
	v.KeyOn(pitch, velocity, v.Note == LegatoSteal)
	return i
}

// PlayingVoice returns the oldest voice bound to pitch, or NoVoice.
func (p *Pool) PlayingVoice(pitch int) int {
	found := NoVoice
	for i := range p.voices {
		v := &p.voices[i]
		if !v.Playing(pitch) {
			continue
		}
		if found == NoVoice || v.Date < p.voices[found].Date {
			found = i
		}
	}
	return found
}

// KeyOff releases the oldest voice playing pitch. It returns false when no
// voice carries that pitch.
func (p *Pool) KeyOff(pitch int, hard bool) bool {
	i := p.PlayingVoice(pitch)
	if i == NoVoice {
		return false
	}
	p.voices[i].KeyOff(hard)
	return true
}

// AllNotesOff releases every voice that is not Free.
func (p *Pool) AllNotesOff(hard bool) {
	for i := range p.voices {
		v := &p.voices[i]
		if v.Note == Free || (v.Note == Releasing && !hard) {
			continue
		}
		v.KeyOff(hard)
	}
}

// Retire records the peak level measured over a slice of frames samples.
// A Releasing voice is freed once the level is below RetireLevel and its
// release countdown has run out. It reports whether the voice was freed.
func (p *Pool) Retire(i int, level float64, frames int) bool {
	v := &p.voices[i]
	v.Level = level
	if v.Note != Releasing {
		return false
	}
	v.ReleaseCountdown -= frames
	if level < RetireLevel && v.ReleaseCountdown <= 0 {
		v.Note = Free
		v.ReleaseCountdown = 0
		return true
	}
	return false
}

// Active returns the number of voices that are not Free.
func (p *Pool) Active() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].Note != Free {
			n++
		}
	}
	return n
}
