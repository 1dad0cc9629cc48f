// Package capture records rendered audio and writes it as WAV.
package capture

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// BitDepth of the written PCM.
const BitDepth = 16

// Recorder collects interleaved float samples into a buffer sized up front.
// Write never allocates, so it may run inside an audio pull callback; frames
// beyond the capacity are counted and discarded.
type Recorder struct {
	sampleRate int
	channels   int
	samples    []int
	discarded  int
}

// NewRecorder creates a recorder holding up to maxFrames frames.
func NewRecorder(sampleRate, channels, maxFrames int) (*Recorder, error) {
	switch {
	case sampleRate <= 0:
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	case channels <= 0:
		return nil, fmt.Errorf("channel count must be positive, got %d", channels)
	case maxFrames < 0:
		return nil, fmt.Errorf("negative frame capacity %d", maxFrames)
	}
	return &Recorder{
		sampleRate: sampleRate,
		channels:   channels,
		samples:    make([]int, 0, maxFrames*channels),
	}, nil
}

// Write appends interleaved samples, clipped to [-1, 1].
func (r *Recorder) Write(block []float32) {
	room := cap(r.samples) - len(r.samples)
	if len(block) > room {
		r.discarded += (len(block) - room) / r.channels
		block = block[:room]
	}
	for _, s := range block {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		r.samples = append(r.samples, int(s*32767))
	}
}

// Frames returns the number of recorded frames.
func (r *Recorder) Frames() int {
	return len(r.samples) / r.channels
}

// Discarded returns the number of frames dropped because the buffer was full.
func (r *Recorder) Discarded() int {
	return r.discarded
}

// Encode writes the recording as a WAV stream.
func (r *Recorder) Encode(w io.WriteSeeker) error {
	enc := wav.NewEncoder(w, r.sampleRate, BitDepth, r.channels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: r.channels,
			SampleRate:  r.sampleRate,
		},
		Data:           r.samples,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish encoding: %w", err)
	}
	return nil
}

// Save writes the recording to path.
func (r *Recorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := r.Encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
