// Package midi decodes MIDI byte triplets into note and controller events.
package midi

import (
	"fmt"
	"math"
)

type EventType uint8

const (
	EventTypeNoteOff EventType = iota
	EventTypeNoteOn
	EventTypeControlChange
	EventTypeProgramChange
	EventTypePitchBend
)

type Event interface {
	Type() EventType
	Channel() uint8
	String() string
}

type BaseEvent struct {
	EventChannel uint8
}

func (e BaseEvent) Channel() uint8 {
	return e.EventChannel
}

type NoteOnEvent struct {
	BaseEvent
	NoteNumber uint8
	Velocity   uint8
}

func (e NoteOnEvent) Type() EventType {
	return EventTypeNoteOn
}

func (e NoteOnEvent) String() string {
	return fmt.Sprintf("NoteOn{ch:%d, note:%d (%s), vel:%d}", e.EventChannel, e.NoteNumber, NoteNumberToName(e.NoteNumber), e.Velocity)
}

type NoteOffEvent struct {
	BaseEvent
	NoteNumber uint8
	Velocity   uint8
}

func (e NoteOffEvent) Type() EventType {
	return EventTypeNoteOff
}

func (e NoteOffEvent) String() string {
	return fmt.Sprintf("NoteOff{ch:%d, note:%d (%s), vel:%d}", e.EventChannel, e.NoteNumber, NoteNumberToName(e.NoteNumber), e.Velocity)
}

type ControlChangeEvent struct {
	BaseEvent
	Controller uint8
	Value      uint8
}

func (e ControlChangeEvent) Type() EventType {
	return EventTypeControlChange
}

func (e ControlChangeEvent) String() string {
	return fmt.Sprintf("CC{ch:%d, ctrl:%d, val:%d}", e.EventChannel, e.Controller, e.Value)
}

// Controller numbers the host and its kernels use.
const (
	CCVolume      uint8 = 7
	CCCutoff      uint8 = 74
	CCAllSoundOff uint8 = 120
	CCAllNotesOff uint8 = 123
)

type ProgramChangeEvent struct {
	BaseEvent
	Program uint8
}

func (e ProgramChangeEvent) Type() EventType {
	return EventTypeProgramChange
}

func (e ProgramChangeEvent) String() string {
	return fmt.Sprintf("ProgramChange{ch:%d, prog:%d}", e.EventChannel, e.Program)
}

type PitchBendEvent struct {
	BaseEvent
	Value uint16 // 0 to 16383, 8192 is center
}

func (e PitchBendEvent) Type() EventType {
	return EventTypePitchBend
}

func (e PitchBendEvent) String() string {
	return fmt.Sprintf("PitchBend{ch:%d, val:%d (%+.3f)}", e.EventChannel, e.Value, e.NormalizedValue())
}

// NormalizedValue maps the bend onto [-1, 1).
func (e PitchBendEvent) NormalizedValue() float64 {
	return (float64(e.Value) - 8192.0) / 8192.0
}

// NoteToFrequency converts a MIDI note number to Hz. tuningA4 of 0 means 440.
func NoteToFrequency(note int, tuningA4 float64) float64 {
	if tuningA4 == 0 {
		tuningA4 = 440.0
	}
	return tuningA4 * math.Pow(2, (float64(note)-69.0)/12.0)
}

// NoteNumberToName returns the note name with its octave, C4 being 60.
func NoteNumberToName(note uint8) string {
	noteNames := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	octave := int(note/12) - 1
	return fmt.Sprintf("%s%d", noteNames[note%12], octave)
}
