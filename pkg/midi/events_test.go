package midi

import (
	"math"
	"testing"
)

func TestNoteOnEvent(t *testing.T) {
	event := NoteOnEvent{
		BaseEvent:  BaseEvent{EventChannel: 0},
		NoteNumber: 60, // Middle C
		Velocity:   64,
	}

	if event.Type() != EventTypeNoteOn {
		t.Errorf("Expected type %v, got %v", EventTypeNoteOn, event.Type())
	}

	expected := "NoteOn{ch:0, note:60 (C4), vel:64}"
	if event.String() != expected {
		t.Errorf("Expected string %s, got %s", expected, event.String())
	}
}

func TestPitchBendNormalized(t *testing.T) {
	tests := []struct {
		value      uint16
		normalized float64
	}{
		{8192, 0.0},
		{0, -1.0},
		{16383, 0.999878},
	}

	for _, tt := range tests {
		event := PitchBendEvent{Value: tt.value}
		if math.Abs(event.NormalizedValue()-tt.normalized) > 0.0001 {
			t.Errorf("Value %d: expected %f, got %f", tt.value, tt.normalized, event.NormalizedValue())
		}
	}
}

func TestNoteToFrequency(t *testing.T) {
	tests := []struct {
		note     int
		expected float64
	}{
		{69, 440.0},
		{57, 220.0},
		{81, 880.0},
		{60, 261.6256},
	}

	for _, tt := range tests {
		freq := NoteToFrequency(tt.note, 0)
		if math.Abs(freq-tt.expected) > 0.001 {
			t.Errorf("Note %d: expected %f Hz, got %f Hz", tt.note, tt.expected, freq)
		}
	}

	if freq := NoteToFrequency(69, 442); freq != 442 {
		t.Errorf("A4 with custom tuning: got %f", freq)
	}
}

func TestNoteNumberToName(t *testing.T) {
	tests := []struct {
		note uint8
		name string
	}{
		{60, "C4"},
		{69, "A4"},
		{61, "C#4"},
		{0, "C-1"},
	}

	for _, tt := range tests {
		if name := NoteNumberToName(tt.note); name != tt.name {
			t.Errorf("Note %d: expected %s, got %s", tt.note, tt.name, name)
		}
	}
}
