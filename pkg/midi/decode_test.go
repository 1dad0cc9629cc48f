package midi

import (
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Message
	}{
		{"note on", []byte{0x91, 60, 100}, Message{Type: EventTypeNoteOn, Channel: 1, Note: 60, Velocity: 100}},
		{"note off", []byte{0x80, 64, 40}, Message{Type: EventTypeNoteOff, Note: 64, Velocity: 40}},
		{"note on zero velocity", []byte{0x90, 67, 0}, Message{Type: EventTypeNoteOff, Note: 67}},
		{"control change", []byte{0xB2, 7, 127}, Message{Type: EventTypeControlChange, Channel: 2, Controller: 7, Value: 127}},
		{"pitch wheel center", []byte{0xE0, 0x00, 0x40}, Message{Type: EventTypePitchBend, Bend: 8192}},
		{"pitch wheel max", []byte{0xE0, 0x7F, 0x7F}, Message{Type: EventTypePitchBend, Bend: 16383}},
		{"program change", []byte{0xC3, 5}, Message{Type: EventTypeProgramChange, Channel: 3, Program: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode(tt.data)
			if !ok {
				t.Fatalf("Decode(% X) not ok", tt.data)
			}
			if got != tt.want {
				t.Errorf("Decode(% X) = %+v, want %+v", tt.data, got, tt.want)
			}
		})
	}
}

func TestDecodeIgnored(t *testing.T) {
	for _, data := range [][]byte{nil, {0xF8}, {0xA0, 60, 10}} {
		if m, ok := Decode(data); ok {
			t.Errorf("Decode(% X) = %+v, expected not ok", data, m)
		}
	}
}

func TestMessageBytes(t *testing.T) {
	msgs := []Message{
		{Type: EventTypeNoteOn, Channel: 4, Note: 72, Velocity: 90},
		{Type: EventTypeControlChange, Controller: CCAllNotesOff},
		{Type: EventTypePitchBend, Channel: 1, Bend: 12000},
	}

	for _, m := range msgs {
		got, ok := Decode(m.Bytes())
		if !ok || got != m {
			t.Errorf("Decode(%v.Bytes()) = %+v, %v", m.Event(), got, ok)
		}
	}
}

func TestDecodedEventString(t *testing.T) {
	tests := []struct {
		data []byte
		want string
	}{
		{[]byte{0x90, 69, 100}, "NoteOn{ch:0, note:69 (A4), vel:100}"},
		{[]byte{0x81, 61, 0}, "NoteOff{ch:1, note:61 (C#4), vel:0}"},
		{[]byte{0xB0, CCCutoff, 64}, "CC{ch:0, ctrl:74, val:64}"},
		{[]byte{0xE2, 0x00, 0x40}, "PitchBend{ch:2, val:8192 (+0.000)}"},
		{[]byte{0xC0, 3}, "ProgramChange{ch:0, prog:3}"},
	}

	for _, tt := range tests {
		m, ok := Decode(tt.data)
		if !ok {
			t.Fatalf("Decode(% X) failed", tt.data)
		}
		if got := m.Event().String(); got != tt.want {
			t.Errorf("Decode(% X).Event() = %s, want %s", tt.data, got, tt.want)
		}
	}
}
