// Package event schedules time-stamped note and parameter events for the
// render thread.
package event

import "fmt"

// Type identifies what an Event does when it is applied.
type Type uint8

const (
	NoteOn Type = iota
	NoteOff
	ParameterChange
	// MIDI carries a raw controller or pitch-wheel message for the registry.
	MIDI
	// AllNotesOff releases every sounding voice; Value > 0 cuts them hard.
	AllNotesOff
)

func (t Type) String() string {
	switch t {
	case NoteOn:
		return "NOTE_ON"
	case NoteOff:
		return "NOTE_OFF"
	case ParameterChange:
		return "PARAMETER_CHANGE"
	case MIDI:
		return "MIDI"
	case AllNotesOff:
		return "ALL_NOTES_OFF"
	default:
		return "UNKNOWN"
	}
}

// Event is one scheduled action. Time is in seconds on the render clock.
// Offset is filled in by Drain with the sample position inside the buffer.
type Event struct {
	Time     float64
	Type     Type
	Pitch    int
	Velocity int
	Address  string
	Value    float64
	Data     [3]byte
	Size     int
	Offset   int
}

func (e Event) String() string {
	switch e.Type {
	case NoteOn:
		return fmt.Sprintf("%s{t:%.4f, pitch:%d, vel:%d}", e.Type, e.Time, e.Pitch, e.Velocity)
	case NoteOff:
		return fmt.Sprintf("%s{t:%.4f, pitch:%d}", e.Type, e.Time, e.Pitch)
	case ParameterChange:
		return fmt.Sprintf("%s{t:%.4f, %s=%g}", e.Type, e.Time, e.Address, e.Value)
	case MIDI:
		return fmt.Sprintf("%s{t:%.4f, % X}", e.Type, e.Time, e.Bytes())
	default:
		return fmt.Sprintf("%s{t:%.4f}", e.Type, e.Time)
	}
}

// NewNoteOn builds a NOTE_ON event.
func NewNoteOn(time float64, pitch, velocity int) Event {
	return Event{Time: time, Type: NoteOn, Pitch: pitch, Velocity: velocity}
}

// NewNoteOff builds a NOTE_OFF event.
func NewNoteOff(time float64, pitch int) Event {
	return Event{Time: time, Type: NoteOff, Pitch: pitch}
}

// NewParameterChange builds a PARAMETER_CHANGE event.
func NewParameterChange(time float64, address string, value float64) Event {
	return Event{Time: time, Type: ParameterChange, Address: address, Value: value}
}

// NewMIDI builds an event carrying up to three raw MIDI bytes.
func NewMIDI(time float64, data []byte) Event {
	e := Event{Time: time, Type: MIDI}
	e.Size = copy(e.Data[:], data)
	return e
}

// Bytes returns the raw MIDI bytes of a MIDI event.
func (e *Event) Bytes() []byte {
	return e.Data[:e.Size]
}
