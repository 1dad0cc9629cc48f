package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Message is a decoded channel message. It is a plain value so decoding on the
// render thread does not allocate.
type Message struct {
	Type     EventType
	Channel  uint8
	Note     uint8
	Velocity uint8
	// Controller, Value: control change. Program: program change.
	Controller uint8
	Value      uint8
	Program    uint8
	// Bend is the absolute 14-bit pitch-wheel value, data2*128+data1.
	Bend uint16
}

// Decode interprets a status/data1/data2 triplet. A note-on with velocity 0 is
// reported as a note-off. ok is false for messages the host does not handle.
func Decode(data []byte) (m Message, ok bool) {
	msg := gomidi.Message(data)
	var rel int16
	switch {
	case msg.GetNoteStart(&m.Channel, &m.Note, &m.Velocity):
		m.Type = EventTypeNoteOn
	case msg.GetNoteOff(&m.Channel, &m.Note, &m.Velocity):
		m.Type = EventTypeNoteOff
	case msg.GetNoteEnd(&m.Channel, &m.Note):
		m.Type = EventTypeNoteOff
		m.Velocity = 0
	case msg.GetControlChange(&m.Channel, &m.Controller, &m.Value):
		m.Type = EventTypeControlChange
	case msg.GetPitchBend(&m.Channel, &rel, &m.Bend):
		m.Type = EventTypePitchBend
	case msg.GetProgramChange(&m.Channel, &m.Program):
		m.Type = EventTypeProgramChange
	default:
		return Message{}, false
	}
	return m, true
}

// Event converts the message into its event value.
func (m Message) Event() Event {
	base := BaseEvent{EventChannel: m.Channel}
	switch m.Type {
	case EventTypeNoteOn:
		return NoteOnEvent{BaseEvent: base, NoteNumber: m.Note, Velocity: m.Velocity}
	case EventTypeNoteOff:
		return NoteOffEvent{BaseEvent: base, NoteNumber: m.Note, Velocity: m.Velocity}
	case EventTypeControlChange:
		return ControlChangeEvent{BaseEvent: base, Controller: m.Controller, Value: m.Value}
	case EventTypeProgramChange:
		return ProgramChangeEvent{BaseEvent: base, Program: m.Program}
	default:
		return PitchBendEvent{BaseEvent: base, Value: m.Bend}
	}
}

// Bytes encodes the message back into a status/data triplet.
func (m Message) Bytes() []byte {
	switch m.Type {
	case EventTypeNoteOn:
		return gomidi.NoteOn(m.Channel, m.Note, m.Velocity)
	case EventTypeNoteOff:
		return gomidi.NoteOffVelocity(m.Channel, m.Note, m.Velocity)
	case EventTypeControlChange:
		return gomidi.ControlChange(m.Channel, m.Controller, m.Value)
	case EventTypeProgramChange:
		return gomidi.ProgramChange(m.Channel, m.Program)
	default:
		return gomidi.Pitchbend(m.Channel, int16(m.Bend)-8192)
	}
}
