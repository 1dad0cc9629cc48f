package kernel

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind classifies a control item.
type Kind int

const (
	KindSlider Kind = iota
	KindButton
	KindCheckbox
	KindNumEntry
	KindBargraph
	KindSoundfile
)

func (k Kind) String() string {
	switch k {
	case KindSlider:
		return "slider"
	case KindButton:
		return "button"
	case KindCheckbox:
		return "checkbox"
	case KindNumEntry:
		return "nentry"
	case KindBargraph:
		return "bargraph"
	case KindSoundfile:
		return "soundfile"
	default:
		return "unknown"
	}
}

// Output reports whether the kind is display only.
func (k Kind) Output() bool {
	return k == KindBargraph
}

// Node is either a Group or an Item; exactly one field is set.
type Node struct {
	Group *Group
	Item  *Item
}

// Group is an interior node of the control tree.
type Group struct {
	Type  string
	Label string
	Items []Node
}

// Item is a leaf of the control tree.
type Item struct {
	Kind    Kind
	Label   string
	Address string
	Index   int
	Init    float64
	Min     float64
	Max     float64
	Step    float64
	Meta    []Pair
}

// MIDI returns the item's midi annotation, if any.
func (it *Item) MIDI() (string, bool) {
	for _, p := range it.Meta {
		if p.Key == "midi" {
			return strings.TrimSpace(p.Value), true
		}
	}
	return "", false
}

type rawNode struct {
	Type    string  `json:"type"`
	Label   string  `json:"label"`
	Items   []Node  `json:"items,omitempty"`
	Address string  `json:"address,omitempty"`
	Index   int     `json:"index"`
	Init    float64 `json:"init,omitempty"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Step    float64 `json:"step,omitempty"`
	Meta    []Pair  `json:"meta,omitempty"`
}

var itemKinds = map[string]Kind{
	"hslider":   KindSlider,
	"vslider":   KindSlider,
	"button":    KindButton,
	"checkbox":  KindCheckbox,
	"nentry":    KindNumEntry,
	"hbargraph": KindBargraph,
	"vbargraph": KindBargraph,
	"soundfile": KindSoundfile,
}

// UnmarshalJSON decodes a group or an item depending on the "type" field.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.HasSuffix(raw.Type, "group") {
		n.Group = &Group{Type: raw.Type, Label: raw.Label, Items: raw.Items}
		return nil
	}
	kind, ok := itemKinds[raw.Type]
	if !ok {
		return fmt.Errorf("unknown control type %q at %q", raw.Type, raw.Address)
	}
	if raw.Address == "" {
		return fmt.Errorf("control %q has no address", raw.Label)
	}
	n.Item = &Item{
		Kind:    kind,
		Label:   raw.Label,
		Address: raw.Address,
		Index:   raw.Index,
		Init:    raw.Init,
		Min:     raw.Min,
		Max:     raw.Max,
		Step:    raw.Step,
		Meta:    raw.Meta,
	}
	return nil
}

// Visitor receives the nodes of a control tree in depth-first order.
type Visitor interface {
	EnterGroup(g *Group)
	LeaveGroup(g *Group)
	Item(it *Item)
}

// Walk visits nodes depth first.
func Walk(nodes []Node, v Visitor) {
	for i := range nodes {
		switch n := &nodes[i]; {
		case n.Group != nil:
			v.EnterGroup(n.Group)
			Walk(n.Group.Items, v)
			v.LeaveGroup(n.Group)
		case n.Item != nil:
			v.Item(n.Item)
		}
	}
}

// ItemFunc adapts a function to a Visitor that only sees leaves.
type ItemFunc func(it *Item)

func (f ItemFunc) EnterGroup(*Group) {}
func (f ItemFunc) LeaveGroup(*Group) {}
func (f ItemFunc) Item(it *Item)     { f(it) }
