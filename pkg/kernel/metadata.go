package kernel

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Metadata is the JSON description a compiled kernel ships with.
type Metadata struct {
	Name           string `json:"name"`
	Size           int    `json:"size"`
	Inputs         int    `json:"inputs"`
	Outputs        int    `json:"outputs"`
	UI             []Node `json:"ui"`
	Meta           []Pair `json:"meta"`
	CompileOptions string `json:"compile_options"`
}

// Pair is one {key: value} entry of a metadata list.
type Pair struct {
	Key   string
	Value string
}

// UnmarshalJSON decodes a single-key object.
func (p *Pair) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("metadata entry must have exactly one key, got %d", len(m))
	}
	for k, v := range m {
		p.Key, p.Value = k, v
	}
	return nil
}

// MarshalJSON encodes the pair back into a single-key object.
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{p.Key: p.Value})
}

// ParseMetadata decodes and validates kernel metadata.
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode kernel metadata: %w", err)
	}
	if m.Size < 0 {
		return nil, fmt.Errorf("kernel %q: negative state size %d", m.Name, m.Size)
	}
	if m.Inputs < 0 || m.Outputs < 0 {
		return nil, fmt.Errorf("kernel %q: negative channel count", m.Name)
	}
	return &m, nil
}

// SampleWidth returns 8 for kernels compiled in double precision, else 4.
func (m *Metadata) SampleWidth() int {
	if strings.Contains(m.CompileOptions, "-double") {
		return 8
	}
	return 4
}

// Lookup returns the first top-level meta value stored under key.
func (m *Metadata) Lookup(key string) (string, bool) {
	for _, p := range m.Meta {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}
