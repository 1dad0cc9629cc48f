// Package state saves and restores the control values of an instrument.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/justyntemme/kernelhost/pkg/framework/param"
)

const magic = "KHOST"

// Params is the control surface a Manager reads and writes.
type Params interface {
	Inputs() []string
	ParamValue(address string) (float64, error)
	SetParamValue(address string, value float64) error
}

// Manager handles preset saving and loading
type Manager struct {
	version uint32
	params  Params
	save    CustomSaveFunc
	load    CustomLoadFunc
}

// CustomSaveFunc writes state beyond control values.
type CustomSaveFunc func(w io.Writer) error

// CustomLoadFunc reads what the matching CustomSaveFunc wrote.
type CustomLoadFunc func(r io.Reader) error

// NewManager creates a new state manager
func NewManager(params Params) *Manager {
	return &Manager{
		version: 1,
		params:  params,
	}
}

// SetCustomState registers functions for extra state after the controls.
func (m *Manager) SetCustomState(save CustomSaveFunc, load CustomLoadFunc) {
	m.save = save
	m.load = load
}

// Save writes every input control value, keyed by address.
func (m *Manager) Save(w io.Writer) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, m.version); err != nil {
		return err
	}

	inputs := m.params.Inputs()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(inputs))); err != nil {
		return err
	}
	for _, addr := range inputs {
		value, err := m.params.ParamValue(addr)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", addr, err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(len(addr))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, addr); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, value); err != nil {
			return err
		}
	}

	if m.save == nil {
		return binary.Write(w, binary.LittleEndian, uint32(0))
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(1)); err != nil {
		return err
	}
	return m.save(w)
}

// Load restores control values. Addresses the instrument does not know are
// skipped so presets survive control changes.
func (m *Manager) Load(r io.Reader) error {
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return err
	}
	if string(header) != magic {
		return fmt.Errorf("invalid state format")
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version > m.version {
		return fmt.Errorf("state version %d is newer than supported version %d", version, m.version)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return err
		}
		addr := make([]byte, n)
		if _, err := io.ReadFull(r, addr); err != nil {
			return err
		}
		var value float64
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return err
		}

		err := m.params.SetParamValue(string(addr), value)
		if err != nil && !errors.Is(err, param.ErrUnknownAddress) {
			return fmt.Errorf("failed to restore %s: %w", addr, err)
		}
	}

	var hasCustom uint32
	if err := binary.Read(r, binary.LittleEndian, &hasCustom); err != nil {
		return err
	}
	if hasCustom == 0 {
		return nil
	}
	if m.load == nil {
		return fmt.Errorf("state carries custom data but no loader is set")
	}
	return m.load(r)
}
