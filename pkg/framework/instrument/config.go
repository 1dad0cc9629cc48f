package instrument

import (
	"errors"
	"fmt"
)

// Default configuration values.
const (
	DefaultSampleRate         = 44100
	DefaultBufferSize         = 128
	DefaultVoices             = 16
	DefaultOutputPollInterval = 5
	DefaultEventCapacity      = 256
)

// ErrNotConfigured is the panic value of Compute on an instrument that was
// not built by NewMono or NewPoly.
var ErrNotConfigured = errors.New("instrument: compute called before setup")

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Config holds the fixed parameters of an instrument. Zero fields other than
// Voices take the defaults.
type Config struct {
	SampleRate float64
	BufferSize int
	// Voices is the polyphony count and is used as given: a poly instrument
	// with zero voices drops every note.
	// Voices is ignored by mono instruments.
	Voices int
	// OutputPollInterval is the number of callbacks between two pushes of
	// the display-only control values.
	OutputPollInterval int
	// EventCapacity bounds the number of scheduled events in flight.
	EventCapacity int
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.OutputPollInterval == 0 {
		c.OutputPollInterval = DefaultOutputPollInterval
	}
	if c.EventCapacity == 0 {
		c.EventCapacity = DefaultEventCapacity
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch {
	case c.SampleRate < 0:
		return &ConfigError{Field: "sample rate", Reason: fmt.Sprintf("must be positive, got %g", c.SampleRate)}
	case c.BufferSize < 0:
		return &ConfigError{Field: "buffer size", Reason: fmt.Sprintf("must be positive, got %d", c.BufferSize)}
	case c.Voices < 0:
		return &ConfigError{Field: "voices", Reason: fmt.Sprintf("must not be negative, got %d", c.Voices)}
	case c.OutputPollInterval < 0:
		return &ConfigError{Field: "output poll interval", Reason: fmt.Sprintf("must be positive, got %d", c.OutputPollInterval)}
	case c.EventCapacity < 0:
		return &ConfigError{Field: "event capacity", Reason: fmt.Sprintf("must be positive, got %d", c.EventCapacity)}
	}
	return nil
}
