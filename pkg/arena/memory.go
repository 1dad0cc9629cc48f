// Package arena provides the flat shared memory region that kernels, pointer
// tables and channel buffers are carved out of.
package arena

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Offset is a byte offset into a Memory region.
type Offset int

// PointerSize is the width of one pointer-table entry in bytes.
const PointerSize = 4

// Memory is a little-endian byte region with a fixed sample width.
// All accessors are allocation free.
type Memory struct {
	buf   []byte
	width int
}

// New creates a zeroed region of size bytes. width must be 4 or 8.
func New(size, width int) (*Memory, error) {
	if width != 4 && width != 8 {
		return nil, fmt.Errorf("unsupported sample width %d", width)
	}
	if size < 0 {
		return nil, fmt.Errorf("negative memory size %d", size)
	}
	return &Memory{buf: make([]byte, size), width: width}, nil
}

// Size returns the region size in bytes.
func (m *Memory) Size() int {
	return len(m.buf)
}

// SampleWidth returns 4 for float32 samples and 8 for float64 samples.
func (m *Memory) SampleWidth() int {
	return m.width
}

// Bytes exposes the raw region.
func (m *Memory) Bytes() []byte {
	return m.buf
}

// Int32 reads a 32-bit integer.
func (m *Memory) Int32(at Offset) int32 {
	return int32(binary.LittleEndian.Uint32(m.buf[at:]))
}

// SetInt32 writes a 32-bit integer.
func (m *Memory) SetInt32(at Offset, v int32) {
	binary.LittleEndian.PutUint32(m.buf[at:], uint32(v))
}

// Float64 reads a float64 regardless of the sample width.
func (m *Memory) Float64(at Offset) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(m.buf[at:]))
}

// SetFloat64 writes a float64 regardless of the sample width.
func (m *Memory) SetFloat64(at Offset, v float64) {
	binary.LittleEndian.PutUint64(m.buf[at:], math.Float64bits(v))
}

// Pointer returns entry ch of the pointer table at table.
func (m *Memory) Pointer(table Offset, ch int) Offset {
	return Offset(m.Int32(table + Offset(ch*PointerSize)))
}

// SetPointer stores target as entry ch of the pointer table at table.
func (m *Memory) SetPointer(table Offset, ch int, target Offset) {
	m.SetInt32(table+Offset(ch*PointerSize), int32(target))
}

// Sample reads sample i of the channel buffer starting at buf.
func (m *Memory) Sample(buf Offset, i int) float64 {
	at := int(buf) + i*m.width
	if m.width == 4 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(m.buf[at:])))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(m.buf[at:]))
}

// SetSample writes sample i of the channel buffer starting at buf.
func (m *Memory) SetSample(buf Offset, i int, v float64) {
	at := int(buf) + i*m.width
	if m.width == 4 {
		binary.LittleEndian.PutUint32(m.buf[at:], math.Float32bits(float32(v)))
		return
	}
	binary.LittleEndian.PutUint64(m.buf[at:], math.Float64bits(v))
}

// ReadChannel converts n samples starting at buf into dst.
func (m *Memory) ReadChannel(buf Offset, dst []float32) {
	for i := range dst {
		dst[i] = float32(m.Sample(buf, i))
	}
}

// WriteChannel stores src as samples starting at buf.
func (m *Memory) WriteChannel(buf Offset, src []float32) {
	for i, v := range src {
		m.SetSample(buf, i, float64(v))
	}
}

// Zero clears n bytes starting at at.
func (m *Memory) Zero(at Offset, n int) {
	clear(m.buf[at : int(at)+n])
}
