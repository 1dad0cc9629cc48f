package event

import (
	"math"
	"sync/atomic"
)

type slot struct {
	seq uint64
	val Event
}

// Queue hands events from any number of scheduling goroutines to the single
// render thread without locks.
//
// Producers publish into a bounded ring using per-slot sequence numbers.
// The consumer moves published events into a fixed-capacity pending list that
// is kept sorted by time on insert, then pops the events due in the current
// buffer. Nothing allocates after NewQueue.
type Queue struct {
	_    [64]byte
	tail atomic.Uint64
	_    [56]byte

	// head and pending belong to the consumer.
	head    uint64
	pending []Event

	mask    uint64
	buf     []slot
	dropped atomic.Uint64
}

// NewQueue creates a queue holding up to capacity in-flight events, rounded
// up to a power of two.
func NewQueue(capacity int) *Queue {
	size := 1
	for size < capacity {
		size <<= 1
	}
	q := &Queue{
		mask:    uint64(size - 1),
		buf:     make([]slot, size),
		pending: make([]Event, 0, size),
	}
	for i := range q.buf {
		q.buf[i].seq = uint64(i)
	}
	return q
}

// Capacity returns the ring size.
func (q *Queue) Capacity() int {
	return len(q.buf)
}

// Schedule publishes e. It never blocks and returns false when the ring is
// full. Safe for concurrent producers.
func (q *Queue) Schedule(e Event) bool {
	for {
		t := q.tail.Load()
		s := &q.buf[t&q.mask]
		seq := atomic.LoadUint64(&s.seq)
		switch diff := int64(seq) - int64(t); {
		case diff == 0:
			if q.tail.CompareAndSwap(t, t+1) {
				s.val = e
				atomic.StoreUint64(&s.seq, t+1)
				return true
			}
		case diff < 0:
			q.dropped.Add(1)
			return false
		}
	}
}

func (q *Queue) pop() (Event, bool) {
	h := q.head
	s := &q.buf[h&q.mask]
	if atomic.LoadUint64(&s.seq) != h+1 {
		return Event{}, false
	}
	e := s.val
	s.val = Event{}
	atomic.StoreUint64(&s.seq, h+q.mask+1)
	q.head = h + 1
	return e, true
}

// insert places e after every pending event with time <= e.Time, so events
// sharing a timestamp keep their scheduling order.
func (q *Queue) insert(e Event) bool {
	if len(q.pending) == cap(q.pending) {
		return false
	}
	i := len(q.pending)
	q.pending = q.pending[:i+1]
	for i > 0 && q.pending[i-1].Time > e.Time {
		q.pending[i] = q.pending[i-1]
		i--
	}
	q.pending[i] = e
	return true
}

// collect moves everything published so far into the pending list.
func (q *Queue) collect() {
	for {
		e, ok := q.pop()
		if !ok {
			return
		}
		if !q.insert(e) {
			q.dropped.Add(1)
		}
	}
}

// Drain appends to out, in time order, every event due before the end of the
// window that starts at start and lasts frames samples. Each event's Offset is
// set to its sample position, clamped into [0, frames). Events that do not fit
// into out's spare capacity stay pending. Consumer only.
func (q *Queue) Drain(start float64, frames int, sampleRate float64, out []Event) []Event {
	q.collect()

	end := start + float64(frames)/sampleRate
	n := 0
	for n < len(q.pending) && len(out) < cap(out) {
		e := q.pending[n]
		if e.Time >= end {
			break
		}
		e.Offset = sampleOffset(e.Time-start, frames, sampleRate)
		out = append(out, e)
		n++
	}
	if n > 0 {
		rest := copy(q.pending, q.pending[n:])
		clear(q.pending[rest:])
		q.pending = q.pending[:rest]
	}
	return out
}

func sampleOffset(delta float64, frames int, sampleRate float64) int {
	off := int(math.Floor(delta*sampleRate + 1e-6))
	if off < 0 {
		return 0
	}
	if off >= frames {
		return frames - 1
	}
	return off
}

// Pending returns the number of collected events not yet drained.
// Consumer only.
func (q *Queue) Pending() int {
	return len(q.pending)
}

// Dropped returns how many events were rejected because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
