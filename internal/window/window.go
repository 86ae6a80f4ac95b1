// Package window provides fixed-size sliding-window containers used by the
// structure detectors: a ring buffer with O(1) push and logical indexing, and
// a monotonic deque giving O(1) amortized window min/max.
package window

// RingBuffer is a fixed-capacity ring of float64 values. Push overwrites the
// oldest element once the buffer is full. Logical index 0 is the oldest
// retained value.
type RingBuffer struct {
	buf   []float64
	head  int // position of the next write
	count int
}

// NewRingBuffer creates a ring buffer with the given capacity.
// Capacity must be at least 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]float64, capacity)}
}

// Push appends a value, evicting the oldest if the buffer is full.
func (r *RingBuffer) Push(v float64) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// At returns the value at logical position i (0 = oldest).
// Callers must keep i within [0, Len()).
func (r *RingBuffer) At(i int) float64 {
	start := r.head - r.count
	if start < 0 {
		start += len(r.buf)
	}
	return r.buf[(start+i)%len(r.buf)]
}

// Len returns the number of values currently held.
func (r *RingBuffer) Len() int {
	return r.count
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return len(r.buf)
}

// Full reports whether the buffer holds Cap() values.
func (r *RingBuffer) Full() bool {
	return r.count == len(r.buf)
}

// Last returns the most recently pushed value, or 0 when empty.
func (r *RingBuffer) Last() float64 {
	if r.count == 0 {
		return 0
	}
	return r.At(r.count - 1)
}

// Reset discards all values while keeping the allocated storage.
func (r *RingBuffer) Reset() {
	r.head = 0
	r.count = 0
}

// deqItem pairs a value with the bar index it was observed at.
type deqItem struct {
	idx int
	val float64
}

// MonoDeque is a monotonic double-ended queue over (index, value) pairs.
// With isMax=true the front always holds the maximum of the retained window;
// with isMax=false, the minimum. Push and Expire are O(1) amortized.
type MonoDeque struct {
	items []deqItem
	isMax bool
}

// NewMaxDeque creates a deque whose front tracks the window maximum.
func NewMaxDeque() *MonoDeque {
	return &MonoDeque{isMax: true}
}

// NewMinDeque creates a deque whose front tracks the window minimum.
func NewMinDeque() *MonoDeque {
	return &MonoDeque{isMax: false}
}

// Push records a value observed at the given bar index. Indices must be fed
// in increasing order.
func (d *MonoDeque) Push(idx int, val float64) {
	for len(d.items) > 0 {
		tail := d.items[len(d.items)-1]
		if d.isMax && tail.val > val {
			break
		}
		if !d.isMax && tail.val < val {
			break
		}
		d.items = d.items[:len(d.items)-1]
	}
	d.items = append(d.items, deqItem{idx: idx, val: val})
}

// Expire drops entries with index < minIdx, shrinking the window from the left.
func (d *MonoDeque) Expire(minIdx int) {
	start := 0
	for start < len(d.items) && d.items[start].idx < minIdx {
		start++
	}
	if start > 0 {
		d.items = d.items[start:]
	}
}

// Best returns the current window extreme and its bar index.
// ok is false when the deque is empty.
func (d *MonoDeque) Best() (val float64, idx int, ok bool) {
	if len(d.items) == 0 {
		return 0, -1, false
	}
	return d.items[0].val, d.items[0].idx, true
}

// Len returns the number of retained entries.
func (d *MonoDeque) Len() int {
	return len(d.items)
}

// Reset discards all entries.
func (d *MonoDeque) Reset() {
	d.items = d.items[:0]
}
