// Package history provides the bounded per-category learning history
// and training buffer. Both evict oldest-first when full.
package history

// #region ring

// ring is a bounded FIFO over T. Appending past capacity evicts the
// oldest entry.
type ring[T any] struct {
	data  []T
	start int
	count int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{data: make([]T, capacity)}
}

func (r *ring[T]) append(v T) {
	if r.count < len(r.data) {
		r.data[(r.start+r.count)%len(r.data)] = v
		r.count++
		return
	}
	// full: overwrite oldest
	r.data[r.start] = v
	r.start = (r.start + 1) % len(r.data)
}

func (r *ring[T]) len() int { return r.count }

// snapshot returns entries oldest-first as a fresh slice.
func (r *ring[T]) snapshot() []T {
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.data[(r.start+i)%len(r.data)]
	}
	return out
}

// tail returns the most recent n entries oldest-first.
func (r *ring[T]) tail(n int) []T {
	if n > r.count {
		n = r.count
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.data[(r.start+r.count-n+i)%len(r.data)]
	}
	return out
}

// #endregion ring

// #region history

// History is the bounded per-category log of learning cycles.
// Not safe for concurrent use; the engine serializes per category.
type History struct {
	ring *ring[LearningCycle]
}

// NewHistory creates a history bounded to maxSize cycles.
func NewHistory(maxSize int) *History {
	return &History{ring: newRing[LearningCycle](maxSize)}
}

// Append records a cycle, evicting the oldest when full.
func (h *History) Append(c LearningCycle) { h.ring.append(c) }

// Len returns the number of stored cycles.
func (h *History) Len() int { return h.ring.len() }

// All returns all cycles oldest-first.
func (h *History) All() []LearningCycle { return h.ring.snapshot() }

// Recent returns the most recent n cycles oldest-first.
func (h *History) Recent(n int) []LearningCycle { return h.ring.tail(n) }

// #endregion history

// #region training-buffer

// TrainingBuffer is the bounded per-category sample buffer consumed by
// retraining. Not safe for concurrent use.
type TrainingBuffer struct {
	ring *ring[TrainingPoint]
}

// NewTrainingBuffer creates a buffer bounded to maxSize points.
func NewTrainingBuffer(maxSize int) *TrainingBuffer {
	return &TrainingBuffer{ring: newRing[TrainingPoint](maxSize)}
}

// Append records a point, evicting the oldest when full.
func (b *TrainingBuffer) Append(p TrainingPoint) { b.ring.append(p) }

// Len returns the number of buffered points.
func (b *TrainingBuffer) Len() int { return b.ring.len() }

// All returns all points oldest-first.
func (b *TrainingBuffer) All() []TrainingPoint { return b.ring.snapshot() }

// Recent returns the most recent n points oldest-first.
func (b *TrainingBuffer) Recent(n int) []TrainingPoint { return b.ring.tail(n) }

// #endregion training-buffer
