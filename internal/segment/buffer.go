package segment

import (
	"sync"
	"time"
)

// StreamBuffer accumulates raw mono samples for one stream in arrival-order
// chunks. The buffer enforces a maximum retained duration: when an Add
// pushes the total over the ceiling, the oldest chunks are evicted from the
// front until the buffer is back under it, but at least one chunk is always
// retained.
//
// A buffer is owned by exactly one producer, but methods are synchronised so
// diagnostic reads (Duration) from other goroutines are safe.
type StreamBuffer struct {
	mu         sync.Mutex
	chunks     [][]float64
	total      int // samples across all chunks
	sampleRate int
	maxSamples int
}

// NewStreamBuffer creates a buffer for a stream at the given sample rate
// retaining at most maxSeconds of audio.
func NewStreamBuffer(sampleRate int, maxSeconds float64) *StreamBuffer {
	return &StreamBuffer{
		sampleRate: sampleRate,
		maxSamples: int(maxSeconds * float64(sampleRate)),
	}
}

// Add appends a copy of samples as one chunk and evicts the oldest chunks
// while the retained total exceeds the ceiling. It returns the number of
// samples evicted so the owner can keep its stream-position accounting
// straight.
func (b *StreamBuffer) Add(samples []float64) (evicted int) {
	if len(samples) == 0 {
		return 0
	}
	chunk := make([]float64, len(samples))
	copy(chunk, samples)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = append(b.chunks, chunk)
	b.total += len(chunk)

	for b.total > b.maxSamples && len(b.chunks) > 1 {
		evicted += len(b.chunks[0])
		b.total -= len(b.chunks[0])
		b.chunks[0] = nil
		b.chunks = b.chunks[1:]
	}
	return evicted
}

// Duration returns the total retained duration.
func (b *StreamBuffer) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.total) / float64(b.sampleRate) * float64(time.Second))
}

// Len returns the total retained sample count.
func (b *StreamBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Drain concatenates all chunks in arrival order into one buffer without
// mutating the buffer state.
func (b *StreamBuffer) Drain() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]float64, 0, b.total)
	for _, chunk := range b.chunks {
		out = append(out, chunk...)
	}
	return out
}

// Clear resets the buffer to empty.
func (b *StreamBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = nil
	b.total = 0
}
