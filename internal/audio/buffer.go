package audio

import (
	"sync"
)

// RingBuffer is a thread-safe ring buffer of PCM samples with a fixed capacity
type RingBuffer struct {
	buffer []int16
	read   int
	count  int
	mu     sync.RWMutex
}

// NewRingBuffer creates a new ring buffer holding up to capacity samples
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{
		buffer: make([]int16, capacity),
	}
}

// Write appends samples to the ring buffer.
// Returns the number of samples written (less than len(samples) once the buffer is full)
func (rb *RingBuffer) Write(samples []int16) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	size := len(rb.buffer)
	written := 0
	for _, s := range samples {
		if rb.count == size {
			break
		}
		rb.buffer[(rb.read+rb.count)%size] = s
		rb.count++
		written++
	}

	return written
}

// Drain removes and returns every buffered sample
func (rb *RingBuffer) Drain() []int16 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	size := len(rb.buffer)
	out := make([]int16, rb.count)
	for i := range out {
		out[i] = rb.buffer[(rb.read+i)%size]
	}
	rb.read = 0
	rb.count = 0

	return out
}

// IsEmpty returns true if the buffer is empty
func (rb *RingBuffer) IsEmpty() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count == 0
}

// IsFull returns true if the buffer is full
func (rb *RingBuffer) IsFull() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count == len(rb.buffer)
}
