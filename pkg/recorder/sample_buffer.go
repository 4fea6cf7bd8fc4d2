package recorder

import "sync"

// audioSampleBuffer queues audio samples that arrive before the container
// writer is able to accept them (the init segment may have to wait for the
// first video keyframe). The buffer is bounded: when full, the oldest
// sample is dropped so memory stays flat while waiting.
//
// The buffer is thread-safe for concurrent access.
type audioSampleBuffer struct {
	mu      sync.Mutex
	data    []*AudioSample
	maxSize int
}

func newAudioSampleBuffer(maxSize int) *audioSampleBuffer {
	return &audioSampleBuffer{
		data:    make([]*AudioSample, 0, maxSize),
		maxSize: maxSize,
	}
}

// Enqueue adds a sample to the buffer, dropping the oldest entry when the
// buffer is full. Returns false when a drop occurred.
func (b *audioSampleBuffer) Enqueue(sample *AudioSample) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := false
	if len(b.data) >= b.maxSize {
		b.data = b.data[1:]
		dropped = true
	}
	b.data = append(b.data, sample)
	return !dropped
}

// Drain removes and returns all buffered samples in arrival order.
func (b *audioSampleBuffer) Drain() []*AudioSample {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.data
	b.data = make([]*AudioSample, 0, b.maxSize)
	return out
}

// Size returns the current number of buffered samples.
func (b *audioSampleBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}
