package recorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioSampleBufferDrainOrder(t *testing.T) {
	buf := newAudioSampleBuffer(4)

	for i := 0; i < 3; i++ {
		ok := buf.Enqueue(&AudioSample{PTS: time.Duration(i) * time.Millisecond})
		assert.True(t, ok)
	}
	assert.Equal(t, 3, buf.Size())

	drained := buf.Drain()
	require.Len(t, drained, 3)
	for i, s := range drained {
		assert.Equal(t, time.Duration(i)*time.Millisecond, s.PTS)
	}
	assert.Equal(t, 0, buf.Size())
}

func TestAudioSampleBufferDropsOldestWhenFull(t *testing.T) {
	buf := newAudioSampleBuffer(2)

	assert.True(t, buf.Enqueue(&AudioSample{PTS: 1 * time.Millisecond}))
	assert.True(t, buf.Enqueue(&AudioSample{PTS: 2 * time.Millisecond}))
	assert.False(t, buf.Enqueue(&AudioSample{PTS: 3 * time.Millisecond}))

	drained := buf.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, 2*time.Millisecond, drained[0].PTS)
	assert.Equal(t, 3*time.Millisecond, drained[1].PTS)
}
