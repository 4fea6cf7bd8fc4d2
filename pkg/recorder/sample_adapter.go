package recorder

import (
	"sync"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
)

// SampleAdapter feeds a CaptureOutput from a pipeline that produces pion
// media.Sample values, as WebRTC-based capture collaborators do. Samples
// carry durations rather than absolute presentation times, so the adapter
// accumulates a running timestamp per track: each sample is stamped with
// the sum of the durations before it.
//
// The adapter is safe for one video producer and one audio producer
// calling concurrently.
type SampleAdapter struct {
	out *CaptureOutput

	mu       sync.Mutex
	videoPTS time.Duration
	audioPTS time.Duration
}

// NewSampleAdapter wraps a capture output.
func NewSampleAdapter(out *CaptureOutput) *SampleAdapter {
	return &SampleAdapter{out: out}
}

// WriteVideoSample stamps the sample with the accumulated video timestamp
// and pushes it. The sample's Data must be an H.264 Annex-B access unit.
func (a *SampleAdapter) WriteVideoSample(sample media.Sample) error {
	a.mu.Lock()
	pts := a.videoPTS
	a.videoPTS += sample.Duration
	a.mu.Unlock()

	return a.out.PushVideoFrame(sample.Data, pts)
}

// WriteAudioSample stamps the sample with the accumulated audio timestamp
// and pushes it. The sample's Data must be a raw AAC access unit.
func (a *SampleAdapter) WriteAudioSample(sample media.Sample) error {
	a.mu.Lock()
	pts := a.audioPTS
	a.audioPTS += sample.Duration
	a.mu.Unlock()

	return a.out.PushAudioSample(sample.Data, pts)
}
