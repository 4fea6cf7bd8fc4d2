package recorder

import (
	"sync/atomic"
	"time"
)

// trackState holds the mutable per-track state shared between the capture
// producers and the control goroutine: the finished flag and the last
// accepted presentation time.
//
// The finished flag is readable from any goroutine; transitions and PTS
// updates happen under the owning session writer's lock, which serializes
// them against appends.
type trackState struct {
	finished atomic.Bool

	lastPTS time.Duration
	hasPTS  bool
}

// markFinished sets the finished flag. It is idempotent: marking an
// already-finished track is a no-op, and the flag never reverts.
func (s *trackState) markFinished() {
	s.finished.Store(true)
}

// Finished reports whether the track has been finalized. Once true it
// stays true for the lifetime of the track.
func (s *trackState) Finished() bool {
	return s.finished.Load()
}

// acceptPTS validates that pts is non-decreasing within the track and
// records it. Returns false for a sample that travels back in time.
// Must be called under the session writer's lock.
func (s *trackState) acceptPTS(pts time.Duration) bool {
	if s.hasPTS && pts < s.lastPTS {
		return false
	}
	s.hasPTS = true
	s.lastPTS = pts
	return true
}

// VideoTrack is the video stream of a recording session: its encoding
// configuration, the render transform baked into the container's track
// header, and a finished flag set exactly once.
type VideoTrack struct {
	trackState

	config    VideoEncodingConfig
	transform AffineTransform
}

// NewVideoTrack creates a video track with the given configuration and
// render transform.
func NewVideoTrack(config VideoEncodingConfig, transform AffineTransform) *VideoTrack {
	return &VideoTrack{config: config, transform: transform}
}

// Config returns the track's encoding configuration.
func (t *VideoTrack) Config() VideoEncodingConfig { return t.config }

// Transform returns the render transform attached at construction.
func (t *VideoTrack) Transform() AffineTransform { return t.transform }

// AudioTrack is the audio stream of a recording session: its encoding
// configuration and a finished flag set exactly once.
type AudioTrack struct {
	trackState

	config AudioEncodingConfig
}

// NewAudioTrack creates an audio track with the given configuration.
func NewAudioTrack(config AudioEncodingConfig) *AudioTrack {
	return &AudioTrack{config: config}
}

// Config returns the track's encoding configuration.
func (t *AudioTrack) Config() AudioEncodingConfig { return t.config }
