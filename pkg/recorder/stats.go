package recorder

import (
	"sync"
	"time"
)

// SessionStats tracks per-session sample counters. It is updated in real
// time as samples flow through the session writer and read via Snapshot.
type SessionStats struct {
	mu sync.Mutex

	videoAppended uint64
	videoDropped  uint64
	audioAppended uint64
	audioDropped  uint64
	lastVideoPTS  time.Duration
	lastAudioPTS  time.Duration
}

func (s *SessionStats) recordVideo(pts time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoAppended++
	s.lastVideoPTS = pts
}

func (s *SessionStats) recordAudio(pts time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioAppended++
	s.lastAudioPTS = pts
}

func (s *SessionStats) dropVideo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoDropped++
}

func (s *SessionStats) dropAudio() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioDropped++
}

// Snapshot returns a copy of the current counters. The copy won't update.
func (s *SessionStats) Snapshot() SessionStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStatsSnapshot{
		VideoAppended: s.videoAppended,
		VideoDropped:  s.videoDropped,
		AudioAppended: s.audioAppended,
		AudioDropped:  s.audioDropped,
		LastVideoPTS:  s.lastVideoPTS,
		LastAudioPTS:  s.lastAudioPTS,
	}
}

// SessionStatsSnapshot is a point-in-time copy of a session's counters.
type SessionStatsSnapshot struct {
	// VideoAppended and AudioAppended count samples accepted into the
	// container; VideoDropped and AudioDropped count samples rejected as
	// stale or out of order.
	VideoAppended uint64
	VideoDropped  uint64
	AudioAppended uint64
	AudioDropped  uint64

	// LastVideoPTS and LastAudioPTS are the presentation times of the
	// most recently accepted sample on each track.
	LastVideoPTS time.Duration
	LastAudioPTS time.Duration
}

// Duration is the recording duration implied by the appended samples: the
// maximum presentation time across both tracks.
func (s SessionStatsSnapshot) Duration() time.Duration {
	if s.LastVideoPTS > s.LastAudioPTS {
		return s.LastVideoPTS
	}
	return s.LastAudioPTS
}
