package recorder

import (
	"sync"
	"time"
)

// mockContainer implements ContainerWriter for tests, recording every call
// and flagging writes that arrive after finalization.
type mockContainer struct {
	mu sync.Mutex

	path          string
	startErr      error
	finalizeErr   error
	finalizeDelay time.Duration

	started            bool
	finalized          bool
	video              []VideoSample
	audio              []AudioSample
	wroteAfterFinalize bool
}

func newMockContainer(path string) *mockContainer {
	return &mockContainer{path: path}
}

func (m *mockContainer) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return m.startErr
}

func (m *mockContainer) WriteVideo(sample *VideoSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		m.wroteAfterFinalize = true
	}
	m.video = append(m.video, *sample)
	return nil
}

func (m *mockContainer) WriteAudio(sample *AudioSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		m.wroteAfterFinalize = true
	}
	m.audio = append(m.audio, *sample)
	return nil
}

func (m *mockContainer) Finalize() (string, error) {
	if m.finalizeDelay > 0 {
		time.Sleep(m.finalizeDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized = true
	if m.finalizeErr != nil {
		return "", m.finalizeErr
	}
	return m.path, nil
}

func (m *mockContainer) videoSamples() []VideoSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]VideoSample, len(m.video))
	copy(out, m.video)
	return out
}

func (m *mockContainer) audioSamples() []AudioSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AudioSample, len(m.audio))
	copy(out, m.audio)
	return out
}

func (m *mockContainer) violatedFinalize() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wroteAfterFinalize
}

// testTracks builds a default video/audio track pair for writer tests.
func testTracks() (*VideoTrack, *AudioTrack) {
	size := FrameSize{Width: 1280, Height: 720}
	video := NewVideoTrack(DefaultVideoEncoding(size), IdentityTransform())
	audio := NewAudioTrack(DefaultAudioEncoding())
	return video, audio
}
