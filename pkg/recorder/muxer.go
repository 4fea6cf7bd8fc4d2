package recorder

import "time"

// VideoSample is one encoded video access unit handed to the container
// writer. Payload is an H.264 access unit in Annex-B byte-stream format;
// PTS is its presentation time relative to the start of the session.
type VideoSample struct {
	Payload []byte
	PTS     time.Duration
}

// AudioSample is one encoded audio access unit handed to the container
// writer. Payload is a raw AAC access unit (no ADTS framing); PTS is its
// presentation time relative to the start of the session.
type AudioSample struct {
	Payload []byte
	PTS     time.Duration
}

// ContainerWriter is the muxing engine behind a session writer: the black
// box that interleaves encoded track data into a single container file.
//
// Implementations do not need to be thread-safe; the session writer
// serializes all calls. Within one track, samples arrive in non-decreasing
// PTS order (the session writer enforces this before delegating). No
// ordering holds between WriteVideo and WriteAudio calls beyond their
// independent timestamps.
type ContainerWriter interface {
	// Start is called exactly once, before any sample is written.
	Start() error

	// WriteVideo muxes one video access unit.
	WriteVideo(sample *VideoSample) error

	// WriteAudio muxes one audio access unit.
	WriteAudio(sample *AudioSample) error

	// Finalize flushes all pending data and closes the file, returning
	// the output path. Called exactly once; no Write call follows it.
	// I/O failures are reported as *MuxerIOError.
	Finalize() (string, error)
}
