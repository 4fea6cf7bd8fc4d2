// Package recorder multiplexes a live stream of video frames and audio
// samples into a single fragmented-MP4 file.
//
// A Recorder is constructed with a target path, the device orientation and
// frame size, and an optional capture-connection mirroring hint. It derives
// the render transform baked into the video track, fixes the encoding
// configuration of both tracks, and owns a SessionWriter that enforces the
// session lifecycle (not-started, writing, finishing, finished or failed).
// The upstream capture pipeline pushes timestamped buffers through the
// opaque CaptureOutput handle while the session is writing; finishing is
// asynchronous and reports its outcome through completion callbacks or the
// Done channel.
//
// A Recorder is single-use: once finished or failed it cannot be restarted,
// and a new recording requires a new Recorder.
package recorder

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/livekit/protocol/logger"
)

// CaptureConnection is the orientation hint delivered once by the upstream
// capture collaborator at session construction.
type CaptureConnection struct {
	// Mirrored indicates the connection flips frames horizontally (a
	// front-facing camera, typically).
	Mirrored bool
}

// RecorderOptions configures a Recorder at construction time.
type RecorderOptions struct {
	// Orientation is the device orientation baked into the video track.
	Orientation DeviceOrientation

	// FrameSize is the dimensions of incoming frames, used for both the
	// mirroring transform and the default video configuration.
	FrameSize FrameSize

	// CaptureConnection optionally carries the capture pipeline's
	// mirroring flag. Absent means not mirrored.
	CaptureConnection *CaptureConnection

	// Video and Audio override the default encoding configurations.
	Video *VideoEncodingConfig
	Audio *AudioEncodingConfig

	// Container overrides the muxing engine (a fragmented-MP4 file writer
	// by default).
	Container ContainerWriter

	// Logger overrides the default process logger.
	Logger logger.Logger
}

// Recorder is the public face of one recording session. It wires the
// orientation transform into the video track at construction, owns the
// session writer, and exposes the minimal start/finish API plus the opaque
// capture output handle.
type Recorder struct {
	id        string
	path      string
	transform AffineTransform
	writer    *SessionWriter
	output    *CaptureOutput
	log       logger.Logger
}

// NewRecorder creates a recording session targeting path.
//
// It computes the render transform from the orientation, the capture
// connection's mirroring flag and the frame size, builds the track
// configurations (defaults unless overridden in opts), and allocates the
// session writer. Returns *WriterCreationError when the container cannot
// be constructed; in that case no partial file is left behind.
func NewRecorder(path string, opts RecorderOptions) (*Recorder, error) {
	if path == "" {
		return nil, &WriterCreationError{Path: path, Err: errors.New("empty output path")}
	}

	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	mirrored := opts.CaptureConnection != nil && opts.CaptureConnection.Mirrored
	transform := ComputeTransform(opts.Orientation, mirrored, opts.FrameSize)

	videoConfig := DefaultVideoEncoding(opts.FrameSize)
	if opts.Video != nil {
		videoConfig = *opts.Video
	}
	audioConfig := DefaultAudioEncoding()
	if opts.Audio != nil {
		audioConfig = *opts.Audio
	}

	video := NewVideoTrack(videoConfig, transform)
	audio := NewAudioTrack(audioConfig)

	writer, err := NewSessionWriter(path, video, audio, SessionWriterOptions{
		Container: opts.Container,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		id:        uuid.NewString(),
		path:      path,
		transform: transform,
		writer:    writer,
		log:       log,
	}
	r.output = &CaptureOutput{writer: writer}

	log.Infow("created recording session",
		"sessionID", r.id,
		"path", path,
		"orientation", opts.Orientation.String(),
		"mirrored", mirrored,
		"width", videoConfig.Width,
		"height", videoConfig.Height)
	return r, nil
}

// ID returns the unique identifier of this session.
func (r *Recorder) ID() string { return r.id }

// OutputPath returns the target file path.
func (r *Recorder) OutputPath() string { return r.path }

// Transform returns the render transform attached to the video track.
func (r *Recorder) Transform() AffineTransform { return r.transform }

// Output returns the handle the capture pipeline pushes buffers through.
// The capture side needs nothing else: tracks and writer stay internal.
func (r *Recorder) Output() *CaptureOutput { return r.output }

// State returns the session writer's lifecycle state.
func (r *Recorder) State() WriterState { return r.writer.State() }

// Stats returns a snapshot of the session's sample counters.
func (r *Recorder) Stats() SessionStatsSnapshot { return r.writer.Stats() }

// StartRecording begins accepting samples. It must be called exactly once;
// any further call returns ErrInvalidState.
func (r *Recorder) StartRecording() error {
	return r.writer.Start()
}

// FinishRecording finalizes both tracks and closes the file asynchronously.
// The completion receives the output path or the error; duplicate calls
// re-deliver the same result. See SessionWriter.Finish for the full
// contract.
func (r *Recorder) FinishRecording(completion FinishCompletion) error {
	return r.writer.Finish(completion)
}

// Done is closed once the session reaches a terminal state.
func (r *Recorder) Done() <-chan struct{} { return r.writer.Done() }

// Result returns the terminal outcome. ok is false until Done is closed.
func (r *Recorder) Result() (FinishResult, bool) { return r.writer.Result() }

// CaptureOutput is the single opaque handle handed to the upstream capture
// collaborator. It forwards timestamped buffers to the session writer,
// which applies all state and ordering rules; pushes that race a stop
// request are dropped safely.
type CaptureOutput struct {
	writer *SessionWriter
}

// PushVideoFrame submits one encoded video access unit (H.264 Annex-B)
// with its presentation time.
func (o *CaptureOutput) PushVideoFrame(buf []byte, pts time.Duration) error {
	return o.writer.AppendVideoFrame(buf, pts)
}

// PushAudioSample submits one encoded audio access unit (raw AAC) with its
// presentation time.
func (o *CaptureOutput) PushAudioSample(buf []byte, pts time.Duration) error {
	return o.writer.AppendAudioSample(buf, pts)
}
