package recorder

import (
	"fmt"
	"sync"
	"time"

	"github.com/livekit/protocol/logger"
)

// WriterState is the lifecycle state of a session writer.
//
// The normal progression is NotStarted -> Writing -> Finishing -> Finished.
// Failed is terminal and reachable from any state when the underlying
// muxer reports an error.
type WriterState int

const (
	// WriterStateNotStarted is the initial state; no sample is accepted yet.
	WriterStateNotStarted WriterState = iota

	// WriterStateWriting accepts video and audio samples.
	WriterStateWriting

	// WriterStateFinishing marks both tracks finished while the container
	// closes asynchronously.
	WriterStateFinishing

	// WriterStateFinished is terminal: the output file is complete.
	WriterStateFinished

	// WriterStateFailed is terminal: the muxer reported an error and the
	// output file, if present, must be treated as invalid.
	WriterStateFailed
)

// String returns a human-readable state name for log fields.
func (s WriterState) String() string {
	switch s {
	case WriterStateNotStarted:
		return "not-started"
	case WriterStateWriting:
		return "writing"
	case WriterStateFinishing:
		return "finishing"
	case WriterStateFinished:
		return "finished"
	case WriterStateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FinishCompletion is invoked exactly once per registration when the
// session reaches a terminal state, with the output path on success or the
// error on failure. Completions run on a goroutine owned by the writer,
// never on the caller's.
type FinishCompletion func(outputPath string, err error)

// FinishResult is the terminal outcome of a session, available through
// Result once Done is closed.
type FinishResult struct {
	OutputPath string
	Err        error
}

// SessionWriterOptions configures a session writer beyond its tracks.
type SessionWriterOptions struct {
	// Container overrides the muxing engine. When nil, a fragmented-MP4
	// writer targeting the session path is constructed.
	Container ContainerWriter

	// Logger overrides the default process logger.
	Logger logger.Logger
}

// SessionWriter owns the container writer and both track inputs of one
// recording session, and enforces the session lifecycle: samples are
// accepted only between Start and Finish, a finished track never accepts
// another sample, and finishing is asynchronous and idempotent.
//
// One mutex guards the state enum, the track finished flags and last
// presentation times, and all container access; video producer, audio
// producer and the control goroutine may call concurrently.
type SessionWriter struct {
	path  string
	video *VideoTrack
	audio *AudioTrack
	log   logger.Logger
	stats *SessionStats

	mu          sync.Mutex
	state       WriterState
	container   ContainerWriter
	completions []FinishCompletion
	result      *FinishResult
	done        chan struct{}
}

// NewSessionWriter allocates the container writer for path and attaches
// both tracks as inputs. It fails with *WriterCreationError when the path
// is unwritable or the container cannot be constructed; this is the only
// operation that performs synchronous I/O.
func NewSessionWriter(path string, video *VideoTrack, audio *AudioTrack, opts SessionWriterOptions) (*SessionWriter, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	container := opts.Container
	if container == nil {
		var err error
		container, err = newFMP4Writer(path, fmp4WriterConfig{
			Video:     video.Config(),
			Audio:     audio.Config(),
			Transform: video.Transform(),
			Logger:    log,
		})
		if err != nil {
			return nil, err
		}
	}

	return &SessionWriter{
		path:      path,
		video:     video,
		audio:     audio,
		log:       log,
		stats:     &SessionStats{},
		state:     WriterStateNotStarted,
		container: container,
		done:      make(chan struct{}),
	}, nil
}

// State returns the current lifecycle state.
func (w *SessionWriter) State() WriterState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// OutputPath returns the target file path of the session.
func (w *SessionWriter) OutputPath() string { return w.path }

// Stats returns a snapshot of the session's sample counters.
func (w *SessionWriter) Stats() SessionStatsSnapshot { return w.stats.Snapshot() }

// Start transitions the writer from NotStarted to Writing. It must be
// called exactly once before any sample append; calling it in any other
// state returns ErrInvalidState.
func (w *SessionWriter) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != WriterStateNotStarted {
		return fmt.Errorf("start in state %s: %w", w.state, ErrInvalidState)
	}
	if err := w.container.Start(); err != nil {
		w.failLocked(err)
		return err
	}
	w.state = WriterStateWriting
	w.log.Debugw("session writer started", "path", w.path)
	return nil
}

// AppendVideoFrame pushes one encoded video access unit into the session.
//
// Valid only while Writing: in any other state the sample is dropped and
// ErrStaleBuffer is returned, since upstream capture may race a stop
// request — the drop is safe and the session is unaffected. A presentation
// time lower than the previous video sample's is rejected with
// ErrOutOfOrderSample, leaving earlier samples intact.
func (w *SessionWriter) AppendVideoFrame(payload []byte, pts time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != WriterStateWriting || w.video.Finished() {
		w.stats.dropVideo()
		return ErrStaleBuffer
	}
	if pts < 0 || !w.video.acceptPTS(pts) {
		w.stats.dropVideo()
		return fmt.Errorf("video frame at %v: %w", pts, ErrOutOfOrderSample)
	}
	if err := w.container.WriteVideo(&VideoSample{Payload: payload, PTS: pts}); err != nil {
		w.failLocked(err)
		return err
	}
	w.stats.recordVideo(pts)
	return nil
}

// AppendAudioSample pushes one encoded audio access unit into the session.
// The state and ordering rules match AppendVideoFrame, applied to the
// audio track.
func (w *SessionWriter) AppendAudioSample(payload []byte, pts time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != WriterStateWriting || w.audio.Finished() {
		w.stats.dropAudio()
		return ErrStaleBuffer
	}
	if pts < 0 || !w.audio.acceptPTS(pts) {
		w.stats.dropAudio()
		return fmt.Errorf("audio sample at %v: %w", pts, ErrOutOfOrderSample)
	}
	if err := w.container.WriteAudio(&AudioSample{Payload: payload, PTS: pts}); err != nil {
		w.failLocked(err)
		return err
	}
	w.stats.recordAudio(pts)
	return nil
}

// Finish marks both tracks finished and asks the container to close the
// file asynchronously. Once the close completes, the writer transitions to
// Finished (or Failed) and every registered completion is invoked with the
// result.
//
// Finish is idempotent under duplicate stop signals: while Finishing the
// completion is queued for the pending result, and after a terminal state
// it is invoked asynchronously with the cached result. Calling Finish
// before Start returns ErrInvalidState.
func (w *SessionWriter) Finish(completion FinishCompletion) error {
	w.mu.Lock()

	switch w.state {
	case WriterStateNotStarted:
		w.mu.Unlock()
		return fmt.Errorf("finish before start: %w", ErrInvalidState)

	case WriterStateWriting:
		w.state = WriterStateFinishing
		w.video.markFinished()
		w.audio.markFinished()
		if completion != nil {
			w.completions = append(w.completions, completion)
		}
		stats := w.stats.Snapshot()
		w.mu.Unlock()

		w.log.Infow("finishing recording session",
			"path", w.path,
			"videoSamples", stats.VideoAppended,
			"audioSamples", stats.AudioAppended,
			"duration", stats.Duration())
		go w.finalize()
		return nil

	case WriterStateFinishing:
		if completion != nil {
			w.completions = append(w.completions, completion)
		}
		w.mu.Unlock()
		return nil

	default: // Finished or Failed: re-deliver the cached result.
		result := *w.result
		w.mu.Unlock()
		if completion != nil {
			go completion(result.OutputPath, result.Err)
		}
		return nil
	}
}

// Done is closed once the session reaches a terminal state. Together with
// Result it exposes the finish outcome as an explicit completion channel.
func (w *SessionWriter) Done() <-chan struct{} { return w.done }

// Result returns the terminal outcome. ok is false until Done is closed.
func (w *SessionWriter) Result() (result FinishResult, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.result == nil {
		return FinishResult{}, false
	}
	return *w.result, true
}

// finalize runs on its own goroutine: it closes the container, records the
// terminal state and fans the result out to every registered completion.
func (w *SessionWriter) finalize() {
	out, err := w.container.Finalize()

	w.mu.Lock()
	if err != nil {
		w.state = WriterStateFailed
		w.result = &FinishResult{Err: err}
	} else {
		w.state = WriterStateFinished
		w.result = &FinishResult{OutputPath: out}
	}
	result := *w.result
	completions := w.completions
	w.completions = nil
	close(w.done)
	w.mu.Unlock()

	if err != nil {
		w.log.Errorw("recording session failed", err, "path", w.path)
	} else {
		w.log.Infow("recording session finished", "path", w.path)
	}

	for _, c := range completions {
		c(result.OutputPath, result.Err)
	}
}

// failLocked records a muxer failure observed outside the finalize path
// (during Start or a sample append). The session jumps straight to the
// terminal Failed state and later Finish calls deliver the cached error.
// Must be called with w.mu held.
func (w *SessionWriter) failLocked(err error) {
	if w.result != nil {
		return
	}
	w.state = WriterStateFailed
	w.result = &FinishResult{Err: err}
	completions := w.completions
	w.completions = nil
	close(w.done)

	w.log.Errorw("recording session failed", err, "path", w.path)
	if len(completions) > 0 {
		go func() {
			for _, c := range completions {
				c("", err)
			}
		}()
	}
}
