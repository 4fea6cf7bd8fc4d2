package recorder

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by session writer operations. All of them are
// recoverable at the call site; none of them corrupt output already written.
var (
	// ErrInvalidState reports API misuse: starting a writer twice,
	// appending before start, or finishing before start. It is surfaced
	// immediately from the offending call.
	ErrInvalidState = errors.New("recorder: operation not valid in current writer state")

	// ErrStaleBuffer reports a sample that arrived while the writer was
	// not accepting input, typically because upstream capture raced a
	// stop request. The sample is dropped and the session is unaffected.
	ErrStaleBuffer = errors.New("recorder: sample arrived outside the writing state")

	// ErrOutOfOrderSample reports a presentation time lower than the
	// previous sample on the same track. The offending sample is rejected;
	// previously appended samples are untouched.
	ErrOutOfOrderSample = errors.New("recorder: non-monotonic presentation time")
)

// WriterCreationError reports that the underlying container writer could
// not be constructed, for example because the output path is unwritable.
// It is fatal: the recording never starts and no partial file is left
// behind.
type WriterCreationError struct {
	Path string
	Err  error
}

func (e *WriterCreationError) Error() string {
	return fmt.Sprintf("recorder: creating writer for %q: %v", e.Path, e.Err)
}

func (e *WriterCreationError) Unwrap() error { return e.Err }

// MuxerIOError reports an I/O failure from the underlying muxer (disk
// full, permission revoked mid-write). Failures during finalization are
// surfaced through the finish completion; the session transitions to
// Failed and the output file, if present, must be treated as invalid.
type MuxerIOError struct {
	Op  string
	Err error
}

func (e *MuxerIOError) Error() string {
	return fmt.Sprintf("recorder: muxer %s: %v", e.Op, e.Err)
}

func (e *MuxerIOError) Unwrap() error { return e.Err }
