package recorder

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	gomp4 "github.com/abema/go-mp4"
	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	"github.com/bluenviron/mediacommon/pkg/formats/fmp4"
	"github.com/bluenviron/mediacommon/pkg/formats/fmp4/seekablebuffer"
	"github.com/livekit/protocol/logger"
)

const (
	videoTrackID   = 1
	audioTrackID   = 2
	videoTimeScale = 90000

	// aacSamplesPerAU is the fallback duration of the last audio sample,
	// in track timescale units (one AAC-LC access unit).
	aacSamplesPerAU = 1024

	// fallbackVideoFrameDur is the fallback duration of the last video
	// sample when only one frame was written (90kHz units, 30 fps).
	fallbackVideoFrameDur = videoTimeScale / 30

	// preInitAudioBufferMax bounds the audio samples held while the init
	// segment waits for the first video keyframe.
	preInitAudioBufferMax = 256
)

// fmp4WriterConfig carries the fixed track settings and the render
// transform into the container writer.
type fmp4WriterConfig struct {
	Video     VideoEncodingConfig
	Audio     AudioEncodingConfig
	Transform AffineTransform
	Logger    logger.Logger
}

// fmp4Writer muxes one H.264 video track and one AAC audio track into a
// fragmented MP4 file.
//
// The init segment is written as soon as H.264 parameter sets are known:
// eagerly at Start when the video config carries SPS/PPS, otherwise when
// the first keyframe arrives. Video access units before the first keyframe
// are dropped; audio arriving before the init segment is held in a bounded
// buffer and flushed right after it.
//
// Sample durations are derived from the following sample's timestamp, so
// each track keeps one deferred sample until its successor (or Finalize)
// arrives.
type fmp4Writer struct {
	path string
	cfg  fmp4WriterConfig
	log  logger.Logger

	f *os.File
	b *bufio.Writer

	sps []byte
	pps []byte

	initWritten  bool
	seenKeyframe bool
	sequence     uint32

	video        *fmp4TrackWriter
	audio        *fmp4TrackWriter
	preInitAudio *audioSampleBuffer
}

// newFMP4Writer validates the track configuration and creates the output
// file. Any failure is reported as *WriterCreationError, and validation
// happens before the file is touched so a failed construction leaves no
// partial file behind.
func newFMP4Writer(path string, cfg fmp4WriterConfig) (*fmp4Writer, error) {
	if cfg.Video.Codec != VideoCodecH264 {
		return nil, &WriterCreationError{Path: path, Err: fmt.Errorf("unsupported video codec %q", cfg.Video.Codec)}
	}
	if cfg.Audio.Codec != AudioCodecAAC {
		return nil, &WriterCreationError{Path: path, Err: fmt.Errorf("unsupported audio codec %q", cfg.Audio.Codec)}
	}
	if cfg.Audio.SampleRate <= 0 || cfg.Audio.ChannelCount <= 0 {
		return nil, &WriterCreationError{Path: path, Err: fmt.Errorf("invalid audio configuration: %d Hz, %d channels",
			cfg.Audio.SampleRate, cfg.Audio.ChannelCount)}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, &WriterCreationError{Path: path, Err: err}
	}

	w := &fmp4Writer{
		path:         path,
		cfg:          cfg,
		log:          cfg.Logger,
		f:            f,
		b:            bufio.NewWriter(f),
		sps:          cfg.Video.SPS,
		pps:          cfg.Video.PPS,
		preInitAudio: newAudioSampleBuffer(preInitAudioBufferMax),
	}
	w.video = &fmp4TrackWriter{
		id:         videoTrackID,
		timeScale:  videoTimeScale,
		out:        w,
		defaultDur: fallbackVideoFrameDur,
	}
	w.audio = &fmp4TrackWriter{
		id:         audioTrackID,
		timeScale:  uint32(cfg.Audio.SampleRate),
		out:        w,
		defaultDur: aacSamplesPerAU,
	}
	return w, nil
}

// Start writes the init segment immediately when the configuration already
// carries H.264 parameter sets; otherwise the init segment waits for the
// first keyframe.
func (w *fmp4Writer) Start() error {
	if len(w.sps) > 0 && len(w.pps) > 0 {
		return wrapMuxerIO("write init segment", w.writeInit())
	}
	return nil
}

// WriteVideo muxes one H.264 Annex-B access unit. Parameter sets found in
// the stream are collected for the init segment; access units before the
// first keyframe are dropped since a fragment cannot start mid-GOP.
func (w *fmp4Writer) WriteVideo(sample *VideoSample) error {
	nalus, err := h264.AnnexBUnmarshal(sample.Payload)
	if err != nil {
		return fmt.Errorf("parsing video access unit: %w", err)
	}

	for _, nalu := range nalus {
		switch h264.NALUType(nalu[0] & 0x1F) {
		case h264.NALUTypeSPS:
			w.sps = nalu
		case h264.NALUTypePPS:
			w.pps = nalu
		}
	}

	idr := h264.IDRPresent(nalus)

	if !w.initWritten {
		if len(w.sps) == 0 || len(w.pps) == 0 || !idr {
			return nil
		}
		if err := w.writeInit(); err != nil {
			return wrapMuxerIO("write init segment", err)
		}
	}

	if !w.seenKeyframe {
		if !idr {
			return nil
		}
		w.seenKeyframe = true
	}

	avcc, err := h264.AVCCMarshal(nalus)
	if err != nil {
		return fmt.Errorf("building AVCC payload: %w", err)
	}

	dts := durationToScale(sample.PTS, videoTimeScale)
	return wrapMuxerIO("write video sample", w.video.push(dts, avcc, !idr))
}

// WriteAudio muxes one raw AAC access unit. Samples arriving before the
// init segment are buffered and flushed once it is written.
func (w *fmp4Writer) WriteAudio(sample *AudioSample) error {
	if !w.initWritten {
		if !w.preInitAudio.Enqueue(sample) {
			w.log.Warnw("audio buffer full while waiting for first keyframe, dropped oldest sample", nil,
				"path", w.path)
		}
		return nil
	}
	return wrapMuxerIO("write audio sample", w.writeAudioNow(sample))
}

// Finalize flushes the deferred samples on both tracks, writes any
// remaining fragments and closes the file. When no keyframe ever arrived,
// an audio-only init segment is written first so the output stays a valid
// (possibly short) file.
func (w *fmp4Writer) Finalize() (string, error) {
	if err := w.finalizeStreams(); err != nil {
		w.f.Close() //nolint:errcheck
		return "", err
	}
	if err := w.f.Close(); err != nil {
		return "", wrapMuxerIO("close output file", err)
	}
	return w.path, nil
}

func (w *fmp4Writer) finalizeStreams() error {
	if !w.initWritten {
		if err := w.writeInit(); err != nil {
			return wrapMuxerIO("write init segment", err)
		}
	}
	if err := w.video.finish(); err != nil {
		return wrapMuxerIO("flush video track", err)
	}
	if err := w.audio.finish(); err != nil {
		return wrapMuxerIO("flush audio track", err)
	}
	if err := w.b.Flush(); err != nil {
		return wrapMuxerIO("flush output file", err)
	}
	return nil
}

// writeInit marshals the init segment, bakes the render transform into the
// video track header, writes it out and releases any buffered audio. The
// video track is included only when parameter sets are known by now.
func (w *fmp4Writer) writeInit() error {
	hasVideo := len(w.sps) > 0 && len(w.pps) > 0

	var tracks []*fmp4.InitTrack
	if hasVideo {
		tracks = append(tracks, &fmp4.InitTrack{
			ID:        videoTrackID,
			TimeScale: videoTimeScale,
			Codec: &fmp4.CodecH264{
				SPS: w.sps,
				PPS: w.pps,
			},
		})
	}
	tracks = append(tracks, &fmp4.InitTrack{
		ID:        audioTrackID,
		TimeScale: uint32(w.cfg.Audio.SampleRate),
		Codec: &fmp4.CodecMPEG4Audio{
			Config: mpeg4audio.Config{
				Type:         mpeg4audio.ObjectTypeAACLC,
				SampleRate:   w.cfg.Audio.SampleRate,
				ChannelCount: w.cfg.Audio.ChannelCount,
			},
		},
	})

	init := fmp4.Init{Tracks: tracks}

	var buf seekablebuffer.Buffer
	if err := init.Marshal(&buf); err != nil {
		return err
	}

	byts := buf.Bytes()
	if hasVideo && !w.cfg.Transform.IsIdentity() {
		patched, err := patchTrackMatrix(byts, videoTrackID, w.cfg.Transform.Mp4Matrix())
		if err != nil {
			return fmt.Errorf("baking transform into track header: %w", err)
		}
		byts = patched
	}

	if _, err := w.b.Write(byts); err != nil {
		return err
	}
	w.initWritten = true

	w.log.Debugw("init segment written",
		"path", w.path,
		"hasVideo", hasVideo,
		"bufferedAudio", w.preInitAudio.Size())

	for _, s := range w.preInitAudio.Drain() {
		if err := w.writeAudioNow(s); err != nil {
			return err
		}
	}
	return nil
}

func (w *fmp4Writer) writeAudioNow(sample *AudioSample) error {
	dts := durationToScale(sample.PTS, uint32(w.cfg.Audio.SampleRate))
	return w.audio.push(dts, sample.Payload, false)
}

func (w *fmp4Writer) nextSequenceNumber() uint32 {
	w.sequence++
	return w.sequence
}

// fmp4TrackWriter batches the samples of one track into fMP4 parts.
//
// A sample's duration is the gap to its successor, so the most recent
// sample stays deferred until the next push (or finish) supplies the gap.
// Batches are flushed once they cover roughly one second of media.
type fmp4TrackWriter struct {
	id         int
	timeScale  uint32
	out        *fmp4Writer
	defaultDur uint32

	pending      *deferredSample
	lastDuration uint32
	batch        []*fmp4.PartSample
	batchBase    int64
}

type deferredSample struct {
	dts     int64
	payload []byte
	nonSync bool
}

func (t *fmp4TrackWriter) push(dts int64, payload []byte, nonSync bool) error {
	prev := t.pending
	t.pending = &deferredSample{dts: dts, payload: payload, nonSync: nonSync}
	if prev == nil {
		return nil
	}

	dur := dts - prev.dts
	if dur < 0 {
		dur = 0
	}
	t.lastDuration = uint32(dur)
	return t.queue(prev, uint32(dur))
}

func (t *fmp4TrackWriter) queue(s *deferredSample, duration uint32) error {
	if len(t.batch) == 0 {
		t.batchBase = s.dts
	}
	t.batch = append(t.batch, &fmp4.PartSample{
		Duration:        duration,
		IsNonSyncSample: s.nonSync,
		Payload:         s.payload,
	})

	if s.dts+int64(duration)-t.batchBase >= int64(t.timeScale) {
		return t.flushPart()
	}
	return nil
}

func (t *fmp4TrackWriter) flushPart() error {
	if len(t.batch) == 0 {
		return nil
	}

	part := fmp4.Part{
		SequenceNumber: t.out.nextSequenceNumber(),
		Tracks: []*fmp4.PartTrack{{
			ID:       t.id,
			BaseTime: uint64(t.batchBase),
			Samples:  t.batch,
		}},
	}

	var buf seekablebuffer.Buffer
	if err := part.Marshal(&buf); err != nil {
		return err
	}
	if _, err := t.out.b.Write(buf.Bytes()); err != nil {
		return err
	}
	t.batch = nil
	return nil
}

// finish releases the deferred sample, giving it the last observed
// duration (or the track default when it is the only sample), and flushes
// the remaining batch.
func (t *fmp4TrackWriter) finish() error {
	if t.pending != nil {
		dur := t.lastDuration
		if dur == 0 {
			dur = t.defaultDur
		}
		s := t.pending
		t.pending = nil
		if err := t.queue(s, dur); err != nil {
			return err
		}
	}
	return t.flushPart()
}

// patchTrackMatrix rewrites the tkhd matrix of the track with the given ID
// inside a marshaled init segment. The tkhd payload size is unchanged by a
// matrix update, so the patch happens in place on a copy of the segment.
func patchTrackMatrix(init []byte, trackID uint32, matrix [9]int32) ([]byte, error) {
	out := make([]byte, len(init))
	copy(out, init)

	_, err := gomp4.ReadBoxStructure(bytes.NewReader(init), func(h *gomp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case gomp4.BoxTypeMoov(), gomp4.BoxTypeTrak():
			return h.Expand()
		case gomp4.BoxTypeTkhd():
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			tkhd := box.(*gomp4.Tkhd)
			if tkhd.TrackID != trackID {
				return nil, nil
			}
			tkhd.Matrix = matrix

			var buf bytes.Buffer
			if _, err := gomp4.Marshal(&buf, tkhd, h.BoxInfo.Context); err != nil {
				return nil, err
			}
			start := h.BoxInfo.Offset + h.BoxInfo.HeaderSize
			copy(out[start:], buf.Bytes())
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func durationToScale(d time.Duration, scale uint32) int64 {
	return int64(d) * int64(scale) / int64(time.Second)
}

// wrapMuxerIO tags muxer-level failures as *MuxerIOError without
// double-wrapping ones already tagged.
func wrapMuxerIO(op string, err error) error {
	if err == nil {
		return nil
	}
	var ioErr *MuxerIOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &MuxerIOError{Op: op, Err: err}
}
