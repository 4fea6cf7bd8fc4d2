package recorder

// FrameSize is the pixel dimensions of incoming video frames.
type FrameSize struct {
	Width  int
	Height int
}

// VideoCodec identifies the video compression format of the output track.
type VideoCodec string

const (
	// VideoCodecH264 is the default (and currently only bundled) video codec.
	VideoCodecH264 VideoCodec = "h264"
)

// AudioCodec identifies the audio compression format of the output track.
type AudioCodec string

const (
	// AudioCodecAAC is AAC-LC, the default audio codec.
	AudioCodecAAC AudioCodec = "aac"
)

// ScalingMode describes how source frames are fitted to the target
// dimensions by the encoding engine.
type ScalingMode string

const (
	// ScalingModeResizeAspectFill scales preserving aspect ratio, cropping
	// whatever overflows the target rectangle.
	ScalingModeResizeAspectFill ScalingMode = "resize-aspect-fill"
)

// VideoEncodingConfig is the fixed encoding configuration of the video
// track. It is decided at construction time; callers needing different
// settings pass their own config rather than overriding per call.
type VideoEncodingConfig struct {
	// Codec selects the video compression format.
	Codec VideoCodec

	// Width and Height are the output dimensions in pixels.
	Width  int
	Height int

	// ScalingMode controls how frames are fitted to Width x Height.
	ScalingMode ScalingMode

	// SPS and PPS are optional H.264 parameter sets. When provided, the
	// container writer can emit its init segment before the first frame
	// arrives; when absent, parameter sets are extracted from the first
	// keyframe in the stream.
	SPS []byte
	PPS []byte
}

// DefaultVideoEncoding returns the stock video configuration for the given
// frame size: H.264 at the source dimensions with aspect-fill scaling.
func DefaultVideoEncoding(size FrameSize) VideoEncodingConfig {
	return VideoEncodingConfig{
		Codec:       VideoCodecH264,
		Width:       size.Width,
		Height:      size.Height,
		ScalingMode: ScalingModeResizeAspectFill,
	}
}

// AudioEncodingConfig is the fixed encoding configuration of the audio
// track.
type AudioEncodingConfig struct {
	// Codec selects the audio compression format.
	Codec AudioCodec

	// Bitrate is the target bitrate in bits per second.
	Bitrate int

	// SampleRate is the sampling frequency in Hz. It is also used as the
	// audio track's container timescale.
	SampleRate int

	// ChannelCount is the number of audio channels.
	ChannelCount int
}

// DefaultAudioEncoding returns the stock audio configuration:
// mono AAC-LC at 44.1 kHz and 128 kbps.
func DefaultAudioEncoding() AudioEncodingConfig {
	return AudioEncodingConfig{
		Codec:        AudioCodecAAC,
		Bitrate:      128000,
		SampleRate:   44100,
		ChannelCount: 1,
	}
}
