package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	Frames     int
	VideoCodec string
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame int
	FPS   float64
	Time  string
	Speed string
	Done  bool
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
type ProgressFunc func(*Progress)

// DecodeOptions controls how a video is turned into grayscale frames.
type DecodeOptions struct {
	// MaxWidth downscales wider videos, keeping the aspect ratio. Zero keeps
	// the native size.
	MaxWidth int
	// SampleFPS resamples the video to a fixed frame rate. Zero keeps every
	// decoded frame.
	SampleFPS float64
	// MaxFrames stops decoding after this many frames. Zero means no limit.
	MaxFrames int
}

// EncodeOptions configures encoding an image sequence into a video.
type EncodeOptions struct {
	Pattern      string
	Output       string
	FPS          float64
	CRF          int
	ProgressFunc ProgressFunc
}

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultVideoCodec = "libx264"
	DefaultFPS        = 25
)
