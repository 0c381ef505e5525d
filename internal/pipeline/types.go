package pipeline

import (
	"time"

	"github.com/cuongvomanh/detect-shot/internal/frames"
	"github.com/cuongvomanh/detect-shot/internal/shot"
	"github.com/cuongvomanh/detect-shot/internal/similarity"
)

// Result is what one run produced. Frames holds every frame pulled from the
// source in order. Scores has one entry per adjacent pair; interval positions
// index into it. Stopped is set when the run ended before the source was
// exhausted, in which case open intervals are left open.
type Result struct {
	Frames   []frames.Frame
	Scores   []PairScore
	Cuts     []shot.Interval
	Graduals []shot.Interval

	Params    shot.Params
	Stopped   bool
	StartedAt time.Time
	Elapsed   time.Duration
}

// PairScore is the similarity of frames From and To together with the
// classifier's view of it.
type PairScore struct {
	Position  int     `json:"position" yaml:"position"`
	From      int     `json:"from" yaml:"from"`
	To        int     `json:"to" yaml:"to"`
	Score     float64 `json:"score" yaml:"score"`
	Defined   bool    `json:"defined" yaml:"defined"`
	Matches   int     `json:"matches" yaml:"matches"`
	Inliers   int     `json:"inliers" yaml:"inliers"`
	FeaturesA int     `json:"features_a" yaml:"features_a"`
	FeaturesB int     `json:"features_b" yaml:"features_b"`
	Baseline  float64 `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	Deviation float64 `json:"deviation,omitempty" yaml:"deviation,omitempty"`
}

// Intervals returns cuts and graduals merged by start position.
func (r *Result) Intervals() []shot.Interval {
	return shot.Merge(r.Cuts, r.Graduals)
}

// Config holds pipeline-specific configuration
type Config struct {
	Classifier shot.Params
	// MaxFrames stops the run after this many frames. Zero means no limit.
	MaxFrames int
	Recorder  Recorder
	// OnPair, when set, is called after every scored pair.
	OnPair PairHook
}

// Recorder receives progress metrics.
type Recorder interface {
	RecordFrame()
	RecordPair(score float64, defined bool, elapsed time.Duration)
	RecordTransition(kind, transition string)
}

// PairHook observes a scored pair. Errors are logged and do not stop the run.
type PairHook func(a, b frames.Frame, res similarity.Result) error

type nopRecorder struct{}

func (nopRecorder) RecordFrame()                              {}
func (nopRecorder) RecordPair(float64, bool, time.Duration)   {}
func (nopRecorder) RecordTransition(kind, transition string) {}
