// Package store persists analysis results: the retained frames, the cut and
// gradual interval lists and the per-pair scores.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cuongvomanh/detect-shot/internal/frames"
	"github.com/cuongvomanh/detect-shot/internal/pipeline"
	"github.com/cuongvomanh/detect-shot/internal/shot"
)

// Report is the persisted form of one analysis run.
type Report struct {
	ID         string               `json:"id" yaml:"id"`
	Source     string               `json:"source" yaml:"source"`
	Feature    string               `json:"feature" yaml:"feature"`
	Params     shot.Params          `json:"params" yaml:"params"`
	FrameCount int                  `json:"frame_count" yaml:"frame_count"`
	Stopped    bool                 `json:"stopped" yaml:"stopped"`
	CreatedAt  time.Time            `json:"created_at" yaml:"created_at"`
	Elapsed    time.Duration        `json:"elapsed" yaml:"elapsed"`
	Cuts       []shot.Interval      `json:"cuts" yaml:"cuts"`
	Graduals   []shot.Interval      `json:"graduals" yaml:"graduals"`
	Scores     []pipeline.PairScore `json:"scores" yaml:"scores"`

	// Frames are written as images, not inline.
	Frames []frames.Frame `json:"-" yaml:"-"`
}

// NewReport converts a pipeline result under a fresh run ID.
func NewReport(source, feature string, res *pipeline.Result) *Report {
	r := &Report{
		ID:         uuid.NewString(),
		Source:     source,
		Feature:    feature,
		Params:     res.Params,
		FrameCount: len(res.Frames),
		Stopped:    res.Stopped,
		CreatedAt:  res.StartedAt.UTC(),
		Elapsed:    res.Elapsed,
		Cuts:       res.Cuts,
		Graduals:   res.Graduals,
		Scores:     res.Scores,
		Frames:     res.Frames,
	}
	if r.Cuts == nil {
		r.Cuts = []shot.Interval{}
	}
	if r.Graduals == nil {
		r.Graduals = []shot.Interval{}
	}
	return r
}

// Intervals returns cuts and graduals merged by start position.
func (r *Report) Intervals() []shot.Interval {
	return shot.Merge(r.Cuts, r.Graduals)
}

// Sink persists reports.
type Sink interface {
	Save(ctx context.Context, r *Report) error
	Close() error
}
