package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuongvomanh/detect-shot/internal/frames"
	"github.com/cuongvomanh/detect-shot/internal/shot"
	"github.com/cuongvomanh/detect-shot/internal/similarity"
	"github.com/cuongvomanh/detect-shot/internal/vision"
)

// FrameScorer describes frames and compares described frames.
type FrameScorer interface {
	Describe(f frames.Frame) (vision.Features, error)
	Compare(a, b vision.Features) (similarity.Result, error)
}

// Pipeline pulls frames, scores adjacent pairs and classifies the score
// stream into boundary intervals.
type Pipeline struct {
	logger zerolog.Logger
	scorer FrameScorer
	config Config
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, scorer FrameScorer, cfg Config) (*Pipeline, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	if err := cfg.Classifier.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxFrames < 0 {
		return nil, fmt.Errorf("max frames must not be negative, got %d", cfg.MaxFrames)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}

	return &Pipeline{
		logger: logger.With().Str("component", "pipeline").Logger(),
		scorer: scorer,
		config: cfg,
	}, nil
}

// Run consumes src until it is exhausted, ctx is canceled or the frame limit
// is reached. A read or scoring failure aborts the run and no result is
// returned. Cancellation is not an error: the result collected so far comes
// back with Stopped set.
func (p *Pipeline) Run(ctx context.Context, src frames.Source) (*Result, error) {
	classifier, err := shot.New(p.config.Classifier)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Params:    p.config.Classifier,
		StartedAt: time.Now(),
	}

	p.logger.Info().
		Int("window", res.Params.WindowSize).
		Float64("upper_delta", res.Params.UpperDelta).
		Float64("lower_delta", res.Params.LowerDelta).
		Msg("starting shot boundary detection")

	var (
		prev     frames.Frame
		prevFeat vision.Features
		havePrev bool
	)
	defer func() {
		if havePrev {
			prevFeat.Close()
		}
	}()

	for {
		if ctx.Err() != nil {
			res.Stopped = true
			break
		}
		if p.config.MaxFrames > 0 && len(res.Frames) >= p.config.MaxFrames {
			res.Stopped = true
			break
		}

		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				res.Stopped = true
				break
			}
			return nil, fmt.Errorf("read frame %d: %w", len(res.Frames), err)
		}

		res.Frames = append(res.Frames, frame)
		p.config.Recorder.RecordFrame()

		start := time.Now()
		feat, err := p.scorer.Describe(frame)
		if err != nil {
			return nil, fmt.Errorf("describe frame %d: %w", frame.Index, err)
		}

		if havePrev {
			sim, err := p.scorer.Compare(prevFeat, feat)
			if err != nil {
				feat.Close()
				return nil, fmt.Errorf("score frames %d-%d: %w", prev.Index, frame.Index, err)
			}
			p.push(classifier, res, prev, frame, sim, time.Since(start))
			prevFeat.Close()
		}

		prev, prevFeat, havePrev = frame, feat, true
	}

	res.Cuts = classifier.Cuts()
	res.Graduals = classifier.Graduals()
	res.Elapsed = time.Since(res.StartedAt)

	event := p.logger.Info()
	if res.Stopped {
		event = p.logger.Warn().Bool("stopped", true)
	}
	event.
		Int("frames", len(res.Frames)).
		Int("pairs", len(res.Scores)).
		Int("cuts", len(res.Cuts)).
		Int("graduals", len(res.Graduals)).
		Dur("elapsed", res.Elapsed).
		Msg("shot boundary detection complete")

	return res, nil
}

func (p *Pipeline) push(c *shot.Classifier, res *Result, a, b frames.Frame, sim similarity.Result, elapsed time.Duration) {
	step := c.Push(sim.Ratio)

	res.Scores = append(res.Scores, PairScore{
		Position:  step.Position,
		From:      a.Index,
		To:        b.Index,
		Score:     sim.Ratio,
		Defined:   sim.Defined,
		Matches:   sim.Matches,
		Inliers:   sim.Inliers,
		FeaturesA: sim.FeaturesA,
		FeaturesB: sim.FeaturesB,
		Baseline:  step.Baseline,
		Deviation: step.Deviation,
	})
	p.config.Recorder.RecordPair(sim.Ratio, sim.Defined, elapsed)

	if sim.Matches < similarity.MinCorrespondences {
		p.logger.Debug().
			Int("position", step.Position).
			Int("features_a", sim.FeaturesA).
			Int("features_b", sim.FeaturesB).
			Int("matches", sim.Matches).
			Msg("not enough matches for homography estimation")
	} else {
		p.logger.Debug().
			Int("position", step.Position).
			Int("features_a", sim.FeaturesA).
			Int("features_b", sim.FeaturesB).
			Int("inliers", sim.Inliers).
			Int("matches", sim.Matches).
			Float64("score", sim.Ratio).
			Dur("elapsed", elapsed).
			Msg("pair scored")
	}

	if step.Transition != shot.None {
		p.logger.Info().
			Str("kind", step.Kind.String()).
			Str("transition", step.Transition.String()).
			Int("position", step.Position).
			Dur("at", b.Timestamp).
			Float64("deviation", step.Deviation).
			Msg("boundary")
		p.config.Recorder.RecordTransition(step.Kind.String(), step.Transition.String())
	}

	if p.config.OnPair != nil {
		if err := p.config.OnPair(a, b, sim); err != nil {
			p.logger.Warn().Err(err).Int("position", step.Position).Msg("pair hook failed")
		}
	}
}
