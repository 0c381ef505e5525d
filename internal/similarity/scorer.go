// Package similarity scores how much of one frame's content reappears,
// geometrically consistent, in the next frame.
package similarity

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuongvomanh/detect-shot/internal/correspond"
	"github.com/cuongvomanh/detect-shot/internal/frames"
	"github.com/cuongvomanh/detect-shot/internal/vision"
)

// ErrInvalidOptions is returned by New for out-of-range options.
var ErrInvalidOptions = errors.New("invalid similarity options")

// MinCorrespondences is the fewest point pairs a homography can be fit to.
const MinCorrespondences = 4

// DefaultRANSACThreshold is the reprojection error, in pixels, under which a
// correspondence counts as an inlier.
const DefaultRANSACThreshold = 5.0

// Options tunes the scorer.
type Options struct {
	Ratio           float64
	RANSACThreshold float64
}

// DefaultOptions returns the standard ratio test and RANSAC settings.
func DefaultOptions() Options {
	return Options{
		Ratio:           correspond.DefaultRatio,
		RANSACThreshold: DefaultRANSACThreshold,
	}
}

// Result is the similarity of one adjacent frame pair. Ratio is the inlier
// fraction in [0, 1]. Defined is false when too few correspondences survived
// the ratio test or no homography was found; Ratio is then 0.
type Result struct {
	Ratio   float64
	Defined bool

	FeaturesA int
	FeaturesB int
	Matches   int
	Inliers   int

	Correspondences []correspond.Correspondence
	InlierMask      []bool
	Homography      *vision.Homography
}

// Scorer computes pairwise similarity. It keeps no state between calls.
type Scorer struct {
	detector  vision.Detector
	matcher   vision.Matcher
	estimator vision.Estimator
	opts      Options
}

// Validate rejects a ratio outside (0, 1] and a non-positive threshold.
func (o Options) Validate() error {
	if o.Ratio <= 0 || o.Ratio > 1 {
		return fmt.Errorf("%w: ratio must be in (0, 1], got %g", ErrInvalidOptions, o.Ratio)
	}
	if o.RANSACThreshold <= 0 {
		return fmt.Errorf("%w: ransac threshold must be positive, got %g", ErrInvalidOptions, o.RANSACThreshold)
	}
	return nil
}

// New creates a scorer over the given vision operations.
func New(d vision.Detector, m vision.Matcher, e vision.Estimator, opts Options) (*Scorer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{detector: d, matcher: m, estimator: e, opts: opts}, nil
}

// NewFromToolkit creates a scorer over a toolkit's operations.
func NewFromToolkit(tk *vision.Toolkit, opts Options) (*Scorer, error) {
	return New(tk.Detector, tk.Matcher, tk.Estimator, opts)
}

// Describe detects the features of one frame. The caller closes the result.
func (s *Scorer) Describe(f frames.Frame) (vision.Features, error) {
	feats, err := s.detector.DetectAndDescribe(f.Image)
	if err != nil {
		return vision.Features{}, fmt.Errorf("frame %d: %w", f.Index, err)
	}
	return feats, nil
}

// Score detects features in both frames and compares them.
func (s *Scorer) Score(ctx context.Context, a, b frames.Frame) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	fa, err := s.Describe(a)
	if err != nil {
		return Result{}, err
	}
	defer fa.Close()

	fb, err := s.Describe(b)
	if err != nil {
		return Result{}, err
	}
	defer fb.Close()

	return s.Compare(fa, fb)
}

// Compare scores two already described frames.
func (s *Scorer) Compare(a, b vision.Features) (Result, error) {
	res := Result{
		FeaturesA: len(a.KeyPoints),
		FeaturesB: len(b.KeyPoints),
	}
	if a.Empty() || b.Empty() {
		return res, nil
	}

	candidates, err := s.matcher.KnnMatch(a.Descriptors, b.Descriptors, 2)
	if err != nil {
		return Result{}, fmt.Errorf("match: %w", err)
	}

	res.Correspondences = correspond.Filter(a.KeyPoints, b.KeyPoints, candidates, s.opts.Ratio)
	res.Matches = len(res.Correspondences)
	if res.Matches < MinCorrespondences {
		return res, nil
	}

	src, dst := correspond.Points(res.Correspondences)
	model, mask, err := s.estimator.FindHomography(src, dst, s.opts.RANSACThreshold)
	if err != nil {
		return Result{}, fmt.Errorf("homography: %w", err)
	}
	if model == nil {
		return res, nil
	}

	res.Homography = model
	res.InlierMask = mask
	for _, in := range mask {
		if in {
			res.Inliers++
		}
	}
	res.Ratio = float64(res.Inliers) / float64(res.Matches)
	res.Defined = true
	return res, nil
}
