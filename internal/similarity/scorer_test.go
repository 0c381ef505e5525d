package similarity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongvomanh/detect-shot/internal/frames"
	"github.com/cuongvomanh/detect-shot/internal/vision"
	"github.com/cuongvomanh/detect-shot/internal/vision/visiontest"
)

func frame(i int, scene uint8) frames.Frame {
	return frames.Frame{Index: i, Image: visiontest.SceneFrame(scene, 16, 16)}
}

func mustNew(t *testing.T, d vision.Detector, m vision.Matcher, e vision.Estimator, opts Options) *Scorer {
	t.Helper()
	s, err := New(d, m, e, opts)
	require.NoError(t, err)
	return s
}

func TestNewRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero ratio", Options{Ratio: 0, RANSACThreshold: 5}},
		{"ratio above one", Options{Ratio: 1.2, RANSACThreshold: 5}},
		{"negative threshold", Options{Ratio: 0.75, RANSACThreshold: -1}},
		{"zero threshold", Options{Ratio: 0.75}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(&visiontest.SceneDetector{}, &visiontest.SceneMatcher{}, &visiontest.Estimator{}, tt.opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
			assert.Nil(t, s)
		})
	}

	_, err := New(&visiontest.SceneDetector{}, &visiontest.SceneMatcher{}, &visiontest.Estimator{}, Options{Ratio: 1, RANSACThreshold: 0.5})
	assert.NoError(t, err)
}

func TestScoreSameScene(t *testing.T) {
	est := &visiontest.Estimator{Inliers: 7}
	s := mustNew(t, &visiontest.SceneDetector{PerFrame: 10}, &visiontest.SceneMatcher{}, est, DefaultOptions())

	res, err := s.Score(context.Background(), frame(0, 1), frame(1, 1))
	require.NoError(t, err)

	assert.True(t, res.Defined)
	assert.Equal(t, 10, res.Matches)
	assert.Equal(t, 7, res.Inliers)
	assert.InDelta(t, 0.7, res.Ratio, 1e-9)
	assert.Len(t, res.InlierMask, 10)
	assert.NotNil(t, res.Homography)
}

func TestScoreDifferentScenes(t *testing.T) {
	est := &visiontest.Estimator{Inliers: -1}
	s := mustNew(t, &visiontest.SceneDetector{PerFrame: 10}, &visiontest.SceneMatcher{}, est, DefaultOptions())

	res, err := s.Score(context.Background(), frame(0, 1), frame(1, 2))
	require.NoError(t, err)

	assert.False(t, res.Defined)
	assert.Zero(t, res.Ratio)
	assert.Zero(t, res.Matches)
	assert.Zero(t, est.Calls.Load(), "estimator must not run below four correspondences")
}

func TestScoreTooFewCorrespondences(t *testing.T) {
	est := &visiontest.Estimator{Inliers: -1}
	s := mustNew(t, &visiontest.SceneDetector{PerFrame: 3}, &visiontest.SceneMatcher{}, est, DefaultOptions())

	res, err := s.Score(context.Background(), frame(0, 5), frame(1, 5))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Matches)
	assert.Zero(t, res.Ratio)
	assert.False(t, res.Defined)
	assert.Zero(t, est.Calls.Load())
}

func TestScoreExactlyFour(t *testing.T) {
	est := &visiontest.Estimator{Inliers: 4}
	s := mustNew(t, &visiontest.SceneDetector{PerFrame: 4}, &visiontest.SceneMatcher{}, est, DefaultOptions())

	res, err := s.Score(context.Background(), frame(0, 5), frame(1, 5))
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Ratio)
	assert.EqualValues(t, 1, est.Calls.Load())
}

func TestScoreEmptyFeatures(t *testing.T) {
	m := &visiontest.SceneMatcher{}
	s := mustNew(t, &visiontest.SceneDetector{}, m, &visiontest.Estimator{}, DefaultOptions())

	res, err := s.Score(context.Background(), frame(0, 1), frame(1, 1))
	require.NoError(t, err)
	assert.Zero(t, res.Ratio)
	assert.Zero(t, m.Calls.Load())
}

func TestScoreNoModel(t *testing.T) {
	s := mustNew(t, &visiontest.SceneDetector{PerFrame: 8}, &visiontest.SceneMatcher{}, &visiontest.Estimator{NoModel: true}, DefaultOptions())

	res, err := s.Score(context.Background(), frame(0, 1), frame(1, 1))
	require.NoError(t, err)
	assert.False(t, res.Defined)
	assert.Zero(t, res.Ratio)
	assert.Equal(t, 8, res.Matches)
}

func TestScoreIdenticalFramesAllInliers(t *testing.T) {
	s := mustNew(t, &visiontest.SceneDetector{PerFrame: 50}, &visiontest.SceneMatcher{}, &visiontest.Estimator{Inliers: -1}, DefaultOptions())

	f := frame(0, 9)
	res, err := s.Score(context.Background(), f, f)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Ratio)
}

func TestScoreErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("detector", func(t *testing.T) {
		s := mustNew(t, &visiontest.SceneDetector{Err: boom}, &visiontest.SceneMatcher{}, &visiontest.Estimator{}, DefaultOptions())
		_, err := s.Score(context.Background(), frame(0, 1), frame(1, 1))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("estimator", func(t *testing.T) {
		s := mustNew(t, &visiontest.SceneDetector{PerFrame: 6}, &visiontest.SceneMatcher{}, &visiontest.Estimator{Err: boom}, DefaultOptions())
		_, err := s.Score(context.Background(), frame(0, 1), frame(1, 1))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("incompatible descriptors", func(t *testing.T) {
		s := mustNew(t, &visiontest.SceneDetector{PerFrame: 6}, &visiontest.SceneMatcher{}, &visiontest.Estimator{}, DefaultOptions())
		a := vision.Features{
			KeyPoints:   make([]vision.KeyPoint, 6),
			Descriptors: &visiontest.Descriptors{N: 6, Kind: "orb"},
		}
		b := vision.Features{
			KeyPoints:   make([]vision.KeyPoint, 6),
			Descriptors: &visiontest.Descriptors{N: 6, Kind: "sift"},
		}
		_, err := s.Compare(a, b)
		assert.ErrorIs(t, err, vision.ErrIncompatibleDescriptors)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := mustNew(t, &visiontest.SceneDetector{PerFrame: 6}, &visiontest.SceneMatcher{}, &visiontest.Estimator{}, DefaultOptions())
		_, err := s.Score(ctx, frame(0, 1), frame(1, 1))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestScoreReleasesDescriptors(t *testing.T) {
	d := &visiontest.SceneDetector{PerFrame: 6}
	s := mustNew(t, d, &visiontest.SceneMatcher{}, &visiontest.Estimator{Inliers: -1}, DefaultOptions())

	_, err := s.Score(context.Background(), frame(0, 1), frame(1, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 2, d.Closed.Load())
}
