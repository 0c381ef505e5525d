// Package visiontest provides in-memory vision implementations for tests.
package visiontest

import (
	"errors"
	"image"
	"sync/atomic"

	"github.com/cuongvomanh/detect-shot/internal/vision"
)

// Descriptors is a fake descriptor set tagged with the scene it came from.
type Descriptors struct {
	N      int
	Scene  uint8
	Kind   string
	closed *atomic.Int64
}

func (d *Descriptors) Len() int { return d.N }

func (d *Descriptors) Close() error {
	if d.closed != nil {
		d.closed.Add(1)
	}
	return nil
}

// SceneDetector reports PerFrame keypoints for every image and tags the
// descriptors with the gray value of the top-left pixel, which tests use as
// a scene identifier. A zero PerFrame yields empty feature sets.
type SceneDetector struct {
	PerFrame int
	Kind     string
	Err      error

	Closed atomic.Int64
	Calls  atomic.Int64
}

func (d *SceneDetector) DetectAndDescribe(img *image.Gray) (vision.Features, error) {
	d.Calls.Add(1)
	if d.Err != nil {
		return vision.Features{}, d.Err
	}
	if img == nil {
		return vision.Features{}, errors.New("nil image")
	}
	kps := make([]vision.KeyPoint, d.PerFrame)
	for i := range kps {
		kps[i] = vision.KeyPoint{Point: vision.Point{X: float64(i * 3 % 97), Y: float64(i * 7 % 89)}}
	}
	return vision.Features{
		KeyPoints:   kps,
		Descriptors: &Descriptors{N: d.PerFrame, Scene: img.GrayAt(0, 0).Y, Kind: d.Kind, closed: &d.Closed},
	}, nil
}

// SceneMatcher returns two candidates per query descriptor. Descriptors from
// the same scene get a distinctive best match; different scenes get an
// ambiguous pair the ratio test rejects.
type SceneMatcher struct {
	Calls atomic.Int64
}

func (m *SceneMatcher) KnnMatch(query, train vision.Descriptors, k int) ([][]vision.Match, error) {
	m.Calls.Add(1)
	q, ok := query.(*Descriptors)
	if !ok {
		return nil, vision.ErrIncompatibleDescriptors
	}
	t, ok := train.(*Descriptors)
	if !ok || q.Kind != t.Kind {
		return nil, vision.ErrIncompatibleDescriptors
	}

	best := 9.0
	if q.Scene == t.Scene {
		best = 1.0
	}
	out := make([][]vision.Match, q.N)
	for i := range out {
		j := i % t.N
		set := []vision.Match{{QueryIdx: i, TrainIdx: j, Distance: best}}
		if k > 1 && t.N > 1 {
			set = append(set, vision.Match{QueryIdx: i, TrainIdx: (j + 1) % t.N, Distance: 10})
		}
		out[i] = set
	}
	return out, nil
}

// Estimator marks the first Inliers correspondences as inliers, or all of
// them when Inliers is negative. NoModel makes it report a degenerate fit.
type Estimator struct {
	Inliers int
	NoModel bool
	Err     error

	Calls atomic.Int64
}

func (e *Estimator) FindHomography(src, dst []vision.Point, threshold float64) (*vision.Homography, []bool, error) {
	e.Calls.Add(1)
	if e.Err != nil {
		return nil, nil, e.Err
	}
	mask := make([]bool, len(src))
	if e.NoModel {
		return nil, mask, nil
	}
	for i := range mask {
		mask[i] = e.Inliers < 0 || i < e.Inliers
	}
	h := vision.Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
	return &h, mask, nil
}

// SceneFrame returns a w x h image filled with the scene value.
func SceneFrame(scene uint8, w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = scene
	}
	return img
}
