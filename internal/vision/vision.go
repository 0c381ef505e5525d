// Package vision defines the computer-vision operations shot detection
// depends on: keypoint detection with descriptors, k-nearest-neighbour
// descriptor matching and RANSAC homography estimation. The OpenCV-backed
// implementation lives in the opencv subpackage.
package vision

import (
	"errors"
	"image"
)

// ErrIncompatibleDescriptors is returned by a Matcher asked to compare
// descriptor sets of different element types or widths.
var ErrIncompatibleDescriptors = errors.New("incompatible descriptor sets")

// Point is a position in image coordinates.
type Point struct {
	X, Y float64
}

// KeyPoint is a detected feature location.
type KeyPoint struct {
	Point
	Size     float64
	Angle    float64
	Response float64
	Octave   int
}

// Descriptors is an opaque set of feature descriptors, one per keypoint.
// Implementations may hold native memory and must be closed.
type Descriptors interface {
	Len() int
	Close() error
}

// Features is the result of detecting and describing one frame.
type Features struct {
	KeyPoints   []KeyPoint
	Descriptors Descriptors
}

// Empty reports whether no usable features were found.
func (f Features) Empty() bool {
	return len(f.KeyPoints) == 0 || f.Descriptors == nil || f.Descriptors.Len() == 0
}

// Close releases the descriptor memory.
func (f Features) Close() error {
	if f.Descriptors == nil {
		return nil
	}
	return f.Descriptors.Close()
}

// Match is one nearest-neighbour candidate: QueryIdx indexes the first frame's
// keypoints, TrainIdx the second's.
type Match struct {
	QueryIdx int
	TrainIdx int
	Distance float64
}

// Homography is a row-major 3x3 projective transform.
type Homography [9]float64

// Project maps p through the transform.
func (h Homography) Project(p Point) Point {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 {
		return Point{}
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// Detector finds keypoints and computes their descriptors.
type Detector interface {
	DetectAndDescribe(img *image.Gray) (Features, error)
}

// Matcher returns, for every query descriptor, up to k nearest train
// descriptors ordered by ascending distance.
type Matcher interface {
	KnnMatch(query, train Descriptors, k int) ([][]Match, error)
}

// Estimator fits a homography mapping src onto dst with RANSAC. A nil model
// means no non-degenerate transform was found. The mask has one entry per
// point pair and is true for inliers.
type Estimator interface {
	FindHomography(src, dst []Point, threshold float64) (*Homography, []bool, error)
}

// Toolkit bundles the three operations together with whatever native
// resources back them.
type Toolkit struct {
	Detector  Detector
	Matcher   Matcher
	Estimator Estimator

	closers []func() error
}

// NewToolkit assembles a toolkit. Each closer runs once from Close.
func NewToolkit(d Detector, m Matcher, e Estimator, closers ...func() error) *Toolkit {
	return &Toolkit{Detector: d, Matcher: m, Estimator: e, closers: closers}
}

// Close releases native resources held by the toolkit.
func (t *Toolkit) Close() error {
	var errs []error
	for _, c := range t.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	t.closers = nil
	return errors.Join(errs...)
}
