// Package opencv implements the vision interfaces on top of gocv. The
// implementation is only compiled with the withcv build tag; without it every
// constructor returns ErrUnavailable.
package opencv

import "errors"

// ErrUnavailable is returned when the binary was built without OpenCV.
var ErrUnavailable = errors.New("built without OpenCV support; rebuild with -tags withcv")

// Default RANSAC parameters, matching cv::findHomography.
const (
	ransacMaxIters   = 2000
	ransacConfidence = 0.995
)
