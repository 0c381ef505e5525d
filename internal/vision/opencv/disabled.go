//go:build !withcv

package opencv

import (
	"github.com/rs/zerolog"

	"github.com/cuongvomanh/detect-shot/internal/features"
	"github.com/cuongvomanh/detect-shot/internal/frames"
	"github.com/cuongvomanh/detect-shot/internal/vision"
)

// New always fails in builds without OpenCV.
func New(spec features.Spec, logger zerolog.Logger) (*vision.Toolkit, error) {
	return nil, ErrUnavailable
}

// NewCaptureSource always fails in builds without OpenCV.
func NewCaptureSource(path string, maxWidth int) (frames.Source, error) {
	return nil, ErrUnavailable
}
