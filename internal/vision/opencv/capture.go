//go:build withcv

package opencv

import (
	"context"
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"

	"github.com/cuongvomanh/detect-shot/internal/frames"
	"github.com/cuongvomanh/detect-shot/pkg/util"
)

// CaptureSource decodes a video with OpenCV's VideoCapture.
type CaptureSource struct {
	capture  *gocv.VideoCapture
	frame    gocv.Mat
	gray     gocv.Mat
	fps      float64
	maxWidth int
	index    int
}

// NewCaptureSource opens path for reading. Frames wider than maxWidth are
// downscaled when maxWidth > 0.
func NewCaptureSource(path string, maxWidth int) (frames.Source, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open capture %s: not opened", path)
	}

	return &CaptureSource{
		capture:  capture,
		frame:    gocv.NewMat(),
		gray:     gocv.NewMat(),
		fps:      capture.Get(gocv.VideoCaptureFPS),
		maxWidth: maxWidth,
	}, nil
}

// Next decodes the next frame. It returns io.EOF once the capture is drained.
func (s *CaptureSource) Next(ctx context.Context) (frames.Frame, error) {
	if err := ctx.Err(); err != nil {
		return frames.Frame{}, err
	}
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return frames.Frame{}, io.EOF
	}

	if s.frame.Channels() == 1 {
		s.frame.CopyTo(&s.gray)
	} else {
		gocv.CvtColor(s.frame, &s.gray, gocv.ColorBGRToGray)
	}

	if s.maxWidth > 0 && s.gray.Cols() > s.maxWidth {
		w, h := frames.ScaledSize(s.gray.Cols(), s.gray.Rows(), s.maxWidth)
		resized := gocv.NewMat()
		gocv.Resize(s.gray, &resized, image.Point{X: w, Y: h}, 0, 0, gocv.InterpolationArea)
		s.gray.Close()
		s.gray = resized
	}

	img, err := s.gray.ToImage()
	if err != nil {
		return frames.Frame{}, fmt.Errorf("frame %d: %w", s.index, err)
	}

	f := frames.Frame{
		Index: s.index,
		Image: frames.ToGray(img),
	}
	if s.fps > 0 {
		f.Timestamp = util.FrameTime(s.index, s.fps)
	}
	s.index++
	return f, nil
}

// Close releases the capture and its buffers.
func (s *CaptureSource) Close() error {
	s.frame.Close()
	s.gray.Close()
	return s.capture.Close()
}
