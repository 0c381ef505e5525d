// Package frames provides the frame type and the pull-based sources that feed
// the detection pipeline.
package frames

import (
	"context"
	"image"
	"image/draw"
	"io"
	"time"
)

// Frame is one decoded grayscale video frame. Frames are not modified after
// a source hands them out.
type Frame struct {
	Index     int
	Image     *image.Gray
	Timestamp time.Duration
}

// Source yields frames in order. Next returns io.EOF when the stream ends;
// any other error is a decode failure.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// SliceSource serves frames from memory.
type SliceSource struct {
	frames []Frame
	pos    int
}

// NewSliceSource returns a source over imgs, indexed from zero.
func NewSliceSource(imgs ...*image.Gray) *SliceSource {
	s := &SliceSource{frames: make([]Frame, len(imgs))}
	for i, img := range imgs {
		s.frames[i] = Frame{Index: i, Image: img}
	}
	return s
}

func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *SliceSource) Close() error { return nil }

// ToGray converts img to an 8-bit grayscale image.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// ScaledSize returns the dimensions of a w x h frame scaled down to maxWidth,
// keeping the aspect ratio and an even height. Frames already narrow enough
// are returned unchanged.
func ScaledSize(w, h, maxWidth int) (int, int) {
	if maxWidth <= 0 || w <= maxWidth {
		return w, h
	}
	nh := h * maxWidth / w
	if nh%2 == 1 {
		nh++
	}
	if nh < 2 {
		nh = 2
	}
	return maxWidth, nh
}
