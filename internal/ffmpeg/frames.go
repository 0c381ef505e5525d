package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/cuongvomanh/detect-shot/internal/frames"
	"github.com/cuongvomanh/detect-shot/pkg/util"
)

// GraySource decodes a video into 8-bit grayscale frames through an ffmpeg
// rawvideo pipe.
type GraySource struct {
	exec   *Executor
	proc   *Process
	width  int
	height int
	fps    float64
	max    int
	index  int
	done   bool
}

// OpenGray probes input and starts decoding it.
func (e *Executor) OpenGray(ctx context.Context, input string, opts DecodeOptions) (*GraySource, error) {
	info, err := e.ProbeVideo(ctx, input)
	if err != nil {
		return nil, err
	}

	w, h := frames.ScaledSize(info.Width, info.Height, opts.MaxWidth)
	fps := info.FPS
	if opts.SampleFPS > 0 {
		fps = opts.SampleFPS
	}

	fb := NewFilterBuilder().FPS(opts.SampleFPS)
	if w != info.Width || h != info.Height {
		fb.Scale(w, h)
	}
	fb.Format("gray")

	args := []string{"-i", input, "-an", "-sn", "-vf", fb.Build()}
	if opts.MaxFrames > 0 {
		args = append(args, "-frames:v", fmt.Sprintf("%d", opts.MaxFrames))
	}
	args = append(args, "-f", "rawvideo", "-pix_fmt", "gray", "pipe:1")

	proc, err := e.Stream(ctx, RunOptions{
		Args: args,
		ProgressHandler: func(p *Progress) {
			e.logger.Debug().Int("frame", p.Frame).Str("time", p.Time).Str("speed", p.Speed).Msg("decode progress")
		},
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("input", input).
		Int("width", w).
		Int("height", h).
		Float64("fps", fps).
		Msg("decoding video")

	return &GraySource{
		exec:   e,
		proc:   proc,
		width:  w,
		height: h,
		fps:    fps,
		max:    opts.MaxFrames,
	}, nil
}

// Size returns the decoded frame dimensions.
func (s *GraySource) Size() (int, int) {
	return s.width, s.height
}

// Next reads one frame from the pipe. It returns io.EOF after the last frame,
// or the ffmpeg failure if decoding stopped early.
func (s *GraySource) Next(ctx context.Context) (frames.Frame, error) {
	if s.done {
		return frames.Frame{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return frames.Frame{}, err
	}

	img := image.NewGray(image.Rect(0, 0, s.width, s.height))
	_, err := io.ReadFull(s.proc.Stdout, img.Pix)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
		if werr := s.proc.Wait(); werr != nil {
			if ctx.Err() != nil {
				return frames.Frame{}, ctx.Err()
			}
			return frames.Frame{}, fmt.Errorf("decode frame %d: %w", s.index, werr)
		}
		return frames.Frame{}, io.EOF
	default:
		return frames.Frame{}, fmt.Errorf("decode frame %d: %w", s.index, err)
	}

	f := frames.Frame{Index: s.index, Image: img}
	if s.fps > 0 {
		f.Timestamp = util.FrameTime(s.index, s.fps)
	}
	s.index++
	return f, nil
}

// Close stops ffmpeg if it is still running.
func (s *GraySource) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.proc.Kill()
}
