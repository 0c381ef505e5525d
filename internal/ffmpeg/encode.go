package ffmpeg

import (
	"context"
	"fmt"
)

// EncodeSequence encodes a numbered image sequence, such as
// "frames/frame_%06d.png", into an H.264 video.
func (e *Executor) EncodeSequence(ctx context.Context, opts EncodeOptions) error {
	if opts.Pattern == "" {
		return fmt.Errorf("input pattern is required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	fps := opts.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	crf := opts.CRF
	if crf == 0 {
		crf = DefaultCRF
	}

	e.logger.Info().
		Str("pattern", opts.Pattern).
		Str("output", opts.Output).
		Float64("fps", fps).
		Msg("encoding frame sequence")

	args := []string{
		"-framerate", fmt.Sprintf("%f", fps),
		"-i", opts.Pattern,
		"-vf", NewFilterBuilder().PadEven().Format("yuv420p").Build(),
		"-c:v", DefaultVideoCodec,
		"-crf", fmt.Sprintf("%d", crf),
		opts.Output,
	}

	return e.Run(ctx, RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("encode")
		},
	})
}
