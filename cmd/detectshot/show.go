package main

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cuongvomanh/detect-shot/internal/config"
	"github.com/cuongvomanh/detect-shot/internal/ffmpeg"
	"github.com/cuongvomanh/detect-shot/internal/logging"
	"github.com/cuongvomanh/detect-shot/internal/overlays"
	"github.com/cuongvomanh/detect-shot/internal/store"
	"github.com/cuongvomanh/detect-shot/pkg/util"
)

var showCmd = &cobra.Command{
	Use:   "show [results dir]",
	Short: "Print saved boundaries and optionally render marked frames",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	f := showCmd.Flags()
	f.String("render", "", "write every frame to this directory with boundary frames outlined")
	f.String("video", "", "encode the rendered frames into this video file (needs --render)")
	f.Float64("fps", ffmpeg.DefaultFPS, "frame rate of the rendered video")
	f.Bool("scores", false, "also print per-pair scores")
}

func runShow(cmd *cobra.Command, args []string) error {
	dir := args[0]
	report, err := store.Load(dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printReport(out, report)

	if withScores, _ := cmd.Flags().GetBool("scores"); withScores {
		printScores(out, report)
	}

	renderDir, _ := cmd.Flags().GetString("render")
	videoPath, _ := cmd.Flags().GetString("video")
	if renderDir == "" {
		if videoPath != "" {
			return fmt.Errorf("--video needs --render")
		}
		return nil
	}

	if err := renderFrames(dir, renderDir, report); err != nil {
		return err
	}
	if videoPath == "" {
		return nil
	}

	cfg := config.FromContext(cmd.Context())
	ff, err := newExecutor(cfg)
	if err != nil {
		return err
	}
	fps, _ := cmd.Flags().GetFloat64("fps")
	return ff.EncodeSequence(cmd.Context(), ffmpeg.EncodeOptions{
		Pattern: filepath.Join(renderDir, "frame_%06d.png"),
		Output:  videoPath,
		FPS:     fps,
		ProgressFunc: func(p *ffmpeg.Progress) {
			log.Debug().Int("frame", p.Frame).Str("speed", p.Speed).Msg("encoding")
		},
	})
}

func printReport(w io.Writer, r *store.Report) {
	fmt.Fprintf(w, "run:      %s\n", r.ID)
	fmt.Fprintf(w, "source:   %s\n", r.Source)
	fmt.Fprintf(w, "feature:  %s\n", r.Feature)
	fmt.Fprintf(w, "window:   %d  upper: %.2f  lower: %.2f\n", r.Params.WindowSize, r.Params.UpperDelta, r.Params.LowerDelta)
	fmt.Fprintf(w, "frames:   %d  elapsed: %s\n", r.FrameCount, util.FormatDuration(r.Elapsed))
	if r.Stopped {
		fmt.Fprintln(w, "run was stopped before the end of the source")
	}
	fmt.Fprintf(w, "cuts:     %d\ngraduals: %d\n\n", len(r.Cuts), len(r.Graduals))

	for _, iv := range r.Intervals() {
		line := iv.String()
		if iv.Open() {
			line += "  (unterminated)"
		}
		fmt.Fprintln(w, line)
	}
}

func printScores(w io.Writer, r *store.Report) {
	fmt.Fprintln(w)
	for _, s := range r.Scores {
		score := fmt.Sprintf("%.3f", s.Score)
		if !s.Defined {
			score = "  -  "
		}
		fmt.Fprintf(w, "%6d  %6d->%-6d  %s  inliers %4d/%-4d  dev %.3f\n",
			s.Position, s.From, s.To, score, s.Inliers, s.Matches, s.Deviation)
	}
}

// renderFrames copies every saved frame into outDir, outlining the frames at
// interval edges in their palette color.
func renderFrames(resultsDir, outDir string, r *store.Report) error {
	if err := util.EnsureDir(outDir); err != nil {
		return err
	}

	marks := overlays.DefaultPalette().Marks(r.Intervals())
	for i := 0; i < r.FrameCount; i++ {
		img, err := store.LoadFrame(resultsDir, i)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("frame %d missing from %s; rerun analyze with frame saving enabled", i, resultsDir)
		}
		if err != nil {
			return err
		}

		if c, ok := marks[i]; ok {
			img = overlays.MarkFrame(img, c, borderWidth(img.Bounds()))
		}
		if err := util.SavePNG(filepath.Join(outDir, fmt.Sprintf("frame_%06d.png", i)), img); err != nil {
			return err
		}
	}

	logger := logging.WithComponent("viewer")
	logger.Info().Int("frames", r.FrameCount).Int("marked", len(marks)).Str("dir", outDir).Msg("rendered frames")
	return nil
}

func borderWidth(b image.Rectangle) int {
	return max(4, min(b.Dx(), b.Dy())/40)
}
