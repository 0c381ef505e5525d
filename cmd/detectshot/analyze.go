package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cuongvomanh/detect-shot/internal/config"
	"github.com/cuongvomanh/detect-shot/internal/ffmpeg"
	"github.com/cuongvomanh/detect-shot/internal/frames"
	"github.com/cuongvomanh/detect-shot/internal/metrics"
	"github.com/cuongvomanh/detect-shot/internal/overlays"
	"github.com/cuongvomanh/detect-shot/internal/pipeline"
	"github.com/cuongvomanh/detect-shot/internal/similarity"
	"github.com/cuongvomanh/detect-shot/internal/store"
	"github.com/cuongvomanh/detect-shot/internal/vision/opencv"
	"github.com/cuongvomanh/detect-shot/pkg/util"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [video file or frame directory]",
	Short: "Detect cuts and gradual transitions",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	addAnalyzeFlags(analyzeCmd)
}

func addAnalyzeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("feature", "", "feature detector, e.g. sift, orb, brisk-flann")
	f.Int("window", 0, "classifier window size")
	f.Float64("upper", 0, "deviation that opens a cut")
	f.Float64("lower", 0, "deviation below which open intervals close")
	f.String("source", "", "frame source: auto, ffmpeg, images, opencv")
	f.Int("max-width", 0, "downscale frames wider than this")
	f.Float64("sample-fps", 0, "resample video to this frame rate")
	f.Int("max-frames", 0, "stop after this many frames")
	f.StringP("output", "o", "", "results directory")
	f.String("format", "", "report format: json or yaml")
	f.Bool("no-frames", false, "do not save frame images")
	f.String("overlays", "", "write match visualizations for every pair to this directory")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	f.Float64("reference", 0, "compare cuts with ffmpeg scene detection at this threshold")
	f.Duration("reference-tolerance", 200*time.Millisecond, "how far a cut may be from a reference scene change")
}

// applyAnalyzeFlags copies explicitly set flags over the loaded config.
func applyAnalyzeFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	flt := func(name string, dst *float64) {
		if f.Changed(name) {
			*dst, _ = f.GetFloat64(name)
		}
	}

	str("feature", &cfg.Features.Name)
	num("window", &cfg.Classifier.WindowSize)
	flt("upper", &cfg.Classifier.UpperDelta)
	flt("lower", &cfg.Classifier.LowerDelta)
	str("source", &cfg.Source.Kind)
	num("max-width", &cfg.Source.MaxWidth)
	flt("sample-fps", &cfg.Source.SampleFPS)
	num("max-frames", &cfg.Source.MaxFrames)
	flt("reference", &cfg.Source.ReferenceThreshold)
	str("output", &cfg.Output.Dir)
	str("format", &cfg.Output.Format)
	str("overlays", &cfg.Output.OverlaysDir)
	str("metrics-addr", &cfg.Metrics.Addr)
	if f.Changed("no-frames") {
		noFrames, _ := f.GetBool("no-frames")
		cfg.Output.SaveFrames = !noFrames
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	applyAnalyzeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	input := args[0]

	spec, err := cfg.FeatureSpec()
	if err != nil {
		return err
	}

	// Store problems surface before any frame is decoded.
	sink, err := openSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer sink.Close()

	toolkit, err := opencv.New(spec, log.Logger)
	if err != nil {
		return err
	}
	defer toolkit.Close()

	scorer, err := similarity.NewFromToolkit(toolkit, similarity.Options{
		Ratio:           cfg.Matching.Ratio,
		RANSACThreshold: cfg.Matching.RANSACThreshold,
	})
	if err != nil {
		return err
	}

	src, err := openSource(ctx, cfg, input)
	if err != nil {
		return err
	}
	defer src.Close()

	collector := metrics.NewCollector(cfg.Metrics.Namespace, log.Logger)
	if cfg.Metrics.Addr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := collector.Serve(metricsCtx, cfg.Metrics.Addr); err != nil {
				log.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("metrics server stopped")
			}
		}()
	}

	pipeCfg := pipeline.Config{
		Classifier: cfg.Classifier,
		MaxFrames:  cfg.Source.MaxFrames,
		Recorder:   collector,
	}
	if cfg.Output.OverlaysDir != "" {
		w, err := overlays.NewWriter(cfg.Output.OverlaysDir)
		if err != nil {
			return err
		}
		pipeCfg.OnPair = w.WritePair
	}

	pipe, err := pipeline.New(log.Logger, scorer, pipeCfg)
	if err != nil {
		return err
	}

	log.Info().
		Str("input", input).
		Str("feature", spec.String()).
		Int("window", cfg.Classifier.WindowSize).
		Msg("analyzing")

	res, err := runAndSave(ctx, pipe, src, sink, input, spec.String())
	if err != nil {
		return err
	}

	printIntervals(cmd.OutOrStdout(), res)

	log.Info().
		Int("frames", len(res.Frames)).
		Int("cuts", len(res.Cuts)).
		Int("graduals", len(res.Graduals)).
		Bool("stopped", res.Stopped).
		Str("elapsed", util.FormatDuration(res.Elapsed)).
		Str("output", cfg.Output.Dir).
		Msg("analysis complete")

	if cfg.Source.ReferenceThreshold > 0 && !res.Stopped {
		tolerance, _ := cmd.Flags().GetDuration("reference-tolerance")
		return compareWithReference(ctx, cmd.OutOrStdout(), cfg, input, res, tolerance)
	}
	return nil
}

// runAndSave runs the pipeline and saves what it produced. A run stopped by
// cancellation is still saved.
func runAndSave(ctx context.Context, pipe *pipeline.Pipeline, src frames.Source, sink store.Sink, input, feature string) (*pipeline.Result, error) {
	res, err := pipe.Run(ctx, src)
	if err != nil {
		return nil, err
	}

	if err := sink.Save(context.WithoutCancel(ctx), store.NewReport(input, feature, res)); err != nil {
		return nil, fmt.Errorf("save results: %w", err)
	}
	return res, nil
}

func newExecutor(cfg *config.Config) (*ffmpeg.Executor, error) {
	return ffmpeg.New(log.Logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
	})
}

func openSource(ctx context.Context, cfg *config.Config, input string) (frames.Source, error) {
	kind := cfg.Source.Kind
	if kind == config.SourceAuto {
		kind = config.SourceFFmpeg
		if util.IsDir(input) {
			kind = config.SourceImages
		}
	}

	switch kind {
	case config.SourceImages:
		fps := cfg.Source.SampleFPS
		if fps <= 0 {
			fps = ffmpeg.DefaultFPS
		}
		src, err := frames.NewDirSource(input, cfg.Source.MaxWidth, fps)
		if err != nil {
			return nil, err
		}
		log.Info().Int("images", src.Len()).Msg("reading frame directory")
		return src, nil
	case config.SourceOpenCV:
		return opencv.NewCaptureSource(input, cfg.Source.MaxWidth)
	default:
		ff, err := newExecutor(cfg)
		if err != nil {
			return nil, err
		}
		src, err := ff.OpenGray(ctx, input, ffmpeg.DecodeOptions{
			MaxWidth:  cfg.Source.MaxWidth,
			SampleFPS: cfg.Source.SampleFPS,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

func openSink(ctx context.Context, cfg *config.Config) (store.Sink, error) {
	files, err := store.NewFileStore(log.Logger, cfg.Output.Dir, cfg.Output.Format, cfg.Output.SaveFrames)
	if err != nil {
		return nil, err
	}
	if cfg.Store.PostgresDSN == "" {
		return files, nil
	}

	pg, err := store.NewPostgresStore(ctx, log.Logger, cfg.Store.PostgresDSN)
	if err != nil {
		return nil, err
	}
	return store.Multi{files, pg}, nil
}

func printIntervals(w io.Writer, res *pipeline.Result) {
	intervals := res.Intervals()
	if len(intervals) == 0 {
		fmt.Fprintln(w, "no boundaries detected")
		return
	}

	for _, iv := range intervals {
		line := iv.String()
		if iv.Start+1 < len(res.Frames) {
			line += "  at " + util.FormatDuration(res.Frames[iv.Start+1].Timestamp)
		}
		if iv.Open() {
			line += "  (unterminated)"
		}
		fmt.Fprintln(w, line)
	}
}

func compareWithReference(ctx context.Context, w io.Writer, cfg *config.Config, input string, res *pipeline.Result, tolerance time.Duration) error {
	if util.IsDir(input) {
		log.Warn().Msg("reference comparison needs a video input, skipping")
		return nil
	}

	ff, err := newExecutor(cfg)
	if err != nil {
		return err
	}
	scenes, err := ff.DetectScenes(ctx, input, cfg.Source.ReferenceThreshold)
	if err != nil {
		return err
	}

	report := pipeline.CompareReference(res, scenes, tolerance)
	fmt.Fprintf(w, "reference: %d scene changes, %d cuts, %d matched\n", report.Reference, report.Detected, report.Matched)
	for _, t := range report.Missed {
		fmt.Fprintf(w, "  missed %s\n", util.FormatDuration(t))
	}
	return nil
}
