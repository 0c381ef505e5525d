package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongvomanh/detect-shot/internal/config"
	"github.com/cuongvomanh/detect-shot/internal/frames"
	"github.com/cuongvomanh/detect-shot/internal/overlays"
	"github.com/cuongvomanh/detect-shot/internal/pipeline"
	"github.com/cuongvomanh/detect-shot/internal/shot"
	"github.com/cuongvomanh/detect-shot/internal/store"
	"github.com/cuongvomanh/detect-shot/pkg/util"
)

func testResult(n int) *pipeline.Result {
	six := 6
	res := &pipeline.Result{
		Params:   shot.DefaultParams(),
		Cuts:     []shot.Interval{{Kind: shot.Cut, Start: 5, End: &six}},
		Graduals: []shot.Interval{{Kind: shot.Gradual, Start: 8}},
	}
	for i := 0; i < n; i++ {
		img := image.NewGray(image.Rect(0, 0, 16, 12))
		res.Frames = append(res.Frames, frames.Frame{Index: i, Image: img, Timestamp: util.FrameTime(i, 25)})
	}
	return res
}

func TestPrintIntervals(t *testing.T) {
	var buf bytes.Buffer
	printIntervals(&buf, testResult(10))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "CUT"))
	assert.NotContains(t, lines[0], "unterminated")
	assert.True(t, strings.HasPrefix(lines[1], "GRADUAL"))
	assert.Contains(t, lines[1], "(unterminated)")

	buf.Reset()
	printIntervals(&buf, &pipeline.Result{})
	assert.Equal(t, "no boundaries detected\n", buf.String())
}

func TestRenderFrames(t *testing.T) {
	results := t.TempDir()
	fs, err := store.NewFileStore(zerolog.Nop(), results, store.FormatJSON, true)
	require.NoError(t, err)
	require.NoError(t, fs.Save(context.Background(), store.NewReport("clip.mp4", "brisk", testResult(10))))

	report, err := store.Load(results)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "render")
	require.NoError(t, renderFrames(results, out, report))

	palette := overlays.DefaultPalette()
	cutStart, _ := palette.Get(shot.Cut, overlays.Start)

	for i := 0; i < 10; i++ {
		assert.True(t, util.FileExists(filepath.Join(out, fmt.Sprintf("frame_%06d.png", i))), "frame %d", i)
	}

	marked, err := loadPNG(filepath.Join(out, "frame_000005.png"))
	require.NoError(t, err)
	assert.Equal(t, color.RGBAModel.Convert(cutStart), color.RGBAModel.Convert(marked.At(0, 0)))

	plain, err := loadPNG(filepath.Join(out, "frame_000002.png"))
	require.NoError(t, err)
	r, g, b, _ := plain.At(0, 0).RGBA()
	assert.Zero(t, r+g+b)
}

func TestRenderFramesWithoutSavedFrames(t *testing.T) {
	results := t.TempDir()
	fs, err := store.NewFileStore(zerolog.Nop(), results, store.FormatYAML, false)
	require.NoError(t, err)
	require.NoError(t, fs.Save(context.Background(), store.NewReport("clip.mp4", "orb", testResult(3))))

	report, err := store.Load(results)
	require.NoError(t, err)
	err = renderFrames(results, t.TempDir(), report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame 0 missing")
}

func TestApplyAnalyzeFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "analyze"}
	addAnalyzeFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--feature", "orb-flann", "--window", "7", "--no-frames", "-o", "/tmp/x"}))

	cfg := config.Default()
	applyAnalyzeFlags(cmd, cfg)
	assert.Equal(t, "orb-flann", cfg.Features.Name)
	assert.Equal(t, 7, cfg.Classifier.WindowSize)
	assert.False(t, cfg.Output.SaveFrames)
	assert.Equal(t, "/tmp/x", cfg.Output.Dir)
	assert.Equal(t, shot.DefaultUpperDelta, cfg.Classifier.UpperDelta)
}

func TestBorderWidth(t *testing.T) {
	assert.Equal(t, 4, borderWidth(image.Rect(0, 0, 64, 48)))
	assert.Equal(t, 27, borderWidth(image.Rect(0, 0, 1920, 1080)))
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
