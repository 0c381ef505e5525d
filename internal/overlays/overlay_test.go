package overlays

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongvomanh/detect-shot/internal/correspond"
	"github.com/cuongvomanh/detect-shot/internal/frames"
	"github.com/cuongvomanh/detect-shot/internal/shot"
	"github.com/cuongvomanh/detect-shot/internal/similarity"
	"github.com/cuongvomanh/detect-shot/internal/vision"
)

func gray(w, h int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, w, h))
}

func TestRenderMatches(t *testing.T) {
	a, b := gray(40, 30), gray(40, 20)
	cs := []correspond.Correspondence{
		{From: vision.Point{X: 10, Y: 10}, To: vision.Point{X: 12, Y: 10}},
		{From: vision.Point{X: 30, Y: 5}, To: vision.Point{X: 5, Y: 15}},
	}

	vis := RenderMatches(a, b, cs, []bool{true, false}, nil)

	assert.Equal(t, image.Rect(0, 0, 80, 30), vis.Bounds())
	assert.Equal(t, Inlier, vis.RGBAAt(10, 10))
	assert.Equal(t, Inlier, vis.RGBAAt(52, 10))
	assert.Equal(t, Inlier, vis.RGBAAt(30, 10), "inliers are joined by a line")
	assert.Equal(t, Outlier, vis.RGBAAt(30, 5))
	assert.Equal(t, Outlier, vis.RGBAAt(45, 15))
}

func TestRenderMatchesDoesNotMutateFrames(t *testing.T) {
	a, b := gray(20, 20), gray(20, 20)
	cs := []correspond.Correspondence{{From: vision.Point{X: 5, Y: 5}, To: vision.Point{X: 5, Y: 5}}}
	h := vision.Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}

	RenderMatches(a, b, cs, []bool{true}, &h)

	for _, img := range []*image.Gray{a, b} {
		for _, px := range img.Pix {
			require.Zero(t, px)
		}
	}
}

func TestLineClipsToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	line(img, -5, -5, 20, 20, Inlier)
	assert.Equal(t, Inlier, img.RGBAAt(0, 0))
	assert.Equal(t, Inlier, img.RGBAAt(9, 9))
}

func TestMarkFrame(t *testing.T) {
	img := gray(20, 10)
	magenta := color.RGBA{R: 255, B: 255, A: 255}

	out := MarkFrame(img, magenta, 2)
	assert.Equal(t, magenta, out.RGBAAt(0, 0))
	assert.Equal(t, magenta, out.RGBAAt(19, 9))
	assert.Equal(t, magenta, out.RGBAAt(1, 5))
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(10, 5))
}

func TestPaletteMarks(t *testing.T) {
	six := 6
	intervals := []shot.Interval{
		{Kind: shot.Cut, Start: 5, End: &six},
		{Kind: shot.Gradual, Start: 12},
	}

	p := DefaultPalette()
	marks := p.Marks(intervals)

	require.Len(t, marks, 3)
	cutStart, _ := p.Get(shot.Cut, Start)
	cutEnd, _ := p.Get(shot.Cut, End)
	gradStart, _ := p.Get(shot.Gradual, Start)
	assert.Equal(t, cutStart, marks[5])
	assert.Equal(t, cutEnd, marks[6])
	assert.Equal(t, gradStart, marks[12])
}

func TestWriterWritesPNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "overlays")
	w, err := NewWriter(dir)
	require.NoError(t, err)

	a := frames.Frame{Index: 3, Image: gray(8, 8)}
	b := frames.Frame{Index: 4, Image: gray(8, 8)}
	require.NoError(t, w.WritePair(a, b, similarity.Result{}))

	_, err = os.Stat(filepath.Join(dir, "match_000003_000004.png"))
	assert.NoError(t, err)
}
