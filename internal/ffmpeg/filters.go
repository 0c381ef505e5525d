package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterBuilder assembles a -vf filter chain. Steps given out-of-range
// arguments are left out, so calls can be chained unconditionally.
type FilterBuilder struct {
	steps []string
}

// NewFilterBuilder creates an empty chain
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{}
}

func (fb *FilterBuilder) add(name string, args ...string) *FilterBuilder {
	step := name
	if len(args) > 0 {
		step += "=" + strings.Join(args, ":")
	}
	fb.steps = append(fb.steps, step)
	return fb
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Scale resizes to exactly width x height
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	return fb.add("scale", strconv.Itoa(width), strconv.Itoa(height))
}

// FPS resamples to a constant frame rate
func (fb *FilterBuilder) FPS(fps float64) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	return fb.add("fps", num(fps))
}

// Format converts the pixel format
func (fb *FilterBuilder) Format(pixFmt string) *FilterBuilder {
	if pixFmt == "" {
		return fb
	}
	return fb.add("format", pixFmt)
}

// PadEven pads both dimensions up to the next even number, which yuv420p
// output requires.
func (fb *FilterBuilder) PadEven() *FilterBuilder {
	return fb.add("pad", "ceil(iw/2)*2", "ceil(ih/2)*2")
}

// SceneSelect keeps only frames whose scene change score exceeds threshold
// and logs each with showinfo.
func (fb *FilterBuilder) SceneSelect(threshold float64) *FilterBuilder {
	return fb.add("select", fmt.Sprintf("'gt(scene,%s)'", num(threshold))).add("showinfo")
}

// Build joins the chain with commas. An empty chain builds to "".
func (fb *FilterBuilder) Build() string {
	return strings.Join(fb.steps, ",")
}
