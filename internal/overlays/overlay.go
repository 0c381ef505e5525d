// Package overlays draws diagnostic images: matched keypoints between two
// frames, and frames marked as lying on a shot boundary.
package overlays

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/cuongvomanh/detect-shot/internal/correspond"
	"github.com/cuongvomanh/detect-shot/internal/shot"
	"github.com/cuongvomanh/detect-shot/internal/vision"
)

var (
	Inlier  = color.RGBA{G: 255, A: 255}
	Outlier = color.RGBA{R: 255, A: 255}
	Outline = color.RGBA{R: 236, G: 103, B: 51, A: 255}
)

// Edge is the start or end frame of an interval.
type Edge int

const (
	Start Edge = iota
	End
)

// Marker is the color a boundary frame is painted with.
type Marker struct {
	Kind  shot.Kind
	Edge  Edge
	Color color.RGBA
}

// Palette maps each boundary edge to its marker color.
type Palette struct {
	markers map[shot.Kind]map[Edge]color.RGBA
}

// DefaultPalette paints cut starts magenta, cut ends yellow, gradual starts
// blue and gradual ends red.
func DefaultPalette() *Palette {
	p := &Palette{markers: make(map[shot.Kind]map[Edge]color.RGBA)}
	p.Register(Marker{Kind: shot.Cut, Edge: Start, Color: color.RGBA{R: 255, B: 255, A: 255}})
	p.Register(Marker{Kind: shot.Cut, Edge: End, Color: color.RGBA{R: 255, G: 255, A: 255}})
	p.Register(Marker{Kind: shot.Gradual, Edge: Start, Color: color.RGBA{B: 255, A: 255}})
	p.Register(Marker{Kind: shot.Gradual, Edge: End, Color: color.RGBA{R: 255, A: 255}})
	return p
}

// Register sets the color for a marker's kind and edge.
func (p *Palette) Register(m Marker) {
	if p.markers[m.Kind] == nil {
		p.markers[m.Kind] = make(map[Edge]color.RGBA)
	}
	p.markers[m.Kind][m.Edge] = m.Color
}

// Get returns the color for kind and edge.
func (p *Palette) Get(kind shot.Kind, edge Edge) (color.RGBA, bool) {
	c, ok := p.markers[kind][edge]
	return c, ok
}

// Marks assigns a marker to every frame index touched by the intervals.
// Open intervals only mark their start. When two edges land on the same
// frame the later interval wins.
func (p *Palette) Marks(intervals []shot.Interval) map[int]color.RGBA {
	marks := make(map[int]color.RGBA)
	for _, iv := range intervals {
		if c, ok := p.Get(iv.Kind, Start); ok {
			marks[iv.Start] = c
		}
		if iv.End != nil {
			if c, ok := p.Get(iv.Kind, End); ok {
				marks[*iv.End] = c
			}
		}
	}
	return marks
}

// MarkFrame returns a color copy of img with a border of width px in c.
func MarkFrame(img image.Image, c color.Color, width int) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	r := out.Bounds()
	src := image.NewUniform(c)
	draw.Draw(out, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), src, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
	return out
}

// RenderMatches draws a and b side by side. Inlier correspondences are green
// dots joined by a line, outliers are red crosses, and when a homography is
// known the outline of a is projected into b.
func RenderMatches(a, b image.Image, cs []correspond.Correspondence, inliers []bool, h *vision.Homography) *image.RGBA {
	ab, bb := a.Bounds(), b.Bounds()
	w1 := ab.Dx()
	height := ab.Dy()
	if bb.Dy() > height {
		height = bb.Dy()
	}

	vis := image.NewRGBA(image.Rect(0, 0, w1+bb.Dx(), height))
	draw.Draw(vis, image.Rect(0, 0, w1, ab.Dy()), a, ab.Min, draw.Src)
	draw.Draw(vis, image.Rect(w1, 0, w1+bb.Dx(), bb.Dy()), b, bb.Min, draw.Src)

	if h != nil {
		corners := []vision.Point{
			{X: 0, Y: 0},
			{X: float64(w1), Y: 0},
			{X: float64(w1), Y: float64(ab.Dy())},
			{X: 0, Y: float64(ab.Dy())},
		}
		for i := range corners {
			p := h.Project(corners[i])
			q := h.Project(corners[(i+1)%len(corners)])
			line(vis, int(p.X)+w1, int(p.Y), int(q.X)+w1, int(q.Y), Outline)
		}
	}

	for i, c := range cs {
		x1, y1 := int(c.From.X), int(c.From.Y)
		x2, y2 := int(c.To.X)+w1, int(c.To.Y)
		if i < len(inliers) && inliers[i] {
			dot(vis, x1, y1, 2, Inlier)
			dot(vis, x2, y2, 2, Inlier)
			line(vis, x1, y1, x2, y2, Inlier)
		} else {
			cross(vis, x1, y1, 2, Outlier)
			cross(vis, x2, y2, 2, Outlier)
		}
	}
	return vis
}

// line draws a one pixel Bresenham line, clipped to the image.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	errv := dx + dy
	bounds := img.Bounds()
	for steps := 0; steps <= dx-dy; steps++ {
		if (image.Point{X: x0, Y: y0}).In(bounds) {
			img.SetRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * errv
		if e2 >= dy {
			errv += dy
			x0 += sx
		}
		if e2 <= dx {
			errv += dx
			y0 += sy
		}
	}
}

func dot(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	bounds := img.Bounds()
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r && (image.Point{X: x, Y: y}).In(bounds) {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func cross(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	for t := -1; t <= 1; t++ {
		line(img, cx-r+t, cy-r, cx+r+t, cy+r, c)
		line(img, cx-r+t, cy+r, cx+r+t, cy-r, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
