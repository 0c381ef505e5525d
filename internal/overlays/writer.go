package overlays

import (
	"fmt"
	"path/filepath"

	"github.com/cuongvomanh/detect-shot/internal/frames"
	"github.com/cuongvomanh/detect-shot/internal/similarity"
	"github.com/cuongvomanh/detect-shot/pkg/util"
)

// Writer saves match visualizations as PNG files in a directory.
type Writer struct {
	dir string
}

// NewWriter creates dir if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := util.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create overlay dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// WritePair renders the matches between a and b to match_<a>_<b>.png.
func (w *Writer) WritePair(a, b frames.Frame, res similarity.Result) error {
	vis := RenderMatches(a.Image, b.Image, res.Correspondences, res.InlierMask, res.Homography)
	name := fmt.Sprintf("match_%06d_%06d.png", a.Index, b.Index)
	return util.SavePNG(filepath.Join(w.dir, name), vis)
}
