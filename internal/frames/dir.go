package frames

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nfnt/resize"

	"github.com/cuongvomanh/detect-shot/pkg/util"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// DirSource reads still images from a directory in lexical filename order.
type DirSource struct {
	paths    []string
	maxWidth int
	fps      float64
	pos      int
}

// NewDirSource lists the images in dir. fps, when positive, is used to
// timestamp frames.
func NewDirSource(dir string, maxWidth int, fps float64) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	sort.Strings(paths)

	return &DirSource{paths: paths, maxWidth: maxWidth, fps: fps}, nil
}

// Len returns the number of images in the directory.
func (s *DirSource) Len() int {
	return len(s.paths)
}

func (s *DirSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.paths) {
		return Frame{}, io.EOF
	}

	path := s.paths[s.pos]
	img, err := decodeFile(path)
	if err != nil {
		return Frame{}, err
	}

	if b := img.Bounds(); s.maxWidth > 0 && b.Dx() > s.maxWidth {
		w, h := ScaledSize(b.Dx(), b.Dy(), s.maxWidth)
		img = resize.Resize(uint(w), uint(h), img, resize.Bilinear)
	}

	f := Frame{Index: s.pos, Image: ToGray(img)}
	if s.fps > 0 {
		f.Timestamp = util.FrameTime(s.pos, s.fps)
	}
	s.pos++
	return f, nil
}

func (s *DirSource) Close() error { return nil }

func decodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
