package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/cuongvomanh/detect-shot/internal/frames"
	"github.com/cuongvomanh/detect-shot/pkg/util"
)

// Formats supported by FileStore.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const (
	reportBase  = "boundaries"
	framesDir   = "frames"
	framePrefix = "frame_"
)

// FramePattern is the printf pattern of saved frame files, relative to the
// results directory.
var FramePattern = filepath.Join(framesDir, framePrefix+"%06d.png")

// FileStore writes reports into a results directory.
type FileStore struct {
	dir        string
	format     string
	saveFrames bool
	logger     zerolog.Logger
}

// NewFileStore validates the format. Frames are written only when
// saveFrames is set.
func NewFileStore(logger zerolog.Logger, dir, format string, saveFrames bool) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &FileStore{
		dir:        dir,
		format:     format,
		saveFrames: saveFrames,
		logger:     logger.With().Str("component", "store").Logger(),
	}, nil
}

// Dir returns the results directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes the report and, if enabled, every retained frame.
func (s *FileStore) Save(ctx context.Context, r *Report) error {
	if err := util.EnsureDir(s.dir); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if s.saveFrames && len(r.Frames) > 0 {
		if err := s.writeFrames(ctx, r.Frames); err != nil {
			return err
		}
	}

	var (
		data []byte
		err  error
	)
	if s.format == FormatYAML {
		data, err = yaml.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(s.dir, reportBase+"."+s.format)
	if err := util.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	s.logger.Info().
		Str("path", path).
		Int("cuts", len(r.Cuts)).
		Int("graduals", len(r.Graduals)).
		Bool("frames", s.saveFrames).
		Msg("results saved")
	return nil
}

func (s *FileStore) writeFrames(ctx context.Context, fs []frames.Frame) error {
	dir := filepath.Join(s.dir, framesDir)
	if err := util.EnsureDir(dir); err != nil {
		return fmt.Errorf("create frames dir: %w", err)
	}
	for _, f := range fs {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(s.dir, fmt.Sprintf(FramePattern, f.Index))
		if err := util.SavePNG(path, f.Image); err != nil {
			return fmt.Errorf("write frame %d: %w", f.Index, err)
		}
	}
	s.logger.Debug().Int("frames", len(fs)).Str("dir", dir).Msg("frames saved")
	return nil
}

func (s *FileStore) Close() error { return nil }

// Load reads the report from a results directory, trying JSON then YAML.
func Load(dir string) (*Report, error) {
	for _, format := range []string{FormatJSON, FormatYAML} {
		path := filepath.Join(dir, reportBase+"."+format)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}

		var r Report
		if format == FormatYAML {
			err = yaml.Unmarshal(data, &r)
		} else {
			err = json.Unmarshal(data, &r)
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
		return &r, nil
	}
	return nil, fmt.Errorf("no %s.json or %s.yaml in %s", reportBase, reportBase, dir)
}

// LoadFrame reads a saved frame from a results directory.
func LoadFrame(dir string, index int) (image.Image, error) {
	f, err := os.Open(filepath.Join(dir, fmt.Sprintf(FramePattern, index)))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
