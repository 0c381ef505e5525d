package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cuongvomanh/detect-shot/internal/correspond"
	"github.com/cuongvomanh/detect-shot/internal/features"
	"github.com/cuongvomanh/detect-shot/internal/shot"
	"github.com/cuongvomanh/detect-shot/internal/similarity"
)

type contextKey string

const configKey contextKey = "config"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Source kinds.
const (
	SourceAuto   = "auto"
	SourceFFmpeg = "ffmpeg"
	SourceImages = "images"
	SourceOpenCV = "opencv"
)

// Config holds all application configuration
type Config struct {
	Log        LogConfig      `yaml:"log"`
	Features   FeaturesConfig `yaml:"features"`
	Matching   MatchingConfig `yaml:"matching"`
	Classifier shot.Params    `yaml:"classifier"`
	Source     SourceConfig   `yaml:"source"`
	Output     OutputConfig   `yaml:"output"`
	FFmpeg     FFmpegConfig   `yaml:"ffmpeg"`
	Store      StoreConfig    `yaml:"store"`
	Metrics    MetricsConfig  `yaml:"metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FeaturesConfig selects the detector, as "name[-flann]".
type FeaturesConfig struct {
	Name string `yaml:"name"`
}

type MatchingConfig struct {
	Ratio           float64 `yaml:"ratio"`
	RANSACThreshold float64 `yaml:"ransac_threshold"`
}

type SourceConfig struct {
	Kind      string  `yaml:"kind"`
	MaxWidth  int     `yaml:"max_width"`
	SampleFPS float64 `yaml:"sample_fps"`
	MaxFrames int     `yaml:"max_frames"`
	// ReferenceThreshold, when positive, also runs ffmpeg's scene filter
	// at this threshold and reports how many of its changes were detected.
	ReferenceThreshold float64 `yaml:"reference_threshold"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Format      string `yaml:"format"`
	SaveFrames  bool   `yaml:"save_frames"`
	OverlaysDir string `yaml:"overlays_dir"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
}

type StoreConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

type MetricsConfig struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// Load reads configuration from file or returns defaults. An empty path
// searches the usual locations; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Features: FeaturesConfig{
			Name: features.Default,
		},
		Matching: MatchingConfig{
			Ratio:           correspond.DefaultRatio,
			RANSACThreshold: similarity.DefaultRANSACThreshold,
		},
		Classifier: shot.DefaultParams(),
		Source: SourceConfig{
			Kind: SourceAuto,
		},
		Output: OutputConfig{
			Dir:        "./out",
			Format:     "json",
			SaveFrames: true,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
		},
		Metrics: MetricsConfig{
			Namespace: "detectshot",
		},
	}
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, err := features.Parse(c.Features.Name); err != nil {
		errs = append(errs, err)
	}
	if err := c.Classifier.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Matching.Ratio <= 0 || c.Matching.Ratio > 1 {
		add("matching.ratio must be in (0, 1], got %g", c.Matching.Ratio)
	}
	if c.Matching.RANSACThreshold <= 0 {
		add("matching.ransac_threshold must be positive, got %g", c.Matching.RANSACThreshold)
	}

	switch c.Source.Kind {
	case SourceAuto, SourceFFmpeg, SourceImages, SourceOpenCV:
	default:
		add("source.kind must be one of auto, ffmpeg, images, opencv; got %q", c.Source.Kind)
	}
	if c.Source.MaxWidth < 0 {
		add("source.max_width must not be negative")
	}
	if c.Source.SampleFPS < 0 {
		add("source.sample_fps must not be negative")
	}
	if c.Source.MaxFrames < 0 {
		add("source.max_frames must not be negative")
	}

	switch c.Output.Format {
	case "json", "yaml":
	default:
		add("output.format must be json or yaml, got %q", c.Output.Format)
	}
	if c.Output.Dir == "" {
		add("output.dir is required")
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		add("log.format must be console or json, got %q", c.Log.Format)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// FeatureSpec parses the configured feature name.
func (c *Config) FeatureSpec() (features.Spec, error) {
	return features.Parse(c.Features.Name)
}

func findConfigFile() string {
	candidates := []string{
		"./detectshot.yaml",
		"./detectshot.yml",
		filepath.Join(os.Getenv("HOME"), ".detectshot", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
