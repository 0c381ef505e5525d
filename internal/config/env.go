package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/cuongvomanh/detect-shot/pkg/util"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DETECTSHOT_"

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored; variables already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if util.FileExists(f) {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

type setter func(c *Config, v string) error

func str(field func(*Config) *string) setter {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func integer(field func(*Config) *int) setter {
	return func(c *Config, v string) error {
		n, err := cast.ToIntE(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func float(field func(*Config) *float64) setter {
	return func(c *Config, v string) error {
		f, err := cast.ToFloat64E(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func boolean(field func(*Config) *bool) setter {
	return func(c *Config, v string) error {
		b, err := cast.ToBoolE(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

var envOverrides = map[string]setter{
	"LOG_LEVEL":           str(func(c *Config) *string { return &c.Log.Level }),
	"LOG_FORMAT":          str(func(c *Config) *string { return &c.Log.Format }),
	"FEATURE":             str(func(c *Config) *string { return &c.Features.Name }),
	"RATIO":               float(func(c *Config) *float64 { return &c.Matching.Ratio }),
	"RANSAC_THRESHOLD":    float(func(c *Config) *float64 { return &c.Matching.RANSACThreshold }),
	"WINDOW_SIZE":         integer(func(c *Config) *int { return &c.Classifier.WindowSize }),
	"UPPER_DELTA":         float(func(c *Config) *float64 { return &c.Classifier.UpperDelta }),
	"LOWER_DELTA":         float(func(c *Config) *float64 { return &c.Classifier.LowerDelta }),
	"SOURCE_KIND":         str(func(c *Config) *string { return &c.Source.Kind }),
	"MAX_WIDTH":           integer(func(c *Config) *int { return &c.Source.MaxWidth }),
	"SAMPLE_FPS":          float(func(c *Config) *float64 { return &c.Source.SampleFPS }),
	"MAX_FRAMES":          integer(func(c *Config) *int { return &c.Source.MaxFrames }),
	"REFERENCE_THRESHOLD": float(func(c *Config) *float64 { return &c.Source.ReferenceThreshold }),
	"OUTPUT_DIR":          str(func(c *Config) *string { return &c.Output.Dir }),
	"OUTPUT_FORMAT":       str(func(c *Config) *string { return &c.Output.Format }),
	"SAVE_FRAMES":         boolean(func(c *Config) *bool { return &c.Output.SaveFrames }),
	"OVERLAYS_DIR":        str(func(c *Config) *string { return &c.Output.OverlaysDir }),
	"FFMPEG_PATH":         str(func(c *Config) *string { return &c.FFmpeg.BinaryPath }),
	"FFPROBE_PATH":        str(func(c *Config) *string { return &c.FFmpeg.ProbePath }),
	"FFMPEG_THREADS":      integer(func(c *Config) *int { return &c.FFmpeg.Threads }),
	"POSTGRES_DSN":        str(func(c *Config) *string { return &c.Store.PostgresDSN }),
	"METRICS_ADDR":        str(func(c *Config) *string { return &c.Metrics.Addr }),
}

// ApplyEnv overrides fields from DETECTSHOT_* variables found by lookup,
// usually os.LookupEnv. A malformed value is an error, never ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, name := range EnvNames() {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		if err := envOverrides[name](c, v); err != nil {
			return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, EnvPrefix, name, v, err)
		}
	}
	return nil
}

// EnvNames lists the supported override names without the prefix.
func EnvNames() []string {
	names := make([]string, 0, len(envOverrides))
	for n := range envOverrides {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
