package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DetectScenes runs ffmpeg's own scene change filter over input and returns
// the timestamps of frames scoring above threshold. It serves as a reference
// to compare detected cuts against.
func (e *Executor) DetectScenes(ctx context.Context, input string, threshold float64) ([]time.Duration, error) {
	e.logger.Info().
		Str("input", input).
		Float64("threshold", threshold).
		Msg("detecting reference scene changes")

	var (
		mu     sync.Mutex
		scenes []time.Duration
	)
	err := e.Run(ctx, RunOptions{
		Args: []string{
			"-i", input,
			"-an",
			"-vf", NewFilterBuilder().SceneSelect(threshold).Build(),
			"-f", "null",
			"-",
		},
		LogHandler: func(line string) {
			if t, ok := parseSceneLine(line); ok {
				mu.Lock()
				scenes = append(scenes, t)
				mu.Unlock()
			}
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// no frame selected
		if !strings.Contains(err.Error(), "Output file is empty") {
			return nil, fmt.Errorf("scene detection failed: %w", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	e.logger.Info().Int("scenes", len(scenes)).Msg("reference scene detection complete")
	return scenes, nil
}

// parseSceneLine extracts the timestamp from a showinfo line.
func parseSceneLine(line string) (time.Duration, bool) {
	_, after, ok := strings.Cut(line, "pts_time:")
	if !ok {
		return 0, false
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
