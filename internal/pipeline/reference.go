package pipeline

import (
	"time"

	"github.com/cuongvomanh/detect-shot/internal/shot"
)

// ReferenceReport compares detected cuts with scene changes found by another
// detector.
type ReferenceReport struct {
	Reference int
	Detected  int
	Matched   int
	Missed    []time.Duration
}

// CompareReference matches each reference timestamp to the first detected cut
// within tolerance of it. A cut at position i sits between frames i and i+1
// and is timed by frame i+1.
func CompareReference(res *Result, ref []time.Duration, tolerance time.Duration) ReferenceReport {
	report := ReferenceReport{Reference: len(ref), Detected: len(res.Cuts)}

	times := make([]time.Duration, 0, len(res.Cuts))
	for _, c := range res.Cuts {
		if t, ok := cutTime(res, c); ok {
			times = append(times, t)
		}
	}

	used := make([]bool, len(times))
	for _, r := range ref {
		found := false
		for i, t := range times {
			if used[i] {
				continue
			}
			d := t - r
			if d < 0 {
				d = -d
			}
			if d <= tolerance {
				used[i] = true
				found = true
				break
			}
		}
		if found {
			report.Matched++
		} else {
			report.Missed = append(report.Missed, r)
		}
	}
	return report
}

func cutTime(res *Result, iv shot.Interval) (time.Duration, bool) {
	i := iv.Start + 1
	if i < 0 || i >= len(res.Frames) {
		return 0, false
	}
	return res.Frames[i].Timestamp, true
}
