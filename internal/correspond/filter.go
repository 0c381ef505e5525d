// Package correspond turns raw nearest-neighbour candidates into point
// correspondences using Lowe's ratio test.
package correspond

import "github.com/cuongvomanh/detect-shot/internal/vision"

// DefaultRatio is the ratio-test threshold.
const DefaultRatio = 0.75

// Correspondence pairs a keypoint in one frame with a keypoint in the next.
type Correspondence struct {
	From     vision.Point
	To       vision.Point
	QueryIdx int
	TrainIdx int
	Distance float64
}

// Filter keeps the candidate sets with exactly two entries whose best
// distance is strictly below ratio times the second best. Everything else is
// dropped. Output order follows the candidate order, and a train keypoint may
// appear in more than one correspondence. Candidates whose indexes fall
// outside the keypoint slices are dropped.
func Filter(from, to []vision.KeyPoint, candidates [][]vision.Match, ratio float64) []Correspondence {
	out := make([]Correspondence, 0, len(candidates))
	for _, set := range candidates {
		if len(set) != 2 {
			continue
		}
		best, second := set[0], set[1]
		if !(best.Distance < second.Distance*ratio) {
			continue
		}
		if best.QueryIdx < 0 || best.QueryIdx >= len(from) || best.TrainIdx < 0 || best.TrainIdx >= len(to) {
			continue
		}
		out = append(out, Correspondence{
			From:     from[best.QueryIdx].Point,
			To:       to[best.TrainIdx].Point,
			QueryIdx: best.QueryIdx,
			TrainIdx: best.TrainIdx,
			Distance: best.Distance,
		})
	}
	return out
}

// Points splits correspondences into parallel source and destination slices.
func Points(cs []Correspondence) (src, dst []vision.Point) {
	src = make([]vision.Point, len(cs))
	dst = make([]vision.Point, len(cs))
	for i, c := range cs {
		src[i] = c.From
		dst[i] = c.To
	}
	return src, dst
}
