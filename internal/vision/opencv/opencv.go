//go:build withcv

package opencv

import (
	"fmt"
	"image"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/cuongvomanh/detect-shot/internal/features"
	"github.com/cuongvomanh/detect-shot/internal/vision"
)

// detectComputer is the subset of the gocv feature detectors we use.
type detectComputer interface {
	DetectAndCompute(src gocv.Mat, mask gocv.Mat) ([]gocv.KeyPoint, gocv.Mat)
	Close() error
}

// knnMatcher is the subset of the gocv descriptor matchers we use.
type knnMatcher interface {
	KnnMatch(query, train gocv.Mat, k int) [][]gocv.DMatch
	Close() error
}

// New builds a toolkit for the given feature spec.
func New(spec features.Spec, logger zerolog.Logger) (*vision.Toolkit, error) {
	logger = logger.With().Str("component", "opencv").Str("feature", spec.String()).Logger()

	dc, err := newDetector(spec)
	if err != nil {
		return nil, err
	}

	var m knnMatcher
	toFloat := false
	switch spec.Matcher {
	case features.FLANN:
		f := gocv.NewFlannBasedMatcher()
		m = &f
		if spec.Binary() {
			// gocv exposes only the default KD-tree index, which needs CV_32F input.
			toFloat = true
			logger.Warn().Msg("flann on binary descriptors matches float-converted bytes, not hamming distance")
		}
	default:
		norm := gocv.NormL2
		if spec.Norm() == features.NormHamming {
			norm = gocv.NormHamming
		}
		bf := gocv.NewBFMatcherWithParams(norm, false)
		m = &bf
	}

	logger.Debug().Str("norm", spec.Norm().String()).Str("matcher", string(spec.Matcher)).Msg("vision toolkit ready")

	return vision.NewToolkit(
		&detector{dc: dc},
		&matcher{m: m, toFloat: toFloat},
		estimator{},
		dc.Close,
		m.Close,
	), nil
}

func newDetector(spec features.Spec) (detectComputer, error) {
	switch spec.Family {
	case features.SIFT:
		d := gocv.NewSIFT()
		return &d, nil
	case features.SURF:
		return newSURF()
	case features.ORB:
		d := gocv.NewORBWithParams(spec.MaxFeatures(), 1.2, 8, 31, 0, 2, gocv.ORBScoreTypeHarris, 31, 20)
		return &d, nil
	case features.AKAZE:
		d := gocv.NewAKAZE()
		return &d, nil
	case features.BRISK:
		d := gocv.NewBRISK()
		return &d, nil
	default:
		return nil, fmt.Errorf("%w: %q", features.ErrUnknownFamily, spec.Family)
	}
}

// matDescriptors wraps a descriptor matrix, one row per keypoint.
type matDescriptors struct {
	mat gocv.Mat
}

func (d *matDescriptors) Len() int {
	if d.mat.Empty() {
		return 0
	}
	return d.mat.Rows()
}

func (d *matDescriptors) Close() error {
	return d.mat.Close()
}

type detector struct {
	dc detectComputer
}

func (d *detector) DetectAndDescribe(img *image.Gray) (vision.Features, error) {
	if img == nil || img.Bounds().Empty() {
		return vision.Features{}, fmt.Errorf("detect: empty image")
	}

	src, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return vision.Features{}, fmt.Errorf("detect: convert image: %w", err)
	}
	defer src.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	kps, desc := d.dc.DetectAndCompute(src, mask)

	out := vision.Features{
		KeyPoints:   make([]vision.KeyPoint, len(kps)),
		Descriptors: &matDescriptors{mat: desc},
	}
	for i, kp := range kps {
		out.KeyPoints[i] = vision.KeyPoint{
			Point:    vision.Point{X: kp.X, Y: kp.Y},
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
		}
	}
	return out, nil
}

type matcher struct {
	m       knnMatcher
	toFloat bool
}

func (m *matcher) KnnMatch(query, train vision.Descriptors, k int) ([][]vision.Match, error) {
	q, ok := query.(*matDescriptors)
	if !ok {
		return nil, fmt.Errorf("%w: query is %T", vision.ErrIncompatibleDescriptors, query)
	}
	t, ok := train.(*matDescriptors)
	if !ok {
		return nil, fmt.Errorf("%w: train is %T", vision.ErrIncompatibleDescriptors, train)
	}
	if q.Len() == 0 || t.Len() == 0 {
		return nil, nil
	}
	if q.mat.Type() != t.mat.Type() || q.mat.Cols() != t.mat.Cols() {
		return nil, fmt.Errorf("%w: %v/%d vs %v/%d", vision.ErrIncompatibleDescriptors,
			q.mat.Type(), q.mat.Cols(), t.mat.Type(), t.mat.Cols())
	}

	qm, tm := q.mat, t.mat
	if m.toFloat {
		qf, tf := gocv.NewMat(), gocv.NewMat()
		defer qf.Close()
		defer tf.Close()
		qm.ConvertTo(&qf, gocv.MatTypeCV32F)
		tm.ConvertTo(&tf, gocv.MatTypeCV32F)
		qm, tm = qf, tf
	}

	raw := m.m.KnnMatch(qm, tm, k)
	out := make([][]vision.Match, len(raw))
	for i, set := range raw {
		cands := make([]vision.Match, len(set))
		for j, dm := range set {
			cands[j] = vision.Match{
				QueryIdx: dm.QueryIdx,
				TrainIdx: dm.TrainIdx,
				Distance: float64(dm.Distance),
			}
		}
		out[i] = cands
	}
	return out, nil
}

type estimator struct{}

func (estimator) FindHomography(src, dst []vision.Point, threshold float64) (*vision.Homography, []bool, error) {
	if len(src) != len(dst) {
		return nil, nil, fmt.Errorf("homography: %d source points but %d destination points", len(src), len(dst))
	}

	srcMat := pointsMat(src)
	defer srcMat.Close()
	dstMat := pointsMat(dst)
	defer dstMat.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	h := gocv.FindHomography(srcMat, &dstMat, gocv.HomograpyMethodRANSAC, threshold, &mask, ransacMaxIters, ransacConfidence)
	defer h.Close()

	inliers := make([]bool, len(src))
	if h.Empty() {
		return nil, inliers, nil
	}
	for i := range inliers {
		if i < mask.Rows() {
			inliers[i] = mask.GetUCharAt(i, 0) != 0
		}
	}

	var model vision.Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			model[r*3+c] = h.GetDoubleAt(r, c)
		}
	}
	return &model, inliers, nil
}

// pointsMat packs points into an Nx1 two-channel float matrix.
func pointsMat(pts []vision.Point) gocv.Mat {
	m := gocv.NewMatWithSize(len(pts), 1, gocv.MatTypeCV32FC2)
	for i, p := range pts {
		m.SetFloatAt(i, 0, float32(p.X))
		m.SetFloatAt(i, 1, float32(p.Y))
	}
	return m
}
