//go:build withcv && contrib

package opencv

import "gocv.io/x/gocv/contrib"

const surfHessianThreshold = 800

func newSURF() (detectComputer, error) {
	d := contrib.NewSURFWithParams(surfHessianThreshold, 4, 3, false, false)
	return &d, nil
}
