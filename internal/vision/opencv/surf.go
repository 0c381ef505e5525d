//go:build withcv && !contrib

package opencv

import "fmt"

func newSURF() (detectComputer, error) {
	return nil, fmt.Errorf("surf requires opencv_contrib; rebuild with -tags withcv,contrib")
}
