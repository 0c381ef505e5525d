// Package shot classifies a stream of frame-pair similarity scores into cut
// and gradual transition intervals.
//
// Each score is compared against the mean of the last WindowSize scores,
// itself included. A deviation of at least UpperDelta opens a cut; a
// deviation in [LowerDelta, UpperDelta) opens a gradual transition (or closes
// an open cut); a deviation below LowerDelta closes whatever is open.
package shot

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams is returned by New for unusable parameters.
var ErrInvalidParams = errors.New("invalid classifier parameters")

// Defaults.
const (
	DefaultWindowSize = 5
	DefaultUpperDelta = 0.30
	DefaultLowerDelta = 0.28
)

// Params configures a Classifier.
type Params struct {
	WindowSize int     `yaml:"window_size" json:"window_size"`
	UpperDelta float64 `yaml:"upper_delta" json:"upper_delta"`
	LowerDelta float64 `yaml:"lower_delta" json:"lower_delta"`
}

// DefaultParams returns the standard window and thresholds.
func DefaultParams() Params {
	return Params{
		WindowSize: DefaultWindowSize,
		UpperDelta: DefaultUpperDelta,
		LowerDelta: DefaultLowerDelta,
	}
}

// Validate checks that the thresholds are ordered and the window non-empty.
func (p Params) Validate() error {
	if p.WindowSize < 1 {
		return fmt.Errorf("%w: window size %d < 1", ErrInvalidParams, p.WindowSize)
	}
	if math.IsNaN(p.LowerDelta) || math.IsNaN(p.UpperDelta) || p.LowerDelta < 0 {
		return fmt.Errorf("%w: deltas must be non-negative numbers", ErrInvalidParams)
	}
	if p.LowerDelta > p.UpperDelta {
		return fmt.Errorf("%w: lower delta %.3f > upper delta %.3f", ErrInvalidParams, p.LowerDelta, p.UpperDelta)
	}
	return nil
}

// Transition says what a Push did to the interval lists.
type Transition int

const (
	None Transition = iota
	Opened
	Closed
)

func (t Transition) String() string {
	switch t {
	case Opened:
		return "opened"
	case Closed:
		return "closed"
	default:
		return "none"
	}
}

// Step reports the outcome of one Push. Baseline and Deviation are only
// meaningful when Ready is true.
type Step struct {
	Position   int
	Score      float64
	Ready      bool
	Baseline   float64
	Deviation  float64
	Transition Transition
	Kind       Kind
}

// Classifier is a streaming boundary classifier. It is not safe for
// concurrent use; one classifier belongs to one analysis.
type Classifier struct {
	params Params
	window []float64
	sum    float64
	pos    int
	state  State

	cuts     []Interval
	graduals []Interval
}

// New returns an idle classifier.
func New(p Params) (*Classifier, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{
		params: p,
		window: make([]float64, p.WindowSize),
	}, nil
}

// Push consumes the score at the next position.
func (c *Classifier) Push(score float64) Step {
	k := c.params.WindowSize
	i := c.pos
	c.pos++

	slot := i % k
	if i >= k {
		c.sum -= c.window[slot]
	}
	c.window[slot] = score
	c.sum += score

	step := Step{Position: i, Score: score}
	if i < k-1 {
		return step
	}

	step.Ready = true
	step.Baseline = c.sum / float64(k)
	step.Deviation = math.Abs(step.Baseline - score)

	c.apply(&step)
	return step
}

func (c *Classifier) apply(step *Step) {
	dev, i := step.Deviation, step.Position
	upper, lower := c.params.UpperDelta, c.params.LowerDelta

	switch {
	case dev >= upper:
		if c.state == Idle {
			c.open(step, Cut)
		}
	case dev >= lower:
		switch c.state {
		case Idle:
			c.open(step, Gradual)
		case OpenCut:
			c.close(step, i)
		}
	default:
		if c.state != Idle {
			c.close(step, i)
		}
	}
}

func (c *Classifier) open(step *Step, kind Kind) {
	iv := Interval{Kind: kind, Start: step.Position}
	if kind == Cut {
		c.cuts = append(c.cuts, iv)
		c.state = OpenCut
	} else {
		c.graduals = append(c.graduals, iv)
		c.state = OpenGradual
	}
	step.Transition = Opened
	step.Kind = kind
}

func (c *Classifier) close(step *Step, end int) {
	e := end
	switch c.state {
	case OpenCut:
		c.cuts[len(c.cuts)-1].End = &e
		step.Kind = Cut
	case OpenGradual:
		c.graduals[len(c.graduals)-1].End = &e
		step.Kind = Gradual
	}
	c.state = Idle
	step.Transition = Closed
}

// State returns the current boundary state.
func (c *Classifier) State() State {
	return c.state
}

// Positions returns how many scores have been pushed.
func (c *Classifier) Positions() int {
	return c.pos
}

// Params returns the classifier's configuration.
func (c *Classifier) Params() Params {
	return c.params
}

// Cuts returns a copy of the cut intervals in start order.
func (c *Classifier) Cuts() []Interval {
	return copyIntervals(c.cuts)
}

// Graduals returns a copy of the gradual intervals in start order.
func (c *Classifier) Graduals() []Interval {
	return copyIntervals(c.graduals)
}

// Intervals returns cuts and graduals merged by start position.
func (c *Classifier) Intervals() []Interval {
	return Merge(c.cuts, c.graduals)
}

// Merge combines two start-ordered interval lists into one.
func Merge(a, b []Interval) []Interval {
	out := make([]Interval, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Start <= b[j].Start {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return copyIntervals(out)
}

func copyIntervals(in []Interval) []Interval {
	out := make([]Interval, len(in))
	for i, iv := range in {
		out[i] = iv
		if iv.End != nil {
			e := *iv.End
			out[i].End = &e
		}
	}
	return out
}
