package shot

import (
	"fmt"
	"strings"
)

// Kind distinguishes abrupt from gradual transitions.
type Kind int

const (
	Cut Kind = iota
	Gradual
)

func (k Kind) String() string {
	switch k {
	case Cut:
		return "CUT"
	case Gradual:
		return "GRADUAL"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText, in any case.
func (k *Kind) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "CUT":
		*k = Cut
	case "GRADUAL":
		*k = Gradual
	default:
		return fmt.Errorf("unknown boundary kind %q", string(b))
	}
	return nil
}

// Interval is a detected transition between score positions Start and End.
// End is nil while the interval is still open.
type Interval struct {
	Kind  Kind `json:"kind" yaml:"kind"`
	Start int  `json:"start" yaml:"start"`
	End   *int `json:"end" yaml:"end"`
}

// Open reports whether the interval has not been closed.
func (iv Interval) Open() bool {
	return iv.End == nil
}

func (iv Interval) String() string {
	if iv.End == nil {
		return fmt.Sprintf("%s [%d, open]", iv.Kind, iv.Start)
	}
	return fmt.Sprintf("%s [%d, %d]", iv.Kind, iv.Start, *iv.End)
}

// State is the classifier's current boundary state.
type State int

const (
	Idle State = iota
	OpenCut
	OpenGradual
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case OpenCut:
		return "open_cut"
	case OpenGradual:
		return "open_gradual"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
