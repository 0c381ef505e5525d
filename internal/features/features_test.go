package features

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		family  Family
		matcher MatcherKind
		norm    Norm
	}{
		{"brisk", BRISK, BruteForce, NormHamming},
		{"orb-flann", ORB, FLANN, NormHamming},
		{"SIFT", SIFT, BruteForce, NormL2},
		{"surf-flann", SURF, FLANN, NormL2},
		{" akaze ", AKAZE, BruteForce, NormHamming},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			spec, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.in, err)
			}
			if spec.Family != tt.family || spec.Matcher != tt.matcher {
				t.Errorf("Parse(%q) = %+v", tt.in, spec)
			}
			if spec.Norm() != tt.norm {
				t.Errorf("Norm() = %v, want %v", spec.Norm(), tt.norm)
			}
		})
	}
}

func TestParseUnknown(t *testing.T) {
	for _, in := range []string{"", "harris", "flann", "orb-bf"} {
		if _, err := Parse(in); !errors.Is(err, ErrUnknownFamily) {
			t.Errorf("Parse(%q) error = %v, want ErrUnknownFamily", in, err)
		}
	}
}

func TestSpecString(t *testing.T) {
	spec, err := Parse("orb-flann")
	if err != nil {
		t.Fatal(err)
	}
	if spec.String() != "orb-flann" {
		t.Errorf("String() = %q", spec.String())
	}
	if spec.MaxFeatures() != 400 {
		t.Errorf("MaxFeatures() = %d, want 400", spec.MaxFeatures())
	}
}
