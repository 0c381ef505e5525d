// Package features describes which keypoint detector and descriptor matcher a
// run uses. The name has the form "name[-flann]", e.g. "orb-flann".
package features

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownFamily is returned by Parse for a detector name it does not know.
var ErrUnknownFamily = errors.New("unknown feature family")

// Family identifies a keypoint detector/descriptor algorithm.
type Family string

const (
	SIFT  Family = "sift"
	SURF  Family = "surf"
	ORB   Family = "orb"
	AKAZE Family = "akaze"
	BRISK Family = "brisk"
)

// Norm is the descriptor distance used by the matcher.
type Norm int

const (
	NormL2 Norm = iota
	NormHamming
)

func (n Norm) String() string {
	if n == NormHamming {
		return "hamming"
	}
	return "l2"
}

// MatcherKind selects between exhaustive and approximate nearest-neighbour search.
type MatcherKind string

const (
	BruteForce MatcherKind = "bruteforce"
	FLANN      MatcherKind = "flann"
)

const flannSuffix = "-flann"

// Default is the feature spec used when none is configured.
const Default = "brisk"

// familyInfo holds per-family defaults.
type familyInfo struct {
	norm        Norm
	maxFeatures int
	description string
}

var families = map[Family]familyInfo{
	SIFT:  {norm: NormL2, description: "scale-invariant float descriptors"},
	SURF:  {norm: NormL2, description: "speeded-up robust float descriptors (non-free, contrib build)"},
	ORB:   {norm: NormHamming, maxFeatures: 400, description: "oriented FAST + rotated BRIEF binary descriptors"},
	AKAZE: {norm: NormHamming, description: "accelerated KAZE binary descriptors"},
	BRISK: {norm: NormHamming, description: "binary robust invariant scalable keypoints"},
}

// Spec is a parsed feature configuration.
type Spec struct {
	Family  Family
	Matcher MatcherKind
}

// Parse parses a "name[-flann]" feature spec. Names are case-insensitive.
func Parse(s string) (Spec, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	matcher := BruteForce
	if strings.HasSuffix(name, flannSuffix) {
		name = strings.TrimSuffix(name, flannSuffix)
		matcher = FLANN
	}

	fam := Family(name)
	if _, ok := families[fam]; !ok {
		return Spec{}, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFamily, s, strings.Join(Names(), ", "))
	}

	return Spec{Family: fam, Matcher: matcher}, nil
}

// Norm returns the distance norm matching the family's descriptors.
func (s Spec) Norm() Norm {
	return families[s.Family].norm
}

// Binary reports whether the family produces binary descriptors.
func (s Spec) Binary() bool {
	return s.Norm() == NormHamming
}

// MaxFeatures is the detector's keypoint cap, 0 meaning the library default.
func (s Spec) MaxFeatures() int {
	return families[s.Family].maxFeatures
}

func (s Spec) String() string {
	if s.Matcher == FLANN {
		return string(s.Family) + flannSuffix
	}
	return string(s.Family)
}

// Names lists the known family names in sorted order.
func Names() []string {
	names := make([]string, 0, len(families))
	for f := range families {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// Describe returns a human readable description of a family.
func Describe(f Family) string {
	return families[f].description
}
