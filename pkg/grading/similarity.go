package grading

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity returns the difflib sequence-matcher ratio of candidate against
// reference, compared rune by rune. Two empty strings are fully similar.
func Similarity(candidate, reference string) float64 {
	m := difflib.NewMatcher(runes(candidate), runes(reference))
	return m.Ratio()
}

func runes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}

// boostedCorrectness compensates for transcription noise when an evaluator
// response carries no usable correctness score.
func boostedCorrectness(ratio float64) int {
	base := percent(ratio)
	switch {
	case ratio > 0.6:
		return clamp(max(95, base+25))
	case ratio > 0.4:
		return clamp(max(85, base+30))
	default:
		return base
	}
}
