package grading

import "strings"

// Criterion names as they appear in score tables and JSON output.
const (
	Correctness   = "Correctness"
	Syntax        = "Syntax"
	CodeStructure = "Code Structure"
	Efficiency    = "Efficiency"
	EdgeCases     = "Edge Cases"
)

// Criterion is one weighted scoring dimension. Detect computes the baseline
// score for a candidate answer given the reference answer.
type Criterion struct {
	Name   string
	Weight float64
	Detect func(candidate, reference string) int
}

// Criteria is the fixed weighting table. Order matters: it is the display
// order and the summation order of the weighted final score.
var Criteria = []Criterion{
	{Name: Correctness, Weight: 0.4, Detect: func(candidate, reference string) int {
		return percent(Similarity(candidate, reference))
	}},
	{Name: Syntax, Weight: 0.15, Detect: func(candidate, _ string) int {
		low := strings.ToLower(candidate)
		if strings.Contains(low, "error") || strings.Contains(low, "syntax") {
			return 60
		}
		return 100
	}},
	{Name: CodeStructure, Weight: 0.15, Detect: func(candidate, _ string) int {
		return presence(candidate, 100, 70, "def ", "function")
	}},
	{Name: Efficiency, Weight: 0.15, Detect: func(candidate, _ string) int {
		return presence(candidate, 100, 70, "for", "while")
	}},
	{Name: EdgeCases, Weight: 0.15, Detect: func(candidate, _ string) int {
		return presence(candidate, 100, 60, "if", "try")
	}},
}

// CriterionNames returns the criterion names in table order.
func CriterionNames() []string {
	out := make([]string, len(Criteria))
	for i, c := range Criteria {
		out[i] = c.Name
	}
	return out
}

// presence returns hit when text contains any of the markers, miss otherwise.
// Matching is case-sensitive.
func presence(text string, hit, miss int, markers ...string) int {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return hit
		}
	}
	return miss
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// percent truncates a ratio in [0,1] to an integer percentage.
func percent(ratio float64) int {
	return clamp(int(ratio * 100))
}
