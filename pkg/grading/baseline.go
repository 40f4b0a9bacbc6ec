package grading

import "context"

// Scorer produces a ScoreSet for a candidate answer against a reference answer.
// Implementations never fail: degraded inputs still yield a complete ScoreSet.
type Scorer interface {
	Score(ctx context.Context, candidate, reference, hint string) ScoreSet
}

// BaselineScorer applies the criteria table detectors. It is pure.
type BaselineScorer struct{}

func (BaselineScorer) Score(_ context.Context, candidate, reference, _ string) ScoreSet {
	return Baseline(candidate, reference)
}

// Baseline scores candidate against reference using only local heuristics.
func Baseline(candidate, reference string) ScoreSet {
	scores := make(map[string]int, len(Criteria))
	for _, c := range Criteria {
		scores[c.Name] = c.Detect(candidate, reference)
	}
	return NewScoreSet(scores, MethodBaseline)
}
