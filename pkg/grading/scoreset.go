package grading

import (
	"fmt"
	"math"
)

// Scoring methods recorded on a ScoreSet.
const (
	MethodBaseline  = "baseline"
	MethodEvaluator = "evaluator"
)

// ScoreSet is the complete per-candidate result. Build it with NewScoreSet;
// it is not modified afterwards.
type ScoreSet struct {
	Scores     map[string]int `json:"scores"`
	FinalScore int            `json:"final_score"`
	ExamPoints *int           `json:"exam_points,omitempty"`
	Method     string         `json:"method"`
	Feedback   string         `json:"feedback,omitempty"`
}

// NewScoreSet clamps every criterion score to [0,100], fills criteria that are
// absent with 0 and computes the weighted final score.
func NewScoreSet(scores map[string]int, method string) ScoreSet {
	out := make(map[string]int, len(Criteria))
	weighted := 0.0
	for _, c := range Criteria {
		v := clamp(scores[c.Name])
		out[c.Name] = v
		weighted += float64(v) * c.Weight
	}
	return ScoreSet{Scores: out, FinalScore: int(math.Floor(weighted)), Method: method}
}

// Get returns the score for a criterion name.
func (s ScoreSet) Get(name string) int {
	return s.Scores[name]
}

// WithExamPoints returns a copy of s with the final score scaled into a
// question worth points.
func (s ScoreSet) WithExamPoints(points int) (ScoreSet, error) {
	ep, err := ExamPoints(s.FinalScore, points)
	if err != nil {
		return s, err
	}
	cp := s
	cp.Scores = make(map[string]int, len(s.Scores))
	for k, v := range s.Scores {
		cp.Scores[k] = v
	}
	cp.ExamPoints = &ep
	return cp, nil
}

// ExamPoints scales a final score (0..100) into points, rounding half to even.
func ExamPoints(finalScore, points int) (int, error) {
	if points <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidPoints, points)
	}
	return int(math.RoundToEven(float64(finalScore) / 100 * float64(points))), nil
}
