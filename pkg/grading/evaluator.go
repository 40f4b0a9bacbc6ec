package grading

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"examgrader/pkg/ocr"
)

// AnswerEvaluator sends a free-text evaluation prompt to an external model and
// returns its raw response.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, prompt string) (string, error)
}

// Defaults used when an evaluator response omits a field.
const (
	defaultSyntax     = 70
	defaultStructure  = 70
	defaultEfficiency = 70
	defaultEdgeCases  = 60
)

var (
	scoreRE      = regexp.MustCompile(`(?i)\bSCORE:\s*(\d+)`)
	syntaxRE     = regexp.MustCompile(`(?i)\bSYNTAX:\s*(\d+)`)
	structureRE  = regexp.MustCompile(`(?i)\bSTRUCTURE:\s*(\d+)`)
	efficiencyRE = regexp.MustCompile(`(?i)\bEFFICIENCY:\s*(\d+)`)
	edgeCasesRE  = regexp.MustCompile(`(?i)\bEDGE_CASES:\s*(\d+)`)
	feedbackRE   = regexp.MustCompile(`(?im)^\s*FEEDBACK:\s*(.+)$`)
)

// EvaluatorScorer asks an AnswerEvaluator to grade leniently and parses its
// fixed-format reply. Any failure degrades to the baseline heuristic.
type EvaluatorScorer struct {
	Evaluator AnswerEvaluator
}

// NewEvaluatorScorer returns a Scorer backed by ev.
func NewEvaluatorScorer(ev AnswerEvaluator) *EvaluatorScorer {
	return &EvaluatorScorer{Evaluator: ev}
}

func (s *EvaluatorScorer) Score(ctx context.Context, candidate, reference, hint string) ScoreSet {
	if s == nil || s.Evaluator == nil {
		return Baseline(candidate, reference)
	}
	resp, err := s.Evaluator.Evaluate(ctx, EvaluationPrompt(candidate, reference, hint))
	if err != nil {
		log.Printf("GRADE evaluator failed, using baseline: %v", err)
		return Baseline(candidate, reference)
	}
	set, ok := ParseEvaluation(resp, candidate, reference)
	if !ok {
		log.Printf("GRADE evaluator response unparseable, using baseline: %q", ocr.Snippet(resp, 160))
		return Baseline(candidate, reference)
	}
	return set
}

// ParseEvaluation extracts criterion scores from an evaluator response. It
// reports false when none of the expected fields is present. A missing SCORE
// field is replaced by a similarity estimate boosted for transcription noise;
// other missing fields take fixed defaults.
func ParseEvaluation(resp, candidate, reference string) (ScoreSet, bool) {
	correctness, hasScore := matchInt(scoreRE, resp)
	syntax, hasSyntax := matchInt(syntaxRE, resp)
	structure, hasStructure := matchInt(structureRE, resp)
	efficiency, hasEfficiency := matchInt(efficiencyRE, resp)
	edge, hasEdge := matchInt(edgeCasesRE, resp)
	if !hasScore && !hasSyntax && !hasStructure && !hasEfficiency && !hasEdge {
		return ScoreSet{}, false
	}
	if !hasScore {
		correctness = boostedCorrectness(Similarity(candidate, reference))
	}
	if !hasSyntax {
		syntax = defaultSyntax
	}
	if !hasStructure {
		structure = defaultStructure
	}
	if !hasEfficiency {
		efficiency = defaultEfficiency
	}
	if !hasEdge {
		edge = defaultEdgeCases
	}
	set := NewScoreSet(map[string]int{
		Correctness:   correctness,
		Syntax:        syntax,
		CodeStructure: structure,
		Efficiency:    efficiency,
		EdgeCases:     edge,
	}, MethodEvaluator)
	if m := feedbackRE.FindStringSubmatch(resp); len(m) >= 2 {
		set.Feedback = strings.TrimSpace(m[1])
	}
	return set, true
}

func matchInt(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// EvaluationPrompt builds the structured grading request sent to the evaluator.
func EvaluationPrompt(candidate, reference, hint string) string {
	lang := strings.TrimSpace(hint)
	if lang == "" {
		lang = "unspecified (infer from the reference answer)"
	}
	var b strings.Builder
	b.WriteString("You are grading a student's answer to a programming exam question.\n")
	b.WriteString("The student's answer was transcribed from handwriting by OCR. Be lenient with transcription noise: ")
	b.WriteString("missing punctuation, misspelled keywords, stray symbols and broken indentation are not the student's mistakes. ")
	b.WriteString("Judge whether the logic solves the problem the way the reference answer does.\n\n")
	fmt.Fprintf(&b, "Programming language: %s\n\n", lang)
	fmt.Fprintf(&b, "Reference answer:\n%s\n\n", reference)
	fmt.Fprintf(&b, "Student answer:\n%s\n\n", candidate)
	b.WriteString("Reply with exactly these lines, each value an integer from 0 to 100:\n")
	b.WriteString("SCORE: <correctness>\n")
	b.WriteString("SYNTAX: <syntax>\n")
	b.WriteString("STRUCTURE: <code structure>\n")
	b.WriteString("EFFICIENCY: <efficiency>\n")
	b.WriteString("EDGE_CASES: <edge case handling>\n")
	b.WriteString("FEEDBACK: <one sentence for the student>\n")
	return b.String()
}
