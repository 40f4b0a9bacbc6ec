package grading

import (
	"context"
	"fmt"
	"log"
	"strings"

	"examgrader/pkg/ocr"

	"github.com/google/uuid"
)

// AnswerGenerator produces a reference answer for a question. Failures are
// reported inside the returned text, never as an error.
type AnswerGenerator interface {
	GenerateReference(ctx context.Context, question, hint string) string
}

// Question is the unit a grading run is performed against.
type Question struct {
	Text         string
	LanguageHint string
	Points       int
	// Reference is reused when already known; otherwise it is generated.
	Reference string
}

// Candidate is one student answer. When Text is empty the image at ImagePath
// is transcribed first.
type Candidate struct {
	Name      string
	ImagePath string
	Text      string
	Quality   int
}

// Result pairs a candidate (with its final transcription) and its scores.
type Result struct {
	Candidate Candidate
	Scores    ScoreSet
}

// Run is the outcome of grading all candidates of one question.
type Run struct {
	ID        string
	Reference string
	// ReferenceOK is false when Reference is a generation failure text. Such a
	// reference is only good for this run and must not be stored.
	ReferenceOK bool
	Results     []Result
}

// Pipeline wires the external collaborators of a grading run.
type Pipeline struct {
	Generator  AnswerGenerator
	Recognizer ocr.TextRecognizer
	Scorer     Scorer
	// Enhance requests image enhancement before recognition.
	Enhance bool
	// Repair applies transcription cleanup before scoring.
	Repair bool
	// IsFailedReference recognises failure texts from Generator. A known
	// reference it matches is generated again.
	IsFailedReference func(string) bool
}

// Validate checks the local inputs of a run.
func Validate(q Question, candidates []Candidate) error {
	if q.Points <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPoints, q.Points)
	}
	if len(candidates) == 0 {
		return ErrNoCandidates
	}
	return nil
}

// Run grades candidates one at a time, in order. Only validation failures are
// returned as errors; collaborator failures degrade to best-effort results.
func (p *Pipeline) Run(ctx context.Context, q Question, candidates []Candidate) (Run, error) {
	if err := Validate(q, candidates); err != nil {
		return Run{}, err
	}
	run := Run{ID: uuid.NewString(), Reference: q.Reference}
	if p.failedReference(run.Reference) {
		log.Printf("GRADE run=%s discarding failed reference %q", run.ID, ocr.Snippet(run.Reference, 80))
		run.Reference = ""
	}
	if strings.TrimSpace(run.Reference) == "" && p.Generator != nil {
		run.Reference = p.Generator.GenerateReference(ctx, q.Text, q.LanguageHint)
	}
	run.ReferenceOK = strings.TrimSpace(run.Reference) != "" && !p.failedReference(run.Reference)
	log.Printf("GRADE run=%s candidates=%d reference=%q", run.ID, len(candidates), ocr.Snippet(run.Reference, 80))
	for _, c := range candidates {
		c = p.transcribe(ctx, c)
		set, err := p.scorer().Score(ctx, c.Text, run.Reference, q.LanguageHint).WithExamPoints(q.Points)
		if err != nil {
			return Run{}, err
		}
		log.Printf("GRADE run=%s candidate=%q final=%d points=%d", run.ID, c.Name, set.FinalScore, *set.ExamPoints)
		run.Results = append(run.Results, Result{Candidate: c, Scores: set})
	}
	return run, nil
}

func (p *Pipeline) failedReference(ref string) bool {
	return p.IsFailedReference != nil && p.IsFailedReference(ref)
}

func (p *Pipeline) scorer() Scorer {
	if p.Scorer == nil {
		return BaselineScorer{}
	}
	return p.Scorer
}

func (p *Pipeline) transcribe(ctx context.Context, c Candidate) Candidate {
	if c.Text == "" && c.ImagePath != "" && p.Recognizer != nil {
		rec, err := p.Recognizer.Recognize(ctx, c.ImagePath, p.Enhance)
		if err != nil {
			log.Printf("GRADE recognition failed for %q (%s): %v", c.Name, c.ImagePath, err)
		} else {
			c.Text = rec.Text
			c.Quality = rec.Quality
		}
	}
	if p.Repair {
		c.Text = ocr.RepairTranscription(c.Text)
	}
	return c
}
