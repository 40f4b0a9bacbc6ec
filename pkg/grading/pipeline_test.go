package grading

import (
	"context"
	"errors"
	"strings"
	"testing"

	"examgrader/pkg/ocr"
)

type fakeGenerator struct {
	reference string
	calls     int
}

func (f *fakeGenerator) GenerateReference(_ context.Context, _, _ string) string {
	f.calls++
	return f.reference
}

type fakeRecognizer struct {
	texts map[string]string
	calls []string
}

func (f *fakeRecognizer) Recognize(_ context.Context, path string, _ bool) (ocr.Recognition, error) {
	f.calls = append(f.calls, path)
	text, ok := f.texts[path]
	if !ok {
		return ocr.Recognition{}, ocr.ErrNoText
	}
	return ocr.Recognition{Text: text, Quality: 88}, nil
}

func TestPipelineRunSequential(t *testing.T) {
	gen := &fakeGenerator{reference: "def add(a,b):\n return a+b"}
	rec := &fakeRecognizer{texts: map[string]string{
		"a.png": "del add(a,b)\n return a+b",
		"b.png": "def add(a,b):\n return a+b",
	}}
	p := &Pipeline{Generator: gen, Recognizer: rec, Repair: true}
	run, err := p.Run(context.Background(), Question{Text: "Write add", Points: 10}, []Candidate{
		{Name: "alice", ImagePath: "a.png"},
		{Name: "bob", ImagePath: "b.png"},
		{Name: "carol", ImagePath: "missing.png"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("reference generated %d times", gen.calls)
	}
	if run.ID == "" || run.Reference != gen.reference {
		t.Fatalf("unexpected run header %+v", run)
	}
	if len(rec.calls) != 3 || rec.calls[0] != "a.png" || rec.calls[2] != "missing.png" {
		t.Fatalf("unexpected recognition order %v", rec.calls)
	}
	if len(run.Results) != 3 {
		t.Fatalf("expected 3 results got %d", len(run.Results))
	}
	alice := run.Results[0]
	if alice.Candidate.Text != "def add(a,b):\n return a+b" {
		t.Fatalf("repair not applied: %q", alice.Candidate.Text)
	}
	if alice.Scores.FinalScore != 89 || *alice.Scores.ExamPoints != 9 {
		t.Fatalf("alice got final %d points %d", alice.Scores.FinalScore, *alice.Scores.ExamPoints)
	}
	carol := run.Results[2]
	if carol.Candidate.Text != "" || carol.Candidate.Quality != 0 {
		t.Fatalf("failed recognition should degrade to empty text: %+v", carol.Candidate)
	}
	if len(carol.Scores.Scores) != len(Criteria) || carol.Scores.ExamPoints == nil {
		t.Fatalf("incomplete scores for failed recognition %+v", carol.Scores)
	}
}

func TestPipelineKeepsKnownReferenceAndText(t *testing.T) {
	gen := &fakeGenerator{reference: "unused"}
	rec := &fakeRecognizer{}
	p := &Pipeline{Generator: gen, Recognizer: rec}
	run, err := p.Run(context.Background(), Question{Points: 5, Reference: "x = 1"}, []Candidate{{Name: "dan", Text: "x = 1", ImagePath: "d.png"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 0 || len(rec.calls) != 0 {
		t.Fatalf("collaborators should not be called: gen=%d rec=%v", gen.calls, rec.calls)
	}
	if run.Reference != "x = 1" || run.Results[0].Scores.Get(Correctness) != 100 {
		t.Fatalf("unexpected run %+v", run)
	}
}

func TestPipelineSentinelReferenceStillScores(t *testing.T) {
	gen := &fakeGenerator{reference: "[error connecting to Gemini: 500 boom]"}
	p := &Pipeline{Generator: gen}
	run, err := p.Run(context.Background(), Question{Points: 7}, []Candidate{{Name: "eve", Text: "print(1)"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set := run.Results[0].Scores
	if len(set.Scores) != len(Criteria) || set.Method != MethodBaseline {
		t.Fatalf("unexpected scores %+v", set)
	}
}

// flakyGenerator answers with a failure text on its first call only.
type flakyGenerator struct {
	calls int
}

func (f *flakyGenerator) GenerateReference(_ context.Context, _, _ string) string {
	f.calls++
	if f.calls == 1 {
		return "[error connecting to Gemini: 500 boom]"
	}
	return "def add(a,b):\n return a+b"
}

func isFailure(ref string) bool { return strings.HasPrefix(ref, "[error") }

func TestPipelineRegeneratesFailedReference(t *testing.T) {
	gen := &flakyGenerator{}
	p := &Pipeline{Generator: gen, IsFailedReference: isFailure}
	q := Question{Text: "Write add", Points: 10}
	cands := []Candidate{{Name: "bob", Text: "def add(a,b):\n return a+b"}}

	first, err := p.Run(context.Background(), q, cands)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ReferenceOK {
		t.Fatalf("failed reference reported as reusable: %q", first.Reference)
	}
	if first.Results[0].Scores.Get(Correctness) == 100 {
		t.Fatalf("first run should score against the failure text")
	}

	// a caller that stored the failure text anyway still gets a fresh reference
	q.Reference = first.Reference
	second, err := p.Run(context.Background(), q, cands)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("expected a second generation, got %d calls", gen.calls)
	}
	if !second.ReferenceOK || second.Reference != "def add(a,b):\n return a+b" {
		t.Fatalf("unexpected second run reference ok=%v %q", second.ReferenceOK, second.Reference)
	}
	if got := second.Results[0].Scores.Get(Correctness); got != 100 {
		t.Fatalf("second run correctness = %d", got)
	}
}

func TestPipelineKnownReferenceIsReusable(t *testing.T) {
	p := &Pipeline{IsFailedReference: isFailure}
	run, err := p.Run(context.Background(), Question{Points: 5, Reference: "x = 1"}, []Candidate{{Name: "dan", Text: "x = 1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !run.ReferenceOK {
		t.Fatalf("supplied reference should be reusable")
	}
}

func TestPipelineValidation(t *testing.T) {
	p := &Pipeline{}
	if _, err := p.Run(context.Background(), Question{Points: 0}, []Candidate{{Text: "x"}}); !errors.Is(err, ErrInvalidPoints) {
		t.Fatalf("expected ErrInvalidPoints got %v", err)
	}
	if _, err := p.Run(context.Background(), Question{Points: 3}, nil); !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates got %v", err)
	}
}
