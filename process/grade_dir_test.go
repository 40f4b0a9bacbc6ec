package main

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"examgrader/pkg/gemini"
	"examgrader/pkg/grading"
	"examgrader/pkg/ocr"

	"github.com/disintegration/imaging"
)

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.png", "a.JPG", "notes.txt", "c.ocr.png"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}
	got := listImageFiles(dir)
	if !reflect.DeepEqual(got, []string{"a.JPG", "b.png"}) {
		t.Fatalf("unexpected files %v", got)
	}
}

func TestStable(t *testing.T) {
	now := time.Now()
	pending := map[string]time.Time{
		"new.png": now,
		"b.png":   now.Add(-time.Second),
		"a.png":   now.Add(-2 * time.Second),
	}
	got := stable(pending, now, 500*time.Millisecond)
	if !reflect.DeepEqual(got, []string{"a.png", "b.png"}) {
		t.Fatalf("unexpected stable set %v", got)
	}
}

func TestCandidateName(t *testing.T) {
	if candidateName("alice.answer.png") != "alice.answer" {
		t.Fatalf("unexpected name %q", candidateName("alice.answer.png"))
	}
}

func TestReadQuestionText(t *testing.T) {
	p := filepath.Join(t.TempDir(), "q.txt")
	if err := os.WriteFile(p, []byte("  Write add\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := readQuestion(context.Background(), nil, p, false)
	if err != nil || got != "Write add" {
		t.Fatalf("got %q err=%v", got, err)
	}
}

func TestGradePrintsTableAndArchives(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "graded")
	img := imaging.New(4, 4, image.White.C)
	if err := imaging.Save(img, filepath.Join(dir, "alice.png")); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	g := &grader{
		pipeline: &grading.Pipeline{Recognizer: stubRecognizer{}, Repair: true},
		question: grading.Question{Text: "Write add", Points: 7, Reference: "def add(a,b):\n return a+b"},
		out:      &out,
		archive:  archive,
	}
	if err := g.grade(context.Background(), dir, []string{"alice.png"}); err != nil {
		t.Fatalf("grade: %v", err)
	}
	table := out.String()
	if !strings.Contains(table, "CORRECTNESS") || !strings.Contains(table, "alice") {
		t.Fatalf("unexpected table:\n%s", table)
	}
	fields := strings.Fields(strings.Split(strings.TrimSpace(table), "\n")[1])
	// name quality five-criteria final points
	if len(fields) != 9 || fields[7] != "89" || fields[8] != "6" {
		t.Fatalf("unexpected row %v", fields)
	}
	if _, err := os.Stat(filepath.Join(archive, "alice.png")); err != nil {
		t.Fatalf("image not archived: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "alice.png")); !os.IsNotExist(err) {
		t.Fatalf("source image still present")
	}
}

type stubRecognizer struct{}

func (stubRecognizer) Recognize(context.Context, string, bool) (ocr.Recognition, error) {
	return ocr.Recognition{Text: "del add(a,b)\n return a+b", Quality: 90}, nil
}

// onceFailingGenerator fails its first reference generation.
type onceFailingGenerator struct{ calls int }

func (g *onceFailingGenerator) GenerateReference(context.Context, string, string) string {
	g.calls++
	if g.calls == 1 {
		return gemini.StatusSentinel(500, "boom")
	}
	return "def add(a,b):\n return a+b"
}

func TestGradeDoesNotKeepFailedReference(t *testing.T) {
	gen := &onceFailingGenerator{}
	var out bytes.Buffer
	g := &grader{
		pipeline: &grading.Pipeline{Generator: gen, Recognizer: stubRecognizer{}, Repair: true, IsFailedReference: gemini.IsSentinel},
		question: grading.Question{Text: "Write add", Points: 7},
		out:      &out,
	}
	dir := t.TempDir()
	if err := g.grade(context.Background(), dir, []string{"alice.png"}); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if g.question.Reference != "" {
		t.Fatalf("failed reference kept for watch passes: %q", g.question.Reference)
	}
	if err := g.grade(context.Background(), dir, []string{"bob.png"}); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if gen.calls != 2 || g.question.Reference != "def add(a,b):\n return a+b" {
		t.Fatalf("reference not regenerated: calls=%d ref=%q", gen.calls, g.question.Reference)
	}
	rows := strings.Split(strings.TrimSpace(out.String()), "\n")
	last := strings.Fields(rows[len(rows)-1])
	if last[0] != "bob" || last[2] != "100" {
		t.Fatalf("second pass should score against the regenerated reference: %v", last)
	}
}

func TestMergeQuestionYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "q.yaml")
	doc := "question: |\n  Write a function add(a, b)\nlanguage: Python\npoints: 5\nreference: |\n  def add(a, b):\n      return a + b\n"
	if err := os.WriteFile(p, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	q := grading.Question{Points: 10, LanguageHint: "Go"}
	if err := mergeQuestionYAML(&q, p); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if q.Text != "Write a function add(a, b)" || q.LanguageHint != "Go" || q.Points != 5 {
		t.Fatalf("unexpected question %+v", q)
	}
	if !strings.HasPrefix(q.Reference, "def add(a, b):") {
		t.Fatalf("reference not loaded: %q", q.Reference)
	}
}
