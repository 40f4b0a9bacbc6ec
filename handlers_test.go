package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"examgrader/models"
	"examgrader/pkg/config"
	"examgrader/pkg/grading"

	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type stubGenerator struct{ reference string }

func (g stubGenerator) GenerateReference(context.Context, string, string) string { return g.reference }

type failingEvaluator struct{}

func (failingEvaluator) Evaluate(context.Context, string) (string, error) {
	return "", errors.New("unavailable")
}

// statelessServer builds a server without database or storage; only the
// stateless routes may be exercised against it.
func statelessServer(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &server{
		cfg:       &config.Config{Grading: config.GradingConfig{DefaultPoints: 10}},
		generator: stubGenerator{reference: "def add(a,b):\n return a+b"},
		evaluator: failingEvaluator{},
		jwtSecret: []byte("test-secret"),
	}
	r := gin.New()
	s.setupRoutes(r)
	token, err := issueToken(s.jwtSecret, models.User{ID: 3, Username: "instructor1", Role: models.Role{Name: models.RoleInstructor}}, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return r, token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

type scoreResponse struct {
	Reference string           `json:"reference"`
	Candidate string           `json:"candidate"`
	Result    grading.ScoreSet `json:"result"`
}

func TestScoreEndpoint(t *testing.T) {
	r, token := statelessServer(t)
	body, _ := json.Marshal(map[string]any{
		"candidate": "def add(a,b):\n return a+b",
		"reference": "def add(a,b):\n return a+b",
		"points":    7,
	})
	resp := performRequest(r, http.MethodPost, "/score", bytes.NewReader(body), token, "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("score failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var out scoreResponse
	decode(t, resp, &out)
	if out.Result.FinalScore != 89 || out.Result.ExamPoints == nil || *out.Result.ExamPoints != 6 {
		t.Fatalf("unexpected result %+v", out.Result)
	}
	if len(out.Result.Scores) != len(grading.Criteria) {
		t.Fatalf("incomplete scores %+v", out.Result.Scores)
	}
}

func TestScoreEndpointGeneratesReference(t *testing.T) {
	r, token := statelessServer(t)
	body, _ := json.Marshal(map[string]any{"candidate": "del add(a,b)\n return a+b", "question": "Write add", "repair": true})
	resp := performRequest(r, http.MethodPost, "/score", bytes.NewReader(body), token, "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("score failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var out scoreResponse
	decode(t, resp, &out)
	if out.Reference != "def add(a,b):\n return a+b" {
		t.Fatalf("reference not generated: %q", out.Reference)
	}
	if out.Result.Get(grading.Correctness) != 100 || out.Result.ExamPoints != nil {
		t.Fatalf("unexpected result %+v", out.Result)
	}
}

func TestScoreEndpointEvaluatorFallback(t *testing.T) {
	r, token := statelessServer(t)
	body, _ := json.Marshal(map[string]any{"candidate": "x", "reference": "y", "use_evaluator": true})
	resp := performRequest(r, http.MethodPost, "/score", bytes.NewReader(body), token, "application/json")
	var out scoreResponse
	decode(t, resp, &out)
	if out.Result.Method != grading.MethodBaseline {
		t.Fatalf("expected baseline fallback got %q", out.Result.Method)
	}
}

func TestScoreEndpointValidation(t *testing.T) {
	r, token := statelessServer(t)
	cases := []map[string]any{
		{"candidate": "x", "reference": "y", "points": 0},
		{"candidate": "x", "reference": "y", "points": -2},
		{"candidate": "x"},
	}
	for _, c := range cases {
		body, _ := json.Marshal(c)
		resp := performRequest(r, http.MethodPost, "/score", bytes.NewReader(body), token, "application/json")
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%v: expected 400 got %d body=%s", c, resp.Code, resp.Body.String())
		}
	}
}

func TestRepairEndpoint(t *testing.T) {
	r, token := statelessServer(t)
	body, _ := json.Marshal(map[string]string{"text": "del f(x)\n    return x"})
	resp := performRequest(r, http.MethodPost, "/repair", bytes.NewReader(body), token, "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("repair failed status=%d", resp.Code)
	}
	var out map[string]string
	decode(t, resp, &out)
	if out["text"] != "def f(x):\n    return x" {
		t.Fatalf("unexpected repair %q", out["text"])
	}
}

func TestAuthRequired(t *testing.T) {
	r, token := statelessServer(t)
	for _, tok := range []string{"", "garbage"} {
		resp := performRequest(r, http.MethodPost, "/repair", strings.NewReader(`{}`), tok, "application/json")
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401 got %d", tok, resp.Code)
		}
	}
	resp := performRequest(r, http.MethodGet, "/me", nil, token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("me failed status=%d", resp.Code)
	}
	var me map[string]any
	decode(t, resp, &me)
	if me["username"] != "instructor1" || me["role"] != models.RoleInstructor || me["id"] != float64(3) {
		t.Fatalf("unexpected me %+v", me)
	}
}

func TestResultsMarkdownRenders(t *testing.T) {
	md := resultsMarkdown("Write add", "```python\ndef add(a,b):\n    return a+b\n```", 7, []reportRow{
		{Name: "a|b", Scores: map[string]int{grading.Correctness: 100}, Final: 89, Points: 6},
	})
	page, err := renderMarkdown(md)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"<table>", "Correctness</th>", ">89</td>", `<code class="language-python">`, "a|b"} {
		if !strings.Contains(page, want) {
			t.Fatalf("rendered page missing %q:\n%s", want, page)
		}
	}
}

func TestGradeRequestPoints(t *testing.T) {
	stored := &models.Question{Text: "Write add", LanguageHint: "Python", Points: 7, Reference: "def add(a,b):\n return a+b"}
	q, err := gradeRequest{}.question(stored)
	if err != nil || q.Points != 7 || q.Reference != stored.Reference {
		t.Fatalf("stored values should be used by default: %+v %v", q, err)
	}
	twenty := 20
	q, err = gradeRequest{Points: &twenty, RegenerateReference: true}.question(stored)
	if err != nil || q.Points != 20 || q.Reference != "" {
		t.Fatalf("overrides not applied: %+v %v", q, err)
	}
	for _, p := range []int{0, -3} {
		p := p
		_, err = gradeRequest{Points: &p}.question(stored)
		if !errors.Is(err, grading.ErrInvalidPoints) || statusFor(err) != http.StatusBadRequest {
			t.Fatalf("points %d: expected ErrInvalidPoints as 400, got %v", p, err)
		}
	}
}
