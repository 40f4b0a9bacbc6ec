package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"examgrader/pkg/ocr"
)

func writeImage(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "answer.png")
	if err := os.WriteFile(p, []byte("not really a png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestRecognizeUsesWordConfidences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images:annotate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req annotateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Requests) != 1 || req.Requests[0].Image.Content == "" {
			t.Errorf("bad request body: %v %+v", err, req)
		}
		_, _ = w.Write([]byte(`{"responses":[{"textAnnotations":[{"description":"def f(x):\n return x"}],
			"fullTextAnnotation":{"text":"def f(x):\n return x","pages":[{"blocks":[{"paragraphs":[{"words":[{"confidence":0.9},{"confidence":0.7}]}]}]}]}}]}`))
	}))
	defer srv.Close()

	r := &Recognizer{Client: srv.Client(), Endpoint: srv.URL}
	rec, err := r.Recognize(context.Background(), writeImage(t), false)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if rec.Text != "def f(x):\n return x" || rec.Quality != 80 {
		t.Fatalf("unexpected recognition %+v", rec)
	}
}

func TestRecognizeEstimatesQualityWithoutConfidences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"responses":[{"textAnnotations":[{"description":"abcd"}]}]}`))
	}))
	defer srv.Close()
	r := &Recognizer{Client: srv.Client(), Endpoint: srv.URL}
	rec, err := r.Recognize(context.Background(), writeImage(t), false)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if rec.Quality != 95 {
		t.Fatalf("expected diversity estimate 95 got %d", rec.Quality)
	}
}

func TestRecognizeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"responses":[{}]}`))
	}))
	defer srv.Close()
	r := &Recognizer{Client: srv.Client(), Endpoint: srv.URL}
	if _, err := r.Recognize(context.Background(), writeImage(t), false); !errors.Is(err, ocr.ErrNoText) {
		t.Fatalf("expected ErrNoText got %v", err)
	}

	fail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer fail.Close()
	r = &Recognizer{Client: fail.Client(), Endpoint: fail.URL}
	if _, err := r.Recognize(context.Background(), writeImage(t), false); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestNewMissingCredentials(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "google-credentials.json"))
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials got %v", err)
	}
}
