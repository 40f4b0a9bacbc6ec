package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerPort != "8080" || cfg.Addr() != ":8080" {
		t.Fatalf("unexpected port %q", cfg.ServerPort)
	}
	if cfg.OCR.Engine != "vision" || !cfg.OCR.Enhance || cfg.OCR.CredentialsFile != "google-credentials.json" {
		t.Fatalf("unexpected OCR defaults %+v", cfg.OCR)
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" || cfg.Gemini.Timeout != 0 {
		t.Fatalf("unexpected gemini defaults %+v", cfg.Gemini)
	}
	if cfg.WatchDebounce != 700*time.Millisecond {
		t.Fatalf("unexpected debounce %v", cfg.WatchDebounce)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GRADER_GEMINI_MODEL", "gemini-test")
	t.Setenv("GRADER_GEMINI_TIMEOUT", "15s")
	t.Setenv("GRADER_OCR_ENGINE", "tesseract")
	t.Setenv("GRADER_OCR_ENHANCE", "false")
	t.Setenv("GRADER_STORAGE_MINIO_BUCKET", "exams")
	t.Setenv("GRADER_SERVER_PORT", ":9090")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gemini.Model != "gemini-test" || cfg.Gemini.Timeout != 15*time.Second {
		t.Fatalf("gemini overrides not applied %+v", cfg.Gemini)
	}
	if cfg.OCR.Engine != "tesseract" || cfg.OCR.Enhance {
		t.Fatalf("ocr overrides not applied %+v", cfg.OCR)
	}
	if cfg.Storage.Minio.Bucket != "exams" {
		t.Fatalf("bucket override not applied %q", cfg.Storage.Minio.Bucket)
	}
	if cfg.Addr() != ":9090" {
		t.Fatalf("unexpected addr %q", cfg.Addr())
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "GRADING:\n  USE_EVALUATOR: true\n  DEFAULT_POINTS: 7\nSTORAGE:\n  BACKEND: minio\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Grading.UseEvaluator || cfg.Grading.DefaultPoints != 7 || cfg.Storage.Backend != "minio" {
		t.Fatalf("file values not applied %+v %+v", cfg.Grading, cfg.Storage)
	}
}

func TestLoadRejectsUnknownEngine(t *testing.T) {
	t.Setenv("GRADER_OCR_ENGINE", "abbyy")
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for unknown engine")
	}
}

func TestValidatePoints(t *testing.T) {
	c := Config{OCR: OCRConfig{Engine: "vision"}, Storage: StorageConfig{Backend: "local"}}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for zero default points")
	}
}
