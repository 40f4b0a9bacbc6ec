// Package engine builds the configured text recognizer.
package engine

import (
	"context"
	"log"
	"strings"

	"examgrader/pkg/config"
	"examgrader/pkg/ocr"
	"examgrader/pkg/ocr/tesseract"
	"examgrader/pkg/ocr/vision"
)

// New returns the engine named by c.Engine. Vision falls back to tesseract
// when its credentials cannot be loaded.
func New(ctx context.Context, c config.OCRConfig) ocr.TextRecognizer {
	if c.Engine == "vision" {
		r, err := vision.New(ctx, c.CredentialsFile)
		if err == nil {
			return r
		}
		log.Printf("OCR vision unavailable (%v), falling back to tesseract", err)
	}
	return tesseract.New(Languages(c.Language)...)
}

// Languages splits a tesseract style "eng+ind" list.
func Languages(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
