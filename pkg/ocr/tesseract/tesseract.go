// Package tesseract implements ocr.TextRecognizer with a local Tesseract
// install through gosseract.
package tesseract

import (
	"context"
	"fmt"
	"log"
	"strings"

	"examgrader/pkg/ocr"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer runs Tesseract on a single image per call.
type Recognizer struct {
	Languages []string
	// Whitelist restricts recognized characters; empty means no restriction.
	Whitelist string
}

// New returns a Recognizer for the given Tesseract language codes (e.g. "eng").
func New(languages ...string) *Recognizer {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Recognizer{Languages: languages}
}

func (r *Recognizer) Recognize(ctx context.Context, path string, enhance bool) (ocr.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Recognition{}, err
	}
	data, err := ocr.LoadImage(path, enhance)
	if err != nil {
		return ocr.Recognition{}, err
	}
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(r.Languages...); err != nil {
		return ocr.Recognition{}, fmt.Errorf("set language: %w", err)
	}
	if r.Whitelist != "" {
		if err := client.SetWhitelist(r.Whitelist); err != nil {
			return ocr.Recognition{}, fmt.Errorf("set whitelist: %w", err)
		}
	}
	// block mode keeps source code line structure
	_ = client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK)
	if err := client.SetImageFromBytes(data); err != nil {
		return ocr.Recognition{}, fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("ocr error: %w", err)
	}
	text = strings.TrimSpace(text)
	confs := wordConfidences(client)
	rec := ocr.Recognition{Text: text, Quality: ocr.Quality(confs, text)}
	log.Printf("OCR tesseract %s enhance=%v words=%d quality=%d snippet=%q", path, enhance, len(confs), rec.Quality, ocr.Snippet(text, 120))
	if text == "" {
		return rec, ocr.ErrNoText
	}
	return rec, nil
}

// wordConfidences returns per-word confidences scaled to [0,1].
func wordConfidences(c *gosseract.Client) []float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil
	}
	out := make([]float64, 0, len(boxes))
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		out = append(out, b.Confidence/100)
	}
	return out
}
