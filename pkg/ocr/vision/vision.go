// Package vision implements ocr.TextRecognizer on top of the Google Cloud
// Vision images:annotate REST endpoint.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"examgrader/pkg/ocr"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultEndpoint is the public Vision API base URL.
const DefaultEndpoint = "https://vision.googleapis.com"

const scope = "https://www.googleapis.com/auth/cloud-vision"

// ErrMissingCredentials is returned when the service-account file does not exist.
var ErrMissingCredentials = errors.New("vision credentials file not found")

// Recognizer sends image bytes to Cloud Vision TEXT_DETECTION.
type Recognizer struct {
	// Client must attach authentication; see New.
	Client   *http.Client
	Endpoint string
	// LanguageHints are passed through as imageContext.languageHints.
	LanguageHints []string
}

// New loads a service-account credential file and returns an authenticated
// Recognizer.
func New(ctx context.Context, credentialsFile string, languageHints ...string) (*Recognizer, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, credentialsFile)
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return &Recognizer{
		Client:        oauth2.NewClient(ctx, creds.TokenSource),
		Endpoint:      DefaultEndpoint,
		LanguageHints: languageHints,
	}, nil
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image        imageContent  `json:"image"`
	Features     []feature     `json:"features"`
	ImageContext *imageContext `json:"imageContext,omitempty"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type imageContext struct {
	LanguageHints []string `json:"languageHints,omitempty"`
}

type annotateResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		FullTextAnnotation *struct {
			Text  string `json:"text"`
			Pages []struct {
				Blocks []struct {
					Paragraphs []struct {
						Words []struct {
							Confidence *float64 `json:"confidence"`
						} `json:"words"`
					} `json:"paragraphs"`
				} `json:"blocks"`
			} `json:"pages"`
		} `json:"fullTextAnnotation"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

func (r *Recognizer) Recognize(ctx context.Context, path string, enhance bool) (ocr.Recognition, error) {
	data, err := ocr.LoadImage(path, enhance)
	if err != nil {
		return ocr.Recognition{}, err
	}
	req := annotateRequest{Requests: []imageRequest{{
		Image:    imageContent{Content: base64.StdEncoding.EncodeToString(data)},
		Features: []feature{{Type: "TEXT_DETECTION"}},
	}}}
	if len(r.LanguageHints) > 0 {
		req.Requests[0].ImageContext = &imageContext{LanguageHints: r.LanguageHints}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("encode request: %w", err)
	}
	endpoint := r.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(endpoint, "/")+"/v1/images:annotate", bytes.NewReader(body))
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ocr.Recognition{}, fmt.Errorf("vision status %d: %s", resp.StatusCode, ocr.Snippet(string(raw), 200))
	}
	var out annotateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return ocr.Recognition{}, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Responses) == 0 {
		return ocr.Recognition{}, ocr.ErrNoText
	}
	first := out.Responses[0]
	if first.Error != nil && first.Error.Message != "" {
		return ocr.Recognition{}, fmt.Errorf("vision error %d: %s", first.Error.Code, first.Error.Message)
	}
	var text string
	if len(first.TextAnnotations) > 0 {
		text = first.TextAnnotations[0].Description
	} else if first.FullTextAnnotation != nil {
		text = first.FullTextAnnotation.Text
	}
	var confs []float64
	if fta := first.FullTextAnnotation; fta != nil {
		for _, p := range fta.Pages {
			for _, b := range p.Blocks {
				for _, para := range b.Paragraphs {
					for _, w := range para.Words {
						if w.Confidence != nil {
							confs = append(confs, *w.Confidence)
						}
					}
				}
			}
		}
	}
	rec := ocr.Recognition{Text: text, Quality: ocr.Quality(confs, text)}
	log.Printf("OCR vision %s enhance=%v words=%d quality=%d snippet=%q", path, enhance, len(confs), rec.Quality, ocr.Snippet(text, 120))
	if strings.TrimSpace(text) == "" {
		return rec, ocr.ErrNoText
	}
	return rec, nil
}
