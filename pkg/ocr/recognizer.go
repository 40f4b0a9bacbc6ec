package ocr

import "context"

// Recognition is the best-guess transcription of an image plus its estimated
// reliability as a percentage in [0,100].
type Recognition struct {
	Text    string `json:"text"`
	Quality int    `json:"quality"`
}

// TextRecognizer transcribes the image at path, optionally enhancing it first.
type TextRecognizer interface {
	Recognize(ctx context.Context, path string, enhance bool) (Recognition, error)
}
