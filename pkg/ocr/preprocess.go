package ocr

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
)

// Enhancement recipe applied before recognition when requested.
const (
	// ContrastFactor multiplies distance from mid-gray.
	ContrastFactor = 2.0
	SharpenSigma   = 1.0
)

// Enhance converts img to grayscale, amplifies contrast by ContrastFactor and
// sharpens it. The transform is deterministic.
func Enhance(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, (ContrastFactor-1)*100)
	return imaging.Sharpen(gray, SharpenSigma)
}

// LoadImage returns the bytes to submit for recognition. Without enhancement
// the file is passed through untouched; with it the enhanced image is
// re-encoded as PNG.
func LoadImage(path string, enhance bool) ([]byte, error) {
	if !enhance {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		return data, nil
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, Enhance(img), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode enhanced image: %w", err)
	}
	return buf.Bytes(), nil
}
