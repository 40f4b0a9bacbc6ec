package ocr

import "math"

// Quality bounds used when the recognition service reports no confidences.
const (
	estimatedQualityMin = 70
	estimatedQualityMax = 95
)

// Quality derives a percentage from per-word confidences in [0,1]. When no
// confidences are available it falls back to EstimateQuality.
func Quality(confidences []float64, text string) int {
	if len(confidences) == 0 {
		return EstimateQuality(text)
	}
	sum := 0.0
	for _, c := range confidences {
		sum += c
	}
	q := int(math.Round(sum / float64(len(confidences)) * 100))
	if q < 0 {
		return 0
	}
	if q > 100 {
		return 100
	}
	return q
}

// EstimateQuality maps the character-diversity ratio of text (distinct runes
// over total runes, whitespace ignored) into [70,95].
func EstimateQuality(text string) int {
	seen := map[rune]struct{}{}
	total := 0
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			continue
		}
		total++
		seen[r] = struct{}{}
	}
	if total == 0 {
		return estimatedQualityMin
	}
	ratio := float64(len(seen)) / float64(total)
	return estimatedQualityMin + int(math.Round(ratio*float64(estimatedQualityMax-estimatedQualityMin)))
}
