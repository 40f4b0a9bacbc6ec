package ocr

import "testing"

func TestQualityFromConfidences(t *testing.T) {
	if q := Quality([]float64{0.9, 0.8, 1.0}, "ignored"); q != 90 {
		t.Fatalf("expected 90 got %d", q)
	}
	if q := Quality([]float64{1.2}, ""); q != 100 {
		t.Fatalf("expected clamp to 100 got %d", q)
	}
}

func TestEstimateQualityRange(t *testing.T) {
	cases := map[string]int{
		"":          70,
		"aaaa":      76, // 1/4 diverse -> 70 + round(6.25)
		"abcd":      95,
		"ab ab\nab": 78, // 2/6 -> 70 + round(8.33)
	}
	for in, want := range cases {
		if got := EstimateQuality(in); got != want {
			t.Fatalf("EstimateQuality(%q) want %d got %d", in, want, got)
		}
	}
	if got := Quality(nil, "abcd"); got != 95 {
		t.Fatalf("nil confidences should estimate, got %d", got)
	}
}
