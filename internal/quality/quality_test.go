package quality_test

import (
	"math"
	"testing"

	"github.com/fieldline/curator/internal/quality"
)

func TestScoreEmptySample(t *testing.T) {
	scorer := quality.NewScorer(0.1)
	if got := scorer.Score(nil, nil); got != 0 {
		t.Errorf("Score(nil) = %v, want 0", got)
	}
	if got := scorer.Score(map[string]float64{}, nil); got != 0 {
		t.Errorf("Score(empty) = %v, want 0", got)
	}
}

func TestScoreAllValidated(t *testing.T) {
	scorer := quality.NewScorer(0.1)

	confidences := map[string]float64{
		"invoice_number": 0.95,
		"total_amount":   0.95,
		"invoice_date":   0.95,
		"vendor_name":    0.95,
		"due_date":       0.95,
	}
	validated := map[string]bool{
		"invoice_number": true,
		"total_amount":   true,
		"invoice_date":   true,
		"vendor_name":    true,
		"due_date":       true,
	}

	got := scorer.Score(confidences, validated)
	if math.Abs(got-0.95) > 1e-9 {
		t.Errorf("Score = %v, want 0.95", got)
	}
}

func TestScoreValidationPenalty(t *testing.T) {
	scorer := quality.NewScorer(0.1)

	confidences := map[string]float64{
		"invoice_number": 0.9,
		"total_amount":   0.7,
	}
	validated := map[string]bool{"invoice_number": true}

	// mean 0.8, one unvalidated field
	got := scorer.Score(confidences, validated)
	if math.Abs(got-0.7) > 1e-9 {
		t.Errorf("Score = %v, want 0.7", got)
	}
}

func TestScoreClampedToZero(t *testing.T) {
	scorer := quality.NewScorer(0.5)

	confidences := map[string]float64{
		"a": 0.2,
		"b": 0.2,
		"c": 0.2,
	}

	if got := scorer.Score(confidences, nil); got != 0 {
		t.Errorf("Score = %v, want 0 (clamped)", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	scorer := quality.NewScorer(0.1)

	confidences := map[string]float64{
		"invoice_number": 0.91,
		"total_amount":   0.64,
		"vendor_name":    0.78,
	}
	validated := map[string]bool{"total_amount": true}

	first := scorer.Score(confidences, validated)
	for range 10 {
		if got := scorer.Score(confidences, validated); got != first {
			t.Fatalf("Score not deterministic: got %v, first %v", got, first)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	tests := []struct {
		name        string
		penalty     float64
		confidences map[string]float64
		validated   map[string]bool
	}{
		{"high confidence no penalty", 0, map[string]float64{"a": 1.0, "b": 1.0}, nil},
		{"heavy penalty", 1.0, map[string]float64{"a": 0.5, "b": 0.5}, nil},
		{"mixed", 0.2, map[string]float64{"a": 0.3, "b": 0.9, "c": 0.6}, map[string]bool{"b": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := quality.NewScorer(tt.penalty).Score(tt.confidences, tt.validated)
			if got < 0 || got > 1 {
				t.Errorf("Score = %v, out of [0, 1]", got)
			}
		})
	}
}
