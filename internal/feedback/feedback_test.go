package feedback

import (
	"math"
	"testing"
)

func ptr(s string) *string { return &s }

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusProcessing, false},
		{StatusPendingReview, false},
		{StatusNeedsCorrection, false},
		{StatusApproved, true},
		{StatusRejected, true},
		{StatusCompleted, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("Terminal(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestFeedbackTypeValid(t *testing.T) {
	for _, valid := range []FeedbackType{TypeCorrection, TypeValidation, TypeRejection, TypeApproval} {
		if !valid.Valid() {
			t.Errorf("%q should be valid", valid)
		}
	}
	if FeedbackType("suggestion").Valid() {
		t.Error("unknown feedback type should be invalid")
	}
}

func TestFieldStateCurrentValue(t *testing.T) {
	original := FieldState{OriginalValue: "INV-001", Confidence: 0.9}
	if got := original.CurrentValue(); got != "INV-001" {
		t.Errorf("CurrentValue = %q, want original", got)
	}

	corrected := FieldState{OriginalValue: "INV-001", CorrectedValue: ptr("INV-002")}
	if got := corrected.CurrentValue(); got != "INV-002" {
		t.Errorf("CurrentValue = %q, want correction", got)
	}
}

func TestSessionFinalValues(t *testing.T) {
	s := Session{Fields: map[string]FieldState{
		"invoice_number": {OriginalValue: "INV-001", CorrectedValue: ptr("INV-002")},
		"total_amount":   {OriginalValue: "42.00"},
	}}

	values := s.FinalValues()
	if values["invoice_number"] != "INV-002" {
		t.Errorf("invoice_number = %q, want corrected INV-002", values["invoice_number"])
	}
	if values["total_amount"] != "42.00" {
		t.Errorf("total_amount = %q, want original 42.00", values["total_amount"])
	}
}

func TestSessionValidatedFields(t *testing.T) {
	s := Session{Fields: map[string]FieldState{
		"invoice_number": {OriginalValue: "INV-001", Validated: true},
		"total_amount":   {OriginalValue: "42.00"},
	}}

	validated := s.ValidatedFields()
	if !validated["invoice_number"] {
		t.Error("invoice_number should be validated")
	}
	if validated["total_amount"] {
		t.Error("total_amount should not be validated")
	}
}

func TestNextAccuracyFirstSample(t *testing.T) {
	accuracy, trend := nextAccuracy(1.0, 0, false)
	if accuracy != 0 {
		t.Errorf("accuracy = %v, want 0 after first wrong sample", accuracy)
	}
	if trend != TrendDown {
		t.Errorf("trend = %q, want down", trend)
	}

	accuracy, trend = nextAccuracy(1.0, 0, true)
	if accuracy != 1.0 {
		t.Errorf("accuracy = %v, want 1.0 after first correct sample", accuracy)
	}
	if trend != TrendStable {
		t.Errorf("trend = %q, want stable", trend)
	}
}

func TestNextAccuracyRollingSequence(t *testing.T) {
	// wrong, right, wrong settles at one correct out of three
	accuracy, samples := 1.0, 0
	var trend Trend

	for _, correct := range []bool{false, true, false} {
		accuracy, trend = nextAccuracy(accuracy, samples, correct)
		samples++
	}

	if math.Abs(accuracy-1.0/3.0) > 1e-9 {
		t.Errorf("accuracy = %v, want 1/3", accuracy)
	}
	if trend != TrendDown {
		t.Errorf("trend = %q, want down", trend)
	}
}

func TestNextAccuracyTrend(t *testing.T) {
	tests := []struct {
		name      string
		prior     float64
		samples   int
		isCorrect bool
		want      Trend
	}{
		{"improvement", 0.5, 2, true, TrendUp},
		{"regression", 0.5, 2, false, TrendDown},
		{"perfect record stays stable", 1.0, 5, true, TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, trend := nextAccuracy(tt.prior, tt.samples, tt.isCorrect)
			if trend != tt.want {
				t.Errorf("trend = %q, want %q", trend, tt.want)
			}
		})
	}
}

func TestNextAccuracyBounds(t *testing.T) {
	accuracy, samples := 1.0, 0
	for i, correct := range []bool{false, false, true, false, true, true, false} {
		accuracy, _ = nextAccuracy(accuracy, samples, correct)
		samples++
		if accuracy < 0 || accuracy > 1 {
			t.Fatalf("step %d: accuracy %v out of [0, 1]", i, accuracy)
		}
	}
}
