package annotations

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/fieldline/curator/internal/quality"
)

func ptr(s string) *string { return &s }

func annotation(field, value string, confidence float64, userID *string) FieldAnnotation {
	return FieldAnnotation{
		FieldName:  field,
		FieldValue: value,
		Confidence: confidence,
		UserID:     userID,
		Timestamp:  time.Now().UTC(),
	}
}

func TestStatusValid(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusCreated, true},
		{StatusInProgress, true},
		{StatusCompleted, true},
		{Status("archived"), false},
		{Status(""), false},
	}

	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestFieldValuesLastWins(t *testing.T) {
	s := Session{Annotations: []FieldAnnotation{
		annotation("invoice_number", "INV-001", 0.9, nil),
		annotation("invoice_number", "INV-002", 0.8, nil),
		annotation("total_amount", "42.00", 0.95, nil),
	}}

	values := s.FieldValues()
	if len(values) != 2 {
		t.Fatalf("FieldValues length = %d, want 2", len(values))
	}
	if values["invoice_number"] != "INV-002" {
		t.Errorf("invoice_number = %q, want INV-002 (latest annotation)", values["invoice_number"])
	}
	if values["total_amount"] != "42.00" {
		t.Errorf("total_amount = %q, want 42.00", values["total_amount"])
	}
}

func TestFieldConfidencesMaxWins(t *testing.T) {
	s := Session{Annotations: []FieldAnnotation{
		annotation("invoice_number", "INV-001", 0.6, nil),
		annotation("invoice_number", "INV-001", 0.9, nil),
		annotation("invoice_number", "INV-001", 0.7, nil),
	}}

	confidences := s.FieldConfidences()
	if confidences["invoice_number"] != 0.9 {
		t.Errorf("confidence = %v, want 0.9 (highest)", confidences["invoice_number"])
	}
}

func TestValidatedFields(t *testing.T) {
	s := Session{Annotations: []FieldAnnotation{
		annotation("invoice_number", "INV-001", 0.9, ptr("reviewer-1")),
		annotation("total_amount", "42.00", 0.95, nil),
	}}

	validated := s.ValidatedFields()
	if !validated["invoice_number"] {
		t.Error("invoice_number should be validated")
	}
	if !validated["total_amount"] {
		t.Error("total_amount should be validated even without attribution")
	}
}

// A fully annotated session scores its mean confidence. Anonymous
// annotations count as validations, so no penalty applies.
func TestAnnotatedSessionScoresWithoutPenalty(t *testing.T) {
	fields := []string{"invoice_number", "total_amount", "invoice_date", "vendor_name", "currency"}

	s := Session{}
	for _, field := range fields {
		s.Annotations = append(s.Annotations, annotation(field, "value", 0.95, nil))
	}

	scorer := quality.NewScorer(0.1)
	score := scorer.Score(s.FieldConfidences(), s.ValidatedFields())

	if diff := score - 0.95; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("quality score = %v, want 0.95", score)
	}
}

func TestComputeTrainingReady(t *testing.T) {
	required := []string{"invoice_number", "total_amount"}

	tests := []struct {
		name        string
		annotations []FieldAnnotation
		floor       float64
		want        bool
	}{
		{
			name:        "no annotations",
			annotations: nil,
			floor:       0.5,
			want:        false,
		},
		{
			name: "all required covered",
			annotations: []FieldAnnotation{
				annotation("invoice_number", "INV-001", 0.9, nil),
				annotation("total_amount", "42.00", 0.8, nil),
			},
			floor: 0.5,
			want:  true,
		},
		{
			name: "missing required field",
			annotations: []FieldAnnotation{
				annotation("invoice_number", "INV-001", 0.9, nil),
			},
			floor: 0.5,
			want:  false,
		},
		{
			name: "required field below confidence floor",
			annotations: []FieldAnnotation{
				annotation("invoice_number", "INV-001", 0.9, nil),
				annotation("total_amount", "42.00", 0.3, nil),
			},
			floor: 0.5,
			want:  false,
		},
		{
			name: "low annotation shadowed by a later confident one",
			annotations: []FieldAnnotation{
				annotation("invoice_number", "INV-001", 0.3, nil),
				annotation("invoice_number", "INV-001", 0.9, nil),
				annotation("total_amount", "42.00", 0.8, nil),
			},
			floor: 0.5,
			want:  true,
		},
		{
			name: "extra fields do not matter",
			annotations: []FieldAnnotation{
				annotation("invoice_number", "INV-001", 0.9, nil),
				annotation("total_amount", "42.00", 0.8, nil),
				annotation("memo", "net 30", 0.1, nil),
			},
			floor: 0.5,
			want:  true,
		},
		{
			name: "exact floor counts",
			annotations: []FieldAnnotation{
				annotation("invoice_number", "INV-001", 0.5, nil),
				annotation("total_amount", "42.00", 0.5, nil),
			},
			floor: 0.5,
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeTrainingReady(tt.annotations, required, tt.floor); got != tt.want {
				t.Errorf("computeTrainingReady = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeTrainingReadyNoRequiredFields(t *testing.T) {
	// A schema without required fields is trivially satisfied.
	if !computeTrainingReady(nil, nil, 0.5) {
		t.Error("empty requirements should be training ready")
	}
}

func TestComputeTrainingReadyMonotonic(t *testing.T) {
	// Adding annotations never flips readiness back to false.
	required := []string{"invoice_number", "total_amount", "vendor_name"}

	annotations := []FieldAnnotation{
		annotation("invoice_number", "INV-001", 0.9, nil),
		annotation("total_amount", "42.00", 0.8, nil),
		annotation("vendor_name", "Acme", 0.7, nil),
	}

	if !computeTrainingReady(annotations, required, 0.5) {
		t.Fatal("expected ready with all required fields covered")
	}

	extended := append(annotations,
		annotation("memo", "net 30", 0.1, nil),
		annotation("invoice_number", "INV-001", 0.2, nil),
	)

	if !computeTrainingReady(extended, required, 0.5) {
		t.Error("additional annotations must not revoke readiness")
	}
}

func TestComputeTrainingReadyRandomSequences(t *testing.T) {
	// Readiness over any annotation sequence must equal the direct
	// definition: every required field has some annotation at or above
	// the floor. Order and duplicates are irrelevant.
	rng := rand.New(rand.NewSource(1))
	fields := []string{"invoice_number", "total_amount", "vendor_name", "invoice_date"}

	for i := 0; i < 200; i++ {
		required := fields[:1+rng.Intn(len(fields))]
		floor := rng.Float64()

		annotations := make([]FieldAnnotation, rng.Intn(12))
		for j := range annotations {
			annotations[j] = annotation(
				fields[rng.Intn(len(fields))],
				fmt.Sprintf("value-%d", j),
				rng.Float64(),
				nil,
			)
		}

		want := true
		for _, field := range required {
			covered := false
			for _, a := range annotations {
				if a.FieldName == field && a.Confidence >= floor {
					covered = true
					break
				}
			}
			if !covered {
				want = false
				break
			}
		}

		if got := computeTrainingReady(annotations, required, floor); got != want {
			t.Fatalf(
				"case %d: ready = %v, want %v (required %v, floor %v, annotations %+v)",
				i, got, want, required, floor, annotations,
			)
		}
	}
}
