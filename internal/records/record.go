// Package records implements the training record domain for Curator.
// Training records are curated samples distilled from completed annotation
// sessions or approved feedback reviews. The collection is append-only:
// records are never mutated after creation and are retained indefinitely
// for retraining pools.
package records

import (
	"time"

	"github.com/google/uuid"
)

// ValidationEvent captures one user validation of an extracted field.
type ValidationEvent struct {
	FieldName string    `json:"field_name"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Record represents one curated training sample.
type Record struct {
	ID               uuid.UUID          `json:"id"`
	DocumentID       uuid.UUID          `json:"document_id"`
	DocumentType     string             `json:"document_type"`
	ImagePath        string             `json:"image_path"`
	ExtractedFields  map[string]string  `json:"extracted_fields"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
	UserValidations  []ValidationEvent  `json:"user_validations"`
	QualityScore     float64            `json:"quality_score"`
	CreatedAt        time.Time          `json:"created_at"`
}

// ValidatedFields returns the set of field names covered by at least one
// user validation.
func (r *Record) ValidatedFields() map[string]bool {
	fields := make(map[string]bool, len(r.UserValidations))
	for _, v := range r.UserValidations {
		fields[v.FieldName] = true
	}
	return fields
}

// CreateCommand carries the data needed to append a new training record.
// QualityScore is computed by the caller before persistence.
type CreateCommand struct {
	DocumentID       uuid.UUID          `json:"document_id"`
	DocumentType     string             `json:"document_type"`
	ImagePath        string             `json:"image_path"`
	ExtractedFields  map[string]string  `json:"extracted_fields"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
	UserValidations  []ValidationEvent  `json:"user_validations"`
	QualityScore     float64            `json:"quality_score"`
}
