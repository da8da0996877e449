// Package annotations implements the annotation session domain for Curator.
// An annotation session collects human-labeled field values for one source
// document. Sessions feed the training pipeline: once completed, a session
// is frozen and distilled into an append-only training record.
package annotations

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an annotation session.
type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether the status is one of the defined lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// FieldAnnotation is one labeled value within a session. The bounding box
// is [x1, y1, x2, y2] in document image coordinates.
type FieldAnnotation struct {
	FieldName   string     `json:"field_name"`
	FieldValue  string     `json:"field_value"`
	BoundingBox [4]float64 `json:"bounding_box"`
	Confidence  float64    `json:"confidence"`
	UserID      *string    `json:"user_id,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// Session represents one annotation session over a source document.
// Completed sessions are frozen and reject further field edits.
type Session struct {
	ID            uuid.UUID         `json:"id"`
	DocumentID    uuid.UUID         `json:"document_id"`
	DocumentType  string            `json:"document_type"`
	ImageRef      string            `json:"image_ref"`
	Status        Status            `json:"status"`
	Annotations   []FieldAnnotation `json:"annotations"`
	TrainingReady bool              `json:"training_ready"`
	UserID        *string           `json:"user_id,omitempty"`
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// FieldValues returns the most recent annotated value per field.
func (s *Session) FieldValues() map[string]string {
	values := make(map[string]string, len(s.Annotations))
	for _, a := range s.Annotations {
		values[a.FieldName] = a.FieldValue
	}
	return values
}

// FieldConfidences returns the highest annotated confidence per field.
func (s *Session) FieldConfidences() map[string]float64 {
	confidences := make(map[string]float64, len(s.Annotations))
	for _, a := range s.Annotations {
		if current, ok := confidences[a.FieldName]; !ok || a.Confidence > current {
			confidences[a.FieldName] = a.Confidence
		}
	}
	return confidences
}

// ValidatedFields returns the set of annotated fields. The annotation
// itself is the validation; UserID only records who made it.
func (s *Session) ValidatedFields() map[string]bool {
	fields := make(map[string]bool, len(s.Annotations))
	for _, a := range s.Annotations {
		fields[a.FieldName] = true
	}
	return fields
}

// computeTrainingReady reports whether every required field carries at
// least one annotation meeting the confidence floor. Pure over its inputs.
func computeTrainingReady(annotations []FieldAnnotation, requiredFields []string, confidenceFloor float64) bool {
	covered := make(map[string]bool, len(annotations))
	for _, a := range annotations {
		if a.Confidence >= confidenceFloor {
			covered[a.FieldName] = true
		}
	}

	for _, field := range requiredFields {
		if !covered[field] {
			return false
		}
	}
	return true
}

// Readiness summarizes whether a document type has accumulated enough
// completed sessions to train on.
type Readiness struct {
	DocumentType   string `json:"document_type"`
	CompletedCount int    `json:"completed_count"`
	MinRequired    int    `json:"min_required"`
	CanTrain       bool   `json:"can_train"`
}

// CreateCommand carries the data needed to open a new annotation session.
type CreateCommand struct {
	DocumentID   uuid.UUID `json:"document_id"`
	DocumentType string    `json:"document_type"`
	ImageRef     string    `json:"image_ref"`
	UserID       *string   `json:"user_id,omitempty"`
}

// AnnotateCommand carries one field annotation to append to a session.
type AnnotateCommand struct {
	FieldName   string     `json:"field_name"`
	FieldValue  string     `json:"field_value"`
	BoundingBox [4]float64 `json:"bounding_box"`
	Confidence  float64    `json:"confidence"`
	UserID      *string    `json:"user_id,omitempty"`
}

// CompleteCommand carries the data needed to complete a session.
type CompleteCommand struct {
	UserID *string `json:"user_id,omitempty"`
}
