// Package feedback implements the human review ledger for Curator.
// Extraction results enter as review sessions; reviewers correct, validate,
// reject, or approve individual fields. Every piece of feedback is appended
// to an immutable event log and folded into rolling per-field accuracy,
// which the training scheduler reads to detect model drift.
package feedback

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the review lifecycle state of a feedback session.
type Status string

const (
	StatusProcessing      Status = "processing"
	StatusPendingReview   Status = "pending_review"
	StatusNeedsCorrection Status = "needs_correction"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusCompleted       Status = "completed"
)

// Valid reports whether the status is one of the defined lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusPendingReview, StatusNeedsCorrection,
		StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether the session accepts no further review actions.
// Approved sessions still transition to completed, but only through record
// materialization, never through reviewer actions.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// FeedbackType classifies one reviewer action on a field.
type FeedbackType string

const (
	TypeCorrection FeedbackType = "correction"
	TypeValidation FeedbackType = "validation"
	TypeRejection  FeedbackType = "rejection"
	TypeApproval   FeedbackType = "approval"
)

// Valid reports whether the feedback type is one of the defined kinds.
func (t FeedbackType) Valid() bool {
	switch t {
	case TypeCorrection, TypeValidation, TypeRejection, TypeApproval:
		return true
	}
	return false
}

// Trend indicates the direction of a field's rolling accuracy.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// FieldState tracks one extracted field through review.
type FieldState struct {
	OriginalValue  string  `json:"original_value"`
	CorrectedValue *string `json:"corrected_value,omitempty"`
	Confidence     float64 `json:"confidence"`
	Validated      bool    `json:"validated"`
}

// CurrentValue returns the corrected value when present, else the original.
func (f FieldState) CurrentValue() string {
	if f.CorrectedValue != nil {
		return *f.CorrectedValue
	}
	return f.OriginalValue
}

// Session represents one document's extraction results under human review.
type Session struct {
	ID           uuid.UUID             `json:"id"`
	DocumentID   uuid.UUID             `json:"document_id"`
	DocumentType string                `json:"document_type"`
	Fields       map[string]FieldState `json:"fields"`
	Status       Status                `json:"status"`
	ReviewedBy   *string               `json:"reviewed_by,omitempty"`
	RejectReason *string               `json:"reject_reason,omitempty"`
	Version      int                   `json:"version"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// FinalValues returns the reviewed value per field, corrections applied.
func (s *Session) FinalValues() map[string]string {
	values := make(map[string]string, len(s.Fields))
	for name, f := range s.Fields {
		values[name] = f.CurrentValue()
	}
	return values
}

// Confidences returns the extraction confidence per field.
func (s *Session) Confidences() map[string]float64 {
	confidences := make(map[string]float64, len(s.Fields))
	for name, f := range s.Fields {
		confidences[name] = f.Confidence
	}
	return confidences
}

// ValidatedFields returns the set of fields a reviewer has touched.
func (s *Session) ValidatedFields() map[string]bool {
	fields := make(map[string]bool, len(s.Fields))
	for name, f := range s.Fields {
		if f.Validated {
			fields[name] = true
		}
	}
	return fields
}

// Event is one immutable entry in the feedback ledger.
type Event struct {
	ID             int64        `json:"id"`
	SessionID      uuid.UUID    `json:"session_id"`
	DocumentType   string       `json:"document_type"`
	FieldName      string       `json:"field_name"`
	Type           FeedbackType `json:"feedback_type"`
	OriginalValue  string       `json:"original_value"`
	CorrectedValue *string      `json:"corrected_value,omitempty"`
	Notes          *string      `json:"notes,omitempty"`
	UserID         *string      `json:"user_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// FieldAccuracy is the rolling extraction accuracy of one field within a
// document type, updated on every correction.
type FieldAccuracy struct {
	DocumentType string    `json:"document_type"`
	FieldName    string    `json:"field_name"`
	Accuracy     float64   `json:"accuracy"`
	Samples      int       `json:"samples"`
	Trend        Trend     `json:"trend"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CorrectionPattern is one recurring original-to-corrected value pair.
type CorrectionPattern struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// Insights aggregates the feedback ledger for learning diagnostics.
type Insights struct {
	TotalFeedback       int                            `json:"total_feedback"`
	CommonCorrections   map[string][]CorrectionPattern `json:"common_corrections"`
	LowConfidenceFields map[string]int                 `json:"low_confidence_fields"`
}

// Notification announces a session status change to the orchestrator.
type Notification struct {
	SessionID    uuid.UUID `json:"session_id"`
	DocumentID   uuid.UUID `json:"document_id"`
	DocumentType string    `json:"document_type"`
	Status       Status    `json:"status"`
}

// CreateReviewCommand carries the extraction results that open a review session.
type CreateReviewCommand struct {
	DocumentID       uuid.UUID          `json:"document_id"`
	DocumentType     string             `json:"document_type"`
	ExtractedFields  map[string]string  `json:"extracted_fields"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
	UserID           *string            `json:"user_id,omitempty"`
}

// FeedbackCommand carries one reviewer action on a field.
type FeedbackCommand struct {
	FieldName      string       `json:"field_name"`
	Type           FeedbackType `json:"feedback_type"`
	CorrectedValue *string      `json:"corrected_value,omitempty"`
	Notes          *string      `json:"notes,omitempty"`
	UserID         *string      `json:"user_id,omitempty"`
}

// ApproveCommand carries the reviewer identity for an approval.
type ApproveCommand struct {
	UserID *string `json:"user_id,omitempty"`
}

// RejectCommand carries the reason and reviewer identity for a rejection.
type RejectCommand struct {
	Reason string  `json:"reason"`
	UserID *string `json:"user_id,omitempty"`
}
