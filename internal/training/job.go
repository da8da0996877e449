// Package training implements the training job scheduler for Curator.
// Jobs retrain the extraction model for a document type from qualified
// training records. At most one pending or running job exists per model,
// enforced both in-process and by a partial unique index so concurrent
// requests and multiple replicas cannot double-train.
package training

import (
	"time"

	"github.com/google/uuid"
)

// TriggerReason records why a training job was created.
type TriggerReason string

const (
	TriggerManual          TriggerReason = "manual"
	TriggerThreshold       TriggerReason = "threshold"
	TriggerPerformance     TriggerReason = "performance"
	TriggerNewDocumentType TriggerReason = "new_document_type"
	TriggerScheduled       TriggerReason = "scheduled"
)

// Valid reports whether the trigger reason is one of the defined kinds.
func (t TriggerReason) Valid() bool {
	switch t {
	case TriggerManual, TriggerThreshold, TriggerPerformance,
		TriggerNewDocumentType, TriggerScheduled:
		return true
	}
	return false
}

// JobStatus represents the lifecycle state of a training job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Valid reports whether the status is one of the defined lifecycle states.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Active reports whether the job still occupies its model's training slot.
func (s JobStatus) Active() bool {
	return s == StatusPending || s == StatusRunning
}

// Job represents one training run for a model.
type Job struct {
	ID              uuid.UUID     `json:"id"`
	ModelName       string        `json:"model_name"`
	Trigger         TriggerReason `json:"trigger_reason"`
	DocumentTypes   []string      `json:"document_types"`
	Status          JobStatus     `json:"status"`
	Progress        int           `json:"progress"`
	ErrorMessage    *string       `json:"error_message,omitempty"`
	ResultModelPath *string       `json:"result_model_path,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}

// Trigger is one fired retraining condition produced by EvaluateTriggers.
type Trigger struct {
	ModelName     string        `json:"model_name"`
	Reason        TriggerReason `json:"reason"`
	DocumentTypes []string      `json:"document_types"`
	Detail        string        `json:"detail"`
}

// CreateCommand carries the data needed to enqueue a training job.
type CreateCommand struct {
	ModelName     string        `json:"model_name"`
	Trigger       TriggerReason `json:"trigger_reason"`
	DocumentTypes []string      `json:"document_types"`
	ForceRetrain  bool          `json:"force_retrain"`
}

// ModelName derives the model identifier for a document type.
func ModelName(documentType string) string {
	return documentType + "-extractor"
}
