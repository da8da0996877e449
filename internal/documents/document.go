// Package documents implements the document registry for Curator.
// It provides types, data access, and business logic for scanned source
// document upload, metadata management, and blob storage integration.
// Annotation and feedback sessions reference documents by id; a
// document's storage key doubles as the image reference for training.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a registered source document with its metadata and
// blob storage reference.
type Document struct {
	ID           uuid.UUID `json:"id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	PageCount    *int      `json:"page_count"`
	DocumentType string    `json:"document_type"`
	StorageKey   string    `json:"storage_key"`
	Status       string    `json:"status"`
	UploadedAt   time.Time `json:"uploaded_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateCommand carries the data needed to upload and register a new document.
// Data holds the raw file bytes. PageCount is optional and may be extracted
// by the caller via pdfcpu; nil values are stored as NULL.
type CreateCommand struct {
	Data         []byte
	Filename     string
	ContentType  string
	DocumentType string
	PageCount    *int
}
