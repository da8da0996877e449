// Package schemas implements the field schema domain for Curator.
// It provides types, data access, and HTTP handlers for managing the
// per-document-type extraction field schemas that gate annotation
// readiness and training eligibility.
package schemas

import "github.com/google/uuid"

// FieldSpec describes one extractable field within a document type.
type FieldSpec struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// FieldSchema represents the extraction contract for one document type.
// At most one schema per document type is active at a time; the active
// schema determines required fields and the annotation confidence floor.
type FieldSchema struct {
	ID              uuid.UUID   `json:"id"`
	DocumentType    string      `json:"document_type"`
	Fields          []FieldSpec `json:"fields"`
	ConfidenceFloor float64     `json:"confidence_floor"`
	Description     *string     `json:"description"`
	Active          bool        `json:"active"`
}

// RequiredFields returns the names of all required fields in the schema.
func (s *FieldSchema) RequiredFields() []string {
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return required
}

// CreateCommand carries the data needed to create a new field schema.
type CreateCommand struct {
	DocumentType    string      `json:"document_type"`
	Fields          []FieldSpec `json:"fields"`
	ConfidenceFloor float64     `json:"confidence_floor"`
	Description     *string     `json:"description"`
}

// UpdateCommand carries the data needed to update an existing field schema.
type UpdateCommand struct {
	DocumentType    string      `json:"document_type"`
	Fields          []FieldSpec `json:"fields"`
	ConfidenceFloor float64     `json:"confidence_floor"`
	Description     *string     `json:"description"`
}
