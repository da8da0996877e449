package annotations

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/fieldline/curator/pkg/query"
	"github.com/fieldline/curator/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "annotation_sessions", "ans").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("document_type", "DocumentType").
	Project("image_ref", "ImageRef").
	Project("status", "Status").
	Project("annotations", "Annotations").
	Project("training_ready", "TrainingReady").
	Project("user_id", "UserID").
	Project("version", "Version").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = []query.SortField{
	{Field: "CreatedAt", Descending: true},
}

// Filters contains optional filtering criteria for session queries.
// Nil fields are ignored.
type Filters struct {
	DocumentType  *string    `json:"document_type,omitempty"`
	DocumentID    *uuid.UUID `json:"document_id,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	TrainingReady *bool      `json:"training_ready,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("DocumentType", f.DocumentType).
		WhereEquals("DocumentID", f.DocumentID).
		WhereEquals("Status", f.Status).
		WhereEquals("TrainingReady", f.TrainingReady)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if dt := values.Get("document_type"); dt != "" {
		f.DocumentType = &dt
	}

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}

	if s := values.Get("status"); s != "" {
		status := Status(s)
		if status.Valid() {
			f.Status = &status
		}
	}

	if tr := values.Get("training_ready"); tr != "" {
		ready := tr == "true"
		f.TrainingReady = &ready
	}

	return f
}

func scanSession(s repository.Scanner) (Session, error) {
	var sess Session
	var annotationsRaw []byte

	err := s.Scan(
		&sess.ID,
		&sess.DocumentID,
		&sess.DocumentType,
		&sess.ImageRef,
		&sess.Status,
		&annotationsRaw,
		&sess.TrainingReady,
		&sess.UserID,
		&sess.Version,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)

	if err != nil {
		return sess, err
	}

	if len(annotationsRaw) > 0 {
		if err := json.Unmarshal(annotationsRaw, &sess.Annotations); err != nil {
			return sess, fmt.Errorf("unmarshal annotations: %w", err)
		}
	}

	if sess.Annotations == nil {
		sess.Annotations = []FieldAnnotation{}
	}

	return sess, nil
}
