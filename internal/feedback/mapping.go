package feedback

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/fieldline/curator/pkg/query"
	"github.com/fieldline/curator/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "feedback_sessions", "fs").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("document_type", "DocumentType").
	Project("fields", "Fields").
	Project("status", "Status").
	Project("reviewed_by", "ReviewedBy").
	Project("reject_reason", "RejectReason").
	Project("version", "Version").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = []query.SortField{
	{Field: "CreatedAt", Descending: true},
}

// Filters contains optional filtering criteria for session queries.
// Nil fields are ignored.
type Filters struct {
	DocumentType *string    `json:"document_type,omitempty"`
	DocumentID   *uuid.UUID `json:"document_id,omitempty"`
	Status       *Status    `json:"status,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("DocumentType", f.DocumentType).
		WhereEquals("DocumentID", f.DocumentID).
		WhereEquals("Status", f.Status)
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

	return f
}

func scanSession(s repository.Scanner) (Session, error) {
	var sess Session
	var fieldsRaw []byte

	err := s.Scan(
		&sess.ID,
		&sess.DocumentID,
		&sess.DocumentType,
		&fieldsRaw,
		&sess.Status,
		&sess.ReviewedBy,
		&sess.RejectReason,
		&sess.Version,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)

	if err != nil {
		return sess, err
	}

	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &sess.Fields); err != nil {
			return sess, fmt.Errorf("unmarshal fields: %w", err)
		}
	}

	if sess.Fields == nil {
		sess.Fields = map[string]FieldState{}
	}

	return sess, nil
}

func scanEvent(s repository.Scanner) (Event, error) {
	var e Event

	err := s.Scan(
		&e.ID,
		&e.SessionID,
		&e.DocumentType,
		&e.FieldName,
		&e.Type,
		&e.OriginalValue,
		&e.CorrectedValue,
		&e.Notes,
		&e.UserID,
		&e.CreatedAt,
	)

	return e, err
}

func scanAccuracy(s repository.Scanner) (FieldAccuracy, error) {
	var a FieldAccuracy

	err := s.Scan(
		&a.DocumentType,
		&a.FieldName,
		&a.Accuracy,
		&a.Samples,
		&a.Trend,
		&a.UpdatedAt,
	)

	return a, err
}
