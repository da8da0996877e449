package records

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/fieldline/curator/pkg/query"
	"github.com/fieldline/curator/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "training_records", "tr").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("document_type", "DocumentType").
	Project("image_path", "ImagePath").
	Project("extracted_fields", "ExtractedFields").
	Project("confidence_scores", "ConfidenceScores").
	Project("user_validations", "UserValidations").
	Project("quality_score", "QualityScore").
	Project("created_at", "CreatedAt")

// Records are consumed oldest-first with id as the tie-break so dataset
// assembly is deterministic for a given pool.
var defaultSort = []query.SortField{
	{Field: "CreatedAt", Descending: false},
	{Field: "ID", Descending: false},
}

// Filters contains optional filtering criteria for record queries.
// Nil fields are ignored.
type Filters struct {
	DocumentType *string    `json:"document_type,omitempty"`
	DocumentID   *uuid.UUID `json:"document_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("DocumentType", f.DocumentType).
		WhereEquals("DocumentID", f.DocumentID)
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

	return f
}

func scanRecord(s repository.Scanner) (Record, error) {
	var r Record
	var fieldsRaw, scoresRaw, validationsRaw []byte

	err := s.Scan(
		&r.ID,
		&r.DocumentID,
		&r.DocumentType,
		&r.ImagePath,
		&fieldsRaw,
		&scoresRaw,
		&validationsRaw,
		&r.QualityScore,
		&r.CreatedAt,
	)

	if err != nil {
		return r, err
	}

	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &r.ExtractedFields); err != nil {
			return r, fmt.Errorf("unmarshal extracted_fields: %w", err)
		}
	}
	if len(scoresRaw) > 0 {
		if err := json.Unmarshal(scoresRaw, &r.ConfidenceScores); err != nil {
			return r, fmt.Errorf("unmarshal confidence_scores: %w", err)
		}
	}
	if len(validationsRaw) > 0 {
		if err := json.Unmarshal(validationsRaw, &r.UserValidations); err != nil {
			return r, fmt.Errorf("unmarshal user_validations: %w", err)
		}
	}

	if r.ExtractedFields == nil {
		r.ExtractedFields = map[string]string{}
	}
	if r.ConfidenceScores == nil {
		r.ConfidenceScores = map[string]float64{}
	}
	if r.UserValidations == nil {
		r.UserValidations = []ValidationEvent{}
	}

	return r, nil
}
