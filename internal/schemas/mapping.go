package schemas

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/fieldline/curator/pkg/query"
	"github.com/fieldline/curator/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "field_schemas", "fs").
	Project("id", "ID").
	Project("document_type", "DocumentType").
	Project("fields", "Fields").
	Project("confidence_floor", "ConfidenceFloor").
	Project("description", "Description").
	Project("active", "Active")

var defaultSort = query.SortField{
	Field:      "DocumentType",
	Descending: false,
}

// Filters contains optional filtering criteria for schema queries.
// Nil fields are ignored.
type Filters struct {
	DocumentType *string `json:"document_type,omitempty"`
	Active       *bool   `json:"active,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("DocumentType", f.DocumentType).
		WhereEquals("Active", f.Active)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if dt := values.Get("document_type"); dt != "" {
		f.DocumentType = &dt
	}

	if a := values.Get("active"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.Active = &v
		}
	}

	return f
}

func scanSchema(s repository.Scanner) (FieldSchema, error) {
	var schema FieldSchema
	var fieldsRaw []byte

	err := s.Scan(
		&schema.ID,
		&schema.DocumentType,
		&fieldsRaw,
		&schema.ConfidenceFloor,
		&schema.Description,
		&schema.Active,
	)

	if err != nil {
		return schema, err
	}

	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &schema.Fields); err != nil {
			return schema, fmt.Errorf("unmarshal fields: %w", err)
		}
	}

	if schema.Fields == nil {
		schema.Fields = []FieldSpec{}
	}

	return schema, nil
}
