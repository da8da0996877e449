package training

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/fieldline/curator/pkg/query"
	"github.com/fieldline/curator/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "training_jobs", "tj").
	Project("id", "ID").
	Project("model_name", "ModelName").
	Project("trigger_reason", "Trigger").
	Project("document_types", "DocumentTypes").
	Project("status", "Status").
	Project("progress", "Progress").
	Project("error_message", "ErrorMessage").
	Project("result_model_path", "ResultModelPath").
	Project("created_at", "CreatedAt").
	Project("started_at", "StartedAt").
	Project("completed_at", "CompletedAt")

var defaultSort = []query.SortField{
	{Field: "CreatedAt", Descending: true},
}

// Filters contains optional filtering criteria for job queries.
// Nil fields are ignored.
type Filters struct {
	ModelName *string        `json:"model_name,omitempty"`
	Status    *JobStatus     `json:"status,omitempty"`
	Trigger   *TriggerReason `json:"trigger_reason,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("ModelName", f.ModelName).
		WhereEquals("Status", f.Status).
		WhereEquals("Trigger", f.Trigger)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if m := values.Get("model_name"); m != "" {
		f.ModelName = &m
	}

	if s := values.Get("status"); s != "" {
		status := JobStatus(s)
		if status.Valid() {
			f.Status = &status
		}
	}

	if t := values.Get("trigger_reason"); t != "" {
		trigger := TriggerReason(t)
		if trigger.Valid() {
			f.Trigger = &trigger
		}
	}

	return f
}

func scanJob(s repository.Scanner) (Job, error) {
	var j Job
	var typesRaw []byte

	err := s.Scan(
		&j.ID,
		&j.ModelName,
		&j.Trigger,
		&typesRaw,
		&j.Status,
		&j.Progress,
		&j.ErrorMessage,
		&j.ResultModelPath,
		&j.CreatedAt,
		&j.StartedAt,
		&j.CompletedAt,
	)

	if err != nil {
		return j, err
	}

	if len(typesRaw) > 0 {
		if err := json.Unmarshal(typesRaw, &j.DocumentTypes); err != nil {
			return j, fmt.Errorf("unmarshal document_types: %w", err)
		}
	}

	if j.DocumentTypes == nil {
		j.DocumentTypes = []string{}
	}

	return j, nil
}
