package training

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EvaluateTriggers walks every document type with training data and
// returns the retraining conditions that hold, at most one per model.
// Precedence when several conditions hold for one type: first training,
// then accumulated data, then degraded accuracy.
func (r *repo) EvaluateTriggers(ctx context.Context) ([]Trigger, error) {
	types, err := r.records.DocumentTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}

	triggers := make([]Trigger, 0)

	for _, documentType := range types {
		trigger, err := r.evaluateType(ctx, documentType)
		if err != nil {
			return nil, err
		}
		if trigger != nil {
			triggers = append(triggers, *trigger)
		}
	}

	return triggers, nil
}

func (r *repo) evaluateType(ctx context.Context, documentType string) (*Trigger, error) {
	modelName := ModelName(documentType)

	lastTrained, trainedBefore, err := r.lastCompleted(ctx, modelName)
	if err != nil {
		return nil, err
	}

	if !trainedBefore {
		count, err := r.records.CountSince(ctx, documentType, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("count records for %s: %w", documentType, err)
		}

		if count >= r.cfg.MinAnnotations {
			return &Trigger{
				ModelName:     modelName,
				Reason:        TriggerNewDocumentType,
				DocumentTypes: []string{documentType},
				Detail:        fmt.Sprintf("%d records, no prior model", count),
			}, nil
		}
		return nil, nil
	}

	newCount, err := r.records.CountSince(ctx, documentType, lastTrained)
	if err != nil {
		return nil, fmt.Errorf("count new records for %s: %w", documentType, err)
	}

	if newCount >= r.cfg.RetrainingThreshold {
		return &Trigger{
			ModelName:     modelName,
			Reason:        TriggerThreshold,
			DocumentTypes: []string{documentType},
			Detail:        fmt.Sprintf("%d new records since last training", newCount),
		}, nil
	}

	accuracy, sampled, err := r.meanAccuracy(ctx, documentType)
	if err != nil {
		return nil, err
	}

	if sampled && accuracy < r.cfg.PerformanceThreshold {
		return &Trigger{
			ModelName:     modelName,
			Reason:        TriggerPerformance,
			DocumentTypes: []string{documentType},
			Detail:        fmt.Sprintf("mean field accuracy %.3f below %.3f", accuracy, r.cfg.PerformanceThreshold),
		}, nil
	}

	return nil, nil
}

// lastCompleted returns when the model last finished a successful run.
func (r *repo) lastCompleted(ctx context.Context, modelName string) (time.Time, bool, error) {
	var completedAt time.Time
	err := r.db.QueryRowContext(
		ctx,
		"SELECT completed_at FROM training_jobs WHERE model_name = $1 AND status = $2 AND completed_at IS NOT NULL ORDER BY completed_at DESC LIMIT 1",
		modelName, StatusCompleted,
	).Scan(&completedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query last completed job: %w", err)
	}

	return completedAt, true, nil
}

// meanAccuracy averages the rolling accuracy of a document type's fields,
// skipping fields with no correction samples yet.
func (r *repo) meanAccuracy(ctx context.Context, documentType string) (float64, bool, error) {
	accuracies, err := r.feedback.FieldAccuracies(ctx, documentType)
	if err != nil {
		return 0, false, fmt.Errorf("query field accuracies for %s: %w", documentType, err)
	}

	var sum float64
	var count int
	for _, a := range accuracies {
		if a.Samples == 0 {
			continue
		}
		sum += a.Accuracy
		count++
	}

	if count == 0 {
		return 0, false, nil
	}
	return sum / float64(count), true, nil
}
