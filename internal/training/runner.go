package training

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fieldline/curator/internal/models"
)

// execute runs one training job to a terminal state. Only the caller
// that wins the pending-to-running transition owns the model's gate
// slot; a loser returns without releasing it.
func (r *repo) execute(ctx context.Context, job *Job) {
	logger := r.logger.With("job_id", job.ID, "model", job.ModelName)

	if err := r.markRunning(ctx, job.ID); err != nil {
		logger.Error("transition job to running failed", "error", err)
		return
	}
	defer r.gate.release(job.ModelName)

	dataset, err := r.records.ListQualified(ctx, job.DocumentTypes, r.cfg.QualityThreshold)
	if err != nil {
		r.fail(ctx, logger, job.ID, fmt.Sprintf("assemble dataset: %v", err))
		return
	}

	if len(dataset) == 0 {
		r.fail(ctx, logger, job.ID, ErrInsufficientData.Error())
		return
	}

	if err := r.setProgress(ctx, job.ID, 25); err != nil {
		logger.Warn("update job progress failed", "error", err)
	}

	logger.Info("training started", "samples", len(dataset))

	trainCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	artifactPath, err := r.trainer.Train(trainCtx, job, dataset)
	if err != nil {
		r.fail(ctx, logger, job.ID, fmt.Sprintf("train: %v", err))
		return
	}

	if err := r.setProgress(ctx, job.ID, 90); err != nil {
		logger.Warn("update job progress failed", "error", err)
	}

	if _, err := r.registry.ActivateModel(ctx, models.ActivateCommand{
		ModelName:    job.ModelName,
		ArtifactPath: artifactPath,
	}); err != nil {
		r.fail(ctx, logger, job.ID, fmt.Sprintf("activate model: %v", err))
		return
	}

	if err := r.complete(ctx, job.ID, artifactPath); err != nil {
		logger.Error("transition job to completed failed", "error", err)
		return
	}

	logger.Info("training completed", "artifact", artifactPath, "samples", len(dataset))
}

func (r *repo) markRunning(ctx context.Context, id any) error {
	result, err := r.db.ExecContext(
		ctx,
		"UPDATE training_jobs SET status = $2, started_at = now(), progress = 10 WHERE id = $1 AND status = $3",
		id, StatusRunning, StatusPending,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return ErrNotPending
	}
	return nil
}

func (r *repo) setProgress(ctx context.Context, id any, progress int) error {
	_, err := r.db.ExecContext(
		ctx,
		"UPDATE training_jobs SET progress = $2 WHERE id = $1",
		id, progress,
	)
	return err
}

func (r *repo) complete(ctx context.Context, id any, artifactPath string) error {
	_, err := r.db.ExecContext(
		ctx,
		"UPDATE training_jobs SET status = $2, progress = 100, result_model_path = $3, completed_at = now() WHERE id = $1",
		id, StatusCompleted, artifactPath,
	)
	return err
}

func (r *repo) fail(ctx context.Context, logger *slog.Logger, id any, message string) {
	if _, err := r.db.ExecContext(
		ctx,
		"UPDATE training_jobs SET status = $2, error_message = $3, completed_at = now() WHERE id = $1",
		id, StatusFailed, message,
	); err != nil {
		logger.Error("transition job to failed errored", "error", err, "message", message)
		return
	}

	logger.Error("training failed", "message", message)
}
