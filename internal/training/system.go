package training

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline/curator/pkg/lifecycle"
	"github.com/fieldline/curator/pkg/pagination"
)

// Config holds the scheduler's trigger thresholds and execution limits.
type Config struct {
	// QualityThreshold is the minimum record quality admitted to a dataset.
	QualityThreshold float64
	// RetrainingThreshold is the new-record count that fires a threshold trigger.
	RetrainingThreshold int
	// PerformanceThreshold is the mean accuracy below which a performance
	// trigger fires.
	PerformanceThreshold float64
	// MinAnnotations is the record count a new document type needs before
	// its first training run.
	MinAnnotations int
	// Timeout bounds one training run.
	Timeout time.Duration
	// MaxConcurrent bounds simultaneously running jobs.
	MaxConcurrent int
}

// System defines the public contract for training job scheduling.
type System interface {
	Handler() *Handler

	// Start binds job execution to the process lifecycle. Running jobs
	// are awaited on shutdown.
	Start(lc *lifecycle.Coordinator) error

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Job], error)

	Find(ctx context.Context, id uuid.UUID) (*Job, error)
	// CreateJob enqueues a pending job. At most one pending or running job
	// exists per model (ErrJobAlreadyRunning); a model whose latest job
	// failed requires ForceRetrain (ErrForceRequired).
	CreateJob(ctx context.Context, cmd CreateCommand) (*Job, error)
	// Run dispatches a pending job onto a background worker and returns
	// immediately. The job transitions pending to running to completed or
	// failed; a successful run activates the produced model.
	Run(id uuid.UUID) error
	// EvaluateTriggers inspects record counts and rolling accuracy and
	// returns the retraining conditions that currently hold, at most one
	// per model.
	EvaluateTriggers(ctx context.Context) ([]Trigger, error)
}
