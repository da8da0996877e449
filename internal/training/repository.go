package training

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fieldline/curator/internal/feedback"
	"github.com/fieldline/curator/internal/models"
	"github.com/fieldline/curator/internal/records"
	"github.com/fieldline/curator/pkg/lifecycle"
	"github.com/fieldline/curator/pkg/pagination"
	"github.com/fieldline/curator/pkg/query"
	"github.com/fieldline/curator/pkg/repository"
)

// gate is the in-process guard against concurrent job creation for one
// model. The partial unique index on training_jobs provides the same
// guarantee across processes; the gate catches races before they reach
// the database.
type gate struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newGate() *gate {
	return &gate{active: make(map[string]struct{})}
}

func (g *gate) acquire(model string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.active[model]; held {
		return false
	}
	g.active[model] = struct{}{}
	return true
}

func (g *gate) release(model string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, model)
}

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
	records    records.System
	feedback   feedback.System
	registry   models.System
	trainer    Trainer
	cfg        Config
	gate       *gate

	group  *errgroup.Group
	runCtx context.Context
}

// New creates a training scheduler implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	recordSys records.System,
	feedbackSys feedback.System,
	registry models.System,
	trainer Trainer,
	cfg Config,
) System {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}

	group := &errgroup.Group{}
	group.SetLimit(cfg.MaxConcurrent)

	return &repo{
		db:         db,
		logger:     logger.With("system", "training"),
		pagination: pagination,
		records:    recordSys,
		feedback:   feedbackSys,
		registry:   registry,
		trainer:    trainer,
		cfg:        cfg,
		gate:       newGate(),
		group:      group,
		runCtx:     context.Background(),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Start(lc *lifecycle.Coordinator) error {
	r.logger.Info("starting training scheduler")
	r.runCtx = lc.Context()

	if err := r.recoverInterrupted(r.runCtx); err != nil {
		return fmt.Errorf("recover interrupted jobs: %w", err)
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		r.logger.Info("waiting for running training jobs")
		_ = r.group.Wait()
	})

	return nil
}

// recoverInterrupted fails jobs a previous process left behind. A job
// still pending or running at startup was interrupted; leaving it would
// hold the per-model unique index forever and block every new job for
// that model.
func (r *repo) recoverInterrupted(ctx context.Context) error {
	result, err := r.db.ExecContext(
		ctx,
		"UPDATE training_jobs SET status = $1, error_message = $2, completed_at = now() WHERE status IN ($3, $4)",
		StatusFailed, "interrupted by restart", StatusPending, StatusRunning,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		r.logger.Warn("failed interrupted training jobs", "count", affected)
	}
	return nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Job], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort...)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanJob)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Job, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	job, err := repository.QueryOne(ctx, r.db, q, args, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrJobAlreadyRunning)
	}
	return &job, nil
}

func (r *repo) CreateJob(ctx context.Context, cmd CreateCommand) (*Job, error) {
	if !cmd.Trigger.Valid() {
		return nil, ErrInvalidTrigger
	}

	if !cmd.ForceRetrain {
		failed, err := r.latestFailed(ctx, cmd.ModelName)
		if err != nil {
			return nil, err
		}
		if failed {
			return nil, ErrForceRequired
		}
	}

	if !r.gate.acquire(cmd.ModelName) {
		return nil, ErrJobAlreadyRunning
	}

	types, err := json.Marshal(cmd.DocumentTypes)
	if err != nil {
		r.gate.release(cmd.ModelName)
		return nil, fmt.Errorf("marshal document_types: %w", err)
	}

	q := `
		INSERT INTO training_jobs(id, model_name, trigger_reason, document_types)
		VALUES ($1, $2, $3, $4)
		RETURNING id, model_name, trigger_reason, document_types, status, progress, error_message, result_model_path, created_at, started_at, completed_at`

	args := []any{uuid.New(), cmd.ModelName, cmd.Trigger, types}

	job, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Job, error) {
		return repository.QueryOne(ctx, tx, q, args, scanJob)
	})

	if err != nil {
		r.gate.release(cmd.ModelName)
		return nil, repository.MapError(err, ErrNotFound, ErrJobAlreadyRunning)
	}

	r.logger.Info(
		"training job created",
		"id", job.ID,
		"model", job.ModelName,
		"trigger", job.Trigger,
	)
	return &job, nil
}

// latestFailed reports whether the model's most recent job ended in failure.
func (r *repo) latestFailed(ctx context.Context, modelName string) (bool, error) {
	var status JobStatus
	err := r.db.QueryRowContext(
		ctx,
		"SELECT status FROM training_jobs WHERE model_name = $1 ORDER BY created_at DESC LIMIT 1",
		modelName,
	).Scan(&status)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query latest job: %w", err)
	}

	return status == StatusFailed, nil
}

func (r *repo) Run(id uuid.UUID) error {
	job, err := r.Find(r.runCtx, id)
	if err != nil {
		return err
	}

	if job.Status != StatusPending {
		return ErrNotPending
	}

	// the errgroup bounds concurrency; dispatch must not block the caller
	go func() {
		r.group.Go(func() error {
			r.execute(r.runCtx, job)
			return nil
		})
	}()

	return nil
}
