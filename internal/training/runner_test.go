package training

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/sync/errgroup"

	"github.com/fieldline/curator/internal/models"
	"github.com/fieldline/curator/internal/records"
	"github.com/fieldline/curator/pkg/lifecycle"
)

// The fakes embed their System interfaces so only the methods the
// runner touches need implementations.

type fakeDataset struct {
	records.System
	qualified []records.Record
	err       error
}

func (f *fakeDataset) ListQualified(
	ctx context.Context,
	documentTypes []string,
	qualityThreshold float64,
) ([]records.Record, error) {
	return f.qualified, f.err
}

type fakeRegistry struct {
	models.System
	activated []models.ActivateCommand
	err       error
}

func (f *fakeRegistry) ActivateModel(ctx context.Context, cmd models.ActivateCommand) (*models.Pointer, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.activated = append(f.activated, cmd)
	return &models.Pointer{ModelName: cmd.ModelName, ArtifactPath: cmd.ArtifactPath}, nil
}

type fakeTrainer struct {
	artifact string
	err      error
	calls    int
}

func (f *fakeTrainer) Train(ctx context.Context, job *Job, dataset []records.Record) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.artifact, nil
}

func testScheduler(
	t *testing.T,
	dataset *fakeDataset,
	registry *fakeRegistry,
	trainer *fakeTrainer,
) (*repo, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	group := &errgroup.Group{}
	group.SetLimit(1)

	return &repo{
		db:       db,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		records:  dataset,
		registry: registry,
		trainer:  trainer,
		cfg: Config{
			QualityThreshold: 0.7,
			Timeout:          time.Minute,
			MaxConcurrent:    1,
		},
		gate:   newGate(),
		group:  group,
		runCtx: context.Background(),
	}, mock
}

func TestExecuteFailsWithoutQualifiedData(t *testing.T) {
	dataset := &fakeDataset{}
	registry := &fakeRegistry{}
	trainer := &fakeTrainer{artifact: "models/invoice-extractor/model.bin"}
	r, mock := testScheduler(t, dataset, registry, trainer)

	job := trainJob()
	r.gate.acquire(job.ModelName)

	mock.ExpectExec("UPDATE training_jobs SET status").
		WithArgs(job.ID, StatusRunning, StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE training_jobs SET status").
		WithArgs(job.ID, StatusFailed, ErrInsufficientData.Error()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r.execute(context.Background(), job)

	if trainer.calls != 0 {
		t.Errorf("trainer calls = %d, want 0 without a dataset", trainer.calls)
	}
	if len(registry.activated) != 0 {
		t.Errorf("activations = %d, the active model must stay untouched", len(registry.activated))
	}
	if !r.gate.acquire(job.ModelName) {
		t.Error("gate should be free after the job fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestExecuteCompletesAndActivates(t *testing.T) {
	dataset := &fakeDataset{qualified: []records.Record{
		{DocumentType: "invoice", QualityScore: 0.9},
		{DocumentType: "invoice", QualityScore: 0.8},
	}}
	registry := &fakeRegistry{}
	trainer := &fakeTrainer{artifact: "models/invoice-extractor/20260831/model.bin"}
	r, mock := testScheduler(t, dataset, registry, trainer)

	job := trainJob()
	r.gate.acquire(job.ModelName)

	mock.ExpectExec("UPDATE training_jobs SET status").
		WithArgs(job.ID, StatusRunning, StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE training_jobs SET progress").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE training_jobs SET progress").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE training_jobs SET status").
		WithArgs(job.ID, StatusCompleted, trainer.artifact).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r.execute(context.Background(), job)

	if len(registry.activated) != 1 {
		t.Fatalf("activations = %d, want 1", len(registry.activated))
	}
	if got := registry.activated[0]; got.ModelName != job.ModelName || got.ArtifactPath != trainer.artifact {
		t.Errorf("activated %+v, want model %q artifact %q", got, job.ModelName, trainer.artifact)
	}
	if !r.gate.acquire(job.ModelName) {
		t.Error("gate should be free after the job completes")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestExecuteTransitionLoserKeepsGateHeld(t *testing.T) {
	// Two dispatches of the same pending job race; only one wins the
	// pending-to-running update. The loser must leave the winner's gate
	// slot in place.
	dataset := &fakeDataset{}
	registry := &fakeRegistry{}
	trainer := &fakeTrainer{}
	r, mock := testScheduler(t, dataset, registry, trainer)

	job := trainJob()
	r.gate.acquire(job.ModelName)

	mock.ExpectExec("UPDATE training_jobs SET status").
		WithArgs(job.ID, StatusRunning, StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	r.execute(context.Background(), job)

	if r.gate.acquire(job.ModelName) {
		t.Error("losing the running transition must not free the winner's slot")
	}
	if trainer.calls != 0 {
		t.Errorf("trainer calls = %d, want 0 for the losing dispatch", trainer.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStartFailsInterruptedJobs(t *testing.T) {
	// Jobs left pending or running by a crashed process hold the
	// per-model slot forever; startup marks them failed before new work
	// is accepted.
	r, mock := testScheduler(t, &fakeDataset{}, &fakeRegistry{}, &fakeTrainer{})

	mock.ExpectExec("UPDATE training_jobs SET status").
		WithArgs(StatusFailed, "interrupted by restart", StatusPending, StatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 2))

	lc := lifecycle.New()
	if err := r.Start(lc); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := lc.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStartSurfacesRecoveryFailure(t *testing.T) {
	r, mock := testScheduler(t, &fakeDataset{}, &fakeRegistry{}, &fakeTrainer{})

	mock.ExpectExec("UPDATE training_jobs SET status").
		WillReturnError(context.DeadlineExceeded)

	if err := r.Start(lifecycle.New()); err == nil {
		t.Fatal("start should fail when recovery cannot run")
	}
}
