// Package orchestrator wires the continuous learning loop together.
// It listens for feedback approvals, folds approved sessions into
// training records, and periodically evaluates retraining triggers,
// dispatching a job for each condition that fires. The orchestrator
// holds no state of its own; every decision is delegated to the domain
// systems it coordinates.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldline/curator/internal/documents"
	"github.com/fieldline/curator/internal/feedback"
	"github.com/fieldline/curator/internal/quality"
	"github.com/fieldline/curator/internal/records"
	"github.com/fieldline/curator/internal/training"
	"github.com/fieldline/curator/pkg/lifecycle"
	"github.com/fieldline/curator/pkg/pagination"
)

// sweepPageSize caps how many approved sessions one tick materializes.
const sweepPageSize = 100

// Orchestrator drives the learning loop between feedback, records, and
// training.
type Orchestrator struct {
	logger    *slog.Logger
	feedback  feedback.System
	documents documents.System
	records   records.System
	training  training.System
	scorer    quality.Scorer
	interval  time.Duration

	wg sync.WaitGroup
}

// New creates an Orchestrator. interval controls how often retraining
// triggers are evaluated independently of feedback activity.
func New(
	logger *slog.Logger,
	feedbackSys feedback.System,
	documentSys documents.System,
	recordSys records.System,
	trainingSys training.System,
	scorer quality.Scorer,
	interval time.Duration,
) *Orchestrator {
	return &Orchestrator{
		logger:    logger.With("system", "orchestrator"),
		feedback:  feedbackSys,
		documents: documentSys,
		records:   recordSys,
		training:  trainingSys,
		scorer:    scorer,
		interval:  interval,
	}
}

// Start registers the orchestration loop with the lifecycle coordinator.
// The loop stops when the coordinator's context is cancelled; shutdown
// waits for it to drain.
func (o *Orchestrator) Start(lc *lifecycle.Coordinator) error {
	o.logger.Info("starting orchestrator", "interval", o.interval)

	o.wg.Add(1)
	lc.OnStartup(func() {
		go o.run(lc.Context())
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		o.wg.Wait()
	})

	return nil
}

func (o *Orchestrator) run(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator stopped")
			return
		case n := <-o.feedback.Events():
			o.handleNotification(ctx, n)
		case <-ticker.C:
			o.sweepApproved(ctx)
			o.evaluate(ctx)
		}
	}
}

func (o *Orchestrator) handleNotification(ctx context.Context, n feedback.Notification) {
	if n.Status != feedback.StatusApproved {
		return
	}

	if err := o.materialize(ctx, n); err != nil {
		o.logger.Error(
			"materialize approved session failed",
			"session_id", n.SessionID,
			"error", err,
		)
		return
	}

	o.evaluate(ctx)
}

// materialize folds one approved review session into a training record
// and marks the session completed.
func (o *Orchestrator) materialize(ctx context.Context, n feedback.Notification) error {
	sess, err := o.feedback.Find(ctx, n.SessionID)
	if err != nil {
		return err
	}

	if sess.Status != feedback.StatusApproved {
		return nil
	}

	imagePath := ""
	if doc, err := o.documents.Find(ctx, sess.DocumentID); err == nil {
		imagePath = doc.StorageKey
	} else if !errors.Is(err, documents.ErrNotFound) {
		return err
	}

	confidences := sess.Confidences()
	validated := sess.ValidatedFields()

	validations := make([]records.ValidationEvent, 0, len(validated))
	for field := range validated {
		event := records.ValidationEvent{
			FieldName: field,
			Timestamp: sess.UpdatedAt,
		}
		if sess.ReviewedBy != nil {
			event.UserID = *sess.ReviewedBy
		}
		validations = append(validations, event)
	}

	_, err = o.records.Create(ctx, records.CreateCommand{
		DocumentID:       sess.DocumentID,
		DocumentType:     sess.DocumentType,
		ImagePath:        imagePath,
		ExtractedFields:  sess.FinalValues(),
		ConfidenceScores: confidences,
		UserValidations:  validations,
		QualityScore:     o.scorer.Score(confidences, validated),
	})

	if err != nil && !errors.Is(err, records.ErrDuplicate) {
		return err
	}

	if _, err := o.feedback.Complete(ctx, sess.ID); err != nil {
		return err
	}

	o.logger.Info(
		"approved session folded into training record",
		"session_id", sess.ID,
		"document_type", sess.DocumentType,
	)
	return nil
}

// sweepApproved folds approved sessions whose notification never arrived,
// dropped on channel overflow or approved while the process was down.
// One page per tick; the next tick picks up whatever remains.
func (o *Orchestrator) sweepApproved(ctx context.Context) {
	approved := feedback.StatusApproved
	page := pagination.PageRequest{Page: 1, PageSize: sweepPageSize}

	result, err := o.feedback.List(ctx, page, feedback.Filters{Status: &approved})
	if err != nil {
		o.logger.Error("list approved sessions failed", "error", err)
		return
	}

	for _, sess := range result.Data {
		n := feedback.Notification{
			SessionID:    sess.ID,
			DocumentID:   sess.DocumentID,
			DocumentType: sess.DocumentType,
			Status:       sess.Status,
		}
		if err := o.materialize(ctx, n); err != nil {
			o.logger.Error(
				"materialize approved session failed",
				"session_id", sess.ID,
				"error", err,
			)
		}
	}
}

// evaluate fires a training job for every retraining condition that holds.
func (o *Orchestrator) evaluate(ctx context.Context) {
	triggers, err := o.training.EvaluateTriggers(ctx)
	if err != nil {
		o.logger.Error("evaluate triggers failed", "error", err)
		return
	}

	for _, t := range triggers {
		o.dispatch(ctx, t)
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, t training.Trigger) {
	job, err := o.training.CreateJob(ctx, training.CreateCommand{
		ModelName:     t.ModelName,
		Trigger:       t.Reason,
		DocumentTypes: t.DocumentTypes,
	})

	if err != nil {
		if errors.Is(err, training.ErrJobAlreadyRunning) || errors.Is(err, training.ErrForceRequired) {
			o.logger.Debug("trigger skipped", "model", t.ModelName, "reason", err)
			return
		}
		o.logger.Error("create triggered job failed", "model", t.ModelName, "error", err)
		return
	}

	o.logger.Info(
		"training job dispatched",
		"job_id", job.ID,
		"model", job.ModelName,
		"trigger", job.Trigger,
		"detail", t.Detail,
	)

	if err := o.training.Run(job.ID); err != nil {
		o.logger.Error("run triggered job failed", "job_id", job.ID, "error", err)
	}
}
