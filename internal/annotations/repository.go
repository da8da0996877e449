package annotations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline/curator/internal/quality"
	"github.com/fieldline/curator/internal/records"
	"github.com/fieldline/curator/internal/schemas"
	"github.com/fieldline/curator/pkg/pagination"
	"github.com/fieldline/curator/pkg/query"
	"github.com/fieldline/curator/pkg/repository"
)

const sessionColumns = `id, document_id, document_type, image_ref, status, annotations, training_ready, user_id, version, created_at, updated_at`

type repo struct {
	db          *sql.DB
	logger      *slog.Logger
	pagination  pagination.Config
	schemas     schemas.System
	records     records.System
	scorer      quality.Scorer
	minRequired int
}

// New creates an annotation session repository implementing the System
// interface. minRequired is the completed-session count a document type
// needs before it is considered trainable.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	schemaSys schemas.System,
	recordSys records.System,
	scorer quality.Scorer,
	minRequired int,
) System {
	return &repo{
		db:          db,
		logger:      logger.With("system", "annotations"),
		pagination:  pagination,
		schemas:     schemaSys,
		records:     recordSys,
		scorer:      scorer,
		minRequired: minRequired,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Session], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort...)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSession)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Session, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	sess, err := repository.QueryOne(ctx, r.db, q, args, scanSession)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &sess, nil
}

func (r *repo) CreateSession(ctx context.Context, cmd CreateCommand) (*Session, error) {
	if _, err := r.schemas.FindActive(ctx, cmd.DocumentType); err != nil {
		if errors.Is(err, schemas.ErrNoActive) {
			return nil, ErrInvalidDocumentType
		}
		return nil, err
	}

	q := `
		INSERT INTO annotation_sessions(id, document_id, document_type, image_ref, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + sessionColumns

	args := []any{uuid.New(), cmd.DocumentID, cmd.DocumentType, cmd.ImageRef, cmd.UserID}

	sess, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Session, error) {
		return repository.QueryOne(ctx, tx, q, args, scanSession)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"annotation session created",
		"id", sess.ID,
		"document_id", sess.DocumentID,
		"document_type", sess.DocumentType,
	)
	return &sess, nil
}

// lockSession reads a session row under FOR UPDATE so concurrent mutations
// of the same session serialize while distinct sessions proceed freely.
func lockSession(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Session, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM annotation_sessions WHERE id = $1 FOR UPDATE",
		sessionColumns,
	)
	return repository.QueryOne(ctx, tx, q, []any{id}, scanSession)
}

func (r *repo) AddFieldAnnotation(ctx context.Context, id uuid.UUID, cmd AnnotateCommand) (*Session, error) {
	if cmd.Confidence < 0 || cmd.Confidence > 1 {
		return nil, ErrInvalidConfidence
	}

	sess, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Session, error) {
		sess, err := lockSession(ctx, tx, id)
		if err != nil {
			return sess, err
		}

		if sess.Status == StatusCompleted {
			return sess, ErrSessionCompleted
		}

		schema, err := r.schemas.FindActive(ctx, sess.DocumentType)
		if err != nil {
			return sess, fmt.Errorf("resolve active schema: %w", err)
		}

		sess.Annotations = append(sess.Annotations, FieldAnnotation{
			FieldName:   cmd.FieldName,
			FieldValue:  cmd.FieldValue,
			BoundingBox: cmd.BoundingBox,
			Confidence:  cmd.Confidence,
			UserID:      cmd.UserID,
			Timestamp:   time.Now().UTC(),
		})

		sess.TrainingReady = computeTrainingReady(
			sess.Annotations,
			schema.RequiredFields(),
			schema.ConfidenceFloor,
		)

		raw, err := json.Marshal(sess.Annotations)
		if err != nil {
			return sess, fmt.Errorf("marshal annotations: %w", err)
		}

		q := `
			UPDATE annotation_sessions
			SET annotations = $2, training_ready = $3, status = $4, version = version + 1, updated_at = now()
			WHERE id = $1
			RETURNING ` + sessionColumns

		return repository.QueryOne(ctx, tx, q, []any{id, raw, sess.TrainingReady, StatusInProgress}, scanSession)
	})

	if err != nil {
		if errors.Is(err, ErrSessionCompleted) {
			return nil, ErrSessionCompleted
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &sess, nil
}

func (r *repo) CompleteSession(ctx context.Context, id uuid.UUID, cmd CompleteCommand) (*Session, error) {
	sess, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Session, error) {
		sess, err := lockSession(ctx, tx, id)
		if err != nil {
			return sess, err
		}

		if sess.Status == StatusCompleted {
			return sess, ErrSessionCompleted
		}

		q := `
			UPDATE annotation_sessions
			SET status = $2, version = version + 1, updated_at = now()
			WHERE id = $1
			RETURNING ` + sessionColumns

		return repository.QueryOne(ctx, tx, q, []any{id, StatusCompleted}, scanSession)
	})

	if err != nil {
		if errors.Is(err, ErrSessionCompleted) {
			return nil, ErrSessionCompleted
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if err := r.emitRecord(ctx, &sess, cmd.UserID); err != nil {
		return nil, err
	}

	r.logger.Info(
		"annotation session completed",
		"id", sess.ID,
		"document_type", sess.DocumentType,
		"training_ready", sess.TrainingReady,
	)
	return &sess, nil
}

// emitRecord distills a completed session into a training record. A
// document that already has a record keeps its original; completion of a
// second session for the same document is not an error.
func (r *repo) emitRecord(ctx context.Context, sess *Session, userID *string) error {
	validations := make([]records.ValidationEvent, 0, len(sess.Annotations))
	for _, a := range sess.Annotations {
		if a.UserID == nil {
			continue
		}
		validations = append(validations, records.ValidationEvent{
			FieldName: a.FieldName,
			UserID:    *a.UserID,
			Timestamp: a.Timestamp,
		})
	}

	confidences := sess.FieldConfidences()
	score := r.scorer.Score(confidences, sess.ValidatedFields())

	_, err := r.records.Create(ctx, records.CreateCommand{
		DocumentID:       sess.DocumentID,
		DocumentType:     sess.DocumentType,
		ImagePath:        sess.ImageRef,
		ExtractedFields:  sess.FieldValues(),
		ConfidenceScores: confidences,
		UserValidations:  validations,
		QualityScore:     score,
	})

	if err != nil {
		if errors.Is(err, records.ErrDuplicate) {
			r.logger.Warn(
				"training record already exists for document",
				"session_id", sess.ID,
				"document_id", sess.DocumentID,
			)
			return nil
		}
		return fmt.Errorf("emit training record: %w", err)
	}

	return nil
}

func (r *repo) TrainingReadiness(ctx context.Context, documentType string) (*Readiness, error) {
	var count int
	err := r.db.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM annotation_sessions WHERE document_type = $1 AND status = $2",
		documentType, StatusCompleted,
	).Scan(&count)

	if err != nil {
		return nil, fmt.Errorf("count completed sessions: %w", err)
	}

	return &Readiness{
		DocumentType:   documentType,
		CompletedCount: count,
		MinRequired:    r.minRequired,
		CanTrain:       count >= r.minRequired,
	}, nil
}
