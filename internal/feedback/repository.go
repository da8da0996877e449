package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fieldline/curator/pkg/pagination"
	"github.com/fieldline/curator/pkg/query"
	"github.com/fieldline/curator/pkg/repository"
)

const sessionColumns = `id, document_id, document_type, fields, status, reviewed_by, reject_reason, version, created_at, updated_at`

// notificationBuffer bounds the orchestrator event queue. Sends never
// block review requests; overflow drops the notification with a warning
// and the orchestrator's periodic sweep picks up the session later.
const notificationBuffer = 64

type repo struct {
	db              *sql.DB
	logger          *slog.Logger
	pagination      pagination.Config
	reviewThreshold float64
	notifications   chan Notification
}

// New creates a feedback ledger repository implementing the System
// interface. reviewThreshold is the confidence below which a new session
// requires human review and a field counts as low-confidence in insights.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	reviewThreshold float64,
) System {
	return &repo{
		db:              db,
		logger:          logger.With("system", "feedback"),
		pagination:      pagination,
		reviewThreshold: reviewThreshold,
		notifications:   make(chan Notification, notificationBuffer),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Events() <-chan Notification {
	return r.notifications
}

func (r *repo) notify(sess *Session) {
	n := Notification{
		SessionID:    sess.ID,
		DocumentID:   sess.DocumentID,
		DocumentType: sess.DocumentType,
		Status:       sess.Status,
	}

	select {
	case r.notifications <- n:
	default:
		r.logger.Warn(
			"notification queue full, dropping event",
			"session_id", n.SessionID,
			"status", n.Status,
		)
	}
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

func (r *repo) CreateReviewSession(ctx context.Context, cmd CreateReviewCommand) (*Session, error) {
	fields := make(map[string]FieldState, len(cmd.ExtractedFields))
	status := StatusProcessing

	for name, value := range cmd.ExtractedFields {
		confidence := cmd.ConfidenceScores[name]
		fields[name] = FieldState{
			OriginalValue: value,
			Confidence:    confidence,
		}
		if confidence < r.reviewThreshold {
			status = StatusPendingReview
		}
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	q := `
		INSERT INTO feedback_sessions(id, document_id, document_type, fields, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + sessionColumns

	args := []any{uuid.New(), cmd.DocumentID, cmd.DocumentType, raw, status}

	sess, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Session, error) {
		return repository.QueryOne(ctx, tx, q, args, scanSession)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"review session created",
		"id", sess.ID,
		"document_type", sess.DocumentType,
		"status", sess.Status,
	)
	return &sess, nil
}

func lockSession(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Session, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM feedback_sessions WHERE id = $1 FOR UPDATE",
		sessionColumns,
	)
	return repository.QueryOne(ctx, tx, q, []any{id}, scanSession)
}

func (r *repo) AddFeedback(ctx context.Context, id uuid.UUID, cmd FeedbackCommand) (*Session, error) {
	if !cmd.Type.Valid() {
		return nil, ErrInvalidFeedback
	}

	sess, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Session, error) {
		sess, err := lockSession(ctx, tx, id)
		if err != nil {
			return sess, err
		}

		if sess.Status.Terminal() {
			return sess, ErrInvalidTransition
		}

		field, ok := sess.Fields[cmd.FieldName]
		if !ok {
			return sess, ErrUnknownField
		}

		feedbackType := cmd.Type
		if feedbackType == TypeCorrection && cmd.CorrectedValue == nil {
			// a correction without a value confirms the original
			feedbackType = TypeValidation
		}

		next := sess.Status
		switch feedbackType {
		case TypeCorrection:
			field.CorrectedValue = cmd.CorrectedValue
			field.Validated = true
			next = StatusNeedsCorrection

			isCorrect := *cmd.CorrectedValue == field.OriginalValue
			if err := updateAccuracy(ctx, tx, sess.DocumentType, cmd.FieldName, isCorrect); err != nil {
				return sess, err
			}
		case TypeValidation, TypeApproval:
			field.Validated = true
			if sess.Status == StatusProcessing || sess.Status == StatusNeedsCorrection {
				next = StatusPendingReview
			}
		case TypeRejection:
			field.Validated = true
			next = StatusNeedsCorrection
		}

		sess.Fields[cmd.FieldName] = field

		eventSQL := `
			INSERT INTO feedback_events(session_id, document_type, field_name, feedback_type, original_value, corrected_value, notes, user_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

		if _, err := tx.ExecContext(
			ctx, eventSQL,
			sess.ID, sess.DocumentType, cmd.FieldName, feedbackType,
			field.OriginalValue, cmd.CorrectedValue, cmd.Notes, cmd.UserID,
		); err != nil {
			return sess, fmt.Errorf("append feedback event: %w", err)
		}

		raw, err := json.Marshal(sess.Fields)
		if err != nil {
			return sess, fmt.Errorf("marshal fields: %w", err)
		}

		q := `
			UPDATE feedback_sessions
			SET fields = $2, status = $3, version = version + 1, updated_at = now()
			WHERE id = $1
			RETURNING ` + sessionColumns

		return repository.QueryOne(ctx, tx, q, []any{id, raw, next}, scanSession)
	})

	if err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrUnknownField) {
			return nil, err
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &sess, nil
}

// nextAccuracy folds one correction outcome into a rolling accuracy:
// accuracy' = (accuracy*(n-1) + outcome) / n with the sample count
// incremented, trend set by comparison with the prior value.
func nextAccuracy(prior float64, samples int, isCorrect bool) (float64, Trend) {
	outcome := 0.0
	if isCorrect {
		outcome = 1.0
	}

	accuracy := (prior*float64(samples) + outcome) / float64(samples+1)

	trend := TrendStable
	switch {
	case accuracy > prior:
		trend = TrendUp
	case accuracy < prior:
		trend = TrendDown
	}

	return accuracy, trend
}

// updateAccuracy applies one correction outcome to the persisted rolling
// accuracy for a field. Rows start at accuracy 1.0 with zero samples.
func updateAccuracy(ctx context.Context, tx *sql.Tx, documentType, fieldName string, isCorrect bool) error {
	var prior float64
	var samples int

	err := tx.QueryRowContext(
		ctx,
		"SELECT accuracy, samples FROM field_accuracy WHERE document_type = $1 AND field_name = $2 FOR UPDATE",
		documentType, fieldName,
	).Scan(&prior, &samples)

	if errors.Is(err, sql.ErrNoRows) {
		prior, samples = 1.0, 0
	} else if err != nil {
		return fmt.Errorf("read field accuracy: %w", err)
	}

	accuracy, trend := nextAccuracy(prior, samples, isCorrect)
	n := samples + 1

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO field_accuracy(document_type, field_name, accuracy, samples, trend, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (document_type, field_name)
		 DO UPDATE SET accuracy = $3, samples = $4, trend = $5, updated_at = now()`,
		documentType, fieldName, accuracy, n, trend,
	)

	if err != nil {
		return fmt.Errorf("update field accuracy: %w", err)
	}
	return nil
}

// finalize moves a session into a terminal reviewer state. Approvals and
// rejections are permitted from any non-terminal state; completion only
// from approved.
func (r *repo) finalize(ctx context.Context, id uuid.UUID, target Status, reviewedBy, reason *string) (*Session, error) {
	sess, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Session, error) {
		sess, err := lockSession(ctx, tx, id)
		if err != nil {
			return sess, err
		}

		switch target {
		case StatusApproved, StatusRejected:
			if sess.Status.Terminal() {
				return sess, ErrInvalidTransition
			}
		case StatusCompleted:
			if sess.Status != StatusApproved {
				return sess, ErrInvalidTransition
			}
		default:
			return sess, ErrInvalidTransition
		}

		q := `
			UPDATE feedback_sessions
			SET status = $2, reviewed_by = COALESCE($3, reviewed_by), reject_reason = $4, version = version + 1, updated_at = now()
			WHERE id = $1
			RETURNING ` + sessionColumns

		return repository.QueryOne(ctx, tx, q, []any{id, target, reviewedBy, reason}, scanSession)
	})

	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, ErrInvalidTransition
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &sess, nil
}

func (r *repo) Approve(ctx context.Context, id uuid.UUID, cmd ApproveCommand) (*Session, error) {
	sess, err := r.finalize(ctx, id, StatusApproved, cmd.UserID, nil)
	if err != nil {
		return nil, err
	}

	r.logger.Info("session approved", "id", sess.ID, "document_type", sess.DocumentType)
	r.notify(sess)
	return sess, nil
}

func (r *repo) Reject(ctx context.Context, id uuid.UUID, cmd RejectCommand) (*Session, error) {
	sess, err := r.finalize(ctx, id, StatusRejected, cmd.UserID, &cmd.Reason)
	if err != nil {
		return nil, err
	}

	r.logger.Info(
		"session rejected",
		"id", sess.ID,
		"document_type", sess.DocumentType,
		"reason", cmd.Reason,
	)
	r.notify(sess)
	return sess, nil
}

func (r *repo) Complete(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := r.finalize(ctx, id, StatusCompleted, nil, nil)
	if err != nil {
		return nil, err
	}

	r.logger.Info("session completed", "id", sess.ID)
	return sess, nil
}

func (r *repo) SessionEvents(ctx context.Context, id uuid.UUID) ([]Event, error) {
	q := `
		SELECT id, session_id, document_type, field_name, feedback_type, original_value, corrected_value, notes, user_id, created_at
		FROM feedback_events
		WHERE session_id = $1
		ORDER BY id ASC`

	events, err := repository.QueryMany(ctx, r.db, q, []any{id}, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	return events, nil
}

func (r *repo) LearningInsights(ctx context.Context) (*Insights, error) {
	insights := &Insights{
		CommonCorrections:   map[string][]CorrectionPattern{},
		LowConfidenceFields: map[string]int{},
	}

	if err := r.db.QueryRowContext(
		ctx, "SELECT COUNT(*) FROM feedback_events",
	).Scan(&insights.TotalFeedback); err != nil {
		return nil, fmt.Errorf("count feedback events: %w", err)
	}

	correctionsSQL := `
		SELECT field_name, original_value, corrected_value, COUNT(*) AS occurrences
		FROM feedback_events
		WHERE feedback_type = 'correction' AND corrected_value IS NOT NULL AND corrected_value <> original_value
		GROUP BY field_name, original_value, corrected_value
		ORDER BY occurrences DESC, field_name ASC, original_value ASC`

	rows, err := r.db.QueryContext(ctx, correctionsSQL)
	if err != nil {
		return nil, fmt.Errorf("query corrections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var field string
		var pattern CorrectionPattern
		if err := rows.Scan(&field, &pattern.From, &pattern.To, &pattern.Count); err != nil {
			return nil, err
		}
		insights.CommonCorrections[field] = append(insights.CommonCorrections[field], pattern)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lowConfidenceSQL := `
		SELECT f.key, COUNT(*)
		FROM feedback_sessions, jsonb_each(fields) AS f(key, value)
		WHERE (f.value->>'confidence')::double precision < $1
		GROUP BY f.key`

	lowRows, err := r.db.QueryContext(ctx, lowConfidenceSQL, r.reviewThreshold)
	if err != nil {
		return nil, fmt.Errorf("query low confidence fields: %w", err)
	}
	defer lowRows.Close()

	for lowRows.Next() {
		var field string
		var count int
		if err := lowRows.Scan(&field, &count); err != nil {
			return nil, err
		}
		insights.LowConfidenceFields[field] = count
	}
	if err := lowRows.Err(); err != nil {
		return nil, err
	}

	return insights, nil
}

func (r *repo) FieldAccuracies(ctx context.Context, documentType string) ([]FieldAccuracy, error) {
	q := `
		SELECT document_type, field_name, accuracy, samples, trend, updated_at
		FROM field_accuracy`
	args := []any{}

	if documentType != "" {
		q += ` WHERE document_type = $1`
		args = append(args, documentType)
	}

	q += ` ORDER BY document_type, field_name`

	accuracies, err := repository.QueryMany(ctx, r.db, q, args, scanAccuracy)
	if err != nil {
		return nil, fmt.Errorf("query field accuracies: %w", err)
	}
	return accuracies, nil
}
