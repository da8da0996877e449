package feedback

import (
	"context"

	"github.com/google/uuid"

	"github.com/fieldline/curator/pkg/pagination"
)

// System defines the public contract for feedback ledger domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Session], error)

	Find(ctx context.Context, id uuid.UUID) (*Session, error)
	// CreateReviewSession opens a review over one document's extraction
	// results. The session starts pending_review when any field confidence
	// is below the review threshold, processing otherwise.
	CreateReviewSession(ctx context.Context, cmd CreateReviewCommand) (*Session, error)
	// AddFeedback appends one reviewer action to the ledger, updates the
	// session's field state, and folds corrections into rolling accuracy.
	// Terminal sessions fail with ErrInvalidTransition.
	AddFeedback(ctx context.Context, id uuid.UUID, cmd FeedbackCommand) (*Session, error)
	// Approve and Reject are terminal reviewer actions. Re-invoking either
	// on a terminal session fails with ErrInvalidTransition.
	Approve(ctx context.Context, id uuid.UUID, cmd ApproveCommand) (*Session, error)
	Reject(ctx context.Context, id uuid.UUID, cmd RejectCommand) (*Session, error)
	// Complete marks an approved session completed once its training
	// record has been materialized.
	Complete(ctx context.Context, id uuid.UUID) (*Session, error)
	// SessionEvents returns the ledger entries for one session, oldest first.
	SessionEvents(ctx context.Context, id uuid.UUID) ([]Event, error)
	// LearningInsights aggregates the ledger. Read-only.
	LearningInsights(ctx context.Context) (*Insights, error)
	// FieldAccuracies returns rolling accuracy rows, optionally scoped to
	// one document type.
	FieldAccuracies(ctx context.Context, documentType string) ([]FieldAccuracy, error)
	// Events is the notification stream consumed by the orchestrator.
	Events() <-chan Notification
}
