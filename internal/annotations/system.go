package annotations

import (
	"context"

	"github.com/google/uuid"

	"github.com/fieldline/curator/pkg/pagination"
)

// System defines the public contract for annotation session domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Session], error)

	Find(ctx context.Context, id uuid.UUID) (*Session, error)
	// CreateSession opens a session for a document. Fails with
	// ErrInvalidDocumentType when the document type has no active schema.
	CreateSession(ctx context.Context, cmd CreateCommand) (*Session, error)
	// AddFieldAnnotation appends one labeled field value and recomputes the
	// session's training readiness. Concurrent calls on the same session
	// serialize on the session row; completed sessions reject edits.
	AddFieldAnnotation(ctx context.Context, id uuid.UUID, cmd AnnotateCommand) (*Session, error)
	// CompleteSession freezes the session and distills it into a training
	// record scored by the quality scorer.
	CompleteSession(ctx context.Context, id uuid.UUID, cmd CompleteCommand) (*Session, error)
	// TrainingReadiness reports whether a document type has enough
	// completed sessions to train on.
	TrainingReadiness(ctx context.Context, documentType string) (*Readiness, error)
}
