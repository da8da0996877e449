package schemas

import (
	"context"

	"github.com/google/uuid"

	"github.com/fieldline/curator/pkg/pagination"
)

// System defines the public contract for field schema domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[FieldSchema], error)

	Find(ctx context.Context, id uuid.UUID) (*FieldSchema, error)
	// FindActive returns the active schema for a document type, or ErrNoActive.
	FindActive(ctx context.Context, documentType string) (*FieldSchema, error)
	Create(ctx context.Context, cmd CreateCommand) (*FieldSchema, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*FieldSchema, error)
	// Activate marks a schema active, deactivating any current schema for
	// the same document type in the same transaction.
	Activate(ctx context.Context, id uuid.UUID) (*FieldSchema, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
