package records

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline/curator/pkg/pagination"
)

// System defines the public contract for training record domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Record], error)

	Find(ctx context.Context, id uuid.UUID) (*Record, error)
	// Create appends a record. Returns ErrDuplicate if the document already
	// has a record; the collection is strictly append-only.
	Create(ctx context.Context, cmd CreateCommand) (*Record, error)
	// ListQualified returns records for the given document types whose
	// quality score meets the threshold, ordered by creation time then id.
	// An empty types slice matches all document types.
	ListQualified(ctx context.Context, documentTypes []string, qualityThreshold float64) ([]Record, error)
	// CountSince returns the number of records for a document type created
	// after the given instant.
	CountSince(ctx context.Context, documentType string, since time.Time) (int, error)
	// DocumentTypes returns the distinct document types with at least one record.
	DocumentTypes(ctx context.Context) ([]string, error)
}
