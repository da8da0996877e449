package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline/curator/pkg/pagination"
	"github.com/fieldline/curator/pkg/query"
	"github.com/fieldline/curator/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a training record repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "records"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort...)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Record, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	rec, err := repository.QueryOne(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Record, error) {
	fields, err := json.Marshal(cmd.ExtractedFields)
	if err != nil {
		return nil, fmt.Errorf("marshal extracted_fields: %w", err)
	}
	scores, err := json.Marshal(cmd.ConfidenceScores)
	if err != nil {
		return nil, fmt.Errorf("marshal confidence_scores: %w", err)
	}
	validations, err := json.Marshal(cmd.UserValidations)
	if err != nil {
		return nil, fmt.Errorf("marshal user_validations: %w", err)
	}

	q := `
		INSERT INTO training_records(id, document_id, document_type, image_path, extracted_fields, confidence_scores, user_validations, quality_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, document_id, document_type, image_path, extracted_fields, confidence_scores, user_validations, quality_score, created_at`

	args := []any{
		uuid.New(),
		cmd.DocumentID,
		cmd.DocumentType,
		cmd.ImagePath,
		fields,
		scores,
		validations,
		cmd.QualityScore,
	}

	rec, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Record, error) {
		return repository.QueryOne(ctx, tx, q, args, scanRecord)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"training record created",
		"id", rec.ID,
		"document_type", rec.DocumentType,
		"quality_score", rec.QualityScore,
	)
	return &rec, nil
}

func (r *repo) ListQualified(
	ctx context.Context,
	documentTypes []string,
	qualityThreshold float64,
) ([]Record, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s >= $1",
		projection.Columns(), projection.From(), projection.Column("QualityScore"),
	)
	args := []any{qualityThreshold}

	if len(documentTypes) > 0 {
		types, err := json.Marshal(documentTypes)
		if err != nil {
			return nil, fmt.Errorf("marshal document_types: %w", err)
		}
		q += fmt.Sprintf(
			" AND %s IN (SELECT jsonb_array_elements_text($2::jsonb))",
			projection.Column("DocumentType"),
		)
		args = append(args, types)
	}

	q += fmt.Sprintf(
		" ORDER BY %s ASC, %s ASC",
		projection.Column("CreatedAt"), projection.Column("ID"),
	)

	items, err := repository.QueryMany(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query qualified records: %w", err)
	}

	return items, nil
}

func (r *repo) CountSince(ctx context.Context, documentType string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM training_records WHERE document_type = $1 AND created_at > $2",
		documentType, since,
	).Scan(&count)

	if err != nil {
		return 0, fmt.Errorf("count records since: %w", err)
	}
	return count, nil
}

func (r *repo) DocumentTypes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(
		ctx,
		"SELECT DISTINCT document_type FROM training_records ORDER BY document_type",
	)
	if err != nil {
		return nil, fmt.Errorf("query document types: %w", err)
	}
	defer rows.Close()

	types := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return types, nil
}
